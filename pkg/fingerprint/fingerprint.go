// Package fingerprint identifies the malware family that produced a log
// from the builder credits text shipped inside it.
package fingerprint

import "strings"

// Signature is one family entry of the registry. Any of the markers
// appearing as a substring identifies the family.
type Signature struct {
	Name    string
	Markers []string
}

// Registry is scanned in declared order; earlier entries take priority
// when a text happens to mention several families.
var Registry = []Signature{
	{Name: "redline", Markers: []string{"redline"}},
	{Name: "raccoon", Markers: []string{"raccoon"}},
	{Name: "vidar", Markers: []string{"vidar"}},
	{Name: "azorult", Markers: []string{"azorult"}},
	{Name: "taurus", Markers: []string{"taurus stealer", "taurus seller"}},
	{Name: "meta", Markers: []string{"metastealer", "meta stealer"}},
	{Name: "lumma", Markers: []string{"lummac2", "lumma"}},
	{Name: "stealc", Markers: []string{"stealc"}},
	{Name: "aurora", Markers: []string{"aurora stealer"}},
	{Name: "mystic", Markers: []string{"mystic stealer"}},
}

// Match scans the text against the registry and returns the first
// matching family name. A text matching nothing is simply unattributed,
// not an error.
func Match(text string) (name string, ok bool) {
	lower := strings.ToLower(text)
	for _, sig := range Registry {
		for _, marker := range sig.Markers {
			if strings.Contains(lower, marker) {
				return sig.Name, true
			}
		}
	}
	return "", false
}
