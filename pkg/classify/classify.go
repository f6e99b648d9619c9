// Package classify tags archive entries by content type and partitions
// them into per-victim groups.
//
// Stealer families disagree on file naming but converge on a few
// recognizable substrings ("passwords.txt", "System Info.txt", "ip.txt",
// "copyright.txt"). Classification works on the entry path alone so it is
// independent of the container format.
package classify

import (
	"regexp"
	"strings"
)

// Category of a classified log file.
type Category int

const (
	// Credentials files hold harvested login/password entries.
	Credentials Category = iota + 1
	// SystemInfo files hold the compromised machine's attribute dump.
	SystemInfo
	// IPOnly files hold nothing but the victim's IP address.
	IPOnly
	// FingerprintText files hold builder credits identifying the stealer.
	FingerprintText
)

func (c Category) String() string {
	switch c {
	case Credentials:
		return "credentials"
	case SystemInfo:
		return "system"
	case IPOnly:
		return "ip"
	case FingerprintText:
		return "fingerprint"
	}
	return "unknown"
}

// File is an archive entry tagged with its category and victim group key.
type File struct {
	Path     string
	Category Category
	GroupKey string
}

type rule struct {
	name     string
	match    func(lower string) bool
	category Category
}

var wordIPPattern = regexp.MustCompile(`\bip`)

// Rules are evaluated top to bottom, first match wins. Matching is
// case-insensitive on the whole path. The "#" exclusion on SystemInfo
// skips decoy files that some builders plant under marked subpaths.
var rules = []rule{
	{
		name: "credentials",
		match: func(lower string) bool {
			return containsPasswordNotCracker(lower)
		},
		category: Credentials,
	},
	{
		name: "system",
		match: func(lower string) bool {
			if strings.Contains(lower, "#") {
				return false
			}
			return strings.Contains(lower, "system") ||
				strings.Contains(lower, "information") ||
				strings.Contains(lower, "userinfo")
		},
		category: SystemInfo,
	},
	{
		name: "ip",
		match: func(lower string) bool {
			return wordIPPattern.MatchString(lower)
		},
		category: IPOnly,
	},
	{
		name: "fingerprint",
		match: func(lower string) bool {
			return strings.Contains(lower, "credits") ||
				strings.Contains(lower, "copyright") ||
				strings.Contains(lower, "read")
		},
		category: FingerprintText,
	},
}

// containsPasswordNotCracker reports whether any "password" occurrence is
// not immediately followed by "cracker". Decompiled "PasswordCracker"
// tools ship their own passwordcracker.txt which is not victim data.
func containsPasswordNotCracker(lower string) bool {
	for start := 0; ; {
		idx := strings.Index(lower[start:], "password")
		if idx < 0 {
			return false
		}
		after := start + idx + len("password")
		if !strings.HasPrefix(lower[after:], "cracker") {
			return true
		}
		start = after
	}
}

// GroupKey derives the victim group key from an entry path. Archives come
// in three shapes: flat (one victim at top level), one victim directory
// per machine, or a wrapping directory above the victim directories. The
// key is the victim directory name, or the whole path for flat layouts.
func GroupKey(path string) string {
	start := strings.Index(path, "/") + 1
	if start > 0 {
		if end := strings.Index(path[start:], "/"); end > 0 {
			return path[start : start+end]
		}
		return path[:start]
	}
	return path
}

// Classify walks a sorted path list and returns the classified files in
// the same order. Directory entries, non-.txt entries and paths matching
// no rule are dropped.
func Classify(sortedPaths []string) []File {
	files := make([]File, 0, len(sortedPaths))
	for _, path := range sortedPaths {
		if strings.HasSuffix(path, "/") {
			continue
		}
		lower := strings.ToLower(path)
		if !strings.HasSuffix(lower, ".txt") {
			continue
		}
		for _, r := range rules {
			if r.match(lower) {
				files = append(files, File{Path: path, Category: r.category, GroupKey: GroupKey(path)})
				break
			}
		}
	}
	return files
}

// Group is a maximal contiguous run of classified files sharing a group
// key, i.e. one victim record's input set.
type Group struct {
	Key   string
	Files []File
}

// GroupFiles partitions the classified list into contiguous runs of equal
// group key. The input must stem from a sorted path list so equal keys
// are adjacent; no reordering happens here.
func GroupFiles(files []File) []Group {
	if len(files) == 0 {
		return nil
	}
	groups := make([]Group, 0, 4)
	current := Group{Key: files[0].GroupKey}
	for _, f := range files {
		if f.GroupKey != current.Key {
			groups = append(groups, current)
			current = Group{Key: f.GroupKey}
		}
		current.Files = append(current.Files, f)
	}
	groups = append(groups, current)
	return groups
}
