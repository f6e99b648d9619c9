package parse

import (
	"net/netip"
	"regexp"
)

// Candidate tokens only; every hit is validated with netip so version
// strings like 1.2.3.4567 are rejected.
var (
	ipv4Candidate = regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`)
	ipv6Candidate = regexp.MustCompile(`\b(?:[0-9A-Fa-f]{0,4}:){2,7}[0-9A-Fa-f]{1,4}\b`)
)

// ExtractIP returns the first valid IPv4 (preferred) or IPv6 address
// found anywhere in the text.
func ExtractIP(text string) (ip string, ok bool) {
	for _, candidate := range ipv4Candidate.FindAllString(text, -1) {
		if addr, err := netip.ParseAddr(candidate); err == nil && addr.Is4() {
			return candidate, true
		}
	}
	for _, candidate := range ipv6Candidate.FindAllString(text, -1) {
		if addr, err := netip.ParseAddr(candidate); err == nil && addr.Is6() {
			return candidate, true
		}
	}
	return "", false
}
