package parse

import "testing"

func TestExtractIP(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		want   string
		wantOK bool
	}{
		{name: "bare ipv4", text: "203.0.113.9", want: "203.0.113.9", wantOK: true},
		{name: "ipv4 in prose", text: "IP: 198.51.100.23\nCountry: FR", want: "198.51.100.23", wantOK: true},
		{name: "first of several", text: "10.0.0.5 then 8.8.8.8", want: "10.0.0.5", wantOK: true},
		{name: "octet out of range", text: "999.1.1.1", wantOK: false},
		{name: "version string", text: "release 1.2.3.4567", wantOK: false},
		{name: "ipv6", text: "addr 2001:db8::ff00:42:8329 end", want: "2001:db8::ff00:42:8329", wantOK: true},
		{name: "no address", text: "nothing here", wantOK: false},
		{name: "empty", text: "", wantOK: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractIP(tt.text)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("ExtractIP(%q) = %q, %v, want %q, %v", tt.text, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}
