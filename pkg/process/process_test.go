package process

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/stealsift/stealsift/pkg/archive"
	"github.com/stealsift/stealsift/pkg/leak"
)

// fakeAccessor serves entry texts from a map, with optional forced read
// failures. Entries come back unordered, like a real container listing.
type fakeAccessor struct {
	name    string
	files   map[string]string
	failing map[string]bool
}

func (f *fakeAccessor) Name() string { return f.name }

func (f *fakeAccessor) Entries() []archive.Entry {
	entries := make([]archive.Entry, 0, len(f.files))
	for path := range f.files {
		entries = append(entries, archive.Entry{Path: path})
	}
	return entries
}

func (f *fakeAccessor) ReadText(path string) (string, error) {
	if f.failing[path] {
		return "", &archive.AccessError{Archive: f.name, Path: path, Err: archive.ErrCorrupt}
	}
	text, ok := f.files[path]
	if !ok {
		return "", &archive.AccessError{Archive: f.name, Path: path, Err: archive.ErrNotFound}
	}
	return text, nil
}

func (f *fakeAccessor) NeedsPassword() bool { return false }

func (f *fakeAccessor) Close() error { return nil }

const bobCredentials = `URL: https://mail.example.com
Username: bob@example.com
Password: s3cret
`

var bobCredential = leak.Credential{
	Host:        "https://mail.example.com",
	Login:       "bob@example.com",
	Password:    "s3cret",
	Domain:      "mail.example.com",
	LocalPart:   "bob",
	EmailDomain: "example.com",
	Filepath:    "Bob/Passwords.txt",
}

func TestArchiveSystemDumpIPWins(t *testing.T) {
	// The dump sorts before the bare ip file, so its address is already
	// in place when the ip file is read and must not be replaced.
	acc := &fakeAccessor{
		name: "logs.zip",
		files: map[string]string{
			"Bob/Information.txt": "Computer Name: PC-1\nIP: 10.0.0.5\n",
			"Bob/ip.txt":          "8.8.8.8",
		},
	}
	l := leak.Leak{Filename: acc.name}
	Archive(&l, acc)

	if len(l.SystemsData) != 1 {
		t.Fatalf("got %d records, want 1", len(l.SystemsData))
	}
	if got := l.SystemsData[0].System.IPAddress; got != "10.0.0.5" {
		t.Errorf("ip = %q, want %q", got, "10.0.0.5")
	}
}

func TestArchiveIPFileBackfillsDump(t *testing.T) {
	acc := &fakeAccessor{
		name: "logs.zip",
		files: map[string]string{
			"Bob/Information.txt": "Computer Name: PC-1\nCountry: DE\n",
			"Bob/ip.txt":          "8.8.8.8",
		},
	}
	l := leak.Leak{Filename: acc.name}
	Archive(&l, acc)

	if len(l.SystemsData) != 1 {
		t.Fatalf("got %d records, want 1", len(l.SystemsData))
	}
	if got := l.SystemsData[0].System.IPAddress; got != "8.8.8.8" {
		t.Errorf("ip = %q, want %q", got, "8.8.8.8")
	}
}

func TestArchiveRetention(t *testing.T) {
	tests := []struct {
		name  string
		files map[string]string
	}{
		{
			name: "banner dump and garbage credentials",
			files: map[string]string{
				"Bob/Information.txt": "****************\n* FREE LOGS *\n",
				"Bob/Passwords.txt":   "====================\nbuy premium access\n",
			},
		},
		{
			name: "ip alone",
			files: map[string]string{
				"Bob/ip.txt": "203.0.113.9",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := leak.Leak{Filename: "logs.zip"}
			Archive(&l, &fakeAccessor{name: l.Filename, files: tt.files})
			if len(l.SystemsData) != 0 {
				t.Errorf("got %d records, want none: %+v", len(l.SystemsData), l.SystemsData)
			}
		})
	}
}

func TestArchiveFingerprintNeedsCredentials(t *testing.T) {
	acc := &fakeAccessor{
		name: "logs.zip",
		files: map[string]string{
			"Alice/Passwords.txt": bobCredentials,
			"Alice/credits.txt":   "*** RedLine Stealer ***\n",
			"Bob/System.txt":      "Computer Name: PC-2\n",
			"Bob/credits.txt":     "*** RedLine Stealer ***\n",
		},
	}
	l := leak.Leak{Filename: acc.name}
	Archive(&l, acc)

	if len(l.SystemsData) != 2 {
		t.Fatalf("got %d records, want 2", len(l.SystemsData))
	}
	alice, bob := l.SystemsData[0], l.SystemsData[1]
	if alice.StealerName != "redline" {
		t.Errorf("credentialed record stealer = %q, want redline", alice.StealerName)
	}
	if bob.StealerName != "" {
		t.Errorf("credential-less record stealer = %q, want empty", bob.StealerName)
	}
	if bob.Credentials == nil || len(bob.Credentials) != 0 {
		t.Errorf("credential-less record should carry an empty slice, got %#v", bob.Credentials)
	}
}

func TestArchiveGroupsVictims(t *testing.T) {
	acc := &fakeAccessor{
		name: "logs.rar",
		files: map[string]string{
			"Alice/Passwords.txt":  "URL: https://a.example.com\nUsername: alice\nPassword: pw1\n",
			"Alice/System.txt":     "Computer Name: ALICE-PC\n",
			"Bob/Information.txt":  "Computer Name: BOB-PC\nIP: 198.51.100.4\n",
			"Bob/Passwords.txt":    bobCredentials,
			"readme_unrelated.md":  "not a log file",
			"Alice/wallets/k.dat":  "binary stuff",
		},
	}
	l := leak.Leak{Filename: acc.name}
	Archive(&l, acc)

	want := []leak.SystemData{
		{
			System:      &leak.System{ComputerName: "ALICE-PC"},
			Credentials: []leak.Credential{{
				Host:     "https://a.example.com",
				Login:    "alice",
				Password: "pw1",
				Domain:   "a.example.com",
				Filepath: "Alice/Passwords.txt",
			}},
		},
		{
			System:      &leak.System{ComputerName: "BOB-PC", IPAddress: "198.51.100.4"},
			Credentials: []leak.Credential{bobCredential},
		},
	}
	if diff := cmp.Diff(want, l.SystemsData); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}
}

func TestArchiveReadFailureSkipsFile(t *testing.T) {
	acc := &fakeAccessor{
		name: "logs.zip",
		files: map[string]string{
			"Bob/Information.txt": "Computer Name: PC-1\n",
			"Bob/Passwords.txt":   bobCredentials,
		},
		failing: map[string]bool{"Bob/Information.txt": true},
	}
	l := leak.Leak{Filename: acc.name}
	Archive(&l, acc)

	if len(l.SystemsData) != 1 {
		t.Fatalf("got %d records, want 1", len(l.SystemsData))
	}
	record := l.SystemsData[0]
	if record.System != nil {
		t.Errorf("system should be absent after read failure, got %+v", record.System)
	}
	if len(record.Credentials) != 1 {
		t.Errorf("got %d credentials, want 1", len(record.Credentials))
	}
}

func TestArchiveEmpty(t *testing.T) {
	l := leak.Leak{Filename: "empty.zip"}
	Archive(&l, &fakeAccessor{name: l.Filename, files: map[string]string{}})
	if len(l.SystemsData) != 0 {
		t.Errorf("got %d records from empty archive", len(l.SystemsData))
	}
}
