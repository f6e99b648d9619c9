package monitor

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestMonitorReportsSettledArchives(t *testing.T) {
	dir := t.TempDir()
	got := make(chan string, 10)

	m, err := NewMonitor(func(file string) error {
		got <- file
		return nil
	}, []string{".zip", ".rar"}, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("new monitor: %v", err)
	}
	defer m.Close()
	if err := m.Add(dir); err != nil {
		t.Fatalf("add watch: %v", err)
	}
	m.Start()

	if err := os.WriteFile(filepath.Join(dir, "ignored.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "logs.zip"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case file := <-got:
		if file != filepath.Join(dir, "logs.zip") {
			t.Errorf("reported %q, want logs.zip", file)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("archive never reported")
	}

	// The .txt file must not come through, now or later.
	select {
	case file := <-got:
		t.Errorf("unexpected report for %q", file)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestMonitorSupported(t *testing.T) {
	m := &Monitor{extensions: []string{".zip", ".7z"}}
	tests := []struct {
		name string
		want bool
	}{
		{name: "a.zip", want: true},
		{name: "A.ZIP", want: true},
		{name: "b.7z", want: true},
		{name: "c.tar", want: false},
		{name: "noext", want: false},
	}
	for _, tt := range tests {
		if got := m.supported(tt.name); got != tt.want {
			t.Errorf("supported(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}
