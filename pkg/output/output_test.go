package output

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/stealsift/stealsift/pkg/leak"
)

func record(country string) leak.SystemData {
	return leak.SystemData{
		System:      &leak.System{Country: country},
		Credentials: []leak.Credential{},
	}
}

func readDoc(t *testing.T, path string) leak.Leak {
	t.Helper()
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	var doc leak.Leak
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	return doc
}

func TestAppendAccumulates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.json")
	w := NewWriter(path)

	if err := w.Append(&leak.Leak{Filename: "a.zip", SystemsData: []leak.SystemData{record("DE")}}); err != nil {
		t.Fatalf("first append: %v", err)
	}
	if err := w.Append(&leak.Leak{Filename: "b.rar", SystemsData: []leak.SystemData{record("FR"), record("US")}}); err != nil {
		t.Fatalf("second append: %v", err)
	}

	doc := readDoc(t, path)
	if doc.Filename != BatchLabel {
		t.Errorf("filename = %q, want %q", doc.Filename, BatchLabel)
	}
	want := []leak.SystemData{record("DE"), record("FR"), record("US")}
	if diff := cmp.Diff(want, doc.SystemsData); diff != "" {
		t.Errorf("systems_data mismatch (-want +got):\n%s", diff)
	}
}

func TestAppendReplacesInvalidDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	w := NewWriter(path)
	if err := w.Append(&leak.Leak{Filename: "a.zip", SystemsData: []leak.SystemData{record("DE")}}); err != nil {
		t.Fatalf("append: %v", err)
	}

	doc := readDoc(t, path)
	if len(doc.SystemsData) != 1 {
		t.Errorf("got %d records, want 1", len(doc.SystemsData))
	}
}

func TestAppendEmptyResult(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.json")
	w := NewWriter(path)
	if err := w.Append(&leak.Leak{Filename: "a.zip", SystemsData: []leak.SystemData{}}); err != nil {
		t.Fatalf("append: %v", err)
	}
	doc := readDoc(t, path)
	if len(doc.SystemsData) != 0 {
		t.Errorf("got %d records, want none", len(doc.SystemsData))
	}
	if doc.SystemsData == nil {
		t.Error("systems_data should serialize as an empty array")
	}
}

func TestAppendLeavesNoTempFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "results.json")
	w := NewWriter(path)
	if err := w.Append(&leak.Leak{Filename: "a.zip", SystemsData: []leak.SystemData{record("DE")}}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("temp file left behind: %v", err)
	}
}

func TestWriteSingle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.zip.json")
	in := leak.Leak{Filename: "a.zip", SystemsData: []leak.SystemData{record("DE")}}
	if err := WriteSingle(path, &in); err != nil {
		t.Fatalf("write: %v", err)
	}
	doc := readDoc(t, path)
	if diff := cmp.Diff(in, doc); diff != "" {
		t.Errorf("document mismatch (-want +got):\n%s", diff)
	}
}
