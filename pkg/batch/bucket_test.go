package batch

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestBucketPlace(t *testing.T) {
	dir := t.TempDir()
	bucket, err := NewBucket(filepath.Join(dir, SuccessBucketName))
	if err != nil {
		t.Fatalf("new bucket: %v", err)
	}

	src := filepath.Join(dir, "logs.zip")
	writeFile(t, src, "first")
	finalPath, err := bucket.Place(src)
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	if want := filepath.Join(bucket.Dir(), "logs.zip"); finalPath != want {
		t.Errorf("finalPath = %q, want %q", finalPath, want)
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Errorf("source still present: %v", err)
	}

	// Same name again, twice: numeric suffixes keep every copy.
	writeFile(t, src, "second")
	finalPath, err = bucket.Place(src)
	if err != nil {
		t.Fatalf("place collision: %v", err)
	}
	if want := filepath.Join(bucket.Dir(), "logs_1.zip"); finalPath != want {
		t.Errorf("finalPath = %q, want %q", finalPath, want)
	}

	writeFile(t, src, "third")
	finalPath, err = bucket.Place(src)
	if err != nil {
		t.Fatalf("place second collision: %v", err)
	}
	if want := filepath.Join(bucket.Dir(), "logs_2.zip"); finalPath != want {
		t.Errorf("finalPath = %q, want %q", finalPath, want)
	}

	content, err := os.ReadFile(filepath.Join(bucket.Dir(), "logs_2.zip"))
	if err != nil || string(content) != "third" {
		t.Errorf("renamed content = %q, %v", content, err)
	}
}

func TestBucketPlaceMissingSource(t *testing.T) {
	bucket, err := NewBucket(filepath.Join(t.TempDir(), FailedBucketName))
	if err != nil {
		t.Fatalf("new bucket: %v", err)
	}
	if _, err := bucket.Place(filepath.Join(t.TempDir(), "ghost.zip")); err == nil {
		t.Error("expected an error placing a missing file")
	}
}
