// Package output persists leak results as a JSON document. A shared
// batch output file is grown incrementally: each archive's records are
// appended to the existing systems_data array, never truncating prior
// results.
package output

import (
	"encoding/json"
	"errors"
	"log/slog"
	"os"

	"github.com/stealsift/stealsift/pkg/leak"
)

var logger = slog.New(slog.NewJSONHandler(os.Stderr, nil))

// BatchLabel names the merged document when several archives share one
// output file.
const BatchLabel = "combined_results"

// Writer appends leak results to a single JSON document on disk.
type Writer struct {
	path string
}

func NewWriter(path string) *Writer {
	return &Writer{path: path}
}

func (w *Writer) Path() string { return w.path }

// Append merges the leak's victim records into the document. The
// existing file is read back first so batch runs accumulate instead of
// overwrite; an unreadable document is replaced rather than grown.
func (w *Writer) Append(l *leak.Leak) (err error) {
	existing := leak.Leak{Filename: BatchLabel, SystemsData: []leak.SystemData{}}

	raw, readErr := os.ReadFile(w.path)
	switch {
	case readErr == nil && len(raw) > 0:
		if unmarshalErr := json.Unmarshal(raw, &existing); unmarshalErr != nil {
			logger.Warn("existing output is not valid JSON, starting over",
				slog.String("file", w.path),
				slog.String("error", unmarshalErr.Error()))
			existing = leak.Leak{Filename: BatchLabel, SystemsData: []leak.SystemData{}}
		}
	case readErr != nil && !errors.Is(readErr, os.ErrNotExist):
		return readErr
	}

	existing.SystemsData = append(existing.SystemsData, l.SystemsData...)
	if existing.Filename == "" {
		existing.Filename = l.Filename
	}

	encoded, err := json.MarshalIndent(existing, "", "    ")
	if err != nil {
		return
	}
	// Write-then-rename so an interrupt never leaves a half-written
	// document behind.
	tmp := w.path + ".tmp"
	if err = os.WriteFile(tmp, encoded, 0o644); err != nil {
		return
	}
	return os.Rename(tmp, w.path)
}

// WriteSingle writes one archive's result as its own document,
// replacing any previous content.
func WriteSingle(path string, l *leak.Leak) (err error) {
	encoded, err := json.MarshalIndent(l, "", "    ")
	if err != nil {
		return
	}
	return os.WriteFile(path, encoded, 0o644)
}
