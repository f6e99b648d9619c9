package batch

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Bucket is a destination directory files are relocated into after
// processing. It keeps the rename-with-collision-avoidance concern out
// of the pipeline itself.
type Bucket struct {
	dir string
}

// Bucket directory names, created alongside the scanned target.
const (
	SuccessBucketName = "processed_success"
	FailedBucketName  = "processed_failed"
)

func NewBucket(dir string) (b *Bucket, err error) {
	if err = os.MkdirAll(dir, 0o755); err != nil {
		return
	}
	return &Bucket{dir: dir}, nil
}

func (b *Bucket) Dir() string { return b.dir }

// Place moves the file into the bucket. A name collision is resolved by
// appending a numeric suffix until the destination is free.
func (b *Bucket) Place(file string) (finalPath string, err error) {
	base := filepath.Base(file)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	finalPath = filepath.Join(b.dir, base)
	for counter := 1; ; counter++ {
		if _, statErr := os.Stat(finalPath); errors.Is(statErr, os.ErrNotExist) {
			break
		}
		finalPath = filepath.Join(b.dir, fmt.Sprintf("%s_%d%s", stem, counter, ext))
	}
	if err = os.Rename(file, finalPath); err != nil {
		return "", err
	}
	return finalPath, nil
}
