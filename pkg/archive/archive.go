// Package archive provides a uniform read-only view over the container
// formats stealer logs ship in (.zip, .rar, .7z). Entry text is decoded
// tolerantly so downstream parsers never fail on encoding garbage.
package archive

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// Failure kinds of an archive access. AccessError wraps one of these so
// callers can branch with errors.Is.
var (
	ErrNotFound          = errors.New("entry not found")
	ErrBadPassword       = errors.New("wrong or missing password")
	ErrCorrupt           = errors.New("corrupt archive data")
	ErrUndecodable       = errors.New("undecodable entry content")
	ErrUnsupportedFormat = errors.New("unsupported archive format")
	ErrClosed            = errors.New("archive is closed")
)

// AccessError reports a failed archive operation with the entry involved.
type AccessError struct {
	Archive string
	Path    string
	Err     error
}

func (e *AccessError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("archive %s: %s", e.Archive, e.Err)
	}
	return fmt.Sprintf("archive %s, entry %s: %s", e.Archive, e.Path, e.Err)
}

func (e *AccessError) Unwrap() error { return e.Err }

// Entry is one member of an open container.
type Entry struct {
	Path  string
	IsDir bool
}

// Accessor is the capability set the pipeline consumes. Entries are
// returned in format-native order; callers sort before classifying.
type Accessor interface {
	Name() string
	Entries() []Entry
	ReadText(path string) (string, error)
	NeedsPassword() bool
	Close() error
}

// Magic byte prefixes, used when the extension lies or is missing.
var (
	zipMagic      = []byte{'P', 'K', 0x03, 0x04}
	rarMagic      = []byte{'R', 'a', 'r', '!', 0x1a, 0x07}
	sevenZipMagic = []byte{'7', 'z', 0xbc, 0xaf, 0x27, 0x1c}
)

// Open builds the accessor matching the buffer's container format,
// selected by file extension first and magic bytes second.
func Open(data []byte, name, password string) (Accessor, error) {
	switch {
	case hasExt(name, ".zip") || bytes.HasPrefix(data, zipMagic):
		return openZip(data, name, password)
	case hasExt(name, ".rar") || bytes.HasPrefix(data, rarMagic):
		return openRar(data, name, password)
	case hasExt(name, ".7z") || bytes.HasPrefix(data, sevenZipMagic):
		return openSevenZip(data, name, password)
	}
	return nil, &AccessError{Archive: name, Err: ErrUnsupportedFormat}
}

func hasExt(name, ext string) bool {
	return strings.EqualFold(filepath.Ext(name), ext)
}

// decodeText decodes entry bytes leniently: UTF-8 when valid, invalid
// byte substitution otherwise. Embedded NULs become a visible "\00"
// escape so line-oriented parsers never see them.
func decodeText(b []byte) string {
	var text string
	if utf8.Valid(b) {
		text = string(b)
	} else {
		text = strings.ToValidUTF8(string(b), "�")
	}
	return strings.ReplaceAll(text, "\x00", `\00`)
}

// normalizePath maps archive-native separators to forward slashes.
// Windows-built archives mix both.
func normalizePath(path string) string {
	return strings.ReplaceAll(path, `\`, "/")
}
