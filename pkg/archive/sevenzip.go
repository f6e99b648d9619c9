package archive

import (
	"bytes"
	"io"
	"strings"

	"github.com/bodgit/sevenzip"
)

// sevenZipAccessor reads 7z containers. The format has no cheap
// password flag, so NeedsPassword is resolved by attempting a
// passwordless read.
type sevenZipAccessor struct {
	name     string
	password string
	data     []byte
	reader   *sevenzip.Reader
	byPath   map[string]*sevenzip.File
	closed   bool
}

func openSevenZip(data []byte, name, password string) (Accessor, error) {
	reader, err := newSevenZipReader(data, password)
	if err != nil {
		// An encrypted-header archive fails right here with the wrong
		// password; a plain parse failure means corrupt data.
		kind := ErrCorrupt
		if password == "" || looksLikePasswordErr(err) {
			kind = ErrBadPassword
		}
		return nil, &AccessError{Archive: name, Err: kind}
	}
	byPath := make(map[string]*sevenzip.File, len(reader.File))
	for _, f := range reader.File {
		byPath[normalizePath(f.Name)] = f
	}
	return &sevenZipAccessor{
		name:     name,
		password: password,
		data:     data,
		reader:   reader,
		byPath:   byPath,
	}, nil
}

func newSevenZipReader(data []byte, password string) (*sevenzip.Reader, error) {
	br := bytes.NewReader(data)
	if password == "" {
		return sevenzip.NewReader(br, int64(len(data)))
	}
	return sevenzip.NewReaderWithPassword(br, int64(len(data)), password)
}

func looksLikePasswordErr(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "password") || strings.Contains(msg, "decrypt")
}

func (s *sevenZipAccessor) Name() string { return s.name }

func (s *sevenZipAccessor) Entries() []Entry {
	if s.closed {
		return nil
	}
	entries := make([]Entry, 0, len(s.reader.File))
	for _, f := range s.reader.File {
		path := normalizePath(f.Name)
		isDir := f.FileInfo().IsDir()
		if isDir && !strings.HasSuffix(path, "/") {
			path += "/"
		}
		entries = append(entries, Entry{Path: path, IsDir: isDir})
	}
	return entries
}

func (s *sevenZipAccessor) ReadText(path string) (string, error) {
	if s.closed {
		return "", &AccessError{Archive: s.name, Path: path, Err: ErrClosed}
	}
	f, ok := s.byPath[path]
	if !ok {
		return "", &AccessError{Archive: s.name, Path: path, Err: ErrNotFound}
	}
	rc, err := f.Open()
	if err != nil {
		return "", s.readError(path, err)
	}
	defer rc.Close()
	content, err := io.ReadAll(rc)
	if err != nil {
		return "", s.readError(path, err)
	}
	return decodeText(content), nil
}

// readError maps a failed entry read. With encrypted streams a wrong
// password surfaces as a CRC or filter error only at read time.
func (s *sevenZipAccessor) readError(path string, err error) error {
	kind := ErrCorrupt
	if s.password == "" && s.NeedsPassword() || looksLikePasswordErr(err) {
		kind = ErrBadPassword
	}
	return &AccessError{Archive: s.name, Path: path, Err: kind}
}

// NeedsPassword attempts a passwordless read of the first regular entry.
func (s *sevenZipAccessor) NeedsPassword() bool {
	if s.closed {
		return false
	}
	reader, err := newSevenZipReader(s.data, "")
	if err != nil {
		return true
	}
	for _, f := range reader.File {
		if f.FileInfo().IsDir() {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return true
		}
		_, err = io.Copy(io.Discard, rc)
		rc.Close()
		return err != nil
	}
	return false
}

func (s *sevenZipAccessor) Close() error {
	s.closed = true
	s.reader = nil
	s.byPath = nil
	s.data = nil
	return nil
}
