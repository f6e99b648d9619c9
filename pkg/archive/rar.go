package archive

import (
	"bytes"
	"errors"
	"io"

	"github.com/nwaples/rardecode"
)

// rarAccessor reads RAR containers. RAR decoding is strictly sequential
// (solid archives depend on previous entries), so the whole container is
// decoded once at open time and entry reads are served from memory.
type rarAccessor struct {
	name    string
	data    []byte
	entries []Entry
	content map[string][]byte
	closed  bool
}

func openRar(data []byte, name, password string) (Accessor, error) {
	entries, content, err := scanRar(data, password)
	if err != nil && len(entries) == 0 {
		kind := ErrCorrupt
		if password == "" || looksLikePasswordErr(err) {
			kind = ErrBadPassword
		}
		return nil, &AccessError{Archive: name, Err: kind}
	}
	return &rarAccessor{name: name, data: data, entries: entries, content: content}, nil
}

// scanRar walks the volume once, collecting headers and file bytes.
// A decode error mid-archive keeps what was read so far.
func scanRar(data []byte, password string) (entries []Entry, content map[string][]byte, err error) {
	reader, err := rardecode.NewReader(bytes.NewReader(data), password)
	if err != nil {
		return nil, nil, err
	}
	content = make(map[string][]byte)
	for {
		header, nextErr := reader.Next()
		if errors.Is(nextErr, io.EOF) {
			return entries, content, nil
		}
		if nextErr != nil {
			return entries, content, nextErr
		}
		path := normalizePath(header.Name)
		if header.IsDir {
			entries = append(entries, Entry{Path: path + "/", IsDir: true})
			continue
		}
		entries = append(entries, Entry{Path: path})
		fileBytes, readErr := io.ReadAll(reader)
		if readErr != nil {
			err = readErr
			return entries, content, err
		}
		content[path] = fileBytes
	}
}

func (r *rarAccessor) Name() string { return r.name }

func (r *rarAccessor) Entries() []Entry {
	if r.closed {
		return nil
	}
	return r.entries
}

func (r *rarAccessor) ReadText(path string) (string, error) {
	if r.closed {
		return "", &AccessError{Archive: r.name, Path: path, Err: ErrClosed}
	}
	fileBytes, ok := r.content[path]
	if !ok {
		for _, e := range r.entries {
			// Listed but not decoded: the scan aborted on this entry.
			if e.Path == path && !e.IsDir {
				return "", &AccessError{Archive: r.name, Path: path, Err: ErrCorrupt}
			}
		}
		return "", &AccessError{Archive: r.name, Path: path, Err: ErrNotFound}
	}
	return decodeText(fileBytes), nil
}

// NeedsPassword attempts a passwordless scan of the volume.
func (r *rarAccessor) NeedsPassword() bool {
	if r.closed {
		return false
	}
	_, _, err := scanRar(r.data, "")
	return err != nil
}

func (r *rarAccessor) Close() error {
	r.closed = true
	r.entries = nil
	r.content = nil
	r.data = nil
	return nil
}
