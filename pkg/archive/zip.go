package archive

import (
	"bytes"
	"io"
	"strings"

	"github.com/yeka/zip"
)

// zipAccessor reads ZIP containers, including ZipCrypto and AES
// encrypted entries.
type zipAccessor struct {
	name     string
	password string
	reader   *zip.Reader
	byPath   map[string]*zip.File
	closed   bool
}

func openZip(data []byte, name, password string) (Accessor, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, &AccessError{Archive: name, Err: ErrCorrupt}
	}
	byPath := make(map[string]*zip.File, len(reader.File))
	for _, f := range reader.File {
		byPath[normalizePath(f.Name)] = f
	}
	return &zipAccessor{name: name, password: password, reader: reader, byPath: byPath}, nil
}

func (z *zipAccessor) Name() string { return z.name }

func (z *zipAccessor) Entries() []Entry {
	if z.closed {
		return nil
	}
	entries := make([]Entry, 0, len(z.reader.File))
	for _, f := range z.reader.File {
		path := normalizePath(f.Name)
		entries = append(entries, Entry{Path: path, IsDir: strings.HasSuffix(path, "/")})
	}
	return entries
}

func (z *zipAccessor) ReadText(path string) (string, error) {
	if z.closed {
		return "", &AccessError{Archive: z.name, Path: path, Err: ErrClosed}
	}
	f, ok := z.byPath[path]
	if !ok {
		return "", &AccessError{Archive: z.name, Path: path, Err: ErrNotFound}
	}
	if f.IsEncrypted() {
		if z.password == "" {
			return "", &AccessError{Archive: z.name, Path: path, Err: ErrBadPassword}
		}
		f.SetPassword(z.password)
	}
	rc, err := f.Open()
	if err != nil {
		return "", &AccessError{Archive: z.name, Path: path, Err: readErrKind(err, f.IsEncrypted())}
	}
	defer rc.Close()
	content, err := io.ReadAll(rc)
	if err != nil {
		return "", &AccessError{Archive: z.name, Path: path, Err: readErrKind(err, f.IsEncrypted())}
	}
	return decodeText(content), nil
}

// readErrKind maps a decompression failure: on an encrypted entry a bad
// password and a CRC error are indistinguishable, blame the password.
func readErrKind(err error, encrypted bool) error {
	if encrypted {
		return ErrBadPassword
	}
	_ = err
	return ErrCorrupt
}

// NeedsPassword checks the per-entry encryption flag, which ZIP exposes
// without decompressing anything.
func (z *zipAccessor) NeedsPassword() bool {
	if z.closed {
		return false
	}
	for _, f := range z.reader.File {
		if f.IsEncrypted() {
			return true
		}
	}
	return false
}

func (z *zipAccessor) Close() error {
	z.closed = true
	z.reader = nil
	z.byPath = nil
	return nil
}
