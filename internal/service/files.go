package service

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const (
	// sniffLen is how much of an upload is read to detect its type.
	sniffLen = 3072

	pdfMIME          = "application/pdf"
	fallbackFilename = "upload.pdf"
)

// SafeFilename reduces the base name of a client-supplied filename to
// [A-Za-z0-9._-].
func SafeFilename(name string) string {
	name = strings.ReplaceAll(name, `\`, "/")
	name = filepath.Base(name)

	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			b.WriteRune(r)
		}
	}

	safe := strings.TrimLeft(b.String(), ".")
	if safe == "" {
		return fallbackFilename
	}
	return safe
}

// peekedUpload is an upload whose leading bytes have been read for
// validation. The full content is head followed by rest.
type peekedUpload struct {
	filename string
	head     []byte
	rest     io.Reader
}

func (p *peekedUpload) content() io.Reader {
	return io.MultiReader(bytes.NewReader(p.head), p.rest)
}

func (p *peekedUpload) empty() bool {
	return len(p.head) == 0
}

// peek reads the first sniffLen bytes of an upload.
func peek(u Upload) (*peekedUpload, error) {
	if u.Content == nil {
		return &peekedUpload{filename: u.Filename, rest: strings.NewReader("")}, nil
	}
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(u.Content, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, fmt.Errorf("read upload %q: %w", u.Filename, err)
	}
	return &peekedUpload{filename: u.Filename, head: head[:n], rest: u.Content}, nil
}

// isPDF applies both the extension and the content check.
func (p *peekedUpload) isPDF() bool {
	if !strings.EqualFold(filepath.Ext(p.filename), ".pdf") {
		return false
	}
	return mimetype.Detect(p.head).Is(pdfMIME)
}

// saveUpload writes an upload to path, which must not exist.
func saveUpload(path string, src io.Reader) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, src); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return err
	}
	return f.Close()
}

func removeAll(paths []string) {
	for _, p := range paths {
		_ = os.Remove(p)
	}
}
