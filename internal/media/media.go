// Package media stores user-uploaded images on local disk.
package media

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/PRAHARSHITH-789/gala-backend/internal/model"
)

// MaxImageBytes bounds a single upload.
const MaxImageBytes = 5 << 20

var extensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// Store writes files under dir and exposes them below urlPrefix.
type Store struct {
	dir       string
	urlPrefix string
}

// NewStore creates dir if needed.
func NewStore(dir, urlPrefix string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Store{dir: dir, urlPrefix: strings.TrimRight(urlPrefix, "/")}, nil
}

// Dir is the directory served at the URL prefix.
func (s *Store) Dir() string { return s.dir }

// SaveImage sniffs the content type of r, rejects anything that is not a
// supported image or is larger than MaxImageBytes, and returns the public
// path of the stored file.
func (s *Store) SaveImage(r io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxImageBytes+1))
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	if len(data) == 0 {
		return "", model.Invalid("image is empty")
	}
	if len(data) > MaxImageBytes {
		return "", model.Invalid("image must be at most %d MiB", MaxImageBytes>>20)
	}
	ext, ok := extensions[mimetype.Detect(data).String()]
	if !ok {
		return "", model.Invalid("image must be JPEG, PNG, GIF or WebP")
	}

	name := uuid.NewString() + ext
	if err := writeFile(filepath.Join(s.dir, name), data); err != nil {
		return "", err
	}
	return path.Join(s.urlPrefix, name), nil
}

// Remove deletes a file previously returned by SaveImage. Paths outside the
// store are ignored.
func (s *Store) Remove(public string) error {
	if public == "" || !strings.HasPrefix(public, s.urlPrefix+"/") {
		return nil
	}
	name := path.Base(public)
	if name == "." || name == "/" || strings.Contains(name, "..") {
		return nil
	}
	err := os.Remove(filepath.Join(s.dir, name))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove upload: %w", err)
	}
	return nil
}

func writeFile(name string, data []byte) error {
	tmp := name + ".tmp"
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("create upload: %w", err)
	}
	if _, err := io.Copy(f, bytes.NewReader(data)); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("write upload: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close upload: %w", err)
	}
	if err := os.Rename(tmp, name); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("store upload: %w", err)
	}
	return nil
}
