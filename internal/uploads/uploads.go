// Package uploads manages the directory that stores snap image files. The
// database only ever references these files by basename; this package owns
// the mapping from basenames to real paths.
package uploads

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"snapfeed/internal/snap"
)

// DirStore is a snap.FileStore backed by a single local directory.
type DirStore struct {
	dir   string
	idgen snap.IDGenerator
}

// NewDirStore creates a DirStore rooted at dir, creating the directory if
// needed. Generated file names come from idgen.
func NewDirStore(dir string, idgen snap.IDGenerator) (*DirStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("uploads directory must not be empty")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating uploads directory: %w", err)
	}
	return &DirStore{dir: dir, idgen: idgen}, nil
}

// Resolve returns the absolute path for a stored basename. Any directory
// components in name are stripped, so callers cannot escape the store.
func (s *DirStore) Resolve(name string) string {
	return filepath.Join(s.dir, filepath.Base(name))
}

// Remove deletes the named file from the store.
func (s *DirStore) Remove(name string) error {
	if err := os.Remove(s.Resolve(name)); err != nil {
		return fmt.Errorf("removing upload %s: %w", name, err)
	}
	return nil
}

// Import copies the file at srcPath into the store under a generated name
// that keeps the original extension, and returns that name.
func (s *DirStore) Import(srcPath string) (string, error) {
	src, err := os.Open(srcPath)
	if err != nil {
		return "", fmt.Errorf("opening source image: %w", err)
	}
	defer src.Close()

	name := s.idgen.New() + strings.ToLower(filepath.Ext(srcPath))
	destPath := s.Resolve(name)

	dst, err := os.OpenFile(destPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return "", fmt.Errorf("creating upload %s: %w", name, err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(destPath)
		return "", fmt.Errorf("copying image into uploads: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(destPath)
		return "", fmt.Errorf("closing upload %s: %w", name, err)
	}

	return name, nil
}

// Dir returns the root directory of the store.
func (s *DirStore) Dir() string {
	return s.dir
}

// Compile-time check that DirStore implements snap.FileStore interface
var _ snap.FileStore = (*DirStore)(nil)
