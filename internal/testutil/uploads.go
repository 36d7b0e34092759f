package testutil

import (
	"fmt"
	"os"
	"sync"

	"snapfeed/internal/snap"
)

// MemoryFileStore is an in-memory snap.FileStore for tests. Safe for
// concurrent use.
type MemoryFileStore struct {
	mu      sync.Mutex
	files   map[string]bool
	removed []string

	// FailRemove, when set, makes every Remove call return an error.
	FailRemove bool
}

// NewMemoryFileStore creates an empty MemoryFileStore.
func NewMemoryFileStore() *MemoryFileStore {
	return &MemoryFileStore{files: map[string]bool{}}
}

// Add places a named file in the store.
func (s *MemoryFileStore) Add(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[name] = true
}

// Has reports whether the named file is present.
func (s *MemoryFileStore) Has(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.files[name]
}

// Removed returns the names passed to Remove, in call order.
func (s *MemoryFileStore) Removed() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string{}, s.removed...)
}

func (s *MemoryFileStore) Import(srcPath string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	name := fmt.Sprintf("import-%d", len(s.files)+1)
	s.files[name] = true
	return name, nil
}

func (s *MemoryFileStore) Remove(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removed = append(s.removed, name)
	if s.FailRemove {
		return fmt.Errorf("removing %s: simulated failure", name)
	}
	if !s.files[name] {
		return fmt.Errorf("removing %s: %w", name, os.ErrNotExist)
	}
	delete(s.files, name)
	return nil
}

func (s *MemoryFileStore) Resolve(name string) string {
	return "/mem/" + name
}

// Compile-time check that MemoryFileStore implements snap.FileStore interface
var _ snap.FileStore = (*MemoryFileStore)(nil)
