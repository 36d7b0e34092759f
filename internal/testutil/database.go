package testutil

import (
	"testing"

	"snapfeed/internal/database"
)

// NewTestStore creates a new in-memory SQLite store with schema applied and
// migrations recorded. The store is automatically closed when the test completes.
func NewTestStore(t *testing.T) *database.SQLiteStore {
	t.Helper()

	store, err := database.NewMemoryStore()
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	t.Cleanup(func() {
		store.Close()
	})

	return store
}
