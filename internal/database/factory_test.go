package database

import (
	"path/filepath"
	"testing"

	"snapfeed/internal/config"
)

func TestNewStoreFromConfig(t *testing.T) {
	t.Run("creates sqlite store", func(t *testing.T) {
		cfg := config.DatabaseConfig{
			Type: "sqlite",
			Path: filepath.Join(t.TempDir(), "snapfeed.db"),
		}

		store, err := NewStoreFromConfig(cfg)
		if err != nil {
			t.Fatalf("NewStoreFromConfig() error = %v", err)
		}
		defer store.Close()
	})

	t.Run("requires path for sqlite", func(t *testing.T) {
		_, err := NewStoreFromConfig(config.DatabaseConfig{Type: "sqlite"})
		if err == nil {
			t.Error("NewStoreFromConfig() expected error for missing path")
		}
	})

	t.Run("creates migrated memory store", func(t *testing.T) {
		store, err := NewStoreFromConfig(config.DatabaseConfig{Type: "memory"})
		if err != nil {
			t.Fatalf("NewStoreFromConfig() error = %v", err)
		}
		defer store.Close()

		if err := store.CheckMigrations(); err != nil {
			t.Errorf("CheckMigrations() on fresh memory store returned error: %v", err)
		}
	})

	t.Run("rejects unknown type", func(t *testing.T) {
		_, err := NewStoreFromConfig(config.DatabaseConfig{Type: "postgres"})
		if err == nil {
			t.Error("NewStoreFromConfig() expected error for unknown type")
		}
	})
}
