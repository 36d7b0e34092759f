package database

import (
	"fmt"

	"snapfeed/internal/config"
	"snapfeed/internal/snap"
)

// NewStoreFromConfig creates a Store implementation based on the database config type.
func NewStoreFromConfig(cfg config.DatabaseConfig) (snap.Store, error) {
	switch cfg.Type {
	case "sqlite":
		if cfg.Path == "" {
			return nil, fmt.Errorf("path required for sqlite database")
		}
		return NewSQLiteStore(cfg.Path)
	case "memory":
		return NewMemoryStore()
	default:
		return nil, fmt.Errorf("unknown database type: %s", cfg.Type)
	}
}
