package app

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"snapfeed/internal/config"
	"snapfeed/internal/database"
	"snapfeed/internal/database/migrations"
	"snapfeed/internal/snap"
	"snapfeed/internal/uploads"
)

// SnapApp is the application layer between the CLI and the snap service.
// It constructs all dependencies from config, refuses to serve against an
// out-of-date schema, and manages the store lifecycle on Close.
type SnapApp struct {
	cfg     *config.Config
	store   snap.Store
	files   *uploads.DirStore
	service *snap.Service
	logFile *os.File
}

// NewSnapApp creates a fully wired SnapApp from the given config.
// operation identifies the CLI command being run (e.g. "AddSnap", "ListSnaps").
// The caller must call Close when done.
func NewSnapApp(cfg *config.Config, operation string) (*SnapApp, error) {
	files, err := uploads.NewDirStore(cfg.Uploads.Dir, snap.UUIDGenerator{})
	if err != nil {
		return nil, fmt.Errorf("creating uploads store: %w", err)
	}

	store, err := database.NewStoreFromConfig(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("creating store: %w", err)
	}

	if err := store.CheckMigrations(); err != nil {
		store.Close()
		return nil, fmt.Errorf("database schema out of date (run `snapfeed migrate`): %w", err)
	}

	opID := time.Now().UTC().Format("20060102T150405Z")
	logger, logFile, err := newLogger(cfg.LogDir, opID)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	logger = logger.With("op", operation)
	svc := snap.NewService(store, files, &slogAdapter{l: logger})

	return &SnapApp{
		cfg:     cfg,
		store:   store,
		files:   files,
		service: svc,
		logFile: logFile,
	}, nil
}

// Service returns the snap service.
func (a *SnapApp) Service() *snap.Service {
	return a.service
}

// Uploads returns the uploads file store.
func (a *SnapApp) Uploads() *uploads.DirStore {
	return a.files
}

// Close releases the database connection and the log file.
func (a *SnapApp) Close() error {
	var firstErr error
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			firstErr = err
		}
	}
	if a.logFile != nil {
		if err := a.logFile.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Migrate brings the configured database file up to the current schema.
// It runs before the persistence layer opens the store, so legacy databases
// are transformed before anything reads them. Any failure must abort the
// process before the application serves traffic.
func Migrate(cfg *config.Config) error {
	if cfg.Database.Type == "memory" {
		// In-memory databases migrate themselves on open; a standalone
		// migrate run has nothing durable to act on.
		return nil
	}
	if cfg.Database.Path == "" {
		return fmt.Errorf("no database path configured")
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0755); err != nil {
		return fmt.Errorf("creating database directory: %w", err)
	}

	db, err := database.OpenConnection(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := migrations.Apply(db); err != nil {
		return fmt.Errorf("migrating %s: %w", cfg.Database.Path, err)
	}
	return nil
}
