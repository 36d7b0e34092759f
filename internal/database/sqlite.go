package database

import (
	"database/sql"
	"errors"
	"fmt"

	"snapfeed/internal/database/migrations"
	"snapfeed/internal/model"
	"snapfeed/internal/snap"

	"github.com/mattn/go-sqlite3"
)

// UploadsRoute is the public route prefix for snap images. Stored image
// paths are bare basenames; the route is prepended whenever a snap row
// crosses the read boundary, and is never written to the database.
const UploadsRoute = "/uploads/"

// SQLiteStore implements the snap.Store interface using SQLite.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore opens a SQLite database at path and ensures the current
// schema is in place. path can be a file path or ":memory:" for an
// in-memory database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}

	if err := InitSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteStore{db: db, path: path}, nil
}

// NewMemoryStore opens a fresh in-memory store with the schema applied and
// all migrations recorded. In-memory databases start empty on every open, so
// unlike file-backed stores they migrate themselves.
func NewMemoryStore() (*SQLiteStore, error) {
	db, err := OpenConnection(":memory:")
	if err != nil {
		return nil, err
	}

	if err := InitSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	if err := migrations.Apply(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating in-memory database: %w", err)
	}

	return &SQLiteStore{db: db, path: ":memory:"}, nil
}

// NewSQLiteStoreFromDB wraps an existing database connection.
// The caller is responsible for ensuring the connection is properly
// configured and the schema is applied.
func NewSQLiteStoreFromDB(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db, path: ""}
}

// OpenConnection opens and configures a SQLite database connection with
// appropriate PRAGMAs. This is exported for use in tools and tests that need
// a properly configured SQLite connection.
// path can be a file path or ":memory:" for an in-memory database.
func OpenConnection(path string) (*sql.DB, error) {
	// The PRAGMAs travel in the DSN so every connection gets them:
	// foreign keys (SQLite default is OFF for backward compatibility),
	// write-ahead logging so readers are not blocked during writes, and a
	// 5s lock wait instead of failing immediately under contention.
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000", path)

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection serializes all writers and keeps in-memory
	// databases stable (each new pool connection would otherwise see its
	// own empty database).
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to %s: %w", path, err)
	}

	return db, nil
}

// queryable is the subset of *sql.DB and *sql.Tx the store operations need,
// so the same helpers serve both transactional and direct calls.
type queryable interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

// User operations

func (s *SQLiteStore) FindUserByUsername(username string) (*model.User, error) {
	return findUserByUsername(s.db, username)
}

func findUserByUsername(q queryable, username string) (*model.User, error) {
	var user model.User
	row := q.QueryRow("SELECT id, username, created_at FROM users WHERE username = ?", username)
	if err := row.Scan(&user.ID, &user.Username, &user.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding user by username: %w", err)
	}
	return &user, nil
}

func (s *SQLiteStore) GetOrCreateUser(username string) (*model.User, error) {
	return getOrCreateUser(s.db, username)
}

// getOrCreateUser resolves username to a user row, inserting one when
// absent. A concurrent creator winning the race surfaces here as a unique
// constraint failure; the loser recovers by re-reading the winner's row.
func getOrCreateUser(q queryable, username string) (*model.User, error) {
	user, err := findUserByUsername(q, username)
	if err != nil {
		return nil, err
	}
	if user != nil {
		return user, nil
	}

	if _, err := q.Exec("INSERT INTO users (username) VALUES (?)", username); err != nil {
		if !isUniqueConstraint(err) {
			return nil, fmt.Errorf("creating user %q: %w", username, err)
		}
		// Lost the race: another writer inserted this username first.
	}

	user, err = findUserByUsername(q, username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("user %q missing after insert", username)
	}
	return user, nil
}

// isUniqueConstraint reports whether err is a SQLite unique constraint
// violation, using the driver's typed error rather than message text.
func isUniqueConstraint(err error) bool {
	var serr sqlite3.Error
	if !errors.As(err, &serr) {
		return false
	}
	return serr.ExtendedCode == sqlite3.ErrConstraintUnique ||
		serr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
}

// Snap operations

const snapColumns = `
	s.id,
	s.username,
	s.image_path,
	COALESCE(s.caption, ''),
	COALESCE(s.hashtags, ''),
	COALESCE(s.location, ''),
	s.created_at,
	s.posted_by`

// scanSnap reads one snap row and derives its public image URL.
func scanSnap(row interface{ Scan(...any) error }) (*model.Snap, error) {
	var sn model.Snap
	err := row.Scan(
		&sn.ID,
		&sn.Username,
		&sn.ImagePath,
		&sn.Caption,
		&sn.Hashtags,
		&sn.Location,
		&sn.CreatedAt,
		&sn.PostedBy,
	)
	if err != nil {
		return nil, err
	}
	sn.ImageURL = UploadsRoute + sn.ImagePath
	return &sn, nil
}

// AddSnap inserts a snap in a single transaction that also lazily creates
// the poster's user row. Readers never observe a snap whose user does not
// exist yet; a failure anywhere rolls the whole write back.
func (s *SQLiteStore) AddSnap(username, imagePath, caption, hashtags, location string) (*model.Snap, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	user, err := getOrCreateUser(tx, username)
	if err != nil {
		return nil, err
	}

	res, err := tx.Exec(`
		INSERT INTO snaps (username, image_path, caption, hashtags, location, posted_by)
		VALUES (?, ?, ?, ?, ?, ?)`,
		username, imagePath, caption, hashtags, location, user.ID)
	if err != nil {
		return nil, fmt.Errorf("inserting snap: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading snap id: %w", err)
	}

	created, err := findSnapByID(tx, id)
	if err != nil {
		return nil, err
	}
	if created == nil {
		return nil, fmt.Errorf("snap %d missing after insert", id)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}

	return created, nil
}

func (s *SQLiteStore) ListSnaps() ([]model.Snap, error) {
	// id breaks created_at ties so same-second inserts still list
	// most-recent-first.
	rows, err := s.db.Query(`
		SELECT` + snapColumns + `
		FROM snaps s
		ORDER BY s.created_at DESC, s.id DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing snaps: %w", err)
	}
	defer rows.Close()

	snaps := []model.Snap{}
	for rows.Next() {
		sn, err := scanSnap(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning snap: %w", err)
		}
		snaps = append(snaps, *sn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing snaps: %w", err)
	}
	return snaps, nil
}

func (s *SQLiteStore) FindSnapByID(id int64) (*model.Snap, error) {
	return findSnapByID(s.db, id)
}

func findSnapByID(q queryable, id int64) (*model.Snap, error) {
	row := q.QueryRow(`
		SELECT`+snapColumns+`
		FROM snaps s
		WHERE s.id = ?`, id)
	sn, err := scanSnap(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding snap by id: %w", err)
	}
	return sn, nil
}

func (s *SQLiteStore) UpdateSnap(id int64, caption, hashtags string) (bool, error) {
	res, err := s.db.Exec("UPDATE snaps SET caption = ?, hashtags = ? WHERE id = ?", caption, hashtags, id)
	if err != nil {
		return false, fmt.Errorf("updating snap: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reading affected rows: %w", err)
	}
	return affected > 0, nil
}

func (s *SQLiteStore) DeleteSnap(id int64) (bool, error) {
	// View rows cascade via the views.snap_id foreign key.
	res, err := s.db.Exec("DELETE FROM snaps WHERE id = ?", id)
	if err != nil {
		return false, fmt.Errorf("deleting snap: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reading affected rows: %w", err)
	}
	return affected > 0, nil
}

// View operations

func (s *SQLiteStore) MarkSnapViewed(snapID, viewedBy int64) (bool, error) {
	// OR IGNORE absorbs the duplicate-pair case; foreign key violations
	// are not subject to conflict resolution and still fail.
	res, err := s.db.Exec("INSERT OR IGNORE INTO views (snap_id, viewed_by) VALUES (?, ?)", snapID, viewedBy)
	if err != nil {
		return false, fmt.Errorf("marking snap viewed: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reading affected rows: %w", err)
	}
	return affected > 0, nil
}

func (s *SQLiteStore) HasViewed(snapID, viewedBy int64) (bool, error) {
	var one int
	row := s.db.QueryRow("SELECT 1 FROM views WHERE snap_id = ? AND viewed_by = ?", snapID, viewedBy)
	if err := row.Scan(&one); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("checking snap view: %w", err)
	}
	return true, nil
}

// CheckMigrations verifies the database schema is up-to-date.
func (s *SQLiteStore) CheckMigrations() error {
	return migrations.Check(s.db)
}

// Path returns the database file path (or ":memory:" for in-memory databases).
func (s *SQLiteStore) Path() string {
	return s.path
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Compile-time check that SQLiteStore implements snap.Store interface
var _ snap.Store = (*SQLiteStore)(nil)
