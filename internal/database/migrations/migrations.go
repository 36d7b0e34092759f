// Package migrations brings an existing snap database forward to the current
// expected schema. Each migration is named, runs at most once, and executes
// inside a single transaction together with its ledger entry, so a failed
// body leaves the database exactly as it was.
package migrations

import (
	"database/sql"
	"errors"
	"fmt"
)

// Migration is a named, one-time schema or data transformation.
type Migration struct {
	Name string
	Run  func(tx *sql.Tx) error
}

// registry lists all known migrations in the order they must run.
var registry = []Migration{
	{Name: "001_initial_schema", Run: initialSchema},
}

const ledgerSchema = `
CREATE TABLE IF NOT EXISTS migrations (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL UNIQUE,
	run_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

// Apply runs all pending migrations against db. Running Apply twice in a row
// is a no-op the second time: already-recorded migrations are skipped, and
// the final state is identical to a single run.
func Apply(db *sql.DB) error {
	if _, err := db.Exec(ledgerSchema); err != nil {
		return fmt.Errorf("creating migration ledger: %w", err)
	}

	for _, m := range registry {
		done, err := applied(db, m.Name)
		if err != nil {
			return err
		}
		if done {
			continue
		}
		if err := runOne(db, m); err != nil {
			return err
		}
	}
	return nil
}

// Check verifies that every known migration has been recorded in the ledger.
// It never mutates the database. A nil return means the schema is current.
func Check(db *sql.DB) error {
	exists, err := tableExists(db, "migrations")
	if err != nil {
		return err
	}
	if !exists {
		return errors.New("database has no migration ledger (needs migration)")
	}

	pending, err := Pending(db)
	if err != nil {
		return err
	}
	if len(pending) > 0 {
		return fmt.Errorf("database is %d migration(s) behind (next: %s)", len(pending), pending[0])
	}
	return nil
}

// Pending returns the names of registered migrations not yet recorded in the
// ledger, in the order they would run.
func Pending(db *sql.DB) ([]string, error) {
	var names []string
	for _, m := range registry {
		done, err := applied(db, m.Name)
		if err != nil {
			return nil, err
		}
		if !done {
			names = append(names, m.Name)
		}
	}
	return names, nil
}

// runOne executes a single migration body and its ledger insert in one
// transaction. Any failure rolls both back.
func runOne(db *sql.DB, m Migration) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	if err := m.Run(tx); err != nil {
		return fmt.Errorf("migration %s: %w", m.Name, err)
	}

	if _, err := tx.Exec("INSERT INTO migrations (name) VALUES (?)", m.Name); err != nil {
		return fmt.Errorf("recording migration %s: %w", m.Name, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing migration %s: %w", m.Name, err)
	}
	return nil
}

func applied(db *sql.DB, name string) (bool, error) {
	var one int
	err := db.QueryRow("SELECT 1 FROM migrations WHERE name = ?", name).Scan(&one)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("checking migration %s: %w", name, err)
	}
	return true, nil
}

// initialSchema introduced user accounts: the users table, the nullable
// snaps.posted_by column, and a backfill that points pre-existing snaps at a
// synthesized "anonymous" user so no row is left unreferenced.
func initialSchema(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			username TEXT UNIQUE NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	// On a brand-new database the snaps table does not exist yet; the
	// persistence layer will create it in its current shape, so there is
	// nothing to alter or backfill.
	snapsExists, err := txTableExists(tx, "snaps")
	if err != nil {
		return err
	}
	if !snapsExists {
		return nil
	}

	// SQLite rejects ALTER TABLE ADD COLUMN for a column that already
	// exists, so consult the live column set first and treat an existing
	// column as already done.
	hasColumn, err := columnExists(tx, "snaps", "posted_by")
	if err != nil {
		return err
	}
	if !hasColumn {
		if _, err := tx.Exec("ALTER TABLE snaps ADD COLUMN posted_by INTEGER REFERENCES users(id)"); err != nil {
			return fmt.Errorf("adding posted_by column: %w", err)
		}
	}

	return backfillAnonymousUser(tx)
}

// backfillAnonymousUser assigns legacy snaps to a single default user. It
// only acts when no users exist and at least one snap has no poster.
func backfillAnonymousUser(tx *sql.Tx) error {
	var userCount int
	if err := tx.QueryRow("SELECT COUNT(*) FROM users").Scan(&userCount); err != nil {
		return fmt.Errorf("counting users: %w", err)
	}
	if userCount > 0 {
		return nil
	}

	var orphanCount int
	if err := tx.QueryRow("SELECT COUNT(*) FROM snaps WHERE posted_by IS NULL").Scan(&orphanCount); err != nil {
		return fmt.Errorf("counting unreferenced snaps: %w", err)
	}
	if orphanCount == 0 {
		return nil
	}

	res, err := tx.Exec("INSERT INTO users (username) VALUES (?)", "anonymous")
	if err != nil {
		return fmt.Errorf("creating default user: %w", err)
	}
	defaultID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading default user id: %w", err)
	}

	if _, err := tx.Exec("UPDATE snaps SET posted_by = ? WHERE posted_by IS NULL", defaultID); err != nil {
		return fmt.Errorf("backfilling posted_by: %w", err)
	}
	return nil
}

func tableExists(db *sql.DB, name string) (bool, error) {
	var found string
	err := db.QueryRow("SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", name).Scan(&found)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("checking table %s: %w", name, err)
	}
	return true, nil
}

func txTableExists(tx *sql.Tx, name string) (bool, error) {
	var found string
	err := tx.QueryRow("SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", name).Scan(&found)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("checking table %s: %w", name, err)
	}
	return true, nil
}

// columnExists consults PRAGMA table_info for the live column set.
func columnExists(tx *sql.Tx, table, column string) (bool, error) {
	rows, err := tx.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false, fmt.Errorf("reading columns of %s: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid        int
			name       string
			ctype      string
			notnull    int
			defaultVal sql.NullString
			pk         int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &defaultVal, &pk); err != nil {
			return false, fmt.Errorf("scanning column info: %w", err)
		}
		if name == column {
			return true, nil
		}
	}
	if err := rows.Err(); err != nil {
		return false, fmt.Errorf("reading columns of %s: %w", table, err)
	}
	return false, nil
}
