package database

import (
	"database/sql"
	"fmt"
)

// Schema is the current expected shape of the snap store. Every statement
// uses IF NOT EXISTS so applying it to a fresh or an already-initialized
// database is equally safe and never alters existing data.
const Schema = `
CREATE TABLE IF NOT EXISTS users (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	username TEXT UNIQUE NOT NULL,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS snaps (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	username TEXT NOT NULL,
	image_path TEXT NOT NULL,
	caption TEXT,
	hashtags TEXT,
	location TEXT,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	posted_by INTEGER,
	FOREIGN KEY (posted_by) REFERENCES users(id)
);

CREATE TABLE IF NOT EXISTS views (
	snap_id INTEGER,
	viewed_by INTEGER,
	viewed_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (snap_id, viewed_by),
	FOREIGN KEY (snap_id) REFERENCES snaps(id) ON DELETE CASCADE,
	FOREIGN KEY (viewed_by) REFERENCES users(id)
);

CREATE INDEX IF NOT EXISTS idx_snaps_posted_by ON snaps(posted_by);
CREATE INDEX IF NOT EXISTS idx_snaps_created_at ON snaps(created_at);
CREATE INDEX IF NOT EXISTS idx_views_snap_id ON views(snap_id);
CREATE INDEX IF NOT EXISTS idx_views_viewed_by ON views(viewed_by);
`

// InitSchema applies Schema to the given database.
func InitSchema(db *sql.DB) error {
	if _, err := db.Exec(Schema); err != nil {
		return fmt.Errorf("applying schema: %w", err)
	}
	return nil
}
