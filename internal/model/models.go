package model

import (
	"database/sql"
	"time"
)

// User is a poster identity. Users are created lazily the first time a
// username posts a snap, and are never deleted.
type User struct {
	ID        int64
	Username  string // globally unique, immutable after creation
	CreatedAt time.Time
}

// Snap is a photo post. ImagePath is the stored basename within the uploads
// directory; ImageURL is derived from it at read time and never persisted.
type Snap struct {
	ID        int64
	Username  string // denormalized copy of the poster's name at post time
	ImagePath string
	ImageURL  string
	Caption   string
	Hashtags  string
	Location  string
	CreatedAt time.Time
	PostedBy  sql.NullInt64 // optional link to users.id; NULL on legacy rows
}

// View records that a user has seen a snap. At most one row exists per
// (snap, viewer) pair.
type View struct {
	SnapID   int64
	ViewedBy int64
	ViewedAt time.Time
}

// MigrationRecord is a ledger entry proving a named migration already ran.
type MigrationRecord struct {
	ID    int64
	Name  string
	RunAt time.Time
}
