package snap

import "snapfeed/internal/model"

// Store provides an interface for snap metadata storage operations.
// All methods should be implemented with appropriate transaction handling.
type Store interface {
	// User operations

	// GetOrCreateUser returns the user with the given username, creating it
	// if it does not exist. When a concurrent caller wins the creation race,
	// implementations must resolve the unique-constraint failure by
	// re-reading the winner's row rather than failing.
	GetOrCreateUser(username string) (*model.User, error)

	// FindUserByUsername returns the user with an exact username match,
	// or nil if no such user exists.
	FindUserByUsername(username string) (*model.User, error)

	// Snap operations

	// AddSnap atomically resolves (or creates) the user for username and
	// inserts a snap referencing it. The returned snap carries its derived
	// image URL. No partial insert survives a failure.
	AddSnap(username, imagePath, caption, hashtags, location string) (*model.Snap, error)

	// ListSnaps returns all snaps ordered by creation time descending.
	ListSnaps() ([]model.Snap, error)

	// FindSnapByID returns the snap with the given id, or nil if no such
	// snap exists.
	FindSnapByID(id int64) (*model.Snap, error)

	// UpdateSnap overwrites only the caption and hashtags of the matching
	// snap. It reports whether a row was affected.
	UpdateSnap(id int64, caption, hashtags string) (bool, error)

	// DeleteSnap removes the snap row. View rows cascade. It reports
	// whether a row was removed.
	DeleteSnap(id int64) (bool, error)

	// View operations

	// MarkSnapViewed records that viewedBy has seen snapID. A duplicate
	// (snap, viewer) pair is absorbed silently; the bool reports whether a
	// new view row was inserted.
	MarkSnapViewed(snapID, viewedBy int64) (bool, error)

	// HasViewed reports whether viewedBy has already seen snapID.
	HasViewed(snapID, viewedBy int64) (bool, error)

	// CheckMigrations verifies the database schema is up-to-date.
	CheckMigrations() error

	// Close closes the database connection.
	Close() error
}

// FileStore abstracts the uploads directory that backs snap images.
// Snaps reference files in it by basename only.
type FileStore interface {
	// Import copies the file at srcPath into the store under a freshly
	// generated name and returns that name.
	Import(srcPath string) (string, error)

	// Remove deletes the named file from the store.
	Remove(name string) error

	// Resolve returns the absolute path of the named file.
	Resolve(name string) string
}
