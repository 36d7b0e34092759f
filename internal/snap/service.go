package snap

import (
	"fmt"
	"path/filepath"

	"snapfeed/internal/model"
)

// Service is the orchestration layer over the snap store. It applies the
// error contract the HTTP/CLI callers rely on: writes that must be atomic
// propagate errors, reads degrade to empty results, and single-row mutations
// report a plain success flag. Best-effort side effects (image file removal)
// are logged and never block the database outcome.
type Service struct {
	store  Store
	files  FileStore
	logger Logger
}

// NewService creates a new Service with the provided dependencies.
func NewService(store Store, files FileStore, logger Logger) *Service {
	return &Service{
		store:  store,
		files:  files,
		logger: logger,
	}
}

// EnsureUser returns the user with the given username, creating it if needed.
func (s *Service) EnsureUser(username string) (*model.User, error) {
	if username == "" {
		return nil, fmt.Errorf("username must not be empty")
	}

	user, err := s.store.GetOrCreateUser(username)
	if err != nil {
		return nil, fmt.Errorf("ensuring user %q: %w", username, err)
	}
	return user, nil
}

// AddSnap posts a new snap for username. The poster user is created lazily
// inside the same transaction as the snap insert; any failure leaves no
// partial state behind.
func (s *Service) AddSnap(username, imagePath, caption, hashtags, location string) (*model.Snap, error) {
	if username == "" {
		return nil, fmt.Errorf("username must not be empty")
	}
	if imagePath == "" {
		return nil, fmt.Errorf("image path must not be empty")
	}

	created, err := s.store.AddSnap(username, imagePath, caption, hashtags, location)
	if err != nil {
		return nil, fmt.Errorf("adding snap for %q: %w", username, err)
	}

	s.logger.Info("snap added", "id", created.ID, "username", username, "image", created.ImagePath)
	return created, nil
}

// ListSnaps returns all snaps, most recent first. Internal errors surface as
// an empty list, never as a failure the caller has to handle.
func (s *Service) ListSnaps() []model.Snap {
	snaps, err := s.store.ListSnaps()
	if err != nil {
		s.logger.Error("listing snaps", "error", err)
		return []model.Snap{}
	}
	return snaps
}

// GetSnap returns the snap with the given id, or nil if it does not exist.
// Internal errors also map to nil; the caller only sees found/not-found.
func (s *Service) GetSnap(id int64) *model.Snap {
	found, err := s.store.FindSnapByID(id)
	if err != nil {
		s.logger.Error("getting snap", "id", id, "error", err)
		return nil
	}
	return found
}

// UpdateSnap overwrites the caption and hashtags of the matching snap and
// reports whether a row was affected.
func (s *Service) UpdateSnap(id int64, caption, hashtags string) bool {
	updated, err := s.store.UpdateSnap(id, caption, hashtags)
	if err != nil {
		s.logger.Error("updating snap", "id", id, "error", err)
		return false
	}
	return updated
}

// DeleteSnap removes a snap and, best-effort, its backing image file. A
// failed file removal is logged and does not block the row deletion.
func (s *Service) DeleteSnap(id int64) bool {
	found, err := s.store.FindSnapByID(id)
	if err != nil {
		s.logger.Error("looking up snap for deletion", "id", id, "error", err)
		return false
	}
	if found == nil {
		return false
	}

	if found.ImagePath != "" {
		name := filepath.Base(found.ImagePath)
		if err := s.files.Remove(name); err != nil {
			s.logger.Warn("deleting image file", "id", id, "image", name, "error", err)
		}
	}

	deleted, err := s.store.DeleteSnap(id)
	if err != nil {
		s.logger.Error("deleting snap", "id", id, "error", err)
		return false
	}
	if deleted {
		s.logger.Info("snap deleted", "id", id)
	}
	return deleted
}

// MarkViewed records that viewerID has seen snapID. Marking the same pair
// twice is a no-op, not an error.
func (s *Service) MarkViewed(snapID, viewerID int64) bool {
	_, err := s.store.MarkSnapViewed(snapID, viewerID)
	if err != nil {
		s.logger.Error("marking snap viewed", "snap", snapID, "viewer", viewerID, "error", err)
		return false
	}
	return true
}

// HasViewed reports whether viewerID has already seen snapID. Internal
// errors read as not-viewed.
func (s *Service) HasViewed(snapID, viewerID int64) bool {
	viewed, err := s.store.HasViewed(snapID, viewerID)
	if err != nil {
		s.logger.Error("checking snap view", "snap", snapID, "viewer", viewerID, "error", err)
		return false
	}
	return viewed
}
