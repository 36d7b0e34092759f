package database

import (
	"path/filepath"
	"sync"
	"testing"
)

// newTestStore creates a new in-memory store with schema and migrations applied.
func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	store, err := NewMemoryStore()
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	t.Cleanup(func() {
		store.Close()
	})

	return store
}

func TestSQLiteStore_GetOrCreateUser(t *testing.T) {
	t.Run("creates a new user", func(t *testing.T) {
		store := newTestStore(t)

		user, err := store.GetOrCreateUser("alice")
		if err != nil {
			t.Fatalf("GetOrCreateUser() error = %v", err)
		}
		if user.ID == 0 {
			t.Error("ID is zero")
		}
		if user.Username != "alice" {
			t.Errorf("Username = %q, want %q", user.Username, "alice")
		}
		if user.CreatedAt.IsZero() {
			t.Error("CreatedAt is zero")
		}
	})

	t.Run("returns existing user on second call", func(t *testing.T) {
		store := newTestStore(t)

		first, err := store.GetOrCreateUser("bob")
		if err != nil {
			t.Fatalf("first GetOrCreateUser() error = %v", err)
		}

		second, err := store.GetOrCreateUser("bob")
		if err != nil {
			t.Fatalf("second GetOrCreateUser() error = %v", err)
		}

		if first.ID != second.ID {
			t.Errorf("second call ID = %d, want %d", second.ID, first.ID)
		}

		var count int
		if err := store.db.QueryRow("SELECT COUNT(*) FROM users WHERE username = 'bob'").Scan(&count); err != nil {
			t.Fatalf("counting users: %v", err)
		}
		if count != 1 {
			t.Errorf("bob rows = %d, want 1", count)
		}
	})

	t.Run("concurrent callers resolve to one row", func(t *testing.T) {
		// A file-backed store so concurrent calls share real state.
		path := filepath.Join(t.TempDir(), "race.db")
		store, err := NewSQLiteStore(path)
		if err != nil {
			t.Fatalf("NewSQLiteStore() error = %v", err)
		}
		t.Cleanup(func() { store.Close() })

		const callers = 8
		ids := make([]int64, callers)
		errs := make([]error, callers)

		var wg sync.WaitGroup
		for i := 0; i < callers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				user, err := store.GetOrCreateUser("bob")
				if err != nil {
					errs[i] = err
					return
				}
				ids[i] = user.ID
			}(i)
		}
		wg.Wait()

		for i := 0; i < callers; i++ {
			if errs[i] != nil {
				t.Fatalf("caller %d error = %v", i, errs[i])
			}
			if ids[i] != ids[0] {
				t.Errorf("caller %d got ID %d, want %d", i, ids[i], ids[0])
			}
		}

		var count int
		if err := store.db.QueryRow("SELECT COUNT(*) FROM users WHERE username = 'bob'").Scan(&count); err != nil {
			t.Fatalf("counting users: %v", err)
		}
		if count != 1 {
			t.Errorf("bob rows = %d, want 1", count)
		}
	})
}

func TestSQLiteStore_FindUserByUsername(t *testing.T) {
	store := newTestStore(t)

	found, err := store.FindUserByUsername("nobody")
	if err != nil {
		t.Fatalf("FindUserByUsername() error = %v", err)
	}
	if found != nil {
		t.Errorf("FindUserByUsername() = %v, want nil", found)
	}

	created, err := store.GetOrCreateUser("carol")
	if err != nil {
		t.Fatalf("GetOrCreateUser() error = %v", err)
	}

	found, err = store.FindUserByUsername("carol")
	if err != nil {
		t.Fatalf("FindUserByUsername() error = %v", err)
	}
	if found == nil {
		t.Fatal("FindUserByUsername() returned nil, want user")
	}
	if found.ID != created.ID {
		t.Errorf("ID = %d, want %d", found.ID, created.ID)
	}
}

func TestSQLiteStore_AddSnap(t *testing.T) {
	t.Run("creates poster and snap atomically", func(t *testing.T) {
		store := newTestStore(t)

		created, err := store.AddSnap("alice", "x.jpg", "", "", "")
		if err != nil {
			t.Fatalf("AddSnap() error = %v", err)
		}

		if created.Username != "alice" {
			t.Errorf("Username = %q, want %q", created.Username, "alice")
		}
		if created.ImageURL != "/uploads/x.jpg" {
			t.Errorf("ImageURL = %q, want %q", created.ImageURL, "/uploads/x.jpg")
		}
		if created.Caption != "" {
			t.Errorf("Caption = %q, want empty", created.Caption)
		}

		user, err := store.FindUserByUsername("alice")
		if err != nil {
			t.Fatalf("FindUserByUsername() error = %v", err)
		}
		if user == nil {
			t.Fatal("poster user was not created")
		}
		if !created.PostedBy.Valid || created.PostedBy.Int64 != user.ID {
			t.Errorf("PostedBy = %+v, want valid reference to user %d", created.PostedBy, user.ID)
		}
	})

	t.Run("reuses an existing poster", func(t *testing.T) {
		store := newTestStore(t)

		user, err := store.GetOrCreateUser("dave")
		if err != nil {
			t.Fatalf("GetOrCreateUser() error = %v", err)
		}

		created, err := store.AddSnap("dave", "y.jpg", "hi", "#go", "office")
		if err != nil {
			t.Fatalf("AddSnap() error = %v", err)
		}

		if !created.PostedBy.Valid || created.PostedBy.Int64 != user.ID {
			t.Errorf("PostedBy = %+v, want valid reference to user %d", created.PostedBy, user.ID)
		}
		if created.Caption != "hi" || created.Hashtags != "#go" || created.Location != "office" {
			t.Errorf("metadata = (%q, %q, %q), want (hi, #go, office)", created.Caption, created.Hashtags, created.Location)
		}
	})
}

func TestSQLiteStore_ListSnaps(t *testing.T) {
	t.Run("returns empty list for empty store", func(t *testing.T) {
		store := newTestStore(t)

		snaps, err := store.ListSnaps()
		if err != nil {
			t.Fatalf("ListSnaps() error = %v", err)
		}
		if snaps == nil {
			t.Error("ListSnaps() = nil, want empty slice")
		}
		if len(snaps) != 0 {
			t.Errorf("len = %d, want 0", len(snaps))
		}
	})

	t.Run("orders by creation time descending", func(t *testing.T) {
		store := newTestStore(t)

		inserts := []struct {
			image     string
			createdAt string
		}{
			{"a.jpg", "2024-01-15 10:00:00"},
			{"b.jpg", "2024-01-15 11:00:00"},
			{"c.jpg", "2024-01-15 12:00:00"},
		}
		for _, in := range inserts {
			_, err := store.db.Exec(
				"INSERT INTO snaps (username, image_path, created_at) VALUES ('alice', ?, ?)",
				in.image, in.createdAt)
			if err != nil {
				t.Fatalf("inserting snap: %v", err)
			}
		}

		snaps, err := store.ListSnaps()
		if err != nil {
			t.Fatalf("ListSnaps() error = %v", err)
		}
		if len(snaps) != 3 {
			t.Fatalf("len = %d, want 3", len(snaps))
		}

		want := []string{"c.jpg", "b.jpg", "a.jpg"}
		for i, w := range want {
			if snaps[i].ImagePath != w {
				t.Errorf("snaps[%d].ImagePath = %q, want %q", i, snaps[i].ImagePath, w)
			}
		}
	})

	t.Run("same-second inserts still come back newest first", func(t *testing.T) {
		store := newTestStore(t)

		for _, img := range []string{"a.jpg", "b.jpg", "c.jpg"} {
			if _, err := store.AddSnap("alice", img, "", "", ""); err != nil {
				t.Fatalf("AddSnap(%s) error = %v", img, err)
			}
		}

		snaps, err := store.ListSnaps()
		if err != nil {
			t.Fatalf("ListSnaps() error = %v", err)
		}

		want := []string{"c.jpg", "b.jpg", "a.jpg"}
		for i, w := range want {
			if snaps[i].ImagePath != w {
				t.Errorf("snaps[%d].ImagePath = %q, want %q", i, snaps[i].ImagePath, w)
			}
		}
	})
}

func TestSQLiteStore_FindSnapByID(t *testing.T) {
	t.Run("returns nil when snap not found", func(t *testing.T) {
		store := newTestStore(t)

		found, err := store.FindSnapByID(42)
		if err != nil {
			t.Fatalf("FindSnapByID() error = %v", err)
		}
		if found != nil {
			t.Errorf("FindSnapByID() = %v, want nil", found)
		}
	})

	t.Run("finds existing snap with derived URL", func(t *testing.T) {
		store := newTestStore(t)

		created, err := store.AddSnap("alice", "x.jpg", "cap", "#tag", "loc")
		if err != nil {
			t.Fatalf("AddSnap() error = %v", err)
		}

		found, err := store.FindSnapByID(created.ID)
		if err != nil {
			t.Fatalf("FindSnapByID() error = %v", err)
		}
		if found == nil {
			t.Fatal("FindSnapByID() returned nil, want snap")
		}
		if found.ImageURL != "/uploads/x.jpg" {
			t.Errorf("ImageURL = %q, want %q", found.ImageURL, "/uploads/x.jpg")
		}
		if found.Caption != "cap" {
			t.Errorf("Caption = %q, want %q", found.Caption, "cap")
		}
	})

	t.Run("reads legacy rows with NULL metadata", func(t *testing.T) {
		store := newTestStore(t)

		res, err := store.db.Exec("INSERT INTO snaps (username, image_path) VALUES ('old', 'legacy.jpg')")
		if err != nil {
			t.Fatalf("inserting legacy snap: %v", err)
		}
		id, _ := res.LastInsertId()

		found, err := store.FindSnapByID(id)
		if err != nil {
			t.Fatalf("FindSnapByID() error = %v", err)
		}
		if found == nil {
			t.Fatal("FindSnapByID() returned nil, want snap")
		}
		if found.Caption != "" || found.Hashtags != "" || found.Location != "" {
			t.Errorf("NULL metadata read as (%q, %q, %q), want empty strings", found.Caption, found.Hashtags, found.Location)
		}
		if found.PostedBy.Valid {
			t.Errorf("PostedBy = %+v, want NULL", found.PostedBy)
		}
	})
}

func TestSQLiteStore_UpdateSnap(t *testing.T) {
	t.Run("overwrites only caption and hashtags", func(t *testing.T) {
		store := newTestStore(t)

		created, err := store.AddSnap("alice", "x.jpg", "old cap", "#old", "home")
		if err != nil {
			t.Fatalf("AddSnap() error = %v", err)
		}

		updated, err := store.UpdateSnap(created.ID, "new cap", "#new")
		if err != nil {
			t.Fatalf("UpdateSnap() error = %v", err)
		}
		if !updated {
			t.Fatal("UpdateSnap() = false, want true")
		}

		found, err := store.FindSnapByID(created.ID)
		if err != nil {
			t.Fatalf("FindSnapByID() error = %v", err)
		}
		if found.Caption != "new cap" {
			t.Errorf("Caption = %q, want %q", found.Caption, "new cap")
		}
		if found.Hashtags != "#new" {
			t.Errorf("Hashtags = %q, want %q", found.Hashtags, "#new")
		}
		if found.Location != "home" {
			t.Errorf("Location = %q, want %q (must not change)", found.Location, "home")
		}
		if found.ImagePath != "x.jpg" {
			t.Errorf("ImagePath = %q, want %q (must not change)", found.ImagePath, "x.jpg")
		}
	})

	t.Run("reports false for missing snap", func(t *testing.T) {
		store := newTestStore(t)

		updated, err := store.UpdateSnap(42, "cap", "#tag")
		if err != nil {
			t.Fatalf("UpdateSnap() error = %v", err)
		}
		if updated {
			t.Error("UpdateSnap() = true for missing snap, want false")
		}
	})
}

func TestSQLiteStore_DeleteSnap(t *testing.T) {
	t.Run("deletes row and cascades views", func(t *testing.T) {
		store := newTestStore(t)

		created, err := store.AddSnap("alice", "x.jpg", "", "", "")
		if err != nil {
			t.Fatalf("AddSnap() error = %v", err)
		}
		viewer, err := store.GetOrCreateUser("bob")
		if err != nil {
			t.Fatalf("GetOrCreateUser() error = %v", err)
		}
		if _, err := store.MarkSnapViewed(created.ID, viewer.ID); err != nil {
			t.Fatalf("MarkSnapViewed() error = %v", err)
		}

		deleted, err := store.DeleteSnap(created.ID)
		if err != nil {
			t.Fatalf("DeleteSnap() error = %v", err)
		}
		if !deleted {
			t.Fatal("DeleteSnap() = false, want true")
		}

		found, err := store.FindSnapByID(created.ID)
		if err != nil {
			t.Fatalf("FindSnapByID() error = %v", err)
		}
		if found != nil {
			t.Error("snap still present after delete")
		}

		var views int
		if err := store.db.QueryRow("SELECT COUNT(*) FROM views WHERE snap_id = ?", created.ID).Scan(&views); err != nil {
			t.Fatalf("counting views: %v", err)
		}
		if views != 0 {
			t.Errorf("view rows after delete = %d, want 0 (cascade)", views)
		}
	})

	t.Run("reports false for missing snap", func(t *testing.T) {
		store := newTestStore(t)

		deleted, err := store.DeleteSnap(42)
		if err != nil {
			t.Fatalf("DeleteSnap() error = %v", err)
		}
		if deleted {
			t.Error("DeleteSnap() = true for missing snap, want false")
		}
	})
}

func TestSQLiteStore_MarkSnapViewed(t *testing.T) {
	t.Run("absorbs duplicate views", func(t *testing.T) {
		store := newTestStore(t)

		created, err := store.AddSnap("alice", "x.jpg", "", "", "")
		if err != nil {
			t.Fatalf("AddSnap() error = %v", err)
		}
		viewer, err := store.GetOrCreateUser("bob")
		if err != nil {
			t.Fatalf("GetOrCreateUser() error = %v", err)
		}

		inserted, err := store.MarkSnapViewed(created.ID, viewer.ID)
		if err != nil {
			t.Fatalf("first MarkSnapViewed() error = %v", err)
		}
		if !inserted {
			t.Error("first MarkSnapViewed() = false, want true")
		}

		inserted, err = store.MarkSnapViewed(created.ID, viewer.ID)
		if err != nil {
			t.Fatalf("second MarkSnapViewed() error = %v", err)
		}
		if inserted {
			t.Error("second MarkSnapViewed() = true, want false (duplicate absorbed)")
		}

		var count int
		if err := store.db.QueryRow("SELECT COUNT(*) FROM views WHERE snap_id = ? AND viewed_by = ?", created.ID, viewer.ID).Scan(&count); err != nil {
			t.Fatalf("counting views: %v", err)
		}
		if count != 1 {
			t.Errorf("view rows = %d, want exactly 1", count)
		}
	})

	t.Run("rejects views of nonexistent snaps", func(t *testing.T) {
		store := newTestStore(t)

		viewer, err := store.GetOrCreateUser("bob")
		if err != nil {
			t.Fatalf("GetOrCreateUser() error = %v", err)
		}

		if _, err := store.MarkSnapViewed(42, viewer.ID); err == nil {
			t.Error("MarkSnapViewed() expected foreign key error for missing snap")
		}
	})
}

func TestSQLiteStore_HasViewed(t *testing.T) {
	store := newTestStore(t)

	created, err := store.AddSnap("alice", "x.jpg", "", "", "")
	if err != nil {
		t.Fatalf("AddSnap() error = %v", err)
	}
	viewer, err := store.GetOrCreateUser("bob")
	if err != nil {
		t.Fatalf("GetOrCreateUser() error = %v", err)
	}

	viewed, err := store.HasViewed(created.ID, viewer.ID)
	if err != nil {
		t.Fatalf("HasViewed() error = %v", err)
	}
	if viewed {
		t.Error("HasViewed() = true before marking, want false")
	}

	if _, err := store.MarkSnapViewed(created.ID, viewer.ID); err != nil {
		t.Fatalf("MarkSnapViewed() error = %v", err)
	}

	viewed, err = store.HasViewed(created.ID, viewer.ID)
	if err != nil {
		t.Fatalf("HasViewed() error = %v", err)
	}
	if !viewed {
		t.Error("HasViewed() = false after marking, want true")
	}
}
