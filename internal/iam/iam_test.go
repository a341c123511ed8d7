package iam

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/IcarusCoding/tracker-backend/internal/infrastructure/database"
	"github.com/IcarusCoding/tracker-backend/internal/infrastructure/logging"
	"github.com/IcarusCoding/tracker-backend/internal/store"

	_ "github.com/IcarusCoding/tracker-backend/migrations"
)

var testSignKey = []byte("test-sign-key-not-for-production")

// newTestStore opens a migrated temp-file database and returns an
// identity store over it.
func newTestStore(t *testing.T) *Store {
	t.Helper()

	db, err := database.Open(database.Config{
		Path:        filepath.Join(t.TempDir(), "iam_test.db"),
		WALMode:     true,
		BusyTimeout: 5000,
	})
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("migrating: %v", err)
	}

	return NewStore(db.DB)
}

// newTestService wraps a fresh store in a service with short token TTLs.
func newTestService(t *testing.T) (*Service, *Store) {
	t.Helper()
	st := newTestStore(t)
	svc := NewService(st, testSignKey, 5*time.Minute, 10*time.Minute)
	return svc, st
}

// createTestUser inserts a user with a hashed password and returns it
// with roles attached.
func createTestUser(t *testing.T, st *Store, name, password string) User {
	t.Helper()

	hash, err := HashPassword(password)
	if err != nil {
		t.Fatalf("hashing password: %v", err)
	}
	user, err := st.Users.Create(context.Background(), store.Fields{
		"name":          name,
		"password_hash": hash,
	})
	if err != nil {
		t.Fatalf("creating user: %v", err)
	}
	return user
}

func testLogger() *logging.Logger {
	return logging.Default()
}
