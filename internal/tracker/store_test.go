package tracker

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/IcarusCoding/tracker-backend/internal/iam"
	"github.com/IcarusCoding/tracker-backend/internal/infrastructure/database"
	"github.com/IcarusCoding/tracker-backend/internal/store"

	_ "github.com/IcarusCoding/tracker-backend/migrations"
)

// newTestStore opens a migrated temp-file database with one user row
// for device ownership FKs.
func newTestStore(t *testing.T) (*Store, iam.User) {
	t.Helper()

	db, err := database.Open(database.Config{
		Path:        filepath.Join(t.TempDir(), "tracker_test.db"),
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

	owner, err := iam.NewStore(db.DB).Users.Create(context.Background(), store.Fields{
		"name":          "owner",
		"password_hash": "x",
	})
	if err != nil {
		t.Fatalf("creating owner: %v", err)
	}

	return NewStore(db.DB), owner
}

func createTestDevice(t *testing.T, st *Store, name, userID string) Device {
	t.Helper()
	device, err := st.Devices.Create(context.Background(), store.Fields{
		"name":    name,
		"user_id": userID,
	})
	if err != nil {
		t.Fatalf("creating device: %v", err)
	}
	return device
}

func TestDeviceCRUD(t *testing.T) {
	st, owner := newTestStore(t)
	ctx := context.Background()

	device, err := st.Devices.Create(ctx, store.Fields{
		"name":        "van-1",
		"description": "delivery van",
		"user_id":     owner.ID,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if device.UserID != owner.ID {
		t.Errorf("user_id = %q, want %q", device.UserID, owner.ID)
	}
	if device.CreatedAt.IsZero() {
		t.Error("expected created_at to be stamped")
	}

	byName, err := st.Devices.First(ctx, store.Eq("name", "van-1"))
	if err != nil {
		t.Fatalf("First: %v", err)
	}
	if byName.ID != device.ID {
		t.Errorf("lookup by name returned %q, want %q", byName.ID, device.ID)
	}

	if _, err := st.Devices.Create(ctx, store.Fields{
		"name":    "van-1",
		"user_id": owner.ID,
	}); !errors.Is(err, store.ErrConflict) {
		t.Errorf("duplicate name error = %v, want ErrConflict", err)
	}
}

func TestMintKeyReplacesPrevious(t *testing.T) {
	st, owner := newTestStore(t)
	ctx := context.Background()
	device := createTestDevice(t, st, "van-1", owner.ID)

	first, err := st.MintKey(ctx, device.ID)
	if err != nil {
		t.Fatalf("first MintKey: %v", err)
	}
	if len(first.Secret) != apiKeyLength {
		t.Errorf("secret length = %d, want %d", len(first.Secret), apiKeyLength)
	}

	second, err := st.MintKey(ctx, device.ID)
	if err != nil {
		t.Fatalf("second MintKey: %v", err)
	}
	if second.Secret == first.Secret {
		t.Error("regenerated key has the same secret")
	}

	// Old secret no longer resolves, new one does.
	if _, err := st.DeviceBySecret(ctx, first.Secret); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("old secret lookup = %v, want ErrNotFound", err)
	}
	resolved, err := st.DeviceBySecret(ctx, second.Secret)
	if err != nil {
		t.Fatalf("DeviceBySecret: %v", err)
	}
	if resolved.ID != device.ID {
		t.Errorf("resolved device %q, want %q", resolved.ID, device.ID)
	}

	count, err := st.Keys.Count(ctx)
	if err != nil {
		t.Fatalf("counting keys: %v", err)
	}
	if count != 1 {
		t.Errorf("keys = %d, want 1", count)
	}
}

func TestMintKeyUnknownDevice(t *testing.T) {
	st, _ := newTestStore(t)

	if _, err := st.MintKey(context.Background(), "no-such-device"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("MintKey = %v, want ErrNotFound", err)
	}
}

func TestRecordAndListLocations(t *testing.T) {
	st, owner := newTestStore(t)
	ctx := context.Background()
	device := createTestDevice(t, st, "van-1", owner.ID)

	base := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		if _, err := st.RecordLocation(ctx, device.ID,
			base.Add(time.Duration(i)*time.Minute), 51.5+float64(i), -0.1); err != nil {
			t.Fatalf("RecordLocation: %v", err)
		}
	}

	fixes, err := st.DeviceLocations(ctx, device.ID, 0, 10)
	if err != nil {
		t.Fatalf("DeviceLocations: %v", err)
	}
	if len(fixes) != 3 {
		t.Fatalf("fixes = %d, want 3", len(fixes))
	}
	// Newest first.
	if !fixes[0].RecordedAt.After(fixes[2].RecordedAt) {
		t.Errorf("expected newest-first ordering, got %v then %v",
			fixes[0].RecordedAt, fixes[2].RecordedAt)
	}
	if fixes[0].Latitude != 53.5 {
		t.Errorf("latitude = %v, want 53.5", fixes[0].Latitude)
	}

	page, err := st.DeviceLocations(ctx, device.ID, 1, 1)
	if err != nil {
		t.Fatalf("DeviceLocations page: %v", err)
	}
	if len(page) != 1 || page[0].Latitude != 52.5 {
		t.Errorf("paged fix = %+v, want the middle record", page)
	}
}

func TestRecordLocationStampsZeroTime(t *testing.T) {
	st, owner := newTestStore(t)
	ctx := context.Background()
	device := createTestDevice(t, st, "van-1", owner.ID)

	fix, err := st.RecordLocation(ctx, device.ID, time.Time{}, 51.5, -0.1)
	if err != nil {
		t.Fatalf("RecordLocation: %v", err)
	}
	if fix.RecordedAt.IsZero() {
		t.Error("expected recorded_at to be stamped")
	}
}

// Deleting a device removes its key and history via FK cascades.
func TestDeviceDeleteCascades(t *testing.T) {
	st, owner := newTestStore(t)
	ctx := context.Background()
	device := createTestDevice(t, st, "van-1", owner.ID)

	if _, err := st.MintKey(ctx, device.ID); err != nil {
		t.Fatalf("MintKey: %v", err)
	}
	if _, err := st.RecordLocation(ctx, device.ID, time.Time{}, 51.5, -0.1); err != nil {
		t.Fatalf("RecordLocation: %v", err)
	}

	if err := st.Devices.Delete(ctx, device.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	keys, err := st.Keys.Count(ctx)
	if err != nil {
		t.Fatalf("counting keys: %v", err)
	}
	fixes, err := st.Locations.Count(ctx)
	if err != nil {
		t.Fatalf("counting locations: %v", err)
	}
	if keys != 0 || fixes != 0 {
		t.Errorf("after device delete: keys=%d locations=%d, want 0/0", keys, fixes)
	}
}
