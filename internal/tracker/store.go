package tracker

import (
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"
	"time"

	"github.com/IcarusCoding/tracker-backend/internal/store"
)

// apiKeyLength is the secret length in characters.
const apiKeyLength = 32

// apiKeyAlphabet is the character set for generated secrets.
const apiKeyAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// DeviceMapper maps Device onto the devices table.
var DeviceMapper = store.Mapper[Device]{
	Table:   "devices",
	Columns: []string{"id", "name", "description", "user_id", "created_at"},
	Scan: func(s store.Scanner) (Device, error) {
		var d Device
		var created string
		if err := s.Scan(&d.ID, &d.Name, &d.Description, &d.UserID, &created); err != nil {
			return d, err
		}
		d.CreatedAt, _ = time.Parse(time.RFC3339, created) //nolint:errcheck // format is controlled
		return d, nil
	},
}

// APIKeyMapper maps APIKey onto the api_keys table.
var APIKeyMapper = store.Mapper[APIKey]{
	Table:   "api_keys",
	Columns: []string{"id", "device_id", "secret", "created_at"},
	Scan: func(s store.Scanner) (APIKey, error) {
		var k APIKey
		var created string
		if err := s.Scan(&k.ID, &k.DeviceID, &k.Secret, &created); err != nil {
			return k, err
		}
		k.CreatedAt, _ = time.Parse(time.RFC3339, created) //nolint:errcheck // format is controlled
		return k, nil
	},
}

// LocationMapper maps Location onto the locations table.
var LocationMapper = store.Mapper[Location]{
	Table:   "locations",
	Columns: []string{"id", "device_id", "recorded_at", "latitude", "longitude"},
	Scan: func(s store.Scanner) (Location, error) {
		var l Location
		var recorded string
		if err := s.Scan(&l.ID, &l.DeviceID, &recorded, &l.Latitude, &l.Longitude); err != nil {
			return l, err
		}
		l.RecordedAt, _ = time.Parse(time.RFC3339, recorded) //nolint:errcheck // format is controlled
		return l, nil
	},
}

// Store bundles the device, API-key, and location repositories.
type Store struct {
	db        *sql.DB
	Devices   *store.Repository[Device]
	Keys      *store.Repository[APIKey]
	Locations *store.Repository[Location]
}

// NewStore creates a tracker store over the given database.
func NewStore(db *sql.DB) *Store {
	return &Store{
		db:        db,
		Devices:   store.NewRepository(db, DeviceMapper),
		Keys:      store.NewRepository(db, APIKeyMapper),
		Locations: store.NewRepository(db, LocationMapper),
	}
}

// MintKey replaces the device's API key with a freshly generated one and
// returns it. Any previous key stops working immediately.
func (s *Store) MintKey(ctx context.Context, deviceID string) (APIKey, error) {
	if _, err := s.Devices.Get(ctx, deviceID); err != nil {
		return APIKey{}, err
	}

	secret, err := generateSecret()
	if err != nil {
		return APIKey{}, err
	}

	if err := s.Keys.DeleteWhere(ctx, store.Eq("device_id", deviceID)); err != nil {
		return APIKey{}, err
	}

	return s.Keys.Create(ctx, store.Fields{
		"device_id": deviceID,
		"secret":    secret,
	})
}

// DeviceBySecret resolves an API-key secret to its device. Unknown
// secrets return store.ErrNotFound.
func (s *Store) DeviceBySecret(ctx context.Context, secret string) (Device, error) {
	key, err := s.Keys.First(ctx, store.Eq("secret", secret))
	if err != nil {
		return Device{}, err
	}
	return s.Devices.Get(ctx, key.DeviceID)
}

// RecordLocation appends a position fix for a device. A zero recordedAt
// is stamped with the current time.
func (s *Store) RecordLocation(ctx context.Context, deviceID string, recordedAt time.Time, lat, lon float64) (Location, error) {
	if recordedAt.IsZero() {
		recordedAt = time.Now().UTC()
	}
	return s.Locations.Create(ctx, store.Fields{
		"device_id":   deviceID,
		"recorded_at": recordedAt,
		"latitude":    lat,
		"longitude":   lon,
	})
}

// DeviceLocations returns a device's fixes newest first, with skip/limit
// pagination.
func (s *Store) DeviceLocations(ctx context.Context, deviceID string, skip, limit int) ([]Location, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, device_id, recorded_at, latitude, longitude FROM locations
		WHERE device_id = ?
		ORDER BY recorded_at DESC
		LIMIT ? OFFSET ?`, deviceID, limit, skip)
	if err != nil {
		return nil, fmt.Errorf("querying locations: %w", err)
	}
	defer rows.Close()

	fixes := []Location{}
	for rows.Next() {
		fix, err := LocationMapper.Scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning location: %w", err)
		}
		fixes = append(fixes, fix)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating locations: %w", err)
	}
	return fixes, nil
}

// generateSecret produces an alphanumeric API-key secret from the
// crypto random source.
func generateSecret() (string, error) {
	buf := make([]byte, apiKeyLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating api key: %w", err)
	}
	for i, b := range buf {
		buf[i] = apiKeyAlphabet[int(b)%len(apiKeyAlphabet)]
	}
	return string(buf), nil
}
