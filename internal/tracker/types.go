package tracker

import (
	"errors"
	"time"
)

// Device is a tracked GPS unit owned by a single user.
type Device struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	UserID      string    `json:"user_id"`
	CreatedAt   time.Time `json:"created"`
}

// APIKey is a device's ingest credential. The secret is returned to the
// caller exactly once per mint; there is no retrieval endpoint.
type APIKey struct {
	ID        string    `json:"id"`
	DeviceID  string    `json:"device_id"`
	Secret    string    `json:"key"`
	CreatedAt time.Time `json:"created"`
}

// Location is a single recorded position fix.
type Location struct {
	ID         string    `json:"id"`
	DeviceID   string    `json:"device_id"`
	RecordedAt time.Time `json:"recorded_at"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
}

// ValidateCoordinates bounds-checks a latitude/longitude pair.
func ValidateCoordinates(lat, lon float64) error {
	if lat < -90 || lat > 90 {
		return errors.New("latitude must be between -90 and 90")
	}
	if lon < -180 || lon > 180 {
		return errors.New("longitude must be between -180 and 180")
	}
	return nil
}
