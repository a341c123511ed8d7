// Package ingest consumes device location fixes from MQTT.
//
// Devices publish JSON fixes to a shared topic and authenticate each
// message with their API key. Valid fixes are persisted, pushed to the
// live WebSocket feed, and optionally recorded to the history store.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/IcarusCoding/tracker-backend/internal/infrastructure/logging"
	"github.com/IcarusCoding/tracker-backend/internal/infrastructure/mqtt"
	"github.com/IcarusCoding/tracker-backend/internal/store"
	"github.com/IcarusCoding/tracker-backend/internal/tracker"
)

const (
	// defaultTopic receives fixes when no topic is configured.
	defaultTopic = "tracker/location"

	// handleTimeout bounds the database work for a single message.
	handleTimeout = 5 * time.Second
)

// Broadcaster pushes an accepted fix to connected live-feed clients.
type Broadcaster interface {
	BroadcastLocation(device tracker.Device, fix tracker.Location)
}

// Recorder persists an accepted fix to the history store.
type Recorder interface {
	RecordFix(device tracker.Device, fix tracker.Location)
}

// Subscriber is the part of the MQTT client the service needs.
type Subscriber interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
}

// Service authenticates and records fixes published over MQTT.
type Service struct {
	tracker     *tracker.Store
	broadcaster Broadcaster
	recorder    Recorder
	logger      *logging.Logger
}

// New creates the ingest service. The recorder may be nil when history
// recording is disabled.
func New(ts *tracker.Store, broadcaster Broadcaster, recorder Recorder, logger *logging.Logger) *Service {
	return &Service{
		tracker:     ts,
		broadcaster: broadcaster,
		recorder:    recorder,
		logger:      logger.With("component", "ingest"),
	}
}

// Start subscribes to the fix topic. The subscription survives broker
// reconnects; message handling errors are logged, not fatal.
func (s *Service) Start(sub Subscriber, topic string, qos byte) error {
	if topic == "" {
		topic = defaultTopic
	}
	if err := sub.Subscribe(topic, qos, s.handleMessage); err != nil {
		return fmt.Errorf("subscribing to %q: %w", topic, err)
	}
	s.logger.Info("location ingest started", "topic", topic, "qos", qos)
	return nil
}

// fixPayload is the JSON body devices publish. The key field carries
// the device's API key secret; recorded_at defaults to receipt time.
type fixPayload struct {
	Key        string     `json:"key"`
	Latitude   float64    `json:"latitude"`
	Longitude  float64    `json:"longitude"`
	RecordedAt *time.Time `json:"recorded_at"`
}

// parsePayload decodes and validates a published fix.
func parsePayload(data []byte) (fixPayload, error) {
	var p fixPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return p, errors.New("invalid JSON payload")
	}
	if p.Key == "" {
		return p, errors.New("missing api key")
	}
	if err := tracker.ValidateCoordinates(p.Latitude, p.Longitude); err != nil {
		return p, err
	}
	return p, nil
}

// handleMessage processes one published fix. The returned error is
// logged by the MQTT client wrapper; the key itself is never logged.
func (s *Service) handleMessage(_ string, payload []byte) error {
	p, err := parsePayload(payload)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), handleTimeout)
	defer cancel()

	device, err := s.tracker.DeviceBySecret(ctx, p.Key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return errors.New("unknown api key")
		}
		return fmt.Errorf("resolving device: %w", err)
	}

	recordedAt := time.Time{}
	if p.RecordedAt != nil {
		recordedAt = *p.RecordedAt
	}

	fix, err := s.tracker.RecordLocation(ctx, device.ID, recordedAt, p.Latitude, p.Longitude)
	if err != nil {
		return fmt.Errorf("recording fix: %w", err)
	}

	s.broadcaster.BroadcastLocation(device, fix)
	if s.recorder != nil {
		s.recorder.RecordFix(device, fix)
	}

	s.logger.Debug("fix ingested", "device_id", device.ID, "device_name", device.Name)
	return nil
}
