package tsdb

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/IcarusCoding/tracker-backend/internal/infrastructure/config"
	"github.com/IcarusCoding/tracker-backend/internal/tracker"
)

func TestConnectDisabled(t *testing.T) {
	_, err := Connect(config.InfluxDBConfig{Enabled: false})
	if !errors.Is(err, ErrDisabled) {
		t.Errorf("Connect() with recording disabled = %v, want ErrDisabled", err)
	}
}

func TestRecordFixDisconnected(t *testing.T) {
	r := &Recorder{}

	// A disconnected recorder drops the fix without touching the write API.
	r.RecordFix(
		tracker.Device{ID: "dev-1", Name: "van-1"},
		tracker.Location{Latitude: 51.5, Longitude: -0.12, RecordedAt: time.Now()},
	)

	if r.IsConnected() {
		t.Error("IsConnected() = true on zero recorder, want false")
	}
}

func TestFlushDisconnected(t *testing.T) {
	r := &Recorder{}
	r.Flush()
}

func TestCloseZeroRecorder(t *testing.T) {
	r := &Recorder{}
	if err := r.Close(); err != nil {
		t.Errorf("Close() on zero recorder = %v, want nil", err)
	}
}

func TestHealthCheckDisconnected(t *testing.T) {
	r := &Recorder{}
	if err := r.HealthCheck(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() = %v, want ErrNotConnected", err)
	}
}

type captureLogger struct {
	warns []string
}

func (l *captureLogger) Warn(msg string, _ ...any) { l.warns = append(l.warns, msg) }

func TestDrainWriteErrorsLogs(t *testing.T) {
	r := &Recorder{}
	log := &captureLogger{}
	r.SetLogger(log)

	errorsCh := make(chan error, 2)
	errorsCh <- errors.New("batch rejected")
	errorsCh <- errors.New("server unavailable")
	close(errorsCh)

	r.drainWriteErrors(errorsCh)

	if len(log.warns) != 2 {
		t.Errorf("logged %d warnings, want 2", len(log.warns))
	}
}

func TestDrainWriteErrorsWithoutLogger(t *testing.T) {
	r := &Recorder{}

	errorsCh := make(chan error, 1)
	errorsCh <- errors.New("dropped silently")
	close(errorsCh)

	// No logger set: errors are discarded without panicking.
	r.drainWriteErrors(errorsCh)
}
