// Package tsdb records location history to InfluxDB.
//
// It wraps the official influxdb-client-go v2 library. Recording is
// optional: when disabled in config the rest of the service runs with
// SQLite as the only location store.
package tsdb

import (
	"context"
	"fmt"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/IcarusCoding/tracker-backend/internal/infrastructure/config"
	"github.com/IcarusCoding/tracker-backend/internal/tracker"
)

// Default timeouts and batching parameters.
const (
	defaultConnectTimeout = 10 * time.Second
	defaultPingTimeout    = 5 * time.Second

	// defaultBatchSize is the number of points buffered before a flush.
	defaultBatchSize = 100

	// defaultFlushIntervalMs flushes partial batches once a second so the
	// history lags live fixes by at most that much.
	defaultFlushIntervalMs = 1000
)

// measurementLocation is the measurement name for recorded fixes.
const measurementLocation = "location"

// Logger is the subset of the application logger the recorder needs.
type Logger interface {
	Warn(msg string, args ...any)
}

// Recorder writes one point per location fix to InfluxDB, tagged by
// device, using the non-blocking batched write API.
//
// All methods are safe for concurrent use. Write failures are
// asynchronous and surface through the logger, never to callers.
type Recorder struct {
	client   influxdb2.Client
	writeAPI api.WriteAPI
	cfg      config.InfluxDBConfig

	connected bool
	mu        sync.RWMutex

	logger   Logger
	loggerMu sync.RWMutex
}

// Connect establishes a connection to the InfluxDB server and verifies
// it with a ping. Returns ErrDisabled when recording is switched off in
// the configuration.
func Connect(cfg config.InfluxDBConfig) (*Recorder, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}

	client := influxdb2.NewClientWithOptions(
		cfg.URL,
		cfg.Token,
		influxdb2.DefaultOptions().
			SetBatchSize(defaultBatchSize).
			SetFlushInterval(defaultFlushIntervalMs),
	)

	ctx, cancel := context.WithTimeout(context.Background(), defaultConnectTimeout)
	defer cancel()

	healthy, err := client.Ping(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: ping failed: %w", ErrConnectionFailed, err)
	}
	if !healthy {
		client.Close()
		return nil, fmt.Errorf("%w: server not healthy", ErrConnectionFailed)
	}

	writeAPI := client.WriteAPI(cfg.Org, cfg.Bucket)

	r := &Recorder{
		client:    client,
		writeAPI:  writeAPI,
		cfg:       cfg,
		connected: true,
	}

	go r.drainWriteErrors(writeAPI.Errors())

	return r, nil
}

// RecordFix writes a single fix as a point tagged by device ID and
// name. Non-blocking; the point is batched and sent asynchronously.
func (r *Recorder) RecordFix(device tracker.Device, fix tracker.Location) {
	if !r.IsConnected() {
		return
	}

	point := write.NewPoint(
		measurementLocation,
		map[string]string{
			"device_id":   device.ID,
			"device_name": device.Name,
		},
		map[string]interface{}{
			"latitude":  fix.Latitude,
			"longitude": fix.Longitude,
		},
		fix.RecordedAt,
	)

	r.writeAPI.WritePoint(point)
}

// Flush blocks until all buffered points are written. Useful before
// shutdown and in tests.
func (r *Recorder) Flush() {
	if r.writeAPI == nil || !r.IsConnected() {
		return
	}
	r.writeAPI.Flush()
}

// Close flushes pending points and shuts down the client.
func (r *Recorder) Close() error {
	if r.client == nil {
		return nil
	}

	r.mu.Lock()
	r.connected = false
	r.mu.Unlock()

	r.writeAPI.Flush()
	r.client.Close()

	return nil
}

// HealthCheck verifies the InfluxDB connection with an active ping.
func (r *Recorder) HealthCheck(ctx context.Context) error {
	if !r.IsConnected() {
		return ErrNotConnected
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultPingTimeout)
	defer cancel()

	healthy, err := r.client.Ping(pingCtx)
	if err != nil {
		return fmt.Errorf("influxdb health check: %w", err)
	}
	if !healthy {
		return fmt.Errorf("influxdb health check: server not healthy")
	}

	return nil
}

// IsConnected returns the last known connection state. For reliability
// use HealthCheck, which performs an active ping.
func (r *Recorder) IsConnected() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.connected
}

// SetLogger sets a logger for asynchronous write failures. If not set,
// failed batches are dropped silently.
func (r *Recorder) SetLogger(logger Logger) {
	r.loggerMu.Lock()
	r.logger = logger
	r.loggerMu.Unlock()
}

func (r *Recorder) getLogger() Logger {
	r.loggerMu.RLock()
	defer r.loggerMu.RUnlock()
	return r.logger
}

// drainWriteErrors surfaces async write failures through the logger.
// The channel closes when the client does.
func (r *Recorder) drainWriteErrors(errorsCh <-chan error) {
	for err := range errorsCh {
		if logger := r.getLogger(); logger != nil {
			logger.Warn("influxdb write failed", "error", err)
		}
	}
}
