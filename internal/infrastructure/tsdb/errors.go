package tsdb

import "errors"

// Sentinel errors for recorder operations. Check with errors.Is().
var (
	// ErrNotConnected indicates the recorder is not connected to InfluxDB.
	ErrNotConnected = errors.New("tsdb: not connected")

	// ErrConnectionFailed indicates the initial connection attempt failed.
	ErrConnectionFailed = errors.New("tsdb: connection failed")

	// ErrDisabled indicates location recording is disabled in config.
	ErrDisabled = errors.New("tsdb: disabled in configuration")
)
