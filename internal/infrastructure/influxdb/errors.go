package influxdb

import "errors"

// Sentinel errors for the telemetry mirror, checked with errors.Is().
var (
	// ErrDisabled indicates the mirror is switched off in configuration.
	// Connect returns this so callers can skip mirror wiring cleanly.
	ErrDisabled = errors.New("influxdb: disabled in configuration")

	// ErrNotConnected indicates no live InfluxDB connection.
	ErrNotConnected = errors.New("influxdb: not connected")

	// ErrConnectionFailed indicates the initial connect or ping failed.
	ErrConnectionFailed = errors.New("influxdb: connection failed")

	// ErrWriteFailed indicates a write failed. Most write errors surface
	// asynchronously through the SetOnError callback instead.
	ErrWriteFailed = errors.New("influxdb: write failed")
)
