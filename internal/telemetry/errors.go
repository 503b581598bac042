package telemetry

import "errors"

// Domain-specific errors for telemetry ingestion.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrSampleNotFound is returned when no sample exists for a query.
	ErrSampleNotFound = errors.New("telemetry: sample not found")

	// ErrMalformedPayload is returned when a payload cannot be parsed or
	// is missing required numeric fields.
	ErrMalformedPayload = errors.New("telemetry: malformed payload")

	// ErrCommandEcho is returned when a device echoes a command on its
	// telemetry topic. Echoes are informational and never produce a sample.
	ErrCommandEcho = errors.New("telemetry: command echo")
)
