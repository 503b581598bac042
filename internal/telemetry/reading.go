package telemetry

import (
	"encoding/json"
	"fmt"
)

// Reading is a validated telemetry payload from a device.
//
// Energy is the device's cumulative counter in kWh, not a per-sample
// increment. Counter resets (firmware restart, power loss) show up as a
// decrease and are absorbed by the delta floor at ingestion.
type Reading struct {
	Volt   float64
	Ampere float64
	Watt   float64
	Energy float64
}

// rawReading mirrors the wire format with optional fields so that
// missing keys can be distinguished from zero values.
type rawReading struct {
	Volt    *float64 `json:"volt"`
	Ampere  *float64 `json:"ampere"`
	Watt    *float64 `json:"watt"`
	Energy  *float64 `json:"energy"`
	Command *string  `json:"command"`
}

// ParseReading parses a raw telemetry payload.
//
// A payload carrying a "command" field is a device echoing a control
// message; ErrCommandEcho is returned and no Reading is produced. A
// payload missing any of the four numeric fields returns
// ErrMalformedPayload.
func ParseReading(payload []byte) (*Reading, error) {
	var raw rawReading
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}

	if raw.Command != nil {
		return nil, ErrCommandEcho
	}

	if raw.Volt == nil || raw.Ampere == nil || raw.Watt == nil || raw.Energy == nil {
		return nil, fmt.Errorf("%w: missing required fields", ErrMalformedPayload)
	}

	return &Reading{
		Volt:   *raw.Volt,
		Ampere: *raw.Ampere,
		Watt:   *raw.Watt,
		Energy: *raw.Energy,
	}, nil
}
