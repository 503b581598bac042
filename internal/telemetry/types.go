package telemetry

import (
	"time"

	"github.com/google/uuid"
)

// UsageSample is one recorded telemetry reading for a device.
//
// Samples are append-only; they are created exclusively by the ingestion
// Handler and never updated. Delta is derived at ingestion time from the
// previous sample's cumulative energy counter and is always >= 0.
type UsageSample struct {
	ID         string    `json:"id"`
	DeviceID   string    `json:"device_id"`
	Volt       float64   `json:"volt"`
	Ampere     float64   `json:"ampere"`
	Watt       float64   `json:"watt"`
	Energy     float64   `json:"energy"`
	Delta      float64   `json:"delta"`
	RecordedAt time.Time `json:"recorded_at"`
}

// GenerateID creates a new unique sample identifier.
func GenerateID() string {
	return uuid.New().String()
}
