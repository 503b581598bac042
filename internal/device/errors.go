package device

import "errors"

// Domain errors for the device package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, device.ErrDeviceNotFound) {
//	    // handle not found case
//	}
var (
	// ErrDeviceNotFound is returned when a device ID or topic does not exist.
	ErrDeviceNotFound = errors.New("device: not found")

	// ErrDeviceExists is returned when creating a device whose ID or topic
	// is already registered.
	ErrDeviceExists = errors.New("device: already exists")

	// ErrInvalidDevice is returned when device validation fails.
	ErrInvalidDevice = errors.New("device: invalid")

	// ErrInvalidName is returned when a device name is empty or too long.
	ErrInvalidName = errors.New("device: invalid name")

	// ErrInvalidTopic is returned when a telemetry or control topic is
	// empty or contains MQTT wildcards.
	ErrInvalidTopic = errors.New("device: invalid topic")

	// ErrInvalidTier is returned when a tier value is not recognised.
	ErrInvalidTier = errors.New("device: invalid tier")

	// ErrInvalidStatus is returned when a status value is not ON or OFF.
	ErrInvalidStatus = errors.New("device: invalid status")

	// ErrInvalidRatedWatts is returned when rated watts is negative.
	ErrInvalidRatedWatts = errors.New("device: invalid rated watts")
)
