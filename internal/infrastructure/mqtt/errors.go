package mqtt

import "errors"

// Sentinel errors for broker operations, checked with errors.Is().
var (
	// ErrNotConnected is returned when publishing or subscribing while
	// the client has no broker connection.
	ErrNotConnected = errors.New("mqtt: client not connected")

	// ErrConnectionFailed is returned when the initial connect fails.
	ErrConnectionFailed = errors.New("mqtt: connection failed")

	// ErrInvalidTopic is returned for an empty topic.
	ErrInvalidTopic = errors.New("mqtt: topic cannot be empty")

	// ErrInvalidQoS is returned for a QoS level outside 0-2.
	ErrInvalidQoS = errors.New("mqtt: invalid QoS level (must be 0, 1, or 2)")

	// ErrPublishFailed wraps broker-side publish failures.
	ErrPublishFailed = errors.New("mqtt: publish failed")

	// ErrSubscribeFailed wraps broker-side subscribe failures.
	ErrSubscribeFailed = errors.New("mqtt: subscribe failed")

	// ErrUnsubscribeFailed wraps broker-side unsubscribe failures.
	ErrUnsubscribeFailed = errors.New("mqtt: unsubscribe failed")

	// ErrTimeout is returned when a broker operation exceeds its deadline.
	ErrTimeout = errors.New("mqtt: operation timed out")
)
