package schedule

import "errors"

// Domain-specific errors for schedule operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrScheduleNotFound is returned when a schedule does not exist.
	ErrScheduleNotFound = errors.New("schedule: not found")

	// ErrInvalidClock is returned when a clock string is not "HH:MM".
	ErrInvalidClock = errors.New("schedule: invalid clock time")

	// ErrInvalidInterval is returned when a schedule's ON time is not
	// before its OFF time.
	ErrInvalidInterval = errors.New("schedule: on time must be before off time")

	// ErrScheduleConflict is returned when a schedule's interval
	// overlaps an existing schedule for the same device.
	ErrScheduleConflict = errors.New("schedule: interval overlaps an existing schedule")
)
