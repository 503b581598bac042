package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Schedule is a daily ON interval for a device.
//
// OnTime and OffTime are "HH:MM" clock strings compared at
// minute-of-day granularity. The interval [OnTime, OffTime) repeats
// every day; only schedules with Active set are reconciled.
type Schedule struct {
	ID        string
	DeviceID  string
	OnTime    string
	OffTime   string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// minutesPerDay bounds a minute-of-day value.
const minutesPerDay = 24 * 60

// ParseClock converts an "HH:MM" string to minutes since midnight.
func ParseClock(clock string) (int, error) {
	parts := strings.Split(clock, ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, clock)
	}

	hours, err := strconv.Atoi(parts[0])
	if err != nil || hours < 0 || hours > 23 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, clock)
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil || minutes < 0 || minutes > 59 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, clock)
	}

	return hours*60 + minutes, nil
}

// MinuteOfDay returns the minute-of-day for an instant.
func MinuteOfDay(at time.Time) int {
	return at.Hour()*60 + at.Minute()
}

// Interval returns the schedule's [on, off) boundaries in minutes
// since midnight.
func (s *Schedule) Interval() (on, off int, err error) {
	on, err = ParseClock(s.OnTime)
	if err != nil {
		return 0, 0, err
	}
	off, err = ParseClock(s.OffTime)
	if err != nil {
		return 0, 0, err
	}
	return on, off, nil
}

// ContainsMinute reports whether the minute-of-day falls within the
// schedule's interval, inclusive of both boundaries. The reconciler
// treats the off minute itself as still scheduled; the transition
// happens on the first tick past it.
func (s *Schedule) ContainsMinute(minute int) (bool, error) {
	on, off, err := s.Interval()
	if err != nil {
		return false, err
	}
	return minute >= on && minute <= off, nil
}

// GenerateID creates a new unique schedule identifier.
func GenerateID() string {
	return uuid.New().String()
}
