package schedule

import (
	"context"
	"fmt"
)

// Validator enforces interval validity and overlap rules before a
// schedule is persisted.
type Validator struct {
	schedules Repository
}

// NewValidator creates a schedule validator.
func NewValidator(schedules Repository) *Validator {
	return &Validator{schedules: schedules}
}

// Validate checks a candidate schedule.
//
// For edits, candidate.ID excludes the schedule's own stored record
// from the overlap check; for creates, ID may be empty.
//
// Returns ErrInvalidClock or ErrInvalidInterval for a malformed
// interval, ErrScheduleConflict if the interval overlaps an existing
// schedule for the same device.
func (v *Validator) Validate(ctx context.Context, candidate *Schedule) error {
	on, off, err := candidate.Interval()
	if err != nil {
		return err
	}
	if on >= off {
		return ErrInvalidInterval
	}

	existing, err := v.schedules.ListByDeviceExcluding(ctx, candidate.DeviceID, candidate.ID)
	if err != nil {
		return fmt.Errorf("loading schedules for conflict check: %w", err)
	}

	for i := range existing {
		exOn, exOff, err := existing[i].Interval()
		if err != nil {
			return fmt.Errorf("schedule %s has malformed interval: %w", existing[i].ID, err)
		}

		// Half-open overlap test: adjacent intervals do not conflict.
		// Covers a boundary falling inside the other interval and full
		// containment in either direction.
		if on < exOff && exOn < off {
			return fmt.Errorf("%w: [%s, %s) overlaps schedule %s [%s, %s)",
				ErrScheduleConflict,
				candidate.OnTime, candidate.OffTime,
				existing[i].ID, existing[i].OnTime, existing[i].OffTime)
		}
	}

	return nil
}
