// Package schedule implements daily device schedules, overlap
// validation, and the periodic reconciliation loop.
//
// A Schedule is an [onTime, offTime) interval in "HH:MM" clock strings,
// repeating daily and compared at minute-of-day granularity. The
// Validator rejects intervals where on >= off and intervals that
// overlap an existing schedule for the same device; adjacent intervals
// are allowed.
//
// The Reconciler ticks on a fixed period and drives every
// schedule-enabled device toward its scheduled state through the
// command publisher. Devices blocked by load shedding are not switched
// ON by a schedule; scheduled OFF transitions are never vetoed.
package schedule
