package energy

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EnergyLimit is a consumption budget over a time window [Start, End).
//
// Multiple limits may coexist; the active one at any instant is the
// latest-starting limit whose window contains that instant. A budget of
// zero is a degenerate "no headroom" limit: any non-zero consumption
// counts as fully over budget.
type EnergyLimit struct {
	ID        string
	Start     time.Time
	End       time.Time
	BudgetKWh float64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Contains reports whether the instant falls within the limit's window.
func (l *EnergyLimit) Contains(at time.Time) bool {
	return !at.Before(l.Start) && at.Before(l.End)
}

// ValidateLimit checks limit fields before persistence.
func ValidateLimit(limit *EnergyLimit) error {
	if limit == nil {
		return fmt.Errorf("%w: limit is nil", ErrInvalidLimit)
	}
	if limit.Start.IsZero() || limit.End.IsZero() {
		return fmt.Errorf("%w: window boundaries are required", ErrInvalidLimit)
	}
	if !limit.Start.Before(limit.End) {
		return ErrInvalidWindow
	}
	if limit.BudgetKWh < 0 {
		return ErrNegativeBudget
	}
	return nil
}

// GenerateID creates a new unique limit identifier.
func GenerateID() string {
	return uuid.New().String()
}

// BudgetPercent computes consumption as a percentage of budget.
//
// A zero budget means no headroom: any non-zero total is reported as
// 100 percent.
func BudgetPercent(totalKWh, budgetKWh float64) float64 {
	if budgetKWh > 0 {
		return 100 * totalKWh / budgetKWh
	}
	if totalKWh > 0 {
		return 100
	}
	return 0
}
