package energy

import "errors"

// Domain-specific errors for energy accounting.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrLimitNotFound is returned when no limit matches a query, or no
	// limit window contains the requested instant.
	ErrLimitNotFound = errors.New("energy: limit not found")

	// ErrInvalidLimit is returned when limit validation fails.
	ErrInvalidLimit = errors.New("energy: invalid limit")

	// ErrInvalidWindow is returned when a limit's window start is not
	// before its end.
	ErrInvalidWindow = errors.New("energy: window start must be before end")

	// ErrNegativeBudget is returned when a limit's budget is negative.
	ErrNegativeBudget = errors.New("energy: budget cannot be negative")
)
