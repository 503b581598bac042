package energy

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// LimitRepository defines the interface for energy limit persistence.
type LimitRepository interface {
	// GetByID retrieves a limit by its unique identifier.
	// Returns ErrLimitNotFound if the limit does not exist.
	GetByID(ctx context.Context, id string) (*EnergyLimit, error)

	// List retrieves all limits ordered by window start, newest first.
	List(ctx context.Context) ([]EnergyLimit, error)

	// ActiveAt returns the limit governing the given instant: the
	// latest-starting limit whose window contains it.
	// Returns ErrLimitNotFound if no window contains the instant.
	ActiveAt(ctx context.Context, at time.Time) (*EnergyLimit, error)

	// Create inserts a new limit.
	Create(ctx context.Context, limit *EnergyLimit) error

	// Update modifies an existing limit.
	// Returns ErrLimitNotFound if the limit does not exist.
	Update(ctx context.Context, limit *EnergyLimit) error

	// Delete removes a limit by ID.
	// Returns ErrLimitNotFound if the limit does not exist.
	Delete(ctx context.Context, id string) error
}

// SQLiteLimitRepository implements LimitRepository using SQLite.
type SQLiteLimitRepository struct {
	db *sql.DB
}

// NewSQLiteLimitRepository creates a new SQLite-backed limit repository.
func NewSQLiteLimitRepository(db *sql.DB) *SQLiteLimitRepository {
	return &SQLiteLimitRepository{db: db}
}

const limitColumns = `id, start_time, end_time, budget_kwh, created_at, updated_at`

// GetByID retrieves a limit by its unique identifier.
func (r *SQLiteLimitRepository) GetByID(ctx context.Context, id string) (*EnergyLimit, error) {
	query := `SELECT ` + limitColumns + ` FROM energy_limits WHERE id = ?`

	row := r.db.QueryRowContext(ctx, query, id)
	limit, err := scanLimit(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrLimitNotFound
		}
		return nil, fmt.Errorf("querying limit by id: %w", err)
	}
	return limit, nil
}

// List retrieves all limits ordered by window start, newest first.
func (r *SQLiteLimitRepository) List(ctx context.Context) ([]EnergyLimit, error) {
	query := `SELECT ` + limitColumns + ` FROM energy_limits ORDER BY start_time DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying limits: %w", err)
	}
	defer rows.Close()

	var limits []EnergyLimit
	for rows.Next() {
		limit, err := scanLimit(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning limit: %w", err)
		}
		limits = append(limits, *limit)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating limits: %w", err)
	}

	return limits, nil
}

// ActiveAt returns the limit governing the given instant.
//
// Overlapping windows are resolved in favour of the latest start, so a
// narrow override limit created inside a broader one wins.
func (r *SQLiteLimitRepository) ActiveAt(ctx context.Context, at time.Time) (*EnergyLimit, error) {
	query := `SELECT ` + limitColumns + `
		FROM energy_limits
		WHERE start_time <= ? AND end_time > ?
		ORDER BY start_time DESC
		LIMIT 1`

	instant := at.UTC().Format(time.RFC3339)
	row := r.db.QueryRowContext(ctx, query, instant, instant)
	limit, err := scanLimit(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrLimitNotFound
		}
		return nil, fmt.Errorf("querying active limit: %w", err)
	}
	return limit, nil
}

// Create inserts a new limit.
func (r *SQLiteLimitRepository) Create(ctx context.Context, limit *EnergyLimit) error {
	if err := ValidateLimit(limit); err != nil {
		return err
	}

	now := time.Now().UTC()
	if limit.CreatedAt.IsZero() {
		limit.CreatedAt = now
	}
	limit.UpdatedAt = now

	query := `
		INSERT INTO energy_limits (
			id, start_time, end_time, budget_kwh, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		limit.ID,
		limit.Start.UTC().Format(time.RFC3339),
		limit.End.UTC().Format(time.RFC3339),
		limit.BudgetKWh,
		limit.CreatedAt.Format(time.RFC3339),
		limit.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting limit: %w", err)
	}

	return nil
}

// Update modifies an existing limit.
func (r *SQLiteLimitRepository) Update(ctx context.Context, limit *EnergyLimit) error {
	if err := ValidateLimit(limit); err != nil {
		return err
	}

	limit.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE energy_limits SET
			start_time = ?, end_time = ?, budget_kwh = ?, updated_at = ?
		WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query,
		limit.Start.UTC().Format(time.RFC3339),
		limit.End.UTC().Format(time.RFC3339),
		limit.BudgetKWh,
		limit.UpdatedAt.Format(time.RFC3339),
		limit.ID,
	)
	if err != nil {
		return fmt.Errorf("updating limit: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrLimitNotFound
	}

	return nil
}

// Delete removes a limit by ID.
func (r *SQLiteLimitRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM energy_limits WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting limit: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrLimitNotFound
	}

	return nil
}

// rowScanner covers both sql.Row and sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanLimit scans a row or rows result into an EnergyLimit.
func scanLimit(scanner rowScanner) (*EnergyLimit, error) {
	var l EnergyLimit
	var start, end, createdAt, updatedAt string

	err := scanner.Scan(
		&l.ID,
		&start,
		&end,
		&l.BudgetKWh,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	for _, field := range []struct {
		name string
		dst  *time.Time
		raw  string
	}{
		{"start_time", &l.Start, start},
		{"end_time", &l.End, end},
		{"created_at", &l.CreatedAt, createdAt},
		{"updated_at", &l.UpdatedAt, updatedAt},
	} {
		parsed, err := time.Parse(time.RFC3339, field.raw)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", field.name, err)
		}
		*field.dst = parsed
	}

	return &l, nil
}
