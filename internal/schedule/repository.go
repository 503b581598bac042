package schedule

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Repository defines the interface for schedule persistence.
type Repository interface {
	// GetByID retrieves a schedule by its unique identifier.
	// Returns ErrScheduleNotFound if the schedule does not exist.
	GetByID(ctx context.Context, id string) (*Schedule, error)

	// List retrieves all schedules ordered by device then on time.
	List(ctx context.Context) ([]Schedule, error)

	// ListActive retrieves all schedules with the active flag set.
	ListActive(ctx context.Context) ([]Schedule, error)

	// ListByDevice retrieves all schedules for one device.
	ListByDevice(ctx context.Context, deviceID string) ([]Schedule, error)

	// ListByDeviceExcluding retrieves a device's schedules, omitting
	// the one with excludeID. Used by the conflict validator so an
	// edit does not conflict with its own stored record.
	ListByDeviceExcluding(ctx context.Context, deviceID, excludeID string) ([]Schedule, error)

	// Create inserts a new schedule.
	Create(ctx context.Context, schedule *Schedule) error

	// Update modifies an existing schedule.
	// Returns ErrScheduleNotFound if the schedule does not exist.
	Update(ctx context.Context, schedule *Schedule) error

	// Delete removes a schedule by ID.
	// Returns ErrScheduleNotFound if the schedule does not exist.
	Delete(ctx context.Context, id string) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed schedule repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const scheduleColumns = `id, device_id, on_time, off_time, active, created_at, updated_at`

// GetByID retrieves a schedule by its unique identifier.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*Schedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM schedules WHERE id = ?`

	row := r.db.QueryRowContext(ctx, query, id)
	schedule, err := scanSchedule(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrScheduleNotFound
		}
		return nil, fmt.Errorf("querying schedule by id: %w", err)
	}
	return schedule, nil
}

// List retrieves all schedules ordered by device then on time.
func (r *SQLiteRepository) List(ctx context.Context) ([]Schedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM schedules ORDER BY device_id, on_time`
	return r.querySchedules(ctx, query)
}

// ListActive retrieves all schedules with the active flag set.
func (r *SQLiteRepository) ListActive(ctx context.Context) ([]Schedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM schedules WHERE active = 1 ORDER BY device_id, on_time`
	return r.querySchedules(ctx, query)
}

// ListByDevice retrieves all schedules for one device.
func (r *SQLiteRepository) ListByDevice(ctx context.Context, deviceID string) ([]Schedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM schedules WHERE device_id = ? ORDER BY on_time`
	return r.querySchedules(ctx, query, deviceID)
}

// ListByDeviceExcluding retrieves a device's schedules, omitting excludeID.
func (r *SQLiteRepository) ListByDeviceExcluding(ctx context.Context, deviceID, excludeID string) ([]Schedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM schedules WHERE device_id = ? AND id != ? ORDER BY on_time`
	return r.querySchedules(ctx, query, deviceID, excludeID)
}

// Create inserts a new schedule.
func (r *SQLiteRepository) Create(ctx context.Context, schedule *Schedule) error {
	now := time.Now().UTC()
	if schedule.CreatedAt.IsZero() {
		schedule.CreatedAt = now
	}
	schedule.UpdatedAt = now

	query := `
		INSERT INTO schedules (
			id, device_id, on_time, off_time, active, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		schedule.ID,
		schedule.DeviceID,
		schedule.OnTime,
		schedule.OffTime,
		boolToInt(schedule.Active),
		schedule.CreatedAt.Format(time.RFC3339),
		schedule.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting schedule: %w", err)
	}

	return nil
}

// Update modifies an existing schedule.
func (r *SQLiteRepository) Update(ctx context.Context, schedule *Schedule) error {
	schedule.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE schedules SET
			device_id = ?, on_time = ?, off_time = ?, active = ?, updated_at = ?
		WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query,
		schedule.DeviceID,
		schedule.OnTime,
		schedule.OffTime,
		boolToInt(schedule.Active),
		schedule.UpdatedAt.Format(time.RFC3339),
		schedule.ID,
	)
	if err != nil {
		return fmt.Errorf("updating schedule: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrScheduleNotFound
	}

	return nil
}

// Delete removes a schedule by ID.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM schedules WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting schedule: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrScheduleNotFound
	}

	return nil
}

// querySchedules executes a query and returns a slice of schedules.
func (r *SQLiteRepository) querySchedules(ctx context.Context, query string, args ...any) ([]Schedule, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying schedules: %w", err)
	}
	defer rows.Close()

	var schedules []Schedule
	for rows.Next() {
		schedule, err := scanSchedule(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning schedule: %w", err)
		}
		schedules = append(schedules, *schedule)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating schedules: %w", err)
	}

	return schedules, nil
}

// rowScanner covers both sql.Row and sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanSchedule scans a row or rows result into a Schedule.
func scanSchedule(scanner rowScanner) (*Schedule, error) {
	var s Schedule
	var active int
	var createdAt, updatedAt string

	err := scanner.Scan(
		&s.ID,
		&s.DeviceID,
		&s.OnTime,
		&s.OffTime,
		&active,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	s.Active = active != 0

	var parseErr error
	s.CreatedAt, parseErr = time.Parse(time.RFC3339, createdAt)
	if parseErr != nil {
		return nil, fmt.Errorf("parsing created_at: %w", parseErr)
	}
	s.UpdatedAt, parseErr = time.Parse(time.RFC3339, updatedAt)
	if parseErr != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", parseErr)
	}

	return &s, nil
}

// boolToInt converts a boolean to 0/1 for SQLite storage.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
