package device

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Repository is the persistence port for devices. The SQLite
// implementation below is the production one; tests substitute their
// own.
type Repository interface {
	// GetByID returns the device with the given ID, or
	// ErrDeviceNotFound.
	GetByID(ctx context.Context, id string) (*Device, error)

	// GetByTopic returns the device publishing telemetry on topic, or
	// ErrDeviceNotFound.
	GetByTopic(ctx context.Context, topic string) (*Device, error)

	// List returns every device, ordered by name.
	List(ctx context.Context) ([]Device, error)

	// ListByTier returns the devices in one shedding tier.
	ListByTier(ctx context.Context, tier Tier) ([]Device, error)

	// Create inserts a device. ErrDeviceExists when the ID or topic is
	// already taken.
	Create(ctx context.Context, device *Device) error

	// Update rewrites a device row. ErrDeviceNotFound when absent.
	Update(ctx context.Context, device *Device) error

	// Delete removes a device row. ErrDeviceNotFound when absent.
	Delete(ctx context.Context, id string) error

	// UpdateStatus writes only the power state. Shedding, the
	// reconciler, and manual commands all funnel through here, so it
	// avoids rewriting the whole row.
	UpdateStatus(ctx context.Context, id string, status Status) error
}

// SQLiteRepository stores devices in the devices table.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository returns a repository over an open connection.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const deviceColumns = `id, name, topic, control_topic, tier, rated_watts,
		status, schedule_enabled, created_at, updated_at`

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*Device, error) {
	return r.getWhere(ctx, "id = ?", id)
}

func (r *SQLiteRepository) GetByTopic(ctx context.Context, topic string) (*Device, error) {
	return r.getWhere(ctx, "topic = ?", topic)
}

func (r *SQLiteRepository) getWhere(ctx context.Context, where string, arg any) (*Device, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+deviceColumns+` FROM devices WHERE `+where, arg)

	device, err := scanDevice(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDeviceNotFound
		}
		return nil, fmt.Errorf("querying device: %w", err)
	}
	return device, nil
}

func (r *SQLiteRepository) List(ctx context.Context) ([]Device, error) {
	return r.listWhere(ctx, `SELECT `+deviceColumns+` FROM devices ORDER BY name`)
}

func (r *SQLiteRepository) ListByTier(ctx context.Context, tier Tier) ([]Device, error) {
	return r.listWhere(ctx,
		`SELECT `+deviceColumns+` FROM devices WHERE tier = ? ORDER BY name`,
		string(tier))
}

func (r *SQLiteRepository) Create(ctx context.Context, device *Device) error {
	now := time.Now().UTC()
	if device.CreatedAt.IsZero() {
		device.CreatedAt = now
	}
	device.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO devices (
			id, name, topic, control_topic, tier, rated_watts,
			status, schedule_enabled, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		device.ID,
		device.Name,
		device.Topic,
		nullString(device.ControlTopic),
		string(device.Tier),
		device.RatedWatts,
		string(device.Status),
		boolToInt(device.ScheduleEnabled),
		device.CreatedAt.Format(time.RFC3339),
		device.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDeviceExists
		}
		return fmt.Errorf("inserting device: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Update(ctx context.Context, device *Device) error {
	device.UpdatedAt = time.Now().UTC()

	result, err := r.db.ExecContext(ctx, `
		UPDATE devices SET
			name = ?, topic = ?, control_topic = ?, tier = ?,
			rated_watts = ?, status = ?, schedule_enabled = ?, updated_at = ?
		WHERE id = ?`,
		device.Name,
		device.Topic,
		nullString(device.ControlTopic),
		string(device.Tier),
		device.RatedWatts,
		string(device.Status),
		boolToInt(device.ScheduleEnabled),
		device.UpdatedAt.Format(time.RFC3339),
		device.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDeviceExists
		}
		return fmt.Errorf("updating device: %w", err)
	}
	return requireRow(result)
}

func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM devices WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting device: %w", err)
	}
	return requireRow(result)
}

func (r *SQLiteRepository) UpdateStatus(ctx context.Context, id string, status Status) error {
	if err := ValidateStatus(status); err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE devices SET status = ?, updated_at = ? WHERE id = ?`,
		string(status),
		time.Now().UTC().Format(time.RFC3339),
		id,
	)
	if err != nil {
		return fmt.Errorf("updating device status: %w", err)
	}
	return requireRow(result)
}

func (r *SQLiteRepository) listWhere(ctx context.Context, query string, args ...any) ([]Device, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying devices: %w", err)
	}
	defer rows.Close()

	var devices []Device
	for rows.Next() {
		device, err := scanDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning device: %w", err)
		}
		devices = append(devices, *device)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating devices: %w", err)
	}
	return devices, nil
}

// requireRow turns a zero-row write into ErrDeviceNotFound.
func requireRow(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return ErrDeviceNotFound
	}
	return nil
}

// scanner covers both sql.Row and sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanDevice(s scanner) (*Device, error) {
	var (
		d               Device
		controlTopic    sql.NullString
		tier, status    string
		scheduleEnabled int
		created, updated string
	)

	err := s.Scan(
		&d.ID,
		&d.Name,
		&d.Topic,
		&controlTopic,
		&tier,
		&d.RatedWatts,
		&status,
		&scheduleEnabled,
		&created,
		&updated,
	)
	if err != nil {
		return nil, err
	}

	d.Tier = Tier(tier)
	d.Status = Status(status)
	d.ScheduleEnabled = scheduleEnabled != 0
	if controlTopic.Valid {
		d.ControlTopic = &controlTopic.String
	}

	if d.CreatedAt, err = time.Parse(time.RFC3339, created); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if d.UpdatedAt, err = time.Parse(time.RFC3339, updated); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}

	return &d, nil
}

func nullString(s *string) sql.NullString {
	if s == nil || *s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// boolToInt maps a bool onto SQLite's 0/1 integer convention.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "unique constraint")
}
