package telemetry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Repository defines the interface for usage sample persistence.
type Repository interface {
	// Insert appends a new usage sample.
	Insert(ctx context.Context, sample *UsageSample) error

	// LatestByDevice returns the most recent sample for a device.
	// Returns ErrSampleNotFound if the device has no samples yet.
	LatestByDevice(ctx context.Context, deviceID string) (*UsageSample, error)

	// SumDeltaBetween returns the total consumption across all devices
	// for samples recorded in [from, to).
	SumDeltaBetween(ctx context.Context, from, to time.Time) (float64, error)

	// SumDeltaByDeviceBetween returns one device's consumption for
	// samples recorded in [from, to).
	SumDeltaByDeviceBetween(ctx context.Context, deviceID string, from, to time.Time) (float64, error)

	// ListByDevice returns a device's samples newest first, capped at limit.
	ListByDevice(ctx context.Context, deviceID string, limit int) ([]UsageSample, error)
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed sample repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const sampleColumns = `id, device_id, volt, ampere, watt, energy, delta, recorded_at`

// sampleTimeLayout is a fixed-width RFC3339 variant. The constant
// fraction width keeps lexicographic ordering of stored strings equal
// to chronological ordering, which the range queries depend on.
const sampleTimeLayout = "2006-01-02T15:04:05.000Z07:00"

// Insert appends a new usage sample.
func (r *SQLiteRepository) Insert(ctx context.Context, sample *UsageSample) error {
	if sample.RecordedAt.IsZero() {
		sample.RecordedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO usage_samples (
			id, device_id, volt, ampere, watt, energy, delta, recorded_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		sample.ID,
		sample.DeviceID,
		sample.Volt,
		sample.Ampere,
		sample.Watt,
		sample.Energy,
		sample.Delta,
		sample.RecordedAt.UTC().Format(sampleTimeLayout),
	)
	if err != nil {
		return fmt.Errorf("inserting usage sample: %w", err)
	}

	return nil
}

// LatestByDevice returns the most recent sample for a device.
func (r *SQLiteRepository) LatestByDevice(ctx context.Context, deviceID string) (*UsageSample, error) {
	query := `SELECT ` + sampleColumns + `
		FROM usage_samples
		WHERE device_id = ?
		ORDER BY recorded_at DESC
		LIMIT 1`

	row := r.db.QueryRowContext(ctx, query, deviceID)
	sample, err := scanSample(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSampleNotFound
		}
		return nil, fmt.Errorf("querying latest sample: %w", err)
	}
	return sample, nil
}

// SumDeltaBetween returns the total consumption across all devices
// for samples recorded in [from, to).
func (r *SQLiteRepository) SumDeltaBetween(ctx context.Context, from, to time.Time) (float64, error) {
	query := `SELECT COALESCE(SUM(delta), 0)
		FROM usage_samples
		WHERE recorded_at >= ? AND recorded_at < ?`

	var total float64
	err := r.db.QueryRowContext(ctx, query,
		from.UTC().Format(sampleTimeLayout),
		to.UTC().Format(sampleTimeLayout),
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("summing deltas: %w", err)
	}
	return total, nil
}

// SumDeltaByDeviceBetween returns one device's consumption for
// samples recorded in [from, to).
func (r *SQLiteRepository) SumDeltaByDeviceBetween(ctx context.Context, deviceID string, from, to time.Time) (float64, error) {
	query := `SELECT COALESCE(SUM(delta), 0)
		FROM usage_samples
		WHERE device_id = ? AND recorded_at >= ? AND recorded_at < ?`

	var total float64
	err := r.db.QueryRowContext(ctx, query,
		deviceID,
		from.UTC().Format(sampleTimeLayout),
		to.UTC().Format(sampleTimeLayout),
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("summing device deltas: %w", err)
	}
	return total, nil
}

// ListByDevice returns a device's samples newest first, capped at limit.
func (r *SQLiteRepository) ListByDevice(ctx context.Context, deviceID string, limit int) ([]UsageSample, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `SELECT ` + sampleColumns + `
		FROM usage_samples
		WHERE device_id = ?
		ORDER BY recorded_at DESC
		LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, deviceID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying samples: %w", err)
	}
	defer rows.Close()

	var samples []UsageSample
	for rows.Next() {
		sample, err := scanSample(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning sample: %w", err)
		}
		samples = append(samples, *sample)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating samples: %w", err)
	}

	return samples, nil
}

// rowScanner covers both sql.Row and sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanSample scans a row or rows result into a UsageSample.
func scanSample(scanner rowScanner) (*UsageSample, error) {
	var s UsageSample
	var recordedAt string

	err := scanner.Scan(
		&s.ID,
		&s.DeviceID,
		&s.Volt,
		&s.Ampere,
		&s.Watt,
		&s.Energy,
		&s.Delta,
		&recordedAt,
	)
	if err != nil {
		return nil, err
	}

	s.RecordedAt, err = time.Parse(sampleTimeLayout, recordedAt)
	if err != nil {
		return nil, fmt.Errorf("parsing recorded_at: %w", err)
	}

	return &s, nil
}
