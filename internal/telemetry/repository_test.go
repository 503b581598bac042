package telemetry

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// setupTestDB creates an in-memory SQLite database with the usage_samples table.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	schema := `
		CREATE TABLE usage_samples (
			id TEXT PRIMARY KEY,
			device_id TEXT NOT NULL,
			volt REAL NOT NULL,
			ampere REAL NOT NULL,
			watt REAL NOT NULL,
			energy REAL NOT NULL,
			delta REAL NOT NULL DEFAULT 0,
			recorded_at TEXT NOT NULL
		);
		CREATE INDEX idx_usage_samples_device_time ON usage_samples(device_id, recorded_at);
	`

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		t.Fatalf("failed to create test schema: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

// testSample creates a sample for testing.
func testSample(deviceID string, energy, delta float64, recordedAt time.Time) *UsageSample {
	return &UsageSample{
		ID:         GenerateID(),
		DeviceID:   deviceID,
		Volt:       230.0,
		Ampere:     2.0,
		Watt:       460.0,
		Energy:     energy,
		Delta:      delta,
		RecordedAt: recordedAt,
	}
}

func TestSQLiteRepository_InsertAndLatest(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	t.Run("no samples yet", func(t *testing.T) {
		_, err := repo.LatestByDevice(ctx, "dev-001")
		if !errors.Is(err, ErrSampleNotFound) {
			t.Errorf("LatestByDevice() error = %v, want ErrSampleNotFound", err)
		}
	})

	t.Run("latest follows insertion order", func(t *testing.T) {
		base := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)

		for i, energy := range []float64{1.0, 2.5, 4.0} {
			sample := testSample("dev-001", energy, 0, base.Add(time.Duration(i)*time.Minute))
			if err := repo.Insert(ctx, sample); err != nil {
				t.Fatalf("Insert() error = %v", err)
			}
		}

		latest, err := repo.LatestByDevice(ctx, "dev-001")
		if err != nil {
			t.Fatalf("LatestByDevice() error = %v", err)
		}
		if latest.Energy != 4.0 {
			t.Errorf("latest.Energy = %v, want 4.0", latest.Energy)
		}
	})

	t.Run("latest is per device", func(t *testing.T) {
		sample := testSample("dev-002", 99.0, 0, time.Date(2026, 3, 15, 9, 0, 0, 0, time.UTC))
		if err := repo.Insert(ctx, sample); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}

		latest, err := repo.LatestByDevice(ctx, "dev-001")
		if err != nil {
			t.Fatalf("LatestByDevice() error = %v", err)
		}
		if latest.Energy == 99.0 {
			t.Error("LatestByDevice() returned another device's sample")
		}
	})
}

func TestSQLiteRepository_SumDeltaBetween(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	day := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)

	// Two devices inside the window, one sample the day before.
	samples := []*UsageSample{
		testSample("dev-001", 1.0, 0.5, day.Add(-time.Hour)),
		testSample("dev-001", 2.0, 1.0, day.Add(8*time.Hour)),
		testSample("dev-001", 4.0, 2.0, day.Add(12*time.Hour)),
		testSample("dev-002", 3.0, 3.0, day.Add(18*time.Hour)),
	}
	for _, s := range samples {
		if err := repo.Insert(ctx, s); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}
	}

	t.Run("sums all devices within window", func(t *testing.T) {
		total, err := repo.SumDeltaBetween(ctx, day, day.Add(24*time.Hour))
		if err != nil {
			t.Fatalf("SumDeltaBetween() error = %v", err)
		}
		if total != 6.0 {
			t.Errorf("SumDeltaBetween() = %v, want 6.0", total)
		}
	})

	t.Run("window end is exclusive", func(t *testing.T) {
		total, err := repo.SumDeltaBetween(ctx, day, day.Add(18*time.Hour))
		if err != nil {
			t.Fatalf("SumDeltaBetween() error = %v", err)
		}
		if total != 3.0 {
			t.Errorf("SumDeltaBetween() = %v, want 3.0", total)
		}
	})

	t.Run("empty window returns zero", func(t *testing.T) {
		total, err := repo.SumDeltaBetween(ctx, day.Add(48*time.Hour), day.Add(72*time.Hour))
		if err != nil {
			t.Fatalf("SumDeltaBetween() error = %v", err)
		}
		if total != 0 {
			t.Errorf("SumDeltaBetween() = %v, want 0", total)
		}
	})

	t.Run("per-device sum", func(t *testing.T) {
		total, err := repo.SumDeltaByDeviceBetween(ctx, "dev-001", day, day.Add(24*time.Hour))
		if err != nil {
			t.Fatalf("SumDeltaByDeviceBetween() error = %v", err)
		}
		if total != 3.0 {
			t.Errorf("SumDeltaByDeviceBetween() = %v, want 3.0", total)
		}
	})
}

func TestSQLiteRepository_ListByDevice(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	base := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		sample := testSample("dev-001", float64(i), 0, base.Add(time.Duration(i)*time.Minute))
		if err := repo.Insert(ctx, sample); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}
	}

	t.Run("newest first", func(t *testing.T) {
		samples, err := repo.ListByDevice(ctx, "dev-001", 3)
		if err != nil {
			t.Fatalf("ListByDevice() error = %v", err)
		}
		if len(samples) != 3 {
			t.Fatalf("ListByDevice() returned %d samples, want 3", len(samples))
		}
		if samples[0].Energy != 4.0 {
			t.Errorf("first sample energy = %v, want 4.0", samples[0].Energy)
		}
	})

	t.Run("unknown device returns empty", func(t *testing.T) {
		samples, err := repo.ListByDevice(ctx, "nope", 10)
		if err != nil {
			t.Fatalf("ListByDevice() error = %v", err)
		}
		if len(samples) != 0 {
			t.Errorf("ListByDevice() returned %d samples, want 0", len(samples))
		}
	})
}
