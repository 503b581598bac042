package device

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

// setupTestDB creates an in-memory SQLite database with the devices table.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	schema := `
		CREATE TABLE devices (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			topic TEXT NOT NULL UNIQUE,
			control_topic TEXT,
			tier TEXT NOT NULL DEFAULT 'none',
			rated_watts REAL NOT NULL DEFAULT 0,
			status TEXT NOT NULL DEFAULT 'OFF',
			schedule_enabled INTEGER NOT NULL DEFAULT 1,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);
		CREATE INDEX idx_devices_tier ON devices(tier);
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

// testDevice creates a device for testing.
func testDevice(id, name, topic string) *Device {
	controlTopic := topic + "/set"
	return &Device{
		ID:              id,
		Name:            name,
		Topic:           topic,
		ControlTopic:    &controlTopic,
		Tier:            TierLow,
		RatedWatts:      100,
		Status:          StatusOff,
		ScheduleEnabled: true,
	}
}

func TestSQLiteRepository_Create(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	t.Run("creates device successfully", func(t *testing.T) {
		dev := testDevice("dev-001", "Living Room AC", "home/ac/telemetry")

		err := repo.Create(ctx, dev)
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}

		got, err := repo.GetByID(ctx, "dev-001")
		if err != nil {
			t.Fatalf("GetByID() error = %v", err)
		}
		if got.Name != "Living Room AC" {
			t.Errorf("Name = %q, want %q", got.Name, "Living Room AC")
		}
		if got.Topic != "home/ac/telemetry" {
			t.Errorf("Topic = %q, want %q", got.Topic, "home/ac/telemetry")
		}
		if got.ControlTopic == nil || *got.ControlTopic != "home/ac/telemetry/set" {
			t.Errorf("ControlTopic = %v, want home/ac/telemetry/set", got.ControlTopic)
		}
		if got.Tier != TierLow {
			t.Errorf("Tier = %q, want %q", got.Tier, TierLow)
		}
		if !got.ScheduleEnabled {
			t.Error("ScheduleEnabled = false, want true")
		}
	})

	t.Run("returns error for duplicate ID", func(t *testing.T) {
		dev := testDevice("dev-duplicate", "First Device", "home/first")
		if err := repo.Create(ctx, dev); err != nil {
			t.Fatalf("first Create() error = %v", err)
		}

		dev2 := testDevice("dev-duplicate", "Second Device", "home/second")
		err := repo.Create(ctx, dev2)
		if !errors.Is(err, ErrDeviceExists) {
			t.Errorf("Create() error = %v, want ErrDeviceExists", err)
		}
	})

	t.Run("returns error for duplicate topic", func(t *testing.T) {
		dev := testDevice("dev-topic-a", "Device A", "home/shared")
		if err := repo.Create(ctx, dev); err != nil {
			t.Fatalf("first Create() error = %v", err)
		}

		dev2 := testDevice("dev-topic-b", "Device B", "home/shared")
		err := repo.Create(ctx, dev2)
		if !errors.Is(err, ErrDeviceExists) {
			t.Errorf("Create() error = %v, want ErrDeviceExists", err)
		}
	})

	t.Run("stores monitor-only device without control topic", func(t *testing.T) {
		dev := testDevice("dev-monitor", "Main Meter", "home/meter")
		dev.ControlTopic = nil
		dev.Tier = TierNone

		if err := repo.Create(ctx, dev); err != nil {
			t.Fatalf("Create() error = %v", err)
		}

		got, err := repo.GetByID(ctx, "dev-monitor")
		if err != nil {
			t.Fatalf("GetByID() error = %v", err)
		}
		if got.ControlTopic != nil {
			t.Errorf("ControlTopic = %v, want nil", got.ControlTopic)
		}
		if got.Controllable() {
			t.Error("Controllable() = true, want false")
		}
	})
}

func TestSQLiteRepository_GetByID(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	t.Run("returns ErrDeviceNotFound for missing device", func(t *testing.T) {
		_, err := repo.GetByID(ctx, "missing")
		if !errors.Is(err, ErrDeviceNotFound) {
			t.Errorf("GetByID() error = %v, want ErrDeviceNotFound", err)
		}
	})
}

func TestSQLiteRepository_GetByTopic(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	dev := testDevice("dev-001", "Pump", "home/pump")
	if err := repo.Create(ctx, dev); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	t.Run("resolves device by topic", func(t *testing.T) {
		got, err := repo.GetByTopic(ctx, "home/pump")
		if err != nil {
			t.Fatalf("GetByTopic() error = %v", err)
		}
		if got.ID != "dev-001" {
			t.Errorf("ID = %q, want dev-001", got.ID)
		}
	})

	t.Run("returns ErrDeviceNotFound for unknown topic", func(t *testing.T) {
		_, err := repo.GetByTopic(ctx, "home/unknown")
		if !errors.Is(err, ErrDeviceNotFound) {
			t.Errorf("GetByTopic() error = %v, want ErrDeviceNotFound", err)
		}
	})
}

func TestSQLiteRepository_List(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	devices := []*Device{
		testDevice("dev-a", "Alpha", "home/alpha"),
		testDevice("dev-b", "Beta", "home/beta"),
		testDevice("dev-c", "Gamma", "home/gamma"),
	}
	devices[1].Tier = TierHigh
	for _, d := range devices {
		if err := repo.Create(ctx, d); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	t.Run("lists all devices", func(t *testing.T) {
		got, err := repo.List(ctx)
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(got) != 3 {
			t.Errorf("List() returned %d devices, want 3", len(got))
		}
	})

	t.Run("filters by tier", func(t *testing.T) {
		got, err := repo.ListByTier(ctx, TierHigh)
		if err != nil {
			t.Fatalf("ListByTier() error = %v", err)
		}
		if len(got) != 1 || got[0].ID != "dev-b" {
			t.Errorf("ListByTier(high) = %v, want [dev-b]", got)
		}
	})
}

func TestSQLiteRepository_Update(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	dev := testDevice("dev-001", "Heater", "home/heater")
	if err := repo.Create(ctx, dev); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	t.Run("updates fields", func(t *testing.T) {
		dev.Name = "Water Heater"
		dev.Tier = TierMedium
		dev.RatedWatts = 1500

		if err := repo.Update(ctx, dev); err != nil {
			t.Fatalf("Update() error = %v", err)
		}

		got, err := repo.GetByID(ctx, "dev-001")
		if err != nil {
			t.Fatalf("GetByID() error = %v", err)
		}
		if got.Name != "Water Heater" {
			t.Errorf("Name = %q, want Water Heater", got.Name)
		}
		if got.Tier != TierMedium {
			t.Errorf("Tier = %q, want medium", got.Tier)
		}
		if got.RatedWatts != 1500 {
			t.Errorf("RatedWatts = %v, want 1500", got.RatedWatts)
		}
	})

	t.Run("returns ErrDeviceNotFound for missing device", func(t *testing.T) {
		missing := testDevice("missing", "Ghost", "home/ghost")
		err := repo.Update(ctx, missing)
		if !errors.Is(err, ErrDeviceNotFound) {
			t.Errorf("Update() error = %v, want ErrDeviceNotFound", err)
		}
	})
}

func TestSQLiteRepository_Delete(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	dev := testDevice("dev-001", "Lamp", "home/lamp")
	if err := repo.Create(ctx, dev); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := repo.Delete(ctx, "dev-001"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	_, err := repo.GetByID(ctx, "dev-001")
	if !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("GetByID() after delete error = %v, want ErrDeviceNotFound", err)
	}

	err = repo.Delete(ctx, "dev-001")
	if !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("second Delete() error = %v, want ErrDeviceNotFound", err)
	}
}

func TestSQLiteRepository_UpdateStatus(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	dev := testDevice("dev-001", "Fan", "home/fan")
	if err := repo.Create(ctx, dev); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	t.Run("transitions OFF to ON", func(t *testing.T) {
		if err := repo.UpdateStatus(ctx, "dev-001", StatusOn); err != nil {
			t.Fatalf("UpdateStatus() error = %v", err)
		}

		got, err := repo.GetByID(ctx, "dev-001")
		if err != nil {
			t.Fatalf("GetByID() error = %v", err)
		}
		if got.Status != StatusOn {
			t.Errorf("Status = %q, want ON", got.Status)
		}
	})

	t.Run("rejects invalid status", func(t *testing.T) {
		err := repo.UpdateStatus(ctx, "dev-001", Status("STANDBY"))
		if !errors.Is(err, ErrInvalidStatus) {
			t.Errorf("UpdateStatus() error = %v, want ErrInvalidStatus", err)
		}
	})

	t.Run("returns ErrDeviceNotFound for missing device", func(t *testing.T) {
		err := repo.UpdateStatus(ctx, "missing", StatusOff)
		if !errors.Is(err, ErrDeviceNotFound) {
			t.Errorf("UpdateStatus() error = %v, want ErrDeviceNotFound", err)
		}
	})
}
