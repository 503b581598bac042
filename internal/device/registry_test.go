package device

import (
	"context"
	"errors"
	"testing"
)

func setupRegistry(t *testing.T) *Registry {
	t.Helper()

	db := setupTestDB(t)
	repo := NewSQLiteRepository(db)
	return NewRegistry(repo)
}

func TestRegistry_RefreshCache(t *testing.T) {
	registry := setupRegistry(t)
	ctx := context.Background()

	for _, d := range []*Device{
		testDevice("dev-a", "Alpha", "home/alpha"),
		testDevice("dev-b", "Beta", "home/beta"),
	} {
		if err := registry.CreateDevice(ctx, d); err != nil {
			t.Fatalf("CreateDevice() error = %v", err)
		}
	}

	if err := registry.RefreshCache(ctx); err != nil {
		t.Fatalf("RefreshCache() error = %v", err)
	}

	if registry.Count() != 2 {
		t.Errorf("Count() = %d, want 2", registry.Count())
	}

	got, err := registry.GetDeviceByTopic(ctx, "home/alpha")
	if err != nil {
		t.Fatalf("GetDeviceByTopic() error = %v", err)
	}
	if got.ID != "dev-a" {
		t.Errorf("GetDeviceByTopic() ID = %q, want dev-a", got.ID)
	}
}

func TestRegistry_TopicIndexStaysConsistent(t *testing.T) {
	registry := setupRegistry(t)
	ctx := context.Background()

	dev := testDevice("dev-001", "Pump", "home/pump")
	if err := registry.CreateDevice(ctx, dev); err != nil {
		t.Fatalf("CreateDevice() error = %v", err)
	}

	// Change the telemetry topic; the old index entry must disappear.
	dev.Topic = "home/pump-v2"
	if err := registry.UpdateDevice(ctx, dev); err != nil {
		t.Fatalf("UpdateDevice() error = %v", err)
	}

	if _, err := registry.GetDeviceByTopic(ctx, "home/pump"); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("old topic lookup error = %v, want ErrDeviceNotFound", err)
	}

	got, err := registry.GetDeviceByTopic(ctx, "home/pump-v2")
	if err != nil {
		t.Fatalf("new topic lookup error = %v", err)
	}
	if got.ID != "dev-001" {
		t.Errorf("ID = %q, want dev-001", got.ID)
	}

	// Deleting the device removes both index entries.
	if err := registry.DeleteDevice(ctx, "dev-001"); err != nil {
		t.Fatalf("DeleteDevice() error = %v", err)
	}
	if _, err := registry.GetDeviceByTopic(ctx, "home/pump-v2"); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("topic lookup after delete error = %v, want ErrDeviceNotFound", err)
	}
}

func TestRegistry_CreateDevice(t *testing.T) {
	registry := setupRegistry(t)
	ctx := context.Background()

	t.Run("generates ID and defaults", func(t *testing.T) {
		dev := testDevice("", "Fan", "home/fan")
		dev.Status = ""
		dev.Tier = ""

		if err := registry.CreateDevice(ctx, dev); err != nil {
			t.Fatalf("CreateDevice() error = %v", err)
		}

		if dev.ID == "" {
			t.Error("expected generated ID")
		}
		if dev.Status != StatusOff {
			t.Errorf("Status = %q, want OFF default", dev.Status)
		}
		if dev.Tier != TierNone {
			t.Errorf("Tier = %q, want none default", dev.Tier)
		}
	})

	t.Run("rejects invalid device", func(t *testing.T) {
		dev := testDevice("", "Bad", "home/+/bad")
		err := registry.CreateDevice(ctx, dev)
		if !errors.Is(err, ErrInvalidTopic) {
			t.Errorf("CreateDevice() error = %v, want ErrInvalidTopic", err)
		}
	})
}

func TestRegistry_UpdateStatus(t *testing.T) {
	registry := setupRegistry(t)
	ctx := context.Background()

	dev := testDevice("dev-001", "Heater", "home/heater")
	if err := registry.CreateDevice(ctx, dev); err != nil {
		t.Fatalf("CreateDevice() error = %v", err)
	}

	if err := registry.UpdateStatus(ctx, "dev-001", StatusOn); err != nil {
		t.Fatalf("UpdateStatus() error = %v", err)
	}

	// Cached copy reflects the new state.
	got, err := registry.GetDevice(ctx, "dev-001")
	if err != nil {
		t.Fatalf("GetDevice() error = %v", err)
	}
	if got.Status != StatusOn {
		t.Errorf("Status = %q, want ON", got.Status)
	}
}

func TestRegistry_GetDeviceReturnsCopy(t *testing.T) {
	registry := setupRegistry(t)
	ctx := context.Background()

	dev := testDevice("dev-001", "Lamp", "home/lamp")
	if err := registry.CreateDevice(ctx, dev); err != nil {
		t.Fatalf("CreateDevice() error = %v", err)
	}

	first, err := registry.GetDevice(ctx, "dev-001")
	if err != nil {
		t.Fatalf("GetDevice() error = %v", err)
	}
	first.Name = "Mutated"

	second, err := registry.GetDevice(ctx, "dev-001")
	if err != nil {
		t.Fatalf("GetDevice() error = %v", err)
	}
	if second.Name != "Lamp" {
		t.Errorf("cache was mutated through returned copy: Name = %q", second.Name)
	}
}

func TestRegistry_GetDevicesByTier(t *testing.T) {
	registry := setupRegistry(t)
	ctx := context.Background()

	devices := []*Device{
		testDevice("dev-a", "Alpha", "home/alpha"),
		testDevice("dev-b", "Beta", "home/beta"),
		testDevice("dev-c", "Gamma", "home/gamma"),
	}
	devices[0].Tier = TierHigh
	devices[1].Tier = TierLow
	devices[2].Tier = TierLow

	for _, d := range devices {
		if err := registry.CreateDevice(ctx, d); err != nil {
			t.Fatalf("CreateDevice() error = %v", err)
		}
	}

	low, err := registry.GetDevicesByTier(ctx, TierLow)
	if err != nil {
		t.Fatalf("GetDevicesByTier() error = %v", err)
	}
	if len(low) != 2 {
		t.Errorf("GetDevicesByTier(low) returned %d devices, want 2", len(low))
	}
}
