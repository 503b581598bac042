package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/wattgate/wattgate-core/internal/command"
	"github.com/wattgate/wattgate-core/internal/device"
	"github.com/wattgate/wattgate-core/internal/energy"
	"github.com/wattgate/wattgate-core/internal/infrastructure/config"
	"github.com/wattgate/wattgate-core/internal/infrastructure/logging"
	"github.com/wattgate/wattgate-core/internal/schedule"
	"github.com/wattgate/wattgate-core/internal/telemetry"
)

// fakeTransport records MQTT publishes without a broker.
type fakeTransport struct {
	mu       sync.Mutex
	messages []publishedMessage
}

type publishedMessage struct {
	topic   string
	payload []byte
}

func (f *fakeTransport) Publish(topic string, payload []byte, qos byte, retained bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, publishedMessage{topic: topic, payload: payload})
	return nil
}

func (f *fakeTransport) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.messages)
}

func (f *fakeTransport) last() (publishedMessage, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.messages) == 0 {
		return publishedMessage{}, false
	}
	return f.messages[len(f.messages)-1], true
}

// testEnv bundles a fully wired server with direct handles on its
// collaborators for assertions.
type testEnv struct {
	handler   http.Handler
	registry  *device.Registry
	blocked   *energy.BlockedSet
	transport *fakeTransport
	limits    energy.LimitRepository
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

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
		CREATE TABLE energy_limits (
			id TEXT PRIMARY KEY,
			start_time TEXT NOT NULL,
			end_time TEXT NOT NULL,
			budget_kwh REAL NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);
		CREATE TABLE schedules (
			id TEXT PRIMARY KEY,
			device_id TEXT NOT NULL,
			on_time TEXT NOT NULL,
			off_time TEXT NOT NULL,
			active INTEGER NOT NULL DEFAULT 1,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);
	`
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("failed to create test schema: %v", err)
	}

	logger := logging.New(config.LoggingConfig{Level: "error", Format: "text"}, "test")

	registry := device.NewRegistry(device.NewSQLiteRepository(db))
	samples := telemetry.NewSQLiteRepository(db)
	schedules := schedule.NewSQLiteRepository(db)
	limits := energy.NewSQLiteLimitRepository(db)
	blocked := energy.NewBlockedSet()

	hub := NewHub(config.WebSocketConfig{}, logger)
	transport := &fakeTransport{}
	publisher := command.NewPublisher(transport, hub, 1)
	accountant := energy.NewAccountant(samples, limits, registry, publisher, blocked, hub, nil, time.UTC)

	srv, err := New(Deps{
		Logger:      logger,
		Registry:    registry,
		Samples:     samples,
		Schedules:   schedules,
		Limits:      limits,
		Accountant:  accountant,
		Blocked:     blocked,
		Publisher:   publisher,
		ExternalHub: hub,
		Version:     "test",
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	return &testEnv{
		handler:   srv.buildRouter(),
		registry:  registry,
		blocked:   blocked,
		transport: transport,
		limits:    limits,
	}
}

// doJSON performs a request with an optional JSON body and decodes the
// response into out when non-nil.
func (e *testEnv) doJSON(t *testing.T, method, path string, body, out any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)

	if out != nil && rec.Code < 300 {
		if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
			t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
		}
	}
	return rec
}

func (e *testEnv) createDevice(t *testing.T, name, topic string, controlTopic string) device.Device {
	t.Helper()

	body := map[string]any{
		"name":        name,
		"topic":       topic,
		"tier":        "low",
		"rated_watts": 100,
	}
	if controlTopic != "" {
		body["control_topic"] = controlTopic
	}

	var dev device.Device
	rec := e.doJSON(t, http.MethodPost, "/api/v1/devices", body, &dev)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create device status = %d, body = %s", rec.Code, rec.Body.String())
	}
	return dev
}

func TestHealth(t *testing.T) {
	env := setupTestEnv(t)

	var resp map[string]any
	rec := env.doJSON(t, http.MethodGet, "/api/v1/health", nil, &resp)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if resp["status"] != "ok" {
		t.Errorf("status field = %v, want ok", resp["status"])
	}
}

func TestDeviceCRUD(t *testing.T) {
	env := setupTestEnv(t)

	dev := env.createDevice(t, "Air Conditioner", "home/ac/telemetry", "home/ac/set")

	t.Run("list", func(t *testing.T) {
		var devices []device.Device
		rec := env.doJSON(t, http.MethodGet, "/api/v1/devices", nil, &devices)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		if len(devices) != 1 || devices[0].ID != dev.ID {
			t.Errorf("list = %+v", devices)
		}
	})

	t.Run("get", func(t *testing.T) {
		var got device.Device
		rec := env.doJSON(t, http.MethodGet, "/api/v1/devices/"+dev.ID, nil, &got)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		if got.Name != "Air Conditioner" || !got.Controllable() {
			t.Errorf("get = %+v", got)
		}
	})

	t.Run("update", func(t *testing.T) {
		body := map[string]any{
			"name":        "Bedroom AC",
			"topic":       dev.Topic,
			"tier":        "high",
			"rated_watts": 900,
		}
		var got device.Device
		rec := env.doJSON(t, http.MethodPut, "/api/v1/devices/"+dev.ID, body, &got)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
		}
		if got.Name != "Bedroom AC" || got.Tier != device.TierHigh {
			t.Errorf("update = %+v", got)
		}
	})

	t.Run("delete", func(t *testing.T) {
		rec := env.doJSON(t, http.MethodDelete, "/api/v1/devices/"+dev.ID, nil, nil)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("status = %d", rec.Code)
		}

		rec = env.doJSON(t, http.MethodGet, "/api/v1/devices/"+dev.ID, nil, nil)
		if rec.Code != http.StatusNotFound {
			t.Errorf("get after delete status = %d, want 404", rec.Code)
		}
	})
}

func TestCreateDevice_Validation(t *testing.T) {
	env := setupTestEnv(t)

	t.Run("empty name", func(t *testing.T) {
		rec := env.doJSON(t, http.MethodPost, "/api/v1/devices",
			map[string]any{"name": "", "topic": "home/x"}, nil)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("duplicate topic", func(t *testing.T) {
		env.createDevice(t, "First", "home/dup/telemetry", "")
		rec := env.doJSON(t, http.MethodPost, "/api/v1/devices",
			map[string]any{"name": "Second", "topic": "home/dup/telemetry"}, nil)
		if rec.Code != http.StatusConflict {
			t.Errorf("status = %d, want 409", rec.Code)
		}
	})
}

func TestDeviceCommand(t *testing.T) {
	env := setupTestEnv(t)
	dev := env.createDevice(t, "Heater", "home/heater/telemetry", "home/heater/set")

	t.Run("manual on clears block and publishes", func(t *testing.T) {
		env.blocked.Add(dev.ID)

		rec := env.doJSON(t, http.MethodPost, "/api/v1/devices/"+dev.ID+"/command",
			map[string]string{"command": "ON"}, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
		}

		if env.blocked.Contains(dev.ID) {
			t.Error("device still blocked after manual ON")
		}

		got, err := env.registry.GetDevice(context.Background(), dev.ID)
		if err != nil {
			t.Fatalf("GetDevice() error = %v", err)
		}
		if got.Status != device.StatusOn {
			t.Errorf("status = %s, want ON", got.Status)
		}

		msg, ok := env.transport.last()
		if !ok {
			t.Fatal("no MQTT publish recorded")
		}
		if msg.topic != "home/heater/set" {
			t.Errorf("publish topic = %q", msg.topic)
		}
		var payload map[string]string
		if err := json.Unmarshal(msg.payload, &payload); err != nil {
			t.Fatalf("payload = %q: %v", msg.payload, err)
		}
		if payload["command"] != "ON" {
			t.Errorf(`payload command = %q, want "ON"`, payload["command"])
		}
	})

	t.Run("manual off does not touch block", func(t *testing.T) {
		env.blocked.Add(dev.ID)

		rec := env.doJSON(t, http.MethodPost, "/api/v1/devices/"+dev.ID+"/command",
			map[string]string{"command": "off"}, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		if !env.blocked.Contains(dev.ID) {
			t.Error("manual OFF removed the block")
		}
		env.blocked.Remove(dev.ID)
	})

	t.Run("invalid command", func(t *testing.T) {
		rec := env.doJSON(t, http.MethodPost, "/api/v1/devices/"+dev.ID+"/command",
			map[string]string{"command": "TOGGLE"}, nil)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("unknown device", func(t *testing.T) {
		rec := env.doJSON(t, http.MethodPost, "/api/v1/devices/nope/command",
			map[string]string{"command": "ON"}, nil)
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})
}

func TestScheduleEndpoints(t *testing.T) {
	env := setupTestEnv(t)
	dev := env.createDevice(t, "Pump", "home/pump/telemetry", "home/pump/set")

	t.Run("create", func(t *testing.T) {
		var resp scheduleResponse
		rec := env.doJSON(t, http.MethodPost, "/api/v1/schedules",
			map[string]any{"device_id": dev.ID, "on_time": "10:00", "off_time": "12:00"}, &resp)
		if rec.Code != http.StatusCreated {
			t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
		}
		if resp.OnTime != "10:00" || !resp.Active {
			t.Errorf("create = %+v", resp)
		}
	})

	t.Run("overlap rejected", func(t *testing.T) {
		rec := env.doJSON(t, http.MethodPost, "/api/v1/schedules",
			map[string]any{"device_id": dev.ID, "on_time": "11:00", "off_time": "13:00"}, nil)
		if rec.Code != http.StatusConflict {
			t.Errorf("status = %d, want 409", rec.Code)
		}
	})

	t.Run("adjacent accepted", func(t *testing.T) {
		rec := env.doJSON(t, http.MethodPost, "/api/v1/schedules",
			map[string]any{"device_id": dev.ID, "on_time": "12:00", "off_time": "13:00"}, nil)
		if rec.Code != http.StatusCreated {
			t.Errorf("status = %d, want 201, body = %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("inverted interval rejected", func(t *testing.T) {
		rec := env.doJSON(t, http.MethodPost, "/api/v1/schedules",
			map[string]any{"device_id": dev.ID, "on_time": "18:00", "off_time": "06:00"}, nil)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("unknown device rejected", func(t *testing.T) {
		rec := env.doJSON(t, http.MethodPost, "/api/v1/schedules",
			map[string]any{"device_id": "nope", "on_time": "08:00", "off_time": "09:00"}, nil)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("list by device", func(t *testing.T) {
		var schedules []scheduleResponse
		rec := env.doJSON(t, http.MethodGet, "/api/v1/schedules?device_id="+dev.ID, nil, &schedules)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		if len(schedules) != 2 {
			t.Errorf("listed %d schedules, want 2", len(schedules))
		}
	})

	t.Run("toggle", func(t *testing.T) {
		var schedules []scheduleResponse
		env.doJSON(t, http.MethodGet, "/api/v1/schedules?device_id="+dev.ID, nil, &schedules)
		if len(schedules) == 0 {
			t.Fatal("no schedules to toggle")
		}

		var toggled scheduleResponse
		rec := env.doJSON(t, http.MethodPost, "/api/v1/schedules/"+schedules[0].ID+"/toggle", nil, &toggled)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
		}
		if toggled.Active == schedules[0].Active {
			t.Errorf("active flag not flipped: %v", toggled.Active)
		}
	})
}

func TestLimitEndpoints(t *testing.T) {
	env := setupTestEnv(t)

	now := time.Now().UTC()
	start := now.Add(-time.Hour).Format(time.RFC3339)
	end := now.Add(time.Hour).Format(time.RFC3339)

	var created limitResponse

	t.Run("create", func(t *testing.T) {
		rec := env.doJSON(t, http.MethodPost, "/api/v1/limits",
			map[string]any{"start": start, "end": end, "budget_kwh": 5.0}, &created)
		if rec.Code != http.StatusCreated {
			t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
		}
		if created.BudgetKWh != 5.0 {
			t.Errorf("budget = %v, want 5", created.BudgetKWh)
		}
	})

	t.Run("active resolves to current window", func(t *testing.T) {
		var active limitResponse
		rec := env.doJSON(t, http.MethodGet, "/api/v1/limits/active", nil, &active)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
		}
		if active.ID != created.ID {
			t.Errorf("active limit = %s, want %s", active.ID, created.ID)
		}
	})

	t.Run("inverted window rejected", func(t *testing.T) {
		rec := env.doJSON(t, http.MethodPost, "/api/v1/limits",
			map[string]any{"start": end, "end": start, "budget_kwh": 5.0}, nil)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("negative budget rejected", func(t *testing.T) {
		rec := env.doJSON(t, http.MethodPost, "/api/v1/limits",
			map[string]any{"start": start, "end": end, "budget_kwh": -1.0}, nil)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("delete", func(t *testing.T) {
		rec := env.doJSON(t, http.MethodDelete, "/api/v1/limits/"+created.ID, nil, nil)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("status = %d", rec.Code)
		}

		rec = env.doJSON(t, http.MethodGet, "/api/v1/limits/active", nil, nil)
		if rec.Code != http.StatusNotFound {
			t.Errorf("active after delete status = %d, want 404", rec.Code)
		}
	})
}

func TestEnergyEndpoints(t *testing.T) {
	env := setupTestEnv(t)

	t.Run("today with no data", func(t *testing.T) {
		var summary energy.DaySummary
		rec := env.doJSON(t, http.MethodGet, "/api/v1/energy/today", nil, &summary)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
		}
		if summary.TotalKWh != 0 || summary.Limited {
			t.Errorf("summary = %+v", summary)
		}
	})

	t.Run("blocked devices", func(t *testing.T) {
		dev := env.createDevice(t, "Freezer", "home/freezer/telemetry", "home/freezer/set")
		env.blocked.Add(dev.ID)

		var blocked []blockedDevice
		rec := env.doJSON(t, http.MethodGet, "/api/v1/energy/blocked", nil, &blocked)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		if len(blocked) != 1 || blocked[0].Name != "Freezer" || blocked[0].Tier != "low" {
			t.Errorf("blocked = %+v", blocked)
		}
	})
}

func TestNew_RequiresDependencies(t *testing.T) {
	_, err := New(Deps{})
	if err == nil {
		t.Fatal("New() with empty deps should fail")
	}
}

func TestRequestID_Propagated(t *testing.T) {
	env := setupTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("X-Request-ID", "trace-123")
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Request-ID"); got != "trace-123" {
		t.Errorf("X-Request-ID = %q, want trace-123", got)
	}
}

func TestDeviceSamples(t *testing.T) {
	env := setupTestEnv(t)
	dev := env.createDevice(t, "Meter", "home/meter/telemetry", "")

	rec := env.doJSON(t, http.MethodGet,
		fmt.Sprintf("/api/v1/devices/%s/samples?limit=10", dev.ID), nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	rec = env.doJSON(t, http.MethodGet, "/api/v1/devices/"+dev.ID+"/samples?limit=0", nil, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("limit=0 status = %d, want 400", rec.Code)
	}
}
