package device

import (
	"context"
	"fmt"
	"sync"
)

// Logger is the subset of logging.Logger the registry needs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Registry is the device access point for the rest of the core. It
// fronts a Repository with an in-memory cache carrying two indexes:
// by ID for API lookups, and by telemetry topic for resolving inbound
// MQTT messages without touching SQLite on every sample.
//
// Write operations go through to the repository first and mutate the
// cache only on success. Safe for concurrent use.
type Registry struct {
	repo Repository

	cacheMu sync.RWMutex
	byID    map[string]*Device
	byTopic map[string]*Device

	logger Logger
}

// NewRegistry wraps repo with an empty cache. Call RefreshCache at
// startup to warm it.
func NewRegistry(repo Repository) *Registry {
	return &Registry{
		repo:    repo,
		byID:    make(map[string]*Device),
		byTopic: make(map[string]*Device),
		logger:  noopLogger{},
	}
}

// SetLogger replaces the default no-op logger.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// RefreshCache rebuilds both indexes from the repository.
func (r *Registry) RefreshCache(ctx context.Context) error {
	devices, err := r.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("loading devices: %w", err)
	}

	r.cacheMu.Lock()
	defer r.cacheMu.Unlock()

	r.byID = make(map[string]*Device, len(devices))
	r.byTopic = make(map[string]*Device, len(devices))
	for i := range devices {
		d := devices[i].DeepCopy()
		r.byID[d.ID] = d
		r.byTopic[d.Topic] = d
	}

	r.logger.Info("device cache loaded", "count", len(devices))
	return nil
}

// cacheStore inserts or replaces a device in both indexes. Callers
// pass a value the cache now owns.
func (r *Registry) cacheStore(d *Device) {
	r.cacheMu.Lock()
	cpy := d.DeepCopy()
	r.byID[cpy.ID] = cpy
	r.byTopic[cpy.Topic] = cpy
	r.cacheMu.Unlock()
}

// GetDevice looks a device up by ID, hitting the repository only on a
// cache miss. The result is a copy the caller may mutate freely.
// Returns ErrDeviceNotFound for unknown IDs.
func (r *Registry) GetDevice(ctx context.Context, id string) (*Device, error) {
	r.cacheMu.RLock()
	cached, ok := r.byID[id]
	r.cacheMu.RUnlock()
	if ok {
		return cached.DeepCopy(), nil
	}

	device, err := r.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	r.cacheStore(device)
	return device, nil
}

// GetDeviceByTopic resolves the device publishing on a telemetry
// topic. This sits on the ingestion hot path, so the cache answers
// almost every call. Returns ErrDeviceNotFound for unknown topics.
func (r *Registry) GetDeviceByTopic(ctx context.Context, topic string) (*Device, error) {
	r.cacheMu.RLock()
	cached, ok := r.byTopic[topic]
	r.cacheMu.RUnlock()
	if ok {
		return cached.DeepCopy(), nil
	}

	device, err := r.repo.GetByTopic(ctx, topic)
	if err != nil {
		return nil, err
	}
	r.cacheStore(device)
	return device, nil
}

// ListDevices returns copies of every known device.
func (r *Registry) ListDevices(ctx context.Context) ([]Device, error) {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()

	if len(r.byID) > 0 {
		devices := make([]Device, 0, len(r.byID))
		for _, d := range r.byID {
			devices = append(devices, *d.DeepCopy())
		}
		return devices, nil
	}

	return r.repo.List(ctx)
}

// GetDevicesByTier returns copies of every device in a shedding tier.
func (r *Registry) GetDevicesByTier(ctx context.Context, tier Tier) ([]Device, error) {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()

	if len(r.byID) > 0 {
		var devices []Device
		for _, d := range r.byID {
			if d.Tier == tier {
				devices = append(devices, *d.DeepCopy())
			}
		}
		return devices, nil
	}

	return r.repo.ListByTier(ctx, tier)
}

// CreateDevice validates and persists a new device, filling in an ID,
// OFF status, and the none tier where the caller left them empty.
func (r *Registry) CreateDevice(ctx context.Context, device *Device) error {
	if device.ID == "" {
		device.ID = GenerateID()
	}
	if device.Status == "" {
		device.Status = StatusOff
	}
	if device.Tier == "" {
		device.Tier = TierNone
	}

	if err := ValidateDevice(device); err != nil {
		return err
	}
	if err := r.repo.Create(ctx, device); err != nil {
		return err
	}

	r.cacheStore(device)
	r.logger.Info("device created", "device_id", device.ID, "topic", device.Topic)
	return nil
}

// UpdateDevice validates and persists changes to an existing device,
// dropping the stale topic index entry when the topic moved.
func (r *Registry) UpdateDevice(ctx context.Context, device *Device) error {
	if err := ValidateDevice(device); err != nil {
		return err
	}
	if err := r.repo.Update(ctx, device); err != nil {
		return err
	}

	r.cacheMu.Lock()
	if old, ok := r.byID[device.ID]; ok && old.Topic != device.Topic {
		delete(r.byTopic, old.Topic)
	}
	r.cacheMu.Unlock()
	r.cacheStore(device)

	r.logger.Info("device updated", "device_id", device.ID)
	return nil
}

// DeleteDevice removes a device from the store and both indexes.
func (r *Registry) DeleteDevice(ctx context.Context, id string) error {
	if err := r.repo.Delete(ctx, id); err != nil {
		return err
	}

	r.cacheMu.Lock()
	if old, ok := r.byID[id]; ok {
		delete(r.byTopic, old.Topic)
		delete(r.byID, id)
	}
	r.cacheMu.Unlock()

	r.logger.Info("device deleted", "device_id", id)
	return nil
}

// UpdateStatus writes a device's power state through to the store and
// the cache.
func (r *Registry) UpdateStatus(ctx context.Context, id string, status Status) error {
	if err := r.repo.UpdateStatus(ctx, id, status); err != nil {
		return err
	}

	r.cacheMu.Lock()
	if d, ok := r.byID[id]; ok {
		d.Status = status
	}
	r.cacheMu.Unlock()

	return nil
}

// Count returns the number of cached devices.
func (r *Registry) Count() int {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()
	return len(r.byID)
}
