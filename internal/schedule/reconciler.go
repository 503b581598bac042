package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/wattgate/wattgate-core/internal/command"
	"github.com/wattgate/wattgate-core/internal/device"
)

// DeviceRegistry provides device listing and status updates.
// Implemented by device.Registry.
type DeviceRegistry interface {
	ListDevices(ctx context.Context) ([]device.Device, error)
	UpdateStatus(ctx context.Context, id string, status device.Status) error
}

// BlockedSet answers whether a device is vetoed by load shedding.
// Implemented by energy.BlockedSet.
type BlockedSet interface {
	Contains(deviceID string) bool
}

// Commander emits device control commands.
// Implemented by command.Publisher.
type Commander interface {
	Publish(dev *device.Device, cmd command.Command)
}

// Logger interface for reconciler logging.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is used when no logger is configured.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Reconciler periodically drives every device to the state its active
// schedules dictate.
//
// Each tick evaluates devices independently: a device inside one of
// its schedule intervals and currently OFF is switched ON unless the
// blocked set vetoes it; a device outside all its intervals and
// currently ON is switched OFF, block or no block (a scheduled-off
// always proceeds). Devices already in their target state are left
// alone, so back-to-back ticks with unchanged state issue no commands.
//
// A tick that fails to read the database logs the error and waits for
// the next tick; the loop never stops before its context is cancelled.
type Reconciler struct {
	schedules Repository
	devices   DeviceRegistry
	blocked   BlockedSet
	commander Commander
	interval  time.Duration
	location  *time.Location
	logger    Logger

	// now is the clock source, swappable in tests.
	now func() time.Time
}

// NewReconciler creates a schedule reconciler.
//
// interval is the tick period; location determines where minute-of-day
// boundaries fall.
func NewReconciler(
	schedules Repository,
	devices DeviceRegistry,
	blocked BlockedSet,
	commander Commander,
	interval time.Duration,
	location *time.Location,
) *Reconciler {
	if interval <= 0 {
		interval = 60 * time.Second
	}
	if location == nil {
		location = time.Local
	}
	return &Reconciler{
		schedules: schedules,
		devices:   devices,
		blocked:   blocked,
		commander: commander,
		interval:  interval,
		location:  location,
		logger:    noopLogger{},
		now:       time.Now,
	}
}

// SetLogger sets the logger used for transition and error reporting.
func (r *Reconciler) SetLogger(logger Logger) {
	if logger != nil {
		r.logger = logger
	}
}

// SetClock overrides the clock source. Intended for tests.
func (r *Reconciler) SetClock(now func() time.Time) {
	if now != nil {
		r.now = now
	}
}

// Run reconciles immediately, then on every tick until the context is
// cancelled. It blocks; run it in its own goroutine.
func (r *Reconciler) Run(ctx context.Context) {
	r.logger.Info("schedule reconciler started", "interval", r.interval.String())

	if err := r.Reconcile(ctx); err != nil {
		r.logger.Error("schedule reconciliation failed", "error", err)
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("schedule reconciler stopped")
			return
		case <-ticker.C:
			if err := r.Reconcile(ctx); err != nil {
				r.logger.Error("schedule reconciliation failed", "error", err)
			}
		}
	}
}

// Reconcile runs a single reconciliation pass. Callers that need
// schedule state applied immediately can invoke it directly instead of
// waiting for the next tick.
func (r *Reconciler) Reconcile(ctx context.Context) error {
	scheduled, err := r.scheduledDeviceIDs(ctx)
	if err != nil {
		return err
	}

	devices, err := r.devices.ListDevices(ctx)
	if err != nil {
		return fmt.Errorf("listing devices: %w", err)
	}

	for i := range devices {
		r.reconcileDevice(ctx, &devices[i], scheduled)
	}

	return nil
}

// scheduledDeviceIDs returns the set of device ids with an active
// schedule whose interval contains the current minute-of-day.
func (r *Reconciler) scheduledDeviceIDs(ctx context.Context) (map[string]struct{}, error) {
	schedules, err := r.schedules.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing active schedules: %w", err)
	}

	minute := MinuteOfDay(r.now().In(r.location))

	scheduled := make(map[string]struct{})
	for i := range schedules {
		contains, err := schedules[i].ContainsMinute(minute)
		if err != nil {
			r.logger.Warn("skipping schedule with malformed interval",
				"schedule_id", schedules[i].ID,
				"error", err,
			)
			continue
		}
		if contains {
			scheduled[schedules[i].DeviceID] = struct{}{}
		}
	}

	return scheduled, nil
}

// reconcileDevice drives one device toward its scheduled state. A
// failure for one device is logged and does not affect the others.
func (r *Reconciler) reconcileDevice(ctx context.Context, dev *device.Device, scheduled map[string]struct{}) {
	_, inWindow := scheduled[dev.ID]

	switch {
	case inWindow && dev.Status != device.StatusOn:
		if r.blocked.Contains(dev.ID) {
			r.logger.Info("scheduled ON vetoed by load-shedding block",
				"device_id", dev.ID,
			)
			return
		}
		r.transition(ctx, dev, device.StatusOn, command.CommandOn)

	case !inWindow && dev.Status == device.StatusOn:
		// Scheduled-off always proceeds, blocked or not.
		r.transition(ctx, dev, device.StatusOff, command.CommandOff)
	}
}

// transition records the new status and emits the matching command.
func (r *Reconciler) transition(ctx context.Context, dev *device.Device, status device.Status, cmd command.Command) {
	if err := r.devices.UpdateStatus(ctx, dev.ID, status); err != nil {
		r.logger.Error("failed to update device status",
			"device_id", dev.ID,
			"status", string(status),
			"error", err,
		)
		return
	}

	r.commander.Publish(dev, cmd)

	r.logger.Info("schedule transition",
		"device_id", dev.ID,
		"status", string(status),
	)
}
