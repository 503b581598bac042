package energy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wattgate/wattgate-core/internal/command"
	"github.com/wattgate/wattgate-core/internal/device"
)

// Broadcast channels consumed by the dashboard.
const (
	// ChannelTotalUpdate carries the running daily consumption total.
	ChannelTotalUpdate = "totalEnergiUpdate"

	// ChannelDeviceBlocked announces a device held OFF by shedding.
	ChannelDeviceBlocked = "device-blocked"
)

// SampleSource provides consumption sums from recorded usage samples.
// Implemented by telemetry.Repository.
type SampleSource interface {
	SumDeltaBetween(ctx context.Context, from, to time.Time) (float64, error)
}

// DeviceRegistry provides device listing and status updates.
// Implemented by device.Registry.
type DeviceRegistry interface {
	ListDevices(ctx context.Context) ([]device.Device, error)
	UpdateStatus(ctx context.Context, id string, status device.Status) error
}

// Commander emits device control commands.
// Implemented by command.Publisher.
type Commander interface {
	Publish(dev *device.Device, cmd command.Command)
}

// Broadcaster fans events out to live observers.
// Implemented by the WebSocket hub.
type Broadcaster interface {
	Broadcast(channel string, payload any)
}

// Mirror receives accounting figures for time-series storage.
// Implemented by influxdb.Client. Optional.
type Mirror interface {
	WriteEnergyTotal(totalKWh, budgetKWh, percent float64)
	WriteShedEvent(deviceID string, tier string, percent float64)
}

// Logger interface for accounting logging.
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

// TotalUpdate is the broadcast payload for the running daily total.
type TotalUpdate struct {
	Date      string  `json:"date"`
	TotalKWh  float64 `json:"total_kwh"`
	BudgetKWh float64 `json:"budget_kwh"`
	Percent   float64 `json:"percent"`
	Limited   bool    `json:"limited"`
}

// BlockedEvent is the broadcast payload when shedding blocks a device.
type BlockedEvent struct {
	DeviceID string  `json:"device_id"`
	Name     string  `json:"name"`
	Tier     string  `json:"tier"`
	Percent  float64 `json:"percent"`
}

// Accountant rolls usage samples up into a daily total, evaluates it
// against the active budget window, and drives load shedding when the
// budget is overrun.
//
// Evaluation runs after every recorded sample, not only at threshold
// crossings. Shedding is idempotent: devices already OFF are skipped
// and the blocked set absorbs repeated additions, so re-evaluating an
// unchanged state issues no commands.
type Accountant struct {
	samples     SampleSource
	limits      LimitRepository
	devices     DeviceRegistry
	commander   Commander
	blocked     *BlockedSet
	broadcaster Broadcaster
	mirror      Mirror
	location    *time.Location
	logger      Logger

	// now is the clock source, swappable in tests.
	now func() time.Time
}

// NewAccountant creates an energy accountant.
//
// location determines where "calendar day" boundaries fall; mirror may
// be nil when time-series storage is disabled.
func NewAccountant(
	samples SampleSource,
	limits LimitRepository,
	devices DeviceRegistry,
	commander Commander,
	blocked *BlockedSet,
	broadcaster Broadcaster,
	mirror Mirror,
	location *time.Location,
) *Accountant {
	if location == nil {
		location = time.Local
	}
	return &Accountant{
		samples:     samples,
		limits:      limits,
		devices:     devices,
		commander:   commander,
		blocked:     blocked,
		broadcaster: broadcaster,
		mirror:      mirror,
		location:    location,
		logger:      noopLogger{},
		now:         time.Now,
	}
}

// SetLogger sets the logger used for shedding and error reporting.
func (a *Accountant) SetLogger(logger Logger) {
	if logger != nil {
		a.logger = logger
	}
}

// SetClock overrides the clock source. Intended for tests.
func (a *Accountant) SetClock(now func() time.Time) {
	if now != nil {
		a.now = now
	}
}

// Blocked returns the shared blocked set.
func (a *Accountant) Blocked() *BlockedSet {
	return a.blocked
}

// Evaluate recomputes the current day's consumption, broadcasts the
// running total, and sheds load if an active limit is overrun.
//
// With no active limit the total is still broadcast but no policy
// action is taken.
func (a *Accountant) Evaluate(ctx context.Context) error {
	summary, err := a.Snapshot(ctx)
	if err != nil {
		return err
	}

	a.broadcaster.Broadcast(ChannelTotalUpdate, TotalUpdate{
		Date:      summary.Date,
		TotalKWh:  summary.TotalKWh,
		BudgetKWh: summary.BudgetKWh,
		Percent:   summary.Percent,
		Limited:   summary.Limited,
	})

	if a.mirror != nil {
		a.mirror.WriteEnergyTotal(summary.TotalKWh, summary.BudgetKWh, summary.Percent)
	}

	if !summary.Limited {
		return nil
	}

	tiers := TiersToShed(summary.Percent)
	if len(tiers) == 0 {
		return nil
	}

	return a.shed(ctx, tiers, summary.Percent)
}

// DaySummary is the current day's consumption against the active limit.
type DaySummary struct {
	Date      string  `json:"date"`
	TotalKWh  float64 `json:"total_kwh"`
	BudgetKWh float64 `json:"budget_kwh"`
	Percent   float64 `json:"percent"`
	Limited   bool    `json:"limited"`
	LimitID   string  `json:"limit_id,omitempty"`
}

// Snapshot computes the current day's consumption and budget standing
// without taking any policy action. Used by Evaluate and by the API's
// energy summary endpoint.
func (a *Accountant) Snapshot(ctx context.Context) (*DaySummary, error) {
	now := a.now().In(a.location)
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, a.location)
	// Next local midnight, not dayStart+24h: DST transition days are 23
	// or 25 hours long in the site timezone.
	dayEnd := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, a.location)

	total, err := a.samples.SumDeltaBetween(ctx, dayStart, dayEnd)
	if err != nil {
		return nil, fmt.Errorf("summing daily consumption: %w", err)
	}

	summary := &DaySummary{
		Date:     dayStart.Format("2006-01-02"),
		TotalKWh: total,
	}

	limit, err := a.limits.ActiveAt(ctx, now)
	if err != nil {
		if errors.Is(err, ErrLimitNotFound) {
			return summary, nil
		}
		return nil, fmt.Errorf("loading active limit: %w", err)
	}

	summary.BudgetKWh = limit.BudgetKWh
	summary.Percent = BudgetPercent(total, limit.BudgetKWh)
	summary.Limited = true
	summary.LimitID = limit.ID

	return summary, nil
}

// shed forces OFF every currently-ON device whose tier is in the
// forced-OFF set, blocking each so the reconciler cannot switch it
// back on.
//
// A status-update failure for one device is logged and does not stop
// shedding of the others.
func (a *Accountant) shed(ctx context.Context, tiers []device.Tier, percent float64) error {
	devices, err := a.devices.ListDevices(ctx)
	if err != nil {
		return fmt.Errorf("listing devices for shedding: %w", err)
	}

	forced := make(map[device.Tier]struct{}, len(tiers))
	for _, tier := range tiers {
		forced[tier] = struct{}{}
	}

	for i := range devices {
		dev := &devices[i]

		if _, ok := forced[dev.Tier]; !ok {
			continue
		}
		if dev.Status != device.StatusOn {
			continue
		}

		if err := a.devices.UpdateStatus(ctx, dev.ID, device.StatusOff); err != nil {
			a.logger.Error("failed to update status for shed device",
				"device_id", dev.ID,
				"error", err,
			)
			continue
		}

		a.blocked.Add(dev.ID)
		a.commander.Publish(dev, command.CommandOff)

		a.broadcaster.Broadcast(ChannelDeviceBlocked, BlockedEvent{
			DeviceID: dev.ID,
			Name:     dev.Name,
			Tier:     string(dev.Tier),
			Percent:  percent,
		})

		if a.mirror != nil {
			a.mirror.WriteShedEvent(dev.ID, string(dev.Tier), percent)
		}

		a.logger.Info("device shed",
			"device_id", dev.ID,
			"tier", string(dev.Tier),
			"percent", percent,
		)
	}

	return nil
}
