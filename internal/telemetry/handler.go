package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wattgate/wattgate-core/internal/device"
)

// ChannelLiveReading is the broadcast channel for per-sample live
// readings consumed by the dashboard.
const ChannelLiveReading = "data-terbaru"

// handleTimeout bounds the database work for a single inbound message.
const handleTimeout = 10 * time.Second

// DeviceResolver resolves an inbound topic to a registered device.
// Implemented by device.Registry.
type DeviceResolver interface {
	GetDeviceByTopic(ctx context.Context, topic string) (*device.Device, error)
}

// Accountant is invoked after each recorded sample to re-evaluate
// consumption against the active budget. Implemented by energy.Accountant.
type Accountant interface {
	Evaluate(ctx context.Context) error
}

// Broadcaster fans events out to live observers.
// Implemented by the WebSocket hub.
type Broadcaster interface {
	Broadcast(channel string, payload any)
}

// Mirror receives a copy of each sample for time-series storage.
// Implemented by influxdb.Client. Optional.
type Mirror interface {
	WriteUsageSample(deviceID string, volt, ampere, watt, energy, delta float64, recordedAt time.Time)
}

// Logger interface for telemetry logging.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is used when no logger is configured.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// LiveReading is the broadcast payload emitted for each recorded sample.
type LiveReading struct {
	DeviceID        string    `json:"device_id"`
	Name            string    `json:"name"`
	Volt            float64   `json:"volt"`
	Ampere          float64   `json:"ampere"`
	Watt            float64   `json:"watt"`
	Energy          float64   `json:"energy"`
	Delta           float64   `json:"delta"`
	Timestamp       time.Time `json:"timestamp"`
	ScheduleEnabled bool      `json:"schedule_enabled"`
	Tier            string    `json:"tier"`
}

// Handler ingests raw telemetry messages from the broker.
//
// One handler serves all devices: the topic identifies the sender. A
// failure processing one message never affects other messages; every
// discard is logged and swallowed so the transport layer does not
// retry.
type Handler struct {
	devices     DeviceResolver
	samples     Repository
	accountant  Accountant
	broadcaster Broadcaster
	mirror      Mirror
	logger      Logger
}

// NewHandler creates a telemetry ingestion handler.
//
// mirror may be nil when time-series storage is disabled.
func NewHandler(devices DeviceResolver, samples Repository, accountant Accountant, broadcaster Broadcaster, mirror Mirror) *Handler {
	return &Handler{
		devices:     devices,
		samples:     samples,
		accountant:  accountant,
		broadcaster: broadcaster,
		mirror:      mirror,
		logger:      noopLogger{},
	}
}

// SetLogger sets the logger used for discard and error reporting.
func (h *Handler) SetLogger(logger Logger) {
	if logger != nil {
		h.logger = logger
	}
}

// HandleMessage processes one inbound message.
//
// The signature matches mqtt.MessageHandler so the handler can be
// subscribed directly. Messages from unregistered topics, command
// echoes, and malformed payloads are discarded with a log entry; only
// persistence failures surface as errors.
func (h *Handler) HandleMessage(topic string, payload []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), handleTimeout)
	defer cancel()

	dev, err := h.devices.GetDeviceByTopic(ctx, topic)
	if err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			h.logger.Debug("telemetry from unregistered topic", "topic", topic)
			return nil
		}
		return fmt.Errorf("resolving device for topic %q: %w", topic, err)
	}

	reading, err := ParseReading(payload)
	if err != nil {
		if errors.Is(err, ErrCommandEcho) {
			h.logger.Debug("ignoring command echo", "device_id", dev.ID, "topic", topic)
			return nil
		}
		h.logger.Warn("discarding malformed telemetry",
			"device_id", dev.ID,
			"topic", topic,
			"error", err,
		)
		return nil
	}

	sample, err := h.recordSample(ctx, dev, reading)
	if err != nil {
		return fmt.Errorf("recording sample for device %s: %w", dev.ID, err)
	}

	if h.mirror != nil {
		h.mirror.WriteUsageSample(sample.DeviceID,
			sample.Volt, sample.Ampere, sample.Watt, sample.Energy, sample.Delta,
			sample.RecordedAt)
	}

	h.broadcaster.Broadcast(ChannelLiveReading, LiveReading{
		DeviceID:        dev.ID,
		Name:            dev.Name,
		Volt:            sample.Volt,
		Ampere:          sample.Ampere,
		Watt:            sample.Watt,
		Energy:          sample.Energy,
		Delta:           sample.Delta,
		Timestamp:       sample.RecordedAt,
		ScheduleEnabled: dev.ScheduleEnabled,
		Tier:            string(dev.Tier),
	})

	if err := h.accountant.Evaluate(ctx); err != nil {
		h.logger.Error("energy evaluation failed",
			"device_id", dev.ID,
			"error", err,
		)
	}

	return nil
}

// recordSample derives the consumption delta and persists the sample.
//
// delta = max(0, energy - lastEnergy); 0 for a device's first sample.
// The floor absorbs cumulative counter resets.
func (h *Handler) recordSample(ctx context.Context, dev *device.Device, reading *Reading) (*UsageSample, error) {
	var delta float64
	last, err := h.samples.LatestByDevice(ctx, dev.ID)
	switch {
	case err == nil:
		delta = reading.Energy - last.Energy
		if delta < 0 {
			delta = 0
		}
	case errors.Is(err, ErrSampleNotFound):
		delta = 0
	default:
		return nil, fmt.Errorf("loading last sample: %w", err)
	}

	sample := &UsageSample{
		ID:         GenerateID(),
		DeviceID:   dev.ID,
		Volt:       reading.Volt,
		Ampere:     reading.Ampere,
		Watt:       reading.Watt,
		Energy:     reading.Energy,
		Delta:      delta,
		RecordedAt: time.Now().UTC(),
	}

	if err := h.samples.Insert(ctx, sample); err != nil {
		return nil, err
	}

	return sample, nil
}
