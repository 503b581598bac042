package command

import (
	"encoding/json"

	"github.com/wattgate/wattgate-core/internal/device"
)

// Command is an outbound control instruction for a device.
type Command string

// Commands understood by device firmware.
const (
	CommandOn  Command = "ON"
	CommandOff Command = "OFF"
)

// ChannelStatusUpdated is the broadcast channel for device status
// transitions consumed by the dashboard.
const ChannelStatusUpdated = "status-updated"

// Transport publishes raw messages to the broker.
// Implemented by mqtt.Client.
type Transport interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// Broadcaster fans events out to live observers.
// Implemented by the WebSocket hub.
type Broadcaster interface {
	Broadcast(channel string, payload any)
}

// Logger interface for command logging.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

// noopLogger is used when no logger is configured.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// StatusUpdate is the broadcast payload for a device status transition.
type StatusUpdate struct {
	DeviceID string `json:"device_id"`
	Name     string `json:"name"`
	Status   string `json:"status"`
}

// commandPayload is the wire format published to a device's control topic.
type commandPayload struct {
	Command string `json:"command"`
}

// Publisher is the single choke point through which decided device
// states reach the outside world. Load shedding, schedule
// reconciliation, and manual control all emit through it; no other
// component talks to the transport or the UI channel directly.
//
// Sends are fire-and-forget: a transport failure is logged as a
// warning and never rolls back the already-committed status change,
// and the UI broadcast is emitted regardless.
type Publisher struct {
	transport   Transport
	broadcaster Broadcaster
	qos         byte
	logger      Logger
}

// NewPublisher creates a command publisher.
//
// qos is the QoS level for outbound control messages, from config.
func NewPublisher(transport Transport, broadcaster Broadcaster, qos byte) *Publisher {
	return &Publisher{
		transport:   transport,
		broadcaster: broadcaster,
		qos:         qos,
		logger:      noopLogger{},
	}
}

// SetLogger sets the logger used for warnings.
func (p *Publisher) SetLogger(logger Logger) {
	if logger != nil {
		p.logger = logger
	}
}

// Publish sends a command to the device's control topic and broadcasts
// the status transition to UI observers.
//
// A device without a control topic is monitor-only: the command is
// dropped with a warning, but the broadcast still goes out so the
// dashboard reflects the recorded status.
func (p *Publisher) Publish(dev *device.Device, cmd Command) {
	if dev.Controllable() {
		payload, err := json.Marshal(commandPayload{Command: string(cmd)})
		if err != nil {
			p.logger.Warn("failed to encode command payload",
				"device_id", dev.ID,
				"command", string(cmd),
				"error", err,
			)
		} else if err := p.transport.Publish(*dev.ControlTopic, payload, p.qos, false); err != nil {
			p.logger.Warn("command publish failed",
				"device_id", dev.ID,
				"topic", *dev.ControlTopic,
				"command", string(cmd),
				"error", err,
			)
		} else {
			p.logger.Debug("command published",
				"device_id", dev.ID,
				"topic", *dev.ControlTopic,
				"command", string(cmd),
			)
		}
	} else {
		p.logger.Warn("device has no control topic, command dropped",
			"device_id", dev.ID,
			"command", string(cmd),
		)
	}

	p.broadcaster.Broadcast(ChannelStatusUpdated, StatusUpdate{
		DeviceID: dev.ID,
		Name:     dev.Name,
		Status:   string(cmd),
	})
}
