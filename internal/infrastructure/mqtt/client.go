package mqtt

import (
	"context"
	"fmt"
	"sync"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/wattgate/wattgate-core/internal/infrastructure/config"
)

// Client is the broker connection used by every MQTT consumer in the
// core. It wraps paho.mqtt.golang and adds subscription tracking (so
// device topics survive a reconnect), LWT status publishing, and panic
// recovery around message handlers.
//
// All methods are safe for concurrent use.
type Client struct {
	client  pahomqtt.Client
	options *pahomqtt.ClientOptions
	cfg     config.MQTTConfig

	subsMu        sync.RWMutex
	subscriptions map[string]subscription

	stateMu   sync.RWMutex
	connected bool

	// hookMu guards the optional callbacks and logger.
	hookMu       sync.RWMutex
	onConnect    func()
	onDisconnect func(err error)
	logger       Logger
}

// Logger is the subset of logging.Logger this package needs.
type Logger interface {
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
}

// subscription remembers enough to re-subscribe after a reconnect.
type subscription struct {
	topic   string
	qos     byte
	handler MessageHandler
}

// MessageHandler receives inbound messages. Paho invokes handlers on
// its own goroutines, so they must not block for long. A returned
// error is logged; it does not affect acknowledgment.
type MessageHandler func(topic string, payload []byte) error

// Connect dials the broker described by cfg and returns a ready
// client. Auto-reconnect and the LWT are configured before the first
// connection attempt so a crash at any point leaves a correct offline
// status behind. Fails if the broker does not answer within the
// connect timeout.
func Connect(cfg config.MQTTConfig) (*Client, error) {
	opts := buildClientOptions(cfg)
	configureLWT(opts, cfg.Broker.ClientID)

	c := &Client{
		cfg:           cfg,
		options:       opts,
		subscriptions: make(map[string]subscription),
	}
	opts.SetOnConnectHandler(func(_ pahomqtt.Client) { c.handleConnect() })
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) { c.handleDisconnect(err) })

	c.client = pahomqtt.NewClient(opts)
	token := c.client.Connect()
	if !token.WaitTimeout(defaultConnectTimeout) {
		return nil, fmt.Errorf("%w: timeout after %v", ErrConnectionFailed, defaultConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	// The OnConnect handler runs asynchronously; mark connected here so
	// IsConnected is true as soon as Connect returns.
	c.setConnected(true)

	return c, nil
}

// Close publishes a graceful offline status (distinct from the LWT
// crash status) and disconnects. Safe on a zero-value client.
func (c *Client) Close() error {
	if c.client == nil {
		return nil
	}

	if c.IsConnected() {
		token := c.client.Publish(
			Topics{}.SystemStatus(),
			byte(c.cfg.QoS),
			true,
			buildOfflinePayload(c.cfg.Broker.ClientID),
		)
		token.WaitTimeout(defaultPublishTimeout)
	}

	c.client.Disconnect(defaultDisconnectQuiesce)
	c.setConnected(false)
	return nil
}

// HealthCheck reports whether the broker connection is alive.
func (c *Client) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("mqtt health check: %w", err)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}
	return nil
}

// IsConnected returns the last known connection state.
func (c *Client) IsConnected() bool {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.connected && c.client.IsConnected()
}

// SetOnConnect registers a callback invoked on the initial connection
// and every subsequent reconnect.
func (c *Client) SetOnConnect(fn func()) {
	c.hookMu.Lock()
	c.onConnect = fn
	c.hookMu.Unlock()
}

// SetOnDisconnect registers a callback invoked when the connection
// drops, with the reason.
func (c *Client) SetOnDisconnect(fn func(err error)) {
	c.hookMu.Lock()
	c.onDisconnect = fn
	c.hookMu.Unlock()
}

// SetLogger attaches a logger for handler errors and recovered
// panics. Without one, handler failures are dropped.
func (c *Client) SetLogger(logger Logger) {
	c.hookMu.Lock()
	c.logger = logger
	c.hookMu.Unlock()
}

func (c *Client) setConnected(v bool) {
	c.stateMu.Lock()
	c.connected = v
	c.stateMu.Unlock()
}

func (c *Client) handleConnect() {
	c.setConnected(true)

	c.restoreSubscriptions()
	c.publishOnlineStatus()

	c.hookMu.RLock()
	fn := c.onConnect
	c.hookMu.RUnlock()
	if fn != nil {
		fn()
	}
}

func (c *Client) handleDisconnect(err error) {
	c.setConnected(false)

	c.hookMu.RLock()
	fn := c.onDisconnect
	c.hookMu.RUnlock()
	if fn != nil {
		fn(err)
	}
}

// restoreSubscriptions replays tracked subscriptions after a
// reconnect. Failures here are swallowed; paho retries on the next
// reconnect cycle.
func (c *Client) restoreSubscriptions() {
	c.subsMu.RLock()
	defer c.subsMu.RUnlock()

	for _, sub := range c.subscriptions {
		c.client.Subscribe(sub.topic, sub.qos, c.wrapHandler(sub.handler))
	}
}

func (c *Client) publishOnlineStatus() {
	payload := buildOnlinePayload(c.cfg.Broker.ClientID)
	c.client.Publish(Topics{}.SystemStatus(), byte(c.cfg.QoS), true, payload)
}

func (c *Client) getLogger() Logger {
	c.hookMu.RLock()
	defer c.hookMu.RUnlock()
	return c.logger
}

// wrapHandler adapts a MessageHandler to paho's signature, recovering
// panics and logging handler errors.
func (c *Client) wrapHandler(handler MessageHandler) pahomqtt.MessageHandler {
	return func(_ pahomqtt.Client, msg pahomqtt.Message) {
		defer func() {
			if r := recover(); r != nil {
				if logger := c.getLogger(); logger != nil {
					logger.Error("MQTT handler panic recovered", "topic", msg.Topic(), "panic", r)
				}
			}
		}()

		if err := handler(msg.Topic(), msg.Payload()); err != nil {
			if logger := c.getLogger(); logger != nil {
				logger.Warn("MQTT handler returned error", "topic", msg.Topic(), "error", err)
			}
		}
	}
}
