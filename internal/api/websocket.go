package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wattgate/wattgate-core/internal/infrastructure/config"
	"github.com/wattgate/wattgate-core/internal/infrastructure/logging"
)

// WebSocket message types.
const (
	WSTypeSubscribe   = "subscribe"
	WSTypeUnsubscribe = "unsubscribe"
	WSTypePing        = "ping"
	WSTypePong        = "pong"
	WSTypeEvent       = "event"
	WSTypeResponse    = "response"
	WSTypeError       = "error"
)

// wsSendBufferSize is the per-client outbound queue length. Clients
// that cannot drain the queue are disconnected.
const wsSendBufferSize = 256

// WSMessage is the envelope for all WebSocket frames.
type WSMessage struct {
	Type      string          `json:"type"`
	ID        string          `json:"id,omitempty"`
	Channel   string          `json:"channel,omitempty"`
	Timestamp string          `json:"timestamp,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// WSSubscribePayload lists the channels a client wants to receive.
type WSSubscribePayload struct {
	Channels []string `json:"channels"`
}

// Hub manages connected WebSocket clients and fans broadcast events
// out to them.
//
// Each domain component (telemetry ingestion, the energy accountant,
// the command publisher) pushes events into the hub through
// Broadcast(); clients only receive channels they subscribed to.
//
// Thread Safety: All exported methods are safe for concurrent use.
type Hub struct {
	cfg    config.WebSocketConfig
	logger *logging.Logger

	mu      sync.RWMutex
	clients map[*WSClient]struct{}
}

// WSClient represents a single connected WebSocket client.
type WSClient struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	mu            sync.Mutex
	subscriptions map[string]struct{}
	closed        bool
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origin enforcement happens in the CORS middleware layer; the
	// upgrade itself accepts any origin.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// NewHub creates a WebSocket hub. Call Run() to start it.
func NewHub(cfg config.WebSocketConfig, logger *logging.Logger) *Hub {
	return &Hub{
		cfg:     cfg,
		logger:  logger,
		clients: make(map[*WSClient]struct{}),
	}
}

// Run blocks until the context is cancelled, then closes all clients.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()
	h.closeAll()
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends an event to every client subscribed to the channel.
//
// The payload is marshalled once and queued on each client's send
// buffer; slow clients are dropped rather than blocking the caller.
func (h *Hub) Broadcast(channel string, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("failed to marshal broadcast payload", "channel", channel, "error", err)
		return
	}

	msg := WSMessage{
		Type:      WSTypeEvent,
		Channel:   channel,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Payload:   raw,
	}
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("failed to marshal broadcast envelope", "channel", channel, "error", err)
		return
	}

	// Snapshot clients so sends happen outside the lock.
	h.mu.RLock()
	clients := make([]*WSClient, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		if c.isSubscribed(channel) {
			c.trySend(data)
		}
	}
}

// register adds a client to the hub.
func (h *Hub) register(c *WSClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	count := len(h.clients)
	h.mu.Unlock()

	h.logger.Debug("websocket client connected", "clients", count)
}

// unregister removes a client and closes its send channel exactly once.
func (h *Hub) unregister(c *WSClient) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
	}
	count := len(h.clients)
	h.mu.Unlock()

	if ok {
		c.close()
		h.logger.Debug("websocket client disconnected", "clients", count)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	clients := make([]*WSClient, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.clients = make(map[*WSClient]struct{})
	h.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
}

// handleWebSocket upgrades the HTTP connection and starts the client pumps.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err, "remote", r.RemoteAddr)
		return
	}

	client := &WSClient{
		hub:           s.hub,
		conn:          conn,
		send:          make(chan []byte, wsSendBufferSize),
		subscriptions: make(map[string]struct{}),
	}
	s.hub.register(client)

	go client.writePump()
	go client.readPump()
}

func (c *WSClient) isSubscribed(channel string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.subscriptions[channel]
	return ok
}

// trySend queues data without blocking. A full buffer means the client
// is too slow; it gets disconnected.
func (c *WSClient) trySend(data []byte) {
	defer func() {
		// Send on a closed channel races with unregister; treat it as
		// a normal disconnect.
		_ = recover()
	}()

	select {
	case c.send <- data:
	default:
		c.hub.logger.Warn("websocket client send buffer full, disconnecting")
		go c.hub.unregister(c)
	}
}

// close shuts the send channel and underlying connection exactly once.
func (c *WSClient) close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	close(c.send)
	c.conn.Close()
}

// readPump reads client frames until the connection drops.
func (c *WSClient) readPump() {
	defer c.hub.unregister(c)

	maxSize := int64(c.hub.cfg.MaxMessageSize)
	if maxSize <= 0 {
		maxSize = 4096
	}
	c.conn.SetReadLimit(maxSize)

	pongTimeout := time.Duration(c.hub.cfg.PongTimeout) * time.Second
	if pongTimeout <= 0 {
		pongTimeout = 10 * time.Second
	}
	pingInterval := time.Duration(c.hub.cfg.PingInterval) * time.Second
	if pingInterval <= 0 {
		pingInterval = 30 * time.Second
	}

	deadline := pingInterval + pongTimeout
	//nolint:errcheck // Deadline errors surface as read failures below
	c.conn.SetReadDeadline(time.Now().Add(deadline))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(deadline))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		c.handleMessage(data)
	}
}

// writePump writes queued frames and keep-alive pings.
func (c *WSClient) writePump() {
	pingInterval := time.Duration(c.hub.cfg.PingInterval) * time.Second
	if pingInterval <= 0 {
		pingInterval = 30 * time.Second
	}
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			if !ok {
				//nolint:errcheck // Connection is going away
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage dispatches a single inbound client frame.
func (c *WSClient) handleMessage(data []byte) {
	var msg WSMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		c.sendError(msg.ID, "invalid message format")
		return
	}

	switch msg.Type {
	case WSTypeSubscribe:
		c.handleSubscribe(msg)
	case WSTypeUnsubscribe:
		c.handleUnsubscribe(msg)
	case WSTypePing:
		c.sendResponse(msg.ID, WSTypePong, nil)
	default:
		c.sendError(msg.ID, "unknown message type: "+msg.Type)
	}
}

func (c *WSClient) handleSubscribe(msg WSMessage) {
	var payload WSSubscribePayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		c.sendError(msg.ID, "invalid subscribe payload")
		return
	}

	c.mu.Lock()
	for _, channel := range payload.Channels {
		c.subscriptions[channel] = struct{}{}
	}
	c.mu.Unlock()

	c.sendResponse(msg.ID, WSTypeResponse, map[string]any{"subscribed": payload.Channels})
}

func (c *WSClient) handleUnsubscribe(msg WSMessage) {
	var payload WSSubscribePayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		c.sendError(msg.ID, "invalid unsubscribe payload")
		return
	}

	c.mu.Lock()
	for _, channel := range payload.Channels {
		delete(c.subscriptions, channel)
	}
	c.mu.Unlock()

	c.sendResponse(msg.ID, WSTypeResponse, map[string]any{"unsubscribed": payload.Channels})
}

func (c *WSClient) sendResponse(id, msgType string, payload any) {
	msg := WSMessage{
		Type:      msgType,
		ID:        id,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return
		}
		msg.Payload = raw
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	c.trySend(data)
}

func (c *WSClient) sendError(id, message string) {
	c.sendResponse(id, WSTypeError, map[string]string{"message": message})
}
