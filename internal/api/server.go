// Package api provides the HTTP REST API and WebSocket server for
// WattGate Core.
//
// It exposes device, schedule, and energy-limit management, manual
// device control, and real-time consumption updates to the dashboard.
//
// The server follows the same lifecycle pattern as other infrastructure
// components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/wattgate/wattgate-core/internal/command"
	"github.com/wattgate/wattgate-core/internal/device"
	"github.com/wattgate/wattgate-core/internal/energy"
	"github.com/wattgate/wattgate-core/internal/infrastructure/config"
	"github.com/wattgate/wattgate-core/internal/infrastructure/logging"
	"github.com/wattgate/wattgate-core/internal/schedule"
	"github.com/wattgate/wattgate-core/internal/telemetry"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight
// requests to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// TelemetrySubscriber keeps MQTT telemetry subscriptions in sync with
// device registrations. Optional; when nil, subscription management is
// left to the caller (new devices then need a restart to be ingested).
type TelemetrySubscriber interface {
	SubscribeDevice(topic string) error
	UnsubscribeDevice(topic string) error
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config      config.APIConfig
	WS          config.WebSocketConfig
	Logger      *logging.Logger
	Registry    *device.Registry
	Samples     telemetry.Repository
	Schedules   schedule.Repository
	Validator   *schedule.Validator
	Limits      energy.LimitRepository
	Accountant  *energy.Accountant
	Blocked     *energy.BlockedSet
	Publisher   *command.Publisher
	Subscriber  TelemetrySubscriber
	ExternalHub *Hub // If set, the server uses this hub instead of creating its own
	Version     string
}

// Server is the HTTP API server for WattGate Core.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg        config.APIConfig
	wsCfg      config.WebSocketConfig
	logger     *logging.Logger
	registry   *device.Registry
	samples    telemetry.Repository
	schedules  schedule.Repository
	validator  *schedule.Validator
	limits     energy.LimitRepository
	accountant *energy.Accountant
	blocked    *energy.BlockedSet
	publisher  *command.Publisher
	subscriber TelemetrySubscriber
	version    string

	server      *http.Server
	hub         *Hub
	externalHub bool               // true if hub was injected externally
	cancel      context.CancelFunc // cancels background goroutines on Close()
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Registry == nil {
		return nil, fmt.Errorf("device registry is required")
	}
	if deps.Samples == nil {
		return nil, fmt.Errorf("sample repository is required")
	}
	if deps.Schedules == nil {
		return nil, fmt.Errorf("schedule repository is required")
	}
	if deps.Limits == nil {
		return nil, fmt.Errorf("limit repository is required")
	}
	if deps.Publisher == nil {
		return nil, fmt.Errorf("command publisher is required")
	}
	if deps.Accountant == nil {
		return nil, fmt.Errorf("energy accountant is required")
	}
	if deps.Blocked == nil {
		return nil, fmt.Errorf("blocked set is required")
	}

	s := &Server{
		cfg:        deps.Config,
		wsCfg:      deps.WS,
		logger:     deps.Logger,
		registry:   deps.Registry,
		samples:    deps.Samples,
		schedules:  deps.Schedules,
		validator:  deps.Validator,
		limits:     deps.Limits,
		accountant: deps.Accountant,
		blocked:    deps.Blocked,
		publisher:  deps.Publisher,
		subscriber: deps.Subscriber,
		version:    deps.Version,
	}

	if s.validator == nil {
		s.validator = schedule.NewValidator(deps.Schedules)
	}

	// Use an externally-provided hub if available (needed when the
	// ingestion pipeline also broadcasts through it).
	if deps.ExternalHub != nil {
		s.hub = deps.ExternalHub
		s.externalHub = true
	}

	return s, nil
}

// Hub returns the WebSocket hub used for broadcasts.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Start begins listening for HTTP connections.
//
// It sets up the router, starts the WebSocket hub, and launches the
// HTTP listener in a background goroutine. The server can be stopped
// with Close().
func (s *Server) Start(ctx context.Context) error {
	// Create internal context so Close() can stop background
	// goroutines independently of the parent context.
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	// Create WebSocket hub (unless one was injected externally)
	if s.hub == nil {
		s.hub = NewHub(s.wsCfg, s.logger)
	}
	if !s.externalHub {
		go s.hub.Run(srvCtx)
	}

	router := s.buildRouter()

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           router,
		ReadTimeout:       s.cfg.GetReadTimeout(),
		ReadHeaderTimeout: s.cfg.GetReadTimeout(),
		WriteTimeout:      s.cfg.GetWriteTimeout(),
		IdleTimeout:       s.cfg.GetIdleTimeout(),
	}

	go func() {
		err := s.server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	s.logger.Info("API server started", "address", s.server.Addr)
	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	// Cancel background goroutines (hub)
	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running and responsive.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}

	return nil
}
