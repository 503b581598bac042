// WattGate Core - Home Energy Automation
//
// The service ingests smart-plug telemetry over MQTT, tracks daily
// consumption against owner-defined energy budgets, sheds low-priority
// loads when a budget is overrun, and drives owner-defined daily
// schedules. Everything is wired together here.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/wattgate/wattgate-core/migrations"

	"github.com/wattgate/wattgate-core/internal/api"
	"github.com/wattgate/wattgate-core/internal/command"
	"github.com/wattgate/wattgate-core/internal/device"
	"github.com/wattgate/wattgate-core/internal/energy"
	"github.com/wattgate/wattgate-core/internal/infrastructure/config"
	"github.com/wattgate/wattgate-core/internal/infrastructure/database"
	"github.com/wattgate/wattgate-core/internal/infrastructure/influxdb"
	"github.com/wattgate/wattgate-core/internal/infrastructure/logging"
	"github.com/wattgate/wattgate-core/internal/infrastructure/mqtt"
	"github.com/wattgate/wattgate-core/internal/schedule"
	"github.com/wattgate/wattgate-core/internal/telemetry"
)

// Build metadata, injected via
// go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123".
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "wattgate: %v\n", err)
		os.Exit(1)
	}
}

// run owns the full startup and shutdown sequence. Kept out of main so
// every exit path goes through the deferred cleanups.
func run(ctx context.Context) error {
	// Bootstrap logger; replaced once config is available.
	log := logging.Default()
	log.Info("starting WattGate Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	cfgPath := configPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log = logging.New(cfg.Logging, version)
	log.Info("config loaded",
		"path", cfgPath,
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if cerr := db.Close(); cerr != nil {
			log.Error("database close failed", "error", cerr)
		}
	}()

	if err := db.Migrate(ctx); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	log.Info("database ready", "path", cfg.Database.Path)

	registry := device.NewRegistry(device.NewSQLiteRepository(db.DB))
	registry.SetLogger(log)
	if err := registry.RefreshCache(ctx); err != nil {
		return fmt.Errorf("loading device registry: %w", err)
	}
	log.Info("device registry ready", "devices", registry.Count())

	sampleRepo := telemetry.NewSQLiteRepository(db.DB)
	scheduleRepo := schedule.NewSQLiteRepository(db.DB)
	limitRepo := energy.NewSQLiteLimitRepository(db.DB)

	mqttClient, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting MQTT")
		if cerr := mqttClient.Close(); cerr != nil {
			log.Error("MQTT close failed", "error", cerr)
		}
	}()
	mqttClient.SetLogger(log)
	mqttClient.SetOnConnect(func() { log.Info("MQTT connection up") })
	mqttClient.SetOnDisconnect(func(err error) { log.Warn("MQTT connection lost", "error", err) })
	log.Info("MQTT ready",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	influxClient, closeInflux, err := setupMirror(cfg, log)
	if err != nil {
		return err
	}
	defer closeInflux()

	// Assign the mirror interfaces only when a client exists; a typed
	// nil pointer would defeat the consumers' nil checks.
	var telemetryMirror telemetry.Mirror
	var energyMirror energy.Mirror
	if influxClient != nil {
		telemetryMirror = influxClient
		energyMirror = influxClient
	}

	// One hub instance serves ingestion, accounting, command
	// confirmations, and the API's websocket endpoint.
	hub := api.NewHub(cfg.WebSocket, log)
	go hub.Run(ctx)

	// All device control flows through this one publisher.
	publisher := command.NewPublisher(mqttClient, hub, byte(cfg.MQTT.QoS))
	publisher.SetLogger(log)

	blocked := energy.NewBlockedSet()
	accountant := energy.NewAccountant(
		sampleRepo, limitRepo, registry, publisher,
		blocked, hub, energyMirror, cfg.Location(),
	)
	accountant.SetLogger(log)

	ingest := telemetry.NewHandler(registry, sampleRepo, accountant, hub, telemetryMirror)
	ingest.SetLogger(log)

	subscriber := &telemetrySubscriber{
		client:  mqttClient,
		handler: ingest,
		qos:     byte(cfg.MQTT.QoS),
	}
	if err := subscribeDeviceTopics(ctx, registry, subscriber, log); err != nil {
		return fmt.Errorf("subscribing to device topics: %w", err)
	}

	reconciler := schedule.NewReconciler(
		scheduleRepo, registry, blocked, publisher,
		cfg.GetReconcileInterval(), cfg.Location(),
	)
	reconciler.SetLogger(log)
	go reconciler.Run(ctx)
	log.Info("schedule reconciler running", "interval", cfg.GetReconcileInterval())

	server, err := api.New(api.Deps{
		Config:      cfg.API,
		WS:          cfg.WebSocket,
		Logger:      log,
		Registry:    registry,
		Samples:     sampleRepo,
		Schedules:   scheduleRepo,
		Limits:      limitRepo,
		Accountant:  accountant,
		Blocked:     blocked,
		Publisher:   publisher,
		Subscriber:  subscriber,
		ExternalHub: hub,
		Version:     version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if cerr := server.Close(); cerr != nil {
			log.Error("API server close failed", "error", cerr)
		}
	}()

	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	log.Info("startup complete, waiting for shutdown signal")
	<-ctx.Done()

	log.Info("shutting down")
	return nil
}

// configPath prefers WATTGATE_CONFIG over the default location.
func configPath() string {
	if path := os.Getenv("WATTGATE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// setupMirror connects the optional InfluxDB mirror. When disabled it
// returns a nil client and a no-op cleanup.
func setupMirror(cfg *config.Config, log *logging.Logger) (*influxdb.Client, func(), error) {
	if !cfg.InfluxDB.Enabled {
		log.Info("InfluxDB mirror disabled")
		return nil, func() {}, nil
	}

	client, err := influxdb.Connect(cfg.InfluxDB)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to InfluxDB: %w", err)
	}
	client.SetOnError(func(err error) {
		log.Error("InfluxDB write failed", "error", err)
	})
	log.Info("InfluxDB mirror ready",
		"url", cfg.InfluxDB.URL,
		"org", cfg.InfluxDB.Org,
		"bucket", cfg.InfluxDB.Bucket,
	)

	cleanup := func() {
		log.Info("closing InfluxDB mirror")
		if cerr := client.Close(); cerr != nil {
			log.Error("InfluxDB close failed", "error", cerr)
		}
	}
	return client, cleanup, nil
}

// subscribeDeviceTopics points the ingestion handler at every
// registered device's telemetry topic.
func subscribeDeviceTopics(ctx context.Context, registry *device.Registry, sub *telemetrySubscriber, log *logging.Logger) error {
	devices, err := registry.ListDevices(ctx)
	if err != nil {
		return fmt.Errorf("listing devices: %w", err)
	}

	for i := range devices {
		topic := devices[i].Topic
		if err := sub.SubscribeDevice(topic); err != nil {
			return fmt.Errorf("subscribing to %q: %w", topic, err)
		}
	}

	log.Info("telemetry subscriptions established", "topics", len(devices))
	return nil
}

// healthCheck probes every infrastructure connection once at startup.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}
	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}
	return nil
}

// telemetrySubscriber adapts the MQTT client and ingestion handler to
// the API server's subscription interface, so devices created or
// retired at runtime are picked up without a restart.
type telemetrySubscriber struct {
	client  *mqtt.Client
	handler *telemetry.Handler
	qos     byte
}

func (s *telemetrySubscriber) SubscribeDevice(topic string) error {
	return s.client.Subscribe(topic, s.qos, s.handler.HandleMessage)
}

func (s *telemetrySubscriber) UnsubscribeDevice(topic string) error {
	return s.client.Unsubscribe(topic)
}
