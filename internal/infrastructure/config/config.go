package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is everything WattGate Core reads at startup. Values come
// from defaults, then the YAML file, then WATTGATE_* environment
// variables, each layer overriding the previous.
type Config struct {
	Site       SiteConfig       `yaml:"site"`
	Database   DatabaseConfig   `yaml:"database"`
	MQTT       MQTTConfig       `yaml:"mqtt"`
	API        APIConfig        `yaml:"api"`
	WebSocket  WebSocketConfig  `yaml:"websocket"`
	InfluxDB   InfluxDBConfig   `yaml:"influxdb"`
	Logging    LoggingConfig    `yaml:"logging"`
	Automation AutomationConfig `yaml:"automation"`
}

// SiteConfig identifies the installation. The timezone anchors daily
// energy accounting windows.
type SiteConfig struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Timezone string `yaml:"timezone"`
}

// DatabaseConfig is the SQLite store section.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig is the broker section.
type MQTTConfig struct {
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig holds the broker address and client identity.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig holds optional broker credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig tunes the reconnect backoff, in seconds.
// MaxAttempts of zero means retry forever.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// APIConfig is the HTTP server section.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// APITimeoutConfig holds the server timeouts, in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig lists allowed cross-origin callers. An empty origins
// list allows all.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// WebSocketConfig tunes the live-update hub. Intervals are seconds,
// message size is bytes.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
}

// InfluxDBConfig is the optional telemetry mirror section.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig selects level, format, and destination.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// AutomationConfig tunes the schedule reconciler.
type AutomationConfig struct {
	// ReconcileInterval is the period of the schedule reconciliation
	// loop, in seconds.
	ReconcileInterval int `yaml:"reconcile_interval"`
}

// Load reads the YAML file at path on top of the built-in defaults,
// applies WATTGATE_* environment overrides (WATTGATE_DATABASE_PATH,
// WATTGATE_MQTT_HOST, ...), and validates the result.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			ID:       "site-001",
			Name:     "WattGate",
			Timezone: "Local",
		},
		Database: DatabaseConfig{
			Path:        "./data/wattgate.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "wattgate-core",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8080,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			Path:           "/ws",
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Automation: AutomationConfig{
			ReconcileInterval: 60,
		},
	}
}

// applyEnvOverrides layers WATTGATE_* environment variables over the
// loaded file. Only deployment-varying values have overrides; a
// malformed numeric value leaves the file value in place.
func applyEnvOverrides(cfg *Config) {
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setInt := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}

	setString("WATTGATE_DATABASE_PATH", &cfg.Database.Path)
	setString("WATTGATE_MQTT_HOST", &cfg.MQTT.Broker.Host)
	setInt("WATTGATE_MQTT_PORT", &cfg.MQTT.Broker.Port)
	setString("WATTGATE_MQTT_USERNAME", &cfg.MQTT.Auth.Username)
	setString("WATTGATE_MQTT_PASSWORD", &cfg.MQTT.Auth.Password)
	setString("WATTGATE_API_HOST", &cfg.API.Host)
	setString("WATTGATE_INFLUXDB_TOKEN", &cfg.InfluxDB.Token)
}

// Validate reports every problem at once so a bad deployment is fixed
// in one pass.
func (c *Config) Validate() error {
	var errs []string

	if c.Site.ID == "" {
		errs = append(errs, "site.id must not be empty")
	}
	if c.Database.Path == "" {
		errs = append(errs, "database.path must not be empty")
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be 1-65535")
	}
	if c.Automation.ReconcileInterval < 1 {
		errs = append(errs, "automation.reconcile_interval must be at least 1 second")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Location resolves the configured site timezone.
// Falls back to time.Local if the zone name is empty or unknown.
// Daily energy totals are accumulated from midnight in this location.
func (c *Config) Location() *time.Location {
	if c.Site.Timezone == "" || strings.EqualFold(c.Site.Timezone, "local") {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Site.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// GetReadTimeout returns the API read timeout as a Duration.
func (a APIConfig) GetReadTimeout() time.Duration {
	return time.Duration(a.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (a APIConfig) GetWriteTimeout() time.Duration {
	return time.Duration(a.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (a APIConfig) GetIdleTimeout() time.Duration {
	return time.Duration(a.Timeouts.Idle) * time.Second
}

// GetReconcileInterval returns the reconciliation period as a Duration.
func (c *Config) GetReconcileInterval() time.Duration {
	return time.Duration(c.Automation.ReconcileInterval) * time.Second
}
