package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/wattgate/wattgate-core/internal/infrastructure/config"
)

// Logger is the application logger: slog with the service name and
// version attached to every record. Safe for concurrent use.
type Logger struct {
	*slog.Logger
}

// New builds a Logger from the logging section of config.yaml.
// Format "text" gives a human-readable handler for development;
// anything else is JSON. Output "stderr" writes there, anything else
// goes to stdout.
func New(cfg config.LoggingConfig, version string) *Logger {
	var output io.Writer = os.Stdout
	if strings.EqualFold(cfg.Output, "stderr") {
		output = os.Stderr
	}

	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "text") {
		handler = slog.NewTextHandler(output, opts)
	} else {
		handler = slog.NewJSONHandler(output, opts)
	}

	handler = handler.WithAttrs([]slog.Attr{
		slog.String("service", "wattgate"),
		slog.String("version", version),
	})

	return &Logger{Logger: slog.New(handler)}
}

// parseLevel maps a config string to a slog level. Unrecognised
// values fall back to info.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// With returns a child logger carrying extra default attributes.
//
//	mqttLog := logger.With("component", "mqtt")
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}

// Default is the early-startup logger used before config is loaded:
// JSON to stdout at info level.
func Default() *Logger {
	return New(config.LoggingConfig{
		Level:  "info",
		Format: "json",
		Output: "stdout",
	}, "dev")
}
