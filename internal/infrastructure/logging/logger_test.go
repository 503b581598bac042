package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/wattgate/wattgate-core/internal/infrastructure/config"
)

func TestNew(t *testing.T) {
	cases := []config.LoggingConfig{
		{Level: "info", Format: "json", Output: "stdout"},
		{Level: "debug", Format: "text", Output: "stderr"},
	}
	for _, cfg := range cases {
		if New(cfg, "1.0.0") == nil {
			t.Fatalf("New(%+v) returned nil", cfg)
		}
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"DEBUG":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
		"":        slog.LevelInfo,
	}
	for input, want := range cases {
		if got := parseLevel(input); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestWith(t *testing.T) {
	logger := New(config.LoggingConfig{Level: "info", Format: "json", Output: "stdout"}, "1.0.0")

	child := logger.With("component", "mqtt")
	if child == nil {
		t.Fatal("With() returned nil")
	}
	if child == logger {
		t.Error("With() should return a distinct logger")
	}
}

func TestDefault(t *testing.T) {
	if Default() == nil {
		t.Fatal("Default() returned nil")
	}
}

func TestOutputCarriesDefaultFields(t *testing.T) {
	var buf bytes.Buffer

	handler := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}).
		WithAttrs([]slog.Attr{
			slog.String("service", "wattgate"),
			slog.String("version", "test"),
		})

	logger := &Logger{Logger: slog.New(handler)}
	logger.Info("test message", "key", "value")

	out := buf.String()
	if !strings.Contains(out, "wattgate") {
		t.Error("output missing service field")
	}
	if !strings.Contains(out, "test") {
		t.Error("output missing version field")
	}

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("invalid JSON output: %v", err)
	}
	if record["msg"] != "test message" {
		t.Errorf("msg = %v, want 'test message'", record["msg"])
	}
	if record["key"] != "value" {
		t.Errorf("key = %v, want 'value'", record["key"])
	}
}
