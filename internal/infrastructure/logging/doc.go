// Package logging wraps log/slog for WattGate Core.
//
// Every record carries the service name and version; the level, format
// (json or text), and destination come from the logging section of
// config.yaml. Components derive child loggers with With:
//
//	log := logger.With("component", "reconciler")
//	log.Info("tick", "devices", n)
//
// Never log secrets or tokens; truncate identifying material before
// logging it.
package logging
