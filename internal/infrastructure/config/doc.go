// Package config provides configuration loading and validation for WattGate Core.
//
// Configuration is loaded from a YAML file with environment variable
// overrides. The loading order is:
//
//  1. Hardcoded defaults
//  2. YAML file values
//  3. Environment variables (WATTGATE_* prefix)
//
// # Sections
//
//   - site: installation identity and timezone
//   - database: SQLite path and pragmas
//   - mqtt: broker, auth, QoS, reconnect behaviour
//   - api: HTTP server bind address and timeouts
//   - websocket: dashboard event stream settings
//   - influxdb: optional telemetry mirror
//   - logging: level, format, output
//   - automation: schedule reconciliation interval
//
// # Usage
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
