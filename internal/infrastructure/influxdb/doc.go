// Package influxdb provides InfluxDB connectivity for WattGate Core.
//
// It wraps the official influxdb-client-go v2 library with WattGate-specific
// patterns for connection management, telemetry writing, and health monitoring.
//
// # Purpose
//
// This package mirrors telemetry into time-series storage for:
//   - Per-device usage samples (volt, ampere, watt, energy, delta)
//   - Aggregated consumption against the active budget window
//   - Load-shedding events
//
// SQLite remains the source of truth for energy accounting; InfluxDB is
// an optional mirror for dashboards and long-term analysis. The core
// runs fine with it disabled.
//
// # Usage
//
//	cfg := config.InfluxDBConfig{
//	    URL:    "http://localhost:8086",
//	    Token:  "your-token",
//	    Org:    "wattgate",
//	    Bucket: "telemetry",
//	}
//
//	client, err := influxdb.Connect(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	client.WriteUsageSample("ac-unit-01", 231.2, 4.5, 1040.4, 12.345, 0.002, time.Now())
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
// The underlying write API uses non-blocking batched writes.
//
// # Error Handling
//
// Write operations are non-blocking and batch errors are delivered via a
// callback. Connection and health check errors are returned directly.
package influxdb
