// Package device provides the Device Registry for WattGate Core.
//
// The Device Registry is the central catalogue of every metered load in
// an installation. It manages device lifecycle and power state, resolves
// inbound MQTT telemetry topics to devices, and serves query operations
// for the REST API, the shedding policy, and the schedule reconciler.
//
// # Key Types
//
//   - Device: A metered electrical load with a telemetry topic and an
//     optional control topic
//   - Tier: Load-shedding priority (low, medium, high, none)
//   - Status: Power state (ON, OFF)
//
// # Usage
//
//	repo := device.NewSQLiteRepository(db)
//	registry := device.NewRegistry(repo)
//	registry.SetLogger(log)
//
//	// Load devices into cache on startup
//	if err := registry.RefreshCache(ctx); err != nil {
//	    return err
//	}
//
//	controlTopic := "home/ac/set"
//	dev := &device.Device{
//	    Name:         "Living Room AC",
//	    Topic:        "home/ac/telemetry",
//	    ControlTopic: &controlTopic,
//	    Tier:         device.TierMedium,
//	    RatedWatts:   900,
//	}
//	if err := registry.CreateDevice(ctx, dev); err != nil {
//	    return err
//	}
//
//	// Resolve an inbound telemetry message
//	dev, err := registry.GetDeviceByTopic(ctx, "home/ac/telemetry")
//
// # Thread Safety
//
// The Registry is safe for concurrent use. All operations are protected
// by a read-write mutex. The Repository implementation must also be
// thread-safe.
package device
