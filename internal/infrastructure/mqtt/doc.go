// Package mqtt provides the MQTT transport for WattGate Core.
//
// This package wraps eclipse/paho.mqtt.golang with connection
// management tuned for an always-on energy controller:
//
//   - Auto-reconnect with exponential backoff
//   - Subscriptions tracked and restored on reconnect
//   - Last Will and Testament on wattgate/system/status
//   - Panic recovery around message handlers
//   - Publish/subscribe with timeouts and input validation
//
// # Topics
//
// Device telemetry and control topics are owner-defined and come from
// the device registry; this package only owns the wattgate/system/*
// namespace. The core subscribes to each device's exact telemetry
// topic and publishes commands to each device's control topic.
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.SetLogger(logger)
//
//	err = client.Subscribe("home/ac/telemetry", 1,
//	    func(topic string, payload []byte) error {
//	        return handler.HandleMessage(topic, payload)
//	    })
package mqtt
