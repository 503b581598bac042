package mqtt

import "fmt"

// maxPayloadSize caps outbound messages at 1MB, matching common broker
// limits.
const maxPayloadSize = 1 << 20

// Publish sends payload to topic and waits for broker acknowledgment.
// Retained should be true only for state topics (system status); device
// commands are never retained.
//
//	err := client.Publish("home/ac/set", []byte(`{"command":"OFF"}`), 1, false)
func (c *Client) Publish(topic string, payload []byte, qos byte, retained bool) error {
	switch {
	case topic == "":
		return ErrInvalidTopic
	case qos > maxQoS:
		return ErrInvalidQoS
	case len(payload) > maxPayloadSize:
		return fmt.Errorf("%w: payload size %d exceeds maximum %d bytes",
			ErrPublishFailed, len(payload), maxPayloadSize)
	case !c.IsConnected():
		return ErrNotConnected
	}

	token := c.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(defaultPublishTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrPublishFailed, defaultPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}
	return nil
}

// PublishString publishes a string payload.
func (c *Client) PublishString(topic string, payload string, qos byte, retained bool) error {
	return c.Publish(topic, []byte(payload), qos, retained)
}

// PublishRetained publishes a retained message at the configured
// default QoS, for state new subscribers should immediately see.
func (c *Client) PublishRetained(topic string, payload []byte) error {
	return c.Publish(topic, payload, byte(c.cfg.QoS), true)
}
