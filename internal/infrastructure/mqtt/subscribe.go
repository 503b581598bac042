package mqtt

import "fmt"

// Subscribe registers handler for messages on topic and tracks the
// subscription so it is restored after a reconnect. Wildcards (+, #)
// are accepted, though device telemetry uses exact topics from the
// registry. Handlers run on paho goroutines and must not block.
func (c *Client) Subscribe(topic string, qos byte, handler MessageHandler) error {
	switch {
	case topic == "":
		return ErrInvalidTopic
	case qos > maxQoS:
		return ErrInvalidQoS
	case handler == nil:
		return fmt.Errorf("%w: handler cannot be nil", ErrSubscribeFailed)
	case !c.IsConnected():
		return ErrNotConnected
	}

	c.track(topic, subscription{topic: topic, qos: qos, handler: handler})

	token := c.client.Subscribe(topic, qos, c.wrapHandler(handler))
	if !token.WaitTimeout(defaultPublishTimeout) {
		c.untrack(topic)
		return fmt.Errorf("%w: timeout after %v", ErrSubscribeFailed, defaultPublishTimeout)
	}
	if err := token.Error(); err != nil {
		c.untrack(topic)
		return fmt.Errorf("%w: %w", ErrSubscribeFailed, err)
	}
	return nil
}

// Unsubscribe stops delivery for topic and drops it from reconnect
// tracking. Messages already in flight may still arrive.
func (c *Client) Unsubscribe(topic string) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	c.untrack(topic)

	token := c.client.Unsubscribe(topic)
	if !token.WaitTimeout(defaultPublishTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrUnsubscribeFailed, defaultPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrUnsubscribeFailed, err)
	}
	return nil
}

// SubscriptionCount returns the number of tracked subscriptions.
func (c *Client) SubscriptionCount() int {
	c.subsMu.RLock()
	defer c.subsMu.RUnlock()
	return len(c.subscriptions)
}

// HasSubscription reports whether topic is tracked. Exact string
// match only, no wildcard expansion.
func (c *Client) HasSubscription(topic string) bool {
	c.subsMu.RLock()
	defer c.subsMu.RUnlock()
	_, ok := c.subscriptions[topic]
	return ok
}

func (c *Client) track(topic string, sub subscription) {
	c.subsMu.Lock()
	c.subscriptions[topic] = sub
	c.subsMu.Unlock()
}

func (c *Client) untrack(topic string) {
	c.subsMu.Lock()
	delete(c.subscriptions, topic)
	c.subsMu.Unlock()
}
