package mqtt

import "fmt"

// Subscribe registers handler for every message matching filter, which may
// use the + and # wildcards (for example Topics.AllReports).
//
// The subscription is remembered and replayed after each reconnect.
// Subscribing to the same filter again replaces the handler.
func (c *Client) Subscribe(filter string, qos byte, handler MessageHandler) error {
	if !validTopicFilter(filter) {
		return fmt.Errorf("%w: %q", ErrInvalidTopic, filter)
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if handler == nil {
		return fmt.Errorf("%w: handler cannot be nil", ErrSubscribeFailed)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	if err := await(c.paho.Subscribe(filter, qos, c.dispatch(handler)), defaultPublishTimeout, ErrSubscribeFailed); err != nil {
		return err
	}

	c.mu.Lock()
	c.subs[filter] = subscription{qos: qos, handler: handler}
	c.mu.Unlock()
	return nil
}

// Unsubscribe drops a subscription made with Subscribe. Messages already in
// flight may still reach the handler.
func (c *Client) Unsubscribe(filter string) error {
	if !validTopicFilter(filter) {
		return fmt.Errorf("%w: %q", ErrInvalidTopic, filter)
	}

	c.mu.Lock()
	delete(c.subs, filter)
	c.mu.Unlock()

	if !c.IsConnected() {
		return ErrNotConnected
	}
	return await(c.paho.Unsubscribe(filter), defaultPublishTimeout, ErrSubscribeFailed)
}
