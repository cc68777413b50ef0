package mqtt

import "fmt"

// maxPayloadSize caps outgoing payloads at 1 MB, in line with typical
// broker limits.
const maxPayloadSize = 1 << 20

// Publish sends payload to topic and waits for the broker acknowledgement
// (for QoS 1 and 2). Device state and system status are published retained;
// reports never are.
//
// The topic must be a concrete topic name: wildcards are rejected with
// ErrInvalidTopic.
func (c *Client) Publish(topic string, payload []byte, qos byte, retained bool) error {
	if !validTopicName(topic) {
		return fmt.Errorf("%w: %q", ErrInvalidTopic, topic)
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if len(payload) > maxPayloadSize {
		return fmt.Errorf("%w: %d bytes, limit %d", ErrPayloadTooLarge, len(payload), maxPayloadSize)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	return await(c.paho.Publish(topic, qos, retained, payload), defaultPublishTimeout, ErrPublishFailed)
}
