package bridge

import "errors"

var (
	// ErrInvalidTopic is returned for a message outside the report topic tree.
	ErrInvalidTopic = errors.New("bridge: invalid report topic")

	// ErrUnpublishableID is returned for device IDs that cannot appear in an
	// MQTT topic name.
	ErrUnpublishableID = errors.New("bridge: device id not valid in a topic")
)
