package mqtt

import "strings"

// DefaultTopicPrefix is the root of every devtrack topic.
const DefaultTopicPrefix = "devtrack"

// Topics builds devtrack MQTT topics under a common prefix.
// The zero value uses DefaultTopicPrefix.
//
//	topics := mqtt.Topics{Prefix: "devtrack"}
//	topics.Report("phone1")      // devtrack/report/phone1
//	topics.DeviceState("phone1") // devtrack/device/phone1/state
type Topics struct {
	Prefix string
}

func (t Topics) prefix() string {
	if t.Prefix == "" {
		return DefaultTopicPrefix
	}
	return strings.TrimSuffix(t.Prefix, "/")
}

// Report returns the inbound topic a device publishes its reports on.
//
// Example: devtrack/report/phone1
func (t Topics) Report(deviceID string) string {
	return t.prefix() + "/report/" + deviceID
}

// AllReports returns the wildcard subscription for every device report.
//
// Example: devtrack/report/+
func (t Topics) AllReports() string {
	return t.prefix() + "/report/+"
}

// ReportDeviceID extracts the device ID from a report topic.
// Returns false if topic is not a report topic under this prefix.
func (t Topics) ReportDeviceID(topic string) (string, bool) {
	id, found := strings.CutPrefix(topic, t.prefix()+"/report/")
	if !found || id == "" || strings.Contains(id, "/") {
		return "", false
	}
	return id, true
}

// DeviceState returns the retained state topic for one device.
//
// Example: devtrack/device/phone1/state
func (t Topics) DeviceState(deviceID string) string {
	return t.prefix() + "/device/" + deviceID + "/state"
}

// AllDeviceStates returns the wildcard subscription for every device state.
//
// Example: devtrack/device/+/state
func (t Topics) AllDeviceStates() string {
	return t.prefix() + "/device/+/state"
}

// SystemStatus returns the service online/offline topic (also the LWT).
//
// Example: devtrack/system/status
func (t Topics) SystemStatus() string {
	return t.prefix() + "/system/status"
}

// validTopicName reports whether topic can be published to: non-empty,
// free of wildcards and NUL.
func validTopicName(topic string) bool {
	return topic != "" && !strings.ContainsAny(topic, "+#\x00")
}

// validTopicFilter reports whether filter is a well-formed subscription:
// + must fill a whole level and # must be the whole last level.
func validTopicFilter(filter string) bool {
	if filter == "" || strings.ContainsRune(filter, '\x00') {
		return false
	}
	levels := strings.Split(filter, "/")
	for i, level := range levels {
		switch {
		case level == "#":
			if i != len(levels)-1 {
				return false
			}
		case level == "+":
		case strings.ContainsAny(level, "+#"):
			return false
		}
	}
	return true
}
