package ingest

import (
	"fmt"
	"net/url"

	"github.com/goccy/go-json"

	"github.com/nerrad567/devtrack/internal/device"
)

// Report field names as sent by tracking clients.
const (
	FieldID        = "id"
	FieldLatitude  = "lat"
	FieldLongitude = "lon"
	FieldTimestamp = "timestamp"
	FieldBattery   = "batt"
	FieldSpeed     = "speed"
	FieldAccuracy  = "accuracy"
)

// Source names the input shape a report was read from.
type Source string

// Report sources, in the order the HTTP transport tries them.
const (
	SourceJSON  Source = "json"
	SourceForm  Source = "form"
	SourceQuery Source = "query"
	SourceMQTT  Source = "mqtt"
)

// Fields is the set of report fields read from a single input source.
// Keys are the client field names (FieldID, FieldLatitude, ...).
type Fields map[string]device.Value

// FieldsFromJSON decodes a JSON object into Fields.
//
// Returns an error if data is not a JSON object.
func FieldsFromJSON(data []byte) (Fields, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decoding report object: %w", err)
	}
	if raw == nil {
		return nil, fmt.Errorf("decoding report object: not an object")
	}

	fields := make(Fields, len(raw))
	for key, msg := range raw {
		v, err := device.RawValue(msg)
		if err != nil {
			return nil, fmt.Errorf("decoding field %q: %w", key, err)
		}
		fields[key] = v
	}
	return fields, nil
}

// FieldsFromValues converts form or query values into Fields.
// Only the first value of a repeated key is kept; every value is a string.
func FieldsFromValues(values url.Values) Fields {
	fields := make(Fields, len(values))
	for key, vs := range values {
		if len(vs) == 0 {
			continue
		}
		fields[key] = device.StringValue(vs[0])
	}
	return fields
}
