package device

import "time"

// Record is the latest known state of one tracked device.
//
// A Record is created on the first position report for an unseen ID and
// is never removed. DisplayName starts out equal to ID and only changes
// through Registry.Rename.
type Record struct {
	// Identity
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`

	// Position is nil until the first report has been applied.
	Position *Position `json:"position,omitempty"`

	// Telemetry holds the values sent with the most recent report.
	Telemetry Telemetry `json:"telemetry"`

	// Timestamps
	UpdatedAt time.Time  `json:"updated_at"`
	RenamedAt *time.Time `json:"renamed_at,omitempty"`
}

// Position is a complete latitude/longitude pair in decimal degrees.
type Position struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Telemetry carries the optional values reported alongside a position.
// Each field is independently absent; none are interpreted by the registry.
type Telemetry struct {
	Timestamp Value `json:"timestamp"`
	Battery   Value `json:"battery"`
	Speed     Value `json:"speed"`
	Accuracy  Value `json:"accuracy"`
}

// Report is a validated position report ready to be applied with
// Registry.Upsert.
type Report struct {
	ID        string
	Position  Position
	Telemetry Telemetry
}

// DeepCopy creates an independent copy of the Record.
// Values are immutable, so only the pointer fields need cloning.
func (r Record) DeepCopy() Record {
	cpy := r
	if r.Position != nil {
		pos := *r.Position
		cpy.Position = &pos
	}
	if r.RenamedAt != nil {
		at := *r.RenamedAt
		cpy.RenamedAt = &at
	}
	return cpy
}

// EventType identifies the kind of change carried by an Event.
type EventType string

// Event types emitted by the Registry.
const (
	EventUpdated EventType = "device.updated"
	EventRenamed EventType = "device.renamed"
)

// Event describes a committed change to a single Record.
type Event struct {
	Type EventType `json:"type"`

	// Created is true when the change created the record.
	Created bool `json:"created"`

	// Record is the state after the change.
	Record Record `json:"record"`
}
