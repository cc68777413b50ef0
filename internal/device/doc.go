// Package device provides the device registry for devtrack.
//
// The registry is the single source of truth for the latest known state of
// every tracked device: its position, the telemetry sent with the last
// report, and the operator-assigned display name. It keeps nothing on disk;
// it starts empty and is discarded when the process stops.
//
// # Key Types
//
//   - Record: latest state of one device, keyed by its reported ID
//   - Report: a validated position report, applied with Registry.Upsert
//   - Value: an opaque telemetry value kept exactly as the client sent it
//   - Event: a committed change, delivered to subscribers
//
// # Usage
//
//	registry := device.NewRegistry()
//	registry.SetLogger(log)
//
//	registry.Upsert(device.Report{
//	    ID:       "phone1",
//	    Position: device.Position{Latitude: 35.38, Longitude: -1.09},
//	})
//
//	if err := registry.Rename("phone1", "My Phone"); errors.Is(err, device.ErrDeviceNotFound) {
//	    // never reported
//	}
//
//	for id, rec := range registry.Snapshot() {
//	    fmt.Println(id, rec.DisplayName)
//	}
//
// # Thread Safety
//
// The Registry is safe for concurrent use. Upsert, Rename and Snapshot are
// linearizable: a snapshot taken after an upsert returns observes it, and a
// snapshot racing an upsert sees either the whole old record or the whole
// new one. The registry never validates input; callers pass reports that
// have already been checked at the protocol boundary.
package device
