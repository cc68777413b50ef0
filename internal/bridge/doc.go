// Package bridge connects devtrack to an MQTT broker.
//
// Inbound, it subscribes to {prefix}/report/+ and feeds each payload to the
// ingest service exactly like an HTTP report; a payload without an "id"
// takes the device ID from the topic. Outbound, it follows registry change
// events and publishes the full record, retained, on
// {prefix}/device/{id}/state so late subscribers see the latest position.
//
// The bridge never blocks the registry: it reads events from a buffered
// subscription and drops them when it falls behind. A later event for the
// same device carries the complete record, so only intermediate states are
// lost.
package bridge
