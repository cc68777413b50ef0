package device

import (
	"sync"
	"time"
)

// subscriberBuffer is the per-subscriber event buffer size.
const subscriberBuffer = 100

// Logger defines the logging interface used by the Registry.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Registry is the in-memory store of device records.
//
// Every mutation builds the complete new Record and swaps it into the map
// under the write lock, so readers observe either the old or the new
// record and never a partially applied report. Reads hand out deep copies.
//
// Change events are delivered to subscribers over buffered channels.
// Sends never block: a subscriber whose buffer is full misses the event.
//
// All public methods are thread-safe.
type Registry struct {
	mu      sync.RWMutex
	devices map[string]Record

	subMu       sync.RWMutex
	subscribers map[chan Event]struct{}

	logger Logger
	now    func() time.Time
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		devices:     make(map[string]Record),
		subscribers: make(map[chan Event]struct{}),
		logger:      noopLogger{},
		now:         time.Now,
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// Upsert applies a validated position report.
//
// The first report for an unseen ID creates the record with
// DisplayName = ID. Every report replaces the position and all telemetry
// fields; a field absent from the report becomes absent on the record.
func (r *Registry) Upsert(report Report) {
	pos := report.Position
	rec := Record{
		ID:          report.ID,
		DisplayName: report.ID,
		Position:    &pos,
		Telemetry:   report.Telemetry,
		UpdatedAt:   r.now().UTC(),
	}

	r.mu.Lock()
	existing, found := r.devices[report.ID]
	if found {
		rec.DisplayName = existing.DisplayName
		rec.RenamedAt = existing.RenamedAt
	}
	r.devices[report.ID] = rec
	r.notify(Event{Type: EventUpdated, Created: !found, Record: rec.DeepCopy()})
	r.mu.Unlock()

	if !found {
		r.logger.Info("device registered", "id", rec.ID)
	}
	r.logger.Debug("device updated",
		"id", rec.ID,
		"lat", pos.Latitude,
		"lon", pos.Longitude,
	)
}

// Rename replaces the display name of an existing device.
//
// Returns ErrDeviceNotFound if the ID has never been reported; the
// registry is left untouched in that case. Display names need not be
// unique.
func (r *Registry) Rename(id, name string) error {
	r.mu.Lock()
	rec, found := r.devices[id]
	if !found {
		r.mu.Unlock()
		return ErrDeviceNotFound
	}
	now := r.now().UTC()
	previous := rec.DisplayName
	rec.DisplayName = name
	rec.RenamedAt = &now
	r.devices[id] = rec
	r.notify(Event{Type: EventRenamed, Record: rec.DeepCopy()})
	r.mu.Unlock()

	r.logger.Info("device renamed", "id", id, "from", previous, "to", name)
	return nil
}

// Get returns a copy of one record.
// Returns ErrDeviceNotFound if the ID is unknown.
func (r *Registry) Get(id string) (Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, found := r.devices[id]
	if !found {
		return Record{}, ErrDeviceNotFound
	}
	return rec.DeepCopy(), nil
}

// Snapshot returns a point-in-time copy of every record keyed by ID.
// The result is independent of the registry; callers may modify it.
func (r *Registry) Snapshot() map[string]Record {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]Record, len(r.devices))
	for id, rec := range r.devices {
		out[id] = rec.DeepCopy()
	}
	return out
}

// Count returns the number of known devices.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.devices)
}

// Subscribe returns a channel receiving every committed change.
//
// Caller must call Unsubscribe when done to release the channel.
func (r *Registry) Subscribe() <-chan Event {
	ch := make(chan Event, subscriberBuffer)

	r.subMu.Lock()
	r.subscribers[ch] = struct{}{}
	r.subMu.Unlock()

	return ch
}

// Unsubscribe removes a subscription and closes its channel.
// Safe to call more than once or with an unknown channel.
func (r *Registry) Unsubscribe(ch <-chan Event) {
	r.subMu.Lock()
	defer r.subMu.Unlock()

	for sub := range r.subscribers {
		if sub == ch {
			delete(r.subscribers, sub)
			close(sub)
			return
		}
	}
}

// notify fans an event out to all subscribers.
// Called with r.mu held so events arrive in commit order.
func (r *Registry) notify(ev Event) {
	r.subMu.RLock()
	defer r.subMu.RUnlock()

	for ch := range r.subscribers {
		select {
		case ch <- ev:
		default:
			// slow subscriber, drop
		}
	}
}
