package metrics

import (
	"sync"
	"time"
)

// Event is a named, timestamped numeric observation with optional tags,
// retained in a time-bounded ring.
type Event struct {
	Name      string
	Value     float64
	Unit      string
	Timestamp time.Time
	Tags      map[string]string
}

// eventRing is an append-only, time- and size-bounded log of events. Oldest
// entries are dropped once max_events is exceeded or retention elapses.
type eventRing struct {
	mu        sync.Mutex
	events    []Event
	maxEvents int
	retention time.Duration
}

func newEventRing(maxEvents int, retention time.Duration) *eventRing {
	if maxEvents <= 0 {
		maxEvents = 10000
	}
	return &eventRing{
		events:    make([]Event, 0, maxEvents),
		maxEvents: maxEvents,
		retention: retention,
	}
}

func (r *eventRing) emit(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append(r.events, e)
	r.evictLocked(e.Timestamp)
}

func (r *eventRing) evictLocked(now time.Time) {
	if r.retention > 0 {
		cutoff := now.Add(-r.retention)
		idx := 0
		for idx < len(r.events) && r.events[idx].Timestamp.Before(cutoff) {
			idx++
		}
		if idx > 0 {
			r.events = append(r.events[:0], r.events[idx:]...)
		}
	}
	if over := len(r.events) - r.maxEvents; over > 0 {
		r.events = append(r.events[:0], r.events[over:]...)
	}
}

// snapshot returns a defensive copy of the current events.
func (r *eventRing) snapshot() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

func (r *eventRing) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = r.events[:0]
}
