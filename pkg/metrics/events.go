package metrics

import (
	"sync"
	"time"
)

// EventKind classifies a structured event recorded in the ring buffer.
type EventKind int

const (
	EventInterestForwarded EventKind = iota
	EventInterestAggregated
	EventInterestDropped
	EventDataServedFromCS
	EventDataForwarded
	EventNackForwarded
	EventMTUApplied
)

// Event is one entry in the ring buffer (spec.md §4.9's
// `{timestamp, kind, name_hash, size, processing_ns, action}`).
type Event struct {
	Timestamp   time.Time
	Kind        EventKind
	NameHash    uint64
	Size        int
	ProcessingNs int64
	Action      string
}

// EventRing is the fixed-capacity ring buffer from spec.md §4.9: at least
// 256KiB worth of events, consumed by the control plane. When full, new
// events are dropped and CounterEventsDropped increments — counters
// themselves are never dropped.
type EventRing struct {
	mu       sync.Mutex
	buf      []Event
	head     int // next write position
	size     int // live entry count, <= len(buf)
	counters *Counters
}

// defaultEventSize is a conservative estimate of one Event's resident size
// (timestamp + small fixed fields), used only to size the default
// capacity from the spec's 256KiB minimum.
const defaultEventSize = 64

// NewEventRing builds a ring sized to hold at least minBytes worth of
// events (spec.md's ">= 256KiB" default), reporting drops through counters.
func NewEventRing(minBytes int, counters *Counters) *EventRing {
	capacity := minBytes / defaultEventSize
	if capacity < 1 {
		capacity = 1
	}
	return &EventRing{
		buf:      make([]Event, capacity),
		counters: counters,
	}
}

// Push records an event, or drops it and increments events_dropped if the
// ring is full. The ring never blocks a caller.
func (r *EventRing) Push(workerID int, e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.size == len(r.buf) {
		r.counters.Incr(workerID, CounterEventsDropped, 1)
		return
	}
	r.buf[r.head] = e
	r.head = (r.head + 1) % len(r.buf)
	r.size++
}

// Drain removes and returns every buffered event in insertion order,
// resetting the ring to empty. This is the only consumer-side operation;
// pkg/mgmt's StreamMetrics calls it on a polling cadence.
func (r *EventRing) Drain() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.size == 0 {
		return nil
	}
	out := make([]Event, 0, r.size)
	start := (r.head - r.size + len(r.buf)) % len(r.buf)
	for i := 0; i < r.size; i++ {
		out = append(out, r.buf[(start+i)%len(r.buf)])
	}
	r.head = 0
	r.size = 0
	return out
}

// Len reports the number of events currently buffered.
func (r *EventRing) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.size
}
