package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCountersSumAcrossShards(t *testing.T) {
	c := NewCounters(4)
	c.Incr(0, CounterCSHits, 3)
	c.Incr(1, CounterCSHits, 2)
	c.Incr(2, CounterCSHits, 5)

	snap := c.Snapshot()
	assert.EqualValues(t, 10, snap["cs_hits"])
}

func TestEventRingDrainsInOrder(t *testing.T) {
	counters := NewCounters(1)
	ring := NewEventRing(defaultEventSize*2, counters)

	ring.Push(0, Event{Timestamp: time.Now(), Kind: EventInterestForwarded, NameHash: 1})
	ring.Push(0, Event{Timestamp: time.Now(), Kind: EventDataForwarded, NameHash: 2})

	events := ring.Drain()
	assert.Len(t, events, 2)
	assert.Equal(t, uint64(1), events[0].NameHash)
	assert.Equal(t, uint64(2), events[1].NameHash)
	assert.Equal(t, 0, ring.Len())
}

// TestEventRingDropsWhenFullAndCounts is spec.md §4.9's backpressure rule:
// events drop, but events_dropped itself never does.
func TestEventRingDropsWhenFullAndCounts(t *testing.T) {
	counters := NewCounters(1)
	ring := NewEventRing(defaultEventSize, counters) // capacity 1

	ring.Push(0, Event{NameHash: 1})
	ring.Push(0, Event{NameHash: 2}) // dropped
	ring.Push(0, Event{NameHash: 3}) // dropped

	assert.Equal(t, 1, ring.Len())
	snap := counters.Snapshot()
	assert.EqualValues(t, 2, snap["events_dropped"])
}
