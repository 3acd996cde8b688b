// Package metrics implements spec.md §4.9: per-CPU packet/table counters
// and a backpressured ring buffer of structured events, both consumed by
// the control plane (pkg/mgmt).
package metrics

import "sync/atomic"

// CounterID names one metric slot. Values are stable across a process's
// lifetime (spec.md §6: "Entry layouts are fixed and versioned").
type CounterID int

const (
	CounterInterestsReceived CounterID = iota
	CounterDataReceived
	CounterNacksReceived
	CounterCSHits
	CounterCSMisses
	CounterCSInserts
	CounterCSEvictions
	CounterArchiveHits
	CounterPITInserts
	CounterPITMerges
	CounterPITTimeouts
	CounterPITSatisfies
	CounterForwards
	CounterDropsNoRoute
	CounterDropsDuplicate
	CounterDropsCongestion
	CounterDropsHopLimit
	CounterParseErrors
	CounterMTUPredictionsApplied
	CounterEventsDropped

	numCounters
)

var counterNames = [numCounters]string{
	CounterInterestsReceived:     "interests_received",
	CounterDataReceived:          "data_received",
	CounterNacksReceived:         "nacks_received",
	CounterCSHits:                "cs_hits",
	CounterCSMisses:              "cs_misses",
	CounterCSInserts:             "cs_inserts",
	CounterCSEvictions:           "cs_evictions",
	CounterArchiveHits:           "archive_hits",
	CounterPITInserts:            "pit_inserts",
	CounterPITMerges:             "pit_merges",
	CounterPITTimeouts:           "pit_timeouts",
	CounterPITSatisfies:          "pit_satisfies",
	CounterForwards:              "forwards",
	CounterDropsNoRoute:          "drops_no_route",
	CounterDropsDuplicate:        "duplicates",
	CounterDropsCongestion:       "drops_congestion",
	CounterDropsHopLimit:         "drops_hop_limit",
	CounterParseErrors:           "parse_errors",
	CounterMTUPredictionsApplied: "mtu_predictions_applied",
	CounterEventsDropped:         "events_dropped",
}

func (c CounterID) String() string {
	if c < 0 || c >= numCounters {
		return "unknown"
	}
	return counterNames[c]
}

// shard is one CPU-local counter bank.
type shard struct {
	values [numCounters]atomic.Uint64
}

// Counters is the per-CPU counter array from spec.md §4.9 and §6's
// "per-CPU counter array indexed by metric id". Every worker thread
// increments its own shard; reads sum across shards.
type Counters struct {
	shards []*shard
}

// NewCounters builds a Counters with one shard per worker, matching
// pkg/forwarder's thread count.
func NewCounters(numShards int) *Counters {
	if numShards < 1 {
		numShards = 1
	}
	c := &Counters{shards: make([]*shard, numShards)}
	for i := range c.shards {
		c.shards[i] = &shard{}
	}
	return c
}

// Incr bumps one counter on the calling worker's shard by delta.
func (c *Counters) Incr(workerID int, id CounterID, delta uint64) {
	c.shards[workerID%len(c.shards)].values[id].Add(delta)
}

// Snapshot sums every shard into a flat map keyed by counter name, for
// pkg/mgmt's GetState RPC.
func (c *Counters) Snapshot() map[string]uint64 {
	out := make(map[string]uint64, numCounters)
	for id := CounterID(0); id < numCounters; id++ {
		var total uint64
		for _, s := range c.shards {
			total += s.values[id].Load()
		}
		out[id.String()] = total
	}
	return out
}
