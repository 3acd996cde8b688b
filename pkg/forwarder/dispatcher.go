// Package forwarder wires the Content Store, PIT, FIB, strategy hook,
// face table, and metrics into the single dispatch loop spec.md §2
// describes: receive a packet on a face, classify it, act, repeat.
package forwarder

import (
	"time"

	"github.com/ndnfw/ndnfw/pkg/defn"
	"github.com/ndnfw/ndnfw/pkg/face"
	"github.com/ndnfw/ndnfw/pkg/fastpath"
	"github.com/ndnfw/ndnfw/pkg/metrics"
	"github.com/ndnfw/ndnfw/pkg/nhash"
	"github.com/ndnfw/ndnfw/pkg/repo"
	"github.com/ndnfw/ndnfw/pkg/strategy"
	"github.com/ndnfw/ndnfw/pkg/table"
	"github.com/ndnfw/ndnfw/pkg/tlv"
)

// Thread is one forwarding worker: spec.md §5 shards CS/PIT by hash so N
// threads can each own a disjoint slice of the packet stream without
// contending on every lookup. Thread itself is stateless beyond its
// worker id (used to pick metrics shards); CS/PIT/FIB are shared.
type Thread struct {
	id       int
	cs       *table.ContentStore
	pit      *table.PIT
	fib      *table.FIB
	strategy strategy.Strategy
	faces    *face.Table
	counters *metrics.Counters
	events   *metrics.EventRing
	archive  *repo.Archive
	names    *table.NameLocks
}

// Deps bundles the shared tables a Thread dispatches against.
type Deps struct {
	CS       *table.ContentStore
	PIT      *table.PIT
	FIB      *table.FIB
	Strategy strategy.Strategy
	Faces    *face.Table
	Counters *metrics.Counters
	Events   *metrics.EventRing

	// Archive is optional. When set, a CS miss is given a second chance
	// against the persistent Data archive before falling through to PIT
	// aggregation and FIB lookup, via an exact-name Archive.Get (see
	// tryArchive). Nil disables the fallback entirely.
	Archive *repo.Archive

	// Names coordinates the combined CS-then-PIT critical section across
	// every Thread sharing these tables (see table.NameLocks). Every
	// production daemon with more than one Thread MUST share one instance
	// across all of them — a nil value gets each Thread its own private
	// lock table, which only serializes correctly when there is exactly
	// one Thread.
	Names *table.NameLocks
}

// NewThread builds a dispatch worker with the given id, sharing deps with
// every other worker in the forwarder.
func NewThread(id int, deps Deps) *Thread {
	strat := deps.Strategy
	if strat == nil {
		strat = strategy.BestRoute{}
	}
	names := deps.Names
	if names == nil {
		names = table.NewNameLocks(256)
	}
	return &Thread{
		id: id, cs: deps.CS, pit: deps.PIT, fib: deps.FIB,
		strategy: strat, faces: deps.Faces, counters: deps.Counters, events: deps.Events,
		archive: deps.Archive, names: names,
	}
}

func (t *Thread) String() string { return "forwarder-thread" }

func (t *Thread) sendOut(faceID defn.FaceID, wire []byte) {
	f, ok := t.faces.Get(faceID)
	if !ok || !f.Up() {
		return
	}
	_ = f.Send(wire)
}

// DispatchInboundFast is the entry point a face's Recv handler should call
// when an optional fastpath.Classifier is configured: the classifier gets
// first look at Interest/Data packets, and only a VerdictSlowPath result
// (or no classifier at all) falls through to the ordinary DispatchInbound
// path. A classifier verdict never does anything DispatchInbound wouldn't
// also have done; it just does it with less bookkeeping overhead.
func (t *Thread) DispatchInboundFast(classifier *fastpath.Classifier, raw []byte, inFace defn.FaceID) {
	if classifier == nil {
		t.DispatchInbound(raw, inFace)
		return
	}

	start := time.Now()
	switch tlv.PeekKind(raw) {
	case tlv.KindInterest:
		switch verdict, wire := classifier.ClassifyInterest(raw, inFace); verdict {
		case fastpath.VerdictServedFromCS:
			t.counters.Incr(t.id, metrics.CounterCSHits, 1)
			t.sendOut(inFace, wire)
			if d, err := tlv.ParseData(wire); err == nil {
				t.recordEvent(metrics.EventDataServedFromCS, d.Name, len(wire), start, "fastpath-cs-hit")
			}
			return
		case fastpath.VerdictDroppedDuplicate:
			t.counters.Incr(t.id, metrics.CounterDropsDuplicate, 1)
			return
		}
	case tlv.KindData:
		if verdict, faces := classifier.ClassifyData(raw); verdict == fastpath.VerdictRedirected {
			t.counters.Incr(t.id, metrics.CounterPITSatisfies, 1)
			for _, f := range faces {
				if f == inFace {
					continue
				}
				t.sendOut(f, raw)
			}
			return
		}
	}

	t.DispatchInbound(raw, inFace)
}

// DispatchInbound classifies and acts on one packet received on inFace,
// per the operation contracts in spec.md §4.3-§4.5. This is the slow
// path; pkg/fastpath's Classifier may have already handled the packet
// before it reaches here.
func (t *Thread) DispatchInbound(raw []byte, inFace defn.FaceID) {
	start := time.Now()
	switch tlv.PeekKind(raw) {
	case tlv.KindInterest:
		t.onInterest(raw, inFace, start)
	case tlv.KindData:
		t.onData(raw, inFace, start)
	case tlv.KindNack:
		t.onNack(raw, inFace, start)
	default:
		t.counters.Incr(t.id, metrics.CounterParseErrors, 1)
	}
}

func (t *Thread) onInterest(raw []byte, inFace defn.FaceID, start time.Time) {
	interest, err := tlv.ParseInterest(raw)
	if err != nil {
		t.counters.Incr(t.id, metrics.CounterParseErrors, 1)
		return
	}
	t.counters.Incr(t.id, metrics.CounterInterestsReceived, 1)

	if interest.HasHopLimit {
		if interest.HopLimit == 0 {
			t.counters.Incr(t.id, metrics.CounterDropsHopLimit, 1)
			return
		}
		interest.HopLimit--
	}

	// The CS check, archive fallback, and PIT probe/insert must appear
	// atomic to a concurrent onData for the same name running on a
	// different Thread (see table.NameLocks) — otherwise an Interest can
	// miss a CS insert that already happened and still miss the PIT
	// aggregation it would have gotten a moment earlier or later.
	unlock := t.names.Lock(interest.Name)
	entry, csHit := t.cs.Lookup(interest.Name, interest.MustBeFresh)
	if csHit {
		unlock()
		t.counters.Incr(t.id, metrics.CounterCSHits, 1)
		t.sendOut(inFace, entry.Bytes)
		t.recordEvent(metrics.EventDataServedFromCS, interest.Name, len(entry.Bytes), start, "cs-hit")
		return
	}
	t.counters.Incr(t.id, metrics.CounterCSMisses, 1)

	if t.archive != nil && t.tryArchive(interest, inFace, start) {
		unlock()
		return
	}

	action := t.pit.OnInterest(interest, inFace)
	unlock()
	switch action {
	case table.ActionDrop:
		t.counters.Incr(t.id, metrics.CounterDropsDuplicate, 1)
		t.recordEvent(metrics.EventInterestDropped, interest.Name, len(raw), start, "duplicate-nonce")
		return
	case table.ActionReject:
		t.counters.Incr(t.id, metrics.CounterDropsCongestion, 1)
		nack := tlv.EncodeNack(&tlv.Nack{Name: interest.Name, Reason: tlv.NackCongestion})
		t.sendOut(inFace, nack)
		t.recordEvent(metrics.EventInterestDropped, interest.Name, len(raw), start, "pit-congestion")
		return
	case table.ActionAggregate:
		t.counters.Incr(t.id, metrics.CounterPITMerges, 1)
		t.recordEvent(metrics.EventInterestAggregated, interest.Name, len(raw), start, "aggregated")
		return
	}

	t.counters.Incr(t.id, metrics.CounterPITInserts, 1)

	best, err := t.fib.Lookup(interest.Name, inFace)
	if err != nil {
		t.counters.Incr(t.id, metrics.CounterDropsNoRoute, 1)
		t.pit.OnNack(&tlv.Nack{Name: interest.Name, Reason: tlv.NackNoRoute})
		nack := tlv.EncodeNack(&tlv.Nack{Name: interest.Name, Reason: tlv.NackNoRoute})
		t.sendOut(inFace, nack)
		return
	}

	outFaces := t.strategy.AfterLookup(interest.Name, best, inFace)
	for _, out := range outFaces {
		t.pit.SetOutFace(interest.Name, out)
		t.sendOut(out, tlv.EncodeInterest(interest))
		t.counters.Incr(t.id, metrics.CounterForwards, 1)
	}
	t.recordEvent(metrics.EventInterestForwarded, interest.Name, len(raw), start, "forwarded")
}

// tryArchive consults the persistent Data archive on a CS miss. A hit is
// parsed, checked for freshness, re-inserted into the CS so the next
// Interest for the same name is a normal CS hit, and sent out. MustBeFresh
// Interests against stale archived Data fall through to normal forwarding.
func (t *Thread) tryArchive(interest *tlv.Interest, inFace defn.FaceID, start time.Time) bool {
	wire, ok, err := t.archive.Get(interest.Name)
	if err != nil || !ok {
		return false
	}
	d, err := tlv.ParseData(wire)
	if err != nil {
		return false
	}
	if interest.MustBeFresh && !d.Fresh() {
		return false
	}

	t.counters.Incr(t.id, metrics.CounterArchiveHits, 1)
	t.cs.Insert(d, wire)
	t.sendOut(inFace, wire)
	t.recordEvent(metrics.EventDataServedFromCS, interest.Name, len(wire), start, "archive-hit")
	return true
}

func (t *Thread) onData(raw []byte, inFace defn.FaceID, start time.Time) {
	d, err := tlv.ParseData(raw)
	if err != nil {
		t.counters.Incr(t.id, metrics.CounterParseErrors, 1)
		return
	}
	t.counters.Incr(t.id, metrics.CounterDataReceived, 1)

	// Mirrors onInterest's locked section: the CS insert and the PIT
	// satisfy must appear atomic to a concurrent Interest for this name so
	// neither side of the race in table.NameLocks's doc comment can occur.
	unlock := t.names.Lock(d.Name)
	if d.Fresh() {
		t.cs.Insert(d, raw)
		t.counters.Incr(t.id, metrics.CounterCSInserts, 1)
	}
	faces := t.pit.OnData(d)
	unlock()
	if len(faces) > 0 {
		t.counters.Incr(t.id, metrics.CounterPITSatisfies, 1)
	}
	for _, f := range faces {
		if f == inFace {
			continue
		}
		t.sendOut(f, raw)
	}
	t.recordEvent(metrics.EventDataForwarded, d.Name, len(raw), start, "forwarded")
}

func (t *Thread) onNack(raw []byte, inFace defn.FaceID, start time.Time) {
	n, err := tlv.ParseNack(raw)
	if err != nil {
		t.counters.Incr(t.id, metrics.CounterParseErrors, 1)
		return
	}
	t.counters.Incr(t.id, metrics.CounterNacksReceived, 1)

	faces := t.pit.OnNack(n)
	for _, f := range faces {
		if f == inFace {
			continue
		}
		t.sendOut(f, raw)
	}
	t.recordEvent(metrics.EventNackForwarded, n.Name, len(raw), start, "forwarded")
}

func (t *Thread) recordEvent(kind metrics.EventKind, name tlv.Name, size int, start time.Time, action string) {
	if t.events == nil {
		return
	}
	t.events.Push(t.id, metrics.Event{
		Timestamp: start, Kind: kind, NameHash: nameHashSafe(name),
		Size: size, ProcessingNs: time.Since(start).Nanoseconds(), Action: action,
	})
}

func nameHashSafe(name tlv.Name) uint64 {
	if name == nil {
		return 0
	}
	return nhash.H(name)
}
