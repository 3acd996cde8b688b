package table

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/ndnfw/ndnfw/internal/core"
	"github.com/ndnfw/ndnfw/pkg/defn"
	"github.com/ndnfw/ndnfw/pkg/nhash"
	"github.com/ndnfw/ndnfw/pkg/tlv"
)

// Action is the verdict on_interest returns to the forwarder (spec.md §4.4).
type Action int

const (
	ActionForward Action = iota
	ActionAggregate
	ActionDrop
	// ActionReject means the PIT is at capacity; spec.md §4.4: "reject new
	// Interests with a local Nack (reason = congestion)", distinct from
	// ActionDrop's silent duplicate-nonce discard.
	ActionReject
)

func (a Action) String() string {
	switch a {
	case ActionForward:
		return "forward"
	case ActionAggregate:
		return "aggregate"
	case ActionDrop:
		return "drop"
	case ActionReject:
		return "reject"
	default:
		return "unknown"
	}
}

// PITEntry is the live record of an unsatisfied Interest (spec.md §3).
type PITEntry struct {
	NameHash   uint64
	Name       tlv.Name
	Nonces     map[uint32]struct{}
	InFaces    map[defn.FaceID]struct{}
	OutFace    defn.FaceID
	ArrivalTime time.Time
	ExpiryTime  time.Time
	HopCount    int
}

func (e *PITEntry) expired(now time.Time) bool {
	return !e.ExpiryTime.After(now)
}

type pitShard struct {
	mu      sync.Mutex
	entries map[uint64]*PITEntry
}

func newPITShard() *pitShard {
	return &pitShard{entries: make(map[uint64]*PITEntry)}
}

// PIT is the sharded Pending Interest Table (spec.md §4.4): dedup and
// aggregation of concurrent Interests for the same name, nonce-based loop
// detection, and a bounded capacity that rejects rather than evicts on
// overflow.
type PIT struct {
	shards   []*pitShard
	capacity int

	count   int64 // approximate live-entry count, maintained with countMu
	countMu sync.Mutex

	aggregated atomic.Uint64
	forwarded  atomic.Uint64
	dropped    atomic.Uint64
	rejected   atomic.Uint64
	satisfied  atomic.Uint64
	expired    atomic.Uint64
}

// NewPIT builds a PIT with the given shard count and entry capacity
// (spec.md §4.4: "bounded, e.g. 4096-65536 entries").
func NewPIT(cfg core.PITConfig) *PIT {
	shards := cfg.Shards
	if shards < 1 {
		shards = 1
	}
	p := &PIT{
		shards:   make([]*pitShard, shards),
		capacity: cfg.Capacity,
	}
	for i := range p.shards {
		p.shards[i] = newPITShard()
	}
	return p
}

func (p *PIT) String() string { return "pit" }

func (p *PIT) shardFor(hash uint64) *pitShard {
	return p.shards[hash%uint64(len(p.shards))]
}

func (p *PIT) liveCount() int64 {
	p.countMu.Lock()
	defer p.countMu.Unlock()
	return p.count
}

func (p *PIT) adjustCount(delta int64) {
	p.countMu.Lock()
	p.count += delta
	p.countMu.Unlock()
}

// OnInterest implements spec.md §4.4's on_interest(interest, in_face).
func (p *PIT) OnInterest(i *tlv.Interest, inFace defn.FaceID) Action {
	hash := nhash.H(i.Name)
	shard := p.shardFor(hash)
	now := time.Now()

	shard.mu.Lock()
	defer shard.mu.Unlock()

	entry, ok := shard.entries[hash]
	if ok && !entry.expired(now) {
		if _, seen := entry.Nonces[i.Nonce]; seen {
			p.dropped.Add(1)
			return ActionDrop
		}
		entry.Nonces[i.Nonce] = struct{}{}
		entry.InFaces[inFace] = struct{}{}
		newExpiry := now.Add(i.Lifetime)
		if newExpiry.After(entry.ExpiryTime) {
			entry.ExpiryTime = newExpiry
		}
		p.aggregated.Add(1)
		return ActionAggregate
	}

	// An entry present here is stale (expired but not yet reaped by Tick):
	// it's being replaced in place, not newly occupying a slot, so it must
	// not count against capacity or add a second unit to the live count.
	replacingStale := ok

	if !replacingStale && p.capacity > 0 && p.liveCount() >= int64(p.capacity) {
		p.rejected.Add(1)
		return ActionReject
	}

	newEntry := &PITEntry{
		NameHash:    hash,
		Name:        i.Name.Clone(),
		Nonces:      map[uint32]struct{}{i.Nonce: {}},
		InFaces:     map[defn.FaceID]struct{}{inFace: {}},
		OutFace:     defn.InvalidFaceID,
		ArrivalTime: now,
		ExpiryTime:  now.Add(i.Lifetime),
		HopCount:    int(i.HopLimit),
	}
	shard.entries[hash] = newEntry
	if !replacingStale {
		p.adjustCount(1)
	}
	p.forwarded.Add(1)
	return ActionForward
}

// SetOutFace records which face an Interest was forwarded out on, so a
// matching Data/Nack can distinguish the downstream reply path from
// upstream in_faces. No-op if the entry has since been satisfied/expired.
func (p *PIT) SetOutFace(name tlv.Name, face defn.FaceID) {
	hash := nhash.H(name)
	shard := p.shardFor(hash)

	shard.mu.Lock()
	defer shard.mu.Unlock()
	if entry, ok := shard.entries[hash]; ok {
		entry.OutFace = face
	}
}

// OnData implements spec.md §4.4's on_data(data): look up by name-hash,
// return the in_faces to fan out to, and delete the entry. An unmatched
// Data returns an empty, non-nil slice.
func (p *PIT) OnData(d *tlv.Data) []defn.FaceID {
	return p.satisfy(d.Name)
}

// OnNack implements spec.md §4.4's on_nack: same fan-out and deletion
// semantics as OnData.
func (p *PIT) OnNack(n *tlv.Nack) []defn.FaceID {
	return p.satisfy(n.Name)
}

func (p *PIT) satisfy(name tlv.Name) []defn.FaceID {
	hash := nhash.H(name)
	shard := p.shardFor(hash)

	shard.mu.Lock()
	defer shard.mu.Unlock()

	entry, ok := shard.entries[hash]
	if !ok {
		return []defn.FaceID{}
	}
	delete(shard.entries, hash)
	p.adjustCount(-1)
	p.satisfied.Add(1)

	faces := make([]defn.FaceID, 0, len(entry.InFaces))
	for f := range entry.InFaces {
		faces = append(faces, f)
	}
	return faces
}

// Tick implements spec.md §4.4's tick(now): silently expires entries whose
// expiry_time has passed. Returns the number of entries expired, for
// metrics.
func (p *PIT) Tick(now time.Time) int {
	expiredCount := 0
	for _, shard := range p.shards {
		shard.mu.Lock()
		for hash, entry := range shard.entries {
			if entry.expired(now) {
				delete(shard.entries, hash)
				expiredCount++
			}
		}
		shard.mu.Unlock()
	}
	if expiredCount > 0 {
		p.adjustCount(-int64(expiredCount))
		p.expired.Add(uint64(expiredCount))
	}
	return expiredCount
}

// Find returns a snapshot of the live entry for name, if any — used by
// tests. Mutating the returned
// entry has no effect on the table.
func (p *PIT) Find(name tlv.Name) (PITEntry, bool) {
	hash := nhash.H(name)
	shard := p.shardFor(hash)

	shard.mu.Lock()
	defer shard.mu.Unlock()
	entry, ok := shard.entries[hash]
	if !ok {
		return PITEntry{}, false
	}
	return *entry, true
}

// Count returns the live PIT entry count.
func (p *PIT) Count() int64 { return p.liveCount() }

// PITCounters is a point-in-time snapshot of the PIT's counters.
type PITCounters struct {
	Forwarded, Aggregated, Dropped, Rejected, Satisfied, Expired uint64
	Live                                                          int64
}

func (p *PIT) Counters() PITCounters {
	return PITCounters{
		Forwarded:  p.forwarded.Load(),
		Aggregated: p.aggregated.Load(),
		Dropped:    p.dropped.Load(),
		Rejected:   p.rejected.Load(),
		Satisfied:  p.satisfied.Load(),
		Expired:    p.expired.Load(),
		Live:       p.liveCount(),
	}
}
