package table

import (
	"container/list"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ndnfw/ndnfw/internal/core"
	"github.com/ndnfw/ndnfw/pkg/nhash"
	"github.com/ndnfw/ndnfw/pkg/tlv"
)

// CSEntry is the cached form of a Data packet (spec.md §3). Bytes is the
// encoded Data wire, shared (never copied) with every face that sends this
// entry out — spec.md §9's "large struct value semantics" note: the CS
// stores the payload once and every sender holds a reference to the same
// backing array.
type CSEntry struct {
	NameHash    uint64
	Name        tlv.Name
	InsertTime  time.Time
	ExpiryTime  time.Time
	ContentType uint8
	Size        int
	Bytes       []byte
}

func (e *CSEntry) expired(now time.Time) bool {
	return !e.ExpiryTime.After(now)
}

// csShard owns one lock-protected slice of the name-hash space. Sharding
// the CS (spec.md §4.3: "writers serialize through a sharded structure,
// hash shards >= number of worker threads") bounds lookup contention
// without a single global lock.
type csShard struct {
	mu      sync.RWMutex
	entries map[uint64]*list.Element // name-hash -> LRU element
	lru     *list.List               // front = MRU, back = LRU victim
	bytes   int64                    // bytes resident in this shard
}

func newCSShard() *csShard {
	return &csShard{
		entries: make(map[uint64]*list.Element),
		lru:     list.New(),
	}
}

// ContentStore is the bounded Data cache described in spec.md §4.3: LRU
// replacement with a size-aware admission gate, sharded for concurrent
// lookup, expiry on read, and explicit prefix invalidation.
type ContentStore struct {
	shards        []*csShard
	capacityBytes int64
	maxEntryBytes int64
	maxEntries    int
	maxTTL        time.Duration

	totalBytes  atomic.Int64
	totalCount  atomic.Int64
	admitEnable atomic.Bool
	serveEnable atomic.Bool

	hits      atomic.Uint64
	misses    atomic.Uint64
	inserts   atomic.Uint64
	evictions atomic.Uint64
}

// NewContentStore builds a ContentStore with the given shard count and
// capacity. Admit and Serve both default to enabled, matching
// mgmt.CsEnableAdmit/CsEnableServe's default-on behavior in the teacher
// corpus's fw/mgmt/cs.go.
func NewContentStore(cfg core.CSConfig) *ContentStore {
	if cfg.Shards < 1 {
		cfg.Shards = 1
	}
	cs := &ContentStore{
		shards:        make([]*csShard, cfg.Shards),
		capacityBytes: int64(cfg.CapacityBytes),
		maxEntryBytes: int64(cfg.MaxEntryBytes),
		maxEntries:    cfg.MaxEntries,
		maxTTL:        cfg.MaxTTL,
	}
	for i := range cs.shards {
		cs.shards[i] = newCSShard()
	}
	cs.admitEnable.Store(true)
	cs.serveEnable.Store(true)
	return cs
}

func (cs *ContentStore) String() string { return "content-store" }

func (cs *ContentStore) shardFor(hash uint64) *csShard {
	return cs.shards[hash%uint64(len(cs.shards))]
}

// perShardCapacity splits the global byte budget evenly across shards so
// each shard can make eviction decisions under only its own lock (spec.md
// §4.3's sharding is about bounding lookup contention; this forwarder
// trades a small amount of cross-shard capacity imbalance for that
// independence).
func (cs *ContentStore) perShardCapacity() int64 {
	return cs.capacityBytes / int64(len(cs.shards))
}

// Lookup implements spec.md §4.3's lookup(name, must_be_fresh). A stale hit
// with must_be_fresh is reported as a Miss without being evicted (eviction
// happens only via insert pressure, per the LRU spec). Recency (MRU
// promotion) is updated only on a successful, fresh-enough hit.
func (cs *ContentStore) Lookup(name tlv.Name, mustBeFresh bool) (*CSEntry, bool) {
	if !cs.serveEnable.Load() {
		cs.misses.Add(1)
		return nil, false
	}

	hash := nhash.H(name)
	shard := cs.shardFor(hash)

	shard.mu.Lock()
	defer shard.mu.Unlock()

	el, ok := shard.entries[hash]
	if !ok {
		cs.misses.Add(1)
		return nil, false
	}
	entry := el.Value.(*CSEntry)
	if !entry.Name.Equal(name) {
		// hash collision across distinct names: treat as a miss rather
		// than serving the wrong Data.
		cs.misses.Add(1)
		return nil, false
	}
	now := time.Now()
	if mustBeFresh && entry.expired(now) {
		cs.misses.Add(1)
		return nil, false
	}

	shard.lru.MoveToFront(el)
	cs.hits.Add(1)
	return entry, true
}

// Insert implements spec.md §4.3's insert(Data): cacheable iff freshness >
// 0 and size <= CS_MAX_ENTRY_BYTES, evicting LRU entries from this name's
// shard until there's room, and dropping (not force-admitting) if the shard
// still can't fit it.
func (cs *ContentStore) Insert(d *tlv.Data, wire []byte) {
	if !cs.admitEnable.Load() || !d.Fresh() {
		return
	}
	size := int64(len(wire))
	if size > cs.maxEntryBytes {
		return
	}

	ttl := d.Freshness
	if cs.maxTTL > 0 && ttl > cs.maxTTL {
		ttl = cs.maxTTL
	}
	now := time.Now()

	name := d.Name.Clone()
	hash := nhash.H(name)
	shard := cs.shardFor(hash)
	budget := cs.perShardCapacity()

	shard.mu.Lock()
	defer shard.mu.Unlock()

	// Already present: replace in place, adjusting byte accounting.
	if el, ok := shard.entries[hash]; ok {
		old := el.Value.(*CSEntry)
		if old.Name.Equal(name) {
			shard.bytes += size - int64(old.Size)
			cs.totalBytes.Add(size - int64(old.Size))
			el.Value = &CSEntry{
				NameHash: hash, Name: name, InsertTime: now,
				ExpiryTime: now.Add(ttl), ContentType: d.ContentType,
				Size: int(size), Bytes: wire,
			}
			shard.lru.MoveToFront(el)
			cs.inserts.Add(1)
			return
		}
	}

	// Evict oldest entries in this shard until there's room, per LRU with
	// oldest insert_time tie-break (back of list is the true LRU victim;
	// we additionally prefer the one inserted earliest among ties, which
	// list order already encodes since insertion always happens at front).
	for shard.bytes+size > budget && shard.lru.Len() > 0 {
		back := shard.lru.Back()
		victim := back.Value.(*CSEntry)
		shard.lru.Remove(back)
		delete(shard.entries, victim.NameHash)
		shard.bytes -= int64(victim.Size)
		cs.totalBytes.Add(-int64(victim.Size))
		cs.totalCount.Add(-1)
		cs.evictions.Add(1)
	}

	if shard.bytes+size > budget {
		// Admission fails rather than evicting unboundedly (spec.md §4.3).
		return
	}
	if cs.maxEntries > 0 && int(cs.totalCount.Load()) >= cs.maxEntries {
		return
	}

	entry := &CSEntry{
		NameHash: hash, Name: name, InsertTime: now,
		ExpiryTime: now.Add(ttl), ContentType: d.ContentType,
		Size: int(size), Bytes: wire,
	}
	el := shard.lru.PushFront(entry)
	shard.entries[hash] = el
	shard.bytes += size
	cs.totalBytes.Add(size)
	cs.totalCount.Add(1)
	cs.inserts.Add(1)
}

// Invalidate implements spec.md §4.3's invalidate(prefix): remove every
// entry whose name has the given prefix. Since entries are sharded by full
// name hash, this walks every shard; call sites (administrative prefix
// withdrawal) are rare relative to lookup/insert so this is not on the hot
// path.
func (cs *ContentStore) Invalidate(prefix tlv.Name) int {
	removed := 0
	for _, shard := range cs.shards {
		shard.mu.Lock()
		for hash, el := range shard.entries {
			entry := el.Value.(*CSEntry)
			if prefix.IsPrefixOf(entry.Name) {
				shard.lru.Remove(el)
				delete(shard.entries, hash)
				shard.bytes -= int64(entry.Size)
				cs.totalBytes.Add(-int64(entry.Size))
				cs.totalCount.Add(-1)
				removed++
			}
		}
		shard.mu.Unlock()
	}
	return removed
}

// SetAdmit/SetServe toggle CS admission and serving independently, mirroring
// mgmt.CsEnableAdmit / mgmt.CsEnableServe flags in the teacher corpus.
func (cs *ContentStore) SetAdmit(v bool) { cs.admitEnable.Store(v) }
func (cs *ContentStore) SetServe(v bool) { cs.serveEnable.Store(v) }

// TotalBytes reports the live total across all shards, for the CS
// monotonic-size invariant (spec.md §8 invariant 3).
func (cs *ContentStore) TotalBytes() int64 { return cs.totalBytes.Load() }

// EntryCount reports the live entry count across all shards.
func (cs *ContentStore) EntryCount() int64 { return cs.totalCount.Load() }

// CSCounters is a point-in-time snapshot of the CS's metrics counters.
type CSCounters struct {
	Hits, Misses, Inserts, Evictions uint64
	Bytes, Entries                   int64
}

func (cs *ContentStore) Counters() CSCounters {
	return CSCounters{
		Hits:      cs.hits.Load(),
		Misses:    cs.misses.Load(),
		Inserts:   cs.inserts.Load(),
		Evictions: cs.evictions.Load(),
		Bytes:     cs.totalBytes.Load(),
		Entries:   cs.totalCount.Load(),
	}
}
