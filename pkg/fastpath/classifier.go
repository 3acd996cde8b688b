// Package fastpath implements the optional early-stage classifier from
// spec.md §4.6: a sound subset of the slow-path forwarder (pkg/forwarder)
// that short-circuits CS hits and duplicate-nonce drops before a packet
// reaches user-space dispatch. It never implements anything the slow path
// wouldn't also do — disabling it changes performance, not semantics.
package fastpath

import (
	"sync"
	"time"

	"github.com/ndnfw/ndnfw/pkg/defn"
	"github.com/ndnfw/ndnfw/pkg/nhash"
	"github.com/ndnfw/ndnfw/pkg/table"
	"github.com/ndnfw/ndnfw/pkg/tlv"
)

// Verdict is the classifier's decision on one packet.
type Verdict int

const (
	// VerdictSlowPath hands the packet to user space unchanged.
	VerdictSlowPath Verdict = iota
	// VerdictServedFromCS means the classifier emitted a Data response
	// itself; the caller does not forward the original Interest further.
	VerdictServedFromCS
	// VerdictDroppedDuplicate means a duplicate nonce was seen within the
	// dedup window; the packet is discarded.
	VerdictDroppedDuplicate
	// VerdictRedirected means a Data packet was handed directly to its
	// recorded in-face via the PIT, bypassing the slow-path dispatch.
	VerdictRedirected
)

// Config bundles the fast path's size and sampling knobs (spec.md §4.6).
type Config struct {
	// MaxNameBytes bounds names the classifier will even attempt to
	// parse (spec.md: "bounded to names <= 32 components, <= 1024 bytes").
	MaxNameBytes int
	// ResponseBytes is FAST_PATH_RESPONSE_BYTES: the largest CS entry the
	// fast path will serve directly.
	ResponseBytes int
	// CacheBytes is FAST_PATH_CACHE_BYTES: the largest Data the fast path
	// will opportunistically cache.
	CacheBytes int
	// NonceDedupWindow is how long a seen nonce suppresses a repeat
	// (spec.md: "drop if hit within 1s").
	NonceDedupWindow time.Duration
	// SlowPathSampleOutOf1000 unconditionally routes this many packets per
	// 1000 to the slow path regardless of what the fast path could have
	// done, for observability (spec.md default 20% == 200/1000).
	SlowPathSampleOutOf1000 int
}

// DefaultConfig matches spec.md §4.6's stated defaults.
func DefaultConfig() Config {
	return Config{
		MaxNameBytes:            1024,
		ResponseBytes:           8192,
		CacheBytes:              8192,
		NonceDedupWindow:        time.Second,
		SlowPathSampleOutOf1000: 200,
	}
}

type nonceKey struct {
	nameHash uint64
	nonce    uint32
}

// Classifier is the fast-path engine. It shares the CS and PIT with the
// slow-path forwarder (both sides mutate the same tables, so a hit on one
// path is immediately visible to the other) but keeps its own small nonce
// dedup cache, since the slow path's loop detection lives inside PIT
// entries that may not exist yet when the fast path runs.
type Classifier struct {
	cfgMu sync.RWMutex
	cfg   Config

	cs  *table.ContentStore
	pit *table.PIT

	mu     sync.Mutex
	nonces map[nonceKey]time.Time

	sampleCounter uint64 // per-packet deterministic counter, spec.md §9 Open Question
}

// NewClassifier builds a Classifier sharing cs and pit with the slow path.
func NewClassifier(cfg Config, cs *table.ContentStore, pit *table.PIT) *Classifier {
	return &Classifier{
		cfg:    cfg,
		cs:     cs,
		pit:    pit,
		nonces: make(map[nonceKey]time.Time),
	}
}

func (c *Classifier) String() string { return "fastpath-classifier" }

// Config returns the classifier's current settings.
func (c *Classifier) Config() Config {
	c.cfgMu.RLock()
	defer c.cfgMu.RUnlock()
	return c.cfg
}

// SetConfig applies a new configuration live, per spec.md §6's
// ConfigureFastPath RPC. Already-cached CS entries and in-flight dedup
// state are left as-is; only future classification decisions see the
// change.
func (c *Classifier) SetConfig(cfg Config) {
	c.cfgMu.Lock()
	defer c.cfgMu.Unlock()
	c.cfg = cfg
}

// sampledToSlowPath implements the deterministic "configurable fraction
// unconditionally passed to user space" rule from spec.md §4.6, resolving
// the open question on sampling mechanism: a monotonically incrementing
// per-classifier counter taken modulo 1000, rather than math/rand, so test
// runs are reproducible and the sampled fraction is exact over any window
// of 1000 consecutive packets.
func (c *Classifier) sampledToSlowPath() bool {
	n := c.sampleCounter
	c.sampleCounter++
	return n%1000 < uint64(c.Config().SlowPathSampleOutOf1000)
}

func (c *Classifier) recentlySeenNonce(nameHash uint64, nonce uint32, now time.Time) bool {
	key := nonceKey{nameHash, nonce}
	window := c.Config().NonceDedupWindow

	c.mu.Lock()
	defer c.mu.Unlock()

	if seenAt, ok := c.nonces[key]; ok && now.Sub(seenAt) < window {
		return true
	}
	c.nonces[key] = now
	return false
}

// gcNonces prunes dedup entries older than the window. Call periodically
// from the same tick driving table.PIT.Tick; the fast path has no other
// natural cadence to hang cleanup off of.
func (c *Classifier) gcNonces(now time.Time) {
	window := c.Config().NonceDedupWindow
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, at := range c.nonces {
		if now.Sub(at) >= window {
			delete(c.nonces, k)
		}
	}
}

// GCNonces is gcNonces exported for the daemon's periodic maintenance tick
// (internal/cmdline).
func (c *Classifier) GCNonces(now time.Time) { c.gcNonces(now) }

// ClassifyInterest implements spec.md §4.6's Interest fast path. On
// VerdictServedFromCS the returned wire is the encoded Data response ready
// to send back out inFace.
func (c *Classifier) ClassifyInterest(raw []byte, inFace defn.FaceID) (Verdict, []byte) {
	cfg := c.Config()
	if len(raw) > cfg.MaxNameBytes*8 {
		// Conservative outer bound before even parsing; exact per-component
		// limits are enforced by pkg/tlv itself.
		return VerdictSlowPath, nil
	}
	if c.sampledToSlowPath() {
		return VerdictSlowPath, nil
	}

	interest, err := tlv.ParseInterest(raw)
	if err != nil {
		return VerdictSlowPath, nil
	}
	if len(interest.Name) > tlv.MaxNameComponents || interest.Name.EncodingLength() > cfg.MaxNameBytes {
		return VerdictSlowPath, nil
	}

	now := time.Now()
	nameHash := nhash.H(interest.Name)
	if interest.HasNonce && c.recentlySeenNonce(nameHash, interest.Nonce, now) {
		return VerdictDroppedDuplicate, nil
	}

	entry, ok := c.cs.Lookup(interest.Name, interest.MustBeFresh)
	if !ok || entry.Size > cfg.ResponseBytes {
		return VerdictSlowPath, nil
	}
	return VerdictServedFromCS, entry.Bytes
}

// ClassifyData implements spec.md §4.6's Data fast path: redirect via the
// PIT's recorded in-faces and opportunistically cache.
func (c *Classifier) ClassifyData(raw []byte) (Verdict, []defn.FaceID) {
	if c.sampledToSlowPath() {
		return VerdictSlowPath, nil
	}

	d, err := tlv.ParseData(raw)
	if err != nil {
		return VerdictSlowPath, nil
	}

	faces := c.pit.OnData(d)
	if len(faces) == 0 {
		return VerdictSlowPath, nil
	}
	if len(raw) <= c.Config().CacheBytes {
		c.cs.Insert(d, raw)
	}
	return VerdictRedirected, faces
}
