package fastpath

import (
	"sync"

	"github.com/ndnfw/ndnfw/pkg/metrics"
)

// ABIVersion identifies the fixed layout of the regions below (spec.md
// §6: "Entry layouts are fixed and versioned"). Bump on any field
// addition, removal, or reordering.
const ABIVersion = 1

// RedirectMap is spec.md §6's "ingress-ifindex -> egress-ifindex redirect
// map": the one region user space is allowed to mutate (besides config).
// It lets an administrator pin a fast-path redirect without going through
// the slow-path FIB, e.g. for a known point-to-point link.
type RedirectMap struct {
	mu    sync.RWMutex
	table map[int]int
}

// NewRedirectMap builds an empty redirect map.
func NewRedirectMap() *RedirectMap {
	return &RedirectMap{table: make(map[int]int)}
}

// Set pins ingress ifindex to redirect to egress ifindex.
func (m *RedirectMap) Set(ingress, egress int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.table[ingress] = egress
}

// Clear removes any pin for ingress.
func (m *RedirectMap) Clear(ingress int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.table, ingress)
}

// Lookup returns the pinned egress ifindex for ingress, if any.
func (m *RedirectMap) Lookup(ingress int) (int, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	egress, ok := m.table[ingress]
	return egress, ok
}

// ABI bundles the typed regions spec.md §6 says the classifier exposes to
// user space. The CS and PIT "maps" named in the spec are pkg/table's
// ContentStore and PIT themselves (Classifier already holds references to
// them); this struct carries the three regions that have no other owner:
// counters, the redirect map, and the event ring. User space only reads
// Counters/Events and mutates Redirect — never the CS/PIT/nonce maps
// directly, matching the spec's access rule.
type ABI struct {
	Version  int
	Counters *metrics.Counters
	Events   *metrics.EventRing
	Redirect *RedirectMap
}

// NewABI wires up the fast path's externally-visible regions.
func NewABI(counters *metrics.Counters, events *metrics.EventRing) *ABI {
	return &ABI{
		Version:  ABIVersion,
		Counters: counters,
		Events:   events,
		Redirect: NewRedirectMap(),
	}
}
