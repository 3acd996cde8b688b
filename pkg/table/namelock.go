package table

import (
	"sync"

	"github.com/ndnfw/ndnfw/pkg/nhash"
	"github.com/ndnfw/ndnfw/pkg/tlv"
)

// NameLocks serializes the combined CS-then-PIT critical section that
// on_interest and on_data both need (spec.md §5, testable property #5: an
// Interest and a Data for the same name must never both lose — arriving on
// different forwarder threads must not let an Interest miss the CS and the
// PIT aggregation it was entitled to in the same breath a concurrent Data
// insert and PIT satisfy are running). CS and PIT are each independently
// sharded by name hash for lookup concurrency; NameLocks adds one more
// hash-sharded mutex layer above both, held only across the handful of
// table calls a single name's dispatch makes, so unrelated names still run
// fully in parallel across threads.
type NameLocks struct {
	locks []sync.Mutex
}

// NewNameLocks builds a NameLocks with the given shard count. A daemon
// wires one shared instance into every forwarder.Thread via Deps.Names so
// the lock actually coordinates across threads instead of only within one.
func NewNameLocks(shards int) *NameLocks {
	if shards < 1 {
		shards = 1
	}
	return &NameLocks{locks: make([]sync.Mutex, shards)}
}

// Lock acquires the shard guarding name and returns the func to release it.
func (n *NameLocks) Lock(name tlv.Name) func() {
	m := &n.locks[nhash.H(name)%uint64(len(n.locks))]
	m.Lock()
	return m.Unlock
}
