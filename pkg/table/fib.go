package table

import (
	"sort"
	"sync"

	"github.com/ndnfw/ndnfw/pkg/defn"
	"github.com/ndnfw/ndnfw/pkg/nhash"
	"github.com/ndnfw/ndnfw/pkg/tlv"
)

// NextHop is one route in a FIBEntry (spec.md §3's `{prefix_hash, next_face,
// cost}`, generalized to a list of candidate faces per prefix so the
// strategy hook in pkg/strategy has more than one to choose from).
type NextHop struct {
	Face defn.FaceID
	Cost uint16
}

// FIBEntry holds every registered next hop for one name prefix.
type FIBEntry struct {
	PrefixHash uint64
	Prefix     tlv.Name
	NextHops   []NextHop
}

func (e *FIBEntry) indexOf(face defn.FaceID) int {
	for i, nh := range e.NextHops {
		if nh.Face == face {
			return i
		}
	}
	return -1
}

// FIB is the Forwarding Information Base from spec.md §4.5: administrative,
// guarded by a single RWMutex since control-plane registration is rare
// relative to the Lookup hot path. Writers update entries in place under
// the write lock; the FIB is neither copy-on-write nor sharded.
type FIB struct {
	mu      sync.RWMutex
	entries map[uint64]*FIBEntry
}

// NewFIB builds an empty FIB.
func NewFIB() *FIB {
	return &FIB{entries: make(map[uint64]*FIBEntry)}
}

func (f *FIB) String() string { return "fib" }

// InsertNextHop registers (or updates the cost of) a next hop for prefix,
// mirroring fw/mgmt/fib.go's InsertNextHopEnc.
func (f *FIB) InsertNextHop(prefix tlv.Name, face defn.FaceID, cost uint16) {
	hash := nhash.H(prefix)

	f.mu.Lock()
	defer f.mu.Unlock()

	entry, ok := f.entries[hash]
	if !ok {
		entry = &FIBEntry{PrefixHash: hash, Prefix: prefix.Clone()}
		f.entries[hash] = entry
	}
	if i := entry.indexOf(face); i >= 0 {
		entry.NextHops[i].Cost = cost
		return
	}
	entry.NextHops = append(entry.NextHops, NextHop{Face: face, Cost: cost})
	sort.Slice(entry.NextHops, func(i, j int) bool {
		if entry.NextHops[i].Cost != entry.NextHops[j].Cost {
			return entry.NextHops[i].Cost < entry.NextHops[j].Cost
		}
		return entry.NextHops[i].Face < entry.NextHops[j].Face
	})
}

// RemoveNextHop removes one face's route from prefix, pruning the entry
// entirely once it has no remaining next hops.
func (f *FIB) RemoveNextHop(prefix tlv.Name, face defn.FaceID) {
	hash := nhash.H(prefix)

	f.mu.Lock()
	defer f.mu.Unlock()

	entry, ok := f.entries[hash]
	if !ok {
		return
	}
	i := entry.indexOf(face)
	if i < 0 {
		return
	}
	entry.NextHops = append(entry.NextHops[:i], entry.NextHops[i+1:]...)
	if len(entry.NextHops) == 0 {
		delete(f.entries, hash)
	}
}

// ErrNoRoute is returned by Lookup when no registered prefix matches name,
// spec.md §4.5's `NoRoute` verdict.
var ErrNoRoute = errNoRoute{}

type errNoRoute struct{}

func (errNoRoute) Error() string { return "no route" }

// Lookup implements spec.md §4.5's lookup(name): iterate k from n down to
// 0 probing H_k(name), the first hit is the longest match. inFace is
// excluded from the candidate set unless it is the only route registered
// (spec.md's loop-avoidance rule); ties among equal-cost remaining faces
// are broken by the lowest FaceId.
func (f *FIB) Lookup(name tlv.Name, inFace defn.FaceID) (defn.FaceID, error) {
	series := nhash.NewSeries(name)

	f.mu.RLock()
	defer f.mu.RUnlock()

	for k := series.Len(); k >= 0; k-- {
		entry, ok := f.entries[series.At(k)]
		if !ok {
			continue
		}
		// hash-equality isn't name-equality; guard the rare collision by
		// re-checking the prefix length actually matches stored length.
		if len(entry.Prefix) != k {
			continue
		}

		best := defn.InvalidFaceID
		for _, nh := range entry.NextHops {
			if nh.Face == inFace && len(entry.NextHops) > 1 {
				continue
			}
			best = nh.Face
			break
		}
		if best != defn.InvalidFaceID {
			return best, nil
		}
	}
	return defn.InvalidFaceID, ErrNoRoute
}

// GetAllEntries returns a snapshot of every FIB entry, modeled on
// fw/mgmt/fib.go's list verb.
func (f *FIB) GetAllEntries() []FIBEntry {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make([]FIBEntry, 0, len(f.entries))
	for _, e := range f.entries {
		hops := make([]NextHop, len(e.NextHops))
		copy(hops, e.NextHops)
		out = append(out, FIBEntry{PrefixHash: e.PrefixHash, Prefix: e.Prefix.Clone(), NextHops: hops})
	}
	return out
}
