// Package nhash computes the 64-bit name hashes used as lookup keys across
// the Content Store, PIT, and FIB (spec.md §4.2). It wires in
// github.com/cespare/xxhash/v2 for the non-cryptographic avalanche hash the
// spec calls for, rather than hand-rolling one, matching the teacher
// module's declared (if previously unused) xxhash dependency.
package nhash

import (
	"github.com/cespare/xxhash/v2"

	"github.com/ndnfw/ndnfw/pkg/tlv"
)

// H computes the 64-bit hash of a Name's canonical component encoding
// (spec.md §4.2: computed over the canonical wire form, component by
// component). It is defined as Series.At(len(name)) so CS/PIT lookups
// (which use H directly) and FIB probing (which walks the Series) always
// agree, per the tie-break rule in spec.md §4.2.
func H(name tlv.Name) uint64 {
	return NewSeries(name).At(len(name))
}

// Series holds H_k(name) for every prefix length k = 0..len(name),
// computed on each NewSeries call in a single streaming pass so FIB longest-prefix
// match probing costs O(n) hash steps, not O(n^2) (spec.md §4.2).
type Series struct {
	name   tlv.Name
	hashes []uint64 // hashes[k] = H_k(name), for k = 0..len(name)
}

// NewSeries computes the full H_k series for name by feeding each
// component's own T-L-V bytes into a running xxhash digest and snapshotting
// the running sum after each component — the canonical prefix-hash series.
func NewSeries(name tlv.Name) *Series {
	s := &Series{name: name, hashes: make([]uint64, len(name)+1)}
	d := xxhash.New()
	s.hashes[0] = d.Sum64()
	for k, comp := range name {
		d.Write(comp.Bytes())
		s.hashes[k+1] = d.Sum64()
	}
	return s
}

// At returns H_k(name) for the k-length prefix of the Series's name.
// k must be in [0, len(name)].
func (s *Series) At(k int) uint64 {
	return s.hashes[k]
}

// Len returns the number of components in the underlying name.
func (s *Series) Len() int {
	return len(s.name)
}

// Name returns the underlying name the series was computed for.
func (s *Series) Name() tlv.Name {
	return s.name
}
