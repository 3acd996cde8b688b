// Package strategy implements the forwarding-strategy hook from spec.md
// §4.5: invoked after a FIB lookup succeeds, it decides which face(s) an
// Interest is actually sent out on. Only the default best-route strategy
// is implemented; the interface is preserved so multicast or probing
// strategies could be added later without touching pkg/forwarder.
package strategy

import (
	"github.com/ndnfw/ndnfw/pkg/defn"
	"github.com/ndnfw/ndnfw/pkg/tlv"
)

// Strategy decides which face(s) to forward an Interest to, given the best
// route the FIB already chose. Implementations must not mutate name.
type Strategy interface {
	// AfterLookup is invoked once per forwarded Interest, after FIB.Lookup
	// has already excluded the arrival face per spec.md §4.5's loop
	// avoidance rule. It returns the ordered list of faces to try.
	AfterLookup(name tlv.Name, best defn.FaceID, inFace defn.FaceID) []defn.FaceID
	String() string
}

// BestRoute is spec.md §4.5's default strategy: forward to the single best
// face the FIB already picked.
type BestRoute struct{}

func (BestRoute) AfterLookup(_ tlv.Name, best defn.FaceID, _ defn.FaceID) []defn.FaceID {
	if best == defn.InvalidFaceID {
		return nil
	}
	return []defn.FaceID{best}
}

func (BestRoute) String() string { return "strategy/best-route" }
