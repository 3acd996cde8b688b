// Package face implements spec.md §4.7's face abstraction: a bidirectional
// packet endpoint with fragmentation/reassembly and AIMD congestion
// control, plus UDP, Ethernet, QUIC, and Loopback transports, grounded in
// the teacher module's fw/face package shape (transport.go's
// transport/transportBase split).
package face

import (
	"sync"
	"time"

	"github.com/ndnfw/ndnfw/pkg/defn"
)

// State is a face's QUIC-style connection lifecycle (spec.md §4.7 and §3's
// Connection type; non-QUIC transports only ever occupy Connected, Failed
// and Closed).
type State int

const (
	StateHandshaking State = iota
	StateConnected
	StateIdle
	StateClosing
	StateClosed
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateHandshaking:
		return "handshaking"
	case StateConnected:
		return "connected"
	case StateIdle:
		return "idle"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Face is the abstract bidirectional endpoint from spec.md §3: "send(packet),
// recv() -> packet, current MTU, up/down state". Concrete transports
// (UDP, Ethernet, QUIC, Loopback) implement this directly; pkg/forwarder
// only ever talks to faces through this interface.
type Face interface {
	ID() defn.FaceID
	Send(packet []byte) error
	// Recv delivers the next received packet to handler on the
	// transport's own goroutine, until the face is closed. Transports
	// call handler synchronously per packet, so handler must not block.
	Recv(handler func(packet []byte))
	MTU() int
	SetMTU(mtu int)
	Scope() defn.Scope
	LinkType() defn.LinkType
	State() State
	Up() bool
	Close()
	String() string
}

// base provides the bookkeeping common to every transport, mirroring
// fw/face/transport.go's transportBase: id/scope/link-type/mtu plus byte
// counters and the running flag.
type base struct {
	mu    sync.RWMutex
	id    defn.FaceID
	scope defn.Scope
	link  defn.LinkType
	mtu   int
	state State

	lastActivity time.Time

	nInBytes  uint64
	nOutBytes uint64
}

func newBase(id defn.FaceID, scope defn.Scope, link defn.LinkType, mtu int) base {
	return base{id: id, scope: scope, link: link, mtu: mtu, state: StateConnected, lastActivity: time.Now()}
}

func (b *base) ID() defn.FaceID        { return b.id }
func (b *base) Scope() defn.Scope      { return b.scope }
func (b *base) LinkType() defn.LinkType { return b.link }

func (b *base) MTU() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.mtu
}

func (b *base) SetMTU(mtu int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.mtu = mtu
}

func (b *base) State() State {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state
}

func (b *base) setState(s State) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = s
}

func (b *base) Up() bool {
	s := b.State()
	return s == StateConnected || s == StateIdle || s == StateHandshaking
}

func (b *base) touch() {
	b.mu.Lock()
	b.lastActivity = time.Now()
	b.mu.Unlock()
}

func (b *base) idleSince() time.Duration {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return time.Since(b.lastActivity)
}

func (b *base) addInBytes(n int) {
	b.mu.Lock()
	b.nInBytes += uint64(n)
	b.mu.Unlock()
}

func (b *base) addOutBytes(n int) {
	b.mu.Lock()
	b.nOutBytes += uint64(n)
	b.mu.Unlock()
}

// Table is the face table: a reader-writer-locked registry of live faces,
// owned exclusively by the forwarding core (spec.md §3's "Ownership").
type Table struct {
	mu     sync.RWMutex
	faces  map[defn.FaceID]Face
	nextID defn.FaceID
}

// NewTable builds an empty face table.
func NewTable() *Table {
	return &Table{faces: make(map[defn.FaceID]Face), nextID: 1}
}

func (t *Table) String() string { return "face-table" }

// NextID allocates a monotonically increasing FaceID, never reusing 0.
func (t *Table) NextID() defn.FaceID {
	t.mu.Lock()
	defer t.mu.Unlock()
	id := t.nextID
	t.nextID++
	return id
}

// Add registers f under its own ID. Overwrites any prior face with the
// same ID (callers are expected to have allocated a fresh ID via NextID).
func (t *Table) Add(f Face) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.faces[f.ID()] = f
}

// Get returns the face for id, if still registered.
func (t *Table) Get(id defn.FaceID) (Face, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	f, ok := t.faces[id]
	return f, ok
}

// Remove drops id from the table. Does not close the face; callers close
// before or after removing, as appropriate to their shutdown sequence.
func (t *Table) Remove(id defn.FaceID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.faces, id)
}

// All returns a snapshot of every currently registered face.
func (t *Table) All() []Face {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Face, 0, len(t.faces))
	for _, f := range t.faces {
		out = append(out, f)
	}
	return out
}

// Len reports how many faces are currently registered.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.faces)
}
