package face

import (
	"encoding/binary"
	"sync"
	"time"
)

// fragmentHeaderLen is spec.md §6's 16-byte fragmentation header:
// {message_id: u64, index: u16, total: u16, flags: u16, reserved: u16}.
const fragmentHeaderLen = 16

const flagFinal = uint16(1) // bit0

// fragmentHeader is the parsed form of the 16-byte prefix.
type fragmentHeader struct {
	MessageID uint64
	Index     uint16
	Total     uint16
	Final     bool
}

func encodeFragmentHeader(h fragmentHeader) []byte {
	buf := make([]byte, fragmentHeaderLen)
	binary.BigEndian.PutUint64(buf[0:8], h.MessageID)
	binary.BigEndian.PutUint16(buf[8:10], h.Index)
	binary.BigEndian.PutUint16(buf[10:12], h.Total)
	var flags uint16
	if h.Final {
		flags |= flagFinal
	}
	binary.BigEndian.PutUint16(buf[12:14], flags)
	// buf[14:16] reserved, left zero.
	return buf
}

func decodeFragmentHeader(buf []byte) (fragmentHeader, []byte, bool) {
	if len(buf) < fragmentHeaderLen {
		return fragmentHeader{}, nil, false
	}
	h := fragmentHeader{
		MessageID: binary.BigEndian.Uint64(buf[0:8]),
		Index:     binary.BigEndian.Uint16(buf[8:10]),
		Total:     binary.BigEndian.Uint16(buf[10:12]),
	}
	flags := binary.BigEndian.Uint16(buf[12:14])
	h.Final = flags&flagFinal != 0
	return h, buf[fragmentHeaderLen:], true
}

// Fragment splits packet into ceil(len/(mtu-16)) fragments, each carrying
// the 16-byte header, per spec.md §4.7. mtu bounds the whole fragment
// (header + payload); messageID should be unique per logical message on
// this connection (pkg/face/quic_transport.go allocates these).
func Fragment(packet []byte, mtu int, messageID uint64) [][]byte {
	payloadPerFrag := mtu - fragmentHeaderLen
	if payloadPerFrag <= 0 {
		payloadPerFrag = 1
	}
	total := (len(packet) + payloadPerFrag - 1) / payloadPerFrag
	if total == 0 {
		total = 1
	}
	if total > 1<<16-1 {
		// spec.md doesn't bound fragment count explicitly, but the header's
		// total field is a u16; a packet needing more fragments than that
		// cannot be represented and is rejected by the caller.
		return nil
	}

	frags := make([][]byte, 0, total)
	for i := 0; i < total; i++ {
		start := i * payloadPerFrag
		end := start + payloadPerFrag
		if end > len(packet) {
			end = len(packet)
		}
		h := fragmentHeader{MessageID: messageID, Index: uint16(i), Total: uint16(total), Final: i == total-1}
		frag := append(encodeFragmentHeader(h), packet[start:end]...)
		frags = append(frags, frag)
	}
	return frags
}

type partialMessage struct {
	total    int
	received int
	parts    [][]byte
	firstSeen time.Time
}

// Reassembler buffers out-of-order fragments per spec.md §4.7: up to
// REASSEMBLY_MS per message, after which an incomplete message is dropped
// (the NDN layer above retransmits via a new Interest).
type Reassembler struct {
	mu       sync.Mutex
	window   time.Duration
	pending  map[uint64]*partialMessage
	maxBytes int
}

// NewReassembler builds a Reassembler with the given reassembly window
// (spec.md default: 2x max RTT) and a cap on total reassembled size
// (defn.MaxStreamPacketSize).
func NewReassembler(window time.Duration, maxBytes int) *Reassembler {
	return &Reassembler{
		window:   window,
		pending:  make(map[uint64]*partialMessage),
		maxBytes: maxBytes,
	}
}

// Push feeds one received fragment (header still attached). It returns the
// fully reassembled message once every fragment for that message_id has
// arrived, and removes the incomplete-message bookkeeping either way once
// complete.
func (r *Reassembler) Push(raw []byte) ([]byte, bool) {
	h, payload, ok := decodeFragmentHeader(raw)
	if !ok || h.Total == 0 || h.Index >= h.Total {
		return nil, false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	pm, ok := r.pending[h.MessageID]
	if !ok {
		pm = &partialMessage{total: int(h.Total), parts: make([][]byte, h.Total), firstSeen: time.Now()}
		r.pending[h.MessageID] = pm
	}
	if int(h.Total) != pm.total {
		// inconsistent total for a known message_id: drop the whole thing.
		delete(r.pending, h.MessageID)
		return nil, false
	}
	if pm.parts[h.Index] == nil {
		pm.parts[h.Index] = append([]byte(nil), payload...)
		pm.received++
	}

	if pm.received < pm.total {
		return nil, false
	}

	delete(r.pending, h.MessageID)
	size := 0
	for _, p := range pm.parts {
		size += len(p)
	}
	if r.maxBytes > 0 && size > r.maxBytes {
		return nil, false
	}
	out := make([]byte, 0, size)
	for _, p := range pm.parts {
		out = append(out, p...)
	}
	return out, true
}

// GC drops any message whose first fragment arrived more than the
// reassembly window ago, per spec.md's "missing fragments cause the whole
// message to be dropped". Call periodically from the owning transport.
func (r *Reassembler) GC(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	dropped := 0
	for id, pm := range r.pending {
		if now.Sub(pm.firstSeen) > r.window {
			delete(r.pending, id)
			dropped++
		}
	}
	return dropped
}
