package tlv

// TypeNack is the outer TLV type for a standalone Nack packet. Real NDNLPv2
// carries Nack as a link-layer header wrapping the original Interest; this
// forwarder's wire format instead gives Nack its own top-level packet type
// (name + reason, per spec.md §3) since NDNLPv2 fragment framing is not in
// scope here (the fragmentation header in spec.md §6 is this forwarder's
// own stream-layer concern, not NDNLPv2's).
const TypeNack TLNum = 0x03

const typeNackReason TLNum = 0x0400

// NackReason enumerates spec.md §3's Nack.reason values.
type NackReason uint8

const (
	NackCongestion NackReason = iota
	NackDuplicate
	NackNoRoute
)

func (r NackReason) String() string {
	switch r {
	case NackCongestion:
		return "congestion"
	case NackDuplicate:
		return "duplicate"
	case NackNoRoute:
		return "no-route"
	default:
		return "unknown"
	}
}

// Nack is the parsed form of an NDN Nack packet.
type Nack struct {
	Name   Name
	Reason NackReason
}

// EncodeNack serializes a Nack to its canonical wire form.
func EncodeNack(n *Nack) []byte {
	inner := make([]byte, 0, 32)
	inner = n.Name.appendTo(inner)
	inner = appendNatTLV(inner, typeNackReason, uint64(n.Reason))

	out := make([]byte, 0, len(inner)+MaxVarNumLen*2)
	return appendTLV(out, TypeNack, inner)
}

// ParseNack parses a wire-format Nack packet.
func ParseNack(buf []byte) (*Nack, error) {
	c := newCursor(buf)
	typ, val, err := c.readTLV()
	if err != nil {
		return nil, err
	}
	if typ != TypeNack {
		return nil, ErrWrongType
	}

	sub := newCursor(val)
	n := &Nack{}

	name, err := parseName(sub)
	if err != nil {
		return nil, err
	}
	n.Name = name

	for !sub.eof() {
		fTyp, fVal, err := sub.readTLV()
		if err != nil {
			return nil, err
		}
		if fTyp == typeNackReason {
			r, err := decodeNat(fVal)
			if err != nil {
				return nil, err
			}
			n.Reason = NackReason(r)
		} else if IsCriticalType(fTyp) {
			return nil, ErrUnknownCritical
		}
	}
	return n, nil
}

// PacketKind identifies which of the three packet types a raw buffer's
// outer TLV tag names, without fully parsing the packet. The fast-path
// classifier (pkg/fastpath) uses this to dispatch without paying for a full
// parse on every packet.
type PacketKind int

const (
	KindUnknown PacketKind = iota
	KindInterest
	KindData
	KindNack
)

// PeekKind reads only the outer TLV type tag to classify a packet,
// returning KindUnknown (not an error) for anything else so callers can
// fail closed without panicking on adversarial input.
func PeekKind(buf []byte) PacketKind {
	if len(buf) == 0 {
		return KindUnknown
	}
	c := newCursor(buf)
	typ, err := c.readTLNum()
	if err != nil {
		return KindUnknown
	}
	switch typ {
	case TypeInterest:
		return KindInterest
	case TypeData:
		return KindData
	case TypeNack:
		return KindNack
	default:
		return KindUnknown
	}
}
