package tlv

import "time"

// Outer packet types, per spec.md §3/§4.1.
const (
	TypeInterest TLNum = 0x05
	TypeData     TLNum = 0x06
)

// Interest field TLV types nested inside a TypeInterest block.
const (
	typeNonce            TLNum = 0x0a
	typeInterestLife     TLNum = 0x0c
	typeHopLimit         TLNum = 0x22
	typeCanBePrefix      TLNum = 0x21
	typeMustBeFresh      TLNum = 0x12
	typeApplicationParam TLNum = 0x24
)

// DefaultLifetime and MaxLifetime bound Interest.Lifetime per spec.md §3.
const (
	DefaultLifetime = 4000 * time.Millisecond
	MaxLifetime     = 60000 * time.Millisecond
)

// Interest is the parsed form of an NDN Interest packet (spec.md §3).
type Interest struct {
	Name        Name
	Nonce       uint32
	HasNonce    bool
	Lifetime    time.Duration
	CanBePrefix bool
	MustBeFresh bool
	HopLimit    uint8
	HasHopLimit bool
	Params      []byte // opaque ApplicationParameters, carried not interpreted
}

// EncodeInterest serializes an Interest to its canonical wire form.
func EncodeInterest(i *Interest) []byte {
	inner := make([]byte, 0, 64+len(i.Params))
	inner = i.Name.appendTo(inner)
	if i.CanBePrefix {
		inner = appendTLV(inner, typeCanBePrefix, nil)
	}
	if i.MustBeFresh {
		inner = appendTLV(inner, typeMustBeFresh, nil)
	}
	if len(i.Params) > 0 {
		inner = appendTLV(inner, typeApplicationParam, i.Params)
	}
	if i.HasNonce {
		var nb [4]byte
		nb[0] = byte(i.Nonce >> 24)
		nb[1] = byte(i.Nonce >> 16)
		nb[2] = byte(i.Nonce >> 8)
		nb[3] = byte(i.Nonce)
		inner = appendTLV(inner, typeNonce, nb[:])
	}
	lifetimeMs := uint64(i.Lifetime / time.Millisecond)
	if lifetimeMs == 0 {
		lifetimeMs = uint64(DefaultLifetime / time.Millisecond)
	}
	inner = appendNatTLV(inner, typeInterestLife, lifetimeMs)
	if i.HasHopLimit {
		inner = appendTLV(inner, typeHopLimit, []byte{i.HopLimit})
	}

	out := make([]byte, 0, len(inner)+MaxVarNumLen*2)
	return appendTLV(out, TypeInterest, inner)
}

// ParseInterest parses a wire-format Interest. Per spec.md §4.1/§8 (codec
// safety), this never panics: every length is bounds-checked before use,
// and any malformed input yields one of the ParseError sentinels in
// errors.go.
func ParseInterest(buf []byte) (*Interest, error) {
	c := newCursor(buf)
	typ, val, err := c.readTLV()
	if err != nil {
		return nil, err
	}
	if typ != TypeInterest {
		return nil, ErrWrongType
	}

	sub := newCursor(val)
	itr := &Interest{Lifetime: DefaultLifetime}

	name, err := parseName(sub)
	if err != nil {
		return nil, err
	}
	itr.Name = name

	for !sub.eof() {
		start := sub.pos
		fTyp, fVal, err := sub.readTLV()
		if err != nil {
			return nil, err
		}
		switch fTyp {
		case typeCanBePrefix:
			itr.CanBePrefix = true
		case typeMustBeFresh:
			itr.MustBeFresh = true
		case typeApplicationParam:
			itr.Params = fVal
		case typeNonce:
			if len(fVal) != 4 {
				return nil, ErrFormat
			}
			itr.Nonce = uint32(fVal[0])<<24 | uint32(fVal[1])<<16 | uint32(fVal[2])<<8 | uint32(fVal[3])
			itr.HasNonce = true
		case typeInterestLife:
			ms, err := decodeNat(fVal)
			if err != nil {
				return nil, err
			}
			itr.Lifetime = time.Duration(ms) * time.Millisecond
		case typeHopLimit:
			if len(fVal) != 1 {
				return nil, ErrFormat
			}
			itr.HopLimit = fVal[0]
			itr.HasHopLimit = true
		default:
			if IsCriticalType(fTyp) {
				return nil, ErrUnknownCritical
			}
			// unknown non-critical TLV: already consumed by readTLV, skip.
			_ = start
		}
	}

	if !itr.HasNonce {
		return nil, ErrMissingField
	}
	if itr.Lifetime > MaxLifetime {
		itr.Lifetime = MaxLifetime
	}
	return itr, nil
}
