package tlv

import "time"

// MetaInfo field TLV types, nested inside a Data's MetaInfo block.
const (
	typeMetaInfo  TLNum = 0x14
	typeContentTy TLNum = 0x18
	typeFreshness TLNum = 0x19
	typeContent   TLNum = 0x15
	typeSigInfo   TLNum = 0x16
	typeSigValue  TLNum = 0x17
)

// MaxSegmentContent is the fast-path segment size cap from spec.md §3;
// larger content is expected to arrive pre-segmented by the producer.
const MaxSegmentContent = 8192

// Data is the parsed form of an NDN Data packet (spec.md §3). SignatureInfo
// and SignatureValue are carried opaquely: this forwarder never verifies
// them (crypto trust-schema enforcement is an explicit non-goal).
type Data struct {
	Name        Name
	ContentType uint8
	Freshness   time.Duration
	Content     []byte
	SigInfo     []byte
	SigValue    []byte
}

// Fresh reports whether this Data is cacheable at all (freshness > 0), per
// the CS admission rule in spec.md §4.3.
func (d *Data) Fresh() bool {
	return d.Freshness > 0
}

// EncodeData serializes a Data packet to its canonical wire form.
func EncodeData(d *Data) []byte {
	meta := make([]byte, 0, 16)
	if d.ContentType != 0 {
		meta = appendNatTLV(meta, typeContentTy, uint64(d.ContentType))
	}
	freshMs := uint64(d.Freshness / time.Millisecond)
	if freshMs > 0 {
		meta = appendNatTLV(meta, typeFreshness, freshMs)
	}

	inner := make([]byte, 0, len(meta)+len(d.Content)+len(d.SigInfo)+len(d.SigValue)+64)
	inner = d.Name.appendTo(inner)
	if len(meta) > 0 {
		inner = appendTLV(inner, typeMetaInfo, meta)
	}
	if d.Content != nil {
		inner = appendTLV(inner, typeContent, d.Content)
	}
	if len(d.SigInfo) > 0 {
		inner = appendTLV(inner, typeSigInfo, d.SigInfo)
	}
	if len(d.SigValue) > 0 {
		inner = appendTLV(inner, typeSigValue, d.SigValue)
	}

	out := make([]byte, 0, len(inner)+MaxVarNumLen*2)
	return appendTLV(out, TypeData, inner)
}

// ParseData parses a wire-format Data packet, never panicking on malformed
// input (spec.md §8 codec safety).
func ParseData(buf []byte) (*Data, error) {
	c := newCursor(buf)
	typ, val, err := c.readTLV()
	if err != nil {
		return nil, err
	}
	if typ != TypeData {
		return nil, ErrWrongType
	}

	sub := newCursor(val)
	d := &Data{}

	name, err := parseName(sub)
	if err != nil {
		return nil, err
	}
	d.Name = name

	for !sub.eof() {
		fTyp, fVal, err := sub.readTLV()
		if err != nil {
			return nil, err
		}
		switch fTyp {
		case typeMetaInfo:
			if err := parseMetaInfo(d, fVal); err != nil {
				return nil, err
			}
		case typeContent:
			if len(fVal) > MaxSegmentContent {
				return nil, ErrContentTooLarge
			}
			d.Content = fVal
		case typeSigInfo:
			d.SigInfo = fVal
		case typeSigValue:
			d.SigValue = fVal
		default:
			if IsCriticalType(fTyp) {
				return nil, ErrUnknownCritical
			}
		}
	}
	return d, nil
}

func parseMetaInfo(d *Data, val []byte) error {
	sub := newCursor(val)
	for !sub.eof() {
		fTyp, fVal, err := sub.readTLV()
		if err != nil {
			return err
		}
		switch fTyp {
		case typeContentTy:
			n, err := decodeNat(fVal)
			if err != nil {
				return err
			}
			d.ContentType = uint8(n)
		case typeFreshness:
			n, err := decodeNat(fVal)
			if err != nil {
				return err
			}
			d.Freshness = time.Duration(n) * time.Millisecond
		default:
			if IsCriticalType(fTyp) {
				return ErrUnknownCritical
			}
		}
	}
	return nil
}
