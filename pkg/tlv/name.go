package tlv

import "strings"

// TypeName is the TLV type of a Name block as it appears nested inside an
// Interest or Data packet.
const TypeName TLNum = 0x07

// Name is an ordered sequence of components, per spec.md §3: 0 to 32
// components, each 1 to 8192 bytes. Names compare lexicographically on
// components and are immutable once constructed by this package's parsers.
type Name []Component

// NameFromStr parses a "/a/b/c" style URI into a canonical Name. Empty
// segments (leading "/", trailing "/", "//") are ignored, matching the
// teacher corpus's lenient string-form parser.
func NameFromStr(s string) (Name, error) {
	s = strings.Trim(s, "/")
	if s == "" {
		return Name{}, nil
	}
	parts := strings.Split(s, "/")
	n := make(Name, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			continue
		}
		n = append(n, parseComponentFromString(p))
	}
	if len(n) > MaxNameComponents {
		return nil, ErrTooManyComponents
	}
	return n, nil
}

func (n Name) String() string {
	if len(n) == 0 {
		return "/"
	}
	var sb strings.Builder
	for _, c := range n {
		sb.WriteByte('/')
		sb.WriteString(c.String())
	}
	return sb.String()
}

// innerLength returns the size of the inner Name TLV's value (the sum of
// each component's encoding), NOT including the outer Name T-L header.
func (n Name) innerLength() int {
	l := 0
	for _, c := range n {
		l += c.EncodingLength()
	}
	return l
}

// EncodingLength returns the total wire size of this Name as a TLV block
// (type 0x07), including its own T-L header.
func (n Name) EncodingLength() int {
	inner := n.innerLength()
	return TypeName.EncodingLength() + TLNum(inner).EncodingLength() + inner
}

// Encode returns the canonical wire form of the Name TLV (type-length plus
// every component's T-L-V). H(name) hashes Bytes(), which is this minus
// the outer T-L header.
func (n Name) Encode() []byte {
	out := make([]byte, 0, n.EncodingLength())
	return n.appendTo(out)
}

// Bytes returns the concatenated T-L-V encoding of each component, with no
// outer Name T-L wrapper. Because every component is self-delimiting, this
// is a true byte-level prefix for any name extension — unlike Encode(),
// whose outer length field changes as components are appended. Used as a
// flat key wherever a name needs prefix-ordered storage (pkg/repo's
// BadgerDB archive), mirroring the teacher's BytesInner().
func (n Name) Bytes() []byte {
	out := make([]byte, 0, n.innerLength())
	for _, c := range n {
		out = c.appendTo(out)
	}
	return out
}

func (n Name) appendTo(dst []byte) []byte {
	inner := n.innerLength()
	var hdr [MaxVarNumLen]byte
	w := TypeName.EncodeInto(hdr[:])
	dst = append(dst, hdr[:w]...)
	w = TLNum(inner).EncodeInto(hdr[:])
	dst = append(dst, hdr[:w]...)
	for _, c := range n {
		dst = c.appendTo(dst)
	}
	return dst
}

func parseName(c *cursor) (Name, error) {
	typ, val, err := c.readTLV()
	if err != nil {
		return nil, err
	}
	if typ != TypeName {
		return nil, ErrWrongType
	}
	return parseNameValue(val)
}

func parseNameValue(val []byte) (Name, error) {
	sub := newCursor(val)
	var name Name
	for !sub.eof() {
		comp, err := parseComponent(sub)
		if err != nil {
			return nil, err
		}
		name = append(name, comp)
		if len(name) > MaxNameComponents {
			return nil, ErrTooManyComponents
		}
	}
	return name, nil
}

// Equal reports whether two Names have identical components in order.
func (n Name) Equal(o Name) bool {
	if len(n) != len(o) {
		return false
	}
	for i := range n {
		if n[i].Compare(o[i]) != 0 {
			return false
		}
	}
	return true
}

// Compare lexicographically orders two Names component-by-component; a
// strict prefix sorts before its extensions.
func (n Name) Compare(o Name) int {
	for i := 0; i < len(n) && i < len(o); i++ {
		if c := n[i].Compare(o[i]); c != 0 {
			return c
		}
	}
	switch {
	case len(n) < len(o):
		return -1
	case len(n) > len(o):
		return 1
	default:
		return 0
	}
}

// IsPrefixOf reports whether n is a prefix of o (including n == o).
func (n Name) IsPrefixOf(o Name) bool {
	if len(n) > len(o) {
		return false
	}
	for i := range n {
		if n[i].Compare(o[i]) != 0 {
			return false
		}
	}
	return true
}

// Append returns a new Name with the given components appended; it never
// mutates the receiver's backing array.
func (n Name) Append(c ...Component) Name {
	out := make(Name, len(n)+len(c))
	copy(out, n)
	copy(out[len(n):], c)
	return out
}

// Prefix returns the first k components of n. Panics if k > len(n); callers
// in this codebase always clamp k first.
func (n Name) Prefix(k int) Name {
	return n[:k]
}

// Clone returns a deep copy safe to retain beyond the lifetime of a parse
// buffer (the CS does this on insert since entries outlive their wire).
func (n Name) Clone() Name {
	out := make(Name, len(n))
	for i, c := range n {
		out[i] = Component{Typ: c.Typ, Val: append([]byte(nil), c.Val...)}
	}
	return out
}
