package tlv

import (
	"bytes"
	"strconv"
	"strings"
)

// Name component TLV types, per the NDN naming convention. Only the ones
// this forwarder actually inspects are named; everything else round-trips
// as a generic-typed component.
const (
	TypeImplicitSha256DigestComponent TLNum = 0x01
	TypeGenericNameComponent          TLNum = 0x08
	TypeKeywordNameComponent          TLNum = 0x20
)

// MaxNameComponents and MaxComponentLen are the hard bounds from spec.md
// §3: 0 <= n <= 32 components, 0 < |c_i| <= 8192 bytes.
const (
	MaxNameComponents = 32
	MaxComponentLen   = 8192
)

// Component is a single Name component: a TLV type tag and an opaque value.
type Component struct {
	Typ TLNum
	Val []byte
}

// NewGenericComponent builds a generic-typed component from a string, the
// overwhelmingly common case in application-level names.
func NewGenericComponent(s string) Component {
	return Component{Typ: TypeGenericNameComponent, Val: []byte(s)}
}

// EncodingLength returns the number of bytes this component takes on the
// wire (its own T-L-V header and value).
func (c Component) EncodingLength() int {
	return c.Typ.EncodingLength() + TLNum(len(c.Val)).EncodingLength() + len(c.Val)
}

func (c Component) appendTo(dst []byte) []byte {
	return appendTLV(dst, c.Typ, c.Val)
}

// Bytes returns this component's own T-L-V encoding, independent of any
// enclosing Name. Used by pkg/nhash to build the incremental prefix-hash
// series without depending on a full Name's outer framing.
func (c Component) Bytes() []byte {
	return c.appendTo(make([]byte, 0, c.EncodingLength()))
}

// Compare orders two components first by type then by value, matching the
// canonical NDN component ordering used for longest-prefix and lexical Name
// comparisons.
func (c Component) Compare(o Component) int {
	if c.Typ != o.Typ {
		if c.Typ < o.Typ {
			return -1
		}
		return 1
	}
	return bytes.Compare(c.Val, o.Val)
}

func (c Component) String() string {
	if c.Typ == TypeGenericNameComponent {
		return string(c.Val)
	}
	return strconv.FormatUint(uint64(c.Typ), 10) + "=" + string(c.Val)
}

func parseComponent(c *cursor) (Component, error) {
	typ, val, err := c.readTLV()
	if err != nil {
		return Component{}, err
	}
	if len(val) == 0 || len(val) > MaxComponentLen {
		return Component{}, ErrComponentTooLarge
	}
	return Component{Typ: typ, Val: val}, nil
}

// parseComponentFromString splits a single "TYPE=value" or "value" segment,
// used by NameFromStr.
func parseComponentFromString(s string) Component {
	if i := strings.IndexByte(s, '='); i > 0 {
		if typ, err := strconv.ParseUint(s[:i], 10, 64); err == nil {
			return Component{Typ: TLNum(typ), Val: []byte(s[i+1:])}
		}
	}
	return NewGenericComponent(s)
}
