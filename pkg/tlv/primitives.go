// Package tlv implements the NDN TLV wire codec: variable-length Type and
// Length numbers, Name components, and the Interest/Data/Nack packet types.
package tlv

import (
	"encoding/binary"
)

// TLNum is an NDN TLV Type or Length number, encoded in the NDN
// variable-length format (1, 3, 5, or 9 bytes on the wire).
type TLNum uint64

// EncodingLength returns the number of bytes v occupies on the wire.
func (v TLNum) EncodingLength() int {
	switch x := uint64(v); {
	case x < 0xfd:
		return 1
	case x <= 0xffff:
		return 3
	case x <= 0xffffffff:
		return 5
	default:
		return 9
	}
}

// EncodeInto writes v into buf using the NDN variable-length encoding and
// returns the number of bytes written. buf must have at least
// EncodingLength() bytes available.
func (v TLNum) EncodeInto(buf []byte) int {
	switch x := uint64(v); {
	case x < 0xfd:
		buf[0] = byte(x)
		return 1
	case x <= 0xffff:
		buf[0] = 0xfd
		binary.BigEndian.PutUint16(buf[1:], uint16(x))
		return 3
	case x <= 0xffffffff:
		buf[0] = 0xfe
		binary.BigEndian.PutUint32(buf[1:], uint32(x))
		return 5
	default:
		buf[0] = 0xff
		binary.BigEndian.PutUint64(buf[1:], x)
		return 9
	}
}

// MaxVarNumLen is the longest possible encoding of a TLNum (1 tag byte + 8
// value bytes).
const MaxVarNumLen = 9

// maxStreamTLV bounds the 0xFF (8-byte length) slow path consistently across
// every transport this forwarder speaks (UDP, Ethernet, QUIC stream). This
// is the Open Question resolution from spec.md §9: one policy everywhere,
// not "UDP rejects, streams configure".
const maxStreamTLV = 64 * 1024

// cursor is a bounds-checked reader over a byte slice, used by every parse
// function in this package. It never panics: every read is checked against
// the remaining length first.
type cursor struct {
	buf []byte
	pos int
}

func newCursor(buf []byte) *cursor {
	return &cursor{buf: buf}
}

func (c *cursor) remaining() int {
	return len(c.buf) - c.pos
}

func (c *cursor) eof() bool {
	return c.pos >= len(c.buf)
}

// readTLNum reads a TLNum at the cursor, bounds-checking every byte it
// touches before reading it.
func (c *cursor) readTLNum() (TLNum, error) {
	if c.remaining() < 1 {
		return 0, ErrBufferOverrun
	}
	first := c.buf[c.pos]
	var n int
	switch {
	case first < 0xfd:
		c.pos++
		return TLNum(first), nil
	case first == 0xfd:
		n = 2
	case first == 0xfe:
		n = 4
	default: // 0xff
		n = 8
	}
	if c.remaining() < 1+n {
		return 0, ErrBufferOverrun
	}
	start := c.pos + 1
	var val uint64
	for i := 0; i < n; i++ {
		val = val<<8 | uint64(c.buf[start+i])
	}
	if n == 8 && val > maxStreamTLV {
		return 0, ErrLengthTooLarge
	}
	c.pos += 1 + n
	return TLNum(val), nil
}

// readBytes returns the next n bytes as a sub-slice (no copy) and advances
// the cursor, or an error if n exceeds what remains.
func (c *cursor) readBytes(n int) ([]byte, error) {
	if n < 0 || c.remaining() < n {
		return nil, ErrBufferOverrun
	}
	b := c.buf[c.pos : c.pos+n]
	c.pos += n
	return b, nil
}

func (c *cursor) readByte() (byte, error) {
	if c.remaining() < 1 {
		return 0, ErrBufferOverrun
	}
	b := c.buf[c.pos]
	c.pos++
	return b, nil
}

// readTLV reads a (type, length) pair and returns the value's raw bytes,
// checking that length is actually present in the buffer.
func (c *cursor) readTLV() (typ TLNum, val []byte, err error) {
	typ, err = c.readTLNum()
	if err != nil {
		return 0, nil, err
	}
	length, err := c.readTLNum()
	if err != nil {
		return 0, nil, err
	}
	val, err = c.readBytes(int(length))
	if err != nil {
		return 0, nil, err
	}
	return typ, val, nil
}

// natEncodingLength returns the number of bytes required to encode v as a
// fixed-width natural number (1, 2, 4, or 8 bytes, smallest that fits).
func natEncodingLength(v uint64) int {
	switch {
	case v <= 0xff:
		return 1
	case v <= 0xffff:
		return 2
	case v <= 0xffffffff:
		return 4
	default:
		return 8
	}
}

func encodeNat(v uint64, buf []byte) int {
	n := natEncodingLength(v)
	switch n {
	case 1:
		buf[0] = byte(v)
	case 2:
		binary.BigEndian.PutUint16(buf, uint16(v))
	case 4:
		binary.BigEndian.PutUint32(buf, uint32(v))
	case 8:
		binary.BigEndian.PutUint64(buf, v)
	}
	return n
}

func decodeNat(b []byte) (uint64, error) {
	switch len(b) {
	case 0:
		return 0, nil
	case 1:
		return uint64(b[0]), nil
	case 2:
		return uint64(binary.BigEndian.Uint16(b)), nil
	case 4:
		return uint64(binary.BigEndian.Uint32(b)), nil
	case 8:
		return binary.BigEndian.Uint64(b), nil
	default:
		return 0, ErrFormat
	}
}

// appendTLV appends a type-length-value block for the given raw value bytes
// to dst and returns the extended slice.
func appendTLV(dst []byte, typ TLNum, val []byte) []byte {
	var hdr [MaxVarNumLen]byte
	n := typ.EncodeInto(hdr[:])
	dst = append(dst, hdr[:n]...)
	n = TLNum(len(val)).EncodeInto(hdr[:])
	dst = append(dst, hdr[:n]...)
	return append(dst, val...)
}

// appendNatTLV appends a TLV whose value is the natural-number encoding of
// v.
func appendNatTLV(dst []byte, typ TLNum, v uint64) []byte {
	var buf [8]byte
	n := encodeNat(v, buf[:])
	return appendTLV(dst, typ, buf[:n])
}
