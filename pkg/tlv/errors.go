package tlv

import "errors"

// ParseError is the taxonomy member from spec.md §7: malformed TLV, length
// overrun, nesting too deep, unknown critical TLV. All parse failures in
// this package are one of the sentinels below, never a panic.
var (
	// ErrBufferOverrun means a length field claimed more bytes than remain
	// in the buffer. Bounds are checked before every read.
	ErrBufferOverrun = errors.New("tlv: buffer overrun")
	// ErrLengthTooLarge means an 8-byte length number exceeded the 64 KiB
	// cap this forwarder enforces on every transport.
	ErrLengthTooLarge = errors.New("tlv: length exceeds 64KiB cap")
	// ErrFormat covers malformed fixed-width fields (bad nonce length,
	// bad natural number length, etc).
	ErrFormat = errors.New("tlv: malformed field")
	// ErrNestingTooDeep means nested TLV blocks exceeded the depth limit.
	ErrNestingTooDeep = errors.New("tlv: nesting too deep")
	// ErrTooManyComponents means a Name had more than MaxNameComponents.
	ErrTooManyComponents = errors.New("tlv: too many name components")
	// ErrComponentTooLarge means a Name component exceeded MaxComponentLen.
	ErrComponentTooLarge = errors.New("tlv: name component too large")
	// ErrUnknownCritical means an unrecognized TLV type in the critical
	// range (below 32, see IsCriticalType) was encountered and must not be skipped.
	ErrUnknownCritical = errors.New("tlv: unknown critical TLV")
	// ErrWrongType means the outer TLV type did not match the packet kind
	// the caller asked to parse.
	ErrWrongType = errors.New("tlv: wrong packet type")
	// ErrMissingField means a mandatory field (e.g. Interest Nonce, Name)
	// was absent.
	ErrMissingField = errors.New("tlv: missing mandatory field")
	// ErrContentTooLarge means a Data's Content TLV exceeded
	// MaxSegmentContent. Larger payloads are expected to arrive
	// pre-segmented by the producer, so a single oversized Content TLV at
	// this layer is malformed rather than something to carry through to
	// the fast path's size-gated serving logic.
	ErrContentTooLarge = errors.New("tlv: content exceeds segment size cap")
)

// IsCriticalType reports whether an unrecognized TLV type in this range
// must cause a parse failure rather than being silently skipped. NDN marks
// type numbers <= 31 (and odd numbers in general, by convention) critical;
// this forwarder treats every type below the first unassigned block as
// critical to stay fail-closed.
func IsCriticalType(t TLNum) bool {
	return t < 32
}
