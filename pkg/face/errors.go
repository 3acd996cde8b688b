package face

import "errors"

// ErrFaceDown is returned by Send when the face is not in an up state
// (spec.md §7's FaceFailed class: "mark face down... let PIT entries time
// out").
var ErrFaceDown = errors.New("face: not running")

// ErrPacketTooLarge is returned when a caller attempts to send a packet
// larger than the transport can carry: over the face MTU on the UDP and
// Ethernet transports, which do not fragment, or more than QUIC can ever
// fragment (spec.md §6's u16 fragment count bound).
var ErrPacketTooLarge = errors.New("face: packet exceeds max fragmentable size")
