// Package defn holds the small shared vocabulary (face identifiers, scope,
// link type, wire limits) that pkg/table, pkg/face, pkg/forwarder, and
// pkg/mgmt all need without importing each other — mirroring the role the
// teacher module's (unretrieved) fw/defn package plays for fw/face,
// fw/table, and fw/mgmt.
package defn

// FaceID uniquely identifies a Face for the lifetime of the process. 0 is
// never a valid assigned FaceID; callers use it as a "no face" sentinel.
type FaceID uint64

// InvalidFaceID is returned by lookups that found no matching face.
const InvalidFaceID FaceID = 0

// Scope classifies whether a face's peer is on this machine.
type Scope int

const (
	NonLocal Scope = iota
	Local
)

// LinkType classifies how many peers can appear on the other end of a face.
type LinkType int

const (
	PointToPoint LinkType = iota
	MultiAccess
)

// MaxNDNPacketSize bounds a single packet on bounded-MTU transports
// (spec.md §4.1: "total packet <= 65535 bytes on UDP").
const MaxNDNPacketSize = 65535

// MaxStreamPacketSize bounds a single packet on stream transports (QUIC),
// per spec.md §4.1 ("<= 2 GiB on stream transports"), clamped here to a
// sane working limit for a single in-memory reassembly buffer.
const MaxStreamPacketSize = 1 << 24 // 16 MiB

// UDPPort is the registered NDN-over-UDP port (spec.md §6).
const UDPPort = 6363

// EthernetType is the NDN EtherType for direct-Ethernet framing (spec.md
// §6).
const EthernetType = 0x8624
