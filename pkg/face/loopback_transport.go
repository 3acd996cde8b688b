package face

import "github.com/ndnfw/ndnfw/pkg/defn"

// LoopbackTransport is spec.md §3's Loopback face variant: an in-process,
// always-local, point-to-point channel used by local applications talking
// to the forwarder without a real network hop.
type LoopbackTransport struct {
	base
	toApp  chan []byte
	toFwd  chan []byte
	stop   chan struct{}
}

// NewLoopbackPair builds two LoopbackTransports wired to each other: one
// side owned by the forwarder, one side owned by a local application.
func NewLoopbackPair(fwdID, appID defn.FaceID) (fwdSide, appSide *LoopbackTransport) {
	aToB := make(chan []byte, 64)
	bToA := make(chan []byte, 64)

	fwdSide = &LoopbackTransport{
		base: newBase(fwdID, defn.Local, defn.PointToPoint, defn.MaxStreamPacketSize),
		toApp: aToB, toFwd: bToA,
		stop: make(chan struct{}),
	}
	appSide = &LoopbackTransport{
		base: newBase(appID, defn.Local, defn.PointToPoint, defn.MaxStreamPacketSize),
		toApp: bToA, toFwd: aToB,
		stop: make(chan struct{}),
	}
	return fwdSide, appSide
}

func (t *LoopbackTransport) String() string { return "loopback-transport" }

// Send implements Face.Send by handing packet to the peer's inbound
// channel; a full channel (peer not draining) blocks rather than drops,
// since loopback is never congested in the sense spec.md §4.7 means for
// real links.
func (t *LoopbackTransport) Send(packet []byte) error {
	if !t.Up() {
		return ErrFaceDown
	}
	select {
	case t.toApp <- packet:
		t.addOutBytes(len(packet))
		t.touch()
		return nil
	case <-t.stop:
		return ErrFaceDown
	}
}

// Recv delivers packets sent by the peer side until Close.
func (t *LoopbackTransport) Recv(handler func(packet []byte)) {
	for {
		select {
		case pkt := <-t.toFwd:
			t.addInBytes(len(pkt))
			t.touch()
			handler(pkt)
		case <-t.stop:
			return
		}
	}
}

// Close marks the face down; further Send calls fail.
func (t *LoopbackTransport) Close() {
	if t.State() == StateClosed {
		return
	}
	t.setState(StateClosed)
	close(t.stop)
}
