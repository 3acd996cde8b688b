package face

import (
	"net"
	"strconv"

	"github.com/ndnfw/ndnfw/internal/core"
	"github.com/ndnfw/ndnfw/pkg/defn"
)

// UDPTransport is a unicast UDP face, grounded on the teacher corpus's
// UnicastUDPTransport: a single connected *net.UDPConn, read in a
// dedicated receive loop, write-then-close-on-error on send.
type UDPTransport struct {
	base
	conn       *net.UDPConn
	remoteAddr *net.UDPAddr
	stop       chan struct{}
}

// DialUDP opens a unicast UDP face to remoteAddr (spec.md §6's "UDP port
// 6363 (IPv4)" framing).
func DialUDP(id defn.FaceID, remoteAddr *net.UDPAddr) (*UDPTransport, error) {
	conn, err := net.DialUDP("udp", nil, remoteAddr)
	if err != nil {
		return nil, err
	}
	scope := defn.NonLocal
	if remoteAddr.IP.IsLoopback() {
		scope = defn.Local
	}
	t := &UDPTransport{
		base:       newBase(id, scope, defn.PointToPoint, defn.MaxNDNPacketSize),
		conn:       conn,
		remoteAddr: remoteAddr,
		stop:       make(chan struct{}),
	}
	return t, nil
}

func (t *UDPTransport) String() string {
	return "udp-transport (face=" + strconv.FormatUint(uint64(t.id), 10) + " remote=" + t.remoteAddr.String() + ")"
}

// Send implements Face.Send: one UDP datagram per packet, since UDP
// preserves datagram boundaries and spec.md bounds UDP packets at 65535
// bytes (defn.MaxNDNPacketSize).
func (t *UDPTransport) Send(packet []byte) error {
	if !t.Up() {
		return ErrFaceDown
	}
	if len(packet) > t.MTU() {
		return ErrPacketTooLarge
	}
	if _, err := t.conn.Write(packet); err != nil {
		t.setState(StateFailed)
		return err
	}
	t.addOutBytes(len(packet))
	t.touch()
	return nil
}

// Recv runs the receive loop until Close, calling handler once per
// received datagram.
func (t *UDPTransport) Recv(handler func(packet []byte)) {
	buf := make([]byte, defn.MaxNDNPacketSize)
	for {
		select {
		case <-t.stop:
			return
		default:
		}
		n, _, err := t.conn.ReadFromUDP(buf)
		if err != nil {
			if t.Up() {
				core.Log.Warn(t, "udp read failed, face down", "err", err)
				t.setState(StateFailed)
			}
			return
		}
		t.addInBytes(n)
		t.touch()
		pkt := make([]byte, n)
		copy(pkt, buf[:n])
		handler(pkt)
	}
}

// Close marks the face down and closes the underlying socket, unblocking
// any in-flight Recv.
func (t *UDPTransport) Close() {
	if t.State() == StateClosed {
		return
	}
	t.setState(StateClosed)
	close(t.stop)
	t.conn.Close()
}
