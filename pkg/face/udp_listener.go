package face

import (
	"net"
	"strconv"
	"sync"

	"github.com/ndnfw/ndnfw/internal/core"
	"github.com/ndnfw/ndnfw/pkg/defn"
)

// UDPListener owns the single listening UDP socket on defn.UDPPort and
// demultiplexes inbound datagrams by remote address into per-peer
// UDPPeerTransport faces, grounded on the teacher corpus's TCPListener
// accept loop — UDP has no accept(), so "accepting" a new peer means
// seeing its address for the first time.
type UDPListener struct {
	conn    *net.UDPConn
	faces   *Table
	onPeer  func(Face)
	mu      sync.Mutex
	peers   map[string]*UDPPeerTransport
	stopped chan struct{}
}

// NewUDPListener binds the shared UDP socket. onPeer is called once per
// newly observed remote address, after the new face has already been
// added to faces, so the caller can start the forwarding dispatch loop for
// it (mirrors fw/face/tcp-listener.go's per-accept wiring).
func NewUDPListener(port int, faces *Table, onPeer func(Face)) (*UDPListener, error) {
	conn, err := net.ListenUDP("udp", &net.UDPAddr{Port: port})
	if err != nil {
		return nil, err
	}
	return &UDPListener{
		conn: conn, faces: faces, onPeer: onPeer,
		peers: make(map[string]*UDPPeerTransport), stopped: make(chan struct{}),
	}, nil
}

func (l *UDPListener) String() string {
	return "udp-listener (" + l.conn.LocalAddr().String() + ")"
}

// Run reads datagrams until Close, routing each to its peer's
// UDPPeerTransport, minting a new one (and calling onPeer) on first sight
// of a remote address.
func (l *UDPListener) Run() {
	defer close(l.stopped)
	buf := make([]byte, defn.MaxNDNPacketSize)
	for {
		n, addr, err := l.conn.ReadFromUDP(buf)
		if err != nil {
			return
		}
		pkt := make([]byte, n)
		copy(pkt, buf[:n])
		l.dispatch(addr, pkt)
	}
}

func (l *UDPListener) dispatch(addr *net.UDPAddr, pkt []byte) {
	key := addr.String()

	l.mu.Lock()
	peer, ok := l.peers[key]
	if !ok {
		scope := defn.NonLocal
		if addr.IP.IsLoopback() {
			scope = defn.Local
		}
		peer = &UDPPeerTransport{
			base:   newBase(l.faces.NextID(), scope, defn.PointToPoint, defn.MaxNDNPacketSize),
			conn:   l.conn,
			addr:   addr,
			listen: l,
			in:     make(chan []byte, 64),
		}
		l.peers[key] = peer
		l.faces.Add(peer)
		core.Log.Info(l, "new UDP peer face", "remote", key, "face", peer.ID())
	}
	l.mu.Unlock()

	peer.addInBytes(len(pkt))
	peer.touch()
	if !ok {
		l.onPeer(peer)
	}
	select {
	case peer.in <- pkt:
	default:
		core.Log.Warn(l, "UDP peer inbound queue full, dropping packet", "remote", key)
	}
}

func (l *UDPListener) forget(addr *net.UDPAddr) {
	l.mu.Lock()
	delete(l.peers, addr.String())
	l.mu.Unlock()
}

// Close stops accepting new peers and closes the shared socket; existing
// UDPPeerTransport faces remain registered but go down on their next send.
func (l *UDPListener) Close() {
	l.conn.Close()
	<-l.stopped
}

// UDPPeerTransport is one remote UDP endpoint multiplexed over the
// listener's shared socket: Send writes to addr, Recv drains the
// per-peer channel the listener's read loop feeds.
type UDPPeerTransport struct {
	base
	conn   *net.UDPConn
	addr   *net.UDPAddr
	listen *UDPListener
	in     chan []byte
}

func (t *UDPPeerTransport) String() string {
	return "udp-peer-transport (face=" + strconv.FormatUint(uint64(t.id), 10) + " remote=" + t.addr.String() + ")"
}

func (t *UDPPeerTransport) Send(packet []byte) error {
	if !t.Up() {
		return ErrFaceDown
	}
	if len(packet) > t.MTU() {
		return ErrPacketTooLarge
	}
	if _, err := t.conn.WriteToUDP(packet, t.addr); err != nil {
		t.setState(StateFailed)
		return err
	}
	t.addOutBytes(len(packet))
	t.touch()
	return nil
}

func (t *UDPPeerTransport) Recv(handler func(packet []byte)) {
	for pkt := range t.in {
		handler(pkt)
	}
}

func (t *UDPPeerTransport) Close() {
	if t.State() == StateClosed {
		return
	}
	t.setState(StateClosed)
	t.listen.forget(t.addr)
	close(t.in)
}
