package face

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/quic-go/quic-go"

	"github.com/ndnfw/ndnfw/internal/core"
	"github.com/ndnfw/ndnfw/pkg/defn"
)

// QUICTransport is spec.md §4.7's QUIC face: one fresh unidirectional
// stream per Interest/Data exchange, monotonically allocated stream and
// message ids, fragmentation above the connection's current MTU, and an
// AIMD congestion controller feeding spec.md §4.8's MTU control loop.
type QUICTransport struct {
	base
	conn    *quic.Conn
	cong    *Congestion
	reasm   *Reassembler
	nextMsg atomic.Uint64

	idleAfter    time.Duration
	drainTimeout time.Duration

	mu        sync.Mutex
	closeOnce sync.Once
}

// NewQUICTransport wraps an already-handshaken quic.Conn (produced by
// quic.Dial or a quic.Listener.Accept elsewhere in the daemon's QUIC
// acceptor) as a Face. The connection starts Connected: the handshake
// already completed by the time a *quic.Conn exists.
func NewQUICTransport(id defn.FaceID, conn *quic.Conn, idleAfter, drainTimeout time.Duration, reassemblyWindow time.Duration) *QUICTransport {
	t := &QUICTransport{
		base:         newBase(id, defn.NonLocal, defn.PointToPoint, defn.MaxStreamPacketSize),
		conn:         conn,
		cong:         NewCongestion(),
		reasm:        NewReassembler(reassemblyWindow, defn.MaxStreamPacketSize),
		idleAfter:    idleAfter,
		drainTimeout: drainTimeout,
	}
	t.setState(StateConnected)
	return t
}

func (t *QUICTransport) String() string {
	return "quic-transport (face=" + strconv.FormatUint(uint64(t.id), 10) + " state=" + t.State().String() + ")"
}

// Congestion exposes the controller so pkg/mtu can read cwnd/rtt/loss for
// its feature vector (spec.md §4.8).
func (t *QUICTransport) Congestion() *Congestion { return t.cong }

// Send implements Face.Send: fragments packet (if needed) across one fresh
// unidirectional stream, writing each fragment with its header.
func (t *QUICTransport) Send(packet []byte) error {
	if !t.Up() {
		return ErrFaceDown
	}

	msgID := t.nextMsg.Add(1)
	frags := Fragment(packet, t.MTU(), msgID)
	if frags == nil {
		return ErrPacketTooLarge
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stream, err := t.conn.OpenUniStreamSync(ctx)
	if err != nil {
		t.onTransportError(err)
		return err
	}
	defer stream.Close()

	start := time.Now()
	for _, frag := range frags {
		if _, err := stream.Write(frag); err != nil {
			t.cong.OnLoss()
			t.onTransportError(err)
			return err
		}
	}
	t.cong.OnACK(time.Since(start))
	t.addOutBytes(len(packet))
	t.touch()
	t.maybeGoIdleOrWake()
	return nil
}

// Recv accepts inbound unidirectional streams in a loop, reassembling
// fragments and delivering complete messages to handler.
func (t *QUICTransport) Recv(handler func(packet []byte)) {
	for {
		if t.State() == StateClosed || t.State() == StateFailed {
			return
		}
		stream, err := t.conn.AcceptUniStream(context.Background())
		if err != nil {
			if t.Up() {
				core.Log.Warn(t, "quic accept stream failed, face down", "err", err)
				t.setState(StateFailed)
			}
			return
		}
		go t.readStream(stream, handler)
	}
}

func (t *QUICTransport) readStream(stream quic.ReceiveStream, handler func(packet []byte)) {
	buf := make([]byte, 0, t.MTU())
	chunk := make([]byte, t.MTU())
	for {
		n, err := stream.Read(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
		}
		if err != nil {
			break
		}
	}
	if len(buf) == 0 {
		return
	}
	t.addInBytes(len(buf))
	t.touch()
	t.maybeGoIdleOrWake()

	if msg, complete := t.reasm.Push(buf); complete {
		handler(msg)
	}
}

func (t *QUICTransport) onTransportError(err error) {
	core.Log.Warn(t, "quic transport error, face failed", "err", err)
	t.setState(StateFailed)
}

// maybeGoIdleOrWake moves Idle -> Connected, and Connected -> Idle once
// idleSince exceeds idleAfter. Its only callers (Send and readStream) call
// it right after touch(), so idleSince is near zero there and a face is
// never moved to Idle; nothing runs it on a timer.
func (t *QUICTransport) maybeGoIdleOrWake() {
	switch t.State() {
	case StateIdle:
		t.setState(StateConnected)
	case StateConnected:
		if t.idleSince() > t.idleAfter {
			t.setState(StateIdle)
		}
	}
}

// Close implements spec.md §4.7's administrative close: transitions to
// Closing, drains for up to drainTimeout, then Closed. All streams are
// implicitly canceled by the underlying connection close.
func (t *QUICTransport) Close() {
	t.closeOnce.Do(func() {
		t.setState(StateClosing)
		time.AfterFunc(t.drainTimeout, func() {
			t.setState(StateClosed)
			t.conn.CloseWithError(0, "face closed")
		})
	})
}
