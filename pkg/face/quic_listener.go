package face

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/quic-go/quic-go"

	"github.com/ndnfw/ndnfw/internal/core"
)

// QUICListenerConfig is the minimal set of knobs the daemon entrypoint
// needs to stand up a QUIC acceptor (spec.md §4.7's QUIC face).
type QUICListenerConfig struct {
	Bind             string
	Port             int
	TLSCert, TLSKey  string
	IdleAfter        time.Duration
	DrainTimeout     time.Duration
	ReassemblyWindow time.Duration
}

func (cfg QUICListenerConfig) addr() string {
	return fmt.Sprintf("%s:%d", cfg.Bind, cfg.Port)
}

// QUICListener accepts inbound QUIC connections and hands each one to
// onConn as a fresh QUICTransport, already registered in faces, mirroring
// the teacher corpus's TCPListener accept loop shape.
type QUICListener struct {
	cfg      QUICListenerConfig
	listener *quic.Listener
	faces    *Table
	onConn   func(*QUICTransport)
	stopped  chan struct{}
}

// NewQUICListener binds a TLS-protected QUIC socket at cfg.addr().
func NewQUICListener(cfg QUICListenerConfig, faces *Table, onConn func(*QUICTransport)) (*QUICListener, error) {
	cert, err := tls.LoadX509KeyPair(cfg.TLSCert, cfg.TLSKey)
	if err != nil {
		return nil, fmt.Errorf("quic listener: %w", err)
	}
	tlsConf := &tls.Config{
		Certificates: []tls.Certificate{cert},
		NextProtos:   []string{"ndn"},
		MinVersion:   tls.VersionTLS13,
	}

	ln, err := quic.ListenAddr(cfg.addr(), tlsConf, &quic.Config{
		MaxIdleTimeout:          60 * time.Second,
		KeepAlivePeriod:         30 * time.Second,
		DisablePathMTUDiscovery: true,
	})
	if err != nil {
		return nil, err
	}

	return &QUICListener{
		cfg: cfg, listener: ln, faces: faces, onConn: onConn,
		stopped: make(chan struct{}),
	}, nil
}

func (l *QUICListener) String() string { return "quic-listener (" + l.cfg.addr() + ")" }

// Run accepts connections until Close, registering one QUICTransport face
// per accepted connection and invoking onConn so the daemon entrypoint can
// start its dispatch loop and MTU control-loop ticker.
func (l *QUICListener) Run() {
	defer close(l.stopped)
	for {
		conn, err := l.listener.Accept(context.Background())
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			core.Log.Warn(l, "quic accept failed", "err", err)
			continue
		}

		id := l.faces.NextID()
		t := NewQUICTransport(id, conn, l.cfg.IdleAfter, l.cfg.DrainTimeout, l.cfg.ReassemblyWindow)
		l.faces.Add(t)
		core.Log.Info(l, "new QUIC face", "face", id, "remote", conn.RemoteAddr())
		l.onConn(t)
	}
}

// Close stops accepting new connections; already-accepted faces are
// unaffected and close independently via their own Close method.
func (l *QUICListener) Close() {
	l.listener.Close()
	<-l.stopped
}
