package mgmt

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/schema"
	"github.com/gorilla/websocket"
	"github.com/ndnfw/ndnfw/internal/core"
	"github.com/ndnfw/ndnfw/pkg/defn"
	"github.com/ndnfw/ndnfw/pkg/face"
	"github.com/ndnfw/ndnfw/pkg/fastpath"
	"github.com/ndnfw/ndnfw/pkg/forwarder"
	"github.com/ndnfw/ndnfw/pkg/metrics"
	"github.com/ndnfw/ndnfw/pkg/mtu"
	"github.com/ndnfw/ndnfw/pkg/table"
	"github.com/ndnfw/ndnfw/pkg/tlv"
)

var formDecoder = schema.NewDecoder()

// Deps bundles the forwarding-core tables a Server exposes over the
// control-plane RPC surface.
type Deps struct {
	FIB        *table.FIB
	CS         *table.ContentStore
	PIT        *table.PIT
	Faces      *face.Table
	Counters   *metrics.Counters
	Dispatch   *forwarder.Thread
	Classifier *fastpath.Classifier // nil if the fast path is disabled
	MTU        *mtu.ControlLoop
	Registry   *Registry
}

// Server implements spec.md §6's control-plane interface: one
// gorilla/websocket connection per control client, JSON-framed requests,
// dispatched the way the teacher's fw/face/web-socket-transport.go handles
// one connection's receive loop (runReceive, Close-on-error).
type Server struct {
	deps     Deps
	upgrader websocket.Upgrader

	mu         sync.Mutex
	conns      map[ConnID]*clientConn
	nextConnID atomic.Uint64
}

// NewServer builds a control-plane server over the given forwarding-core
// tables.
func NewServer(deps Deps) *Server {
	return &Server{
		deps:     deps,
		upgrader: websocket.Upgrader{ReadBufferSize: 4096, WriteBufferSize: 4096},
		conns:    make(map[ConnID]*clientConn),
	}
}

func (s *Server) String() string { return "mgmt-server" }

type replyMsg struct {
	data *tlv.Data
	nack *tlv.Nack
}

// clientConn is one control-plane client: its websocket plus the loopback
// face pair that lets SendInterest inject an Interest into the forwarding
// core as if it arrived on a local application face.
type clientConn struct {
	id      ConnID
	ws      *websocket.Conn
	fwdSide *face.LoopbackTransport
	appSide *face.LoopbackTransport

	mu      sync.Mutex
	pending map[string]chan replyMsg

	// wsMu serializes writes to ws: the per-request response loop and the
	// StreamMetrics push goroutine both write to the same connection, and
	// gorilla/websocket forbids concurrent writers.
	wsMu sync.Mutex
}

func (c *clientConn) String() string { return "mgmt-client-conn" }

func (c *clientConn) writeJSON(v any) error {
	c.wsMu.Lock()
	defer c.wsMu.Unlock()
	return c.ws.WriteJSON(v)
}

// ServeHTTP upgrades an incoming HTTP request to a websocket and runs the
// control-plane session until the client disconnects.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		core.Log.Warn(s, "websocket upgrade failed", "err", err)
		return
	}
	s.runConn(ws)
}

func (s *Server) runConn(ws *websocket.Conn) {
	id := ConnID(s.nextConnID.Add(1))
	fwdID := s.deps.Faces.NextID()
	appID := s.deps.Faces.NextID()
	fwdSide, appSide := face.NewLoopbackPair(fwdID, appID)
	s.deps.Faces.Add(fwdSide)

	cc := &clientConn{id: id, ws: ws, fwdSide: fwdSide, appSide: appSide, pending: make(map[string]chan replyMsg)}

	s.mu.Lock()
	s.conns[id] = cc
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.conns, id)
		s.mu.Unlock()
		s.deps.Faces.Remove(fwdID)
		fwdSide.Close()
		appSide.Close()
		ws.Close()
	}()

	go appSide.Recv(cc.handleReply)

	for {
		var req Request
		if err := ws.ReadJSON(&req); err != nil {
			if websocket.IsCloseError(err) {
				// gracefully closed
			} else if websocket.IsUnexpectedCloseError(err) {
				core.Log.Info(s, "control connection closed unexpectedly", "err", err)
			} else {
				core.Log.Warn(s, "unable to read control message", "err", err)
			}
			return
		}

		if req.Kind == KindStreamMetrics {
			go s.streamMetrics(cc, req.ID)
			continue
		}

		resp := s.dispatch(context.Background(), cc, req)
		if err := cc.writeJSON(resp); err != nil {
			core.Log.Warn(s, "unable to write control response", "err", err)
			return
		}
	}
}

// handleReply matches an arriving Data or Nack on the app-side loopback
// face to the pending SendInterest call waiting on its name, if any.
func (c *clientConn) handleReply(raw []byte) {
	switch tlv.PeekKind(raw) {
	case tlv.KindData:
		d, err := tlv.ParseData(raw)
		if err != nil {
			return
		}
		c.deliver(d.Name.String(), replyMsg{data: d})
	case tlv.KindNack:
		n, err := tlv.ParseNack(raw)
		if err != nil {
			return
		}
		c.deliver(n.Name.String(), replyMsg{nack: n})
	}
}

func (c *clientConn) deliver(name string, msg replyMsg) {
	c.mu.Lock()
	ch, ok := c.pending[name]
	if ok {
		delete(c.pending, name)
	}
	c.mu.Unlock()
	if ok {
		ch <- msg
	}
}

func (c *clientConn) awaitReply(name string) chan replyMsg {
	ch := make(chan replyMsg, 1)
	c.mu.Lock()
	c.pending[name] = ch
	c.mu.Unlock()
	return ch
}

func (c *clientConn) cancelAwait(name string) {
	c.mu.Lock()
	delete(c.pending, name)
	c.mu.Unlock()
}

// dispatch routes one decoded Request to the matching RPC handler, per
// spec.md §6's method list.
func (s *Server) dispatch(ctx context.Context, cc *clientConn, req Request) Response {
	data, err := s.handle(ctx, cc, req)
	if err != nil {
		return Response{ID: req.ID, Kind: req.Kind, OK: false, Error: err.Error()}
	}
	return Response{ID: req.ID, Kind: req.Kind, OK: true, Data: data}
}

func (s *Server) handle(ctx context.Context, cc *clientConn, req Request) (any, error) {
	raw, err := json.Marshal(req.Params)
	if err != nil {
		return nil, err
	}

	switch req.Kind {
	case KindConnect:
		// The loopback pair is already established per-connection at
		// websocket-accept time; Connect just hands back its identity.
		var p ConnectParams
		_ = json.Unmarshal(raw, &p)
		return ConnectResult{ConnID: cc.id}, nil

	case KindSendInterest:
		var p SendInterestParams
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, err
		}
		return s.sendInterest(ctx, cc, p)

	case KindRegisterPrefix:
		var p RegisterPrefixParams
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, err
		}
		return nil, s.registerPrefix(p)

	case KindUnregisterPrefix:
		var p UnregisterPrefixParams
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, err
		}
		return nil, s.unregisterPrefix(p)

	case KindConfigureFastPath:
		var p ConfigureFastPathParams
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, err
		}
		s.configureFastPath(p)
		return nil, nil

	case KindSubmitMtuFeatures:
		var p SubmitMtuFeaturesParams
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, err
		}
		return s.submitMtuFeatures(ctx, p)

	case KindGetState:
		return s.getState(), nil

	default:
		return nil, errUnknownRequestKind(req.Kind)
	}
}

type errUnknownRequestKind RequestKind

func (e errUnknownRequestKind) Error() string { return "unknown request kind: " + string(e) }

// sendInterest implements spec.md §6's SendInterest(conn_id, name, flags)
// -> Data | Nack | Timeout by injecting the Interest on the client's
// loopback face and waiting for the matching reply (or the Interest's own
// lifetime, whichever governs the PIT entry it creates).
func (s *Server) sendInterest(ctx context.Context, cc *clientConn, p SendInterestParams) (SendInterestResult, error) {
	name, err := tlv.NameFromStr(p.Name)
	if err != nil {
		return SendInterestResult{}, err
	}
	lifetime := p.Lifetime
	if lifetime <= 0 {
		lifetime = 2 * time.Second
	}

	interest := &tlv.Interest{
		Name: name, HasNonce: true, Nonce: uint32(cc.id)<<16 ^ uint32(time.Now().UnixNano()),
		MustBeFresh: p.MustBeFresh, Lifetime: lifetime,
	}

	ch := cc.awaitReply(name.String())
	s.deps.Dispatch.DispatchInbound(tlv.EncodeInterest(interest), cc.fwdSide.ID())

	select {
	case msg := <-ch:
		if msg.data != nil {
			return SendInterestResult{Outcome: OutcomeData, Content: msg.data.Content}, nil
		}
		return SendInterestResult{Outcome: OutcomeNack, NackReason: msg.nack.Reason.String()}, nil
	case <-time.After(lifetime):
		cc.cancelAwait(name.String())
		return SendInterestResult{Outcome: OutcomeTimeout}, nil
	case <-ctx.Done():
		cc.cancelAwait(name.String())
		return SendInterestResult{}, ctx.Err()
	}
}

func (s *Server) registerPrefix(p RegisterPrefixParams) error {
	prefix, err := tlv.NameFromStr(p.Prefix)
	if err != nil {
		return err
	}
	s.deps.FIB.InsertNextHop(prefix, p.FaceID, p.Cost)
	if s.deps.Registry != nil {
		if err := s.deps.Registry.SaveRoute(p.Prefix, p.FaceID, p.Cost); err != nil {
			core.Log.Warn(s, "failed to persist registered route", "prefix", p.Prefix, "err", err)
		}
	}
	return nil
}

func (s *Server) unregisterPrefix(p UnregisterPrefixParams) error {
	prefix, err := tlv.NameFromStr(p.Prefix)
	if err != nil {
		return err
	}
	s.deps.FIB.RemoveNextHop(prefix, p.FaceID)
	if s.deps.Registry != nil {
		if err := s.deps.Registry.DeleteRoute(p.Prefix, p.FaceID); err != nil {
			core.Log.Warn(s, "failed to un-persist route", "prefix", p.Prefix, "err", err)
		}
	}
	return nil
}

func (s *Server) configureFastPath(p ConfigureFastPathParams) {
	if s.deps.Classifier == nil {
		core.Log.Warn(s, "ConfigureFastPath received but fast path is disabled")
		return
	}
	cfg := s.deps.Classifier.Config()
	if p.CSBytes > 0 {
		cfg.ResponseBytes = p.CSBytes
	}
	if p.TTLSec > 0 {
		cfg.NonceDedupWindow = time.Duration(p.TTLSec) * time.Second
	}
	if p.FallbackPct >= 0 && p.FallbackPct <= 100 {
		cfg.SlowPathSampleOutOf1000 = p.FallbackPct * 10
	}
	s.deps.Classifier.SetConfig(cfg)
}

// ConfigureFastPathForm decodes a ConfigureFastPath call arriving as an
// HTTP form post (e.g. from a local CLI), per spec.md §6, using
// gorilla/schema rather than this package's own JSON envelope. Mounted by
// the daemon entrypoint alongside ServeHTTP's websocket endpoint.
func (s *Server) ConfigureFastPathForm(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var p ConfigureFastPathParams
	if err := formDecoder.Decode(&p, r.PostForm); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.configureFastPath(p)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) submitMtuFeatures(ctx context.Context, p SubmitMtuFeaturesParams) (SubmitMtuFeaturesResult, error) {
	f, ok := s.deps.Faces.Get(p.FaceID)
	if !ok {
		return SubmitMtuFeaturesResult{}, errFaceNotFound(p.FaceID)
	}
	features := mtu.Features{
		RTTEwma:       time.Duration(p.RTTEwmaMs * float64(time.Millisecond)),
		LossRate:      p.LossRate,
		ThroughputBps: p.ThroughputBps,
		CWND:          p.CWND,
		AvgPacketSize: p.AvgPacketSize,
		LinkClass:     p.LinkClass,
	}
	predicted, applied := s.deps.MTU.Tick(ctx, uint64(p.FaceID), f.MTU(), p.CWND, features)
	if applied {
		f.SetMTU(predicted)
		s.deps.Counters.Incr(0, metrics.CounterMTUPredictionsApplied, 1)
	}
	return SubmitMtuFeaturesResult{PredictedMTU: predicted}, nil
}

type errFaceNotFound defn.FaceID

func (e errFaceNotFound) Error() string { return "no such face" }

func (s *Server) getState() StateSnapshot {
	s.mu.Lock()
	conns := len(s.conns)
	s.mu.Unlock()
	return StateSnapshot{
		Connections: conns,
		Faces:       s.deps.Faces.Len(),
		CSBytes:     s.deps.CS.TotalBytes(),
		PITEntries:  s.deps.PIT.Count(),
	}
}

// streamMetrics implements spec.md §6's StreamMetrics() -> lazy sequence of
// snapshots, infinite, not restartable: one goroutine per call, pushing a
// Response over the same websocket every second until a write fails (the
// client went away); nothing else stops it.
func (s *Server) streamMetrics(cc *clientConn, reqID uint64) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for range ticker.C {
		snap := MetricsSnapshot{Timestamp: time.Now(), Counters: s.deps.Counters.Snapshot()}
		resp := Response{ID: reqID, Kind: KindStreamMetrics, OK: true, Data: snap}
		if err := cc.writeJSON(resp); err != nil {
			return
		}
	}
}

// ReplayRoutes loads persisted routes from the registry and installs them
// into the FIB, for use at startup before faces have necessarily been
// re-dialed — a route to a not-yet-existent face is simply inert until
// the face reappears.
func (s *Server) ReplayRoutes() error {
	if s.deps.Registry == nil {
		return nil
	}
	records, err := s.deps.Registry.LoadRoutes()
	if err != nil {
		return err
	}
	for _, rec := range records {
		name, err := tlv.NameFromStr(rec.Prefix)
		if err != nil {
			core.Log.Warn(s, "skipping malformed persisted route", "prefix", rec.Prefix, "err", err)
			continue
		}
		s.deps.FIB.InsertNextHop(name, rec.FaceID, rec.Cost)
	}
	return nil
}
