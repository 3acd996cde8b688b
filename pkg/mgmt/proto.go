// Package mgmt implements the control-plane RPC surface spec.md §6
// describes between the forwarder and an external control process: connect,
// push an Interest, edit the FIB, reconfigure the fast path, feed the MTU
// predictor features, and read back forwarder state.
package mgmt

import (
	"time"

	"github.com/ndnfw/ndnfw/pkg/defn"
)

// ConnID names a control-plane client connection for the lifetime of its
// websocket.
type ConnID uint64

// RequestKind tags a Request's Params so the server can dispatch without a
// second type switch on the wire.
type RequestKind string

const (
	KindConnect           RequestKind = "connect"
	KindSendInterest       RequestKind = "send_interest"
	KindRegisterPrefix     RequestKind = "register_prefix"
	KindUnregisterPrefix   RequestKind = "unregister_prefix"
	KindConfigureFastPath  RequestKind = "configure_fast_path"
	KindSubmitMtuFeatures  RequestKind = "submit_mtu_features"
	KindGetState           RequestKind = "get_state"
	KindStreamMetrics      RequestKind = "stream_metrics"
)

// Request is the envelope every JSON control message arrives in. ID lets
// the client correlate a Response to the Request that produced it;
// server-pushed StreamMetrics snapshots all carry the ID of the
// stream_metrics Request that started them.
type Request struct {
	ID     uint64          `json:"id"`
	Kind   RequestKind     `json:"kind"`
	Params any             `json:"params"`
}

// Response is the envelope every reply (including StreamMetrics pushes) is
// wrapped in.
type Response struct {
	ID    uint64 `json:"id"`
	Kind  RequestKind `json:"kind"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
	Data  any    `json:"data,omitempty"`
}

// ConnectParams is spec.md §6's Connect(peer_host, peer_port) -> conn_id.
type ConnectParams struct {
	PeerHost string `json:"peer_host"`
	PeerPort int    `json:"peer_port"`
}

// ConnectResult is the conn_id handed back on a successful Connect.
type ConnectResult struct {
	ConnID ConnID `json:"conn_id"`
}

// SendInterestParams is spec.md §6's SendInterest(conn_id, name, flags) ->
// Data | Nack | Timeout.
type SendInterestParams struct {
	ConnID      ConnID        `json:"conn_id"`
	Name        string        `json:"name"`
	MustBeFresh bool          `json:"must_be_fresh"`
	Lifetime    time.Duration `json:"lifetime"`
}

// SendInterestOutcome tags which of the three possible replies arrived.
type SendInterestOutcome string

const (
	OutcomeData    SendInterestOutcome = "data"
	OutcomeNack    SendInterestOutcome = "nack"
	OutcomeTimeout SendInterestOutcome = "timeout"
)

// SendInterestResult carries whichever of Content/NackReason applies for
// Outcome.
type SendInterestResult struct {
	Outcome    SendInterestOutcome `json:"outcome"`
	Content    []byte              `json:"content,omitempty"`
	NackReason string              `json:"nack_reason,omitempty"`
}

// RegisterPrefixParams is spec.md §6's RegisterPrefix(prefix, face_id, cost).
type RegisterPrefixParams struct {
	Prefix string       `json:"prefix"`
	FaceID defn.FaceID  `json:"face_id"`
	Cost   uint16       `json:"cost"`
}

// UnregisterPrefixParams is spec.md §6's UnregisterPrefix(prefix, face_id).
type UnregisterPrefixParams struct {
	Prefix string      `json:"prefix"`
	FaceID defn.FaceID `json:"face_id"`
}

// ConfigureFastPathParams is spec.md §6's ConfigureFastPath struct, also
// reachable as an HTTP form (decoded with gorilla/schema — see server.go's
// ConfigureFastPathForm).
type ConfigureFastPathParams struct {
	Enabled     bool   `json:"enabled" schema:"enabled"`
	CSBytes     int    `json:"cs_bytes" schema:"cs_bytes"`
	TTLSec      int    `json:"ttl_sec" schema:"ttl_sec"`
	FallbackPct int    `json:"fallback_pct" schema:"fallback_pct"`
	HashAlgo    string `json:"hash_algo" schema:"hash_algo"`
}

// SubmitMtuFeaturesParams is spec.md §6's SubmitMtuFeatures(face_id,
// features) -> predicted_mtu.
type SubmitMtuFeaturesParams struct {
	FaceID   defn.FaceID `json:"face_id"`
	RTTEwmaMs float64    `json:"rtt_ewma_ms"`
	LossRate  float64    `json:"loss_rate"`
	ThroughputBps float64 `json:"throughput_bps"`
	CWND      float64    `json:"cwnd"`
	AvgPacketSize float64 `json:"avg_packet_size"`
	LinkClass string     `json:"link_class"`
}

// SubmitMtuFeaturesResult carries the predicted_mtu back to the caller.
type SubmitMtuFeaturesResult struct {
	PredictedMTU int `json:"predicted_mtu"`
}

// StateSnapshot is spec.md §6's GetState() -> {connections, faces, cs_bytes,
// pit_entries}.
type StateSnapshot struct {
	Connections int   `json:"connections"`
	Faces       int   `json:"faces"`
	CSBytes     int64 `json:"cs_bytes"`
	PITEntries  int64 `json:"pit_entries"`
}

// MetricsSnapshot is one element of spec.md §6's StreamMetrics() sequence.
type MetricsSnapshot struct {
	Timestamp time.Time         `json:"timestamp"`
	Counters  map[string]uint64 `json:"counters"`
}
