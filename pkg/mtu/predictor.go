// Package mtu implements spec.md §4.8's MTU control loop: an external,
// black-box predictor proposes MTUs from per-face feature vectors, and a
// stability gate decides whether the forwarder actually applies one.
package mtu

import (
	"context"
	"time"
)

// Features is the feature vector submitted to the predictor once per
// cadence tick (spec.md §4.8: "{rtt_ewma, loss_rate, throughput_bps, cwnd,
// avg_packet_size, link_class}").
type Features struct {
	RTTEwma       time.Duration
	LossRate      float64
	ThroughputBps float64
	CWND          float64
	AvgPacketSize float64
	LinkClass     string
}

// Predictor is the control-plane RPC contract from spec.md §6:
// "SubmitMtuFeatures(face_id, features) -> predicted_mtu". It is a black
// box to the forwarding core; HTTPPredictor (http_predictor.go) is the
// concrete implementation that talks to the external predictor process.
type Predictor interface {
	SubmitMtuFeatures(ctx context.Context, faceID uint64, features Features) (int, error)
}

// ErrPredictorUnavailable is spec.md §7's PredictorUnavailable class: "MTU
// RPC fails or times out... retain previous MTU, log warning".
type ErrPredictorUnavailable struct {
	Cause error
}

func (e *ErrPredictorUnavailable) Error() string {
	return "mtu: predictor unavailable: " + e.Cause.Error()
}

func (e *ErrPredictorUnavailable) Unwrap() error { return e.Cause }
