package mtu

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// HTTPPredictor is the default Predictor: a thin JSON/HTTP client to the
// external MTU-prediction process spec.md §4.8 treats as a black box.
// There is no ambient RPC framework in this codebase for arbitrary
// external services (pkg/mgmt's websocket/JSON envelope is for this
// forwarder's own control plane, not for calling out to a third party),
// so this client stays on net/http rather than adopting a library with no
// other use in the tree.
type HTTPPredictor struct {
	addr   string
	client *http.Client
}

// NewHTTPPredictor builds a client bound to addr, timing every request out
// after timeout (spec.md §7's PredictorUnavailable class requires a bound
// wait, never a block).
func NewHTTPPredictor(addr string, timeout time.Duration) *HTTPPredictor {
	return &HTTPPredictor{addr: addr, client: &http.Client{Timeout: timeout}}
}

func (p *HTTPPredictor) String() string { return "http-mtu-predictor (" + p.addr + ")" }

type predictRequest struct {
	FaceID        uint64  `json:"face_id"`
	RTTEwmaMs     float64 `json:"rtt_ewma_ms"`
	LossRate      float64 `json:"loss_rate"`
	ThroughputBps float64 `json:"throughput_bps"`
	CWND          float64 `json:"cwnd"`
	AvgPacketSize float64 `json:"avg_packet_size"`
	LinkClass     string  `json:"link_class"`
}

type predictResponse struct {
	MTU int `json:"predicted_mtu"`
}

// SubmitMtuFeatures implements Predictor by POSTing the feature vector and
// decoding the predicted MTU. Any transport, status, or decode failure is
// wrapped in ErrPredictorUnavailable so callers (pkg/mtu.ControlLoop) can
// tell "no change" from "predictor is down" apart from an ordinary error.
func (p *HTTPPredictor) SubmitMtuFeatures(ctx context.Context, faceID uint64, features Features) (int, error) {
	body, err := json.Marshal(predictRequest{
		FaceID:        faceID,
		RTTEwmaMs:     float64(features.RTTEwma) / float64(time.Millisecond),
		LossRate:      features.LossRate,
		ThroughputBps: features.ThroughputBps,
		CWND:          features.CWND,
		AvgPacketSize: features.AvgPacketSize,
		LinkClass:     features.LinkClass,
	})
	if err != nil {
		return 0, &ErrPredictorUnavailable{Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.addr, bytes.NewReader(body))
	if err != nil {
		return 0, &ErrPredictorUnavailable{Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return 0, &ErrPredictorUnavailable{Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, &ErrPredictorUnavailable{Cause: fmt.Errorf("predictor returned status %d", resp.StatusCode)}
	}

	var out predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, &ErrPredictorUnavailable{Cause: err}
	}
	return out.MTU, nil
}
