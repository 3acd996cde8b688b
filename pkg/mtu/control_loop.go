package mtu

import (
	"context"
	"sync"
	"time"

	"github.com/ndnfw/ndnfw/internal/core"
)

// defaultStabilityBytes is spec.md §4.8's "+/- 64 bytes" stability window.
const defaultStabilityBytes = 64

// Config bundles the control loop's bounds and gating thresholds (spec.md
// §4.8).
type Config struct {
	Min            int
	Max            int
	StabilityBytes int
	// CWNDMultiple is the "current cwnd exceeds N x new_MTU" gate.
	CWNDMultiple float64
}

// DefaultConfig matches spec.md §4.8's stated bounds and gate.
func DefaultConfig() Config {
	return Config{Min: 512, Max: 9000, StabilityBytes: defaultStabilityBytes, CWNDMultiple: 4}
}

// faceLoopState tracks one face's prediction history for the stability
// gate.
type faceLoopState struct {
	currentMTU   int
	lastPrediction int
	havePrior    bool
}

// ControlLoop drives spec.md §4.8 per face: submit features, gate the
// predictor's proposal against the stability rule, and apply (or retain)
// the MTU.
type ControlLoop struct {
	cfg       Config
	predictor Predictor

	mu     sync.Mutex
	faces  map[uint64]*faceLoopState
}

// NewControlLoop builds a ControlLoop against predictor.
func NewControlLoop(cfg Config, predictor Predictor) *ControlLoop {
	return &ControlLoop{cfg: cfg, predictor: predictor, faces: make(map[uint64]*faceLoopState)}
}

func (c *ControlLoop) String() string { return "mtu-control-loop" }

func (c *ControlLoop) stateFor(faceID uint64, initialMTU int) *faceLoopState {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.faces[faceID]
	if !ok {
		s = &faceLoopState{currentMTU: initialMTU}
		c.faces[faceID] = s
	}
	return s
}

// Tick implements one cadence step for faceID: submit features, and either
// apply a new MTU or retain the current one. Returns the MTU the face
// should now use, and whether the stability gate applied the prediction
// (true even when the applied value equals the current MTU).
func (c *ControlLoop) Tick(ctx context.Context, faceID uint64, currentMTU int, cwnd float64, features Features) (mtuOut int, applied bool) {
	state := c.stateFor(faceID, currentMTU)

	predicted, err := c.predictor.SubmitMtuFeatures(ctx, faceID, features)
	if err != nil {
		core.Log.Warn(c, "predictor unavailable, retaining MTU", "face", faceID, "err", err)
		return state.currentMTU, false
	}
	if predicted < c.cfg.Min {
		predicted = c.cfg.Min
	}
	if predicted > c.cfg.Max {
		predicted = c.cfg.Max
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	stable := state.havePrior && abs(predicted-state.lastPrediction) <= c.cfg.StabilityBytes
	state.lastPrediction = predicted
	state.havePrior = true

	if stable && cwnd > c.cfg.CWNDMultiple*float64(predicted) {
		state.currentMTU = predicted
		return predicted, true
	}
	return state.currentMTU, false
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// CurrentMTU returns the face's last applied MTU (or its initial value if
// Tick has never been called).
func (c *ControlLoop) CurrentMTU(faceID uint64) (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.faces[faceID]
	if !ok {
		return 0, false
	}
	return s.currentMTU, true
}

// RunPeriodic drives Tick on a fixed cadence for faceID until ctx is
// canceled, pulling fresh features from sample on every tick and pushing
// applied MTUs to apply. This is the shape internal/cmdline wires per
// QUIC face (spec.md §4.8: "cadence of 1-10s per face").
func RunPeriodic(ctx context.Context, loop *ControlLoop, faceID uint64, cadence time.Duration,
	sample func() (currentMTU int, cwnd float64, features Features),
	apply func(mtu int),
) {
	ticker := time.NewTicker(cadence)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			currentMTU, cwnd, features := sample()
			mtu, applied := loop.Tick(ctx, faceID, currentMTU, cwnd, features)
			if applied {
				apply(mtu)
			}
		}
	}
}
