package mtu

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePredictor struct {
	values []int
	idx    int
	err    error
}

func (f *fakePredictor) SubmitMtuFeatures(_ context.Context, _ uint64, _ Features) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	v := f.values[f.idx]
	if f.idx < len(f.values)-1 {
		f.idx++
	}
	return v, nil
}

func TestControlLoopFirstPredictionNeverApplies(t *testing.T) {
	pred := &fakePredictor{values: []int{1500}}
	loop := NewControlLoop(DefaultConfig(), pred)

	mtu, applied := loop.Tick(context.Background(), 1, 1200, 100000, Features{})
	assert.False(t, applied, "a single prediction can't yet be judged stable")
	assert.Equal(t, 1200, mtu)
}

// TestControlLoopAppliesAfterTwoStablePredictions is spec.md §4.8's core
// gate: stable (+/-64 bytes) for two consecutive predictions AND cwnd >
// 4*new_MTU.
func TestControlLoopAppliesAfterTwoStablePredictions(t *testing.T) {
	pred := &fakePredictor{values: []int{1500, 1520}}
	loop := NewControlLoop(DefaultConfig(), pred)

	loop.Tick(context.Background(), 1, 1200, 1e9, Features{})
	mtu, applied := loop.Tick(context.Background(), 1, 1200, 1e9, Features{})

	assert.True(t, applied)
	assert.Equal(t, 1520, mtu)
}

func TestControlLoopRejectsUnstablePredictions(t *testing.T) {
	pred := &fakePredictor{values: []int{1500, 2000}}
	loop := NewControlLoop(DefaultConfig(), pred)

	loop.Tick(context.Background(), 1, 1200, 1e9, Features{})
	mtu, applied := loop.Tick(context.Background(), 1, 1200, 1e9, Features{})

	assert.False(t, applied)
	assert.Equal(t, 1200, mtu)
}

func TestControlLoopRejectsWhenCWNDTooSmall(t *testing.T) {
	pred := &fakePredictor{values: []int{1500, 1510}}
	loop := NewControlLoop(DefaultConfig(), pred)

	loop.Tick(context.Background(), 1, 1200, 100, Features{})
	mtu, applied := loop.Tick(context.Background(), 1, 1200, 100, Features{})

	assert.False(t, applied)
	assert.Equal(t, 1200, mtu)
}

func TestControlLoopClampsToMinMax(t *testing.T) {
	cfg := DefaultConfig()
	pred := &fakePredictor{values: []int{100, 100}}
	loop := NewControlLoop(cfg, pred)

	loop.Tick(context.Background(), 1, 600, 1e9, Features{})
	mtu, applied := loop.Tick(context.Background(), 1, 600, 1e9, Features{})
	require.True(t, applied)
	assert.Equal(t, cfg.Min, mtu)
}

// TestControlLoopPredictorUnavailableRetainsMTU is spec.md §7's
// PredictorUnavailable class.
func TestControlLoopPredictorUnavailableRetainsMTU(t *testing.T) {
	pred := &fakePredictor{err: errors.New("rpc timeout")}
	loop := NewControlLoop(DefaultConfig(), pred)

	mtu, applied := loop.Tick(context.Background(), 1, 1400, 1e9, Features{})
	assert.False(t, applied)
	assert.Equal(t, 1400, mtu)
}
