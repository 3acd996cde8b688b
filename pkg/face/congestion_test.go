package face

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCongestionInitialWindowAtLeast10MSS(t *testing.T) {
	c := NewCongestion()
	assert.GreaterOrEqual(t, c.CWND(), float64(10*mss))
}

func TestCongestionACKGrowsWindow(t *testing.T) {
	c := NewCongestion()
	before := c.CWND()
	c.OnACK(10 * time.Millisecond)
	assert.Greater(t, c.CWND(), before)
}

// TestCongestionLossHalvesWindow is spec.md §4.7: "on loss event, cwnd <-
// max(2*MSS, cwnd/2)".
func TestCongestionLossHalvesWindow(t *testing.T) {
	c := NewCongestion()
	for i := 0; i < 20; i++ {
		c.OnACK(10 * time.Millisecond)
	}
	before := c.CWND()
	c.OnLoss()
	assert.InDelta(t, before/2, c.CWND(), 1)
}

func TestCongestionLossNeverBelowFloor(t *testing.T) {
	c := NewCongestion()
	for i := 0; i < 100; i++ {
		c.OnLoss()
	}
	assert.GreaterOrEqual(t, c.CWND(), float64(2*mss))
}

func TestCongestionRTTEWMASmooths(t *testing.T) {
	c := NewCongestion()
	c.OnACK(100 * time.Millisecond)
	assert.Equal(t, 100*time.Millisecond, c.RTT())

	c.OnACK(20 * time.Millisecond)
	// moved toward the new sample but not all the way
	assert.Less(t, c.RTT(), 100*time.Millisecond)
	assert.Greater(t, c.RTT(), 20*time.Millisecond)
}

func TestCongestionLossRateWindowed(t *testing.T) {
	c := NewCongestion()
	for i := 0; i < 8; i++ {
		c.OnACK(time.Millisecond)
	}
	for i := 0; i < 2; i++ {
		c.OnLoss()
	}
	assert.InDelta(t, 0.2, c.LossRate(), 0.01)
}
