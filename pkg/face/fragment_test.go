package face

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFragmentRoundTripSingleFragment(t *testing.T) {
	packet := []byte("small packet")
	frags := Fragment(packet, 1400, 1)
	require.Len(t, frags, 1)

	r := NewReassembler(time.Second, 1<<20)
	msg, ok := r.Push(frags[0])
	require.True(t, ok)
	assert.Equal(t, packet, msg)
}

func TestFragmentRoundTripMultipleFragments(t *testing.T) {
	packet := make([]byte, 10000)
	for i := range packet {
		packet[i] = byte(i)
	}
	frags := Fragment(packet, 1024, 7)
	require.Greater(t, len(frags), 1)

	r := NewReassembler(time.Second, 1<<20)
	var msg []byte
	var ok bool
	for _, f := range frags {
		msg, ok = r.Push(f)
	}
	require.True(t, ok)
	assert.Equal(t, packet, msg)
}

func TestFragmentReassembleOutOfOrder(t *testing.T) {
	packet := make([]byte, 5000)
	for i := range packet {
		packet[i] = byte(i % 251)
	}
	frags := Fragment(packet, 1024, 3)
	require.Greater(t, len(frags), 2)

	r := NewReassembler(time.Second, 1<<20)
	// push in reverse order
	var msg []byte
	var ok bool
	for i := len(frags) - 1; i >= 0; i-- {
		msg, ok = r.Push(frags[i])
	}
	require.True(t, ok)
	assert.Equal(t, packet, msg)
}

// TestFragmentGCDropsIncompleteAfterWindow is spec.md §4.7: "missing
// fragments cause the whole message to be dropped" after REASSEMBLY_MS.
func TestFragmentGCDropsIncompleteAfterWindow(t *testing.T) {
	packet := make([]byte, 5000)
	frags := Fragment(packet, 1024, 9)
	require.Greater(t, len(frags), 1)

	r := NewReassembler(10*time.Millisecond, 1<<20)
	_, ok := r.Push(frags[0]) // missing the rest
	assert.False(t, ok)

	dropped := r.GC(time.Now().Add(50 * time.Millisecond))
	assert.Equal(t, 1, dropped)
}

func TestFragmentHeaderRoundTrip(t *testing.T) {
	h := fragmentHeader{MessageID: 0xdeadbeef, Index: 3, Total: 10, Final: false}
	buf := encodeFragmentHeader(h)
	got, rest, ok := decodeFragmentHeader(append(buf, []byte("payload")...))
	require.True(t, ok)
	assert.Equal(t, h, got)
	assert.Equal(t, []byte("payload"), rest)
}
