package face

import (
	"sync"
	"testing"
	"time"

	"github.com/ndnfw/ndnfw/pkg/defn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableAddGetRemove(t *testing.T) {
	tbl := NewTable()
	id := tbl.NextID()
	fwd, app := NewLoopbackPair(id, tbl.NextID())
	tbl.Add(fwd)

	got, ok := tbl.Get(id)
	require.True(t, ok)
	assert.Equal(t, fwd, got)

	tbl.Remove(id)
	_, ok = tbl.Get(id)
	assert.False(t, ok)

	app.Close()
}

func TestTableNextIDNeverReusesZero(t *testing.T) {
	tbl := NewTable()
	assert.NotEqual(t, defn.InvalidFaceID, tbl.NextID())
}

func TestLoopbackPairDeliversBothWays(t *testing.T) {
	fwdSide, appSide := NewLoopbackPair(1, 2)
	defer fwdSide.Close()
	defer appSide.Close()

	received := make(chan []byte, 1)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		appSide.Recv(func(packet []byte) {
			received <- packet
			appSide.Close()
		})
	}()

	require.NoError(t, fwdSide.Send([]byte("hello")))

	select {
	case pkt := <-received:
		assert.Equal(t, []byte("hello"), pkt)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for loopback delivery")
	}
	wg.Wait()
}

func TestLoopbackSendAfterCloseFails(t *testing.T) {
	fwdSide, appSide := NewLoopbackPair(1, 2)
	appSide.Close()
	fwdSide.Close()

	err := fwdSide.Send([]byte("x"))
	assert.ErrorIs(t, err, ErrFaceDown)
}
