package fastpath

import (
	"testing"
	"time"

	"github.com/ndnfw/ndnfw/internal/core"
	"github.com/ndnfw/ndnfw/pkg/defn"
	"github.com/ndnfw/ndnfw/pkg/table"
	"github.com/ndnfw/ndnfw/pkg/tlv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTables() (*table.ContentStore, *table.PIT) {
	cs := table.NewContentStore(core.CSConfig{
		CapacityBytes: 1 << 20, MaxEntryBytes: 8192, MaxEntries: 1000,
		MaxTTL: time.Hour, Shards: 4,
	})
	pit := table.NewPIT(core.PITConfig{Capacity: 1000, Shards: 4})
	return cs, pit
}

func noSampling() Config {
	cfg := DefaultConfig()
	cfg.SlowPathSampleOutOf1000 = 0
	return cfg
}

func TestClassifyInterestServesFromCS(t *testing.T) {
	cs, pit := newTestTables()
	name, err := tlv.NameFromStr("/a/b")
	require.NoError(t, err)

	d := &tlv.Data{Name: name, Freshness: time.Minute, Content: []byte("hello")}
	wire := tlv.EncodeData(d)
	cs.Insert(d, wire)

	c := NewClassifier(noSampling(), cs, pit)
	interest := &tlv.Interest{Name: name, Nonce: 1, HasNonce: true, Lifetime: time.Second}
	verdict, out := c.ClassifyInterest(tlv.EncodeInterest(interest), defn.FaceID(1))

	assert.Equal(t, VerdictServedFromCS, verdict)
	assert.Equal(t, wire, out)
}

func TestClassifyInterestMissGoesToSlowPath(t *testing.T) {
	cs, pit := newTestTables()
	name, err := tlv.NameFromStr("/a/b")
	require.NoError(t, err)

	c := NewClassifier(noSampling(), cs, pit)
	interest := &tlv.Interest{Name: name, Nonce: 1, HasNonce: true, Lifetime: time.Second}
	verdict, _ := c.ClassifyInterest(tlv.EncodeInterest(interest), defn.FaceID(1))

	assert.Equal(t, VerdictSlowPath, verdict)
}

func TestClassifyInterestDropsDuplicateNonceWithinWindow(t *testing.T) {
	cs, pit := newTestTables()
	name, err := tlv.NameFromStr("/a/b")
	require.NoError(t, err)

	c := NewClassifier(noSampling(), cs, pit)
	raw := tlv.EncodeInterest(&tlv.Interest{Name: name, Nonce: 42, HasNonce: true, Lifetime: time.Second})

	v1, _ := c.ClassifyInterest(raw, defn.FaceID(1))
	assert.Equal(t, VerdictSlowPath, v1) // first sighting: CS miss, not a duplicate

	v2, _ := c.ClassifyInterest(raw, defn.FaceID(1))
	assert.Equal(t, VerdictDroppedDuplicate, v2)
}

func TestClassifyInterestOversizeResponseFallsBackToSlowPath(t *testing.T) {
	cs, pit := newTestTables()
	name, err := tlv.NameFromStr("/a/b")
	require.NoError(t, err)

	d := &tlv.Data{Name: name, Freshness: time.Minute, Content: make([]byte, 8000)}
	wire := tlv.EncodeData(d)
	cs.Insert(d, wire)

	cfg := noSampling()
	cfg.ResponseBytes = 100
	c := NewClassifier(cfg, cs, pit)
	interest := &tlv.Interest{Name: name, Nonce: 1, HasNonce: true, Lifetime: time.Second}
	verdict, _ := c.ClassifyInterest(tlv.EncodeInterest(interest), defn.FaceID(1))

	assert.Equal(t, VerdictSlowPath, verdict)
}

func TestClassifyDataRedirectsToRecordedInFace(t *testing.T) {
	cs, pit := newTestTables()
	name, err := tlv.NameFromStr("/a/b")
	require.NoError(t, err)

	interest := &tlv.Interest{Name: name, Nonce: 1, HasNonce: true, Lifetime: time.Second}
	action := pit.OnInterest(interest, defn.FaceID(7))
	require.Equal(t, table.ActionForward, action)

	c := NewClassifier(noSampling(), cs, pit)
	d := &tlv.Data{Name: name, Freshness: time.Minute, Content: []byte("x")}
	verdict, faces := c.ClassifyData(tlv.EncodeData(d))

	assert.Equal(t, VerdictRedirected, verdict)
	assert.Equal(t, []defn.FaceID{7}, faces)

	// opportunistically cached
	_, ok := cs.Lookup(name, false)
	assert.True(t, ok)
}

func TestClassifyDataUnmatchedGoesToSlowPath(t *testing.T) {
	cs, pit := newTestTables()
	name, err := tlv.NameFromStr("/no/such/pit/entry")
	require.NoError(t, err)

	c := NewClassifier(noSampling(), cs, pit)
	d := &tlv.Data{Name: name, Freshness: time.Minute}
	verdict, _ := c.ClassifyData(tlv.EncodeData(d))

	assert.Equal(t, VerdictSlowPath, verdict)
}

// TestSampledToSlowPathIsExactOver1000 verifies the deterministic sampler
// produces exactly the configured fraction per 1000 packets, rather than a
// probabilistic approximation.
func TestSampledToSlowPathIsExactOver1000(t *testing.T) {
	cfg := DefaultConfig()
	cs, pit := newTestTables()
	c := NewClassifier(cfg, cs, pit)

	sampled := 0
	for i := 0; i < 1000; i++ {
		if c.sampledToSlowPath() {
			sampled++
		}
	}
	assert.Equal(t, cfg.SlowPathSampleOutOf1000, sampled)
}
