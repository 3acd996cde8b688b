package table

import (
	"testing"
	"time"

	"github.com/ndnfw/ndnfw/internal/core"
	"github.com/ndnfw/ndnfw/pkg/tlv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCSConfig() core.CSConfig {
	return core.CSConfig{
		CapacityBytes: 4096,
		MaxEntryBytes: 2048,
		MaxEntries:    1000,
		MaxTTL:        time.Hour,
		Shards:        4,
	}
}

func mustName(t *testing.T, s string) tlv.Name {
	t.Helper()
	n, err := tlv.NameFromStr(s)
	require.NoError(t, err)
	return n
}

func dataWithContent(t *testing.T, name string, freshness time.Duration, size int) (*tlv.Data, []byte) {
	t.Helper()
	d := &tlv.Data{
		Name:       mustName(t, name),
		Freshness:  freshness,
		Content:    make([]byte, size),
	}
	return d, tlv.EncodeData(d)
}

func TestCSMissWhenEmpty(t *testing.T) {
	cs := NewContentStore(testCSConfig())
	_, ok := cs.Lookup(mustName(t, "/a/b"), false)
	assert.False(t, ok)
}

func TestCSInsertThenLookupHits(t *testing.T) {
	cs := NewContentStore(testCSConfig())
	d, wire := dataWithContent(t, "/a/b", time.Minute, 100)
	cs.Insert(d, wire)

	entry, ok := cs.Lookup(mustName(t, "/a/b"), true)
	require.True(t, ok)
	assert.Equal(t, len(wire), entry.Size)
}

func TestCSZeroFreshnessNotCached(t *testing.T) {
	cs := NewContentStore(testCSConfig())
	d, wire := dataWithContent(t, "/a/b", 0, 100)
	cs.Insert(d, wire)

	_, ok := cs.Lookup(mustName(t, "/a/b"), false)
	assert.False(t, ok, "non-fresh Data must not be admitted")
}

func TestCSStaleEntryMissesUnderMustBeFresh(t *testing.T) {
	cs := NewContentStore(testCSConfig())
	d, wire := dataWithContent(t, "/a/b", time.Millisecond, 100)
	cs.Insert(d, wire)
	time.Sleep(5 * time.Millisecond)

	_, ok := cs.Lookup(mustName(t, "/a/b"), true)
	assert.False(t, ok)

	// a non-must-be-fresh lookup can still observe the stale entry
	_, ok = cs.Lookup(mustName(t, "/a/b"), false)
	assert.True(t, ok)
}

func TestCSOversizeEntryNotAdmitted(t *testing.T) {
	cs := NewContentStore(testCSConfig())
	d, wire := dataWithContent(t, "/a/b", time.Minute, 4096)
	cs.Insert(d, wire)

	_, ok := cs.Lookup(mustName(t, "/a/b"), false)
	assert.False(t, ok)
}

// TestCSByteAccountingNeverExceedsCapacity is spec.md §8 invariant 3: the
// sum of cached entry sizes never exceeds CS_CAPACITY_BYTES.
func TestCSByteAccountingNeverExceedsCapacity(t *testing.T) {
	cfg := testCSConfig()
	cfg.Shards = 1 // force all entries through one eviction budget
	cs := NewContentStore(cfg)

	for i := 0; i < 50; i++ {
		name := "/data/" + string(rune('a'+i%26)) + "/" + string(rune('0'+i%10))
		d, wire := dataWithContent(t, name, time.Minute, 300)
		cs.Insert(d, wire)
		assert.LessOrEqual(t, cs.TotalBytes(), int64(cfg.CapacityBytes))
	}
}

func TestCSEvictsLeastRecentlyUsed(t *testing.T) {
	cfg := testCSConfig()
	cfg.Shards = 1
	cfg.CapacityBytes = 0 // set below after computing entry size
	d1, w1 := dataWithContent(t, "/x/1", time.Minute, 100)
	d2, w2 := dataWithContent(t, "/x/2", time.Minute, 100)
	d3, w3 := dataWithContent(t, "/x/3", time.Minute, 100)
	cfg.CapacityBytes = uint64(len(w1) + len(w2))
	cs := NewContentStore(cfg)

	cs.Insert(d1, w1)
	cs.Insert(d2, w2)
	// touch entry 1 so entry 2 becomes the LRU victim
	_, ok := cs.Lookup(mustName(t, "/x/1"), false)
	require.True(t, ok)

	cs.Insert(d3, w3)

	_, ok = cs.Lookup(mustName(t, "/x/2"), false)
	assert.False(t, ok, "entry 2 should have been evicted as least recently used")
	_, ok = cs.Lookup(mustName(t, "/x/1"), false)
	assert.True(t, ok, "entry 1 was recently touched and should survive")
	_, ok = cs.Lookup(mustName(t, "/x/3"), false)
	assert.True(t, ok)
}

func TestCSInvalidateRemovesPrefixMatches(t *testing.T) {
	cs := NewContentStore(testCSConfig())
	d1, w1 := dataWithContent(t, "/a/b/1", time.Minute, 10)
	d2, w2 := dataWithContent(t, "/a/b/2", time.Minute, 10)
	d3, w3 := dataWithContent(t, "/a/c/1", time.Minute, 10)
	cs.Insert(d1, w1)
	cs.Insert(d2, w2)
	cs.Insert(d3, w3)

	removed := cs.Invalidate(mustName(t, "/a/b"))
	assert.Equal(t, 2, removed)

	_, ok := cs.Lookup(mustName(t, "/a/c/1"), false)
	assert.True(t, ok)
}

func TestCSServeDisabledAlwaysMisses(t *testing.T) {
	cs := NewContentStore(testCSConfig())
	d, wire := dataWithContent(t, "/a/b", time.Minute, 10)
	cs.Insert(d, wire)
	cs.SetServe(false)

	_, ok := cs.Lookup(mustName(t, "/a/b"), false)
	assert.False(t, ok)
}

func TestCSAdmitDisabledDropsInserts(t *testing.T) {
	cs := NewContentStore(testCSConfig())
	cs.SetAdmit(false)
	d, wire := dataWithContent(t, "/a/b", time.Minute, 10)
	cs.Insert(d, wire)

	_, ok := cs.Lookup(mustName(t, "/a/b"), false)
	assert.False(t, ok)
}
