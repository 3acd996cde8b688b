package tlv

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustName(t *testing.T, s string) Name {
	t.Helper()
	n, err := NameFromStr(s)
	require.NoError(t, err)
	return n
}

// TestInterestRoundTrip covers spec.md §8 invariant 1 for Interest packets.
func TestInterestRoundTrip(t *testing.T) {
	i := &Interest{
		Name:        mustName(t, "/a/b/c"),
		HasNonce:    true,
		Nonce:       0xdeadbeef,
		Lifetime:    6 * time.Second,
		CanBePrefix: true,
		MustBeFresh: true,
		HasHopLimit: true,
		HopLimit:    7,
	}
	wire := EncodeInterest(i)
	got, err := ParseInterest(wire)
	require.NoError(t, err)

	assert.True(t, got.Name.Equal(i.Name))
	assert.Equal(t, i.Nonce, got.Nonce)
	assert.Equal(t, i.Lifetime, got.Lifetime)
	assert.True(t, got.CanBePrefix)
	assert.True(t, got.MustBeFresh)
	assert.Equal(t, i.HopLimit, got.HopLimit)
}

func TestInterestRequiresNonce(t *testing.T) {
	i := &Interest{Name: mustName(t, "/x"), Lifetime: time.Second}
	wire := EncodeInterest(i)
	_, err := ParseInterest(wire)
	assert.ErrorIs(t, err, ErrMissingField)
}

func TestInterestLifetimeClampedToMax(t *testing.T) {
	i := &Interest{
		Name:     mustName(t, "/x"),
		HasNonce: true,
		Nonce:    1,
		Lifetime: 2 * time.Minute,
	}
	wire := EncodeInterest(i)
	got, err := ParseInterest(wire)
	require.NoError(t, err)
	assert.Equal(t, MaxLifetime, got.Lifetime)
}

// TestDataRoundTrip covers spec.md §8 invariant 1 for Data packets.
func TestDataRoundTrip(t *testing.T) {
	d := &Data{
		Name:        mustName(t, "/a/x"),
		ContentType: 0,
		Freshness:   10 * time.Second,
		Content:     []byte("hello world"),
	}
	wire := EncodeData(d)
	got, err := ParseData(wire)
	require.NoError(t, err)

	assert.True(t, got.Name.Equal(d.Name))
	assert.Equal(t, d.Freshness, got.Freshness)
	assert.Equal(t, d.Content, got.Content)
	assert.True(t, got.Fresh())
}

func TestDataZeroFreshnessIsStaleImmediately(t *testing.T) {
	d := &Data{Name: mustName(t, "/a"), Content: []byte("x")}
	wire := EncodeData(d)
	got, err := ParseData(wire)
	require.NoError(t, err)
	assert.False(t, got.Fresh())
}

func TestDataContentOverSegmentCapIsRejected(t *testing.T) {
	d := &Data{
		Name:      mustName(t, "/a/oversize"),
		Freshness: time.Second,
		Content:   make([]byte, MaxSegmentContent+1),
	}
	wire := EncodeData(d)
	_, err := ParseData(wire)
	assert.ErrorIs(t, err, ErrContentTooLarge)
}

func TestNackRoundTrip(t *testing.T) {
	n := &Nack{Name: mustName(t, "/a/b"), Reason: NackNoRoute}
	wire := EncodeNack(n)
	got, err := ParseNack(wire)
	require.NoError(t, err)
	assert.True(t, got.Name.Equal(n.Name))
	assert.Equal(t, NackNoRoute, got.Reason)
}

func TestPeekKind(t *testing.T) {
	i := &Interest{Name: mustName(t, "/a"), HasNonce: true, Nonce: 1}
	d := &Data{Name: mustName(t, "/a")}
	n := &Nack{Name: mustName(t, "/a")}

	assert.Equal(t, KindInterest, PeekKind(EncodeInterest(i)))
	assert.Equal(t, KindData, PeekKind(EncodeData(d)))
	assert.Equal(t, KindNack, PeekKind(EncodeNack(n)))
	assert.Equal(t, KindUnknown, PeekKind(nil))
	assert.Equal(t, KindUnknown, PeekKind([]byte{0x99}))
}

// TestParseNeverPanics covers spec.md §8 invariant 2 (codec safety): fuzzed
// byte strings either parse or return a typed error, never panic and never
// read out of bounds (caught by the race/bounds-checked Go runtime itself
// under `go test -race`).
func TestParseNeverPanics(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 20000; i++ {
		n := rng.Intn(128)
		buf := make([]byte, n)
		rng.Read(buf)

		assert.NotPanics(t, func() {
			_, _ = ParseInterest(buf)
			_, _ = ParseData(buf)
			_, _ = ParseNack(buf)
			_ = PeekKind(buf)
		})
	}
}

func TestParseTruncatedLengthIsError(t *testing.T) {
	// Type 0x05 (Interest), length byte claims 0xFD (2-byte length) but the
	// buffer ends right there.
	buf := []byte{0x05, 0xfd}
	_, err := ParseInterest(buf)
	require.Error(t, err)
}

func TestNameComparisonAndPrefix(t *testing.T) {
	a := mustName(t, "/a/b")
	ab := mustName(t, "/a/b/c")
	other := mustName(t, "/a/z")

	assert.True(t, a.IsPrefixOf(ab))
	assert.False(t, ab.IsPrefixOf(a))
	assert.True(t, a.Compare(other) < 0)
	assert.True(t, a.Equal(mustName(t, "/a/b")))
}

// TestNameBytesIsAByteLevelPrefixForExtensions guards the property
// pkg/repo's flat BadgerDB keying depends on: unlike Encode() (whose outer
// length field varies with the name), Bytes() of a prefix name is a true
// byte-slice prefix of Bytes() of any of its extensions.
func TestNameBytesIsAByteLevelPrefixForExtensions(t *testing.T) {
	prefix := mustName(t, "/a/b")
	ext := mustName(t, "/a/b/c")
	sibling := mustName(t, "/a/z")

	pb, eb, sb := prefix.Bytes(), ext.Bytes(), sibling.Bytes()

	require.True(t, len(pb) < len(eb))
	assert.Equal(t, pb, eb[:len(pb)])
	assert.NotEqual(t, pb, sb[:len(pb)])
}
