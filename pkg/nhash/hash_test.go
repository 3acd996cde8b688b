package nhash

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndnfw/ndnfw/pkg/tlv"
)

func mustName(t *testing.T, s string) tlv.Name {
	t.Helper()
	n, err := tlv.NameFromStr(s)
	require.NoError(t, err)
	return n
}

func TestHStableAcrossCalls(t *testing.T) {
	n := mustName(t, "/a/b/c")
	assert.Equal(t, H(n), H(n))
}

func TestHDiffersOnDifferentNames(t *testing.T) {
	a := mustName(t, "/a/b/c")
	b := mustName(t, "/a/b/d")
	assert.NotEqual(t, H(a), H(b))
}

func TestSeriesLongestPrefixAgreesWithH(t *testing.T) {
	full := mustName(t, "/a/b/c")
	prefix := mustName(t, "/a/b")

	series := NewSeries(full)
	assert.Equal(t, H(prefix), series.At(2))
	assert.Equal(t, H(full), series.At(3))
	assert.Equal(t, series.At(0), NewSeries(mustName(t, "/")).At(0))
}
