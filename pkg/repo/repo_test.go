package repo

import (
	"path/filepath"
	"testing"

	"github.com/ndnfw/ndnfw/pkg/tlv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustName(t *testing.T, s string) tlv.Name {
	t.Helper()
	n, err := tlv.NameFromStr(s)
	require.NoError(t, err)
	return n
}

func openTestArchive(t *testing.T) *Archive {
	t.Helper()
	a, err := Open(filepath.Join(t.TempDir(), "archive"))
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a
}

func TestArchiveMissReturnsFalse(t *testing.T) {
	a := openTestArchive(t)
	_, ok, err := a.Get(mustName(t, "/a/b"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestArchivePutThenGetRoundTrips(t *testing.T) {
	a := openTestArchive(t)
	name := mustName(t, "/a/b")
	require.NoError(t, a.Put(name, []byte("payload")))

	wire, ok, err := a.Get(name)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("payload"), wire)
}

func TestArchiveRemovePrefixDeletesAll(t *testing.T) {
	a := openTestArchive(t)
	require.NoError(t, a.Put(mustName(t, "/a/b/1"), []byte("x")))
	require.NoError(t, a.Put(mustName(t, "/a/b/2"), []byte("y")))
	require.NoError(t, a.Put(mustName(t, "/a/c"), []byte("z")))

	require.NoError(t, a.RemovePrefix(mustName(t, "/a/b")))

	_, ok, err := a.Get(mustName(t, "/a/b/1"))
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = a.Get(mustName(t, "/a/c"))
	require.NoError(t, err)
	assert.True(t, ok, "sibling prefix must survive")
}

func TestArchiveHasPrefix(t *testing.T) {
	a := openTestArchive(t)
	has, err := a.HasPrefix(mustName(t, "/a"))
	require.NoError(t, err)
	assert.False(t, has)

	require.NoError(t, a.Put(mustName(t, "/a/b"), []byte("x")))

	has, err = a.HasPrefix(mustName(t, "/a"))
	require.NoError(t, err)
	assert.True(t, has)
}
