package mgmt

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/ndnfw/ndnfw/internal/core"
	"github.com/ndnfw/ndnfw/pkg/defn"
	"github.com/ndnfw/ndnfw/pkg/face"
	"github.com/ndnfw/ndnfw/pkg/fastpath"
	"github.com/ndnfw/ndnfw/pkg/forwarder"
	"github.com/ndnfw/ndnfw/pkg/metrics"
	"github.com/ndnfw/ndnfw/pkg/mtu"
	"github.com/ndnfw/ndnfw/pkg/strategy"
	"github.com/ndnfw/ndnfw/pkg/table"
	"github.com/ndnfw/ndnfw/pkg/tlv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*Server, *table.ContentStore, *table.FIB, *fastpath.Classifier) {
	t.Helper()
	cs := table.NewContentStore(core.CSConfig{CapacityBytes: 1 << 20, MaxEntryBytes: 8192, MaxEntries: 1000, MaxTTL: time.Hour, Shards: 4})
	pit := table.NewPIT(core.PITConfig{Capacity: 64, Shards: 4})
	fib := table.NewFIB()
	faces := face.NewTable()
	counters := metrics.NewCounters(1)
	events := metrics.NewEventRing(1<<16, counters)
	dispatch := forwarder.NewThread(0, forwarder.Deps{CS: cs, PIT: pit, FIB: fib, Strategy: strategy.BestRoute{}, Faces: faces, Counters: counters, Events: events})
	classifier := fastpath.NewClassifier(fastpath.DefaultConfig(), cs, pit)

	registry, err := NewRegistry(filepath.Join(t.TempDir(), "registry.sqlite3"))
	require.NoError(t, err)
	t.Cleanup(func() { registry.Close() })

	srv := NewServer(Deps{
		FIB: fib, CS: cs, PIT: pit, Faces: faces, Counters: counters,
		Dispatch: dispatch, Classifier: classifier,
		MTU:      mtu.NewControlLoop(mtu.DefaultConfig(), fakeMTUPredictor{}),
		Registry: registry,
	})
	return srv, cs, fib, classifier
}

type fakeMTUPredictor struct{}

func (fakeMTUPredictor) SubmitMtuFeatures(_ context.Context, _ uint64, _ mtu.Features) (int, error) {
	return 0, nil
}

func dialTestServer(t *testing.T, srv *Server) *websocket.Conn {
	t.Helper()
	hs := httptest.NewServer(http.HandlerFunc(srv.ServeHTTP))
	t.Cleanup(hs.Close)

	url := "ws" + strings.TrimPrefix(hs.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func roundTrip(t *testing.T, conn *websocket.Conn, id uint64, kind RequestKind, params any) Response {
	t.Helper()
	require.NoError(t, conn.WriteJSON(Request{ID: id, Kind: kind, Params: params}))
	var resp Response
	require.NoError(t, conn.ReadJSON(&resp))
	return resp
}

func TestGetStateReportsFaceAndConnectionCounts(t *testing.T) {
	srv, _, _, _ := newTestServer(t)
	conn := dialTestServer(t, srv)

	resp := roundTrip(t, conn, 1, KindGetState, nil)
	require.True(t, resp.OK)

	var state StateSnapshot
	b, _ := json.Marshal(resp.Data)
	require.NoError(t, json.Unmarshal(b, &state))
	assert.Equal(t, 1, state.Connections)
	assert.Equal(t, 1, state.Faces, "the client's own loopback face is registered")
}

func TestSendInterestNoRouteReturnsNack(t *testing.T) {
	srv, _, _, _ := newTestServer(t)
	conn := dialTestServer(t, srv)

	resp := roundTrip(t, conn, 1, KindSendInterest, SendInterestParams{Name: "/no/route", Lifetime: time.Second})
	require.True(t, resp.OK)

	var result SendInterestResult
	b, _ := json.Marshal(resp.Data)
	require.NoError(t, json.Unmarshal(b, &result))
	assert.Equal(t, OutcomeNack, result.Outcome)
	assert.Equal(t, tlv.NackNoRoute.String(), result.NackReason)
}

func TestSendInterestCSHitReturnsData(t *testing.T) {
	srv, cs, _, _ := newTestServer(t)
	name, err := tlv.NameFromStr("/a/b")
	require.NoError(t, err)
	d := &tlv.Data{Name: name, Freshness: 10 * time.Second, Content: []byte("hello")}
	cs.Insert(d, tlv.EncodeData(d))

	conn := dialTestServer(t, srv)
	resp := roundTrip(t, conn, 1, KindSendInterest, SendInterestParams{Name: "/a/b", Lifetime: time.Second})
	require.True(t, resp.OK)

	var result SendInterestResult
	b, _ := json.Marshal(resp.Data)
	require.NoError(t, json.Unmarshal(b, &result))
	assert.Equal(t, OutcomeData, result.Outcome)
	assert.Equal(t, []byte("hello"), result.Content)
}

func TestRegisterPrefixInstallsFIBRouteAndPersists(t *testing.T) {
	srv, _, fib, _ := newTestServer(t)
	conn := dialTestServer(t, srv)

	resp := roundTrip(t, conn, 1, KindRegisterPrefix, RegisterPrefixParams{Prefix: "/x", FaceID: defn.FaceID(7), Cost: 5})
	require.True(t, resp.OK)

	name, _ := tlv.NameFromStr("/x/y")
	hop, err := fib.Lookup(name, defn.InvalidFaceID)
	require.NoError(t, err)
	assert.Equal(t, defn.FaceID(7), hop)

	routes, err := srv.deps.Registry.LoadRoutes()
	require.NoError(t, err)
	require.Len(t, routes, 1)
	assert.Equal(t, "/x", routes[0].Prefix)
}

func TestUnregisterPrefixRemovesRoute(t *testing.T) {
	srv, _, fib, _ := newTestServer(t)
	conn := dialTestServer(t, srv)

	roundTrip(t, conn, 1, KindRegisterPrefix, RegisterPrefixParams{Prefix: "/x", FaceID: defn.FaceID(7), Cost: 5})
	resp := roundTrip(t, conn, 2, KindUnregisterPrefix, UnregisterPrefixParams{Prefix: "/x", FaceID: defn.FaceID(7)})
	require.True(t, resp.OK)

	name, _ := tlv.NameFromStr("/x/y")
	_, err := fib.Lookup(name, defn.InvalidFaceID)
	assert.Error(t, err)
}

func TestConfigureFastPathAppliesLive(t *testing.T) {
	srv, _, _, classifier := newTestServer(t)
	conn := dialTestServer(t, srv)

	resp := roundTrip(t, conn, 1, KindConfigureFastPath, ConfigureFastPathParams{CSBytes: 4096, FallbackPct: 50})
	require.True(t, resp.OK)

	cfg := classifier.Config()
	assert.Equal(t, 4096, cfg.ResponseBytes)
	assert.Equal(t, 500, cfg.SlowPathSampleOutOf1000)
}

func TestConfigureFastPathFormAppliesLive(t *testing.T) {
	srv, _, _, classifier := newTestServer(t)
	hs := httptest.NewServer(http.HandlerFunc(srv.ConfigureFastPathForm))
	t.Cleanup(hs.Close)

	form := url.Values{
		"enabled":      {"true"},
		"cs_bytes":     {"2048"},
		"ttl_sec":      {"30"},
		"fallback_pct": {"75"},
		"hash_algo":    {"xxhash"},
	}
	resp, err := http.PostForm(hs.URL, form)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	cfg := classifier.Config()
	assert.Equal(t, 2048, cfg.ResponseBytes)
	assert.Equal(t, 750, cfg.SlowPathSampleOutOf1000)
}

func TestReplayRoutesInstallsPersistedFIBEntries(t *testing.T) {
	srv, _, fib, _ := newTestServer(t)
	require.NoError(t, srv.deps.Registry.SaveRoute("/p", defn.FaceID(3), 1))

	require.NoError(t, srv.ReplayRoutes())

	name, _ := tlv.NameFromStr("/p/q")
	hop, err := fib.Lookup(name, defn.InvalidFaceID)
	require.NoError(t, err)
	assert.Equal(t, defn.FaceID(3), hop)
}
