package admin

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/require"

	"sigmakit/internal/metrics"
)

func TestIsLoopbackBind(t *testing.T) {
	cases := []struct {
		addr string
		ok   bool
	}{
		{addr: "127.0.0.1:9464", ok: true},
		{addr: "localhost:9464", ok: true},
		{addr: "[::1]:9464", ok: true},
		{addr: "0.0.0.0:9464", ok: false},
		{addr: "192.168.1.10:9464", ok: false},
		{addr: "bad-addr", ok: false},
	}
	for _, tc := range cases {
		if got := isLoopbackBind(tc.addr); got != tc.ok {
			t.Fatalf("isLoopbackBind(%q)=%v want %v", tc.addr, got, tc.ok)
		}
	}
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestRouter(t *testing.T) {
	m := metrics.New()
	m.IncSessionStarted()
	m.ObserveVerdict(metrics.SessionHeader{Statement: "dlog", Fingerprint: "ab", Accepted: true})
	router, err := NewRouter(m)
	require.NoError(t, err)

	rec := get(t, router, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "sigma_sessions_accepted_total 1")

	rec = get(t, router, "/snapshot")
	require.Equal(t, http.StatusOK, rec.Code)
	var snap metrics.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	require.EqualValues(t, 1, snap.Sessions.Started)
	require.Len(t, snap.Recent, 1)

	require.Equal(t, http.StatusNotFound, get(t, router, "/debug/pprof/").Code)
}

func TestRouterWithProfiler(t *testing.T) {
	t.Setenv("SIGMA_PPROF", "1")
	router, err := NewRouter(metrics.New())
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, get(t, router, "/debug/pprof/").Code)
}

func TestStart(t *testing.T) {
	_, err := Start("0.0.0.0:0", metrics.New())
	require.Error(t, err)

	s, err := Start("127.0.0.1:0", metrics.New())
	require.NoError(t, err)
	defer s.Close(context.Background())

	resp, err := http.Get("http://" + s.Addr() + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.True(t, strings.Contains(string(body), "sigma_proofs_total"))
}
