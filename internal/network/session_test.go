package network

import (
	"context"
	"errors"
	"net"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cloudflare/circl/group"
	"github.com/stretchr/testify/require"

	"sigmakit/internal/codec"
	"sigmakit/internal/metrics"
	"sigmakit/internal/proto"
	"sigmakit/internal/sigma"
	"sigmakit/internal/store"
	"sigmakit/internal/testutil"
	"sigmakit/internal/zk/dlog"
)

func dlogStatement(t *testing.T, seed string) (*dlog.Statement, dlog.Witness) {
	t.Helper()
	g := group.Ristretto255
	rnd := testutil.NewReader(seed)
	return dlog.NewStatement(g.Generator(), testutil.Scalar(g, rnd))
}

func testClient() *Client {
	lim := codec.DefaultLimits()
	return &Client{limits: lim, caps: proto.CapsFor(lim.MaxBytes), metrics: metrics.New()}
}

type sessionResult struct {
	h   metrics.SessionHeader
	err error
}

// pipeSession runs one verifier session against one prover run over an
// in-memory pipe.
func pipeSession(t *testing.T, srv *Server, name string, p sigma.Protocol, ci sigma.CommonInput, si sigma.SecretInput) (Verdict, sessionResult, error) {
	t.Helper()
	sc, cc := net.Pipe()
	defer sc.Close()
	defer cc.Close()
	done := make(chan sessionResult, 1)
	go func() {
		h, err := srv.session(sc)
		done <- sessionResult{h, err}
	}()
	v, err := testClient().run(cc, name, p, ci, si, testutil.NewReader(t.Name()+"/prover"))
	if err != nil {
		// unblock a server still waiting on the prover
		cc.Close()
	}
	select {
	case res := <-done:
		return v, res, err
	case <-time.After(5 * time.Second):
		t.Fatalf("verifier session did not finish")
		return v, sessionResult{}, err
	}
}

func TestSessionAcceptsValidProof(t *testing.T) {
	st, w := dlogStatement(t, "accept")
	srv := NewServer(map[string]Statement{
		"dlog": {Protocol: dlog.Protocol{}, Input: st},
	}, WithRand(testutil.NewReader("verifier")))
	v, res, err := pipeSession(t, srv, "dlog", dlog.Protocol{}, st, w)
	require.NoError(t, err)
	require.NoError(t, res.err)
	require.True(t, v.Accepted)
	require.True(t, res.h.Accepted)
	require.Equal(t, res.h.Fingerprint, v.Fingerprint)
	require.Len(t, v.Fingerprint, 24)
}

func TestSessionRejectsWrongWitness(t *testing.T) {
	st, _ := dlogStatement(t, "reject")
	_, wrong := dlogStatement(t, "other")
	srv := NewServer(map[string]Statement{
		"dlog": {Protocol: dlog.Protocol{}, Input: st},
	}, WithRand(testutil.NewReader("verifier")))
	v, res, err := pipeSession(t, srv, "dlog", dlog.Protocol{}, st, wrong)
	require.NoError(t, err)
	require.NoError(t, res.err)
	require.False(t, v.Accepted)
	require.False(t, res.h.Accepted)
}

func TestSessionUnknownStatement(t *testing.T) {
	st, w := dlogStatement(t, "unknown")
	srv := NewServer(map[string]Statement{}, WithRand(testutil.NewReader("verifier")))
	_, res, err := pipeSession(t, srv, "dlog", dlog.Protocol{}, st, w)
	require.True(t, errors.Is(err, ErrRefused), "got %v", err)
	require.Error(t, res.err)
}

func TestSessionRefusalFitsVerdictFrame(t *testing.T) {
	st, w := dlogStatement(t, "long-name")
	srv := NewServer(map[string]Statement{}, WithRand(testutil.NewReader("verifier")))
	_, res, err := pipeSession(t, srv, strings.Repeat("x", proto.MaxVerdictSize+1), dlog.Protocol{}, st, w)
	require.True(t, errors.Is(err, ErrRefused), "got %v", err)
	require.Error(t, res.err)
}

func TestSessionDelegateProtocol(t *testing.T) {
	g := group.Ristretto255
	rnd := testutil.NewReader(t.Name())
	st, w := dlog.NewEqualityStatement(g.Generator(), g.HashToElement([]byte("h"), []byte("sigmakit/test")), testutil.Scalar(g, rnd))
	p := dlog.NewEquality(g)
	srv := NewServer(map[string]Statement{"eq": {Protocol: p, Input: st}}, WithRand(testutil.NewReader("verifier")))
	v, res, err := pipeSession(t, srv, "eq", p, st, w)
	require.NoError(t, err)
	require.NoError(t, res.err)
	require.True(t, v.Accepted)
}

func TestSessionIsArchived(t *testing.T) {
	st, w := dlogStatement(t, "archive")
	archive := store.New(filepath.Join(t.TempDir(), "verdicts.jsonl"))
	srv := NewServer(map[string]Statement{
		"dlog": {Protocol: dlog.Protocol{}, Input: st},
	}, WithRand(testutil.NewReader("verifier")), WithArchive(archive))
	v, res, err := pipeSession(t, srv, "dlog", dlog.Protocol{}, st, w)
	require.NoError(t, err)
	require.NoError(t, res.err)

	rec, err := archive.Find(v.SessionID)
	require.NoError(t, err)
	require.NotNil(t, rec)
	require.Equal(t, "dlog", rec.Statement)
	require.True(t, rec.Accepted)
	require.Equal(t, v.Fingerprint, rec.Fingerprint)

	repr, err := codec.Unmarshal(rec.Transcript)
	require.NoError(t, err)
	tr, err := sigma.RestoreTranscript(dlog.Protocol{}, st, repr)
	require.NoError(t, err)
	ok, err := sigma.CheckTranscript(dlog.Protocol{}, st, tr)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestServerCountsSessions(t *testing.T) {
	st, w := dlogStatement(t, "count")
	m := metrics.New()
	srv := NewServer(map[string]Statement{
		"dlog": {Protocol: dlog.Protocol{}, Input: st},
	}, WithRand(testutil.NewReader("verifier")), WithMetrics(m))
	sc, cc := net.Pipe()
	done := make(chan struct{})
	go func() {
		srv.metrics.IncSessionStarted()
		h, err := srv.session(sc)
		if err == nil {
			srv.metrics.ObserveVerdict(h)
		}
		close(done)
	}()
	_, err := testClient().run(cc, "dlog", dlog.Protocol{}, st, w, testutil.NewReader("prover"))
	require.NoError(t, err)
	<-done
	snap := m.Snapshot()
	require.Equal(t, uint64(1), snap.Sessions.Started)
	require.Equal(t, uint64(1), snap.Sessions.Accepted)
	require.Len(t, snap.Recent, 1)
	require.Equal(t, "dlog", snap.Recent[0].Statement)
}

func TestQUICRoundTrip(t *testing.T) {
	st, w := dlogStatement(t, "quic")
	srv := NewServer(map[string]Statement{
		"dlog": {Protocol: dlog.Protocol{}, Input: st},
	}, WithTimeout(5*time.Second))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ready := make(chan string, 1)
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe(ctx, "127.0.0.1:0", ready) }()
	var addr string
	select {
	case addr = <-ready:
	case err := <-errCh:
		t.Skipf("udp listen unavailable: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatalf("listener not ready")
	}

	client, err := NewClient(false, "", codec.DefaultLimits(), nil)
	require.NoError(t, err)
	defer client.Close()
	for i := 0; i < 2; i++ {
		v, err := client.Prove(ctx, addr, "dlog", dlog.Protocol{}, st, w, testutil.NewReader(t.Name()))
		require.NoError(t, err)
		require.True(t, v.Accepted)
	}
	require.Equal(t, uint64(2), client.metrics.Snapshot().Prover.Proofs)
}
