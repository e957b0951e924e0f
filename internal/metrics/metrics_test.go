package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsCounters(t *testing.T) {
	m := New()
	m.IncSessionStarted()
	m.IncSessionStarted()
	m.ObserveVerdict(SessionHeader{Statement: "or", Accepted: true})
	m.ObserveVerdict(SessionHeader{Statement: "or", Accepted: false})
	m.IncDropMalformed()
	m.IncDropTimeout()
	m.IncProofs()
	m.IncSimulated()
	m.IncSimulated()
	snap := m.Snapshot()
	if snap.Sessions.Started != 2 {
		t.Fatalf("expected started=2, got %d", snap.Sessions.Started)
	}
	if snap.Sessions.Accepted != 1 || snap.Sessions.Rejected != 1 {
		t.Fatalf("unexpected verdict counts: %+v", snap.Sessions)
	}
	if snap.Sessions.DropMalformed != 1 || snap.Sessions.DropTimeout != 1 {
		t.Fatalf("unexpected drop counts: %+v", snap.Sessions)
	}
	if snap.Prover.Proofs != 1 || snap.Prover.Simulated != 2 {
		t.Fatalf("unexpected prover counts: %+v", snap.Prover)
	}
	if len(snap.Recent) != 2 || !snap.Recent[0].Accepted || snap.Recent[1].Accepted {
		t.Fatalf("unexpected recent list: %+v", snap.Recent)
	}
}

func TestRecentIsBounded(t *testing.T) {
	r := NewSessionRecent(2)
	r.Add(SessionHeader{Fingerprint: "a"})
	r.Add(SessionHeader{Fingerprint: "b"})
	r.Add(SessionHeader{Fingerprint: "c"})
	got := r.List()
	if len(got) != 2 || got[0].Fingerprint != "b" || got[1].Fingerprint != "c" {
		t.Fatalf("unexpected ring contents: %+v", got)
	}
}

func TestPrometheusExport(t *testing.T) {
	m := New()
	reg := prometheus.NewRegistry()
	if err := m.Register(reg); err != nil {
		t.Fatalf("register: %v", err)
	}
	m.ObserveVerdict(SessionHeader{Accepted: true})
	m.ObserveVerdict(SessionHeader{Accepted: true})
	if n := testutil.CollectAndCount(reg); n != 7 {
		t.Fatalf("expected 7 series, got %d", n)
	}
	cs := m.Collectors()
	if v := testutil.ToFloat64(cs[1]); v != 2 {
		t.Fatalf("expected accepted=2, got %v", v)
	}
}
