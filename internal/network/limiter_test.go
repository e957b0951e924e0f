package network

import "testing"

func TestIPLimiterConnCap(t *testing.T) {
	lim := newIPLimiter(1, 0)
	if !lim.acquireConn("1.2.3.4") {
		t.Fatalf("expected first conn acquire")
	}
	if lim.acquireConn("1.2.3.4") {
		t.Fatalf("expected conn cap")
	}
	lim.releaseConn("1.2.3.4")
	if !lim.acquireConn("1.2.3.4") {
		t.Fatalf("expected acquire after release")
	}
}

func TestIPLimiterSessionCap(t *testing.T) {
	lim := newIPLimiter(0, 2)
	if !lim.acquireSession("1.2.3.4") || !lim.acquireSession("1.2.3.4") {
		t.Fatalf("expected session acquire")
	}
	if lim.acquireSession("1.2.3.4") {
		t.Fatalf("expected session cap")
	}
	lim.releaseSession("1.2.3.4")
	if !lim.acquireSession("1.2.3.4") {
		t.Fatalf("expected acquire after release")
	}
}

func TestIPLimiterSeparateIPs(t *testing.T) {
	lim := newIPLimiter(1, 1)
	if !lim.acquireConn("1.2.3.4") || !lim.acquireConn("2.3.4.5") {
		t.Fatalf("expected separate ip conns")
	}
	if !lim.acquireSession("1.2.3.4") || !lim.acquireSession("2.3.4.5") {
		t.Fatalf("expected separate ip sessions")
	}
}

func TestIPLimiterUncapped(t *testing.T) {
	lim := newIPLimiter(0, 0)
	for i := 0; i < 10; i++ {
		if !lim.acquireConn("1.2.3.4") || !lim.acquireSession("1.2.3.4") {
			t.Fatalf("uncapped limiter refused at %d", i)
		}
	}
	lim.releaseConn("1.2.3.4")
}
