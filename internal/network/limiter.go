package network

import "sync"

// slots counts holders per key. A non-positive max disables the cap.
type slots struct {
	max    int
	counts map[string]int
}

func (s *slots) acquire(key string) bool {
	if s.max <= 0 {
		return true
	}
	if s.counts[key] >= s.max {
		return false
	}
	s.counts[key]++
	return true
}

func (s *slots) release(key string) {
	if s.max <= 0 {
		return
	}
	if s.counts[key] <= 1 {
		delete(s.counts, key)
		return
	}
	s.counts[key]--
}

// ipLimiter caps connections and concurrent verifier sessions per remote IP.
type ipLimiter struct {
	mu       sync.Mutex
	conns    slots
	sessions slots
}

func newIPLimiter(maxConns, maxSessions int) *ipLimiter {
	return &ipLimiter{
		conns:    slots{max: maxConns, counts: make(map[string]int)},
		sessions: slots{max: maxSessions, counts: make(map[string]int)},
	}
}

func (l *ipLimiter) acquireConn(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.conns.acquire(ip)
}

func (l *ipLimiter) releaseConn(ip string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.conns.release(ip)
}

func (l *ipLimiter) acquireSession(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sessions.acquire(ip)
}

func (l *ipLimiter) releaseSession(ip string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sessions.release(ip)
}
