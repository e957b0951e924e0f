package metrics

import (
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
)

// SessionHeader records one finished verifier session.
type SessionHeader struct {
	Statement   string `json:"statement"`
	Fingerprint string `json:"fingerprint"`
	Accepted    bool   `json:"accepted"`
}

type Snapshot struct {
	GeneratedAt time.Time       `json:"generated_at"`
	Sessions    SessionMetrics  `json:"sessions"`
	Prover      ProverMetrics   `json:"prover"`
	Recent      []SessionHeader `json:"recent"`
}

type SessionMetrics struct {
	Started       uint64 `json:"started"`
	Accepted      uint64 `json:"accepted"`
	Rejected      uint64 `json:"rejected"`
	DropMalformed uint64 `json:"drop_malformed"`
	DropTimeout   uint64 `json:"drop_timeout"`
}

type ProverMetrics struct {
	Proofs    uint64 `json:"proofs"`
	Simulated uint64 `json:"simulated"`
}

type Metrics struct {
	sessionsStarted  atomic.Uint64
	sessionsAccepted atomic.Uint64
	sessionsRejected atomic.Uint64
	dropMalformed    atomic.Uint64
	dropTimeout      atomic.Uint64
	proofs           atomic.Uint64
	simulated        atomic.Uint64
	recent           *SessionRecent
}

func New() *Metrics {
	return &Metrics{recent: NewSessionRecent(64)}
}

func (m *Metrics) Recent() *SessionRecent {
	return m.recent
}

func (m *Metrics) IncSessionStarted() {
	m.sessionsStarted.Add(1)
}

// ObserveVerdict counts a completed session and remembers its header.
func (m *Metrics) ObserveVerdict(h SessionHeader) {
	if h.Accepted {
		m.sessionsAccepted.Add(1)
	} else {
		m.sessionsRejected.Add(1)
	}
	m.recent.Add(h)
}

func (m *Metrics) IncDropMalformed() {
	m.dropMalformed.Add(1)
}

func (m *Metrics) IncDropTimeout() {
	m.dropTimeout.Add(1)
}

func (m *Metrics) IncProofs() {
	m.proofs.Add(1)
}

func (m *Metrics) IncSimulated() {
	m.simulated.Add(1)
}

func (m *Metrics) Snapshot() Snapshot {
	recent := []SessionHeader{}
	if m.recent != nil {
		recent = m.recent.List()
	}
	return Snapshot{
		GeneratedAt: time.Now().UTC(),
		Sessions: SessionMetrics{
			Started:       m.sessionsStarted.Load(),
			Accepted:      m.sessionsAccepted.Load(),
			Rejected:      m.sessionsRejected.Load(),
			DropMalformed: m.dropMalformed.Load(),
			DropTimeout:   m.dropTimeout.Load(),
		},
		Prover: ProverMetrics{
			Proofs:    m.proofs.Load(),
			Simulated: m.simulated.Load(),
		},
		Recent: recent,
	}
}

func (m *Metrics) WriteSnapshot(path string) error {
	if path == "" {
		return nil
	}
	snap := m.Snapshot()
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// Collectors exposes the counters to a prometheus registry. The atomics stay
// the source of truth; the collectors read them on scrape.
func (m *Metrics) Collectors() []prometheus.Collector {
	counter := func(name, help string, v *atomic.Uint64) prometheus.Collector {
		return prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: "sigma",
			Name:      name,
			Help:      help,
		}, func() float64 { return float64(v.Load()) })
	}
	return []prometheus.Collector{
		counter("sessions_started_total", "Verifier sessions started.", &m.sessionsStarted),
		counter("sessions_accepted_total", "Verifier sessions that accepted the proof.", &m.sessionsAccepted),
		counter("sessions_rejected_total", "Verifier sessions that rejected the proof.", &m.sessionsRejected),
		counter("sessions_drop_malformed_total", "Sessions dropped on a malformed message.", &m.dropMalformed),
		counter("sessions_drop_timeout_total", "Sessions dropped on timeout.", &m.dropTimeout),
		counter("proofs_total", "Prover runs with a real witness.", &m.proofs),
		counter("simulated_total", "Simulated transcripts produced.", &m.simulated),
	}
}

// Register adds the collectors to reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range m.Collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

type SessionRecent struct {
	mu   sync.Mutex
	cap  int
	list []SessionHeader
}

func NewSessionRecent(capacity int) *SessionRecent {
	if capacity <= 0 {
		capacity = 64
	}
	return &SessionRecent{cap: capacity}
}

func (r *SessionRecent) Add(h SessionHeader) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.list) >= r.cap {
		copy(r.list, r.list[1:])
		r.list[len(r.list)-1] = h
		return
	}
	r.list = append(r.list, h)
}

func (r *SessionRecent) List() []SessionHeader {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]SessionHeader, len(r.list))
	copy(out, r.list)
	return out
}
