package network

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	quic "github.com/quic-go/quic-go"
	log "github.com/sirupsen/logrus"

	"sigmakit/internal/codec"
	"sigmakit/internal/crypto"
	"sigmakit/internal/debuglog"
	"sigmakit/internal/metrics"
	"sigmakit/internal/proto"
	"sigmakit/internal/sigma"
	"sigmakit/internal/store"
)

// Statement is one proof a verifier accepts, addressed by name in the
// announce message.
type Statement struct {
	Protocol sigma.Protocol
	Input    sigma.CommonInput
}

// Server is the verifier side of interactive sessions. Each QUIC stream
// carries exactly one three-move run.
type Server struct {
	statements map[string]Statement
	limits     codec.Limits
	caps       proto.Caps
	metrics    *metrics.Metrics
	rnd        io.Reader
	limiter    *ipLimiter
	timeout    time.Duration
	archive    *store.Store
}

type ServerOption func(*Server)

// WithArchive records every decided session, with its transcript, in st.
func WithArchive(st *store.Store) ServerOption {
	return func(s *Server) { s.archive = st }
}

// WithRand replaces crypto/rand as the challenge source.
func WithRand(r io.Reader) ServerOption {
	return func(s *Server) { s.rnd = &lockedReader{r: r} }
}

func WithLimits(l codec.Limits) ServerOption {
	return func(s *Server) { s.limits = l }
}

func WithMetrics(m *metrics.Metrics) ServerOption {
	return func(s *Server) { s.metrics = m }
}

func WithTimeout(d time.Duration) ServerOption {
	return func(s *Server) { s.timeout = d }
}

// WithIPCaps bounds connections and concurrent sessions per remote IP.
func WithIPCaps(conns, sessions int) ServerOption {
	return func(s *Server) { s.limiter = newIPLimiter(conns, sessions) }
}

func NewServer(statements map[string]Statement, opts ...ServerOption) *Server {
	s := &Server{
		statements: statements,
		limits:     codec.DefaultLimits(),
		metrics:    metrics.New(),
		rnd:        rand.Reader,
		limiter:    newIPLimiter(8, 32),
		timeout:    sessionTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.caps = proto.CapsFor(s.limits.MaxBytes)
	return s
}

func (s *Server) Metrics() *metrics.Metrics {
	return s.metrics
}

// ListenAndServe accepts sessions until ctx is done. The bound address is sent
// on ready once the listener is up.
func (s *Server) ListenAndServe(ctx context.Context, addr string, ready chan<- string) error {
	tlsConf, err := serverTLSConfig()
	if err != nil {
		return err
	}
	listener, err := quic.ListenAddr(addr, tlsConf, nil)
	if err != nil {
		debuglog.Logger().WithError(err).Error("quic listen failed")
		return err
	}
	defer listener.Close()
	debuglog.WithFields(log.Fields{"addr": listener.Addr().String(), "statements": len(s.statements)}).Info("quic listen ready")
	if ready != nil {
		ready <- listener.Addr().String()
		close(ready)
	}
	for {
		conn, err := listener.Accept(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		go s.serveConn(ctx, conn)
	}
}

func (s *Server) serveConn(ctx context.Context, conn *quic.Conn) {
	ip := remoteIP(conn.RemoteAddr())
	if !s.limiter.acquireConn(ip) {
		debuglog.RateLimitedf("conncap:"+ip, time.Minute, "quic conn cap reached ip=%s", ip)
		_ = conn.CloseWithError(1, "too many connections")
		return
	}
	defer s.limiter.releaseConn(ip)
	for {
		stream, err := conn.AcceptStream(ctx)
		if err != nil {
			debuglog.Debugf("quic accept stream ip=%s: %v", ip, err)
			return
		}
		if !s.limiter.acquireSession(ip) {
			stream.CancelRead(1)
			_ = stream.Close()
			continue
		}
		go func(st *quic.Stream) {
			defer s.limiter.releaseSession(ip)
			s.serveStream(st)
		}(stream)
	}
}

func (s *Server) serveStream(st *quic.Stream) {
	defer st.Close()
	_ = st.SetDeadline(time.Now().Add(s.timeout))
	s.metrics.IncSessionStarted()
	h, err := s.session(st)
	switch {
	case err == nil:
		s.metrics.ObserveVerdict(h)
		debuglog.WithFields(log.Fields{
			"statement":   h.Statement,
			"fingerprint": h.Fingerprint,
			"accepted":    h.Accepted,
		}).Info("session finished")
	case isTimeout(err):
		s.metrics.IncDropTimeout()
		debuglog.Debugf("session timeout: %v", err)
	default:
		s.metrics.IncDropMalformed()
		debuglog.WithFields(log.Fields{"statement": h.Statement}).WithError(err).Warn("session dropped")
	}
}

// session runs the verifier moves on one stream. A returned error means the
// run was abandoned; a rejected proof is a header with Accepted false.
func (s *Server) session(rw io.ReadWriter) (metrics.SessionHeader, error) {
	var h metrics.SessionHeader
	raw, err := s.caps.Read(rw)
	if err != nil {
		return h, err
	}
	am, err := proto.DecodeAnnounceMsg(raw)
	if err != nil {
		return h, err
	}
	h.Statement = am.Statement
	stmt, ok := s.statements[am.Statement]
	if !ok {
		err := fmt.Errorf("unknown statement %q", am.Statement)
		s.refuse(rw, am.SessionID, err)
		return h, err
	}
	aRepr, err := codec.UnmarshalWithLimits(am.Announcement, s.limits)
	if err != nil {
		s.refuse(rw, am.SessionID, err)
		return h, err
	}
	a, err := stmt.Protocol.RestoreAnnouncement(stmt.Input, aRepr)
	if err != nil {
		s.refuse(rw, am.SessionID, err)
		return h, err
	}

	vs := sigma.NewVerifierSession(stmt.Protocol, stmt.Input)
	c, err := vs.Challenge(s.rnd, a)
	if err != nil {
		return h, err
	}
	cRaw, err := codec.MarshalWithLimits(c.Repr(), s.limits)
	if err != nil {
		return h, err
	}
	payload, err := proto.EncodeChallengeMsg(proto.ChallengeMsg{SessionID: am.SessionID, Challenge: cRaw})
	if err != nil {
		return h, err
	}
	if err := s.caps.Write(rw, payload); err != nil {
		return h, err
	}

	raw, err = s.caps.Read(rw)
	if err != nil {
		return h, err
	}
	rm, err := proto.DecodeResponseMsg(raw)
	if err != nil {
		return h, err
	}
	if rm.SessionID != am.SessionID {
		return h, fmt.Errorf("%w: session id changed mid-run", sigma.ErrMalformed)
	}
	rRepr, err := codec.UnmarshalWithLimits(rm.Response, s.limits)
	if err != nil {
		s.refuse(rw, am.SessionID, err)
		return h, err
	}
	resp, err := stmt.Protocol.RestoreResponse(stmt.Input, a, c, rRepr)
	if err != nil {
		s.refuse(rw, am.SessionID, err)
		return h, err
	}
	accepted, err := vs.Verify(resp)
	if err != nil {
		s.refuse(rw, am.SessionID, err)
		return h, err
	}
	h.Accepted = accepted
	full, fp, err := encodeTranscript(am.Statement, vs.Transcript(), s.limits)
	if err != nil {
		return h, err
	}
	h.Fingerprint = fp
	s.record(am.SessionID, h, full)
	payload, err = proto.EncodeVerdictMsg(proto.VerdictMsg{
		SessionID:   am.SessionID,
		Accepted:    accepted,
		Fingerprint: h.Fingerprint,
	})
	if err != nil {
		return h, err
	}
	return h, s.caps.Write(rw, payload)
}

func (s *Server) record(sessionID string, h metrics.SessionHeader, transcript []byte) {
	if s.archive == nil {
		return
	}
	wrote, err := s.archive.AppendIfNew(store.Record{
		SessionID:   sessionID,
		Statement:   h.Statement,
		Accepted:    h.Accepted,
		Fingerprint: h.Fingerprint,
		Transcript:  transcript,
		DecidedAt:   time.Now().UTC(),
	})
	if err != nil {
		debuglog.Logger().WithError(err).WithField("session", sessionID).Error("archive append failed")
		return
	}
	if !wrote {
		debuglog.Debugf("session %s already archived", sessionID)
	}
}

// refuse tells the prover why its run was dropped. Delivery is best effort.
func (s *Server) refuse(w io.Writer, sessionID string, cause error) {
	msg := cause.Error()
	if len(msg) > maxRefusal {
		msg = msg[:maxRefusal]
	}
	payload, err := proto.EncodeVerdictMsg(proto.VerdictMsg{SessionID: sessionID, Error: msg})
	if err != nil {
		return
	}
	_ = s.caps.Write(w, payload)
}

// encodeTranscript returns the encoded transcript and the fingerprint both
// sides compare at the end of a run.
func encodeTranscript(statement string, t *sigma.Transcript, lim codec.Limits) ([]byte, string, error) {
	b, err := codec.MarshalWithLimits(t.Repr(), lim)
	if err != nil {
		return nil, "", err
	}
	return b, crypto.Fingerprint(statement, b), nil
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func remoteIP(addr net.Addr) string {
	if addr == nil {
		return ""
	}
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String()
	}
	return host
}

// lockedReader serialises reads so one deterministic source can serve
// concurrent sessions.
type lockedReader struct {
	mu sync.Mutex
	r  io.Reader
}

func (l *lockedReader) Read(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Read(p)
}
