package network

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"

	log "github.com/sirupsen/logrus"

	"sigmakit/internal/codec"
	"sigmakit/internal/crypto"
	"sigmakit/internal/debuglog"
	"sigmakit/internal/metrics"
	"sigmakit/internal/proto"
	"sigmakit/internal/sigma"
)

var (
	// ErrRefused is returned when the verifier drops the run with a reason.
	ErrRefused = errors.New("verifier refused session")
	// ErrFingerprintMismatch means the verifier checked a different
	// transcript than the one the prover sent.
	ErrFingerprintMismatch = errors.New("transcript fingerprint mismatch")
)

// Verdict is the verifier's answer to one session.
type Verdict struct {
	SessionID   string
	Accepted    bool
	Fingerprint string
}

// Client is the prover side of interactive sessions.
type Client struct {
	pool    *clientPool
	tlsConf *tls.Config
	limits  codec.Limits
	caps    proto.Caps
	metrics *metrics.Metrics
}

// NewClient trusts the verifier certificate at caPath, or the built-in dev
// certificate when caPath is empty.
func NewClient(insecure bool, caPath string, limits codec.Limits, m *metrics.Metrics) (*Client, error) {
	tlsConf, err := clientTLSConfig(insecure, caPath)
	if err != nil {
		return nil, err
	}
	if m == nil {
		m = metrics.New()
	}
	return &Client{
		pool:    newClientPool(clientConnIdle),
		tlsConf: tlsConf,
		limits:  limits,
		caps:    proto.CapsFor(limits.MaxBytes),
		metrics: m,
	}, nil
}

func (c *Client) Close() {
	c.pool.closeAll()
}

// Prove runs protocol p as prover against the verifier at addr, for the
// statement the verifier knows as name.
func (c *Client) Prove(ctx context.Context, addr, name string, p sigma.Protocol, ci sigma.CommonInput, si sigma.SecretInput, rnd io.Reader) (Verdict, error) {
	ctx, cancel := withDefaultTimeout(ctx)
	defer cancel()
	conn, err := c.pool.get(ctx, addr, c.tlsConf)
	if err != nil {
		return Verdict{}, fmt.Errorf("dial %s: %w", addr, err)
	}
	stream, err := conn.OpenStreamSync(ctx)
	if err != nil {
		c.pool.drop(addr, conn, "open stream failed")
		return Verdict{}, err
	}
	defer stream.Close()
	if dl, ok := ctx.Deadline(); ok {
		_ = stream.SetDeadline(dl)
	}
	v, err := c.run(stream, name, p, ci, si, rnd)
	if err != nil {
		return v, err
	}
	c.metrics.IncProofs()
	debuglog.WithFields(log.Fields{
		"addr":        addr,
		"statement":   name,
		"accepted":    v.Accepted,
		"fingerprint": v.Fingerprint,
	}).Debug("proof session finished")
	return v, nil
}

func (c *Client) run(rw io.ReadWriter, name string, p sigma.Protocol, ci sigma.CommonInput, si sigma.SecretInput, rnd io.Reader) (Verdict, error) {
	sid, err := crypto.NewSessionID(rnd)
	if err != nil {
		return Verdict{}, err
	}
	v := Verdict{SessionID: sid}
	ps := sigma.NewProverSession(p, ci, si)
	a, err := ps.Announce(rnd)
	if err != nil {
		return v, err
	}
	aRaw, err := codec.MarshalWithLimits(a.Repr(), c.limits)
	if err != nil {
		return v, err
	}
	payload, err := proto.EncodeAnnounceMsg(proto.AnnounceMsg{SessionID: sid, Statement: name, Announcement: aRaw})
	if err != nil {
		return v, err
	}
	if err := c.caps.Write(rw, payload); err != nil {
		return v, err
	}

	raw, err := c.caps.Read(rw)
	if err != nil {
		return v, err
	}
	if proto.TypeOf(raw) == proto.MsgTypeVerdict {
		return v, refusal(raw)
	}
	cm, err := proto.DecodeChallengeMsg(raw)
	if err != nil {
		return v, err
	}
	if cm.SessionID != sid {
		return v, fmt.Errorf("%w: challenge for session %s", sigma.ErrMalformed, cm.SessionID)
	}
	cRepr, err := codec.UnmarshalWithLimits(cm.Challenge, c.limits)
	if err != nil {
		return v, err
	}
	space, err := p.ChallengeSpace(ci)
	if err != nil {
		return v, err
	}
	ch, err := space.Restore(cRepr)
	if err != nil {
		return v, err
	}
	resp, err := ps.Respond(ch)
	if err != nil {
		return v, err
	}
	rRaw, err := codec.MarshalWithLimits(resp.Repr(), c.limits)
	if err != nil {
		return v, err
	}
	payload, err = proto.EncodeResponseMsg(proto.ResponseMsg{SessionID: sid, Response: rRaw})
	if err != nil {
		return v, err
	}
	if err := c.caps.Write(rw, payload); err != nil {
		return v, err
	}

	raw, err = c.caps.Read(rw)
	if err != nil {
		return v, err
	}
	vm, err := proto.DecodeVerdictMsg(raw)
	if err != nil {
		return v, err
	}
	if vm.Error != "" {
		return v, fmt.Errorf("%w: %s", ErrRefused, vm.Error)
	}
	if vm.SessionID != sid {
		return v, fmt.Errorf("%w: verdict for session %s", sigma.ErrMalformed, vm.SessionID)
	}
	v.Accepted = vm.Accepted
	v.Fingerprint = vm.Fingerprint
	_, local, err := encodeTranscript(name, sigma.NewTranscript(a, ch, resp), c.limits)
	if err != nil {
		return v, err
	}
	if local != vm.Fingerprint {
		return v, ErrFingerprintMismatch
	}
	return v, nil
}

func refusal(raw []byte) error {
	vm, err := proto.DecodeVerdictMsg(raw)
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: %s", ErrRefused, vm.Error)
}
