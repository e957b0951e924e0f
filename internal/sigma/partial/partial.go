package partial

import (
	"fmt"
	"io"

	log "github.com/sirupsen/logrus"

	"sigmakit/internal/boolexpr"
	"sigmakit/internal/debuglog"
	"sigmakit/internal/sigma"
)

// Statement supplies the per-run pieces of a ProofOfPartialKnowledge. The
// tree may depend on the send-first value, so it is rebuilt on both sides of
// every run.
type Statement interface {
	ChallengeSpace(ci sigma.CommonInput) (sigma.ChallengeSpace, error)
	ProverSpec(rnd io.Reader, ci sigma.CommonInput, si sigma.SecretInput, b *ProverSpecBuilder) error
	SimulateSendFirstValue(rnd io.Reader, ci sigma.CommonInput) (sigma.SendFirstValue, error)
	RestoreSendFirstValue(ci sigma.CommonInput, r sigma.Repr) (sigma.SendFirstValue, error)
	ProtocolTree(ci sigma.CommonInput, sfv sigma.SendFirstValue) (*ProtocolTree, error)
	AdditionalCheck(ci sigma.CommonInput, sfv sigma.SendFirstValue) (boolexpr.Expr, error)
}

// ProverSpecBuilder collects the send-first value and the leaf witnesses.
type ProverSpecBuilder struct {
	sfv       sigma.SendFirstValue
	witnesses Witnesses
	err       error
}

func (b *ProverSpecBuilder) SetSendFirstValue(v sigma.SendFirstValue) {
	if b.sfv != nil {
		b.fail(fmt.Errorf("%w: send-first value set twice", sigma.ErrMalformed))
		return
	}
	b.sfv = v
}

// PutSecretInput records a witness for the leaf called name.
func (b *ProverSpecBuilder) PutSecretInput(name string, si sigma.SecretInput) {
	if b.witnesses == nil {
		b.witnesses = make(Witnesses)
	}
	if _, dup := b.witnesses[name]; dup {
		b.fail(fmt.Errorf("%w: secret input for %q given twice", sigma.ErrMalformed, name))
		return
	}
	b.witnesses[name] = si
}

func (b *ProverSpecBuilder) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

// Announcement is the send-first value followed by the announcement of the
// compiled tree.
type Announcement struct {
	SendFirstValue sigma.SendFirstValue
	Inner          sigma.Announcement
}

func (a *Announcement) Repr() sigma.Repr {
	return sigma.ListRepr(a.SendFirstValue.Repr(), a.Inner.Repr())
}

type announcementSecret struct {
	sfv      sigma.SendFirstValue
	compiled *compiled
	si       sigma.SecretInput
	inner    sigma.AnnouncementSecret
}

type compiled struct {
	tree     *ProtocolTree
	protocol sigma.Protocol
	input    sigma.CommonInput
}

// ProofOfPartialKnowledge proves the formula returned by its statement.
// Leaves without a witness are simulated by the Or nodes above them.
type ProofOfPartialKnowledge struct {
	stmt Statement
}

func New(stmt Statement) *ProofOfPartialKnowledge {
	return &ProofOfPartialKnowledge{stmt: stmt}
}

func (p *ProofOfPartialKnowledge) ChallengeSpace(ci sigma.CommonInput) (sigma.ChallengeSpace, error) {
	return p.stmt.ChallengeSpace(ci)
}

func (p *ProofOfPartialKnowledge) compile(ci sigma.CommonInput, sfv sigma.SendFirstValue) (*compiled, error) {
	if sfv == nil {
		return nil, fmt.Errorf("%w: nil send-first value", sigma.ErrMalformed)
	}
	tree, err := p.stmt.ProtocolTree(ci, sfv)
	if err != nil {
		return nil, err
	}
	proto, tci, err := tree.Compile()
	if err != nil {
		return nil, err
	}
	want, err := p.stmt.ChallengeSpace(ci)
	if err != nil {
		return nil, err
	}
	got, err := proto.ChallengeSpace(tci)
	if err != nil {
		return nil, err
	}
	if !want.SameSpace(got) {
		return nil, fmt.Errorf("%w: tree %s", sigma.ErrChallengeSpaceMismatch, tree)
	}
	return &compiled{tree: tree, protocol: proto, input: tci}, nil
}

func (p *ProofOfPartialKnowledge) AnnouncementSecret(rnd io.Reader, ci sigma.CommonInput, si sigma.SecretInput) (sigma.AnnouncementSecret, error) {
	b := &ProverSpecBuilder{}
	if err := p.stmt.ProverSpec(rnd, ci, si, b); err != nil {
		return nil, err
	}
	if b.err != nil {
		return nil, b.err
	}
	if b.sfv == nil {
		return nil, fmt.Errorf("%w: prover spec set no send-first value", sigma.ErrMalformed)
	}
	c, err := p.compile(ci, b.sfv)
	if err != nil {
		return nil, err
	}
	tsi, ok := c.tree.SecretInput(b.witnesses)
	debuglog.WithFields(log.Fields{
		"tree":      c.tree.String(),
		"witnesses": len(b.witnesses),
		"resolved":  ok,
	}).Debug("partial: resolve witnesses")
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoWitness, c.tree)
	}
	inner, err := c.protocol.AnnouncementSecret(rnd, c.input, tsi)
	if err != nil {
		return nil, err
	}
	return &announcementSecret{sfv: b.sfv, compiled: c, si: tsi, inner: inner}, nil
}

func secretOf(as sigma.AnnouncementSecret) (*announcementSecret, error) {
	s, ok := as.(*announcementSecret)
	if !ok || s == nil {
		return nil, fmt.Errorf("%w: partial announcement secret is %T", sigma.ErrMalformed, as)
	}
	return s, nil
}

func announcementOf(a sigma.Announcement) (*Announcement, error) {
	pa, ok := a.(*Announcement)
	if !ok || pa == nil || pa.SendFirstValue == nil || pa.Inner == nil {
		return nil, fmt.Errorf("%w: partial announcement is %T", sigma.ErrMalformed, a)
	}
	return pa, nil
}

func (p *ProofOfPartialKnowledge) Announcement(_ sigma.CommonInput, _ sigma.SecretInput, as sigma.AnnouncementSecret) (sigma.Announcement, error) {
	s, err := secretOf(as)
	if err != nil {
		return nil, err
	}
	inner, err := s.compiled.protocol.Announcement(s.compiled.input, s.si, s.inner)
	if err != nil {
		return nil, err
	}
	return &Announcement{SendFirstValue: s.sfv, Inner: inner}, nil
}

func (p *ProofOfPartialKnowledge) Response(_ sigma.CommonInput, _ sigma.SecretInput, a sigma.Announcement, as sigma.AnnouncementSecret, c sigma.Challenge) (sigma.Response, error) {
	s, err := secretOf(as)
	if err != nil {
		return nil, err
	}
	pa, err := announcementOf(a)
	if err != nil {
		return nil, err
	}
	return s.compiled.protocol.Response(s.compiled.input, s.si, pa.Inner, s.inner, c)
}

func (p *ProofOfPartialKnowledge) CheckExpr(ci sigma.CommonInput, a sigma.Announcement, c sigma.Challenge, r sigma.Response) (boolexpr.Expr, error) {
	pa, err := announcementOf(a)
	if err != nil {
		return nil, err
	}
	comp, err := p.compile(ci, pa.SendFirstValue)
	if err != nil {
		return nil, err
	}
	extra, err := p.stmt.AdditionalCheck(ci, pa.SendFirstValue)
	if err != nil {
		return nil, err
	}
	inner, err := comp.protocol.CheckExpr(comp.input, pa.Inner, c, r)
	if err != nil {
		return nil, err
	}
	return boolexpr.And(extra, inner), nil
}

func (p *ProofOfPartialKnowledge) SimulateTranscript(rnd io.Reader, ci sigma.CommonInput, c sigma.Challenge) (*sigma.Transcript, error) {
	sfv, err := p.stmt.SimulateSendFirstValue(rnd, ci)
	if err != nil {
		return nil, err
	}
	comp, err := p.compile(ci, sfv)
	if err != nil {
		return nil, err
	}
	t, err := comp.protocol.SimulateTranscript(rnd, comp.input, c)
	if err != nil {
		return nil, err
	}
	return sigma.NewTranscript(&Announcement{SendFirstValue: sfv, Inner: t.Announcement()}, c, t.Response()), nil
}

func (p *ProofOfPartialKnowledge) RestoreAnnouncement(ci sigma.CommonInput, r sigma.Repr) (sigma.Announcement, error) {
	items, err := r.Items(2)
	if err != nil {
		return nil, fmt.Errorf("partial announcement: %w", err)
	}
	sfv, err := p.stmt.RestoreSendFirstValue(ci, items[0])
	if err != nil {
		return nil, err
	}
	comp, err := p.compile(ci, sfv)
	if err != nil {
		return nil, err
	}
	inner, err := comp.protocol.RestoreAnnouncement(comp.input, items[1])
	if err != nil {
		return nil, err
	}
	return &Announcement{SendFirstValue: sfv, Inner: inner}, nil
}

func (p *ProofOfPartialKnowledge) RestoreResponse(ci sigma.CommonInput, a sigma.Announcement, c sigma.Challenge, r sigma.Repr) (sigma.Response, error) {
	pa, err := announcementOf(a)
	if err != nil {
		return nil, err
	}
	comp, err := p.compile(ci, pa.SendFirstValue)
	if err != nil {
		return nil, err
	}
	return comp.protocol.RestoreResponse(comp.input, pa.Inner, c, r)
}

// CompressTranscript keeps the send-first value and delegates the rest to the
// compiled tree.
func (p *ProofOfPartialKnowledge) CompressTranscript(ci sigma.CommonInput, t *sigma.Transcript) (sigma.Repr, error) {
	if t == nil {
		return sigma.Repr{}, fmt.Errorf("%w: nil transcript", sigma.ErrMalformed)
	}
	pa, err := announcementOf(t.Announcement())
	if err != nil {
		return sigma.Repr{}, err
	}
	comp, err := p.compile(ci, pa.SendFirstValue)
	if err != nil {
		return sigma.Repr{}, err
	}
	body, err := comp.protocol.CompressTranscript(comp.input, sigma.NewTranscript(pa.Inner, t.Challenge(), t.Response()))
	if err != nil {
		return sigma.Repr{}, err
	}
	return sigma.ListRepr(pa.SendFirstValue.Repr(), body), nil
}

func (p *ProofOfPartialKnowledge) DecompressTranscript(ci sigma.CommonInput, r sigma.Repr) (*sigma.Transcript, error) {
	items, err := r.Items(2)
	if err != nil {
		return nil, fmt.Errorf("partial transcript: %w", err)
	}
	sfv, err := p.stmt.RestoreSendFirstValue(ci, items[0])
	if err != nil {
		return nil, err
	}
	comp, err := p.compile(ci, sfv)
	if err != nil {
		return nil, err
	}
	t, err := comp.protocol.DecompressTranscript(comp.input, items[1])
	if err != nil {
		return nil, err
	}
	return sigma.NewTranscript(&Announcement{SendFirstValue: sfv, Inner: t.Announcement()}, t.Challenge(), t.Response()), nil
}
