package schnorr

import (
	"fmt"
	"io"

	"github.com/cloudflare/circl/group"

	"sigmakit/internal/boolexpr"
	"sigmakit/internal/sigma"
)

// SendThenDelegateStatement is SendThenDelegateHooks keyed by the common and
// secret input of a top-level protocol run.
type SendThenDelegateStatement interface {
	ProverSpec(rnd io.Reader, ci sigma.CommonInput, si sigma.SecretInput, b *ProverSpecBuilder) error
	SimulateSendFirstValue(rnd io.Reader, ci sigma.CommonInput) (sigma.SendFirstValue, error)
	RestoreSendFirstValue(ci sigma.CommonInput, r sigma.Repr) (sigma.SendFirstValue, error)
	SubprotocolSpec(ci sigma.CommonInput, sfv sigma.SendFirstValue, b *SubprotocolSpecBuilder) error
	AdditionalCheck(ci sigma.CommonInput, sfv sigma.SendFirstValue) (boolexpr.Expr, error)
}

// SendThenDelegateProtocol is a sigma.Protocol whose whole run is one
// SendThenDelegateFragment with nothing in scope. Challenges are scalars of g.
type SendThenDelegateProtocol struct {
	g    group.Group
	stmt SendThenDelegateStatement
}

func NewSendThenDelegateProtocol(g group.Group, stmt SendThenDelegateStatement) *SendThenDelegateProtocol {
	return &SendThenDelegateProtocol{g: g, stmt: stmt}
}

func (p *SendThenDelegateProtocol) Group() group.Group { return p.g }

func (p *SendThenDelegateProtocol) fragment(ci sigma.CommonInput, si sigma.SecretInput) *SendThenDelegateFragment {
	return NewSendThenDelegateFragment(p.g, boundStatement{stmt: p.stmt, ci: ci, si: si})
}

func (p *SendThenDelegateProtocol) challenge(c sigma.Challenge) (group.Scalar, error) {
	return sigma.ScalarOf(c, p.g)
}

func (p *SendThenDelegateProtocol) ChallengeSpace(sigma.CommonInput) (sigma.ChallengeSpace, error) {
	return sigma.NewScalarChallengeSpace(p.g), nil
}

func (p *SendThenDelegateProtocol) AnnouncementSecret(rnd io.Reader, ci sigma.CommonInput, si sigma.SecretInput) (sigma.AnnouncementSecret, error) {
	return p.fragment(ci, si).AnnouncementSecret(rnd, NewAssignment())
}

func (p *SendThenDelegateProtocol) Announcement(ci sigma.CommonInput, si sigma.SecretInput, as sigma.AnnouncementSecret) (sigma.Announcement, error) {
	return p.fragment(ci, si).Announcement(NewAssignment(), as, NewAssignment())
}

func (p *SendThenDelegateProtocol) Response(ci sigma.CommonInput, si sigma.SecretInput, _ sigma.Announcement, as sigma.AnnouncementSecret, c sigma.Challenge) (sigma.Response, error) {
	s, err := p.challenge(c)
	if err != nil {
		return nil, err
	}
	return p.fragment(ci, si).Response(NewAssignment(), as, s)
}

func (p *SendThenDelegateProtocol) CheckExpr(ci sigma.CommonInput, a sigma.Announcement, c sigma.Challenge, r sigma.Response) (boolexpr.Expr, error) {
	s, err := p.challenge(c)
	if err != nil {
		return nil, err
	}
	return p.fragment(ci, nil).CheckExpr(a, s, r, NewAssignment())
}

func (p *SendThenDelegateProtocol) SimulateTranscript(rnd io.Reader, ci sigma.CommonInput, c sigma.Challenge) (*sigma.Transcript, error) {
	s, err := p.challenge(c)
	if err != nil {
		return nil, err
	}
	a, r, err := p.fragment(ci, nil).Simulate(rnd, s, NewAssignment())
	if err != nil {
		return nil, err
	}
	return sigma.NewTranscript(a, c, r), nil
}

func (p *SendThenDelegateProtocol) RestoreAnnouncement(ci sigma.CommonInput, r sigma.Repr) (sigma.Announcement, error) {
	return p.fragment(ci, nil).RestoreAnnouncement(r)
}

func (p *SendThenDelegateProtocol) RestoreResponse(ci sigma.CommonInput, a sigma.Announcement, c sigma.Challenge, r sigma.Repr) (sigma.Response, error) {
	s, err := p.challenge(c)
	if err != nil {
		return nil, err
	}
	return p.fragment(ci, nil).RestoreResponse(a, s, r)
}

// CompressTranscript stores the challenge next to the compressed fragment
// run; the child announcements are recomputed on decompression.
func (p *SendThenDelegateProtocol) CompressTranscript(ci sigma.CommonInput, t *sigma.Transcript) (sigma.Repr, error) {
	if t == nil {
		return sigma.Repr{}, fmt.Errorf("%w: nil transcript", sigma.ErrMalformed)
	}
	s, err := p.challenge(t.Challenge())
	if err != nil {
		return sigma.Repr{}, err
	}
	body, err := p.fragment(ci, nil).CompressTranscript(t.Announcement(), s, t.Response(), NewAssignment())
	if err != nil {
		return sigma.Repr{}, err
	}
	return sigma.ListRepr(t.Challenge().Repr(), body), nil
}

func (p *SendThenDelegateProtocol) DecompressTranscript(ci sigma.CommonInput, r sigma.Repr) (*sigma.Transcript, error) {
	items, err := r.Items(2)
	if err != nil {
		return nil, err
	}
	c, err := sigma.NewScalarChallengeSpace(p.g).Restore(items[0])
	if err != nil {
		return nil, err
	}
	s, _ := p.challenge(c)
	a, resp, err := p.fragment(ci, nil).DecompressTranscript(items[1], s, NewAssignment())
	if err != nil {
		return nil, err
	}
	return sigma.NewTranscript(a, c, resp), nil
}

type boundStatement struct {
	stmt SendThenDelegateStatement
	ci   sigma.CommonInput
	si   sigma.SecretInput
}

func (b boundStatement) ProverSpec(rnd io.Reader, _ *Assignment, pb *ProverSpecBuilder) error {
	return b.stmt.ProverSpec(rnd, b.ci, b.si, pb)
}

func (b boundStatement) SimulateSendFirstValue(rnd io.Reader) (sigma.SendFirstValue, error) {
	return b.stmt.SimulateSendFirstValue(rnd, b.ci)
}

func (b boundStatement) RestoreSendFirstValue(r sigma.Repr) (sigma.SendFirstValue, error) {
	return b.stmt.RestoreSendFirstValue(b.ci, r)
}

func (b boundStatement) SubprotocolSpec(sfv sigma.SendFirstValue, sb *SubprotocolSpecBuilder) error {
	return b.stmt.SubprotocolSpec(b.ci, sfv, sb)
}

func (b boundStatement) AdditionalCheck(sfv sigma.SendFirstValue) (boolexpr.Expr, error) {
	return b.stmt.AdditionalCheck(b.ci, sfv)
}

// DelegateStatement is DelegateHooks keyed by common and secret input.
type DelegateStatement interface {
	ProverSpec(ci sigma.CommonInput, si sigma.SecretInput, b *ProverSpecBuilder) error
	SubprotocolSpec(ci sigma.CommonInput, b *SubprotocolSpecBuilder) error
}

// DelegateProtocol is a SendThenDelegateProtocol with an empty send-first
// value; it exists to share variables between its child fragments.
type DelegateProtocol struct {
	*SendThenDelegateProtocol
}

func NewDelegateProtocol(g group.Group, stmt DelegateStatement) *DelegateProtocol {
	return &DelegateProtocol{NewSendThenDelegateProtocol(g, delegateStatement{stmt: stmt})}
}

type delegateStatement struct {
	stmt DelegateStatement
}

func (d delegateStatement) ProverSpec(_ io.Reader, ci sigma.CommonInput, si sigma.SecretInput, b *ProverSpecBuilder) error {
	b.SetSendFirstValue(sigma.EmptySendFirstValue{})
	return d.stmt.ProverSpec(ci, si, b)
}

func (d delegateStatement) SimulateSendFirstValue(io.Reader, sigma.CommonInput) (sigma.SendFirstValue, error) {
	return sigma.EmptySendFirstValue{}, nil
}

func (d delegateStatement) RestoreSendFirstValue(_ sigma.CommonInput, r sigma.Repr) (sigma.SendFirstValue, error) {
	return RestoreEmptySendFirstValue(r)
}

func (d delegateStatement) SubprotocolSpec(ci sigma.CommonInput, _ sigma.SendFirstValue, b *SubprotocolSpecBuilder) error {
	return d.stmt.SubprotocolSpec(ci, b)
}

func (d delegateStatement) AdditionalCheck(sigma.CommonInput, sigma.SendFirstValue) (boolexpr.Expr, error) {
	return boolexpr.True(), nil
}
