// Package dlog proves knowledge of discrete logarithms.
//
// Protocol is the classic Schnorr protocol written directly against the group.
// NewKnowledge and NewEquality state the same relations as linear fragments
// under a delegate protocol.
package dlog

import (
	"fmt"
	"io"

	"github.com/cloudflare/circl/group"

	"sigmakit/internal/boolexpr"
	"sigmakit/internal/crypto"
	"sigmakit/internal/schnorr"
	"sigmakit/internal/sigma"
)

// Statement claims Value = x·Base.
type Statement struct {
	Base  group.Element
	Value group.Element
}

// NewStatement returns the statement for x over base together with its
// witness.
func NewStatement(base group.Element, x group.Scalar) (*Statement, Witness) {
	v := base.Group().NewElement().Mul(base, x)
	return &Statement{Base: base.Copy(), Value: v}, Witness{X: x.Copy()}
}

type Witness struct {
	X group.Scalar
}

func statementOf(ci sigma.CommonInput) (*Statement, error) {
	st, ok := ci.(*Statement)
	if !ok || st == nil || st.Base == nil || st.Value == nil {
		return nil, fmt.Errorf("%w: dlog common input is %T", sigma.ErrMalformed, ci)
	}
	if st.Base.Group() != st.Value.Group() {
		return nil, fmt.Errorf("%w: dlog base and value in different groups", sigma.ErrMalformed)
	}
	return st, nil
}

func witnessOf(si sigma.SecretInput, g group.Group) (group.Scalar, error) {
	w, ok := si.(Witness)
	if !ok || w.X == nil {
		return nil, fmt.Errorf("%w: dlog secret input is %T", sigma.ErrMalformed, si)
	}
	if w.X.Group() != g {
		return nil, fmt.Errorf("%w: dlog witness outside %s", sigma.ErrMalformed, g)
	}
	return w.X, nil
}

// Protocol proves knowledge of x with Value = x·Base. The challenge space is
// the scalar field of the statement's group.
type Protocol struct{}

func (Protocol) ChallengeSpace(ci sigma.CommonInput) (sigma.ChallengeSpace, error) {
	st, err := statementOf(ci)
	if err != nil {
		return nil, err
	}
	return sigma.NewScalarChallengeSpace(st.Base.Group()), nil
}

func (Protocol) AnnouncementSecret(rnd io.Reader, ci sigma.CommonInput, _ sigma.SecretInput) (sigma.AnnouncementSecret, error) {
	st, err := statementOf(ci)
	if err != nil {
		return nil, err
	}
	return crypto.RandomScalar(st.Base.Group(), rnd)
}

func nonceOf(as sigma.AnnouncementSecret, g group.Group) (group.Scalar, error) {
	k, ok := as.(group.Scalar)
	if !ok || k == nil || k.Group() != g {
		return nil, fmt.Errorf("%w: dlog announcement secret is %T", sigma.ErrMalformed, as)
	}
	return k, nil
}

func (Protocol) Announcement(ci sigma.CommonInput, _ sigma.SecretInput, as sigma.AnnouncementSecret) (sigma.Announcement, error) {
	st, err := statementOf(ci)
	if err != nil {
		return nil, err
	}
	g := st.Base.Group()
	k, err := nonceOf(as, g)
	if err != nil {
		return nil, err
	}
	return schnorr.ElementValue{E: g.NewElement().Mul(st.Base, k)}, nil
}

// Response is z = k + c·x.
func (Protocol) Response(ci sigma.CommonInput, si sigma.SecretInput, _ sigma.Announcement, as sigma.AnnouncementSecret, c sigma.Challenge) (sigma.Response, error) {
	st, err := statementOf(ci)
	if err != nil {
		return nil, err
	}
	g := st.Base.Group()
	x, err := witnessOf(si, g)
	if err != nil {
		return nil, err
	}
	k, err := nonceOf(as, g)
	if err != nil {
		return nil, err
	}
	cs, err := sigma.ScalarOf(c, g)
	if err != nil {
		return nil, err
	}
	z := g.NewScalar().Mul(x, cs)
	return schnorr.ScalarValue{S: z.Add(z, k)}, nil
}

func valueOf[T schnorr.ElementValue | schnorr.ScalarValue](x any, what string) (T, error) {
	v, ok := x.(T)
	if !ok {
		return v, fmt.Errorf("%w: dlog %s is %T", sigma.ErrMalformed, what, x)
	}
	return v, nil
}

// CheckExpr is z·Base == T + c·Value.
func (Protocol) CheckExpr(ci sigma.CommonInput, a sigma.Announcement, c sigma.Challenge, r sigma.Response) (boolexpr.Expr, error) {
	st, err := statementOf(ci)
	if err != nil {
		return nil, err
	}
	g := st.Base.Group()
	t, err := valueOf[schnorr.ElementValue](a, "announcement")
	if err != nil {
		return nil, err
	}
	z, err := valueOf[schnorr.ScalarValue](r, "response")
	if err != nil {
		return nil, err
	}
	if t.E == nil || t.E.Group() != g || z.S == nil || z.S.Group() != g {
		return nil, fmt.Errorf("%w: dlog transcript outside %s", sigma.ErrMalformed, g)
	}
	cs, err := sigma.ScalarOf(c, g)
	if err != nil {
		return nil, err
	}
	lhs := g.NewElement().Mul(st.Base, z.S)
	rhs := g.NewElement().Mul(st.Value, cs)
	rhs.Add(rhs, t.E)
	return boolexpr.ElementsEqual(lhs, rhs), nil
}

func announcementFor(st *Statement, cs, z group.Scalar) schnorr.ElementValue {
	g := st.Base.Group()
	zb := g.NewElement().Mul(st.Base, z)
	cv := g.NewElement().Mul(st.Value, cs)
	return schnorr.ElementValue{E: zb.Add(zb, g.NewElement().Neg(cv))}
}

// SimulateTranscript picks z and solves T = z·Base - c·Value.
func (Protocol) SimulateTranscript(rnd io.Reader, ci sigma.CommonInput, c sigma.Challenge) (*sigma.Transcript, error) {
	st, err := statementOf(ci)
	if err != nil {
		return nil, err
	}
	g := st.Base.Group()
	cs, err := sigma.ScalarOf(c, g)
	if err != nil {
		return nil, err
	}
	z, err := crypto.RandomScalar(g, rnd)
	if err != nil {
		return nil, err
	}
	return sigma.NewTranscript(announcementFor(st, cs, z), c, schnorr.ScalarValue{S: z}), nil
}

func (Protocol) RestoreAnnouncement(ci sigma.CommonInput, r sigma.Repr) (sigma.Announcement, error) {
	st, err := statementOf(ci)
	if err != nil {
		return nil, err
	}
	e, err := sigma.RestoreElement(st.Base.Group(), r)
	if err != nil {
		return nil, err
	}
	return schnorr.ElementValue{E: e}, nil
}

func (Protocol) RestoreResponse(ci sigma.CommonInput, _ sigma.Announcement, _ sigma.Challenge, r sigma.Repr) (sigma.Response, error) {
	st, err := statementOf(ci)
	if err != nil {
		return nil, err
	}
	s, err := sigma.RestoreScalar(st.Base.Group(), r)
	if err != nil {
		return nil, err
	}
	return schnorr.ScalarValue{S: s}, nil
}

// CompressTranscript keeps (c, z); T is recomputed.
func (Protocol) CompressTranscript(ci sigma.CommonInput, t *sigma.Transcript) (sigma.Repr, error) {
	if _, err := statementOf(ci); err != nil {
		return sigma.Repr{}, err
	}
	if t == nil {
		return sigma.Repr{}, fmt.Errorf("%w: nil transcript", sigma.ErrMalformed)
	}
	return sigma.ListRepr(t.Challenge().Repr(), t.Response().Repr()), nil
}

func (Protocol) DecompressTranscript(ci sigma.CommonInput, r sigma.Repr) (*sigma.Transcript, error) {
	st, err := statementOf(ci)
	if err != nil {
		return nil, err
	}
	items, err := r.Items(2)
	if err != nil {
		return nil, err
	}
	g := st.Base.Group()
	c, err := sigma.NewScalarChallengeSpace(g).Restore(items[0])
	if err != nil {
		return nil, err
	}
	z, err := sigma.RestoreScalar(g, items[1])
	if err != nil {
		return nil, err
	}
	cs, _ := sigma.ScalarOf(c, g)
	return sigma.NewTranscript(announcementFor(st, cs, z), c, schnorr.ScalarValue{S: z}), nil
}
