package schnorr

import (
	"fmt"
	"io"

	"github.com/cloudflare/circl/group"

	"sigmakit/internal/boolexpr"
	"sigmakit/internal/sigma"
)

// LinearStatementFragment proves hom(w) = target for the homomorphic part hom
// of a linear group equation. It owns no variables: the announcement is hom
// evaluated at the randomness of the variables it refers to, the response is
// empty and the check reads the variable responses from the owner.
type LinearStatementFragment struct {
	g      group.Group
	hom    *affineGroup
	target group.Element
}

// NewLinearStatementFragment builds the fragment for lhs = rhs. It fails with
// ErrNotLinear unless both sides are linear in their variables over one group.
func NewLinearStatementFragment(lhs, rhs GroupExpr) (*LinearStatementFragment, error) {
	l, err := lhs.affineGroup()
	if err != nil {
		return nil, err
	}
	r, err := rhs.affineGroup()
	if err != nil {
		return nil, err
	}
	if l.g != r.g {
		return nil, fmt.Errorf("%w: sides over %s and %s", ErrNotLinear, l.g, r.g)
	}
	r.scale(r.g.NewScalar().Neg(r.g.NewScalar().SetUint64(1)))
	if err := l.add(r); err != nil {
		return nil, err
	}
	target := l.g.NewElement().Neg(l.konst)
	l.konst = l.g.Identity()
	return &LinearStatementFragment{g: l.g, hom: l, target: target}, nil
}

func (f *LinearStatementFragment) Group() group.Group { return f.g }

// Target returns the element the homomorphic part must map the witness to.
func (f *LinearStatementFragment) Target() group.Element { return f.target.Copy() }

func (f *LinearStatementFragment) challenge(c group.Scalar) error {
	if c == nil || c.Group() != f.g {
		return fmt.Errorf("%w: challenge outside %s", sigma.ErrMalformed, f.g)
	}
	return nil
}

func (f *LinearStatementFragment) AnnouncementSecret(io.Reader, *Assignment) (sigma.AnnouncementSecret, error) {
	return nil, nil
}

func (f *LinearStatementFragment) Announcement(_ *Assignment, _ sigma.AnnouncementSecret, randomness *Assignment) (sigma.Announcement, error) {
	a, err := f.hom.eval(randomness)
	if err != nil {
		return nil, err
	}
	return ElementValue{E: a}, nil
}

func (f *LinearStatementFragment) Response(*Assignment, sigma.AnnouncementSecret, group.Scalar) (sigma.Response, error) {
	return sigma.EmptyResponse{}, nil
}

// CheckExpr is hom(z) == a + c·target.
func (f *LinearStatementFragment) CheckExpr(a sigma.Announcement, c group.Scalar, _ sigma.Response, responses *Assignment) (boolexpr.Expr, error) {
	if err := f.challenge(c); err != nil {
		return nil, err
	}
	ae, err := elementOf(a, f.g, "linear announcement")
	if err != nil {
		return nil, err
	}
	lhs, err := f.hom.eval(responses)
	if err != nil {
		return nil, err
	}
	rhs := f.g.NewElement().Mul(f.target, c)
	rhs.Add(rhs, ae)
	return boolexpr.ElementsEqual(lhs, rhs), nil
}

func (f *LinearStatementFragment) announcementFor(c group.Scalar, responses *Assignment) (sigma.Announcement, error) {
	if err := f.challenge(c); err != nil {
		return nil, err
	}
	hz, err := f.hom.eval(responses)
	if err != nil {
		return nil, err
	}
	ct := f.g.NewElement().Mul(f.target, c)
	return ElementValue{E: f.g.NewElement().Add(hz, f.g.NewElement().Neg(ct))}, nil
}

// Simulate solves the check for the announcement: a = hom(z) - c·target.
func (f *LinearStatementFragment) Simulate(_ io.Reader, c group.Scalar, responses *Assignment) (sigma.Announcement, sigma.Response, error) {
	a, err := f.announcementFor(c, responses)
	if err != nil {
		return nil, nil, err
	}
	return a, sigma.EmptyResponse{}, nil
}

func (f *LinearStatementFragment) RestoreAnnouncement(r sigma.Repr) (sigma.Announcement, error) {
	e, err := sigma.RestoreElement(f.g, r)
	if err != nil {
		return nil, err
	}
	return ElementValue{E: e}, nil
}

func (f *LinearStatementFragment) RestoreResponse(_ sigma.Announcement, _ group.Scalar, r sigma.Repr) (sigma.Response, error) {
	return emptyResponse(r)
}

// CompressTranscript drops the announcement; it is implied by the variable
// responses and the challenge.
func (f *LinearStatementFragment) CompressTranscript(sigma.Announcement, group.Scalar, sigma.Response, *Assignment) (sigma.Repr, error) {
	return sigma.Repr{}, nil
}

func (f *LinearStatementFragment) DecompressTranscript(r sigma.Repr, c group.Scalar, responses *Assignment) (sigma.Announcement, sigma.Response, error) {
	if _, err := emptyResponse(r); err != nil {
		return nil, nil, err
	}
	a, err := f.announcementFor(c, responses)
	if err != nil {
		return nil, nil, err
	}
	return a, sigma.EmptyResponse{}, nil
}

// LinearExponentStatementFragment is the scalar counterpart of
// LinearStatementFragment: it proves Σ a_i·x_i = target over exponent
// variables.
type LinearExponentStatementFragment struct {
	g      group.Group
	hom    *affineExponent
	target group.Scalar
}

func NewLinearExponentStatementFragment(lhs, rhs ExponentExpr) (*LinearExponentStatementFragment, error) {
	l, err := lhs.affine()
	if err != nil {
		return nil, err
	}
	r, err := Negate(rhs).affine()
	if err != nil {
		return nil, err
	}
	if err := l.add(r); err != nil {
		return nil, err
	}
	target := l.g.NewScalar().Neg(l.konst)
	l.konst = l.g.NewScalar()
	return &LinearExponentStatementFragment{g: l.g, hom: l, target: target}, nil
}

func (f *LinearExponentStatementFragment) Group() group.Group { return f.g }

func (f *LinearExponentStatementFragment) challenge(c group.Scalar) error {
	if c == nil || c.Group() != f.g {
		return fmt.Errorf("%w: challenge outside %s", sigma.ErrMalformed, f.g)
	}
	return nil
}

func (f *LinearExponentStatementFragment) AnnouncementSecret(io.Reader, *Assignment) (sigma.AnnouncementSecret, error) {
	return nil, nil
}

func (f *LinearExponentStatementFragment) Announcement(_ *Assignment, _ sigma.AnnouncementSecret, randomness *Assignment) (sigma.Announcement, error) {
	a, err := f.hom.eval(randomness)
	if err != nil {
		return nil, err
	}
	return ScalarValue{S: a}, nil
}

func (f *LinearExponentStatementFragment) Response(*Assignment, sigma.AnnouncementSecret, group.Scalar) (sigma.Response, error) {
	return sigma.EmptyResponse{}, nil
}

func (f *LinearExponentStatementFragment) CheckExpr(a sigma.Announcement, c group.Scalar, _ sigma.Response, responses *Assignment) (boolexpr.Expr, error) {
	if err := f.challenge(c); err != nil {
		return nil, err
	}
	as, err := scalarOf(a, f.g, "linear announcement")
	if err != nil {
		return nil, err
	}
	lhs, err := f.hom.eval(responses)
	if err != nil {
		return nil, err
	}
	rhs := f.g.NewScalar().Mul(f.target, c)
	rhs.Add(rhs, as)
	return boolexpr.ScalarsEqual(lhs, rhs), nil
}

func (f *LinearExponentStatementFragment) announcementFor(c group.Scalar, responses *Assignment) (sigma.Announcement, error) {
	if err := f.challenge(c); err != nil {
		return nil, err
	}
	hz, err := f.hom.eval(responses)
	if err != nil {
		return nil, err
	}
	ct := f.g.NewScalar().Mul(f.target, c)
	return ScalarValue{S: f.g.NewScalar().Sub(hz, ct)}, nil
}

func (f *LinearExponentStatementFragment) Simulate(_ io.Reader, c group.Scalar, responses *Assignment) (sigma.Announcement, sigma.Response, error) {
	a, err := f.announcementFor(c, responses)
	if err != nil {
		return nil, nil, err
	}
	return a, sigma.EmptyResponse{}, nil
}

func (f *LinearExponentStatementFragment) RestoreAnnouncement(r sigma.Repr) (sigma.Announcement, error) {
	s, err := sigma.RestoreScalar(f.g, r)
	if err != nil {
		return nil, err
	}
	return ScalarValue{S: s}, nil
}

func (f *LinearExponentStatementFragment) RestoreResponse(_ sigma.Announcement, _ group.Scalar, r sigma.Repr) (sigma.Response, error) {
	return emptyResponse(r)
}

func (f *LinearExponentStatementFragment) CompressTranscript(sigma.Announcement, group.Scalar, sigma.Response, *Assignment) (sigma.Repr, error) {
	return sigma.Repr{}, nil
}

func (f *LinearExponentStatementFragment) DecompressTranscript(r sigma.Repr, c group.Scalar, responses *Assignment) (sigma.Announcement, sigma.Response, error) {
	if _, err := emptyResponse(r); err != nil {
		return nil, nil, err
	}
	a, err := f.announcementFor(c, responses)
	if err != nil {
		return nil, nil, err
	}
	return a, sigma.EmptyResponse{}, nil
}
