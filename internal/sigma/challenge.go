package sigma

import (
	"fmt"
	"io"

	"github.com/cloudflare/circl/group"

	"sigmakit/internal/crypto"
)

// Challenge is the verifier's public-coin message.
type Challenge interface {
	Representable
}

// ChallengeSpace is the domain challenges are drawn from. Subtract must undo
// Add: Subtract(Add(c0, c1), c0) equals c1.
type ChallengeSpace interface {
	Random(rnd io.Reader) (Challenge, error)
	Add(a, b Challenge) (Challenge, error)
	Subtract(c, c0 Challenge) (Challenge, error)
	Equal(a, b Challenge) bool
	Restore(r Repr) (Challenge, error)
	// SameSpace reports whether both spaces hold the same challenges.
	SameSpace(other ChallengeSpace) bool
}

// ScalarChallenge is an integer modulo a group order.
type ScalarChallenge struct {
	s group.Scalar
}

func NewScalarChallenge(s group.Scalar) *ScalarChallenge {
	return &ScalarChallenge{s: s.Copy()}
}

func (c *ScalarChallenge) Scalar() group.Scalar {
	return c.s.Copy()
}

func (c *ScalarChallenge) Repr() Repr {
	return ScalarRepr(c.s)
}

// ScalarChallengeSpace is Z_q for the order q of a prime-order group.
type ScalarChallengeSpace struct {
	g group.Group
}

func NewScalarChallengeSpace(g group.Group) *ScalarChallengeSpace {
	return &ScalarChallengeSpace{g: g}
}

func (s *ScalarChallengeSpace) Group() group.Group {
	return s.g
}

func (s *ScalarChallengeSpace) Random(rnd io.Reader) (Challenge, error) {
	k, err := crypto.RandomScalar(s.g, rnd)
	if err != nil {
		return nil, err
	}
	return &ScalarChallenge{s: k}, nil
}

func (s *ScalarChallengeSpace) Add(a, b Challenge) (Challenge, error) {
	x, err := ScalarOf(a, s.g)
	if err != nil {
		return nil, err
	}
	y, err := ScalarOf(b, s.g)
	if err != nil {
		return nil, err
	}
	return &ScalarChallenge{s: s.g.NewScalar().Add(x, y)}, nil
}

func (s *ScalarChallengeSpace) Subtract(c, c0 Challenge) (Challenge, error) {
	x, err := ScalarOf(c, s.g)
	if err != nil {
		return nil, err
	}
	y, err := ScalarOf(c0, s.g)
	if err != nil {
		return nil, err
	}
	return &ScalarChallenge{s: s.g.NewScalar().Sub(x, y)}, nil
}

func (s *ScalarChallengeSpace) Equal(a, b Challenge) bool {
	x, err := ScalarOf(a, s.g)
	if err != nil {
		return false
	}
	y, err := ScalarOf(b, s.g)
	if err != nil {
		return false
	}
	return x.IsEqual(y)
}

func (s *ScalarChallengeSpace) Restore(r Repr) (Challenge, error) {
	x, err := RestoreScalar(s.g, r)
	if err != nil {
		return nil, fmt.Errorf("restore challenge: %w", err)
	}
	return &ScalarChallenge{s: x}, nil
}

func (s *ScalarChallengeSpace) SameSpace(other ChallengeSpace) bool {
	o, ok := other.(*ScalarChallengeSpace)
	return ok && o.g == s.g
}

// ScalarOf unwraps a challenge from Z_q of g.
func ScalarOf(c Challenge, g group.Group) (group.Scalar, error) {
	sc, ok := c.(*ScalarChallenge)
	if !ok || sc == nil || sc.s == nil {
		return nil, fmt.Errorf("%w: challenge is %T, want *ScalarChallenge", ErrMalformed, c)
	}
	if sc.s.Group() != g {
		return nil, fmt.Errorf("%w: challenge from group %s, want %s", ErrMalformed, sc.s.Group(), g)
	}
	return sc.s, nil
}
