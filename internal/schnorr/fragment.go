package schnorr

import (
	"fmt"
	"io"

	"github.com/cloudflare/circl/group"

	"sigmakit/internal/boolexpr"
	"sigmakit/internal/sigma"
)

// Fragment is a sigma protocol over variables that may be owned elsewhere.
//
// The prover side receives the witnesses of every variable in scope and, from
// Announcement on, the announcement randomness of the variables owned by an
// enclosing fragment. The verifier side receives the responses of those
// variables. A fragment never resamples a variable it does not own.
type Fragment interface {
	AnnouncementSecret(rnd io.Reader, witnesses *Assignment) (sigma.AnnouncementSecret, error)
	Announcement(witnesses *Assignment, as sigma.AnnouncementSecret, randomness *Assignment) (sigma.Announcement, error)
	Response(witnesses *Assignment, as sigma.AnnouncementSecret, c group.Scalar) (sigma.Response, error)

	CheckExpr(a sigma.Announcement, c group.Scalar, r sigma.Response, responses *Assignment) (boolexpr.Expr, error)
	// Simulate produces an accepting announcement and response for c, given
	// the responses already fixed for the variables in scope.
	Simulate(rnd io.Reader, c group.Scalar, responses *Assignment) (sigma.Announcement, sigma.Response, error)

	RestoreAnnouncement(r sigma.Repr) (sigma.Announcement, error)
	RestoreResponse(a sigma.Announcement, c group.Scalar, r sigma.Repr) (sigma.Response, error)

	CompressTranscript(a sigma.Announcement, c group.Scalar, r sigma.Response, responses *Assignment) (sigma.Repr, error)
	DecompressTranscript(r sigma.Repr, c group.Scalar, responses *Assignment) (sigma.Announcement, sigma.Response, error)
}

// ElementValue is a single group element sent as an announcement or a
// variable response.
type ElementValue struct {
	E group.Element
}

func (v ElementValue) Repr() sigma.Repr { return sigma.ElementRepr(v.E) }

// ScalarValue is a single scalar sent as an announcement or a variable
// response.
type ScalarValue struct {
	S group.Scalar
}

func (v ScalarValue) Repr() sigma.Repr { return sigma.ScalarRepr(v.S) }

func elementOf(x any, g group.Group, what string) (group.Element, error) {
	v, ok := x.(ElementValue)
	if !ok || v.E == nil {
		return nil, fmt.Errorf("%w: %s is %T, want ElementValue", sigma.ErrMalformed, what, x)
	}
	if v.E.Group() != g {
		return nil, fmt.Errorf("%w: %s from group %s, want %s", sigma.ErrMalformed, what, v.E.Group(), g)
	}
	return v.E, nil
}

func scalarOf(x any, g group.Group, what string) (group.Scalar, error) {
	v, ok := x.(ScalarValue)
	if !ok || v.S == nil {
		return nil, fmt.Errorf("%w: %s is %T, want ScalarValue", sigma.ErrMalformed, what, x)
	}
	if v.S.Group() != g {
		return nil, fmt.Errorf("%w: %s from group %s, want %s", sigma.ErrMalformed, what, v.S.Group(), g)
	}
	return v.S, nil
}

func emptyResponse(r sigma.Repr) (sigma.Response, error) {
	if len(r.Bytes) != 0 || len(r.List) != 0 {
		return nil, fmt.Errorf("%w: expected an empty response", sigma.ErrMalformed)
	}
	return sigma.EmptyResponse{}, nil
}
