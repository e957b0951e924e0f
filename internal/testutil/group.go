package testutil

import (
	"io"

	"github.com/cloudflare/circl/group"

	"sigmakit/internal/crypto"
)

// Scalar draws a scalar of g from rnd. It panics only when rnd runs dry,
// which the readers from NewReader never do.
func Scalar(g group.Group, rnd io.Reader) group.Scalar {
	s, err := crypto.RandomScalar(g, rnd)
	if err != nil {
		panic(err)
	}
	return s
}

func Element(g group.Group, rnd io.Reader) group.Element {
	e, err := crypto.RandomElement(g, rnd)
	if err != nil {
		panic(err)
	}
	return e
}
