package crypto

import (
	"fmt"
	"io"

	"github.com/cloudflare/circl/group"
)

// Scalars and elements are hashed from bytes read off the stream, so a
// deterministic reader always yields the same values. circl's own
// RandomScalar/RandomElement do not consume the reader for every group.
const (
	scalarDST  = "sigmakit/crypto/scalar/v0"
	elementDST = "sigmakit/crypto/element/v0"
	drawSize   = 64
)

func draw(rnd io.Reader) ([]byte, error) {
	buf := make([]byte, drawSize)
	if _, err := io.ReadFull(rnd, buf); err != nil {
		return nil, fmt.Errorf("random draw: %w", err)
	}
	return buf, nil
}

// RandomScalar reads 64 bytes from rnd and hashes them to a scalar of g.
func RandomScalar(g group.Group, rnd io.Reader) (group.Scalar, error) {
	buf, err := draw(rnd)
	if err != nil {
		return nil, err
	}
	return g.HashToScalar(buf, []byte(scalarDST)), nil
}

// RandomNonZeroScalar draws until the scalar is not zero.
func RandomNonZeroScalar(g group.Group, rnd io.Reader) (group.Scalar, error) {
	zero := g.NewScalar()
	for {
		s, err := RandomScalar(g, rnd)
		if err != nil {
			return nil, err
		}
		if !s.IsEqual(zero) {
			return s, nil
		}
	}
}

// RandomElement reads 64 bytes from rnd and hashes them to an element of g.
func RandomElement(g group.Group, rnd io.Reader) (group.Element, error) {
	buf, err := draw(rnd)
	if err != nil {
		return nil, err
	}
	return g.HashToElement(buf, []byte(elementDST)), nil
}
