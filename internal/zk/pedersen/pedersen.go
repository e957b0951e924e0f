// Package pedersen holds Pedersen commitments C = m·G + r·H over Ristretto255
// and the proofs about them.
package pedersen

import (
	"fmt"
	"io"

	"github.com/cloudflare/circl/group"
	"github.com/patrickmn/go-cache"

	"sigmakit/internal/crypto"
)

type Scalar = group.Scalar
type Element = group.Element

const (
	pedersenDST = "sigmakit/zk/pedersen"
)

var bases = cache.New(cache.NoExpiration, 0)

func Group() group.Group {
	return group.Ristretto255
}

// Base hashes label to a group element. Results are cached per label.
func Base(label string) (Element, error) {
	if v, ok := bases.Get(label); ok {
		return v.(Element).Copy(), nil
	}
	e := Group().HashToElement([]byte(pedersenDST+"/"+label), []byte(pedersenDST))
	if e.IsIdentity() {
		return nil, fmt.Errorf("pedersen base %q is identity", label)
	}
	bases.Set(label, e, cache.NoExpiration)
	return e.Copy(), nil
}

// Generators returns the commitment bases G and H. Nobody knows log_G(H).
func Generators() (Element, Element, error) {
	g, err := Base("g")
	if err != nil {
		return nil, nil, err
	}
	h, err := Base("h")
	if err != nil {
		return nil, nil, err
	}
	if g.IsEqual(h) {
		return nil, nil, fmt.Errorf("pedersen g == h")
	}
	return g, h, nil
}

// Commit commits to m with fresh randomness drawn from rnd.
func Commit(rnd io.Reader, m Scalar) (Element, Scalar, error) {
	if m == nil || m.Group() != Group() {
		return nil, nil, fmt.Errorf("scalar group mismatch")
	}
	g, h, err := Generators()
	if err != nil {
		return nil, nil, err
	}
	r, err := crypto.RandomNonZeroScalar(Group(), rnd)
	if err != nil {
		return nil, nil, err
	}
	return commit(g, h, m, r), r, nil
}

// CommitVector commits to every entry of x.
func CommitVector(rnd io.Reader, x []Scalar) ([]Element, []Scalar, error) {
	if len(x) == 0 {
		return nil, nil, fmt.Errorf("empty vector")
	}
	g, h, err := Generators()
	if err != nil {
		return nil, nil, err
	}
	C := make([]Element, len(x))
	r := make([]Scalar, len(x))
	for i := range x {
		if x[i] == nil {
			return nil, nil, fmt.Errorf("nil scalar at %d", i)
		}
		if x[i].Group() != Group() {
			return nil, nil, fmt.Errorf("scalar group mismatch at %d", i)
		}
		if r[i], err = crypto.RandomNonZeroScalar(Group(), rnd); err != nil {
			return nil, nil, err
		}
		C[i] = commit(g, h, x[i], r[i])
	}
	return C, r, nil
}

func commit(g, h Element, x, r Scalar) Element {
	gx := Group().NewElement().Mul(g, x)
	hr := Group().NewElement().Mul(h, r)
	return Group().NewElement().Add(gx, hr)
}
