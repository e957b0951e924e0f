package boolexpr

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/cloudflare/circl/group"
)

// EvaluateBatch evaluates e like Evaluate, except that every group element
// equality reachable through conjunctions alone is folded into a single check
// sum_i rho_i*(a_i - b_i) == 0 per group, with 64-bit random rho_i from rnd.
// A false equality slips through with probability at most 2^-64.
func EvaluateBatch(e Expr, rnd io.Reader) (bool, error) {
	var eqs []*elementEq
	var rest []Expr
	collect(e, &eqs, &rest)

	for _, x := range rest {
		if !x.Evaluate() {
			return false, nil
		}
	}
	if len(eqs) == 0 {
		return true, nil
	}
	if len(eqs) == 1 {
		return eqs[0].Evaluate(), nil
	}

	sums := make(map[group.Group]group.Element)
	var buf [8]byte
	for _, eq := range eqs {
		if eq.a == nil || eq.b == nil {
			return false, nil
		}
		g := eq.a.Group()
		if eq.b.Group() != g {
			return false, nil
		}
		if _, err := io.ReadFull(rnd, buf[:]); err != nil {
			return false, fmt.Errorf("batch randomness: %w", err)
		}
		rho := g.NewScalar().SetUint64(binary.BigEndian.Uint64(buf[:]) | 1)
		diff := g.NewElement().Neg(eq.b)
		diff.Add(diff, eq.a)
		term := g.NewElement().Mul(diff, rho)
		acc, ok := sums[g]
		if !ok {
			acc = g.Identity()
			sums[g] = acc
		}
		acc.Add(acc, term)
	}
	for _, acc := range sums {
		if !acc.IsIdentity() {
			return false, nil
		}
	}
	return true, nil
}

func collect(e Expr, eqs *[]*elementEq, rest *[]Expr) {
	switch v := e.(type) {
	case andExpr:
		for _, x := range v {
			collect(x, eqs, rest)
		}
	case *elementEq:
		*eqs = append(*eqs, v)
	default:
		*rest = append(*rest, e)
	}
}
