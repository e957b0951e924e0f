package dlog

import (
	"fmt"

	"github.com/cloudflare/circl/group"

	"sigmakit/internal/schnorr"
	"sigmakit/internal/sigma"
)

// NewKnowledge proves the Statement relation as a single linear fragment
// "value": x·Base = Value.
func NewKnowledge(g group.Group) *schnorr.DelegateProtocol {
	return schnorr.NewDelegateProtocol(g, knowledge{g: g})
}

type knowledge struct {
	g group.Group
}

func (k knowledge) statement(ci sigma.CommonInput) (*Statement, error) {
	st, err := statementOf(ci)
	if err != nil {
		return nil, err
	}
	if st.Base.Group() != k.g {
		return nil, fmt.Errorf("%w: dlog statement outside %s", sigma.ErrMalformed, k.g)
	}
	return st, nil
}

func (k knowledge) ProverSpec(ci sigma.CommonInput, si sigma.SecretInput, b *schnorr.ProverSpecBuilder) error {
	if _, err := k.statement(ci); err != nil {
		return err
	}
	x, err := witnessOf(si, k.g)
	if err != nil {
		return err
	}
	b.PutExponentWitness("x", x)
	return nil
}

func (k knowledge) SubprotocolSpec(ci sigma.CommonInput, b *schnorr.SubprotocolSpecBuilder) error {
	st, err := k.statement(ci)
	if err != nil {
		return err
	}
	x := b.AddExponentVariable("x")
	b.AddLinear("value", schnorr.Pow(schnorr.Elem(st.Base), x), schnorr.Elem(st.Value))
	return nil
}

// EqualityStatement claims A = x·G and B = x·H for one x.
type EqualityStatement struct {
	G, H group.Element
	A, B group.Element
}

// NewEqualityStatement returns the statement for x over g and h together with
// its witness.
func NewEqualityStatement(g, h group.Element, x group.Scalar) (*EqualityStatement, Witness) {
	grp := g.Group()
	return &EqualityStatement{
		G: g.Copy(),
		H: h.Copy(),
		A: grp.NewElement().Mul(g, x),
		B: grp.NewElement().Mul(h, x),
	}, Witness{X: x.Copy()}
}

// NewEquality proves an EqualityStatement (Chaum-Pedersen). The fragments "a"
// and "b" share the variable x, so both are answered with one response.
func NewEquality(g group.Group) *schnorr.DelegateProtocol {
	return schnorr.NewDelegateProtocol(g, equality{g: g})
}

type equality struct {
	g group.Group
}

func (e equality) statement(ci sigma.CommonInput) (*EqualityStatement, error) {
	st, ok := ci.(*EqualityStatement)
	if !ok || st == nil || st.G == nil || st.H == nil || st.A == nil || st.B == nil {
		return nil, fmt.Errorf("%w: equality common input is %T", sigma.ErrMalformed, ci)
	}
	for _, el := range []group.Element{st.G, st.H, st.A, st.B} {
		if el.Group() != e.g {
			return nil, fmt.Errorf("%w: equality statement outside %s", sigma.ErrMalformed, e.g)
		}
	}
	return st, nil
}

func (e equality) ProverSpec(ci sigma.CommonInput, si sigma.SecretInput, b *schnorr.ProverSpecBuilder) error {
	if _, err := e.statement(ci); err != nil {
		return err
	}
	x, err := witnessOf(si, e.g)
	if err != nil {
		return err
	}
	b.PutExponentWitness("x", x)
	return nil
}

func (e equality) SubprotocolSpec(ci sigma.CommonInput, b *schnorr.SubprotocolSpecBuilder) error {
	st, err := e.statement(ci)
	if err != nil {
		return err
	}
	x := b.AddExponentVariable("x")
	b.AddLinear("a", schnorr.Pow(schnorr.Elem(st.G), x), schnorr.Elem(st.A))
	b.AddLinear("b", schnorr.Pow(schnorr.Elem(st.H), x), schnorr.Elem(st.B))
	return nil
}
