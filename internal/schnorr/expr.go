package schnorr

import (
	"fmt"

	"github.com/cloudflare/circl/group"
)

// ExponentExpr is an arithmetic expression over scalars and exponent
// variables.
type ExponentExpr interface {
	affine() (*affineExponent, error)
}

// GroupExpr is an expression over group elements, group variables and powers.
// The group is written additively: Op is the group operation, Pow(b, e) is e·b.
type GroupExpr interface {
	affineGroup() (*affineGroup, error)
}

type constExp struct{ s group.Scalar }
type sumExp struct{ terms []ExponentExpr }
type productExp struct{ a, b ExponentExpr }
type negExp struct{ a ExponentExpr }

type constElem struct{ e group.Element }
type opExpr struct{ terms []GroupExpr }
type powExpr struct {
	base GroupExpr
	exp  ExponentExpr
}
type invExpr struct{ a GroupExpr }

func Const(s group.Scalar) ExponentExpr { return constExp{s: s} }
func Sum(terms ...ExponentExpr) ExponentExpr { return sumExp{terms: terms} }
func Product(a, b ExponentExpr) ExponentExpr { return productExp{a: a, b: b} }
func Negate(a ExponentExpr) ExponentExpr { return negExp{a: a} }
func Difference(a, b ExponentExpr) ExponentExpr { return Sum(a, Negate(b)) }

func Elem(e group.Element) GroupExpr { return constElem{e: e} }
func Op(terms ...GroupExpr) GroupExpr { return opExpr{terms: terms} }
func Pow(base GroupExpr, e ExponentExpr) GroupExpr { return powExpr{base: base, exp: e} }
func Inv(a GroupExpr) GroupExpr { return invExpr{a: a} }

// affineExponent is konst + Σ coeffs[v]·v.
type affineExponent struct {
	g      group.Group
	konst  group.Scalar
	coeffs map[*ExponentVariable]group.Scalar
}

func newAffineExponent(g group.Group) *affineExponent {
	return &affineExponent{g: g, konst: g.NewScalar(), coeffs: make(map[*ExponentVariable]group.Scalar)}
}

func (f *affineExponent) constant() bool { return len(f.coeffs) == 0 }

func (f *affineExponent) add(o *affineExponent) error {
	if f.g != o.g {
		return fmt.Errorf("%w: exponents from %s and %s", ErrNotLinear, f.g, o.g)
	}
	f.konst.Add(f.konst, o.konst)
	for v, c := range o.coeffs {
		if cur, ok := f.coeffs[v]; ok {
			f.coeffs[v] = f.g.NewScalar().Add(cur, c)
		} else {
			f.coeffs[v] = c.Copy()
		}
	}
	return nil
}

func (f *affineExponent) scale(k group.Scalar) {
	f.konst = f.g.NewScalar().Mul(f.konst, k)
	for v, c := range f.coeffs {
		f.coeffs[v] = f.g.NewScalar().Mul(c, k)
	}
}

// eval returns Σ coeffs[v]·a(v), without the constant.
func (f *affineExponent) eval(a *Assignment) (group.Scalar, error) {
	acc := f.g.NewScalar()
	for v, c := range f.coeffs {
		s, err := a.mustExponent(v)
		if err != nil {
			return nil, err
		}
		acc.Add(acc, f.g.NewScalar().Mul(c, s))
	}
	return acc, nil
}

func (c constExp) affine() (*affineExponent, error) {
	if c.s == nil {
		return nil, fmt.Errorf("%w: nil scalar", ErrNotLinear)
	}
	f := newAffineExponent(c.s.Group())
	f.konst = c.s.Copy()
	return f, nil
}

func (v *ExponentVariable) affine() (*affineExponent, error) {
	f := newAffineExponent(v.g)
	f.coeffs[v] = v.g.NewScalar().SetUint64(1)
	return f, nil
}

func (s sumExp) affine() (*affineExponent, error) {
	if len(s.terms) == 0 {
		return nil, fmt.Errorf("%w: empty sum", ErrNotLinear)
	}
	acc, err := s.terms[0].affine()
	if err != nil {
		return nil, err
	}
	for _, t := range s.terms[1:] {
		f, err := t.affine()
		if err != nil {
			return nil, err
		}
		if err := acc.add(f); err != nil {
			return nil, err
		}
	}
	return acc, nil
}

func (p productExp) affine() (*affineExponent, error) {
	a, err := p.a.affine()
	if err != nil {
		return nil, err
	}
	b, err := p.b.affine()
	if err != nil {
		return nil, err
	}
	if a.g != b.g {
		return nil, fmt.Errorf("%w: product of exponents from %s and %s", ErrNotLinear, a.g, b.g)
	}
	switch {
	case a.constant():
		b.scale(a.konst)
		return b, nil
	case b.constant():
		a.scale(b.konst)
		return a, nil
	}
	return nil, fmt.Errorf("%w: product of two variable terms", ErrNotLinear)
}

func (n negExp) affine() (*affineExponent, error) {
	f, err := n.a.affine()
	if err != nil {
		return nil, err
	}
	f.scale(f.g.NewScalar().Neg(f.g.NewScalar().SetUint64(1)))
	return f, nil
}

// affineGroup is konst + Σ exps[v]·v + Σ elems[w]·w: exponent variables
// carry a base element, group variables a scalar coefficient.
type affineGroup struct {
	g     group.Group
	konst group.Element
	exps  map[*ExponentVariable]group.Element
	elems map[*GroupVariable]group.Scalar
}

func newAffineGroup(g group.Group) *affineGroup {
	return &affineGroup{
		g:     g,
		konst: g.Identity(),
		exps:  make(map[*ExponentVariable]group.Element),
		elems: make(map[*GroupVariable]group.Scalar),
	}
}

func (f *affineGroup) constant() bool { return len(f.exps) == 0 && len(f.elems) == 0 }

func (f *affineGroup) add(o *affineGroup) error {
	if f.g != o.g {
		return fmt.Errorf("%w: elements from %s and %s", ErrNotLinear, f.g, o.g)
	}
	f.konst.Add(f.konst, o.konst)
	for v, b := range o.exps {
		if cur, ok := f.exps[v]; ok {
			f.exps[v] = f.g.NewElement().Add(cur, b)
		} else {
			f.exps[v] = b.Copy()
		}
	}
	for w, c := range o.elems {
		if cur, ok := f.elems[w]; ok {
			f.elems[w] = f.g.NewScalar().Add(cur, c)
		} else {
			f.elems[w] = c.Copy()
		}
	}
	return nil
}

func (f *affineGroup) scale(k group.Scalar) {
	f.konst = f.g.NewElement().Mul(f.konst, k)
	for v, b := range f.exps {
		f.exps[v] = f.g.NewElement().Mul(b, k)
	}
	for w, c := range f.elems {
		f.elems[w] = f.g.NewScalar().Mul(c, k)
	}
}

// eval returns the homomorphic part at a, without the constant.
func (f *affineGroup) eval(a *Assignment) (group.Element, error) {
	acc := f.g.Identity()
	for v, b := range f.exps {
		s, err := a.mustExponent(v)
		if err != nil {
			return nil, err
		}
		acc.Add(acc, f.g.NewElement().Mul(b, s))
	}
	for w, c := range f.elems {
		e, err := a.mustElement(w)
		if err != nil {
			return nil, err
		}
		acc.Add(acc, f.g.NewElement().Mul(e, c))
	}
	return acc, nil
}

func (c constElem) affineGroup() (*affineGroup, error) {
	if c.e == nil {
		return nil, fmt.Errorf("%w: nil element", ErrNotLinear)
	}
	f := newAffineGroup(c.e.Group())
	f.konst = c.e.Copy()
	return f, nil
}

func (w *GroupVariable) affineGroup() (*affineGroup, error) {
	f := newAffineGroup(w.g)
	f.elems[w] = w.g.NewScalar().SetUint64(1)
	return f, nil
}

func (o opExpr) affineGroup() (*affineGroup, error) {
	if len(o.terms) == 0 {
		return nil, fmt.Errorf("%w: empty group operation", ErrNotLinear)
	}
	acc, err := o.terms[0].affineGroup()
	if err != nil {
		return nil, err
	}
	for _, t := range o.terms[1:] {
		f, err := t.affineGroup()
		if err != nil {
			return nil, err
		}
		if err := acc.add(f); err != nil {
			return nil, err
		}
	}
	return acc, nil
}

func (p powExpr) affineGroup() (*affineGroup, error) {
	base, err := p.base.affineGroup()
	if err != nil {
		return nil, err
	}
	e, err := p.exp.affine()
	if err != nil {
		return nil, err
	}
	if base.g != e.g {
		return nil, fmt.Errorf("%w: %s element raised to a %s exponent", ErrNotLinear, base.g, e.g)
	}
	if e.constant() {
		base.scale(e.konst)
		return base, nil
	}
	if !base.constant() {
		return nil, fmt.Errorf("%w: variable base raised to a variable exponent", ErrNotLinear)
	}
	out := newAffineGroup(base.g)
	out.konst = base.g.NewElement().Mul(base.konst, e.konst)
	for v, c := range e.coeffs {
		out.exps[v] = base.g.NewElement().Mul(base.konst, c)
	}
	return out, nil
}

func (n invExpr) affineGroup() (*affineGroup, error) {
	f, err := n.a.affineGroup()
	if err != nil {
		return nil, err
	}
	f.scale(f.g.NewScalar().Neg(f.g.NewScalar().SetUint64(1)))
	return f, nil
}
