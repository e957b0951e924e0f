// Package boolexpr holds symbolic verification predicates. Composed protocols
// collect the checks of their branches into one expression and evaluate it once.
package boolexpr

import (
	"fmt"
	"strings"

	"github.com/cloudflare/circl/group"
)

// Expr is a predicate that has not been evaluated yet.
type Expr interface {
	Evaluate() bool
	String() string
}

type constExpr bool

func (c constExpr) Evaluate() bool { return bool(c) }

func (c constExpr) String() string {
	if c {
		return "true"
	}
	return "false"
}

// True returns the predicate that always holds.
func True() Expr { return constExpr(true) }

// False returns the predicate that never holds.
func False() Expr { return constExpr(false) }

// Bool lifts an already computed outcome.
func Bool(b bool) Expr { return constExpr(b) }

type elementEq struct {
	a, b group.Element
}

func (e *elementEq) Evaluate() bool {
	if e.a == nil || e.b == nil {
		return false
	}
	return e.a.IsEqual(e.b)
}

func (e *elementEq) String() string { return "elem(lhs) == elem(rhs)" }

// ElementsEqual is the predicate a == b over group elements.
func ElementsEqual(a, b group.Element) Expr {
	return &elementEq{a: a, b: b}
}

type scalarEq struct {
	a, b group.Scalar
}

func (e *scalarEq) Evaluate() bool {
	if e.a == nil || e.b == nil {
		return false
	}
	return e.a.IsEqual(e.b)
}

func (e *scalarEq) String() string { return "scalar(lhs) == scalar(rhs)" }

// ScalarsEqual is the predicate a == b over exponents.
func ScalarsEqual(a, b group.Scalar) Expr {
	return &scalarEq{a: a, b: b}
}

type funcExpr struct {
	label string
	fn    func() bool
}

func (f *funcExpr) Evaluate() bool { return f.fn() }
func (f *funcExpr) String() string { return f.label }

// Func wraps a deferred check. The function runs on every evaluation.
func Func(label string, fn func() bool) Expr {
	return &funcExpr{label: label, fn: fn}
}

type andExpr []Expr

func (a andExpr) Evaluate() bool {
	for _, e := range a {
		if !e.Evaluate() {
			return false
		}
	}
	return true
}

func (a andExpr) String() string { return join(a, " && ") }

type orExpr []Expr

func (o orExpr) Evaluate() bool {
	for _, e := range o {
		if e.Evaluate() {
			return true
		}
	}
	return false
}

func (o orExpr) String() string { return join(o, " || ") }

type notExpr struct{ e Expr }

func (n notExpr) Evaluate() bool  { return !n.e.Evaluate() }
func (n notExpr) String() string { return "!(" + n.e.String() + ")" }

// And is the conjunction of its operands. Nested conjunctions are flattened and
// constant true operands dropped.
func And(es ...Expr) Expr {
	out := make(andExpr, 0, len(es))
	for _, e := range es {
		switch v := e.(type) {
		case nil:
			return False()
		case constExpr:
			if !v {
				return False()
			}
		case andExpr:
			out = append(out, v...)
		default:
			out = append(out, e)
		}
	}
	switch len(out) {
	case 0:
		return True()
	case 1:
		return out[0]
	}
	return out
}

// Or is the disjunction of its operands.
func Or(es ...Expr) Expr {
	out := make(orExpr, 0, len(es))
	for _, e := range es {
		switch v := e.(type) {
		case nil:
			continue
		case constExpr:
			if v {
				return True()
			}
		case orExpr:
			out = append(out, v...)
		default:
			out = append(out, e)
		}
	}
	switch len(out) {
	case 0:
		return False()
	case 1:
		return out[0]
	}
	return out
}

// Not negates e.
func Not(e Expr) Expr {
	if c, ok := e.(constExpr); ok {
		return !c
	}
	return notExpr{e: e}
}

func join(es []Expr, sep string) string {
	parts := make([]string, len(es))
	for i, e := range es {
		parts[i] = e.String()
	}
	return fmt.Sprintf("(%s)", strings.Join(parts, sep))
}
