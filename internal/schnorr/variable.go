// Package schnorr expresses linear relations over shared exponent and group
// variables and compiles them into sigma protocols.
//
// A Fragment is a sigma protocol that may refer to variables owned by an
// enclosing fragment. The owner samples the randomness and produces the
// response for each variable; every fragment that refers to the variable reads
// the same values through an Assignment.
package schnorr

import (
	"errors"
	"fmt"

	"github.com/cloudflare/circl/group"
)

var (
	// ErrNotLinear reports an expression that is not linear in its variables
	// or mixes groups.
	ErrNotLinear = errors.New("schnorr: expression is not linear")
	// ErrSpec reports misuse of a spec builder or a variable with no value.
	ErrSpec = errors.New("schnorr: invalid spec")
)

// ExponentVariable stands for an unknown scalar. Variables are compared by
// identity, not by name.
type ExponentVariable struct {
	name string
	g    group.Group
}

func NewExponentVariable(name string, g group.Group) *ExponentVariable {
	return &ExponentVariable{name: name, g: g}
}

func (v *ExponentVariable) Name() string { return v.name }
func (v *ExponentVariable) Group() group.Group { return v.g }

// GroupVariable stands for an unknown group element.
type GroupVariable struct {
	name string
	g    group.Group
}

func NewGroupVariable(name string, g group.Group) *GroupVariable {
	return &GroupVariable{name: name, g: g}
}

func (v *GroupVariable) Name() string { return v.name }
func (v *GroupVariable) Group() group.Group { return v.g }

// Assignment maps variables to values. Lookups that miss fall through to the
// parent, so a fragment can layer its own variables over the ones it was
// handed without copying them.
type Assignment struct {
	exps   map[*ExponentVariable]group.Scalar
	elems  map[*GroupVariable]group.Element
	parent *Assignment
}

func NewAssignment() *Assignment {
	return &Assignment{
		exps:  make(map[*ExponentVariable]group.Scalar),
		elems: make(map[*GroupVariable]group.Element),
	}
}

// Over returns a view of a whose misses are answered by parent. The view
// shares a's maps.
func (a *Assignment) Over(parent *Assignment) *Assignment {
	return &Assignment{exps: a.exps, elems: a.elems, parent: parent}
}

func (a *Assignment) SetExponent(v *ExponentVariable, s group.Scalar) {
	a.exps[v] = s
}

func (a *Assignment) SetElement(v *GroupVariable, e group.Element) {
	a.elems[v] = e
}

func (a *Assignment) Exponent(v *ExponentVariable) (group.Scalar, bool) {
	for cur := a; cur != nil; cur = cur.parent {
		if s, ok := cur.exps[v]; ok {
			return s, true
		}
	}
	return nil, false
}

func (a *Assignment) Element(v *GroupVariable) (group.Element, bool) {
	for cur := a; cur != nil; cur = cur.parent {
		if e, ok := cur.elems[v]; ok {
			return e, true
		}
	}
	return nil, false
}

func (a *Assignment) mustExponent(v *ExponentVariable) (group.Scalar, error) {
	s, ok := a.Exponent(v)
	if !ok {
		return nil, fmt.Errorf("%w: exponent variable %q is unassigned", ErrSpec, v.name)
	}
	return s, nil
}

func (a *Assignment) mustElement(v *GroupVariable) (group.Element, error) {
	e, ok := a.Element(v)
	if !ok {
		return nil, fmt.Errorf("%w: group variable %q is unassigned", ErrSpec, v.name)
	}
	return e, nil
}
