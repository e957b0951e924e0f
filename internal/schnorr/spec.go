package schnorr

import (
	"fmt"
	"sort"

	"github.com/cloudflare/circl/group"

	"sigmakit/internal/sigma"
)

// ProverSpecBuilder collects what the prover commits to before the
// subprotocols are fixed: the send-first value, set exactly once, and the
// witnesses of the variables the fragment will own, keyed by variable name.
type ProverSpecBuilder struct {
	sfv    sigma.SendFirstValue
	sfvSet bool
	exps   map[string]group.Scalar
	elems  map[string]group.Element
	err    error
}

func newProverSpecBuilder() *ProverSpecBuilder {
	return &ProverSpecBuilder{
		exps:  make(map[string]group.Scalar),
		elems: make(map[string]group.Element),
	}
}

func (b *ProverSpecBuilder) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

func (b *ProverSpecBuilder) SetSendFirstValue(sfv sigma.SendFirstValue) {
	if b.sfvSet {
		b.fail(fmt.Errorf("%w: send-first value set twice", ErrSpec))
		return
	}
	if sfv == nil {
		b.fail(fmt.Errorf("%w: nil send-first value", ErrSpec))
		return
	}
	b.sfv, b.sfvSet = sfv, true
}

func (b *ProverSpecBuilder) PutExponentWitness(name string, s group.Scalar) {
	if _, dup := b.exps[name]; dup {
		b.fail(fmt.Errorf("%w: exponent witness %q given twice", ErrSpec, name))
		return
	}
	b.exps[name] = s
}

func (b *ProverSpecBuilder) PutGroupWitness(name string, e group.Element) {
	if _, dup := b.elems[name]; dup {
		b.fail(fmt.Errorf("%w: group witness %q given twice", ErrSpec, name))
		return
	}
	b.elems[name] = e
}

func (b *ProverSpecBuilder) build() (*proverSpec, error) {
	if b.err != nil {
		return nil, b.err
	}
	if !b.sfvSet {
		return nil, fmt.Errorf("%w: send-first value never set", ErrSpec)
	}
	return &proverSpec{sfv: b.sfv, exps: b.exps, elems: b.elems}, nil
}

type proverSpec struct {
	sfv   sigma.SendFirstValue
	exps  map[string]group.Scalar
	elems map[string]group.Element
}

// witnesses binds the named witnesses to the variables declared by spec.
func (p *proverSpec) witnesses(spec *SubprotocolSpec) (*Assignment, error) {
	out := NewAssignment()
	for _, v := range spec.exps {
		s, ok := p.exps[v.name]
		if !ok {
			return nil, fmt.Errorf("%w: no witness for exponent variable %q", ErrSpec, v.name)
		}
		if s == nil || s.Group() != v.g {
			return nil, fmt.Errorf("%w: witness for %q is not a %s scalar", ErrSpec, v.name, v.g)
		}
		out.SetExponent(v, s)
	}
	for _, v := range spec.elems {
		e, ok := p.elems[v.name]
		if !ok {
			return nil, fmt.Errorf("%w: no witness for group variable %q", ErrSpec, v.name)
		}
		if e == nil || e.Group() != v.g {
			return nil, fmt.Errorf("%w: witness for %q is not a %s element", ErrSpec, v.name, v.g)
		}
		out.SetElement(v, e)
	}
	return out, nil
}

// SubprotocolSpecBuilder declares the variables a delegating fragment owns and
// the child fragments that refer to them.
type SubprotocolSpecBuilder struct {
	g         group.Group
	names     map[string]bool
	exps      []*ExponentVariable
	elems     []*GroupVariable
	fragments map[string]Fragment
	err       error
}

func newSubprotocolSpecBuilder(g group.Group) *SubprotocolSpecBuilder {
	return &SubprotocolSpecBuilder{
		g:         g,
		names:     make(map[string]bool),
		fragments: make(map[string]Fragment),
	}
}

func (b *SubprotocolSpecBuilder) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

func (b *SubprotocolSpecBuilder) Group() group.Group { return b.g }

func (b *SubprotocolSpecBuilder) declare(name string) bool {
	if b.names[name] {
		b.fail(fmt.Errorf("%w: variable %q declared twice", ErrSpec, name))
		return false
	}
	b.names[name] = true
	return true
}

// AddExponentVariable declares an owned exponent variable. The returned
// variable is valid even after a duplicate declaration, which is reported by
// the build.
func (b *SubprotocolSpecBuilder) AddExponentVariable(name string) *ExponentVariable {
	v := NewExponentVariable(name, b.g)
	if b.declare(name) {
		b.exps = append(b.exps, v)
	}
	return v
}

func (b *SubprotocolSpecBuilder) AddGroupVariable(name string) *GroupVariable {
	v := NewGroupVariable(name, b.g)
	if b.declare(name) {
		b.elems = append(b.elems, v)
	}
	return v
}

func (b *SubprotocolSpecBuilder) AddFragment(name string, f Fragment) {
	if _, dup := b.fragments[name]; dup {
		b.fail(fmt.Errorf("%w: fragment %q added twice", ErrSpec, name))
		return
	}
	if f == nil {
		b.fail(fmt.Errorf("%w: nil fragment %q", ErrSpec, name))
		return
	}
	b.fragments[name] = f
}

// AddLinear adds a LinearStatementFragment for lhs = rhs.
func (b *SubprotocolSpecBuilder) AddLinear(name string, lhs, rhs GroupExpr) {
	f, err := NewLinearStatementFragment(lhs, rhs)
	if err != nil {
		b.fail(fmt.Errorf("fragment %q: %w", name, err))
		return
	}
	b.AddFragment(name, f)
}

// AddLinearExponent adds a LinearExponentStatementFragment for lhs = rhs.
func (b *SubprotocolSpecBuilder) AddLinearExponent(name string, lhs, rhs ExponentExpr) {
	f, err := NewLinearExponentStatementFragment(lhs, rhs)
	if err != nil {
		b.fail(fmt.Errorf("fragment %q: %w", name, err))
		return
	}
	b.AddFragment(name, f)
}

func (b *SubprotocolSpecBuilder) build() (*SubprotocolSpec, error) {
	if b.err != nil {
		return nil, b.err
	}
	if len(b.fragments) == 0 {
		return nil, fmt.Errorf("%w: no subprotocol fragments", ErrSpec)
	}
	names := make([]string, 0, len(b.fragments))
	for name := range b.fragments {
		names = append(names, name)
	}
	sort.Strings(names)
	frags := make([]Fragment, len(names))
	for i, name := range names {
		frags[i] = b.fragments[name]
	}
	return &SubprotocolSpec{exps: b.exps, elems: b.elems, names: names, fragments: frags}, nil
}

// SubprotocolSpec is the owned variables, in declaration order, and the child
// fragments, ordered by name.
type SubprotocolSpec struct {
	exps      []*ExponentVariable
	elems     []*GroupVariable
	names     []string
	fragments []Fragment
}

func (s *SubprotocolSpec) FragmentNames() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

func (s *SubprotocolSpec) ExponentVariables() []*ExponentVariable {
	out := make([]*ExponentVariable, len(s.exps))
	copy(out, s.exps)
	return out
}

func (s *SubprotocolSpec) GroupVariables() []*GroupVariable {
	out := make([]*GroupVariable, len(s.elems))
	copy(out, s.elems)
	return out
}
