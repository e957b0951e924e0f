// Package partial proves an arbitrary And/Or formula over named leaf
// protocols when the prover holds witnesses for only some leaves.
package partial

import (
	"errors"
	"fmt"
	"strings"

	"sigmakit/internal/sigma"
)

// ErrNoWitness is returned when the prover's witnesses do not satisfy the
// tree.
var ErrNoWitness = errors.New("partial: no witness satisfies the protocol tree")

type nodeKind int

const (
	leafNode nodeKind = iota
	andNode
	orNode
)

// ProtocolTree is an immutable formula over leaf protocols.
type ProtocolTree struct {
	kind        nodeKind
	name        string
	protocol    sigma.Protocol
	input       sigma.CommonInput
	left, right *ProtocolTree
	preferRight bool
}

// Witnesses maps leaf names to secret inputs.
type Witnesses map[string]sigma.SecretInput

func Leaf(name string, p sigma.Protocol, ci sigma.CommonInput) *ProtocolTree {
	return &ProtocolTree{kind: leafNode, name: name, protocol: p, input: ci}
}

func And(l, r *ProtocolTree) *ProtocolTree {
	return &ProtocolTree{kind: andNode, left: l, right: r}
}

// Or holds when either child does. With witnesses for both children the
// proof goes through the left one.
func Or(l, r *ProtocolTree) *ProtocolTree {
	return &ProtocolTree{kind: orNode, left: l, right: r}
}

// OrPreferRight is Or resolving a double witness through the right child.
// The resulting proofs are indistinguishable from Or's.
func OrPreferRight(l, r *ProtocolTree) *ProtocolTree {
	return &ProtocolTree{kind: orNode, left: l, right: r, preferRight: true}
}

func (t *ProtocolTree) String() string {
	var b strings.Builder
	t.format(&b)
	return b.String()
}

func (t *ProtocolTree) format(b *strings.Builder) {
	if t == nil {
		b.WriteString("<nil>")
		return
	}
	switch t.kind {
	case leafNode:
		b.WriteString(t.name)
		return
	case andNode:
		b.WriteString("and(")
	case orNode:
		b.WriteString("or(")
	}
	t.left.format(b)
	b.WriteByte(',')
	t.right.format(b)
	b.WriteByte(')')
}

// Leaves returns the leaf names from left to right.
func (t *ProtocolTree) Leaves() []string {
	var out []string
	t.walk(func(n *ProtocolTree) { out = append(out, n.name) })
	return out
}

func (t *ProtocolTree) walk(visit func(*ProtocolTree)) {
	if t == nil {
		return
	}
	if t.kind == leafNode {
		visit(t)
		return
	}
	t.left.walk(visit)
	t.right.walk(visit)
}

// Validate rejects nil nodes, leaves without a protocol and duplicate leaf
// names.
func (t *ProtocolTree) Validate() error {
	seen := make(map[string]bool)
	var check func(n *ProtocolTree) error
	check = func(n *ProtocolTree) error {
		if n == nil {
			return fmt.Errorf("%w: nil tree node", sigma.ErrMalformed)
		}
		if n.kind != leafNode {
			if err := check(n.left); err != nil {
				return err
			}
			return check(n.right)
		}
		if n.protocol == nil {
			return fmt.Errorf("%w: leaf %q has no protocol", sigma.ErrMalformed, n.name)
		}
		if seen[n.name] {
			return fmt.Errorf("%w: duplicate leaf %q", sigma.ErrMalformed, n.name)
		}
		seen[n.name] = true
		return nil
	}
	return check(t)
}

// Compile turns the tree into nested AndProof and OrProof protocols, with
// the matching nested common input vectors.
func (t *ProtocolTree) Compile() (sigma.Protocol, sigma.CommonInput, error) {
	if err := t.Validate(); err != nil {
		return nil, nil, err
	}
	p, ci := t.compile()
	return p, ci, nil
}

func (t *ProtocolTree) compile() (sigma.Protocol, sigma.CommonInput) {
	if t.kind == leafNode {
		return t.protocol, t.input
	}
	lp, lci := t.left.compile()
	rp, rci := t.right.compile()
	cis := sigma.CommonInputVector{lci, rci}
	if t.kind == andNode {
		return sigma.NewAndProof(lp, rp), cis
	}
	return sigma.NewOrProof(lp, rp), cis
}

// SecretInput resolves w bottom-up into the secret input of the compiled
// protocol. A leaf has a witness if w names it, an And node if both children
// do, an Or node if either does. The boolean is false when the root has
// none.
func (t *ProtocolTree) SecretInput(w Witnesses) (sigma.SecretInput, bool) {
	if t == nil {
		return nil, false
	}
	switch t.kind {
	case leafNode:
		si, ok := w[t.name]
		return si, ok
	case andNode:
		l, ok := t.left.SecretInput(w)
		if !ok {
			return nil, false
		}
		r, ok := t.right.SecretInput(w)
		if !ok {
			return nil, false
		}
		return sigma.SecretInputVector{l, r}, true
	default:
		l, lok := t.left.SecretInput(w)
		r, rok := t.right.SecretInput(w)
		switch {
		case lok && (!rok || !t.preferRight):
			return sigma.OrSecretInput{Branch: 0, Secret: l}, true
		case rok:
			return sigma.OrSecretInput{Branch: 1, Secret: r}, true
		}
		return nil, false
	}
}
