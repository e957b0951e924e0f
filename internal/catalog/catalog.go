// Package catalog builds the named demo statements that sigmactl serves and
// proves. Every statement and witness is derived from a seed, so a server and
// a prover started with the same seed agree on the statements without any
// exchange. The witnesses are therefore public to anyone holding the seed.
package catalog

import (
	"fmt"
	"io"
	"sort"

	"github.com/cloudflare/circl/group"
	"golang.org/x/crypto/sha3"

	"sigmakit/internal/crypto"
	"sigmakit/internal/sigma"
	"sigmakit/internal/sigma/partial"
	"sigmakit/internal/zk/dlog"
	"sigmakit/internal/zk/linear"
	"sigmakit/internal/zk/pedersen"
)

const readerDST = "sigmakit/catalog/v0"

// Entry is one named statement with the witness that proves it.
type Entry struct {
	Name     string
	Protocol sigma.Protocol
	Input    sigma.CommonInput
	Secret   sigma.SecretInput
}

// Reader returns the deterministic stream statements are drawn from.
func Reader(seed string) io.Reader {
	h := sha3.NewShake256()
	_, _ = h.Write([]byte(readerDST))
	_, _ = h.Write([]byte(seed))
	return h
}

// drawer hashes scalars and elements off the seeded stream and keeps the
// first read error.
type drawer struct {
	rnd io.Reader
	g   group.Group
	err error
}

func (d *drawer) scalar() group.Scalar {
	if d.err != nil {
		return d.g.NewScalar()
	}
	s, err := crypto.RandomScalar(d.g, d.rnd)
	if err != nil {
		d.err = err
		return d.g.NewScalar()
	}
	return s
}

func (d *drawer) element() group.Element {
	if d.err != nil {
		return d.g.Generator()
	}
	e, err := crypto.RandomElement(d.g, d.rnd)
	if err != nil {
		d.err = err
		return d.g.Generator()
	}
	return e
}

// New builds the catalog for seed, sorted by name. The same seed always
// yields the same statements and witnesses.
func New(seed string) ([]Entry, error) {
	rnd := Reader(seed)
	g := pedersen.Group()
	d := &drawer{rnd: rnd, g: g}
	var out []Entry

	x := d.scalar()
	st, w := dlog.NewStatement(g.Generator(), x)
	out = append(out,
		Entry{Name: "dlog", Protocol: dlog.Protocol{}, Input: st, Secret: w},
		Entry{Name: "dlog-linear", Protocol: dlog.NewKnowledge(g), Input: st, Secret: w},
	)

	eq, ew := dlog.NewEqualityStatement(g.Generator(), d.element(), d.scalar())
	out = append(out, Entry{Name: "equality", Protocol: dlog.NewEquality(g), Input: eq, Secret: ew})

	m := d.scalar()
	c, r, err := pedersen.Commit(rnd, m)
	if err != nil {
		return nil, fmt.Errorf("opening: %w", err)
	}
	out = append(out, Entry{
		Name:     "opening",
		Protocol: pedersen.NewOpening(),
		Input:    &pedersen.OpeningStatement{C: c},
		Secret:   pedersen.Opening{M: m, R: r},
	})

	gen, _, err := pedersen.Generators()
	if err != nil {
		return nil, err
	}
	cx := d.scalar()
	out = append(out, Entry{
		Name:     "committed-dlog",
		Protocol: pedersen.NewCommittedDLog(),
		Input:    &pedersen.CommittedDLogStatement{A: g.NewElement().Mul(gen, cx)},
		Secret:   pedersen.CommittedDLogWitness{X: cx},
	})

	nullspace, err := nullspaceEntry(d)
	if err != nil {
		return nil, fmt.Errorf("nullspace: %w", err)
	}
	out = append(out, nullspace)

	// two inputs and two outputs that carry the same total
	bst, bw, err := linear.CommitInt64(rnd, [][]int64{{1, 1, -1, -1}}, []int64{5, 7, 4, 8})
	if err != nil {
		return nil, fmt.Errorf("balance: %w", err)
	}
	out = append(out, Entry{Name: "balance", Protocol: linear.NewNullspace(), Input: bst, Secret: bw})

	out = append(out, Entry{
		Name:     "and",
		Protocol: sigma.NewAndProof(dlog.Protocol{}, dlog.NewEquality(g)),
		Input:    sigma.CommonInputVector{st, eq},
		Secret:   sigma.SecretInputVector{w, ew},
	})

	// the right branch is a statement nobody was handed a witness for
	stranger, _ := dlog.NewStatement(g.Generator(), d.scalar())
	out = append(out, Entry{
		Name:     "or",
		Protocol: sigma.NewOrProof(dlog.Protocol{}, dlog.Protocol{}),
		Input:    sigma.CommonInputVector{st, stranger},
		Secret:   sigma.OrSecretInput{Branch: 0, Secret: w},
	})

	tree, witnesses := treeEntry(d)
	out = append(out, Entry{Name: "tree", Protocol: partial.NewTreeProof(), Input: tree, Secret: witnesses})
	if d.err != nil {
		return nil, d.err
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// nullspaceEntry commits to (v, v, v) under the matrix that forces equal
// entries.
func nullspaceEntry(d *drawer) (Entry, error) {
	v := d.scalar()
	L := [][]int64{
		{1, -1, 0},
		{0, 1, -1},
	}
	st, w, err := linear.Commit(d.rnd, L, []pedersen.Scalar{v, v.Copy(), v.Copy()})
	if err != nil {
		return Entry{}, err
	}
	return Entry{Name: "nullspace", Protocol: linear.NewNullspace(), Input: st, Secret: w}, nil
}

// treeEntry is or(and(a,b),c) with a witness for c only, so the and branch
// is simulated.
func treeEntry(d *drawer) (*partial.ProtocolTree, partial.Witnesses) {
	leaves := make(map[string]*dlog.Statement, 3)
	witnesses := make(partial.Witnesses, 1)
	for _, name := range []string{"a", "b", "c"} {
		st, w := dlog.NewStatement(d.g.Generator(), d.scalar())
		leaves[name] = st
		if name == "c" {
			witnesses[name] = w
		}
	}
	leaf := func(name string) *partial.ProtocolTree {
		return partial.Leaf(name, dlog.Protocol{}, leaves[name])
	}
	return partial.Or(partial.And(leaf("a"), leaf("b")), leaf("c")), witnesses
}

// Find returns the entry called name.
func Find(entries []Entry, name string) (Entry, bool) {
	for _, e := range entries {
		if e.Name == name {
			return e, true
		}
	}
	return Entry{}, false
}

// Names lists the entry names in catalog order.
func Names(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Name
	}
	return out
}
