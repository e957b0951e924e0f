package partial

import (
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/cloudflare/circl/group"
	"github.com/stretchr/testify/require"

	"sigmakit/internal/boolexpr"
	"sigmakit/internal/schnorr"
	"sigmakit/internal/sigma"
	"sigmakit/internal/testutil"
	"sigmakit/internal/zk/dlog"
)

type leafFixture struct {
	st *dlog.Statement
	w  dlog.Witness
}

func fixtures(rnd io.Reader, g group.Group, names ...string) map[string]leafFixture {
	out := make(map[string]leafFixture, len(names))
	for _, n := range names {
		st, w := dlog.NewStatement(g.Generator(), testutil.Scalar(g, rnd))
		out[n] = leafFixture{st: st, w: w}
	}
	return out
}

func leaf(f map[string]leafFixture, name string) *ProtocolTree {
	return Leaf(name, dlog.Protocol{}, f[name].st)
}

func witnesses(f map[string]leafFixture, names ...string) Witnesses {
	w := make(Witnesses, len(names))
	for _, n := range names {
		w[n] = f[n].w
	}
	return w
}

func requireAccepts(t *testing.T, p sigma.Protocol, ci sigma.CommonInput, tr *sigma.Transcript) {
	t.Helper()
	ok, err := sigma.CheckTranscript(p, ci, tr)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestTreeScenarios(t *testing.T) {
	rnd := testutil.NewReader(t.Name())
	f := fixtures(rnd, group.Ristretto255, "a", "b", "c", "d")
	cases := []struct {
		name  string
		tree  *ProtocolTree
		known []string
	}{
		{"or-right-only", Or(leaf(f, "a"), leaf(f, "b")), []string{"b"}},
		{"and-of-or", And(Or(leaf(f, "a"), leaf(f, "b")), leaf(f, "c")), []string{"a", "c"}},
		{"or-of-and-simulated", Or(And(leaf(f, "a"), leaf(f, "b")), leaf(f, "c")), []string{"c"}},
		{"deep", Or(And(leaf(f, "a"), Or(leaf(f, "b"), leaf(f, "c"))), leaf(f, "d")), []string{"a", "c"}},
		{"single-leaf", leaf(f, "a"), []string{"a"}},
	}
	p := NewTreeProof()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tr, err := sigma.Run(p, rnd, tc.tree, witnesses(f, tc.known...))
			require.NoError(t, err)
			requireAccepts(t, p, tc.tree, tr)

			c, err := sigma.GenerateChallenge(p, rnd, tc.tree)
			require.NoError(t, err)
			sim, err := p.SimulateTranscript(rnd, tc.tree, c)
			require.NoError(t, err)
			requireAccepts(t, p, tc.tree, sim)

			comp, err := p.CompressTranscript(tc.tree, tr)
			require.NoError(t, err)
			back, err := p.DecompressTranscript(tc.tree, comp)
			require.NoError(t, err)
			requireAccepts(t, p, tc.tree, back)
			require.True(t, back.Repr().Equal(tr.Repr()))

			restored, err := sigma.RestoreTranscript(p, tc.tree, tr.Repr())
			require.NoError(t, err)
			requireAccepts(t, p, tc.tree, restored)
		})
	}
}

func TestTreeWithWitnessesForAAndC(t *testing.T) {
	rnd := testutil.NewReader(t.Name())
	f := fixtures(rnd, group.Ristretto255, "a", "b", "c")
	w := witnesses(f, "a", "c")
	p := NewTreeProof()

	orTree := Or(leaf(f, "a"), And(leaf(f, "b"), leaf(f, "c")))
	si, ok := orTree.SecretInput(w)
	require.True(t, ok)
	require.Equal(t, 0, si.(sigma.OrSecretInput).Branch)
	tr, err := sigma.Run(p, rnd, orTree, w)
	require.NoError(t, err)
	requireAccepts(t, p, orTree, tr)

	andTree := And(leaf(f, "a"), And(leaf(f, "b"), leaf(f, "c")))
	_, ok = andTree.SecretInput(w)
	require.False(t, ok)
	_, err = sigma.Run(p, rnd, andTree, w)
	require.True(t, errors.Is(err, ErrNoWitness), "got %v", err)

	c, err := sigma.GenerateChallenge(p, rnd, andTree)
	require.NoError(t, err)
	sim, err := p.SimulateTranscript(rnd, andTree, c)
	require.NoError(t, err)
	requireAccepts(t, p, andTree, sim)
}

func TestSoundnessSmoke(t *testing.T) {
	rnd := testutil.NewReader(t.Name())
	f := fixtures(rnd, group.Ristretto255, "a", "b")
	_, wrong := dlog.NewStatement(group.Ristretto255.Generator(), testutil.Scalar(group.Ristretto255, rnd))
	tree := Or(leaf(f, "a"), leaf(f, "b"))
	p := NewTreeProof()
	accepted := 0
	for i := 0; i < 64; i++ {
		tr, err := sigma.Run(p, rnd, tree, Witnesses{"a": wrong})
		require.NoError(t, err)
		ok, err := sigma.CheckTranscript(p, tree, tr)
		require.NoError(t, err)
		if ok {
			accepted++
		}
	}
	require.Zero(t, accepted)
}

func TestSecretInputResolution(t *testing.T) {
	f := fixtures(testutil.NewReader(t.Name()), group.Ristretto255, "a", "b", "c")
	w := witnesses(f, "a", "b")

	si, ok := Or(leaf(f, "a"), leaf(f, "b")).SecretInput(w)
	require.True(t, ok)
	require.Equal(t, 0, si.(sigma.OrSecretInput).Branch)

	si, ok = OrPreferRight(leaf(f, "a"), leaf(f, "b")).SecretInput(w)
	require.True(t, ok)
	require.Equal(t, 1, si.(sigma.OrSecretInput).Branch)

	si, ok = OrPreferRight(leaf(f, "a"), leaf(f, "c")).SecretInput(w)
	require.True(t, ok)
	require.Equal(t, 0, si.(sigma.OrSecretInput).Branch)

	_, ok = And(leaf(f, "a"), leaf(f, "c")).SecretInput(w)
	require.False(t, ok)

	si, ok = And(leaf(f, "a"), leaf(f, "b")).SecretInput(w)
	require.True(t, ok)
	require.Len(t, si.(sigma.SecretInputVector), 2)
}

func TestBothPreferencesVerify(t *testing.T) {
	rnd := testutil.NewReader(t.Name())
	f := fixtures(rnd, group.Ristretto255, "a", "b")
	w := witnesses(f, "a", "b")
	p := NewTreeProof()
	for _, tree := range []*ProtocolTree{
		Or(leaf(f, "a"), leaf(f, "b")),
		OrPreferRight(leaf(f, "a"), leaf(f, "b")),
	} {
		tr, err := sigma.Run(p, rnd, tree, w)
		require.NoError(t, err)
		requireAccepts(t, p, tree, tr)
	}
}

func TestNoWitness(t *testing.T) {
	rnd := testutil.NewReader(t.Name())
	f := fixtures(rnd, group.Ristretto255, "a", "b", "c")
	p := NewTreeProof()
	tree := And(leaf(f, "a"), Or(leaf(f, "b"), leaf(f, "c")))
	_, err := sigma.Run(p, rnd, tree, witnesses(f, "b", "c"))
	require.True(t, errors.Is(err, ErrNoWitness), "got %v", err)

	_, err = sigma.Run(p, rnd, tree, Witnesses{})
	require.True(t, errors.Is(err, ErrNoWitness))
}

func TestValidate(t *testing.T) {
	f := fixtures(testutil.NewReader(t.Name()), group.Ristretto255, "a", "b")
	err := And(leaf(f, "a"), leaf(f, "a")).Validate()
	require.True(t, errors.Is(err, sigma.ErrMalformed))

	err = Or(leaf(f, "a"), nil).Validate()
	require.True(t, errors.Is(err, sigma.ErrMalformed))

	err = Leaf("x", nil, nil).Validate()
	require.True(t, errors.Is(err, sigma.ErrMalformed))

	tree := Or(And(leaf(f, "a"), leaf(f, "b")), leaf(f, "a"))
	_, _, err = tree.Compile()
	require.Error(t, err)

	require.Equal(t, "or(and(a,b),a)", tree.String())
	require.Equal(t, []string{"a", "b", "a"}, tree.Leaves())
}

func TestChallengeSpaceMismatch(t *testing.T) {
	rnd := testutil.NewReader(t.Name())
	r := fixtures(rnd, group.Ristretto255, "a")
	q := fixtures(rnd, group.P256, "b")
	tree := Or(leaf(r, "a"), leaf(q, "b"))
	p := NewTreeProof()
	_, err := p.ChallengeSpace(tree)
	require.True(t, errors.Is(err, sigma.ErrChallengeSpaceMismatch))
	_, err = sigma.Run(p, rnd, tree, witnesses(r, "a"))
	require.True(t, errors.Is(err, sigma.ErrChallengeSpaceMismatch))
}

func TestWrongInputs(t *testing.T) {
	rnd := testutil.NewReader(t.Name())
	f := fixtures(rnd, group.Ristretto255, "a")
	p := NewTreeProof()
	_, err := p.ChallengeSpace("not a tree")
	require.True(t, errors.Is(err, sigma.ErrMalformed))
	_, err = sigma.Run(p, rnd, leaf(f, "a"), map[string]sigma.SecretInput{"a": f["a"].w})
	require.True(t, errors.Is(err, sigma.ErrMalformed))
}

// keyedStatement sends a fresh key K = k·G first. The tree proves knowledge
// of k and of one of two discrete logs, and depends on K.
type keyedStatement struct{}

type keyedInput struct {
	A, B *dlog.Statement
}

type keyedWitness struct {
	K      group.Scalar
	Branch string
	W      dlog.Witness
}

var keyedGroup = group.Ristretto255

func (keyedStatement) ChallengeSpace(sigma.CommonInput) (sigma.ChallengeSpace, error) {
	return sigma.NewScalarChallengeSpace(keyedGroup), nil
}

func (keyedStatement) ProverSpec(_ io.Reader, _ sigma.CommonInput, si sigma.SecretInput, b *ProverSpecBuilder) error {
	w, ok := si.(keyedWitness)
	if !ok {
		return fmt.Errorf("%w: %T", sigma.ErrMalformed, si)
	}
	b.SetSendFirstValue(schnorr.ElementValue{E: keyedGroup.NewElement().MulGen(w.K)})
	b.PutSecretInput("key", dlog.Witness{X: w.K})
	b.PutSecretInput(w.Branch, w.W)
	return nil
}

func (keyedStatement) SimulateSendFirstValue(rnd io.Reader, _ sigma.CommonInput) (sigma.SendFirstValue, error) {
	return schnorr.ElementValue{E: testutil.Element(keyedGroup, rnd)}, nil
}

func (keyedStatement) RestoreSendFirstValue(_ sigma.CommonInput, r sigma.Repr) (sigma.SendFirstValue, error) {
	e, err := sigma.RestoreElement(keyedGroup, r)
	if err != nil {
		return nil, err
	}
	return schnorr.ElementValue{E: e}, nil
}

func (keyedStatement) ProtocolTree(ci sigma.CommonInput, sfv sigma.SendFirstValue) (*ProtocolTree, error) {
	in := ci.(*keyedInput)
	k := sfv.(schnorr.ElementValue).E
	key := &dlog.Statement{Base: keyedGroup.Generator(), Value: k}
	return And(
		Leaf("key", dlog.Protocol{}, key),
		Or(Leaf("a", dlog.Protocol{}, in.A), Leaf("b", dlog.Protocol{}, in.B)),
	), nil
}

func (keyedStatement) AdditionalCheck(_ sigma.CommonInput, sfv sigma.SendFirstValue) (boolexpr.Expr, error) {
	k := sfv.(schnorr.ElementValue).E
	return boolexpr.Not(boolexpr.Func("key is identity", k.IsIdentity)), nil
}

func TestTreeDependsOnSendFirstValue(t *testing.T) {
	rnd := testutil.NewReader(t.Name())
	f := fixtures(rnd, keyedGroup, "a", "b")
	ci := &keyedInput{A: f["a"].st, B: f["b"].st}
	p := New(keyedStatement{})
	si := keyedWitness{K: testutil.Scalar(keyedGroup, rnd), Branch: "b", W: f["b"].w}

	tr, err := sigma.Run(p, rnd, ci, si)
	require.NoError(t, err)
	requireAccepts(t, p, ci, tr)

	c, err := sigma.GenerateChallenge(p, rnd, ci)
	require.NoError(t, err)
	sim, err := p.SimulateTranscript(rnd, ci, c)
	require.NoError(t, err)
	requireAccepts(t, p, ci, sim)

	comp, err := p.CompressTranscript(ci, tr)
	require.NoError(t, err)
	back, err := p.DecompressTranscript(ci, comp)
	require.NoError(t, err)
	requireAccepts(t, p, ci, back)

	// another key changes the tree the verifier checks against
	a := tr.Announcement().(*Announcement)
	a.SendFirstValue = schnorr.ElementValue{E: testutil.Element(keyedGroup, rnd)}
	ok, err := sigma.CheckTranscript(p, ci, tr)
	require.NoError(t, err)
	require.False(t, ok)

	a.SendFirstValue = schnorr.ElementValue{E: keyedGroup.Identity()}
	ok, err = sigma.CheckTranscript(p, ci, tr)
	require.NoError(t, err)
	require.False(t, ok)
}
