package linear

import (
	"errors"
	"testing"

	"sigmakit/internal/sigma"
	"sigmakit/internal/testutil"
	"sigmakit/internal/zk/pedersen"
)

func mustScalars(t *testing.T, vals ...int64) []pedersen.Scalar {
	t.Helper()
	x, err := ScalarsFromInt64(vals)
	if err != nil {
		t.Fatalf("scalars: %v", err)
	}
	return x
}

func verify(t *testing.T, st *Statement, tr *sigma.Transcript) bool {
	t.Helper()
	ok, err := sigma.CheckTranscript(NewNullspace(), st, tr)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	return ok
}

func TestProveVerifyLinearNullspace(t *testing.T) {
	rnd := testutil.NewReader(t.Name())
	L := [][]int64{
		{1, -1, 0},
		{0, 1, -1},
	}
	st, w, err := Commit(rnd, L, mustScalars(t, 1, 1, 1))
	if err != nil {
		t.Fatalf("commit failed: %v", err)
	}
	p := NewNullspace()
	tr, err := sigma.Run(p, rnd, st, w)
	if err != nil {
		t.Fatalf("prove failed: %v", err)
	}
	if !verify(t, st, tr) {
		t.Fatalf("verify failed")
	}

	comp, err := p.CompressTranscript(st, tr)
	if err != nil {
		t.Fatalf("compress: %v", err)
	}
	back, err := p.DecompressTranscript(st, comp)
	if err != nil {
		t.Fatalf("decompress: %v", err)
	}
	if !back.Repr().Equal(tr.Repr()) {
		t.Fatalf("decompressed transcript differs")
	}

	c, err := sigma.GenerateChallenge(p, rnd, st)
	if err != nil {
		t.Fatalf("challenge: %v", err)
	}
	sim, err := p.SimulateTranscript(rnd, st, c)
	if err != nil {
		t.Fatalf("simulate: %v", err)
	}
	if !verify(t, st, sim) {
		t.Fatalf("simulated transcript rejected")
	}
}

func TestVectorOutsideNullspaceFails(t *testing.T) {
	rnd := testutil.NewReader(t.Name())
	L := [][]int64{{1, -1}}
	st, w, err := Commit(rnd, L, mustScalars(t, 2, 1))
	if err != nil {
		t.Fatalf("commit failed: %v", err)
	}
	tr, err := sigma.Run(NewNullspace(), rnd, st, w)
	if err != nil {
		t.Fatalf("prove failed: %v", err)
	}
	if verify(t, st, tr) {
		t.Fatalf("expected verify to fail for Lx != 0")
	}
}

func TestTamperCommitmentFails(t *testing.T) {
	rnd := testutil.NewReader(t.Name())
	L := [][]int64{{1, -1}}
	st, w, err := Commit(rnd, L, mustScalars(t, 5, 5))
	if err != nil {
		t.Fatalf("commit failed: %v", err)
	}
	tr, err := sigma.Run(NewNullspace(), rnd, st, w)
	if err != nil {
		t.Fatalf("prove failed: %v", err)
	}
	gGen, _, err := pedersen.Generators()
	if err != nil {
		t.Fatalf("generators failed: %v", err)
	}
	Cbad := make([]pedersen.Element, len(st.C))
	for i := range st.C {
		Cbad[i] = st.C[i].Copy()
	}
	Cbad[0].Add(Cbad[0], gGen)
	bad, err := NewStatement(L, Cbad)
	if err != nil {
		t.Fatalf("statement: %v", err)
	}
	if verify(t, bad, tr) {
		t.Fatalf("expected verify to fail after tampering")
	}
}

func TestWrongMatrixFails(t *testing.T) {
	rnd := testutil.NewReader(t.Name())
	st, w, err := Commit(rnd, [][]int64{{1, -1}}, mustScalars(t, 7, 7))
	if err != nil {
		t.Fatalf("commit failed: %v", err)
	}
	tr, err := sigma.Run(NewNullspace(), rnd, st, w)
	if err != nil {
		t.Fatalf("prove failed: %v", err)
	}
	bad, err := NewStatement([][]int64{{1, 1}}, st.C)
	if err != nil {
		t.Fatalf("statement: %v", err)
	}
	if verify(t, bad, tr) {
		t.Fatalf("expected verify to fail with wrong matrix")
	}
}

func TestSignedCoefficients(t *testing.T) {
	rnd := testutil.NewReader(t.Name())
	// 2·3 - 6 = 0 and a row of zeros
	L := [][]int64{{2, -1}, {0, 0}}
	st, w, err := Commit(rnd, L, mustScalars(t, 3, 6))
	if err != nil {
		t.Fatalf("commit failed: %v", err)
	}
	tr, err := sigma.Run(NewNullspace(), rnd, st, w)
	if err != nil {
		t.Fatalf("prove failed: %v", err)
	}
	if !verify(t, st, tr) {
		t.Fatalf("verify failed for signed coefficients")
	}
	x := mustScalars(t, -4)
	if !x[0].IsEqual(pedersen.Group().NewScalar().Neg(pedersen.Group().NewScalar().SetUint64(4))) {
		t.Fatalf("negative entry not reduced mod q")
	}
}

func TestStatementShape(t *testing.T) {
	rnd := testutil.NewReader(t.Name())
	x := mustScalars(t, 1, 2)
	cases := map[string][][]int64{
		"empty":  {},
		"ragged": {{1, 1}, {1}},
		"narrow": {{1}},
	}
	for name, L := range cases {
		if _, _, err := Commit(rnd, L, x); !errors.Is(err, sigma.ErrMalformed) {
			t.Fatalf("%s: expected ErrMalformed, got %v", name, err)
		}
	}
	st, w, err := Commit(rnd, [][]int64{{1, -1}}, mustScalars(t, 1, 1))
	if err != nil {
		t.Fatalf("commit failed: %v", err)
	}
	short := Witness{X: w.X[:1], R: w.R[:1]}
	if _, err := sigma.Run(NewNullspace(), rnd, st, short); !errors.Is(err, sigma.ErrMalformed) {
		t.Fatalf("expected ErrMalformed for short witness, got %v", err)
	}
	if _, err := ScalarsFromInt64(nil); err == nil {
		t.Fatalf("expected error for empty values")
	}
}

func TestDigestBindsStatement(t *testing.T) {
	rnd := testutil.NewReader(t.Name())
	st, _, err := Commit(rnd, [][]int64{{1, -1}}, mustScalars(t, 1, 1))
	if err != nil {
		t.Fatalf("commit failed: %v", err)
	}
	d1, err := st.Digest()
	if err != nil {
		t.Fatalf("digest: %v", err)
	}
	other, err := NewStatement([][]int64{{-1, 1}}, st.C)
	if err != nil {
		t.Fatalf("statement: %v", err)
	}
	d2, err := other.Digest()
	if err != nil {
		t.Fatalf("digest: %v", err)
	}
	if string(d1) == string(d2) {
		t.Fatalf("digest ignores the matrix")
	}
}
