// Package linear proves that Pedersen commitments C_i = x_i·G + r_i·H open to
// a vector x in the nullspace of a public integer matrix L, i.e. Lx = 0 over
// the scalar field.
package linear

import (
	"encoding/binary"
	"fmt"
	"io"
	"math/big"

	"github.com/cloudflare/circl/group"

	"sigmakit/internal/crypto"
	"sigmakit/internal/config"
	"sigmakit/internal/schnorr"
	"sigmakit/internal/sigma"
	"sigmakit/internal/zk/pedersen"
)

const (
	digestLabel = "sigmakit/zk/linear/statement/v0"
)

// Statement is the public part: the matrix and one commitment per column.
type Statement struct {
	L [][]int64
	C []pedersen.Element
}

// Witness opens every commitment: C_i = X_i·G + R_i·H.
type Witness struct {
	X []pedersen.Scalar
	R []pedersen.Scalar
}

// NewStatement checks the dimensions of L against C and the caps.
func NewStatement(L [][]int64, C []pedersen.Element) (*Statement, error) {
	st := &Statement{L: L, C: C}
	if err := st.validate(); err != nil {
		return nil, err
	}
	return st, nil
}

// Commit commits to x and returns the statement for L with its witness.
func Commit(rnd io.Reader, L [][]int64, x []pedersen.Scalar) (*Statement, Witness, error) {
	if err := checkMatrix(L, len(x)); err != nil {
		return nil, Witness{}, err
	}
	C, r, err := pedersen.CommitVector(rnd, x)
	if err != nil {
		return nil, Witness{}, err
	}
	st, err := NewStatement(L, C)
	if err != nil {
		return nil, Witness{}, err
	}
	return st, Witness{X: x, R: r}, nil
}

func checkMatrix(L [][]int64, cols int) error {
	if len(L) == 0 {
		return fmt.Errorf("%w: empty matrix", sigma.ErrMalformed)
	}
	if cols == 0 {
		return fmt.Errorf("%w: empty vector", sigma.ErrMalformed)
	}
	if len(L) > config.MaxRows() {
		return fmt.Errorf("%w: %d rows, cap %d", sigma.ErrMalformed, len(L), config.MaxRows())
	}
	if cols > config.MaxCommitments() {
		return fmt.Errorf("%w: %d columns, cap %d", sigma.ErrMalformed, cols, config.MaxCommitments())
	}
	for j, row := range L {
		if len(row) != cols {
			return fmt.Errorf("%w: row %d has %d entries, want %d", sigma.ErrMalformed, j, len(row), cols)
		}
	}
	return nil
}

func (s *Statement) validate() error {
	if s == nil {
		return fmt.Errorf("%w: nil statement", sigma.ErrMalformed)
	}
	if err := checkMatrix(s.L, len(s.C)); err != nil {
		return err
	}
	g := pedersen.Group()
	for i, c := range s.C {
		if c == nil || c.Group() != g {
			return fmt.Errorf("%w: bad commitment at %d", sigma.ErrMalformed, i)
		}
	}
	return nil
}

// Digest binds the matrix and the commitments.
func (s *Statement) Digest() ([]byte, error) {
	if err := s.validate(); err != nil {
		return nil, err
	}
	ch, err := hashCommitments(s.C)
	if err != nil {
		return nil, err
	}
	return crypto.KDF(digestLabel, hashMatrix(s.L), ch), nil
}

// NewNullspace proves a Statement. Every column owns the variables x_i and
// r_i; fragment "open-i" ties them to C_i and fragment "row-j" states
// Σ_i L_ji·x_i = 0 over the same x_i. All-zero rows hold trivially and get
// no fragment.
func NewNullspace() *schnorr.DelegateProtocol {
	return schnorr.NewDelegateProtocol(pedersen.Group(), nullspace{})
}

type nullspace struct{}

func statementOf(ci sigma.CommonInput) (*Statement, error) {
	st, ok := ci.(*Statement)
	if !ok || st == nil {
		return nil, fmt.Errorf("%w: linear common input is %T", sigma.ErrMalformed, ci)
	}
	if err := st.validate(); err != nil {
		return nil, err
	}
	return st, nil
}

func (nullspace) ProverSpec(ci sigma.CommonInput, si sigma.SecretInput, b *schnorr.ProverSpecBuilder) error {
	st, err := statementOf(ci)
	if err != nil {
		return err
	}
	w, ok := si.(Witness)
	if !ok || len(w.X) != len(st.C) || len(w.R) != len(st.C) {
		return fmt.Errorf("%w: linear secret input does not match %d commitments", sigma.ErrMalformed, len(st.C))
	}
	for i := range st.C {
		b.PutExponentWitness(xName(i), w.X[i])
		b.PutExponentWitness(rName(i), w.R[i])
	}
	return nil
}

func (nullspace) SubprotocolSpec(ci sigma.CommonInput, b *schnorr.SubprotocolSpecBuilder) error {
	st, err := statementOf(ci)
	if err != nil {
		return err
	}
	gen, h, err := pedersen.Generators()
	if err != nil {
		return err
	}
	g := b.Group()
	xs := make([]*schnorr.ExponentVariable, len(st.C))
	for i, c := range st.C {
		xs[i] = b.AddExponentVariable(xName(i))
		r := b.AddExponentVariable(rName(i))
		b.AddLinear(fmt.Sprintf("open-%03d", i),
			schnorr.Op(schnorr.Pow(schnorr.Elem(gen), xs[i]), schnorr.Pow(schnorr.Elem(h), r)),
			schnorr.Elem(c))
	}
	for j, row := range st.L {
		var terms []schnorr.ExponentExpr
		for i, a := range row {
			if a == 0 {
				continue
			}
			terms = append(terms, schnorr.Product(schnorr.Const(scalarFromInt64(g, a)), xs[i]))
		}
		if len(terms) == 0 {
			continue
		}
		b.AddLinearExponent(fmt.Sprintf("row-%03d", j), schnorr.Sum(terms...), schnorr.Const(g.NewScalar()))
	}
	return nil
}

func xName(i int) string { return fmt.Sprintf("x-%03d", i) }
func rName(i int) string { return fmt.Sprintf("r-%03d", i) }

func scalarFromInt64(g group.Group, v int64) group.Scalar {
	s := g.NewScalar()
	if v == 0 {
		return s
	}
	if v > 0 {
		s.SetUint64(uint64(v))
		return s
	}
	abs := new(big.Int).SetInt64(v)
	abs.Abs(abs)
	s.SetBigInt(abs)
	return s.Neg(s)
}

// ScalarsFromInt64 converts signed int64 values into group scalars.
func ScalarsFromInt64(vals []int64) ([]pedersen.Scalar, error) {
	if len(vals) == 0 {
		return nil, fmt.Errorf("empty values")
	}
	g := pedersen.Group()
	out := make([]pedersen.Scalar, len(vals))
	for i, v := range vals {
		out[i] = scalarFromInt64(g, v)
	}
	return out, nil
}

func hashMatrix(L [][]int64) []byte {
	buf := make([]byte, 0, 16+8*len(L))
	tmp := make([]byte, 8)
	binary.BigEndian.PutUint64(tmp, uint64(len(L)))
	buf = append(buf, tmp...)
	if len(L) > 0 {
		binary.BigEndian.PutUint64(tmp, uint64(len(L[0])))
		buf = append(buf, tmp...)
		for _, row := range L {
			for _, v := range row {
				binary.BigEndian.PutUint64(tmp, uint64(v))
				buf = append(buf, tmp...)
			}
		}
	}
	return crypto.SHA3_256(buf)
}

func hashCommitments(C []pedersen.Element) ([]byte, error) {
	g := pedersen.Group()
	buf := make([]byte, 0, len(C)*int(g.Params().CompressedElementLength))
	for i := range C {
		if C[i] == nil || C[i].Group() != g {
			return nil, fmt.Errorf("bad commitment at %d", i)
		}
		b, err := C[i].MarshalBinaryCompress()
		if err != nil {
			return nil, err
		}
		buf = append(buf, b...)
	}
	return crypto.SHA3_256(buf), nil
}
