package pedersen

import (
	"fmt"
	"io"

	"sigmakit/internal/boolexpr"
	"sigmakit/internal/crypto"
	"sigmakit/internal/schnorr"
	"sigmakit/internal/sigma"
)

// OpeningStatement claims knowledge of an opening of C.
type OpeningStatement struct {
	C Element
}

type Opening struct {
	M, R Scalar
}

// NewOpening proves knowledge of (m, r) with C = m·G + r·H.
func NewOpening() *schnorr.DelegateProtocol {
	return schnorr.NewDelegateProtocol(Group(), opening{})
}

type opening struct{}

func openingStatement(ci sigma.CommonInput) (*OpeningStatement, error) {
	st, ok := ci.(*OpeningStatement)
	if !ok || st == nil || st.C == nil || st.C.Group() != Group() {
		return nil, fmt.Errorf("%w: opening common input is %T", sigma.ErrMalformed, ci)
	}
	return st, nil
}

func (opening) ProverSpec(ci sigma.CommonInput, si sigma.SecretInput, b *schnorr.ProverSpecBuilder) error {
	if _, err := openingStatement(ci); err != nil {
		return err
	}
	o, ok := si.(Opening)
	if !ok || o.M == nil || o.R == nil {
		return fmt.Errorf("%w: opening secret input is %T", sigma.ErrMalformed, si)
	}
	b.PutExponentWitness("m", o.M)
	b.PutExponentWitness("r", o.R)
	return nil
}

func (opening) SubprotocolSpec(ci sigma.CommonInput, b *schnorr.SubprotocolSpecBuilder) error {
	st, err := openingStatement(ci)
	if err != nil {
		return err
	}
	g, h, err := Generators()
	if err != nil {
		return err
	}
	m := b.AddExponentVariable("m")
	r := b.AddExponentVariable("r")
	b.AddLinear("commitment", committed(g, h, m, r), schnorr.Elem(st.C))
	return nil
}

func committed(g, h Element, m, r schnorr.ExponentExpr) schnorr.GroupExpr {
	return schnorr.Op(schnorr.Pow(schnorr.Elem(g), m), schnorr.Pow(schnorr.Elem(h), r))
}

// CommittedDLogStatement claims knowledge of x with A = x·G.
type CommittedDLogStatement struct {
	A Element
}

type CommittedDLogWitness struct {
	X Scalar
}

// CommitmentValue is the send-first value of NewCommittedDLog.
type CommitmentValue struct {
	C Element
}

func (v CommitmentValue) Repr() sigma.Repr { return sigma.ElementRepr(v.C) }

// NewCommittedDLog first sends a fresh commitment C = x·G + s·H to the
// discrete log x of A, then proves that A = x·G and that C opens to the same
// x. The commitment must not be the identity.
func NewCommittedDLog() *schnorr.SendThenDelegateProtocol {
	return schnorr.NewSendThenDelegateProtocol(Group(), committedDLog{})
}

type committedDLog struct{}

func committedDLogStatement(ci sigma.CommonInput) (*CommittedDLogStatement, error) {
	st, ok := ci.(*CommittedDLogStatement)
	if !ok || st == nil || st.A == nil || st.A.Group() != Group() {
		return nil, fmt.Errorf("%w: committed dlog common input is %T", sigma.ErrMalformed, ci)
	}
	return st, nil
}

func commitmentOf(sfv sigma.SendFirstValue) (Element, error) {
	v, ok := sfv.(CommitmentValue)
	if !ok || v.C == nil || v.C.Group() != Group() {
		return nil, fmt.Errorf("%w: send-first value is %T", sigma.ErrMalformed, sfv)
	}
	return v.C, nil
}

func (committedDLog) ProverSpec(rnd io.Reader, ci sigma.CommonInput, si sigma.SecretInput, b *schnorr.ProverSpecBuilder) error {
	if _, err := committedDLogStatement(ci); err != nil {
		return err
	}
	w, ok := si.(CommittedDLogWitness)
	if !ok || w.X == nil {
		return fmt.Errorf("%w: committed dlog secret input is %T", sigma.ErrMalformed, si)
	}
	c, s, err := Commit(rnd, w.X)
	if err != nil {
		return err
	}
	b.SetSendFirstValue(CommitmentValue{C: c})
	b.PutExponentWitness("x", w.X)
	b.PutExponentWitness("s", s)
	return nil
}

func (committedDLog) SimulateSendFirstValue(rnd io.Reader, _ sigma.CommonInput) (sigma.SendFirstValue, error) {
	c, err := crypto.RandomElement(Group(), rnd)
	if err != nil {
		return nil, err
	}
	return CommitmentValue{C: c}, nil
}

func (committedDLog) RestoreSendFirstValue(_ sigma.CommonInput, r sigma.Repr) (sigma.SendFirstValue, error) {
	c, err := sigma.RestoreElement(Group(), r)
	if err != nil {
		return nil, err
	}
	return CommitmentValue{C: c}, nil
}

func (committedDLog) SubprotocolSpec(ci sigma.CommonInput, sfv sigma.SendFirstValue, b *schnorr.SubprotocolSpecBuilder) error {
	st, err := committedDLogStatement(ci)
	if err != nil {
		return err
	}
	c, err := commitmentOf(sfv)
	if err != nil {
		return err
	}
	g, h, err := Generators()
	if err != nil {
		return err
	}
	x := b.AddExponentVariable("x")
	s := b.AddExponentVariable("s")
	b.AddLinear("commitment", committed(g, h, x, s), schnorr.Elem(c))
	b.AddLinear("dlog", schnorr.Pow(schnorr.Elem(g), x), schnorr.Elem(st.A))
	return nil
}

func (committedDLog) AdditionalCheck(_ sigma.CommonInput, sfv sigma.SendFirstValue) (boolexpr.Expr, error) {
	c, err := commitmentOf(sfv)
	if err != nil {
		return nil, err
	}
	return boolexpr.Not(boolexpr.Func("commitment is identity", c.IsIdentity)), nil
}
