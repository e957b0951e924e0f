package partial

import (
	"fmt"
	"io"

	"sigmakit/internal/boolexpr"
	"sigmakit/internal/sigma"
)

// NewTreeProof proves a fixed tree with no send-first value. The common
// input is the *ProtocolTree itself and the secret input is Witnesses.
func NewTreeProof() *ProofOfPartialKnowledge {
	return New(treeStatement{})
}

type treeStatement struct{}

func treeOf(ci sigma.CommonInput) (*ProtocolTree, error) {
	t, ok := ci.(*ProtocolTree)
	if !ok || t == nil {
		return nil, fmt.Errorf("%w: tree proof common input is %T", sigma.ErrMalformed, ci)
	}
	return t, nil
}

func (treeStatement) ChallengeSpace(ci sigma.CommonInput) (sigma.ChallengeSpace, error) {
	t, err := treeOf(ci)
	if err != nil {
		return nil, err
	}
	p, tci, err := t.Compile()
	if err != nil {
		return nil, err
	}
	return p.ChallengeSpace(tci)
}

func (treeStatement) ProverSpec(_ io.Reader, _ sigma.CommonInput, si sigma.SecretInput, b *ProverSpecBuilder) error {
	w, ok := si.(Witnesses)
	if !ok {
		return fmt.Errorf("%w: tree proof secret input is %T, want Witnesses", sigma.ErrMalformed, si)
	}
	b.SetSendFirstValue(sigma.EmptySendFirstValue{})
	for name, s := range w {
		b.PutSecretInput(name, s)
	}
	return nil
}

func (treeStatement) SimulateSendFirstValue(io.Reader, sigma.CommonInput) (sigma.SendFirstValue, error) {
	return sigma.EmptySendFirstValue{}, nil
}

func (treeStatement) RestoreSendFirstValue(_ sigma.CommonInput, r sigma.Repr) (sigma.SendFirstValue, error) {
	if len(r.Bytes) != 0 || len(r.List) != 0 {
		return nil, fmt.Errorf("%w: tree proof send-first value is not empty", sigma.ErrMalformed)
	}
	return sigma.EmptySendFirstValue{}, nil
}

func (treeStatement) ProtocolTree(ci sigma.CommonInput, _ sigma.SendFirstValue) (*ProtocolTree, error) {
	return treeOf(ci)
}

func (treeStatement) AdditionalCheck(sigma.CommonInput, sigma.SendFirstValue) (boolexpr.Expr, error) {
	return boolexpr.True(), nil
}
