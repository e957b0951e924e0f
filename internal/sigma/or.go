package sigma

import (
	"fmt"
	"io"

	"sigmakit/internal/boolexpr"
)

// OrSecretInput names the branch the prover holds a witness for.
type OrSecretInput struct {
	Branch int
	Secret SecretInput
}

// OrResponse carries both branch responses and the first sub-challenge. The
// verifier derives the second one as Subtract(c, Challenge0).
type OrResponse struct {
	Response0  Response
	Response1  Response
	Challenge0 Challenge
}

func (r *OrResponse) Repr() Repr {
	return ListRepr(r.Challenge0.Repr(), r.Response0.Repr(), r.Response1.Repr())
}

type orSecret struct {
	branch    int
	secret    AnnouncementSecret
	simulated *Transcript
}

// OrProof proves one of two subprotocols. The branch without a witness is
// simulated under a challenge fixed before the real challenge is known; the
// real branch answers Subtract(c, simulated challenge). Both sub-challenges are
// uniform, so the transcript hides which branch was real.
type OrProof struct {
	protocols [2]Protocol
}

func NewOrProof(p0, p1 Protocol) *OrProof {
	return &OrProof{protocols: [2]Protocol{p0, p1}}
}

func (p *OrProof) Protocols() (Protocol, Protocol) {
	return p.protocols[0], p.protocols[1]
}

func (p *OrProof) commonInputs(ci CommonInput) (CommonInputVector, error) {
	return vectorOf[CommonInputVector](ci, 2, "or common input")
}

func (p *OrProof) ChallengeSpace(ci CommonInput) (ChallengeSpace, error) {
	cis, err := p.commonInputs(ci)
	if err != nil {
		return nil, err
	}
	return SameChallengeSpace(p.protocols[:], cis)
}

func (p *OrProof) AnnouncementSecret(rnd io.Reader, ci CommonInput, si SecretInput) (AnnouncementSecret, error) {
	cis, err := p.commonInputs(ci)
	if err != nil {
		return nil, err
	}
	space, err := SameChallengeSpace(p.protocols[:], cis)
	if err != nil {
		return nil, err
	}
	osi, ok := si.(OrSecretInput)
	if !ok {
		return nil, fmt.Errorf("%w: or secret input is %T, want OrSecretInput", ErrMalformed, si)
	}
	if osi.Branch != 0 && osi.Branch != 1 {
		return nil, fmt.Errorf("%w: or branch %d", ErrMalformed, osi.Branch)
	}
	real, other := osi.Branch, 1-osi.Branch

	simC, err := space.Random(rnd)
	if err != nil {
		return nil, err
	}
	sim, err := p.protocols[other].SimulateTranscript(rnd, cis[other], simC)
	if err != nil {
		return nil, fmt.Errorf("or simulate branch %d: %w", other, err)
	}
	secret, err := p.protocols[real].AnnouncementSecret(rnd, cis[real], osi.Secret)
	if err != nil {
		return nil, fmt.Errorf("or branch %d: %w", real, err)
	}
	return &orSecret{branch: real, secret: secret, simulated: sim}, nil
}

func (p *OrProof) secretOf(si SecretInput, as AnnouncementSecret) (OrSecretInput, *orSecret, error) {
	osi, ok := si.(OrSecretInput)
	if !ok {
		return OrSecretInput{}, nil, fmt.Errorf("%w: or secret input is %T", ErrMalformed, si)
	}
	os, ok := as.(*orSecret)
	if !ok || os == nil {
		return OrSecretInput{}, nil, fmt.Errorf("%w: or announcement secret is %T", ErrMalformed, as)
	}
	if os.branch != osi.Branch {
		return OrSecretInput{}, nil, fmt.Errorf("%w: or branch changed between moves", ErrMalformed)
	}
	return osi, os, nil
}

func (p *OrProof) Announcement(ci CommonInput, si SecretInput, as AnnouncementSecret) (Announcement, error) {
	cis, err := p.commonInputs(ci)
	if err != nil {
		return nil, err
	}
	osi, os, err := p.secretOf(si, as)
	if err != nil {
		return nil, err
	}
	a, err := p.protocols[os.branch].Announcement(cis[os.branch], osi.Secret, os.secret)
	if err != nil {
		return nil, fmt.Errorf("or branch %d: %w", os.branch, err)
	}
	out := make(AnnouncementVector, 2)
	out[os.branch] = a
	out[1-os.branch] = os.simulated.Announcement()
	return out, nil
}

func (p *OrProof) Response(ci CommonInput, si SecretInput, a Announcement, as AnnouncementSecret, c Challenge) (Response, error) {
	cis, err := p.commonInputs(ci)
	if err != nil {
		return nil, err
	}
	space, err := SameChallengeSpace(p.protocols[:], cis)
	if err != nil {
		return nil, err
	}
	anns, err := vectorOf[AnnouncementVector](a, 2, "or announcement")
	if err != nil {
		return nil, err
	}
	osi, os, err := p.secretOf(si, as)
	if err != nil {
		return nil, err
	}
	real := os.branch
	realC, err := space.Subtract(c, os.simulated.Challenge())
	if err != nil {
		return nil, err
	}
	r, err := p.protocols[real].Response(cis[real], osi.Secret, anns[real], os.secret, realC)
	if err != nil {
		return nil, fmt.Errorf("or branch %d: %w", real, err)
	}
	if real == 0 {
		return &OrResponse{Response0: r, Response1: os.simulated.Response(), Challenge0: realC}, nil
	}
	return &OrResponse{Response0: os.simulated.Response(), Response1: r, Challenge0: os.simulated.Challenge()}, nil
}

func (p *OrProof) CheckExpr(ci CommonInput, a Announcement, c Challenge, r Response) (boolexpr.Expr, error) {
	cis, err := p.commonInputs(ci)
	if err != nil {
		return nil, err
	}
	space, err := SameChallengeSpace(p.protocols[:], cis)
	if err != nil {
		return nil, err
	}
	anns, err := vectorOf[AnnouncementVector](a, 2, "or announcement")
	if err != nil {
		return nil, err
	}
	or, ok := r.(*OrResponse)
	if !ok || or == nil {
		return nil, fmt.Errorf("%w: or response is %T", ErrMalformed, r)
	}
	c1, err := space.Subtract(c, or.Challenge0)
	if err != nil {
		return nil, err
	}
	check0, err := p.protocols[0].CheckExpr(cis[0], anns[0], or.Challenge0, or.Response0)
	if err != nil {
		return nil, fmt.Errorf("or branch 0: %w", err)
	}
	check1, err := p.protocols[1].CheckExpr(cis[1], anns[1], c1, or.Response1)
	if err != nil {
		return nil, fmt.Errorf("or branch 1: %w", err)
	}
	return boolexpr.And(check0, check1), nil
}

func (p *OrProof) SimulateTranscript(rnd io.Reader, ci CommonInput, c Challenge) (*Transcript, error) {
	cis, err := p.commonInputs(ci)
	if err != nil {
		return nil, err
	}
	space, err := SameChallengeSpace(p.protocols[:], cis)
	if err != nil {
		return nil, err
	}
	c0, err := space.Random(rnd)
	if err != nil {
		return nil, err
	}
	c1, err := space.Subtract(c, c0)
	if err != nil {
		return nil, err
	}
	t0, err := p.protocols[0].SimulateTranscript(rnd, cis[0], c0)
	if err != nil {
		return nil, fmt.Errorf("or branch 0: %w", err)
	}
	t1, err := p.protocols[1].SimulateTranscript(rnd, cis[1], c1)
	if err != nil {
		return nil, fmt.Errorf("or branch 1: %w", err)
	}
	a := AnnouncementVector{t0.Announcement(), t1.Announcement()}
	return NewTranscript(a, c, &OrResponse{Response0: t0.Response(), Response1: t1.Response(), Challenge0: c0}), nil
}

func (p *OrProof) RestoreAnnouncement(ci CommonInput, r Repr) (Announcement, error) {
	cis, err := p.commonInputs(ci)
	if err != nil {
		return nil, err
	}
	items, err := r.Items(2)
	if err != nil {
		return nil, err
	}
	out := make(AnnouncementVector, 2)
	for i := range out {
		if out[i], err = p.protocols[i].RestoreAnnouncement(cis[i], items[i]); err != nil {
			return nil, fmt.Errorf("or branch %d: %w", i, err)
		}
	}
	return out, nil
}

func (p *OrProof) RestoreResponse(ci CommonInput, a Announcement, c Challenge, r Repr) (Response, error) {
	cis, err := p.commonInputs(ci)
	if err != nil {
		return nil, err
	}
	space, err := SameChallengeSpace(p.protocols[:], cis)
	if err != nil {
		return nil, err
	}
	anns, err := vectorOf[AnnouncementVector](a, 2, "or announcement")
	if err != nil {
		return nil, err
	}
	items, err := r.Items(3)
	if err != nil {
		return nil, err
	}
	c0, err := space.Restore(items[0])
	if err != nil {
		return nil, err
	}
	c1, err := space.Subtract(c, c0)
	if err != nil {
		return nil, err
	}
	r0, err := p.protocols[0].RestoreResponse(cis[0], anns[0], c0, items[1])
	if err != nil {
		return nil, fmt.Errorf("or branch 0: %w", err)
	}
	r1, err := p.protocols[1].RestoreResponse(cis[1], anns[1], c1, items[2])
	if err != nil {
		return nil, fmt.Errorf("or branch 1: %w", err)
	}
	return &OrResponse{Response0: r0, Response1: r1, Challenge0: c0}, nil
}

// CompressTranscript keeps the overall challenge and each compressed branch
// transcript under its own sub-challenge.
func (p *OrProof) CompressTranscript(ci CommonInput, t *Transcript) (Repr, error) {
	cis, err := p.commonInputs(ci)
	if err != nil {
		return Repr{}, err
	}
	space, err := SameChallengeSpace(p.protocols[:], cis)
	if err != nil {
		return Repr{}, err
	}
	anns, err := vectorOf[AnnouncementVector](t.Announcement(), 2, "or announcement")
	if err != nil {
		return Repr{}, err
	}
	or, ok := t.Response().(*OrResponse)
	if !ok || or == nil {
		return Repr{}, fmt.Errorf("%w: or response is %T", ErrMalformed, t.Response())
	}
	c1, err := space.Subtract(t.Challenge(), or.Challenge0)
	if err != nil {
		return Repr{}, err
	}
	r0, err := p.protocols[0].CompressTranscript(cis[0], NewTranscript(anns[0], or.Challenge0, or.Response0))
	if err != nil {
		return Repr{}, fmt.Errorf("or branch 0: %w", err)
	}
	r1, err := p.protocols[1].CompressTranscript(cis[1], NewTranscript(anns[1], c1, or.Response1))
	if err != nil {
		return Repr{}, fmt.Errorf("or branch 1: %w", err)
	}
	return ListRepr(t.Challenge().Repr(), r0, r1), nil
}

func (p *OrProof) DecompressTranscript(ci CommonInput, r Repr) (*Transcript, error) {
	cis, err := p.commonInputs(ci)
	if err != nil {
		return nil, err
	}
	space, err := SameChallengeSpace(p.protocols[:], cis)
	if err != nil {
		return nil, err
	}
	items, err := r.Items(3)
	if err != nil {
		return nil, err
	}
	c, err := space.Restore(items[0])
	if err != nil {
		return nil, err
	}
	t0, err := p.protocols[0].DecompressTranscript(cis[0], items[1])
	if err != nil {
		return nil, fmt.Errorf("or branch 0: %w", err)
	}
	t1, err := p.protocols[1].DecompressTranscript(cis[1], items[2])
	if err != nil {
		return nil, fmt.Errorf("or branch 1: %w", err)
	}
	c1, err := space.Subtract(c, t0.Challenge())
	if err != nil {
		return nil, err
	}
	if !space.Equal(c1, t1.Challenge()) {
		return nil, fmt.Errorf("%w: or sub-challenges do not add up", ErrMalformed)
	}
	a := AnnouncementVector{t0.Announcement(), t1.Announcement()}
	return NewTranscript(a, c, &OrResponse{Response0: t0.Response(), Response1: t1.Response(), Challenge0: t0.Challenge()}), nil
}
