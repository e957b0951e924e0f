package sigma

import (
	"fmt"
	"io"

	"sigmakit/internal/boolexpr"
)

// Protocol is a three-move public-coin proof of knowledge.
//
// Completeness: for a valid witness and any challenge, AnnouncementSecret,
// Announcement, Response and CheckExpr evaluate to true. Special honest-verifier
// zero-knowledge: SimulateTranscript verifies for the given challenge and, for a
// uniform challenge, is distributed like an honest run.
type Protocol interface {
	ChallengeSpace(ci CommonInput) (ChallengeSpace, error)

	// AnnouncementSecret samples the prover randomness. The caller
	// guarantees that si is a valid witness for ci.
	AnnouncementSecret(rnd io.Reader, ci CommonInput, si SecretInput) (AnnouncementSecret, error)
	// Announcement is deterministic given the announcement secret.
	Announcement(ci CommonInput, si SecretInput, as AnnouncementSecret) (Announcement, error)
	Response(ci CommonInput, si SecretInput, a Announcement, as AnnouncementSecret, c Challenge) (Response, error)

	// CheckExpr returns the verification predicate unevaluated so that
	// composed protocols can join the checks of their branches.
	CheckExpr(ci CommonInput, a Announcement, c Challenge, r Response) (boolexpr.Expr, error)

	SimulateTranscript(rnd io.Reader, ci CommonInput, c Challenge) (*Transcript, error)

	RestoreAnnouncement(ci CommonInput, r Repr) (Announcement, error)
	RestoreResponse(ci CommonInput, a Announcement, c Challenge, r Repr) (Response, error)

	// CompressTranscript may drop what DecompressTranscript can recompute.
	CompressTranscript(ci CommonInput, t *Transcript) (Repr, error)
	DecompressTranscript(ci CommonInput, r Repr) (*Transcript, error)
}

// GenerateChallenge draws a uniform challenge for ci.
func GenerateChallenge(p Protocol, rnd io.Reader, ci CommonInput) (Challenge, error) {
	space, err := p.ChallengeSpace(ci)
	if err != nil {
		return nil, err
	}
	return space.Random(rnd)
}

// CheckTranscript evaluates the verification predicate of t.
func CheckTranscript(p Protocol, ci CommonInput, t *Transcript) (bool, error) {
	if t == nil {
		return false, fmt.Errorf("%w: nil transcript", ErrMalformed)
	}
	e, err := p.CheckExpr(ci, t.announcement, t.challenge, t.response)
	if err != nil {
		return false, err
	}
	return e.Evaluate(), nil
}

// Prove runs the prover for a challenge that is fixed up front.
func Prove(p Protocol, rnd io.Reader, ci CommonInput, si SecretInput, c Challenge) (*Transcript, error) {
	s := NewProverSession(p, ci, si)
	a, err := s.Announce(rnd)
	if err != nil {
		return nil, err
	}
	r, err := s.Respond(c)
	if err != nil {
		return nil, err
	}
	return NewTranscript(a, c, r), nil
}

// Run executes an honest run with a fresh uniform challenge.
func Run(p Protocol, rnd io.Reader, ci CommonInput, si SecretInput) (*Transcript, error) {
	s := NewProverSession(p, ci, si)
	a, err := s.Announce(rnd)
	if err != nil {
		return nil, err
	}
	c, err := GenerateChallenge(p, rnd, ci)
	if err != nil {
		return nil, err
	}
	r, err := s.Respond(c)
	if err != nil {
		return nil, err
	}
	return NewTranscript(a, c, r), nil
}

// RestoreTranscript reverses Transcript.Repr.
func RestoreTranscript(p Protocol, ci CommonInput, r Repr) (*Transcript, error) {
	items, err := r.Items(3)
	if err != nil {
		return nil, fmt.Errorf("restore transcript: %w", err)
	}
	a, err := p.RestoreAnnouncement(ci, items[0])
	if err != nil {
		return nil, err
	}
	space, err := p.ChallengeSpace(ci)
	if err != nil {
		return nil, err
	}
	c, err := space.Restore(items[1])
	if err != nil {
		return nil, err
	}
	resp, err := p.RestoreResponse(ci, a, c, items[2])
	if err != nil {
		return nil, err
	}
	return NewTranscript(a, c, resp), nil
}

// CompressFull is the trivial compression that keeps every field.
func CompressFull(t *Transcript) (Repr, error) {
	if t == nil {
		return Repr{}, fmt.Errorf("%w: nil transcript", ErrMalformed)
	}
	return t.Repr(), nil
}

// DecompressFull reverses CompressFull.
func DecompressFull(p Protocol, ci CommonInput, r Repr) (*Transcript, error) {
	return RestoreTranscript(p, ci, r)
}

// SameChallengeSpace returns the space shared by all branches, or
// ErrChallengeSpaceMismatch.
func SameChallengeSpace(ps []Protocol, cis CommonInputVector) (ChallengeSpace, error) {
	if len(ps) == 0 {
		return nil, fmt.Errorf("%w: no subprotocols", ErrMalformed)
	}
	first, err := ps[0].ChallengeSpace(cis[0])
	if err != nil {
		return nil, err
	}
	for i := 1; i < len(ps); i++ {
		sp, err := ps[i].ChallengeSpace(cis[i])
		if err != nil {
			return nil, err
		}
		if !first.SameSpace(sp) {
			return nil, fmt.Errorf("%w: branch %d differs from branch 0", ErrChallengeSpaceMismatch, i)
		}
	}
	return first, nil
}
