package sigma

import (
	"fmt"
	"io"
)

type sessionState int

const (
	stateIdle sessionState = iota
	stateAnnounced
	stateDone
)

// ProverSession drives one prover run. The announcement secret lives only
// between Announce and Respond; a session cannot answer a second challenge.
// A run abandoned half way is simply dropped.
type ProverSession struct {
	p     Protocol
	ci    CommonInput
	si    SecretInput
	state sessionState
	as    AnnouncementSecret
	a     Announcement
}

func NewProverSession(p Protocol, ci CommonInput, si SecretInput) *ProverSession {
	return &ProverSession{p: p, ci: ci, si: si}
}

func (s *ProverSession) Announce(rnd io.Reader) (Announcement, error) {
	if s.state != stateIdle {
		return nil, fmt.Errorf("%w: announce called twice", ErrSessionState)
	}
	as, err := s.p.AnnouncementSecret(rnd, s.ci, s.si)
	if err != nil {
		return nil, err
	}
	a, err := s.p.Announcement(s.ci, s.si, as)
	if err != nil {
		return nil, err
	}
	s.as, s.a = as, a
	s.state = stateAnnounced
	return a, nil
}

func (s *ProverSession) Respond(c Challenge) (Response, error) {
	if s.state != stateAnnounced {
		return nil, fmt.Errorf("%w: respond without a pending announcement", ErrSessionState)
	}
	as := s.as
	s.as = nil
	s.state = stateDone
	return s.p.Response(s.ci, s.si, s.a, as, c)
}

// VerifierSession drives one verifier run.
type VerifierSession struct {
	p     Protocol
	ci    CommonInput
	state sessionState
	a     Announcement
	c     Challenge
	t     *Transcript
}

func NewVerifierSession(p Protocol, ci CommonInput) *VerifierSession {
	return &VerifierSession{p: p, ci: ci}
}

// Challenge records the announcement and answers with a fresh challenge.
func (v *VerifierSession) Challenge(rnd io.Reader, a Announcement) (Challenge, error) {
	if v.state != stateIdle {
		return nil, fmt.Errorf("%w: challenge issued twice", ErrSessionState)
	}
	c, err := GenerateChallenge(v.p, rnd, v.ci)
	if err != nil {
		return nil, err
	}
	v.a, v.c = a, c
	v.state = stateAnnounced
	return c, nil
}

// Verify checks the response against the recorded announcement and challenge.
// A rejected proof is a false result, not an error.
func (v *VerifierSession) Verify(r Response) (bool, error) {
	if v.state != stateAnnounced {
		return false, fmt.Errorf("%w: verify without a pending challenge", ErrSessionState)
	}
	v.state = stateDone
	v.t = NewTranscript(v.a, v.c, r)
	return CheckTranscript(v.p, v.ci, v.t)
}

// Transcript is the completed run, or nil before Verify.
func (v *VerifierSession) Transcript() *Transcript {
	return v.t
}
