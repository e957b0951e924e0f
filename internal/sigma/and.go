package sigma

import (
	"fmt"
	"io"

	"golang.org/x/sync/errgroup"

	"sigmakit/internal/boolexpr"
)

// AndProof proves all of its subprotocols under one shared challenge.
// CommonInput, SecretInput and every payload are vectors aligned with the
// subprotocol order.
type AndProof struct {
	protocols []Protocol
}

func NewAndProof(protocols ...Protocol) *AndProof {
	ps := make([]Protocol, len(protocols))
	copy(ps, protocols)
	return &AndProof{protocols: ps}
}

func (p *AndProof) Protocols() []Protocol {
	out := make([]Protocol, len(p.protocols))
	copy(out, p.protocols)
	return out
}

func (p *AndProof) commonInputs(ci CommonInput) (CommonInputVector, error) {
	return vectorOf[CommonInputVector](ci, len(p.protocols), "and common input")
}

func (p *AndProof) ChallengeSpace(ci CommonInput) (ChallengeSpace, error) {
	cis, err := p.commonInputs(ci)
	if err != nil {
		return nil, err
	}
	return SameChallengeSpace(p.protocols, cis)
}

func (p *AndProof) AnnouncementSecret(rnd io.Reader, ci CommonInput, si SecretInput) (AnnouncementSecret, error) {
	if _, err := p.ChallengeSpace(ci); err != nil {
		return nil, err
	}
	cis, _ := p.commonInputs(ci)
	sis, err := vectorOf[SecretInputVector](si, len(p.protocols), "and secret input")
	if err != nil {
		return nil, err
	}
	out := make(AnnouncementSecretVector, len(p.protocols))
	for i, sub := range p.protocols {
		if out[i], err = sub.AnnouncementSecret(rnd, cis[i], sis[i]); err != nil {
			return nil, fmt.Errorf("and branch %d: %w", i, err)
		}
	}
	return out, nil
}

// Announcement computes the branch announcements concurrently; they share no
// data until the challenge arrives.
func (p *AndProof) Announcement(ci CommonInput, si SecretInput, as AnnouncementSecret) (Announcement, error) {
	n := len(p.protocols)
	cis, err := p.commonInputs(ci)
	if err != nil {
		return nil, err
	}
	sis, err := vectorOf[SecretInputVector](si, n, "and secret input")
	if err != nil {
		return nil, err
	}
	ass, err := vectorOf[AnnouncementSecretVector](as, n, "and announcement secret")
	if err != nil {
		return nil, err
	}
	out := make(AnnouncementVector, n)
	var eg errgroup.Group
	for i := range p.protocols {
		eg.Go(func() error {
			a, err := p.protocols[i].Announcement(cis[i], sis[i], ass[i])
			if err != nil {
				return fmt.Errorf("and branch %d: %w", i, err)
			}
			out[i] = a
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (p *AndProof) Response(ci CommonInput, si SecretInput, a Announcement, as AnnouncementSecret, c Challenge) (Response, error) {
	n := len(p.protocols)
	cis, err := p.commonInputs(ci)
	if err != nil {
		return nil, err
	}
	sis, err := vectorOf[SecretInputVector](si, n, "and secret input")
	if err != nil {
		return nil, err
	}
	anns, err := vectorOf[AnnouncementVector](a, n, "and announcement")
	if err != nil {
		return nil, err
	}
	ass, err := vectorOf[AnnouncementSecretVector](as, n, "and announcement secret")
	if err != nil {
		return nil, err
	}
	out := make(ResponseVector, n)
	for i, sub := range p.protocols {
		if out[i], err = sub.Response(cis[i], sis[i], anns[i], ass[i], c); err != nil {
			return nil, fmt.Errorf("and branch %d: %w", i, err)
		}
	}
	return out, nil
}

func (p *AndProof) CheckExpr(ci CommonInput, a Announcement, c Challenge, r Response) (boolexpr.Expr, error) {
	n := len(p.protocols)
	cis, err := p.commonInputs(ci)
	if err != nil {
		return nil, err
	}
	as, err := vectorOf[AnnouncementVector](a, n, "and announcement")
	if err != nil {
		return nil, err
	}
	rs, err := vectorOf[ResponseVector](r, n, "and response")
	if err != nil {
		return nil, err
	}
	checks := make([]boolexpr.Expr, n)
	for i, sub := range p.protocols {
		if checks[i], err = sub.CheckExpr(cis[i], as[i], c, rs[i]); err != nil {
			return nil, fmt.Errorf("and branch %d: %w", i, err)
		}
	}
	return boolexpr.And(checks...), nil
}

func (p *AndProof) SimulateTranscript(rnd io.Reader, ci CommonInput, c Challenge) (*Transcript, error) {
	cis, err := p.commonInputs(ci)
	if err != nil {
		return nil, err
	}
	as := make(AnnouncementVector, len(p.protocols))
	rs := make(ResponseVector, len(p.protocols))
	for i, sub := range p.protocols {
		t, err := sub.SimulateTranscript(rnd, cis[i], c)
		if err != nil {
			return nil, fmt.Errorf("and branch %d: %w", i, err)
		}
		as[i], rs[i] = t.Announcement(), t.Response()
	}
	return NewTranscript(as, c, rs), nil
}

func (p *AndProof) RestoreAnnouncement(ci CommonInput, r Repr) (Announcement, error) {
	cis, err := p.commonInputs(ci)
	if err != nil {
		return nil, err
	}
	items, err := r.Items(len(p.protocols))
	if err != nil {
		return nil, err
	}
	out := make(AnnouncementVector, len(p.protocols))
	for i, sub := range p.protocols {
		if out[i], err = sub.RestoreAnnouncement(cis[i], items[i]); err != nil {
			return nil, fmt.Errorf("and branch %d: %w", i, err)
		}
	}
	return out, nil
}

func (p *AndProof) RestoreResponse(ci CommonInput, a Announcement, c Challenge, r Repr) (Response, error) {
	n := len(p.protocols)
	cis, err := p.commonInputs(ci)
	if err != nil {
		return nil, err
	}
	as, err := vectorOf[AnnouncementVector](a, n, "and announcement")
	if err != nil {
		return nil, err
	}
	items, err := r.Items(n)
	if err != nil {
		return nil, err
	}
	out := make(ResponseVector, n)
	for i, sub := range p.protocols {
		if out[i], err = sub.RestoreResponse(cis[i], as[i], c, items[i]); err != nil {
			return nil, fmt.Errorf("and branch %d: %w", i, err)
		}
	}
	return out, nil
}

// CompressTranscript compresses every branch on its own.
func (p *AndProof) CompressTranscript(ci CommonInput, t *Transcript) (Repr, error) {
	n := len(p.protocols)
	cis, err := p.commonInputs(ci)
	if err != nil {
		return Repr{}, err
	}
	as, err := vectorOf[AnnouncementVector](t.Announcement(), n, "and announcement")
	if err != nil {
		return Repr{}, err
	}
	rs, err := vectorOf[ResponseVector](t.Response(), n, "and response")
	if err != nil {
		return Repr{}, err
	}
	items := make([]Repr, n)
	for i, sub := range p.protocols {
		if items[i], err = sub.CompressTranscript(cis[i], NewTranscript(as[i], t.Challenge(), rs[i])); err != nil {
			return Repr{}, fmt.Errorf("and branch %d: %w", i, err)
		}
	}
	return ListRepr(items...), nil
}

func (p *AndProof) DecompressTranscript(ci CommonInput, r Repr) (*Transcript, error) {
	n := len(p.protocols)
	cis, err := p.commonInputs(ci)
	if err != nil {
		return nil, err
	}
	space, err := SameChallengeSpace(p.protocols, cis)
	if err != nil {
		return nil, err
	}
	items, err := r.Items(n)
	if err != nil {
		return nil, err
	}
	as := make(AnnouncementVector, n)
	rs := make(ResponseVector, n)
	var c Challenge
	for i, sub := range p.protocols {
		t, err := sub.DecompressTranscript(cis[i], items[i])
		if err != nil {
			return nil, fmt.Errorf("and branch %d: %w", i, err)
		}
		if i == 0 {
			c = t.Challenge()
		} else if !space.Equal(c, t.Challenge()) {
			return nil, fmt.Errorf("%w: and branch %d carries a different challenge", ErrMalformed, i)
		}
		as[i], rs[i] = t.Announcement(), t.Response()
	}
	return NewTranscript(as, c, rs), nil
}
