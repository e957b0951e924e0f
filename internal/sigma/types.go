// Package sigma defines three-move public-coin proofs of knowledge and the
// AND/OR combinators over them.
//
// A run is announcement secret -> announcement -> challenge -> response. Every
// payload has a Vector variant whose positions line up with the subprotocols of
// a composite protocol.
package sigma

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformed reports a structural mismatch: a wrong composite variant,
	// a wrong arity or an element of the wrong group.
	ErrMalformed = errors.New("sigma: malformed input")
	// ErrChallengeSpaceMismatch reports composed protocols that do not share a
	// challenge space.
	ErrChallengeSpaceMismatch = errors.New("sigma: challenge space mismatch")
	// ErrSessionState reports a session step taken out of order or twice.
	ErrSessionState = errors.New("sigma: invalid session state")
)

// CommonInput is the public statement of one protocol instance.
type CommonInput interface{}

// SecretInput is the witness for a CommonInput.
type SecretInput interface{}

// AnnouncementSecret is the prover randomness behind one announcement. It is
// used for exactly one response and then dropped.
type AnnouncementSecret interface{}

// Announcement is the prover's first message.
type Announcement interface {
	Representable
}

// Response is the prover's third message.
type Response interface {
	Representable
}

// SendFirstValue is what a delegating protocol commits to before its
// subprotocols are fixed.
type SendFirstValue interface {
	Representable
}

type CommonInputVector []CommonInput

type SecretInputVector []SecretInput

type AnnouncementSecretVector []AnnouncementSecret

type AnnouncementVector []Announcement

func (v AnnouncementVector) Repr() Repr {
	items := make([]Repr, len(v))
	for i, a := range v {
		items[i] = a.Repr()
	}
	return ListRepr(items...)
}

type ResponseVector []Response

func (v ResponseVector) Repr() Repr {
	items := make([]Repr, len(v))
	for i, r := range v {
		items[i] = r.Repr()
	}
	return ListRepr(items...)
}

// EmptyAnnouncement is sent by protocols whose first message carries nothing.
type EmptyAnnouncement struct{}

func (EmptyAnnouncement) Repr() Repr { return Repr{} }

// EmptyResponse is sent by protocols whose opening is carried elsewhere.
type EmptyResponse struct{}

func (EmptyResponse) Repr() Repr { return Repr{} }

// EmptySendFirstValue is the send-first value of protocols that only delegate.
type EmptySendFirstValue struct{}

func (EmptySendFirstValue) Repr() Repr { return Repr{} }

// vectorOf asserts x is the vector type V with exactly n positions.
func vectorOf[V ~[]E, E any](x any, n int, what string) (V, error) {
	v, ok := x.(V)
	if !ok {
		return nil, fmt.Errorf("%w: %s is %T, want %T", ErrMalformed, what, x, v)
	}
	if len(v) != n {
		return nil, fmt.Errorf("%w: %s has %d entries, want %d", ErrMalformed, what, len(v), n)
	}
	return v, nil
}
