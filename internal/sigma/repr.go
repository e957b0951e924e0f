package sigma

import (
	"bytes"
	"fmt"

	"github.com/cloudflare/circl/group"
)

// Repr is the structural form of a protocol value: a byte string leaf or an
// ordered list of child representations. Byte encodings live in internal/codec.
type Repr struct {
	Bytes []byte `json:"b,omitempty"`
	List  []Repr `json:"l,omitempty"`
}

// Representable values can be restored from their Repr by the protocol that
// produced them.
type Representable interface {
	Repr() Repr
}

func BytesRepr(b []byte) Repr {
	return Repr{Bytes: b}
}

func ListRepr(items ...Repr) Repr {
	return Repr{List: items}
}

// Equal compares two representations structurally. Nil and empty are the same.
func (r Repr) Equal(o Repr) bool {
	if !bytes.Equal(r.Bytes, o.Bytes) || len(r.List) != len(o.List) {
		return false
	}
	for i := range r.List {
		if !r.List[i].Equal(o.List[i]) {
			return false
		}
	}
	return true
}

// Items returns the list children, which must number exactly n.
func (r Repr) Items(n int) ([]Repr, error) {
	if len(r.List) != n {
		return nil, fmt.Errorf("%w: repr has %d items, want %d", ErrMalformed, len(r.List), n)
	}
	return r.List, nil
}

func ScalarRepr(s group.Scalar) Repr {
	if s == nil {
		return Repr{}
	}
	b, err := s.MarshalBinary()
	if err != nil {
		return Repr{}
	}
	return BytesRepr(b)
}

func ElementRepr(e group.Element) Repr {
	if e == nil {
		return Repr{}
	}
	b, err := e.MarshalBinaryCompress()
	if err != nil {
		return Repr{}
	}
	return BytesRepr(b)
}

func RestoreScalar(g group.Group, r Repr) (group.Scalar, error) {
	if len(r.Bytes) == 0 {
		return nil, fmt.Errorf("%w: empty scalar", ErrMalformed)
	}
	s := g.NewScalar()
	if err := s.UnmarshalBinary(r.Bytes); err != nil {
		return nil, fmt.Errorf("%w: unmarshal scalar: %v", ErrMalformed, err)
	}
	return s, nil
}

func RestoreElement(g group.Group, r Repr) (group.Element, error) {
	if len(r.Bytes) == 0 {
		return nil, fmt.Errorf("%w: empty element", ErrMalformed)
	}
	e := g.NewElement()
	if err := e.UnmarshalBinary(r.Bytes); err != nil {
		return nil, fmt.Errorf("%w: unmarshal element: %v", ErrMalformed, err)
	}
	return e, nil
}
