package linear

import (
	"encoding/binary"
	"fmt"

	"sigmakit/internal/codec"
	"sigmakit/internal/config"
	"sigmakit/internal/sigma"
	"sigmakit/internal/zk/pedersen"
)

// Repr is the matrix as rows of 8-byte big-endian entries followed by the
// compressed commitments.
func (s *Statement) Repr() sigma.Repr {
	rows := make([]sigma.Repr, len(s.L))
	for j, row := range s.L {
		entries := make([]sigma.Repr, len(row))
		for i, v := range row {
			b := make([]byte, 8)
			binary.BigEndian.PutUint64(b, uint64(v))
			entries[i] = sigma.BytesRepr(b)
		}
		rows[j] = sigma.ListRepr(entries...)
	}
	commitments := make([]sigma.Repr, len(s.C))
	for i, c := range s.C {
		commitments[i] = sigma.ElementRepr(c)
	}
	return sigma.ListRepr(sigma.ListRepr(rows...), sigma.ListRepr(commitments...))
}

// EncodeStatement serializes st with the codec caps.
func EncodeStatement(st *Statement, lim codec.Limits) ([]byte, error) {
	if err := st.validate(); err != nil {
		return nil, err
	}
	return codec.MarshalWithLimits(st.Repr(), lim)
}

// DecodeStatement parses a statement. Row and column counts are checked
// against the caps before any entry is decoded.
func DecodeStatement(b []byte, lim codec.Limits) (*Statement, error) {
	r, err := codec.UnmarshalWithLimits(b, lim)
	if err != nil {
		return nil, err
	}
	items, err := r.Items(2)
	if err != nil {
		return nil, err
	}
	rows, cs := items[0].List, items[1].List
	if len(rows) == 0 || len(cs) == 0 {
		return nil, fmt.Errorf("%w: empty matrix or commitments", sigma.ErrMalformed)
	}
	if len(rows) > config.MaxRows() || len(cs) > config.MaxCommitments() {
		return nil, fmt.Errorf("%w: %dx%d statement over caps", sigma.ErrMalformed, len(rows), len(cs))
	}
	L := make([][]int64, len(rows))
	for j, row := range rows {
		if len(row.List) != len(cs) {
			return nil, fmt.Errorf("%w: row %d has %d entries, want %d", sigma.ErrMalformed, j, len(row.List), len(cs))
		}
		L[j] = make([]int64, len(cs))
		for i, e := range row.List {
			if len(e.Bytes) != 8 || len(e.List) != 0 {
				return nil, fmt.Errorf("%w: entry (%d,%d)", sigma.ErrMalformed, j, i)
			}
			L[j][i] = int64(binary.BigEndian.Uint64(e.Bytes))
		}
	}
	g := pedersen.Group()
	C := make([]pedersen.Element, len(cs))
	for i, c := range cs {
		if C[i], err = sigma.RestoreElement(g, c); err != nil {
			return nil, fmt.Errorf("commitment %d: %w", i, err)
		}
	}
	return NewStatement(L, C)
}
