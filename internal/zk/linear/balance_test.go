package linear

import (
	"errors"
	"testing"

	"sigmakit/internal/sigma"
	"sigmakit/internal/testutil"
)

func TestCheckInt64(t *testing.T) {
	conservation := [][]int64{{1, 1, -1, -1}}
	if err := CheckInt64(conservation, []int64{5, 7, 4, 8}); err != nil {
		t.Fatalf("balanced vector rejected: %v", err)
	}
	if err := CheckInt64(conservation, []int64{5, 7, 4, 9}); !errors.Is(err, ErrNotInNullspace) {
		t.Fatalf("expected ErrNotInNullspace, got %v", err)
	}
	if err := CheckInt64(conservation, []int64{5, 7, 4}); !errors.Is(err, sigma.ErrMalformed) {
		t.Fatalf("expected ErrMalformed for short vector, got %v", err)
	}
	// 2·2^62 + 2·2^62 is 2^64, which wraps to zero in int64
	if err := CheckInt64([][]int64{{2, 2}}, []int64{1 << 62, 1 << 62}); !errors.Is(err, ErrNotInNullspace) {
		t.Fatalf("expected overflow to be caught, got %v", err)
	}
}

func TestCommitInt64(t *testing.T) {
	rnd := testutil.NewReader(t.Name())
	L := [][]int64{{1, 1, -1, -1}}
	st, w, err := CommitInt64(rnd, L, []int64{5, 7, 4, 8})
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	tr, err := sigma.Run(NewNullspace(), rnd, st, w)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !verify(t, st, tr) {
		t.Fatalf("balanced vector did not verify")
	}
	if _, _, err := CommitInt64(rnd, L, []int64{5, 7, 4, 9}); !errors.Is(err, ErrNotInNullspace) {
		t.Fatalf("expected ErrNotInNullspace, got %v", err)
	}
}
