package linear

import (
	"errors"
	"fmt"
	"io"
	"math/big"
)

// ErrNotInNullspace is returned before committing to an integer vector that
// does not satisfy Lx = 0.
var ErrNotInNullspace = errors.New("vector not in nullspace")

// CheckInt64 checks Lx = 0 over the integers. Row sums are accumulated in
// big.Int so large entries cannot wrap to zero.
func CheckInt64(L [][]int64, x []int64) error {
	if err := checkMatrix(L, len(x)); err != nil {
		return err
	}
	acc := new(big.Int)
	term := new(big.Int)
	for j, row := range L {
		acc.SetInt64(0)
		for i, lij := range row {
			term.SetInt64(lij)
			term.Mul(term, big.NewInt(x[i]))
			acc.Add(acc, term)
		}
		if acc.Sign() != 0 {
			return fmt.Errorf("%w: constraint violated at row %d", ErrNotInNullspace, j)
		}
	}
	return nil
}

// CommitInt64 commits to an integer vector after checking it lies in the
// nullspace of L.
func CommitInt64(rnd io.Reader, L [][]int64, x []int64) (*Statement, Witness, error) {
	if err := CheckInt64(L, x); err != nil {
		return nil, Witness{}, err
	}
	xs, err := ScalarsFromInt64(x)
	if err != nil {
		return nil, Witness{}, err
	}
	return Commit(rnd, L, xs)
}
