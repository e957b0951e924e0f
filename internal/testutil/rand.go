package testutil

import (
	"io"

	"golang.org/x/crypto/sha3"
)

const readerDST = "sigmakit/testutil/reader"

// NewReader returns a deterministic byte stream for seed, so property tests
// replay the same randomness on every run. Never use it outside tests.
func NewReader(seed string) io.Reader {
	h := sha3.NewShake256()
	_, _ = h.Write([]byte(readerDST))
	_, _ = h.Write([]byte(seed))
	return h
}
