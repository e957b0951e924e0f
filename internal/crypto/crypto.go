// internal/crypto/crypto.go
package crypto

import (
	"encoding/hex"
	"fmt"
	"io"

	"golang.org/x/crypto/sha3"
)

// -----------------------------------------------------------------------------
// SHA-3
// -----------------------------------------------------------------------------

const (
	fingerprintLabel = "sigmakit:v0:transcript"
	sessionLabel     = "sigmakit:v0:session"
	SessionIDSize    = 16
)

func SHA3_256(msg []byte) []byte {
	sum := sha3.Sum256(msg)
	return sum[:]
}

// KDF hashes label and parts with a length prefix on every part, so that
// ("ab","c") and ("a","bc") never collide.
func KDF(label string, parts ...[]byte) []byte {
	h := sha3.New256()
	writeLen(h, len(label))
	h.Write([]byte(label))
	for _, p := range parts {
		writeLen(h, len(p))
		h.Write(p)
	}
	return h.Sum(nil)
}

func writeLen(w io.Writer, n int) {
	var b [4]byte
	b[0] = byte(n >> 24)
	b[1] = byte(n >> 16)
	b[2] = byte(n >> 8)
	b[3] = byte(n)
	_, _ = w.Write(b[:])
}

// -----------------------------------------------------------------------------
// Transcript fingerprints and session ids
// -----------------------------------------------------------------------------

// Fingerprint returns a short hex digest of an encoded transcript. It is only
// an identifier for logs and metrics.
func Fingerprint(statement string, encoded []byte) string {
	return hex.EncodeToString(KDF(fingerprintLabel, []byte(statement), encoded)[:12])
}

// NewSessionID draws SessionIDSize bytes from rnd and whitens them.
func NewSessionID(rnd io.Reader) (string, error) {
	var seed [32]byte
	if _, err := io.ReadFull(rnd, seed[:]); err != nil {
		return "", fmt.Errorf("session id: %w", err)
	}
	return hex.EncodeToString(KDF(sessionLabel, seed[:])[:SessionIDSize]), nil
}
