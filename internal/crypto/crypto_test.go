package crypto

import (
	"bytes"
	"testing"

	"golang.org/x/crypto/sha3"
)

func TestKDFDeterminismAndContext(t *testing.T) {
	a := KDF("sigmakit:test", []byte("x"))
	b := KDF("sigmakit:test", []byte("x"))
	if !bytes.Equal(a, b) {
		t.Fatalf("KDF not deterministic")
	}
	if bytes.Equal(a, KDF("sigmakit:other", []byte("x"))) {
		t.Fatalf("KDF ignores label")
	}
	if len(a) != 32 {
		t.Fatalf("unexpected KDF size %d", len(a))
	}
}

func TestKDFPartBoundaries(t *testing.T) {
	if bytes.Equal(KDF("l", []byte("ab"), []byte("c")), KDF("l", []byte("a"), []byte("bc"))) {
		t.Fatalf("part boundaries collide")
	}
}

func TestFingerprint(t *testing.T) {
	f1 := Fingerprint("dlog", []byte("transcript"))
	f2 := Fingerprint("dlog", []byte("transcript"))
	if f1 != f2 || len(f1) != 24 {
		t.Fatalf("unexpected fingerprint %q %q", f1, f2)
	}
	if f1 == Fingerprint("or", []byte("transcript")) {
		t.Fatalf("fingerprint ignores statement name")
	}
}

func TestNewSessionID(t *testing.T) {
	rnd := sha3.NewShake256()
	_, _ = rnd.Write([]byte("session-id"))
	a, err := NewSessionID(rnd)
	if err != nil {
		t.Fatalf("session id: %v", err)
	}
	b, err := NewSessionID(rnd)
	if err != nil {
		t.Fatalf("session id: %v", err)
	}
	if a == b || len(a) != 2*SessionIDSize {
		t.Fatalf("unexpected session ids %q %q", a, b)
	}
	if _, err := NewSessionID(bytes.NewReader(nil)); err == nil {
		t.Fatalf("expected error on short reader")
	}
}
