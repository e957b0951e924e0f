package testutil

import (
	"testing"
	"time"
)

// Fuzzed wire input is cut to maxFuzzInput bytes and every decode of it must
// return within fuzzDeadline.
const (
	maxFuzzInput = 1 << 16
	fuzzDeadline = 250 * time.Millisecond
)

// Decode runs decode on data, truncated to maxFuzzInput, and fails t when
// decode is still running after fuzzDeadline. decode may report through
// t.Errorf but not t.Fatalf.
func Decode(t testing.TB, data []byte, decode func(data []byte)) {
	t.Helper()
	if len(data) > maxFuzzInput {
		data = data[:maxFuzzInput]
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		decode(data)
	}()
	timer := time.NewTimer(fuzzDeadline)
	defer timer.Stop()
	select {
	case <-done:
	case <-timer.C:
		t.Fatalf("decode of %d bytes still running after %s", len(data), fuzzDeadline)
	}
}
