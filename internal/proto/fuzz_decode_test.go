package proto

import (
	"bytes"
	"testing"

	"sigmakit/internal/testutil"
)

func FuzzDecodeFrame(f *testing.F) {
	f.Add([]byte{0, 0, 0, 1, '{'})
	f.Add([]byte{0, 0, 0, 5, '{', '"', 't', '"', '}'})
	f.Fuzz(func(t *testing.T, data []byte) {
		testutil.Decode(t, data, func(data []byte) {
			r := bytes.NewReader(data)
			_, _ = CapsFor(4 << 10).Read(r)
		})
	})
}

func FuzzDecodeAnnounce(f *testing.F) {
	f.Add([]byte(`{"type":"sigma_announce","proto_version":"0.1.0","session_id":"s","statement":"dlog","announcement":{"b":"AQ=="}}`))
	f.Fuzz(func(t *testing.T, data []byte) {
		testutil.Decode(t, data, func(data []byte) {
			m, err := DecodeAnnounceMsg(data)
			if err == nil {
				_, _ = EncodeAnnounceMsg(m)
			}
		})
	})
}
