package proto

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/goccy/go-json"

	"sigmakit/internal/config"
)

// A frame is a 4-byte big-endian length followed by one session message.
// Every message opens with its "type" field, which is read before the rest
// of the frame so the per-type cap applies before the body is buffered.
const (
	headerSize = 4
	sniffSize  = 128
	// room for the message fields around an encoded repr
	envelopeSize = 1 << 10

	// challenges carry one encoded challenge and verdicts a fingerprint or
	// a short refusal, so both stay far below the frame cap
	MaxChallengeSize = 4 << 10
	MaxVerdictSize   = 4 << 10
)

var (
	ErrFrameSize   = errors.New("invalid frame size")
	ErrUnknownType = errors.New("unknown message type")
)

// Caps bounds the frames of one session.
type Caps struct {
	Frame     int
	Challenge int
	Verdict   int
}

// CapsFor sizes the session caps to carry reprs of up to maxRepr encoded
// bytes, the codec's MaxBytes.
func CapsFor(maxRepr int) Caps {
	maxFrame := maxRepr + envelopeSize
	return Caps{
		Frame:     maxFrame,
		Challenge: min(maxFrame, MaxChallengeSize),
		Verdict:   min(maxFrame, MaxVerdictSize),
	}
}

// DefaultCaps reads the repr limit from SIGMA_MAX_FRAME_BYTES.
func DefaultCaps() Caps {
	return CapsFor(config.MaxFrameBytes())
}

// ForType returns the cap for msgType, or 0 when the type is not part of a
// session.
func (c Caps) ForType(msgType string) int {
	switch msgType {
	case MsgTypeAnnounce, MsgTypeResponse:
		return c.Frame
	case MsgTypeChallenge:
		return c.Challenge
	case MsgTypeVerdict:
		return c.Verdict
	}
	return 0
}

// Write frames payload onto w.
func (c Caps) Write(w io.Writer, payload []byte) error {
	if len(payload) == 0 || len(payload) > c.Frame {
		return fmt.Errorf("%w: %d bytes", ErrFrameSize, len(payload))
	}
	frame := binary.BigEndian.AppendUint32(make([]byte, 0, headerSize+len(payload)), uint32(len(payload)))
	_, err := w.Write(append(frame, payload...))
	return err
}

// Read reads one frame from r and returns its payload. The frame is refused
// once its length exceeds the cap of the type it announces.
func (c Caps) Read(r io.Reader) ([]byte, error) {
	var hdr [headerSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}
	n := int(binary.BigEndian.Uint32(hdr[:]))
	if n == 0 || n > c.Frame {
		return nil, fmt.Errorf("%w: %d bytes", ErrFrameSize, n)
	}
	payload := make([]byte, min(n, sniffSize), n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, err
	}
	msgType := TypeOf(payload)
	limit := c.ForType(msgType)
	if limit == 0 {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, msgType)
	}
	if n > limit {
		return nil, fmt.Errorf("%w: %d bytes for %s", ErrFrameSize, n, msgType)
	}
	payload = payload[:n]
	if _, err := io.ReadFull(r, payload[min(n, sniffSize):]); err != nil {
		return nil, err
	}
	return payload, nil
}

var typeKey = []byte(`"type":"`)

// TypeOf returns the "type" field of a payload, or "" if there is none. A
// payload cut short still yields its type when the field comes first, as it
// does for every message this package encodes.
func TypeOf(payload []byte) string {
	var m struct {
		Type string `json:"type"`
	}
	if json.Unmarshal(payload, &m) == nil {
		return m.Type
	}
	rest, ok := bytes.CutPrefix(bytes.TrimLeft(payload, " \t\r\n{"), typeKey)
	if !ok {
		return ""
	}
	end := bytes.IndexByte(rest, '"')
	if end < 0 {
		return ""
	}
	return string(rest[:end])
}
