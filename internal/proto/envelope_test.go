package proto

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestFrameRoundTrip(t *testing.T) {
	caps := CapsFor(1 << 10)
	payload := []byte(`{"type":"sigma_challenge","session_id":"ab","challenge":{"b":"AQ=="}}`)
	var buf bytes.Buffer
	if err := caps.Write(&buf, payload); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if buf.Len() != headerSize+len(payload) {
		t.Fatalf("frame length %d", buf.Len())
	}
	got, err := caps.Read(&buf)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if !bytes.Equal(payload, got) {
		t.Fatalf("payload mismatch")
	}
}

func TestReadLongAnnounce(t *testing.T) {
	caps := CapsFor(64 << 10)
	body := `{"type":"sigma_announce","announcement":{"b":"` + strings.Repeat("A", 32<<10) + `"}}`
	var buf bytes.Buffer
	if err := caps.Write(&buf, []byte(body)); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	got, err := caps.Read(&buf)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if string(got) != body {
		t.Fatalf("payload mismatch")
	}
}

func TestReadRejectsOversizedChallenge(t *testing.T) {
	caps := CapsFor(64 << 10)
	body := `{"type":"sigma_challenge","session_id":"ab","challenge":{"b":"` + strings.Repeat("A", MaxChallengeSize) + `"}}`
	var buf bytes.Buffer
	if err := caps.Write(&buf, []byte(body)); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if _, err := caps.Read(&buf); !errors.Is(err, ErrFrameSize) {
		t.Fatalf("expected type cap rejection, got %v", err)
	}
}

func TestReadRejectsUnknownType(t *testing.T) {
	caps := CapsFor(1 << 10)
	var buf bytes.Buffer
	if err := caps.Write(&buf, []byte(`{"type":"hello"}`)); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if _, err := caps.Read(&buf); !errors.Is(err, ErrUnknownType) {
		t.Fatalf("expected unknown type, got %v", err)
	}
}

func TestFrameCapFollowsLimit(t *testing.T) {
	small := CapsFor(16)
	if small.Frame != 16+envelopeSize || small.Challenge != small.Frame {
		t.Fatalf("unexpected caps: %+v", small)
	}
	body := []byte(`{"type":"sigma_response","response":"` + strings.Repeat("A", small.Frame) + `"}`)
	if err := small.Write(&bytes.Buffer{}, body); !errors.Is(err, ErrFrameSize) {
		t.Fatalf("expected write rejection, got %v", err)
	}
	var buf bytes.Buffer
	if err := CapsFor(len(body)).Write(&buf, body); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if _, err := small.Read(&buf); !errors.Is(err, ErrFrameSize) {
		t.Fatalf("expected read rejection, got %v", err)
	}

	t.Setenv("SIGMA_MAX_FRAME_BYTES", "2048")
	if got := DefaultCaps().Frame; got != 2048+envelopeSize {
		t.Fatalf("default frame cap %d", got)
	}
}

func TestTypeOfTruncated(t *testing.T) {
	if got := TypeOf([]byte(`{"type":"sigma_response","response":{"b":"AA`)); got != MsgTypeResponse {
		t.Fatalf("got %q", got)
	}
	if got := TypeOf([]byte(`{"session_id":"s","type":"sigma_resp`)); got != "" {
		t.Fatalf("got %q", got)
	}
}

func TestSessionMessages(t *testing.T) {
	data, err := EncodeAnnounceMsg(AnnounceMsg{SessionID: "s1", Statement: "dlog", Announcement: []byte(`{"b":"AQ=="}`)})
	if err != nil {
		t.Fatalf("encode announce: %v", err)
	}
	if TypeOf(data[:sniffSize/4]) != MsgTypeAnnounce {
		t.Fatalf("type not leading the announce")
	}
	a, err := DecodeAnnounceMsg(data)
	if err != nil {
		t.Fatalf("decode announce: %v", err)
	}
	if a.Type != MsgTypeAnnounce || a.ProtoVersion != ProtoVersion || a.Statement != "dlog" {
		t.Fatalf("unexpected announce: %+v", a)
	}
	if _, err := DecodeChallengeMsg(data); err == nil {
		t.Fatalf("expected type mismatch")
	}

	data, err = EncodeVerdictMsg(VerdictMsg{SessionID: "s1", Accepted: true, Fingerprint: "ff"})
	if err != nil {
		t.Fatalf("encode verdict: %v", err)
	}
	v, err := DecodeVerdictMsg(data)
	if err != nil {
		t.Fatalf("decode verdict: %v", err)
	}
	if !v.Accepted || v.Fingerprint != "ff" {
		t.Fatalf("unexpected verdict: %+v", v)
	}
}

func TestDecodeRejectsMissingFields(t *testing.T) {
	if _, err := DecodeResponseMsg([]byte(`{"type":"sigma_response","session_id":"s1"}`)); err == nil {
		t.Fatalf("expected missing response error")
	}
	if _, err := DecodeAnnounceMsg([]byte(`{"type":"sigma_announce","proto_version":"9","session_id":"s","statement":"x","announcement":{}}`)); err == nil {
		t.Fatalf("expected version error")
	}
}
