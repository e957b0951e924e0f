package proto

import (
	"fmt"

	"github.com/goccy/go-json"
)

// Messages of one interactive sigma session, in wire order:
// prover -> announce, verifier -> challenge, prover -> response,
// verifier -> verdict. Payload fields hold codec-encoded reprs.
const (
	ProtoVersion = "0.1.0"

	MsgTypeAnnounce  = "sigma_announce"
	MsgTypeChallenge = "sigma_challenge"
	MsgTypeResponse  = "sigma_response"
	MsgTypeVerdict   = "sigma_verdict"
)

type AnnounceMsg struct {
	Type         string          `json:"type"`
	ProtoVersion string          `json:"proto_version"`
	SessionID    string          `json:"session_id"`
	Statement    string          `json:"statement"`
	Announcement json.RawMessage `json:"announcement"`
}

type ChallengeMsg struct {
	Type      string          `json:"type"`
	SessionID string          `json:"session_id"`
	Challenge json.RawMessage `json:"challenge"`
}

type ResponseMsg struct {
	Type      string          `json:"type"`
	SessionID string          `json:"session_id"`
	Response  json.RawMessage `json:"response"`
}

type VerdictMsg struct {
	Type        string `json:"type"`
	SessionID   string `json:"session_id"`
	Accepted    bool   `json:"accepted"`
	Fingerprint string `json:"fingerprint,omitempty"`
	Error       string `json:"error,omitempty"`
}

func EncodeAnnounceMsg(m AnnounceMsg) ([]byte, error) {
	if m.Type == "" {
		m.Type = MsgTypeAnnounce
	}
	if m.ProtoVersion == "" {
		m.ProtoVersion = ProtoVersion
	}
	return json.Marshal(m)
}

func DecodeAnnounceMsg(data []byte) (AnnounceMsg, error) {
	var m AnnounceMsg
	if err := json.Unmarshal(data, &m); err != nil {
		return AnnounceMsg{}, err
	}
	if err := checkType(m.Type, MsgTypeAnnounce); err != nil {
		return AnnounceMsg{}, err
	}
	if m.ProtoVersion != ProtoVersion {
		return AnnounceMsg{}, fmt.Errorf("unsupported proto version: %q", m.ProtoVersion)
	}
	if m.SessionID == "" || m.Statement == "" {
		return AnnounceMsg{}, fmt.Errorf("missing session id or statement")
	}
	if len(m.Announcement) == 0 {
		return AnnounceMsg{}, fmt.Errorf("missing announcement")
	}
	return m, nil
}

func EncodeChallengeMsg(m ChallengeMsg) ([]byte, error) {
	if m.Type == "" {
		m.Type = MsgTypeChallenge
	}
	return json.Marshal(m)
}

func DecodeChallengeMsg(data []byte) (ChallengeMsg, error) {
	var m ChallengeMsg
	if err := json.Unmarshal(data, &m); err != nil {
		return ChallengeMsg{}, err
	}
	if err := checkType(m.Type, MsgTypeChallenge); err != nil {
		return ChallengeMsg{}, err
	}
	if m.SessionID == "" || len(m.Challenge) == 0 {
		return ChallengeMsg{}, fmt.Errorf("missing session id or challenge")
	}
	return m, nil
}

func EncodeResponseMsg(m ResponseMsg) ([]byte, error) {
	if m.Type == "" {
		m.Type = MsgTypeResponse
	}
	return json.Marshal(m)
}

func DecodeResponseMsg(data []byte) (ResponseMsg, error) {
	var m ResponseMsg
	if err := json.Unmarshal(data, &m); err != nil {
		return ResponseMsg{}, err
	}
	if err := checkType(m.Type, MsgTypeResponse); err != nil {
		return ResponseMsg{}, err
	}
	if m.SessionID == "" || len(m.Response) == 0 {
		return ResponseMsg{}, fmt.Errorf("missing session id or response")
	}
	return m, nil
}

func EncodeVerdictMsg(m VerdictMsg) ([]byte, error) {
	if m.Type == "" {
		m.Type = MsgTypeVerdict
	}
	return json.Marshal(m)
}

func DecodeVerdictMsg(data []byte) (VerdictMsg, error) {
	var m VerdictMsg
	if err := json.Unmarshal(data, &m); err != nil {
		return VerdictMsg{}, err
	}
	if err := checkType(m.Type, MsgTypeVerdict); err != nil {
		return VerdictMsg{}, err
	}
	if m.SessionID == "" {
		return VerdictMsg{}, fmt.Errorf("missing session id")
	}
	return m, nil
}

func checkType(got, want string) error {
	if got != want {
		return fmt.Errorf("unexpected msg type: %s", got)
	}
	return nil
}
