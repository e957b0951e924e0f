package catalog

import (
	"fmt"

	"sigmakit/internal/codec"
	"sigmakit/internal/crypto"
	"sigmakit/internal/sigma"
	"sigmakit/internal/store"
)

// AuditResult compares an archived verdict with a fresh check of the
// archived transcript.
type AuditResult struct {
	SessionID string
	Statement string
	Recorded  bool
	Rechecked bool
	Problem   string
}

func (r AuditResult) OK() bool {
	return r.Problem == "" && r.Recorded == r.Rechecked
}

// Audit re-verifies every record against entries. Records for statements the
// catalog does not know, with a fingerprint that does not match the stored
// transcript, or whose transcript does not decode are reported, not returned
// as errors.
func Audit(entries []Entry, records []store.Record, lim codec.Limits) []AuditResult {
	out := make([]AuditResult, 0, len(records))
	for _, rec := range records {
		res := AuditResult{SessionID: rec.SessionID, Statement: rec.Statement, Recorded: rec.Accepted}
		res.Rechecked, res.Problem = recheck(entries, rec, lim)
		out = append(out, res)
	}
	return out
}

func recheck(entries []Entry, rec store.Record, lim codec.Limits) (bool, string) {
	e, ok := Find(entries, rec.Statement)
	if !ok {
		return false, fmt.Sprintf("unknown statement %q", rec.Statement)
	}
	if crypto.Fingerprint(rec.Statement, rec.Transcript) != rec.Fingerprint {
		return false, "fingerprint mismatch"
	}
	repr, err := codec.UnmarshalWithLimits(rec.Transcript, lim)
	if err != nil {
		return false, err.Error()
	}
	tr, err := sigma.RestoreTranscript(e.Protocol, e.Input, repr)
	if err != nil {
		return false, err.Error()
	}
	ok, err = sigma.CheckTranscript(e.Protocol, e.Input, tr)
	if err != nil {
		return false, err.Error()
	}
	return ok, ""
}
