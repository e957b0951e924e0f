package catalog

import (
	"testing"

	"github.com/stretchr/testify/require"

	"sigmakit/internal/codec"
	"sigmakit/internal/config"
	"sigmakit/internal/crypto"
	"sigmakit/internal/sigma"
	"sigmakit/internal/store"
)

func archived(t *testing.T, e Entry, si sigma.SecretInput, accepted bool) store.Record {
	t.Helper()
	tr, err := sigma.Run(e.Protocol, Reader(t.Name()+e.Name), e.Input, si)
	require.NoError(t, err)
	raw, err := codec.Marshal(tr.Repr())
	require.NoError(t, err)
	return store.Record{
		SessionID:   e.Name,
		Statement:   e.Name,
		Accepted:    accepted,
		Fingerprint: crypto.Fingerprint(e.Name, raw),
		Transcript:  raw,
	}
}

func TestAudit(t *testing.T) {
	entries, err := New(config.DefaultSeed)
	require.NoError(t, err)
	dl, _ := Find(entries, "dlog")
	eq, _ := Find(entries, "equality")
	tree, _ := Find(entries, "tree")

	good := archived(t, tree, tree.Secret, true)
	lied := archived(t, dl, eq.Secret, true)
	lied.SessionID = "lied"
	tampered := archived(t, dl, dl.Secret, true)
	tampered.SessionID = "tampered"
	tampered.Fingerprint = "000000000000000000000000"
	unknown := good
	unknown.SessionID = "unknown"
	unknown.Statement = "nope"
	garbage := store.Record{SessionID: "garbage", Statement: "dlog", Transcript: []byte("{")}
	garbage.Fingerprint = crypto.Fingerprint("dlog", garbage.Transcript)

	results := Audit(entries, []store.Record{good, lied, tampered, unknown, garbage}, codec.DefaultLimits())
	require.Len(t, results, 5)

	require.True(t, results[0].OK())
	require.True(t, results[0].Rechecked)

	require.False(t, results[1].OK())
	require.Empty(t, results[1].Problem)
	require.False(t, results[1].Rechecked)

	require.Equal(t, "fingerprint mismatch", results[2].Problem)
	require.Contains(t, results[3].Problem, "unknown statement")
	require.NotEmpty(t, results[4].Problem)
	require.False(t, results[4].OK())
}
