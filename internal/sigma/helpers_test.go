package sigma_test

import (
	"io"
	"testing"

	"github.com/cloudflare/circl/group"
	"github.com/stretchr/testify/require"

	"sigmakit/internal/sigma"
	"sigmakit/internal/testutil"
	"sigmakit/internal/zk/dlog"
)

func newDLog(rnd io.Reader, g group.Group) (*dlog.Statement, dlog.Witness) {
	return dlog.NewStatement(g.Generator(), testutil.Scalar(g, rnd))
}

func accepts(t *testing.T, p sigma.Protocol, ci sigma.CommonInput, tr *sigma.Transcript) bool {
	t.Helper()
	ok, err := sigma.CheckTranscript(p, ci, tr)
	require.NoError(t, err)
	return ok
}

// roundTrips checks that t survives both the full and the compressed
// serialization and still verifies.
func roundTrips(t *testing.T, p sigma.Protocol, ci sigma.CommonInput, tr *sigma.Transcript) {
	t.Helper()
	restored, err := sigma.RestoreTranscript(p, ci, tr.Repr())
	require.NoError(t, err)
	require.True(t, restored.Repr().Equal(tr.Repr()))
	require.True(t, accepts(t, p, ci, restored))

	comp, err := p.CompressTranscript(ci, tr)
	require.NoError(t, err)
	back, err := p.DecompressTranscript(ci, comp)
	require.NoError(t, err)
	require.True(t, back.Repr().Equal(tr.Repr()))
	require.True(t, accepts(t, p, ci, back))
}
