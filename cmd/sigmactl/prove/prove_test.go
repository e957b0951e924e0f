package prove

import (
	"testing"

	"github.com/stretchr/testify/require"

	"sigmakit/internal/catalog"
	"sigmakit/internal/config"
)

func TestSelectEntries(t *testing.T) {
	entries, err := catalog.New(config.DefaultSeed)
	require.NoError(t, err)

	all, err := selectEntries(entries, allStatements)
	require.NoError(t, err)
	require.Len(t, all, len(entries))

	one, err := selectEntries(entries, "or")
	require.NoError(t, err)
	require.Len(t, one, 1)
	require.Equal(t, "or", one[0].Name)

	_, err = selectEntries(entries, "nope")
	require.ErrorContains(t, err, "unknown statement")
}
