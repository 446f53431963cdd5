package fixture

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/reforge/internal/genesis"
	"github.com/roach88/reforge/internal/ledger"
)

func TestGenesis_IsAValidArtifact(t *testing.T) {
	cs := Genesis(t)
	require.NoError(t, genesis.Verify(cs))
}

func TestLedger_InitializedAtVersionZero(t *testing.T) {
	dir := Ledger(t)

	db, err := ledger.OpenReadOnly(ledger.PathIn(dir))
	require.NoError(t, err)
	defer db.Close()

	v, err := db.LatestVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(0), v)
}
