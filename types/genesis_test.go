package types

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cometbft/cometbft/crypto/ed25519"
	cmttypes "github.com/cometbft/cometbft/types"
	"github.com/stretchr/testify/require"
)

func TestExportGenesisFile(t *testing.T) {
	t.Parallel()

	pk := ed25519.GenPrivKey().PubKey()
	gd := NewGenesisDoc("circle-test", "node0", pk, []byte(`{"centerBalance":1}`))
	file := filepath.Join(t.TempDir(), "genesis.json")
	require.NoError(t, ExportGenesisFile(gd, file))

	loaded, err := cmttypes.GenesisDocFromFile(file)
	require.NoError(t, err)
	require.Equal(t, "circle-test", loaded.ChainID)
	require.Len(t, loaded.Validators, 1)
	require.Equal(t, int64(DefaultPower), loaded.Validators[0].Power)
	require.JSONEq(t, `{"centerBalance":1}`, string(loaded.AppState))
}

func TestGenesisDocValidate(t *testing.T) {
	t.Parallel()

	pk := ed25519.GenPrivKey().PubKey()

	gd := NewGenesisDoc("", "node0", pk, nil)
	require.ErrorIs(t, gd.ValidateAndComplete(), ErrInvalidGenesis)

	gd = NewGenesisDoc("circle-test", "node0", pk, []byte("{"))
	require.ErrorIs(t, gd.ValidateAndComplete(), ErrInvalidGenesis)

	gd = NewGenesisDoc("circle-test", "node0", pk, nil)
	gd.Validators[0].Power = 0
	require.ErrorIs(t, gd.ValidateAndComplete(), ErrInvalidGenesis)

	gd = NewGenesisDoc("circle-test", "node0", pk, nil)
	gd.InitialHeight = 0
	gd.GenesisTime = time.Time{}
	require.NoError(t, gd.ValidateAndComplete())
	require.Equal(t, int64(1), gd.InitialHeight)
	require.False(t, gd.GenesisTime.IsZero())

	file := filepath.Join(t.TempDir(), "genesis.json")
	require.Error(t, ExportGenesisFile(NewGenesisDoc("", "", pk, nil), file))
	_, err := os.Stat(file)
	require.True(t, os.IsNotExist(err))
}
