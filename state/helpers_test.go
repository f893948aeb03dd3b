package state

import (
	"testing"

	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

const (
	// 2024-01-01T00:00:00Z, a Monday.
	monday = int64(1704067200)
	sunday = monday + 6*SecondsPerDay
	noon   = monday + SecondsPerDay/2
)

func testOwner(i int) common.Address {
	return common.BytesToAddress([]byte{0xc1, byte(i + 1)})
}

func newTestDB(t *testing.T) *StateDB {
	t.Helper()
	db, err := NewMemStateDB(cmtlog.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

// newTestState returns a genesis state where owners 0..funded-1 each hold a
// hundred entry fees.
func newTestState(t *testing.T, funded int) *State {
	t.Helper()
	st := newTestDB(t).NewState()
	gs := DefaultGenesisState()
	for i := 0; i < funded; i++ {
		gs.Accounts = append(gs.Accounts, GenesisAccount{Address: testOwner(i), Balance: 100 * gs.Params.EntryFee})
	}
	require.NoError(t, st.InitGenesis("circle-test", gs))
	return st
}

func joinN(t *testing.T, st *State, n int, now int64) {
	t.Helper()
	params, err := st.Params()
	require.NoError(t, err)
	for i := 0; i < n; i++ {
		_, err := st.Join(testOwner(i), params.EntryFee, nil, now)
		require.NoError(t, err)
	}
}

// completeCycle starts the cycle at now and forwards through every eligible
// member until the ring closes.
func completeCycle(t *testing.T, st *State, now int64) *ForwardResult {
	t.Helper()
	_, err := st.StartCycle(testOwner(0), now)
	require.NoError(t, err)
	for {
		cycle, err := st.LatestCycle()
		require.NoError(t, err)
		require.NotNil(t, cycle.Holder)
		holder, err := st.GetMember(*cycle.Holder)
		require.NoError(t, err)
		res, err := st.Forward(holder.Position, holder.Owner, now)
		require.NoError(t, err)
		if res.Complete != nil {
			return res
		}
	}
}

func balance(t *testing.T, st *State, addr common.Address) uint64 {
	t.Helper()
	b, err := st.BalanceOf(addr)
	require.NoError(t, err)
	return b
}

func member(t *testing.T, st *State, pos uint64) *Member {
	t.Helper()
	m, err := st.GetMember(pos)
	require.NoError(t, err)
	return m
}
