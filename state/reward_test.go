package state

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMulDiv(t *testing.T) {
	t.Parallel()

	require.Equal(t, uint64(144), mulDiv(120, 120, 100))
	require.Equal(t, uint64(0), mulDiv(0, math.MaxUint64, 7))
	require.Equal(t, uint64(math.MaxUint64/2), mulDiv(math.MaxUint64, 1, 2))
	// a*b overflows 64 bits but the quotient fits.
	require.Equal(t, uint64(math.MaxUint64/4), mulDiv(math.MaxUint64/4, 1000, 1000))
	require.Equal(t, uint64(math.MaxUint64), mulDiv(math.MaxUint64, math.MaxUint64, 1))
}

func TestRewardBaseForEra(t *testing.T) {
	t.Parallel()

	require.Equal(t, uint64(360_000_000), RewardBaseForEra(360_000_000, 0))
	require.Equal(t, uint64(180_000_000), RewardBaseForEra(360_000_000, 1))
	require.Equal(t, uint64(45_000_000), RewardBaseForEra(360_000_000, 3))
	require.Zero(t, RewardBaseForEra(360_000_000, 64))
	require.Equal(t, uint64(11_304_000), PiBonus(360_000_000))
}

func TestBonusPercent(t *testing.T) {
	t.Parallel()

	params := DefaultParams()
	rank := uint32(1)

	m := &Member{}
	require.Zero(t, BonusPercent(&params, m, false))
	require.Equal(t, params.StarterBonusPct, BonusPercent(&params, m, true))

	m.Bonus.DepositTotal = 50 * params.DepositBonusUnit
	require.Equal(t, uint64(50), BonusPercent(&params, m, false))
	require.Equal(t, uint64(60), BonusPercent(&params, m, true))

	m.Bonus.PioneerRank = &rank
	require.Equal(t, params.PioneerBonusPct+50, BonusPercent(&params, m, false))

	m.Bonus.DepositTotal = 1_000_000 * params.DepositBonusUnit
	m.Bonus.ReferralCount = 5
	require.Equal(t, params.StarterBonusPct+params.PioneerBonusPct+MaxBonusPct+5, BonusPercent(&params, m, true))
}

func TestCycleCompletionRewards(t *testing.T) {
	t.Parallel()

	t.Run("splits the base among participants with bonuses", func(t *testing.T) {
		t.Parallel()
		st := newTestState(t, 3)
		joinN(t, st, 3, monday)
		before, err := st.Pool()
		require.NoError(t, err)
		vaultBefore := balance(t, st, RewardVaultAddress)

		res := completeCycle(t, st, noon)

		// share 120M. Everyone is a pioneer, only owner 0 started the cycle.
		require.Len(t, res.Rewards, 3)
		for _, r := range res.Rewards {
			want, pct := uint64(132_000_000), uint64(10)
			if r.Position == 0 {
				want, pct = 144_000_000, 20
			}
			require.Equal(t, want, r.Amount)
			require.Equal(t, pct, r.BonusPct)
			require.Equal(t, want, member(t, st, r.Position).Accrued)
		}
		require.Equal(t, uint64(408_000_000), res.Complete.Distributed)
		require.Equal(t, uint64(3_000), res.Complete.Burned)
		require.Zero(t, res.Complete.PiBonus)
		require.Equal(t, uint64(1), res.Complete.CompletedCycles)

		after, err := st.Pool()
		require.NoError(t, err)
		require.Equal(t, before.PoolBalance-408_000_000-3_000, after.PoolBalance)
		require.Equal(t, after.PoolBalance, res.Complete.PoolBalance)
		require.Equal(t, uint64(1), after.CompletedCycles)
		require.Zero(t, after.Era)
		require.Equal(t, vaultBefore-3_000, balance(t, st, RewardVaultAddress))
	})

	t.Run("only completed members share the reward", func(t *testing.T) {
		t.Parallel()
		st := newTestState(t, 4)
		joinN(t, st, 4, monday)
		_, err := st.SetInactive(3, testOwner(3))
		require.NoError(t, err)

		res := completeCycle(t, st, noon)
		require.Equal(t, []uint64{0, 1, 2}, res.Complete.Participants)
		require.Len(t, res.Rewards, 3)
		require.Zero(t, member(t, st, 3).Accrued)
	})

	t.Run("divides by the members still active at completion", func(t *testing.T) {
		t.Parallel()
		st := newTestState(t, 3)
		joinN(t, st, 3, monday)
		_, err := st.StartCycle(testOwner(0), noon)
		require.NoError(t, err)
		_, err = st.Forward(0, testOwner(0), noon)
		require.NoError(t, err)
		_, err = st.SetInactive(0, testOwner(0))
		require.NoError(t, err)
		_, err = st.Forward(1, testOwner(1), noon)
		require.NoError(t, err)
		res, err := st.Forward(2, testOwner(2), noon)
		require.NoError(t, err)
		require.NotNil(t, res.Complete)

		params, err := st.Params()
		require.NoError(t, err)
		require.Equal(t, []uint64{1, 2}, res.Complete.Participants)
		require.Len(t, res.Rewards, 2)
		// share 180M with the pioneer bonus only.
		for _, r := range res.Rewards {
			require.Equal(t, uint64(198_000_000), r.Amount)
			require.Equal(t, uint64(10), r.BonusPct)
		}
		require.Equal(t, 2*params.BurnPerMemberPerCycle, res.Complete.Burned)
		require.Zero(t, member(t, st, 0).Accrued)
	})

	t.Run("halves the base and mints the pi bonus on an era boundary", func(t *testing.T) {
		t.Parallel()
		st := newTestState(t, 2)
		joinN(t, st, 2, monday)
		pool, err := st.Pool()
		require.NoError(t, err)
		pool.CompletedCycles = CircleLength - 1
		st.putPool(pool)
		vaultBefore := balance(t, st, RewardVaultAddress)

		res := completeCycle(t, st, noon)
		require.Equal(t, uint64(CircleLength), res.Complete.CompletedCycles)
		require.Equal(t, uint64(11_304_000), res.Complete.PiBonus)
		require.Equal(t, uint64(360_000_000), res.Complete.RewardBase)
		require.Equal(t, uint64(1), res.Complete.Era)

		after, err := st.Pool()
		require.NoError(t, err)
		require.Equal(t, uint64(180_000_000), after.RewardPerCycleBase)
		require.Equal(t, uint64(11_304_000), after.TotalPiBonus)
		require.Equal(t, pool.PoolBalance+11_304_000-res.Complete.Distributed-res.Complete.Burned, after.PoolBalance)
		require.Equal(t, vaultBefore+11_304_000-res.Complete.Burned, balance(t, st, RewardVaultAddress))
	})

	t.Run("never pays more than the pool holds", func(t *testing.T) {
		t.Parallel()
		st := newTestState(t, 3)
		joinN(t, st, 3, monday)
		pool, err := st.Pool()
		require.NoError(t, err)
		pool.PoolBalance = 200_000_000
		st.putPool(pool)

		res := completeCycle(t, st, noon)
		require.Equal(t, uint64(200_000_000), res.Complete.Distributed)
		require.Len(t, res.Rewards, 2)
		require.Equal(t, uint64(144_000_000), res.Rewards[0].Amount)
		require.Equal(t, uint64(56_000_000), res.Rewards[1].Amount)
		require.Zero(t, res.Complete.Burned)
		require.Zero(t, res.Complete.PoolBalance)
	})
}

func TestClaimRewards(t *testing.T) {
	t.Parallel()

	t.Run("pays out on sundays only", func(t *testing.T) {
		t.Parallel()
		st := newTestState(t, 2)
		joinN(t, st, 2, monday)
		completeCycle(t, st, noon)
		ownerBefore := balance(t, st, testOwner(0))
		accrued := member(t, st, 0).Accrued
		require.NotZero(t, accrued)

		require.True(t, ClaimWindowOpen(sunday))
		require.False(t, ClaimWindowOpen(monday))
		require.False(t, ClaimWindowOpen(sunday+SecondsPerDay))

		_, err := st.ClaimRewards(testOwner(0), sunday-1)
		require.ErrorIs(t, err, ErrClaimWindowClosed)

		ev, err := st.ClaimRewards(testOwner(0), sunday)
		require.NoError(t, err)
		require.Equal(t, accrued, ev.Amount)
		require.Equal(t, []uint64{0}, ev.Positions)
		require.Equal(t, ownerBefore+accrued, balance(t, st, testOwner(0)))
		m := member(t, st, 0)
		require.Zero(t, m.Accrued)
		require.Equal(t, accrued, m.TotalClaimed)

		_, err = st.ClaimRewards(testOwner(0), sunday)
		require.ErrorIs(t, err, ErrNothingToClaim)
	})

	t.Run("includes retired members of the owner", func(t *testing.T) {
		t.Parallel()
		st := newTestState(t, 2)
		joinN(t, st, 2, monday)
		completeCycle(t, st, noon)
		accrued := member(t, st, 1).Accrued

		_, err := st.Leave(1, testOwner(1))
		require.NoError(t, err)
		ev, err := st.ClaimRewards(testOwner(1), sunday)
		require.NoError(t, err)
		require.Equal(t, accrued, ev.Amount)
		require.Equal(t, []uint64{1}, ev.Positions)
	})

	t.Run("rejects an owner without rewards", func(t *testing.T) {
		t.Parallel()
		st := newTestState(t, 1)
		_, err := st.ClaimRewards(testOwner(0), sunday)
		require.ErrorIs(t, err, ErrNothingToClaim)
	})
}
