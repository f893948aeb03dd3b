package state

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestJoin(t *testing.T) {
	t.Parallel()

	t.Run("assigns sequential positions and pioneer ranks", func(t *testing.T) {
		t.Parallel()
		st := newTestState(t, 3)
		params, err := st.Params()
		require.NoError(t, err)

		joinN(t, st, 3, monday)

		require.Equal(t, uint64(3), st.Header().MemberCount)
		for i := 0; i < 3; i++ {
			m := member(t, st, uint64(i))
			require.Equal(t, testOwner(i), m.Owner)
			require.Equal(t, MemberAddress(testOwner(i), uint64(i)), m.Address)
			require.True(t, m.Active)
			require.NotNil(t, m.Bonus.PioneerRank)
			require.Equal(t, uint32(i+1), *m.Bonus.PioneerRank)
			require.Equal(t, 99*params.EntryFee, balance(t, st, testOwner(i)))
		}
		require.Equal(t, params.CirculationAmount+3*params.EntryFee, balance(t, st, CenterAddress))
	})

	t.Run("rejects a fee below the entry fee", func(t *testing.T) {
		t.Parallel()
		st := newTestState(t, 1)
		params, err := st.Params()
		require.NoError(t, err)
		_, err = st.Join(testOwner(0), params.EntryFee-1, nil, monday)
		require.ErrorIs(t, err, ErrInsufficientFee)
		require.Zero(t, st.Header().MemberCount)
	})

	t.Run("rejects an unfunded owner", func(t *testing.T) {
		t.Parallel()
		st := newTestState(t, 0)
		params, err := st.Params()
		require.NoError(t, err)
		_, err = st.Join(testOwner(0), params.EntryFee, nil, monday)
		require.ErrorIs(t, err, ErrInsufficientFee)
	})

	t.Run("rejects a second live member", func(t *testing.T) {
		t.Parallel()
		st := newTestState(t, 1)
		joinN(t, st, 1, monday)
		params, err := st.Params()
		require.NoError(t, err)
		_, err = st.Join(testOwner(0), params.EntryFee, nil, monday)
		require.ErrorIs(t, err, ErrAlreadyMember)
	})

	t.Run("counts referrals but not self referrals", func(t *testing.T) {
		t.Parallel()
		st := newTestState(t, 3)
		params, err := st.Params()
		require.NoError(t, err)
		joinN(t, st, 1, monday)

		ref := testOwner(0)
		ev, err := st.Join(testOwner(1), params.EntryFee, &ref, monday)
		require.NoError(t, err)
		require.Equal(t, ref.Hex(), ev.Referrer)

		self := testOwner(2)
		ev, err = st.Join(testOwner(2), params.EntryFee, &self, monday)
		require.NoError(t, err)
		require.Empty(t, ev.Referrer)

		require.Equal(t, uint32(1), member(t, st, 0).Bonus.ReferralCount)
		require.Zero(t, member(t, st, 2).Bonus.ReferralCount)
	})
}

func TestLeave(t *testing.T) {
	t.Parallel()

	t.Run("retires the member and frees the owner", func(t *testing.T) {
		t.Parallel()
		st := newTestState(t, 2)
		joinN(t, st, 2, monday)

		ev, err := st.Leave(1, testOwner(1))
		require.NoError(t, err)
		require.Equal(t, uint64(1), ev.Position)

		m := member(t, st, 1)
		require.True(t, m.Retired)
		require.False(t, m.Active)
		live, err := st.FindMember(testOwner(1))
		require.NoError(t, err)
		require.Nil(t, live)

		_, err = st.Leave(1, testOwner(1))
		require.ErrorIs(t, err, ErrMemberRetired)
		_, err = st.SetActive(1, testOwner(1), monday)
		require.ErrorIs(t, err, ErrMemberRetired)

		params, err := st.Params()
		require.NoError(t, err)
		ev2, err := st.Join(testOwner(1), params.EntryFee, nil, monday)
		require.NoError(t, err)
		require.Equal(t, uint64(2), ev2.Position)
		positions, err := st.MembersOf(testOwner(1))
		require.NoError(t, err)
		require.Equal(t, []uint64{1, 2}, positions)
	})

	t.Run("rejects the current holder", func(t *testing.T) {
		t.Parallel()
		st := newTestState(t, 2)
		joinN(t, st, 2, monday)
		_, err := st.StartCycle(testOwner(0), noon)
		require.NoError(t, err)
		_, err = st.Leave(0, testOwner(0))
		require.ErrorIs(t, err, ErrHolderCannotLeave)
	})

	t.Run("rejects an active commitment", func(t *testing.T) {
		t.Parallel()
		st := newTestState(t, 2)
		joinN(t, st, 2, monday)
		_, err := st.EnableAutoSign(1, testOwner(1), true, 0)
		require.NoError(t, err)
		_, err = st.Leave(1, testOwner(1))
		require.ErrorIs(t, err, ErrCommitmentActive)

		_, err = st.DisableAutoSign(1, testOwner(1))
		require.NoError(t, err)
		_, err = st.StartCycle(testOwner(0), noon)
		require.NoError(t, err)
		_, err = st.PreSign(1, testOwner(1), noon)
		require.NoError(t, err)
		_, err = st.Leave(1, testOwner(1))
		require.ErrorIs(t, err, ErrCommitmentActive)
	})

	t.Run("rejects a foreign signer", func(t *testing.T) {
		t.Parallel()
		st := newTestState(t, 2)
		joinN(t, st, 2, monday)
		_, err := st.Leave(1, testOwner(0))
		require.ErrorIs(t, err, ErrNotOwner)
		_, err = st.Leave(5, testOwner(0))
		require.ErrorIs(t, err, ErrMemberNoexists)
	})
}

func TestSetActive(t *testing.T) {
	t.Parallel()

	st := newTestState(t, 1)
	joinN(t, st, 1, monday)

	ev, err := st.SetInactive(0, testOwner(0))
	require.NoError(t, err)
	require.False(t, ev.Active)
	require.False(t, member(t, st, 0).Eligible(monday))

	ban, err := st.ApplyBan(0, monday)
	require.NoError(t, err)

	_, err = st.SetActive(0, testOwner(0), ban.BanUntil-1)
	require.ErrorIs(t, err, ErrStillBanned)

	ev, err = st.SetActive(0, testOwner(0), ban.BanUntil)
	require.NoError(t, err)
	require.True(t, ev.Active)
	m := member(t, st, 0)
	require.False(t, m.IsBanned)
	require.True(t, m.Eligible(ban.BanUntil))
}
