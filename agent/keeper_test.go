package agent

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/calehh/circle-app/app"
	"github.com/calehh/circle-app/crypto"
	"github.com/calehh/circle-app/state"
	"github.com/calehh/circle-app/tx"
	abci "github.com/cometbft/cometbft/abci/types"
	"github.com/cometbft/cometbft/crypto/ed25519"
	cmtbytes "github.com/cometbft/cometbft/libs/bytes"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/cometbft/cometbft/p2p"
	coretypes "github.com/cometbft/cometbft/rpc/core/types"
	cmttypes "github.com/cometbft/cometbft/types"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
)

// 2024-01-01T12:00:00Z
const keeperNoon = int64(1704110400)

func uptr(v uint64) *uint64 { return &v }

func TestKeeperDecide(t *testing.T) {
	t.Parallel()

	epoch := state.EpochOf(keeperNoon)
	deadline := state.EpochDeadline(epoch)
	inProgress := func(holder uint64) *app.CycleView {
		return &app.CycleView{Cycle: &state.Cycle{EpochId: epoch, Status: state.CycleInProgress, Holder: uptr(holder)}}
	}
	committed := &app.MemberView{Member: &state.Member{Position: 1, Commitment: state.Commitment{PreSignedEpoch: uptr(epoch)}}}
	idle := &app.MemberView{Member: &state.Member{Position: 1}}

	cases := []struct {
		name   string
		now    int64
		cycle  *app.CycleView
		holder *app.MemberView
		want   Action
	}{
		{"no cycle yet", keeperNoon, nil, nil, ActionStartCycle},
		{"committed holder", keeperNoon, inProgress(1), committed, ActionProcessAll},
		{"idle holder", keeperNoon, inProgress(1), idle, ActionNone},
		{"unknown holder", keeperNoon, inProgress(1), nil, ActionNone},
		{"deadline passed", deadline, inProgress(1), committed, ActionDeclareTimeout},
		{"completed today", keeperNoon, &app.CycleView{Cycle: &state.Cycle{EpochId: epoch, Status: state.CycleCompleted}}, nil, ActionNone},
		{"completed yesterday", keeperNoon, &app.CycleView{Cycle: &state.Cycle{EpochId: epoch - 1, Status: state.CycleCompleted}}, nil, ActionStartCycle},
		{"failed yesterday", keeperNoon, &app.CycleView{Cycle: &state.Cycle{EpochId: epoch - 1, Status: state.CycleFailed}}, nil, ActionStartCycle},
	}
	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, c.want, decide(c.now, c.cycle, c.holder))
		})
	}
}

type fakeKeeperClient struct {
	t       *testing.T
	cycle   *app.CycleView
	members map[uint64]*app.MemberView
	nonce   uint64
	code    uint32
	sent    []cmttypes.Tx
}

func (f *fakeKeeperClient) Status(ctx context.Context) (*coretypes.ResultStatus, error) {
	return &coretypes.ResultStatus{NodeInfo: p2p.DefaultNodeInfo{Network: "circle-test"}}, nil
}

func (f *fakeKeeperClient) answer(v any) *coretypes.ResultABCIQuery {
	if v == nil {
		return &coretypes.ResultABCIQuery{Response: abci.ResponseQuery{Code: app.QueryCodeNotFound}}
	}
	dat, err := json.Marshal(v)
	require.NoError(f.t, err)
	return &coretypes.ResultABCIQuery{Response: abci.ResponseQuery{Value: dat}}
}

func (f *fakeKeeperClient) ABCIQuery(ctx context.Context, path string, data cmtbytes.HexBytes) (*coretypes.ResultABCIQuery, error) {
	switch path {
	case "/cycle/":
		if f.cycle == nil {
			return f.answer(nil), nil
		}
		return f.answer(f.cycle), nil
	case "/members/":
		m, ok := f.members[decodeBE(data)]
		if !ok {
			return f.answer(nil), nil
		}
		return f.answer(m), nil
	case "/accounts/":
		return f.answer(&state.Account{Nonce: f.nonce}), nil
	}
	return &coretypes.ResultABCIQuery{Response: abci.ResponseQuery{Code: app.QueryCodeNoRoute}}, nil
}

func (f *fakeKeeperClient) BroadcastTxSync(ctx context.Context, stx cmttypes.Tx) (*coretypes.ResultBroadcastTx, error) {
	f.sent = append(f.sent, stx)
	return &coretypes.ResultBroadcastTx{Code: f.code, Hash: stx.Hash()}, nil
}

func decodeBE(data []byte) (v uint64) {
	for _, b := range data {
		v = v<<8 | uint64(b)
	}
	return
}

func (f *fakeKeeperClient) lastTx() *tx.CircleTx {
	f.t.Helper()
	require.NotEmpty(f.t, f.sent)
	btx, err := tx.UnmarshalCircleTx(f.sent[len(f.sent)-1])
	require.NoError(f.t, err)
	return btx
}

func TestKeeperTick(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	clock := clockwork.NewFakeClockAt(time.Unix(keeperNoon, 0))
	pv := crypto.NewPV(ed25519.GenPrivKey())
	cli := &fakeKeeperClient{t: t, members: make(map[uint64]*app.MemberView), nonce: 5}
	k := NewKeeper(cmtlog.NewNopLogger(), cli, pv, clock, time.Second)

	action, err := k.Tick(ctx)
	require.NoError(t, err)
	require.Equal(t, ActionStartCycle, action)
	btx := cli.lastTx()
	require.Equal(t, tx.CircleTxTypeStartCycle, btx.Type)
	require.Equal(t, uint64(5), btx.Nonce)
	require.Equal(t, pv.PublicKey(), btx.Sender)

	// Not included yet.
	action, err = k.Tick(ctx)
	require.NoError(t, err)
	require.Equal(t, ActionNone, action)
	require.Len(t, cli.sent, 1)

	// Resent once the pending tx goes stale.
	clock.Advance(6 * time.Second)
	action, err = k.Tick(ctx)
	require.NoError(t, err)
	require.Equal(t, ActionStartCycle, action)
	require.Len(t, cli.sent, 2)

	epoch := state.EpochOf(keeperNoon)
	cli.nonce = 6
	cli.cycle = &app.CycleView{Cycle: &state.Cycle{EpochId: epoch, Status: state.CycleInProgress, Holder: uptr(2)}, BlockTime: keeperNoon}
	cli.members[2] = &app.MemberView{Member: &state.Member{
		Position:   2,
		Commitment: state.Commitment{AutoSign: state.AutoSign{Mode: state.AutoSignPermanent}},
	}}
	action, err = k.Tick(ctx)
	require.NoError(t, err)
	require.Equal(t, ActionProcessAll, action)
	require.Equal(t, tx.CircleTxTypeProcessAll, cli.lastTx().Type)
	require.Equal(t, uint64(6), cli.lastTx().Nonce)

	cli.nonce = 7
	clock.Advance(time.Duration(state.EpochDeadline(epoch)-keeperNoon) * time.Second)
	cli.cycle.BlockTime = state.EpochDeadline(epoch)
	action, err = k.Tick(ctx)
	require.NoError(t, err)
	require.Equal(t, ActionDeclareTimeout, action)
	require.Equal(t, tx.CircleTxTypeDeclareTimeout, cli.lastTx().Type)
}

func TestKeeperTickUsesBlockTime(t *testing.T) {
	t.Parallel()

	epoch := state.EpochOf(keeperNoon)
	deadline := state.EpochDeadline(epoch)
	clock := clockwork.NewFakeClockAt(time.Unix(deadline+60, 0))
	cli := &fakeKeeperClient{t: t, members: make(map[uint64]*app.MemberView), nonce: 3}
	cli.cycle = &app.CycleView{
		Cycle:     &state.Cycle{EpochId: epoch, Status: state.CycleInProgress, Holder: uptr(1)},
		Deadline:  deadline,
		BlockTime: deadline - 60,
	}
	cli.members[1] = &app.MemberView{Member: &state.Member{Position: 1}}
	k := NewKeeper(cmtlog.NewNopLogger(), cli, crypto.NewPV(ed25519.GenPrivKey()), clock, time.Second)

	// The local clock is past the deadline but the chain is not.
	action, err := k.Tick(context.Background())
	require.NoError(t, err)
	require.Equal(t, ActionNone, action)
	require.Empty(t, cli.sent)

	cli.cycle.BlockTime = deadline
	action, err = k.Tick(context.Background())
	require.NoError(t, err)
	require.Equal(t, ActionDeclareTimeout, action)
	require.Len(t, cli.sent, 1)
}

func TestKeeperBroadcastRejected(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClockAt(time.Unix(keeperNoon, 0))
	cli := &fakeKeeperClient{t: t, code: 401}
	k := NewKeeper(cmtlog.NewNopLogger(), cli, crypto.NewPV(ed25519.GenPrivKey()), clock, time.Second)

	action, err := k.Tick(context.Background())
	require.Error(t, err)
	require.Equal(t, ActionStartCycle, action)
	require.Nil(t, k.pendingNonce)

	cli.code = 0
	_, err = k.Tick(context.Background())
	require.NoError(t, err)
	require.Len(t, cli.sent, 2)
}
