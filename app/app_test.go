package app

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"testing"
	"time"

	"github.com/calehh/circle-app/config"
	"github.com/calehh/circle-app/crypto"
	"github.com/calehh/circle-app/state"
	"github.com/calehh/circle-app/tx"
	abcitypes "github.com/cometbft/cometbft/abci/types"
	"github.com/cometbft/cometbft/crypto/ed25519"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/stretchr/testify/require"
)

const (
	testChainId = "circle-test"
	// 2024-01-01T12:00:00Z, a Monday.
	testNoon = int64(1704110400)
)

type testApp struct {
	*CircleApp
	t      *testing.T
	keys   []*crypto.PV
	nonces map[int]uint64
	height int64
}

func newTestApp(t *testing.T, keys int) *testApp {
	t.Helper()
	db, err := state.NewMemStateDB(cmtlog.NewNopLogger())
	require.NoError(t, err)
	cfg := config.DefaultCircleAppConfig(t.TempDir())
	a := &testApp{
		CircleApp: NewCircleAppWithDB(cfg, db, cmtlog.NewNopLogger()),
		t:         t,
		nonces:    make(map[int]uint64),
	}
	t.Cleanup(a.Stop)

	gs := state.DefaultGenesisState()
	for i := 0; i < keys; i++ {
		pv := crypto.NewPV(ed25519.GenPrivKey())
		a.keys = append(a.keys, pv)
		gs.Accounts = append(gs.Accounts, state.GenesisAccount{Address: pv.Address(), Balance: 10 * gs.Params.EntryFee})
	}
	appState, err := json.Marshal(gs)
	require.NoError(t, err)
	res, err := a.InitChain(context.Background(), &abcitypes.RequestInitChain{
		ChainId:       testChainId,
		Time:          time.Unix(testNoon-3600, 0),
		AppStateBytes: appState,
	})
	require.NoError(t, err)
	require.Len(t, res.AppHash, 32)
	return a
}

// signed builds a tx from key i with an explicit nonce.
func (a *testApp) signed(i int, nonce uint64, typ tx.CircleTxType, payload any) []byte {
	a.t.Helper()
	btx := &tx.CircleTx{Version: tx.CircleTxVersion0, Type: typ, Nonce: nonce, Tx: payload}
	require.NoError(a.t, a.keys[i].SignTx(btx, testChainId))
	dat, err := tx.MarshalCircleTx(btx)
	require.NoError(a.t, err)
	return dat
}

// next builds a tx from key i with the next local nonce.
func (a *testApp) next(i int, typ tx.CircleTxType, payload any) []byte {
	dat := a.signed(i, a.nonces[i], typ, payload)
	a.nonces[i]++
	return dat
}

func (a *testApp) block(now int64, txs ...[]byte) *abcitypes.ResponseFinalizeBlock {
	a.t.Helper()
	a.height++
	res, err := a.FinalizeBlock(context.Background(), &abcitypes.RequestFinalizeBlock{
		Height: a.height,
		Time:   time.Unix(now, 0),
		Txs:    txs,
	})
	require.NoError(a.t, err)
	_, err = a.Commit(context.Background(), &abcitypes.RequestCommit{})
	require.NoError(a.t, err)
	return res
}

func (a *testApp) query(path string, data []byte, v any) uint32 {
	a.t.Helper()
	res, err := a.Query(context.Background(), &abcitypes.RequestQuery{Path: path, Data: data})
	require.NoError(a.t, err)
	if res.Code == QueryCodeOK && v != nil {
		require.NoError(a.t, json.Unmarshal(res.Value, v))
	}
	return res.Code
}

func position(pos uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], pos)
	return b[:]
}

func requireCodes(t *testing.T, res *abcitypes.ResponseFinalizeBlock, codes ...uint32) {
	t.Helper()
	require.Len(t, res.TxResults, len(codes))
	for i, code := range codes {
		require.Equal(t, code, res.TxResults[i].Code, "tx %d: %s", i, res.TxResults[i].Log)
	}
}

func TestCircleApp_FullCycle(t *testing.T) {
	t.Parallel()

	a := newTestApp(t, 3)
	fee := state.DefaultParams().EntryFee

	res := a.block(testNoon,
		a.next(0, tx.CircleTxTypeJoin, &tx.JoinTx{Fee: fee}),
		a.next(1, tx.CircleTxTypeJoin, &tx.JoinTx{Fee: fee, Referrer: a.keys[0].Address().Hex()}),
		a.next(2, tx.CircleTxTypeJoin, &tx.JoinTx{Fee: fee}),
	)
	requireCodes(t, res, 0, 0, 0)
	require.Equal(t, "join", res.TxResults[0].Events[0].Type)

	res = a.block(testNoon+10,
		a.next(2, tx.CircleTxTypeStartCycle, &tx.EmptyTx{}),
		a.next(1, tx.CircleTxTypePreSign, &tx.MemberTx{Position: 1}),
		a.next(2, tx.CircleTxTypeEnableAutoSign, &tx.AutoSignTx{Position: 2, Permanent: true}),
	)
	requireCodes(t, res, 0, 0, 0)

	var cycle CycleView
	require.Equal(t, QueryCodeOK, a.query("/cycle/", nil, &cycle))
	require.Equal(t, state.CycleInProgress, cycle.Status)
	require.NotNil(t, cycle.Holder)
	require.Equal(t, uint64(0), *cycle.Holder)
	require.Equal(t, state.EpochDeadline(state.EpochOf(testNoon)), cycle.Deadline)

	res = a.block(testNoon+20,
		a.next(0, tx.CircleTxTypeForward, &tx.MemberTx{Position: 0}),
		a.next(0, tx.CircleTxTypeProcessAll, &tx.EmptyTx{}),
	)
	requireCodes(t, res, 0, 0)

	types := make([]string, 0)
	for _, ev := range res.TxResults[1].Events {
		types = append(types, ev.Type)
	}
	require.Equal(t, []string{"forward", "forward", "cycle_complete", "reward", "reward", "reward"}, types)

	require.Equal(t, QueryCodeOK, a.query("/cycle/", nil, &cycle))
	require.Equal(t, state.CycleCompleted, cycle.Status)

	var mv MemberView
	require.Equal(t, QueryCodeOK, a.query("/members/", position(0), &mv))
	require.Equal(t, uint64(1), mv.CyclesCompleted)
	// pioneer plus one referral, the starter bonus is not a standing bonus.
	require.Equal(t, uint64(11), mv.BonusPct)
	require.Equal(t, uint64(133_200_000), mv.Accrued)

	var starter MemberView
	require.Equal(t, QueryCodeOK, a.query("/members/", position(2), &starter))
	require.Equal(t, uint64(10), starter.BonusPct)
	require.Equal(t, uint64(144_000_000), starter.Accrued)

	require.Equal(t, QueryCodeOK, a.query("/members/", a.keys[1].Address().Bytes(), &mv))
	require.Equal(t, uint64(1), mv.Position)

	var ring []*MemberView
	require.Equal(t, QueryCodeOK, a.query("/ring/", nil, &ring))
	require.Len(t, ring, 3)

	var pool state.RewardPool
	require.Equal(t, QueryCodeOK, a.query("/pool/", nil, &pool))
	require.Equal(t, uint64(1), pool.CompletedCycles)
}

func TestCircleApp_FailedTxConsumesNonce(t *testing.T) {
	t.Parallel()

	a := newTestApp(t, 1)
	fee := state.DefaultParams().EntryFee

	res := a.block(testNoon,
		a.next(0, tx.CircleTxTypeJoin, &tx.JoinTx{Fee: fee}),
		a.next(0, tx.CircleTxTypeJoin, &tx.JoinTx{Fee: fee}),
		a.signed(0, 7, tx.CircleTxTypeActivate, &tx.MemberTx{Position: 0}),
	)
	requireCodes(t, res, 0, state.Code(state.ErrAlreadyMember), state.Code(state.ErrTxNonceInvalid))
	require.Empty(t, res.TxResults[1].Events)

	var acnt state.Account
	require.Equal(t, QueryCodeOK, a.query("/accounts/", a.keys[0].Address().Bytes(), &acnt))
	require.Equal(t, uint64(2), acnt.Nonce)
	require.Equal(t, 9*fee, acnt.Balance)
}

func TestCircleApp_CheckTx(t *testing.T) {
	t.Parallel()

	a := newTestApp(t, 2)
	ctx := context.Background()
	fee := state.DefaultParams().EntryFee

	res, err := a.CheckTx(ctx, &abcitypes.RequestCheckTx{Tx: a.signed(0, 0, tx.CircleTxTypeJoin, &tx.JoinTx{Fee: fee})})
	require.NoError(t, err)
	require.Equal(t, state.CodeOK, res.Code)

	res, err = a.CheckTx(ctx, &abcitypes.RequestCheckTx{Tx: a.signed(0, 3, tx.CircleTxTypeJoin, &tx.JoinTx{Fee: fee})})
	require.NoError(t, err)
	require.Equal(t, state.CodeOK, res.Code)

	res, err = a.CheckTx(ctx, &abcitypes.RequestCheckTx{Tx: a.signed(0, 0, tx.CircleTxTypeJoin, &tx.JoinTx{Fee: fee, Referrer: "nope"})})
	require.NoError(t, err)
	require.Equal(t, state.Code(tx.ErrInvalidTx), res.Code)

	forged := &tx.CircleTx{Version: tx.CircleTxVersion0, Type: tx.CircleTxTypeClaim, Tx: &tx.EmptyTx{}}
	require.NoError(t, a.keys[0].SignTx(forged, testChainId))
	forged.Sender = a.keys[1].PublicKey()
	dat, err := tx.MarshalCircleTx(forged)
	require.NoError(t, err)
	res, err = a.CheckTx(ctx, &abcitypes.RequestCheckTx{Tx: dat})
	require.NoError(t, err)
	require.Equal(t, state.Code(state.ErrTxSigInvalid), res.Code)

	res, err = a.CheckTx(ctx, &abcitypes.RequestCheckTx{Tx: []byte(`{"type":99}`)})
	require.NoError(t, err)
	require.Equal(t, state.Code(tx.ErrUnsupportedTxType), res.Code)

	wrongChain := &tx.CircleTx{Version: tx.CircleTxVersion0, Type: tx.CircleTxTypeClaim, Tx: &tx.EmptyTx{}}
	require.NoError(t, a.keys[0].SignTx(wrongChain, "other-chain"))
	dat, err = tx.MarshalCircleTx(wrongChain)
	require.NoError(t, err)
	res, err = a.CheckTx(ctx, &abcitypes.RequestCheckTx{Tx: dat})
	require.NoError(t, err)
	require.Equal(t, state.Code(state.ErrTxSigInvalid), res.Code)
}

func TestCircleApp_Proposals(t *testing.T) {
	t.Parallel()

	a := newTestApp(t, 1)
	ctx := context.Background()
	fee := state.DefaultParams().EntryFee

	good := a.signed(0, 0, tx.CircleTxTypeJoin, &tx.JoinTx{Fee: fee})
	replay := a.signed(0, 0, tx.CircleTxTypeClaim, &tx.EmptyTx{})
	follow := a.signed(0, 1, tx.CircleTxTypeClaim, &tx.EmptyTx{})

	prep, err := a.PrepareProposal(ctx, &abcitypes.RequestPrepareProposal{
		Txs:        [][]byte{good, replay, follow, []byte("garbage")},
		MaxTxBytes: 1 << 20,
	})
	require.NoError(t, err)
	require.Equal(t, [][]byte{good, follow}, prep.Txs)

	prep, err = a.PrepareProposal(ctx, &abcitypes.RequestPrepareProposal{
		Txs:        [][]byte{good, follow},
		MaxTxBytes: int64(len(good)),
	})
	require.NoError(t, err)
	require.Equal(t, [][]byte{good}, prep.Txs)

	proc, err := a.ProcessProposal(ctx, &abcitypes.RequestProcessProposal{Txs: [][]byte{good, follow}})
	require.NoError(t, err)
	require.Equal(t, abcitypes.ResponseProcessProposal_ACCEPT, proc.Status)

	proc, err = a.ProcessProposal(ctx, &abcitypes.RequestProcessProposal{Txs: [][]byte{good, replay}})
	require.NoError(t, err)
	require.Equal(t, abcitypes.ResponseProcessProposal_REJECT, proc.Status)
}

func TestCircleApp_InitChainAndQueries(t *testing.T) {
	t.Parallel()

	a := newTestApp(t, 1)
	header := a.db.Header()

	res, err := a.InitChain(context.Background(), &abcitypes.RequestInitChain{ChainId: testChainId})
	require.NoError(t, err)
	require.Equal(t, header.Hash, res.AppHash)

	info, err := a.Info(context.Background(), &abcitypes.RequestInfo{})
	require.NoError(t, err)
	require.Equal(t, header.Hash, info.LastBlockAppHash)

	require.Equal(t, QueryCodeNoRoute, a.query("/nothing/", nil, nil))
	require.Equal(t, QueryCodeNotFound, a.query("/members/", position(0), nil))
	require.Equal(t, QueryCodeNotFound, a.query("/cycle/", nil, nil))

	var params state.Params
	require.Equal(t, QueryCodeOK, a.query("/params", nil, &params))
	require.Equal(t, state.DefaultParams(), params)

	var acnt state.Account
	require.Equal(t, QueryCodeOK, a.query("/accounts/", state.CenterAddress.Bytes(), &acnt))
	require.Equal(t, params.CirculationAmount, acnt.Balance)

	_, err = a.Commit(context.Background(), &abcitypes.RequestCommit{})
	require.ErrorIs(t, err, ErrNoPendingState)
}
