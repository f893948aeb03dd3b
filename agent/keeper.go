package agent

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	"github.com/calehh/circle-app/app"
	"github.com/calehh/circle-app/crypto"
	"github.com/calehh/circle-app/state"
	"github.com/calehh/circle-app/tx"
	cmtbytes "github.com/cometbft/cometbft/libs/bytes"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	coretypes "github.com/cometbft/cometbft/rpc/core/types"
	cmttypes "github.com/cometbft/cometbft/types"
	"github.com/jonboulle/clockwork"
)

type Action uint8

const (
	ActionNone Action = iota
	ActionStartCycle
	ActionProcessAll
	ActionDeclareTimeout
)

func (a Action) String() string {
	switch a {
	case ActionStartCycle:
		return "startCycle"
	case ActionProcessAll:
		return "processAll"
	case ActionDeclareTimeout:
		return "declareTimeout"
	default:
		return "none"
	}
}

func (a Action) txType() tx.CircleTxType {
	switch a {
	case ActionStartCycle:
		return tx.CircleTxTypeStartCycle
	case ActionProcessAll:
		return tx.CircleTxTypeProcessAll
	case ActionDeclareTimeout:
		return tx.CircleTxTypeDeclareTimeout
	}
	return tx.CircleTxTypeUnknown
}

type keeperClient interface {
	Status(ctx context.Context) (*coretypes.ResultStatus, error)
	ABCIQuery(ctx context.Context, path string, data cmtbytes.HexBytes) (*coretypes.ResultABCIQuery, error)
	BroadcastTxSync(ctx context.Context, tx cmttypes.Tx) (*coretypes.ResultBroadcastTx, error)
}

// Keeper drives the permissionless txs: it opens the day's cycle, sweeps
// committed holders and declares timeouts once the deadline passes.
type Keeper struct {
	logger   cmtlog.Logger
	cli      keeperClient
	pv       *crypto.PV
	clock    clockwork.Clock
	interval time.Duration
	chainId  string

	pendingNonce *uint64
	pendingSince time.Time
}

func NewKeeper(logger cmtlog.Logger, cli keeperClient, pv *crypto.PV, clock clockwork.Clock, interval time.Duration) *Keeper {
	return &Keeper{
		logger:   logger.With("module", "keeper"),
		cli:      cli,
		pv:       pv,
		clock:    clock,
		interval: interval,
	}
}

// decide picks at most one action for the latest cycle at now.
func decide(now int64, cycle *app.CycleView, holder *app.MemberView) Action {
	if cycle == nil || cycle.Cycle == nil {
		return ActionStartCycle
	}
	if cycle.Status == state.CycleInProgress {
		if cycle.Cycle.Expired(now) {
			return ActionDeclareTimeout
		}
		if holder != nil && holder.Member != nil && holder.HasCommitment(cycle.EpochId) {
			return ActionProcessAll
		}
		return ActionNone
	}
	if cycle.EpochId < state.EpochOf(now) {
		return ActionStartCycle
	}
	return ActionNone
}

func (k *Keeper) query(ctx context.Context, path string, data []byte, v any) (found bool, err error) {
	res, err := k.cli.ABCIQuery(ctx, path, data)
	if err != nil {
		return
	}
	switch res.Response.Code {
	case app.QueryCodeOK:
	case app.QueryCodeNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("query %s code %d: %s", path, res.Response.Code, res.Response.Log)
	}
	if err = json.Unmarshal(res.Response.Value, v); err != nil {
		return
	}
	return true, nil
}

func (k *Keeper) nonce(ctx context.Context) (uint64, error) {
	var acnt state.Account
	addr := k.pv.Address()
	found, err := k.query(ctx, "/accounts/", addr.Bytes(), &acnt)
	if err != nil || !found {
		return 0, err
	}
	return acnt.Nonce, nil
}

// waiting reports whether a previous tx has not been included yet.
func (k *Keeper) waiting(chainNonce uint64) bool {
	if k.pendingNonce == nil {
		return false
	}
	if chainNonce > *k.pendingNonce || k.clock.Since(k.pendingSince) > 5*k.interval {
		k.pendingNonce = nil
		return false
	}
	return true
}

// Tick runs one round of observation and sends at most one tx. Deadlines are
// judged against the last block time reported with the cycle so a skewed
// local clock cannot trigger a timeout the chain would reject.
func (k *Keeper) Tick(ctx context.Context) (Action, error) {
	if k.chainId == "" {
		status, err := k.cli.Status(ctx)
		if err != nil {
			return ActionNone, err
		}
		k.chainId = status.NodeInfo.Network
	}
	var cycle *app.CycleView
	var view app.CycleView
	found, err := k.query(ctx, "/cycle/", nil, &view)
	if err != nil {
		return ActionNone, err
	}
	if found {
		cycle = &view
	}
	var holder *app.MemberView
	if cycle != nil && cycle.Cycle != nil && cycle.Holder != nil {
		var pos [8]byte
		binary.BigEndian.PutUint64(pos[:], *cycle.Holder)
		var mv app.MemberView
		found, err := k.query(ctx, "/members/", pos[:], &mv)
		if err != nil {
			return ActionNone, err
		}
		if found {
			holder = &mv
		}
	}
	now := k.clock.Now().Unix()
	if cycle != nil && cycle.BlockTime > 0 {
		now = cycle.BlockTime
	}
	action := decide(now, cycle, holder)
	if action == ActionNone {
		return action, nil
	}
	nonce, err := k.nonce(ctx)
	if err != nil {
		return ActionNone, err
	}
	if k.waiting(nonce) {
		return ActionNone, nil
	}
	if err := k.send(ctx, action, nonce); err != nil {
		return action, err
	}
	return action, nil
}

func (k *Keeper) send(ctx context.Context, action Action, nonce uint64) error {
	btx := &tx.CircleTx{
		Version: tx.CircleTxVersion0,
		Type:    action.txType(),
		Nonce:   nonce,
		Tx:      &tx.EmptyTx{},
	}
	if err := k.pv.SignTx(btx, k.chainId); err != nil {
		return err
	}
	dat, err := tx.MarshalCircleTx(btx)
	if err != nil {
		return err
	}
	res, err := k.cli.BroadcastTxSync(ctx, dat)
	if err != nil {
		return err
	}
	if res.Code != 0 {
		return fmt.Errorf("%s rejected code %d: %s", action, res.Code, res.Log)
	}
	k.pendingNonce = &nonce
	k.pendingSince = k.clock.Now()
	k.logger.Info("keeper tx sent", "action", action.String(), "nonce", nonce, "hash", res.Hash.String())
	return nil
}

func (k *Keeper) Start(ctx context.Context) error {
	ticker := k.clock.NewTicker(k.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.Chan():
			if _, err := k.Tick(ctx); err != nil && ctx.Err() == nil {
				k.logger.Error("keeper tick fail", "err", err)
			}
		}
	}
}
