package handler

import (
	"context"

	"github.com/calehh/circle-app/state"
	"github.com/calehh/circle-app/tx"
	abcitypes "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/ethereum/go-ethereum/common"
)

// BlockInfo is the block context a tx executes in. Time is the block time in
// unix seconds.
type BlockInfo struct {
	Height uint64
	Time   int64
}

type TxHandler interface {
	Check(ctx context.Context, btx *tx.CircleTx) (err error)
	Prepare(ctx context.Context, st *state.State, btx *tx.CircleTx, blk BlockInfo) (res *abcitypes.ExecTxResult, err error)
	Process(ctx context.Context, st *state.State, btx *tx.CircleTx, blk BlockInfo) (res *abcitypes.ExecTxResult, err error)
}

type applyFunc func(st *state.State, signer common.Address, btx *tx.CircleTx, blk BlockInfo) ([]abcitypes.Event, error)

type checkFunc func(btx *tx.CircleTx) error

type baseHandler struct {
	logger cmtlog.Logger
	check  checkFunc
	apply  applyFunc
}

func newBaseHandler(logger cmtlog.Logger, name string, check checkFunc, apply applyFunc) *baseHandler {
	return &baseHandler{
		logger: logger.With("module", name),
		check:  check,
		apply:  apply,
	}
}

func (h *baseHandler) Check(ctx context.Context, btx *tx.CircleTx) (err error) {
	if h.check == nil {
		return
	}
	return h.check(btx)
}

func (h *baseHandler) handle(ctx context.Context, st *state.State, btx *tx.CircleTx, blk BlockInfo) (res *abcitypes.ExecTxResult, err error) {
	if err = h.Check(ctx, btx); err != nil {
		return
	}
	signer := state.AddressOfPubKey(btx.Sender)
	events, err := h.apply(st, signer, btx, blk)
	if err != nil {
		h.logger.Debug("tx rejected", "height", blk.Height, "signer", signer.Hex(), "err", err)
		return nil, err
	}
	res = &abcitypes.ExecTxResult{Events: events}
	return
}

func (h *baseHandler) Prepare(ctx context.Context, st *state.State, btx *tx.CircleTx, blk BlockInfo) (res *abcitypes.ExecTxResult, err error) {
	return h.handle(ctx, st, btx, blk)
}

func (h *baseHandler) Process(ctx context.Context, st *state.State, btx *tx.CircleTx, blk BlockInfo) (res *abcitypes.ExecTxResult, err error) {
	return h.handle(ctx, st, btx, blk)
}

func payload[T any](btx *tx.CircleTx) (*T, error) {
	p, ok := btx.Tx.(*T)
	if !ok {
		return nil, tx.ErrUnmatchedTxType
	}
	return p, nil
}

// Handlers returns the handler of every tx type.
func Handlers(logger cmtlog.Logger) map[tx.CircleTxType]TxHandler {
	return map[tx.CircleTxType]TxHandler{
		tx.CircleTxTypeJoin:            NewJoinTxHandler(logger),
		tx.CircleTxTypeActivate:        NewActivateTxHandler(logger),
		tx.CircleTxTypeDeactivate:      NewDeactivateTxHandler(logger),
		tx.CircleTxTypeLeave:           NewLeaveTxHandler(logger),
		tx.CircleTxTypeStartCycle:      NewStartCycleTxHandler(logger),
		tx.CircleTxTypeForward:         NewForwardTxHandler(logger),
		tx.CircleTxTypeDeclareTimeout:  NewDeclareTimeoutTxHandler(logger),
		tx.CircleTxTypePreSign:         NewPreSignTxHandler(logger),
		tx.CircleTxTypeEnableAutoSign:  NewEnableAutoSignTxHandler(logger),
		tx.CircleTxTypeDisableAutoSign: NewDisableAutoSignTxHandler(logger),
		tx.CircleTxTypeProcessNext:     NewProcessNextTxHandler(logger),
		tx.CircleTxTypeProcessAll:      NewProcessAllTxHandler(logger),
		tx.CircleTxTypeClaim:           NewClaimTxHandler(logger),
		tx.CircleTxTypeDeposit:         NewDepositTxHandler(logger),
	}
}
