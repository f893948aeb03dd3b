package app

import (
	"context"
	"errors"
	"strconv"

	"github.com/calehh/circle-app/state"
	"github.com/calehh/circle-app/tx"
	"github.com/calehh/circle-app/tx/handler"
	abcitypes "github.com/cometbft/cometbft/abci/types"
)

var (
	ErrUnexpectedTxProcess = errors.New("unexpected tx process")
	ErrNoPendingState      = errors.New("no finalized state to commit")
)

func (app *CircleApp) parseTx(st *state.State, txDat []byte, allowNonceGap bool) (btx *tx.CircleTx, h handler.TxHandler, err error) {
	btx, err = tx.UnmarshalCircleTx(txDat)
	if err != nil {
		return
	}
	var ok bool
	h, ok = app.txHdlrs[btx.Type]
	if !ok {
		return nil, nil, tx.ErrUnsupportedTxType
	}
	_, err = st.Verify(btx, allowNonceGap)
	return
}

func (app *CircleApp) CheckTx(ctx context.Context, check *abcitypes.RequestCheckTx) (res *abcitypes.ResponseCheckTx, err error) {
	res = &abcitypes.ResponseCheckTx{Code: state.CodeOK}
	view, err := app.db.View()
	if err != nil {
		app.logger.Error("open view fail", "err", err)
		return nil, err
	}
	btx, h, err := app.parseTx(view, check.Tx, true)
	if err == nil {
		err = h.Check(ctx, btx)
	}
	if err != nil {
		app.logger.Debug("check tx fail", "err", err)
		res.Code = state.Code(err)
		res.Log = err.Error()
		return res, nil
	}
	res.GasWanted = 1
	return
}

// PrepareProposal keeps every tx whose envelope is valid in order. Txs whose
// operation fails are still included and consume their nonce.
func (app *CircleApp) PrepareProposal(ctx context.Context, proposal *abcitypes.RequestPrepareProposal) (res *abcitypes.ResponsePrepareProposal, err error) {
	st := app.db.NewState()
	txs := make([][]byte, 0, len(proposal.Txs))
	var size int64
	for _, stx := range proposal.Txs {
		if size+int64(len(stx)) > proposal.MaxTxBytes {
			break
		}
		btx, _, err := app.parseTx(st, stx, false)
		if err != nil {
			app.logger.Debug("drop tx from proposal", "err", err)
			continue
		}
		if err = st.IncrementNonce(btx); err != nil {
			app.logger.Error("prepare tx nonce fail", "err", err)
			continue
		}
		size += int64(len(stx))
		txs = append(txs, stx)
	}
	return &abcitypes.ResponsePrepareProposal{Txs: txs}, nil
}

func (app *CircleApp) ProcessProposal(ctx context.Context, proposal *abcitypes.RequestProcessProposal) (res *abcitypes.ResponseProcessProposal, err error) {
	res = &abcitypes.ResponseProcessProposal{Status: abcitypes.ResponseProcessProposal_REJECT}
	st := app.db.NewState()
	for _, stx := range proposal.Txs {
		btx, _, err := app.parseTx(st, stx, false)
		if err != nil {
			app.logger.Error("reject proposal", "height", proposal.Height, "err", err)
			return res, nil
		}
		if err = st.IncrementNonce(btx); err != nil {
			app.logger.Error("reject proposal", "height", proposal.Height, "err", err)
			return res, nil
		}
	}
	res.Status = abcitypes.ResponseProcessProposal_ACCEPT
	return res, nil
}

// execute runs every tx on a clone of st. Only clones of successful txs
// replace the block state.
func (app *CircleApp) execute(ctx context.Context, st *state.State, txs [][]byte, blk handler.BlockInfo) (out *state.State, res []*abcitypes.ExecTxResult, err error) {
	res = make([]*abcitypes.ExecTxResult, len(txs))
	for i, stx := range txs {
		btx, h, err := app.parseTx(st, stx, false)
		if err != nil {
			res[i] = &abcitypes.ExecTxResult{Code: state.Code(err), Log: err.Error()}
			TxsTotal.WithLabelValues("invalid", strconv.FormatUint(uint64(res[i].Code), 10)).Inc()
			continue
		}
		if err = st.IncrementNonce(btx); err != nil {
			app.logger.Error("unexpected nonce update fail", "err", err)
			return nil, nil, ErrUnexpectedTxProcess
		}
		clone := st.Clone()
		result, err := h.Process(ctx, clone, btx, blk)
		if err != nil {
			result = &abcitypes.ExecTxResult{Code: state.Code(err), Log: err.Error()}
			if result.Code == state.CodeInternal {
				app.logger.Error("process tx fail", "type", btx.Type, "err", err)
			}
		} else {
			st = clone
			for _, ev := range result.Events {
				EventsTotal.WithLabelValues(ev.Type).Inc()
			}
		}
		TxsTotal.WithLabelValues(btx.Type.String(), strconv.FormatUint(uint64(result.Code), 10)).Inc()
		res[i] = result
	}
	return st, res, nil
}

func (app *CircleApp) FinalizeBlock(ctx context.Context, req *abcitypes.RequestFinalizeBlock) (*abcitypes.ResponseFinalizeBlock, error) {
	app.mtx.Lock()
	defer app.mtx.Unlock()
	app.logger.Debug("FinalizeBlock", "height", req.Height, "txs", len(req.Txs))
	app.lastBlk.Set(req)

	blk := handler.BlockInfo{Height: uint64(req.Height), Time: req.Time.Unix()}
	st := app.db.NewState()
	st.SetHeight(blk.Height)
	st.SetBlockTime(blk.Time)
	st, res, err := app.execute(ctx, st, req.Txs, blk)
	if err != nil {
		return nil, err
	}
	h, err := app.db.Update(st)
	if err != nil {
		app.logger.Error("state update hash fail", "err", err)
		return nil, err
	}
	app.st = st

	BlockHeight.Set(float64(req.Height))
	MemberCount.Set(float64(st.Header().MemberCount))
	if pool, err := st.Pool(); err == nil {
		RewardPoolBalance.Set(float64(pool.PoolBalance))
	}
	return &abcitypes.ResponseFinalizeBlock{
		TxResults: res,
		AppHash:   h.Bytes(),
	}, nil
}

func (app *CircleApp) Commit(ctx context.Context, commit *abcitypes.RequestCommit) (*abcitypes.ResponseCommit, error) {
	app.mtx.Lock()
	defer app.mtx.Unlock()
	if app.st == nil {
		return nil, ErrNoPendingState
	}
	_, err := app.db.SetState(app.st)
	if err != nil {
		return nil, err
	}
	app.st = nil
	app.logger.Debug("Commit", "height", app.lastBlk.Height)
	return &abcitypes.ResponseCommit{}, nil
}
