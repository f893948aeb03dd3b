package handler

import (
	"github.com/calehh/circle-app/state"
	"github.com/calehh/circle-app/tx"
	"github.com/calehh/circle-app/types"
	abcitypes "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/ethereum/go-ethereum/common"
)

func NewPreSignTxHandler(logger cmtlog.Logger) TxHandler {
	return newBaseHandler(logger, "preSignTx", checkMember,
		func(st *state.State, signer common.Address, btx *tx.CircleTx, blk BlockInfo) ([]abcitypes.Event, error) {
			mtx := btx.Tx.(*tx.MemberTx)
			event, err := st.PreSign(mtx.Position, signer, blk.Time)
			if err != nil {
				return nil, err
			}
			return []abcitypes.Event{types.EncodeEventPreSign(event)}, nil
		})
}

func checkAutoSign(btx *tx.CircleTx) error {
	atx, err := payload[tx.AutoSignTx](btx)
	if err != nil {
		return err
	}
	if !atx.Permanent && (atx.Epochs < state.MinAutoSignEpochs || atx.Epochs > state.MaxAutoSignEpochs) {
		return state.ErrInvalidDuration
	}
	return nil
}

func NewEnableAutoSignTxHandler(logger cmtlog.Logger) TxHandler {
	return newBaseHandler(logger, "enableAutoSignTx", checkAutoSign,
		func(st *state.State, signer common.Address, btx *tx.CircleTx, blk BlockInfo) ([]abcitypes.Event, error) {
			atx := btx.Tx.(*tx.AutoSignTx)
			event, err := st.EnableAutoSign(atx.Position, signer, atx.Permanent, atx.Epochs)
			if err != nil {
				return nil, err
			}
			return []abcitypes.Event{types.EncodeEventAutoSign(event)}, nil
		})
}

func NewDisableAutoSignTxHandler(logger cmtlog.Logger) TxHandler {
	return newBaseHandler(logger, "disableAutoSignTx", checkMember,
		func(st *state.State, signer common.Address, btx *tx.CircleTx, blk BlockInfo) ([]abcitypes.Event, error) {
			mtx := btx.Tx.(*tx.MemberTx)
			event, err := st.DisableAutoSign(mtx.Position, signer)
			if err != nil {
				return nil, err
			}
			return []abcitypes.Event{types.EncodeEventAutoSign(event)}, nil
		})
}

func NewProcessNextTxHandler(logger cmtlog.Logger) TxHandler {
	return newBaseHandler(logger, "processNextTx", checkEmpty,
		func(st *state.State, signer common.Address, btx *tx.CircleTx, blk BlockInfo) ([]abcitypes.Event, error) {
			res, err := st.ProcessNext(blk.Time)
			if err != nil {
				return nil, err
			}
			return encodeForward(res), nil
		})
}

func NewProcessAllTxHandler(logger cmtlog.Logger) TxHandler {
	return newBaseHandler(logger, "processAllTx", checkEmpty,
		func(st *state.State, signer common.Address, btx *tx.CircleTx, blk BlockInfo) ([]abcitypes.Event, error) {
			results, err := st.ProcessAll(blk.Time)
			if err != nil {
				return nil, err
			}
			events := make([]abcitypes.Event, 0, len(results))
			for _, res := range results {
				events = append(events, encodeForward(res)...)
			}
			return events, nil
		})
}
