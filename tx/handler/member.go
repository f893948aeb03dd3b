package handler

import (
	"github.com/calehh/circle-app/state"
	"github.com/calehh/circle-app/tx"
	"github.com/calehh/circle-app/types"
	abcitypes "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/ethereum/go-ethereum/common"
)

func checkJoin(btx *tx.CircleTx) error {
	jtx, err := payload[tx.JoinTx](btx)
	if err != nil {
		return err
	}
	if jtx.Referrer != "" && !common.IsHexAddress(jtx.Referrer) {
		return tx.ErrInvalidTx
	}
	return nil
}

func NewJoinTxHandler(logger cmtlog.Logger) TxHandler {
	return newBaseHandler(logger, "joinTx", checkJoin,
		func(st *state.State, signer common.Address, btx *tx.CircleTx, blk BlockInfo) ([]abcitypes.Event, error) {
			jtx := btx.Tx.(*tx.JoinTx)
			var referrer *common.Address
			if jtx.Referrer != "" {
				ref := common.HexToAddress(jtx.Referrer)
				referrer = &ref
			}
			event, err := st.Join(signer, jtx.Fee, referrer, blk.Time)
			if err != nil {
				return nil, err
			}
			return []abcitypes.Event{types.EncodeEventJoin(event)}, nil
		})
}

func checkMember(btx *tx.CircleTx) error {
	_, err := payload[tx.MemberTx](btx)
	return err
}

func NewActivateTxHandler(logger cmtlog.Logger) TxHandler {
	return newBaseHandler(logger, "activateTx", checkMember,
		func(st *state.State, signer common.Address, btx *tx.CircleTx, blk BlockInfo) ([]abcitypes.Event, error) {
			mtx := btx.Tx.(*tx.MemberTx)
			event, err := st.SetActive(mtx.Position, signer, blk.Time)
			if err != nil {
				return nil, err
			}
			return []abcitypes.Event{types.EncodeEventMemberStatus(event)}, nil
		})
}

func NewDeactivateTxHandler(logger cmtlog.Logger) TxHandler {
	return newBaseHandler(logger, "deactivateTx", checkMember,
		func(st *state.State, signer common.Address, btx *tx.CircleTx, blk BlockInfo) ([]abcitypes.Event, error) {
			mtx := btx.Tx.(*tx.MemberTx)
			event, err := st.SetInactive(mtx.Position, signer)
			if err != nil {
				return nil, err
			}
			return []abcitypes.Event{types.EncodeEventMemberStatus(event)}, nil
		})
}

func NewLeaveTxHandler(logger cmtlog.Logger) TxHandler {
	return newBaseHandler(logger, "leaveTx", checkMember,
		func(st *state.State, signer common.Address, btx *tx.CircleTx, blk BlockInfo) ([]abcitypes.Event, error) {
			mtx := btx.Tx.(*tx.MemberTx)
			event, err := st.Leave(mtx.Position, signer)
			if err != nil {
				return nil, err
			}
			return []abcitypes.Event{types.EncodeEventLeave(event)}, nil
		})
}
