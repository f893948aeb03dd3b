package handler

import (
	"github.com/calehh/circle-app/state"
	"github.com/calehh/circle-app/tx"
	"github.com/calehh/circle-app/types"
	abcitypes "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/ethereum/go-ethereum/common"
)

func NewClaimTxHandler(logger cmtlog.Logger) TxHandler {
	return newBaseHandler(logger, "claimTx", checkEmpty,
		func(st *state.State, signer common.Address, btx *tx.CircleTx, blk BlockInfo) ([]abcitypes.Event, error) {
			event, err := st.ClaimRewards(signer, blk.Time)
			if err != nil {
				return nil, err
			}
			return []abcitypes.Event{types.EncodeEventClaim(event)}, nil
		})
}

func checkDeposit(btx *tx.CircleTx) error {
	dtx, err := payload[tx.DepositTx](btx)
	if err != nil {
		return err
	}
	if dtx.Amount == 0 {
		return state.ErrInvalidAmount
	}
	return nil
}

func NewDepositTxHandler(logger cmtlog.Logger) TxHandler {
	return newBaseHandler(logger, "depositTx", checkDeposit,
		func(st *state.State, signer common.Address, btx *tx.CircleTx, blk BlockInfo) ([]abcitypes.Event, error) {
			dtx := btx.Tx.(*tx.DepositTx)
			event, err := st.Deposit(signer, dtx.Amount)
			if err != nil {
				return nil, err
			}
			return []abcitypes.Event{types.EncodeEventDeposit(event)}, nil
		})
}
