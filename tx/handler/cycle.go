package handler

import (
	"github.com/calehh/circle-app/state"
	"github.com/calehh/circle-app/tx"
	"github.com/calehh/circle-app/types"
	abcitypes "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/ethereum/go-ethereum/common"
)

func checkEmpty(btx *tx.CircleTx) error {
	_, err := payload[tx.EmptyTx](btx)
	return err
}

func encodeForward(res *state.ForwardResult) []abcitypes.Event {
	events := []abcitypes.Event{types.EncodeEventForward(res.Forward)}
	if res.Complete != nil {
		events = append(events, types.EncodeEventCycleComplete(res.Complete))
		for _, r := range res.Rewards {
			events = append(events, types.EncodeEventReward(r))
		}
	}
	return events
}

func NewStartCycleTxHandler(logger cmtlog.Logger) TxHandler {
	return newBaseHandler(logger, "startCycleTx", checkEmpty,
		func(st *state.State, signer common.Address, btx *tx.CircleTx, blk BlockInfo) ([]abcitypes.Event, error) {
			event, err := st.StartCycle(signer, blk.Time)
			if err != nil {
				return nil, err
			}
			return []abcitypes.Event{types.EncodeEventCycleStart(event)}, nil
		})
}

func NewForwardTxHandler(logger cmtlog.Logger) TxHandler {
	return newBaseHandler(logger, "forwardTx", checkMember,
		func(st *state.State, signer common.Address, btx *tx.CircleTx, blk BlockInfo) ([]abcitypes.Event, error) {
			mtx := btx.Tx.(*tx.MemberTx)
			res, err := st.Forward(mtx.Position, signer, blk.Time)
			if err != nil {
				return nil, err
			}
			return encodeForward(res), nil
		})
}

func NewDeclareTimeoutTxHandler(logger cmtlog.Logger) TxHandler {
	return newBaseHandler(logger, "timeoutTx", checkEmpty,
		func(st *state.State, signer common.Address, btx *tx.CircleTx, blk BlockInfo) ([]abcitypes.Event, error) {
			event, ban, err := st.DeclareTimeout(signer, blk.Time)
			if err != nil {
				return nil, err
			}
			events := []abcitypes.Event{types.EncodeEventTimeout(event)}
			if ban != nil {
				events = append(events, types.EncodeEventBan(ban))
			}
			return events, nil
		})
}
