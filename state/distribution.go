package state

import (
	"github.com/calehh/circle-app/types"
	"github.com/ethereum/go-ethereum/common"
)

type DistributionStats struct {
	TreasuryRetained uint64 `json:"treasuryRetained"`
	DAOForwarded     uint64 `json:"daoForwarded"`
	LiquidityPending uint64 `json:"liquidityPending"`
	TotalDeposited   uint64 `json:"totalDeposited"`
	Deposits         uint64 `json:"deposits"`
}

// SplitDeposit divides amount into the treasury, DAO and liquidity shares.
func SplitDeposit(amount uint64) (treasury, dao, liquidity uint64) {
	treasury = mulDiv(amount, TreasuryBps, BpsDenominator)
	rest := amount - treasury
	dao = mulDiv(rest, DAOSharePct, 100)
	liquidity = rest - dao
	return
}

// Deposit moves amount from owner into the center and forwards the DAO share.
// The deposit counts toward the bonus of the owner's live member.
func (s *State) Deposit(owner common.Address, amount uint64) (event *types.EventDeposit, err error) {
	if amount == 0 {
		return nil, ErrInvalidAmount
	}
	params, err := s.Params()
	if err != nil {
		return
	}
	if err = s.Transfer(owner, CenterAddress, amount); err != nil {
		return
	}
	treasury, dao, liquidity := SplitDeposit(amount)
	if err = s.Transfer(CenterAddress, params.DAOAddress, dao); err != nil {
		return
	}
	stats, err := s.Distribution()
	if err != nil {
		return
	}
	stats.TreasuryRetained += treasury
	stats.DAOForwarded += dao
	stats.LiquidityPending += liquidity
	stats.TotalDeposited += amount
	stats.Deposits++
	s.putDistribution(stats)

	m, err := s.FindMember(owner)
	if err != nil {
		return
	}
	if m != nil {
		m.Bonus.DepositTotal += amount
		s.putMember(m)
	}
	event = &types.EventDeposit{
		Owner:     owner.Hex(),
		Amount:    amount,
		Treasury:  treasury,
		DAO:       dao,
		Liquidity: liquidity,
	}
	return
}
