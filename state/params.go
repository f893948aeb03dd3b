package state

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

const (
	SecondsPerDay = 86400

	// CircleLength is the number of completed cycles in one halving era.
	CircleLength = 360

	MaxPioneers      = 360
	MaxBonusPct      = 360
	MaxReferralCount = 360

	MinAutoSignEpochs = 1
	MaxAutoSignEpochs = 365

	BpsDenominator = 10000
	PiBonusBps     = 314
	TreasuryBps    = 314
	DAOSharePct    = 30

	DefaultBanDuration = 7 * SecondsPerDay
)

var (
	CenterAddress      = common.BytesToAddress([]byte("circle/center"))
	RewardVaultAddress = common.BytesToAddress([]byte("circle/reward-vault"))
)

// Params are the consensus-critical economic parameters, fixed at genesis.
type Params struct {
	EntryFee              uint64         `json:"entryFee"`
	CirculationAmount     uint64         `json:"circulationAmount"`
	InitialRewardBase     uint64         `json:"initialRewardBase"`
	BurnPerMemberPerCycle uint64         `json:"burnPerMemberPerCycle"`
	StarterBonusPct       uint64         `json:"starterBonusPct"`
	PioneerBonusPct       uint64         `json:"pioneerBonusPct"`
	DepositBonusUnit      uint64         `json:"depositBonusUnit"`
	BanDuration           int64          `json:"banDuration"`
	DAOAddress            common.Address `json:"daoAddress"`
}

func DefaultParams() Params {
	return Params{
		EntryFee:              1_000_000,
		CirculationAmount:     1_000_000,
		InitialRewardBase:     360_000_000,
		BurnPerMemberPerCycle: 1_000,
		StarterBonusPct:       10,
		PioneerBonusPct:       10,
		DepositBonusUnit:      1,
		BanDuration:           DefaultBanDuration,
		DAOAddress:            common.BytesToAddress([]byte("circle/dao")),
	}
}

func (p *Params) Validate() error {
	if p.CirculationAmount == 0 {
		return fmt.Errorf("%w: circulationAmount must be positive", ErrParamsInvalid)
	}
	if p.DepositBonusUnit == 0 {
		return fmt.Errorf("%w: depositBonusUnit must be positive", ErrParamsInvalid)
	}
	if p.BanDuration <= 0 {
		return fmt.Errorf("%w: banDuration must be positive", ErrParamsInvalid)
	}
	if p.DAOAddress == (common.Address{}) || p.DAOAddress == CenterAddress || p.DAOAddress == RewardVaultAddress {
		return fmt.Errorf("%w: daoAddress %s", ErrParamsInvalid, p.DAOAddress.Hex())
	}
	return nil
}

// EpochOf returns the UTC calendar day number of a unix timestamp.
func EpochOf(unix int64) uint64 {
	if unix < 0 {
		return 0
	}
	return uint64(unix / SecondsPerDay)
}

// EpochDeadline is the first second of the day following epoch.
func EpochDeadline(epoch uint64) int64 {
	return int64(epoch+1) * SecondsPerDay
}
