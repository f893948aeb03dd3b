package state

import (
	"math"
	"math/bits"
	"time"

	"github.com/calehh/circle-app/types"
	"github.com/ethereum/go-ethereum/common"
)

type RewardPool struct {
	PoolBalance           uint64 `json:"poolBalance"`
	InitialBase           uint64 `json:"initialBase"`
	RewardPerCycleBase    uint64 `json:"rewardPerCycleBase"`
	CompletedCycles       uint64 `json:"completedCycles"`
	Era                   uint64 `json:"era"`
	TotalDistributed      uint64 `json:"totalDistributed"`
	TotalBurned           uint64 `json:"totalBurned"`
	TotalPiBonus          uint64 `json:"totalPiBonus"`
	BurnPerMemberPerCycle uint64 `json:"burnPerMemberPerCycle"`
}

// mulDiv returns floor(a*b/d), saturating at MaxUint64.
func mulDiv(a, b, d uint64) uint64 {
	hi, lo := bits.Mul64(a, b)
	if hi >= d {
		return math.MaxUint64
	}
	q, _ := bits.Div64(hi, lo, d)
	return q
}

// RewardBaseForEra halves the initial base once per era.
func RewardBaseForEra(initial, era uint64) uint64 {
	if era >= 64 {
		return 0
	}
	return initial >> era
}

func PiBonus(base uint64) uint64 {
	return mulDiv(base, PiBonusBps, BpsDenominator)
}

// BonusPercent stacks the bonus components of m. starter is set only for the
// member whose owner started the cycle being rewarded. Deposit and referral
// components are capped individually.
func BonusPercent(params *Params, m *Member, starter bool) uint64 {
	var pct uint64
	if starter {
		pct += params.StarterBonusPct
	}
	if m.Bonus.PioneerRank != nil {
		pct += params.PioneerBonusPct
	}
	deposit := m.Bonus.DepositTotal / params.DepositBonusUnit
	if deposit > MaxBonusPct {
		deposit = MaxBonusPct
	}
	referral := uint64(m.Bonus.ReferralCount)
	if referral > MaxReferralCount {
		referral = MaxReferralCount
	}
	return pct + deposit + referral
}

// activeMembers returns the members eligible at now in ring order.
func (s *State) activeMembers(now int64) (active []*Member, err error) {
	ring, err := s.Ring()
	if err != nil {
		return
	}
	for _, m := range ring {
		if m.Eligible(now) {
			active = append(active, m)
		}
	}
	return
}

// accrueCompletion splits the base among the members active at now and burns
// per active member.
func (s *State) accrueCompletion(cycle *Cycle, now int64) (complete *types.EventCycleComplete, rewards []*types.EventReward, err error) {
	params, err := s.Params()
	if err != nil {
		return
	}
	pool, err := s.Pool()
	if err != nil {
		return
	}
	pool.CompletedCycles++
	boundary := pool.CompletedCycles%CircleLength == 0
	base := pool.RewardPerCycleBase
	complete = &types.EventCycleComplete{
		Epoch:           cycle.EpochId,
		Participants:    make([]uint64, 0),
		CompletedCycles: pool.CompletedCycles,
		RewardBase:      base,
	}
	if boundary {
		pi := PiBonus(base)
		if err = s.credit(RewardVaultAddress, pi); err != nil {
			return
		}
		pool.PoolBalance += pi
		pool.TotalPiBonus += pi
		complete.PiBonus = pi
	}

	active, err := s.activeMembers(now)
	if err != nil {
		return
	}
	n := uint64(len(active))
	if n > 0 {
		share := base / n
		for _, m := range active {
			pos := m.Position
			complete.Participants = append(complete.Participants, pos)
			starter := cycle.StartedBy != nil && m.Owner == *cycle.StartedBy
			pct := BonusPercent(&params, m, starter)
			credit := mulDiv(share, 100+pct, 100)
			if credit > pool.PoolBalance {
				credit = pool.PoolBalance
			}
			if credit == 0 {
				continue
			}
			pool.PoolBalance -= credit
			pool.TotalDistributed += credit
			complete.Distributed += credit
			m.Accrued += credit
			s.putMember(m)
			rewards = append(rewards, &types.EventReward{
				Epoch:    cycle.EpochId,
				Position: pos,
				Owner:    m.Owner.Hex(),
				Amount:   credit,
				BonusPct: pct,
			})
		}
	}

	burn := mulDiv(pool.BurnPerMemberPerCycle, n, 1)
	if burn > pool.PoolBalance {
		burn = pool.PoolBalance
	}
	if burn > 0 {
		if err = s.debit(RewardVaultAddress, burn); err != nil {
			return nil, nil, err
		}
		pool.PoolBalance -= burn
		pool.TotalBurned += burn
	}
	complete.Burned = burn

	if boundary {
		pool.Era = pool.CompletedCycles / CircleLength
		pool.RewardPerCycleBase = RewardBaseForEra(pool.InitialBase, pool.Era)
	}
	complete.Era = pool.Era
	complete.PoolBalance = pool.PoolBalance
	s.putPool(pool)
	return
}

// ClaimWindowOpen reports whether claims are accepted at now (Sundays, UTC).
func ClaimWindowOpen(now int64) bool {
	return time.Unix(now, 0).UTC().Weekday() == time.Sunday
}

// ClaimRewards pays out the accrued rewards of every member owner ever held.
func (s *State) ClaimRewards(owner common.Address, now int64) (event *types.EventClaim, err error) {
	if !ClaimWindowOpen(now) {
		return nil, ErrClaimWindowClosed
	}
	positions, err := s.MembersOf(owner)
	if err != nil {
		return
	}
	event = &types.EventClaim{Owner: owner.Hex(), Positions: []uint64{}}
	for _, pos := range positions {
		m, err1 := s.GetMember(pos)
		if err1 != nil {
			return nil, err1
		}
		if m.Accrued == 0 {
			continue
		}
		event.Amount += m.Accrued
		event.Positions = append(event.Positions, pos)
		m.TotalClaimed += m.Accrued
		m.Accrued = 0
		s.putMember(m)
	}
	if event.Amount == 0 {
		return nil, ErrNothingToClaim
	}
	if err = s.Transfer(RewardVaultAddress, owner, event.Amount); err != nil {
		return nil, err
	}
	return
}
