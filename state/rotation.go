package state

import (
	"github.com/calehh/circle-app/types"
	"github.com/ethereum/go-ethereum/common"
)

// ForwardResult collects what one turn produced. Complete and Rewards are set
// only when the turn closed the ring.
type ForwardResult struct {
	Forward  *types.EventForward
	Complete *types.EventCycleComplete
	Rewards  []*types.EventReward
}

// StartCycle opens the cycle of the current epoch and hands the circulation
// amount to the first eligible member.
func (s *State) StartCycle(initiator common.Address, now int64) (event *types.EventCycleStart, err error) {
	today := EpochOf(now)
	latest, err := s.LatestCycle()
	if err != nil {
		return
	}
	if latest != nil && (latest.EpochId == today || latest.Status == CycleInProgress) {
		return nil, ErrAlreadyStarted
	}
	first, err := s.firstEligible(now)
	if err != nil {
		return
	}
	if first == nil {
		return nil, ErrNoActiveMembers
	}
	params, err := s.Params()
	if err != nil {
		return
	}
	center, err := s.BalanceOf(CenterAddress)
	if err != nil {
		return
	}
	if center < params.CirculationAmount {
		return nil, ErrInsufficientCenterBalance
	}
	if err = s.Transfer(CenterAddress, first.Address, params.CirculationAmount); err != nil {
		return
	}
	holder := first.Position
	s.putCycle(&Cycle{
		EpochId:          today,
		Holder:           &holder,
		StartedBy:        &initiator,
		StartedAt:        now,
		CompletedMembers: []uint64{},
		Status:           CycleInProgress,
	})
	event = &types.EventCycleStart{
		Epoch:     today,
		Holder:    holder,
		StartedBy: initiator.Hex(),
		Amount:    params.CirculationAmount,
	}
	return
}

// Forward passes the token from the holder at pos to the next eligible member
// that has not completed this cycle.
func (s *State) Forward(pos uint64, signer common.Address, now int64) (res *ForwardResult, err error) {
	if _, err = s.ownedMember(pos, signer); err != nil {
		return
	}
	return s.forward(pos, now, false)
}

func (s *State) activeCycle() (*Cycle, error) {
	cycle, err := s.LatestCycle()
	if err != nil {
		return nil, err
	}
	if cycle == nil || cycle.Status != CycleInProgress {
		return nil, ErrNoActiveCycle
	}
	return cycle, nil
}

func (s *State) forward(pos uint64, now int64, delegated bool) (res *ForwardResult, err error) {
	cycle, err := s.activeCycle()
	if err != nil {
		return
	}
	if cycle.Expired(now) {
		return nil, ErrDeadlinePassed
	}
	if cycle.HasCompleted(pos) {
		return nil, ErrAlreadySignedThisEpoch
	}
	if !cycle.IsHolder(pos) {
		return nil, ErrNotYourTurn
	}
	params, err := s.Params()
	if err != nil {
		return
	}
	m, err := s.GetMember(pos)
	if err != nil {
		return
	}
	m.CyclesCompleted++
	if m.Commitment.PreSigned(cycle.EpochId) {
		m.Commitment.PreSignedEpoch = nil
	}
	s.putMember(m)
	cycle.CompletedMembers = append(cycle.CompletedMembers, pos)

	res = &ForwardResult{
		Forward: &types.EventForward{
			Epoch:     cycle.EpochId,
			From:      pos,
			Amount:    params.CirculationAmount,
			Delegated: delegated,
		},
	}
	next, err := s.nextEligible(cycle, pos, now)
	if err != nil {
		return nil, err
	}
	if next != nil {
		if err = s.Transfer(m.Address, next.Address, params.CirculationAmount); err != nil {
			return nil, err
		}
		holder := next.Position
		cycle.Holder = &holder
		res.Forward.To = holder
		s.putCycle(cycle)
		return
	}

	if err = s.Transfer(m.Address, CenterAddress, params.CirculationAmount); err != nil {
		return nil, err
	}
	res.Forward.ToCenter = true
	cycle.Holder = nil
	cycle.Status = CycleCompleted
	cycle.CompletedAt = now
	s.putCycle(cycle)
	res.Complete, res.Rewards, err = s.accrueCompletion(cycle, now)
	if err != nil {
		return nil, err
	}
	return
}

// DeclareTimeout fails an in-progress cycle whose deadline has passed. The
// holder is banned and whatever it holds is recalled to the center.
func (s *State) DeclareTimeout(caller common.Address, now int64) (event *types.EventTimeout, ban *types.EventBan, err error) {
	cycle, err := s.activeCycle()
	if err != nil {
		return
	}
	if !cycle.Expired(now) {
		return nil, nil, ErrNotYetTimedOut
	}
	cycle.Status = CycleTimedOut
	event = &types.EventTimeout{Epoch: cycle.EpochId, Caller: caller.Hex()}
	if cycle.Holder != nil {
		holder := *cycle.Holder
		event.Holder = holder
		m, err1 := s.GetMember(holder)
		if err1 != nil {
			return nil, nil, err1
		}
		recalled, err1 := s.BalanceOf(m.Address)
		if err1 != nil {
			return nil, nil, err1
		}
		if err = s.Transfer(m.Address, CenterAddress, recalled); err != nil {
			return nil, nil, err
		}
		event.Recalled = recalled
		if ban, err = s.ApplyBan(holder, now); err != nil {
			return nil, nil, err
		}
	}
	cycle.Status = CycleFailed
	s.putCycle(cycle)
	return
}

func (s *State) firstEligible(now int64) (*Member, error) {
	for pos := uint64(0); pos < s.header.MemberCount; pos++ {
		m, err := s.GetMember(pos)
		if err != nil {
			return nil, err
		}
		if m.Eligible(now) {
			return m, nil
		}
	}
	return nil, nil
}

// nextEligible scans the ring strictly after from, wrapping at the tail, for
// an eligible member outside the completed set.
func (s *State) nextEligible(cycle *Cycle, from uint64, now int64) (*Member, error) {
	n := s.header.MemberCount
	for i := uint64(1); i < n; i++ {
		pos := (from + i) % n
		if cycle.HasCompleted(pos) {
			continue
		}
		m, err := s.GetMember(pos)
		if err != nil {
			return nil, err
		}
		if m.Eligible(now) {
			return m, nil
		}
	}
	return nil, nil
}
