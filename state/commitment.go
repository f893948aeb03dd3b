package state

import (
	"github.com/calehh/circle-app/types"
	"github.com/ethereum/go-ethereum/common"
)

// PreSign authorizes the sweep to forward on behalf of pos during the epoch
// of the in-progress cycle.
func (s *State) PreSign(pos uint64, signer common.Address, now int64) (event *types.EventPreSign, err error) {
	m, err := s.ownedMember(pos, signer)
	if err != nil {
		return
	}
	if m.Retired {
		return nil, ErrMemberRetired
	}
	cycle, err := s.activeCycle()
	if err != nil {
		return
	}
	if cycle.Expired(now) {
		return nil, ErrNoActiveCycle
	}
	if cycle.HasCompleted(pos) {
		return nil, ErrAlreadySignedThisEpoch
	}
	epoch := cycle.EpochId
	m.Commitment.PreSignedEpoch = &epoch
	s.putMember(m)
	event = &types.EventPreSign{Epoch: epoch, Position: pos}
	return
}

// EnableAutoSign replaces the auto-sign setting of pos. A bounded setting
// needs 1..365 epochs.
func (s *State) EnableAutoSign(pos uint64, signer common.Address, permanent bool, epochs uint32) (event *types.EventAutoSign, err error) {
	m, err := s.ownedMember(pos, signer)
	if err != nil {
		return
	}
	if m.Retired {
		return nil, ErrMemberRetired
	}
	if permanent {
		m.Commitment.AutoSign = AutoSign{Mode: AutoSignPermanent}
	} else {
		if epochs < MinAutoSignEpochs || epochs > MaxAutoSignEpochs {
			return nil, ErrInvalidDuration
		}
		m.Commitment.AutoSign = AutoSign{Mode: AutoSignEpochs, RemainingEpochs: epochs}
	}
	s.putMember(m)
	event = &types.EventAutoSign{
		Position: pos,
		Mode:     m.Commitment.AutoSign.Mode.String(),
		Epochs:   m.Commitment.AutoSign.RemainingEpochs,
	}
	return
}

func (s *State) DisableAutoSign(pos uint64, signer common.Address) (event *types.EventAutoSign, err error) {
	m, err := s.ownedMember(pos, signer)
	if err != nil {
		return
	}
	m.Commitment.AutoSign = AutoSign{}
	s.putMember(m)
	event = &types.EventAutoSign{Position: pos, Mode: AutoSignNone.String()}
	return
}

// ProcessNext executes one committed turn on behalf of the current holder.
// The turn runs when the holder pre-signed the epoch or has auto-sign on. A
// bounded auto-sign is charged one epoch on every swept turn, pre-signed or
// not.
func (s *State) ProcessNext(now int64) (res *ForwardResult, err error) {
	cycle, err := s.LatestCycle()
	if err != nil {
		return
	}
	if cycle == nil || cycle.Status != CycleInProgress || cycle.Holder == nil || cycle.Expired(now) {
		return nil, ErrNothingToProcess
	}
	holder := *cycle.Holder
	m, err := s.GetMember(holder)
	if err != nil {
		return
	}
	covered := m.Commitment.PreSigned(cycle.EpochId)
	if !covered && !m.Commitment.AutoSign.Active() {
		return nil, ErrNothingToProcess
	}
	if m.Commitment.AutoSign.Mode == AutoSignEpochs {
		m.Commitment.AutoSign.RemainingEpochs--
		if m.Commitment.AutoSign.RemainingEpochs == 0 {
			m.Commitment.AutoSign = AutoSign{}
		}
		s.putMember(m)
	}
	return s.forward(holder, now, true)
}

// ProcessAll keeps executing committed turns until the ring completes, the
// deadline passes or a holder without a commitment is reached.
func (s *State) ProcessAll(now int64) (results []*ForwardResult, err error) {
	for {
		res, err1 := s.ProcessNext(now)
		if err1 == ErrNothingToProcess {
			break
		}
		if err1 != nil {
			return nil, err1
		}
		results = append(results, res)
		if res.Complete != nil {
			break
		}
	}
	if len(results) == 0 {
		return nil, ErrNothingToProcess
	}
	return
}
