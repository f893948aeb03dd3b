package state

import (
	"github.com/calehh/circle-app/types"
	"github.com/ethereum/go-ethereum/common"
)

// Join appends a new member for owner at the tail of the ring. The entry fee
// is paid into the center.
func (s *State) Join(owner common.Address, fee uint64, referrer *common.Address, now int64) (event *types.EventJoin, err error) {
	params, err := s.Params()
	if err != nil {
		return
	}
	if fee < params.EntryFee {
		return nil, ErrInsufficientFee
	}
	live, err := s.FindMember(owner)
	if err != nil {
		return
	}
	if live != nil {
		return nil, ErrAlreadyMember
	}
	if err = s.Transfer(owner, CenterAddress, fee); err != nil {
		if err == ErrInsufficientBalance {
			err = ErrInsufficientFee
		}
		return
	}

	pos := s.header.MemberCount
	s.header.MemberCount++
	m := &Member{
		Position: pos,
		Address:  MemberAddress(owner, pos),
		Owner:    owner,
		Active:   true,
		JoinedAt: now,
	}
	event = &types.EventJoin{
		Position: pos,
		Member:   m.Address.Hex(),
		Owner:    owner.Hex(),
		Fee:      fee,
	}
	if pos < MaxPioneers {
		rank := uint32(pos + 1)
		m.Bonus.PioneerRank = &rank
		event.PioneerRank = rank
	}
	if referrer != nil && *referrer != owner {
		ref, err1 := s.FindMember(*referrer)
		if err1 != nil {
			return nil, err1
		}
		if ref != nil {
			if ref.Bonus.ReferralCount < MaxReferralCount {
				ref.Bonus.ReferralCount++
			}
			s.putMember(ref)
			event.Referrer = referrer.Hex()
		}
	}
	s.putMember(m)
	s.setOwnerPosition(owner, pos)
	if err = s.addOwnerMember(owner, pos); err != nil {
		return nil, err
	}
	return
}

// SetActive re-enables a member. An expired ban is cleared on the way.
func (s *State) SetActive(pos uint64, signer common.Address, now int64) (event *types.EventMemberStatus, err error) {
	m, err := s.ownedMember(pos, signer)
	if err != nil {
		return
	}
	if m.Retired {
		return nil, ErrMemberRetired
	}
	if m.BannedAt(now) {
		return nil, ErrStillBanned
	}
	m.IsBanned = false
	m.Active = true
	s.putMember(m)
	event = &types.EventMemberStatus{Position: pos, Owner: m.Owner.Hex(), Active: true}
	return
}

func (s *State) SetInactive(pos uint64, signer common.Address) (event *types.EventMemberStatus, err error) {
	m, err := s.ownedMember(pos, signer)
	if err != nil {
		return
	}
	if m.Retired {
		return nil, ErrMemberRetired
	}
	m.Active = false
	s.putMember(m)
	event = &types.EventMemberStatus{Position: pos, Owner: m.Owner.Hex(), Active: false}
	return
}

// Leave retires a member. The position stays in the ring and is never reused.
func (s *State) Leave(pos uint64, signer common.Address) (event *types.EventLeave, err error) {
	m, err := s.ownedMember(pos, signer)
	if err != nil {
		return
	}
	if m.Retired {
		return nil, ErrMemberRetired
	}
	cycle, err := s.LatestCycle()
	if err != nil {
		return
	}
	if cycle != nil && cycle.Status == CycleInProgress {
		if cycle.IsHolder(pos) {
			return nil, ErrHolderCannotLeave
		}
		if m.Commitment.PreSigned(cycle.EpochId) {
			return nil, ErrCommitmentActive
		}
	}
	if m.Commitment.AutoSign.Active() {
		return nil, ErrCommitmentActive
	}
	m.Retired = true
	m.Active = false
	s.putMember(m)
	s.clearOwnerPosition(m.Owner)
	event = &types.EventLeave{Position: pos, Owner: m.Owner.Hex()}
	return
}
