package state

import (
	"github.com/calehh/circle-app/types"
)

// ApplyBan bans the member at pos until now plus the configured ban duration
// and counts one failed cycle.
func (s *State) ApplyBan(pos uint64, now int64) (event *types.EventBan, err error) {
	params, err := s.Params()
	if err != nil {
		return
	}
	m, err := s.GetMember(pos)
	if err != nil {
		return
	}
	m.IsBanned = true
	m.BanUntil = now + params.BanDuration
	m.Active = false
	m.CyclesFailed++
	s.putMember(m)
	event = &types.EventBan{
		Position:     pos,
		BanUntil:     m.BanUntil,
		CyclesFailed: m.CyclesFailed,
	}
	return
}
