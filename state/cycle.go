package state

import (
	"github.com/ethereum/go-ethereum/common"
)

type CycleStatus uint8

const (
	CycleNotStarted CycleStatus = iota
	CycleInProgress
	CycleCompleted
	CycleTimedOut
	CycleFailed
)

func (s CycleStatus) String() string {
	switch s {
	case CycleInProgress:
		return "InProgress"
	case CycleCompleted:
		return "Completed"
	case CycleTimedOut:
		return "TimedOut"
	case CycleFailed:
		return "Failed"
	default:
		return "NotStarted"
	}
}

// Terminal reports whether a new cycle may supersede this one.
func (s CycleStatus) Terminal() bool {
	return s == CycleCompleted || s == CycleFailed
}

type Cycle struct {
	EpochId          uint64          `json:"epochId"`
	Holder           *uint64         `json:"holder,omitempty"`
	StartedBy        *common.Address `json:"startedBy,omitempty"`
	StartedAt        int64           `json:"startedAt"`
	CompletedMembers []uint64        `json:"completedMembers"`
	Status           CycleStatus     `json:"status"`
	CompletedAt      int64           `json:"completedAt,omitempty"`
}

func (c *Cycle) Clone() *Cycle {
	n := *c
	if c.Holder != nil {
		h := *c.Holder
		n.Holder = &h
	}
	if c.StartedBy != nil {
		a := *c.StartedBy
		n.StartedBy = &a
	}
	n.CompletedMembers = append([]uint64(nil), c.CompletedMembers...)
	return &n
}

func (c *Cycle) HasCompleted(position uint64) bool {
	for _, p := range c.CompletedMembers {
		if p == position {
			return true
		}
	}
	return false
}

func (c *Cycle) IsHolder(position uint64) bool {
	return c.Holder != nil && *c.Holder == position
}

// Expired reports whether the forwarding deadline of the cycle has passed.
func (c *Cycle) Expired(now int64) bool {
	return now >= EpochDeadline(c.EpochId)
}
