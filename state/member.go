package state

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

type AutoSignMode uint8

const (
	AutoSignNone AutoSignMode = iota
	AutoSignPermanent
	AutoSignEpochs
)

func (m AutoSignMode) String() string {
	switch m {
	case AutoSignPermanent:
		return "permanent"
	case AutoSignEpochs:
		return "epochs"
	default:
		return "none"
	}
}

type AutoSign struct {
	Mode            AutoSignMode `json:"mode"`
	RemainingEpochs uint32       `json:"remainingEpochs,omitempty"`
}

func (a AutoSign) Active() bool {
	switch a.Mode {
	case AutoSignPermanent:
		return true
	case AutoSignEpochs:
		return a.RemainingEpochs > 0
	}
	return false
}

// Commitment holds the standing intents that let the sweep forward on a
// member's behalf. The two fields are independent.
type Commitment struct {
	PreSignedEpoch *uint64  `json:"preSignedEpoch,omitempty"`
	AutoSign       AutoSign `json:"autoSign"`
}

func (c *Commitment) PreSigned(epoch uint64) bool {
	return c.PreSignedEpoch != nil && *c.PreSignedEpoch == epoch
}

type Bonus struct {
	PioneerRank   *uint32 `json:"pioneerRank,omitempty"`
	DepositTotal  uint64  `json:"depositTotal"`
	ReferralCount uint32  `json:"referralCount"`
}

type Member struct {
	Position        uint64         `json:"position"`
	Address         common.Address `json:"address"`
	Owner           common.Address `json:"owner"`
	Active          bool           `json:"active"`
	Retired         bool           `json:"retired"`
	CyclesCompleted uint64         `json:"cyclesCompleted"`
	CyclesFailed    uint64         `json:"cyclesFailed"`
	IsBanned        bool           `json:"isBanned"`
	BanUntil        int64          `json:"banUntil"`
	JoinedAt        int64          `json:"joinedAt"`
	Accrued         uint64         `json:"accrued"`
	TotalClaimed    uint64         `json:"totalClaimed"`
	Bonus           Bonus          `json:"bonus"`
	Commitment      Commitment     `json:"commitment"`
}

func (m *Member) Clone() *Member {
	n := *m
	if m.Bonus.PioneerRank != nil {
		r := *m.Bonus.PioneerRank
		n.Bonus.PioneerRank = &r
	}
	if m.Commitment.PreSignedEpoch != nil {
		e := *m.Commitment.PreSignedEpoch
		n.Commitment.PreSignedEpoch = &e
	}
	return &n
}

// BannedAt re-evaluates the ban against now; a stale IsBanned flag past
// BanUntil does not count.
func (m *Member) BannedAt(now int64) bool {
	return m.IsBanned && now < m.BanUntil
}

// Eligible reports whether the member takes part in forwarding order at now.
func (m *Member) Eligible(now int64) bool {
	return m.Active && !m.Retired && !m.BannedAt(now)
}

func (m *Member) HasCommitment(epoch uint64) bool {
	return m.Commitment.PreSigned(epoch) || m.Commitment.AutoSign.Active()
}

// MemberAddress derives the opaque identity of the member at position.
func MemberAddress(owner common.Address, position uint64) common.Address {
	var pos [8]byte
	binary.BigEndian.PutUint64(pos[:], position)
	h := crypto.Keccak256([]byte("member"), owner.Bytes(), pos[:])
	return common.BytesToAddress(h[12:])
}
