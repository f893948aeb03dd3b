package types

import (
	"fmt"
	"strconv"
	"strings"

	abci "github.com/cometbft/cometbft/abci/types"
)

const (
	EventJoinType          = "join"
	EventActivateType      = "activate"
	EventDeactivateType    = "deactivate"
	EventLeaveType         = "leave"
	EventCycleStartType    = "cycle_start"
	EventForwardType       = "forward"
	EventCycleCompleteType = "cycle_complete"
	EventRewardType        = "reward"
	EventTimeoutType       = "timeout"
	EventBanType           = "ban"
	EventPreSignType       = "presign"
	EventAutoSignType      = "autosign"
	EventClaimType         = "claim"
	EventDepositType       = "deposit"
)

func parseUint(v string) (uint64, bool) {
	n, err := strconv.ParseUint(v, 10, 64)
	return n, err == nil
}

func joinUints(vs []uint64) string {
	strs := make([]string, len(vs))
	for i, v := range vs {
		strs[i] = strconv.FormatUint(v, 10)
	}
	return strings.Join(strs, ",")
}

func splitUints(v string) ([]uint64, bool) {
	res := make([]uint64, 0)
	if v == "" {
		return res, true
	}
	for _, s := range strings.Split(v, ",") {
		n, ok := parseUint(s)
		if !ok {
			return nil, false
		}
		res = append(res, n)
	}
	return res, true
}

type EventJoin struct {
	Position    uint64 `json:"position"`
	Member      string `json:"member"`
	Owner       string `json:"owner"`
	Fee         uint64 `json:"fee"`
	PioneerRank uint32 `json:"pioneerRank"`
	Referrer    string `json:"referrer"`
}

func EncodeEventJoin(event *EventJoin) abci.Event {
	return abci.Event{
		Type: EventJoinType,
		Attributes: []abci.EventAttribute{
			{Key: "position", Value: fmt.Sprintf("%v", event.Position), Index: true},
			{Key: "owner", Value: event.Owner, Index: true},
			{Key: "member", Value: event.Member, Index: false},
			{Key: "fee", Value: fmt.Sprintf("%v", event.Fee), Index: false},
			{Key: "pioneerRank", Value: fmt.Sprintf("%v", event.PioneerRank), Index: false},
			{Key: "referrer", Value: event.Referrer, Index: false},
		},
	}
}

func DecodeEventJoin(originEvent abci.Event) *EventJoin {
	event := &EventJoin{}
	for _, v := range originEvent.Attributes {
		switch v.Key {
		case "position":
			position, ok := parseUint(v.Value)
			if !ok {
				return nil
			}
			event.Position = position
		case "owner":
			event.Owner = v.Value
		case "member":
			event.Member = v.Value
		case "fee":
			fee, ok := parseUint(v.Value)
			if !ok {
				return nil
			}
			event.Fee = fee
		case "pioneerRank":
			rank, err := strconv.ParseUint(v.Value, 10, 32)
			if err != nil {
				return nil
			}
			event.PioneerRank = uint32(rank)
		case "referrer":
			event.Referrer = v.Value
		}
	}
	return event
}

// EventMemberStatus is emitted as activate or deactivate.
type EventMemberStatus struct {
	Position uint64 `json:"position"`
	Owner    string `json:"owner"`
	Active   bool   `json:"active"`
}

func EncodeEventMemberStatus(event *EventMemberStatus) abci.Event {
	typ := EventDeactivateType
	if event.Active {
		typ = EventActivateType
	}
	return abci.Event{
		Type: typ,
		Attributes: []abci.EventAttribute{
			{Key: "position", Value: fmt.Sprintf("%v", event.Position), Index: true},
			{Key: "owner", Value: event.Owner, Index: false},
		},
	}
}

func DecodeEventMemberStatus(originEvent abci.Event) *EventMemberStatus {
	event := &EventMemberStatus{Active: originEvent.Type == EventActivateType}
	for _, v := range originEvent.Attributes {
		switch v.Key {
		case "position":
			position, ok := parseUint(v.Value)
			if !ok {
				return nil
			}
			event.Position = position
		case "owner":
			event.Owner = v.Value
		}
	}
	return event
}

type EventLeave struct {
	Position uint64 `json:"position"`
	Owner    string `json:"owner"`
}

func EncodeEventLeave(event *EventLeave) abci.Event {
	return abci.Event{
		Type: EventLeaveType,
		Attributes: []abci.EventAttribute{
			{Key: "position", Value: fmt.Sprintf("%v", event.Position), Index: true},
			{Key: "owner", Value: event.Owner, Index: true},
		},
	}
}

func DecodeEventLeave(originEvent abci.Event) *EventLeave {
	event := &EventLeave{}
	for _, v := range originEvent.Attributes {
		switch v.Key {
		case "position":
			position, ok := parseUint(v.Value)
			if !ok {
				return nil
			}
			event.Position = position
		case "owner":
			event.Owner = v.Value
		}
	}
	return event
}

type EventCycleStart struct {
	Epoch     uint64 `json:"epoch"`
	Holder    uint64 `json:"holder"`
	StartedBy string `json:"startedBy"`
	Amount    uint64 `json:"amount"`
}

func EncodeEventCycleStart(event *EventCycleStart) abci.Event {
	return abci.Event{
		Type: EventCycleStartType,
		Attributes: []abci.EventAttribute{
			{Key: "epoch", Value: fmt.Sprintf("%v", event.Epoch), Index: true},
			{Key: "holder", Value: fmt.Sprintf("%v", event.Holder), Index: false},
			{Key: "startedBy", Value: event.StartedBy, Index: false},
			{Key: "amount", Value: fmt.Sprintf("%v", event.Amount), Index: false},
		},
	}
}

func DecodeEventCycleStart(originEvent abci.Event) *EventCycleStart {
	event := &EventCycleStart{}
	for _, v := range originEvent.Attributes {
		var ok = true
		switch v.Key {
		case "epoch":
			event.Epoch, ok = parseUint(v.Value)
		case "holder":
			event.Holder, ok = parseUint(v.Value)
		case "startedBy":
			event.StartedBy = v.Value
		case "amount":
			event.Amount, ok = parseUint(v.Value)
		}
		if !ok {
			return nil
		}
	}
	return event
}

// EventForward records one turn. ToCenter is set when the turn closed the
// ring and the token returned to the center.
type EventForward struct {
	Epoch     uint64 `json:"epoch"`
	From      uint64 `json:"from"`
	To        uint64 `json:"to"`
	ToCenter  bool   `json:"toCenter"`
	Amount    uint64 `json:"amount"`
	Delegated bool   `json:"delegated"`
}

func EncodeEventForward(event *EventForward) abci.Event {
	return abci.Event{
		Type: EventForwardType,
		Attributes: []abci.EventAttribute{
			{Key: "epoch", Value: fmt.Sprintf("%v", event.Epoch), Index: true},
			{Key: "from", Value: fmt.Sprintf("%v", event.From), Index: true},
			{Key: "to", Value: fmt.Sprintf("%v", event.To), Index: false},
			{Key: "toCenter", Value: fmt.Sprintf("%v", event.ToCenter), Index: false},
			{Key: "amount", Value: fmt.Sprintf("%v", event.Amount), Index: false},
			{Key: "delegated", Value: fmt.Sprintf("%v", event.Delegated), Index: false},
		},
	}
}

func DecodeEventForward(originEvent abci.Event) *EventForward {
	event := &EventForward{}
	for _, v := range originEvent.Attributes {
		var ok = true
		var err error
		switch v.Key {
		case "epoch":
			event.Epoch, ok = parseUint(v.Value)
		case "from":
			event.From, ok = parseUint(v.Value)
		case "to":
			event.To, ok = parseUint(v.Value)
		case "toCenter":
			event.ToCenter, err = strconv.ParseBool(v.Value)
		case "amount":
			event.Amount, ok = parseUint(v.Value)
		case "delegated":
			event.Delegated, err = strconv.ParseBool(v.Value)
		}
		if !ok || err != nil {
			return nil
		}
	}
	return event
}

type EventCycleComplete struct {
	Epoch           uint64   `json:"epoch"`
	Participants    []uint64 `json:"participants"`
	CompletedCycles uint64   `json:"completedCycles"`
	Era             uint64   `json:"era"`
	RewardBase      uint64   `json:"rewardBase"`
	PiBonus         uint64   `json:"piBonus"`
	Distributed     uint64   `json:"distributed"`
	Burned          uint64   `json:"burned"`
	PoolBalance     uint64   `json:"poolBalance"`
}

func EncodeEventCycleComplete(event *EventCycleComplete) abci.Event {
	return abci.Event{
		Type: EventCycleCompleteType,
		Attributes: []abci.EventAttribute{
			{Key: "epoch", Value: fmt.Sprintf("%v", event.Epoch), Index: true},
			{Key: "participants", Value: joinUints(event.Participants), Index: false},
			{Key: "completedCycles", Value: fmt.Sprintf("%v", event.CompletedCycles), Index: false},
			{Key: "era", Value: fmt.Sprintf("%v", event.Era), Index: false},
			{Key: "rewardBase", Value: fmt.Sprintf("%v", event.RewardBase), Index: false},
			{Key: "piBonus", Value: fmt.Sprintf("%v", event.PiBonus), Index: false},
			{Key: "distributed", Value: fmt.Sprintf("%v", event.Distributed), Index: false},
			{Key: "burned", Value: fmt.Sprintf("%v", event.Burned), Index: false},
			{Key: "poolBalance", Value: fmt.Sprintf("%v", event.PoolBalance), Index: false},
		},
	}
}

func DecodeEventCycleComplete(originEvent abci.Event) *EventCycleComplete {
	event := &EventCycleComplete{}
	for _, v := range originEvent.Attributes {
		var ok = true
		switch v.Key {
		case "epoch":
			event.Epoch, ok = parseUint(v.Value)
		case "participants":
			event.Participants, ok = splitUints(v.Value)
		case "completedCycles":
			event.CompletedCycles, ok = parseUint(v.Value)
		case "era":
			event.Era, ok = parseUint(v.Value)
		case "rewardBase":
			event.RewardBase, ok = parseUint(v.Value)
		case "piBonus":
			event.PiBonus, ok = parseUint(v.Value)
		case "distributed":
			event.Distributed, ok = parseUint(v.Value)
		case "burned":
			event.Burned, ok = parseUint(v.Value)
		case "poolBalance":
			event.PoolBalance, ok = parseUint(v.Value)
		}
		if !ok {
			return nil
		}
	}
	return event
}

type EventReward struct {
	Epoch    uint64 `json:"epoch"`
	Position uint64 `json:"position"`
	Owner    string `json:"owner"`
	Amount   uint64 `json:"amount"`
	BonusPct uint64 `json:"bonusPct"`
}

func EncodeEventReward(event *EventReward) abci.Event {
	return abci.Event{
		Type: EventRewardType,
		Attributes: []abci.EventAttribute{
			{Key: "epoch", Value: fmt.Sprintf("%v", event.Epoch), Index: true},
			{Key: "position", Value: fmt.Sprintf("%v", event.Position), Index: true},
			{Key: "owner", Value: event.Owner, Index: false},
			{Key: "amount", Value: fmt.Sprintf("%v", event.Amount), Index: false},
			{Key: "bonusPct", Value: fmt.Sprintf("%v", event.BonusPct), Index: false},
		},
	}
}

func DecodeEventReward(originEvent abci.Event) *EventReward {
	event := &EventReward{}
	for _, v := range originEvent.Attributes {
		var ok = true
		switch v.Key {
		case "epoch":
			event.Epoch, ok = parseUint(v.Value)
		case "position":
			event.Position, ok = parseUint(v.Value)
		case "owner":
			event.Owner = v.Value
		case "amount":
			event.Amount, ok = parseUint(v.Value)
		case "bonusPct":
			event.BonusPct, ok = parseUint(v.Value)
		}
		if !ok {
			return nil
		}
	}
	return event
}

type EventTimeout struct {
	Epoch    uint64 `json:"epoch"`
	Holder   uint64 `json:"holder"`
	Caller   string `json:"caller"`
	Recalled uint64 `json:"recalled"`
}

func EncodeEventTimeout(event *EventTimeout) abci.Event {
	return abci.Event{
		Type: EventTimeoutType,
		Attributes: []abci.EventAttribute{
			{Key: "epoch", Value: fmt.Sprintf("%v", event.Epoch), Index: true},
			{Key: "holder", Value: fmt.Sprintf("%v", event.Holder), Index: true},
			{Key: "caller", Value: event.Caller, Index: false},
			{Key: "recalled", Value: fmt.Sprintf("%v", event.Recalled), Index: false},
		},
	}
}

func DecodeEventTimeout(originEvent abci.Event) *EventTimeout {
	event := &EventTimeout{}
	for _, v := range originEvent.Attributes {
		var ok = true
		switch v.Key {
		case "epoch":
			event.Epoch, ok = parseUint(v.Value)
		case "holder":
			event.Holder, ok = parseUint(v.Value)
		case "caller":
			event.Caller = v.Value
		case "recalled":
			event.Recalled, ok = parseUint(v.Value)
		}
		if !ok {
			return nil
		}
	}
	return event
}

type EventBan struct {
	Position     uint64 `json:"position"`
	BanUntil     int64  `json:"banUntil"`
	CyclesFailed uint64 `json:"cyclesFailed"`
}

func EncodeEventBan(event *EventBan) abci.Event {
	return abci.Event{
		Type: EventBanType,
		Attributes: []abci.EventAttribute{
			{Key: "position", Value: fmt.Sprintf("%v", event.Position), Index: true},
			{Key: "banUntil", Value: fmt.Sprintf("%v", event.BanUntil), Index: false},
			{Key: "cyclesFailed", Value: fmt.Sprintf("%v", event.CyclesFailed), Index: false},
		},
	}
}

func DecodeEventBan(originEvent abci.Event) *EventBan {
	event := &EventBan{}
	for _, v := range originEvent.Attributes {
		switch v.Key {
		case "position":
			position, ok := parseUint(v.Value)
			if !ok {
				return nil
			}
			event.Position = position
		case "banUntil":
			until, err := strconv.ParseInt(v.Value, 10, 64)
			if err != nil {
				return nil
			}
			event.BanUntil = until
		case "cyclesFailed":
			failed, ok := parseUint(v.Value)
			if !ok {
				return nil
			}
			event.CyclesFailed = failed
		}
	}
	return event
}

type EventPreSign struct {
	Epoch    uint64 `json:"epoch"`
	Position uint64 `json:"position"`
}

func EncodeEventPreSign(event *EventPreSign) abci.Event {
	return abci.Event{
		Type: EventPreSignType,
		Attributes: []abci.EventAttribute{
			{Key: "epoch", Value: fmt.Sprintf("%v", event.Epoch), Index: true},
			{Key: "position", Value: fmt.Sprintf("%v", event.Position), Index: true},
		},
	}
}

func DecodeEventPreSign(originEvent abci.Event) *EventPreSign {
	event := &EventPreSign{}
	for _, v := range originEvent.Attributes {
		var ok = true
		switch v.Key {
		case "epoch":
			event.Epoch, ok = parseUint(v.Value)
		case "position":
			event.Position, ok = parseUint(v.Value)
		}
		if !ok {
			return nil
		}
	}
	return event
}

// EventAutoSign carries the auto-sign setting after the change; mode "none"
// means it was disabled.
type EventAutoSign struct {
	Position uint64 `json:"position"`
	Mode     string `json:"mode"`
	Epochs   uint32 `json:"epochs"`
}

func EncodeEventAutoSign(event *EventAutoSign) abci.Event {
	return abci.Event{
		Type: EventAutoSignType,
		Attributes: []abci.EventAttribute{
			{Key: "position", Value: fmt.Sprintf("%v", event.Position), Index: true},
			{Key: "mode", Value: event.Mode, Index: false},
			{Key: "epochs", Value: fmt.Sprintf("%v", event.Epochs), Index: false},
		},
	}
}

func DecodeEventAutoSign(originEvent abci.Event) *EventAutoSign {
	event := &EventAutoSign{}
	for _, v := range originEvent.Attributes {
		switch v.Key {
		case "position":
			position, ok := parseUint(v.Value)
			if !ok {
				return nil
			}
			event.Position = position
		case "mode":
			event.Mode = v.Value
		case "epochs":
			epochs, err := strconv.ParseUint(v.Value, 10, 32)
			if err != nil {
				return nil
			}
			event.Epochs = uint32(epochs)
		}
	}
	return event
}

type EventClaim struct {
	Owner     string   `json:"owner"`
	Amount    uint64   `json:"amount"`
	Positions []uint64 `json:"positions"`
}

func EncodeEventClaim(event *EventClaim) abci.Event {
	return abci.Event{
		Type: EventClaimType,
		Attributes: []abci.EventAttribute{
			{Key: "owner", Value: event.Owner, Index: true},
			{Key: "amount", Value: fmt.Sprintf("%v", event.Amount), Index: false},
			{Key: "positions", Value: joinUints(event.Positions), Index: false},
		},
	}
}

func DecodeEventClaim(originEvent abci.Event) *EventClaim {
	event := &EventClaim{}
	for _, v := range originEvent.Attributes {
		var ok = true
		switch v.Key {
		case "owner":
			event.Owner = v.Value
		case "amount":
			event.Amount, ok = parseUint(v.Value)
		case "positions":
			event.Positions, ok = splitUints(v.Value)
		}
		if !ok {
			return nil
		}
	}
	return event
}

type EventDeposit struct {
	Owner     string `json:"owner"`
	Amount    uint64 `json:"amount"`
	Treasury  uint64 `json:"treasury"`
	DAO       uint64 `json:"dao"`
	Liquidity uint64 `json:"liquidity"`
}

func EncodeEventDeposit(event *EventDeposit) abci.Event {
	return abci.Event{
		Type: EventDepositType,
		Attributes: []abci.EventAttribute{
			{Key: "owner", Value: event.Owner, Index: true},
			{Key: "amount", Value: fmt.Sprintf("%v", event.Amount), Index: false},
			{Key: "treasury", Value: fmt.Sprintf("%v", event.Treasury), Index: false},
			{Key: "dao", Value: fmt.Sprintf("%v", event.DAO), Index: false},
			{Key: "liquidity", Value: fmt.Sprintf("%v", event.Liquidity), Index: false},
		},
	}
}

func DecodeEventDeposit(originEvent abci.Event) *EventDeposit {
	event := &EventDeposit{}
	for _, v := range originEvent.Attributes {
		var ok = true
		switch v.Key {
		case "owner":
			event.Owner = v.Value
		case "amount":
			event.Amount, ok = parseUint(v.Value)
		case "treasury":
			event.Treasury, ok = parseUint(v.Value)
		case "dao":
			event.DAO, ok = parseUint(v.Value)
		case "liquidity":
			event.Liquidity, ok = parseUint(v.Value)
		}
		if !ok {
			return nil
		}
	}
	return event
}
