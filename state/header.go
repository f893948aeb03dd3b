package state

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// StateHeader is persisted under KeyState using the protobuf wire format.
//
//	1: height         varint
//	2: chain_id       bytes
//	3: member_count   varint
//	4: latest_epoch   varint
//	5: has_cycle      varint (bool)
//	6: last_time      varint (unix seconds, zigzag)
//	7: root_hash      bytes
//	8: hash           bytes
type StateHeader struct {
	Height        uint64
	ChainId       string
	MemberCount   uint64
	LatestEpoch   uint64
	HasCycle      bool
	LastBlockTime int64
	RootHash      []byte
	Hash          []byte
}

func (h *StateHeader) Clone() *StateHeader {
	n := *h
	n.RootHash = append([]byte(nil), h.RootHash...)
	n.Hash = append([]byte(nil), h.Hash...)
	return &n
}

func (h *StateHeader) GetHash() []byte {
	if h == nil {
		return nil
	}
	return h.Hash
}

func (h *StateHeader) Marshal() []byte {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.VarintType)
	b = protowire.AppendVarint(b, h.Height)
	b = protowire.AppendTag(b, 2, protowire.BytesType)
	b = protowire.AppendString(b, h.ChainId)
	b = protowire.AppendTag(b, 3, protowire.VarintType)
	b = protowire.AppendVarint(b, h.MemberCount)
	b = protowire.AppendTag(b, 4, protowire.VarintType)
	b = protowire.AppendVarint(b, h.LatestEpoch)
	b = protowire.AppendTag(b, 5, protowire.VarintType)
	b = protowire.AppendVarint(b, protowire.EncodeBool(h.HasCycle))
	b = protowire.AppendTag(b, 6, protowire.VarintType)
	b = protowire.AppendVarint(b, protowire.EncodeZigZag(h.LastBlockTime))
	if len(h.RootHash) > 0 {
		b = protowire.AppendTag(b, 7, protowire.BytesType)
		b = protowire.AppendBytes(b, h.RootHash)
	}
	if len(h.Hash) > 0 {
		b = protowire.AppendTag(b, 8, protowire.BytesType)
		b = protowire.AppendBytes(b, h.Hash)
	}
	return b
}

func (h *StateHeader) Unmarshal(b []byte) error {
	*h = StateHeader{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("state header tag: %w", protowire.ParseError(n))
		}
		b = b[n:]
		switch typ {
		case protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return fmt.Errorf("state header field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
			switch num {
			case 1:
				h.Height = v
			case 3:
				h.MemberCount = v
			case 4:
				h.LatestEpoch = v
			case 5:
				h.HasCycle = protowire.DecodeBool(v)
			case 6:
				h.LastBlockTime = protowire.DecodeZigZag(v)
			}
		case protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return fmt.Errorf("state header field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
			switch num {
			case 2:
				h.ChainId = string(v)
			case 7:
				h.RootHash = append([]byte(nil), v...)
			case 8:
				h.Hash = append([]byte(nil), v...)
			}
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return fmt.Errorf("state header field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	return nil
}
