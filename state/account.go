package state

import (
	"github.com/cometbft/cometbft/crypto/ed25519"
	"github.com/ethereum/go-ethereum/common"
)

type Account struct {
	Address common.Address `json:"address"`
	PubKey  ed25519.PubKey `json:"pubKey,omitempty"`
	Balance uint64         `json:"balance"`
	Nonce   uint64         `json:"nonce"`
}

func (a *Account) Clone() *Account {
	n := *a
	if a.PubKey != nil {
		n.PubKey = make(ed25519.PubKey, len(a.PubKey))
		copy(n.PubKey, a.PubKey)
	}
	return &n
}

func (a *Account) SetPubKey(pkey []byte) {
	if a.PubKey == nil {
		a.PubKey = make([]byte, len(pkey))
	}
	copy(a.PubKey, pkey)
}

func (a *Account) Verify(msg []byte, sigs [][]byte) (succ bool) {
	if len(sigs) != 1 || len(a.PubKey) != ed25519.PubKeySize {
		return false
	}
	return a.PubKey.VerifySignature(msg, sigs[0])
}

// AddressOfPubKey derives the owner address of an ed25519 public key.
func AddressOfPubKey(pkey []byte) common.Address {
	pk := ed25519.PubKey(pkey)
	return common.BytesToAddress(pk.Address())
}
