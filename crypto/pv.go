package crypto

import (
	"fmt"
	"os"

	"github.com/calehh/circle-app/tx"
	"github.com/cometbft/cometbft/crypto"
	cmtjson "github.com/cometbft/cometbft/libs/json"
	"github.com/cometbft/cometbft/privval"
	"github.com/ethereum/go-ethereum/common"
)

// PV signs txs with the ed25519 key of a cometbft key file.
type PV struct {
	privateKey crypto.PrivKey
	publicKey  crypto.PubKey
}

func LoadFilePV(keyFilePath string) (*PV, error) {
	keyJSONBytes, err := os.ReadFile(keyFilePath)
	if err != nil {
		return nil, err
	}
	pvKey := privval.FilePVKey{}
	err = cmtjson.Unmarshal(keyJSONBytes, &pvKey)
	if err != nil {
		return nil, fmt.Errorf("error reading PrivValidator key from %v: %w", keyFilePath, err)
	}
	return NewPV(pvKey.PrivKey), nil
}

func NewPV(priv crypto.PrivKey) *PV {
	return &PV{
		privateKey: priv,
		publicKey:  priv.PubKey(),
	}
}

func (k *PV) PublicKey() []byte {
	return k.publicKey.Bytes()
}

// Address is the owner address of the key.
func (k *PV) Address() common.Address {
	return common.BytesToAddress(k.publicKey.Address())
}

func (k *PV) Sign(data []byte) ([]byte, error) {
	return k.privateKey.Sign(data)
}

// SignTx fills the sender of btx and signs it for chainId.
func (k *PV) SignTx(btx *tx.CircleTx, chainId string) (err error) {
	btx.Sender = k.PublicKey()
	btx.Sig = nil
	dat, err := btx.SigData([]byte(chainId))
	if err != nil {
		return
	}
	sig, err := k.Sign(dat)
	if err != nil {
		return
	}
	btx.Sig = [][]byte{sig}
	return
}
