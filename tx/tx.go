package tx

import (
	"encoding/json"
)

// CircleTx is the signed envelope of every action. Sender is the ed25519
// public key of the signer; Sig holds exactly one signature over SigData.
type CircleTx struct {
	Version uint8        `json:"version"`
	Type    CircleTxType `json:"type"`
	Nonce   uint64       `json:"nonce"`
	Sender  []byte       `json:"sender"`
	Tx      any          `json:"tx"`
	Sig     [][]byte     `json:"sig"`
}

type JoinTx struct {
	Fee      uint64 `json:"fee"`
	Referrer string `json:"referrer,omitempty"`
}

// MemberTx addresses a member by ring position. It is the payload of
// activate, deactivate, leave, forward, preSign and disableAutoSign.
type MemberTx struct {
	Position uint64 `json:"position"`
}

type AutoSignTx struct {
	Position  uint64 `json:"position"`
	Permanent bool   `json:"permanent"`
	Epochs    uint32 `json:"epochs,omitempty"`
}

// EmptyTx carries no arguments; the signer is the only input.
type EmptyTx struct{}

type DepositTx struct {
	Amount uint64 `json:"amount"`
}

type circleTxTmpl[Tx any] struct {
	Version uint8        `json:"version"`
	Type    CircleTxType `json:"type"`
	Nonce   uint64       `json:"nonce"`
	Sender  []byte       `json:"sender"`
	Tx      Tx           `json:"tx"`
	Sig     [][]byte     `json:"sig"`
}

// SigData is the byte string covered by the signature. ext binds it to a
// chain id.
func (tx *CircleTx) SigData(ext []byte) (dat []byte, err error) {
	ntx := *tx
	ntx.Sig = [][]byte{ext}
	dat, err = json.Marshal(ntx)
	return
}

func parseCircleTxType(dat []byte) CircleTxType {
	var tx struct {
		Type CircleTxType `json:"type"`
	}
	err := json.Unmarshal(dat, &tx)
	if err != nil {
		return CircleTxTypeUnknown
	}
	return tx.Type
}

func unmarshalCircleTx[Tx any](dat []byte) (btx *CircleTx, err error) {
	var txt circleTxTmpl[Tx]
	err = json.Unmarshal(dat, &txt)
	if err != nil {
		return
	}
	if txt.Version != CircleTxVersion0 {
		err = ErrUnsupportedTxVersion
		return
	}
	btx = new(CircleTx)
	btx.Version = txt.Version
	btx.Type = txt.Type
	btx.Nonce = txt.Nonce
	btx.Sender = txt.Sender
	btx.Tx = &txt.Tx
	btx.Sig = txt.Sig
	return
}

func UnmarshalCircleTx(dat []byte) (btx *CircleTx, err error) {
	tp := parseCircleTxType(dat)
	switch tp {
	case CircleTxTypeJoin:
		return unmarshalCircleTx[JoinTx](dat)
	case CircleTxTypeActivate, CircleTxTypeDeactivate, CircleTxTypeLeave,
		CircleTxTypeForward, CircleTxTypePreSign, CircleTxTypeDisableAutoSign:
		return unmarshalCircleTx[MemberTx](dat)
	case CircleTxTypeEnableAutoSign:
		return unmarshalCircleTx[AutoSignTx](dat)
	case CircleTxTypeStartCycle, CircleTxTypeProcessNext, CircleTxTypeProcessAll,
		CircleTxTypeDeclareTimeout, CircleTxTypeClaim:
		return unmarshalCircleTx[EmptyTx](dat)
	case CircleTxTypeDeposit:
		return unmarshalCircleTx[DepositTx](dat)
	default:
		err = ErrUnsupportedTxType
	}
	return
}

func MarshalCircleTx(btx *CircleTx) (dat []byte, err error) {
	return json.Marshal(btx)
}
