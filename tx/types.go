package tx

import (
	"errors"
)

type CircleTxType uint8

const (
	CircleTxTypeUnknown         CircleTxType = 0
	CircleTxTypeJoin            CircleTxType = 1
	CircleTxTypeActivate        CircleTxType = 2
	CircleTxTypeDeactivate      CircleTxType = 3
	CircleTxTypeLeave           CircleTxType = 4
	CircleTxTypeStartCycle      CircleTxType = 5
	CircleTxTypeForward         CircleTxType = 6
	CircleTxTypePreSign         CircleTxType = 7
	CircleTxTypeEnableAutoSign  CircleTxType = 8
	CircleTxTypeDisableAutoSign CircleTxType = 9
	CircleTxTypeProcessNext     CircleTxType = 10
	CircleTxTypeProcessAll      CircleTxType = 11
	CircleTxTypeDeclareTimeout  CircleTxType = 12
	CircleTxTypeClaim           CircleTxType = 13
	CircleTxTypeDeposit         CircleTxType = 14
)

var txTypeNames = map[CircleTxType]string{
	CircleTxTypeJoin:            "join",
	CircleTxTypeActivate:        "activate",
	CircleTxTypeDeactivate:      "deactivate",
	CircleTxTypeLeave:           "leave",
	CircleTxTypeStartCycle:      "startCycle",
	CircleTxTypeForward:         "forward",
	CircleTxTypePreSign:         "preSign",
	CircleTxTypeEnableAutoSign:  "enableAutoSign",
	CircleTxTypeDisableAutoSign: "disableAutoSign",
	CircleTxTypeProcessNext:     "processNext",
	CircleTxTypeProcessAll:      "processAll",
	CircleTxTypeDeclareTimeout:  "declareTimeout",
	CircleTxTypeClaim:           "claim",
	CircleTxTypeDeposit:         "deposit",
}

func (t CircleTxType) String() string {
	if name, ok := txTypeNames[t]; ok {
		return name
	}
	return "unknown"
}

const (
	CircleTxVersion0 uint8 = 0
)

var (
	ErrInvalidTx         = errors.New("invalid tx")
	ErrUnsupportedTxType = errors.New("unsupported tx type")
	ErrUnmatchedTxType   = errors.New("unmatched tx type")

	ErrUnsupportedTxVersion = errors.New("unsupported tx version")
)
