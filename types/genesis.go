package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/cometbft/cometbft/crypto"
	cmtjson "github.com/cometbft/cometbft/libs/json"
	cmttypes "github.com/cometbft/cometbft/types"
)

const AppName = "circle"

// DefaultPower is the voting power given to validators created by init.
const DefaultPower = 1000

var ErrInvalidGenesis = errors.New("invalid genesis doc")

type GenesisValidator struct {
	Address crypto.Address `json:"address"`
	PubKey  crypto.PubKey  `json:"pub_key"`
	Power   int64          `json:"power"`
	Name    string         `json:"name"`
}

// GenesisDoc is the cometbft genesis file of a circle chain. AppState holds
// the encoded circle genesis state.
type GenesisDoc struct {
	GenesisTime     time.Time                 `json:"genesis_time"`
	ChainID         string                    `json:"chain_id"`
	InitialHeight   int64                     `json:"initial_height"`
	ConsensusParams *cmttypes.ConsensusParams `json:"consensus_params,omitempty"`
	Validators      []GenesisValidator        `json:"validators"`
	AppHash         []byte                    `json:"app_hash"`
	AppState        json.RawMessage           `json:"app_state"`
}

// NewGenesisDoc builds a single validator genesis starting now.
func NewGenesisDoc(chainID, moniker string, pk crypto.PubKey, appState json.RawMessage) *GenesisDoc {
	return &GenesisDoc{
		GenesisTime:     time.Now().Round(0).UTC(),
		ChainID:         chainID,
		InitialHeight:   1,
		ConsensusParams: cmttypes.DefaultConsensusParams(),
		Validators: []GenesisValidator{
			{Address: pk.Address(), PubKey: pk, Power: DefaultPower, Name: moniker},
		},
		AppState: appState,
	}
}

func (gd *GenesisDoc) SaveAs(file string) error {
	genDocBytes, err := cmtjson.MarshalIndent(gd, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(file, genDocBytes, 0o600)
}

func (gd *GenesisDoc) ValidateAndComplete() error {
	if gd.ChainID == "" {
		return fmt.Errorf("%w: empty chain_id", ErrInvalidGenesis)
	}
	if len(gd.ChainID) > cmttypes.MaxChainIDLen {
		return fmt.Errorf("%w: chain_id longer than %d", ErrInvalidGenesis, cmttypes.MaxChainIDLen)
	}
	if gd.InitialHeight < 0 {
		return fmt.Errorf("%w: negative initial_height %d", ErrInvalidGenesis, gd.InitialHeight)
	}
	if gd.InitialHeight == 0 {
		gd.InitialHeight = 1
	}
	if len(gd.Validators) == 0 {
		return fmt.Errorf("%w: no validators", ErrInvalidGenesis)
	}
	for i, v := range gd.Validators {
		if v.Power <= 0 {
			return fmt.Errorf("%w: validator %d has power %d", ErrInvalidGenesis, i, v.Power)
		}
	}
	if len(gd.AppState) > 0 && !json.Valid(gd.AppState) {
		return fmt.Errorf("%w: app_state is not json", ErrInvalidGenesis)
	}
	if gd.GenesisTime.IsZero() {
		gd.GenesisTime = time.Now().Round(0).UTC()
	}
	return nil
}

func ExportGenesisFile(genesis *GenesisDoc, genFile string) error {
	if err := genesis.ValidateAndComplete(); err != nil {
		return err
	}
	return genesis.SaveAs(genFile)
}
