package state

import (
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

type GenesisAccount struct {
	Address common.Address `json:"address"`
	Balance uint64         `json:"balance"`
}

// GenesisState is the app_state of the genesis document.
type GenesisState struct {
	Params        Params           `json:"params"`
	Accounts      []GenesisAccount `json:"accounts"`
	CenterBalance uint64           `json:"centerBalance"`
	RewardPool    uint64           `json:"rewardPool"`
}

func DefaultGenesisState() *GenesisState {
	params := DefaultParams()
	return &GenesisState{
		Params:        params,
		Accounts:      []GenesisAccount{},
		CenterBalance: params.CirculationAmount,
		RewardPool:    params.InitialRewardBase * CircleLength,
	}
}

// ParseGenesisState decodes app_state over the defaults. An empty document
// yields the defaults.
func ParseGenesisState(bz []byte) (gs *GenesisState, err error) {
	gs = DefaultGenesisState()
	if len(bz) == 0 {
		return
	}
	if err = json.Unmarshal(bz, gs); err != nil {
		return nil, fmt.Errorf("parse app_state: %w", err)
	}
	return
}

func (gs *GenesisState) Validate() error {
	if err := gs.Params.Validate(); err != nil {
		return err
	}
	seen := make(map[common.Address]bool, len(gs.Accounts))
	for _, a := range gs.Accounts {
		if a.Address == CenterAddress || a.Address == RewardVaultAddress {
			return fmt.Errorf("%w: genesis account %s is reserved", ErrParamsInvalid, a.Address.Hex())
		}
		if seen[a.Address] {
			return fmt.Errorf("%w: duplicate genesis account %s", ErrParamsInvalid, a.Address.Hex())
		}
		seen[a.Address] = true
	}
	return nil
}

// InitGenesis writes params, allocations and the funded center and vault.
func (s *State) InitGenesis(chainId string, gs *GenesisState) (err error) {
	if err = gs.Validate(); err != nil {
		return
	}
	s.SetChainId(chainId)
	if err = s.SetParams(gs.Params); err != nil {
		return
	}
	for _, a := range gs.Accounts {
		if err = s.credit(a.Address, a.Balance); err != nil {
			return
		}
	}
	if err = s.credit(CenterAddress, gs.CenterBalance); err != nil {
		return
	}
	if err = s.credit(RewardVaultAddress, gs.RewardPool); err != nil {
		return
	}
	s.putPool(&RewardPool{
		PoolBalance:           gs.RewardPool,
		InitialBase:           gs.Params.InitialRewardBase,
		RewardPerCycleBase:    gs.Params.InitialRewardBase,
		BurnPerMemberPerCycle: gs.Params.BurnPerMemberPerCycle,
	})
	s.putDistribution(&DistributionStats{})
	return
}
