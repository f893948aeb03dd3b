package main

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"

	app_config "github.com/calehh/circle-app/config"
	"github.com/calehh/circle-app/state"
	"github.com/calehh/circle-app/types"
	cmtos "github.com/cometbft/cometbft/libs/os"
	"github.com/spf13/cobra"
)

type printInfo struct {
	Moniker    string          `json:"moniker" yaml:"moniker"`
	ChainID    string          `json:"chain_id" yaml:"chain_id"`
	NodeID     string          `json:"node_id" yaml:"node_id"`
	Owner      string          `json:"owner" yaml:"owner"`
	AppMessage json.RawMessage `json:"app_message" yaml:"app_message"`
}

func displayInfo(info printInfo) error {
	out, err := json.MarshalIndent(info, "", " ")
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(os.Stderr, "%s\n", out)

	return err
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize private validator, p2p, genesis, and application configuration files",
	Long:  `Initialize validators's and node's configuration files.`,
	Args:  cobra.NoArgs,
	RunE:  initRun,
}

func init() {
	initCmd.Flags().BoolP(FlagOverwrite, "o", false, "overwrite the genesis.json file")
	initCmd.Flags().String(FlagChainID, "", "genesis file chain-id, if left blank will be randomly created")
	initCmd.Flags().String(FlagHome, "", "home directory")
	initCmd.Flags().Uint64(FlagBalance, 0, "genesis balance credited to the validator key owner")
}

func initRun(cmd *cobra.Command, args []string) error {
	home, _ := cmd.Flags().GetString(FlagHome)
	chainID, _ := cmd.Flags().GetString(FlagChainID)
	overwrite, _ := cmd.Flags().GetBool(FlagOverwrite)
	balance, _ := cmd.Flags().GetUint64(FlagBalance)

	if chainID == "" {
		chainID = fmt.Sprintf("%s-chain-%v", types.AppName, rand.Uint64())
	}
	cfg := app_config.DefaultConfig(home)

	genFile := cfg.GenesisFile()
	if !overwrite && cmtos.FileExists(genFile) {
		return fmt.Errorf("genesis file %s already exists, use --%s to replace it", genFile, FlagOverwrite)
	}

	nodeID, pk, err := app_config.InitializeNodeValidatorFiles(cfg, nil)
	if err != nil {
		return err
	}
	owner := state.AddressOfPubKey(pk.Bytes())

	gs := state.DefaultGenesisState()
	if balance > 0 {
		gs.Accounts = append(gs.Accounts, state.GenesisAccount{Address: owner, Balance: balance})
	}
	if err = gs.Validate(); err != nil {
		return err
	}
	appState, err := json.Marshal(gs)
	if err != nil {
		return err
	}

	appGenesis := types.NewGenesisDoc(chainID, cfg.Moniker, pk, appState)
	if err = types.ExportGenesisFile(appGenesis, genFile); err != nil {
		return fmt.Errorf("failed to export genesis file: %w", err)
	}
	configDir := filepath.Join(cfg.RootDir, "config")
	app_config.WriteConfigFiles(
		filepath.Join(configDir, app_config.ConfigFileName),
		filepath.Join(configDir, app_config.AppFileName),
		cfg,
	)
	return displayInfo(printInfo{
		Moniker:    cfg.Moniker,
		ChainID:    chainID,
		NodeID:     nodeID,
		Owner:      owner.Hex(),
		AppMessage: appGenesis.AppState,
	})
}
