package main

import (
	"github.com/calehh/circle-app/config"
	"github.com/spf13/cobra"
)

const (
	FlagHome      = "home"
	FlagChainID   = "chain-id"
	FlagOverwrite = "overwrite"
	FlagBalance   = "balance"
)

const DefaultKeyPath = "./config/priv_validator_key.json"

func urlFlag(cmd *cobra.Command, url *string) {
	cmd.Flags().StringVarP(url, "url", "u", config.DefaultRPCURL, "circle node rpc url")
}

func keyFlag(cmd *cobra.Command, path *string) {
	cmd.Flags().StringVarP(path, "skeyPath", "s", DefaultKeyPath, "private key path")
}
