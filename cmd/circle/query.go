package main

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/calehh/circle-app/app"
	"github.com/calehh/circle-app/crypto"
	"github.com/cometbft/cometbft/rpc/client/http"
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
)

// abciQuery decodes the JSON value of path into v. found is false when the
// node answers not found.
func abciQuery(ctx context.Context, cli *http.HTTP, path string, data []byte, v any) (found bool, err error) {
	res, err := cli.ABCIQuery(ctx, path, data)
	if err != nil {
		return false, fmt.Errorf("request %s: %w", path, err)
	}
	switch res.Response.Code {
	case app.QueryCodeOK:
	case app.QueryCodeNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("query %s code %d: %s", path, res.Response.Code, res.Response.Log)
	}
	if v != nil {
		err = json.Unmarshal(res.Response.Value, v)
	}
	return err == nil, err
}

func printQuery(ctx context.Context, url, path string, data []byte) error {
	cli, err := http.New(url, "/websocket")
	if err != nil {
		return fmt.Errorf("new client: %w", err)
	}
	var v json.RawMessage
	found, err := abciQuery(ctx, cli, path, data, &v)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("not found")
	}
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func encodeIndex(idx uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], idx)
	return b[:]
}

var queryCmd = &cobra.Command{
	Use:     "query",
	Short:   "Query the committed circle state",
	Aliases: []string{"q"},
}

func init() {
	queryCmd.AddCommand(accountQueryCmd())
	queryCmd.AddCommand(memberQueryCmd())
	queryCmd.AddCommand(cycleQueryCmd())
	queryCmd.AddCommand(simpleQueryCmd("ring", "List every member in ring order", "/ring/"))
	queryCmd.AddCommand(simpleQueryCmd("pool", "Show the reward pool", "/pool/"))
	queryCmd.AddCommand(simpleQueryCmd("distribution", "Show the deposit distribution totals", "/distribution/"))
	queryCmd.AddCommand(simpleQueryCmd("params", "Show the chain parameters", "/params/"))
}

func accountQueryCmd() *cobra.Command {
	var url, address, skey string
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Show an account by address or key file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var addr common.Address
			switch {
			case address != "":
				if !common.IsHexAddress(address) {
					return fmt.Errorf("invalid address %q", address)
				}
				addr = common.HexToAddress(address)
			default:
				pv, err := crypto.LoadFilePV(skey)
				if err != nil {
					return err
				}
				addr = pv.Address()
			}
			return printQuery(cmd.Context(), url, "/accounts/", addr.Bytes())
		},
	}
	urlFlag(cmd, &url)
	keyFlag(cmd, &skey)
	cmd.Flags().StringVarP(&address, "address", "a", "", "account address")
	return cmd
}

func memberQueryCmd() *cobra.Command {
	var url, owner string
	var position uint64
	cmd := &cobra.Command{
		Use:   "member",
		Short: "Show a member by position or owner address",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if owner != "" {
				if !common.IsHexAddress(owner) {
					return fmt.Errorf("invalid owner address %q", owner)
				}
				return printQuery(cmd.Context(), url, "/members/", common.HexToAddress(owner).Bytes())
			}
			return printQuery(cmd.Context(), url, "/members/", encodeIndex(position))
		},
	}
	urlFlag(cmd, &url)
	cmd.Flags().Uint64VarP(&position, "position", "p", 0, "member position")
	cmd.Flags().StringVarP(&owner, "owner", "o", "", "owner address, resolves the live member")
	return cmd
}

func cycleQueryCmd() *cobra.Command {
	var url string
	var epoch uint64
	cmd := &cobra.Command{
		Use:   "cycle",
		Short: "Show the latest cycle or the cycle of an epoch",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var data []byte
			if cmd.Flags().Changed("epoch") {
				data = encodeIndex(epoch)
			}
			return printQuery(cmd.Context(), url, "/cycle/", data)
		},
	}
	urlFlag(cmd, &url)
	cmd.Flags().Uint64VarP(&epoch, "epoch", "e", 0, "epoch id, the UTC day number")
	return cmd
}

func simpleQueryCmd(use, short, path string) *cobra.Command {
	var url string
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return printQuery(cmd.Context(), url, path, nil)
		},
	}
	urlFlag(cmd, &url)
	return cmd
}
