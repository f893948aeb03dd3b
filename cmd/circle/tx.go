package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/calehh/circle-app/crypto"
	"github.com/calehh/circle-app/state"
	"github.com/calehh/circle-app/tx"
	"github.com/cometbft/cometbft/rpc/client/http"
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
)

type txArguments struct {
	Url    string
	Skey   string
	Nonce  uint64
	NoSend bool
}

func txFlags(cmd *cobra.Command, args *txArguments) {
	urlFlag(cmd, &args.Url)
	keyFlag(cmd, &args.Skey)
	cmd.Flags().Uint64VarP(&args.Nonce, "nonce", "n", 0, "account nonce, queried from the node when 0")
	cmd.Flags().BoolVarP(&args.NoSend, "nosend", "", false, "print the signed transaction instead of sending it")
}

var txCmd = &cobra.Command{
	Use:   "tx",
	Short: "Sign and broadcast circle transactions",
}

func init() {
	txCmd.AddCommand(joinCmd())
	txCmd.AddCommand(memberTxCmd("activate", "Mark a member active", tx.CircleTxTypeActivate))
	txCmd.AddCommand(memberTxCmd("deactivate", "Mark a member inactive", tx.CircleTxTypeDeactivate))
	txCmd.AddCommand(memberTxCmd("leave", "Retire a member permanently", tx.CircleTxTypeLeave))
	txCmd.AddCommand(memberTxCmd("forward", "Forward the circulation amount as the holder", tx.CircleTxTypeForward))
	txCmd.AddCommand(memberTxCmd("presign", "Pre-sign the current cycle", tx.CircleTxTypePreSign))
	txCmd.AddCommand(autoSignCmd())
	txCmd.AddCommand(memberTxCmd("disable-autosign", "Disable auto-sign of a member", tx.CircleTxTypeDisableAutoSign))
	txCmd.AddCommand(emptyTxCmd("start-cycle", "Start the cycle of the current day", tx.CircleTxTypeStartCycle))
	txCmd.AddCommand(emptyTxCmd("process-next", "Forward once on behalf of a committed holder", tx.CircleTxTypeProcessNext))
	txCmd.AddCommand(emptyTxCmd("process-all", "Forward while the holder is committed", tx.CircleTxTypeProcessAll))
	txCmd.AddCommand(emptyTxCmd("timeout", "Declare the expired cycle failed", tx.CircleTxTypeDeclareTimeout))
	txCmd.AddCommand(emptyTxCmd("claim", "Claim accrued rewards of all owned members", tx.CircleTxTypeClaim))
	txCmd.AddCommand(depositCmd())
}

func sendTx(ctx context.Context, args *txArguments, typ tx.CircleTxType, payload any) error {
	cli, err := http.New(args.Url, "/websocket")
	if err != nil {
		return fmt.Errorf("new client: %w", err)
	}
	gres, err := cli.Genesis(ctx)
	if err != nil {
		return fmt.Errorf("get chain genesis: %w", err)
	}
	chainId := gres.Genesis.ChainID
	pv, err := crypto.LoadFilePV(args.Skey)
	if err != nil {
		return err
	}
	nonce := args.Nonce
	if nonce == 0 {
		var act state.Account
		found, err := abciQuery(ctx, cli, "/accounts/", pv.Address().Bytes(), &act)
		if err != nil {
			return err
		}
		if found {
			nonce = act.Nonce
		}
	}
	btx := &tx.CircleTx{
		Version: tx.CircleTxVersion0,
		Type:    typ,
		Nonce:   nonce,
		Tx:      payload,
	}
	if err = pv.SignTx(btx, chainId); err != nil {
		return fmt.Errorf("sign tx: %w", err)
	}
	dat, err := tx.MarshalCircleTx(btx)
	if err != nil {
		return err
	}
	if args.NoSend {
		fmt.Println(string(dat))
		return nil
	}
	res, err := cli.BroadcastTxSync(ctx, dat)
	if err != nil {
		return fmt.Errorf("broadcast tx: %w", err)
	}
	out, _ := json.Marshal(res)
	fmt.Println(string(out))
	if res.Code != 0 {
		return fmt.Errorf("%s rejected with code %d: %s", typ, res.Code, res.Log)
	}
	return nil
}

func joinCmd() *cobra.Command {
	args := &txArguments{}
	var fee uint64
	var referrer string
	cmd := &cobra.Command{
		Use:   "join",
		Short: "Join the ring by paying the entry fee",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if referrer != "" && !common.IsHexAddress(referrer) {
				return fmt.Errorf("invalid referrer address %q", referrer)
			}
			return sendTx(cmd.Context(), args, tx.CircleTxTypeJoin, &tx.JoinTx{Fee: fee, Referrer: referrer})
		},
	}
	txFlags(cmd, args)
	cmd.Flags().Uint64VarP(&fee, "fee", "f", state.DefaultParams().EntryFee, "entry fee paid")
	cmd.Flags().StringVarP(&referrer, "referrer", "r", "", "owner address of the referrer")
	return cmd
}

func memberTxCmd(use, short string, typ tx.CircleTxType) *cobra.Command {
	args := &txArguments{}
	var position uint64
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return sendTx(cmd.Context(), args, typ, &tx.MemberTx{Position: position})
		},
	}
	txFlags(cmd, args)
	cmd.Flags().Uint64VarP(&position, "position", "p", 0, "member position")
	return cmd
}

func autoSignCmd() *cobra.Command {
	args := &txArguments{}
	var position uint64
	var permanent bool
	var epochs uint32
	cmd := &cobra.Command{
		Use:   "autosign",
		Short: "Enable auto-sign of a member",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			payload := &tx.AutoSignTx{Position: position, Permanent: permanent, Epochs: epochs}
			return sendTx(cmd.Context(), args, tx.CircleTxTypeEnableAutoSign, payload)
		},
	}
	txFlags(cmd, args)
	cmd.Flags().Uint64VarP(&position, "position", "p", 0, "member position")
	cmd.Flags().BoolVar(&permanent, "permanent", false, "auto-sign every epoch until disabled")
	cmd.Flags().Uint32Var(&epochs, "epochs", 0, "number of epochs to auto-sign")
	return cmd
}

func emptyTxCmd(use, short string, typ tx.CircleTxType) *cobra.Command {
	args := &txArguments{}
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return sendTx(cmd.Context(), args, typ, &tx.EmptyTx{})
		},
	}
	txFlags(cmd, args)
	return cmd
}

func depositCmd() *cobra.Command {
	args := &txArguments{}
	var amount uint64
	cmd := &cobra.Command{
		Use:   "deposit",
		Short: "Deposit into the treasury, dao and liquidity split",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return sendTx(cmd.Context(), args, tx.CircleTxTypeDeposit, &tx.DepositTx{Amount: amount})
		},
	}
	txFlags(cmd, args)
	cmd.Flags().Uint64VarP(&amount, "amount", "a", 0, "deposit amount")
	return cmd
}
