package main

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/calehh/circle-app/agent"
	"github.com/calehh/circle-app/app"
	app_config "github.com/calehh/circle-app/config"
	"github.com/calehh/circle-app/crypto"
	cmtconfig "github.com/cometbft/cometbft/config"
	cmtflags "github.com/cometbft/cometbft/libs/cli/flags"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	nm "github.com/cometbft/cometbft/node"
	"github.com/cometbft/cometbft/p2p"
	"github.com/cometbft/cometbft/privval"
	"github.com/cometbft/cometbft/proxy"
	comethttp "github.com/cometbft/cometbft/rpc/client/http"
	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var homeDir string

var clCmd = &cobra.Command{
	Use:   "circle",
	Short: "Circle runs the daily forwarding ring",
	Long: `Circle is a cometbft application that rotates a circulation amount
through a ring of members once per UTC day and pays rewards for completed cycles.`,
	Args: cobra.NoArgs,
	RunE: run,
}

func init() {
	clCmd.Flags().StringVarP(&homeDir, "homedir", "d", "", "home directory")
}

func rpcURL(listenAddr string) (string, error) {
	u, err := url.Parse(listenAddr)
	if err != nil {
		return "", err
	}
	u.Scheme = "http"
	return u.String(), nil
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := app_config.Load(homeDir)
	if err != nil {
		return err
	}

	pv := privval.LoadFilePV(
		cfg.PrivValidatorKeyFile(),
		cfg.PrivValidatorStateFile(),
	)

	nodeKey, err := p2p.LoadNodeKey(cfg.NodeKeyFile())
	if err != nil {
		return fmt.Errorf("failed to load node's key: %w", err)
	}

	logger := cmtlog.NewTMLogger(cmtlog.NewSyncWriter(os.Stdout))
	logger, err = cmtflags.ParseLogLevel(cfg.LogLevel, logger, cmtconfig.DefaultLogLevel)
	if err != nil {
		return fmt.Errorf("failed to parse log level: %w", err)
	}

	circleApp, err := app.NewCircleApp(cfg.App, logger)
	if err != nil {
		return fmt.Errorf("new app: %w", err)
	}

	node, err := nm.NewNode(
		cfg.Config,
		pv,
		nodeKey,
		proxy.NewLocalClientCreator(circleApp),
		nm.DefaultGenesisDocProviderFunc(cfg.Config),
		cmtconfig.DefaultDBProvider,
		nm.DefaultMetricsProvider(cfg.Instrumentation),
		logger,
	)
	if err != nil {
		circleApp.Stop()
		return fmt.Errorf("creating node: %w", err)
	}

	circleApp.Start(node.BlockStore())
	if err = node.Start(); err != nil {
		circleApp.Stop()
		return fmt.Errorf("start comet node: %w", err)
	}
	defer func() {
		logger.Info("shutting down")
		done := make(chan struct{})
		go func() {
			defer close(done)
			if err := node.Stop(); err != nil {
				logger.Error("stop comet node fail", "err", err)
			}
			node.Wait()
			circleApp.Stop()
		}()
		select {
		case <-time.After(10 * time.Second):
			logger.Error("shutdown timed out")
		case <-done:
		}
	}()

	rpc, err := rpcURL(cfg.RPC.ListenAddress)
	if err != nil {
		return fmt.Errorf("parse rpc listen address: %w", err)
	}

	var keeper *agent.Keeper
	if cfg.App.Keeper.Enabled {
		keeperKey, err := crypto.LoadFilePV(cfg.App.Path(cfg.App.Keeper.KeyFile))
		if err != nil {
			return fmt.Errorf("load keeper key: %w", err)
		}
		cli, err := comethttp.New(rpc, "/websocket")
		if err != nil {
			return fmt.Errorf("new keeper client: %w", err)
		}
		keeper = agent.NewKeeper(logger, cli, keeperKey, clockwork.NewRealClock(), cfg.App.Keeper.PollInterval)
	}

	indexer, err := agent.NewChainIndexer(logger, cfg.App.Path(cfg.App.IndexerDB), rpc, cfg.App.IndexerPollInterval)
	if err != nil {
		return fmt.Errorf("new chain indexer: %w", err)
	}
	defer indexer.Close()

	g, ctx := errgroup.WithContext(cmd.Context())
	g.Go(func() error { return indexer.Start(ctx) })
	if cfg.App.HTTPListen != "" {
		service := agent.NewService(logger, cfg.App.HTTPListen, indexer)
		g.Go(func() error { return service.Start(ctx) })
	}
	if keeper != nil {
		g.Go(func() error { return keeper.Start(ctx) })
	}
	return g.Wait()
}
