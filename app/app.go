package app

import (
	"context"
	"path/filepath"
	"sync"

	"github.com/calehh/circle-app/config"
	"github.com/calehh/circle-app/state"
	"github.com/calehh/circle-app/tx"
	"github.com/calehh/circle-app/tx/handler"
	abcitypes "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/cometbft/cometbft/store"
	"github.com/ethereum/go-ethereum/common"
)

type finalizeBlock struct {
	Height uint64
	Hash   common.Hash
}

func (b *finalizeBlock) Set(blk *abcitypes.RequestFinalizeBlock) {
	b.Height = uint64(blk.Height)
	b.Hash = common.BytesToHash(blk.Hash)
}

var _ abcitypes.Application = &CircleApp{}

type CircleApp struct {
	abcitypes.BaseApplication

	mtx    sync.Mutex
	cfg    *config.CircleAppConfig
	logger cmtlog.Logger

	db       *state.StateDB
	lastBlk  finalizeBlock
	txHdlrs  map[tx.CircleTxType]handler.TxHandler
	queriers map[string]Querier

	st *state.State
}

func NewCircleApp(cfg *config.CircleAppConfig, logger cmtlog.Logger) (app *CircleApp, err error) {
	db, err := state.NewStateDB(filepath.Join(cfg.Home, "data"), logger)
	if err != nil {
		return nil, err
	}
	return NewCircleAppWithDB(cfg, db, logger), nil
}

func NewCircleAppWithDB(cfg *config.CircleAppConfig, db *state.StateDB, logger cmtlog.Logger) (app *CircleApp) {
	logger = logger.With("module", "app")
	app = &CircleApp{
		cfg:      cfg,
		logger:   logger,
		db:       db,
		queriers: make(map[string]Querier),
	}
	app.registerTxHandler()
	app.registerQuerier()
	return
}

func (app *CircleApp) Start(bs *store.BlockStore) {
	height := app.db.Header().Height
	if height > 0 {
		blk := bs.LoadBlock(int64(height))
		if blk == nil {
			app.logger.Error("block missing from store", "height", height)
			return
		}
		app.lastBlk.Height = height
		app.lastBlk.Hash = common.BytesToHash(blk.Hash())
	}
}

func (app *CircleApp) Stop() {
	err := app.db.Close()
	if err != nil {
		app.logger.Error("close db fail", "err", err)
	}
	app.logger.Info("circle app stopped")
}

func (app *CircleApp) registerTxHandler() {
	app.txHdlrs = handler.Handlers(app.logger)
}

func (app *CircleApp) registerQuerier() {
	app.queriers["/accounts/"] = NewAccountQuerier(app.db, app.logger)
	app.queriers["/members/"] = NewMemberQuerier(app.db, app.logger)
	app.queriers["/ring/"] = NewRingQuerier(app.db, app.logger)
	app.queriers["/cycle/"] = NewCycleQuerier(app.db, app.logger)
	app.queriers["/pool/"] = NewPoolQuerier(app.db, app.logger)
	app.queriers["/distribution/"] = NewDistributionQuerier(app.db, app.logger)
	app.queriers["/params/"] = NewParamsQuerier(app.db, app.logger)
}

func (app *CircleApp) InitChain(_ context.Context, chain *abcitypes.RequestInitChain) (res *abcitypes.ResponseInitChain, err error) {
	app.mtx.Lock()
	defer app.mtx.Unlock()
	if header := app.db.Header(); header.Hash != nil {
		app.logger.Info("InitChain skipped, state already initialized", "height", header.Height)
		return &abcitypes.ResponseInitChain{AppHash: header.Hash}, nil
	}
	gs, err := state.ParseGenesisState(chain.AppStateBytes)
	if err != nil {
		app.logger.Error("InitChain parse app state fail", "err", err)
		return nil, err
	}
	st := app.db.NewState()
	if chain.Time.Unix() > 0 {
		st.SetBlockTime(chain.Time.Unix())
	}
	if err = st.InitGenesis(chain.ChainId, gs); err != nil {
		app.logger.Error("InitChain genesis fail", "err", err)
		return nil, err
	}
	if _, err = app.db.Update(st); err != nil {
		app.logger.Error("InitChain update state fail", "err", err)
		return nil, err
	}
	h, err := app.db.SetState(st)
	if err != nil {
		app.logger.Error("InitChain apply state fail", "err", err)
		return nil, err
	}
	app.logger.Info("InitChain", "chainId", chain.ChainId, "accounts", len(gs.Accounts), "hash", h.Hex())
	return &abcitypes.ResponseInitChain{
		AppHash: h.Bytes(),
	}, nil
}

func (app *CircleApp) Info(ctx context.Context, info *abcitypes.RequestInfo) (*abcitypes.ResponseInfo, error) {
	header := app.db.Header()
	return &abcitypes.ResponseInfo{
		Data:             "circle",
		LastBlockHeight:  int64(header.Height),
		LastBlockAppHash: header.Hash,
	}, nil
}
