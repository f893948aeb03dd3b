package state

import (
	"sync"

	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/cosmos/iavl"
	dbm "github.com/cosmos/iavl/db"
	"github.com/ethereum/go-ethereum/common"
)

type StateDB struct {
	mtx sync.RWMutex

	dir    string
	logger cmtlog.Logger
	ldb    dbm.DB
	db     *iavl.MutableTree

	state *State
}

func NewStateDB(dir string, logger cmtlog.Logger) (db *StateDB, err error) {
	ldb, err := dbm.NewDB("circle", "goleveldb", dir)
	if err != nil {
		return nil, err
	}
	db, err = openStateDB(ldb, logger)
	if err != nil {
		return
	}
	db.dir = dir
	return
}

// NewMemStateDB opens a state database backed by memory only.
func NewMemStateDB(logger cmtlog.Logger) (db *StateDB, err error) {
	return openStateDB(dbm.NewMemDB(), logger)
}

func openStateDB(ldb dbm.DB, logger cmtlog.Logger) (db *StateDB, err error) {
	logger = logger.With("module", "circledb")
	tdb := iavl.NewMutableTree(ldb, 128, true, Cometbft2CosmosLogger(logger))
	version, err := tdb.Load()
	if err != nil {
		return nil, err
	}
	logger.Info("load db success", "version", version)
	st := newState(tdb, tdb, logger)
	st.dbVer = version
	err = st.load()
	if err != nil {
		logger.Error("from circledb load fail", "err", err)
		return nil, err
	}
	db = &StateDB{
		logger: logger,
		ldb:    ldb,
		db:     tdb,
		state:  st,
	}
	return
}

// Close releases the tree and then the backing database, which the tree
// leaves open.
func (db *StateDB) Close() (err error) {
	if err = db.db.Close(); err != nil {
		return
	}
	err = db.ldb.Close()
	return
}

func (db *StateDB) Header() (header *StateHeader) {
	db.mtx.RLock()
	defer db.mtx.RUnlock()
	header = db.state.Header().Clone()
	return
}

func (db *StateDB) NewState() (st *State) {
	db.mtx.RLock()
	defer db.mtx.RUnlock()
	st = db.state.nextState()
	return
}

// Update flushes st into the working tree. Callers must not hold a View
// across Update.
func (db *StateDB) Update(st *State) (hash common.Hash, err error) {
	db.mtx.Lock()
	defer db.mtx.Unlock()
	return st.Update()
}

func (db *StateDB) SetState(st *State) (hash common.Hash, err error) {
	db.mtx.Lock()
	defer db.mtx.Unlock()
	hash, err = st.save()
	if err != nil {
		return
	}
	db.state = st
	return
}

// View returns a read-only state over the last committed version.
func (db *StateDB) View() (st *State, err error) {
	db.mtx.RLock()
	defer db.mtx.RUnlock()
	var reader kvReader = emptyReader{}
	if db.state.dbVer > 0 {
		reader, err = db.db.GetImmutable(db.state.dbVer)
		if err != nil {
			return
		}
	}
	st = newState(reader, nil, db.logger)
	st.dbVer = db.state.dbVer
	st.header = db.state.header.Clone()
	return
}
