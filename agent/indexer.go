package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/calehh/circle-app/types"
	abci "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	comethttp "github.com/cometbft/cometbft/rpc/client/http"
	coretypes "github.com/cometbft/cometbft/rpc/core/types"
	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/sqlite"
	"github.com/jonboulle/clockwork"
)

var ErrDecodeEvent = errors.New("decode event fail")

const (
	DefaultPageSize = 20
	MaxPageSize     = 500
)

type blockClient interface {
	Status(ctx context.Context) (*coretypes.ResultStatus, error)
	BlockResults(ctx context.Context, height *int64) (*coretypes.ResultBlockResults, error)
}

// ChainIndexer projects committed events into sqlite for the read API.
type ChainIndexer struct {
	logger        cmtlog.Logger
	Url           string
	Height        int64
	db            *gorm.DB
	cli           blockClient
	clock         clockwork.Clock
	interval      time.Duration
	eventHandlers map[string]eventHandler
}

func OpenIndexerDB(dbPath string) (*gorm.DB, error) {
	db, err := gorm.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&Height{}, &Member{}, &Cycle{}, &Forward{}, &Reward{}, &Claim{}, &Deposit{}).Error; err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func NewChainIndexer(logger cmtlog.Logger, dbPath string, chainUrl string, interval time.Duration) (*ChainIndexer, error) {
	logger.Info("NewChainIndexer", "dbPath", dbPath, "url", chainUrl)
	cli, err := comethttp.New(chainUrl, "/websocket")
	if err != nil {
		return nil, err
	}
	db, err := OpenIndexerDB(dbPath)
	if err != nil {
		return nil, err
	}
	c, err := newChainIndexer(logger, db, cli, clockwork.NewRealClock(), interval)
	if err != nil {
		db.Close()
		return nil, err
	}
	c.Url = chainUrl
	return c, nil
}

func newChainIndexer(logger cmtlog.Logger, db *gorm.DB, cli blockClient, clock clockwork.Clock, interval time.Duration) (*ChainIndexer, error) {
	h := Height{Id: 1}
	if err := db.First(&h).Error; err != nil && !gorm.IsRecordNotFoundError(err) {
		return nil, err
	}
	c := &ChainIndexer{
		logger:   logger.With("module", "indexer"),
		Height:   int64(h.Height + 1),
		db:       db,
		cli:      cli,
		clock:    clock,
		interval: interval,
	}
	c.eventHandlers = map[string]eventHandler{
		types.EventJoinType:          handleEventJoin,
		types.EventActivateType:      handleEventMemberStatus,
		types.EventDeactivateType:    handleEventMemberStatus,
		types.EventLeaveType:         handleEventLeave,
		types.EventBanType:           handleEventBan,
		types.EventAutoSignType:      handleEventAutoSign,
		types.EventCycleStartType:    handleEventCycleStart,
		types.EventForwardType:       handleEventForward,
		types.EventCycleCompleteType: handleEventCycleComplete,
		types.EventRewardType:        handleEventReward,
		types.EventTimeoutType:       handleEventTimeout,
		types.EventClaimType:         handleEventClaim,
		types.EventDepositType:       handleEventDeposit,
	}
	return c, nil
}

func (c *ChainIndexer) Close() error {
	return c.db.Close()
}

type eventHandler func(db *gorm.DB, event abci.Event, height int64) error

func updateMember(db *gorm.DB, position uint64, fields map[string]interface{}) error {
	return db.Model(&Member{}).Where("position = ?", position).Updates(fields).Error
}

func handleEventJoin(db *gorm.DB, event abci.Event, height int64) error {
	ev := types.DecodeEventJoin(event)
	if ev == nil {
		return ErrDecodeEvent
	}
	m := Member{
		Position:    ev.Position,
		Address:     ev.Member,
		Owner:       ev.Owner,
		Active:      true,
		PioneerRank: ev.PioneerRank,
		Referrer:    ev.Referrer,
		AutoSign:    "none",
		JoinHeight:  uint64(height),
	}
	return db.Create(&m).Error
}

func handleEventMemberStatus(db *gorm.DB, event abci.Event, height int64) error {
	ev := types.DecodeEventMemberStatus(event)
	if ev == nil {
		return ErrDecodeEvent
	}
	fields := map[string]interface{}{"active": ev.Active}
	if ev.Active {
		fields["banned"] = false
	}
	return updateMember(db, ev.Position, fields)
}

func handleEventLeave(db *gorm.DB, event abci.Event, height int64) error {
	ev := types.DecodeEventLeave(event)
	if ev == nil {
		return ErrDecodeEvent
	}
	return updateMember(db, ev.Position, map[string]interface{}{"retired": true, "active": false})
}

func handleEventBan(db *gorm.DB, event abci.Event, height int64) error {
	ev := types.DecodeEventBan(event)
	if ev == nil {
		return ErrDecodeEvent
	}
	return updateMember(db, ev.Position, map[string]interface{}{
		"banned":        true,
		"active":        false,
		"ban_until":     ev.BanUntil,
		"cycles_failed": ev.CyclesFailed,
	})
}

func handleEventAutoSign(db *gorm.DB, event abci.Event, height int64) error {
	ev := types.DecodeEventAutoSign(event)
	if ev == nil {
		return ErrDecodeEvent
	}
	mode := ev.Mode
	if ev.Epochs > 0 {
		mode = fmt.Sprintf("%s:%d", ev.Mode, ev.Epochs)
	}
	return updateMember(db, ev.Position, map[string]interface{}{"auto_sign": mode})
}

func handleEventCycleStart(db *gorm.DB, event abci.Event, height int64) error {
	ev := types.DecodeEventCycleStart(event)
	if ev == nil {
		return ErrDecodeEvent
	}
	cycle := Cycle{
		Epoch:       ev.Epoch,
		Status:      "InProgress",
		Holder:      ev.Holder,
		StartedBy:   ev.StartedBy,
		StartHeight: uint64(height),
	}
	return db.Create(&cycle).Error
}

func handleEventForward(db *gorm.DB, event abci.Event, height int64) error {
	ev := types.DecodeEventForward(event)
	if ev == nil {
		return ErrDecodeEvent
	}
	fwd := Forward{
		Epoch:     ev.Epoch,
		FromPos:   ev.From,
		ToPos:     ev.To,
		ToCenter:  ev.ToCenter,
		Delegated: ev.Delegated,
		Height:    uint64(height),
	}
	if err := db.Create(&fwd).Error; err != nil {
		return err
	}
	if err := updateMember(db, ev.From, map[string]interface{}{
		"cycles_completed": gorm.Expr("cycles_completed + ?", 1),
	}); err != nil {
		return err
	}
	fields := map[string]interface{}{"participants": gorm.Expr("participants + ?", 1)}
	if !ev.ToCenter {
		fields["holder"] = ev.To
	}
	return db.Model(&Cycle{}).Where("epoch = ?", ev.Epoch).Updates(fields).Error
}

func handleEventCycleComplete(db *gorm.DB, event abci.Event, height int64) error {
	ev := types.DecodeEventCycleComplete(event)
	if ev == nil {
		return ErrDecodeEvent
	}
	return db.Model(&Cycle{}).Where("epoch = ?", ev.Epoch).Updates(map[string]interface{}{
		"status":           "Completed",
		"participants":     uint64(len(ev.Participants)),
		"end_height":       uint64(height),
		"completed_cycles": ev.CompletedCycles,
		"distributed":      ev.Distributed,
		"burned":           ev.Burned,
		"pi_bonus":         ev.PiBonus,
	}).Error
}

func handleEventReward(db *gorm.DB, event abci.Event, height int64) error {
	ev := types.DecodeEventReward(event)
	if ev == nil {
		return ErrDecodeEvent
	}
	reward := Reward{
		Epoch:    ev.Epoch,
		Position: ev.Position,
		Owner:    ev.Owner,
		Amount:   ev.Amount,
		BonusPct: ev.BonusPct,
		Height:   uint64(height),
	}
	if err := db.Create(&reward).Error; err != nil {
		return err
	}
	return updateMember(db, ev.Position, map[string]interface{}{
		"accrued": gorm.Expr("accrued + ?", ev.Amount),
	})
}

func handleEventTimeout(db *gorm.DB, event abci.Event, height int64) error {
	ev := types.DecodeEventTimeout(event)
	if ev == nil {
		return ErrDecodeEvent
	}
	return db.Model(&Cycle{}).Where("epoch = ?", ev.Epoch).Updates(map[string]interface{}{
		"status":     "Failed",
		"end_height": uint64(height),
	}).Error
}

func handleEventClaim(db *gorm.DB, event abci.Event, height int64) error {
	ev := types.DecodeEventClaim(event)
	if ev == nil {
		return ErrDecodeEvent
	}
	positions := make([]string, len(ev.Positions))
	for i, p := range ev.Positions {
		positions[i] = fmt.Sprintf("%d", p)
	}
	claim := Claim{
		Owner:     ev.Owner,
		Amount:    ev.Amount,
		Positions: strings.Join(positions, ","),
		Height:    uint64(height),
	}
	if err := db.Create(&claim).Error; err != nil {
		return err
	}
	if len(ev.Positions) == 0 {
		return nil
	}
	return db.Model(&Member{}).Where("position IN (?)", ev.Positions).Updates(map[string]interface{}{"accrued": 0}).Error
}

func handleEventDeposit(db *gorm.DB, event abci.Event, height int64) error {
	ev := types.DecodeEventDeposit(event)
	if ev == nil {
		return ErrDecodeEvent
	}
	deposit := Deposit{
		Owner:     ev.Owner,
		Amount:    ev.Amount,
		Treasury:  ev.Treasury,
		DAO:       ev.DAO,
		Liquidity: ev.Liquidity,
		Height:    uint64(height),
	}
	return db.Create(&deposit).Error
}

// indexBlock applies the events of every successful tx of one block together
// with the height marker.
func (c *ChainIndexer) indexBlock(height int64, results []*abci.ExecTxResult) (err error) {
	tx := c.db.Begin()
	if err = tx.Error; err != nil {
		return
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()
	for _, res := range results {
		if res == nil || res.Code != 0 {
			continue
		}
		for _, event := range res.Events {
			h, ok := c.eventHandlers[event.Type]
			if !ok {
				continue
			}
			if err = h(tx, event, height); err != nil {
				return fmt.Errorf("index %s event at %d: %w", event.Type, height, err)
			}
		}
	}
	if err = tx.Save(&Height{Id: 1, Height: uint64(height)}).Error; err != nil {
		return
	}
	return tx.Commit().Error
}

// Sync indexes every block up to the latest height reported by the node.
func (c *ChainIndexer) Sync(ctx context.Context) error {
	status, err := c.cli.Status(ctx)
	if err != nil {
		return err
	}
	for c.Height <= status.SyncInfo.LatestBlockHeight {
		if err := ctx.Err(); err != nil {
			return err
		}
		height := c.Height
		res, err := c.cli.BlockResults(ctx, &height)
		if err != nil {
			return err
		}
		if err := c.indexBlock(height, res.TxsResults); err != nil {
			return err
		}
		c.Height++
	}
	return nil
}

func (c *ChainIndexer) Start(ctx context.Context) error {
	ticker := c.clock.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.Chan():
			if err := c.Sync(ctx); err != nil && ctx.Err() == nil {
				c.logger.Error("indexer sync fail", "height", c.Height, "err", err)
			}
		}
	}
}

func pageBounds(page, pageSize int) (offset, limit int) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	if page < 0 {
		page = 0
	}
	return page * pageSize, pageSize
}

func paginate(q *gorm.DB, model interface{}, out interface{}, order string, page, pageSize int) (total uint64, err error) {
	offset, limit := pageBounds(page, pageSize)
	if err = q.Model(model).Count(&total).Error; err != nil {
		return
	}
	err = q.Order(order).Offset(offset).Limit(limit).Find(out).Error
	return
}

func (c *ChainIndexer) getMembers(owner string, page, pageSize int) ([]Member, uint64, error) {
	members := make([]Member, 0)
	q := c.db
	if owner != "" {
		q = q.Where("owner = ?", owner)
	}
	total, err := paginate(q, &Member{}, &members, "position asc", page, pageSize)
	return members, total, err
}

func (c *ChainIndexer) getMember(position uint64) (*Member, error) {
	var m Member
	if err := c.db.Where("position = ?", position).First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

func (c *ChainIndexer) getCycles(page, pageSize int) ([]Cycle, uint64, error) {
	cycles := make([]Cycle, 0)
	total, err := paginate(c.db, &Cycle{}, &cycles, "epoch desc", page, pageSize)
	return cycles, total, err
}

func (c *ChainIndexer) getCycle(epoch uint64) (*Cycle, error) {
	var cycle Cycle
	if err := c.db.Where("epoch = ?", epoch).First(&cycle).Error; err != nil {
		return nil, err
	}
	return &cycle, nil
}

func (c *ChainIndexer) getForwards(epoch uint64) ([]Forward, error) {
	forwards := make([]Forward, 0)
	err := c.db.Where("epoch = ?", epoch).Order("id asc").Find(&forwards).Error
	return forwards, err
}

func (c *ChainIndexer) getRewards(owner string, page, pageSize int) ([]Reward, uint64, error) {
	rewards := make([]Reward, 0)
	q := c.db
	if owner != "" {
		q = q.Where("owner = ?", owner)
	}
	total, err := paginate(q, &Reward{}, &rewards, "id desc", page, pageSize)
	return rewards, total, err
}

func (c *ChainIndexer) getClaims(owner string, page, pageSize int) ([]Claim, uint64, error) {
	claims := make([]Claim, 0)
	q := c.db
	if owner != "" {
		q = q.Where("owner = ?", owner)
	}
	total, err := paginate(q, &Claim{}, &claims, "id desc", page, pageSize)
	return claims, total, err
}

func (c *ChainIndexer) getDeposits(owner string, page, pageSize int) ([]Deposit, uint64, error) {
	deposits := make([]Deposit, 0)
	q := c.db
	if owner != "" {
		q = q.Where("owner = ?", owner)
	}
	total, err := paginate(q, &Deposit{}, &deposits, "id desc", page, pageSize)
	return deposits, total, err
}
