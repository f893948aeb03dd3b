package app

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/calehh/circle-app/state"
	abcitypes "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/ethereum/go-ethereum/common"
)

const (
	QueryCodeOK       uint32 = 0
	QueryCodeNotFound uint32 = 1
	QueryCodeInternal uint32 = 2
	QueryCodeNoRoute  uint32 = 404
)

func (app *CircleApp) Query(ctx context.Context, req *abcitypes.RequestQuery) (res *abcitypes.ResponseQuery, err error) {
	path := req.Path
	if !strings.HasSuffix(path, "/") {
		path += "/"
	}
	q, ok := app.queriers[path]
	if !ok {
		res = &abcitypes.ResponseQuery{}
		res.Code = QueryCodeNoRoute
		return
	}
	res, err = q.Query(ctx, req)
	return
}

type Querier interface {
	Query(ctx context.Context, req *abcitypes.RequestQuery) (res *abcitypes.ResponseQuery, err error)
}

// MemberView is a member as served to clients. Banned is the ban evaluated
// at the last block time rather than the stored flag.
type MemberView struct {
	*state.Member
	Banned   bool   `json:"banned"`
	BonusPct uint64 `json:"bonusPct"`
}

func NewMemberView(m *state.Member, params *state.Params, now int64) *MemberView {
	return &MemberView{
		Member:   m,
		Banned:   m.BannedAt(now),
		BonusPct: state.BonusPercent(params, m, false),
	}
}

// viewQuerier answers from the last committed state.
type viewQuerier struct {
	db     *state.StateDB
	logger cmtlog.Logger
	fetch  func(st *state.State, data []byte) (any, error)
}

func (q *viewQuerier) Query(ctx context.Context, req *abcitypes.RequestQuery) (res *abcitypes.ResponseQuery, err error) {
	res = &abcitypes.ResponseQuery{}
	st, err := q.db.View()
	if err != nil {
		q.logger.Error("open view fail", "err", err)
		res.Code = QueryCodeInternal
		res.Log = err.Error()
		return res, nil
	}
	res.Height = int64(st.Header().Height)
	v, err := q.fetch(st, req.Data)
	if err != nil {
		res.Code = QueryCodeNotFound
		if err != state.ErrNotFound && err != state.ErrMemberNoexists {
			res.Code = QueryCodeInternal
		}
		res.Log = err.Error()
		return res, nil
	}
	res.Value, err = json.Marshal(v)
	if err != nil {
		res.Code = QueryCodeInternal
		res.Log = err.Error()
	}
	return res, nil
}

func newViewQuerier(db *state.StateDB, logger cmtlog.Logger, name string, fetch func(st *state.State, data []byte) (any, error)) *viewQuerier {
	return &viewQuerier{
		db:     db,
		logger: logger.With("querier", name),
		fetch:  fetch,
	}
}

func decodeIndex(data []byte) (idx uint64) {
	for _, v := range data {
		idx <<= 8
		idx |= uint64(v)
	}
	return
}

func NewAccountQuerier(db *state.StateDB, logger cmtlog.Logger) Querier {
	return newViewQuerier(db, logger, "accounts", func(st *state.State, data []byte) (any, error) {
		if len(data) != common.AddressLength {
			return nil, state.ErrNotFound
		}
		a, err := st.GetAccount(common.BytesToAddress(data))
		if err != nil {
			return nil, err
		}
		if a == nil {
			return nil, state.ErrNotFound
		}
		return a, nil
	})
}

// NewMemberQuerier resolves a 20 byte owner address to its live member and
// anything up to 8 bytes to a big-endian position.
func NewMemberQuerier(db *state.StateDB, logger cmtlog.Logger) Querier {
	return newViewQuerier(db, logger, "members", func(st *state.State, data []byte) (any, error) {
		var m *state.Member
		var err error
		switch {
		case len(data) == common.AddressLength:
			m, err = st.FindMember(common.BytesToAddress(data))
		case len(data) <= 8:
			m, err = st.GetMember(decodeIndex(data))
		default:
			return nil, state.ErrNotFound
		}
		if err != nil {
			return nil, err
		}
		if m == nil {
			return nil, state.ErrNotFound
		}
		params, err := st.Params()
		if err != nil {
			return nil, err
		}
		return NewMemberView(m, &params, st.Header().LastBlockTime), nil
	})
}

func NewRingQuerier(db *state.StateDB, logger cmtlog.Logger) Querier {
	return newViewQuerier(db, logger, "ring", func(st *state.State, data []byte) (any, error) {
		ring, err := st.Ring()
		if err != nil {
			return nil, err
		}
		params, err := st.Params()
		if err != nil {
			return nil, err
		}
		now := st.Header().LastBlockTime
		views := make([]*MemberView, len(ring))
		for i, m := range ring {
			views[i] = NewMemberView(m, &params, now)
		}
		return views, nil
	})
}

// CycleView adds the deadline and the block time it was evaluated at.
type CycleView struct {
	*state.Cycle
	Deadline  int64 `json:"deadline"`
	BlockTime int64 `json:"blockTime"`
	Expired   bool  `json:"expired"`
}

// NewCycleQuerier returns the latest cycle for empty data, otherwise the cycle
// of the big-endian epoch in data.
func NewCycleQuerier(db *state.StateDB, logger cmtlog.Logger) Querier {
	return newViewQuerier(db, logger, "cycle", func(st *state.State, data []byte) (any, error) {
		var c *state.Cycle
		var err error
		if len(data) == 0 {
			c, err = st.LatestCycle()
		} else if len(data) <= 8 {
			c, err = st.GetCycle(decodeIndex(data))
		} else {
			return nil, state.ErrNotFound
		}
		if err != nil {
			return nil, err
		}
		if c == nil {
			return nil, state.ErrNotFound
		}
		now := st.Header().LastBlockTime
		return &CycleView{
			Cycle:     c,
			Deadline:  state.EpochDeadline(c.EpochId),
			BlockTime: now,
			Expired:   c.Expired(now),
		}, nil
	})
}

func NewPoolQuerier(db *state.StateDB, logger cmtlog.Logger) Querier {
	return newViewQuerier(db, logger, "pool", func(st *state.State, data []byte) (any, error) {
		return st.Pool()
	})
}

func NewDistributionQuerier(db *state.StateDB, logger cmtlog.Logger) Querier {
	return newViewQuerier(db, logger, "distribution", func(st *state.State, data []byte) (any, error) {
		return st.Distribution()
	})
}

func NewParamsQuerier(db *state.StateDB, logger cmtlog.Logger) Querier {
	return newViewQuerier(db, logger, "params", func(st *state.State, data []byte) (any, error) {
		return st.Params()
	})
}
