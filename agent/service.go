package agent

import (
	"context"
	"errors"
	"net/http"
	"time"

	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/gin-gonic/gin"
	"github.com/jinzhu/gorm"
)

type Service struct {
	logger     cmtlog.Logger
	engine     *gin.Engine
	indexer    *ChainIndexer
	listenAddr string
}

func NewService(logger cmtlog.Logger, listenAddr string, indexer *ChainIndexer) *Service {
	r := gin.New()
	r.Use(gin.Recovery())
	s := &Service{
		logger:     logger.With("module", "service"),
		engine:     r,
		indexer:    indexer,
		listenAddr: listenAddr,
	}
	s.engine.POST("/getMembers", s.handleGetMembers)
	s.engine.POST("/getCycles", s.handleGetCycles)
	s.engine.POST("/getRewards", s.handleGetRewards)
	s.engine.POST("/getClaims", s.handleGetClaims)
	s.engine.POST("/getDeposits", s.handleGetDeposits)
	return s
}

func (s *Service) Handler() http.Handler {
	return s.engine
}

// Start serves until ctx is cancelled.
func (s *Service) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.listenAddr,
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http service listening", "addr", s.listenAddr)
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

type PageReq struct {
	Page     int `json:"page"`
	PageSize int `json:"pageSize"`
}

type GetMembersReq struct {
	Position *uint64 `json:"position"`
	Owner    string  `json:"owner"`
	PageReq
}

type GetMembersResponse struct {
	Members []Member `json:"members"`
	Total   uint64   `json:"total"`
}

func (s *Service) handleGetMembers(c *gin.Context) {
	var requestData GetMembersReq
	if err := c.ShouldBindJSON(&requestData); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	response := GetMembersResponse{Members: make([]Member, 0)}
	if requestData.Position != nil {
		m, err := s.indexer.getMember(*requestData.Position)
		if err != nil {
			if gorm.IsRecordNotFoundError(err) {
				c.JSON(http.StatusOK, response)
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		response.Members = append(response.Members, *m)
		response.Total = 1
		c.JSON(http.StatusOK, response)
		return
	}
	members, total, err := s.indexer.getMembers(requestData.Owner, requestData.Page, requestData.PageSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	response.Members = members
	response.Total = total
	c.JSON(http.StatusOK, response)
}

type GetCyclesReq struct {
	Epoch *uint64 `json:"epoch"`
	PageReq
}

type CycleInfo struct {
	Cycle    Cycle     `json:"cycle"`
	Forwards []Forward `json:"forwards"`
}

type GetCyclesResponse struct {
	Cycles []CycleInfo `json:"cycles"`
	Total  uint64      `json:"total"`
}

func (s *Service) handleGetCycles(c *gin.Context) {
	var requestData GetCyclesReq
	if err := c.ShouldBindJSON(&requestData); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	response := GetCyclesResponse{Cycles: make([]CycleInfo, 0)}
	if requestData.Epoch != nil {
		cycle, err := s.indexer.getCycle(*requestData.Epoch)
		if err != nil {
			if gorm.IsRecordNotFoundError(err) {
				c.JSON(http.StatusOK, response)
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		forwards, err := s.indexer.getForwards(cycle.Epoch)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		response.Cycles = append(response.Cycles, CycleInfo{Cycle: *cycle, Forwards: forwards})
		response.Total = 1
		c.JSON(http.StatusOK, response)
		return
	}
	cycles, total, err := s.indexer.getCycles(requestData.Page, requestData.PageSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	for _, cycle := range cycles {
		response.Cycles = append(response.Cycles, CycleInfo{Cycle: cycle, Forwards: make([]Forward, 0)})
	}
	response.Total = total
	c.JSON(http.StatusOK, response)
}

type OwnerPageReq struct {
	Owner string `json:"owner"`
	PageReq
}

type GetRewardsResponse struct {
	Rewards []Reward `json:"rewards"`
	Total   uint64   `json:"total"`
}

func (s *Service) handleGetRewards(c *gin.Context) {
	var requestData OwnerPageReq
	if err := c.ShouldBindJSON(&requestData); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rewards, total, err := s.indexer.getRewards(requestData.Owner, requestData.Page, requestData.PageSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, GetRewardsResponse{Rewards: rewards, Total: total})
}

type GetClaimsResponse struct {
	Claims []Claim `json:"claims"`
	Total  uint64  `json:"total"`
}

func (s *Service) handleGetClaims(c *gin.Context) {
	var requestData OwnerPageReq
	if err := c.ShouldBindJSON(&requestData); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	claims, total, err := s.indexer.getClaims(requestData.Owner, requestData.Page, requestData.PageSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, GetClaimsResponse{Claims: claims, Total: total})
}

type GetDepositsResponse struct {
	Deposits []Deposit `json:"deposits"`
	Total    uint64    `json:"total"`
}

func (s *Service) handleGetDeposits(c *gin.Context) {
	var requestData OwnerPageReq
	if err := c.ShouldBindJSON(&requestData); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	deposits, total, err := s.indexer.getDeposits(requestData.Owner, requestData.Page, requestData.PageSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, GetDepositsResponse{Deposits: deposits, Total: total})
}
