package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/isnotcursed/polymarket-casino-slot/internal/bet"
	"github.com/isnotcursed/polymarket-casino-slot/internal/middleware"
	"github.com/isnotcursed/polymarket-casino-slot/internal/repository"
)

// BetHandler 投注处理器
type BetHandler struct {
	betService *bet.Service
	betRepo    repository.BetRepository
	logger     *zap.Logger
}

// NewBetHandler 创建投注处理器
func NewBetHandler(betService *bet.Service, betRepo repository.BetRepository, logger *zap.Logger) *BetHandler {
	return &BetHandler{
		betService: betService,
		betRepo:    betRepo,
		logger:     logger,
	}
}

// History 历史投注
func (h *BetHandler) History(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	bets, err := h.betService.GetHistory(c.Request.Context(), userID, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	total, err := h.betRepo.Count(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"bets":   bets,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

// Active 持仓中的投注
func (h *BetHandler) Active(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	bets, err := h.betService.GetActive(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"bets": bets})
}

// Get 查询单笔投注
func (h *BetHandler) Get(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	betRecord, err := h.betService.GetBet(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if betRecord.UserID != userID {
		c.JSON(http.StatusNotFound, gin.H{"error": bet.ErrBetNotFound.Error()})
		return
	}

	c.JSON(http.StatusOK, betRecord)
}

// Cancel 取消投注并退还本金
func (h *BetHandler) Cancel(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	betID := c.Param("id")
	betRecord, err := h.betService.GetBet(c.Request.Context(), betID)
	if err != nil {
		respondError(c, err)
		return
	}
	if betRecord.UserID != userID {
		c.JSON(http.StatusNotFound, gin.H{"error": bet.ErrBetNotFound.Error()})
		return
	}

	cancelled, err := h.betService.CancelBet(c.Request.Context(), betID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, cancelled)
}

// WinRate 胜率统计
func (h *BetHandler) WinRate(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	winRate, err := h.betRepo.GetWinRate(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"win_rate": winRate})
}
