package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/isnotcursed/polymarket-casino-slot/internal/game"
	"github.com/isnotcursed/polymarket-casino-slot/internal/game/slot"
	"github.com/isnotcursed/polymarket-casino-slot/internal/middleware"
	"github.com/isnotcursed/polymarket-casino-slot/internal/repository"
)

// GameHandler 游戏处理器
type GameHandler struct {
	manager  *game.Manager
	paytable *slot.Paytable
	spinRepo repository.SpinRecordRepository
	logger   *zap.Logger
}

// NewGameHandler 创建游戏处理器
func NewGameHandler(manager *game.Manager, paytable *slot.Paytable, spinRepo repository.SpinRecordRepository, logger *zap.Logger) *GameHandler {
	return &GameHandler{
		manager:  manager,
		paytable: paytable,
		spinRepo: spinRepo,
		logger:   logger,
	}
}

// Spin 执行一次旋转
//
// 阻塞至结果产生；进行中的实时状态走 websocket 推送。
func (h *GameHandler) Spin(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var opts game.SpinOptions
	if err := c.ShouldBindJSON(&opts); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	result, err := h.manager.Get(userID).Spin(c.Request.Context(), userID, &opts)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Cancel 请求提前结算
func (h *GameHandler) Cancel(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	effective := h.manager.Get(userID).Cancel()
	c.JSON(http.StatusOK, gin.H{"cancelled": effective})
}

// State 查询当前游戏状态
func (h *GameHandler) State(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	o := h.manager.Get(userID)
	c.JSON(http.StatusOK, gin.H{
		"state":  o.State(),
		"bet_id": o.CurrentBetID(),
	})
}

// Spins 旋转历史
func (h *GameHandler) Spins(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	pagination := repository.NewPagination(page, pageSize)

	records, err := h.spinRepo.FindByUserID(c.Request.Context(), userID, pagination)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"spins":     records,
		"page":      pagination.Page,
		"page_size": pagination.PageSize,
	})
}

// Paytable 返回赔率表
func (h *GameHandler) Paytable(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"min_cluster_size": slot.MinClusterSize,
		"max_payout_size":  slot.MaxPayoutSize,
		"entries":          h.paytable.Entries(),
	})
}
