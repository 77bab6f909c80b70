package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/isnotcursed/polymarket-casino-slot/internal/middleware"
	"github.com/isnotcursed/polymarket-casino-slot/internal/repository"
)

// WalletHandler 钱包处理器
type WalletHandler struct {
	walletRepo repository.WalletRepository
	logger     *zap.Logger
}

// NewWalletHandler 创建钱包处理器
func NewWalletHandler(walletRepo repository.WalletRepository, logger *zap.Logger) *WalletHandler {
	return &WalletHandler{
		walletRepo: walletRepo,
		logger:     logger,
	}
}

// Balance 查询余额
func (h *WalletHandler) Balance(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	wallet, err := h.walletRepo.GetByUserID(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"balance":   wallet.Balance,
		"total_bet": wallet.TotalBet,
		"total_win": wallet.TotalWin,
		"currency":  "USD",
	})
}

// Transactions 交易流水
func (h *WalletHandler) Transactions(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	pagination := repository.NewPagination(page, pageSize)
	transactions, err := h.walletRepo.GetTransactions(c.Request.Context(), userID, pagination)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"transactions": transactions,
		"page":         pagination.Page,
		"page_size":    pagination.PageSize,
	})
}
