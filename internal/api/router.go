package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/isnotcursed/polymarket-casino-slot/internal/bet"
	"github.com/isnotcursed/polymarket-casino-slot/internal/game"
	"github.com/isnotcursed/polymarket-casino-slot/internal/game/slot"
	"github.com/isnotcursed/polymarket-casino-slot/internal/market"
	"github.com/isnotcursed/polymarket-casino-slot/internal/middleware"
	"github.com/isnotcursed/polymarket-casino-slot/internal/repository"
	"github.com/isnotcursed/polymarket-casino-slot/internal/service"
)

// Deps 路由依赖
type Deps struct {
	AuthService  *service.AuthService
	BetService   *bet.Service
	GameManager  *game.Manager
	MarketClient market.Client
	Paytable     *slot.Paytable
	BetRepo      repository.BetRepository
	WalletRepo   repository.WalletRepository
	SpinRepo     repository.SpinRecordRepository
	Quotes       <-chan *market.Quote // 实盘行情推送源，可选
	Logger       *zap.Logger
}

// Router API路由器
type Router struct {
	engine *gin.Engine
	deps   *Deps
	logger *zap.Logger
}

// NewRouter 创建路由器
func NewRouter(deps *Deps) *Router {
	engine := gin.New()
	engine.Use(gin.Recovery())

	router := &Router{
		engine: engine,
		deps:   deps,
		logger: deps.Logger,
	}
	router.setupRoutes()

	return router
}

// Engine 返回底层gin引擎
func (r *Router) Engine() *gin.Engine {
	return r.engine
}

// setupRoutes 设置路由
func (r *Router) setupRoutes() {
	authHandler := NewAuthHandler(r.deps.AuthService, r.logger)
	gameHandler := NewGameHandler(r.deps.GameManager, r.deps.Paytable, r.deps.SpinRepo, r.logger)
	betHandler := NewBetHandler(r.deps.BetService, r.deps.BetRepo, r.logger)
	walletHandler := NewWalletHandler(r.deps.WalletRepo, r.logger)
	wsHandler := NewWSHandler(r.deps.GameManager, r.logger)
	authMiddleware := middleware.NewAuthMiddleware(r.deps.AuthService)

	if r.deps.Quotes != nil {
		go wsHandler.RelayQuotes(r.deps.Quotes)
	}

	r.engine.GET("/health", r.healthCheck)

	v1 := r.engine.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
		}

		authed := v1.Group("")
		authed.Use(authMiddleware.RequireAuth())
		{
			gameGroup := authed.Group("/game")
			{
				gameGroup.POST("/spin", gameHandler.Spin)
				gameGroup.POST("/cancel", gameHandler.Cancel)
				gameGroup.GET("/state", gameHandler.State)
				gameGroup.GET("/spins", gameHandler.Spins)
				gameGroup.GET("/paytable", gameHandler.Paytable)
			}

			bets := authed.Group("/bets")
			{
				bets.GET("", betHandler.History)
				bets.GET("/active", betHandler.Active)
				bets.GET("/stats/win-rate", betHandler.WinRate)
				bets.GET("/:id", betHandler.Get)
				bets.POST("/:id/cancel", betHandler.Cancel)
			}

			wallet := authed.Group("/wallet")
			{
				wallet.GET("/balance", walletHandler.Balance)
				wallet.GET("/transactions", walletHandler.Transactions)
			}

			authed.GET("/market/quote", r.marketQuote)
			authed.GET("/ws", wsHandler.Handle)
		}
	}
}

// healthCheck 健康检查
func (r *Router) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"market": r.deps.MarketClient.Name(),
		"time":   time.Now().Format(time.RFC3339),
	})
}

// marketQuote 当前市场报价
func (r *Router) marketQuote(c *gin.Context) {
	quote, err := r.deps.MarketClient.GetQuote(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": market.ErrMarketUnavailable.Error()})
		return
	}
	c.JSON(http.StatusOK, quote)
}
