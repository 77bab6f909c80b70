package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/isnotcursed/polymarket-casino-slot/internal/api"
	"github.com/isnotcursed/polymarket-casino-slot/internal/bet"
	"github.com/isnotcursed/polymarket-casino-slot/internal/config"
	"github.com/isnotcursed/polymarket-casino-slot/internal/database"
	"github.com/isnotcursed/polymarket-casino-slot/internal/game"
	"github.com/isnotcursed/polymarket-casino-slot/internal/game/slot"
	"github.com/isnotcursed/polymarket-casino-slot/internal/logger"
	"github.com/isnotcursed/polymarket-casino-slot/internal/market"
	"github.com/isnotcursed/polymarket-casino-slot/internal/repository"
	"github.com/isnotcursed/polymarket-casino-slot/internal/service"
	"github.com/isnotcursed/polymarket-casino-slot/internal/utils"
)

// 版本信息
var (
	Version   = "1.0.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// Server 服务器实例
type Server struct {
	cfg        *config.Config
	logger     *zap.Logger
	httpServer *http.Server
	stream     *market.PriceStream
	ctx        context.Context
	cancel     context.CancelFunc
}

func main() {
	var (
		configPath  = flag.String("config", "", "配置文件路径")
		showVersion = flag.Bool("version", false, "显示版本信息")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("casino-slot %s (build %s, commit %s)\n", Version, BuildTime, GitCommit)
		os.Exit(0)
	}

	if err := config.Init(*configPath); err != nil {
		fmt.Printf("加载配置失败: %v\n", err)
		os.Exit(1)
	}
	cfg := config.Get()

	if err := logger.Init(&cfg.Log); err != nil {
		fmt.Printf("初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("服务启动中",
		zap.String("version", Version),
		zap.String("market_mode", cfg.Market.Mode))

	server, err := NewServer(cfg)
	if err != nil {
		logger.Fatal("服务器初始化失败", zap.Error(err))
	}

	if err := server.Start(); err != nil {
		logger.Fatal("服务器启动失败", zap.Error(err))
	}

	server.WaitForShutdown()

	if err := server.Shutdown(); err != nil {
		logger.Error("服务器关闭失败", zap.Error(err))
		os.Exit(1)
	}

	logger.Info("服务器已安全关闭")
}

// NewServer 组装全部组件
func NewServer(cfg *config.Config) (*Server, error) {
	ctx, cancel := context.WithCancel(context.Background())

	if err := database.Init(&cfg.Database); err != nil {
		cancel()
		return nil, fmt.Errorf("初始化数据库失败: %w", err)
	}
	if cfg.Database.AutoMigrate {
		if err := database.AutoMigrate(); err != nil {
			cancel()
			return nil, fmt.Errorf("数据库迁移失败: %w", err)
		}
	}
	db := database.GetDB()

	log := logger.GetLogger()

	// 仓储层
	userRepo := repository.NewUserRepository(db)
	walletRepo := repository.NewWalletRepository(db)
	betRepo := repository.NewBetRepository(db)
	spinRepo := repository.NewSpinRecordRepository(db)

	// 行情客户端
	marketClient, stream, err := buildMarketClient(cfg, log)
	if err != nil {
		cancel()
		return nil, err
	}
	if stream != nil {
		if err := stream.Start(ctx); err != nil {
			cancel()
			return nil, fmt.Errorf("启动行情推送失败: %w", err)
		}
	}

	// 业务服务
	jwtManager := utils.NewJWTManager(cfg.JWT.Secret, cfg.JWT.Expiration)
	authService := service.NewAuthService(userRepo, walletRepo, jwtManager, cfg.Game.DemoInitialBalance, log)

	betService := bet.NewService(
		&bet.Config{
			MinBetAmount:     cfg.Game.MinBetAmount,
			MinLiveBetAmount: cfg.Game.MinLiveBetAmount,
		},
		betRepo, walletRepo, marketClient, log,
	)

	paytable := slot.DefaultPaytable()
	machine, err := slot.NewSlotMachineService(paytable, slot.NewRandomGenerator(0), log)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("初始化游戏引擎失败: %w", err)
	}

	gameManager := game.NewManager(
		&game.Config{
			SpinAnimationDelay: cfg.Game.SpinAnimationDelay,
			MinHoldSeconds:     cfg.Game.MinHoldTimeSeconds,
			MaxHoldSeconds:     cfg.Game.MaxHoldTimeSeconds,
			DefaultHoldSeconds: cfg.Game.DefaultHoldSeconds,
		},
		betService, machine, spinRepo, log,
	)

	// 路由
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	deps := &api.Deps{
		AuthService:  authService,
		BetService:   betService,
		GameManager:  gameManager,
		MarketClient: marketClient,
		Paytable:     paytable,
		BetRepo:      betRepo,
		WalletRepo:   walletRepo,
		SpinRepo:     spinRepo,
		Logger:       log,
	}
	if stream != nil {
		deps.Quotes = stream.Quotes()
	}
	router := api.NewRouter(deps)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return &Server{
		cfg:        cfg,
		logger:     log,
		httpServer: httpServer,
		stream:     stream,
		ctx:        ctx,
		cancel:     cancel,
	}, nil
}

// buildMarketClient 按配置模式构造行情客户端
func buildMarketClient(cfg *config.Config, log *zap.Logger) (market.Client, *market.PriceStream, error) {
	switch cfg.Market.Mode {
	case "live":
		client, err := market.NewPolymarketClient(&market.PolymarketConfig{
			BaseURL:     cfg.Market.CLOBBaseURL,
			MarketID:    cfg.Market.MarketID,
			UpTokenID:   cfg.Market.UpTokenID,
			DownTokenID: cfg.Market.DownTokenID,
		}, log)
		if err != nil {
			return nil, nil, fmt.Errorf("初始化实盘行情失败: %w", err)
		}

		var stream *market.PriceStream
		if cfg.Market.WSURL != "" {
			stream = market.NewPriceStream(
				cfg.Market.WSURL,
				cfg.Market.MarketID,
				[]string{cfg.Market.UpTokenID, cfg.Market.DownTokenID},
				log,
			)
		}
		return client, stream, nil

	case "demo", "":
		return market.NewDemoClient(cfg.Market.MarketID, 0, log), nil, nil

	default:
		return nil, nil, fmt.Errorf("未知的行情模式: %s", cfg.Market.Mode)
	}
}

// Start 启动HTTP服务
func (s *Server) Start() error {
	go func() {
		s.logger.Info("HTTP服务监听中", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Fatal("HTTP服务异常退出", zap.Error(err))
		}
	}()

	// 配置热更新只影响日志级别等运行期参数
	config.Watch(func(newCfg *config.Config) {
		s.logger.Info("配置已热更新")
	})

	return nil
}

// WaitForShutdown 阻塞等待退出信号
func (s *Server) WaitForShutdown() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	s.logger.Info("收到退出信号", zap.String("signal", sig.String()))
}

// Shutdown 优雅关闭
func (s *Server) Shutdown() error {
	s.cancel()

	if s.stream != nil {
		s.stream.Stop()
	}

	timeout := s.cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return err
	}

	return database.Close()
}
