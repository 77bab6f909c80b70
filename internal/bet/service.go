package bet

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/isnotcursed/polymarket-casino-slot/internal/market"
	"github.com/isnotcursed/polymarket-casino-slot/internal/models"
	"github.com/isnotcursed/polymarket-casino-slot/internal/repository"
)

var (
	// ErrBetNotFound 投注不存在
	ErrBetNotFound = repository.ErrBetNotFound
	// ErrInsufficientBalance 余额不足
	ErrInsufficientBalance = repository.ErrInsufficientBalance
	// ErrMarketUnavailable 行情不可用
	ErrMarketUnavailable = market.ErrMarketUnavailable
	// ErrBetNotActive 投注不在持仓状态
	ErrBetNotActive = errors.New("Bet is not active")
	// ErrBetNotCancelable 当前状态不可取消
	ErrBetNotCancelable = errors.New("Cannot cancel bet in current status")
	// ErrInvalidAmount 金额非法
	ErrInvalidAmount = errors.New("无效的投注金额")
	// ErrInvalidDirection 方向非法
	ErrInvalidDirection = errors.New("无效的投注方向")
)

// PlaceRequest 下注请求
type PlaceRequest struct {
	UserID          uint
	Amount          float64
	Direction       models.BetDirection
	Mode            models.BetMode
	HoldTimeSeconds int
}

// Resolution 结算结果
type Resolution struct {
	Bet                *models.Bet `json:"bet"`
	Won                bool        `json:"won"`
	Payout             float64     `json:"payout"`
	EntryPrice         float64     `json:"entry_price"`
	ExitPrice          float64     `json:"exit_price"`
	PriceChange        float64     `json:"price_change"`
	PriceChangePercent float64     `json:"price_change_percent"`
}

// Config 投注服务配置
type Config struct {
	MinBetAmount     float64 // 最低下注金额
	MinLiveBetAmount float64 // 实盘最低下注金额（低于此值行情手续费会吞掉本金）
}

// Service 投注生命周期服务
//
// 一笔投注的状态流转：PENDING → ACTIVE → WON | LOST | CANCELLED。
// 演示模式经本地钱包扣款与返还，实盘模式资金走市场仓位本身。
type Service struct {
	mu         sync.Mutex
	config     *Config
	betRepo    repository.BetRepository
	walletRepo repository.WalletRepository
	client     market.Client
	logger     *zap.Logger
}

// NewService 创建投注服务
func NewService(
	config *Config,
	betRepo repository.BetRepository,
	walletRepo repository.WalletRepository,
	client market.Client,
	logger *zap.Logger,
) *Service {
	if config == nil {
		config = &Config{MinBetAmount: 0.01, MinLiveBetAmount: 1}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		config:     config,
		betRepo:    betRepo,
		walletRepo: walletRepo,
		client:     client,
		logger:     logger,
	}
}

// PlaceBet 下注并开仓
//
// 顺序：参数校验 → 余额校验（演示模式）→ 行情可用性 → 扣款 →
// 创建 PENDING 投注 → 开仓 → 转入 ACTIVE。开仓失败时回滚扣款。
func (s *Service) PlaceBet(ctx context.Context, req *PlaceRequest) (*models.Bet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.validateRequest(req); err != nil {
		return nil, err
	}

	if !s.client.IsAvailable(ctx) {
		return nil, ErrMarketUnavailable
	}

	if req.Mode == models.ModeDemo {
		if err := s.deductStake(ctx, req); err != nil {
			return nil, err
		}
	}

	bet := &models.Bet{
		BetID:           uuid.New().String(),
		UserID:          req.UserID,
		Amount:          req.Amount,
		Direction:       req.Direction,
		Status:          models.BetPending,
		Mode:            req.Mode,
		HoldTimeSeconds: req.HoldTimeSeconds,
		PlacedAt:        time.Now(),
	}
	if err := s.betRepo.Save(ctx, bet); err != nil {
		s.refundStake(ctx, req, bet.BetID)
		return nil, fmt.Errorf("保存投注失败: %w", err)
	}

	position, err := s.client.OpenPosition(ctx, req.Direction, req.Amount)
	if err != nil {
		bet.Status = models.BetCancelled
		if updateErr := s.betRepo.Update(ctx, bet); updateErr != nil {
			s.logger.Error("开仓失败后标记取消失败",
				zap.String("bet_id", bet.BetID), zap.Error(updateErr))
		}
		s.refundStake(ctx, req, bet.BetID)
		return nil, fmt.Errorf("开仓失败: %w", err)
	}

	bet.Status = models.BetActive
	bet.MarketID = position.MarketID
	bet.OrderID = position.OrderID
	bet.EntryPrice = position.EntryPrice
	if err := s.betRepo.Update(ctx, bet); err != nil {
		return nil, fmt.Errorf("更新投注状态失败: %w", err)
	}

	s.logger.Info("投注已开仓",
		zap.String("bet_id", bet.BetID),
		zap.Uint("user_id", bet.UserID),
		zap.Float64("amount", bet.Amount),
		zap.String("direction", string(bet.Direction)),
		zap.Float64("entry_price", bet.EntryPrice))

	return bet, nil
}

// ResolveBet 平仓并结算
//
// 仅 ACTIVE 状态可结算。赔付大于本金记为 WON，否则 LOST；
// 演示模式把赔付全额返还到钱包。
func (s *Service) ResolveBet(ctx context.Context, betID string) (*Resolution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	bet, err := s.betRepo.GetByID(ctx, betID)
	if err != nil {
		return nil, err
	}
	if bet.Status != models.BetActive {
		return nil, ErrBetNotActive
	}

	settlement, err := s.client.ClosePosition(ctx, &market.Position{
		OrderID:    bet.OrderID,
		MarketID:   bet.MarketID,
		Direction:  bet.Direction,
		Amount:     bet.Amount,
		EntryPrice: bet.EntryPrice,
	})
	if err != nil {
		return nil, fmt.Errorf("平仓失败: %w", err)
	}

	now := time.Now()
	bet.ExitPrice = settlement.ExitPrice
	bet.Payout = settlement.Payout
	bet.ResolvedAt = &now
	if settlement.Payout > bet.Amount {
		bet.Status = models.BetWon
	} else {
		bet.Status = models.BetLost
	}
	if err := s.betRepo.Update(ctx, bet); err != nil {
		return nil, fmt.Errorf("更新结算状态失败: %w", err)
	}

	if bet.Mode == models.ModeDemo && settlement.Payout > 0 {
		s.creditPayout(ctx, bet)
	}

	priceChange := bet.ExitPrice - bet.EntryPrice
	priceChangePercent := 0.0
	if bet.EntryPrice > 0 {
		priceChangePercent = priceChange / bet.EntryPrice * 100
	}

	s.logger.Info("投注已结算",
		zap.String("bet_id", bet.BetID),
		zap.String("status", string(bet.Status)),
		zap.Float64("payout", bet.Payout),
		zap.Float64("price_change", priceChange))

	return &Resolution{
		Bet:                bet,
		Won:                bet.Status == models.BetWon,
		Payout:             bet.Payout,
		EntryPrice:         bet.EntryPrice,
		ExitPrice:          bet.ExitPrice,
		PriceChange:        priceChange,
		PriceChangePercent: priceChangePercent,
	}, nil
}

// CancelBet 取消投注并退还本金
//
// 仅 PENDING 或 ACTIVE 状态可取消；ACTIVE 时先按当前价平仓，
// 但退还的是原始本金而非市价赔付。
func (s *Service) CancelBet(ctx context.Context, betID string) (*models.Bet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	bet, err := s.betRepo.GetByID(ctx, betID)
	if err != nil {
		return nil, err
	}
	if bet.Status != models.BetPending && bet.Status != models.BetActive {
		return nil, ErrBetNotCancelable
	}

	if bet.Status == models.BetActive && bet.OrderID != "" {
		if _, err := s.client.ClosePosition(ctx, &market.Position{
			OrderID:    bet.OrderID,
			MarketID:   bet.MarketID,
			Direction:  bet.Direction,
			Amount:     bet.Amount,
			EntryPrice: bet.EntryPrice,
		}); err != nil {
			s.logger.Warn("取消投注时平仓失败",
				zap.String("bet_id", bet.BetID), zap.Error(err))
		}
	}

	now := time.Now()
	bet.Status = models.BetCancelled
	bet.ResolvedAt = &now
	if err := s.betRepo.Update(ctx, bet); err != nil {
		return nil, fmt.Errorf("更新取消状态失败: %w", err)
	}

	if bet.Mode == models.ModeDemo {
		s.refundStake(ctx, &PlaceRequest{UserID: bet.UserID, Amount: bet.Amount}, bet.BetID)
	}

	s.logger.Info("投注已取消",
		zap.String("bet_id", bet.BetID),
		zap.Float64("refund", bet.Amount))

	return bet, nil
}

// GetBet 查询单笔投注
func (s *Service) GetBet(ctx context.Context, betID string) (*models.Bet, error) {
	return s.betRepo.GetByID(ctx, betID)
}

// GetHistory 查询历史投注
func (s *Service) GetHistory(ctx context.Context, userID uint, limit, offset int) ([]*models.Bet, error) {
	return s.betRepo.GetHistory(ctx, userID, limit, offset)
}

// GetActive 查询持仓中的投注
func (s *Service) GetActive(ctx context.Context, userID uint) ([]*models.Bet, error) {
	return s.betRepo.GetActive(ctx, userID)
}

// validateRequest 校验下注请求
func (s *Service) validateRequest(req *PlaceRequest) error {
	if req == nil || req.Amount <= 0 || req.Amount < s.config.MinBetAmount {
		return ErrInvalidAmount
	}
	if req.Mode == models.ModeLive && req.Amount < s.config.MinLiveBetAmount {
		return ErrInvalidAmount
	}
	if req.Direction != models.DirectionUp && req.Direction != models.DirectionDown {
		return ErrInvalidDirection
	}
	if req.Mode != models.ModeDemo && req.Mode != models.ModeLive {
		return fmt.Errorf("无效的投注模式: %s", req.Mode)
	}
	return nil
}

// deductStake 扣除本金并记账
func (s *Service) deductStake(ctx context.Context, req *PlaceRequest) error {
	before, err := s.walletRepo.GetBalance(ctx, req.UserID)
	if err != nil {
		return err
	}

	if err := s.walletRepo.Deduct(ctx, req.UserID, req.Amount); err != nil {
		return err
	}

	txn := &models.WalletTransaction{
		UserID:        req.UserID,
		OrderNo:       uuid.New().String(),
		Type:          "bet",
		Amount:        -req.Amount,
		BeforeBalance: before,
		AfterBalance:  before - req.Amount,
		RefType:       "bet",
		Description:   fmt.Sprintf("下注 $%.2f %s", req.Amount, req.Direction),
	}
	if err := s.walletRepo.CreateTransaction(ctx, txn); err != nil {
		s.logger.Error("下注流水记录失败", zap.Uint("user_id", req.UserID), zap.Error(err))
	}
	return nil
}

// creditPayout 返还赔付并记账
func (s *Service) creditPayout(ctx context.Context, bet *models.Bet) {
	before, _ := s.walletRepo.GetBalance(ctx, bet.UserID)

	if err := s.walletRepo.Add(ctx, bet.UserID, bet.Payout); err != nil {
		s.logger.Error("赔付入账失败",
			zap.String("bet_id", bet.BetID), zap.Error(err))
		return
	}

	txn := &models.WalletTransaction{
		UserID:        bet.UserID,
		OrderNo:       uuid.New().String(),
		Type:          "win",
		Amount:        bet.Payout,
		BeforeBalance: before,
		AfterBalance:  before + bet.Payout,
		RefID:         bet.BetID,
		RefType:       "bet",
		Description:   fmt.Sprintf("结算赔付 $%.2f", bet.Payout),
	}
	if err := s.walletRepo.CreateTransaction(ctx, txn); err != nil {
		s.logger.Error("赔付流水记录失败", zap.String("bet_id", bet.BetID), zap.Error(err))
	}
}

// refundStake 退还本金并记账
func (s *Service) refundStake(ctx context.Context, req *PlaceRequest, betID string) {
	if req.Mode != "" && req.Mode != models.ModeDemo {
		return
	}

	before, _ := s.walletRepo.GetBalance(ctx, req.UserID)

	if err := s.walletRepo.Add(ctx, req.UserID, req.Amount); err != nil {
		s.logger.Error("本金退还失败",
			zap.String("bet_id", betID), zap.Error(err))
		return
	}

	txn := &models.WalletTransaction{
		UserID:        req.UserID,
		OrderNo:       uuid.New().String(),
		Type:          "refund",
		Amount:        req.Amount,
		BeforeBalance: before,
		AfterBalance:  before + req.Amount,
		RefID:         betID,
		RefType:       "bet",
		Description:   fmt.Sprintf("退还本金 $%.2f", req.Amount),
	}
	if err := s.walletRepo.CreateTransaction(ctx, txn); err != nil {
		s.logger.Error("退款流水记录失败", zap.String("bet_id", betID), zap.Error(err))
	}
}
