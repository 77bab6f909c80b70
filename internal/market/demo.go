package market

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/isnotcursed/polymarket-casino-slot/internal/models"
)

const (
	// 价格随机游走的边界，避免触碰0或1后失去波动空间
	demoPriceFloor   = 0.02
	demoPriceCeiling = 0.98
	// 单步最大波动幅度
	demoMaxStep = 0.015
)

// DemoClient 演示模式行情客户端
//
// 用本地随机游走模拟一个二元市场：UP 代币价格在 (0.02, 0.98)
// 内漂移，DOWN 代币价格恒为其互补。不访问任何外部服务。
type DemoClient struct {
	mu       sync.Mutex
	marketID string
	upPrice  float64
	rng      *rand.Rand
	logger   *zap.Logger
}

// NewDemoClient 创建演示行情客户端
func NewDemoClient(marketID string, seed int64, logger *zap.Logger) *DemoClient {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DemoClient{
		marketID: marketID,
		upPrice:  0.5,
		rng:      rand.New(rand.NewSource(seed)),
		logger:   logger,
	}
}

// Name 客户端名称
func (c *DemoClient) Name() string {
	return "demo"
}

// IsAvailable 演示行情始终可用
func (c *DemoClient) IsAvailable(ctx context.Context) bool {
	return true
}

// GetQuote 获取当前报价并推进一步随机游走
func (c *DemoClient) GetQuote(ctx context.Context) (*Quote, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.step()

	return &Quote{
		MarketID:  c.marketID,
		UpPrice:   c.upPrice,
		DownPrice: 1 - c.upPrice,
		Timestamp: time.Now(),
	}, nil
}

// OpenPosition 按当前价格开仓
func (c *DemoClient) OpenPosition(ctx context.Context, direction models.BetDirection, amount float64) (*Position, error) {
	quote, err := c.GetQuote(ctx)
	if err != nil {
		return nil, err
	}

	position := &Position{
		OrderID:    uuid.New().String(),
		MarketID:   c.marketID,
		TokenID:    "demo-" + string(direction),
		Direction:  direction,
		Amount:     amount,
		EntryPrice: quote.PriceFor(direction),
		OpenedAt:   time.Now(),
	}

	c.logger.Debug("演示仓位已开仓",
		zap.String("order_id", position.OrderID),
		zap.String("direction", string(direction)),
		zap.Float64("entry_price", position.EntryPrice))

	return position, nil
}

// ClosePosition 按当前价格平仓
func (c *DemoClient) ClosePosition(ctx context.Context, position *Position) (*Settlement, error) {
	quote, err := c.GetQuote(ctx)
	if err != nil {
		return nil, err
	}

	exitPrice := quote.PriceFor(position.Direction)
	settlement := &Settlement{
		OrderID:   position.OrderID,
		ExitPrice: exitPrice,
		Payout:    settlePayout(position.Amount, position.EntryPrice, exitPrice),
		ClosedAt:  time.Now(),
	}

	c.logger.Debug("演示仓位已平仓",
		zap.String("order_id", position.OrderID),
		zap.Float64("exit_price", exitPrice),
		zap.Float64("payout", settlement.Payout))

	return settlement, nil
}

// step 推进一步随机游走，越界时向内反弹
func (c *DemoClient) step() {
	delta := (c.rng.Float64()*2 - 1) * demoMaxStep
	c.upPrice += delta

	if c.upPrice < demoPriceFloor {
		c.upPrice = demoPriceFloor + (demoPriceFloor - c.upPrice)
	}
	if c.upPrice > demoPriceCeiling {
		c.upPrice = demoPriceCeiling - (c.upPrice - demoPriceCeiling)
	}
	if c.upPrice < demoPriceFloor || c.upPrice > demoPriceCeiling {
		c.upPrice = 0.5
	}
}
