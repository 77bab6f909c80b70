package market

import (
	"context"
	"errors"
	"time"

	"github.com/isnotcursed/polymarket-casino-slot/internal/models"
)

// ErrMarketUnavailable 行情不可用
var ErrMarketUnavailable = errors.New("Market is not available")

// Quote 市场报价快照
//
// 二元市场的两个方向代币价格互补：UpPrice + DownPrice = 1。
type Quote struct {
	MarketID  string    `json:"market_id"`
	UpPrice   float64   `json:"up_price"`
	DownPrice float64   `json:"down_price"`
	Timestamp time.Time `json:"timestamp"`
}

// PriceFor 返回指定方向的代币价格
func (q *Quote) PriceFor(direction models.BetDirection) float64 {
	if direction == models.DirectionDown {
		return q.DownPrice
	}
	return q.UpPrice
}

// Position 已开仓位
type Position struct {
	OrderID    string              `json:"order_id"`
	MarketID   string              `json:"market_id"`
	TokenID    string              `json:"token_id"`
	Direction  models.BetDirection `json:"direction"`
	Amount     float64             `json:"amount"`
	EntryPrice float64             `json:"entry_price"`
	OpenedAt   time.Time           `json:"opened_at"`
}

// Settlement 平仓结算
type Settlement struct {
	OrderID   string    `json:"order_id"`
	ExitPrice float64   `json:"exit_price"`
	Payout    float64   `json:"payout"`
	ClosedAt  time.Time `json:"closed_at"`
}

// Client 行情与仓位客户端
//
// demo 模式由本地随机游走实现，live 模式对接 Polymarket CLOB。
type Client interface {
	// Name 客户端名称
	Name() string
	// IsAvailable 行情是否可用
	IsAvailable(ctx context.Context) bool
	// GetQuote 获取当前报价
	GetQuote(ctx context.Context) (*Quote, error)
	// OpenPosition 按当前价格开仓
	OpenPosition(ctx context.Context, direction models.BetDirection, amount float64) (*Position, error)
	// ClosePosition 按当前价格平仓并结算
	ClosePosition(ctx context.Context, position *Position) (*Settlement, error)
}

// settlePayout 按代币价格变化折算赔付
//
// 开仓金额买入 amount/entry 份代币，平仓按 exit 价卖出。
func settlePayout(amount, entryPrice, exitPrice float64) float64 {
	if entryPrice <= 0 {
		return 0
	}
	return amount * exitPrice / entryPrice
}
