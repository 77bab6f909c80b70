package market

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/isnotcursed/polymarket-casino-slot/internal/logger"
	"github.com/isnotcursed/polymarket-casino-slot/internal/models"
)

const (
	defaultRequestTimeout = 10 * time.Second
	marketInfoTTL         = time.Minute
)

// PolymarketConfig 实盘客户端配置
type PolymarketConfig struct {
	BaseURL     string // CLOB REST 接口地址
	MarketID    string // condition id
	UpTokenID   string // UP 方向的 outcome token
	DownTokenID string // DOWN 方向的 outcome token
}

// PolymarketClient 实盘行情客户端
//
// 对接 Polymarket CLOB 的公开行情接口。仓位为价格跟踪仓：
// 开仓记录中间价，平仓按最新中间价折算赔付，不提交真实订单。
type PolymarketClient struct {
	config     *PolymarketConfig
	httpClient *http.Client
	logger     *zap.Logger

	infoMu      sync.Mutex
	infoOpen    bool
	infoFetched time.Time
}

// midpointResponse CLOB /midpoint 接口响应
type midpointResponse struct {
	Mid string `json:"mid"`
}

// marketInfoResponse CLOB /markets/{condition_id} 接口响应
type marketInfoResponse struct {
	EndDateISO string `json:"end_date_iso"`
	Closed     bool   `json:"closed"`
	Active     bool   `json:"active"`
}

// NewPolymarketClient 创建实盘行情客户端
func NewPolymarketClient(config *PolymarketConfig, log *zap.Logger) (*PolymarketClient, error) {
	if config == nil || config.BaseURL == "" {
		return nil, fmt.Errorf("polymarket 配置缺失")
	}
	if config.UpTokenID == "" || config.DownTokenID == "" {
		return nil, fmt.Errorf("polymarket 代币ID缺失")
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &PolymarketClient{
		config: config,
		httpClient: &http.Client{
			Timeout: defaultRequestTimeout,
		},
		logger: log,
	}, nil
}

// Name 客户端名称
func (c *PolymarketClient) Name() string {
	return "polymarket"
}

// IsAvailable 探测市场是否仍在交易中且价格有效
//
// 先检查市场未关闭且截止时间未过，再探测中间价可达。
func (c *PolymarketClient) IsAvailable(ctx context.Context) bool {
	if !c.marketOpen(ctx) {
		return false
	}

	quote, err := c.GetQuote(ctx)
	if err != nil {
		return false
	}
	return quote.UpPrice > 0 && quote.UpPrice < 1
}

// marketOpen 查询市场元信息，判断是否已关闭或已到期
//
// 结果短暂缓存，避免每次下注都查一遍元信息。查询失败时不做
// 判定，交给后续的报价探测决定可用性。
func (c *PolymarketClient) marketOpen(ctx context.Context) bool {
	if c.config.MarketID == "" {
		return true
	}

	c.infoMu.Lock()
	defer c.infoMu.Unlock()

	if time.Since(c.infoFetched) < marketInfoTTL {
		return c.infoOpen
	}

	info, err := c.fetchMarketInfo(ctx)
	if err != nil {
		c.logger.Warn("查询市场元信息失败", zap.Error(err))
		return true
	}

	open := !info.Closed
	if open && info.EndDateISO != "" {
		endDate, err := time.Parse(time.RFC3339, info.EndDateISO)
		if err == nil && !time.Now().Before(endDate) {
			open = false
		}
	}

	c.infoOpen = open
	c.infoFetched = time.Now()
	return open
}

// GetQuote 获取当前报价
func (c *PolymarketClient) GetQuote(ctx context.Context) (*Quote, error) {
	start := time.Now()
	upPrice, err := c.fetchMidpoint(ctx, c.config.UpTokenID)
	logger.LogMarketCall("midpoint", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMarketUnavailable, err)
	}

	up, _ := upPrice.Float64()
	return &Quote{
		MarketID:  c.config.MarketID,
		UpPrice:   up,
		DownPrice: 1 - up,
		Timestamp: time.Now(),
	}, nil
}

// OpenPosition 按当前中间价开仓
func (c *PolymarketClient) OpenPosition(ctx context.Context, direction models.BetDirection, amount float64) (*Position, error) {
	quote, err := c.GetQuote(ctx)
	if err != nil {
		return nil, err
	}

	tokenID := c.config.UpTokenID
	if direction == models.DirectionDown {
		tokenID = c.config.DownTokenID
	}

	position := &Position{
		OrderID:    uuid.New().String(),
		MarketID:   c.config.MarketID,
		TokenID:    tokenID,
		Direction:  direction,
		Amount:     amount,
		EntryPrice: quote.PriceFor(direction),
		OpenedAt:   time.Now(),
	}

	c.logger.Info("实盘仓位已开仓",
		zap.String("order_id", position.OrderID),
		zap.String("market_id", position.MarketID),
		zap.String("direction", string(direction)),
		zap.Float64("amount", amount),
		zap.Float64("entry_price", position.EntryPrice))

	return position, nil
}

// ClosePosition 按当前中间价平仓
func (c *PolymarketClient) ClosePosition(ctx context.Context, position *Position) (*Settlement, error) {
	quote, err := c.GetQuote(ctx)
	if err != nil {
		return nil, err
	}

	exitPrice := quote.PriceFor(position.Direction)

	// 赔付用 decimal 计算后回到 float64，避免份额折算的累计误差
	amount := decimal.NewFromFloat(position.Amount)
	entry := decimal.NewFromFloat(position.EntryPrice)
	exit := decimal.NewFromFloat(exitPrice)

	payout := 0.0
	if entry.IsPositive() {
		payout, _ = amount.Mul(exit).Div(entry).Round(6).Float64()
	}

	settlement := &Settlement{
		OrderID:   position.OrderID,
		ExitPrice: exitPrice,
		Payout:    payout,
		ClosedAt:  time.Now(),
	}

	c.logger.Info("实盘仓位已平仓",
		zap.String("order_id", position.OrderID),
		zap.Float64("entry_price", position.EntryPrice),
		zap.Float64("exit_price", exitPrice),
		zap.Float64("payout", payout))

	return settlement, nil
}

// fetchMarketInfo 调用 CLOB /markets/{condition_id} 接口
func (c *PolymarketClient) fetchMarketInfo(ctx context.Context) (*marketInfoResponse, error) {
	endpoint := fmt.Sprintf("%s/markets/%s", c.config.BaseURL, url.PathEscape(c.config.MarketID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("市场元信息接口状态码异常: %d", resp.StatusCode)
	}

	var body marketInfoResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}
	return &body, nil
}

// fetchMidpoint 调用 CLOB /midpoint 接口
func (c *PolymarketClient) fetchMidpoint(ctx context.Context, tokenID string) (decimal.Decimal, error) {
	endpoint := fmt.Sprintf("%s/midpoint?token_id=%s", c.config.BaseURL, url.QueryEscape(tokenID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return decimal.Zero, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return decimal.Zero, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("行情接口状态码异常: %d", resp.StatusCode)
	}

	var body midpointResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return decimal.Zero, err
	}

	price, err := decimal.NewFromString(body.Mid)
	if err != nil {
		return decimal.Zero, fmt.Errorf("无法解析价格 %q: %w", body.Mid, err)
	}
	if price.LessThanOrEqual(decimal.Zero) || price.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return decimal.Zero, fmt.Errorf("价格越界: %s", price)
	}

	return price, nil
}
