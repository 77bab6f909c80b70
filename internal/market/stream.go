package market

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	streamReconnectBase = 2 * time.Second
	streamReconnectMax  = 30 * time.Second
	streamReadTimeout   = 60 * time.Second
)

// PriceStream 实时价格推送
//
// 订阅 Polymarket CLOB websocket 的市场频道，把价格变动转换成
// Quote 推给订阅方。连接断开后指数退避重连。
type PriceStream struct {
	wsURL    string
	marketID string
	assetIDs []string
	logger   *zap.Logger

	mu      sync.Mutex
	conn    *websocket.Conn
	quotes  chan *Quote
	cancel  context.CancelFunc
	started bool
}

// subscribeMessage 市场频道订阅请求
type subscribeMessage struct {
	Type      string   `json:"type"`
	AssetsIDs []string `json:"assets_ids"`
}

// priceChangeMessage 价格变动推送
type priceChangeMessage struct {
	EventType string `json:"event_type"`
	AssetID   string `json:"asset_id"`
	Market    string `json:"market"`
	Price     string `json:"price"`
}

// NewPriceStream 创建价格推送订阅
func NewPriceStream(wsURL, marketID string, assetIDs []string, logger *zap.Logger) *PriceStream {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PriceStream{
		wsURL:    wsURL,
		marketID: marketID,
		assetIDs: assetIDs,
		logger:   logger,
		quotes:   make(chan *Quote, 16),
	}
}

// Quotes 返回报价通道，Stop 后关闭
func (s *PriceStream) Quotes() <-chan *Quote {
	return s.quotes
}

// Start 建立连接并开始接收推送
func (s *PriceStream) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = true
	ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	go s.run(ctx)
	return nil
}

// Stop 停止接收并关闭连接
func (s *PriceStream) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
}

// run 连接循环，断线重连
func (s *PriceStream) run(ctx context.Context) {
	defer close(s.quotes)

	backoff := streamReconnectBase
	for {
		if ctx.Err() != nil {
			return
		}

		if err := s.connect(ctx); err != nil {
			s.logger.Warn("行情连接失败，等待重连",
				zap.String("url", s.wsURL),
				zap.Duration("backoff", backoff),
				zap.Error(err))

			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > streamReconnectMax {
				backoff = streamReconnectMax
			}
			continue
		}

		backoff = streamReconnectBase
		s.readLoop(ctx)
	}
}

// connect 建立websocket连接并订阅市场频道
func (s *PriceStream) connect(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, s.wsURL, nil)
	if err != nil {
		return err
	}

	sub := subscribeMessage{
		Type:      "market",
		AssetsIDs: s.assetIDs,
	}
	if err := conn.WriteJSON(sub); err != nil {
		conn.Close()
		return err
	}

	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()

	s.logger.Info("行情推送已连接",
		zap.String("url", s.wsURL),
		zap.String("market_id", s.marketID))
	return nil
}

// readLoop 读取推送直到连接断开
func (s *PriceStream) readLoop(ctx context.Context) {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return
	}
	defer conn.Close()

	for {
		if ctx.Err() != nil {
			return
		}

		conn.SetReadDeadline(time.Now().Add(streamReadTimeout))
		_, data, err := conn.ReadMessage()
		if err != nil {
			s.logger.Warn("行情推送读取失败", zap.Error(err))
			return
		}

		quote := s.parseQuote(data)
		if quote == nil {
			continue
		}

		// 订阅方消费不及时则丢弃旧报价
		select {
		case s.quotes <- quote:
		default:
			select {
			case <-s.quotes:
			default:
			}
			select {
			case s.quotes <- quote:
			default:
			}
		}
	}
}

// parseQuote 解析价格变动推送，非价格消息返回nil
func (s *PriceStream) parseQuote(data []byte) *Quote {
	var msg priceChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil
	}
	if msg.EventType != "price_change" || msg.Price == "" {
		return nil
	}

	price, err := decimal.NewFromString(msg.Price)
	if err != nil {
		return nil
	}
	up, _ := price.Float64()
	if up <= 0 || up >= 1 {
		return nil
	}

	// 推送的是首个资产(UP代币)的价格时直接使用，否则取互补
	if len(s.assetIDs) > 0 && msg.AssetID != s.assetIDs[0] {
		up = 1 - up
	}

	return &Quote{
		MarketID:  s.marketID,
		UpPrice:   up,
		DownPrice: 1 - up,
		Timestamp: time.Now(),
	}
}
