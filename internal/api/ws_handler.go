package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/isnotcursed/polymarket-casino-slot/internal/game"
	"github.com/isnotcursed/polymarket-casino-slot/internal/market"
	"github.com/isnotcursed/polymarket-casino-slot/internal/middleware"
)

const wsWriteTimeout = 10 * time.Second

// quoteFrame 行情推送帧
type quoteFrame struct {
	Type  string        `json:"type"`
	Quote *market.Quote `json:"quote"`
}

// wsClient 单个websocket连接
type wsClient struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

// send 带写锁与超时的消息发送
func (c *wsClient) send(v interface{}) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return c.conn.WriteJSON(v)
}

// WSHandler 游戏状态推送处理器
//
// 每个用户可以开多个连接（多标签页），该用户编排器的每次状态
// 变更会推送到其全部连接。
type WSHandler struct {
	upgrader websocket.Upgrader
	manager  *game.Manager
	logger   *zap.Logger

	mu         sync.Mutex
	clients    map[uint]map[*wsClient]struct{}
	registered map[*game.Orchestrator]bool
}

// NewWSHandler 创建状态推送处理器
func NewWSHandler(manager *game.Manager, logger *zap.Logger) *WSHandler {
	return &WSHandler{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		manager:    manager,
		logger:     logger,
		clients:    make(map[uint]map[*wsClient]struct{}),
		registered: make(map[*game.Orchestrator]bool),
	}
}

// Handle 升级连接并订阅状态推送
func (h *WSHandler) Handle(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket升级失败", zap.Error(err))
		return
	}

	client := &wsClient{conn: conn}
	h.addClient(userID, client)

	o := h.manager.Get(userID)

	// 连接建立先推一帧当前状态
	client.send(game.StateChange{
		State: o.State(),
		BetID: o.CurrentBetID(),
	})

	h.readLoop(userID, client)
}

// addClient 登记连接并确保该用户当前编排器的推送订阅已建立
//
// 订阅按编排器实例登记：Manager.Remove 后重建的编排器是新实例，
// 首个连接会重新挂上回调。
func (h *WSHandler) addClient(userID uint, client *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[userID] == nil {
		h.clients[userID] = make(map[*wsClient]struct{})
	}
	h.clients[userID][client] = struct{}{}

	o := h.manager.Get(userID)
	if !h.registered[o] {
		h.registered[o] = true
		o.OnStateChange(func(change game.StateChange) {
			h.broadcast(userID, change)
		})
	}
}

// removeClient 注销连接
func (h *WSHandler) removeClient(userID uint, client *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if conns, ok := h.clients[userID]; ok {
		delete(conns, client)
		if len(conns) == 0 {
			delete(h.clients, userID)
		}
	}
}

// RelayQuotes 把行情报价转发给全部在线连接，通道关闭后返回
func (h *WSHandler) RelayQuotes(quotes <-chan *market.Quote) {
	for quote := range quotes {
		h.broadcastAll(quoteFrame{Type: "quote", Quote: quote})
	}
}

// broadcastAll 推送到所有用户的全部连接
func (h *WSHandler) broadcastAll(v interface{}) {
	h.mu.Lock()
	targets := make([]*wsClient, 0)
	for _, conns := range h.clients {
		for client := range conns {
			targets = append(targets, client)
		}
	}
	h.mu.Unlock()

	for _, client := range targets {
		if err := client.send(v); err != nil {
			h.logger.Debug("行情推送失败", zap.Error(err))
		}
	}
}

// broadcast 推送到用户的全部连接
func (h *WSHandler) broadcast(userID uint, change game.StateChange) {
	h.mu.Lock()
	targets := make([]*wsClient, 0, len(h.clients[userID]))
	for client := range h.clients[userID] {
		targets = append(targets, client)
	}
	h.mu.Unlock()

	for _, client := range targets {
		if err := client.send(change); err != nil {
			h.logger.Debug("状态推送失败", zap.Uint("user_id", userID), zap.Error(err))
		}
	}
}

// readLoop 维持连接直到对端关闭，入站消息一律忽略
func (h *WSHandler) readLoop(userID uint, client *wsClient) {
	defer func() {
		h.removeClient(userID, client)
		client.conn.Close()
	}()

	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			return
		}
	}
}
