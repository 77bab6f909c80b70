package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isnotcursed/polymarket-casino-slot/internal/game"
	"github.com/isnotcursed/polymarket-casino-slot/internal/market"
)

// wsFrame 推送帧的统一解码结构
type wsFrame struct {
	Type    string         `json:"type"`
	State   game.GameState `json:"state"`
	Message string         `json:"message"`
	Quote   *market.Quote  `json:"quote"`
}

// dialWS 建立到测试服务器的websocket连接并消费掉首帧状态
func dialWS(t *testing.T, srv *httptest.Server, token string) *websocket.Conn {
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/ws?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)

	var initial wsFrame
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	require.NoError(t, conn.ReadJSON(&initial))
	require.Equal(t, game.StateIdle, initial.State)

	return conn
}

// readUntil 持续读帧直到谓词满足或超时
func readUntil(t *testing.T, conn *websocket.Conn, timeout time.Duration, pred func(wsFrame) bool) wsFrame {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		var frame wsFrame
		conn.SetReadDeadline(deadline)
		require.NoError(t, conn.ReadJSON(&frame))
		if pred(frame) {
			return frame
		}
	}
	t.Fatal("超时未收到预期推送帧")
	return wsFrame{}
}

func TestWSHandler_RelaysQuotes(t *testing.T) {
	deps := setupTestDeps(t)
	quotes := make(chan *market.Quote, 1)
	deps.Quotes = quotes
	router := NewRouter(deps)

	srv := httptest.NewServer(router.Engine())
	defer srv.Close()

	token := registerAndLogin(t, router)
	conn := dialWS(t, srv, token)
	defer conn.Close()

	quotes <- &market.Quote{
		MarketID:  "test-market",
		UpPrice:   0.63,
		DownPrice: 0.37,
		Timestamp: time.Now(),
	}
	defer close(quotes)

	frame := readUntil(t, conn, 5*time.Second, func(f wsFrame) bool {
		return f.Type == "quote"
	})
	require.NotNil(t, frame.Quote)
	assert.Equal(t, "test-market", frame.Quote.MarketID)
	assert.InDelta(t, 0.63, frame.Quote.UpPrice, 1e-9)
	assert.InDelta(t, 1.0, frame.Quote.UpPrice+frame.Quote.DownPrice, 1e-9)
}

func TestWSHandler_ListenerFollowsRecreatedOrchestrator(t *testing.T) {
	deps := setupTestDeps(t)
	router := NewRouter(deps)

	srv := httptest.NewServer(router.Engine())
	defer srv.Close()

	token := registerAndLogin(t, router)

	// 首个连接挂上旧编排器的订阅后断开
	conn1 := dialWS(t, srv, token)
	conn1.Close()

	// 编排器被移除重建后，新连接必须重新挂上订阅
	deps.GameManager.Remove(1)
	conn2 := dialWS(t, srv, token)
	defer conn2.Close()

	done := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		done <- doJSON(router, http.MethodPost, "/api/v1/game/spin", token, gin.H{
			"amount":            10,
			"direction":         "up",
			"mode":              "demo",
			"hold_time_seconds": 1,
		})
	}()

	frame := readUntil(t, conn2, 15*time.Second, func(f wsFrame) bool {
		return f.State == game.StateShowingResult
	})
	assert.NotEmpty(t, frame.Message)

	w := <-done
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}
