package market

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// newClobStub 模拟 CLOB 行情接口
func newClobStub(t *testing.T, mid string, info *marketInfoResponse) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/midpoint":
			json.NewEncoder(w).Encode(midpointResponse{Mid: mid})
		case strings.HasPrefix(r.URL.Path, "/markets/"):
			if info == nil {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			json.NewEncoder(w).Encode(info)
		default:
			t.Errorf("未预期的请求路径: %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func newTestPolymarketClient(t *testing.T, baseURL string) *PolymarketClient {
	client, err := NewPolymarketClient(&PolymarketConfig{
		BaseURL:     baseURL,
		MarketID:    "0xcondition",
		UpTokenID:   "token-up",
		DownTokenID: "token-down",
	}, zap.NewNop())
	require.NoError(t, err)
	return client
}

func TestPolymarketClient_GetQuoteComplement(t *testing.T) {
	srv := newClobStub(t, "0.62", nil)
	defer srv.Close()

	client := newTestPolymarketClient(t, srv.URL)
	quote, err := client.GetQuote(context.Background())
	require.NoError(t, err)

	assert.InDelta(t, 0.62, quote.UpPrice, 1e-9)
	assert.InDelta(t, 1.0, quote.UpPrice+quote.DownPrice, 1e-9)
}

func TestPolymarketClient_AvailabilityTracksMarketEnd(t *testing.T) {
	future := time.Now().Add(24 * time.Hour).Format(time.RFC3339)
	past := time.Now().Add(-24 * time.Hour).Format(time.RFC3339)

	tests := []struct {
		name string
		info *marketInfoResponse
		want bool
	}{
		{"交易中且未到期", &marketInfoResponse{EndDateISO: future, Active: true}, true},
		{"截止时间已过", &marketInfoResponse{EndDateISO: past, Active: true}, false},
		{"市场已关闭", &marketInfoResponse{EndDateISO: future, Closed: true}, false},
		{"无截止时间视为开放", &marketInfoResponse{Active: true}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newClobStub(t, "0.5", tt.info)
			defer srv.Close()

			client := newTestPolymarketClient(t, srv.URL)
			assert.Equal(t, tt.want, client.IsAvailable(context.Background()))
		})
	}
}

func TestPolymarketClient_MarketInfoCached(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/markets/") {
			calls++
			json.NewEncoder(w).Encode(marketInfoResponse{Active: true})
			return
		}
		json.NewEncoder(w).Encode(midpointResponse{Mid: "0.5"})
	}))
	defer srv.Close()

	client := newTestPolymarketClient(t, srv.URL)
	for i := 0; i < 5; i++ {
		require.True(t, client.IsAvailable(context.Background()))
	}

	// 缓存窗口内元信息只查一次
	assert.Equal(t, 1, calls)
}
