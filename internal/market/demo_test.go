package market

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/isnotcursed/polymarket-casino-slot/internal/models"
)

func TestDemoClient_QuotePricesComplementary(t *testing.T) {
	client := NewDemoClient("demo-market", 42, zap.NewNop())
	ctx := context.Background()

	for i := 0; i < 500; i++ {
		quote, err := client.GetQuote(ctx)
		require.NoError(t, err)

		// 两个方向价格互补且始终在边界内
		assert.InDelta(t, 1.0, quote.UpPrice+quote.DownPrice, 1e-9)
		assert.Greater(t, quote.UpPrice, 0.0)
		assert.Less(t, quote.UpPrice, 1.0)
	}
}

func TestDemoClient_OpenClosePosition(t *testing.T) {
	client := NewDemoClient("demo-market", 42, zap.NewNop())
	ctx := context.Background()

	position, err := client.OpenPosition(ctx, models.DirectionUp, 10)
	require.NoError(t, err)
	assert.NotEmpty(t, position.OrderID)
	assert.Equal(t, models.DirectionUp, position.Direction)
	assert.Greater(t, position.EntryPrice, 0.0)

	settlement, err := client.ClosePosition(ctx, position)
	require.NoError(t, err)
	assert.Equal(t, position.OrderID, settlement.OrderID)

	// 赔付等于金额按价格变化折算
	expected := position.Amount * settlement.ExitPrice / position.EntryPrice
	assert.InDelta(t, expected, settlement.Payout, 1e-9)
}

func TestDemoClient_AlwaysAvailable(t *testing.T) {
	client := NewDemoClient("demo-market", 0, nil)
	assert.True(t, client.IsAvailable(context.Background()))
	assert.Equal(t, "demo", client.Name())
}

func TestQuote_PriceFor(t *testing.T) {
	quote := &Quote{UpPrice: 0.6, DownPrice: 0.4}
	assert.Equal(t, 0.6, quote.PriceFor(models.DirectionUp))
	assert.Equal(t, 0.4, quote.PriceFor(models.DirectionDown))
}
