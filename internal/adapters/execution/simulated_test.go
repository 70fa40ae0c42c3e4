package execution

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"tradecore/internal/domain"
)

func TestSimulatedExecutionHandler_AppliesSlippageAndCommission(t *testing.T) {
	h := NewSimulatedExecutionHandler(decimal.NewFromInt(10), decimal.NewFromFloat(0.001)) // 10bps, 0.1%

	order := domain.OrderEvent{
		Symbol:    "BTC-USD",
		Type:      domain.Market,
		Direction: domain.Buy,
		Quantity:  decimal.NewFromInt(1),
		Price:     decimal.NewFromInt(100),
		Timestamp: time.Now(),
	}

	fill, err := h.ExecuteOrder(context.Background(), order)
	require.NoError(t, err)
	require.True(t, fill.Price.Equal(decimal.NewFromFloat(100.1)), "expected buy slippage to raise fill price, got %s", fill.Price)
	require.True(t, fill.Commission.GreaterThan(decimal.Zero))
	require.NotEmpty(t, fill.OrderID)
}

func TestSimulatedExecutionHandler_LimitOrderSkipsSlippage(t *testing.T) {
	h := NewSimulatedExecutionHandler(decimal.NewFromInt(10), decimal.NewFromFloat(0.001))

	order := domain.OrderEvent{
		Symbol:    "BTC-USD",
		Type:      domain.Limit,
		Direction: domain.Buy,
		Quantity:  decimal.NewFromInt(1),
		Price:     decimal.NewFromInt(100),
		Timestamp: time.Now(),
	}

	fill, err := h.ExecuteOrder(context.Background(), order)
	require.NoError(t, err)
	require.True(t, fill.Price.Equal(decimal.NewFromInt(100)), "limit fill must match the resting price exactly, got %s", fill.Price)
}

func TestSimulatedExecutionHandler_RejectsZeroPriceOrder(t *testing.T) {
	h := NewSimulatedExecutionHandler(decimal.Zero, decimal.Zero)
	_, err := h.ExecuteOrder(context.Background(), domain.OrderEvent{Symbol: "BTC-USD", Quantity: decimal.NewFromInt(1)})
	require.ErrorIs(t, err, domain.ErrInternalInvariant)
}

func TestPaperTradingExecutionHandler_DelegatesToSimulator(t *testing.T) {
	sim := NewSimulatedExecutionHandler(decimal.Zero, decimal.Zero)
	paper := NewPaperTradingExecutionHandler(sim)

	order := domain.OrderEvent{
		Symbol:    "BTC-USD",
		Direction: domain.Sell,
		Quantity:  decimal.NewFromInt(2),
		Price:     decimal.NewFromInt(50),
		Timestamp: time.Now(),
	}
	fill, err := paper.ExecuteOrder(context.Background(), order)
	require.NoError(t, err)
	require.True(t, fill.Price.Equal(decimal.NewFromInt(50)))
}
