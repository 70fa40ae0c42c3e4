package risk

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"tradecore/internal/domain"
)

func TestSimpleRiskManager_SizesWithinCap(t *testing.T) {
	rm := NewSimpleRiskManager(Config{RiskPerTradePct: 0.1, MaxPositionPct: 0.5, Leverage: 2}, nil)

	signal := domain.SignalEvent{
		Symbol:    "BTC-USD",
		Direction: domain.Long,
		Price:     decimal.NewFromInt(100),
		Timestamp: time.Now(),
	}

	order, err := rm.EvaluateSignal(signal, decimal.NewFromInt(1000), nil)
	require.NoError(t, err)
	require.NotNil(t, order)

	// leveraged_capital = 2000, risk target = 200, cap = 1000 -> min is 200
	require.True(t, order.Quantity.Equal(decimal.NewFromInt(2)), "expected quantity 200/100=2, got %s", order.Quantity)
	require.Equal(t, domain.Buy, order.Direction)
	require.Equal(t, domain.Market, order.Type)
}

func TestSimpleRiskManager_CapsAtMaxPosition(t *testing.T) {
	rm := NewSimpleRiskManager(Config{RiskPerTradePct: 0.9, MaxPositionPct: 0.1, Leverage: 1}, nil)

	signal := domain.SignalEvent{
		Symbol:    "BTC-USD",
		Direction: domain.Short,
		Price:     decimal.NewFromInt(100),
		Timestamp: time.Now(),
	}

	order, err := rm.EvaluateSignal(signal, decimal.NewFromInt(1000), nil)
	require.NoError(t, err)
	require.NotNil(t, order)
	require.True(t, order.Quantity.Equal(decimal.NewFromInt(1)), "expected cap-bound quantity 100/100=1, got %s", order.Quantity)
	require.Equal(t, domain.Sell, order.Direction)
}

func TestSimpleRiskManager_VetoesBelowMinNotional(t *testing.T) {
	rm := NewSimpleRiskManager(Config{RiskPerTradePct: 0.001, MaxPositionPct: 0.5, Leverage: 1}, nil)

	signal := domain.SignalEvent{
		Symbol:    "BTC-USD",
		Direction: domain.Long,
		Price:     decimal.NewFromInt(100),
		Timestamp: time.Now(),
	}

	order, err := rm.EvaluateSignal(signal, decimal.NewFromInt(1000), nil)
	require.NoError(t, err)
	require.Nil(t, order)
}

func TestSimpleRiskManager_ExitWithNoPositionIsNoop(t *testing.T) {
	rm := NewSimpleRiskManager(Config{RiskPerTradePct: 0.1, MaxPositionPct: 0.5, Leverage: 1}, nil)

	signal := domain.SignalEvent{Symbol: "BTC-USD", Direction: domain.Exit, Timestamp: time.Now()}
	order, err := rm.EvaluateSignal(signal, decimal.NewFromInt(1000), nil)
	require.NoError(t, err)
	require.Nil(t, order)
}

func TestSimpleRiskManager_ExitClosesOpenPosition(t *testing.T) {
	rm := NewSimpleRiskManager(Config{RiskPerTradePct: 0.1, MaxPositionPct: 0.5, Leverage: 1}, nil)

	positions := []domain.Position{{Symbol: "BTC-USD", Quantity: decimal.NewFromInt(3), AvgEntryPrice: decimal.NewFromInt(90)}}
	signal := domain.SignalEvent{Symbol: "BTC-USD", Direction: domain.Exit, Timestamp: time.Now()}

	order, err := rm.EvaluateSignal(signal, decimal.NewFromInt(1000), positions)
	require.NoError(t, err)
	require.NotNil(t, order)
	require.Equal(t, domain.Sell, order.Direction)
	require.True(t, order.Quantity.Equal(decimal.NewFromInt(3)))
}
