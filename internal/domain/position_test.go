package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func fill(symbol string, dir Direction, qty, price float64) FillEvent {
	return FillEvent{
		OrderID:    "o",
		Symbol:     symbol,
		Direction:  dir,
		Quantity:   decimal.NewFromFloat(qty),
		Price:      decimal.NewFromFloat(price),
		Commission: decimal.Zero,
		Timestamp:  time.Now(),
	}
}

func TestPositionTracker_OpensOnFirstFill(t *testing.T) {
	tr := NewPositionTracker()

	realized := tr.ProcessFill(fill("BTC-USD", Buy, 1, 100))
	require.Nil(t, realized)

	pos, ok := tr.Position("BTC-USD")
	require.True(t, ok)
	require.True(t, pos.Quantity.Equal(decimal.NewFromInt(1)))
	require.True(t, pos.AvgEntryPrice.Equal(decimal.NewFromInt(100)))
}

func TestPositionTracker_SameDirectionWeightedAverages(t *testing.T) {
	tr := NewPositionTracker()
	tr.ProcessFill(fill("BTC-USD", Buy, 1, 100))
	realized := tr.ProcessFill(fill("BTC-USD", Buy, 1, 120))
	require.Nil(t, realized)

	pos, _ := tr.Position("BTC-USD")
	require.True(t, pos.Quantity.Equal(decimal.NewFromInt(2)))
	require.True(t, pos.AvgEntryPrice.Equal(decimal.NewFromInt(110)), "expected weighted-average entry of 110, got %s", pos.AvgEntryPrice)
}

// TestPositionTracker_FlipInOneFill is scenario 3 of §8: Buy 1 @ 100, then
// Sell 3 @ 110 closes the long 1 (realizing PnL) and opens a fresh short 2
// @ 110 — exactly one realized-PnL event for the whole fill.
func TestPositionTracker_FlipInOneFill(t *testing.T) {
	tr := NewPositionTracker()

	realized := tr.ProcessFill(fill("BTC-USD", Buy, 1, 100))
	require.Nil(t, realized)

	realized = tr.ProcessFill(fill("BTC-USD", Sell, 3, 110))
	require.NotNil(t, realized)
	require.True(t, realized.Equal(decimal.NewFromInt(10)), "expected realized PnL of 10 (1 * (110-100)), got %s", realized)

	pos, ok := tr.Position("BTC-USD")
	require.True(t, ok)
	require.True(t, pos.Quantity.Equal(decimal.NewFromInt(-2)), "expected a fresh short of 2, got %s", pos.Quantity)
	require.True(t, pos.AvgEntryPrice.Equal(decimal.NewFromInt(110)))
}

func TestPositionTracker_PartialCloseLeavesRemainder(t *testing.T) {
	tr := NewPositionTracker()
	tr.ProcessFill(fill("BTC-USD", Buy, 5, 100))

	realized := tr.ProcessFill(fill("BTC-USD", Sell, 2, 110))
	require.NotNil(t, realized)
	require.True(t, realized.Equal(decimal.NewFromInt(20)))

	pos, ok := tr.Position("BTC-USD")
	require.True(t, ok)
	require.True(t, pos.Quantity.Equal(decimal.NewFromInt(3)))
	require.True(t, pos.AvgEntryPrice.Equal(decimal.NewFromInt(100)), "partial close must not disturb the remaining side's entry price")
}

func TestPositionTracker_FullCloseRemovesPosition(t *testing.T) {
	tr := NewPositionTracker()
	tr.ProcessFill(fill("BTC-USD", Buy, 2, 100))

	realized := tr.ProcessFill(fill("BTC-USD", Sell, 2, 90))
	require.NotNil(t, realized)
	require.True(t, realized.Equal(decimal.NewFromInt(-20)))

	_, ok := tr.Position("BTC-USD")
	require.False(t, ok)
	require.False(t, tr.HasOpenPosition())
}

func TestPositionTracker_ShortSideProfitsOnPriceDecline(t *testing.T) {
	tr := NewPositionTracker()
	tr.ProcessFill(fill("BTC-USD", Sell, 1, 100))

	realized := tr.ProcessFill(fill("BTC-USD", Buy, 1, 90))
	require.NotNil(t, realized)
	require.True(t, realized.Equal(decimal.NewFromInt(10)), "closing a short below entry must realize a profit, got %s", realized)
}

func TestPositionTracker_CommissionReducesRealizedPnL(t *testing.T) {
	tr := NewPositionTracker()
	tr.ProcessFill(fill("BTC-USD", Buy, 1, 100))

	closing := fill("BTC-USD", Sell, 1, 110)
	closing.Commission = decimal.NewFromFloat(1.5)
	realized := tr.ProcessFill(closing)

	require.NotNil(t, realized)
	require.True(t, realized.Equal(decimal.NewFromFloat(8.5)), "expected (110-100) - 1.5 commission = 8.5, got %s", realized)
}
