package strategy

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"tradecore/internal/domain"
)

func decimals(vs ...int64) []decimal.Decimal {
	out := make([]decimal.Decimal, len(vs))
	for i, v := range vs {
		out[i] = decimal.NewFromInt(v)
	}
	return out
}

func TestQuadMA_SignalsOnAlignmentTransition(t *testing.T) {
	s, err := NewQuadMA("BTC-USD", QuadMAParams{Periods: []int{1, 2, 3, 4}})
	require.NoError(t, err)

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	// Rising prices drive a bullish alignment (fastest MA highest); the
	// exact bar where that first holds should be the only Long signal.
	prices := []float64{100, 101, 103, 106, 110, 115, 121}

	var signals []*domain.SignalEvent
	for i, p := range prices {
		sig, err := s.OnMarketEvent(bar("BTC-USD", p, start.Add(time.Duration(i)*time.Hour)))
		require.NoError(t, err)
		if sig != nil {
			signals = append(signals, sig)
		}
	}

	require.NotEmpty(t, signals)
	for _, sig := range signals {
		require.Equal(t, domain.Long, sig.Direction)
	}
}

func TestQuadMA_IgnoresOtherSymbols(t *testing.T) {
	s, err := NewQuadMA("BTC-USD", QuadMAParams{})
	require.NoError(t, err)

	sig, err := s.OnMarketEvent(bar("ETH-USD", 100, time.Now()))
	require.NoError(t, err)
	require.Nil(t, sig)
}

func TestNewQuadMA_DefaultsToFibonacciPeriods(t *testing.T) {
	s, err := NewQuadMA("BTC-USD", QuadMAParams{})
	require.NoError(t, err)
	require.Equal(t, []int{5, 8, 13, 21}, s.periods)
}

func TestNewQuadMA_RejectsWrongPeriodCount(t *testing.T) {
	_, err := NewQuadMA("BTC-USD", QuadMAParams{Periods: []int{5, 8, 13}})
	require.ErrorIs(t, err, domain.ErrConfigInvalid)
}

func TestAlignmentOf(t *testing.T) {
	require.Equal(t, quadAlignmentBullish, alignmentOf(decimals(4, 3, 2, 1)))
	require.Equal(t, quadAlignmentBearish, alignmentOf(decimals(1, 2, 3, 4)))
	require.Equal(t, quadAlignmentNone, alignmentOf(decimals(1, 3, 2, 4)))
}
