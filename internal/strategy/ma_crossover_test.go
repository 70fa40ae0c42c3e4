package strategy

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"tradecore/internal/domain"
)

func bar(symbol string, close float64, t time.Time) domain.MarketEvent {
	c := decimal.NewFromFloat(close)
	return domain.MarketEvent{
		Kind:      domain.KindBar,
		Symbol:    symbol,
		Timestamp: t,
		Open:      c,
		High:      c,
		Low:       c,
		Close:     c,
		Volume:    decimal.NewFromInt(100),
	}
}

func TestMACrossover_SingleTradeOnCross(t *testing.T) {
	s, err := NewMACrossover("BTC-USD", MACrossoverParams{FastPeriod: 2, SlowPeriod: 3})
	require.NoError(t, err)

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	prices := []float64{10, 12, 14, 5, 4, 20, 22}

	var signals []*domain.SignalEvent
	for i, p := range prices {
		sig, err := s.OnMarketEvent(bar("BTC-USD", p, start.Add(time.Duration(i)*time.Hour)))
		require.NoError(t, err)
		if sig != nil {
			signals = append(signals, sig)
		}
	}

	// Buffers fill on bar 3 (price 14) with fast already above slow, which
	// is itself a crossing from the unestablished baseline (§4.6). The
	// series then dips (fast below slow on bar 4) and recovers (fast above
	// slow again on bar 6), for three crossings total.
	require.Len(t, signals, 3, "expect the initial alignment plus one Short crossing and one Long crossing")
	require.Equal(t, domain.Long, signals[0].Direction)
	require.Equal(t, domain.Short, signals[1].Direction)
	require.Equal(t, domain.Long, signals[2].Direction)
}

func TestMACrossover_IgnoresOtherSymbolsAndNonBars(t *testing.T) {
	s, err := NewMACrossover("BTC-USD", MACrossoverParams{FastPeriod: 2, SlowPeriod: 3})
	require.NoError(t, err)

	sig, err := s.OnMarketEvent(bar("ETH-USD", 10, time.Now()))
	require.NoError(t, err)
	require.Nil(t, sig)

	quote := domain.MarketEvent{Kind: domain.KindQuote, Symbol: "BTC-USD", Bid: decimal.NewFromInt(1), Ask: decimal.NewFromInt(2)}
	sig, err = s.OnMarketEvent(quote)
	require.NoError(t, err)
	require.Nil(t, sig)
}

func TestNewMACrossover_RejectsBadPeriods(t *testing.T) {
	_, err := NewMACrossover("BTC-USD", MACrossoverParams{FastPeriod: 5, SlowPeriod: 5})
	require.ErrorIs(t, err, domain.ErrConfigInvalid)

	_, err = NewMACrossover("BTC-USD", MACrossoverParams{FastPeriod: 0, SlowPeriod: 5})
	require.ErrorIs(t, err, domain.ErrConfigInvalid)
}

func TestNewMACrossoverFromJSON(t *testing.T) {
	s, err := NewMACrossoverFromJSON("BTC-USD", []byte(`{"fast_period":5,"slow_period":20}`))
	require.NoError(t, err)
	require.Equal(t, NameMACrossover, s.Name())
}
