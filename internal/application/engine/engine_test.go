package engine

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"tradecore/internal/adapters/execution"
	"tradecore/internal/domain"
	"tradecore/internal/ports"
	"tradecore/internal/risk"
	"tradecore/internal/strategy"
)

// sliceProvider replays a fixed slice of MarketEvents, the simplest
// possible ports.DataProvider for exercising the engine in isolation.
type sliceProvider struct {
	events []domain.MarketEvent
	cursor int
}

func (p *sliceProvider) NextEvent(context.Context) (*domain.MarketEvent, error) {
	if p.cursor >= len(p.events) {
		return nil, domain.ErrDataStreamEnd
	}
	e := p.events[p.cursor]
	p.cursor++
	return &e, nil
}

func bars(closes []float64, symbol string) []domain.MarketEvent {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]domain.MarketEvent, len(closes))
	for i, c := range closes {
		v := decimal.NewFromFloat(c)
		out[i] = domain.MarketEvent{
			Kind:      domain.KindBar,
			Symbol:    symbol,
			Timestamp: start.Add(time.Duration(i) * time.Hour),
			Open:      v,
			High:      v,
			Low:       v,
			Close:     v,
			Volume:    decimal.NewFromInt(100),
		}
	}
	return out
}

// TestEngine_MACrossoverSingleTrade is scenario 1 of §8: a 10-bar series
// with MA(3)/MA(5) produces a Long signal on bar 5, the first bar both
// buffers are full (§4.6: that first established side is itself a
// crossing). The series reverses on the final bar, producing a second,
// closing Short — exactly one realized trade by the end of the run.
func TestEngine_MACrossoverSingleTrade(t *testing.T) {
	closes := []float64{100, 101, 102, 103, 104, 105, 106, 105, 104, 103}
	provider := &sliceProvider{events: bars(closes, "BTC-USD")}

	strat, err := strategy.NewMACrossover("BTC-USD", strategy.MACrossoverParams{FastPeriod: 3, SlowPeriod: 5})
	require.NoError(t, err)

	riskMgr := risk.NewSimpleRiskManager(risk.Config{RiskPerTradePct: 1, MaxPositionPct: 1, Leverage: 1}, nil)
	exec := execution.NewSimulatedExecutionHandler(decimal.NewFromInt(5), decimal.NewFromFloat(0.001))

	eng := New(provider, []ports.Strategy{strat}, riskMgr, exec, decimal.NewFromInt(10000), nil)

	var signals []domain.SignalEvent
	metrics, err := eng.RunObserved(context.Background(), func(r StepResult) {
		signals = append(signals, r.Signals...)
	})
	require.NoError(t, err)

	require.Len(t, signals, 2, "one Long establishing the side on bar 5, one Short on the reversal at the final bar")
	require.Equal(t, domain.Long, signals[0].Direction)
	require.True(t, signals[0].Price.Equal(decimal.NewFromInt(104)), "bar 5's close is 104")
	require.Equal(t, domain.Short, signals[1].Direction)

	require.True(t, metrics.EquityPeak.GreaterThan(decimal.NewFromInt(10000)), "equity peak should exceed initial capital while the long position is in profit")
	require.Equal(t, 1, metrics.NumTrades, "the closing Short realizes exactly one trade")
}

// TestEngine_BuyAndHoldBaselineNoTrades is scenario 6 of §8: a strategy
// that never trades still reports the buy-and-hold baseline and an
// explicit "no trades" signal.
func TestEngine_BuyAndHoldBaselineNoTrades(t *testing.T) {
	closes := make([]float64, 100)
	for i := range closes {
		closes[i] = 100 + float64(i)/2 // rises from 100 to 149.5
	}
	closes[0] = 100
	closes[len(closes)-1] = 150
	provider := &sliceProvider{events: bars(closes, "BTC-USD")}

	neverTrades := &noopStrategy{}
	riskMgr := risk.NewSimpleRiskManager(risk.Config{RiskPerTradePct: 1, MaxPositionPct: 1, Leverage: 1}, nil)
	exec := execution.NewSimulatedExecutionHandler(decimal.Zero, decimal.Zero)

	eng := New(provider, []ports.Strategy{neverTrades}, riskMgr, exec, decimal.NewFromInt(10000), nil)

	metrics, err := eng.Run(context.Background())
	require.NoError(t, err)

	require.Equal(t, 0, metrics.NumTrades)
	require.InDelta(t, 0.0, metrics.TotalReturn, 1e-9)
	require.InDelta(t, 0.5, metrics.BuyHoldReturn, 1e-9)
	require.True(t, metrics.NoTrades())
}

// TestEngine_EmptyStreamFinalizesCleanly is the boundary case: no events
// at all still produces a finite, non-panicking metrics snapshot.
func TestEngine_EmptyStreamFinalizesCleanly(t *testing.T) {
	provider := &sliceProvider{}
	riskMgr := risk.NewSimpleRiskManager(risk.Config{RiskPerTradePct: 1, MaxPositionPct: 1, Leverage: 1}, nil)
	exec := execution.NewSimulatedExecutionHandler(decimal.Zero, decimal.Zero)

	eng := New(provider, nil, riskMgr, exec, decimal.NewFromInt(10000), nil)
	metrics, err := eng.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 0, metrics.NumTrades)
	require.Equal(t, time.Duration(0), metrics.Duration)
	require.True(t, metrics.InitialCapital.Equal(metrics.FinalCapital))
}

type noopStrategy struct{}

func (noopStrategy) OnMarketEvent(domain.MarketEvent) (*domain.SignalEvent, error) { return nil, nil }
func (noopStrategy) Name() string                                                 { return "noop" }
