package engine

import (
	"math"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"tradecore/internal/domain"
)

// MetricsAccumulator maintains the running state needed to produce a
// PerformanceMetrics snapshot at the end of a run (§4.4). It is owned
// exclusively by the Engine that drives it; the mutex exists because a
// status reporter (e.g. a bot's status snapshot) may read a partial
// snapshot concurrently with the engine's single writer goroutine.
type MetricsAccumulator struct {
	mu sync.Mutex

	initialCapital decimal.Decimal
	cash           decimal.Decimal
	equityPeak     decimal.Decimal

	equityCurve []decimal.Decimal
	returns     []float64
	wins        int
	losses      int
	trades      []domain.FillEvent

	barsInPosition int
	totalBars      int

	firstPrice *decimal.Decimal
	lastPrice  *decimal.Decimal
	startTime  *time.Time
	endTime    time.Time
}

// NewMetricsAccumulator seeds the accumulator with the run's starting capital.
func NewMetricsAccumulator(initialCapital decimal.Decimal) *MetricsAccumulator {
	return &MetricsAccumulator{
		initialCapital: initialCapital,
		cash:           initialCapital,
		equityPeak:     initialCapital,
	}
}

// OnBar records bar-level bookkeeping: first/last price and timestamp for
// the buy-and-hold baseline and run duration, total bar count, and whether
// any position was open during this bar (for exposure time).
func (m *MetricsAccumulator) OnBar(event domain.MarketEvent, hasOpenPosition bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	price := event.Mid()
	if m.startTime == nil {
		t := event.Timestamp
		m.startTime = &t
		p := price
		m.firstPrice = &p
	}
	m.endTime = event.Timestamp
	m.lastPrice = &price

	m.totalBars++
	if hasOpenPosition {
		m.barsInPosition++
	}
}

// RecordTrade records a fill that produced a realized PnL, i.e. a closing
// fill. The equity curve advances once per closed trade, per §4.4's
// "consistent" choice — this implementation samples per trade.
func (m *MetricsAccumulator) RecordTrade(fill domain.FillEvent, realizedPnL decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.trades = append(m.trades, fill)
	m.cash = m.cash.Add(realizedPnL)

	if m.cash.GreaterThan(m.equityPeak) {
		m.equityPeak = m.cash
	}
	m.equityCurve = append(m.equityCurve, m.cash)

	if realizedPnL.IsPositive() {
		m.wins++
	} else if realizedPnL.IsNegative() {
		m.losses++
	}

	if !m.initialCapital.IsZero() {
		ret, _ := realizedPnL.Div(m.initialCapital).Float64()
		m.returns = append(m.returns, ret)
	}
}

// UpdateEquity marks the current equity (cash plus unrealized PnL across
// all open positions) and advances the running peak. Called once per bar
// after fills for that bar have been processed.
func (m *MetricsAccumulator) UpdateEquity(unrealizedPnL decimal.Decimal) decimal.Decimal {
	m.mu.Lock()
	defer m.mu.Unlock()

	equity := m.cash.Add(unrealizedPnL)
	if equity.GreaterThan(m.equityPeak) {
		m.equityPeak = equity
	}
	return equity
}

// DeductCommission reduces cash by a fill's commission without recording a
// trade. Only a closing fill's commission shows up inside a realized PnL
// figure (via PositionTracker.ProcessFill); an opening or position-extending
// fill still costs commission, so the engine routes it here instead — §8's
// Σ-commissions invariant holds over every fill, not just closing ones.
func (m *MetricsAccumulator) DeductCommission(commission decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cash = m.cash.Sub(commission)
}

// Equity returns the current cash balance (realized-only equity).
func (m *MetricsAccumulator) Equity() decimal.Decimal {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cash
}

// Finalize computes the final PerformanceMetrics snapshot. See §4.4 for
// the exact formulas; annualization uses 252 trading days and stddev over
// N (not N−1) observations, both explicit spec assumptions.
func (m *MetricsAccumulator) Finalize(finalUnrealized decimal.Decimal) domain.PerformanceMetrics {
	m.mu.Lock()
	defer m.mu.Unlock()

	finalCapital := m.cash.Add(finalUnrealized)
	if finalCapital.GreaterThan(m.equityPeak) {
		m.equityPeak = finalCapital
	}

	var start, end time.Time
	if m.startTime != nil {
		start = *m.startTime
		end = m.endTime
	}

	totalReturn := 0.0
	if !m.initialCapital.IsZero() {
		totalReturn, _ = finalCapital.Sub(m.initialCapital).Div(m.initialCapital).Float64()
	}

	buyHold := 0.0
	if m.firstPrice != nil && m.lastPrice != nil && !m.firstPrice.IsZero() {
		buyHold, _ = m.lastPrice.Sub(*m.firstPrice).Div(*m.firstPrice).Float64()
	}

	sharpe := sharpeRatio(m.returns)

	maxDD := maxDrawdown(m.equityCurve, m.initialCapital)

	winRate := 0.0
	if m.wins+m.losses > 0 {
		winRate = float64(m.wins) / float64(m.wins+m.losses)
	}

	exposure := 0.0
	if m.totalBars > 0 {
		exposure = float64(m.barsInPosition) / float64(m.totalBars)
	}

	trades := make([]domain.FillEvent, len(m.trades))
	copy(trades, m.trades)

	return domain.PerformanceMetrics{
		StartTime:       start,
		EndTime:         end,
		Duration:        end.Sub(start),
		InitialCapital:  m.initialCapital,
		FinalCapital:    finalCapital,
		EquityPeak:      m.equityPeak,
		TotalReturn:     totalReturn,
		BuyHoldReturn:   buyHold,
		SharpeRatio:     sharpe,
		MaxDrawdown:     maxDD,
		NumTrades:       len(m.trades),
		WinRate:         winRate,
		ExposureTimePct: exposure,
		Trades:          trades,
	}
}

// sharpeRatio is mean(returns) / stddev(returns) × √252, stddev over N
// observations. Zero by convention when stddev is zero (including the
// fewer-than-two-trades case) — §4.4, §8.
func sharpeRatio(returns []float64) float64 {
	n := len(returns)
	if n == 0 {
		return 0
	}
	var sum float64
	for _, r := range returns {
		sum += r
	}
	mean := sum / float64(n)

	var sumSq float64
	for _, r := range returns {
		d := r - mean
		sumSq += d * d
	}
	stddev := math.Sqrt(sumSq / float64(n))
	if stddev == 0 {
		return 0
	}
	return (mean / stddev) * math.Sqrt(252)
}

// maxDrawdown is max over the curve of (peak − equity) / peak, with peak
// running from initialCapital.
func maxDrawdown(curve []decimal.Decimal, initialCapital decimal.Decimal) float64 {
	if len(curve) == 0 {
		return 0
	}
	peak := initialCapital
	maxDD := 0.0
	for _, equity := range curve {
		if equity.GreaterThan(peak) {
			peak = equity
		}
		if peak.IsZero() {
			continue
		}
		dd, _ := peak.Sub(equity).Div(peak).Float64()
		if dd > maxDD {
			maxDD = dd
		}
	}
	return maxDD
}
