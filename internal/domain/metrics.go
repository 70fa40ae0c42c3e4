package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PerformanceMetrics is the final snapshot produced by a finished engine
// run. Every ratio field (TotalReturn, BuyHoldReturn, SharpeRatio,
// MaxDrawdown, WinRate, ExposureTimePct) is a dimensionless ratio and is
// therefore float64 per §9 — everything denominated in money stays decimal.
type PerformanceMetrics struct {
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration

	InitialCapital decimal.Decimal
	FinalCapital   decimal.Decimal
	EquityPeak     decimal.Decimal

	TotalReturn     float64
	BuyHoldReturn   float64
	SharpeRatio     float64
	MaxDrawdown     float64
	NumTrades       int
	WinRate         float64
	ExposureTimePct float64

	Trades []FillEvent
}

// NoTrades reports whether the run produced zero realized trades. The
// report renderer uses this to print the "NO TRADES EXECUTED" banner
// required by §4.4/§8 instead of silently showing empty numbers.
func (m PerformanceMetrics) NoTrades() bool {
	return m.NumTrades == 0
}
