// Package engine drives the DataProvider → Strategy → RiskManager →
// ExecutionHandler loop described in spec §4.2. The same Engine type runs
// identical strategy code against a historical CSV feed or a live
// WebSocket feed — only the DataProvider and ExecutionHandler it is
// constructed with differ, which is what gives the system
// backtest-live parity.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"tradecore/internal/domain"
	"tradecore/internal/ports"
)

// Engine coordinates one event loop producing PerformanceMetrics. Its
// DataProvider and ExecutionHandler are fixed at construction (§9) — there
// is no runtime dispatch inside the hot loop beyond the ordinary interface
// call.
type Engine struct {
	provider   ports.DataProvider
	strategies []ports.Strategy
	risk       ports.RiskManager
	execution  ports.ExecutionHandler

	tracker *domain.PositionTracker
	metrics *MetricsAccumulator

	lastPrices map[string]decimal.Decimal

	logger *slog.Logger
}

// New constructs an Engine. initialCapital seeds both the metrics
// accumulator and the account-equity figure the risk manager sizes
// against.
func New(
	provider ports.DataProvider,
	strategies []ports.Strategy,
	risk ports.RiskManager,
	execution ports.ExecutionHandler,
	initialCapital decimal.Decimal,
	logger *slog.Logger,
) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		provider:   provider,
		strategies: strategies,
		risk:       risk,
		execution:  execution,
		tracker:    domain.NewPositionTracker(),
		metrics:    NewMetricsAccumulator(initialCapital),
		lastPrices: make(map[string]decimal.Decimal),
		logger:     logger,
	}
}

// StepObserver receives a callback after every processed MarketEvent. Bot
// actors use this to translate engine steps into broadcast BotEvents
// without the engine needing to know anything about bots (§4.8).
type StepObserver func(StepResult)

// StepResult is everything worth observing about one iteration of the loop.
type StepResult struct {
	Event     domain.MarketEvent
	Signals   []domain.SignalEvent
	Orders    []domain.OrderEvent
	Fills     []domain.FillEvent
	Realized  []decimal.Decimal
	Equity    decimal.Decimal
	Positions []domain.Position
	Errors    []error
}

// Run drives the loop to completion (historical mode: until the provider
// returns end-of-stream) and returns the final metrics. Run is equivalent
// to calling Step in a loop with no observer; it is offered directly for
// the common historical/backtest case.
func (e *Engine) Run(ctx context.Context) (*domain.PerformanceMetrics, error) {
	return e.RunObserved(ctx, nil)
}

// RunObserved is Run with an optional per-step callback.
func (e *Engine) RunObserved(ctx context.Context, observe StepObserver) (*domain.PerformanceMetrics, error) {
	for {
		result, done, err := e.Step(ctx)
		if err != nil {
			return nil, err
		}
		if done {
			break
		}
		if observe != nil {
			observe(*result)
		}
	}
	metrics := e.metrics.Finalize(e.unrealizedPnL())
	return &metrics, nil
}

// Step pulls and processes exactly one MarketEvent. done is true at a
// clean end of stream, in which case result is nil. A bot actor calls Step
// directly so that a command can interleave between steps without
// preempting one in flight (§4.8).
func (e *Engine) Step(ctx context.Context) (result *StepResult, done bool, err error) {
	event, err := e.provider.NextEvent(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrDataStreamEnd) {
			return nil, true, nil
		}
		return nil, false, fmt.Errorf("engine.Step: next event: %w", err)
	}
	if event == nil {
		return nil, true, nil
	}

	hasOpenPosition := e.tracker.HasOpenPosition()
	e.metrics.OnBar(*event, hasOpenPosition)
	e.lastPrices[event.Symbol] = event.Mid()

	res := &StepResult{Event: *event}

	for _, strat := range e.strategies {
		signal, sErr := strat.OnMarketEvent(*event)
		if sErr != nil {
			e.logger.Warn("strategy error", "strategy", strat.Name(), "symbol", event.Symbol, "err", sErr)
			res.Errors = append(res.Errors, sErr)
			continue
		}
		if signal == nil {
			continue
		}
		res.Signals = append(res.Signals, *signal)

		order, rErr := e.risk.EvaluateSignal(*signal, e.Equity(), e.tracker.Positions())
		if rErr != nil {
			e.logger.Warn("risk manager error", "symbol", signal.Symbol, "err", rErr)
			res.Errors = append(res.Errors, rErr)
			continue
		}
		if order == nil {
			continue
		}
		res.Orders = append(res.Orders, *order)

		fill, eErr := e.execution.ExecuteOrder(ctx, *order)
		if eErr != nil {
			// Per-order failure: no fill, position unchanged, surface the
			// error, keep processing the next event (§4.2 edge policy).
			e.logger.Warn("execution error", "symbol", order.Symbol, "err", eErr)
			res.Errors = append(res.Errors, eErr)
			continue
		}
		res.Fills = append(res.Fills, fill)

		realized := e.tracker.ProcessFill(fill)
		if realized != nil {
			e.metrics.RecordTrade(fill, *realized)
			res.Realized = append(res.Realized, *realized)
		} else {
			// Opening or position-extending fill: no realized PnL to fold
			// the commission into, but it still reduces cash (§4.3, §8).
			e.metrics.DeductCommission(fill.Commission)
		}
	}

	res.Equity = e.metrics.UpdateEquity(e.unrealizedPnL())
	res.Positions = e.tracker.Positions()

	return res, false, nil
}

// Warmup primes every strategy's internal state by replaying the n most
// recent closed bars for symbol/interval through OnMarketEvent, discarding
// any signal they produce — a pre-roll bar is not a live decision point
// (§4.1, §4.8). It is a no-op if the provider does not implement
// ports.WarmupProvider. The CSV provider implements it and returns only
// bars it has already replayed, so a warmup before the first Step of a
// backtest returns no bars.
func (e *Engine) Warmup(ctx context.Context, symbol, interval string, n int) error {
	if n <= 0 {
		return nil
	}
	warmer, ok := e.provider.(ports.WarmupProvider)
	if !ok {
		return nil
	}
	bars, err := warmer.Warmup(ctx, symbol, interval, n)
	if err != nil {
		return fmt.Errorf("engine.Warmup: %w", err)
	}
	for _, bar := range bars {
		for _, strat := range e.strategies {
			if _, err := strat.OnMarketEvent(bar); err != nil {
				e.logger.Warn("strategy warmup error", "strategy", strat.Name(), "symbol", bar.Symbol, "err", err)
			}
		}
	}
	return nil
}

// Equity returns the current mark-to-market account equity: realized cash
// plus unrealized PnL on all open positions.
func (e *Engine) Equity() decimal.Decimal {
	return e.metrics.Equity().Add(e.unrealizedPnL())
}

// Positions returns a snapshot of currently open positions.
func (e *Engine) Positions() []domain.Position {
	return e.tracker.Positions()
}

func (e *Engine) unrealizedPnL() decimal.Decimal {
	total := decimal.Zero
	for _, pos := range e.tracker.Positions() {
		last, ok := e.lastPrices[pos.Symbol]
		if !ok {
			continue
		}
		total = total.Add(pos.UnrealizedPnL(last))
	}
	return total
}
