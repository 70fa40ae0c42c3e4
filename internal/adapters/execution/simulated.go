// Package execution implements ports.ExecutionHandler: a simulated fill
// generator usable standalone in backtests or wrapped for paper trading.
package execution

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"tradecore/internal/domain"
	"tradecore/internal/ports"
)

// SimulatedExecutionHandler fills every order immediately at its submitted
// price plus a slippage adjustment, and charges a flat commission rate on
// notional. It never touches the network — used directly by the backtest
// engine and wrapped unchanged by PaperTradingExecutionHandler (§4.7, §8).
type SimulatedExecutionHandler struct {
	slippageBps    decimal.Decimal
	commissionRate decimal.Decimal
}

// NewSimulatedExecutionHandler constructs a handler. slippageBps is applied
// against the order price in the direction that disadvantages the trader
// (higher fill price on a Buy, lower on a Sell); commissionRate is a
// fraction of notional.
func NewSimulatedExecutionHandler(slippageBps, commissionRate decimal.Decimal) *SimulatedExecutionHandler {
	return &SimulatedExecutionHandler{slippageBps: slippageBps, commissionRate: commissionRate}
}

var _ ports.ExecutionHandler = (*SimulatedExecutionHandler)(nil)

// ExecuteOrder implements ports.ExecutionHandler. An order of either type
// with a zero price cannot be simulated; this only happens if a RiskManager
// forgets to stamp the signal's observed price onto the order, which is an
// internal-invariant violation, not a runtime condition callers recover from.
func (h *SimulatedExecutionHandler) ExecuteOrder(_ context.Context, order domain.OrderEvent) (domain.FillEvent, error) {
	if order.Price.IsZero() {
		return domain.FillEvent{}, domain.ErrInternalInvariant
	}

	// Limit fills are idealized at the resting price (§4.7): no partial
	// fills, no slippage. Only Market orders cross the book and pay it.
	fillPrice := order.Price
	if order.Type == domain.Market {
		slippageFrac := h.slippageBps.Div(decimal.NewFromInt(10000))
		adjustment := order.Price.Mul(slippageFrac)
		if order.Direction == domain.Buy {
			fillPrice = fillPrice.Add(adjustment)
		} else {
			fillPrice = fillPrice.Sub(adjustment)
		}
	}

	notional := order.Quantity.Mul(fillPrice)
	commission := notional.Mul(h.commissionRate)

	return domain.FillEvent{
		OrderID:    uuid.NewString(),
		Symbol:     order.Symbol,
		Direction:  order.Direction,
		Quantity:   order.Quantity,
		Price:      fillPrice,
		Commission: commission,
		Timestamp:  order.Timestamp,
	}, nil
}
