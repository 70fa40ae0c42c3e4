package execution

import (
	"context"

	"tradecore/internal/domain"
	"tradecore/internal/ports"
)

// PaperTradingExecutionHandler wraps a SimulatedExecutionHandler so a
// bot's execution_mode = Paper path is, at the type level, provably free
// of any venue call: it never holds a client, credentials, or a URL, only
// the same deterministic simulator a backtest uses (§4.7, §8).
type PaperTradingExecutionHandler struct {
	sim *SimulatedExecutionHandler
}

// NewPaperTradingExecutionHandler constructs a paper handler with the given
// simulated fill parameters.
func NewPaperTradingExecutionHandler(sim *SimulatedExecutionHandler) *PaperTradingExecutionHandler {
	return &PaperTradingExecutionHandler{sim: sim}
}

var _ ports.ExecutionHandler = (*PaperTradingExecutionHandler)(nil)

// ExecuteOrder implements ports.ExecutionHandler by delegating to the
// wrapped simulator.
func (h *PaperTradingExecutionHandler) ExecuteOrder(ctx context.Context, order domain.OrderEvent) (domain.FillEvent, error) {
	return h.sim.ExecuteOrder(ctx, order)
}
