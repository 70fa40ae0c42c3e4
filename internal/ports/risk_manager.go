package ports

import (
	"github.com/shopspring/decimal"

	"tradecore/internal/domain"
)

// RiskManager converts a SignalEvent into a sized OrderEvent, or vetoes it
// by returning (nil, nil). Implementations are stateless or read-only —
// all decision inputs are passed as arguments, never read from live venue
// state, which is what keeps sizing deterministic and testable (§4.5).
type RiskManager interface {
	EvaluateSignal(
		signal domain.SignalEvent,
		accountEquity decimal.Decimal,
		positions []domain.Position,
	) (*domain.OrderEvent, error)
}
