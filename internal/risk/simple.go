// Package risk implements the sizing layer between a Strategy's SignalEvent
// and the ExecutionHandler's OrderEvent.
package risk

import (
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"tradecore/internal/domain"
	"tradecore/internal/ports"
)

// minNotionalFloor is the smallest order notional (in quote-currency units)
// the reference venue will accept. Below this a sized order is vetoed
// rather than rejected at the venue (§4.5).
var minNotionalFloor = decimal.NewFromInt(10)

// sizingDecimalPlaces is the precision a sized quantity is truncated to
// before being placed (§4.5).
const sizingDecimalPlaces = 8

// SimpleRiskManager converts signals into orders sized against a fraction
// of leveraged account equity, capped by a hard per-position ceiling. It
// holds no venue state of its own — every input is an argument, which is
// what keeps it deterministic and testable in both backtest and live modes.
type SimpleRiskManager struct {
	riskPerTradePct float64
	maxPositionPct  float64
	leverage        int64
	logger          *slog.Logger
}

// Config bundles the per-bot sizing parameters from BotConfig.
type Config struct {
	RiskPerTradePct float64
	MaxPositionPct  float64
	Leverage        int
}

// NewSimpleRiskManager constructs a risk manager for one bot. It validates
// nothing — BotConfig.Validate already enforces legal ranges before a bot
// is ever spawned.
func NewSimpleRiskManager(cfg Config, logger *slog.Logger) *SimpleRiskManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &SimpleRiskManager{
		riskPerTradePct: cfg.RiskPerTradePct,
		maxPositionPct:  cfg.MaxPositionPct,
		leverage:        int64(cfg.Leverage),
		logger:          logger,
	}
}

var _ ports.RiskManager = (*SimpleRiskManager)(nil)

// EvaluateSignal implements ports.RiskManager per §4.5.
func (r *SimpleRiskManager) EvaluateSignal(
	signal domain.SignalEvent,
	accountEquity decimal.Decimal,
	positions []domain.Position,
) (*domain.OrderEvent, error) {
	if signal.Direction == domain.Exit {
		pos, ok := findPosition(positions, signal.Symbol)
		if !ok {
			return nil, nil
		}
		dir := domain.Sell
		if pos.Quantity.IsNegative() {
			dir = domain.Buy
		}
		price := signal.Price
		if price.IsZero() {
			price = pos.AvgEntryPrice
		}
		return &domain.OrderEvent{
			Symbol:    signal.Symbol,
			Type:      domain.Market,
			Direction: dir,
			Quantity:  pos.Quantity.Abs(),
			Price:     price,
			Timestamp: signal.Timestamp,
		}, nil
	}

	leveragedCapital := accountEquity.Mul(decimal.NewFromInt(r.leverage))
	byRisk := leveragedCapital.Mul(decimal.NewFromFloat(r.riskPerTradePct))
	byCap := leveragedCapital.Mul(decimal.NewFromFloat(r.maxPositionPct))
	targetNotional := decimal.Min(byRisk, byCap)

	if signal.Price.IsZero() {
		return nil, fmt.Errorf("risk.EvaluateSignal: signal for %s carries zero price: %w", signal.Symbol, domain.ErrInternalInvariant)
	}

	quantity := targetNotional.Div(signal.Price).Truncate(sizingDecimalPlaces)
	orderNotional := quantity.Mul(signal.Price)

	if orderNotional.LessThan(minNotionalFloor) {
		r.logger.Warn("risk: order below minimum notional, vetoed",
			"symbol", signal.Symbol,
			"notional", orderNotional.String(),
			"floor", minNotionalFloor.String(),
		)
		return nil, nil
	}

	dir := domain.Buy
	if signal.Direction == domain.Short {
		dir = domain.Sell
	}

	return &domain.OrderEvent{
		Symbol:    signal.Symbol,
		Type:      domain.Market,
		Direction: dir,
		Quantity:  quantity,
		Price:     signal.Price,
		Timestamp: signal.Timestamp,
	}, nil
}

func findPosition(positions []domain.Position, symbol string) (domain.Position, bool) {
	for _, p := range positions {
		if p.Symbol == symbol {
			return p, true
		}
	}
	return domain.Position{}, false
}
