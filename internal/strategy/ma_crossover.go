package strategy

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"tradecore/internal/domain"
	"tradecore/internal/ports"
)

// NameMACrossover is the strategy tag resolved by the registry.
const NameMACrossover = "ma_crossover"

// MACrossoverParams configures MACrossover. FastPeriod and SlowPeriod are
// the lengths of the two SMA buffers.
type MACrossoverParams struct {
	FastPeriod   int `json:"fast_period"`
	SlowPeriod   int `json:"slow_period"`
	CooldownBars int `json:"cooldown_bars"` // 0 disables
}

// macSide records which side of the slow SMA the fast SMA was on, so the
// strategy emits at most one signal per crossing instead of re-signaling
// every bar the fast average stays on the same side (§4.6).
type macSide int

const (
	macSideUnknown macSide = iota
	macSideAbove
	macSideBelow
)

// MACrossover is the moving-average crossover reference strategy: Long
// when the fast SMA crosses above the slow SMA, Short when it crosses
// below. It is single-symbol and stateful; buffers are bounded FIFOs of
// closing prices.
type MACrossover struct {
	symbol string
	fast   int
	slow   int

	fastBuf []decimal.Decimal
	slowBuf []decimal.Decimal

	lastSide macSide

	cooldownBars  int
	barsSinceSeen int
}

// NewMACrossover constructs the strategy for a single symbol.
func NewMACrossover(symbol string, params MACrossoverParams) (*MACrossover, error) {
	if params.FastPeriod <= 0 || params.SlowPeriod <= 0 {
		return nil, fmt.Errorf("ma_crossover: periods must be positive: %w", domain.ErrConfigInvalid)
	}
	if params.FastPeriod >= params.SlowPeriod {
		return nil, fmt.Errorf("ma_crossover: fast_period must be less than slow_period: %w", domain.ErrConfigInvalid)
	}
	return &MACrossover{
		symbol:        symbol,
		fast:          params.FastPeriod,
		slow:          params.SlowPeriod,
		cooldownBars:  params.CooldownBars,
		barsSinceSeen: params.CooldownBars, // not in cooldown at start
	}, nil
}

// NewMACrossoverFromJSON adapts NewMACrossover to the registry Factory shape.
func NewMACrossoverFromJSON(symbol string, raw []byte) (ports.Strategy, error) {
	var params MACrossoverParams
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &params); err != nil {
			return nil, fmt.Errorf("ma_crossover: parse params: %w: %w", err, domain.ErrConfigInvalid)
		}
	}
	return NewMACrossover(symbol, params)
}

// Name implements ports.Strategy.
func (s *MACrossover) Name() string { return NameMACrossover }

// OnMarketEvent implements ports.Strategy. Only Bar events carry a closing
// price; other kinds are ignored.
func (s *MACrossover) OnMarketEvent(event domain.MarketEvent) (*domain.SignalEvent, error) {
	if event.Symbol != s.symbol || !event.IsBar() {
		return nil, nil
	}

	s.fastBuf = pushBounded(s.fastBuf, event.Close, s.fast)
	s.slowBuf = pushBounded(s.slowBuf, event.Close, s.slow)
	s.barsSinceSeen++

	if len(s.fastBuf) < s.fast || len(s.slowBuf) < s.slow {
		return nil, nil // buffers not yet fully populated
	}

	fastSMA := sma(s.fastBuf)
	slowSMA := sma(s.slowBuf)

	var side macSide
	switch {
	case fastSMA.GreaterThan(slowSMA):
		side = macSideAbove
	case fastSMA.LessThan(slowSMA):
		side = macSideBelow
	default:
		side = s.lastSide // exactly equal: no change
	}

	// prevSide is read before lastSide is overwritten with the current
	// bar's side. Its zero value, macSideUnknown, is what makes the first
	// fully-populated bar's own side establishment a crossing too: fast
	// and slow only coincide at macSideUnknown when a bar ties exactly, so
	// comparing against it here never produces a false crossing.
	prevSide := s.lastSide
	s.lastSide = side

	if side == prevSide || side == macSideUnknown {
		return nil, nil
	}
	if s.cooldownBars > 0 && s.barsSinceSeen < s.cooldownBars {
		return nil, nil
	}
	s.barsSinceSeen = 0

	var dir domain.SignalDirection
	if side == macSideAbove {
		dir = domain.Long
	} else {
		dir = domain.Short
	}

	return &domain.SignalEvent{
		Symbol:    s.symbol,
		Direction: dir,
		Strength:  1.0,
		Timestamp: event.Timestamp,
		Price:     event.Close,
	}, nil
}

func sma(buf []decimal.Decimal) decimal.Decimal {
	sum := decimal.Zero
	for _, v := range buf {
		sum = sum.Add(v)
	}
	return sum.Div(decimal.NewFromInt(int64(len(buf))))
}

func pushBounded(buf []decimal.Decimal, v decimal.Decimal, max int) []decimal.Decimal {
	buf = append(buf, v)
	if len(buf) > max {
		buf = buf[len(buf)-max:]
	}
	return buf
}
