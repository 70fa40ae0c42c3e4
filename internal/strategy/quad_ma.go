package strategy

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"tradecore/internal/domain"
	"tradecore/internal/ports"
)

// NameQuadMA is the strategy tag resolved by the registry.
const NameQuadMA = "quad_ma"

// QuadMAParams configures QuadMA. Periods must be given fastest-first; the
// default is the Fibonacci sequence 5, 8, 13, 21 (§4.6).
type QuadMAParams struct {
	Periods []int `json:"periods"`
}

var defaultQuadMAPeriods = []int{5, 8, 13, 21}

// quadAlignment is the relative ordering of the four MAs.
type quadAlignment int

const (
	quadAlignmentNone quadAlignment = iota
	quadAlignmentBullish
	quadAlignmentBearish
)

// QuadMA is the Quad MA Alignment reference strategy: bullish alignment is
// MA1 > MA2 > MA3 > MA4 (fastest to slowest), bearish is the reverse. A
// signal fires only on the bar where alignment transitions into one of
// those two states, tracked via lastAlignment (§4.6).
//
// lastAlignment is the PRIOR bar's alignment, computed from the PRIOR
// bar's MAs; the transition check compares it against the current bar's
// newly-computed alignment. lastAlignment must be read before it is
// overwritten with the current bar's value, otherwise a bar is always
// compared against itself and no transition is ever observed (§4.6, §9).
// Its zero value, quadAlignmentNone, is what makes the first
// fully-populated bar's own bullish/bearish alignment a transition too —
// there is no separate baseline-establishing case.
type QuadMA struct {
	symbol  string
	periods []int

	buffers [][]decimal.Decimal

	lastAlignment quadAlignment
}

// NewQuadMA constructs the strategy for a single symbol.
func NewQuadMA(symbol string, params QuadMAParams) (*QuadMA, error) {
	periods := params.Periods
	if len(periods) == 0 {
		periods = defaultQuadMAPeriods
	}
	if len(periods) != 4 {
		return nil, fmt.Errorf("quad_ma: exactly 4 periods required: %w", domain.ErrConfigInvalid)
	}
	for i, p := range periods {
		if p <= 0 {
			return nil, fmt.Errorf("quad_ma: periods must be positive: %w", domain.ErrConfigInvalid)
		}
		if i > 0 && p <= periods[i-1] {
			return nil, fmt.Errorf("quad_ma: periods must be strictly increasing: %w", domain.ErrConfigInvalid)
		}
	}
	return &QuadMA{
		symbol:  symbol,
		periods: periods,
		buffers: make([][]decimal.Decimal, 4),
	}, nil
}

// NewQuadMAFromJSON adapts NewQuadMA to the registry Factory shape.
func NewQuadMAFromJSON(symbol string, raw []byte) (ports.Strategy, error) {
	var params QuadMAParams
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &params); err != nil {
			return nil, fmt.Errorf("quad_ma: parse params: %w: %w", err, domain.ErrConfigInvalid)
		}
	}
	return NewQuadMA(symbol, params)
}

// Name implements ports.Strategy.
func (s *QuadMA) Name() string { return NameQuadMA }

// OnMarketEvent implements ports.Strategy.
func (s *QuadMA) OnMarketEvent(event domain.MarketEvent) (*domain.SignalEvent, error) {
	if event.Symbol != s.symbol || !event.IsBar() {
		return nil, nil
	}

	for i, p := range s.periods {
		s.buffers[i] = pushBounded(s.buffers[i], event.Close, p)
	}

	for i, p := range s.periods {
		if len(s.buffers[i]) < p {
			return nil, nil
		}
	}

	currentMAs := make([]decimal.Decimal, 4)
	for i := range s.periods {
		currentMAs[i] = sma(s.buffers[i])
	}

	// Read lastAlignment (the prior bar's alignment) before overwriting it
	// with the current bar's — the foot-gun this guards against (§4.6).
	prevAlignment := s.lastAlignment
	newAlignment := alignmentOf(currentMAs)
	s.lastAlignment = newAlignment

	if newAlignment == prevAlignment || newAlignment == quadAlignmentNone {
		return nil, nil
	}

	var dir domain.SignalDirection
	switch newAlignment {
	case quadAlignmentBullish:
		dir = domain.Long
	case quadAlignmentBearish:
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

// alignmentOf classifies four MAs, fastest to slowest, as bullish
// (strictly decreasing), bearish (strictly increasing), or neither.
func alignmentOf(mas []decimal.Decimal) quadAlignment {
	bullish := true
	bearish := true
	for i := 1; i < len(mas); i++ {
		if !mas[i-1].GreaterThan(mas[i]) {
			bullish = false
		}
		if !mas[i-1].LessThan(mas[i]) {
			bearish = false
		}
	}
	switch {
	case bullish:
		return quadAlignmentBullish
	case bearish:
		return quadAlignmentBearish
	default:
		return quadAlignmentNone
	}
}
