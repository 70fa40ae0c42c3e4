package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Position is the tracker's view of one symbol's open exposure. Quantity is
// signed: positive is long, negative is short. AvgEntryPrice is always
// strictly positive while the position is open; a Quantity of zero means
// the position is closed and the tracker removes the entry.
type Position struct {
	Symbol        string
	Quantity      decimal.Decimal
	AvgEntryPrice decimal.Decimal
	LastUpdate    time.Time
}

// IsLong reports whether the position is net long.
func (p Position) IsLong() bool {
	return p.Quantity.IsPositive()
}

// UnrealizedPnL marks the position to lastPrice. Long positions profit
// when lastPrice rises above AvgEntryPrice; short positions profit when it
// falls below.
func (p Position) UnrealizedPnL(lastPrice decimal.Decimal) decimal.Decimal {
	if p.Quantity.IsZero() {
		return decimal.Zero
	}
	return p.Quantity.Mul(lastPrice.Sub(p.AvgEntryPrice))
}

// PositionTracker maintains at most one Position per symbol and computes
// realized PnL as fills close them out. It holds no synchronization of its
// own — the engine that owns it drives all access from a single goroutine.
type PositionTracker struct {
	positions map[string]*Position
}

// NewPositionTracker returns an empty tracker.
func NewPositionTracker() *PositionTracker {
	return &PositionTracker{positions: make(map[string]*Position)}
}

// Position returns the open position for symbol, if any.
func (t *PositionTracker) Position(symbol string) (Position, bool) {
	p, ok := t.positions[symbol]
	if !ok {
		return Position{}, false
	}
	return *p, true
}

// Positions returns a snapshot of all currently open positions.
func (t *PositionTracker) Positions() []Position {
	out := make([]Position, 0, len(t.positions))
	for _, p := range t.positions {
		out = append(out, *p)
	}
	return out
}

// HasOpenPosition reports whether any symbol currently has an open position.
func (t *PositionTracker) HasOpenPosition() bool {
	return len(t.positions) > 0
}

// ProcessFill applies fill to the tracker and returns the realized PnL it
// produced, if any. See §4.3: a fill in the same direction as the existing
// position extends it at a weighted-average entry price and realizes
// nothing; a fill in the opposite direction closes (up to) |position.Quantity|
// of exposure, realizing PnL on the closed portion net of commission, and
// any remainder flips the position to a freshly opened one on the other
// side. A single fill realizes PnL at most once, even when it flips the
// position — the flip's new side is a fresh opening with no realized PnL
// of its own.
func (t *PositionTracker) ProcessFill(fill FillEvent) *decimal.Decimal {
	delta := fill.Quantity.Mul(decimal.NewFromInt(fill.Direction.Sign()))

	pos, exists := t.positions[fill.Symbol]
	if !exists {
		t.positions[fill.Symbol] = &Position{
			Symbol:        fill.Symbol,
			Quantity:      delta,
			AvgEntryPrice: fill.Price,
			LastUpdate:    fill.Timestamp,
		}
		return nil
	}

	sameDirection := (pos.Quantity.Sign() >= 0) == (delta.Sign() >= 0)
	if sameDirection {
		oldNotional := pos.Quantity.Abs().Mul(pos.AvgEntryPrice)
		addNotional := delta.Abs().Mul(fill.Price)
		newQty := pos.Quantity.Add(delta)
		pos.AvgEntryPrice = oldNotional.Add(addNotional).Div(newQty.Abs())
		pos.Quantity = newQty
		pos.LastUpdate = fill.Timestamp
		return nil
	}

	// Opposite direction: this fill reduces, and may cross through zero.
	closedQty := decimal.Min(delta.Abs(), pos.Quantity.Abs())

	var sign decimal.Decimal
	if pos.Quantity.IsPositive() {
		sign = decimal.NewFromInt(1) // closing a long: profit when exit > entry
	} else {
		sign = decimal.NewFromInt(-1) // closing a short: profit when exit < entry
	}
	realized := closedQty.Mul(fill.Price.Sub(pos.AvgEntryPrice)).Mul(sign).Sub(fill.Commission)

	remainingOnOldSide := pos.Quantity.Abs().Sub(closedQty)
	flipQty := delta.Abs().Sub(closedQty)

	switch {
	case remainingOnOldSide.IsZero() && flipQty.IsZero():
		delete(t.positions, fill.Symbol)
	case remainingOnOldSide.IsZero() && flipQty.IsPositive():
		// Fully closed the old side and opened a fresh position on the new one.
		pos.Quantity = flipQty.Mul(decimal.NewFromInt(delta.Sign()))
		pos.AvgEntryPrice = fill.Price
		pos.LastUpdate = fill.Timestamp
	default:
		// Old side partially reduced, still open.
		pos.Quantity = remainingOnOldSide.Mul(decimal.NewFromInt(pos.Quantity.Sign()))
		pos.LastUpdate = fill.Timestamp
	}

	return &realized
}
