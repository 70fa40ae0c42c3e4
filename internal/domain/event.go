package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// EventKind tags the variant carried by a MarketEvent.
type EventKind int

const (
	KindQuote EventKind = iota
	KindTrade
	KindBar
)

func (k EventKind) String() string {
	switch k {
	case KindQuote:
		return "quote"
	case KindTrade:
		return "trade"
	case KindBar:
		return "bar"
	default:
		return "unknown"
	}
}

// MarketEvent is the canonical shape for everything the data pipeline
// produces: a quote, a trade print, or an OHLCV bar. Every variant carries
// Symbol and Timestamp; the remaining fields are populated according to
// Kind and zero otherwise. MarketEvent is immutable after emission — no
// method on it mutates the receiver.
type MarketEvent struct {
	Kind      EventKind
	Symbol    string
	Timestamp time.Time

	// Quote fields
	Bid decimal.Decimal
	Ask decimal.Decimal

	// Trade fields
	Price decimal.Decimal
	Size  decimal.Decimal

	// Bar fields
	Open   decimal.Decimal
	High   decimal.Decimal
	Low    decimal.Decimal
	Close  decimal.Decimal
	Volume decimal.Decimal
}

// IsBar reports whether the event is an OHLCV candle.
func (e MarketEvent) IsBar() bool {
	return e.Kind == KindBar
}

// Mid returns the price to mark-to-market with: the bar close for a Bar,
// the last trade price for a Trade, and the bid/ask midpoint for a Quote.
func (e MarketEvent) Mid() decimal.Decimal {
	switch e.Kind {
	case KindBar:
		return e.Close
	case KindTrade:
		return e.Price
	case KindQuote:
		return e.Bid.Add(e.Ask).Div(decimal.NewFromInt(2))
	default:
		return decimal.Zero
	}
}

// Direction is the side of an order or fill.
type Direction int

const (
	Buy Direction = iota
	Sell
)

func (d Direction) String() string {
	if d == Sell {
		return "sell"
	}
	return "buy"
}

// Sign returns +1 for Buy and -1 for Sell, the sign convention used to
// turn an unsigned fill quantity into a signed position delta.
func (d Direction) Sign() int64 {
	if d == Sell {
		return -1
	}
	return 1
}

// SignalDirection is the exposure change a strategy is requesting.
type SignalDirection int

const (
	Long SignalDirection = iota
	Short
	Exit
)

func (d SignalDirection) String() string {
	switch d {
	case Long:
		return "long"
	case Short:
		return "short"
	case Exit:
		return "exit"
	default:
		return "unknown"
	}
}

// OrderType distinguishes a resting limit order from an immediate market order.
type OrderType int

const (
	Market OrderType = iota
	Limit
)

func (t OrderType) String() string {
	if t == Limit {
		return "limit"
	}
	return "market"
}

// SignalEvent is emitted by a Strategy when it wants to change exposure.
// Strength is advisory in [0,1] and carries no units on its own.
type SignalEvent struct {
	Symbol    string
	Direction SignalDirection
	Strength  float64
	Timestamp time.Time
	Price     decimal.Decimal
}

// OrderEvent is produced by a RiskManager from a SignalEvent. Price is
// always a value, never unset: for a Market order it is the price observed
// when the signal fired, for a Limit order the limit price. The simulated
// execution handler rejects an order whose Price is zero.
type OrderEvent struct {
	Symbol    string
	Type      OrderType
	Direction Direction
	Quantity  decimal.Decimal
	Price     decimal.Decimal
	Timestamp time.Time
}

// Notional returns Quantity × Price.
func (o OrderEvent) Notional() decimal.Decimal {
	return o.Quantity.Mul(o.Price)
}

// FillEvent is a confirmed, definite-price execution of some or all of an
// order. Commission is in quote-currency units and is deducted from
// realized PnL by the position tracker.
type FillEvent struct {
	OrderID    string
	Symbol     string
	Direction  Direction
	Quantity   decimal.Decimal
	Price      decimal.Decimal
	Commission decimal.Decimal
	Timestamp  time.Time
}

// Notional returns Quantity × Price, before commission.
func (f FillEvent) Notional() decimal.Decimal {
	return f.Quantity.Mul(f.Price)
}
