package ports

import "tradecore/internal/domain"

// Strategy turns a stream of MarketEvents into SignalEvents. Implementations
// are stateful and MUST filter by symbol; they must never look ahead of the
// event currently being processed (§4.1).
type Strategy interface {
	// OnMarketEvent observes one event and optionally emits a signal. A
	// nil, nil return means "no opinion on this event."
	OnMarketEvent(event domain.MarketEvent) (*domain.SignalEvent, error)

	// Name identifies the strategy, e.g. for logging and the bot config's
	// strategy tag.
	Name() string
}
