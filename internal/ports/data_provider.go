package ports

import (
	"context"

	"tradecore/internal/domain"
)

// DataProvider produces a chronologically ordered sequence of MarketEvents,
// finite (historical) or infinite (live). The engine never reorders what it
// receives — a provider that delivers events out of order breaks §4.2's
// ordering guarantees.
type DataProvider interface {
	// NextEvent returns the next MarketEvent. A clean end of stream is
	// signaled either by domain.ErrDataStreamEnd (what the CSV provider
	// returns) or by (nil, nil); the engine treats both the same way. A
	// historical provider reads from a sorted in-memory buffer; a live
	// provider suspends on a read from its WebSocket connection.
	NextEvent(ctx context.Context) (*domain.MarketEvent, error)
}

// WarmupProvider is implemented by DataProviders that can supply recent
// closed bars before live processing starts (the CSV provider from its
// already-replayed bars, the live provider from the venue's historical
// candles), so a
// strategy's moving averages are already populated when the first live
// event arrives (§4.1, §4.8).
type WarmupProvider interface {
	Warmup(ctx context.Context, symbol string, interval string, n int) ([]domain.MarketEvent, error)
}
