package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"tradecore/internal/domain"
	"tradecore/internal/ports"
)

const (
	liveReconnectBaseWait = time.Second
	liveReconnectMaxWait  = 30 * time.Second
)

// wireBar is the JSON shape §6 specifies for a market-data subscription
// record: string fields so arbitrary-precision decimals parse exactly.
type wireBar struct {
	TimestampMs int64  `json:"timestamp_ms"`
	Open        string `json:"open"`
	High        string `json:"high"`
	Low         string `json:"low"`
	Close       string `json:"close"`
	Volume      string `json:"volume"`
}

// HistoricalFetcher is the narrow slice of a venue REST client a
// LiveDataProvider needs to satisfy ports.WarmupProvider: the
// historical-candles request of §6.
type HistoricalFetcher interface {
	HistoricalCandles(ctx context.Context, symbol, interval string, start, end time.Time) ([]domain.MarketEvent, error)
}

// LiveDataProvider subscribes to the venue's WebSocket market-data feed
// for one symbol and replays it as MarketEvents. It reconnects with
// exponential backoff on any read error, since a live bot must tolerate
// the feed dropping without the bot itself crashing (§4.1, §7).
type LiveDataProvider struct {
	wsURL      string
	symbol     string
	historical HistoricalFetcher
	logger     *slog.Logger

	conn    *websocket.Conn
	attempt int
}

// NewLiveDataProvider constructs a provider that will dial wsURL lazily on
// the first NextEvent call.
func NewLiveDataProvider(wsURL, symbol string, logger *slog.Logger) *LiveDataProvider {
	if logger == nil {
		logger = slog.Default()
	}
	return &LiveDataProvider{wsURL: wsURL, symbol: symbol, logger: logger}
}

// WithHistorical attaches a HistoricalFetcher, enabling Warmup. A provider
// with none attached returns an empty warmup with no error — a daemon
// running entirely in Paper mode against a venue with no historical
// endpoint configured still starts cleanly, just without primed buffers.
func (p *LiveDataProvider) WithHistorical(h HistoricalFetcher) *LiveDataProvider {
	p.historical = h
	return p
}

var _ ports.WarmupProvider = (*LiveDataProvider)(nil)

// Warmup implements ports.WarmupProvider by requesting the n most recent
// closed bars immediately preceding now over the REST historical-candles
// endpoint, so a strategy's moving averages are already populated when the
// first live WebSocket bar arrives (§4.1, §4.8).
func (p *LiveDataProvider) Warmup(ctx context.Context, symbol, interval string, n int) ([]domain.MarketEvent, error) {
	if p.historical == nil || n <= 0 {
		return nil, nil
	}
	end := time.Now().UTC()
	start := end.Add(-warmupLookback(interval, n))
	bars, err := p.historical.HistoricalCandles(ctx, symbol, interval, start, end)
	if err != nil {
		return nil, fmt.Errorf("feed.LiveDataProvider.Warmup: %w", err)
	}
	if len(bars) > n {
		bars = bars[len(bars)-n:]
	}
	return bars, nil
}

// warmupLookback estimates how far back to request so n bars of interval
// are virtually guaranteed to be in the window, padded generously since a
// venue may have gaps.
func warmupLookback(interval string, n int) time.Duration {
	step := intervalDuration(interval)
	return step * time.Duration(n*2+5)
}

func intervalDuration(interval string) time.Duration {
	switch interval {
	case "1m":
		return time.Minute
	case "5m":
		return 5 * time.Minute
	case "15m":
		return 15 * time.Minute
	case "1h":
		return time.Hour
	case "4h":
		return 4 * time.Hour
	case "1d":
		return 24 * time.Hour
	default:
		return time.Minute
	}
}

// NextEvent implements ports.DataProvider. It never returns
// ErrDataStreamEnd. A read error closes the connection and reconnects
// after an exponential backoff; an error while dialing or subscribing is
// returned to the caller without a retry, as is ctx's error once ctx is
// canceled. Malformed records are logged and skipped rather than
// surfaced as an error, per §6's "dropped with a warning" rule.
func (p *LiveDataProvider) NextEvent(ctx context.Context) (*domain.MarketEvent, error) {
	for {
		if p.conn == nil {
			if err := p.dial(ctx); err != nil {
				return nil, err
			}
		}

		var raw wireBar
		_, msg, err := p.conn.ReadMessage()
		if err != nil {
			p.logger.Warn("feed: websocket read failed, reconnecting", "symbol", p.symbol, "err", err)
			p.conn.Close()
			p.conn = nil
			if waitErr := p.backoff(ctx); waitErr != nil {
				return nil, waitErr
			}
			continue
		}

		if err := json.Unmarshal(msg, &raw); err != nil {
			p.logger.Warn("feed: malformed market data record, dropped", "symbol", p.symbol, "err", err)
			continue
		}

		event, err := wireBarToEvent(p.symbol, raw)
		if err != nil {
			p.logger.Warn("feed: malformed market data record, dropped", "symbol", p.symbol, "err", err)
			continue
		}

		p.attempt = 0
		return &event, nil
	}
}

func (p *LiveDataProvider) dial(ctx context.Context) error {
	u, err := url.Parse(p.wsURL)
	if err != nil {
		return fmt.Errorf("feed.LiveDataProvider: parse ws url: %w", err)
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("feed.LiveDataProvider: dial: %w: %w", err, domain.ErrVenueUnavailable)
	}
	sub := map[string]any{"type": "subscribe", "symbol": p.symbol}
	if err := conn.WriteJSON(sub); err != nil {
		conn.Close()
		return fmt.Errorf("feed.LiveDataProvider: subscribe: %w", err)
	}
	p.conn = conn
	return nil
}

func (p *LiveDataProvider) backoff(ctx context.Context) error {
	wait := time.Duration(math.Pow(2, float64(p.attempt))) * liveReconnectBaseWait
	if wait > liveReconnectMaxWait {
		wait = liveReconnectMaxWait
	}
	p.attempt++
	select {
	case <-time.After(wait):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func wireBarToEvent(symbol string, raw wireBar) (domain.MarketEvent, error) {
	open, err := decimal.NewFromString(raw.Open)
	if err != nil {
		return domain.MarketEvent{}, fmt.Errorf("parse open: %w", err)
	}
	high, err := decimal.NewFromString(raw.High)
	if err != nil {
		return domain.MarketEvent{}, fmt.Errorf("parse high: %w", err)
	}
	low, err := decimal.NewFromString(raw.Low)
	if err != nil {
		return domain.MarketEvent{}, fmt.Errorf("parse low: %w", err)
	}
	closePrice, err := decimal.NewFromString(raw.Close)
	if err != nil {
		return domain.MarketEvent{}, fmt.Errorf("parse close: %w", err)
	}
	volume, err := decimal.NewFromString(raw.Volume)
	if err != nil {
		return domain.MarketEvent{}, fmt.Errorf("parse volume: %w", err)
	}

	return domain.MarketEvent{
		Kind:      domain.KindBar,
		Symbol:    symbol,
		Timestamp: time.UnixMilli(raw.TimestampMs).UTC(),
		Open:      open,
		High:      high,
		Low:       low,
		Close:     closePrice,
		Volume:    volume,
	}, nil
}
