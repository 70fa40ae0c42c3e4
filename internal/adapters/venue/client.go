// Package venue implements ports.ExecutionHandler against the reference
// live venue (a Hyperliquid-shaped order-action API): asset-index lookup,
// nonce-stamped EIP-712-signed order submission, and an HTTP client with
// the rate-limited retry shape the teacher's Polymarket client uses.
package venue

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"sort"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"

	"tradecore/internal/domain"
	"tradecore/internal/venue"
)

// wireBar is the JSON shape §6 specifies for one OHLCV record, whether it
// arrives from the live subscription or a historical-candles page: string
// fields so arbitrary-precision decimals parse exactly.
type wireBar struct {
	TimestampMs int64  `json:"timestamp_ms"`
	Open        string `json:"open"`
	High        string `json:"high"`
	Low         string `json:"low"`
	Close       string `json:"close"`
	Volume      string `json:"volume"`
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

const (
	defaultAPIURL = "https://api.hyperliquid.xyz"
	maxRetries    = 3
	baseRetryWait = 500 * time.Millisecond

	// referenceChainID is the venue's own EIP-712 chain-id for order
	// signing, deliberately distinct from any underlying L2's chain-id
	// (§6's Open Question resolution).
	referenceChainID = 1337
)

// Client is the HTTP transport: rate limiting, retries with exponential
// backoff, and JSON decode, the same shape as the teacher's
// polymarket.Client.
type Client struct {
	http    *http.Client
	baseURL string
	logger  *slog.Logger
}

// NewClient constructs a Client. An empty baseURL defaults to mainnet.
func NewClient(baseURL string, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = defaultAPIURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		http:    &http.Client{Timeout: 10 * time.Second},
		baseURL: baseURL,
		logger:  logger,
	}
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	return c.doWithRetry(ctx, func() (*http.Response, error) {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal body: %w", err)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(b))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return c.http.Do(req)
	}, out)
}

func (c *Client) doWithRetry(ctx context.Context, fn func() (*http.Response, error), out any) error {
	limiter := venue.OrderLimiter()
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := limiter.Wait(ctx); err != nil {
			return fmt.Errorf("venue: rate limiter: %w", err)
		}

		resp, err := fn()
		if err != nil {
			if attempt == maxRetries {
				return fmt.Errorf("venue: request failed after %d retries: %w: %w", maxRetries, err, domain.ErrVenueUnavailable)
			}
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			resp.Body.Close()
			c.logger.Warn("venue: rate limited", "attempt", attempt+1)
			c.sleep(ctx, attempt)
			continue
		}
		if resp.StatusCode >= 500 {
			resp.Body.Close()
			if attempt == maxRetries {
				return fmt.Errorf("venue: server error %d after %d retries: %w", resp.StatusCode, maxRetries, domain.ErrVenueUnavailable)
			}
			c.sleep(ctx, attempt)
			continue
		}
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			return fmt.Errorf("venue: auth rejected: %s: %w", body, domain.ErrAuthFailure)
		}
		if resp.StatusCode >= 400 {
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			return fmt.Errorf("venue: rejected %d: %s: %w", resp.StatusCode, body, domain.ErrVenueRejected)
		}

		defer resp.Body.Close()
		if out != nil {
			if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
				return fmt.Errorf("venue: decode response: %w", err)
			}
		}
		return nil
	}
	return fmt.Errorf("venue: exhausted %d retries: %w", maxRetries, domain.ErrVenueUnavailable)
}

func (c *Client) sleep(ctx context.Context, attempt int) {
	wait := time.Duration(math.Pow(2, float64(attempt))) * baseRetryWait
	select {
	case <-time.After(wait):
	case <-ctx.Done():
	}
}

// AssetIndex looks up the venue's integer index for symbol via the
// startup asset-index mapping request (§6).
func (c *Client) AssetIndex(ctx context.Context, symbol string) (int, error) {
	var out struct {
		Indices map[string]int `json:"indices"`
	}
	if err := c.post(ctx, "/info", map[string]string{"type": "meta"}, &out); err != nil {
		return 0, err
	}
	idx, ok := out.Indices[symbol]
	if !ok {
		return 0, fmt.Errorf("venue: unknown symbol %s: %w", symbol, domain.ErrVenueRejected)
	}
	return idx, nil
}

// historicalPageLimit is the venue's documented cap on candles returned by
// a single historical-candles request (§6); a wider start/end window is
// paginated by walking the window forward page by page.
const historicalPageLimit = 5000

// HistoricalCandles fetches chronologically sorted OHLCV bars for symbol
// over [start, end), paginating at the venue's per-request cap and
// deduplicating by timestamp across page boundaries (§6).
func (c *Client) HistoricalCandles(ctx context.Context, symbol, interval string, start, end time.Time) ([]domain.MarketEvent, error) {
	seen := make(map[int64]struct{})
	var out []domain.MarketEvent

	cursor := start
	for cursor.Before(end) {
		var page []wireBar
		err := c.post(ctx, "/info", map[string]any{
			"type":      "candles",
			"symbol":    symbol,
			"interval":  interval,
			"start_ms":  cursor.UnixMilli(),
			"end_ms":    end.UnixMilli(),
			"limit":     historicalPageLimit,
		}, &page)
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			break
		}

		var last time.Time
		for _, raw := range page {
			if _, dup := seen[raw.TimestampMs]; dup {
				continue
			}
			seen[raw.TimestampMs] = struct{}{}
			event, err := wireBarToEvent(symbol, raw)
			if err != nil {
				c.logger.Warn("venue: malformed historical candle, dropped", "symbol", symbol, "err", err)
				continue
			}
			out = append(out, event)
			if event.Timestamp.After(last) {
				last = event.Timestamp
			}
		}

		if len(page) < historicalPageLimit || !last.After(cursor) {
			break
		}
		cursor = last.Add(time.Millisecond)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

// wallet bundles the signing key and derived address, parsed once at
// LiveExecutionHandler construction.
type wallet struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

func parseWallet(w *domain.Wallet) (*wallet, error) {
	if w == nil {
		return nil, fmt.Errorf("venue: live execution requires a wallet: %w", domain.ErrConfigInvalid)
	}
	key, err := crypto.HexToECDSA(trimHexPrefix(w.PrivateKeyHex))
	if err != nil {
		return nil, fmt.Errorf("venue: invalid private key: %w: %w", err, domain.ErrAuthFailure)
	}
	return &wallet{key: key, address: crypto.PubkeyToAddress(key.PublicKey)}, nil
}

func trimHexPrefix(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}
