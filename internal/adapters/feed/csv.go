// Package feed implements ports.DataProvider: a historical CSV reader and a
// live WebSocket subscriber, sharing nothing but the interface.
package feed

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"tradecore/internal/domain"
	"tradecore/internal/ports"
)

// csvRequiredColumns lists the columns §6 specifies for historical data
// files. Files may list columns in any order; only these names are
// required.
var csvRequiredColumns = []string{"timestamp", "symbol", "open", "high", "low", "close", "volume"}

// CSVDataProvider reads OHLCV bars from a CSV file, sorts them by
// timestamp before emission (rows MAY be unsorted on disk per §6), and
// replays them one at a time through NextEvent.
type CSVDataProvider struct {
	bars   []domain.MarketEvent
	cursor int
	logger *slog.Logger
}

// NewCSVDataProvider reads and sorts path entirely into memory. Historical
// runs are bounded in size, so this trades memory for the simplicity of
// "sort once, replay forever" rather than a streaming merge.
func NewCSVDataProvider(path string, logger *slog.Logger) (*CSVDataProvider, error) {
	if logger == nil {
		logger = slog.Default()
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("feed.NewCSVDataProvider: open %s: %w", path, err)
	}
	defer f.Close()

	bars, err := parseCSV(bufio.NewReader(f), logger)
	if err != nil {
		return nil, fmt.Errorf("feed.NewCSVDataProvider: %w", err)
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Timestamp.Before(bars[j].Timestamp) })

	return &CSVDataProvider{bars: bars, logger: logger}, nil
}

func parseCSV(r io.Reader, logger *slog.Logger) ([]domain.MarketEvent, error) {
	reader := csv.NewReader(r)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}
	for _, required := range csvRequiredColumns {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("missing required column %q", required)
		}
	}

	var bars []domain.MarketEvent
	lineNum := 1
	for {
		lineNum++
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			logger.Warn("feed: malformed CSV row, dropped", "line", lineNum, "err", err)
			continue
		}

		event, err := rowToEvent(record, col)
		if err != nil {
			logger.Warn("feed: malformed CSV row, dropped", "line", lineNum, "err", err)
			continue
		}
		bars = append(bars, event)
	}
	return bars, nil
}

func rowToEvent(record []string, col map[string]int) (domain.MarketEvent, error) {
	ts, err := time.Parse(time.RFC3339, record[col["timestamp"]])
	if err != nil {
		return domain.MarketEvent{}, fmt.Errorf("parse timestamp: %w", err)
	}

	open, err := decimal.NewFromString(record[col["open"]])
	if err != nil {
		return domain.MarketEvent{}, fmt.Errorf("parse open: %w", err)
	}
	high, err := decimal.NewFromString(record[col["high"]])
	if err != nil {
		return domain.MarketEvent{}, fmt.Errorf("parse high: %w", err)
	}
	low, err := decimal.NewFromString(record[col["low"]])
	if err != nil {
		return domain.MarketEvent{}, fmt.Errorf("parse low: %w", err)
	}
	closePrice, err := decimal.NewFromString(record[col["close"]])
	if err != nil {
		return domain.MarketEvent{}, fmt.Errorf("parse close: %w", err)
	}
	volume, err := decimal.NewFromString(record[col["volume"]])
	if err != nil {
		return domain.MarketEvent{}, fmt.Errorf("parse volume: %w", err)
	}

	return domain.MarketEvent{
		Kind:      domain.KindBar,
		Symbol:    record[col["symbol"]],
		Timestamp: ts,
		Open:      open,
		High:      high,
		Low:       low,
		Close:     closePrice,
		Volume:    volume,
	}, nil
}

var _ ports.DataProvider = (*CSVDataProvider)(nil)
var _ ports.WarmupProvider = (*CSVDataProvider)(nil)

// NextEvent implements ports.DataProvider, returning ErrDataStreamEnd once
// every bar has been replayed.
func (p *CSVDataProvider) NextEvent(ctx context.Context) (*domain.MarketEvent, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	if p.cursor >= len(p.bars) {
		return nil, domain.ErrDataStreamEnd
	}
	event := p.bars[p.cursor]
	p.cursor++
	return &event, nil
}

// Warmup implements ports.WarmupProvider, returning the n most recent bars
// for symbol strictly before the current replay cursor — it primes
// strategy state without consuming bars the engine will later replay.
func (p *CSVDataProvider) Warmup(_ context.Context, symbol, _ string, n int) ([]domain.MarketEvent, error) {
	var matched []domain.MarketEvent
	for _, b := range p.bars[:p.cursor] {
		if b.Symbol == symbol {
			matched = append(matched, b)
		}
	}
	if len(matched) > n {
		matched = matched[len(matched)-n:]
	}
	return matched, nil
}
