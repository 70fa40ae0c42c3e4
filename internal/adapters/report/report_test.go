package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"tradecore/internal/domain"
)

func TestPrinter_NoTradesBanner(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinterTo(&buf)

	metrics := domain.PerformanceMetrics{
		StartTime:      time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		EndTime:        time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC),
		InitialCapital: decimal.NewFromInt(10000),
		FinalCapital:   decimal.NewFromInt(10000),
		EquityPeak:     decimal.NewFromInt(10000),
		NumTrades:      0,
	}

	p.Print("BTC-USD", metrics)
	require.Contains(t, buf.String(), "NO TRADES EXECUTED")
	require.NotContains(t, buf.String(), "Trade Statistics")
}

func TestPrinter_RendersTradeSections(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinterTo(&buf)

	metrics := domain.PerformanceMetrics{
		StartTime:      time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		EndTime:        time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC),
		InitialCapital: decimal.NewFromInt(10000),
		FinalCapital:   decimal.NewFromInt(10500),
		EquityPeak:     decimal.NewFromInt(10600),
		TotalReturn:    0.05,
		NumTrades:      1,
		WinRate:        1.0,
		Trades: []domain.FillEvent{
			{
				Symbol:     "BTC-USD",
				Direction:  domain.Buy,
				Quantity:   decimal.NewFromInt(1),
				Price:      decimal.NewFromInt(100),
				Commission: decimal.NewFromFloat(0.1),
				Timestamp:  time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC),
			},
		},
	}

	p.Print("BTC-USD", metrics)
	out := buf.String()
	require.Contains(t, out, "Trade Statistics")
	require.Contains(t, out, "Trade List")
	require.True(t, strings.Contains(out, "BTC-USD"))
}
