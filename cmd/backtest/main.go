// Command backtest runs a single strategy against a historical CSV file
// through the same Engine a live bot uses, then prints a performance
// report. Mirrors the teacher's cmd/scanner/main.go flag-dispatch shape.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"

	"github.com/shopspring/decimal"

	"tradecore/internal/adapters/execution"
	"tradecore/internal/adapters/feed"
	"tradecore/internal/adapters/report"
	"tradecore/internal/application/engine"
	"tradecore/internal/ports"
	"tradecore/internal/risk"
	"tradecore/internal/strategy"
)

func main() {
	csvPath := flag.String("csv", "", "path to historical OHLCV CSV file (required)")
	symbol := flag.String("symbol", "", "symbol to trade (required)")
	strategyName := flag.String("strategy", strategy.NameMACrossover, "strategy tag: ma_crossover|quad_ma")
	strategyParams := flag.String("params", "{}", "JSON strategy parameters")
	initialCapital := flag.String("capital", "10000", "initial capital")
	riskPerTradePct := flag.Float64("risk-pct", 0.02, "fraction of leveraged equity risked per trade")
	maxPositionPct := flag.Float64("max-position-pct", 0.2, "hard per-position cap, fraction of leveraged equity")
	leverage := flag.Int("leverage", 1, "account leverage")
	slippageBps := flag.Float64("slippage-bps", 5, "simulated slippage, basis points")
	commissionRate := flag.Float64("commission-rate", 0.001, "simulated commission, fraction of notional")
	logFormat := flag.String("format", "text", "log format: text|json")
	flag.Parse()

	setupLogger(*logFormat)

	if *csvPath == "" || *symbol == "" {
		slog.Error("backtest requires -csv and -symbol")
		os.Exit(1)
	}

	capital, err := decimal.NewFromString(*initialCapital)
	if err != nil {
		slog.Error("invalid -capital", "err", err)
		os.Exit(1)
	}

	provider, err := feed.NewCSVDataProvider(*csvPath, nil)
	if err != nil {
		slog.Error("failed to load CSV", "err", err, "path", *csvPath)
		os.Exit(1)
	}

	strat, err := strategy.NewRegistry().Build(*strategyName, *symbol, json.RawMessage(*strategyParams))
	if err != nil {
		slog.Error("failed to build strategy", "err", err, "strategy", *strategyName)
		os.Exit(1)
	}

	riskMgr := risk.NewSimpleRiskManager(risk.Config{
		RiskPerTradePct: *riskPerTradePct,
		MaxPositionPct:  *maxPositionPct,
		Leverage:        *leverage,
	}, nil)

	sim := execution.NewSimulatedExecutionHandler(
		decimal.NewFromFloat(*slippageBps),
		decimal.NewFromFloat(*commissionRate),
	)

	eng := engine.New(provider, []ports.Strategy{strat}, riskMgr, sim, capital, nil)

	slog.Info("backtest starting", "symbol", *symbol, "strategy", *strategyName, "csv", *csvPath)

	metrics, err := eng.Run(context.Background())
	if err != nil {
		slog.Error("backtest failed", "err", err)
		os.Exit(1)
	}

	report.NewPrinter().Print(*symbol, *metrics)
}

func setupLogger(format string) {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
