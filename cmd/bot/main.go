// Command bot runs the trading daemon: it restores persisted bots from the
// bot-state database, loads and spawns any bot config files found under
// -bots-dir, then blocks until a shutdown signal arrives. Mirrors the
// teacher's cmd/scanner/main.go signal.NotifyContext shutdown pattern.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"tradecore/config"
	"tradecore/internal/adapters/botstore"
	"tradecore/internal/bot"
	"tradecore/internal/domain"
	"tradecore/internal/strategy"
)

// botFile is the on-disk YAML shape for one bot definition under -bots-dir.
// It is distinct from domain.BotConfig because YAML authors write strategy
// params as a plain mapping, not an opaque JSON blob.
type botFile struct {
	BotID           string         `yaml:"bot_id"`
	Symbol          string         `yaml:"symbol"`
	Strategy        string         `yaml:"strategy"`
	StrategyParams  map[string]any `yaml:"strategy_params"`
	IntervalSeconds int            `yaml:"interval_seconds"`
	ExecutionMode   string         `yaml:"execution_mode"`
	InitialCapital  string         `yaml:"initial_capital"`
	RiskPerTradePct float64        `yaml:"risk_per_trade_pct"`
	MaxPositionPct  float64        `yaml:"max_position_pct"`
	Leverage        int            `yaml:"leverage"`
	MarginMode      string         `yaml:"margin_mode"`
	WarmupPeriods   int            `yaml:"warmup_periods"`
	Enabled         bool           `yaml:"enabled"`
}

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to daemon config file")
	botsDir := flag.String("bots-dir", "config/bots", "directory of bot config YAML files")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}
	setupLogger(cfg.Log)

	slog.Info("tradecore bot daemon starting", "database", cfg.Daemon.DatabasePath, "bots_dir", *botsDir)

	store, err := botstore.Open(cfg.Daemon.DatabasePath)
	if err != nil {
		slog.Error("failed to open bot store", "err", err)
		os.Exit(1)
	}
	defer store.Close()

	registry := bot.NewRegistry(store, strategy.NewRegistry(), bot.VenueConfig{
		APIURL: cfg.Venue.APIURL,
		WSURL:  cfg.Venue.WSURL,
	}, cfg.StepInterval(), slog.Default())

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := registry.RestoreFromDB(ctx); err != nil {
		slog.Error("failed to restore bots from database", "err", err)
		os.Exit(1)
	}

	loadBotFiles(ctx, registry, *botsDir)

	slog.Info("tradecore bot daemon running — press Ctrl+C to stop")
	<-ctx.Done()

	slog.Info("shutting down, stopping all bots")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	registry.ShutdownAll(shutdownCtx)

	slog.Info("tradecore bot daemon stopped cleanly")
}

func loadBotFiles(ctx context.Context, registry *bot.Registry, dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		slog.Warn("no bot config directory found, skipping", "dir", dir, "err", err)
		return
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		cfg, err := loadBotFile(path)
		if err != nil {
			slog.Error("failed to load bot config, skipping", "path", path, "err", err)
			continue
		}

		if cfg.ExecutionMode == domain.ModeLive {
			if keyHex, address, ok := config.Wallet(); ok {
				cfg.Wallet = &domain.Wallet{PrivateKeyHex: keyHex, Address: address}
			}
		}

		if err := registry.SpawnBot(ctx, *cfg); err != nil {
			slog.Error("failed to spawn bot", "bot_id", cfg.BotID, "path", path, "err", err)
		}
	}
}

func loadBotFile(path string) (*domain.BotConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var f botFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}

	params, err := json.Marshal(f.StrategyParams)
	if err != nil {
		return nil, err
	}

	capital, err := decimal.NewFromString(f.InitialCapital)
	if err != nil {
		return nil, err
	}

	cfg := &domain.BotConfig{
		BotID:           f.BotID,
		Symbol:          f.Symbol,
		Strategy:        f.Strategy,
		StrategyParams:  params,
		Interval:        time.Duration(f.IntervalSeconds) * time.Second,
		ExecutionMode:   domain.ExecutionMode(f.ExecutionMode),
		InitialCapital:  capital,
		RiskPerTradePct: f.RiskPerTradePct,
		MaxPositionPct:  f.MaxPositionPct,
		Leverage:        f.Leverage,
		MarginMode:      domain.MarginMode(f.MarginMode),
		WarmupPeriods:   f.WarmupPeriods,
		Enabled:         f.Enabled,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
