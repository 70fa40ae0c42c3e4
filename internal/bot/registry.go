package bot

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"tradecore/internal/adapters/botstore"
	"tradecore/internal/adapters/execution"
	"tradecore/internal/adapters/feed"
	"tradecore/internal/adapters/venue"
	"tradecore/internal/application/engine"
	"tradecore/internal/domain"
	"tradecore/internal/ports"
	"tradecore/internal/risk"
	"tradecore/internal/strategy"

	"github.com/shopspring/decimal"
)

// VenueConfig carries the reference venue's network endpoints, shared by
// every live bot the registry spawns.
type VenueConfig struct {
	APIURL string
	WSURL  string
}

// defaultSlippageBps and defaultCommissionRate match the reference venue's
// published taker fee schedule closely enough for simulated fills; a bot
// config has no per-bot override for these since §4.7 treats them as
// venue-wide constants, not strategy parameters.
var (
	defaultSlippageBps    = decimal.NewFromInt(5)
	defaultCommissionRate = decimal.NewFromFloat(0.001)
)

// defaultStepInterval paces how often a running actor calls Engine.Step against a
// live feed between command-channel checks (§4.8). Used whenever the
// caller doesn't override it via NewRegistry's stepInterval argument.
const defaultStepInterval = 200 * time.Millisecond

// entry bundles one running (or stopped) bot's actor with the cancel func
// that tears down its goroutine.
type entry struct {
	actor  *Actor
	cancel context.CancelFunc
}

// Registry is the daemon-level owner of every bot instance: it constructs
// each bot's Engine, wires it to an Actor, and persists or removes the
// corresponding BotConfig (§4.9).
type Registry struct {
	store        *botstore.Store
	strategies   strategy.Registry
	venueCfg     VenueConfig
	stepInterval time.Duration
	logger       *slog.Logger

	mu      sync.Mutex
	entries map[string]*entry
}

// NewRegistry constructs a Registry backed by store. A zero stepInterval
// falls back to defaultStepInterval.
func NewRegistry(store *botstore.Store, strategies strategy.Registry, venueCfg VenueConfig, stepInterval time.Duration, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	if stepInterval <= 0 {
		stepInterval = defaultStepInterval
	}
	return &Registry{
		store:        store,
		strategies:   strategies,
		venueCfg:     venueCfg,
		stepInterval: stepInterval,
		logger:       logger,
		entries:      make(map[string]*entry),
	}
}

// SpawnBot validates cfg, writes it to the store, and only then spawns the
// bot's actor goroutine (Stopped until started). Persisting before the
// actor task exists is what §4.9 means by "crash safety: a bot either
// exists on disk or never existed" — a failed write rejects the spawn
// outright, before anything is running, rather than leaving a goroutine
// for a bot that doesn't exist on disk.
func (r *Registry) SpawnBot(ctx context.Context, cfg domain.BotConfig) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("bot.SpawnBot: %w", err)
	}

	r.mu.Lock()
	if _, exists := r.entries[cfg.BotID]; exists {
		r.mu.Unlock()
		return fmt.Errorf("bot.SpawnBot: %s: %w", cfg.BotID, domain.ErrConfigInvalid)
	}
	r.mu.Unlock()

	actor, runCtx, cancel, err := r.buildActor(cfg)
	if err != nil {
		return fmt.Errorf("bot.SpawnBot: %s: %w", cfg.BotID, err)
	}

	if err := r.store.SaveConfig(ctx, cfg); err != nil {
		cancel()
		return fmt.Errorf("bot.SpawnBot: %s: %w", cfg.BotID, err)
	}

	runActor(actor, runCtx)

	r.mu.Lock()
	r.entries[cfg.BotID] = &entry{actor: actor, cancel: cancel}
	r.mu.Unlock()

	if cfg.Enabled {
		if err := actor.Start(ctx); err != nil {
			r.logger.Warn("bot: failed to auto-start after spawn", "bot_id", cfg.BotID, "err", err)
		}
	}
	return nil
}

// RestoreFromDB loads every enabled config from the store and constructs an
// actor for each, always left Stopped regardless of the config's Enabled
// flag — a daemon restart never auto-resumes trading without an explicit
// Start, since the process that would have kept a position's context alive
// is gone (§4.9 Open Question: resolved in favor of operator confirmation).
func (r *Registry) RestoreFromDB(ctx context.Context) error {
	configs, err := r.store.LoadEnabledConfigs(ctx)
	if err != nil {
		return fmt.Errorf("bot.RestoreFromDB: %w", err)
	}

	for _, cfg := range configs {
		cfg.Wallet = r.loadWallet(cfg)

		actor, runCtx, cancel, err := r.buildActor(cfg)
		if err != nil {
			r.logger.Warn("bot: failed to restore, skipping", "bot_id", cfg.BotID, "err", err)
			continue
		}
		runActor(actor, runCtx)

		r.mu.Lock()
		r.entries[cfg.BotID] = &entry{actor: actor, cancel: cancel}
		r.mu.Unlock()

		if err := r.store.SaveRuntimeState(ctx, cfg.BotID, domain.BotStopped, time.Time{}, ""); err != nil {
			r.logger.Warn("bot: failed to record restored runtime state", "bot_id", cfg.BotID, "err", err)
		}
	}
	return nil
}

// loadWallet is a seam restore_from_db uses to repopulate venue credentials
// from the environment; the default looks nowhere and leaves Wallet nil.
// That is correct for every Paper-mode bot. A Live-mode config restored
// this way has no wallet, so buildActor rejects it and RestoreFromDB skips
// it with a warning; it is not registered.
func (r *Registry) loadWallet(domain.BotConfig) *domain.Wallet { return nil }

// RemoveBot shuts an actor down and deletes its persisted config. A bot
// must be stopped first by the caller if in-flight positions need to be
// closed deliberately — RemoveBot itself does not flatten positions.
func (r *Registry) RemoveBot(ctx context.Context, botID string) error {
	r.mu.Lock()
	e, ok := r.entries[botID]
	if ok {
		delete(r.entries, botID)
	}
	r.mu.Unlock()

	if ok {
		_ = e.actor.Shutdown(ctx)
		e.cancel()
	}

	if err := r.store.DeleteConfig(ctx, botID); err != nil {
		return fmt.Errorf("bot.RemoveBot: %s: %w", botID, err)
	}
	return nil
}

// ShutdownAll stops every running actor without touching persisted
// configs, for a clean daemon exit (§4.9).
func (r *Registry) ShutdownAll(ctx context.Context) {
	r.mu.Lock()
	entries := make([]*entry, 0, len(r.entries))
	for _, e := range r.entries {
		entries = append(entries, e)
	}
	r.mu.Unlock()

	for _, e := range entries {
		_ = e.actor.Shutdown(ctx)
		e.cancel()
	}
}

// Get returns the actor for botID, if any.
func (r *Registry) Get(botID string) (*Actor, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[botID]
	if !ok {
		return nil, false
	}
	return e.actor, true
}

// List returns every bot ID currently registered, running or stopped.
func (r *Registry) List() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	return ids
}

// buildActor wires cfg into a DataProvider, Strategy, RiskManager,
// ExecutionHandler, Engine, and finally an Actor, returning a cancel func
// that stops the actor's goroutine. It does not start the actor.
func (r *Registry) buildActor(cfg domain.BotConfig) (*Actor, context.Context, context.CancelFunc, error) {
	strat, err := r.strategies.Build(cfg.Strategy, cfg.Symbol, cfg.StrategyParams)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("build strategy: %w", err)
	}

	riskMgr := risk.NewSimpleRiskManager(risk.Config{
		RiskPerTradePct: cfg.RiskPerTradePct,
		MaxPositionPct:  cfg.MaxPositionPct,
		Leverage:        cfg.Leverage,
	}, r.logger)

	histClient := venue.NewClient(r.venueCfg.APIURL, r.logger)
	liveProvider := feed.NewLiveDataProvider(r.venueCfg.WSURL, cfg.Symbol, r.logger).WithHistorical(histClient)
	var provider ports.DataProvider = liveProvider

	var execHandler ports.ExecutionHandler
	switch cfg.ExecutionMode {
	case domain.ModePaper:
		if cfg.Wallet != nil {
			// §6: a Paper-mode bot with a wallet configured emits a warning
			// and ignores it — the wallet never reaches the execution leg.
			r.logger.Warn("bot: paper mode bot has a wallet configured, ignoring it", "bot_id", cfg.BotID)
		}
		sim := execution.NewSimulatedExecutionHandler(defaultSlippageBps, defaultCommissionRate)
		execHandler = execution.NewPaperTradingExecutionHandler(sim)
	case domain.ModeLive:
		if cfg.Wallet == nil {
			return nil, nil, nil, fmt.Errorf("live bot %s: %w", cfg.BotID, domain.ErrConfigInvalid)
		}
		client := venue.NewClient(r.venueCfg.APIURL, r.logger)
		live, err := venue.NewLiveExecutionHandler(client, cfg.Wallet, r.logger)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("build live execution handler: %w", err)
		}
		execHandler = live
	default:
		return nil, nil, nil, fmt.Errorf("bot %s: %w", cfg.BotID, domain.ErrConfigInvalid)
	}

	eng := engine.New(provider, []ports.Strategy{strat}, riskMgr, execHandler, cfg.InitialCapital, r.logger)

	runCtx, cancel := context.WithCancel(context.Background())
	warmup := WarmupConfig{
		Symbol:        cfg.Symbol,
		Interval:      formatInterval(cfg.Interval),
		WarmupPeriods: cfg.WarmupPeriods,
	}
	actor := New(cfg.BotID, eng, r.stepInterval, warmup, r.logger)

	// The actor's goroutine is not started here: buildActor only validates
	// and wires cfg into a runnable Actor. Callers start it with
	// runActor once any required persistence has gone through, so a
	// config that fails to persist never leaves a goroutine running for a
	// bot that doesn't exist on disk.
	return actor, runCtx, cancel, nil
}

// runActor starts actor's select loop goroutine, bound to runCtx.
func runActor(actor *Actor, runCtx context.Context) {
	go actor.Run(runCtx)
}

// formatInterval maps a BotConfig's interval duration to the short tag the
// venue's candle/subscription API expects (e.g. "1m", "1h"). Unrecognized
// durations fall back to "1m" rather than failing a spawn over a cosmetic
// label — only the warmup lookback window depends on it.
func formatInterval(d time.Duration) string {
	switch {
	case d <= 0:
		return "1m"
	case d%(24*time.Hour) == 0:
		return fmt.Sprintf("%dd", d/(24*time.Hour))
	case d%time.Hour == 0:
		return fmt.Sprintf("%dh", d/time.Hour)
	default:
		return fmt.Sprintf("%dm", d/time.Minute)
	}
}
