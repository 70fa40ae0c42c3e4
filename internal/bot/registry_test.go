package bot

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"tradecore/internal/adapters/botstore"
	"tradecore/internal/domain"
	"tradecore/internal/strategy"
)

func newTestRegistry(t *testing.T) (*Registry, *botstore.Store) {
	t.Helper()
	store, err := botstore.Open(filepath.Join(t.TempDir(), "bots.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	reg := NewRegistry(store, strategy.NewRegistry(), VenueConfig{APIURL: "http://unused", WSURL: "ws://unused"}, 10*time.Millisecond, nil)
	return reg, store
}

func paperConfig(botID string) domain.BotConfig {
	params, _ := json.Marshal(map[string]int{"fast_period": 2, "slow_period": 3})
	return domain.BotConfig{
		BotID:           botID,
		Symbol:          "BTC-USD",
		Strategy:        strategy.NameMACrossover,
		StrategyParams:  params,
		ExecutionMode:   domain.ModePaper,
		InitialCapital:  decimal.NewFromInt(10000),
		RiskPerTradePct: 0.1,
		MaxPositionPct:  0.5,
		Leverage:        1,
		WarmupPeriods:   0,
		Enabled:         false,
	}
}

func TestRegistry_SpawnPersistsConfigAndRejectsDuplicate(t *testing.T) {
	reg, store := newTestRegistry(t)
	ctx := context.Background()

	cfg := paperConfig("bot-1")
	require.NoError(t, reg.SpawnBot(ctx, cfg))

	_, ok := reg.Get("bot-1")
	require.True(t, ok)

	configs, err := store.LoadEnabledConfigs(ctx)
	require.NoError(t, err)
	require.Len(t, configs, 0) // Enabled=false, so not in the enabled set

	err = reg.SpawnBot(ctx, cfg)
	require.ErrorIs(t, err, domain.ErrConfigInvalid)
}

func TestRegistry_RemoveBotStopsAndDeletes(t *testing.T) {
	reg, _ := newTestRegistry(t)
	ctx := context.Background()

	cfg := paperConfig("bot-2")
	require.NoError(t, reg.SpawnBot(ctx, cfg))

	require.NoError(t, reg.RemoveBot(ctx, "bot-2"))
	_, ok := reg.Get("bot-2")
	require.False(t, ok)
}

func TestRegistry_RestoreFromDBAlwaysStopped(t *testing.T) {
	reg, store := newTestRegistry(t)
	ctx := context.Background()

	cfg := paperConfig("bot-3")
	cfg.Enabled = true
	require.NoError(t, store.SaveConfig(ctx, cfg))

	require.NoError(t, reg.RestoreFromDB(ctx))

	actor, ok := reg.Get("bot-3")
	require.True(t, ok)

	status, err := actor.GetStatus(ctx)
	require.NoError(t, err)
	require.Equal(t, domain.BotStopped, status.State)
}

func TestRegistry_ShutdownAllStopsEveryActor(t *testing.T) {
	reg, _ := newTestRegistry(t)
	ctx := context.Background()

	require.NoError(t, reg.SpawnBot(ctx, paperConfig("bot-4")))
	require.NoError(t, reg.SpawnBot(ctx, paperConfig("bot-5")))

	reg.ShutdownAll(ctx)

	time.Sleep(10 * time.Millisecond)
	require.Len(t, reg.List(), 2) // ShutdownAll stops actors but keeps registry entries
}
