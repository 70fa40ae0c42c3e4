package bot

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"tradecore/internal/adapters/execution"
	"tradecore/internal/application/engine"
	"tradecore/internal/domain"
	"tradecore/internal/ports"
	"tradecore/internal/risk"
)

// chanProvider is a ports.DataProvider backed by a channel, standing in for
// a live feed: NextEvent blocks until an event is pushed or the channel is
// closed (clean end of stream), exactly like a WebSocket receive would.
type chanProvider struct {
	events chan domain.MarketEvent
}

func newChanProvider() *chanProvider {
	return &chanProvider{events: make(chan domain.MarketEvent, 16)}
}

func (p *chanProvider) NextEvent(ctx context.Context) (*domain.MarketEvent, error) {
	select {
	case e, ok := <-p.events:
		if !ok {
			return nil, nil
		}
		return &e, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *chanProvider) push(e domain.MarketEvent) { p.events <- e }

type noopStrategy struct{ name string }

func (noopStrategy) OnMarketEvent(domain.MarketEvent) (*domain.SignalEvent, error) { return nil, nil }
func (s noopStrategy) Name() string                                               { return s.name }

func newTestActor(t *testing.T) (*Actor, *chanProvider) {
	t.Helper()
	provider := newChanProvider()
	riskMgr := risk.NewSimpleRiskManager(risk.Config{RiskPerTradePct: 1, MaxPositionPct: 1, Leverage: 1}, nil)
	exec := execution.NewSimulatedExecutionHandler(decimal.Zero, decimal.Zero)
	eng := engine.New(provider, []ports.Strategy{noopStrategy{name: "noop"}}, riskMgr, exec, decimal.NewFromInt(10000), nil)

	actor := New("bot-actor-test", eng, 5*time.Millisecond, WarmupConfig{}, nil)
	return actor, provider
}

func bar(symbol string, closeAt float64, ts time.Time) domain.MarketEvent {
	v := decimal.NewFromFloat(closeAt)
	return domain.MarketEvent{Kind: domain.KindBar, Symbol: symbol, Timestamp: ts, Open: v, High: v, Low: v, Close: v, Volume: decimal.NewFromInt(1)}
}

func TestActor_StartRunsEngineSteps(t *testing.T) {
	actor, provider := newTestActor(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go actor.Run(ctx)

	sub, unsubscribe := actor.Subscribe()
	defer unsubscribe()

	require.NoError(t, actor.Start(ctx))

	status, err := actor.GetStatus(ctx)
	require.NoError(t, err)
	require.Equal(t, domain.BotRunning, status.State)

	provider.push(bar("BTC-USD", 100, time.Now().UTC()))

	select {
	case evt := <-sub:
		require.Equal(t, domain.EventMarketUpdate, evt.Kind)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for a MarketUpdate event after Start")
	}
}

func TestActor_PauseStopsProcessingWithoutTearingDownEngine(t *testing.T) {
	actor, provider := newTestActor(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go actor.Run(ctx)

	require.NoError(t, actor.Start(ctx))
	provider.push(bar("BTC-USD", 100, time.Now().UTC()))
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, actor.Pause(ctx))
	status, err := actor.GetStatus(ctx)
	require.NoError(t, err)
	require.Equal(t, domain.BotPaused, status.State)

	sub, unsubscribe := actor.Subscribe()
	defer unsubscribe()
	provider.push(bar("BTC-USD", 101, time.Now().UTC()))

	select {
	case evt := <-sub:
		t.Fatalf("actor processed an event while Paused: %+v", evt)
	case <-time.After(100 * time.Millisecond):
	}

	require.NoError(t, actor.Start(ctx))
	select {
	case evt := <-sub:
		require.Equal(t, domain.EventMarketUpdate, evt.Kind)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for processing to resume after Start from Paused")
	}
}

func TestActor_StopTransitionsToStopped(t *testing.T) {
	actor, _ := newTestActor(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go actor.Run(ctx)

	require.NoError(t, actor.Start(ctx))
	require.NoError(t, actor.Stop(ctx))

	status, err := actor.GetStatus(ctx)
	require.NoError(t, err)
	require.Equal(t, domain.BotStopped, status.State)
}

func TestActor_ShutdownEndsRunLoop(t *testing.T) {
	actor, _ := newTestActor(t)
	ctx := context.Background()

	runDone := make(chan struct{})
	go func() {
		actor.Run(ctx)
		close(runDone)
	}()

	require.NoError(t, actor.Start(ctx))
	require.NoError(t, actor.Shutdown(ctx))

	select {
	case <-runDone:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after Shutdown")
	}
}
