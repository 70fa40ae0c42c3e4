// Package bot implements the actor that owns one running Engine: a single
// cooperative select loop driven by commands and engine steps, broadcasting
// BotEvents and answering GetStatus with a fresh status snapshot (§4.8).
package bot

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"tradecore/internal/application/engine"
	"tradecore/internal/domain"
)

// eventBufferSize bounds the ring buffer of recent BotEvents an actor
// retains for late subscribers, per the Open Question resolution: small
// enough to stay cheap, large enough to cover a brief reconnect gap.
const eventBufferSize = 10

// commandKind tags what a Command asks the actor to do.
type commandKind int

const (
	cmdStart commandKind = iota
	cmdPause
	cmdStop
	cmdUpdateConfig
	cmdGetStatus
	cmdShutdown
)

// Command is sent to an actor's command channel. done, if non-nil, is
// closed after the command has been applied (GetStatus instead sends a
// single EnhancedBotStatus value on statusCh).
type Command struct {
	kind       commandKind
	config     *domain.BotConfig
	statusCh   chan domain.EnhancedBotStatus
	done       chan struct{}
}

// Actor owns one Engine and drives it from a single goroutine. No other
// goroutine ever touches the Engine, the PositionTracker, or the
// MetricsAccumulator directly — everything crosses the boundary as a
// Command or is read from the published status (§9: "no back-pointers").
type Actor struct {
	botID  string
	eng    *engine.Engine
	logger *slog.Logger

	cmdCh      chan Command
	broadcast  chan domain.BotEvent
	subscribe  chan chan domain.BotEvent
	unsubscribe chan chan domain.BotEvent

	mu         sync.RWMutex
	state      domain.BotState
	errMessage string
	startedAt  time.Time
	numTrades  int

	ringBuf []domain.BotEvent
	ringPos int

	stepWait time.Duration

	symbol        string
	interval      string
	warmupPeriods int
}

// WarmupConfig carries the pieces of a BotConfig an Actor needs to prime
// its engine's strategies on the first Start, per §4.8's state machine:
// "build engine ... warm up the strategy by feeding warmup_periods
// historical events". Zero-value WarmupConfig (WarmupPeriods == 0) skips
// warmup entirely, the common case for a fresh Paper-mode bot.
type WarmupConfig struct {
	Symbol        string
	Interval      string
	WarmupPeriods int
}

// New constructs an Actor for eng, initially Stopped. stepWait paces how
// often the actor calls Engine.Step when Running — the live equivalent of
// a CSV provider's implicit pacing, since a live DataProvider suspends on
// its own receive and an actor must still be able to service commands
// between steps.
func New(botID string, eng *engine.Engine, stepWait time.Duration, warmup WarmupConfig, logger *slog.Logger) *Actor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Actor{
		botID:         botID,
		eng:           eng,
		logger:        logger,
		cmdCh:         make(chan Command),
		broadcast:     make(chan domain.BotEvent, 64),
		subscribe:     make(chan chan domain.BotEvent),
		unsubscribe:   make(chan chan domain.BotEvent),
		state:         domain.BotStopped,
		stepWait:      stepWait,
		symbol:        warmup.Symbol,
		interval:      warmup.Interval,
		warmupPeriods: warmup.WarmupPeriods,
	}
}

// Run drives the actor's select loop until ctx is canceled or a Shutdown
// command is processed. It is meant to be started with `go actor.Run(ctx)`
// by the registry that owns this Actor.
func (a *Actor) Run(ctx context.Context) {
	subscribers := make(map[chan domain.BotEvent]struct{})
	var ticker *time.Ticker
	var tickCh <-chan time.Time

	armTicker := func() {
		if ticker != nil {
			ticker.Stop()
		}
		if a.currentState() == domain.BotRunning {
			ticker = time.NewTicker(a.stepWait)
			tickCh = ticker.C
		} else {
			ticker = nil
			tickCh = nil
		}
	}

	for {
		select {
		case <-ctx.Done():
			a.setState(domain.BotStopped, "")
			return

		case sub := <-a.subscribe:
			subscribers[sub] = struct{}{}

		case sub := <-a.unsubscribe:
			delete(subscribers, sub)

		case evt := <-a.broadcast:
			a.recordEvent(evt)
			for sub := range subscribers {
				select {
				case sub <- evt:
				default:
				}
			}

		case cmd := <-a.cmdCh:
			a.handleCommand(ctx, cmd)
			armTicker()
			if cmd.kind == cmdShutdown {
				return
			}

		case <-tickCh:
			a.runOneStep(ctx)
		}
	}
}

func (a *Actor) handleCommand(ctx context.Context, cmd Command) {
	switch cmd.kind {
	case cmdStart:
		wasStopped := a.currentState() == domain.BotStopped
		if wasStopped || a.currentState() == domain.BotPaused {
			// Warmup runs on every Stopped → Running transition, not just
			// the first. Stop does not tear down or rebuild the engine: the
			// same strategy instances, positions and metrics are kept, and
			// the warmup bars are fed into buffers that may already hold
			// bars. Paused → Running skips warmup.
			if wasStopped && a.warmupPeriods > 0 {
				if err := a.eng.Warmup(ctx, a.symbol, a.interval, a.warmupPeriods); err != nil {
					a.setState(domain.BotError, err.Error())
					a.emit(domain.BotEvent{Kind: domain.EventError, Timestamp: time.Now().UTC(), Message: err.Error()})
					break
				}
			}
			a.mu.Lock()
			if a.startedAt.IsZero() {
				a.startedAt = time.Now().UTC()
			}
			a.mu.Unlock()
			a.setState(domain.BotRunning, "")
		}
	case cmdPause:
		if a.currentState() == domain.BotRunning {
			a.setState(domain.BotPaused, "")
		}
	case cmdStop:
		a.setState(domain.BotStopped, "")
	case cmdUpdateConfig:
		// Strategy/risk parameters are fixed at Engine construction in
		// this design (§9: fixed at construction); a config update takes
		// effect on the next spawn, not in place.
	case cmdGetStatus:
		if cmd.statusCh != nil {
			cmd.statusCh <- a.snapshot()
		}
	case cmdShutdown:
		a.setState(domain.BotStopped, "")
	}
	if cmd.done != nil {
		close(cmd.done)
	}
}

func (a *Actor) runOneStep(ctx context.Context) {
	result, done, err := a.eng.Step(ctx)
	if err != nil {
		a.setState(domain.BotError, err.Error())
		a.emit(domain.BotEvent{Kind: domain.EventError, Timestamp: time.Now().UTC(), Message: err.Error()})
		return
	}
	if done {
		a.setState(domain.BotStopped, "")
		return
	}

	a.emit(domain.BotEvent{Kind: domain.EventMarketUpdate, Timestamp: result.Event.Timestamp})

	for i := range result.Signals {
		a.emit(domain.BotEvent{Kind: domain.EventSignalGenerated, Timestamp: result.Event.Timestamp, Signal: &result.Signals[i]})
	}
	for i := range result.Orders {
		a.emit(domain.BotEvent{Kind: domain.EventOrderPlaced, Timestamp: result.Event.Timestamp, Order: &result.Orders[i]})
	}
	for i := range result.Fills {
		a.emit(domain.BotEvent{Kind: domain.EventOrderFilled, Timestamp: result.Event.Timestamp, Fill: &result.Fills[i]})
	}
	for _, realized := range result.Realized {
		a.mu.Lock()
		a.numTrades++
		a.mu.Unlock()
		a.emit(domain.BotEvent{
			Kind:      domain.EventTradeClosed,
			Timestamp: result.Event.Timestamp,
			PnL:       realized,
			Win:       realized.IsPositive(),
		})
	}
	for _, stepErr := range result.Errors {
		a.emit(domain.BotEvent{Kind: domain.EventError, Timestamp: result.Event.Timestamp, Message: stepErr.Error()})
	}
	a.emit(domain.BotEvent{Kind: domain.EventPositionUpdate, Timestamp: result.Event.Timestamp})
}

func (a *Actor) emit(evt domain.BotEvent) {
	select {
	case a.broadcast <- evt:
	default:
		a.logger.Warn("bot: broadcast buffer full, dropping event", "bot_id", a.botID, "kind", evt.Kind)
	}
}

func (a *Actor) recordEvent(evt domain.BotEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.ringBuf) < eventBufferSize {
		a.ringBuf = append(a.ringBuf, evt)
	} else {
		a.ringBuf[a.ringPos] = evt
		a.ringPos = (a.ringPos + 1) % eventBufferSize
	}
}

func (a *Actor) setState(state domain.BotState, errMessage string) {
	a.mu.Lock()
	a.state = state
	a.errMessage = errMessage
	a.mu.Unlock()
}

func (a *Actor) currentState() domain.BotState {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state
}

func (a *Actor) snapshot() domain.EnhancedBotStatus {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return domain.EnhancedBotStatus{
		BotID:        a.botID,
		State:        a.state,
		ErrorMessage: a.errMessage,
		StartedAt:    a.startedAt,
		LastUpdate:   time.Now().UTC(),
		Equity:       a.eng.Equity(),
		OpenPosition: len(a.eng.Positions()) > 0,
		NumTrades:    a.numTrades,
	}
}

// RecentEvents returns a snapshot of the bounded ring buffer of recent
// BotEvents, oldest first.
func (a *Actor) RecentEvents() []domain.BotEvent {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]domain.BotEvent, len(a.ringBuf))
	if len(a.ringBuf) < eventBufferSize {
		copy(out, a.ringBuf)
		return out
	}
	for i := 0; i < eventBufferSize; i++ {
		out[i] = a.ringBuf[(a.ringPos+i)%eventBufferSize]
	}
	return out
}

// Subscribe returns a channel that receives the BotEvents broadcast after
// subscription. An event is dropped for a subscriber whose channel buffer
// is full. Callers must call the returned unsubscribe func when done.
func (a *Actor) Subscribe() (ch <-chan domain.BotEvent, unsubscribe func()) {
	sub := make(chan domain.BotEvent, eventBufferSize)
	a.subscribe <- sub
	return sub, func() { a.unsubscribe <- sub }
}

// send dispatches cmd and blocks until the actor's loop has processed it.
func (a *Actor) send(ctx context.Context, kind commandKind, cfg *domain.BotConfig) error {
	done := make(chan struct{})
	cmd := Command{kind: kind, config: cfg, done: done}
	select {
	case a.cmdCh <- cmd:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Start transitions the actor from Stopped/Paused to Running.
func (a *Actor) Start(ctx context.Context) error { return a.send(ctx, cmdStart, nil) }

// Pause transitions a Running actor to Paused.
func (a *Actor) Pause(ctx context.Context) error { return a.send(ctx, cmdPause, nil) }

// Stop transitions the actor to Stopped.
func (a *Actor) Stop(ctx context.Context) error { return a.send(ctx, cmdStop, nil) }

// UpdateConfig is accepted but, per this design, takes effect only on the
// next spawn (see handleCommand).
func (a *Actor) UpdateConfig(ctx context.Context, cfg domain.BotConfig) error {
	return a.send(ctx, cmdUpdateConfig, &cfg)
}

// Shutdown stops the actor's loop permanently.
func (a *Actor) Shutdown(ctx context.Context) error { return a.send(ctx, cmdShutdown, nil) }

// GetStatus requests and returns a fresh status snapshot from the actor's
// own goroutine, so the caller never races the actor's state transitions.
func (a *Actor) GetStatus(ctx context.Context) (domain.EnhancedBotStatus, error) {
	statusCh := make(chan domain.EnhancedBotStatus, 1)
	cmd := Command{kind: cmdGetStatus, statusCh: statusCh}
	select {
	case a.cmdCh <- cmd:
	case <-ctx.Done():
		return domain.EnhancedBotStatus{}, ctx.Err()
	}
	select {
	case status := <-statusCh:
		return status, nil
	case <-ctx.Done():
		return domain.EnhancedBotStatus{}, ctx.Err()
	}
}

// State returns the actor's current state without round-tripping through
// the command channel — used by the registry for quick listings.
func (a *Actor) State() domain.BotState { return a.currentState() }
