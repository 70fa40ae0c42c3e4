package domain

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// ExecutionMode selects which ExecutionHandler a bot's engine is built
// with. The DataProvider is identical in both modes — only the execution
// leg differs — which is what makes paper trading a faithful rehearsal of
// live trading (§4.7).
type ExecutionMode string

const (
	ModeLive  ExecutionMode = "live"
	ModePaper ExecutionMode = "paper"
)

// MarginMode selects cross- or isolated-margin accounting on the venue.
type MarginMode string

const (
	MarginCross    MarginMode = "cross"
	MarginIsolated MarginMode = "isolated"
)

// Wallet holds venue credentials loaded from the process environment. It
// is never serialized: BotConfig.MarshalJSON below omits it entirely, and
// callers must not add a `json` tag to this field anywhere else.
type Wallet struct {
	PrivateKeyHex string
	Address       string
}

// BotConfig is the full description of one bot instance. Wallet is loaded
// from the environment at bot-start time and is deliberately excluded from
// JSON marshaling (see MarshalJSON) so it can never reach the persistence
// store — the secrets policy of §4.9.
type BotConfig struct {
	BotID            string
	Symbol           string
	Strategy         string
	StrategyParams   json.RawMessage
	Interval         time.Duration
	ExecutionMode    ExecutionMode
	InitialCapital   decimal.Decimal
	RiskPerTradePct  float64
	MaxPositionPct   float64
	Leverage         int
	MarginMode       MarginMode
	WarmupPeriods    int
	Enabled          bool
	Wallet           *Wallet
}

// botConfigJSON is the serializable shadow of BotConfig — identical field
// set minus Wallet. Keeping it as a distinct type means a future field
// added to BotConfig can't silently leak into storage without also being
// added here.
type botConfigJSON struct {
	BotID           string          `json:"bot_id"`
	Symbol          string          `json:"symbol"`
	Strategy        string          `json:"strategy"`
	StrategyParams  json.RawMessage `json:"strategy_params"`
	Interval        time.Duration   `json:"interval"`
	ExecutionMode   ExecutionMode   `json:"execution_mode"`
	InitialCapital  decimal.Decimal `json:"initial_capital"`
	RiskPerTradePct float64         `json:"risk_per_trade_pct"`
	MaxPositionPct  float64         `json:"max_position_pct"`
	Leverage        int             `json:"leverage"`
	MarginMode      MarginMode      `json:"margin_mode"`
	WarmupPeriods   int             `json:"warmup_periods"`
	Enabled         bool            `json:"enabled"`
}

// MarshalJSON implements json.Marshaler, deliberately skipping Wallet.
func (c BotConfig) MarshalJSON() ([]byte, error) {
	return json.Marshal(botConfigJSON{
		BotID:           c.BotID,
		Symbol:          c.Symbol,
		Strategy:        c.Strategy,
		StrategyParams:  c.StrategyParams,
		Interval:        c.Interval,
		ExecutionMode:   c.ExecutionMode,
		InitialCapital:  c.InitialCapital,
		RiskPerTradePct: c.RiskPerTradePct,
		MaxPositionPct:  c.MaxPositionPct,
		Leverage:        c.Leverage,
		MarginMode:      c.MarginMode,
		WarmupPeriods:   c.WarmupPeriods,
		Enabled:         c.Enabled,
	})
}

// UnmarshalJSON implements json.Unmarshaler. Wallet is always nil after
// restore — it must be reloaded from the environment by the caller.
func (c *BotConfig) UnmarshalJSON(data []byte) error {
	var shadow botConfigJSON
	if err := json.Unmarshal(data, &shadow); err != nil {
		return err
	}
	c.BotID = shadow.BotID
	c.Symbol = shadow.Symbol
	c.Strategy = shadow.Strategy
	c.StrategyParams = shadow.StrategyParams
	c.Interval = shadow.Interval
	c.ExecutionMode = shadow.ExecutionMode
	c.InitialCapital = shadow.InitialCapital
	c.RiskPerTradePct = shadow.RiskPerTradePct
	c.MaxPositionPct = shadow.MaxPositionPct
	c.Leverage = shadow.Leverage
	c.MarginMode = shadow.MarginMode
	c.WarmupPeriods = shadow.WarmupPeriods
	c.Enabled = shadow.Enabled
	c.Wallet = nil
	return nil
}

// Validate rejects configs that would otherwise fail later in confusing
// ways. spawn_bot must call this before ever writing to the store (§4.9,
// §7: ConfigInvalid never transitions to Running).
func (c BotConfig) Validate() error {
	switch {
	case c.BotID == "":
		return errConfigField("bot_id is required")
	case c.Symbol == "":
		return errConfigField("symbol is required")
	case c.Strategy == "":
		return errConfigField("strategy tag is required")
	case c.Leverage < 1 || c.Leverage > 50:
		return errConfigField("leverage must be in 1..=50")
	case c.RiskPerTradePct <= 0 || c.RiskPerTradePct > 1:
		return errConfigField("risk_per_trade_pct must be in (0,1]")
	case c.MaxPositionPct <= 0 || c.MaxPositionPct > 1:
		return errConfigField("max_position_pct must be in (0,1]")
	case c.WarmupPeriods < 0:
		return errConfigField("warmup_periods must be non-negative")
	case c.ExecutionMode != ModeLive && c.ExecutionMode != ModePaper:
		return errConfigField("execution_mode must be live or paper")
	case c.InitialCapital.IsNegative() || c.InitialCapital.IsZero():
		return errConfigField("initial_capital must be positive")
	}
	return nil
}

func errConfigField(msg string) error {
	return &configFieldError{msg: msg}
}

type configFieldError struct{ msg string }

func (e *configFieldError) Error() string { return "bot config: " + e.msg }
func (e *configFieldError) Unwrap() error { return ErrConfigInvalid }

// BotState is a bot's lifecycle state (§4.8).
type BotState string

const (
	BotStopped BotState = "stopped"
	BotRunning BotState = "running"
	BotPaused  BotState = "paused"
	BotError   BotState = "error"
)

// BotEventKind tags the variant carried by a BotEvent.
type BotEventKind int

const (
	EventMarketUpdate BotEventKind = iota
	EventSignalGenerated
	EventOrderPlaced
	EventOrderFilled
	EventPositionUpdate
	EventTradeClosed
	EventError
)

// BotEvent is broadcast on a bot's event channel after every processed
// engine step (§3, §4.8).
type BotEvent struct {
	Kind      BotEventKind
	Timestamp time.Time
	Signal    *SignalEvent
	Order     *OrderEvent
	Fill      *FillEvent
	PnL       decimal.Decimal
	Win       bool
	Message   string
}

// EnhancedBotStatus is the status snapshot a bot actor builds on request
// (Actor.GetStatus) from its current state — the status channel of §7's
// three visibility channels.
type EnhancedBotStatus struct {
	BotID        string
	State        BotState
	ErrorMessage string
	StartedAt    time.Time
	LastUpdate   time.Time
	Equity       decimal.Decimal
	OpenPosition bool
	NumTrades    int
}
