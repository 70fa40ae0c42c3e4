package strategy

import (
	"tradecore/internal/domain"
	"tradecore/internal/ports"
)

// Registry holds the strategy constructors a bot's Strategy tag (§3
// BotConfig.Strategy) can resolve to. It mirrors the teacher's
// name-indexed registry pattern, generalized to the factory shape a bot
// needs: strategies are stateful and single-symbol, so the registry holds
// constructors, not shared instances.
type Registry map[string]Factory

// Factory builds a fresh, single-symbol Strategy instance from its opaque
// JSON params. Each bot gets its own instance — strategies must never be
// shared across bots, since their internal buffers are per-symbol state.
type Factory func(symbol string, params []byte) (ports.Strategy, error)

// NewRegistry returns a registry pre-populated with the two reference
// strategies this package ships (§4.6).
func NewRegistry() Registry {
	r := make(Registry)
	r.Register(NameMACrossover, NewMACrossoverFromJSON)
	r.Register(NameQuadMA, NewQuadMAFromJSON)
	return r
}

// Register adds or replaces a factory under name.
func (r Registry) Register(name string, f Factory) {
	r[name] = f
}

// Build resolves name and constructs a strategy instance for symbol.
func (r Registry) Build(name, symbol string, params []byte) (ports.Strategy, error) {
	f, ok := r[name]
	if !ok {
		return nil, &unknownStrategyError{name: name}
	}
	return f(symbol, params)
}

type unknownStrategyError struct{ name string }

func (e *unknownStrategyError) Error() string {
	return "strategy: unknown strategy tag " + e.name
}

func (e *unknownStrategyError) Unwrap() error { return domain.ErrConfigInvalid }
