package ports

import (
	"context"

	"tradecore/internal/domain"
)

// ExecutionHandler executes an OrderEvent and returns the resulting Fill.
// The simulated variant returns synthetically; the live variant issues a
// signed, authenticated venue request and may suspend for the duration of
// that round trip (§4.1, §4.7).
type ExecutionHandler interface {
	ExecuteOrder(ctx context.Context, order domain.OrderEvent) (domain.FillEvent, error)
}
