package venue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/shopspring/decimal"

	"tradecore/internal/domain"
	"tradecore/internal/ports"
	"tradecore/internal/venue"
)

// LiveExecutionHandler implements ports.ExecutionHandler against the
// reference venue: it resolves each symbol to an asset index once, stamps
// every order with the next nonce for the signing wallet, signs it
// EIP-712, and submits it over the rate-limited client (§4.7, §6).
type LiveExecutionHandler struct {
	client *Client
	wallet *wallet
	logger *slog.Logger

	mu         sync.Mutex
	assetIndex map[string]int
}

// NewLiveExecutionHandler constructs a handler for one bot's wallet. A nil
// wallet is a configuration error — a Paper-mode bot must never reach this
// constructor (§6: "a bot in Paper mode with a wallet configured emits a
// warning; the wallet is ignored" describes the OPPOSITE direction, a
// wallet present in Paper mode, which this package never sees).
func NewLiveExecutionHandler(client *Client, w *domain.Wallet, logger *slog.Logger) (*LiveExecutionHandler, error) {
	parsed, err := parseWallet(w)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &LiveExecutionHandler{
		client:     client,
		wallet:     parsed,
		logger:     logger,
		assetIndex: make(map[string]int),
	}, nil
}

var _ ports.ExecutionHandler = (*LiveExecutionHandler)(nil)

// ExecuteOrder implements ports.ExecutionHandler.
func (h *LiveExecutionHandler) ExecuteOrder(ctx context.Context, order domain.OrderEvent) (domain.FillEvent, error) {
	idx, err := h.resolveAssetIndex(ctx, order.Symbol)
	if err != nil {
		return domain.FillEvent{}, err
	}

	nonce := venue.Counters().Next(h.wallet.address.Hex())

	action := orderAction{
		AssetIndex:  idx,
		IsBuy:       order.Direction == domain.Buy,
		Price:       order.Price.String(),
		Size:        order.Quantity.String(),
		ReduceOnly:  false,
		TimeInForce: timeInForce(order.Type),
		Nonce:       nonce,
	}

	sig, err := signOrderAction(h.wallet, action)
	if err != nil {
		return domain.FillEvent{}, err
	}

	var resp struct {
		Status     string `json:"status"`
		OrderID    string `json:"order_id"`
		FillPrice  string `json:"fill_price"`
		Commission string `json:"commission"`
	}
	reqBody := struct {
		Action    orderAction      `json:"action"`
		Signature eip712Signature  `json:"signature"`
		Address   string           `json:"address"`
	}{Action: action, Signature: sig, Address: h.wallet.address.Hex()}

	if err := h.client.post(ctx, "/exchange", reqBody, &resp); err != nil {
		return domain.FillEvent{}, err
	}
	if resp.Status != "ok" {
		return domain.FillEvent{}, fmt.Errorf("venue: order rejected: status=%s: %w", resp.Status, domain.ErrVenueRejected)
	}

	fillPrice, err := decimal.NewFromString(resp.FillPrice)
	if err != nil {
		fillPrice = order.Price
	}
	commission, err := decimal.NewFromString(resp.Commission)
	if err != nil {
		commission = decimal.Zero
	}

	return domain.FillEvent{
		OrderID:    resp.OrderID,
		Symbol:     order.Symbol,
		Direction:  order.Direction,
		Quantity:   order.Quantity,
		Price:      fillPrice,
		Commission: commission,
		Timestamp:  order.Timestamp,
	}, nil
}

func (h *LiveExecutionHandler) resolveAssetIndex(ctx context.Context, symbol string) (int, error) {
	h.mu.Lock()
	idx, ok := h.assetIndex[symbol]
	h.mu.Unlock()
	if ok {
		return idx, nil
	}

	idx, err := h.client.AssetIndex(ctx, symbol)
	if err != nil {
		return 0, err
	}

	h.mu.Lock()
	h.assetIndex[symbol] = idx
	h.mu.Unlock()
	return idx, nil
}

func timeInForce(t domain.OrderType) string {
	if t == domain.Limit {
		return "gtc"
	}
	return "ioc"
}
