package execution

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cryptokatze/backpack-volume-bot/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Fill records one synthetic execution, for inspection after a dry run.
type Fill struct {
	OrderID  string
	Symbol   string
	Side     domain.Side
	Quantity decimal.Decimal
	TsUnixMs int64
}

// SimulatedExchange short-circuits every exchange call locally: orders are
// accepted immediately with a generated placeholder identifier, positions are
// always flat, and no network I/O ever happens. Used whenever credentials
// are absent.
type SimulatedExchange struct {
	mu       sync.Mutex
	balances map[string]domain.Balance
	fills    []Fill
}

// NewSimulatedExchange creates a dry-run venue with the stock demo balances.
func NewSimulatedExchange() *SimulatedExchange {
	return &SimulatedExchange{
		balances: map[string]domain.Balance{
			"USDC": {Asset: "USDC", Available: decimal.RequireFromString("1000.00")},
			"SOL":  {Asset: "SOL", Available: decimal.RequireFromString("10.00")},
		},
	}
}

// Live reports that nothing leaves this machine.
func (s *SimulatedExchange) Live() bool { return false }

// Close is a no-op; there are no secrets to wipe.
func (s *SimulatedExchange) Close() error { return nil }

// PlaceOrder accepts every order with a synthetic identifier.
func (s *SimulatedExchange) PlaceOrder(ctx context.Context, symbol string, side domain.Side, qty decimal.Decimal) (domain.OrderResult, error) {
	fill := Fill{
		OrderID:  "sim_" + uuid.NewString(),
		Symbol:   symbol,
		Side:     side,
		Quantity: qty,
		TsUnixMs: time.Now().UnixMilli(),
	}

	s.mu.Lock()
	s.fills = append(s.fills, fill)
	s.mu.Unlock()

	slog.Info("SIMULATED: order filled",
		slog.String("id", fill.OrderID),
		slog.String("symbol", symbol),
		slog.String("side", string(side)),
		slog.String("qty", qty.String()))

	return domain.OrderResult{Accepted: true, OrderID: fill.OrderID}, nil
}

// CancelAllOrders is a no-op: simulated orders fill instantly, nothing rests.
func (s *SimulatedExchange) CancelAllOrders(ctx context.Context, symbol string) error {
	slog.Info("SIMULATED: cancel all orders", slog.String("symbol", symbol))
	return nil
}

// Positions always reports flat in simulated mode.
func (s *SimulatedExchange) Positions(ctx context.Context, symbol string) ([]domain.Position, error) {
	return nil, nil
}

// Balances returns the static demo snapshot.
func (s *SimulatedExchange) Balances(ctx context.Context) (map[string]domain.Balance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]domain.Balance, len(s.balances))
	for k, v := range s.balances {
		out[k] = v
	}
	return out, nil
}

// OpenOrders is always empty: every simulated order fills instantly.
func (s *SimulatedExchange) OpenOrders(ctx context.Context, symbol string) ([]domain.OpenOrder, error) {
	return nil, nil
}

// Fills returns a copy of all synthetic executions so far.
func (s *SimulatedExchange) Fills() []Fill {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Fill, len(s.fills))
	copy(out, s.fills)
	return out
}
