package execution

import (
	"context"

	"github.com/cryptokatze/backpack-volume-bot/internal/domain"
	"github.com/shopspring/decimal"
)

// Exchange is the single decision point between live and simulated trading.
// The cycle controller and the reconciler are mode-agnostic: they call this
// interface and never ask which mode they are in beyond display purposes.
type Exchange interface {
	// PlaceOrder submits a market order for one leg.
	PlaceOrder(ctx context.Context, symbol string, side domain.Side, qty decimal.Decimal) (domain.OrderResult, error)

	// CancelAllOrders cancels every resting order for the symbol. Best-effort,
	// used before liquidation so a market close does not race resting orders.
	CancelAllOrders(ctx context.Context, symbol string) error

	// Positions returns the current open positions for the symbol.
	Positions(ctx context.Context, symbol string) ([]domain.Position, error)

	// Balances returns the per-asset account snapshot for the status view.
	Balances(ctx context.Context) (map[string]domain.Balance, error)

	// OpenOrders returns resting orders for the status view.
	OpenOrders(ctx context.Context, symbol string) ([]domain.OpenOrder, error)

	// Live reports whether orders actually reach the venue.
	Live() bool

	// Close releases resources and wipes secrets.
	Close() error
}
