package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cryptokatze/backpack-volume-bot/internal/domain"
	"github.com/cryptokatze/backpack-volume-bot/internal/execution"
)

// maxCloseAttempts bounds how often the reconciler retries flattening one
// position before giving up with a warning. It must never hang a shutdown.
const maxCloseAttempts = 3

// PositionReconciler flattens whatever the venue still holds after a run is
// liquidated. It always re-queries before acting; the cycle's own bookkeeping
// is not trusted once legs may have partially failed.
type PositionReconciler struct {
	exchange execution.Exchange
}

func NewPositionReconciler(exchange execution.Exchange) *PositionReconciler {
	return &PositionReconciler{exchange: exchange}
}

// Flatten cancels resting orders and closes every open position for the
// symbol with an opposite-side market order. Returns an error only when a
// position remains open after all attempts; a failed cancel-all alone is
// logged and does not abort the close.
func (r *PositionReconciler) Flatten(ctx context.Context, symbol string) error {
	if err := r.exchange.CancelAllOrders(ctx, symbol); err != nil {
		slog.Warn("Cancel-all failed, continuing with position close",
			slog.String("symbol", symbol),
			slog.Any("error", err))
	}

	for attempt := 1; attempt <= maxCloseAttempts; attempt++ {
		positions, err := r.exchange.Positions(ctx, symbol)
		if err != nil {
			slog.Warn("Position query failed during liquidation",
				slog.Int("attempt", attempt),
				slog.Any("error", err))
			continue
		}

		open := 0
		for i := range positions {
			p := &positions[i]
			if p.IsFlat() {
				continue
			}
			open++
			r.closePosition(ctx, p)
		}

		if open == 0 {
			slog.Info("Liquidation complete, account flat", slog.String("symbol", symbol))
			return nil
		}

		// Live fills are not instant; re-query to verify before declaring
		// success or burning another attempt.
		if !r.exchange.Live() {
			return nil
		}
	}

	return fmt.Errorf("positions still open for %s after %d attempts", symbol, maxCloseAttempts)
}

func (r *PositionReconciler) closePosition(ctx context.Context, p *domain.Position) {
	side := p.ClosingSide()
	qty := p.NetQuantity.Abs()

	slog.Info("Closing position",
		slog.String("symbol", p.Symbol),
		slog.String("side", string(side)),
		slog.String("quantity", qty.String()))

	result, err := r.exchange.PlaceOrder(ctx, p.Symbol, side, qty)
	if err != nil {
		slog.Warn("Closing order failed",
			slog.String("symbol", p.Symbol),
			slog.Any("error", err))
		return
	}
	if !result.Accepted {
		slog.Warn("Closing order rejected",
			slog.String("symbol", p.Symbol),
			slog.String("kind", string(result.Kind)))
	}
}
