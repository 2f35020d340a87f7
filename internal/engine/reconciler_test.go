package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/cryptokatze/backpack-volume-bot/internal/domain"
	"github.com/shopspring/decimal"
)

func TestReconciler_ClosesLongPosition(t *testing.T) {
	mock := &mockExchange{
		positionsFn: func(string) ([]domain.Position, error) {
			return []domain.Position{{
				Symbol:      "SOL_USDC_PERP",
				NetQuantity: decimal.RequireFromString("0.02"),
			}}, nil
		},
	}

	r := NewPositionReconciler(mock)
	if err := r.Flatten(context.Background(), "SOL"); err != nil {
		t.Fatalf("Flatten failed: %v", err)
	}

	if mock.cancelAllCount() != 1 {
		t.Errorf("expected 1 cancel-all, got %d", mock.cancelAllCount())
	}
	if mock.orderCount() != 1 {
		t.Fatalf("expected 1 closing order, got %d", mock.orderCount())
	}
	order := mock.orderAt(0)
	if order.Side != domain.SideAsk {
		t.Errorf("long position closes with Ask, got %s", order.Side)
	}
	if !order.Quantity.Equal(decimal.RequireFromString("0.02")) {
		t.Errorf("closing quantity = %s, want 0.02", order.Quantity)
	}
}

func TestReconciler_ClosesShortWithBid(t *testing.T) {
	mock := &mockExchange{
		positionsFn: func(string) ([]domain.Position, error) {
			return []domain.Position{{
				Symbol:      "SOL_USDC_PERP",
				NetQuantity: decimal.RequireFromString("-0.5"),
			}}, nil
		},
	}

	r := NewPositionReconciler(mock)
	if err := r.Flatten(context.Background(), "SOL"); err != nil {
		t.Fatalf("Flatten failed: %v", err)
	}

	order := mock.orderAt(0)
	if order.Side != domain.SideBid {
		t.Errorf("short position closes with Bid, got %s", order.Side)
	}
	if !order.Quantity.Equal(decimal.RequireFromString("0.5")) {
		t.Errorf("closing quantity = %s, want 0.5 (absolute)", order.Quantity)
	}
}

func TestReconciler_AlreadyFlat(t *testing.T) {
	mock := &mockExchange{}

	r := NewPositionReconciler(mock)
	if err := r.Flatten(context.Background(), "SOL"); err != nil {
		t.Fatalf("Flatten failed: %v", err)
	}

	if mock.orderCount() != 0 {
		t.Errorf("flat account must place no orders, got %d", mock.orderCount())
	}
}

func TestReconciler_CancelFailureIsNotFatal(t *testing.T) {
	mock := &mockExchange{
		cancelAllFn: func(string) error { return errors.New("venue hiccup") },
		positionsFn: func(string) ([]domain.Position, error) {
			return []domain.Position{{
				Symbol:      "SOL_USDC_PERP",
				NetQuantity: decimal.RequireFromString("1"),
			}}, nil
		},
	}

	r := NewPositionReconciler(mock)
	if err := r.Flatten(context.Background(), "SOL"); err != nil {
		t.Fatalf("a failed cancel-all must not abort the close: %v", err)
	}
	if mock.orderCount() != 1 {
		t.Errorf("expected 1 closing order despite cancel failure, got %d", mock.orderCount())
	}
}

func TestReconciler_LiveVerifiesFlat(t *testing.T) {
	calls := 0
	mock := &mockExchange{live: true}
	mock.positionsFn = func(string) ([]domain.Position, error) {
		calls++
		if calls == 1 {
			return []domain.Position{{
				Symbol:      "SOL_USDC_PERP",
				NetQuantity: decimal.RequireFromString("0.01"),
			}}, nil
		}
		return nil, nil
	}

	r := NewPositionReconciler(mock)
	if err := r.Flatten(context.Background(), "SOL"); err != nil {
		t.Fatalf("Flatten failed: %v", err)
	}

	if calls != 2 {
		t.Errorf("live mode must re-query to verify flat, got %d queries", calls)
	}
	if mock.orderCount() != 1 {
		t.Errorf("expected exactly 1 closing order, got %d", mock.orderCount())
	}
}

func TestReconciler_GivesUpAfterBoundedAttempts(t *testing.T) {
	mock := &mockExchange{live: true}
	mock.positionsFn = func(string) ([]domain.Position, error) {
		return []domain.Position{{
			Symbol:      "SOL_USDC_PERP",
			NetQuantity: decimal.RequireFromString("1"),
		}}, nil
	}

	r := NewPositionReconciler(mock)
	err := r.Flatten(context.Background(), "SOL")
	if err == nil {
		t.Fatal("a position that never closes must surface an error, not hang")
	}
	if mock.orderCount() != maxCloseAttempts {
		t.Errorf("expected %d close attempts, got %d", maxCloseAttempts, mock.orderCount())
	}
}
