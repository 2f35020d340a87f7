package execution

import (
	"context"
	"strings"
	"testing"

	"github.com/cryptokatze/backpack-volume-bot/internal/domain"
	"github.com/shopspring/decimal"
)

func TestSimulatedExchange_PlaceOrder(t *testing.T) {
	sim := NewSimulatedExchange()

	result, err := sim.PlaceOrder(context.Background(), "SOL", domain.SideBid, decimal.RequireFromString("0.01"))
	if err != nil {
		t.Fatalf("PlaceOrder failed: %v", err)
	}
	if !result.Accepted {
		t.Error("simulated orders must always be accepted")
	}
	if !strings.HasPrefix(result.OrderID, "sim_") {
		t.Errorf("order id = %s, want sim_ prefix", result.OrderID)
	}

	fills := sim.Fills()
	if len(fills) != 1 {
		t.Fatalf("expected 1 fill, got %d", len(fills))
	}
	if fills[0].Side != domain.SideBid || !fills[0].Quantity.Equal(decimal.RequireFromString("0.01")) {
		t.Errorf("unexpected fill: %+v", fills[0])
	}
}

func TestSimulatedExchange_AlwaysFlat(t *testing.T) {
	sim := NewSimulatedExchange()

	if _, err := sim.PlaceOrder(context.Background(), "SOL", domain.SideBid, decimal.RequireFromString("5")); err != nil {
		t.Fatal(err)
	}

	positions, err := sim.Positions(context.Background(), "SOL")
	if err != nil {
		t.Fatalf("Positions failed: %v", err)
	}
	if len(positions) != 0 {
		t.Errorf("simulated mode reports flat, got %d positions", len(positions))
	}

	orders, err := sim.OpenOrders(context.Background(), "SOL")
	if err != nil {
		t.Fatalf("OpenOrders failed: %v", err)
	}
	if len(orders) != 0 {
		t.Errorf("simulated mode has no resting orders, got %d", len(orders))
	}
}

func TestSimulatedExchange_Balances(t *testing.T) {
	sim := NewSimulatedExchange()

	balances, err := sim.Balances(context.Background())
	if err != nil {
		t.Fatalf("Balances failed: %v", err)
	}
	if !balances["USDC"].Available.Equal(decimal.RequireFromString("1000.00")) {
		t.Errorf("USDC = %s, want 1000.00", balances["USDC"].Available)
	}
	if !balances["SOL"].Available.Equal(decimal.RequireFromString("10.00")) {
		t.Errorf("SOL = %s, want 10.00", balances["SOL"].Available)
	}
}

func TestSimulatedExchange_UniqueOrderIDs(t *testing.T) {
	sim := NewSimulatedExchange()
	seen := make(map[string]bool)

	for i := 0; i < 10; i++ {
		result, err := sim.PlaceOrder(context.Background(), "SOL", domain.SideAsk, decimal.RequireFromString("0.01"))
		if err != nil {
			t.Fatal(err)
		}
		if seen[result.OrderID] {
			t.Fatalf("duplicate order id: %s", result.OrderID)
		}
		seen[result.OrderID] = true
	}
}
