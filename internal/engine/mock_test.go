package engine

import (
	"context"
	"sync"

	"github.com/cryptokatze/backpack-volume-bot/internal/domain"
	"github.com/shopspring/decimal"
)

// mockExchange records every call and lets a test override behavior per
// method. Safe for use from the Run goroutine and the test goroutine.
type mockExchange struct {
	mu sync.Mutex

	orders     []domain.OrderLeg
	cancelAlls int

	live bool

	placeOrderFn func(symbol string, side domain.Side, qty decimal.Decimal) (domain.OrderResult, error)
	positionsFn  func(symbol string) ([]domain.Position, error)
	cancelAllFn  func(symbol string) error
}

func (m *mockExchange) PlaceOrder(_ context.Context, symbol string, side domain.Side, qty decimal.Decimal) (domain.OrderResult, error) {
	m.mu.Lock()
	m.orders = append(m.orders, domain.OrderLeg{Symbol: symbol, Side: side, Quantity: qty})
	fn := m.placeOrderFn
	m.mu.Unlock()

	if fn != nil {
		return fn(symbol, side, qty)
	}
	return domain.OrderResult{Accepted: true, OrderID: "mock_order"}, nil
}

func (m *mockExchange) CancelAllOrders(_ context.Context, symbol string) error {
	m.mu.Lock()
	m.cancelAlls++
	fn := m.cancelAllFn
	m.mu.Unlock()

	if fn != nil {
		return fn(symbol)
	}
	return nil
}

func (m *mockExchange) Positions(_ context.Context, symbol string) ([]domain.Position, error) {
	m.mu.Lock()
	fn := m.positionsFn
	m.mu.Unlock()

	if fn != nil {
		return fn(symbol)
	}
	return nil, nil
}

func (m *mockExchange) Balances(context.Context) (map[string]domain.Balance, error) {
	return map[string]domain.Balance{}, nil
}

func (m *mockExchange) OpenOrders(context.Context, string) ([]domain.OpenOrder, error) {
	return nil, nil
}

func (m *mockExchange) Live() bool   { return m.live }
func (m *mockExchange) Close() error { return nil }

func (m *mockExchange) orderCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.orders)
}

func (m *mockExchange) orderAt(i int) domain.OrderLeg {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.orders[i]
}

func (m *mockExchange) cancelAllCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cancelAlls
}
