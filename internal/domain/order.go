package domain

import (
	"github.com/shopspring/decimal"
)

// Side is the order direction, in Backpack's wire vocabulary.
type Side string

const (
	SideBid Side = "Bid" // buy
	SideAsk Side = "Ask" // sell
)

// Opposite returns the flattening direction for this side.
func (s Side) Opposite() Side {
	if s == SideBid {
		return SideAsk
	}
	return SideBid
}

// OrderLeg is a single buy or sell order within a set.
// Legs are generated per iteration and never persisted beyond execution.
type OrderLeg struct {
	Symbol   string
	Side     Side
	Quantity decimal.Decimal
}

// OrderResult is the per-leg outcome reported by the exchange layer.
type OrderResult struct {
	Accepted bool
	OrderID  string
	Kind     ErrorKind // set when Accepted is false
}

// OpenOrder is a resting order as reported by the exchange.
type OpenOrder struct {
	ID       string
	Symbol   string
	Side     Side
	Quantity decimal.Decimal
	Price    string // empty for market orders
	Status   string
}
