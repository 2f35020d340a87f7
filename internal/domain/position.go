package domain

import (
	"github.com/shopspring/decimal"
)

// Position is a read-only snapshot of an open position as reported by the
// exchange. Never cached across calls; the reconciler re-queries before
// every closing order.
type Position struct {
	Symbol        string
	NetQuantity   decimal.Decimal // positive for Long, negative for Short
	EntryPrice    string
	UnrealizedPnl string
}

// IsLong checks if the position is Long.
func (p *Position) IsLong() bool {
	return p.NetQuantity.Sign() > 0
}

// IsShort checks if the position is Short.
func (p *Position) IsShort() bool {
	return p.NetQuantity.Sign() < 0
}

// IsFlat reports whether there is nothing to close.
func (p *Position) IsFlat() bool {
	return p.NetQuantity.IsZero()
}

// ClosingSide returns the side of an order that flattens this position.
func (p *Position) ClosingSide() Side {
	if p.IsLong() {
		return SideAsk
	}
	return SideBid
}
