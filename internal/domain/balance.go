package domain

import (
	"github.com/shopspring/decimal"
)

// Balance is a per-asset account snapshot used by the status view.
type Balance struct {
	Asset     string
	Available decimal.Decimal
	Locked    decimal.Decimal
	Staked    decimal.Decimal
}

// HasFunds reports whether anything is worth displaying.
func (b *Balance) HasFunds() bool {
	return b.Available.Sign() > 0 || b.Locked.Sign() > 0
}
