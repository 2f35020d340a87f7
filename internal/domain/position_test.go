package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestPosition_ClosingSide(t *testing.T) {
	tests := []struct {
		name string
		net  string
		want Side
	}{
		{"long closes with Ask", "0.02", SideAsk},
		{"short closes with Bid", "-0.5", SideBid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &Position{Symbol: "SOL_USDC_PERP", NetQuantity: decimal.RequireFromString(tt.net)}
			if got := p.ClosingSide(); got != tt.want {
				t.Errorf("Position.ClosingSide() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPosition_IsFlat(t *testing.T) {
	flat := &Position{NetQuantity: decimal.Zero}
	if !flat.IsFlat() {
		t.Error("zero net quantity should be flat")
	}
	if flat.IsLong() || flat.IsShort() {
		t.Error("flat position should be neither long nor short")
	}

	long := &Position{NetQuantity: decimal.RequireFromString("0.01")}
	if long.IsFlat() || !long.IsLong() {
		t.Error("positive net quantity should be long")
	}
}
