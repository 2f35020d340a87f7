package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// RunConfig describes one execution cycle: how many buy/sell leg-pairs to
// place, how often, and with what quantity. Immutable while a run is active;
// the settings screen replaces it wholesale between runs.
type RunConfig struct {
	Symbol     string
	Quantity   decimal.Decimal
	LegsPerSet int
	SetCount   int // 0 = unbounded, stopped only by an explicit signal
	WaitMin    time.Duration
	WaitMax    time.Duration
}

// DefaultRunConfig mirrors the stock settings of the terminal session.
func DefaultRunConfig() RunConfig {
	return RunConfig{
		Symbol:     "SOL",
		Quantity:   decimal.RequireFromString("0.01"),
		LegsPerSet: 1,
		SetCount:   1,
		WaitMin:    1 * time.Second,
		WaitMax:    3 * time.Second,
	}
}

// Unbounded reports whether the run repeats until an explicit stop.
func (c *RunConfig) Unbounded() bool {
	return c.SetCount == 0
}

// Validate rejects configurations that could never start a sane run.
func (c *RunConfig) Validate() error {
	if c.Symbol == "" {
		return fmt.Errorf("symbol must not be empty")
	}
	if c.Quantity.Sign() <= 0 {
		return fmt.Errorf("quantity must be positive, got %s", c.Quantity)
	}
	if c.LegsPerSet < 1 {
		return fmt.Errorf("legs per set must be >= 1, got %d", c.LegsPerSet)
	}
	if c.SetCount < 0 {
		return fmt.Errorf("set count must be >= 0, got %d", c.SetCount)
	}
	if c.WaitMin < 0 || c.WaitMax < 0 {
		return fmt.Errorf("wait bounds must not be negative")
	}
	if c.WaitMin > c.WaitMax {
		return fmt.Errorf("wait min %s exceeds wait max %s", c.WaitMin, c.WaitMax)
	}
	return nil
}
