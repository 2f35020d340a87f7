package infra

import (
	"time"
)

const (
	// Order-path retries must stay short: an inter-leg wait is only a few
	// seconds, so a retry ladder longer than that would reorder the cycle.
	baseDelay = 500 * time.Millisecond
	maxDelay  = 5 * time.Second
)

// CalculateBackoff returns the exponential backoff duration for a given retry count.
// Logic: baseDelay * 2^retryCount, capped at maxDelay.
// If retryCount is negative, it returns baseDelay.
func CalculateBackoff(retryCount int) time.Duration {
	if retryCount < 0 {
		return baseDelay
	}

	// 2^retryCount with an early cap to avoid shift overflow.
	if retryCount > 30 {
		return maxDelay
	}

	backoff := baseDelay * time.Duration(1<<retryCount)

	if backoff > maxDelay {
		return maxDelay
	}

	return backoff
}
