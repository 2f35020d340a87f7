package infra

import (
	"testing"
	"time"
)

// Short cool-downs keep the state-machine tests fast; the production
// defaults are pinned separately below.
func probeBreaker(failures, successes int, timeout time.Duration) *CircuitBreaker {
	return NewCircuitBreaker(CircuitBreakerConfig{
		Name:             "venue",
		FailureThreshold: failures,
		SuccessThreshold: successes,
		Timeout:          timeout,
	})
}

func TestCircuitBreaker_DefaultsTunedForOrderPath(t *testing.T) {
	cfg := DefaultCircuitBreakerConfig("backpack")

	if cfg.FailureThreshold != 5 {
		t.Errorf("FailureThreshold = %d, want 5", cfg.FailureThreshold)
	}
	if cfg.SuccessThreshold != 2 {
		t.Errorf("SuccessThreshold = %d, want 2", cfg.SuccessThreshold)
	}
	// The cool-down must stay shorter than a typical inter-leg gap so an
	// open breaker re-probes before the next leg, not several legs later.
	if cfg.Timeout != 15*time.Second {
		t.Errorf("Timeout = %s, want 15s", cfg.Timeout)
	}

	cb := NewCircuitBreaker(cfg)
	if !cb.Allow() || cb.GetState() != StateClosed {
		t.Error("a fresh breaker must start CLOSED and allow calls")
	}
}

func TestCircuitBreaker_OpensOnFailureStreak(t *testing.T) {
	cb := probeBreaker(3, 1, time.Minute)

	cb.RecordFailure()
	cb.RecordFailure()
	if cb.GetState() != StateClosed {
		t.Fatalf("state after 2 of 3 failures = %s, want CLOSED", cb.GetState())
	}

	cb.RecordFailure()
	if cb.GetState() != StateOpen {
		t.Fatalf("state after 3rd failure = %s, want OPEN", cb.GetState())
	}
	if cb.Allow() {
		t.Error("an open breaker must reject calls before the cool-down")
	}
}

func TestCircuitBreaker_SuccessResetsFailureStreak(t *testing.T) {
	cb := probeBreaker(3, 1, time.Minute)

	// Failures interleaved with a definitive venue answer never accumulate
	// to the threshold.
	cb.RecordFailure()
	cb.RecordFailure()
	cb.RecordSuccess()
	cb.RecordFailure()
	cb.RecordFailure()

	// Only 2 failures since the reset, threshold is 3.
	if cb.GetState() != StateClosed {
		t.Fatalf("a success must reset the failure streak, state = %s", cb.GetState())
	}
}

func TestCircuitBreaker_ReprobesAfterCoolDown(t *testing.T) {
	cb := probeBreaker(1, 1, 20*time.Millisecond)

	cb.RecordFailure()
	if cb.Allow() {
		t.Fatal("breaker must be open right after tripping")
	}

	time.Sleep(30 * time.Millisecond)

	if !cb.Allow() {
		t.Fatal("expired cool-down must let one probe through")
	}
	if cb.GetState() != StateHalfOpen {
		t.Errorf("state after probe = %s, want HALF_OPEN", cb.GetState())
	}
}

func TestCircuitBreaker_ProbeFailureReopens(t *testing.T) {
	cb := probeBreaker(1, 2, 20*time.Millisecond)

	cb.RecordFailure()
	time.Sleep(30 * time.Millisecond)
	cb.Allow() // half-open

	cb.RecordFailure()
	if cb.GetState() != StateOpen {
		t.Fatalf("state after failed probe = %s, want OPEN", cb.GetState())
	}
	if cb.Allow() {
		t.Error("a failed probe must start a fresh cool-down")
	}
}

func TestCircuitBreaker_RecoveryNeedsSuccessStreak(t *testing.T) {
	cb := probeBreaker(1, 2, 20*time.Millisecond)

	cb.RecordFailure()
	time.Sleep(30 * time.Millisecond)
	cb.Allow() // half-open

	cb.RecordSuccess()
	if cb.GetState() != StateHalfOpen {
		t.Fatalf("state after 1 of 2 successes = %s, want HALF_OPEN", cb.GetState())
	}

	cb.RecordSuccess()
	if cb.GetState() != StateClosed {
		t.Fatalf("state after success streak = %s, want CLOSED", cb.GetState())
	}
	if !cb.Allow() {
		t.Error("a recovered breaker must allow calls again")
	}
}

func TestCircuitBreaker_ResetForcesClosed(t *testing.T) {
	cb := probeBreaker(1, 1, time.Minute)

	cb.RecordFailure()
	if cb.GetState() != StateOpen {
		t.Fatal("expected the breaker to trip")
	}

	cb.Reset()
	if cb.GetState() != StateClosed || !cb.Allow() {
		t.Error("Reset must force the breaker closed and allow calls")
	}
}
