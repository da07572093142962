package resilience

import (
	"testing"
	"time"
)

func TestCircuitBreaker_OpensAfterThresholdAndRecovers(t *testing.T) {
	t.Parallel()

	current := time.Unix(1000, 0)
	b := NewCircuitBreaker(3, 10*time.Second, 1)
	b.now = func() time.Time { return current }

	for i := 0; i < 3; i++ {
		if err := b.Allow(); err != nil {
			t.Fatalf("closed breaker must allow, attempt %d: %v", i, err)
		}
		b.RecordFailure()
	}

	if err := b.Allow(); err == nil {
		t.Fatalf("breaker must reject after %d consecutive failures", 3)
	}

	current = current.Add(11 * time.Second)
	if err := b.Allow(); err != nil {
		t.Fatalf("breaker must probe after open timeout: %v", err)
	}
	b.RecordSuccess()

	if got := b.State(); got != CircuitStateClosed {
		t.Fatalf("expected closed after successful probe, got %s", got)
	}
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	t.Parallel()

	current := time.Unix(2000, 0)
	b := NewCircuitBreaker(1, 5*time.Second, 1)
	b.now = func() time.Time { return current }

	if err := b.Allow(); err != nil {
		t.Fatalf("first call must pass: %v", err)
	}
	b.RecordFailure()

	current = current.Add(6 * time.Second)
	if err := b.Allow(); err != nil {
		t.Fatalf("half-open probe must pass: %v", err)
	}
	b.RecordFailure()

	if err := b.Allow(); err == nil {
		t.Fatalf("failed probe must reopen the breaker")
	}
}

func TestSingleFlight_SharesResultAcrossCallers(t *testing.T) {
	t.Parallel()

	var g SingleFlight
	calls := 0

	value, err, _ := g.Do("k", func() (any, error) {
		calls++
		return 42, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if value.(int) != 42 || calls != 1 {
		t.Fatalf("unexpected result value=%v calls=%d", value, calls)
	}

	// Key is released after completion, so a fresh call runs again.
	_, _, shared := g.Do("k", func() (any, error) {
		calls++
		return 42, nil
	})
	if shared || calls != 2 {
		t.Fatalf("expected second independent call, shared=%v calls=%d", shared, calls)
	}
}
