package resilience

import (
	"errors"
	"testing"
	"time"

	"github.com/ozanylmz/walletwatch/internal/domain"
)

// fakeClock lets tests drive breaker time without sleeping.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestBreaker(threshold int, recovery time.Duration) (*CircuitBreaker, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	b := NewCircuitBreaker(threshold, recovery)
	b.now = clock.now
	return b, clock
}

func failTransient(b *CircuitBreaker, t *testing.T) {
	t.Helper()
	err := b.Call(func() error { return domain.Transientf("timeout") })
	if !domain.IsTransient(err) {
		t.Fatalf("expected transient error back, got %v", err)
	}
}

func TestBreakerOpensAfterThreshold(t *testing.T) {
	b, _ := newTestBreaker(3, time.Minute)

	for i := 0; i < 3; i++ {
		failTransient(b, t)
	}
	if got := b.State(); got != StateOpen {
		t.Fatalf("state after 3 failures = %s, want %s", got, StateOpen)
	}

	called := false
	err := b.Call(func() error {
		called = true
		return nil
	})
	if !errors.Is(err, domain.ErrBreakerOpen) {
		t.Fatalf("expected ErrBreakerOpen, got %v", err)
	}
	if called {
		t.Fatal("wrapped operation was invoked while breaker open")
	}
}

func TestBreakerSuccessResetsCount(t *testing.T) {
	b, _ := newTestBreaker(3, time.Minute)

	failTransient(b, t)
	failTransient(b, t)
	if err := b.Call(func() error { return nil }); err != nil {
		t.Fatalf("successful call returned %v", err)
	}
	if got := b.FailureCount(); got != 0 {
		t.Fatalf("failure count after success = %d, want 0", got)
	}
	if got := b.State(); got != StateClosed {
		t.Fatalf("state after success = %s, want %s", got, StateClosed)
	}
}

func TestBreakerHalfOpenTrialSuccess(t *testing.T) {
	b, clock := newTestBreaker(3, time.Minute)

	for i := 0; i < 3; i++ {
		failTransient(b, t)
	}
	clock.advance(time.Minute)

	err := b.Call(func() error { return nil })
	if err != nil {
		t.Fatalf("trial call returned %v", err)
	}
	if got := b.State(); got != StateClosed {
		t.Fatalf("state after trial success = %s, want %s", got, StateClosed)
	}
	if got := b.FailureCount(); got != 0 {
		t.Fatalf("failure count after trial success = %d, want 0", got)
	}
}

func TestBreakerHalfOpenTrialFailureReopens(t *testing.T) {
	b, clock := newTestBreaker(3, time.Minute)

	for i := 0; i < 3; i++ {
		failTransient(b, t)
	}
	clock.advance(time.Minute)
	failTransient(b, t)

	if got := b.State(); got != StateOpen {
		t.Fatalf("state after trial failure = %s, want %s", got, StateOpen)
	}

	// Window restarts from the trial failure: a call 30s later must still
	// be rejected without reaching the operation.
	clock.advance(30 * time.Second)
	err := b.Call(func() error {
		t.Fatal("operation invoked inside restarted recovery window")
		return nil
	})
	if !errors.Is(err, domain.ErrBreakerOpen) {
		t.Fatalf("expected ErrBreakerOpen, got %v", err)
	}
}

func TestBreakerIgnoresNonTransientErrors(t *testing.T) {
	b, _ := newTestBreaker(2, time.Minute)

	bad := errors.New("unexpected field in payload")
	for i := 0; i < 5; i++ {
		if err := b.Call(func() error { return bad }); !errors.Is(err, bad) {
			t.Fatalf("expected payload error back, got %v", err)
		}
	}
	if got := b.State(); got != StateClosed {
		t.Fatalf("state after non-transient errors = %s, want %s", got, StateClosed)
	}
	if got := b.FailureCount(); got != 0 {
		t.Fatalf("failure count after non-transient errors = %d, want 0", got)
	}
}
