package resilience

import (
	"fmt"
	"sync"
	"time"

	"github.com/ozanylmz/walletwatch/internal/domain"
)

// BreakerState is the circuit breaker's current position.
type BreakerState string

const (
	StateClosed   BreakerState = "closed"
	StateOpen     BreakerState = "open"
	StateHalfOpen BreakerState = "half_open"
)

// CircuitBreaker isolates a failing endpoint. While closed, calls pass
// through; after failureThreshold consecutive transient failures it opens and
// fails fast; after recoveryTimeout a single trial call is let through.
//
// Only errors marked with domain.TransientError count as failures. Provider
// logic errors and payload-shape errors pass through the breaker untouched
// and leave its state alone.
type CircuitBreaker struct {
	failureThreshold int
	recoveryTimeout  time.Duration
	now              func() time.Time

	mu            sync.Mutex
	state         BreakerState
	failureCount  int
	lastFailure   time.Time
	trialInFlight bool
}

// NewCircuitBreaker creates a closed breaker.
func NewCircuitBreaker(failureThreshold int, recoveryTimeout time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		failureThreshold: failureThreshold,
		recoveryTimeout:  recoveryTimeout,
		now:              time.Now,
		state:            StateClosed,
	}
}

// Call runs fn under breaker protection. While open and still inside the
// recovery window it returns an error wrapping domain.ErrBreakerOpen without
// invoking fn; that error signals "not attempted" and must not be treated as
// another endpoint failure by the caller.
func (b *CircuitBreaker) Call(fn func() error) error {
	if err := b.admit(); err != nil {
		return err
	}

	err := fn()

	b.mu.Lock()
	defer b.mu.Unlock()
	b.trialInFlight = false

	switch {
	case err == nil:
		b.failureCount = 0
		b.state = StateClosed
	case domain.IsTransient(err):
		b.failureCount++
		b.lastFailure = b.now()
		if b.state == StateHalfOpen || b.failureCount >= b.failureThreshold {
			b.state = StateOpen
		}
	}
	// Non-transient errors leave the state machine untouched.

	return err
}

// admit decides whether the call may proceed, transitioning Open -> HalfOpen
// lazily once the recovery timeout has elapsed.
func (b *CircuitBreaker) admit() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateOpen:
		since := b.now().Sub(b.lastFailure)
		if since < b.recoveryTimeout {
			return fmt.Errorf("%w: last failure %s ago", domain.ErrBreakerOpen, since.Round(time.Millisecond))
		}
		b.state = StateHalfOpen
		b.trialInFlight = true
	case StateHalfOpen:
		if b.trialInFlight {
			return fmt.Errorf("%w: trial call in flight", domain.ErrBreakerOpen)
		}
		b.trialInFlight = true
	}
	return nil
}

// State returns the breaker's current state.
func (b *CircuitBreaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// FailureCount returns the consecutive transient-failure count.
func (b *CircuitBreaker) FailureCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failureCount
}
