// Package resilience provides the failure-handling primitives wrapped around
// every outbound API call: a min-interval throttler, a circuit breaker, and
// bounded retry with exponential backoff. One throttler and one breaker exist
// per endpoint class and are shared by all wallets, so both are safe for
// concurrent use.
package resilience

import (
	"context"

	"golang.org/x/time/rate"
)

// Throttler enforces a minimum spacing of 1/callsPerSecond between successive
// acquisitions. It is a strictly serial gate with no fairness guarantees.
type Throttler struct {
	limiter *rate.Limiter
}

// NewThrottler creates a throttler allowing callsPerSecond acquisitions per
// second with no burst allowance.
func NewThrottler(callsPerSecond float64) *Throttler {
	return &Throttler{
		limiter: rate.NewLimiter(rate.Limit(callsPerSecond), 1),
	}
}

// Wait blocks until the minimum interval since the previous acquisition has
// elapsed, or until ctx is done. Every successful acquisition moves the
// spacing window forward, including ones that did not need to wait.
func (t *Throttler) Wait(ctx context.Context) error {
	return t.limiter.Wait(ctx)
}
