package resilience

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// Retry executes an operation with bounded retries and exponential backoff.
// The delay before retry n (n >= 1) is min(BaseDelay * Base^(n-1), MaxDelay),
// perturbed by up to ±10% when Jitter is set. There is no delay before the
// first attempt; on exhaustion the last error is returned unchanged.
type Retry struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Base       float64
	Jitter     bool

	// sleep is swapped out in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewRetry creates a retry policy with exponential base 2 and jitter enabled.
func NewRetry(maxRetries int, baseDelay, maxDelay time.Duration) *Retry {
	return &Retry{
		MaxRetries: maxRetries,
		BaseDelay:  baseDelay,
		MaxDelay:   maxDelay,
		Base:       2.0,
		Jitter:     true,
	}
}

// Do invokes fn, retrying on any failure up to MaxRetries additional times.
// A done ctx ends the loop early with the context's error.
func (r *Retry) Do(ctx context.Context, fn func() error) error {
	var last error
	for attempt := 0; attempt <= r.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := r.wait(ctx, r.Delay(attempt)); err != nil {
				return err
			}
		}
		if last = fn(); last == nil {
			return nil
		}
	}
	return last
}

// Delay computes the pre-attempt delay for retry attempt n (1-based).
func (r *Retry) Delay(attempt int) time.Duration {
	d := float64(r.BaseDelay) * math.Pow(r.Base, float64(attempt-1))
	d = math.Min(d, float64(r.MaxDelay))
	if r.Jitter {
		d += d * 0.1 * (rand.Float64()*2 - 1)
	}
	if d < 0 {
		d = 0
	}
	return time.Duration(d)
}

func (r *Retry) wait(ctx context.Context, d time.Duration) error {
	if r.sleep != nil {
		return r.sleep(ctx, d)
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
