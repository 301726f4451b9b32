package imagestore

import (
	"context"
	"math/rand"
	"time"
)

// RetryPolicy bounds attempts at an idempotent operation.
type RetryPolicy struct {
	Attempts  int
	BaseDelay time.Duration
	// JitterFactor is the ±fraction of jitter applied to each delay.
	JitterFactor float64
}

// DefaultRetryPolicy makes three attempts: now, ~200ms, ~400ms.
var DefaultRetryPolicy = RetryPolicy{
	Attempts:     3,
	BaseDelay:    200 * time.Millisecond,
	JitterFactor: 0.2,
}

// delay returns the wait before retry n (0-indexed), doubling each time.
func (p RetryPolicy) delay(n int) time.Duration {
	base := p.BaseDelay << n
	jitter := (rand.Float64()*2 - 1) * float64(base) * p.JitterFactor
	return time.Duration(float64(base) + jitter)
}

// retry runs fn until it succeeds, attempts run out, or ctx ends.
// It returns the last error from fn.
func retry(ctx context.Context, p RetryPolicy, fn func(ctx context.Context) error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}

		timer := time.NewTimer(p.delay(i))
		select {
		case <-ctx.Done():
			timer.Stop()
			return err
		case <-timer.C:
		}
	}
	return err
}
