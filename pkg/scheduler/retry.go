package scheduler

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"

	"github.com/jdziat/galaxy-sync/pkg/core"
)

// RetryConfig controls how a round retries listing owners before it gives up
// until the next tick.
type RetryConfig struct {
	MaxAttempts       int // first call included
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64
	JitterFraction    float64 // each wait moves by up to ± this share
}

// DefaultRetryConfig allows three listings within about two seconds, well
// inside the default one minute schedule.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		InitialBackoff:    500 * time.Millisecond,
		MaxBackoff:        10 * time.Second,
		BackoffMultiplier: 2.0,
		JitterFraction:    0.2,
	}
}

// backoff returns the wait after failed attempt n, counted from 1.
func (c RetryConfig) backoff(n int) time.Duration {
	d := float64(c.InitialBackoff) * math.Pow(c.BackoffMultiplier, float64(n-1))
	if c.MaxBackoff > 0 && d > float64(c.MaxBackoff) {
		d = float64(c.MaxBackoff)
	}
	if c.JitterFraction > 0 {
		d += d * c.JitterFraction * (rand.Float64()*2 - 1)
	}
	return time.Duration(d)
}

// retryWithBackoff calls op until it succeeds, fails in a way a retry cannot
// fix, or MaxAttempts calls were made. The last error is returned.
func retryWithBackoff(ctx context.Context, c RetryConfig, op func() error) error {
	for attempt := 1; ; attempt++ {
		err := op()
		if err == nil || !isRetryable(err) || attempt >= c.MaxAttempts {
			return err
		}

		timer := time.NewTimer(c.backoff(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// isRetryable is false for cancellation and for access the store denied.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return !errors.Is(err, core.ErrPermissionDenied)
}
