package monitor

import (
	"context"
	"math/rand"
	"time"
)

// RetryConfig controls exponential backoff for transient check failures.
type RetryConfig struct {
	MaxRetries int           // max retry attempts (default 3, 0 = no retry)
	BaseDelay  time.Duration // initial backoff delay (default 2s)
	MaxDelay   time.Duration // maximum backoff delay (default 30s)
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: 3,
		BaseDelay:  2 * time.Second,
		MaxDelay:   30 * time.Second,
	}
}

// retry runs fn until it succeeds, returns a non-retryable error, runs out of
// attempts, or ctx ends. attempts counts calls to fn.
func retry[T any](ctx context.Context, cfg RetryConfig, fn func() (T, error), retryable func(error) bool) (result T, attempts int, err error) {
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		result, err = fn()
		if err == nil || !retryable(err) {
			return result, attempt + 1, err
		}
		if attempt == cfg.MaxRetries {
			break
		}

		t := time.NewTimer(backoffWithJitter(cfg.BaseDelay, cfg.MaxDelay, attempt))
		select {
		case <-ctx.Done():
			t.Stop()
			return result, attempt + 1, ctx.Err()
		case <-t.C:
		}
	}
	return result, cfg.MaxRetries + 1, err
}

// backoffWithJitter computes delay = min(base * 2^attempt, max) + jitter(±25%).
func backoffWithJitter(base, max time.Duration, attempt int) time.Duration {
	delay := base << uint(attempt)
	if delay > max || delay <= 0 {
		delay = max
	}

	quarter := delay / 4
	if quarter > 0 {
		jitter := time.Duration(rand.Int63n(int64(quarter*2))) - quarter
		delay += jitter
	}
	return delay
}
