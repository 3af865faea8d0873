package handlers

import (
	"context"
	"math"
	"time"

	"github.com/mytube/backend/internal/logging"
	"github.com/mytube/backend/internal/youtube"
)

// RetryPolicy is the data-fetching layer's transient-failure policy:
// exponential backoff capped at MaxDelay, up to MaxAttempts attempts, never
// retrying upstream auth rejections. It sits above the API client, which
// propagates errors unmodified.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultRetryPolicy mirrors the UI layer's policy: three attempts, one
// second doubling to a 30-second cap.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		MaxDelay:    30 * time.Second,
	}
}

func (p RetryPolicy) normalized() RetryPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 3
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = time.Second
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = 30 * time.Second
	}
	return p
}

// fetchWithRetry runs fn under the policy. 401/403 responses fail
// immediately; other errors are retried with backoff until attempts run out.
func fetchWithRetry[T any](ctx context.Context, policy RetryPolicy, fn func(ctx context.Context) (T, error)) (T, error) {
	policy = policy.normalized()
	logger := logging.FromContext(ctx)

	var zero T
	var lastErr error
	for attempt := 0; attempt < policy.MaxAttempts; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * policy.BaseDelay
			if backoff > policy.MaxDelay {
				backoff = policy.MaxDelay
			}
			timer := time.NewTimer(backoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				return zero, ctx.Err()
			case <-timer.C:
			}
			timer.Stop()
		}

		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if youtube.IsAuthError(err) {
			return zero, err
		}
		if attempt < policy.MaxAttempts-1 {
			logger.Warn("upstream call failed, retrying", "attempt", attempt+1, "error", err)
		}
	}

	return zero, lastErr
}
