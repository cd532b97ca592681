package services

import (
	"context"
	"time"
)

// backoff returns the wait before retry attempt n (0-based): base << n, capped at max
func backoff(base, max time.Duration, attempt int) time.Duration {
	if attempt > 30 {
		return max
	}
	d := base << attempt
	if d <= 0 || d > max {
		return max
	}
	return d
}

// retry calls fn up to attempts times, sleeping with exponential backoff
// between attempts. It stops early when ctx is done and returns the last
// error from fn.
func retry(ctx context.Context, attempts int, base, max time.Duration, fn func(ctx context.Context) error) error {
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if ctx.Err() != nil || attempt == attempts-1 {
			break
		}

		timer := time.NewTimer(backoff(base, max, attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return err
		case <-timer.C:
		}
	}
	return err
}
