package utils

import (
	"context"
	"time"
)

// RetryWithBackoff runs fn up to maxAttempts times, doubling the delay after
// each failure. The context cancels the wait between attempts. Returns the
// last error when all attempts fail.
func RetryWithBackoff(ctx context.Context, maxAttempts int, initialDelay time.Duration, fn func() error) error {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	var lastErr error
	delay := initialDelay
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if lastErr = fn(); lastErr == nil {
			return nil
		}
		if attempt == maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return lastErr
}
