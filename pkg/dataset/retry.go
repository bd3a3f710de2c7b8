package dataset

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
)

// RetryConfig configures retry behavior with exponential backoff.
type RetryConfig struct {
	// MaxRetries is the maximum number of retry attempts (default: 3)
	MaxRetries int

	// InitialDelay is the initial backoff delay (default: 1 second)
	InitialDelay time.Duration

	// MaxDelay is the maximum backoff delay (default: 60 seconds)
	MaxDelay time.Duration

	// Multiplier is the backoff multiplier (default: 2.0 for exponential)
	Multiplier float64

	// RespectRetryAfter uses the server's Retry-After value when present (default: true)
	RespectRetryAfter bool
}

// DefaultRetryConfig returns sensible defaults for retry behavior.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:        3,
		InitialDelay:      time.Second,
		MaxDelay:          60 * time.Second,
		Multiplier:        2.0,
		RespectRetryAfter: true,
	}
}

// backoff returns the delay before retry number attempt+1.
// delay = min(InitialDelay * Multiplier^attempt, MaxDelay)
func (c RetryConfig) backoff(attempt int) time.Duration {
	next := time.Duration(float64(c.InitialDelay) * math.Pow(c.Multiplier, float64(attempt)))
	if c.MaxDelay > 0 && next > c.MaxDelay {
		return c.MaxDelay
	}
	return next
}

// RetryWithBackoff calls fn until it succeeds, returns a permanent error, or
// runs out of retries. Status errors carrying Retry-After set the next delay.
//
// Example usage:
//
//	data, err := RetryWithBackoff(ctx, DefaultRetryConfig(), func() ([]byte, error) {
//	    return fetcher.fetchOnce(ctx, url)
//	})
func RetryWithBackoff[T any](ctx context.Context, cfg RetryConfig, fn func() (T, error)) (T, error) {
	var result T
	var lastErr error
	delay := cfg.InitialDelay

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return result, fmt.Errorf("retry cancelled: %w", ctx.Err())
			case <-timer.C:
			}
		}

		res, err := fn()
		if err == nil {
			return res, nil
		}
		result = res
		lastErr = err

		var se *StatusError
		if errors.As(err, &se) && !se.Temporary() {
			return result, err
		}

		if attempt == cfg.MaxRetries {
			break
		}

		delay = cfg.backoff(attempt)
		if cfg.RespectRetryAfter && se != nil && se.RetryAfter > 0 {
			delay = se.RetryAfter
		}
	}

	return result, fmt.Errorf("max retries (%d) exceeded: %w", cfg.MaxRetries, lastErr)
}
