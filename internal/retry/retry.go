// Package retry provides retry with exponential backoff for transient
// failures.
//
// Retry policy lives at the adapter boundary: the reconciler core never
// retries, only the AWS apply and snapshot calls do. The AWSConfig profile
// uses longer delays to ride out API rate limiting.
package retry

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/protera/launchsync/internal/errors"
	"github.com/protera/launchsync/internal/logger"
)

// Config defines retry behavior.
type Config struct {
	// MaxAttempts is the total number of attempts including the first.
	MaxAttempts int

	// InitialDelay is the delay before the first retry.
	InitialDelay time.Duration

	// MaxDelay caps the delay between retries.
	MaxDelay time.Duration

	// Multiplier grows the delay after each attempt.
	Multiplier float64

	// Jitter randomizes delays, 0.0 (none) to 1.0 (up to 100%).
	Jitter float64

	// ShouldRetry decides whether an error triggers a retry. When nil,
	// errors carrying a retryable flag are consulted and everything else
	// is retried.
	ShouldRetry func(error) bool
}

// DefaultConfig provides sensible defaults for general operations.
var DefaultConfig = Config{
	MaxAttempts:  3,
	InitialDelay: 100 * time.Millisecond,
	MaxDelay:     10 * time.Second,
	Multiplier:   2.0,
	Jitter:       0.2,
}

// AWSConfig provides retry settings for AWS API calls.
var AWSConfig = Config{
	MaxAttempts:  3,
	InitialDelay: 200 * time.Millisecond,
	MaxDelay:     30 * time.Second,
	Multiplier:   2.0,
	Jitter:       0.25,
}

// Do executes an operation with retry. It stops when the operation
// succeeds, the attempts are exhausted, the error is not retryable, or the
// context is canceled.
func Do[T any](ctx context.Context, cfg Config, operation func(context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error

	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}

	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			if lastErr != nil {
				return zero, errors.Wrap(ctx.Err(), errors.CategoryInternal,
					fmt.Sprintf("context canceled after %d attempts", attempt))
			}
			return zero, ctx.Err()
		default:
		}

		result, err := operation(ctx)
		if err == nil {
			if attempt > 0 {
				logger.Debug("operation succeeded after retry",
					"attempt", attempt+1,
					"total_attempts", cfg.MaxAttempts)
			}
			return result, nil
		}

		lastErr = err

		if !isRetryable(err, cfg.ShouldRetry) {
			logger.Debug("error not retryable, stopping",
				"attempt", attempt+1,
				"error", err)
			return zero, err
		}

		if attempt == cfg.MaxAttempts-1 {
			break
		}

		delay := calculateDelay(cfg, attempt)
		logger.Debug("retrying operation",
			"attempt", attempt+1,
			"max_attempts", cfg.MaxAttempts,
			"delay", delay,
			"error", err)

		select {
		case <-ctx.Done():
			return zero, errors.Wrap(ctx.Err(), errors.CategoryInternal,
				fmt.Sprintf("context canceled during retry backoff (attempt %d)", attempt+1))
		case <-time.After(delay):
		}
	}

	return zero, errors.Wrapf(lastErr, errors.CategoryInternal,
		"operation failed after %d attempts", cfg.MaxAttempts)
}

// DoSimple executes an operation that returns no value.
func DoSimple(ctx context.Context, cfg Config, operation func(context.Context) error) error {
	_, err := Do(ctx, cfg, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, operation(ctx)
	})
	return err
}

// WithMaxAttempts returns a copy of the config with updated MaxAttempts.
func (c Config) WithMaxAttempts(n int) Config {
	c.MaxAttempts = n
	return c
}

// WithInitialDelay returns a copy of the config with updated InitialDelay.
func (c Config) WithInitialDelay(d time.Duration) Config {
	c.InitialDelay = d
	return c
}

// WithShouldRetry returns a copy of the config with a custom predicate.
func (c Config) WithShouldRetry(fn func(error) bool) Config {
	c.ShouldRetry = fn
	return c
}

// calculateDelay computes the backoff delay for an attempt.
func calculateDelay(cfg Config, attempt int) time.Duration {
	delay := float64(cfg.InitialDelay) * math.Pow(cfg.Multiplier, float64(attempt))

	if delay > float64(cfg.MaxDelay) {
		delay = float64(cfg.MaxDelay)
	}

	if cfg.Jitter > 0 {
		jitterRange := delay * cfg.Jitter
		delay += (rand.Float64()*2 - 1) * jitterRange
	}

	if delay < 0 {
		delay = 0
	}

	return time.Duration(delay)
}

func isRetryable(err error, shouldRetry func(error) bool) bool {
	if shouldRetry != nil {
		return shouldRetry(err)
	}
	if errors.IsRetryable(err) {
		return true
	}
	// No predicate and no retryable flag: retry by default.
	return true
}
