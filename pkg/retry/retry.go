// Package retry provides bounded retry with a fixed inter-attempt delay,
// plus an authentication-aware variant that refreshes the session
// credential between attempts.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/slatedata/querykit/pkg/apperrors"
)

// Config defines retry behavior.
type Config struct {
	MaxAttempts int
	Delay       time.Duration
}

// DefaultConfig returns the gateway retry policy: 3 attempts with a fixed
// 2 second delay between them.
func DefaultConfig() *Config {
	return &Config{
		MaxAttempts: 3,
		Delay:       2 * time.Second,
	}
}

// Do executes fn up to MaxAttempts times, waiting Delay between attempts.
// Returns nil on the first success, or the last error once attempts are
// exhausted. Respects context cancellation during wait periods.
func Do(ctx context.Context, cfg *Config, fn func() error) error {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
		}

		if attempt < cfg.MaxAttempts {
			select {
			case <-time.After(cfg.Delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return lastErr
}

// DoWithResult executes fn and returns both result and error, retrying on
// failure like Do. Respects context cancellation during wait periods.
func DoWithResult[T any](ctx context.Context, cfg *Config, fn func() (T, error)) (T, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	var result T
	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		r, err := fn()
		if err == nil {
			return r, nil
		}
		result = r
		lastErr = err

		if attempt < cfg.MaxAttempts {
			select {
			case <-time.After(cfg.Delay):
			case <-ctx.Done():
				return result, ctx.Err()
			}
		}
	}
	return result, lastErr
}

// DoWithReauth executes fn, and when it fails with
// apperrors.ErrAuthenticationFailed, invalidates the cached credential so
// the next attempt signs in fresh. Any other error is terminal
// immediately: transport failures are not retried at this layer.
func DoWithReauth[T any](ctx context.Context, cfg *Config, invalidate func(), fn func() (T, error)) (T, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	var result T
	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		r, err := fn()
		if err == nil {
			return r, nil
		}
		result = r
		lastErr = err

		if !errors.Is(err, apperrors.ErrAuthenticationFailed) {
			return result, err
		}
		invalidate()

		if attempt < cfg.MaxAttempts {
			select {
			case <-time.After(cfg.Delay):
			case <-ctx.Done():
				return result, ctx.Err()
			}
		}
	}
	return result, lastErr
}
