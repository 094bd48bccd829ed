// Package retry repeats idempotent backend reads with exponential backoff.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"
)

// ErrMaxRetriesExceeded is joined with the last error when all attempts fail.
var ErrMaxRetriesExceeded = errors.New("max retries exceeded")

// Config configures retry behavior.
type Config struct {
	// MaxRetries is the number of attempts after the first one.
	MaxRetries int

	// InitialDelay is the delay before the first retry.
	InitialDelay time.Duration

	// MaxDelay caps the delay between retries.
	MaxDelay time.Duration

	// Multiplier is the factor by which the delay grows.
	Multiplier float64

	// Jitter is the randomization factor (0-1).
	Jitter float64

	// RetryIf decides whether an error is retried. Permanent errors are
	// never retried. Nil retries everything else.
	RetryIf func(error) bool

	// OnRetry is called before each retry.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// DefaultConfig returns the policy used for backend reads.
func DefaultConfig() *Config {
	return &Config{
		MaxRetries:   3,
		InitialDelay: 200 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2.0,
		Jitter:       0.1,
	}
}

// NoRetry runs an operation exactly once.
func NoRetry() *Config {
	return &Config{}
}

// Do runs fn until it succeeds, returns a permanent error, is rejected by
// RetryIf, or runs out of attempts. Cancellation of ctx stops waiting and
// returns ctx.Err() wrapped with the last error.
func Do(ctx context.Context, config *Config, fn func(ctx context.Context) error) error {
	_, err := DoValue(ctx, config, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// DoValue is Do for operations that return a value.
func DoValue[T any](ctx context.Context, config *Config, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if config == nil {
		config = DefaultConfig()
	}

	var lastErr error
	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, joinCtx(err, lastErr)
		}

		res, err := fn(ctx)
		if err == nil {
			return res, nil
		}
		lastErr = err

		if IsPermanent(err) || (config.RetryIf != nil && !config.RetryIf(err)) {
			return zero, err
		}
		if attempt == config.MaxRetries {
			break
		}

		delay := Backoff(attempt, config)
		if config.OnRetry != nil {
			config.OnRetry(attempt+1, err, delay)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, joinCtx(ctx.Err(), lastErr)
		case <-timer.C:
		}
	}

	if config.MaxRetries == 0 {
		return zero, lastErr
	}
	return zero, errors.Join(ErrMaxRetriesExceeded, lastErr)
}

func joinCtx(ctxErr, last error) error {
	if last == nil {
		return ctxErr
	}
	return fmt.Errorf("%w (last error: %v)", ctxErr, last)
}

// Backoff returns the delay before retry number attempt+1.
func Backoff(attempt int, config *Config) time.Duration {
	if config == nil {
		config = DefaultConfig()
	}

	delay := float64(config.InitialDelay) * math.Pow(config.Multiplier, float64(attempt))
	if config.MaxDelay > 0 && delay > float64(config.MaxDelay) {
		delay = float64(config.MaxDelay)
	}
	if config.Jitter > 0 {
		jitter := delay * config.Jitter
		delay = delay - jitter + (rand.Float64() * 2 * jitter)
	}
	return time.Duration(delay)
}

// PermanentError marks an error that must not be retried.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string {
	return e.Err.Error()
}

func (e *PermanentError) Unwrap() error {
	return e.Err
}

// Permanent wraps err so that Do returns it immediately. Nil stays nil.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// IsPermanent reports whether err is marked permanent.
func IsPermanent(err error) bool {
	var permanent *PermanentError
	return errors.As(err, &permanent)
}
