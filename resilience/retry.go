package resilience

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"time"
)

// BackoffStrategy defines how delays increase between retries.
type BackoffStrategy int

const (
	// BackoffExponential multiplies the delay each attempt.
	BackoffExponential BackoffStrategy = iota
	// BackoffLinear increases delay linearly.
	BackoffLinear
	// BackoffConstant uses the same delay for all retries.
	BackoffConstant
)

// RetryConfig configures the retry behavior. A config is immutable once
// handed to NewRetry.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (including the first).
	// Default: 3
	MaxAttempts int

	// InitialDelay is the delay before the first retry.
	// Default: 100ms
	InitialDelay time.Duration

	// MaxDelay caps the delay between retries.
	// Default: 30s
	MaxDelay time.Duration

	// Multiplier is the backoff multiplier for exponential backoff.
	// Default: 2.0
	Multiplier float64

	// Strategy is the backoff strategy.
	// Default: BackoffExponential
	Strategy BackoffStrategy

	// Jitter adds randomness to delays to prevent thundering herd.
	// Default: false. Use DefaultRetryConfig for the recommended settings.
	Jitter bool

	// RetryIf determines if an error should trigger a retry.
	// Default: DefaultRetryIf.
	RetryIf func(err error) bool

	// OnRetry is called before each retry attempt.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// DefaultRetryConfig returns the recommended retry settings for remote
// generation calls: 3 attempts, exponential backoff from 100ms capped at
// 5s, with jitter.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  3,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2.0,
		Jitter:       true,
	}
}

// DefaultRetryIf retries failures that classification deems transient:
// connection resets, timeouts, 5xx and 429 equivalents. Client errors and
// open-circuit rejections are not retried; retrying into an open circuit
// only burns the backoff budget.
func DefaultRetryIf(err error) bool {
	return Classify(err).Retryable
}

// ExhaustedError is the terminal error of a retry loop whose attempts ran
// out. It wraps the last failure so errors.Is/As reach the original cause,
// and matches ErrMaxRetriesExceeded. Callers should treat it as a signal to
// degrade (serve a cached or default result) rather than a raw failure.
type ExhaustedError struct {
	// Attempts is how many times the operation was invoked.
	Attempts int
	// Err is the failure from the final attempt.
	Err error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("resilience: %d attempts exhausted: %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error { return e.Err }

// Is reports whether target is the retry-exhaustion sentinel.
func (e *ExhaustedError) Is(target error) bool { return target == ErrMaxRetriesExceeded }

// Retry implements bounded retry with backoff.
type Retry struct {
	config RetryConfig
}

// NewRetry creates a new retry handler.
func NewRetry(config RetryConfig) *Retry {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 3
	}
	if config.InitialDelay <= 0 {
		config.InitialDelay = 100 * time.Millisecond
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = 30 * time.Second
	}
	if config.Multiplier <= 0 {
		config.Multiplier = 2.0
	}
	if config.RetryIf == nil {
		config.RetryIf = DefaultRetryIf
	}

	return &Retry{config: config}
}

// Execute runs the operation with retry logic. The backoff sleep suspends
// only this call; it is aborted by ctx so an abandoned caller does not
// leave a retry loop running.
//
// Non-retryable failures are returned unchanged after the failing attempt.
// When every attempt fails on a retryable error the result is an
// *ExhaustedError wrapping the last failure.
func (r *Retry) Execute(ctx context.Context, op func(context.Context) error) error {
	var lastErr error

	for attempt := 1; attempt <= r.config.MaxAttempts; attempt++ {
		err := op(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if !r.config.RetryIf(err) {
			return err
		}

		if attempt >= r.config.MaxAttempts {
			break
		}

		delay := r.delayFor(attempt)

		if r.config.OnRetry != nil {
			r.config.OnRetry(attempt, err, delay)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	return &ExhaustedError{Attempts: r.config.MaxAttempts, Err: lastErr}
}

func (r *Retry) delayFor(attempt int) time.Duration {
	var delay time.Duration

	switch r.config.Strategy {
	case BackoffConstant:
		delay = r.config.InitialDelay
	case BackoffLinear:
		delay = r.config.InitialDelay * time.Duration(attempt)
	case BackoffExponential:
		multiplier := math.Pow(r.config.Multiplier, float64(attempt-1))
		delay = time.Duration(float64(r.config.InitialDelay) * multiplier)
	}

	if delay > r.config.MaxDelay {
		delay = r.config.MaxDelay
	}

	// Up to 25% additive jitter. Int64N panics on a zero bound, so
	// sub-4ns delays skip the jitter entirely.
	if quarter := int64(delay / 4); r.config.Jitter && quarter > 0 {
		// #nosec G404 -- jitter is non-cryptographic timing variance.
		delay += time.Duration(rand.Int64N(quarter))
	}

	return delay
}

// Config returns the retry configuration.
func (r *Retry) Config() RetryConfig {
	return r.config
}
