package resilience

import (
	"context"
	"time"
)

// Executor composes resilience patterns around one operation.
type Executor struct {
	pacer          *Pacer
	bulkhead       *Bulkhead
	retry          *Retry
	circuitBreaker *CircuitBreaker
	timeout        *Timeout
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// NewExecutor creates a new resilience executor.
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// WithPacer adds outbound pacing to the executor.
func WithPacer(p *Pacer) ExecutorOption {
	return func(e *Executor) {
		e.pacer = p
	}
}

// WithBulkhead adds a concurrency cap to the executor.
func WithBulkhead(b *Bulkhead) ExecutorOption {
	return func(e *Executor) {
		e.bulkhead = b
	}
}

// WithRetry adds retry logic to the executor.
func WithRetry(r *Retry) ExecutorOption {
	return func(e *Executor) {
		e.retry = r
	}
}

// WithCircuitBreaker adds a circuit breaker to the executor.
func WithCircuitBreaker(cb *CircuitBreaker) ExecutorOption {
	return func(e *Executor) {
		e.circuitBreaker = cb
	}
}

// WithTimeout adds a per-attempt timeout to the executor.
func WithTimeout(timeout time.Duration) ExecutorOption {
	return func(e *Executor) {
		e.timeout = NewTimeout(TimeoutConfig{Timeout: timeout})
	}
}

// WithTimeoutConfig adds a per-attempt timeout with custom config.
func WithTimeoutConfig(t *Timeout) ExecutorOption {
	return func(e *Executor) {
		e.timeout = t
	}
}

// Execute runs the operation through all configured patterns.
//
// The execution order, outermost first:
//  1. Pacer - keeps outbound call volume inside the dependency's quota
//  2. Bulkhead - caps concurrent calls
//  3. Retry - re-attempts transient failures
//  4. Circuit Breaker - each attempt re-consults the circuit, so an open
//     circuit stops a retry loop immediately (the default retry condition
//     refuses to retry ErrCircuitOpen)
//  5. Timeout - bounds each individual attempt
func (e *Executor) Execute(ctx context.Context, op func(context.Context) error) error {
	execute := op

	if e.timeout != nil {
		inner := execute
		execute = func(ctx context.Context) error {
			return e.timeout.Execute(ctx, inner)
		}
	}

	if e.circuitBreaker != nil {
		inner := execute
		execute = func(ctx context.Context) error {
			return e.circuitBreaker.Execute(ctx, inner)
		}
	}

	if e.retry != nil {
		inner := execute
		execute = func(ctx context.Context) error {
			return e.retry.Execute(ctx, inner)
		}
	}

	if e.bulkhead != nil {
		inner := execute
		execute = func(ctx context.Context) error {
			return e.bulkhead.Execute(ctx, inner)
		}
	}

	if e.pacer != nil {
		inner := execute
		execute = func(ctx context.Context) error {
			return e.pacer.Execute(ctx, inner)
		}
	}

	return execute(ctx)
}
