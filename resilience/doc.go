// Package resilience protects calls to slow, rate-limited, occasionally
// failing dependencies from cascading failure and redundant work.
//
// # Components
//
//   - Classify: one explicit classification step mapping a raw failure into
//     a category, severity, retryability, and whether it should count
//     against a circuit breaker.
//
//   - CircuitBreaker: per-dependency failure isolation. After a run of
//     breaking failures the circuit opens and calls fail fast with
//     ErrCircuitOpen until a recovery timeout elapses; a single trial call
//     then decides whether to close it again. A Registry hands out one
//     breaker per dependency name.
//
//   - Retry: bounded attempts with exponential backoff and jitter. The
//     terminal error is *ExhaustedError, which wraps the last failure and
//     matches ErrMaxRetriesExceeded.
//
//   - Bulkhead: caps concurrent calls to a scarce dependency.
//
//   - Timeout: bounds each attempt's wall time.
//
//   - Pacer: token-bucket pacing of outbound calls toward a dependency.
//     (Per-client ingress admission lives in the ratelimit package.)
//
// # Composition
//
// An Executor chains the patterns around one operation. Retry wraps the
// circuit breaker so each attempt re-consults the circuit, and a retry
// condition built on Classify refuses to retry into an open circuit:
//
//	reg := resilience.NewRegistry(resilience.CircuitBreakerConfig{
//	    MaxFailures:  5,
//	    ResetTimeout: 30 * time.Second,
//	})
//	exec := resilience.NewExecutor(
//	    resilience.WithPacer(resilience.NewPacer(resilience.PacerConfig{Rate: 50, Burst: 10})),
//	    resilience.WithBulkhead(resilience.NewBulkhead(resilience.BulkheadConfig{MaxConcurrent: 8})),
//	    resilience.WithRetry(resilience.NewRetry(resilience.RetryConfig{MaxAttempts: 3})),
//	    resilience.WithCircuitBreaker(reg.Breaker("generation-api")),
//	    resilience.WithTimeout(10*time.Second),
//	)
//	err := exec.Execute(ctx, func(ctx context.Context) error {
//	    return callGenerationAPI(ctx, prompt)
//	})
package resilience
