package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestExecutor_Empty(t *testing.T) {
	exec := NewExecutor()

	calls := 0
	err := exec.Execute(context.Background(), func(ctx context.Context) error {
		calls++
		return nil
	})
	if err != nil || calls != 1 {
		t.Errorf("Execute() = %v calls=%d, want nil and 1 call", err, calls)
	}
}

func TestExecutor_RetryWrapsBreaker(t *testing.T) {
	// Each retry attempt must consult the circuit; once the breaker opens
	// mid-loop, the retry condition sees ErrCircuitOpen and stops.
	cb := NewCircuitBreaker(CircuitBreakerConfig{MaxFailures: 2, ResetTimeout: time.Minute})
	exec := NewExecutor(
		WithRetry(NewRetry(RetryConfig{MaxAttempts: 10, InitialDelay: time.Millisecond})),
		WithCircuitBreaker(cb),
	)

	calls := 0
	err := exec.Execute(context.Background(), func(ctx context.Context) error {
		calls++
		return &ServerError{Status: 503, Message: "down"}
	})

	if calls != 2 {
		t.Errorf("calls = %d, want 2 (breaker opens, loop stops)", calls)
	}
	if err != ErrCircuitOpen {
		t.Errorf("error = %v, want ErrCircuitOpen", err)
	}
	if cb.State() != StateOpen {
		t.Errorf("breaker state = %v, want open", cb.State())
	}
}

func TestExecutor_OpenCircuitSkipsOperation(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{MaxFailures: 1, ResetTimeout: time.Minute})
	_ = cb.Execute(context.Background(), func(ctx context.Context) error {
		return &ServerError{Status: 500, Message: "boom"}
	})

	exec := NewExecutor(
		WithRetry(NewRetry(RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond})),
		WithCircuitBreaker(cb),
	)

	calls := 0
	err := exec.Execute(context.Background(), func(ctx context.Context) error {
		calls++
		return nil
	})

	if calls != 0 {
		t.Errorf("calls = %d, want 0", calls)
	}
	if err != ErrCircuitOpen {
		t.Errorf("error = %v, want ErrCircuitOpen", err)
	}
}

func TestExecutor_PacerOutermost(t *testing.T) {
	p := NewPacer(PacerConfig{Rate: 0.1, Burst: 1})
	p.AllowN(1) // drain

	exec := NewExecutor(
		WithPacer(p),
		WithRetry(NewRetry(RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond})),
	)

	calls := 0
	err := exec.Execute(context.Background(), func(ctx context.Context) error {
		calls++
		return nil
	})

	if err != ErrThrottled {
		t.Errorf("error = %v, want ErrThrottled", err)
	}
	if calls != 0 {
		t.Errorf("calls = %d, want 0 (pacing rejects before any attempt)", calls)
	}
}

func TestExecutor_TimeoutBoundsEachAttempt(t *testing.T) {
	exec := NewExecutor(
		WithRetry(NewRetry(RetryConfig{MaxAttempts: 2, InitialDelay: time.Millisecond})),
		WithTimeout(10*time.Millisecond),
	)

	calls := 0
	err := exec.Execute(context.Background(), func(ctx context.Context) error {
		calls++
		<-ctx.Done()
		return ctx.Err()
	})

	if calls != 2 {
		t.Errorf("calls = %d, want 2 (timeout is retryable)", calls)
	}
	var exhausted *ExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("error = %T (%v), want *ExhaustedError", err, err)
	}
	if !errors.Is(exhausted.Err, ErrTimeout) {
		t.Errorf("final attempt error = %v, want timeout", exhausted.Err)
	}
}

func TestExecutor_FullChainSuccess(t *testing.T) {
	reg := NewRegistry(CircuitBreakerConfig{MaxFailures: 3, ResetTimeout: time.Minute})
	exec := NewExecutor(
		WithPacer(NewPacer(PacerConfig{Rate: 1000, Burst: 10})),
		WithBulkhead(NewBulkhead(BulkheadConfig{MaxConcurrent: 4})),
		WithRetry(NewRetry(RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond})),
		WithCircuitBreaker(reg.Breaker("generation-api")),
		WithTimeout(time.Second),
	)

	failures := 0
	err := exec.Execute(context.Background(), func(ctx context.Context) error {
		if failures < 1 {
			failures++
			return &ServerError{Status: 503, Message: "transient"}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Execute() = %v, want nil after one retried transient failure", err)
	}
	if reg.Breaker("generation-api").State() != StateClosed {
		t.Error("breaker should be closed after recovery")
	}
}
