package resilience

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"
)

// Category identifies the broad class of a failure.
type Category int

const (
	// CategoryUnknown is an unclassified failure.
	CategoryUnknown Category = iota
	// CategoryNetwork is a connection-level failure (reset, refused, DNS).
	CategoryNetwork
	// CategoryTimeout is a deadline or I/O timeout.
	CategoryTimeout
	// CategoryClient is a caller error (4xx equivalents except 429).
	CategoryClient
	// CategoryServer is a dependency-side error (5xx equivalents).
	CategoryServer
	// CategoryThrottled is a remote 429 equivalent.
	CategoryThrottled
	// CategoryCircuitOpen is a fast-fail from an open circuit.
	CategoryCircuitOpen
	// CategoryCanceled is a caller-initiated cancellation.
	CategoryCanceled
)

// String returns the string representation of the category.
func (c Category) String() string {
	switch c {
	case CategoryNetwork:
		return "network"
	case CategoryTimeout:
		return "timeout"
	case CategoryClient:
		return "client"
	case CategoryServer:
		return "server"
	case CategoryThrottled:
		return "throttled"
	case CategoryCircuitOpen:
		return "circuit-open"
	case CategoryCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Severity ranks how alarming a failure is for operators.
type Severity int

const (
	SeverityLow Severity = iota
	SeverityMedium
	SeverityHigh
)

// String returns the string representation of the severity.
func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	default:
		return "unknown"
	}
}

// Classification is the outcome of classifying a failure.
//
// Retryable reports whether retrying the same call may succeed.
// Breaking reports whether the failure is evidence the dependency itself is
// unhealthy; only breaking failures count against a circuit breaker.
type Classification struct {
	Category  Category
	Severity  Severity
	Retryable bool
	Breaking  bool
}

// NetworkError is a connection-level failure talking to a dependency.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("resilience: network error during %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("resilience: network error: %v", e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// TimeoutError is a deadline miss on a dependency call.
type TimeoutError struct {
	Op      string
	Elapsed time.Duration
	Err     error
}

func (e *TimeoutError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("resilience: %s timed out after %v", e.Op, e.Elapsed)
	}
	return fmt.Sprintf("resilience: operation timed out after %v", e.Elapsed)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// Is reports whether target is the timeout sentinel.
func (e *TimeoutError) Is(target error) bool { return target == ErrTimeout }

// ClientError is a 4xx-equivalent failure caused by the caller's input.
type ClientError struct {
	Status  int
	Message string
}

func (e *ClientError) Error() string {
	return fmt.Sprintf("resilience: client error (status %d): %s", e.Status, e.Message)
}

// ServerError is a 5xx-equivalent failure inside the dependency.
type ServerError struct {
	Status  int
	Message string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("resilience: server error (status %d): %s", e.Status, e.Message)
}

// Classify maps a raw failure into a Classification. It is the single place
// errors are inspected; circuit breakers and retries consume the result
// rather than poking at error internals themselves.
//
// Unknown errors classify as breaking and non-retryable so that an
// unexpected failure mode degrades conservatively instead of being retried
// blindly or ignored by the breaker.
func Classify(err error) Classification {
	if err == nil {
		return Classification{}
	}

	if errors.Is(err, ErrCircuitOpen) {
		// The breaker already made its decision; retrying into an open
		// circuit or feeding the rejection back into it would loop.
		return Classification{Category: CategoryCircuitOpen, Severity: SeverityMedium}
	}

	if errors.Is(err, context.Canceled) {
		return Classification{Category: CategoryCanceled, Severity: SeverityLow}
	}

	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		if clientErr.Status == 429 {
			return Classification{
				Category:  CategoryThrottled,
				Severity:  SeverityMedium,
				Retryable: true,
			}
		}
		return Classification{Category: CategoryClient, Severity: SeverityLow}
	}

	var serverErr *ServerError
	if errors.As(err, &serverErr) {
		return Classification{
			Category:  CategoryServer,
			Severity:  SeverityHigh,
			Retryable: true,
			Breaking:  true,
		}
	}

	if isTimeout(err) {
		return Classification{
			Category:  CategoryTimeout,
			Severity:  SeverityMedium,
			Retryable: true,
			Breaking:  true,
		}
	}

	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return Classification{
			Category:  CategoryNetwork,
			Severity:  SeverityHigh,
			Retryable: true,
			Breaking:  true,
		}
	}
	var stdNetErr net.Error
	if errors.As(err, &stdNetErr) {
		return Classification{
			Category:  CategoryNetwork,
			Severity:  SeverityHigh,
			Retryable: true,
			Breaking:  true,
		}
	}

	return Classification{Category: CategoryUnknown, Severity: SeverityHigh, Breaking: true}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrTimeout) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
