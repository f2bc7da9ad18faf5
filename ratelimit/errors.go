package ratelimit

import (
	"errors"
	"fmt"
	"time"
)

// ErrRateLimited is matched by errors.Is for every admission rejection.
var ErrRateLimited = errors.New("ratelimit: rate limited")

// LimitError is a rejected admission carrying enough detail for the caller
// to build a throttling response.
type LimitError struct {
	Key        string
	Kind       ViolationKind
	RetryAfter time.Duration
}

func (e *LimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("ratelimit: key %q rejected: %s (retry after %s)", e.Key, e.Kind, e.RetryAfter)
	}
	return fmt.Sprintf("ratelimit: key %q rejected: %s", e.Key, e.Kind)
}

// Is reports whether target is ErrRateLimited.
func (e *LimitError) Is(target error) bool {
	return target == ErrRateLimited
}
