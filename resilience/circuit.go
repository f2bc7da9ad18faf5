package resilience

import (
	"context"
	"sync"
	"time"
)

// State represents the circuit breaker state.
type State int

const (
	// StateClosed means the circuit is operating normally.
	StateClosed State = iota
	// StateOpen means the circuit is rejecting all calls.
	StateOpen
	// StateHalfOpen means the circuit is probing whether the dependency recovered.
	StateHalfOpen
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig configures a circuit breaker.
type CircuitBreakerConfig struct {
	// Name identifies the protected dependency in metrics and callbacks.
	Name string

	// MaxFailures is the number of breaking failures before opening.
	// Default: 5
	MaxFailures int

	// ResetTimeout is how long the circuit stays open before allowing a
	// trial call.
	// Default: 30 seconds
	ResetTimeout time.Duration

	// HalfOpenMaxRequests is the number of trial calls allowed while
	// half-open. Default: 1 (exactly one probe decides recovery).
	HalfOpenMaxRequests int

	// IsBreaking determines whether an error counts against the
	// dependency's health. Non-breaking errors (bad caller input, 4xx
	// equivalents) are surfaced to the caller but never move the state
	// machine. Default: Classify(err).Breaking.
	IsBreaking func(err error) bool

	// OnStateChange is called after each state transition. The breaker
	// performs no I/O itself; transitions are made observable here.
	OnStateChange func(name string, from, to State)
}

// CircuitBreaker isolates one downstream dependency behind a three-state
// machine. All state is in-process and rebuilt from closed on restart.
type CircuitBreaker struct {
	config CircuitBreakerConfig

	mu            sync.Mutex
	state         State
	failures      int
	successes     int
	total         int64
	lastFailure   time.Time
	nextAttempt   time.Time
	halfOpenCount int
}

// NewCircuitBreaker creates a new circuit breaker.
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	if config.MaxFailures <= 0 {
		config.MaxFailures = 5
	}
	if config.ResetTimeout <= 0 {
		config.ResetTimeout = 30 * time.Second
	}
	if config.HalfOpenMaxRequests <= 0 {
		config.HalfOpenMaxRequests = 1
	}
	if config.IsBreaking == nil {
		config.IsBreaking = func(err error) bool {
			return err != nil && Classify(err).Breaking
		}
	}

	return &CircuitBreaker{
		config: config,
		state:  StateClosed,
	}
}

// Name returns the dependency name this breaker protects.
func (cb *CircuitBreaker) Name() string {
	return cb.config.Name
}

// Execute runs the operation through the circuit breaker. When the circuit
// is open it returns ErrCircuitOpen without invoking op. ErrCircuitOpen is
// always surfaced to the caller; the breaker never retries internally.
func (cb *CircuitBreaker) Execute(ctx context.Context, op func(context.Context) error) error {
	if err := cb.beforeRequest(); err != nil {
		return err
	}

	err := op(ctx)
	cb.afterRequest(err)
	return err
}

// State returns the current circuit state.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.currentStateLocked()
}

// Reset forces the breaker back to closed and clears its counters.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	oldState := cb.state
	cb.state = StateClosed
	cb.failures = 0
	cb.successes = 0
	cb.halfOpenCount = 0
	cb.nextAttempt = time.Time{}

	if oldState != StateClosed {
		cb.notify(oldState, StateClosed)
	}
}

func (cb *CircuitBreaker) beforeRequest() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.currentStateLocked() {
	case StateOpen:
		return ErrCircuitOpen
	case StateHalfOpen:
		// Only HalfOpenMaxRequests concurrent probes; everyone else is
		// rejected as if still open until the trial settles.
		if cb.halfOpenCount >= cb.config.HalfOpenMaxRequests {
			return ErrCircuitOpen
		}
		cb.halfOpenCount++
	}

	return nil
}

func (cb *CircuitBreaker) afterRequest(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.total++
	breaking := err != nil && cb.config.IsBreaking(err)
	oldState := cb.state

	switch cb.state {
	case StateClosed:
		if breaking {
			cb.failures++
			cb.lastFailure = time.Now()
			if cb.failures >= cb.config.MaxFailures {
				cb.trip()
			}
		} else if err == nil {
			cb.successes++
			cb.failures = 0
		}
		// Non-breaking errors are the caller's problem, not the
		// dependency's: no counter movement either way.

	case StateHalfOpen:
		if breaking {
			cb.lastFailure = time.Now()
			cb.trip()
		} else {
			// The dependency answered; a bad-input error during the trial
			// still proves it is reachable.
			cb.successes++
			cb.state = StateClosed
			cb.failures = 0
			cb.halfOpenCount = 0
			cb.nextAttempt = time.Time{}
		}
	}

	if oldState != cb.state {
		cb.notify(oldState, cb.state)
	}
}

// trip opens the circuit and schedules the next trial window.
func (cb *CircuitBreaker) trip() {
	cb.state = StateOpen
	cb.nextAttempt = time.Now().Add(cb.config.ResetTimeout)
}

func (cb *CircuitBreaker) currentStateLocked() State {
	if cb.state == StateOpen && !cb.nextAttempt.IsZero() && !time.Now().Before(cb.nextAttempt) {
		cb.state = StateHalfOpen
		cb.halfOpenCount = 0
		cb.notify(StateOpen, StateHalfOpen)
	}
	return cb.state
}

func (cb *CircuitBreaker) notify(from, to State) {
	if cb.config.OnStateChange != nil {
		cb.config.OnStateChange(cb.config.Name, from, to)
	}
}

// Metrics returns a snapshot of the breaker's counters.
func (cb *CircuitBreaker) Metrics() CircuitBreakerMetrics {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	return CircuitBreakerMetrics{
		Name:        cb.config.Name,
		State:       cb.currentStateLocked(),
		Failures:    cb.failures,
		Successes:   cb.successes,
		Total:       cb.total,
		LastFailure: cb.lastFailure,
		NextAttempt: cb.nextAttempt,
	}
}

// CircuitBreakerMetrics contains circuit breaker statistics.
type CircuitBreakerMetrics struct {
	Name        string
	State       State
	Failures    int
	Successes   int
	Total       int64
	LastFailure time.Time
	NextAttempt time.Time
}
