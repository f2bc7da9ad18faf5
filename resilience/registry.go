package resilience

import (
	"sort"
	"sync"
)

// Registry hands out one circuit breaker per dependency name. It replaces
// a global breaker map: construct one at the application root and inject it
// wherever breakers are needed.
type Registry struct {
	defaults CircuitBreakerConfig

	mu       sync.Mutex
	breakers map[string]*CircuitBreaker
}

// NewRegistry creates a registry that stamps breakers from the given
// defaults. The Name field of defaults is ignored; each breaker gets the
// name it is requested under.
func NewRegistry(defaults CircuitBreakerConfig) *Registry {
	return &Registry{
		defaults: defaults,
		breakers: make(map[string]*CircuitBreaker),
	}
}

// Breaker returns the breaker for name, creating it on first use.
func (r *Registry) Breaker(name string) *CircuitBreaker {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cb, ok := r.breakers[name]; ok {
		return cb
	}

	cfg := r.defaults
	cfg.Name = name
	cb := NewCircuitBreaker(cfg)
	r.breakers[name] = cb
	return cb
}

// Names returns the registered dependency names in sorted order.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.breakers))
	for name := range r.breakers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Snapshot returns current metrics for every registered breaker.
func (r *Registry) Snapshot() map[string]CircuitBreakerMetrics {
	r.mu.Lock()
	breakers := make([]*CircuitBreaker, 0, len(r.breakers))
	for _, cb := range r.breakers {
		breakers = append(breakers, cb)
	}
	r.mu.Unlock()

	// Collect outside the registry lock; each breaker locks itself.
	out := make(map[string]CircuitBreakerMetrics, len(breakers))
	for _, cb := range breakers {
		out[cb.Name()] = cb.Metrics()
	}
	return out
}

// Reset resets a single breaker. It is a no-op for unknown names.
func (r *Registry) Reset(name string) {
	r.mu.Lock()
	cb, ok := r.breakers[name]
	r.mu.Unlock()

	if ok {
		cb.Reset()
	}
}

// ResetAll resets every registered breaker to closed.
func (r *Registry) ResetAll() {
	r.mu.Lock()
	breakers := make([]*CircuitBreaker, 0, len(r.breakers))
	for _, cb := range r.breakers {
		breakers = append(breakers, cb)
	}
	r.mu.Unlock()

	for _, cb := range breakers {
		cb.Reset()
	}
}
