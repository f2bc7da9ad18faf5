package health

import (
	"context"
	"fmt"

	"github.com/genguard/genguard/cache"
	"github.com/genguard/genguard/ratelimit"
	"github.com/genguard/genguard/resilience"
)

// BreakerChecker reports dependency health from a circuit breaker registry.
// An open circuit means a dependency is down right now, so any open circuit
// makes the check unhealthy; a half-open circuit is a recovery probe in
// progress and only degrades it.
type BreakerChecker struct {
	registry *resilience.Registry
}

// NewBreakerChecker creates a checker over the given registry.
func NewBreakerChecker(registry *resilience.Registry) *BreakerChecker {
	return &BreakerChecker{registry: registry}
}

// Name returns the name of this checker.
func (c *BreakerChecker) Name() string {
	return "circuit-breakers"
}

// Check inspects every breaker's state snapshot.
func (c *BreakerChecker) Check(_ context.Context) Result {
	snapshot := c.registry.Snapshot()

	open, halfOpen := 0, 0
	details := make(map[string]any, len(snapshot))
	for name, m := range snapshot {
		switch m.State {
		case resilience.StateOpen:
			open++
		case resilience.StateHalfOpen:
			halfOpen++
		}
		details[name] = map[string]any{
			"state":    m.State.String(),
			"failures": m.Failures,
			"total":    m.Total,
		}
	}

	switch {
	case open > 0:
		return Unhealthy(
			fmt.Sprintf("%d of %d circuits open", open, len(snapshot)),
			ErrCheckFailed,
		).WithDetails(details)
	case halfOpen > 0:
		return Degraded(
			fmt.Sprintf("%d of %d circuits probing recovery", halfOpen, len(snapshot)),
		).WithDetails(details)
	default:
		return Healthy(
			fmt.Sprintf("all %d circuits closed", len(snapshot)),
		).WithDetails(details)
	}
}

// cacheMinSamples is the lookup count below which hit rate is noise.
const cacheMinSamples = 100

// CacheChecker reports cache effectiveness from a stats snapshot function.
// The stats func indirection keeps the checker independent of the cache's
// value type parameter.
type CacheChecker struct {
	name       string
	stats      func() cache.Stats
	minHitRate float64
}

// NewCacheChecker creates a checker that degrades when the observed hit
// rate falls below minHitRate. A minHitRate of zero disables the floor.
func NewCacheChecker(name string, stats func() cache.Stats, minHitRate float64) *CacheChecker {
	return &CacheChecker{name: name, stats: stats, minHitRate: minHitRate}
}

// Name returns the name of this checker.
func (c *CacheChecker) Name() string {
	return "cache-" + c.name
}

// Check reads the cache stats snapshot and applies the hit-rate floor.
func (c *CacheChecker) Check(_ context.Context) Result {
	s := c.stats()

	details := map[string]any{
		"hits":        s.Hits,
		"misses":      s.Misses,
		"hit_rate":    s.HitRate,
		"l1_entries":  s.L1Entries,
		"l2_entries":  s.L2Entries,
		"size_bytes":  s.SizeBytes,
		"evictions":   s.Evictions,
		"expirations": s.Expirations,
	}

	lookups := s.Hits + s.Misses
	if lookups < cacheMinSamples {
		return Healthy(
			fmt.Sprintf("warming up: %d lookups", lookups),
		).WithDetails(details)
	}

	if c.minHitRate > 0 && s.HitRate < c.minHitRate {
		return Degraded(
			fmt.Sprintf("hit rate %.1f%% below floor %.1f%%", s.HitRate*100, c.minHitRate*100),
		).WithDetails(details)
	}

	return Healthy(
		fmt.Sprintf("hit rate %.1f%%", s.HitRate*100),
	).WithDetails(details)
}

// LimiterChecker reports admission-control pressure. A large share of
// blocked clients usually means an attack in progress or a misconfigured
// ceiling; either way operators should look.
type LimiterChecker struct {
	limiter         *ratelimit.Limiter
	maxBlockedShare float64
}

// NewLimiterChecker creates a checker that degrades when the share of
// blocked keys among tracked keys reaches maxBlockedShare. Zero uses the
// default of 0.5.
func NewLimiterChecker(limiter *ratelimit.Limiter, maxBlockedShare float64) *LimiterChecker {
	if maxBlockedShare <= 0 || maxBlockedShare > 1 {
		maxBlockedShare = 0.5
	}
	return &LimiterChecker{limiter: limiter, maxBlockedShare: maxBlockedShare}
}

// Name returns the name of this checker.
func (c *LimiterChecker) Name() string {
	return "rate-limiter"
}

// Check reads the limiter stats snapshot.
func (c *LimiterChecker) Check(_ context.Context) Result {
	s := c.limiter.Stats()

	details := map[string]any{
		"active_keys":     s.ActiveKeys,
		"blocked_keys":    s.BlockedKeys,
		"suspicious_keys": s.SuspiciousKeys,
		"allowed":         s.Allowed,
		"rejected":        s.Rejected,
	}

	if s.ActiveKeys > 0 {
		share := float64(s.BlockedKeys) / float64(s.ActiveKeys)
		if share >= c.maxBlockedShare {
			return Degraded(
				fmt.Sprintf("%d of %d tracked keys blocked", s.BlockedKeys, s.ActiveKeys),
			).WithDetails(details)
		}
	}

	return Healthy(
		fmt.Sprintf("%d tracked keys, %d blocked", s.ActiveKeys, s.BlockedKeys),
	).WithDetails(details)
}
