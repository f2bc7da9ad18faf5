package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/genguard/genguard/dedup"
)

// Tier identifies which tier served or holds an entry.
type Tier int

const (
	// TierNone means the key was not cached.
	TierNone Tier = iota
	// TierL1 is the small, hot tier.
	TierL1
	// TierL2 is the larger, warm tier.
	TierL2
)

// String returns the string representation of the tier.
func (t Tier) String() string {
	switch t {
	case TierL1:
		return "l1"
	case TierL2:
		return "l2"
	default:
		return "none"
	}
}

// approxEntryOverhead is the size charged for values the default sizer
// cannot measure.
const approxEntryOverhead = 64

// TieredConfig configures a TieredCache.
type TieredConfig[V any] struct {
	// MaxEntries is the total entry budget across both tiers.
	// Default: 1024
	MaxEntries int

	// L1Fraction is the share of MaxEntries held by the hot tier.
	// Default: 0.3
	L1Fraction float64

	// PromoteThreshold is the number of accesses within PromoteWindow
	// beyond which an L2 entry is promoted to L1.
	// Default: 3 (promotion on the 4th recent access)
	PromoteThreshold int

	// PromoteWindow is the recency window for promotion scoring.
	// Default: 60 seconds
	PromoteWindow time.Duration

	// DemoteAfter is how long an L1 entry may go unread before the sweep
	// pushes it back to L2.
	// Default: 5 minutes
	DemoteAfter time.Duration

	// SweepInterval is how often the background sweep runs. Negative
	// disables the sweep; expiry still happens lazily on access.
	// Default: 30 seconds
	SweepInterval time.Duration

	// Policy supplies default and maximum TTLs.
	// Default: DefaultPolicy()
	Policy Policy

	// Sizer estimates an entry's size in bytes for stats. The default
	// measures []byte and string values and charges a flat overhead for
	// everything else.
	Sizer func(V) int64
}

// entry is one cached value. The tier holding the entry owns it; promotion
// and demotion move the entry between tiers, never copy it.
type entry[V any] struct {
	value      V
	createdAt  time.Time
	ttl        time.Duration
	size       int64
	hits       int64
	lastAccess time.Time

	// Promotion scoring: accesses within the current recency window.
	windowStart time.Time
	windowHits  int
}

// valid reports whether the entry is still within its TTL.
func (e *entry[V]) valid(now time.Time) bool {
	return now.Sub(e.createdAt) < e.ttl
}

func (e *entry[V]) touch(now time.Time, window time.Duration) {
	e.hits++
	e.lastAccess = now
	if now.Sub(e.windowStart) > window {
		e.windowStart = now
		e.windowHits = 0
	}
	e.windowHits++
}

// TieredCache is a two-tier in-process cache. L1 is a small LRU for hot
// entries; L2 is a larger warm store with TTL plus capacity-bounded
// eviction. All methods are safe for concurrent use; a lookup racing an
// eviction sees either the value or a clean miss.
type TieredCache[V any] struct {
	cfg   TieredConfig[V]
	l1Cap int
	l2Cap int

	mu sync.Mutex
	l1 *lru.Cache[string, *entry[V]]
	l2 map[string]*entry[V]
	// dropping suppresses the L1 evict callback's demotion while an entry
	// is being removed for good (expiry, Delete). Guarded by mu.
	dropping bool

	flights dedup.Group[V]

	hits        atomic.Int64
	misses      atomic.Int64
	l1Hits      atomic.Int64
	l2Hits      atomic.Int64
	evictions   atomic.Int64
	promotions  atomic.Int64
	demotions   atomic.Int64
	expirations atomic.Int64
	lookups     atomic.Int64
	lookupNanos atomic.Int64

	done      chan struct{}
	closeOnce sync.Once
	closed    atomic.Bool
}

// NewTieredCache creates a two-tier cache and starts its background sweep.
// Call Close to stop the sweep.
func NewTieredCache[V any](cfg TieredConfig[V]) (*TieredCache[V], error) {
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = 1024
	}
	if cfg.L1Fraction <= 0 || cfg.L1Fraction >= 1 {
		cfg.L1Fraction = 0.3
	}
	if cfg.PromoteThreshold <= 0 {
		cfg.PromoteThreshold = 3
	}
	if cfg.PromoteWindow <= 0 {
		cfg.PromoteWindow = 60 * time.Second
	}
	if cfg.DemoteAfter <= 0 {
		cfg.DemoteAfter = 5 * time.Minute
	}
	if cfg.SweepInterval == 0 {
		cfg.SweepInterval = 30 * time.Second
	}
	if !cfg.Policy.ShouldCache() && cfg.Policy.MaxTTL == 0 {
		cfg.Policy = DefaultPolicy()
	}
	if cfg.Sizer == nil {
		cfg.Sizer = defaultSize[V]
	}

	c := &TieredCache[V]{
		cfg:  cfg,
		done: make(chan struct{}),
	}

	c.l1Cap = int(float64(cfg.MaxEntries) * cfg.L1Fraction)
	if c.l1Cap < 1 {
		c.l1Cap = 1
	}
	c.l2Cap = cfg.MaxEntries - c.l1Cap
	if c.l2Cap < 1 {
		c.l2Cap = 1
	}

	l1, err := lru.NewWithEvict(c.l1Cap, c.onL1Evict)
	if err != nil {
		return nil, &Error{Op: "create l1 tier", Err: err}
	}
	c.l1 = l1
	c.l2 = make(map[string]*entry[V], c.l2Cap)

	if cfg.SweepInterval > 0 {
		go c.sweepLoop()
	}

	return c, nil
}

// onL1Evict receives entries leaving L1. Under LRU pressure the entry is
// demoted into L2, preserving the value for a possible later hit. Only
// called from operations that already hold mu.
func (c *TieredCache[V]) onL1Evict(key string, e *entry[V]) {
	if c.dropping {
		return
	}
	if !e.valid(time.Now()) {
		c.expirations.Add(1)
		return
	}
	c.insertL2(key, e)
	c.demotions.Add(1)
}

// insertL2 places an entry into L2, evicting the least-recently-accessed
// entry if the tier is at capacity. Caller holds mu.
func (c *TieredCache[V]) insertL2(key string, e *entry[V]) {
	if _, ok := c.l2[key]; !ok && len(c.l2) >= c.l2Cap {
		var coldest string
		var coldestAccess time.Time
		for k, v := range c.l2 {
			if coldest == "" || v.lastAccess.Before(coldestAccess) {
				coldest = k
				coldestAccess = v.lastAccess
			}
		}
		delete(c.l2, coldest)
		c.evictions.Add(1)
	}
	c.l2[key] = e
}

// Get retrieves a cached value. Returns the zero value and false on a miss
// or an expired entry; expired entries are removed lazily.
func (c *TieredCache[V]) Get(_ context.Context, key string) (V, bool) {
	var zero V
	start := time.Now()
	defer func() {
		c.lookups.Add(1)
		c.lookupNanos.Add(time.Since(start).Nanoseconds())
	}()

	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.l1.Get(key); ok {
		if !e.valid(now) {
			c.dropping = true
			c.l1.Remove(key)
			c.dropping = false
			c.expirations.Add(1)
			c.misses.Add(1)
			return zero, false
		}
		e.touch(now, c.cfg.PromoteWindow)
		c.hits.Add(1)
		c.l1Hits.Add(1)
		return e.value, true
	}

	if e, ok := c.l2[key]; ok {
		if !e.valid(now) {
			delete(c.l2, key)
			c.expirations.Add(1)
			c.misses.Add(1)
			return zero, false
		}
		e.touch(now, c.cfg.PromoteWindow)
		c.hits.Add(1)
		c.l2Hits.Add(1)

		// Hot enough for the fast tier?
		if e.windowHits > c.cfg.PromoteThreshold {
			delete(c.l2, key)
			c.l1.Add(key, e)
			c.promotions.Add(1)
		}
		return e.value, true
	}

	c.misses.Add(1)
	return zero, false
}

// Set stores a value with the given TTL (0 means the policy default,
// clamped to the policy maximum). New entries land in L1; under pressure
// the coldest L1 entry is demoted to L2.
func (c *TieredCache[V]) Set(_ context.Context, key string, value V, ttl time.Duration) error {
	if c.closed.Load() {
		return ErrClosed
	}
	if err := ValidateKey(key); err != nil {
		return err
	}

	ttl = c.cfg.Policy.EffectiveTTL(ttl)
	if ttl <= 0 {
		return nil
	}

	now := time.Now()
	e := &entry[V]{
		value:       value,
		createdAt:   now,
		ttl:         ttl,
		size:        c.cfg.Sizer(value),
		lastAccess:  now,
		windowStart: now,
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// The new entry supersedes any stale copy in the warm tier.
	delete(c.l2, key)
	c.l1.Add(key, e)
	return nil
}

// Delete removes a key from both tiers. Returns true if it was present.
func (c *TieredCache[V]) Delete(_ context.Context, key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, inL2 := c.l2[key]
	delete(c.l2, key)

	c.dropping = true
	inL1 := c.l1.Remove(key)
	c.dropping = false

	return inL1 || inL2
}

// GetOrSet returns the cached value for key, computing and storing it via
// factory on a miss. Concurrent misses for the same key are coalesced into
// a single factory call; every caller gets that call's result. A factory
// failure is returned to all subscribers and nothing is cached. Internal
// store failures degrade to "computed but not cached" rather than erroring.
func (c *TieredCache[V]) GetOrSet(ctx context.Context, key string, factory func(context.Context) (V, error), ttl time.Duration) (V, error) {
	if v, ok := c.Get(ctx, key); ok {
		return v, nil
	}

	return c.flights.Coalesce(ctx, key, func(ctx context.Context) (V, error) {
		// A racing flight may have filled the cache between the miss and
		// this execution.
		if v, ok := c.Get(ctx, key); ok {
			return v, nil
		}
		v, err := factory(ctx)
		if err != nil {
			var zero V
			return zero, err
		}
		_ = c.Set(ctx, key, v, ttl)
		return v, nil
	})
}

// Close stops the background sweep. The cache remains readable but rejects
// new writes.
func (c *TieredCache[V]) Close() {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		close(c.done)
	})
}

func (c *TieredCache[V]) sweepLoop() {
	ticker := time.NewTicker(c.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.sweep(time.Now())
		}
	}
}

// sweep removes expired entries from both tiers and demotes L1 entries
// that have gone cold. The critical section is bounded by the tier sizes,
// which are capped by configuration.
func (c *TieredCache[V]) sweep(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for k, e := range c.l2 {
		if !e.valid(now) {
			delete(c.l2, k)
			c.expirations.Add(1)
		}
	}

	for _, k := range c.l1.Keys() {
		e, ok := c.l1.Peek(k)
		if !ok {
			continue
		}
		switch {
		case !e.valid(now):
			c.dropping = true
			c.l1.Remove(k)
			c.dropping = false
			c.expirations.Add(1)
		case now.Sub(e.lastAccess) > c.cfg.DemoteAfter:
			// Cold: push back to the warm tier instead of dropping.
			c.l1.Remove(k)
		}
	}
}

func defaultSize[V any](v V) int64 {
	switch x := any(v).(type) {
	case []byte:
		return int64(len(x))
	case string:
		return int64(len(x))
	default:
		return approxEntryOverhead
	}
}
