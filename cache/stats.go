package cache

import "time"

// Stats is a read-only snapshot of cache activity. It is derived state for
// dashboards and health checks, never an input to cache behavior.
type Stats struct {
	Hits   int64
	Misses int64
	// HitRate is Hits / (Hits + Misses), 0 when the cache is unused.
	HitRate float64

	// Per-tier hit breakdown.
	L1Hits int64
	L2Hits int64

	Evictions   int64
	Promotions  int64
	Demotions   int64
	Expirations int64

	// AvgLookup is the mean wall time of Get calls.
	AvgLookup time.Duration

	L1Entries int
	L2Entries int
	SizeBytes int64
}

// Stats returns a snapshot of the cache's counters and current footprint.
func (c *TieredCache[V]) Stats() Stats {
	s := Stats{
		Hits:        c.hits.Load(),
		Misses:      c.misses.Load(),
		L1Hits:      c.l1Hits.Load(),
		L2Hits:      c.l2Hits.Load(),
		Evictions:   c.evictions.Load(),
		Promotions:  c.promotions.Load(),
		Demotions:   c.demotions.Load(),
		Expirations: c.expirations.Load(),
	}

	if total := s.Hits + s.Misses; total > 0 {
		s.HitRate = float64(s.Hits) / float64(total)
	}
	if lookups := c.lookups.Load(); lookups > 0 {
		s.AvgLookup = time.Duration(c.lookupNanos.Load() / lookups)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	s.L1Entries = c.l1.Len()
	s.L2Entries = len(c.l2)
	for _, k := range c.l1.Keys() {
		if e, ok := c.l1.Peek(k); ok {
			s.SizeBytes += e.size
		}
	}
	for _, e := range c.l2 {
		s.SizeBytes += e.size
	}
	return s
}
