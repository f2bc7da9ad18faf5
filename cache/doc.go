// Package cache provides an in-process two-tier cache for expensive
// computation results.
//
// A TieredCache keeps a small, hot L1 tier (LRU) in front of a larger,
// warm L2 tier. Entries promote from L2 to L1 when they are accessed
// frequently within a recency window; entries that go cold in L1 are
// demoted back to L2 instead of being dropped. Every entry carries its own
// TTL and is never returned past it. GetOrSet coalesces concurrent misses
// for the same key into a single computation so a miss cannot stampede the
// backing call.
package cache
