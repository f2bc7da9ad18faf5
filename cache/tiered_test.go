package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T, cfg TieredConfig[string]) *TieredCache[string] {
	t.Helper()
	if cfg.Policy == (Policy{}) {
		cfg.Policy = Policy{DefaultTTL: time.Minute, MaxTTL: time.Hour}
	}
	if cfg.SweepInterval == 0 {
		cfg.SweepInterval = -1 // sweeps driven manually in tests
	}
	c, err := NewTieredCache(cfg)
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func TestTieredCache_SetGet(t *testing.T) {
	c := newTestCache(t, TieredConfig[string]{MaxEntries: 10})
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", "v", time.Minute))

	v, ok := c.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, "v", v)

	_, ok = c.Get(ctx, "absent")
	assert.False(t, ok)
}

func TestTieredCache_TTLExpiry(t *testing.T) {
	c := newTestCache(t, TieredConfig[string]{
		MaxEntries: 10,
		Policy:     Policy{DefaultTTL: time.Minute},
	})
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", "v", 30*time.Millisecond))

	v, ok := c.Get(ctx, "k")
	require.True(t, ok, "value must be retrievable within its TTL")
	assert.Equal(t, "v", v)

	time.Sleep(35 * time.Millisecond)

	_, ok = c.Get(ctx, "k")
	assert.False(t, ok, "value must be a miss strictly after its TTL")
	assert.EqualValues(t, 1, c.Stats().Expirations)
}

func TestTieredCache_LRUEvictionScenario(t *testing.T) {
	// Budget of two entries: one hot slot, one warm slot. Writing a third
	// value with no reads in between pushes the least-recently-used value
	// out entirely.
	c := newTestCache(t, TieredConfig[string]{MaxEntries: 2})
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "a", "1", time.Minute))
	require.NoError(t, c.Set(ctx, "b", "2", time.Minute))
	require.NoError(t, c.Set(ctx, "c", "3", time.Minute))

	_, ok := c.Get(ctx, "a")
	assert.False(t, ok, "a is least recently used and must be evicted")

	v, ok := c.Get(ctx, "b")
	require.True(t, ok)
	assert.Equal(t, "2", v)

	v, ok = c.Get(ctx, "c")
	require.True(t, ok)
	assert.Equal(t, "3", v)
}

func TestTieredCache_DemotionPreservesValue(t *testing.T) {
	// L1 capacity 1 (3 total * 0.3 -> 1): a second write demotes the first
	// entry to L2 instead of dropping it.
	c := newTestCache(t, TieredConfig[string]{MaxEntries: 3})
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "a", "1", time.Minute))
	require.NoError(t, c.Set(ctx, "b", "2", time.Minute))

	v, ok := c.Get(ctx, "a")
	require.True(t, ok, "demoted entry must remain retrievable")
	assert.Equal(t, "1", v)

	s := c.Stats()
	assert.EqualValues(t, 1, s.Demotions)
	assert.EqualValues(t, 1, s.L2Hits, "demoted entry serves from L2")
}

func TestTieredCache_PromotionOnFrequentAccess(t *testing.T) {
	// MaxEntries 3 keeps L1 at a single slot, so the second write bumps
	// the first key down to L2.
	c := newTestCache(t, TieredConfig[string]{
		MaxEntries:       3,
		PromoteThreshold: 3,
		PromoteWindow:    time.Minute,
	})
	ctx := context.Background()

	// Land "hot" in L2 by writing a second key that claims L1.
	require.NoError(t, c.Set(ctx, "hot", "v", time.Minute))
	require.NoError(t, c.Set(ctx, "other", "x", time.Minute))
	require.EqualValues(t, 1, c.Stats().Demotions, "hot starts in L2")

	// Accesses 1..3 serve from L2; the 4th crosses the threshold and
	// promotes.
	for i := 0; i < 4; i++ {
		_, ok := c.Get(ctx, "hot")
		require.True(t, ok)
	}

	s := c.Stats()
	assert.EqualValues(t, 1, s.Promotions)

	_, ok := c.Get(ctx, "hot")
	require.True(t, ok)
	assert.EqualValues(t, 1, c.Stats().L1Hits-s.L1Hits, "promoted entry now serves from L1")
}

func TestTieredCache_SweepDemotesColdL1(t *testing.T) {
	c := newTestCache(t, TieredConfig[string]{
		MaxEntries:  10,
		DemoteAfter: 10 * time.Millisecond,
	})
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "cold", "v", time.Minute))
	time.Sleep(15 * time.Millisecond)

	c.sweep(time.Now())

	s := c.Stats()
	assert.EqualValues(t, 1, s.Demotions)
	assert.Equal(t, 0, s.L1Entries)
	assert.Equal(t, 1, s.L2Entries)

	v, ok := c.Get(ctx, "cold")
	require.True(t, ok)
	assert.Equal(t, "v", v)
}

func TestTieredCache_SweepRemovesExpired(t *testing.T) {
	c := newTestCache(t, TieredConfig[string]{MaxEntries: 10})
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "short", "v", 5*time.Millisecond))
	require.NoError(t, c.Set(ctx, "long", "v", time.Hour))
	time.Sleep(10 * time.Millisecond)

	c.sweep(time.Now())

	s := c.Stats()
	assert.EqualValues(t, 1, s.Expirations)
	assert.Equal(t, 1, s.L1Entries+s.L2Entries)
}

func TestTieredCache_Delete(t *testing.T) {
	c := newTestCache(t, TieredConfig[string]{MaxEntries: 10})
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", "v", time.Minute))

	assert.True(t, c.Delete(ctx, "k"))
	assert.False(t, c.Delete(ctx, "k"), "second delete is a no-op")

	_, ok := c.Get(ctx, "k")
	assert.False(t, ok)
}

func TestTieredCache_SetValidation(t *testing.T) {
	c := newTestCache(t, TieredConfig[string]{MaxEntries: 10})
	ctx := context.Background()

	assert.ErrorIs(t, c.Set(ctx, "", "v", time.Minute), ErrInvalidKey)
	assert.ErrorIs(t, c.Set(ctx, "bad\nkey", "v", time.Minute), ErrInvalidKey)

	long := make([]byte, MaxKeyLength+1)
	for i := range long {
		long[i] = 'x'
	}
	assert.ErrorIs(t, c.Set(ctx, string(long), "v", time.Minute), ErrKeyTooLong)
}

func TestTieredCache_GetOrSet_CoalescesMisses(t *testing.T) {
	c := newTestCache(t, TieredConfig[string]{MaxEntries: 10})
	ctx := context.Background()

	var calls atomic.Int64
	release := make(chan struct{})
	started := make(chan struct{})

	const n = 8
	var wg sync.WaitGroup
	results := make([]string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := c.GetOrSet(ctx, "k", func(ctx context.Context) (string, error) {
				if calls.Add(1) == 1 {
					close(started)
				}
				<-release
				return "computed", nil
			}, time.Minute)
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}

	<-started
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.EqualValues(t, 1, calls.Load(), "cache-miss stampede must collapse to one computation")
	for i := 0; i < n; i++ {
		assert.Equal(t, "computed", results[i])
	}

	// Subsequent lookups are pure cache hits.
	v, err := c.GetOrSet(ctx, "k", func(ctx context.Context) (string, error) {
		t.Error("factory must not run on a hit")
		return "", nil
	}, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "computed", v)
}

func TestTieredCache_GetOrSet_FactoryErrorNotCached(t *testing.T) {
	c := newTestCache(t, TieredConfig[string]{MaxEntries: 10})
	ctx := context.Background()

	boom := errors.New("generation failed")
	calls := 0

	_, err := c.GetOrSet(ctx, "k", func(ctx context.Context) (string, error) {
		calls++
		return "", boom
	}, time.Minute)
	assert.ErrorIs(t, err, boom)

	v, err := c.GetOrSet(ctx, "k", func(ctx context.Context) (string, error) {
		calls++
		return "recovered", nil
	}, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "recovered", v)
	assert.Equal(t, 2, calls, "a failure must not be cached")
}

func TestTieredCache_Stats(t *testing.T) {
	c := newTestCache(t, TieredConfig[string]{MaxEntries: 10})
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", "value", time.Minute))
	c.Get(ctx, "k")
	c.Get(ctx, "k")
	c.Get(ctx, "absent")

	s := c.Stats()
	assert.EqualValues(t, 2, s.Hits)
	assert.EqualValues(t, 1, s.Misses)
	assert.InDelta(t, 2.0/3.0, s.HitRate, 0.001)
	assert.EqualValues(t, 2, s.L1Hits)
	assert.EqualValues(t, int64(len("value")), s.SizeBytes)
	assert.Greater(t, s.AvgLookup, time.Duration(0))
}

func TestTieredCache_CloseStopsSweepAndWrites(t *testing.T) {
	c, err := NewTieredCache(TieredConfig[string]{
		MaxEntries:    10,
		SweepInterval: time.Millisecond,
		Policy:        Policy{DefaultTTL: time.Minute},
	})
	require.NoError(t, err)

	require.NoError(t, c.Set(context.Background(), "k", "v", time.Minute))
	c.Close()
	c.Close() // idempotent

	assert.ErrorIs(t, c.Set(context.Background(), "k2", "v", time.Minute), ErrClosed)

	// Reads still work after close.
	v, ok := c.Get(context.Background(), "k")
	require.True(t, ok)
	assert.Equal(t, "v", v)
}

func TestTieredCache_ConcurrentAccess(t *testing.T) {
	c := newTestCache(t, TieredConfig[string]{MaxEntries: 64})
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := fmt.Sprintf("key-%d", j%20)
				switch j % 3 {
				case 0:
					_ = c.Set(ctx, key, "v", time.Minute)
				case 1:
					// Must see the value or a clean miss, never garbage.
					if v, ok := c.Get(ctx, key); ok && v != "v" {
						t.Errorf("Get(%q) = %q, want v", key, v)
					}
				case 2:
					c.Delete(ctx, key)
				}
			}
		}(i)
	}
	wg.Wait()
}
