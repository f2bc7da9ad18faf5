package dedup

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Group coalesces concurrent calls that share a key. The zero value is
// ready to use.
//
// Keys must be a pure function of the request-identifying fields (for
// example user ID plus a hash of the normalized payload): logically
// identical concurrent requests must map to the same key, distinct
// requests must not collide. See the cache package's Keyer for a
// deterministic derivation.
type Group[V any] struct {
	sf singleflight.Group

	mu      sync.Mutex
	tickets map[string]*ticket

	flights   int64
	coalesced int64
}

// ticket tracks one in-flight execution. It exists only while the flight
// is outstanding; at most one ticket per key at any time.
type ticket struct {
	subscribers int
	createdAt   time.Time
}

// Coalesce executes fn once per key per flight. Concurrent callers with
// the same key wait for the first caller's execution and receive its
// result. The shared execution runs on a context detached from the
// initiating caller, so one subscriber's cancellation never cancels the
// flight: a canceled subscriber gets its own ctx.Err() immediately while
// the flight settles the rest.
func (g *Group[V]) Coalesce(ctx context.Context, key string, fn func(context.Context) (V, error)) (V, error) {
	g.subscribe(key)

	ch := g.sf.DoChan(key, func() (any, error) {
		defer g.settle(key)
		// Detach from the subscriber that happened to initiate the flight;
		// its values (tracing, auth) carry over, its cancellation does not.
		return fn(context.WithoutCancel(ctx))
	})

	select {
	case <-ctx.Done():
		g.unsubscribe(key)
		var zero V
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			var zero V
			return zero, res.Err
		}
		v, _ := res.Val.(V)
		return v, nil
	}
}

// Forget drops the ticket for key so the next Coalesce starts a new flight
// even if one is outstanding. In-flight subscribers still get the old
// flight's result.
func (g *Group[V]) Forget(key string) {
	g.sf.Forget(key)
	g.mu.Lock()
	delete(g.tickets, key)
	g.mu.Unlock()
}

func (g *Group[V]) subscribe(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.tickets == nil {
		g.tickets = make(map[string]*ticket)
	}
	t, ok := g.tickets[key]
	if !ok {
		g.tickets[key] = &ticket{subscribers: 1, createdAt: time.Now()}
		g.flights++
		return
	}
	t.subscribers++
	g.coalesced++
}

func (g *Group[V]) unsubscribe(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if t, ok := g.tickets[key]; ok && t.subscribers > 0 {
		t.subscribers--
	}
}

func (g *Group[V]) settle(key string) {
	// Forget before dropping the ticket: once the ticket is gone a new
	// subscriber must start a fresh flight, never join this settled one.
	g.sf.Forget(key)
	g.mu.Lock()
	delete(g.tickets, key)
	g.mu.Unlock()
}

// Stats is a point-in-time view of the group's activity.
type Stats struct {
	// InFlight is the number of outstanding executions.
	InFlight int
	// Subscribers is the total subscriber count across outstanding flights.
	Subscribers int
	// Flights is the cumulative number of executions started.
	Flights int64
	// Coalesced is the cumulative number of callers that piggybacked on an
	// existing flight instead of executing.
	Coalesced int64
}

// Stats returns a snapshot of the group's activity.
func (g *Group[V]) Stats() Stats {
	g.mu.Lock()
	defer g.mu.Unlock()

	s := Stats{
		InFlight:  len(g.tickets),
		Flights:   g.flights,
		Coalesced: g.coalesced,
	}
	for _, t := range g.tickets {
		s.Subscribers += t.subscribers
	}
	return s
}
