// Package health exposes the guard pipeline's internal state as health
// checks.
//
// A Checker is any component that can report its health status: Healthy,
// Degraded, or Unhealthy. Component checkers read the pipeline's stats
// surfaces (breaker registry snapshots, cache stats, limiter stats) and
// translate them into statuses; the Aggregator combines them, and the HTTP
// handlers expose the composite over liveness, readiness, and detail
// endpoints.
//
//	agg := health.NewAggregator()
//	agg.Register("circuits", health.NewBreakerChecker(registry))
//	agg.Register("cache", health.NewCacheChecker("responses", cache.Stats, 0.2))
//	agg.Register("limiter", health.NewLimiterChecker(limiter, 0))
//	agg.Register("memory", health.NewMemoryChecker(health.MemoryCheckerConfig{}))
//
//	mux := http.NewServeMux()
//	health.RegisterHandlers(mux, agg)
package health
