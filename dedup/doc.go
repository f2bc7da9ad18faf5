// Package dedup coalesces concurrent identical requests into a single
// in-flight execution.
//
// The first caller for a key runs the function; every concurrent caller
// with the same key subscribes to that flight and receives the same result
// or the same failure. The flight is forgotten the instant it settles, so a
// later call with the same key starts fresh work instead of replaying a
// stale result. A subscriber that cancels its own context detaches without
// affecting the shared execution or the other subscribers.
package dedup
