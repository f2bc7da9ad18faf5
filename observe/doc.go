// Package observe provides observability primitives for the guard pipeline.
//
// It is a pure instrumentation library: no execution, no transport, no I/O
// beyond exporter setup. Consumers wrap their remote calls with an
// Instrumenter and feed pipeline events (admissions, cache lookups, breaker
// transitions) into Metrics.
package observe
