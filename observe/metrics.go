package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records pipeline events: guarded remote calls, admission
// decisions, cache lookups, coalesced flights, and breaker transitions.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordCall records one guarded remote call with duration and outcome.
	RecordCall(ctx context.Context, meta OpMeta, duration time.Duration, err error)

	// RecordAdmission records a rate-limiter decision. kind carries the
	// violation kind for rejections and is empty for admitted requests.
	RecordAdmission(ctx context.Context, allowed bool, kind string)

	// RecordCacheLookup records a cache lookup with the serving tier.
	RecordCacheLookup(ctx context.Context, hit bool, tier string)

	// RecordCoalesced records one caller attached to an existing in-flight
	// computation instead of starting its own.
	RecordCoalesced(ctx context.Context)

	// RecordBreakerTransition records a circuit state change.
	RecordBreakerTransition(ctx context.Context, name, from, to string)
}

// metricsImpl is the concrete implementation of Metrics.
type metricsImpl struct {
	meter metric.Meter

	callTotal    metric.Int64Counter
	callErrors   metric.Int64Counter
	callDuration metric.Float64Histogram

	admissions  metric.Int64Counter
	cacheLookup metric.Int64Counter
	coalesced   metric.Int64Counter
	transitions metric.Int64Counter
}

// NewMetrics creates a Metrics instance with the given meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	callTotal, err := meter.Int64Counter(
		"guard.call.total",
		metric.WithDescription("Total number of guarded remote calls"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	callErrors, err := meter.Int64Counter(
		"guard.call.errors",
		metric.WithDescription("Total number of failed guarded remote calls"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	callDuration, err := meter.Float64Histogram(
		"guard.call.duration_ms",
		metric.WithDescription("Guarded remote call duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	admissions, err := meter.Int64Counter(
		"guard.admission.total",
		metric.WithDescription("Rate limiter admission decisions"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	cacheLookup, err := meter.Int64Counter(
		"guard.cache.lookups",
		metric.WithDescription("Cache lookups by outcome and tier"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		return nil, err
	}

	coalesced, err := meter.Int64Counter(
		"guard.dedup.coalesced",
		metric.WithDescription("Callers attached to an existing in-flight computation"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	transitions, err := meter.Int64Counter(
		"guard.breaker.transitions",
		metric.WithDescription("Circuit breaker state transitions"),
		metric.WithUnit("{transition}"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{
		meter:        meter,
		callTotal:    callTotal,
		callErrors:   callErrors,
		callDuration: callDuration,
		admissions:   admissions,
		cacheLookup:  cacheLookup,
		coalesced:    coalesced,
		transitions:  transitions,
	}, nil
}

// RecordCall records counters and the duration histogram for one call.
func (m *metricsImpl) RecordCall(ctx context.Context, meta OpMeta, duration time.Duration, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("op.component", meta.Component),
	}
	if meta.Dependency != "" {
		attrs = append(attrs, attribute.String("op.dependency", meta.Dependency))
	}

	opt := metric.WithAttributes(attrs...)

	m.callTotal.Add(ctx, 1, opt)
	if err != nil {
		m.callErrors.Add(ctx, 1, opt)
	}
	m.callDuration.Record(ctx, float64(duration.Milliseconds()), opt)
}

func (m *metricsImpl) RecordAdmission(ctx context.Context, allowed bool, kind string) {
	attrs := []attribute.KeyValue{
		attribute.Bool("admission.allowed", allowed),
	}
	if kind != "" {
		attrs = append(attrs, attribute.String("admission.violation", kind))
	}
	m.admissions.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *metricsImpl) RecordCacheLookup(ctx context.Context, hit bool, tier string) {
	m.cacheLookup.Add(ctx, 1, metric.WithAttributes(
		attribute.Bool("cache.hit", hit),
		attribute.String("cache.tier", tier),
	))
}

func (m *metricsImpl) RecordCoalesced(ctx context.Context) {
	m.coalesced.Add(ctx, 1)
}

func (m *metricsImpl) RecordBreakerTransition(ctx context.Context, name, from, to string) {
	m.transitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("breaker.name", name),
		attribute.String("breaker.from", from),
		attribute.String("breaker.to", to),
	))
}

// noopMetrics is a metrics implementation that does nothing.
type noopMetrics struct{}

func (noopMetrics) RecordCall(context.Context, OpMeta, time.Duration, error) {}
func (noopMetrics) RecordAdmission(context.Context, bool, string)           {}
func (noopMetrics) RecordCacheLookup(context.Context, bool, string)         {}
func (noopMetrics) RecordCoalesced(context.Context)                         {}
func (noopMetrics) RecordBreakerTransition(context.Context, string, string, string) {
}

// NewNoopMetrics creates a Metrics that discards everything.
func NewNoopMetrics() Metrics { return noopMetrics{} }
