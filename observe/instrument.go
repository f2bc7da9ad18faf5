package observe

import (
	"context"
	"time"
)

// CallFunc is the signature for guarded remote calls that the Instrumenter
// wraps.
type CallFunc func(ctx context.Context) (any, error)

// Instrumenter wraps remote calls with tracing, metrics, and logging.
//
// Contract:
//   - Concurrency: Wrap() returns a thread-safe CallFunc.
//   - Context: propagates context through tracing spans.
//   - Errors: errors from the wrapped function are recorded and propagated
//     unchanged.
type Instrumenter struct {
	tracer  Tracer
	metrics Metrics
	logger  Logger
}

// NewInstrumenter creates an Instrumenter from individual components.
func NewInstrumenter(tracer Tracer, metrics Metrics, logger Logger) *Instrumenter {
	return &Instrumenter{
		tracer:  tracer,
		metrics: metrics,
		logger:  logger,
	}
}

// InstrumenterFromObserver creates an Instrumenter from an Observer.
func InstrumenterFromObserver(obs Observer) (*Instrumenter, error) {
	if obs == nil {
		return nil, ErrNilObserver
	}

	metrics, err := NewMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}

	return NewInstrumenter(NewTracer(obs.Tracer()), metrics, obs.Logger()), nil
}

// Wrap wraps fn with a span, call metrics, and a completion log entry.
func (i *Instrumenter) Wrap(meta OpMeta, fn CallFunc) CallFunc {
	if meta.Component == "" {
		meta.Component = "unknown"
	}

	return func(ctx context.Context) (any, error) {
		ctx, span := i.tracer.StartSpan(ctx, meta)
		start := time.Now()

		result, err := fn(ctx)

		duration := time.Since(start)
		i.tracer.EndSpan(span, err)
		i.metrics.RecordCall(ctx, meta, duration, err)

		opLogger := i.logger.WithOp(meta)
		fields := []Field{
			{Key: "duration_ms", Value: float64(duration.Milliseconds())},
		}

		if err != nil {
			fields = append(fields, Field{Key: "error", Value: err.Error()})
			opLogger.Error(ctx, "guarded call failed", fields...)
		} else {
			opLogger.Info(ctx, "guarded call completed", fields...)
		}

		return result, err
	}
}
