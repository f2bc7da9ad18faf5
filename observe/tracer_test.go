package observe

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newRecordingTracer() (Tracer, *tracetest.SpanRecorder) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	return NewTracer(tp.Tracer("test")), sr
}

// TestOpMeta_SpanName verifies the deterministic span naming scheme.
func TestOpMeta_SpanName(t *testing.T) {
	tests := []struct {
		meta OpMeta
		want string
	}{
		{OpMeta{Component: "cache"}, "guard.cache"},
		{OpMeta{Component: "resilience", Dependency: "generation-api"}, "guard.resilience.generation-api"},
	}
	for _, tt := range tests {
		if got := tt.meta.SpanName(); got != tt.want {
			t.Errorf("SpanName() = %q, want %q", got, tt.want)
		}
	}
}

// TestTracer_SpanAttributes verifies operation metadata lands on the span.
func TestTracer_SpanAttributes(t *testing.T) {
	tracer, sr := newRecordingTracer()

	meta := OpMeta{Component: "resilience", Dependency: "generation-api"}
	_, span := tracer.StartSpan(context.Background(), meta)
	tracer.EndSpan(span, nil)

	spans := sr.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}

	got := spans[0]
	if got.Name() != "guard.resilience.generation-api" {
		t.Errorf("span name = %q", got.Name())
	}
	if got.Status().Code != codes.Ok {
		t.Errorf("expected Ok status, got %v", got.Status().Code)
	}

	attrs := make(map[string]any)
	for _, kv := range got.Attributes() {
		attrs[string(kv.Key)] = kv.Value.AsInterface()
	}
	if attrs["op.component"] != "resilience" {
		t.Errorf("op.component = %v", attrs["op.component"])
	}
	if attrs["op.dependency"] != "generation-api" {
		t.Errorf("op.dependency = %v", attrs["op.dependency"])
	}
	if attrs["op.error"] != false {
		t.Errorf("op.error = %v, want false", attrs["op.error"])
	}
}

// TestTracer_EndSpanRecordsError verifies error outcomes set span status.
func TestTracer_EndSpanRecordsError(t *testing.T) {
	tracer, sr := newRecordingTracer()

	_, span := tracer.StartSpan(context.Background(), OpMeta{Component: "resilience"})
	tracer.EndSpan(span, errors.New("upstream unavailable"))

	spans := sr.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}

	got := spans[0]
	if got.Status().Code != codes.Error {
		t.Errorf("expected Error status, got %v", got.Status().Code)
	}
	if got.Status().Description != "upstream unavailable" {
		t.Errorf("status description = %q", got.Status().Description)
	}
	if len(got.Events()) == 0 {
		t.Error("expected a recorded error event")
	}

	for _, kv := range got.Attributes() {
		if string(kv.Key) == "op.error" && kv.Value.AsBool() {
			return
		}
	}
	t.Error("expected op.error=true attribute after failed call")
}

// TestNoopTracer verifies the no-op tracer produces valid, inert spans.
func TestNoopTracer(t *testing.T) {
	tracer := NewNoopTracer()

	ctx, span := tracer.StartSpan(context.Background(), OpMeta{Component: "cache"})
	if ctx == nil {
		t.Fatal("expected non-nil context")
	}
	if span == nil {
		t.Fatal("expected non-nil span")
	}
	tracer.EndSpan(span, errors.New("ignored"))
}
