package observe

import (
	"context"
	"errors"
	"testing"
	"time"
)

// TestConfig_Validate covers the validation matrix.
func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr error
	}{
		{
			name:    "missing service name",
			cfg:     Config{},
			wantErr: ErrMissingServiceName,
		},
		{
			name: "valid minimal",
			cfg:  Config{ServiceName: "svc"},
		},
		{
			name: "unknown tracing exporter",
			cfg: Config{
				ServiceName: "svc",
				Tracing:     TracingConfig{Enabled: true, Exporter: "carrier-pigeon"},
			},
			wantErr: ErrInvalidTracingExporter,
		},
		{
			name: "sample pct out of range",
			cfg: Config{
				ServiceName: "svc",
				Tracing:     TracingConfig{Enabled: true, Exporter: "none", SamplePct: 1.5},
			},
			wantErr: ErrInvalidSamplePct,
		},
		{
			name: "unknown metrics exporter",
			cfg: Config{
				ServiceName: "svc",
				Metrics:     MetricsConfig{Enabled: true, Exporter: "carrier-pigeon"},
			},
			wantErr: ErrInvalidMetricsExporter,
		},
		{
			name: "unknown log level",
			cfg: Config{
				ServiceName: "svc",
				Logging:     LoggingConfig{Enabled: true, Level: "shout"},
			},
			wantErr: ErrInvalidLogLevel,
		},
		{
			name: "fully enabled valid",
			cfg: Config{
				ServiceName: "svc",
				Version:     "1.0.0",
				Tracing:     TracingConfig{Enabled: true, Exporter: "none", SamplePct: 0.5},
				Metrics:     MetricsConfig{Enabled: true, Exporter: "none"},
				Logging:     LoggingConfig{Enabled: true, Level: "debug"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

// TestNewObserver_Disabled verifies disabled subsystems yield usable no-ops.
func TestNewObserver_Disabled(t *testing.T) {
	obs, err := NewObserver(context.Background(), Config{ServiceName: "observe-test"})
	if err != nil {
		t.Fatalf("NewObserver failed: %v", err)
	}

	if obs.Tracer() == nil {
		t.Fatal("expected non-nil tracer")
	}
	if obs.Meter() == nil {
		t.Fatal("expected non-nil meter")
	}
	if obs.Logger() == nil {
		t.Fatal("expected non-nil logger")
	}

	// No-op logger must accept calls without output side effects.
	obs.Logger().Info(context.Background(), "ignored")
	obs.Logger().WithOp(OpMeta{Component: "cache"}).Error(context.Background(), "ignored")

	if err := obs.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}
}

// TestNewObserver_EnabledNoneExporters verifies the full wiring path with
// discard exporters.
func TestNewObserver_EnabledNoneExporters(t *testing.T) {
	cfg := Config{
		ServiceName: "observe-test",
		Version:     "0.1.0",
		Tracing:     TracingConfig{Enabled: true, Exporter: "none", SamplePct: 1.0},
		Metrics:     MetricsConfig{Enabled: true, Exporter: "none"},
		Logging:     LoggingConfig{Enabled: true, Level: "error"},
	}

	obs, err := NewObserver(context.Background(), cfg)
	if err != nil {
		t.Fatalf("NewObserver failed: %v", err)
	}

	_, span := obs.Tracer().Start(context.Background(), "test-span")
	span.End()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := obs.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}
}

// TestNewObserver_InvalidConfig verifies construction is refused up front.
func TestNewObserver_InvalidConfig(t *testing.T) {
	_, err := NewObserver(context.Background(), Config{})
	if !errors.Is(err, ErrMissingServiceName) {
		t.Fatalf("expected ErrMissingServiceName, got %v", err)
	}
}

func TestOpMeta_Name(t *testing.T) {
	if got := (OpMeta{Component: "cache"}).Name(); got != "cache" {
		t.Errorf("Name() = %q", got)
	}
	if got := (OpMeta{Component: "resilience", Dependency: "db"}).Name(); got != "resilience.db" {
		t.Errorf("Name() = %q", got)
	}
}
