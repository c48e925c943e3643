package instrumentation

import (
	"context"
	"testing"
	"time"
)

func TestNewProvider_Disabled(t *testing.T) {
	provider, err := NewProvider(context.Background(), Config{
		ServiceName: "test-service",
		Enabled:     false,
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if provider.Enabled() {
		t.Error("expected provider to be disabled")
	}
	if provider.Metrics() == nil {
		t.Error("expected metrics to be non-nil even when disabled")
	}
	if provider.ServesPrometheus() {
		t.Error("disabled provider should not serve prometheus")
	}
	if provider.Tracer("x") == nil {
		t.Error("expected a noop tracer")
	}
	if err := provider.Shutdown(context.Background()); err != nil {
		t.Errorf("expected no error on shutdown, got %v", err)
	}
}

func TestNewProvider_PrometheusExporter(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	provider, err := NewProvider(ctx, Config{
		ServiceName:     "test-service",
		ServiceVersion:  "1.0.0",
		Enabled:         true,
		MetricsExporter: ExporterPrometheus,
		TracingExporter: ExporterNone,
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	defer func() { _ = provider.Shutdown(ctx) }()

	if !provider.Enabled() {
		t.Error("expected provider to be enabled")
	}
	if !provider.ServesPrometheus() {
		t.Error("expected prometheus to be served")
	}

	// Should not panic
	provider.Metrics().RecordGmailCall(ctx, OperationSearch, StatusSuccess, time.Millisecond)
}

func TestNewProvider_InvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		config Config
	}{
		{"unknown metrics exporter", Config{Enabled: true, MetricsExporter: "graphite"}},
		{"unknown tracing exporter", Config{Enabled: true, MetricsExporter: ExporterPrometheus, TracingExporter: "zipkin"}},
		{"otlp without endpoint", Config{Enabled: true, MetricsExporter: ExporterOTLP}},
		{"sampling out of range", Config{Enabled: true, TraceSamplingRate: 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewProvider(context.Background(), tt.config); err == nil {
				t.Error("expected error")
			}
		})
	}
}
