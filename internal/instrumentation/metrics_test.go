package instrumentation

import (
	"context"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

// counterTotal sums every data point of the named int64 counter.
func counterTotal(t *testing.T, reader *sdkmetric.ManualReader, name string) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}
	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				t.Fatalf("%s is not an int64 sum", name)
			}
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
		}
	}
	return total
}

func TestMetrics_Counters(t *testing.T) {
	ctx := context.Background()
	m, reader := newTestMetrics(t)

	m.RecordGmailCall(ctx, OperationSearch, StatusSuccess, 120*time.Millisecond)
	m.RecordGmailCall(ctx, OperationFetch, StatusError, 5*time.Second)
	m.RecordGmailRetry(ctx, OperationFetch)
	m.RecordMessageSkipped(ctx)
	m.RecordExtraction(ctx, ExtractionText)
	m.RecordExtraction(ctx, ExtractionDecodeError)
	m.RecordExtraction(ctx, ExtractionEmpty)
	m.RecordCredentialBuild(ctx, CredentialBuildSuccess)
	m.RecordCredentialInvalidation(ctx)
	m.RecordToolInvocation(ctx, "search_transactions", StatusSuccess, time.Second)
	m.RecordHTTPRequest(ctx, "POST", "/mcp", 200, 10*time.Millisecond)

	tests := []struct {
		name string
		want int64
	}{
		{"gmail_api_calls_total", 2},
		{"gmail_api_retries_total", 1},
		{"retrieval_messages_skipped_total", 1},
		{"body_extractions_total", 3},
		{"credential_builds_total", 1},
		{"credential_invalidations_total", 1},
		{"mcp_tool_invocations_total", 1},
		{"http_requests_total", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := counterTotal(t, reader, tt.name); got != tt.want {
				t.Errorf("%s = %d, want %d", tt.name, got, tt.want)
			}
		})
	}
}

func TestMetrics_NilSafe(t *testing.T) {
	ctx := context.Background()

	var nilMetrics *Metrics
	zero := &Metrics{}

	for _, m := range []*Metrics{nilMetrics, zero} {
		// Should not panic
		m.RecordGmailCall(ctx, OperationSearch, StatusSuccess, time.Millisecond)
		m.RecordGmailRetry(ctx, OperationSearch)
		m.RecordMessageSkipped(ctx)
		m.RecordExtraction(ctx, ExtractionText)
		m.RecordCredentialBuild(ctx, CredentialBuildFailure)
		m.RecordCredentialInvalidation(ctx)
		m.RecordToolInvocation(ctx, "tool", StatusError, time.Millisecond)
		m.RecordHTTPRequest(ctx, "GET", "/", 404, time.Millisecond)
	}
}
