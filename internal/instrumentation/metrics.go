package instrumentation

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	attrMethod    = "method"
	attrPath      = "path"
	attrStatus    = "status"
	attrOperation = "operation"
	attrResult    = "result"
	attrTool      = "tool"
)

var durationBuckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0}

// Metrics records budget-agent metrics. A zero Metrics is a valid no-op
// recorder, and every method is safe on a nil receiver.
type Metrics struct {
	httpRequestsTotal   metric.Int64Counter
	httpRequestDuration metric.Float64Histogram

	gmailCallsTotal   metric.Int64Counter
	gmailCallDuration metric.Float64Histogram
	gmailRetriesTotal metric.Int64Counter

	messagesSkippedTotal metric.Int64Counter
	extractionsTotal     metric.Int64Counter

	credentialBuildsTotal        metric.Int64Counter
	credentialInvalidationsTotal metric.Int64Counter

	toolInvocationsTotal metric.Int64Counter
	toolDuration         metric.Float64Histogram
}

// NewMetrics creates all instruments on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
		unit string
	}{
		{&m.httpRequestsTotal, "http_requests_total", "Total number of HTTP requests", "{request}"},
		{&m.gmailCallsTotal, "gmail_api_calls_total", "Total number of Gmail API calls", "{call}"},
		{&m.gmailRetriesTotal, "gmail_api_retries_total", "Gmail API calls retried after a transient error", "{retry}"},
		{&m.messagesSkippedTotal, "retrieval_messages_skipped_total", "Messages skipped because their fetch failed", "{message}"},
		{&m.extractionsTotal, "body_extractions_total", "Message bodies extracted, by outcome", "{message}"},
		{&m.credentialBuildsTotal, "credential_builds_total", "Attempts to build Gmail credentials", "{attempt}"},
		{&m.credentialInvalidationsTotal, "credential_invalidations_total", "Cached credentials dropped after a refresh failure", "{event}"},
		{&m.toolInvocationsTotal, "mcp_tool_invocations_total", "Total number of MCP tool invocations", "{invocation}"},
	}
	for _, c := range counters {
		*c.dst, err = meter.Int64Counter(c.name, metric.WithDescription(c.desc), metric.WithUnit(c.unit))
		if err != nil {
			return nil, fmt.Errorf("failed to create %s counter: %w", c.name, err)
		}
	}

	histograms := []struct {
		dst  *metric.Float64Histogram
		name string
		desc string
	}{
		{&m.httpRequestDuration, "http_request_duration_seconds", "HTTP request duration in seconds"},
		{&m.gmailCallDuration, "gmail_api_call_duration_seconds", "Gmail API call duration in seconds, retries included"},
		{&m.toolDuration, "mcp_tool_duration_seconds", "MCP tool execution duration in seconds"},
	}
	for _, h := range histograms {
		*h.dst, err = meter.Float64Histogram(h.name,
			metric.WithDescription(h.desc),
			metric.WithUnit("s"),
			metric.WithExplicitBucketBoundaries(durationBuckets...),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create %s histogram: %w", h.name, err)
		}
	}

	return m, nil
}

// RecordHTTPRequest records an HTTP request served by the streamable-http transport.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, statusCode int, duration time.Duration) {
	if m == nil || m.httpRequestsTotal == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String(attrMethod, method),
		attribute.String(attrPath, path),
		attribute.String(attrStatus, strconv.Itoa(statusCode)),
	)
	m.httpRequestsTotal.Add(ctx, 1, attrs)
	m.httpRequestDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordGmailCall records one logical Gmail API call (search or fetch).
func (m *Metrics) RecordGmailCall(ctx context.Context, operation, status string, duration time.Duration) {
	if m == nil || m.gmailCallsTotal == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String(attrOperation, operation),
		attribute.String(attrStatus, status),
	)
	m.gmailCallsTotal.Add(ctx, 1, attrs)
	m.gmailCallDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordGmailRetry records a retry of a Gmail API call.
func (m *Metrics) RecordGmailRetry(ctx context.Context, operation string) {
	if m == nil || m.gmailRetriesTotal == nil {
		return
	}
	m.gmailRetriesTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrOperation, operation)))
}

// RecordMessageSkipped records a message left out of a result because its fetch failed.
func (m *Metrics) RecordMessageSkipped(ctx context.Context) {
	if m == nil || m.messagesSkippedTotal == nil {
		return
	}
	m.messagesSkippedTotal.Add(ctx, 1)
}

// RecordExtraction records a body extraction outcome
// (ExtractionText, ExtractionEmpty or ExtractionDecodeError).
func (m *Metrics) RecordExtraction(ctx context.Context, result string) {
	if m == nil || m.extractionsTotal == nil {
		return
	}
	m.extractionsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrResult, result)))
}

// RecordCredentialBuild records an attempt to build Gmail credentials.
func (m *Metrics) RecordCredentialBuild(ctx context.Context, result string) {
	if m == nil || m.credentialBuildsTotal == nil {
		return
	}
	m.credentialBuildsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrResult, result)))
}

// RecordCredentialInvalidation records cached credentials being dropped.
func (m *Metrics) RecordCredentialInvalidation(ctx context.Context) {
	if m == nil || m.credentialInvalidationsTotal == nil {
		return
	}
	m.credentialInvalidationsTotal.Add(ctx, 1)
}

// RecordToolInvocation records an MCP tool invocation with tool name, status, and duration.
func (m *Metrics) RecordToolInvocation(ctx context.Context, toolName, status string, duration time.Duration) {
	if m == nil || m.toolInvocationsTotal == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String(attrTool, toolName),
		attribute.String(attrStatus, status),
	)
	m.toolInvocationsTotal.Add(ctx, 1, attrs)
	m.toolDuration.Record(ctx, duration.Seconds(), attrs)
}
