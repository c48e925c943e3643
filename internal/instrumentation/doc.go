// Package instrumentation provides OpenTelemetry metrics, tracing and audit
// logging for budget-agent.
//
// # Metrics
//
// HTTP (streamable-http transport only):
//   - http_requests_total, http_request_duration_seconds
//
// Gmail API:
//   - gmail_api_calls_total: logical search/fetch calls by operation and status
//   - gmail_api_call_duration_seconds: duration including retries
//   - gmail_api_retries_total: retries after 429, 5xx or timeouts
//
// Retrieval:
//   - retrieval_messages_skipped_total: messages dropped because their fetch failed
//   - body_extractions_total: extraction outcomes (text, empty, decode_error)
//
// Credentials:
//   - credential_builds_total: credential build attempts by result
//   - credential_invalidations_total: cached credentials dropped after a refresh failure
//
// MCP tools:
//   - mcp_tool_invocations_total, mcp_tool_duration_seconds
//
// # Configuration
//
// DefaultConfig reads INSTRUMENTATION_ENABLED, METRICS_EXPORTER
// (prometheus, otlp, stdout), TRACING_EXPORTER (otlp, stdout, none),
// OTEL_EXPORTER_OTLP_ENDPOINT, OTEL_EXPORTER_OTLP_INSECURE,
// OTEL_TRACES_SAMPLER_ARG, AUDIT_LOGGING_ENABLED and
// AUDIT_LOGGING_INCLUDE_PII.
//
// Every Metrics method is nil-safe so components can be constructed without
// instrumentation in tests.
package instrumentation
