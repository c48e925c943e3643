package instrumentation

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/moldin/gcp-budget-agent/internal/logging"
)

// ToolInvocation captures one MCP tool call for the audit log.
//
// Query text and the mailbox address are personal data: LogAttrs carries
// only hashes of them, LogAuditAttrs the mailbox itself.
type ToolInvocation struct {
	Tool    string
	Mailbox string
	Query   string

	// Result counts; zero when the tool does not search.
	MaxResults int
	Returned   int

	StartTime time.Time
	Duration  time.Duration
	Success   bool
	Error     string

	TraceID string
	SpanID  string
}

// NewToolInvocation creates a ToolInvocation with timing started.
func NewToolInvocation(tool string) *ToolInvocation {
	return &ToolInvocation{Tool: tool, StartTime: time.Now()}
}

// WithMailbox sets the mailbox the tool read from.
func (ti *ToolInvocation) WithMailbox(mailbox string) *ToolInvocation {
	ti.Mailbox = mailbox
	return ti
}

// WithQuery sets the search query and requested result cap.
func (ti *ToolInvocation) WithQuery(query string, maxResults int) *ToolInvocation {
	ti.Query = query
	ti.MaxResults = maxResults
	return ti
}

// WithReturned sets how many emails the tool returned.
func (ti *ToolInvocation) WithReturned(n int) *ToolInvocation {
	ti.Returned = n
	return ti
}

// WithSpanContext copies trace identifiers from the current span.
func (ti *ToolInvocation) WithSpanContext(ctx context.Context) *ToolInvocation {
	sc := trace.SpanFromContext(ctx).SpanContext()
	if sc.IsValid() {
		ti.TraceID = sc.TraceID().String()
		ti.SpanID = sc.SpanID().String()
	}
	return ti
}

// Complete marks the invocation finished.
func (ti *ToolInvocation) Complete(success bool, err error) *ToolInvocation {
	ti.Duration = time.Since(ti.StartTime)
	ti.Success = success
	if err != nil {
		ti.Error = err.Error()
	}
	return ti
}

// Status returns StatusSuccess or StatusError.
func (ti *ToolInvocation) Status() string {
	if ti.Success {
		return StatusSuccess
	}
	return StatusError
}

// LogAttrs returns attributes safe for operational logs.
func (ti *ToolInvocation) LogAttrs() []slog.Attr {
	attrs := ti.commonAttrs()
	if ti.Mailbox != "" {
		attrs = append(attrs, logging.Mailbox(ti.Mailbox))
	}
	return ti.appendTail(attrs)
}

// LogAuditAttrs returns attributes including the plain mailbox address.
func (ti *ToolInvocation) LogAuditAttrs() []slog.Attr {
	attrs := ti.commonAttrs()
	if ti.Mailbox != "" {
		attrs = append(attrs, slog.String("mailbox", ti.Mailbox))
	}
	attrs = ti.appendTail(attrs)
	if ti.SpanID != "" {
		attrs = append(attrs, slog.String("span_id", ti.SpanID))
	}
	return attrs
}

func (ti *ToolInvocation) commonAttrs() []slog.Attr {
	attrs := []slog.Attr{
		slog.String("tool", ti.Tool),
		slog.Duration("duration", ti.Duration),
		slog.Bool("success", ti.Success),
	}
	if ti.Query != "" {
		attrs = append(attrs, logging.QueryHash(ti.Query))
	}
	if ti.MaxResults > 0 {
		attrs = append(attrs, slog.Int("max_results", ti.MaxResults), slog.Int("returned", ti.Returned))
	}
	return attrs
}

func (ti *ToolInvocation) appendTail(attrs []slog.Attr) []slog.Attr {
	if ti.TraceID != "" {
		attrs = append(attrs, slog.String("trace_id", ti.TraceID))
	}
	if ti.Error != "" {
		attrs = append(attrs, slog.String("error", ti.Error))
	}
	return attrs
}

// AuditLogger writes one record per tool invocation.
type AuditLogger struct {
	logger     *slog.Logger
	includePII bool
	enabled    bool
}

// NewAuditLogger creates an AuditLogger from config. A nil logger uses slog.Default.
func NewAuditLogger(logger *slog.Logger, config AuditLoggingConfig) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{
		logger:     logger.With(slog.String("component", "audit")),
		includePII: config.IncludePII,
		enabled:    config.Enabled,
	}
}

// LogToolInvocation logs ti at info on success and warn on failure.
func (al *AuditLogger) LogToolInvocation(ti *ToolInvocation) {
	if al == nil || !al.enabled {
		return
	}

	attrs := ti.LogAttrs()
	if al.includePII {
		attrs = ti.LogAuditAttrs()
	}

	level := slog.LevelInfo
	msg := "tool_executed"
	if !ti.Success {
		level = slog.LevelWarn
		msg = "tool_failed"
	}
	al.logger.LogAttrs(context.Background(), level, msg, attrs...)
}
