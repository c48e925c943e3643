package common

import (
	"context"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/moldin/gcp-budget-agent/internal/instrumentation"
	"github.com/moldin/gcp-budget-agent/internal/server"
)

// ToolHandler is the mcp-go tool handler signature.
type ToolHandler = func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)

type invocationKey struct{}

// InstrumentedToolHandler wraps a tool handler with a span, metrics and
// audit logging. The query and max_results arguments, when present, are
// recorded on the audit record.
//
// Usage:
//
//	s.AddTool(tool, common.InstrumentedToolHandler("search_transactions", sc, handler))
func InstrumentedToolHandler(toolName string, sc *server.ServerContext, handler ToolHandler) ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ctx, span := instrumentation.StartToolSpan(ctx, toolName)
		defer span.End()

		start := time.Now()
		invocation := instrumentation.NewToolInvocation(toolName).
			WithSpanContext(ctx).
			WithMailbox(mailbox(sc))

		args := request.GetArguments()
		if query, ok := args["query"].(string); ok {
			invocation.WithQuery(query, maxResultsArg(args))
		}

		result, err := handler(context.WithValue(ctx, invocationKey{}, invocation), request)
		duration := time.Since(start)

		status := instrumentation.StatusSuccess
		switch {
		case err != nil:
			status = instrumentation.StatusError
			invocation.Complete(false, err)
			instrumentation.SetSpanError(span, err)
		case result != nil && result.IsError:
			status = instrumentation.StatusError
			invocation.Complete(false, nil)
		default:
			invocation.Complete(true, nil)
			instrumentation.SetSpanSuccess(span)
		}

		sc.Metrics().RecordToolInvocation(ctx, toolName, status, duration)
		sc.AuditLogger().LogToolInvocation(invocation)

		return result, err
	}
}

// RecordReturned sets the number of emails a tool returned on the audit
// record of the current invocation. It is a no-op outside
// InstrumentedToolHandler.
func RecordReturned(ctx context.Context, n int) {
	if ti, ok := ctx.Value(invocationKey{}).(*instrumentation.ToolInvocation); ok {
		ti.WithReturned(n)
	}
}

// RecordQuery sets the query a tool built from its arguments.
func RecordQuery(ctx context.Context, query string, maxResults int) {
	if ti, ok := ctx.Value(invocationKey{}).(*instrumentation.ToolInvocation); ok {
		ti.WithQuery(query, maxResults)
	}
}

func mailbox(sc *server.ServerContext) string {
	if subject := sc.Config().Credentials.Subject; subject != "" {
		return subject
	}
	return "me"
}

func maxResultsArg(args map[string]any) int {
	switch v := args["max_results"].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return 0
}
