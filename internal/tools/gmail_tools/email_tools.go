package gmail_tools

import (
	"context"
	"errors"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/moldin/gcp-budget-agent/internal/gmail"
	"github.com/moldin/gcp-budget-agent/internal/server"
	"github.com/moldin/gcp-budget-agent/internal/tools/batch"
	"github.com/moldin/gcp-budget-agent/internal/tools/common"
)

func registerEmailTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	getEmailsTool := mcp.NewTool(ToolGetEmails,
		mcp.WithDescription("Fetch one or more Gmail messages by ID and return their headers and extracted bodies as JSON"),
		mcp.WithString("messageIds",
			mcp.Required(),
			mcp.Description("Message ID (string) or array of message IDs"),
		),
		mcp.WithBoolean("full_body",
			mcp.Description("Return whole bodies instead of a 1000 character preview (default: false)"),
		),
	)
	s.AddTool(getEmailsTool, common.InstrumentedToolHandler(ToolGetEmails, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleGetEmails(ctx, request, sc)
		}))
	return nil
}

func handleGetEmails(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	ids, err := batch.ParseStringOrArray(args["messageIds"], "messageIds")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	preview := previewChars(sc, args)
	mailbox := sc.Mailbox()

	var fatal error
	results := batch.ProcessBatch(ids, func(id string) (gmail.ExtractedEmail, error) {
		msg, err := mailbox.Fetch(ctx, gmail.MessageRef{ID: id})
		if err != nil {
			return gmail.ExtractedEmail{}, err
		}
		return gmail.Assemble(msg, preview), nil
	}, func(err error) bool {
		if gmail.IsCredentialError(err) || errors.Is(err, context.Canceled) || ctx.Err() != nil {
			fatal = err
			return true
		}
		return false
	})

	summary := batch.Summarize(results)
	if fatal != nil && summary.Successful == 0 {
		return failureResult(fatal), nil
	}
	common.RecordReturned(ctx, summary.Successful)

	out, err := batch.FormatResults(results)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(out), nil
}
