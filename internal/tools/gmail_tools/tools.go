package gmail_tools

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/moldin/gcp-budget-agent/internal/gmail"
	"github.com/moldin/gcp-budget-agent/internal/retrieval"
	"github.com/moldin/gcp-budget-agent/internal/server"
	"github.com/moldin/gcp-budget-agent/internal/tools/common"
)

// Tool names.
const (
	ToolSearchTransactions = "search_transactions"
	ToolSearchReceipts     = "gmail_search_receipts"
	ToolBuildQuery         = "gmail_build_query"
	ToolGetEmails          = "gmail_get_emails"
)

var formatDescription = fmt.Sprintf("Response format: one of %s (default: summary)", strings.Join(retrieval.Formats, ", "))

// RegisterGmailTools registers all Gmail tools with the MCP server
func RegisterGmailTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	if s == nil || sc == nil {
		return errors.New("mcp server and server context are required")
	}

	searchTool := mcp.NewTool(ToolSearchTransactions,
		mcp.WithDescription("Search Gmail for emails about a transaction and return their subjects and bodies"),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Gmail search query (e.g., 'after:2024/03/10 before:2024/03/14 (\"1049.12\" OR \"1049,12\")')"),
		),
		mcp.WithNumber("max_results",
			mcp.Description("Maximum number of emails to return (default: 5)"),
		),
		mcp.WithString("format",
			mcp.Description(formatDescription),
		),
		mcp.WithBoolean("full_body",
			mcp.Description("Return whole bodies instead of a 1000 character preview (default: false)"),
		),
	)
	s.AddTool(searchTool, common.InstrumentedToolHandler(ToolSearchTransactions, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleSearchTransactions(ctx, request, sc)
		}))

	receiptsTool := mcp.NewTool(ToolSearchReceipts,
		mcp.WithDescription("Search Gmail for the receipt or invoice of a bank transaction. Builds a query bounded to a date window around the transaction and matching the amount in all common number formats"),
		mcp.WithString("date",
			mcp.Required(),
			mcp.Description("Transaction date in YYYY-MM-DD form"),
		),
		mcp.WithString("amount",
			mcp.Description("Transaction amount as a number or ledger text (e.g., 1049.12 or '1 049,12'). The sign is ignored"),
		),
		mcp.WithString("keywords",
			mcp.Description("Keyword (string) or array of merchant tokens to match anywhere in the email (ignored when merchant is set)"),
		),
		mcp.WithString("merchant",
			mcp.Description("Merchant name to match in subject or sender; also restricts to receipt-like subjects"),
		),
		mcp.WithNumber("window_days",
			mcp.Description("Days before and after the date to include (default: 3)"),
		),
		mcp.WithNumber("max_results",
			mcp.Description("Maximum number of emails to return (default: 5)"),
		),
		mcp.WithString("format",
			mcp.Description(formatDescription),
		),
		mcp.WithBoolean("full_body",
			mcp.Description("Return whole bodies instead of a 1000 character preview (default: false)"),
		),
	)
	s.AddTool(receiptsTool, common.InstrumentedToolHandler(ToolSearchReceipts, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleSearchReceipts(ctx, request, sc)
		}))

	buildQueryTool := mcp.NewTool(ToolBuildQuery,
		mcp.WithDescription("Build the bounded Gmail query for a transaction without running it"),
		mcp.WithString("date",
			mcp.Required(),
			mcp.Description("Transaction date in YYYY-MM-DD form"),
		),
		mcp.WithString("amount",
			mcp.Description("Transaction amount as a number or ledger text"),
		),
		mcp.WithString("keywords",
			mcp.Description("Keyword (string) or array of merchant tokens to match anywhere in the email (ignored when merchant is set)"),
		),
		mcp.WithString("merchant",
			mcp.Description("Merchant name for the receipt-oriented query"),
		),
		mcp.WithNumber("window_days",
			mcp.Description("Days before and after the date to include (default: 3)"),
		),
	)
	s.AddTool(buildQueryTool, common.InstrumentedToolHandler(ToolBuildQuery, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleBuildQuery(ctx, request, sc)
		}))

	return registerEmailTools(s, sc)
}

func handleSearchTransactions(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	query := stringArg(args, "query", "")
	if query == "" {
		return mcp.NewToolResultError("query is required"), nil
	}
	return runSearch(ctx, sc, query, args)
}

func handleSearchReceipts(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	query, err := transactionQuery(args, sc.Config().Search.WindowDays)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return runSearch(ctx, sc, query, args)
}

func handleBuildQuery(_ context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	query, err := transactionQuery(request.GetArguments(), sc.Config().Search.WindowDays)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(query), nil
}

// runSearch retrieves query with the max_results, format and full_body
// arguments and renders the result.
func runSearch(ctx context.Context, sc *server.ServerContext, query string, args map[string]any) (*mcp.CallToolResult, error) {
	maxResults, err := intArg(args, "max_results", sc.Config().Search.DefaultMaxResults)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	format := strings.ToLower(stringArg(args, "format", retrieval.FormatSummary))
	if !slices.Contains(retrieval.Formats, format) {
		return mcp.NewToolResultError(fmt.Sprintf("format must be one of %s, got %q", strings.Join(retrieval.Formats, ", "), format)), nil
	}

	common.RecordQuery(ctx, query, maxResults)

	res, err := sc.Retriever().Retrieve(ctx, query, maxResults, previewChars(sc, args))
	if err != nil {
		return failureResult(err), nil
	}
	common.RecordReturned(ctx, len(res.Emails))

	out, err := retrieval.Render(res, format)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(out), nil
}

func previewChars(sc *server.ServerContext, args map[string]any) int {
	if boolArg(args, "full_body") {
		return gmail.FullBody
	}
	return sc.Config().Search.PreviewChars
}

// failureResult converts an error that stopped retrieval into a tool error.
func failureResult(err error) *mcp.CallToolResult {
	switch {
	case gmail.IsCredentialError(err):
		return mcp.NewToolResultError(fmt.Sprintf(`Gmail credentials are not usable: %v

To authorize access, run "budget-agent auth" on the machine running this server,
or point credentials.service_account_key_file at a key with domain-wide delegation.`, err))
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return mcp.NewToolResultError(fmt.Sprintf("Search was cancelled: %v", err))
	default:
		return mcp.NewToolResultError(fmt.Sprintf("Search failed: %v", err))
	}
}
