package cmd

import (
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToolsReference(t *testing.T) {
	markdown, err := toolsReference()
	require.NoError(t, err)

	for _, want := range []string{
		"# MCP Tools Reference",
		"- [Search Tools](#search-tools)",
		"- [Message Tools](#message-tools)",
		"### search_transactions",
		"### gmail_search_receipts",
		"### gmail_build_query",
		"### gmail_get_emails",
		"- `query` (string, required):",
		"- `date` (string, required):",
		"No emails found matching the query.",
	} {
		assert.Contains(t, markdown, want)
	}
}

func TestGetCategoryFromToolName(t *testing.T) {
	tests := map[string]string{
		"search_transactions":   "Search Tools",
		"gmail_search_receipts": "Search Tools",
		"gmail_build_query":     "Search Tools",
		"gmail_get_emails":      "Message Tools",
		"ping":                  "Other",
	}
	for name, want := range tests {
		assert.Equal(t, want, getCategoryFromToolName(name), name)
	}
}

func TestGenerateToolMarkdown(t *testing.T) {
	tool := mcp.NewTool("gmail_get_emails",
		mcp.WithDescription("Fetch messages"),
		mcp.WithString("messageIds", mcp.Required(), mcp.Description("IDs")),
		mcp.WithBoolean("full_body"),
	)

	md := generateToolMarkdown(tool)
	assert.Contains(t, md, "### gmail_get_emails\n\nFetch messages\n\n")
	assert.Contains(t, md, "- `messageIds` (string, required): IDs\n")
	assert.Contains(t, md, "- `full_body` (boolean, optional): boolean parameter\n")
}
