package gmail_tools

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moldin/gcp-budget-agent/internal/config"
	"github.com/moldin/gcp-budget-agent/internal/gmail"
	"github.com/moldin/gcp-budget-agent/internal/google"
	"github.com/moldin/gcp-budget-agent/internal/server"
)

type fakeMailbox struct {
	messages map[string]*gmail.Message
	order    []string
	fetchErr map[string]error

	queries []string
	fetched []string
}

func newMailbox() *fakeMailbox {
	return &fakeMailbox{messages: map[string]*gmail.Message{}, fetchErr: map[string]error{}}
}

func (f *fakeMailbox) add(id, subject, html string) {
	f.order = append(f.order, id)
	f.messages[id] = &gmail.Message{
		ID:       id,
		ThreadID: "t-" + id,
		Snippet:  "snippet of " + id,
		Headers: gmail.Headers{
			"subject": {subject},
			"from":    {"Acme Store <orders@acme.example>"},
			"to":      {"me@example.com"},
			"date":    {"Tue, 12 Mar 2024 10:00:00 +0100"},
		},
		Payload: &gmail.Multipart{
			MimeType: "multipart/alternative",
			Children: []gmail.Part{
				&gmail.Leaf{MimeType: "text/plain", Data: enc("plain " + subject)},
				&gmail.Leaf{MimeType: "text/html", Data: enc(html)},
			},
		},
	}
}

func (f *fakeMailbox) Search(_ context.Context, query string, _ int64) ([]gmail.MessageRef, error) {
	f.queries = append(f.queries, query)
	refs := make([]gmail.MessageRef, 0, len(f.order))
	for _, id := range f.order {
		refs = append(refs, gmail.MessageRef{ID: id, ThreadID: "t-" + id})
	}
	return refs, nil
}

func (f *fakeMailbox) Fetch(_ context.Context, ref gmail.MessageRef) (*gmail.Message, error) {
	f.fetched = append(f.fetched, ref.ID)
	if err := f.fetchErr[ref.ID]; err != nil {
		return nil, err
	}
	msg, ok := f.messages[ref.ID]
	if !ok {
		return nil, fmt.Errorf("message %s not found", ref.ID)
	}
	return msg, nil
}

func enc(s string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(s))
}

func newServerContext(t *testing.T, mb *fakeMailbox) *server.ServerContext {
	t.Helper()
	sc, err := server.NewServerContext(context.Background(), config.Default(), nil, server.WithMailbox(mb))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sc.Shutdown() })
	return sc
}

func callTool(t *testing.T, handler func(context.Context, mcp.CallToolRequest, *server.ServerContext) (*mcp.CallToolResult, error), sc *server.ServerContext, args map[string]any) (string, bool) {
	t.Helper()
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	result, err := handler(context.Background(), req, sc)
	require.NoError(t, err)
	require.NotNil(t, result)
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content")
	return text.Text, result.IsError
}

func TestRegisterGmailTools(t *testing.T) {
	sc := newServerContext(t, newMailbox())
	s := mcpserver.NewMCPServer("test", "0.0.0", mcpserver.WithToolCapabilities(true))

	require.NoError(t, RegisterGmailTools(s, sc))

	tools := s.ListTools()
	for _, name := range []string{ToolSearchTransactions, ToolSearchReceipts, ToolBuildQuery, ToolGetEmails} {
		assert.Contains(t, tools, name)
	}
	assert.Error(t, RegisterGmailTools(nil, sc))
}

func TestSearchTransactions_Summary(t *testing.T) {
	mb := newMailbox()
	mb.add("m1", "Your receipt", `<p>Total <b>1 049,12 kr</b></p><a href="https://acme.example/o/1">View order</a>`)
	mb.add("m2", "Shipping update", `<p>On its way</p>`)
	sc := newServerContext(t, mb)

	out, isErr := callTool(t, handleSearchTransactions, sc, map[string]any{
		"query":       "from:acme.example",
		"max_results": float64(1),
	})

	require.False(t, isErr, out)
	assert.Equal(t, []string{"from:acme.example"}, mb.queries)
	assert.Equal(t, []string{"m1"}, mb.fetched)
	assert.Contains(t, out, "Found 1 emails (out of 2 matching references):")
	assert.Contains(t, out, "- Subject: Your receipt")
	assert.Contains(t, out, "1 049,12 kr")
	assert.Contains(t, out, "[View order]")
	assert.NotContains(t, out, "plain Your receipt")
}

func TestSearchTransactions_Formats(t *testing.T) {
	mb := newMailbox()
	mb.add("m1", "Invoice 42", `<p>Amount due 42.00</p>`)
	sc := newServerContext(t, mb)

	t.Run("snippet", func(t *testing.T) {
		out, isErr := callTool(t, handleSearchTransactions, sc, map[string]any{"query": "invoice", "format": "snippet"})
		require.False(t, isErr)
		assert.Contains(t, out, "  Snippet: snippet of m1")
	})

	t.Run("structured", func(t *testing.T) {
		out, isErr := callTool(t, handleSearchTransactions, sc, map[string]any{"query": "invoice", "format": "structured"})
		require.False(t, isErr)

		var resp struct {
			Emails []map[string]string `json:"emails"`
		}
		require.NoError(t, json.Unmarshal([]byte(out), &resp))
		require.Len(t, resp.Emails, 1)
		assert.Equal(t, "Invoice 42", resp.Emails[0]["subject"])
		assert.Equal(t, "Amount due 42.00", resp.Emails[0]["body"])
		assert.Equal(t, "me@example.com", resp.Emails[0]["to"])
	})

	t.Run("display", func(t *testing.T) {
		out, isErr := callTool(t, handleSearchTransactions, sc, map[string]any{"query": "invoice", "format": "display"})
		require.False(t, isErr)
		assert.Contains(t, out, "Subject: Invoice 42")
		assert.Contains(t, out, "From: Acme Store <orders@acme.example>")
	})

	t.Run("unknown", func(t *testing.T) {
		out, isErr := callTool(t, handleSearchTransactions, sc, map[string]any{"query": "invoice", "format": "xml"})
		assert.True(t, isErr)
		assert.Contains(t, out, "format must be one of")
	})
}

func TestSearchTransactions_NoMatches(t *testing.T) {
	sc := newServerContext(t, newMailbox())

	out, isErr := callTool(t, handleSearchTransactions, sc, map[string]any{"query": "nothing"})
	assert.False(t, isErr)
	assert.Equal(t, "No emails found matching the query.", out)
}

func TestSearchTransactions_AllFetchesFail(t *testing.T) {
	mb := newMailbox()
	mb.add("m1", "a", "<p>a</p>")
	mb.fetchErr["m1"] = errors.New("backend error")
	sc := newServerContext(t, mb)

	out, isErr := callTool(t, handleSearchTransactions, sc, map[string]any{"query": "a"})
	assert.False(t, isErr)
	assert.Equal(t, "Found email references, but could not retrieve details. Check logs.", out)
}

func TestSearchTransactions_CredentialError(t *testing.T) {
	mb := newMailbox()
	mb.add("m1", "a", "<p>a</p>")
	mb.fetchErr["m1"] = &google.CredentialError{Op: "refresh token", Err: errors.New("invalid_grant")}
	sc := newServerContext(t, mb)

	out, isErr := callTool(t, handleSearchTransactions, sc, map[string]any{"query": "a"})
	assert.True(t, isErr)
	assert.Contains(t, out, "budget-agent auth")
	assert.Contains(t, out, "invalid_grant")
}

func TestSearchTransactions_InvalidArguments(t *testing.T) {
	sc := newServerContext(t, newMailbox())

	tests := []struct {
		name string
		args map[string]any
		want string
	}{
		{name: "missing query", args: map[string]any{}, want: "query is required"},
		{name: "blank query", args: map[string]any{"query": "  "}, want: "query is required"},
		{name: "fractional max_results", args: map[string]any{"query": "a", "max_results": 2.5}, want: "max_results must be a whole number"},
		{name: "bad max_results type", args: map[string]any{"query": "a", "max_results": true}, want: "max_results must be a number"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, isErr := callTool(t, handleSearchTransactions, sc, tt.args)
			assert.True(t, isErr)
			assert.Contains(t, out, tt.want)
		})
	}
}

func TestSearchTransactions_FullBody(t *testing.T) {
	long := make([]byte, 1500)
	for i := range long {
		long[i] = 'x'
	}
	mb := newMailbox()
	mb.add("m1", "Long", "<p>"+string(long)+"</p>")
	sc := newServerContext(t, mb)

	preview, _ := callTool(t, handleSearchTransactions, sc, map[string]any{"query": "a", "format": "structured"})
	full, _ := callTool(t, handleSearchTransactions, sc, map[string]any{"query": "a", "format": "structured", "full_body": true})

	var p, f struct {
		Emails []struct {
			Body string `json:"body"`
		} `json:"emails"`
	}
	require.NoError(t, json.Unmarshal([]byte(preview), &p))
	require.NoError(t, json.Unmarshal([]byte(full), &f))
	assert.Len(t, p.Emails[0].Body, 1003)
	assert.Len(t, f.Emails[0].Body, 1500)
}

func TestBuildQuery(t *testing.T) {
	sc := newServerContext(t, newMailbox())

	tests := []struct {
		name     string
		args     map[string]any
		contains []string
		absent   []string
	}{
		{
			name:     "amount and keywords",
			args:     map[string]any{"date": "2024-03-12", "amount": "1049,12", "keywords": []any{"Acme", "Acme Store"}},
			contains: []string{"after:2024/03/09 before:2024/03/16", `"1049.12"`, `"1 049,12"`, `(Acme OR "Acme Store")`},
			absent:   []string{"subject:"},
		},
		{
			name:     "numeric amount and window",
			args:     map[string]any{"date": "2024-03-12", "amount": -42.5, "window_days": float64(0)},
			contains: []string{"after:2024/03/12 before:2024/03/13", `"42.50"`, `"42,50"`},
		},
		{
			name:     "keywords as JSON string",
			args:     map[string]any{"date": "2024-03-12", "keywords": `["Spotify"]`},
			contains: []string{"(Spotify)"},
		},
		{
			name:     "merchant selects receipt query",
			args:     map[string]any{"date": "2024-03-12", "amount": 12.0, "merchant": "Acme", "keywords": "ignored"},
			contains: []string{`subject:("order confirmation"`, `(subject:("Acme") OR from:("Acme"))`, `"12"`},
			absent:   []string{"ignored"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, isErr := callTool(t, handleBuildQuery, sc, tt.args)
			require.False(t, isErr, out)
			for _, want := range tt.contains {
				assert.Contains(t, out, want)
			}
			for _, unwanted := range tt.absent {
				assert.NotContains(t, out, unwanted)
			}
		})
	}
}

func TestBuildQuery_InvalidArguments(t *testing.T) {
	sc := newServerContext(t, newMailbox())

	tests := []struct {
		name string
		args map[string]any
		want string
	}{
		{name: "missing date", args: map[string]any{}, want: "date is required"},
		{name: "bad date", args: map[string]any{"date": "12/03/2024"}, want: "YYYY-MM-DD"},
		{name: "bad amount", args: map[string]any{"date": "2024-03-12", "amount": "12.3.4.5x?"}, want: "invalid amount"},
		{name: "negative window", args: map[string]any{"date": "2024-03-12", "window_days": float64(-1)}, want: "must not be negative"},
		{name: "bad keywords", args: map[string]any{"date": "2024-03-12", "keywords": []any{"a", 1}}, want: "keywords[1] must be a string"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, isErr := callTool(t, handleBuildQuery, sc, tt.args)
			assert.True(t, isErr)
			assert.Contains(t, out, tt.want)
		})
	}
}

func TestSearchReceipts(t *testing.T) {
	mb := newMailbox()
	mb.add("m1", "Order confirmation", "<p>Total 1,049.12</p>")
	sc := newServerContext(t, mb)

	out, isErr := callTool(t, handleSearchReceipts, sc, map[string]any{
		"date":     "2024-03-12",
		"amount":   1049.12,
		"merchant": "Acme",
	})

	require.False(t, isErr, out)
	require.Len(t, mb.queries, 1)
	assert.Contains(t, mb.queries[0], "after:2024/03/09 before:2024/03/16")
	assert.Contains(t, mb.queries[0], `"1,049.12"`)
	assert.Contains(t, out, "- Subject: Order confirmation")
}

func TestGetEmails(t *testing.T) {
	mb := newMailbox()
	mb.add("m1", "Receipt", "<p>Paid 10.00</p>")
	mb.add("m2", "Invoice", "<p>Due 20.00</p>")
	sc := newServerContext(t, mb)

	out, isErr := callTool(t, handleGetEmails, sc, map[string]any{"messageIds": []any{"m1", "missing", "m2"}})
	require.False(t, isErr, out)

	var resp struct {
		Total      int `json:"total"`
		Successful int `json:"successful"`
		Failed     int `json:"failed"`
		Results    []struct {
			ID     string               `json:"id"`
			Status string               `json:"status"`
			Result gmail.ExtractedEmail `json:"result"`
			Error  string               `json:"error"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, 3, resp.Total)
	assert.Equal(t, 2, resp.Successful)
	assert.Equal(t, 1, resp.Failed)
	assert.Equal(t, "Paid 10.00", resp.Results[0].Result.Body)
	assert.Equal(t, "t-m1", resp.Results[0].Result.ThreadID)
	assert.Contains(t, resp.Results[1].Error, "not found")
	assert.Equal(t, "Invoice", resp.Results[2].Result.Subject)
}

func TestGetEmails_CredentialErrorStops(t *testing.T) {
	mb := newMailbox()
	mb.add("m1", "Receipt", "<p>Paid</p>")
	mb.add("m2", "Invoice", "<p>Due</p>")
	mb.fetchErr["m1"] = &google.CredentialError{Op: "refresh token", Err: errors.New("invalid_grant")}
	sc := newServerContext(t, mb)

	out, isErr := callTool(t, handleGetEmails, sc, map[string]any{"messageIds": `["m1", "m2"]`})
	assert.True(t, isErr)
	assert.Contains(t, out, "budget-agent auth")
	assert.Equal(t, []string{"m1"}, mb.fetched)
}

func TestGetEmails_InvalidIDs(t *testing.T) {
	sc := newServerContext(t, newMailbox())

	out, isErr := callTool(t, handleGetEmails, sc, map[string]any{})
	assert.True(t, isErr)
	assert.Contains(t, out, "messageIds is required")
}
