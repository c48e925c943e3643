package retrieval

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moldin/gcp-budget-agent/internal/gmail"
)

func sampleResult() *Result {
	return &Result{
		Query:      "q",
		References: 4,
		Emails: []gmail.ExtractedEmail{
			{
				ID:      "m1",
				Subject: "Your receipt",
				From:    "Shop <orders@shop.example>",
				To:      "me@example.com",
				Date:    "Fri, 15 Mar 2024 10:00:00 +0100",
				Snippet: "Thanks for your order",
				Body:    "Total 42.00",
			},
			{
				ID:         "m2",
				Snippet:    "",
				Body:       gmail.ExtractErrorText,
				BodyFailed: true,
			},
		},
	}
}

func TestSummary(t *testing.T) {
	want := "Found 2 emails (out of 4 matching references):\n" +
		"- Subject: Your receipt\n  Body: Total 42.00\n" +
		"- Subject: (No Subject Header)\n  Body: (error extracting this part)"
	assert.Equal(t, want, Summary(sampleResult(), false))

	wantSnippets := "Found 2 emails (out of 4 matching references):\n" +
		"- Subject: Your receipt\n  Snippet: Thanks for your order\n" +
		"- Subject: (No Subject Header)\n  Snippet: (No snippet)"
	assert.Equal(t, wantSnippets, Summary(sampleResult(), true))
}

func TestSummary_Sentinels(t *testing.T) {
	assert.Equal(t, "No emails found matching the query.", Summary(&Result{}, false))
	assert.Equal(t, "No emails found matching the query.", Summary(nil, true))
	assert.Equal(t, "Found email references, but could not retrieve details. Check logs.",
		Summary(&Result{References: 3, Failed: 3}, false))
}

func TestStructured(t *testing.T) {
	out, err := Structured(sampleResult())
	require.NoError(t, err)

	var resp StructuredResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Emails, 2)
	assert.Equal(t, StructuredEmail{
		Subject: "Your receipt",
		From:    "Shop <orders@shop.example>",
		To:      "me@example.com",
		Body:    "Total 42.00",
		Date:    "Fri, 15 Mar 2024 10:00:00 +0100",
	}, resp.Emails[0])

	var raw map[string][]map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &raw))
	assert.ElementsMatch(t, []string{"subject", "from", "to", "body", "date"}, keys(raw["emails"][0]))
}

func keys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func TestDisplay(t *testing.T) {
	want := "Date: Fri, 15 Mar 2024 10:00:00 +0100\n" +
		"From: Shop <orders@shop.example>\n" +
		"To: me@example.com\n" +
		"Subject: Your receipt\n" +
		"Body:\n" +
		"Total 42.00\n\n" +
		"Date: N/A\n" +
		"From: N/A\n" +
		"To: N/A\n" +
		"Subject: (No Subject)\n" +
		"Body:\n" +
		"(No readable body content found or error in processing)"
	assert.Equal(t, want, Display(sampleResult()))
	assert.Equal(t, "No email data to display.", DisplayEmail(nil))
}

func TestRender(t *testing.T) {
	res := sampleResult()

	for _, format := range Formats {
		out, err := Render(res, format)
		require.NoError(t, err, format)
		assert.NotEmpty(t, out, format)
	}

	def, err := Render(res, "")
	require.NoError(t, err)
	assert.Equal(t, Summary(res, false), def)

	_, err = Render(res, "xml")
	assert.Error(t, err)
}
