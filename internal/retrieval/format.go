package retrieval

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/moldin/gcp-budget-agent/internal/gmail"
)

// Fixed responses matched by callers. Do not reword.
const (
	NoEmailsFound      = "No emails found matching the query."
	DetailsUnavailable = "Found email references, but could not retrieve details. Check logs."
	noSubjectHeader    = "(No Subject Header)"
	noSubject          = "(No Subject)"
	notAvailable       = "N/A"
	noReadableBody     = "(No readable body content found or error in processing)"
	noSnippet          = "(No snippet)"
	noEmailData        = "No email data to display."
)

// Format names accepted by Render.
const (
	FormatSummary    = "summary"
	FormatSnippet    = "snippet"
	FormatStructured = "structured"
	FormatDisplay    = "display"
)

// Formats lists the accepted format names.
var Formats = []string{FormatSummary, FormatSnippet, FormatStructured, FormatDisplay}

// StructuredEmail is one entry of the structured response.
type StructuredEmail struct {
	Subject string `json:"subject"`
	From    string `json:"from"`
	To      string `json:"to"`
	Body    string `json:"body"`
	Date    string `json:"date"`
}

// StructuredResponse is the structured response shape.
type StructuredResponse struct {
	Emails []StructuredEmail `json:"emails"`
}

// Render formats res in the named format.
func Render(res *Result, format string) (string, error) {
	switch format {
	case "", FormatSummary:
		return Summary(res, false), nil
	case FormatSnippet:
		return Summary(res, true), nil
	case FormatStructured:
		return Structured(res)
	case FormatDisplay:
		return Display(res), nil
	default:
		return "", fmt.Errorf("unknown format %q, want one of %s", format, strings.Join(Formats, ", "))
	}
}

// Summary renders the flattened multi-line form: a header line and one
// "- Subject" entry per email with either its body or its snippet.
func Summary(res *Result, snippets bool) string {
	if sentinel, ok := emptySentinel(res); ok {
		return sentinel
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d emails (out of %d matching references):\n", len(res.Emails), res.References)
	for i, e := range res.Emails {
		if i > 0 {
			b.WriteByte('\n')
		}
		subject := e.Subject
		if subject == "" {
			subject = noSubjectHeader
		}
		if snippets {
			snippet := e.Snippet
			if snippet == "" {
				snippet = noSnippet
			}
			fmt.Fprintf(&b, "- Subject: %s\n  Snippet: %s", subject, snippet)
		} else {
			fmt.Fprintf(&b, "- Subject: %s\n  Body: %s", subject, e.Body)
		}
	}
	return b.String()
}

// Structured returns {"emails":[...]}. No matches, including a failed
// search, give an empty list.
func Structured(res *Result) (string, error) {
	out := StructuredResponse{Emails: make([]StructuredEmail, 0, len(res.Emails))}
	for _, e := range res.Emails {
		out.Emails = append(out.Emails, StructuredEmail{
			Subject: e.Subject,
			From:    e.From,
			To:      e.To,
			Body:    e.Body,
			Date:    e.Date,
		})
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal emails: %w", err)
	}
	return string(data), nil
}

// Display renders every email as a Date/From/To/Subject/Body block,
// separated by blank lines.
func Display(res *Result) string {
	if sentinel, ok := emptySentinel(res); ok {
		return sentinel
	}
	blocks := make([]string, len(res.Emails))
	for i, e := range res.Emails {
		blocks[i] = DisplayEmail(&e)
	}
	return strings.Join(blocks, "\n\n")
}

// DisplayEmail renders one email for reading in a terminal.
func DisplayEmail(e *gmail.ExtractedEmail) string {
	if e == nil {
		return noEmailData
	}
	body := e.Body
	if body == "" || e.BodyFailed || strings.HasPrefix(body, "(Error") || strings.HasPrefix(body, "(error") {
		body = noReadableBody
	}
	lines := []string{
		"Date: " + orDefault(e.Date, notAvailable),
		"From: " + orDefault(e.From, notAvailable),
		"To: " + orDefault(e.To, notAvailable),
		"Subject: " + orDefault(e.Subject, noSubject),
		"Body:",
		body,
	}
	return strings.Join(lines, "\n")
}

func emptySentinel(res *Result) (string, bool) {
	if res == nil || res.References == 0 {
		return NoEmailsFound, true
	}
	if len(res.Emails) == 0 {
		return DetailsUnavailable, true
	}
	return "", false
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
