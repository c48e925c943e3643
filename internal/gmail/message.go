package gmail

import (
	"strings"
	"unicode/utf8"

	gmail "google.golang.org/api/gmail/v1"
)

// DefaultPreviewChars is the body length kept in preview mode.
const DefaultPreviewChars = 1000

// FullBody passed as the preview length keeps the whole body.
const FullBody = 0

// MessageRef identifies a search hit.
type MessageRef struct {
	ID       string
	ThreadID string
}

// Message is a fetched message reduced to what body extraction needs.
type Message struct {
	ID       string
	ThreadID string
	Snippet  string
	Headers  Headers
	Payload  Part
}

// MessageFromAPI converts a message fetched in full format.
func MessageFromAPI(m *gmail.Message) *Message {
	msg := &Message{
		ID:       m.Id,
		ThreadID: m.ThreadId,
		Snippet:  m.Snippet,
		Headers:  Headers{},
	}
	if m.Payload != nil {
		msg.Headers = HeadersFrom(m.Payload.Headers)
		msg.Payload = PartFromPayload(m.Payload)
	}
	return msg
}

// ExtractedEmail is the normalized result for one message.
type ExtractedEmail struct {
	ID        string `json:"id"`
	ThreadID  string `json:"thread_id"`
	Subject   string `json:"subject"`
	From      string `json:"from"`
	To        string `json:"to"`
	Cc        string `json:"cc,omitempty"`
	Date      string `json:"date"`
	MessageID string `json:"message_id,omitempty"`
	Snippet   string `json:"snippet,omitempty"`
	Body      string `json:"body"`

	// BodyFailed is set when the body is ExtractErrorText.
	BodyFailed bool `json:"-"`
}

// Assemble builds the ExtractedEmail for msg. A positive previewChars caps
// the body at that many characters followed by "..."; FullBody keeps it whole.
func Assemble(msg *Message, previewChars int) ExtractedEmail {
	body, err := ExtractBody(msg.Payload)
	if err != nil {
		body = ExtractErrorText
	}

	return ExtractedEmail{
		ID:         msg.ID,
		ThreadID:   msg.ThreadID,
		Subject:    msg.Headers.Get("subject"),
		From:       msg.Headers.Get("from"),
		To:         msg.Headers.Get("to"),
		Cc:         msg.Headers.Get("cc"),
		Date:       msg.Headers.Get("date"),
		MessageID:  msg.Headers.Get("message-id"),
		Snippet:    msg.Snippet,
		Body:       Truncate(body, previewChars),
		BodyFailed: err != nil,
	}
}

// Truncate shortens s to n characters plus "..." when it is longer. n <= 0
// returns s unchanged.
func Truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	var b strings.Builder
	i := 0
	for _, r := range s {
		if i == n {
			break
		}
		b.WriteRune(r)
		i++
	}
	b.WriteString("...")
	return b.String()
}
