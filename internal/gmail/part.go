package gmail

import (
	"mime"
	"strings"

	gmail "google.golang.org/api/gmail/v1"
)

// Part is a node of a message's MIME tree: either *Leaf or *Multipart.
type Part interface {
	Type() string
	isPart()
}

// Leaf is a body-carrying part. Data is base64url as delivered by the API.
type Leaf struct {
	MimeType string
	Charset  string
	Data     string
}

// Multipart is a container part whose children are kept in order.
type Multipart struct {
	MimeType string
	Children []Part
}

func (l *Leaf) Type() string      { return l.MimeType }
func (m *Multipart) Type() string { return m.MimeType }
func (*Leaf) isPart()             {}
func (*Multipart) isPart()        {}

// PartFromPayload converts the API's payload into a Part tree. A part with
// children or a multipart/* type becomes a Multipart; anything else is a Leaf.
func PartFromPayload(p *gmail.MessagePart) Part {
	if p == nil {
		return nil
	}

	mimeType := strings.ToLower(p.MimeType)
	if len(p.Parts) > 0 || strings.HasPrefix(mimeType, "multipart/") {
		mp := &Multipart{MimeType: mimeType}
		for _, child := range p.Parts {
			if c := PartFromPayload(child); c != nil {
				mp.Children = append(mp.Children, c)
			}
		}
		return mp
	}

	leaf := &Leaf{MimeType: mimeType, Charset: partCharset(p.Headers)}
	if p.Body != nil {
		leaf.Data = p.Body.Data
	}
	return leaf
}

func partCharset(headers []*gmail.MessagePartHeader) string {
	for _, h := range headers {
		if h == nil || !strings.EqualFold(h.Name, "Content-Type") {
			continue
		}
		_, params, err := mime.ParseMediaType(h.Value)
		if err != nil {
			return ""
		}
		return strings.ToLower(params["charset"])
	}
	return ""
}
