package gmail

import (
	"strings"

	gmail "google.golang.org/api/gmail/v1"
)

// Headers maps lowercase header names to their values in message order.
// Repeated headers keep every value.
type Headers map[string][]string

// HeadersFrom builds Headers from the API's ordered header list.
func HeadersFrom(hs []*gmail.MessagePartHeader) Headers {
	h := make(Headers, len(hs))
	for _, hdr := range hs {
		if hdr == nil || hdr.Name == "" {
			continue
		}
		name := strings.ToLower(hdr.Name)
		h[name] = append(h[name], hdr.Value)
	}
	return h
}

// Values returns every value of the named header.
func (h Headers) Values(name string) []string {
	return h[strings.ToLower(name)]
}

// Get returns the named header, joining repeated values with ", ".
func (h Headers) Get(name string) string {
	return strings.Join(h.Values(name), ", ")
}
