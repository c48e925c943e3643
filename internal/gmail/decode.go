package gmail

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html/charset"
)

// DecodeError reports a body part whose data could not be decoded.
type DecodeError struct {
	MimeType string
	Err      error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s part: %v", e.MimeType, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// decodeData decodes a body as delivered by the API: base64url, usually
// unpadded. The standard alphabet is accepted as a fallback.
func decodeData(data string) ([]byte, error) {
	trimmed := strings.TrimRight(data, "=")
	decoded, err := base64.RawURLEncoding.DecodeString(trimmed)
	if err == nil {
		return decoded, nil
	}
	if decoded, stdErr := base64.RawStdEncoding.DecodeString(trimmed); stdErr == nil {
		return decoded, nil
	}
	return nil, fmt.Errorf("invalid base64 body: %w", err)
}

// toUTF8 transcodes raw from the declared charset. Unknown charsets and
// invalid sequences degrade to U+FFFD rather than failing.
func toUTF8(raw []byte, label string) string {
	switch label {
	case "", "utf-8", "utf8", "us-ascii":
	default:
		if r, err := charset.NewReaderLabel(label, bytes.NewReader(raw)); err == nil {
			if out, err := io.ReadAll(r); err == nil {
				raw = out
			}
		}
	}
	return strings.ToValidUTF8(string(raw), "\uFFFD")
}
