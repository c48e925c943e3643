package gmail

import (
	"errors"
)

// ExtractErrorText stands in for a body whose only candidate parts failed to decode.
const ExtractErrorText = "(error extracting this part)"

// Supported body types.
const (
	MimeTextHTML  = "text/html"
	MimeTextPlain = "text/plain"
)

// Extract returns the best plain-text body of a message part tree. HTML is
// preferred over plain text. When every candidate failed to decode the result
// is ExtractErrorText; a message without text parts yields "".
func Extract(p Part) string {
	text, err := ExtractBody(p)
	if err != nil {
		return ExtractErrorText
	}
	return text
}

// ExtractBody is Extract with the decode failure reported. err is non-nil
// only when no part produced text and at least one part failed to decode.
func ExtractBody(p Part) (string, error) {
	switch n := p.(type) {
	case *Leaf:
		if n.MimeType != MimeTextHTML && n.MimeType != MimeTextPlain {
			return "", nil
		}
		return decodeLeaf(n)
	case *Multipart:
		return extractChildren(n.Children)
	default:
		return "", nil
	}
}

// extractChildren walks one multipart level. A nested multipart that yields
// text wins immediately; otherwise the first HTML leaf with text is taken,
// then the first plain leaf.
func extractChildren(children []Part) (string, error) {
	var htmlText, plainText string
	var firstErr error

	for _, child := range children {
		switch c := child.(type) {
		case *Multipart:
			text, err := extractChildren(c.Children)
			if text != "" {
				return text, nil
			}
			if err != nil && firstErr == nil {
				firstErr = err
			}
		case *Leaf:
			if (c.MimeType == MimeTextHTML && htmlText != "") ||
				(c.MimeType == MimeTextPlain && plainText != "") {
				continue
			}
			if c.MimeType != MimeTextHTML && c.MimeType != MimeTextPlain {
				continue
			}
			text, err := decodeLeaf(c)
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
			if c.MimeType == MimeTextHTML {
				htmlText = text
			} else {
				plainText = text
			}
		}
	}

	switch {
	case htmlText != "":
		return htmlText, nil
	case plainText != "":
		return plainText, nil
	default:
		return "", firstErr
	}
}

func decodeLeaf(l *Leaf) (string, error) {
	if l.Data == "" {
		return "", nil
	}
	raw, err := decodeData(l.Data)
	if err != nil {
		return "", &DecodeError{MimeType: l.MimeType, Err: err}
	}
	text := toUTF8(raw, l.Charset)

	if l.MimeType == MimeTextHTML {
		out, err := HTMLToText(text)
		if err != nil {
			return "", &DecodeError{MimeType: l.MimeType, Err: err}
		}
		return out, nil
	}
	return NormalizeText(text), nil
}

// IsDecodeError reports whether err wraps a *DecodeError.
func IsDecodeError(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}
