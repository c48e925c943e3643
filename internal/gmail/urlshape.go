package gmail

import "strings"

var urlPrefixes = []string{"http://", "https://", "www.", "ftp://", "mailto:"}

// LooksLikeURL reports whether link text is a URL rather than a human label.
// It is true when text starts with a scheme or "www.", equals href, or is a
// long unbroken token with URL punctuation, a dot or slash, and a letter.
func LooksLikeURL(text, href string) bool {
	if text == "" {
		return false
	}

	for _, p := range urlPrefixes {
		if strings.HasPrefix(text, p) {
			return true
		}
	}

	if href != "" && text == href {
		return true
	}

	if len(text) > 20 && !strings.Contains(text, " ") && strings.ContainsAny(text, "./?=&~%#@") {
		if strings.ContainsAny(text, "./") && hasASCIILetter(text) {
			return true
		}
	}
	return false
}

func hasASCIILetter(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') {
			return true
		}
	}
	return false
}
