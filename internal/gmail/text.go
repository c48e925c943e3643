package gmail

import (
	"regexp"
	"strings"
)

var (
	horizontalSpace = regexp.MustCompile(`[ \t]+`)
	blankLines      = regexp.MustCompile(`\n\n+`)
	lineEndings     = strings.NewReplacer("\r\n", "\n", "\r", "\n")
)

// NormalizeText collapses runs of spaces and tabs, limits blank lines to one
// and trims the result. Used for text/plain bodies.
func NormalizeText(s string) string {
	s = lineEndings.Replace(s)
	s = horizontalSpace.ReplaceAllString(s, " ")
	s = blankLines.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// normalizeHTMLText is NormalizeText with every line trimmed as well, since
// text extracted from markup carries indentation from the source.
func normalizeHTMLText(s string) string {
	s = lineEndings.Replace(s)
	s = horizontalSpace.ReplaceAllString(s, " ")
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	s = blankLines.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")
	return strings.TrimSpace(s)
}
