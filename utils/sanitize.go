package utils

import (
	"regexp"
	"strings"
)

var (
	scriptBlockRegex = regexp.MustCompile(`(?is)<(script|style)\b[^>]*>.*?</(script|style)>`)
	htmlTagRegex     = regexp.MustCompile(`(?s)<[^>]*>`)
	whitespaceRegex  = regexp.MustCompile(`\s+`)
)

// SanitizeMessage strips HTML markup from a chat message. Script and style
// elements are removed together with their contents, remaining tags are
// stripped but their text is kept. Runs of whitespace collapse to a single
// space and the result is trimmed.
func SanitizeMessage(s string) string {
	s = scriptBlockRegex.ReplaceAllString(s, "")
	s = htmlTagRegex.ReplaceAllString(s, "")
	s = whitespaceRegex.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
