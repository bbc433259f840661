package helpers

import (
	"strings"
)

// Slugify turns a search query into the URL path form the marketplace
// expects: surrounding whitespace trimmed, inner spaces become hyphens.
// Case is preserved.
func Slugify(query string) string {
	return strings.ReplaceAll(strings.TrimSpace(query), " ", "-")
}

// FirstLine returns the first line of text with surrounding whitespace trimmed
func FirstLine(text string) string {
	line, _, _ := strings.Cut(text, "\n")
	return strings.TrimSpace(line)
}

// Snippet returns at most limit runes of text with an ellipsis marker
// appended, flagging the result as a cut-down stand-in for a real value
func Snippet(text string, limit int) string {
	runes := []rune(text)
	if len(runes) > limit {
		runes = runes[:limit]
	}
	return string(runes) + "..."
}
