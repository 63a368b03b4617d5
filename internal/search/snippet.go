package search

import (
	"strings"
	"unicode/utf8"
)

const snippetMaxChars = 200

// buildSnippet extracts a short window of the content around the first
// matched term, or the head of the content when nothing matched.
func buildSnippet(content string, terms []string) string {
	content = strings.Join(strings.Fields(content), " ")
	if content == "" {
		return ""
	}

	pos := -1
	lower := strings.ToLower(content)
	for _, term := range terms {
		if i := strings.Index(lower, strings.ToLower(term)); i >= 0 && (pos < 0 || i < pos) {
			pos = i
		}
	}

	start := 0
	if pos > snippetMaxChars/2 {
		start = pos - snippetMaxChars/2
		// Back up to a rune boundary, then forward to a word boundary.
		for start > 0 && !utf8.RuneStart(content[start]) {
			start--
		}
		if i := strings.IndexByte(content[start:], ' '); i >= 0 && i < 40 {
			start += i + 1
		}
	}

	end := start + snippetMaxChars
	if end >= len(content) {
		snippet := content[start:]
		if start > 0 {
			snippet = "…" + snippet
		}
		return snippet
	}
	for end > start && !utf8.RuneStart(content[end]) {
		end--
	}

	snippet := content[start:end] + "…"
	if start > 0 {
		snippet = "…" + snippet
	}
	return snippet
}
