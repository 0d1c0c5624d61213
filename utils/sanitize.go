package utils

import (
	"html"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

var (
	sanitizer = bluemonday.UGCPolicy()
	stripper  = bluemonday.StrictPolicy()
)

// Sanitize cleans HTML content to prevent XSS attacks.
func Sanitize(input string) string {
	return sanitizer.Sanitize(input)
}

// PlainText drops every tag and returns unescaped text.
func PlainText(input string) string {
	return html.UnescapeString(stripper.Sanitize(input))
}

// Excerpt returns the first n runes of the plain text of input, ending in "..." when cut.
func Excerpt(input string, n int) string {
	text := strings.Join(strings.Fields(PlainText(input)), " ")
	if utf8.RuneCountInString(text) <= n {
		return text
	}
	r := []rune(text)
	return strings.TrimSpace(string(r[:n])) + "..."
}
