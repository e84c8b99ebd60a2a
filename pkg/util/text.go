package util

import (
	"path"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	tagRE        = regexp.MustCompile(`<[^>]*>`)
	whitespaceRE = regexp.MustCompile(`\s+`)
)

// SanitizeText strips HTML tags and collapses whitespace in user content.
func SanitizeText(value string) string {
	cleaned := tagRE.ReplaceAllString(value, "")
	return strings.TrimSpace(whitespaceRE.ReplaceAllString(cleaned, " "))
}

// Preview truncates body to at most max runes.
func Preview(body string, max int) string {
	if utf8.RuneCountInString(body) <= max {
		return body
	}
	return string([]rune(body)[:max])
}

// IsBareFileName reports whether name carries no directory component.
func IsBareFileName(name string) bool {
	return name != "" && name != "." && name != ".." &&
		!strings.ContainsAny(name, `/\`) && path.Base(name) == name
}
