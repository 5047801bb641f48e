package textutil

import (
	"regexp"
	"strings"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

// NormalizeName folds case and drops all whitespace so names typed by
// different systems compare equal.
func NormalizeName(name string) string {
	name = strings.ToLower(name)
	name = strings.TrimSpace(name)
	name = whitespaceRegex.ReplaceAllString(name, "")
	return name
}

// SameName reports whether two names are equal after normalization.
func SameName(a, b string) bool {
	return NormalizeName(a) == NormalizeName(b)
}
