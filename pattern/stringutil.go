package pattern

import (
	"strings"
	"unicode"
)

// ToUpper returns an upper-case copy of s.
func ToUpper(s string) string { return strings.ToUpper(s) }

// ToLower returns a lower-case copy of s.
func ToLower(s string) string { return strings.ToLower(s) }

// Trim strips leading and trailing whitespace and non-printable characters
// from s.
func Trim(s string) string {
	return strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || !unicode.IsPrint(r)
	})
}

// Compact removes all whitespace from s, used before parsing hex literals.
func Compact(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if !unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
