package match

import (
	"strings"
	"unicode"
)

// NormalizeIdent normalizes a type name for fuzzy matching: case is folded
// and separators (_, -, spaces) are dropped, so "person_native",
// "PersonNative" and "PERSON-NATIVE" compare equal.
func NormalizeIdent(s string) string {
	var result strings.Builder

	result.Grow(len(s))

	for _, r := range s {
		if !isSeparator(r) {
			result.WriteRune(unicode.ToLower(r))
		}
	}

	return result.String()
}

// isSeparator returns true if the rune is a common separator.
func isSeparator(r rune) bool {
	return r == '_' || r == '-' || r == ' '
}
