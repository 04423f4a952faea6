package game

import (
	"strings"
	"unicode"
)

// sanitizeInput cleans a decoded input line: whitespace becomes a plain space
// and control, format and unprintable runes are dropped.
func sanitizeInput(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == ' ':
			return r
		case unicode.IsSpace(r):
			return ' '
		case unicode.IsControl(r), unicode.Is(unicode.Cf, r), !unicode.IsPrint(r):
			return -1
		}
		return r
	}, s)
}
