package game

import (
	"strings"
	"unicode/utf8"
)

// SGR sequences used in server output. They occupy no screen columns.
const (
	AnsiReset  = "\x1b[0m"
	AnsiBold   = "\x1b[1m"
	AnsiDim    = "\x1b[2m"
	AnsiRed    = "\x1b[31m"
	AnsiGreen  = "\x1b[32m"
	AnsiYellow = "\x1b[33m"
	AnsiCyan   = "\x1b[36m"
)

// Style wraps text in attrs followed by a reset.
func Style(text string, attrs ...string) string {
	if len(attrs) == 0 || text == "" {
		return text
	}
	var b strings.Builder
	for _, a := range attrs {
		b.WriteString(a)
	}
	b.WriteString(text)
	b.WriteString(AnsiReset)
	return b.String()
}

// NameStyle highlights a player name.
func NameStyle(name string) string {
	return Style(name, AnsiBold, AnsiCyan)
}

// StripAnsi removes escape sequences from s.
func StripAnsi(s string) string {
	if !strings.Contains(s, "\x1b") {
		return s
	}
	data := []byte(s)
	out := make([]byte, 0, len(data))
	for i := 0; i < len(data); i++ {
		if data[i] == 0x1b {
			i = skipEscape(data, i)
			continue
		}
		out = append(out, data[i])
	}
	return string(out)
}

// VisibleWidth counts the characters of s a terminal would display.
func VisibleWidth(s string) int {
	return utf8.RuneCountInString(StripAnsi(s))
}
