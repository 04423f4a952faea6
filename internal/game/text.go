package game

import (
	"strings"
	"unicode/utf8"
)

// minWrapWidth keeps tiny reported terminals from shredding text.
const minWrapWidth = 20

// WrapText reflows each paragraph of text to at most width columns. Words
// longer than a line are split. Blank lines survive as paragraph breaks.
func WrapText(text string, width int) string {
	if width <= 0 {
		return text
	}
	width = max(width, minWrapWidth)
	var b strings.Builder
	for i, para := range strings.Split(text, "\n") {
		if i > 0 {
			b.WriteByte('\n')
		}
		col := 0
		for _, word := range strings.Fields(para) {
			n := utf8.RuneCountInString(word)
			switch {
			case col == 0:
			case col+1+n <= width:
				b.WriteByte(' ')
				col++
			default:
				b.WriteByte('\n')
				col = 0
			}
			for n > width-col {
				cut := width - col
				head, tail := splitRunes(word, cut)
				b.WriteString(head)
				b.WriteByte('\n')
				word, n, col = tail, n-cut, 0
			}
			b.WriteString(word)
			col += n
		}
	}
	return b.String()
}

func splitRunes(s string, n int) (string, string) {
	i := 0
	for n > 0 && i < len(s) {
		_, size := utf8.DecodeRuneInString(s[i:])
		i += size
		n--
	}
	return s[:i], s[i:]
}

// Columns lays out items left to right in as many equal columns as fit in
// width. Widths ignore escape sequences.
func Columns(items []string, width int) string {
	if len(items) == 0 {
		return ""
	}
	cell := 0
	for _, it := range items {
		cell = max(cell, VisibleWidth(it))
	}
	cell += 2
	perRow := max(width/cell, 1)
	var b strings.Builder
	for i, it := range items {
		last := i == len(items)-1 || (i+1)%perRow == 0
		b.WriteString(it)
		if last {
			b.WriteByte('\n')
			continue
		}
		b.WriteString(strings.Repeat(" ", cell-VisibleWidth(it)))
	}
	return b.String()
}
