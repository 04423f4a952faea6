package store

import (
	"bufio"
	"bytes"
	"io"
	"strings"
)

const indentUnit = "  "

// Write serialises v as a document. Composites follow a bare "key:" while
// scalars follow "key: ". Text holding line breaks is written as an indented
// block where that reads back unchanged, and inline otherwise.
func (v *Value) Write(w io.Writer) error {
	bw := bufio.NewWriter(w)
	writeEntries(bw, v, 0)
	return bw.Flush()
}

// Bytes returns the serialised form of v.
func (v *Value) Bytes() []byte {
	var buf bytes.Buffer
	_ = v.Write(&buf)
	return buf.Bytes()
}

func writeEntries(w *bufio.Writer, v *Value, depth int) {
	for key, child := range v.Entries() {
		writeIndent(w, depth)
		w.WriteString(key)
		w.WriteByte(':')
		writeValue(w, child, depth)
	}
	writeIndent(w, depth)
	w.WriteString("~\n")
}

func writeValue(w *bufio.Writer, v *Value, depth int) {
	switch {
	case v.IsComposite():
		w.WriteByte('\n')
		writeEntries(w, v, depth+1)
	case v.Text() == "":
		w.WriteString(" ~\n")
	case strings.Contains(v.text, "\n") && blockSafe(v.text):
		w.WriteString(" -\n")
		for _, line := range strings.Split(v.text, "\n") {
			if line != "" {
				writeIndent(w, depth+1)
				w.WriteString(line)
			}
			w.WriteByte('\n')
		}
		writeIndent(w, depth+1)
		w.WriteString("~\n")
	default:
		// Text whose first line would read as a block opener goes straight
		// after the colon, where the reader only looks for inline text.
		if first, _, ok := strings.Cut(v.text, "\n"); !ok || !opensBlock(first) {
			w.WriteByte(' ')
		}
		w.WriteString(strings.ReplaceAll(v.text, "~", "~~"))
		w.WriteString("~\n")
	}
}

// blockSafe reports whether text survives a round trip through the block
// form: some line must start at the left margin so the reader's dedent only
// removes the indentation added here, no line may look like the terminator,
// and carriage returns would be dropped by the reader.
func blockSafe(text string) bool {
	if strings.Contains(text, "\r") {
		return false
	}
	margin := false
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimLeft(line, " \t") == "~" {
			return false
		}
		if line != "" && line[0] != ' ' && line[0] != '\t' {
			margin = true
		}
	}
	return margin
}

func writeIndent(w *bufio.Writer, depth int) {
	for i := 0; i < depth; i++ {
		w.WriteString(indentUnit)
	}
}
