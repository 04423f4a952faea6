package store

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrSyntax is wrapped by every error reported for malformed input.
var ErrSyntax = errors.New("store: syntax error")

// Parse reads a document from r. The document is a composite: a run of
// "key:" entries closed by a line holding only "~".
func Parse(r io.Reader) (*Value, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	return ParseBytes(data)
}

// ParseBytes reads a document held in memory.
func ParseBytes(data []byte) (*Value, error) {
	p := &parser{data: data, line: 1}
	root := New()
	if err := p.composite(root); err != nil {
		return nil, err
	}
	return root, nil
}

type parser struct {
	data []byte
	pos  int
	line int
}

func (p *parser) errorf(format string, args ...any) error {
	return fmt.Errorf("%w: line %d: %s", ErrSyntax, p.line, fmt.Sprintf(format, args...))
}

func (p *parser) eof() bool {
	return p.pos >= len(p.data)
}

func (p *parser) advance(n int) {
	for i := 0; i < n && p.pos < len(p.data); i++ {
		if p.data[p.pos] == '\n' {
			p.line++
		}
		p.pos++
	}
}

func (p *parser) skipSpace() {
	for !p.eof() && isSpace(p.data[p.pos]) {
		p.advance(1)
	}
}

// lineEnd returns the offset of the newline ending the line that holds from,
// or len(data).
func (p *parser) lineEnd(from int) int {
	if i := bytes.IndexByte(p.data[from:], '\n'); i >= 0 {
		return from + i
	}
	return len(p.data)
}

func (p *parser) composite(v *Value) error {
	for {
		p.skipSpace()
		if p.eof() {
			return p.errorf("missing ~ closing composite")
		}
		if p.data[p.pos] == '~' {
			end := p.lineEnd(p.pos)
			if isBlank(p.data[p.pos+1 : end]) {
				p.advance(end - p.pos + 1)
				return nil
			}
		}
		key, err := p.key()
		if err != nil {
			return err
		}
		child, err := p.value()
		if err != nil {
			return err
		}
		v.Put(key, child)
	}
}

func (p *parser) key() (string, error) {
	start := p.pos
	for !p.eof() && isKeyByte(p.data[p.pos]) {
		p.pos++
	}
	if p.eof() {
		return "", p.errorf("unexpected end of input in key")
	}
	if c := p.data[p.pos]; c != ':' {
		return "", p.errorf("invalid key character %q", c)
	}
	if p.pos == start {
		return "", p.errorf("empty key")
	}
	key := string(p.data[start:p.pos])
	p.pos++
	return key, nil
}

// value reads what follows "key:". A space after the colon marks a scalar,
// either inline text or a block opened by a lone "-". A line ending right at
// the colon opens a nested composite.
func (p *parser) value() (*Value, error) {
	if !p.eof() && p.data[p.pos] == ' ' {
		p.pos++
		end := p.lineEnd(p.pos)
		if end < len(p.data) && opensBlock(string(p.data[p.pos:end])) {
			p.advance(end - p.pos + 1)
			return p.block()
		}
		return p.inline()
	}
	end := p.lineEnd(p.pos)
	if isBlank(p.data[p.pos:end]) && end < len(p.data) && p.opensComposite(end+1) {
		p.advance(end - p.pos + 1)
		child := New()
		if err := p.composite(child); err != nil {
			return nil, err
		}
		return child, nil
	}
	return p.inline()
}

// opensBlock reports whether line, the rest of a line after "key: ", is the
// "-" that opens a text block.
func opensBlock(line string) bool {
	return strings.TrimRight(line, " \t\r") == "-"
}

// opensComposite looks past blank lines starting at from and reports whether
// the next line is a "key:" entry or a closing "~".
func (p *parser) opensComposite(from int) bool {
	i := from
	for i < len(p.data) && isSpace(p.data[i]) {
		i++
	}
	if i >= len(p.data) {
		return false
	}
	if p.data[i] == '~' {
		return isBlank(p.data[i+1 : p.lineEnd(i)])
	}
	start := i
	for i < len(p.data) && isKeyByte(p.data[i]) {
		i++
	}
	return i > start && i < len(p.data) && p.data[i] == ':'
}

func (p *parser) inline() (*Value, error) {
	var buf []byte
	for !p.eof() {
		c := p.data[p.pos]
		if c != '~' {
			buf = append(buf, c)
			p.advance(1)
			continue
		}
		if p.pos+1 < len(p.data) && p.data[p.pos+1] == '~' {
			buf = append(buf, '~')
			p.advance(2)
			continue
		}
		p.advance(1)
		return NewString(string(buf)), nil
	}
	return nil, p.errorf("unexpected end of input in value")
}

func (p *parser) block() (*Value, error) {
	var lines [][]byte
	for !p.eof() {
		end := p.lineEnd(p.pos)
		line := bytes.TrimSuffix(p.data[p.pos:end], []byte("\r"))
		p.advance(end - p.pos + 1)
		if string(bytes.TrimLeft(line, " \t")) == "~" {
			return NewString(dedent(lines)), nil
		}
		lines = append(lines, line)
	}
	return nil, p.errorf("missing ~ closing text block")
}

// dedent strips the indentation shared by every non-empty line and joins the
// lines with newlines.
func dedent(lines [][]byte) string {
	indent := -1
	for _, line := range lines {
		if len(line) == 0 {
			continue
		}
		if n := leadingSpace(line); indent < 0 || n < indent {
			indent = n
		}
	}
	indent = max(indent, 0)
	var buf bytes.Buffer
	for i, line := range lines {
		if i > 0 {
			buf.WriteByte('\n')
		}
		buf.Write(line[min(indent, leadingSpace(line)):])
	}
	return buf.String()
}

func leadingSpace(line []byte) int {
	n := 0
	for n < len(line) && (line[n] == ' ' || line[n] == '\t') {
		n++
	}
	return n
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n'
}

func isBlank(b []byte) bool {
	for _, c := range b {
		if !isSpace(c) {
			return false
		}
	}
	return true
}
