package game

import (
	"errors"
	"fmt"
)

const tabWidth = 8

// Print queues text for the client. Text is UTF-8; it is converted to the
// server's single-byte charset and line feeds become CR LF. When the client
// is sitting at a prompt or part way through typing a line, unsolicited
// output starts on a fresh line and the prompt is redrawn afterwards.
//
// Output that would not fit in the output buffer closes the connection and
// returns ErrOutputOverflow; nothing is partially queued.
func (c *Conn) Print(text string) error {
	return c.emit(text, !c.dispatching)
}

// Printf formats according to a format specifier and queues the result.
func (c *Conn) Printf(format string, args ...any) error {
	return c.Print(fmt.Sprintf(format, args...))
}

// Println queues text followed by a line break.
func (c *Conn) Println(text string) error {
	return c.Print(text + "\n")
}

func (c *Conn) emit(text string, interrupt bool) error {
	if c.Closed() {
		return ErrClosed
	}
	data := translateForTelnet(encodeWithCharmap(c.server.cfg.Charset, []byte(text)))
	breakLine := interrupt && len(c.out) == 0 && (c.column > 0 || len(c.in) > 0)
	need := len(data)
	if breakLine {
		need += 2
	}
	if len(c.out)+need > cap(c.out) {
		err := fmt.Errorf("%w: %d bytes queued, %d more offered, capacity %d",
			ErrOutputOverflow, len(c.out), need, cap(c.out))
		c.closeWith(ReasonOutputOverflow, err)
		return ErrOutputOverflow
	}
	if breakLine {
		c.out = append(c.out, '\r', '\n')
		c.column = 0
		c.needPrompt = !c.draining
	}
	c.out = append(c.out, data...)
	c.column = advanceColumn(c.column, data)
	return nil
}

// queueRaw appends protocol bytes that occupy no screen space.
func (c *Conn) queueRaw(data []byte) error {
	if c.Closed() {
		return ErrClosed
	}
	if len(c.out)+len(data) > cap(c.out) {
		c.closeWith(ReasonOutputOverflow, fmt.Errorf("%w: protocol bytes", ErrOutputOverflow))
		return ErrOutputOverflow
	}
	c.out = append(c.out, data...)
	return nil
}

// advanceColumn returns the cursor column after data is displayed starting
// at col. Escape sequences have no width.
func advanceColumn(col int, data []byte) int {
	for i := 0; i < len(data); i++ {
		b := data[i]
		switch {
		case b == 0x1b:
			i = skipEscape(data, i)
		case b == telnetIAC:
			// Output bytes are already doubled; the pair is one character.
			if i+1 < len(data) && data[i+1] == telnetIAC {
				i++
			}
			col++
		case b == '\r' || b == '\n':
			col = 0
		case b == 0x08 || b == 0x7f:
			if col > 0 {
				col--
			}
		case b == '\t':
			col += tabWidth
		case b < 0x20:
		default:
			col++
		}
	}
	return col
}

// skipEscape returns the index of the last byte of the escape sequence that
// starts at data[i].
func skipEscape(data []byte, i int) int {
	if i+1 >= len(data) {
		return i
	}
	if data[i+1] != '[' {
		return i + 1
	}
	for j := i + 2; j < len(data); j++ {
		if data[j] >= 0x40 && data[j] <= 0x7e {
			return j
		}
	}
	return len(data) - 1
}

// RequestPrompt asks for the prompt to be redrawn at the next flush.
func (c *Conn) RequestPrompt() {
	if !c.Closed() && !c.draining {
		c.needPrompt = true
	}
}

// wantsWrite reports whether the reactor should wait for c to be writable.
func (c *Conn) wantsWrite() bool {
	return !c.Closed() && (len(c.out) > 0 || c.needPrompt)
}

// flush renders an owed prompt and writes as much buffered output as the
// transport accepts, keeping the rest for later.
func (c *Conn) flush() {
	if c.Closed() {
		return
	}
	if c.needPrompt {
		c.needPrompt = false
		if c.editor == nil && c.handler != nil && c.handler.Prompt != nil {
			if err := c.emit(c.handler.Prompt(c), false); err != nil {
				return
			}
		}
	}
	for len(c.out) > 0 {
		n, err := c.transport.Write(c.out)
		if n > 0 {
			c.server.metrics.bytesOut(n)
			rest := copy(c.out, c.out[n:])
			c.out = c.out[:rest]
		}
		if err != nil {
			if errors.Is(err, ErrWouldBlock) {
				return
			}
			c.closeWith(ReasonWriteError, err)
			return
		}
		if n == 0 {
			return
		}
	}
	if c.draining {
		c.closeWith(ReasonRequested, nil)
	}
}
