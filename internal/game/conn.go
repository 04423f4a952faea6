package game

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"
)

var (
	// ErrClosed is returned when writing to a connection that is closing.
	ErrClosed = errors.New("connection closed")
	// ErrInputOverflow is recorded when a peer sends a line longer than the input buffer.
	ErrInputOverflow = errors.New("input buffer overflow")
	// ErrOutputOverflow is returned when output does not fit in the output buffer.
	ErrOutputOverflow = errors.New("output buffer overflow")
)

// ConnState tracks a connection through its lifetime.
type ConnState uint8

const (
	StateAccepted ConnState = iota
	StateNegotiating
	StateActive
	StateClosing
	StateRemoved
)

func (s ConnState) String() string {
	switch s {
	case StateAccepted:
		return "accepted"
	case StateNegotiating:
		return "negotiating"
	case StateActive:
		return "active"
	case StateClosing:
		return "closing"
	case StateRemoved:
		return "removed"
	}
	return fmt.Sprintf("state-%d", s)
}

// CloseReason labels why a connection was closed.
type CloseReason string

const (
	ReasonEOF            CloseReason = "eof"
	ReasonReadError      CloseReason = "read_error"
	ReasonWriteError     CloseReason = "write_error"
	ReasonInputOverflow  CloseReason = "input_overflow"
	ReasonOutputOverflow CloseReason = "output_overflow"
	ReasonProtocol       CloseReason = "protocol"
	ReasonRequested      CloseReason = "requested"
	ReasonShutdown       CloseReason = "shutdown"
)

// Handler is the behaviour attached to a connection. Every field is optional.
type Handler struct {
	// OnLine receives each completed input line.
	OnLine func(c *Conn, line string)
	// OnFocus runs when the handler is attached.
	OnFocus func(c *Conn)
	// OnBlur runs when the handler is replaced or the connection closes.
	OnBlur func(c *Conn)
	// Prompt renders the prompt shown after a line has been handled.
	Prompt func(c *Conn) string
}

// LineEditor takes over line input from the handler while attached.
type LineEditor interface {
	EditLine(c *Conn, line string)
	Abort(c *Conn)
}

// Conn is one client connection owned by a Server.
type Conn struct {
	server    *Server
	transport Transport
	logger    *slog.Logger

	name        string
	host        string
	state       ConnState
	closeReason CloseReason
	connectedAt time.Time

	in  []byte
	out []byte

	column      int
	dispatching bool
	needPrompt  bool
	draining    bool

	telnet     telnetState
	pendingCmd byte
	subOpt     byte
	sub        []byte

	width  int
	height int

	handler *Handler
	editor  LineEditor
	data    any
}

func newConn(s *Server, t Transport, name string) *Conn {
	return &Conn{
		server:      s,
		transport:   t,
		logger:      s.logger,
		name:        name,
		host:        t.RemoteHost(),
		state:       StateAccepted,
		connectedAt: time.Now(),
		in:          make([]byte, 0, s.cfg.InputBuffer),
		out:         make([]byte, 0, s.cfg.OutputBuffer),
		sub:         make([]byte, 0, maxSubnegotiation),
		width:       defaultWidth,
		height:      defaultHeight,
	}
}

// Name returns the unique name the server generated for c.
func (c *Conn) Name() string { return c.name }

// Host returns the remote host label.
func (c *Conn) Host() string { return c.host }

// State returns the lifecycle state.
func (c *Conn) State() ConnState { return c.state }

// ConnectedAt returns the time the connection was accepted.
func (c *Conn) ConnectedAt() time.Time { return c.connectedAt }

// Closed reports whether c is closing or already removed.
func (c *Conn) Closed() bool { return c.state >= StateClosing }

// CloseReason returns why c was closed, or "" while it is open.
func (c *Conn) CloseReason() CloseReason { return c.closeReason }

// Size returns the terminal size reported by the client, 80x25 until it
// says otherwise.
func (c *Conn) Size() (width, height int) { return c.width, c.height }

// Data returns the value stored with SetData.
func (c *Conn) Data() any { return c.data }

// SetData attaches collaborator state to c.
func (c *Conn) SetData(v any) { c.data = v }

// Handler returns the attached behaviour.
func (c *Conn) Handler() *Handler { return c.handler }

// SetHandler replaces the attached behaviour, running the old handler's
// OnBlur and the new one's OnFocus.
func (c *Conn) SetHandler(h *Handler) {
	if c.Closed() {
		return
	}
	old := c.handler
	c.handler = h
	if old != nil && old.OnBlur != nil {
		old.OnBlur(c)
	}
	if h != nil && h.OnFocus != nil && c.handler == h {
		h.OnFocus(c)
	}
}

// Editor returns the attached line editor, if any.
func (c *Conn) Editor() LineEditor { return c.editor }

// SetEditor routes input lines to e until it is cleared with nil.
func (c *Conn) SetEditor(e LineEditor) {
	if c.Closed() && e != nil {
		return
	}
	c.editor = e
}

// Pending returns the bytes of the line being typed.
func (c *Conn) Pending() int { return len(c.in) }

// Close closes the connection. It is removed from the server at the end of
// the current reactor pass. Closing twice is harmless.
func (c *Conn) Close() {
	c.closeWith(ReasonRequested, nil)
}

// CloseWhenFlushed stops processing input from c and closes it once the
// output already queued has been written.
func (c *Conn) CloseWhenFlushed() {
	if c.Closed() {
		return
	}
	if len(c.out) == 0 {
		c.closeWith(ReasonRequested, nil)
		return
	}
	c.draining = true
	c.needPrompt = false
}

func (c *Conn) closeWith(reason CloseReason, cause error) {
	if c.Closed() {
		return
	}
	c.state = StateClosing
	c.closeReason = reason

	attrs := []any{"conn", c.name, "host", c.host, "reason", string(reason)}
	switch reason {
	case ReasonProtocol, ReasonInputOverflow, ReasonOutputOverflow, ReasonReadError, ReasonWriteError:
		c.logger.Warn("closing connection", append(attrs, "error", cause)...)
	default:
		c.logger.Info("closing connection", attrs...)
	}

	if err := c.transport.Close(); err != nil {
		c.logger.Debug("transport close failed", "conn", c.name, "error", err)
	}
	if e := c.editor; e != nil {
		c.editor = nil
		e.Abort(c)
	}
	if h := c.handler; h != nil {
		c.handler = nil
		if h.OnBlur != nil {
			h.OnBlur(c)
		}
	}
	c.in = c.in[:0]
	c.out = c.out[:0]
	c.needPrompt = false
	c.server.metrics.connectionClosed(reason)
}

// readInput pulls one chunk from the transport and decodes it.
func (c *Conn) readInput(buf []byte) {
	n, err := c.transport.Read(buf)
	if n > 0 {
		c.server.metrics.bytesIn(n)
		for _, b := range buf[:n] {
			if c.Closed() || c.draining {
				break
			}
			c.decode(b)
		}
	}
	switch {
	case err == nil, errors.Is(err, ErrWouldBlock):
	case errors.Is(err, io.EOF):
		c.closeWith(ReasonEOF, nil)
	default:
		c.closeWith(ReasonReadError, err)
	}
}

// acceptByte assembles plain input bytes into lines.
func (c *Conn) acceptByte(b byte) {
	if c.state == StateNegotiating {
		c.state = StateActive
	}
	switch b {
	case '\n':
		c.completeLine()
	case '\r', 0:
	case 0x08, 0x7f:
		c.eraseChar()
	default:
		if len(c.in) >= cap(c.in) {
			c.closeWith(ReasonInputOverflow, fmt.Errorf("%w: line exceeds %d bytes", ErrInputOverflow, cap(c.in)))
			return
		}
		c.in = append(c.in, b)
	}
}

func (c *Conn) eraseChar() {
	if len(c.in) > 0 {
		c.in = c.in[:len(c.in)-1]
	}
}

func (c *Conn) completeLine() {
	line := sanitizeInput(decodeWithCharmap(c.server.cfg.Charset, c.in))
	c.in = c.in[:0]
	// The client's own echo of the line break put the cursor at the margin.
	c.column = 0
	c.server.metrics.lineReceived()

	c.dispatching = true
	switch {
	case c.editor != nil:
		c.editor.EditLine(c, line)
	case c.handler != nil && c.handler.OnLine != nil:
		c.handler.OnLine(c, line)
	}
	c.dispatching = false
	if !c.Closed() && !c.draining {
		c.needPrompt = true
	}
}
