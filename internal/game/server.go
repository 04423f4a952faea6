package game

import (
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sys/unix"
	"golang.org/x/text/encoding/charmap"

	"Kiln/internal/index"
)

// Config sizes the reactor and its per-connection buffers.
type Config struct {
	// PollTimeout bounds each readiness wait so housekeeping runs even when
	// no client is talking.
	PollTimeout  time.Duration
	InputBuffer  int
	OutputBuffer int
	ReadChunk    int
	Charset      *charmap.Charmap
}

// DefaultConfig returns the stock reactor settings.
func DefaultConfig() Config {
	return Config{
		PollTimeout:  60 * time.Second,
		InputBuffer:  1024,
		OutputBuffer: 16 * 1024,
		ReadChunk:    512,
		Charset:      charmap.ISO8859_1,
	}
}

func (c *Config) normalize() {
	def := DefaultConfig()
	if c.PollTimeout <= 0 {
		c.PollTimeout = def.PollTimeout
	}
	if c.InputBuffer <= 0 {
		c.InputBuffer = def.InputBuffer
	}
	if c.OutputBuffer <= 0 {
		c.OutputBuffer = def.OutputBuffer
	}
	if c.ReadChunk <= 0 {
		c.ReadChunk = def.ReadChunk
	}
	if c.Charset == nil {
		c.Charset = def.Charset
	}
}

// ServerOption customises a Server.
type ServerOption func(*Server)

// WithConfig replaces the default reactor settings.
func WithConfig(cfg Config) ServerOption {
	return func(s *Server) {
		s.cfg = cfg
	}
}

// WithLogger sets the logger used by the server and its connections.
func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics records reactor activity in m.
func WithMetrics(m *Metrics) ServerOption {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithTick registers housekeeping run once per reactor pass.
func WithTick(fn func(now time.Time)) ServerOption {
	return func(s *Server) {
		s.tick = fn
	}
}

// WithNameGenerator overrides how connection names are generated.
func WithNameGenerator(fn func() string) ServerOption {
	return func(s *Server) {
		if fn != nil {
			s.newName = fn
		}
	}
}

// Server is the single-threaded reactor that owns every client connection.
// Apart from Stop, its methods must only be called from the goroutine
// running Run or Pass, including from inside connection callbacks.
type Server struct {
	cfg      Config
	listener Listener
	poller   Poller
	logger   *slog.Logger
	metrics  *Metrics
	onAccept func(*Conn)
	tick     func(time.Time)
	newName  func() string

	conns    *index.Tree[string, *Conn]
	stopping atomic.Bool

	readBuf []byte
	fds     []unix.PollFd
	polled  []*Conn
}

// NewServer builds a reactor around ln. onAccept runs for every new
// connection once the option offers are queued; it typically attaches a
// Handler or LineEditor and prints a greeting.
func NewServer(ln Listener, poller Poller, onAccept func(*Conn), opts ...ServerOption) (*Server, error) {
	if ln == nil {
		return nil, errors.New("listener must not be nil")
	}
	if poller == nil {
		return nil, errors.New("poller must not be nil")
	}
	s := &Server{
		cfg:      DefaultConfig(),
		listener: ln,
		poller:   poller,
		logger:   slog.Default(),
		onAccept: onAccept,
		newName:  defaultConnName,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	s.cfg.normalize()
	s.conns = index.New[string, *Conn](index.CompareFold, index.WithLogger[string, *Conn](s.logger))
	s.readBuf = make([]byte, s.cfg.ReadChunk)
	return s, nil
}

func defaultConnName() string {
	return "c" + uuid.NewString()[:8]
}

// Addr returns the listening address.
func (s *Server) Addr() string {
	return s.listener.Addr()
}

// Run drives the reactor until Stop is called, then closes every
// connection and the listener.
func (s *Server) Run() error {
	s.logger.Info("reactor started", "addr", s.listener.Addr())
	defer s.shutdown()
	for !s.stopping.Load() {
		if err := s.Pass(s.cfg.PollTimeout); err != nil {
			return fmt.Errorf("reactor pass: %w", err)
		}
	}
	return nil
}

// Stop asks Run to return after the current pass. It is safe to call from
// any goroutine.
func (s *Server) Stop() {
	s.stopping.Store(true)
	s.poller.Wake()
}

// Stopping reports whether Stop has been called.
func (s *Server) Stopping() bool {
	return s.stopping.Load()
}

// Pass performs one readiness wait of at most timeout and services whatever
// became ready. Connections closed during the pass are removed from the
// registry only after every connection has been serviced.
func (s *Server) Pass(timeout time.Duration) error {
	s.fds = append(s.fds[:0], unix.PollFd{Fd: int32(s.listener.Fd()), Events: unix.POLLIN})
	s.polled = s.polled[:0]
	for _, c := range s.conns.All() {
		if c.Closed() {
			continue
		}
		events := int16(unix.POLLIN)
		if c.wantsWrite() {
			events |= unix.POLLOUT
		}
		s.fds = append(s.fds, unix.PollFd{Fd: int32(c.transport.Fd()), Events: events})
		s.polled = append(s.polled, c)
	}

	if _, err := s.poller.Poll(s.fds, timeout); err != nil {
		return err
	}
	start := time.Now()

	if s.fds[0].Revents&unix.POLLIN != 0 {
		s.accept()
	}
	for i, c := range s.polled {
		revents := s.fds[i+1].Revents
		if c.Closed() || (revents == 0 && !c.needPrompt) {
			continue
		}
		if revents&unix.POLLNVAL != 0 {
			c.closeWith(ReasonReadError, errors.New("invalid descriptor"))
			continue
		}
		if revents&(unix.POLLIN|unix.POLLHUP|unix.POLLERR) != 0 {
			c.readInput(s.readBuf)
		}
		if !c.Closed() && (revents&unix.POLLOUT != 0 || c.needPrompt) {
			c.flush()
		}
	}

	if s.tick != nil {
		s.tick(time.Now())
	}
	s.sweep()
	s.metrics.passFinished(time.Since(start))
	return nil
}

func (s *Server) accept() {
	t, err := s.listener.Accept()
	if err != nil {
		if !errors.Is(err, ErrWouldBlock) {
			s.logger.Warn("accept failed", "error", err)
		}
		return
	}
	name := s.uniqueName()
	c := newConn(s, t, name)
	s.conns.Insert(name, c)
	s.metrics.connectionAccepted()
	s.logger.Info("connection accepted", "conn", name, "host", c.host)

	if err := c.queueRaw(handshake); err != nil {
		return
	}
	c.state = StateNegotiating
	if s.onAccept != nil {
		s.onAccept(c)
	}
}

const maxNameAttempts = 8

func (s *Server) uniqueName() string {
	var name string
	for attempt := 0; attempt < maxNameAttempts; attempt++ {
		name = s.newName()
		if name != "" && s.conns.Get(name) == index.NilNode {
			return name
		}
	}
	for n := 1; ; n++ {
		candidate := fmt.Sprintf("%s-%d", name, n)
		if s.conns.Get(candidate) == index.NilNode {
			return candidate
		}
	}
}

// sweep removes closed connections from the registry.
func (s *Server) sweep() {
	var closed []string
	for name, c := range s.conns.All() {
		if c.Closed() {
			closed = append(closed, name)
		}
	}
	for _, name := range closed {
		if _, c, ok := s.conns.DeleteNoFree(name); ok {
			c.state = StateRemoved
			s.logger.Debug("connection removed", "conn", name, "reason", string(c.closeReason))
		}
	}
	s.metrics.registered(s.conns.Size())
}

func (s *Server) shutdown() {
	for _, c := range s.conns.All() {
		c.flush()
		c.closeWith(ReasonShutdown, nil)
	}
	s.sweep()
	if err := s.listener.Close(); err != nil {
		s.logger.Warn("closing listener failed", "error", err)
	}
	s.logger.Info("reactor stopped")
}

// Each calls fn for every open connection in name order until fn returns
// false.
func (s *Server) Each(fn func(*Conn) bool) {
	for _, c := range s.conns.All() {
		if c.Closed() {
			continue
		}
		if !fn(c) {
			return
		}
	}
}

// Lookup finds an open connection by name.
func (s *Server) Lookup(name string) (*Conn, bool) {
	c, ok := s.conns.Lookup(name)
	if !ok || c.Closed() {
		return nil, false
	}
	return c, true
}

// Registered reports whether name is still held in the registry, open or
// not.
func (s *Server) Registered(name string) bool {
	return s.conns.Get(name) != index.NilNode
}

// Len counts open connections.
func (s *Server) Len() int {
	n := 0
	s.Each(func(*Conn) bool {
		n++
		return true
	})
	return n
}

// Broadcast prints text to every open connection except skip.
func (s *Server) Broadcast(text string, skip *Conn) {
	s.Each(func(c *Conn) bool {
		if c != skip {
			_ = c.Print(text)
		}
		return true
	})
}
