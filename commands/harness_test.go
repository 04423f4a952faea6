package commands

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sys/unix"

	"Kiln/internal/game"
)

var discard = slog.New(slog.DiscardHandler)

const harnessListenerFd = 3

// pipe is the client end of a scripted connection.
type pipe struct {
	fd     int
	in     [][]byte
	out    bytes.Buffer
	closed bool
}

func (p *pipe) send(line string) {
	p.in = append(p.in, []byte(line+"\r\n"))
}

// text returns what the client has seen since the last reset, without
// colour.
func (p *pipe) text() string {
	return game.StripAnsi(p.out.String())
}

func (p *pipe) Read(b []byte) (int, error) {
	if len(p.in) == 0 {
		return 0, game.ErrWouldBlock
	}
	n := copy(b, p.in[0])
	if n < len(p.in[0]) {
		p.in[0] = p.in[0][n:]
	} else {
		p.in = p.in[1:]
	}
	return n, nil
}

func (p *pipe) Write(b []byte) (int, error) {
	return p.out.Write(b)
}

func (p *pipe) Close() error {
	p.closed = true
	return nil
}

func (p *pipe) Fd() int            { return p.fd }
func (p *pipe) RemoteHost() string { return "198.51.100.4" }

// harness runs a lobby on a reactor whose sockets are pipes. It is both the
// reactor's listener and its poller.
type harness struct {
	t        *testing.T
	srv      *game.Server
	lobby    *Lobby
	accounts *game.AccountManager
	pending  []*pipe
	pipes    map[int32]*pipe
	next     int
	now      time.Time
	stopped  int
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	h := &harness{
		t:     t,
		pipes: make(map[int32]*pipe),
		next:  100,
		now:   time.Date(2024, 3, 9, 18, 30, 0, 0, time.UTC),
	}
	accounts, err := game.NewAccountManager(t.TempDir(),
		game.WithBcryptCost(bcrypt.MinCost),
		game.WithAccountLogger(discard),
	)
	require.NoError(t, err)
	h.accounts = accounts
	opts = append([]Option{
		WithLogger(discard),
		WithClock(func() time.Time { return h.now }),
		WithRate(0, 1),
		WithShutdown(func() { h.stopped++ }),
	}, opts...)
	h.lobby = NewLobby(accounts, opts...)
	h.srv, err = game.NewServer(h, h, h.lobby.Accept,
		game.WithLogger(discard),
		game.WithTick(h.lobby.Tick),
	)
	require.NoError(t, err)
	t.Cleanup(h.lobby.Close)
	return h
}

func (h *harness) Accept() (game.Transport, error) {
	if len(h.pending) == 0 {
		return nil, game.ErrWouldBlock
	}
	p := h.pending[0]
	h.pending = h.pending[1:]
	return p, nil
}

func (h *harness) Close() error { return nil }
func (h *harness) Fd() int      { return harnessListenerFd }
func (h *harness) Addr() string { return "pipe:4000" }
func (h *harness) Wake()        {}

func (h *harness) Poll(fds []unix.PollFd, timeout time.Duration) (int, error) {
	ready := 0
	for i := range fds {
		fds[i].Revents = 0
		if fds[i].Fd == harnessListenerFd {
			if len(h.pending) > 0 {
				fds[i].Revents = unix.POLLIN
			}
		} else if p, ok := h.pipes[fds[i].Fd]; ok {
			if len(p.in) > 0 {
				fds[i].Revents |= unix.POLLIN
			}
			fds[i].Revents |= fds[i].Events & unix.POLLOUT
		}
		if fds[i].Revents != 0 {
			ready++
		}
	}
	return ready, nil
}

// settle runs reactor passes until queued input and output have moved.
func (h *harness) settle() {
	h.t.Helper()
	for range 5 {
		require.NoError(h.t, h.srv.Pass(0))
	}
}

func (h *harness) connect() *pipe {
	h.t.Helper()
	p := &pipe{fd: h.next}
	h.next++
	h.pipes[int32(p.fd)] = p
	h.pending = append(h.pending, p)
	h.settle()
	return p
}

// login connects and logs in as name, registering the account first when
// it does not exist yet.
func (h *harness) login(name, password string) *pipe {
	h.t.Helper()
	p := h.connect()
	p.send(name)
	p.send(password)
	if !h.accounts.Exists(name) {
		p.send(password)
	}
	h.settle()
	_, ok := h.lobby.Find(name)
	require.True(h.t, ok, "%s did not log in: %q", name, p.text())
	return p
}

// run sends line from p and returns what every client saw while the
// command ran.
func (h *harness) run(p *pipe, line string, watchers ...*pipe) string {
	h.t.Helper()
	for _, w := range append([]*pipe{p}, watchers...) {
		w.out.Reset()
	}
	p.send(line)
	h.settle()
	return p.text()
}
