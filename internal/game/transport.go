package game

import (
	"errors"
	"time"

	"golang.org/x/sys/unix"
)

// ErrWouldBlock reports that a non-blocking transport has nothing to offer
// right now.
var ErrWouldBlock = errors.New("operation would block")

// Transport is a non-blocking byte stream to one peer. Read returns io.EOF
// once the peer has closed its side; Read and Write return ErrWouldBlock
// instead of waiting. Write may accept fewer bytes than offered.
type Transport interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
	Fd() int
	RemoteHost() string
}

// Listener hands out new transports. Accept returns ErrWouldBlock when no
// connection is waiting.
type Listener interface {
	Accept() (Transport, error)
	Close() error
	Fd() int
	Addr() string
}

// Poller performs the reactor's readiness wait.
type Poller interface {
	// Poll blocks until one of fds is ready or timeout elapses, filling in
	// Revents. It returns the number of ready descriptors.
	Poll(fds []unix.PollFd, timeout time.Duration) (int, error)
	// Wake makes a blocked Poll return early. It is the only method that may
	// be called from another goroutine.
	Wake()
}
