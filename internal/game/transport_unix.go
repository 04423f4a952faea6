//go:build unix

package game

import (
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"time"

	"golang.org/x/sys/unix"
)

const listenBacklog = 64

type socketListener struct {
	fd int
}

// Listen opens a non-blocking TCP listening socket on addr.
func Listen(addr string) (Listener, error) {
	tcp, err := net.ResolveTCPAddr("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", addr, err)
	}

	family := unix.AF_INET
	var sa unix.Sockaddr
	if ip4 := tcp.IP.To4(); tcp.IP == nil || ip4 != nil {
		inet4 := &unix.SockaddrInet4{Port: tcp.Port}
		if ip4 != nil {
			copy(inet4.Addr[:], ip4)
		}
		sa = inet4
	} else {
		family = unix.AF_INET6
		inet6 := &unix.SockaddrInet6{Port: tcp.Port}
		copy(inet6.Addr[:], tcp.IP.To16())
		sa = inet6
	}

	fd, err := unix.Socket(family, unix.SOCK_STREAM, 0)
	if err != nil {
		return nil, fmt.Errorf("socket: %w", err)
	}
	unix.CloseOnExec(fd)
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("set SO_REUSEADDR: %w", err)
	}
	if err := unix.Bind(fd, sa); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("bind %s: %w", addr, err)
	}
	if err := unix.Listen(fd, listenBacklog); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("listen %s: %w", addr, err)
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("set non-blocking: %w", err)
	}
	return &socketListener{fd: fd}, nil
}

func (l *socketListener) Accept() (Transport, error) {
	nfd, sa, err := unix.Accept(l.fd)
	if err != nil {
		if wouldBlock(err) || errors.Is(err, unix.ECONNABORTED) {
			return nil, ErrWouldBlock
		}
		return nil, fmt.Errorf("accept: %w", err)
	}
	unix.CloseOnExec(nfd)
	if err := unix.SetNonblock(nfd, true); err != nil {
		unix.Close(nfd)
		return nil, fmt.Errorf("set non-blocking: %w", err)
	}
	return &socketConn{fd: nfd, host: sockaddrHost(sa)}, nil
}

func (l *socketListener) Close() error {
	return unix.Close(l.fd)
}

func (l *socketListener) Fd() int {
	return l.fd
}

func (l *socketListener) Addr() string {
	sa, err := unix.Getsockname(l.fd)
	if err != nil {
		return ""
	}
	return sockaddrString(sa)
}

type socketConn struct {
	fd     int
	host   string
	closed bool
}

func (c *socketConn) Read(p []byte) (int, error) {
	n, err := unix.Read(c.fd, p)
	if err != nil {
		if wouldBlock(err) {
			return 0, ErrWouldBlock
		}
		return 0, err
	}
	if n == 0 && len(p) > 0 {
		return 0, io.EOF
	}
	return n, nil
}

func (c *socketConn) Write(p []byte) (int, error) {
	n, err := unix.Write(c.fd, p)
	if n < 0 {
		n = 0
	}
	if err != nil {
		if wouldBlock(err) {
			return n, ErrWouldBlock
		}
		return n, err
	}
	return n, nil
}

func (c *socketConn) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	return unix.Close(c.fd)
}

func (c *socketConn) Fd() int {
	return c.fd
}

func (c *socketConn) RemoteHost() string {
	return c.host
}

func wouldBlock(err error) bool {
	return errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EWOULDBLOCK) || errors.Is(err, unix.EINTR)
}

func sockaddrHost(sa unix.Sockaddr) string {
	switch a := sa.(type) {
	case *unix.SockaddrInet4:
		return net.IP(a.Addr[:]).String()
	case *unix.SockaddrInet6:
		return net.IP(a.Addr[:]).String()
	default:
		return "unknown"
	}
}

func sockaddrString(sa unix.Sockaddr) string {
	switch a := sa.(type) {
	case *unix.SockaddrInet4:
		return net.JoinHostPort(net.IP(a.Addr[:]).String(), strconv.Itoa(a.Port))
	case *unix.SockaddrInet6:
		return net.JoinHostPort(net.IP(a.Addr[:]).String(), strconv.Itoa(a.Port))
	default:
		return ""
	}
}

// SystemPoller waits with poll(2). A pipe is polled alongside the caller's
// descriptors so Wake can interrupt the wait.
type SystemPoller struct {
	wakeR int
	wakeW int
	fds   []unix.PollFd
}

// NewSystemPoller creates a poller and its wake-up pipe.
func NewSystemPoller() (*SystemPoller, error) {
	var p [2]int
	if err := unix.Pipe(p[:]); err != nil {
		return nil, fmt.Errorf("create wake pipe: %w", err)
	}
	for _, fd := range p {
		unix.CloseOnExec(fd)
		if err := unix.SetNonblock(fd, true); err != nil {
			unix.Close(p[0])
			unix.Close(p[1])
			return nil, fmt.Errorf("set non-blocking: %w", err)
		}
	}
	return &SystemPoller{wakeR: p[0], wakeW: p[1]}, nil
}

func (p *SystemPoller) Poll(fds []unix.PollFd, timeout time.Duration) (int, error) {
	p.fds = append(p.fds[:0], fds...)
	p.fds = append(p.fds, unix.PollFd{Fd: int32(p.wakeR), Events: unix.POLLIN})

	ms := -1
	if timeout >= 0 {
		ms = int(timeout / time.Millisecond)
	}
	n, err := unix.Poll(p.fds, ms)
	if err != nil {
		if errors.Is(err, unix.EINTR) {
			return 0, nil
		}
		return 0, fmt.Errorf("poll: %w", err)
	}

	wake := p.fds[len(p.fds)-1]
	if wake.Revents != 0 {
		n--
		var drain [64]byte
		for {
			if _, err := unix.Read(p.wakeR, drain[:]); err != nil {
				break
			}
		}
	}
	for i := range fds {
		fds[i].Revents = p.fds[i].Revents
	}
	return n, nil
}

func (p *SystemPoller) Wake() {
	_, _ = unix.Write(p.wakeW, []byte{0})
}

// Close releases the wake-up pipe.
func (p *SystemPoller) Close() error {
	err := unix.Close(p.wakeR)
	if cerr := unix.Close(p.wakeW); err == nil {
		err = cerr
	}
	return err
}
