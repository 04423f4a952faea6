//go:build unix

package game

import (
	"bufio"
	"errors"
	"io"
	"log/slog"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestSystemPollerWake(t *testing.T) {
	p, err := NewSystemPoller()
	require.NoError(t, err)
	defer p.Close()

	p.Wake()
	start := time.Now()
	n, err := p.Poll(nil, 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Less(t, time.Since(start), time.Second)

	// The wake byte was drained, so the next wait runs to its timeout.
	n, err = p.Poll(nil, 20*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestListenRejectsBadAddress(t *testing.T) {
	_, err := Listen("not an address")
	assert.Error(t, err)
}

func TestSocketListenerAcceptWouldBlock(t *testing.T) {
	ln, err := Listen("127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	_, err = ln.Accept()
	assert.ErrorIs(t, err, ErrWouldBlock)
	assert.True(t, strings.HasPrefix(ln.Addr(), "127.0.0.1:"))
}

func TestEchoOverRealSockets(t *testing.T) {
	ln, err := Listen("127.0.0.1:0")
	require.NoError(t, err)
	poller, err := NewSystemPoller()
	require.NoError(t, err)
	defer poller.Close()

	s, err := NewServer(ln, poller, func(c *Conn) {
		c.SetHandler(&Handler{
			OnLine: func(c *Conn, line string) {
				if line == "quit" {
					_ = c.Println("bye")
					c.CloseWhenFlushed()
					return
				}
				_ = c.Println("echo: " + line)
			},
			Prompt: func(*Conn) string { return "> " },
		})
		_ = c.Print("hello\n")
	}, WithLogger(slog.New(slog.DiscardHandler)), WithConfig(Config{PollTimeout: 50 * time.Millisecond}))
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- s.Run() }()

	client, err := net.Dial("tcp", s.Addr())
	require.NoError(t, err)
	defer client.Close()
	require.NoError(t, client.SetDeadline(time.Now().Add(5*time.Second)))
	r := bufio.NewReader(client)

	offers := make([]byte, len(handshake))
	_, err = readFull(r, offers)
	require.NoError(t, err)
	assert.Equal(t, handshake, offers)

	greeting, err := r.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "hello\r\n", greeting)

	_, err = client.Write([]byte("ping\r\n"))
	require.NoError(t, err)
	reply, err := r.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "echo: ping\r\n", reply)

	_, err = client.Write([]byte("quit\r\n"))
	require.NoError(t, err)
	rest, err := readUntilClosed(r)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(rest, "bye\r\n"), "%q", rest)

	s.Stop()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("reactor did not stop")
	}
	assert.Equal(t, 0, s.Len())
}

func readFull(r *bufio.Reader, p []byte) (int, error) {
	n := 0
	for n < len(p) {
		m, err := r.Read(p[n:])
		n += m
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

func readUntilClosed(r *bufio.Reader) (string, error) {
	var b strings.Builder
	buf := make([]byte, 256)
	for {
		n, err := r.Read(buf)
		b.Write(buf[:n])
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, unix.ECONNRESET) {
				return b.String(), nil
			}
			return b.String(), err
		}
	}
}
