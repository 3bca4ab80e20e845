package siderprotocol

import (
	"context"
	"errors"
	"io"
	"net"
	"os"
	"time"
)

// fakeConn is a scripted net.Conn. Until the first write it is an idle,
// healthy stream. After that, reads see what respond produced for earlier
// writes or was queued in pending; with nothing pending a read behaves like
// an expired deadline unless readErr or zeroRead says otherwise.
type fakeConn struct {
	net.Conn

	respond  func(req []byte) []byte
	pending  [][]byte
	readErr  error
	zeroRead bool
	writeErr error

	// dead applies readErr/zeroRead/pending before the first write, like a
	// server that went away right after accepting.
	dead bool

	writes [][]byte
	closed bool
}

func (c *fakeConn) Read(p []byte) (int, error) {
	if c.closed {
		return 0, net.ErrClosed
	}
	if len(c.writes) == 0 && !c.dead {
		return 0, os.ErrDeadlineExceeded
	}
	if len(c.pending) > 0 {
		n := copy(p, c.pending[0])
		if n == len(c.pending[0]) {
			c.pending = c.pending[1:]
		} else {
			c.pending[0] = c.pending[0][n:]
		}
		return n, nil
	}
	switch {
	case c.readErr != nil:
		return 0, c.readErr
	case c.zeroRead:
		return 0, nil
	default:
		return 0, os.ErrDeadlineExceeded
	}
}

func (c *fakeConn) Write(p []byte) (int, error) {
	if c.closed {
		return 0, net.ErrClosed
	}
	if c.writeErr != nil {
		return 0, c.writeErr
	}
	c.writes = append(c.writes, append([]byte(nil), p...))
	if c.respond != nil {
		if reply := c.respond(p); reply != nil {
			c.pending = append(c.pending, reply)
		}
	}
	return len(p), nil
}

func (c *fakeConn) Close() error {
	c.closed = true
	return nil
}

func (c *fakeConn) SetDeadline(time.Time) error      { return nil }
func (c *fakeConn) SetReadDeadline(time.Time) error  { return nil }
func (c *fakeConn) SetWriteDeadline(time.Time) error { return nil }

// reply returns a respond func that always answers text.
func reply(text string) func([]byte) []byte {
	return func([]byte) []byte { return []byte(text) }
}

// fakeDialer hands out conns in order, then fails with err.
type fakeDialer struct {
	conns []net.Conn
	err   error
	dials int
}

func (d *fakeDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	d.dials++
	if len(d.conns) > 0 {
		conn := d.conns[0]
		d.conns = d.conns[1:]
		return conn, nil
	}
	if d.err != nil {
		return nil, d.err
	}
	return nil, &net.OpError{Op: "dial", Net: network, Err: errors.New("connection refused")}
}

var errReset = &net.OpError{Op: "read", Net: "tcp", Err: errors.New("connection reset by peer")}

var _ io.ReadWriteCloser = (*fakeConn)(nil)
