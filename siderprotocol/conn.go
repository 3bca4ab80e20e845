package siderprotocol

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"os"
	"time"

	"go.uber.org/zap"
)

// ConnState is the state of a ConnManager.
type ConnState int

const (
	// StateDisconnected means no stream is open. It is the initial state.
	StateDisconnected ConnState = iota
	// StateConnected means a stream is open and usable.
	StateConnected
)

// String returns the state name.
func (s ConnState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnected:
		return "connected"
	default:
		return "unknown"
	}
}

var errUnexpectedData = errors.New("unsolicited data on idle connection")

// ConnManager owns the single TCP connection to one Endpoint.
//
// Every transport failure moves it to StateDisconnected and closes the
// stream; it never retries on its own. It has no locking and must not be
// used from more than one goroutine at a time.
type ConnManager struct {
	endpoint Endpoint
	opts     options
	logger   *zap.Logger

	conn  net.Conn
	state ConnState
}

// NewConnManager creates a disconnected manager for endpoint.
func NewConnManager(endpoint Endpoint, opts ...Option) *ConnManager {
	return newConnManager(endpoint, buildOptions(opts))
}

func newConnManager(endpoint Endpoint, o options) *ConnManager {
	return &ConnManager{
		endpoint: endpoint,
		opts:     o,
		logger:   o.logger.With(zap.Stringer("endpoint", endpoint)),
	}
}

// Endpoint returns the endpoint this manager dials.
func (m *ConnManager) Endpoint() Endpoint {
	return m.endpoint
}

// State returns the current state. It performs no I/O.
func (m *ConnManager) State() ConnState {
	return m.state
}

// IsConnected reports whether a stream is open. It performs no I/O.
func (m *ConnManager) IsConnected() bool {
	return m.state == StateConnected
}

// Connect opens a new stream, bounded by the connect timeout and ctx.
// An already open stream is closed first. On failure the manager is
// disconnected and the error's kind is ErrTimeout or ErrNotConnected.
func (m *ConnManager) Connect(ctx context.Context) error {
	if m.state == StateConnected {
		m.Disconnect()
	}

	dialCtx, cancel := context.WithTimeout(ctx, m.opts.connectTimeout)
	defer cancel()

	m.logger.Debug("connecting", zap.Duration("timeout", m.opts.connectTimeout))
	conn, err := m.opts.dialer.DialContext(dialCtx, "tcp", m.endpoint.String())
	if err != nil {
		kind := ErrNotConnected
		if isTimeout(err) {
			kind = ErrTimeout
		}
		connErr := newConnectionError(kind, "connect to "+m.endpoint.String(), err)
		m.opts.metrics.observeConnect(connErr)
		m.logger.Debug("connect failed", zap.Error(err))
		return connErr
	}

	m.conn = conn
	m.state = StateConnected
	m.opts.metrics.observeConnect(nil)
	m.logger.Debug("connected")
	return nil
}

// Disconnect closes the stream if one is open. It is safe to call at any time.
func (m *ConnManager) Disconnect() {
	if m.conn != nil {
		m.conn.Close()
		m.conn = nil
	}
	if m.state == StateConnected {
		m.logger.Debug("disconnected")
	}
	m.state = StateDisconnected
}

// drop records a transport failure and disconnects.
func (m *ConnManager) drop(reason string, err error) {
	m.logger.Debug(reason, zap.Error(err))
	m.Disconnect()
}

// SendRaw writes p to the open stream. It fails with ErrNotConnected when
// disconnected. A write error, or a stream found stale before writing,
// disconnects the manager and fails with ErrConnectionLost.
func (m *ConnManager) SendRaw(p []byte) error {
	if m.state != StateConnected {
		return newConnectionError(ErrNotConnected, "send", nil)
	}

	// The server may have gone away since Connect or the last reply.
	if err := m.probe(); err != nil {
		m.drop("stale connection", err)
		return newConnectionError(ErrConnectionLost, "send on stale connection", err)
	}

	if err := m.conn.SetWriteDeadline(time.Now().Add(m.opts.readTimeout)); err != nil {
		m.drop("set write deadline failed", err)
		return newConnectionError(ErrConnectionLost, "send", err)
	}
	if _, err := m.conn.Write(p); err != nil {
		m.drop("write failed", err)
		return newConnectionError(ErrConnectionLost, "send", err)
	}
	return nil
}

// probe checks an idle stream for a pending EOF, reset, or stray bytes.
// A read that times out within the probe window means the stream is healthy.
func (m *ConnManager) probe() error {
	if err := m.conn.SetReadDeadline(time.Now().Add(staleProbeWindow)); err != nil {
		return err
	}
	var b [1]byte
	n, err := m.conn.Read(b[:])
	switch {
	case n > 0:
		return errUnexpectedData
	case err == nil, isTimeout(err):
		return nil
	default:
		return err
	}
}

// RecvRaw reads one reply, bounded by the read timeout. A peer close (zero
// bytes) fails with ErrConnectionClosed, an expired deadline with
// ErrTimeout, anything else with ErrConnectionLost. All three disconnect.
func (m *ConnManager) RecvRaw() ([]byte, error) {
	if m.state != StateConnected {
		return nil, newConnectionError(ErrNotConnected, "receive", nil)
	}

	if err := m.conn.SetReadDeadline(time.Now().Add(m.opts.readTimeout)); err != nil {
		m.drop("set read deadline failed", err)
		return nil, newConnectionError(ErrConnectionLost, "receive", err)
	}

	var (
		data []byte
		err  error
	)
	if m.opts.framing == FramingLine {
		data, err = m.readLine()
	} else {
		data, err = m.readOnce()
	}
	if err != nil {
		kind := ErrConnectionLost
		switch {
		case errors.Is(err, io.EOF):
			kind = ErrConnectionClosed
		case isTimeout(err):
			kind = ErrTimeout
		}
		m.drop("receive failed", err)
		return nil, newConnectionError(kind, "receive", err)
	}

	return data, nil
}

// readOnce performs the protocol's single bounded read.
func (m *ConnManager) readOnce() ([]byte, error) {
	buf := make([]byte, m.opts.maxResponseSize)
	n, err := m.conn.Read(buf)
	if n > 0 {
		return buf[:n], nil
	}
	if err == nil {
		err = io.EOF
	}
	return nil, err
}

// readLine reads until the first newline or the size limit. Bytes after the
// newline are discarded so nothing carries over to the next request.
func (m *ConnManager) readLine() ([]byte, error) {
	limit := m.opts.maxResponseSize
	buf := make([]byte, 0, limit)
	chunk := make([]byte, limit)

	for len(buf) < limit {
		n, err := m.conn.Read(chunk[:limit-len(buf)])
		buf = append(buf, chunk[:n]...)

		if i := bytes.IndexByte(buf, '\n'); i >= 0 {
			if extra := len(buf) - i - 1; extra > 0 {
				m.logger.Debug("discarding bytes after reply line", zap.Int("bytes", extra))
			}
			return buf[:i+1], nil
		}

		switch {
		case err != nil && errors.Is(err, io.EOF) && len(buf) > 0:
			return buf, nil
		case err != nil:
			return nil, err
		case n == 0:
			return nil, io.EOF
		}
	}

	m.logger.Debug("reply reached size limit without newline", zap.Int("limit", limit))
	return buf, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
