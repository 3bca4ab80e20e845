package siderprotocol

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Client sends commands to a Sider store and returns its replies.
//
// It connects on demand and recovers from a failed send with exactly one
// reconnect and one resend. Every transport failure is returned as an error
// value; the client never panics or exits on I/O errors.
//
// Thread Safety:
// A Client has no internal locking and is not safe for concurrent use.
type Client struct {
	conn    *ConnManager
	logger  *zap.Logger
	metrics *Metrics
}

// NewClient creates a disconnected client for endpoint. No I/O happens until
// Connect or the first Execute.
func NewClient(endpoint Endpoint, opts ...Option) *Client {
	o := buildOptions(opts)
	return &Client{
		conn:    newConnManager(endpoint, o),
		logger:  o.logger.With(zap.Stringer("endpoint", endpoint)),
		metrics: o.metrics,
	}
}

// Endpoint returns the endpoint the client talks to.
func (c *Client) Endpoint() Endpoint {
	return c.conn.Endpoint()
}

// IsConnected reports whether the client currently holds an open connection.
func (c *Client) IsConnected() bool {
	return c.conn.IsConnected()
}

// Connect establishes the connection eagerly. Execute does this on demand, so
// calling Connect is optional; it lets a caller report reachability up front.
func (c *Client) Connect() error {
	return c.conn.Connect(context.Background())
}

// Close closes the connection. The client stays usable; the next Execute
// reconnects.
func (c *Client) Close() error {
	c.conn.Disconnect()
	return nil
}

// Execute sends cmd and returns the decoded reply.
//
// Errors, checked with errors.Is:
//   - ErrInvalidArgument: cmd failed validation; nothing was sent.
//   - ErrNotConnected: there was no connection and connecting failed;
//     nothing was sent. A connect timeout also matches ErrTimeout.
//   - ErrConnectionLost: sending failed and the single reconnect or resend
//     failed too.
//   - ErrConnectionClosed: the server closed the connection instead of
//     replying, or replied with nothing but whitespace.
//   - ErrTimeout: no reply arrived within the read timeout.
func (c *Client) Execute(cmd Command) (Response, error) {
	start := time.Now()
	resp, err := c.execute(cmd)
	c.metrics.observeRequest(cmd.Verb(), start, err)
	return resp, err
}

func (c *Client) execute(cmd Command) (Response, error) {
	if err := cmd.Validate(); err != nil {
		return Response{}, err
	}

	ctx := context.Background()
	log := c.logger.With(zap.String("verb", cmd.Verb()))

	if !c.conn.IsConnected() {
		if err := c.conn.Connect(ctx); err != nil {
			return Response{}, asNotConnected(err)
		}
	}

	payload := cmd.Encode()
	if err := c.conn.SendRaw(payload); err != nil {
		c.metrics.observeReconnect()
		log.Warn("send failed, reconnecting", zap.Int("attempt", 1), zap.Error(err))

		if err := c.conn.Connect(ctx); err != nil {
			log.Debug("reconnect failed", zap.Error(err))
			return Response{}, newConnectionError(ErrConnectionLost, "reconnect after failed send", rootCause(err))
		}
		if err := c.conn.SendRaw(payload); err != nil {
			log.Debug("resend failed", zap.Error(err))
			return Response{}, newConnectionError(ErrConnectionLost, "resend after reconnect", rootCause(err))
		}
	}

	raw, err := c.conn.RecvRaw()
	if err != nil {
		log.Debug("receive failed", zap.Error(err))
		return Response{}, err
	}

	resp := decodeResponse(raw)
	if resp.Data == "" {
		// Nothing but whitespace: treat as the server hanging up.
		c.conn.Disconnect()
		log.Debug("empty reply, disconnected")
		return Response{}, newConnectionError(ErrConnectionClosed, "receive", nil)
	}
	return resp, nil
}

// asNotConnected classifies an initial connect failure as ErrNotConnected,
// keeping a timeout kind reachable through the cause.
func asNotConnected(err error) error {
	if KindOf(err) == ErrNotConnected {
		return err
	}
	return newConnectionError(ErrNotConnected, "connect", err)
}

// ExecuteLine parses a typed command line and executes it.
func (c *Client) ExecuteLine(line string) (Response, error) {
	cmd, err := ParseCommand(line)
	if err != nil {
		return Response{}, err
	}
	return c.Execute(cmd)
}

// Put stores value under key.
func (c *Client) Put(key, value string) (Response, error) {
	return c.Execute(NewPutCommand(key, value))
}

// Get fetches the value stored under key. A missing key is reported by the
// store in the reply, not as an error.
func (c *Client) Get(key string) (Response, error) {
	return c.Execute(NewGetCommand(key))
}

// Delete removes key.
func (c *Client) Delete(key string) (Response, error) {
	return c.Execute(NewDelCommand(key))
}

// Compact asks the store to compact its storage.
func (c *Client) Compact() (Response, error) {
	return c.Execute(NewCompactCommand())
}
