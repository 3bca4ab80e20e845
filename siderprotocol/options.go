package siderprotocol

import (
	"context"
	"net"
	"time"

	"go.uber.org/zap"
)

// Framing selects how a reply is delimited on receive.
type Framing int

const (
	// FramingSingleRead performs one read of up to the response size limit.
	// This is the protocol's native behavior.
	FramingSingleRead Framing = iota

	// FramingLine reads until the first newline or the size limit.
	FramingLine
)

// String returns the configuration name of the framing mode.
func (f Framing) String() string {
	switch f {
	case FramingSingleRead:
		return "single-read"
	case FramingLine:
		return "line"
	default:
		return "unknown"
	}
}

// Dialer opens transport connections. *net.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

type options struct {
	connectTimeout  time.Duration
	readTimeout     time.Duration
	maxResponseSize int
	framing         Framing
	dialer          Dialer
	logger          *zap.Logger
	metrics         *Metrics
}

func defaultOptions() options {
	return options{
		connectTimeout:  ConnectTimeout,
		readTimeout:     ReadTimeout,
		maxResponseSize: MaxResponseSize,
		framing:         FramingSingleRead,
		dialer:          &net.Dialer{},
		logger:          zap.NewNop(),
	}
}

func buildOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Option configures a Client or ConnManager.
type Option func(*options)

// WithConnectTimeout sets the bound on establishing a connection.
// Non-positive values are ignored.
func WithConnectTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.connectTimeout = d
		}
	}
}

// WithReadTimeout sets the bound on waiting for a reply.
// Non-positive values are ignored.
func WithReadTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.readTimeout = d
		}
	}
}

// WithMaxResponseSize sets the receive buffer size. Non-positive values are
// ignored.
func WithMaxResponseSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxResponseSize = n
		}
	}
}

// WithFraming selects the receive framing mode.
func WithFraming(f Framing) Option {
	return func(o *options) {
		o.framing = f
	}
}

// WithLineFraming is shorthand for WithFraming(FramingLine).
func WithLineFraming() Option {
	return WithFraming(FramingLine)
}

// WithDialer replaces the TCP dialer. Tests use it to inject failures.
func WithDialer(d Dialer) Option {
	return func(o *options) {
		if d != nil {
			o.dialer = d
		}
	}
}

// WithLogger sets the logger for connection lifecycle events.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetrics records request and connection metrics.
func WithMetrics(m *Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}
