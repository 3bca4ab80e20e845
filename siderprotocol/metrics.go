package siderprotocol

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the client's Prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	connectAttempts *prometheus.CounterVec
	reconnects      prometheus.Counter
}

// NewMetrics creates the client collectors and registers them with reg.
// It panics if they are already registered with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sider",
			Subsystem: "client",
			Name:      "requests_total",
			Help:      "Commands executed, by verb and result",
		}, []string{"verb", "result"}),

		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "sider",
			Subsystem: "client",
			Name:      "request_duration_seconds",
			Help:      "Time from Execute to decoded reply or error",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
		}, []string{"verb"}),

		connectAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sider",
			Subsystem: "client",
			Name:      "connect_attempts_total",
			Help:      "TCP connect attempts, by result",
		}, []string{"result"}),

		reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sider",
			Subsystem: "client",
			Name:      "reconnects_total",
			Help:      "Recovery reconnects triggered by a failed send",
		}),
	}

	reg.MustRegister(
		m.requests,
		m.requestDuration,
		m.connectAttempts,
		m.reconnects,
	)
	return m
}

func (m *Metrics) observeRequest(verb string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(verb, resultLabel(err)).Inc()
	m.requestDuration.WithLabelValues(verb).Observe(time.Since(start).Seconds())
}

func (m *Metrics) observeConnect(err error) {
	if m == nil {
		return
	}
	m.connectAttempts.WithLabelValues(resultLabel(err)).Inc()
}

func (m *Metrics) observeReconnect() {
	if m == nil {
		return
	}
	m.reconnects.Inc()
}

// resultLabel maps an error to a low-cardinality label value.
func resultLabel(err error) string {
	if err == nil {
		return "ok"
	}
	switch KindOf(err) {
	case ErrInvalidArgument:
		return "invalid_argument"
	case ErrNotConnected:
		return "not_connected"
	case ErrConnectionLost:
		return "connection_lost"
	case ErrConnectionClosed:
		return "connection_closed"
	case ErrTimeout:
		return "timeout"
	default:
		return "error"
	}
}
