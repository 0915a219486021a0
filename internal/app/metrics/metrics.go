/*
Package metrics defines the Prometheus collectors exposed by the presence server.

Collectors are registered on an injected prometheus.Registerer rather than the default registry,
so every server instance (and every test) owns its own set.
*/
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Message types used as the "type" label of messages_total.
const (
	MessageTypeText = "text"
)

// DefaultDurationBuckets are the histogram buckets, in seconds, for HTTP request durations.
var DefaultDurationBuckets = []float64{0.1, 0.3, 0.5, 0.7, 1, 3, 5, 7, 10}

// Metrics holds every collector owned by the server.
type Metrics struct {
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPRequestsTotal   *prometheus.CounterVec
	ActiveConnections   prometheus.Gauge
	MessagesTotal       *prometheus.CounterVec
	UsersOnline         prometheus.Gauge
}

// Options tunes which collectors New registers.
type Options struct {
	// RuntimeCollectors adds the Go runtime and process collectors.
	RuntimeCollectors bool
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer, opts Options) *Metrics {
	m := &Metrics{
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: DefaultDurationBuckets,
		}, []string{"method", "route", "status_code"}),
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "route", "status_code"}),
		ActiveConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "websocket_connections_active",
			Help: "Number of active WebSocket connections",
		}),
		MessagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "messages_total",
			Help: "Total number of messages sent",
		}, []string{"type"}),
		UsersOnline: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "users_online",
			Help: "Number of users currently online",
		}),
	}

	reg.MustRegister(
		m.HTTPRequestDuration,
		m.HTTPRequestsTotal,
		m.ActiveConnections,
		m.MessagesTotal,
		m.UsersOnline,
	)

	if opts.RuntimeCollectors {
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	return m
}

// ConnectionOpened counts one more live transport connection.
func (m *Metrics) ConnectionOpened() {
	m.ActiveConnections.Inc()
}

// ConnectionClosed counts one less live transport connection.
func (m *Metrics) ConnectionClosed() {
	m.ActiveConnections.Dec()
}

// SetUsersOnline records the current registry cardinality.
func (m *Metrics) SetUsersOnline(n int) {
	m.UsersOnline.Set(float64(n))
}

// MessageSent counts one delivered message of the given type.
func (m *Metrics) MessageSent(msgType string) {
	m.MessagesTotal.WithLabelValues(msgType).Inc()
}
