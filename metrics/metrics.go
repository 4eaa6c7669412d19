// Package metrics exposes connection and heartbeat counters in Prometheus format.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/viperML/bms-lock/bluetooth"
)

const namespace = "bms_lock"

type Metrics struct {
	registry *prometheus.Registry

	ConnectionAttempts *prometheus.CounterVec
	ConnectionFailures *prometheus.CounterVec
	ConnectionState    *prometheus.GaugeVec
	Heartbeats         prometheus.Counter
}

// New creates a registry with the Go and process collectors and the link metrics.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ConnectionAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connection_attempts_total",
			Help:      "Total number of connection attempts",
		}, []string{"transport"}),
		ConnectionFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connection_failures_total",
			Help:      "Total number of failed connection attempts and lost connections",
		}, []string{"transport"}),
		ConnectionState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connection_state",
			Help:      "Connection state (0=disconnected, 1=connecting, 2=connected)",
		}, []string{"transport"}),
		Heartbeats: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "heartbeats_total",
			Help:      "Total number of serial heartbeats written",
		}),
	}

	m.registry.MustRegister(collectors.NewGoCollector())
	m.registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m.registry.MustRegister(m.ConnectionAttempts, m.ConnectionFailures, m.ConnectionState, m.Heartbeats)
	return m
}

// Handler serves the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// Observer converts monitor statuses into metric updates. Attempts are added as deltas of
// Status.Attempts so the counter matches the monitor's count.
type Observer struct {
	m *Metrics

	mu         sync.Mutex
	attempts   uint64
	lastState  bluetooth.State
	lastFailed bool
}

func (m *Metrics) Observer() *Observer {
	return &Observer{m: m}
}

func (o *Observer) Observe(s bluetooth.Status) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if s.Attempts > o.attempts {
		o.m.ConnectionAttempts.WithLabelValues(s.Transport).Add(float64(s.Attempts - o.attempts))
		o.attempts = s.Attempts
	}

	// countdown refreshes repeat an already counted failure
	failed := s.Failed()
	if failed && (o.lastState != bluetooth.StateDisconnected || !o.lastFailed) {
		o.m.ConnectionFailures.WithLabelValues(s.Transport).Inc()
	}

	o.lastState = s.State
	o.lastFailed = failed
	o.m.ConnectionState.WithLabelValues(s.Transport).Set(float64(s.State))
}
