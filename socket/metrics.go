package socket

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"
)

// Connect outcomes used as the "outcome" label.
const (
	outcomeOK      = "ok"
	outcomeRefused = "refused"
	outcomeTimeout = "timeout"
	outcomeError   = "error"
)

// Metrics holds the collectors the socket layer updates. A nil *Metrics
// records nothing.
type Metrics struct {
	BytesSent       prometheus.Counter
	BytesReceived   prometheus.Counter
	Connects        *prometheus.CounterVec
	ConnectDuration prometheus.Histogram
	Accepts         prometheus.Counter
	OpenHandles     prometheus.Gauge
}

// NewMetrics creates unregistered collectors under the netcore_socket prefix.
func NewMetrics() *Metrics {
	return &Metrics{
		BytesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "netcore",
			Subsystem: "socket",
			Name:      "bytes_sent_total",
			Help:      "Total bytes written to stream sockets",
		}),
		BytesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "netcore",
			Subsystem: "socket",
			Name:      "bytes_received_total",
			Help:      "Total bytes read from stream sockets",
		}),
		Connects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "netcore",
			Subsystem: "socket",
			Name:      "connects_total",
			Help:      "Connection attempts by outcome",
		}, []string{"outcome"}),
		ConnectDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "netcore",
			Subsystem: "socket",
			Name:      "connect_duration_seconds",
			Help:      "Time spent establishing outbound connections",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 15), // 0.1ms to ~1.6s
		}),
		Accepts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "netcore",
			Subsystem: "socket",
			Name:      "accepts_total",
			Help:      "Connections accepted by server sockets",
		}),
		OpenHandles: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "netcore",
			Subsystem: "socket",
			Name:      "open_handles",
			Help:      "OS sockets currently held open",
		}),
	}
}

// Register adds every collector to r.
func (m *Metrics) Register(r prometheus.Registerer) error {
	return multierr.Combine(
		r.Register(m.BytesSent),
		r.Register(m.BytesReceived),
		r.Register(m.Connects),
		r.Register(m.ConnectDuration),
		r.Register(m.Accepts),
		r.Register(m.OpenHandles),
	)
}

var metrics atomic.Pointer[Metrics]

// SetMetrics installs m for all sockets. Pass nil to stop recording.
func SetMetrics(m *Metrics) {
	metrics.Store(m)
}

func currentMetrics() *Metrics {
	return metrics.Load()
}

func (m *Metrics) sent(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.BytesSent.Add(float64(n))
}

func (m *Metrics) received(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.BytesReceived.Add(float64(n))
}

func (m *Metrics) connected(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.Connects.WithLabelValues(outcome).Inc()
	m.ConnectDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) accepted() {
	if m == nil {
		return
	}
	m.Accepts.Inc()
}

func (m *Metrics) opened() {
	if m == nil {
		return
	}
	m.OpenHandles.Inc()
}

func (m *Metrics) closed() {
	if m == nil {
		return
	}
	m.OpenHandles.Dec()
}
