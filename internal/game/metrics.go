package game

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the reactor's Prometheus collectors. A nil *Metrics records
// nothing.
type Metrics struct {
	Accepted     prometheus.Counter
	Closed       *prometheus.CounterVec
	Live         prometheus.Gauge
	BytesIn      prometheus.Counter
	BytesOut     prometheus.Counter
	Lines        prometheus.Counter
	PassDuration prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with reg when it is
// not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Accepted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "kiln",
			Subsystem: "connections",
			Name:      "accepted_total",
			Help:      "Total number of accepted connections",
		}),
		Closed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kiln",
			Subsystem: "connections",
			Name:      "closed_total",
			Help:      "Total number of closed connections by reason",
		}, []string{"reason"}),
		Live: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "kiln",
			Subsystem: "connections",
			Name:      "registered",
			Help:      "Connections currently held in the registry",
		}),
		BytesIn: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "kiln",
			Subsystem: "io",
			Name:      "received_bytes_total",
			Help:      "Raw bytes read from clients",
		}),
		BytesOut: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "kiln",
			Subsystem: "io",
			Name:      "sent_bytes_total",
			Help:      "Raw bytes written to clients",
		}),
		Lines: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "kiln",
			Subsystem: "io",
			Name:      "lines_total",
			Help:      "Completed input lines dispatched",
		}),
		PassDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "kiln",
			Subsystem: "reactor",
			Name:      "pass_duration_seconds",
			Help:      "Time spent handling one readiness wakeup, excluding the wait",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Accepted, m.Closed, m.Live, m.BytesIn, m.BytesOut, m.Lines, m.PassDuration)
	}
	return m
}

func (m *Metrics) connectionAccepted() {
	if m == nil {
		return
	}
	m.Accepted.Inc()
}

func (m *Metrics) connectionClosed(reason CloseReason) {
	if m == nil {
		return
	}
	m.Closed.WithLabelValues(string(reason)).Inc()
}

func (m *Metrics) registered(n int) {
	if m == nil {
		return
	}
	m.Live.Set(float64(n))
}

func (m *Metrics) bytesIn(n int) {
	if m == nil {
		return
	}
	m.BytesIn.Add(float64(n))
}

func (m *Metrics) bytesOut(n int) {
	if m == nil {
		return
	}
	m.BytesOut.Add(float64(n))
}

func (m *Metrics) lineReceived() {
	if m == nil {
		return
	}
	m.Lines.Inc()
}

func (m *Metrics) passFinished(d time.Duration) {
	if m == nil {
		return
	}
	m.PassDuration.Observe(d.Seconds())
}
