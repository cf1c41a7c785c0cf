package core

import (
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "reachping"

// Metrics counts session outcomes. A nil *Metrics records nothing.
type Metrics struct {
	sessions   *prometheus.CounterVec
	unexpected prometheus.Counter
	latency    prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		sessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "sessions_total",
			Help:      "Ping sessions that delivered a result, by status.",
		}, []string{"status"}),
		unexpected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "unexpected_datagrams_total",
			Help:      "Inbound datagrams that were not a reply to the session's request.",
		}),
		latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "reply_latency_seconds",
			Help:      "Time between sending the echo request and accepting its reply.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
		}),
	}

	for _, c := range []prometheus.Collector{m.sessions, m.unexpected, m.latency} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return m, nil
}

func (m *Metrics) observeResult(r *Result) {
	if m == nil {
		return
	}

	m.sessions.WithLabelValues(r.Status.String()).Inc()
	if r.Succeeded() {
		m.latency.Observe(r.Latency.Seconds())
	}
}

func (m *Metrics) observeUnexpected() {
	if m == nil {
		return
	}
	m.unexpected.Inc()
}
