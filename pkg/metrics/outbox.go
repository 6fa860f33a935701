package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OutboxRelayMetrics records outbox relay batches.
type OutboxRelayMetrics struct {
	duration  prometheus.Histogram
	published prometheus.Counter
	failed    *prometheus.CounterVec
}

// NewOutboxRelayMetrics registers the relay metrics on the provided registerer.
func NewOutboxRelayMetrics(reg prometheus.Registerer) *OutboxRelayMetrics {
	if reg == nil {
		return &OutboxRelayMetrics{}
	}
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "outbox_batch_duration_seconds",
		Help:    "Duration of outbox relay batches in seconds.",
		Buckets: prometheus.DefBuckets,
	})
	published := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "outbox_events_published_total",
		Help: "Outbox events relayed to the broker.",
	})
	failed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_events_failed_total",
		Help: "Outbox events that failed to relay, by whether they were marked terminal.",
	}, []string{"terminal"})
	reg.MustRegister(duration, published, failed)
	return &OutboxRelayMetrics{duration: duration, published: published, failed: failed}
}

// ObserveBatch records a processed batch.
func (m *OutboxRelayMetrics) ObserveBatch(elapsed time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.Observe(elapsed.Seconds())
}

// IncPublished counts a relayed event.
func (m *OutboxRelayMetrics) IncPublished() {
	if m == nil || m.published == nil {
		return
	}
	m.published.Inc()
}

// IncFailed counts a failed relay attempt.
func (m *OutboxRelayMetrics) IncFailed(terminal bool) {
	if m == nil || m.failed == nil {
		return
	}
	label := "false"
	if terminal {
		label = "true"
	}
	m.failed.WithLabelValues(label).Inc()
}
