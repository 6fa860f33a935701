package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"

	SideEffectAudit   = "audit"
	SideEffectPublish = "publish"

	SourceTransaction = "transaction"
	SourceUser        = "user"
)

// DisputeMetrics records dispute operation outcomes and best-effort side effect failures.
type DisputeMetrics struct {
	operations  *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	sideEffects *prometheus.CounterVec
	enrichment  *prometheus.CounterVec
}

// NewDisputeMetrics registers the dispute metrics on the provided registerer.
func NewDisputeMetrics(reg prometheus.Registerer) *DisputeMetrics {
	if reg == nil {
		return &DisputeMetrics{}
	}
	operations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dispute_operations_total",
		Help: "Dispute service operations by outcome.",
	}, []string{"operation", "outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dispute_operation_duration_seconds",
		Help:    "Duration of dispute service operations in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
	sideEffects := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dispute_side_effect_failures_total",
		Help: "Audit writes and event publishes that failed after a dispute mutation.",
	}, []string{"kind"})
	enrichment := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dispute_enrichment_failures_total",
		Help: "Upstream lookups that failed while enriching a dispute.",
	}, []string{"source"})
	reg.MustRegister(operations, duration, sideEffects, enrichment)
	return &DisputeMetrics{
		operations:  operations,
		duration:    duration,
		sideEffects: sideEffects,
		enrichment:  enrichment,
	}
}

// ObserveOperation records the outcome and duration of a dispute operation.
func (m *DisputeMetrics) ObserveOperation(operation string, err error, elapsed time.Duration) {
	if m == nil || m.operations == nil {
		return
	}
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeFailure
	}
	op := normalizeLabel(operation)
	m.operations.WithLabelValues(op, outcome).Inc()
	m.duration.WithLabelValues(op).Observe(elapsed.Seconds())
}

// IncSideEffectFailure counts a failed audit write or event publish.
func (m *DisputeMetrics) IncSideEffectFailure(kind string) {
	if m == nil || m.sideEffects == nil {
		return
	}
	m.sideEffects.WithLabelValues(normalizeLabel(kind)).Inc()
}

// IncEnrichmentFailure counts a failed upstream lookup.
func (m *DisputeMetrics) IncEnrichmentFailure(source string) {
	if m == nil || m.enrichment == nil {
		return
	}
	m.enrichment.WithLabelValues(normalizeLabel(source)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
