package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OutboxMetrics tracks the relay from outbox_events to Pub/Sub.
type OutboxMetrics struct {
	published *prometheus.CounterVec
	failed    *prometheus.CounterVec
	dead      *prometheus.CounterVec
	batch     prometheus.Histogram
	backlog   prometheus.Gauge
}

// NewOutboxMetrics registers the outbox collectors.
func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	if reg == nil {
		return &OutboxMetrics{}
	}
	published := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "outbox_published_total",
		Help:      "Outbox events published by event type.",
	}, []string{"event_type"})
	failed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "outbox_publish_failures_total",
		Help:      "Retryable publish failures by event type.",
	}, []string{"event_type"})
	dead := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "outbox_dead_lettered_total",
		Help:      "Events moved to the DLQ by reason.",
	}, []string{"reason"})
	batch := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "outbox_batch_duration_seconds",
		Help:      "Time spent processing one outbox batch.",
		Buckets:   prometheus.DefBuckets,
	})
	backlog := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "outbox_backlog",
		Help:      "Outbox rows not yet published, sampled after each batch.",
	})
	reg.MustRegister(published, failed, dead, batch, backlog)
	return &OutboxMetrics{published: published, failed: failed, dead: dead, batch: batch, backlog: backlog}
}

func (m *OutboxMetrics) IncPublished(eventType string) {
	if m == nil || m.published == nil {
		return
	}
	m.published.WithLabelValues(normalizeLabel(eventType)).Inc()
}

func (m *OutboxMetrics) IncFailed(eventType string) {
	if m == nil || m.failed == nil {
		return
	}
	m.failed.WithLabelValues(normalizeLabel(eventType)).Inc()
}

func (m *OutboxMetrics) IncDeadLettered(reason string) {
	if m == nil || m.dead == nil {
		return
	}
	m.dead.WithLabelValues(normalizeLabel(reason)).Inc()
}

func (m *OutboxMetrics) ObserveBatch(elapsed time.Duration) {
	if m == nil || m.batch == nil {
		return
	}
	m.batch.Observe(elapsed.Seconds())
}

func (m *OutboxMetrics) SetBacklog(n int64) {
	if m == nil || m.backlog == nil {
		return
	}
	m.backlog.Set(float64(n))
}
