package queue

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "liftlog"

// Outcome labels recorded for settled operations.
const (
	OutcomeOK      = "ok"
	OutcomeError   = "error"
	OutcomeTimeout = "timeout"
	OutcomePanic   = "panic"
)

// Metrics holds Prometheus metrics for operation queues.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	Submitted     *prometheus.CounterVec
	Settled       *prometheus.CounterVec
	Pending       *prometheus.GaugeVec
	Duration      *prometheus.HistogramVec
	FlushDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers queue metrics on the given registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Submitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "operations_submitted_total",
			Help:      "Total number of operations submitted to the queue.",
		}, []string{"queue"}),
		Settled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "operations_settled_total",
			Help:      "Total number of settled operations, by outcome.",
		}, []string{"queue", "outcome"}),
		Pending: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "operations_pending",
			Help:      "Number of submitted operations that have not settled yet.",
		}, []string{"queue"}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "operation_duration_seconds",
			Help:      "Execution time of queued operations, excluding time spent waiting in line.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"queue", "outcome"}),
		FlushDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "flush_duration_seconds",
			Help:      "Time spent waiting for the queue to drain on Flush.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"queue"}),
	}

	reg.MustRegister(m.Submitted, m.Settled, m.Pending, m.Duration, m.FlushDuration)
	return m
}

func (m *Metrics) submitted(queue string) {
	if m == nil {
		return
	}
	m.Submitted.WithLabelValues(queue).Inc()
	m.Pending.WithLabelValues(queue).Inc()
}

func (m *Metrics) settled(queue, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.Settled.WithLabelValues(queue, outcome).Inc()
	m.Pending.WithLabelValues(queue).Dec()
	m.Duration.WithLabelValues(queue, outcome).Observe(elapsed.Seconds())
}

func (m *Metrics) flushed(queue string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.FlushDuration.WithLabelValues(queue).Observe(elapsed.Seconds())
}
