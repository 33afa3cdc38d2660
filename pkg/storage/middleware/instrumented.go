package middleware

import (
	"context"
	"errors"
	"time"

	"github.com/aretw0/liftlog/pkg/domain"
	"github.com/aretw0/liftlog/pkg/ports"
	"github.com/prometheus/client_golang/prometheus"
)

// Store operations and outcomes recorded by the instrumented middleware.
const (
	OpGet    = "get"
	OpSet    = "set"
	OpRemove = "remove"

	OutcomeOK       = "ok"
	OutcomeNotFound = "not_found"
	OutcomeError    = "error"
)

// Metrics holds Prometheus metrics for KVStore calls.
type Metrics struct {
	Operations *prometheus.CounterVec
	Duration   *prometheus.HistogramVec
}

// NewMetrics creates and registers store metrics on the given registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "liftlog",
			Subsystem: "store",
			Name:      "operations_total",
			Help:      "Total number of KV store calls, by operation and outcome.",
		}, []string{"op", "outcome"}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "liftlog",
			Subsystem: "store",
			Name:      "operation_duration_seconds",
			Help:      "Latency of KV store calls.",
			Buckets:   []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}, []string{"op"}),
	}

	reg.MustRegister(m.Operations, m.Duration)
	return m
}

type instrumentedMiddleware struct {
	next    ports.KVStore
	metrics *Metrics
}

// NewInstrumentedMiddleware records the count and latency of every store call.
func NewInstrumentedMiddleware(m *Metrics) Middleware {
	return func(next ports.KVStore) ports.KVStore {
		return &instrumentedMiddleware{next: next, metrics: m}
	}
}

func (m *instrumentedMiddleware) observe(op string, start time.Time, err error) {
	outcome := OutcomeOK
	switch {
	case errors.Is(err, domain.ErrKeyNotFound):
		outcome = OutcomeNotFound
	case err != nil:
		outcome = OutcomeError
	}
	m.metrics.Operations.WithLabelValues(op, outcome).Inc()
	m.metrics.Duration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func (m *instrumentedMiddleware) Get(ctx context.Context, key string) (string, error) {
	start := time.Now()
	value, err := m.next.Get(ctx, key)
	m.observe(OpGet, start, err)
	return value, err
}

func (m *instrumentedMiddleware) Set(ctx context.Context, key, value string) error {
	start := time.Now()
	err := m.next.Set(ctx, key, value)
	m.observe(OpSet, start, err)
	return err
}

func (m *instrumentedMiddleware) Remove(ctx context.Context, key string) error {
	start := time.Now()
	err := m.next.Remove(ctx, key)
	m.observe(OpRemove, start, err)
	return err
}

func (m *instrumentedMiddleware) Keys(ctx context.Context) ([]string, error) {
	return listKeys(ctx, m.next)
}
