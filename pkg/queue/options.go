package queue

import (
	"log/slog"
	"time"
)

// Option configures a Queue.
type Option func(*Queue)

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(q *Queue) {
		q.logger = logger
	}
}

// WithName labels the queue in logs and metrics.
func WithName(name string) Option {
	return func(q *Queue) {
		q.name = name
	}
}

// WithOperationTimeout bounds how long the chain waits for a single operation.
// When the deadline passes the operation's context is cancelled, its Future
// settles with domain.ErrOperationTimeout and the next operation may start.
// Zero (the default) waits forever.
//
// An abandoned operation is not stopped. If it ignores ctx it keeps running
// alongside its successors, so the queue no longer guarantees that operations
// never overlap or that their effects land in submission order. With a
// storage that ignores ctx an older snapshot can overwrite a newer one. Only
// enable a timeout when every operation honors cancellation.
func WithOperationTimeout(d time.Duration) Option {
	return func(q *Queue) {
		q.timeout = d
	}
}

// WithMetrics enables Prometheus instrumentation.
func WithMetrics(m *Metrics) Option {
	return func(q *Queue) {
		q.metrics = m
	}
}
