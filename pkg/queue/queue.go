package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aretw0/liftlog/internal/logging"
	"github.com/aretw0/liftlog/pkg/domain"
)

// Operation is a deferred unit of work owned by the queue until it settles.
type Operation[T any] func(ctx context.Context) (T, error)

// Queue runs submitted operations one at a time, in submission order.
// Safe for concurrent use.
type Queue struct {
	name    string
	timeout time.Duration
	logger  *slog.Logger
	metrics *Metrics

	mu   sync.Mutex    // guards tail
	tail chan struct{} // closed when the most recent operation settles

	pending atomic.Int64
}

// New creates an empty queue.
func New(opts ...Option) *Queue {
	q := &Queue{
		name:   "default",
		logger: logging.NewNop(),
		tail:   settledTail(),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// settledTail returns the already-settled placeholder that starts every chain.
func settledTail() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

// Name returns the label used in logs and metrics.
func (q *Queue) Name() string {
	return q.name
}

// Submit schedules op to run after every previously submitted operation has
// settled, and returns immediately.
// The returned Future reflects op's own outcome only: a failure of an earlier
// operation is never visible here and never prevents op from running.
func Submit[T any](q *Queue, op Operation[T]) *Future[T] {
	f := newFuture[T]()
	settled := make(chan struct{})

	q.mu.Lock()
	prev := q.tail
	q.tail = settled
	q.mu.Unlock()

	q.pending.Add(1)
	q.metrics.submitted(q.name)

	go func() {
		<-prev

		start := time.Now()
		val, err := execute(q, op)
		outcome := classify(err)
		q.report(outcome, err, time.Since(start))

		q.pending.Add(-1)
		f.resolve(val, err)
		// The chain advances regardless of the outcome.
		close(settled)
	}()

	return f
}

// Enqueue is Submit for operations without a result value.
func (q *Queue) Enqueue(op func(ctx context.Context) error) *Future[struct{}] {
	return Submit(q, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
}

// Flush blocks until every operation submitted before the call has settled,
// successfully or not. On an idle queue it returns immediately.
// If ctx is done first the wait is abandoned and ctx's error is returned; the
// operations keep running.
func (q *Queue) Flush(ctx context.Context) error {
	q.mu.Lock()
	tail := q.tail
	q.mu.Unlock()

	select {
	case <-tail:
		return nil
	default:
	}

	start := time.Now()
	select {
	case <-tail:
		q.metrics.flushed(q.name, time.Since(start))
		return nil
	case <-ctx.Done():
		return fmt.Errorf("flush of queue %q abandoned with %d pending: %w", q.name, q.Pending(), ctx.Err())
	}
}

// Reset discards the chain and starts a fresh, empty one.
// Operations already in flight keep running but are no longer ordered
// against new submissions. Meant for test isolation only.
func (q *Queue) Reset() {
	q.mu.Lock()
	q.tail = settledTail()
	q.mu.Unlock()
}

// Pending returns how many submitted operations have not settled yet.
func (q *Queue) Pending() int {
	return int(q.pending.Load())
}

func execute[T any](q *Queue, op Operation[T]) (T, error) {
	if q.timeout <= 0 {
		return invoke(context.Background(), op)
	}

	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	defer cancel()

	type result struct {
		val T
		err error
	}
	ch := make(chan result, 1)
	go func() {
		val, err := invoke(ctx, op)
		ch <- result{val: val, err: err}
	}()

	select {
	case r := <-ch:
		return r.val, r.err
	case <-ctx.Done():
		// Prefer a result that raced the deadline.
		select {
		case r := <-ch:
			return r.val, r.err
		default:
		}
		go func() {
			r := <-ch
			q.logger.Warn("Abandoned operation finished after its timeout; it may have overlapped later operations",
				"queue", q.name,
				"timeout", q.timeout,
				"err", r.err,
			)
		}()
		var zero T
		return zero, fmt.Errorf("%w after %s", domain.ErrOperationTimeout, q.timeout)
	}
}

func invoke[T any](ctx context.Context, op Operation[T]) (val T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return op(ctx)
}

func classify(err error) string {
	var panicErr *PanicError
	switch {
	case err == nil:
		return OutcomeOK
	case errors.As(err, &panicErr):
		return OutcomePanic
	case errors.Is(err, domain.ErrOperationTimeout):
		return OutcomeTimeout
	default:
		return OutcomeError
	}
}

func (q *Queue) report(outcome string, err error, elapsed time.Duration) {
	q.metrics.settled(q.name, outcome, elapsed)

	switch outcome {
	case OutcomePanic:
		var panicErr *PanicError
		errors.As(err, &panicErr)
		q.logger.Error("Queued operation panicked; chain continues",
			"queue", q.name,
			"panic", panicErr.Value,
			"stack", string(panicErr.Stack),
		)
	case OutcomeTimeout:
		q.logger.Warn("Queued operation abandoned after timeout; chain continues",
			"queue", q.name,
			"timeout", q.timeout,
		)
	case OutcomeError:
		// Reported to the submitter through its Future.
		q.logger.Debug("Queued operation failed",
			"queue", q.name,
			"duration", elapsed,
			"err", err,
		)
	}
}
