package queue_test

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aretw0/liftlog/pkg/domain"
	"github.com/aretw0/liftlog/pkg/queue"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomDelay(max time.Duration) time.Duration {
	return time.Duration(rand.Int64N(int64(max) + 1))
}

func TestQueue_PreservesSubmissionOrder(t *testing.T) {
	q := queue.New()
	ctx := context.Background()

	const n = 50
	var (
		mu    sync.Mutex
		order []int
	)

	futures := make([]*queue.Future[int], n)
	for i := 0; i < n; i++ {
		i := i
		futures[i] = queue.Submit(q, func(ctx context.Context) (int, error) {
			time.Sleep(randomDelay(2 * time.Millisecond))
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			return i, nil
		})
	}

	for i, f := range futures {
		v, err := f.Wait(ctx)
		require.NoError(t, err)
		assert.Equal(t, i, v)
	}

	expected := make([]int, n)
	for i := range expected {
		expected[i] = i
	}
	assert.Equal(t, expected, order)
}

func TestQueue_NeverRunsConcurrently(t *testing.T) {
	q := queue.New()

	var running, maxRunning atomic.Int32
	for i := 0; i < 20; i++ {
		q.Enqueue(func(ctx context.Context) error {
			cur := running.Add(1)
			for {
				prev := maxRunning.Load()
				if cur <= prev || maxRunning.CompareAndSwap(prev, cur) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			running.Add(-1)
			return nil
		})
	}

	require.NoError(t, q.Flush(context.Background()))
	assert.Equal(t, int32(1), maxRunning.Load())
}

func TestQueue_FailureIsolation(t *testing.T) {
	q := queue.New()
	ctx := context.Background()
	boom := errors.New("disk full")

	var ran []int
	var mu sync.Mutex
	record := func(i int) {
		mu.Lock()
		ran = append(ran, i)
		mu.Unlock()
	}

	f1 := q.Enqueue(func(ctx context.Context) error { record(1); return nil })
	f2 := q.Enqueue(func(ctx context.Context) error { record(2); return boom })
	f3 := q.Enqueue(func(ctx context.Context) error { record(3); return nil })
	f4 := queue.Submit(q, func(ctx context.Context) (string, error) { record(4); return "ok", nil })

	_, err := f1.Wait(ctx)
	assert.NoError(t, err)

	_, err = f2.Wait(ctx)
	assert.ErrorIs(t, err, boom, "the failing operation's caller observes its failure")

	_, err = f3.Wait(ctx)
	assert.NoError(t, err, "an earlier failure must not leak into later callers")

	v, err := f4.Wait(ctx)
	assert.NoError(t, err)
	assert.Equal(t, "ok", v)

	assert.Equal(t, []int{1, 2, 3, 4}, ran)
}

func TestQueue_PanicIsContained(t *testing.T) {
	q := queue.New()
	ctx := context.Background()

	f1 := q.Enqueue(func(ctx context.Context) error { panic("corrupt snapshot") })
	f2 := queue.Submit(q, func(ctx context.Context) (int, error) { return 7, nil })

	_, err := f1.Wait(ctx)
	var panicErr *queue.PanicError
	require.ErrorAs(t, err, &panicErr)
	assert.Equal(t, "corrupt snapshot", panicErr.Value)

	v, err := f2.Wait(ctx)
	assert.NoError(t, err)
	assert.Equal(t, 7, v)
}

func TestQueue_SubmitDoesNotBlock(t *testing.T) {
	q := queue.New()
	release := make(chan struct{})

	q.Enqueue(func(ctx context.Context) error {
		<-release
		return nil
	})

	start := time.Now()
	f := q.Enqueue(func(ctx context.Context) error { return nil })
	assert.Less(t, time.Since(start), 10*time.Millisecond)

	_, _, settled := f.TryResult()
	assert.False(t, settled, "second operation must wait for the first")
	assert.Equal(t, 2, q.Pending())

	close(release)
	require.NoError(t, q.Flush(context.Background()))
	assert.Equal(t, 0, q.Pending())
}

func TestQueue_FlushWaitsForSlowOperations(t *testing.T) {
	q := queue.New()
	var done atomic.Int32

	for i := 0; i < 3; i++ {
		q.Enqueue(func(ctx context.Context) error {
			time.Sleep(20 * time.Millisecond)
			done.Add(1)
			return nil
		})
	}
	q.Enqueue(func(ctx context.Context) error {
		done.Add(1)
		return errors.New("failed but settled")
	})

	require.NoError(t, q.Flush(context.Background()))
	assert.Equal(t, int32(4), done.Load())
}

func TestQueue_FlushEmptyIsImmediate(t *testing.T) {
	q := queue.New()

	start := time.Now()
	require.NoError(t, q.Flush(context.Background()))
	assert.Less(t, time.Since(start), 10*time.Millisecond)
}

func TestQueue_FlushHonorsContext(t *testing.T) {
	q := queue.New()
	release := make(chan struct{})
	defer close(release)

	q.Enqueue(func(ctx context.Context) error {
		<-release
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := q.Flush(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestQueue_FlushOnlyCoversEarlierOperations(t *testing.T) {
	q := queue.New()
	first := make(chan struct{})
	second := make(chan struct{})

	q.Enqueue(func(ctx context.Context) error { <-first; return nil })

	flushed := make(chan error, 1)
	go func() { flushed <- q.Flush(context.Background()) }()

	// Give Flush time to capture the tail before the next submission.
	time.Sleep(5 * time.Millisecond)
	q.Enqueue(func(ctx context.Context) error { <-second; return nil })

	close(first)
	select {
	case err := <-flushed:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Flush waited for an operation submitted after it")
	}
	close(second)
}

func TestQueue_OperationTimeoutAdvancesChain(t *testing.T) {
	q := queue.New(queue.WithOperationTimeout(20 * time.Millisecond))
	ctx := context.Background()

	hung := q.Enqueue(func(ctx context.Context) error {
		select {} // never returns
	})
	next := queue.Submit(q, func(ctx context.Context) (string, error) { return "after", nil })

	_, err := hung.Wait(ctx)
	assert.ErrorIs(t, err, domain.ErrOperationTimeout)

	v, err := next.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, "after", v)
}

func TestQueue_OperationTimeoutCancelsContext(t *testing.T) {
	q := queue.New(queue.WithOperationTimeout(10 * time.Millisecond))

	observed := make(chan error, 1)
	f := q.Enqueue(func(ctx context.Context) error {
		<-ctx.Done()
		observed <- ctx.Err()
		return ctx.Err()
	})

	_, err := f.Wait(context.Background())
	assert.Error(t, err)
	assert.ErrorIs(t, <-observed, context.DeadlineExceeded)
}

func TestQueue_OperationTimeoutLosesOrderWhenContextIgnored(t *testing.T) {
	q := queue.New(queue.WithOperationTimeout(20 * time.Millisecond))
	ctx := context.Background()

	var mu sync.Mutex
	var landed []string
	land := func(name string) {
		mu.Lock()
		landed = append(landed, name)
		mu.Unlock()
	}
	landedSoFar := func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), landed...)
	}

	a := q.Enqueue(func(context.Context) error {
		time.Sleep(80 * time.Millisecond) // ignores ctx
		land("A")
		return nil
	})
	b := q.Enqueue(func(context.Context) error {
		land("B")
		return nil
	})

	_, err := a.Wait(ctx)
	assert.ErrorIs(t, err, domain.ErrOperationTimeout)
	_, err = b.Wait(ctx)
	require.NoError(t, err)

	// The abandoned operation still lands, after its successor.
	assert.Eventually(t, func() bool { return len(landedSoFar()) == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"B", "A"}, landedSoFar())
}

func TestQueue_OperationTimeoutKeepsOrderWhenContextHonored(t *testing.T) {
	q := queue.New(queue.WithOperationTimeout(20 * time.Millisecond))
	ctx := context.Background()

	var mu sync.Mutex
	var landed []string
	a := q.Enqueue(func(ctx context.Context) error {
		select {
		case <-time.After(80 * time.Millisecond):
		case <-ctx.Done():
			return ctx.Err()
		}
		mu.Lock()
		landed = append(landed, "A")
		mu.Unlock()
		return nil
	})
	b := q.Enqueue(func(context.Context) error {
		mu.Lock()
		landed = append(landed, "B")
		mu.Unlock()
		return nil
	})

	_, err := a.Wait(ctx)
	assert.Error(t, err)
	_, err = b.Wait(ctx)
	require.NoError(t, err)

	time.Sleep(100 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"B"}, landed, "a cancelled operation never lands")
}

func TestQueue_Reset(t *testing.T) {
	q := queue.New()
	release := make(chan struct{})
	defer close(release)

	q.Enqueue(func(ctx context.Context) error { <-release; return nil })
	q.Reset()

	start := time.Now()
	require.NoError(t, q.Flush(context.Background()))
	assert.Less(t, time.Since(start), 10*time.Millisecond, "a reset queue starts empty")
}

func TestFuture_WaitHonorsContext(t *testing.T) {
	q := queue.New()
	release := make(chan struct{})

	f := q.Enqueue(func(ctx context.Context) error { <-release; return nil })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	// Abandoning the wait does not cancel the operation.
	close(release)
	_, err = f.Wait(context.Background())
	assert.NoError(t, err)
}

func TestGlobal(t *testing.T) {
	g1 := queue.Global()
	assert.Same(t, g1, queue.Global())
	assert.Equal(t, queue.GlobalName, g1.Name())

	g2 := queue.ResetGlobal()
	assert.NotSame(t, g1, g2)
	assert.Same(t, g2, queue.Global())

	g3, ok := queue.InitGlobal(queue.WithOperationTimeout(time.Second))
	assert.False(t, ok, "an existing global queue is never replaced by InitGlobal")
	assert.Same(t, g2, g3)
}

func TestQueue_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := queue.NewMetrics(reg)
	q := queue.New(queue.WithName("plans"), queue.WithMetrics(m))

	q.Enqueue(func(ctx context.Context) error { return nil })
	q.Enqueue(func(ctx context.Context) error { return errors.New("nope") })
	q.Enqueue(func(ctx context.Context) error { panic("boom") })
	require.NoError(t, q.Flush(context.Background()))

	assert.Equal(t, 3.0, testutil.ToFloat64(m.Submitted.WithLabelValues("plans")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Settled.WithLabelValues("plans", queue.OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Settled.WithLabelValues("plans", queue.OutcomeError)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Settled.WithLabelValues("plans", queue.OutcomePanic)))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.Pending.WithLabelValues("plans")))
}
