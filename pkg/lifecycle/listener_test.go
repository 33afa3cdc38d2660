package lifecycle_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aretw0/liftlog/internal/logging"
	"github.com/aretw0/liftlog/pkg/domain"
	"github.com/aretw0/liftlog/pkg/lifecycle"
	"github.com/aretw0/liftlog/pkg/ports"
	"github.com/aretw0/liftlog/pkg/queue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingSource counts underlying registrations.
type countingSource struct {
	*lifecycle.Emitter
	subscribes atomic.Int32
}

func newCountingSource() *countingSource {
	return &countingSource{Emitter: lifecycle.NewEmitter()}
}

func (c *countingSource) Subscribe(h ports.AppStateHandler) func() {
	c.subscribes.Add(1)
	return c.Emitter.Subscribe(h)
}

func TestListener_SetupIsIdempotent(t *testing.T) {
	src := newCountingSource()
	l := lifecycle.NewListener(src, queue.New())

	cleanup1 := l.Setup()
	cleanup2 := l.Setup()
	assert.Equal(t, int32(1), src.subscribes.Load(), "second setup must not register again")
	assert.Equal(t, 1, src.Subscribers())
	assert.True(t, l.Active())

	// The cleanup from the second call removes the existing registration.
	cleanup2()
	assert.Equal(t, 0, src.Subscribers())
	assert.False(t, l.Active())
	cleanup1()
	assert.Equal(t, 0, src.Subscribers())

	// A later setup registers again.
	cleanup3 := l.Setup()
	defer cleanup3()
	assert.Equal(t, int32(2), src.subscribes.Load())
	assert.Equal(t, 1, src.Subscribers())
}

func TestListener_StaleCleanupIsIgnored(t *testing.T) {
	src := newCountingSource()
	l := lifecycle.NewListener(src, queue.New())

	stale := l.Setup()
	stale()
	fresh := l.Setup()
	defer fresh()

	stale()
	assert.True(t, l.Active(), "an old cleanup must not remove a newer registration")
	assert.Equal(t, 1, src.Subscribers())
}

func TestListener_BackgroundWaitsForDrain(t *testing.T) {
	for _, state := range []domain.AppState{domain.AppStateBackground, domain.AppStateInactive} {
		t.Run(string(state), func(t *testing.T) {
			src := lifecycle.NewEmitter()
			q := queue.New()
			l := lifecycle.NewListener(src, q)
			defer l.Setup()()

			var landed atomic.Int32
			for i := 0; i < 3; i++ {
				q.Enqueue(func(ctx context.Context) error {
					time.Sleep(10 * time.Millisecond)
					landed.Add(1)
					return nil
				})
			}

			src.Emit(state)
			assert.Equal(t, int32(3), landed.Load(), "the transition handler must await the drain")
		})
	}
}

func TestListener_ActiveDoesNotFlush(t *testing.T) {
	src := lifecycle.NewEmitter()
	var flushes atomic.Int32
	l := lifecycle.NewListener(src, lifecycle.FlusherFunc(func(ctx context.Context) error {
		flushes.Add(1)
		return nil
	}))
	defer l.Setup()()

	src.Emit(domain.AppStateBackground)
	src.Emit(domain.AppStateActive)
	src.Emit(domain.AppStateInactive)

	assert.Equal(t, int32(2), flushes.Load())
}

func TestListener_FlushFailureIsLoggedNotThrown(t *testing.T) {
	var logs bytes.Buffer
	src := lifecycle.NewEmitter()
	l := lifecycle.NewListener(src,
		lifecycle.FlusherFunc(func(ctx context.Context) error { return errors.New("storage offline") }),
		lifecycle.WithLogger(logging.NewWithWriter(&logs, slog.LevelDebug, logging.FormatText)),
	)
	defer l.Setup()()

	assert.NotPanics(t, func() { src.Emit(domain.AppStateBackground) })
	assert.Contains(t, logs.String(), "Failed to flush pending writes")
	assert.Contains(t, logs.String(), "storage offline")
}

func TestListener_FlushPanicIsContained(t *testing.T) {
	var logs bytes.Buffer
	src := lifecycle.NewEmitter()
	l := lifecycle.NewListener(src,
		lifecycle.FlusherFunc(func(ctx context.Context) error { panic("bad flusher") }),
		lifecycle.WithLogger(logging.NewWithWriter(&logs, slog.LevelDebug, logging.FormatText)),
	)
	defer l.Setup()()

	var other atomic.Bool
	src.Subscribe(func(domain.AppState) { other.Store(true) })

	assert.NotPanics(t, func() { src.Emit(domain.AppStateBackground) })
	assert.True(t, other.Load(), "unrelated listeners still receive the transition")
	assert.Contains(t, logs.String(), "bad flusher")
}

func TestListener_FlushTimeout(t *testing.T) {
	var logs bytes.Buffer
	src := lifecycle.NewEmitter()
	q := queue.New()
	release := make(chan struct{})
	defer close(release)
	q.Enqueue(func(ctx context.Context) error { <-release; return nil })

	l := lifecycle.NewListener(src, q,
		lifecycle.WithFlushTimeout(10*time.Millisecond),
		lifecycle.WithLogger(logging.NewWithWriter(&logs, slog.LevelDebug, logging.FormatText)),
	)
	defer l.Setup()()

	start := time.Now()
	src.Emit(domain.AppStateBackground)
	assert.Less(t, time.Since(start), time.Second)
	assert.Contains(t, logs.String(), "deadline exceeded")
}

func TestListener_FlushPendingWrites(t *testing.T) {
	q := queue.New()
	l := lifecycle.NewListener(lifecycle.NewEmitter(), q)

	var landed atomic.Bool
	q.Enqueue(func(ctx context.Context) error {
		time.Sleep(5 * time.Millisecond)
		landed.Store(true)
		return nil
	})

	require.NoError(t, l.FlushPendingWrites(context.Background()))
	assert.True(t, landed.Load())
}

func TestSetupFlushListener_ProcessWide(t *testing.T) {
	q := queue.ResetGlobal()
	src := newCountingSource()

	cleanup1 := lifecycle.SetupFlushListener(src)
	cleanup2 := lifecycle.SetupFlushListener(src)
	assert.Equal(t, int32(1), src.subscribes.Load())

	var landed atomic.Bool
	q.Enqueue(func(ctx context.Context) error {
		time.Sleep(5 * time.Millisecond)
		landed.Store(true)
		return nil
	})
	src.Emit(domain.AppStateBackground)
	assert.True(t, landed.Load())

	cleanup1()
	cleanup2()
	assert.Equal(t, 0, src.Subscribers())

	cleanup3 := lifecycle.SetupFlushListener(src)
	defer cleanup3()
	assert.Equal(t, int32(2), src.subscribes.Load())
}

func TestListener_Attach(t *testing.T) {
	src := newCountingSource()
	l := lifecycle.NewListener(src, lifecycle.FlusherFunc(func(context.Context) error { return nil }))

	_, ok := l.Attach()
	assert.False(t, ok, "nothing to attach to before Setup")
	assert.Equal(t, int32(0), src.subscribes.Load())

	cleanup := l.Setup()
	attached, ok := l.Attach()
	require.True(t, ok)
	assert.Equal(t, int32(1), src.subscribes.Load())

	attached()
	assert.False(t, l.Active())
	assert.Equal(t, 0, src.Subscribers())
	cleanup()

	_, ok = l.Attach()
	assert.False(t, ok)
}

func TestSetupFlushListener_UsesNewSourceAfterCleanup(t *testing.T) {
	queue.ResetGlobal()
	first := lifecycle.NewEmitter()
	second := lifecycle.NewEmitter()

	lifecycle.SetupFlushListener(first)()
	cleanup := lifecycle.SetupFlushListener(second)
	defer cleanup()

	assert.Equal(t, 0, first.Subscribers())
	assert.Equal(t, 1, second.Subscribers())
}

func TestSetupFlushListener_CleanupRacingSetup(t *testing.T) {
	queue.ResetGlobal()

	for i := 0; i < 200; i++ {
		old := lifecycle.NewEmitter()
		next := lifecycle.NewEmitter()
		cleanupOld := lifecycle.SetupFlushListener(old)

		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			cleanupOld()
		}()
		cleanupNext := lifecycle.SetupFlushListener(next)
		wg.Wait()

		// Either the setup attached to the old registration, which the
		// cleanup then removed, or it registered on the new source. It
		// never revives the old one.
		require.Equal(t, 0, old.Subscribers(), "round %d", i)
		cleanupNext()
		require.Equal(t, 0, next.Subscribers(), "round %d", i)
	}
}

func TestFlushPendingWrites_Global(t *testing.T) {
	q := queue.ResetGlobal()

	var landed atomic.Bool
	q.Enqueue(func(ctx context.Context) error {
		time.Sleep(5 * time.Millisecond)
		landed.Store(true)
		return nil
	})

	require.NoError(t, lifecycle.FlushPendingWrites(context.Background()))
	assert.True(t, landed.Load())
}

func TestEmitter_DropsRepeatedState(t *testing.T) {
	src := lifecycle.NewEmitter()
	var calls atomic.Int32
	unsubscribe := src.Subscribe(func(domain.AppState) { calls.Add(1) })

	src.Emit(domain.AppStateActive) // already active
	src.Emit(domain.AppStateBackground)
	src.Emit(domain.AppStateBackground)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, domain.AppStateBackground, src.Current())

	unsubscribe()
	src.Emit(domain.AppStateActive)
	assert.Equal(t, int32(1), calls.Load())
}
