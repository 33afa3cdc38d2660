package lifecycle

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/liftlog/internal/logging"
	"github.com/aretw0/liftlog/pkg/domain"
	"github.com/aretw0/liftlog/pkg/ports"
)

// DefaultFlushTimeout bounds a flush triggered by a lifecycle transition.
const DefaultFlushTimeout = 5 * time.Second

// CleanupFunc removes the registration it was returned for. Safe to call more than once.
type CleanupFunc func()

// FlusherFunc adapts a function to ports.Flusher.
type FlusherFunc func(ctx context.Context) error

func (f FlusherFunc) Flush(ctx context.Context) error {
	return f(ctx)
}

type registration struct {
	unsubscribe func()
}

// Listener flushes pending writes on background/inactive transitions.
// At most one registration is active per Listener.
type Listener struct {
	source       ports.AppStateSource
	flusher      ports.Flusher
	logger       *slog.Logger
	flushTimeout time.Duration

	mu     sync.Mutex
	active *registration
}

// Option configures a Listener.
type Option func(*Listener)

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Listener) {
		l.logger = logger
	}
}

// WithFlushTimeout bounds each transition-triggered flush.
func WithFlushTimeout(d time.Duration) Option {
	return func(l *Listener) {
		l.flushTimeout = d
	}
}

// NewListener creates an unregistered listener.
func NewListener(source ports.AppStateSource, flusher ports.Flusher, opts ...Option) *Listener {
	l := &Listener{
		source:       source,
		flusher:      flusher,
		logger:       logging.NewNop(),
		flushTimeout: DefaultFlushTimeout,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Setup subscribes to the host signal. It is idempotent: when a registration
// is already active no new one is made and the returned cleanup removes the
// existing one.
func (l *Listener) Setup() CleanupFunc {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.active != nil {
		return l.cleanupFor(l.active)
	}

	reg := &registration{}
	reg.unsubscribe = l.source.Subscribe(l.handle)
	l.active = reg
	l.logger.Debug("Lifecycle flush listener registered")
	return l.cleanupFor(reg)
}

// Attach returns a cleanup for the active registration. It reports false,
// and registers nothing, when the listener is not registered. Check and
// cleanup share l.mu, so a cleanup racing Attach never leaves a stale
// registration behind.
func (l *Listener) Attach() (CleanupFunc, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.active == nil {
		return nil, false
	}
	return l.cleanupFor(l.active), true
}

// Active reports whether a registration is in place.
func (l *Listener) Active() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active != nil
}

// FlushPendingWrites waits for every write issued so far, e.g. before signing out.
func (l *Listener) FlushPendingWrites(ctx context.Context) error {
	return l.flusher.Flush(ctx)
}

func (l *Listener) cleanupFor(reg *registration) CleanupFunc {
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()

		// Stale cleanups from an earlier registration must not touch a newer one.
		if l.active != reg {
			return
		}
		l.active = nil
		reg.unsubscribe()
		l.logger.Debug("Lifecycle flush listener removed")
	}
}

func (l *Listener) handle(state domain.AppState) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("Lifecycle flush panicked", "state", state, "panic", r)
		}
	}()

	if !state.ShouldFlush() {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), l.flushTimeout)
	defer cancel()

	start := time.Now()
	if err := l.flusher.Flush(ctx); err != nil {
		l.logger.Error("Failed to flush pending writes on lifecycle transition",
			"state", state,
			"err", err,
		)
		return
	}
	l.logger.Debug("Flushed pending writes on lifecycle transition",
		"state", state,
		"duration", time.Since(start),
	)
}
