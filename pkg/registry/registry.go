package registry

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/aretw0/liftlog/internal/logging"
	"github.com/aretw0/liftlog/pkg/container"
	"github.com/aretw0/liftlog/pkg/lifecycle"
	"github.com/aretw0/liftlog/pkg/ports"
	"github.com/aretw0/liftlog/pkg/queue"
	"github.com/aretw0/liftlog/pkg/storage"
	"github.com/aretw0/liftlog/pkg/stores"
)

// SharedQueue is the name of the queue used by every subsystem unless queues are isolated.
const SharedQueue = "shared"

// Registry is the composition root of the persistence core: it owns the
// queues, the queued storages built on them and the lifecycle listener.
type Registry struct {
	store     ports.KVStore
	logger    *slog.Logger
	metrics   *queue.Metrics
	opTimeout time.Duration
	isolated  bool
	shared    *queue.Queue

	mu       sync.RWMutex
	queues   map[string]*queue.Queue
	storages map[string]*storage.Queued

	// Separate from mu: a source may call the handler during Subscribe,
	// and that handler flushes through mu.
	listenerMu sync.Mutex
	listener   *lifecycle.Listener
}

// Option configures the Registry.
type Option func(*Registry)

// WithLogger configures the structured logger passed down to every component.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

// WithMetrics instruments every queue created by the registry.
func WithMetrics(m *queue.Metrics) Option {
	return func(r *Registry) {
		r.metrics = m
	}
}

// WithOperationTimeout applies queue.WithOperationTimeout to every queue created by the registry.
func WithOperationTimeout(d time.Duration) Option {
	return func(r *Registry) {
		r.opTimeout = d
	}
}

// WithIsolatedQueues gives each subsystem its own queue, so that one
// subsystem's backlog never delays another's writes. Writes of different
// subsystems are then not ordered against each other.
func WithIsolatedQueues() Option {
	return func(r *Registry) {
		r.isolated = true
	}
}

// WithSharedQueue makes the registry use q as its shared queue instead of creating one.
func WithSharedQueue(q *queue.Queue) Option {
	return func(r *Registry) {
		r.shared = q
	}
}

// New creates a registry over store.
func New(store ports.KVStore, opts ...Option) *Registry {
	r := &Registry{
		store:    store,
		logger:   logging.NewNop(),
		queues:   make(map[string]*queue.Queue),
		storages: make(map[string]*storage.Queued),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.shared == nil {
		r.shared = r.newQueue(SharedQueue)
	}
	r.queues[SharedQueue] = r.shared
	return r
}

// Default creates a registry whose shared queue is the process-wide queue.Global().
// Only the application's outermost composition point should use it.
func Default(store ports.KVStore, opts ...Option) *Registry {
	return New(store, append(opts, WithSharedQueue(queue.Global()))...)
}

func (r *Registry) newQueue(name string) *queue.Queue {
	opts := []queue.Option{
		queue.WithName(name),
		queue.WithLogger(r.logger),
		queue.WithMetrics(r.metrics),
	}
	if r.opTimeout > 0 {
		opts = append(opts, queue.WithOperationTimeout(r.opTimeout))
	}
	return queue.New(opts...)
}

// Queue returns the queue a subsystem writes through.
func (r *Registry) Queue(subsystem string) *queue.Queue {
	if !r.isolated {
		return r.shared
	}

	r.mu.RLock()
	q, ok := r.queues[subsystem]
	r.mu.RUnlock()
	if ok {
		return q
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if q, ok := r.queues[subsystem]; ok {
		return q
	}
	q = r.newQueue(subsystem)
	r.queues[subsystem] = q
	return q
}

// Storage returns the queued storage for a subsystem.
func (r *Registry) Storage(subsystem string) *storage.Queued {
	q := r.Queue(subsystem)

	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.storages[q.Name()]; ok {
		return s
	}
	s := storage.NewQueued(r.store, q, storage.WithLogger(r.logger))
	r.storages[q.Name()] = s
	return s
}

// Stores builds the app's persisted stores on the registry's storages.
func (r *Registry) Stores(opts ...container.Option) *stores.Set {
	opts = append([]container.Option{container.WithLogger(r.logger)}, opts...)
	return stores.NewSetWith(func(subsystem string) ports.Storage {
		return r.Storage(subsystem)
	}, opts...)
}

// QueueNames lists the queues created so far.
func (r *Registry) QueueNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.queues))
	for name := range r.queues {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Flush waits for every queue to drain. It implements ports.Flusher.
func (r *Registry) Flush(ctx context.Context) error {
	r.mu.RLock()
	queues := make([]*queue.Queue, 0, len(r.queues))
	for _, q := range r.queues {
		queues = append(queues, q)
	}
	r.mu.RUnlock()

	var errs []error
	for _, q := range queues {
		if err := q.Flush(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// WatchLifecycle registers the flush listener on source. Idempotent while registered.
func (r *Registry) WatchLifecycle(source ports.AppStateSource, opts ...lifecycle.Option) lifecycle.CleanupFunc {
	r.listenerMu.Lock()
	defer r.listenerMu.Unlock()

	if r.listener != nil {
		if cleanup, ok := r.listener.Attach(); ok {
			return cleanup
		}
	}
	opts = append([]lifecycle.Option{lifecycle.WithLogger(r.logger)}, opts...)
	r.listener = lifecycle.NewListener(source, r, opts...)
	return r.listener.Setup()
}
