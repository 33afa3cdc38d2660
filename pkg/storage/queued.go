package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/liftlog/internal/logging"
	"github.com/aretw0/liftlog/pkg/domain"
	"github.com/aretw0/liftlog/pkg/ports"
	"github.com/aretw0/liftlog/pkg/queue"
)

// DefaultPreviewLength is how many bytes of a failed value are logged.
const DefaultPreviewLength = 100

// Queued implements ports.Storage on top of a KVStore and an Operation Queue.
type Queued struct {
	store      ports.KVStore
	queue      *queue.Queue
	logger     *slog.Logger
	previewLen int
	now        func() time.Time
}

var _ ports.Storage = (*Queued)(nil)
var _ ports.Flusher = (*Queued)(nil)

// Option configures Queued.
type Option func(*Queued)

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Queued) {
		s.logger = logger
	}
}

// WithPreviewLength sets how many bytes of a value are included in failure diagnostics.
// Zero disables previews.
func WithPreviewLength(n int) Option {
	return func(s *Queued) {
		s.previewLen = n
	}
}

// NewQueued wraps store so that writes go through q.
func NewQueued(store ports.KVStore, q *queue.Queue, opts ...Option) *Queued {
	s := &Queued{
		store:      store,
		queue:      q,
		logger:     logging.NewNop(),
		previewLen: DefaultPreviewLength,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Queue returns the queue writes are serialized on.
func (s *Queued) Queue() *queue.Queue {
	return s.queue
}

// GetItem reads directly from the store; it may race with queued writes.
// A failed read is logged and treated as "nothing persisted yet".
func (s *Queued) GetItem(ctx context.Context, key string) (string, bool, error) {
	value, err := s.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, domain.ErrKeyNotFound) {
			s.logger.Warn("Failed to read persisted value; treating as absent",
				"key", key,
				"err", err,
			)
		}
		return "", false, nil
	}
	return value, true, nil
}

// SetItem enqueues the write and waits for it to settle.
// Failures are logged with context and returned to the caller.
func (s *Queued) SetItem(ctx context.Context, key, value string) error {
	_, err := s.SetItemAsync(key, value).Wait(ctx)
	return err
}

// RemoveItem enqueues the removal and waits for it to settle.
func (s *Queued) RemoveItem(ctx context.Context, key string) error {
	_, err := s.RemoveItemAsync(key).Wait(ctx)
	return err
}

// SetItemAsync enqueues the write and returns without waiting for it to land.
func (s *Queued) SetItemAsync(key, value string) *queue.Future[struct{}] {
	return s.queue.Enqueue(func(ctx context.Context) error {
		if err := s.store.Set(ctx, key, value); err != nil {
			s.logger.Error("Persisted write failed",
				"key", key,
				"value_len", len(value),
				"value_preview", preview(value, s.previewLen),
				"err", err,
				"at", s.now().UTC().Format(time.RFC3339Nano),
			)
			return fmt.Errorf("failed to set %q: %w", key, err)
		}
		return nil
	})
}

// RemoveItemAsync enqueues the removal, ordered relative to writes.
func (s *Queued) RemoveItemAsync(key string) *queue.Future[struct{}] {
	return s.queue.Enqueue(func(ctx context.Context) error {
		if err := s.store.Remove(ctx, key); err != nil {
			s.logger.Error("Persisted remove failed",
				"key", key,
				"err", err,
				"at", s.now().UTC().Format(time.RFC3339Nano),
			)
			return fmt.Errorf("failed to remove %q: %w", key, err)
		}
		return nil
	})
}

// Flush waits for every write enqueued so far.
func (s *Queued) Flush(ctx context.Context) error {
	return s.queue.Flush(ctx)
}

func preview(value string, n int) string {
	if n <= 0 {
		return ""
	}
	if len(value) <= n {
		return value
	}
	return value[:n] + "..."
}
