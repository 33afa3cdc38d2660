package container

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/aretw0/liftlog/internal/logging"
	"github.com/aretw0/liftlog/pkg/hydration"
	"github.com/aretw0/liftlog/pkg/ports"
	"github.com/aretw0/liftlog/pkg/queue"
	"github.com/mitchellh/mapstructure"
)

// AsyncStorage is a Storage whose writes can be enqueued without waiting.
// *storage.Queued implements it.
type AsyncStorage interface {
	ports.Storage
	SetItemAsync(key, value string) *queue.Future[struct{}]
	RemoveItemAsync(key string) *queue.Future[struct{}]
}

type envelope struct {
	State   json.RawMessage `json:"state"`
	Version int             `json:"version"`
}

type listener[T any] struct {
	id int
	fn func(T)
}

// Container is a persisted reactive value. Safe for concurrent use.
//
// Values returned by Get and passed to subscribers are shared; treat them as
// immutable and return fresh copies from Set's update function.
type Container[T any] struct {
	name    string
	storage ports.Storage
	async   AsyncStorage // nil when storage cannot enqueue
	settings
	merge MergeFunc[T]

	mu        sync.Mutex // guards state, listeners, lastWrite and the deferred updates; held while enqueuing to keep write order
	state     T
	listeners []listener[T]
	nextID    int
	lastWrite *queue.Future[struct{}]

	// Updates applied before hydration. They are replayed over the loaded
	// snapshot and persisted once the gate opens; base is the state they
	// were first applied to.
	deferred []func(T) T
	base     T

	gate *hydration.Gate
}

// New creates a container persisted under name.
// It is not hydrated until Rehydrate completes.
func New[T any](name string, initial T, storage ports.Storage, opts ...Option) *Container[T] {
	c := &Container[T]{
		name:    name,
		storage: storage,
		state:   initial,
		gate:    hydration.NewGate(),
		merge:   func(persisted, _ T) T { return persisted },
		settings: settings{
			logger: logging.NewNop(),
		},
	}
	if async, ok := storage.(AsyncStorage); ok {
		c.async = async
	}
	for _, opt := range opts {
		opt(&c.settings)
	}
	return c
}

// SetMerge overrides how the persisted state is merged at hydration.
// It must be called before Rehydrate.
func (c *Container[T]) SetMerge(fn MergeFunc[T]) *Container[T] {
	c.merge = fn
	return c
}

// Name returns the storage key.
func (c *Container[T]) Name() string {
	return c.name
}

// Get returns the current in-memory value.
// Before Hydrated() it is provisional.
func (c *Container[T]) Get() T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Set applies update synchronously, persists the new snapshot and notifies subscribers.
//
// Before hydration the new value is kept in memory only. The update is
// replayed over the loaded snapshot when Rehydrate completes, so an early
// write never replaces data that has not been read yet.
func (c *Container[T]) Set(update func(T) T) {
	c.SetIf(func(current T) (T, bool) {
		return update(current), true
	})
}

// SetIf is Set for updates that may decide nothing changed. When update
// returns false the value is not persisted and subscribers are not called.
// It reports whether the value changed.
func (c *Container[T]) SetIf(update func(T) (T, bool)) bool {
	c.mu.Lock()
	next, changed := update(c.state)
	if !changed {
		c.mu.Unlock()
		return false
	}

	var persistErr error
	if c.gate.Hydrated() {
		persistErr = c.persistLocked(next)
	} else {
		if len(c.deferred) == 0 {
			c.base = c.state
		}
		c.deferred = append(c.deferred, func(s T) T {
			n, _ := update(s)
			return n
		})
	}
	c.state = next
	listeners := append([]listener[T](nil), c.listeners...)
	c.mu.Unlock()

	if persistErr != nil && c.onPersistError != nil {
		c.onPersistError(c.name, persistErr)
	}
	for _, l := range listeners {
		l.fn(next)
	}
	return true
}

// Subscribe registers fn to be called after every change, including hydration.
func (c *Container[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners = append(c.listeners, listener[T]{id: id, fn: fn})
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			for i, l := range c.listeners {
				if l.id == id {
					c.listeners = append(c.listeners[:i], c.listeners[i+1:]...)
					return
				}
			}
		})
	}
}

// Hydrated reports whether the initial load has completed.
func (c *Container[T]) Hydrated() bool {
	return c.gate.Hydrated()
}

// WaitHydrated blocks until the initial load has completed or ctx is done.
func (c *Container[T]) WaitHydrated(ctx context.Context) error {
	return c.gate.Wait(ctx)
}

// Gate exposes the hydration gate.
func (c *Container[T]) Gate() *hydration.Gate {
	return c.gate
}

// Rehydrate loads the persisted snapshot and merges it into memory.
// The hydration gate opens when it returns, whether or not a snapshot was
// found or could be decoded, so consumers are never left waiting.
func (c *Container[T]) Rehydrate(ctx context.Context) error {
	raw, found, err := c.storage.GetItem(ctx, c.name)
	if err != nil {
		c.logger.Warn("Failed to load persisted snapshot", "container", c.name, "err", err)
		// The stored value is unknown, so deferred updates are not written
		// over it. They stay in memory and reach storage with the next Set.
		c.finishHydration(nil, false)
		return fmt.Errorf("failed to load %q: %w", c.name, err)
	}
	if !found {
		c.finishHydration(nil, true)
		return nil
	}

	persisted, ok, err := c.decode(raw)
	if err != nil {
		c.logger.Warn("Discarding unreadable snapshot", "container", c.name, "err", err)
		c.finishHydration(nil, true)
		return fmt.Errorf("failed to decode %q: %w", c.name, err)
	}
	if !ok {
		c.finishHydration(nil, true)
		return nil
	}

	c.finishHydration(&persisted, true)
	return nil
}

// finishHydration merges persisted (when loaded), replays deferred updates,
// writes the result when persistDeferred is set and opens the gate. The gate
// flips under c.mu so no Set can slip between the replay and the flip.
func (c *Container[T]) finishHydration(persisted *T, persistDeferred bool) {
	c.mu.Lock()
	if c.gate.Hydrated() {
		// Later rehydrates merge like the first one; nothing is deferred.
		if persisted == nil {
			c.mu.Unlock()
			return
		}
		c.state = c.merge(*persisted, c.state)
		c.notifyAndUnlock(c.state, nil)
		return
	}

	deferred := c.deferred
	next := c.state
	if persisted != nil {
		current := c.state
		if len(deferred) > 0 {
			current = c.base
		}
		next = c.merge(*persisted, current)
		for _, update := range deferred {
			next = update(next)
		}
	}

	var persistErr error
	if persistDeferred && len(deferred) > 0 {
		persistErr = c.persistLocked(next)
	}
	c.deferred = nil
	var zero T
	c.base = zero
	c.state = next
	if c.gate.MarkHydrated() {
		c.logger.Debug("Container hydrated", "container", c.name, "replayed", len(deferred))
	}

	// Deferred updates were announced when applied; only a merged snapshot is news.
	if persisted == nil {
		c.mu.Unlock()
		if persistErr != nil && c.onPersistError != nil {
			c.onPersistError(c.name, persistErr)
		}
		return
	}
	c.notifyAndUnlock(next, persistErr)
}

// notifyAndUnlock releases c.mu, then reports persistErr and calls subscribers with value.
func (c *Container[T]) notifyAndUnlock(value T, persistErr error) {
	listeners := append([]listener[T](nil), c.listeners...)
	c.mu.Unlock()

	if persistErr != nil && c.onPersistError != nil {
		c.onPersistError(c.name, persistErr)
	}
	for _, l := range listeners {
		l.fn(value)
	}
}

// ClearPersisted removes the snapshot from storage. The in-memory value is kept.
func (c *Container[T]) ClearPersisted(ctx context.Context) error {
	if c.async == nil {
		return c.storage.RemoveItem(ctx, c.name)
	}

	c.mu.Lock()
	f := c.async.RemoveItemAsync(c.name)
	c.lastWrite = f
	c.mu.Unlock()

	_, err := f.Wait(ctx)
	return err
}

// PendingPersist waits for the most recent snapshot write issued by this container.
func (c *Container[T]) PendingPersist(ctx context.Context) error {
	c.mu.Lock()
	f := c.lastWrite
	c.mu.Unlock()

	if f == nil {
		return nil
	}
	_, err := f.Wait(ctx)
	return err
}

func (c *Container[T]) encode(state T) (string, error) {
	data, err := json.Marshal(state)
	if err != nil {
		return "", err
	}
	out, err := json.Marshal(envelope{State: data, Version: c.version})
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// decode returns ok=false when the snapshot must be ignored.
func (c *Container[T]) decode(raw string) (T, bool, error) {
	var zero T

	var env envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return zero, false, err
	}

	if env.Version == c.version {
		var state T
		if err := json.Unmarshal(env.State, &state); err != nil {
			return zero, false, err
		}
		return state, true, nil
	}

	if c.migrate == nil {
		c.logger.Warn("Snapshot version differs and no migration is configured; ignoring it",
			"container", c.name,
			"persisted_version", env.Version,
			"version", c.version,
		)
		return zero, false, nil
	}

	var generic any
	if err := json.Unmarshal(env.State, &generic); err != nil {
		return zero, false, err
	}
	migrated, err := c.migrate(generic, env.Version)
	if err != nil {
		return zero, false, fmt.Errorf("migration from version %d failed: %w", env.Version, err)
	}

	var state T
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeHookFunc(time.RFC3339Nano),
		Result:           &state,
	})
	if err != nil {
		return zero, false, err
	}
	if err := decoder.Decode(migrated); err != nil {
		return zero, false, fmt.Errorf("failed to decode migrated state: %w", err)
	}
	return state, true, nil
}

// persistLocked must be called with c.mu held so that writes are enqueued in mutation order.
// It returns errors that are known synchronously; queued write failures are
// delivered to the persist error handler once they settle.
func (c *Container[T]) persistLocked(state T) error {
	value, err := c.encode(state)
	if err != nil {
		c.logger.Error("Failed to serialize snapshot", "container", c.name, "err", err)
		return err
	}

	if c.async == nil {
		// Synchronous fallback; ordering is kept by holding c.mu.
		return c.storage.SetItem(context.Background(), c.name, value)
	}

	f := c.async.SetItemAsync(c.name, value)
	c.lastWrite = f
	if c.onPersistError != nil {
		go func() {
			if _, err := f.Wait(context.Background()); err != nil {
				c.onPersistError(c.name, err)
			}
		}()
	}
	return nil
}
