package lifecycle

import (
	"context"
	"sync"

	"github.com/aretw0/liftlog/pkg/ports"
	"github.com/aretw0/liftlog/pkg/queue"
)

var (
	defaultMu       sync.Mutex
	defaultListener *Listener
)

// globalFlusher resolves queue.Global() at flush time so that ResetGlobal is honored.
var globalFlusher = FlusherFunc(func(ctx context.Context) error {
	return queue.Global().Flush(ctx)
})

// SetupFlushListener registers the process-wide listener on source, flushing
// queue.Global(). A second call while registered performs no new registration
// and returns a cleanup for the existing one. After cleanup a later call
// registers again.
func SetupFlushListener(source ports.AppStateSource, opts ...Option) CleanupFunc {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	if defaultListener != nil {
		if cleanup, ok := defaultListener.Attach(); ok {
			return cleanup
		}
	}
	// Removed or never made: register a fresh listener on this call's source.
	defaultListener = NewListener(source, globalFlusher, opts...)
	return defaultListener.Setup()
}

// FlushPendingWrites waits for every write submitted to queue.Global() so far.
func FlushPendingWrites(ctx context.Context) error {
	return globalFlusher.Flush(ctx)
}
