// Package hydration provides the load-before-trust gate owned by every
// persisted container.
//
// A Gate starts closed and is opened exactly once, when the container's
// initial load from storage has completed. Reads taken before that are
// provisional: an empty result means "not loaded yet", never "confirmed absent".
package hydration

import (
	"context"
	"sync"
	"sync/atomic"
)

// Gate is a one-way false->true flag. Safe for concurrent use.
type Gate struct {
	hydrated atomic.Bool
	once     sync.Once
	done     chan struct{}
	initOnce sync.Once
}

// NewGate returns a closed gate.
func NewGate() *Gate {
	g := &Gate{}
	g.init()
	return g
}

func (g *Gate) init() {
	g.initOnce.Do(func() {
		g.done = make(chan struct{})
	})
}

// Hydrated reports whether the initial load has completed.
func (g *Gate) Hydrated() bool {
	return g.hydrated.Load()
}

// MarkHydrated opens the gate. It returns true only for the call that flipped it;
// later calls are no-ops.
func (g *Gate) MarkHydrated() bool {
	g.init()
	flipped := false
	g.once.Do(func() {
		g.hydrated.Store(true)
		close(g.done)
		flipped = true
	})
	return flipped
}

// Done returns a channel that is closed once the gate opens.
func (g *Gate) Done() <-chan struct{} {
	g.init()
	return g.done
}

// Wait blocks until the gate opens or ctx is done.
func (g *Gate) Wait(ctx context.Context) error {
	select {
	case <-g.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
