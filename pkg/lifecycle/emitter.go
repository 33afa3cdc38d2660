package lifecycle

import (
	"sync"

	"github.com/aretw0/liftlog/pkg/domain"
	"github.com/aretw0/liftlog/pkg/ports"
)

// Emitter is an in-process AppStateSource the host pushes transitions into.
// Safe for concurrent use.
type Emitter struct {
	mu       sync.Mutex
	handlers map[int]ports.AppStateHandler
	nextID   int
	current  domain.AppState
}

var _ ports.AppStateSource = (*Emitter)(nil)

// NewEmitter creates an emitter whose current state is active.
func NewEmitter() *Emitter {
	return &Emitter{
		handlers: make(map[int]ports.AppStateHandler),
		current:  domain.AppStateActive,
	}
}

// Subscribe registers handler for future transitions.
func (e *Emitter) Subscribe(handler ports.AppStateHandler) func() {
	e.mu.Lock()
	id := e.nextID
	e.nextID++
	e.handlers[id] = handler
	e.mu.Unlock()

	return func() {
		e.mu.Lock()
		delete(e.handlers, id)
		e.mu.Unlock()
	}
}

// Emit records state and delivers it to every handler, in the caller's goroutine.
// Repeated emissions of the current state are dropped.
func (e *Emitter) Emit(state domain.AppState) {
	e.mu.Lock()
	if state == e.current {
		e.mu.Unlock()
		return
	}
	e.current = state
	handlers := make([]ports.AppStateHandler, 0, len(e.handlers))
	for _, h := range e.handlers {
		handlers = append(handlers, h)
	}
	e.mu.Unlock()

	for _, h := range handlers {
		h(state)
	}
}

// Current returns the last emitted state.
func (e *Emitter) Current() domain.AppState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current
}

// Subscribers returns the number of registered handlers.
func (e *Emitter) Subscribers() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.handlers)
}
