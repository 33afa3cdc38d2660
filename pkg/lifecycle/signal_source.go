package lifecycle

import (
	"context"
	"os"
	"os/signal"
	"sync"

	"github.com/aretw0/liftlog/pkg/domain"
	"github.com/aretw0/liftlog/pkg/ports"
)

// SignalSource maps OS signals to app states, for hosts where the process
// itself is the "app" (servers, CLIs).
//
// Notifying a signal disables its default action, so the host must handle
// termination itself when SIGINT/SIGTERM are mapped.
type SignalSource struct {
	*Emitter

	mapping map[os.Signal]domain.AppState
	ch      chan os.Signal

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

var _ ports.AppStateSource = (*SignalSource)(nil)

// NewSignalSource creates a source with the given mapping, or the platform
// default when mapping is nil.
func NewSignalSource(mapping map[os.Signal]domain.AppState) *SignalSource {
	if mapping == nil {
		mapping = DefaultSignalMapping()
	}
	return &SignalSource{
		Emitter: NewEmitter(),
		mapping: mapping,
		ch:      make(chan os.Signal, 4),
	}
}

// Start begins listening. It is a no-op if already started.
func (s *SignalSource) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}

	signals := make([]os.Signal, 0, len(s.mapping))
	for sig := range s.mapping {
		signals = append(signals, sig)
	}
	signal.Notify(s.ch, signals...)

	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	go s.loop(ctx, s.done)
}

// Stop stops listening and restores default signal behavior.
func (s *SignalSource) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	signal.Stop(s.ch)
	cancel()
	<-done
}

func (s *SignalSource) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case sig := <-s.ch:
			if state, ok := s.mapping[sig]; ok {
				s.Emit(state)
			}
		}
	}
}
