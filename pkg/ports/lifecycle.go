package ports

import "github.com/aretw0/liftlog/pkg/domain"

// AppStateHandler receives host lifecycle transitions.
type AppStateHandler func(state domain.AppState)

// AppStateSource is the host's foreground/background signal.
type AppStateSource interface {
	// Subscribe registers handler and returns the function that removes it.
	Subscribe(handler AppStateHandler) (unsubscribe func())
}
