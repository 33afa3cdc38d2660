//go:build !unix

package lifecycle

import (
	"os"

	"github.com/aretw0/liftlog/pkg/domain"
)

// DefaultSignalMapping treats an interrupt as a move to the background.
func DefaultSignalMapping() map[os.Signal]domain.AppState {
	return map[os.Signal]domain.AppState{
		os.Interrupt: domain.AppStateBackground,
	}
}
