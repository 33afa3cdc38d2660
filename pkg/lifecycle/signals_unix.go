//go:build unix

package lifecycle

import (
	"os"
	"syscall"

	"github.com/aretw0/liftlog/pkg/domain"
)

// DefaultSignalMapping treats termination requests as a move to the background
// and SIGCONT as a return to the foreground.
func DefaultSignalMapping() map[os.Signal]domain.AppState {
	return map[os.Signal]domain.AppState{
		os.Interrupt:    domain.AppStateBackground,
		syscall.SIGTERM: domain.AppStateBackground,
		syscall.SIGHUP:  domain.AppStateInactive,
		syscall.SIGCONT: domain.AppStateActive,
	}
}
