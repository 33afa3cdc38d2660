package domain

import "strings"

// AppState is the foreground/background state reported by the host.
type AppState string

const (
	AppStateActive     AppState = "active"     // In the foreground, receiving events
	AppStateBackground AppState = "background" // Moved away, may be suspended at any time
	AppStateInactive   AppState = "inactive"   // Transitioning (e.g. app switcher, incoming call)
	AppStateUnknown    AppState = "unknown"
)

// ParseAppState converts a host-provided string into an AppState.
// Unrecognized values map to AppStateUnknown.
func ParseAppState(s string) AppState {
	switch AppState(strings.ToLower(strings.TrimSpace(s))) {
	case AppStateActive:
		return AppStateActive
	case AppStateBackground:
		return AppStateBackground
	case AppStateInactive:
		return AppStateInactive
	default:
		return AppStateUnknown
	}
}

// ShouldFlush reports whether pending writes must be forced to land
// before the host may suspend the process.
func (s AppState) ShouldFlush() bool {
	return s == AppStateBackground || s == AppStateInactive
}

func (s AppState) String() string {
	return string(s)
}
