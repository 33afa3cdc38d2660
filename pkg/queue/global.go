package queue

import "sync"

var (
	globalMu sync.Mutex
	global   *Queue
)

// GlobalName is the label of the process-wide queue.
const GlobalName = "global"

// Global returns the process-wide queue, creating it on first use.
// Library code should receive a *Queue explicitly; Global is meant for the
// application's outermost composition point.
func Global() *Queue {
	globalMu.Lock()
	defer globalMu.Unlock()
	if global == nil {
		global = New(WithName(GlobalName))
	}
	return global
}

// InitGlobal creates the process-wide queue with opts. When the queue already
// exists it is returned untouched and ok is false.
func InitGlobal(opts ...Option) (q *Queue, ok bool) {
	globalMu.Lock()
	defer globalMu.Unlock()
	if global != nil {
		return global, false
	}
	global = New(append([]Option{WithName(GlobalName)}, opts...)...)
	return global, true
}

// ResetGlobal replaces the process-wide queue with a fresh instance and returns it.
// Test harnesses call it between cases; production code must not.
func ResetGlobal(opts ...Option) *Queue {
	globalMu.Lock()
	defer globalMu.Unlock()
	global = New(append([]Option{WithName(GlobalName)}, opts...)...)
	return global
}
