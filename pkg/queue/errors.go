package queue

import "fmt"

// PanicError is the failure recorded for an operation that panicked.
// The panic is contained to that operation's Future.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("queued operation panicked: %v", e.Value)
}
