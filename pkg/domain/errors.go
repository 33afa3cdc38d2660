package domain

import "errors"

// ErrKeyNotFound is returned by a KVStore when the key has no persisted value.
var ErrKeyNotFound = errors.New("key not found")

// ErrEmptyKey is returned when a store operation is attempted with an empty key.
var ErrEmptyKey = errors.New("key cannot be empty")

// ErrOperationTimeout is returned when a queued operation is abandoned after its deadline.
var ErrOperationTimeout = errors.New("queued operation timed out")

// ErrNotHydrated is returned when a caller requires authoritative state before the initial load finished.
var ErrNotHydrated = errors.New("state not hydrated yet")
