package ports

import "context"

// KVStore is the persistent key-value primitive.
// Each call may fail independently and no ordering is guaranteed between overlapping calls.
type KVStore interface {
	// Get retrieves the value for key.
	// Returns domain.ErrKeyNotFound if nothing is persisted under key.
	Get(ctx context.Context, key string) (string, error)

	// Set persists value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error

	// Remove deletes key. Removing an absent key is not an error.
	Remove(ctx context.Context, key string) error
}

// KeyLister is implemented by stores that can enumerate their keys.
// It is optional and only used for inspection tooling.
type KeyLister interface {
	Keys(ctx context.Context) ([]string, error)
}
