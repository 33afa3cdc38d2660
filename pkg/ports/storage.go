package ports

import "context"

// Storage is the persistence contract consumed by reactive containers.
// Containers call SetItem/RemoveItem on state changes and GetItem on startup.
type Storage interface {
	// GetItem returns the persisted value and whether one was found.
	GetItem(ctx context.Context, key string) (string, bool, error)

	// SetItem persists value under key.
	SetItem(ctx context.Context, key, value string) error

	// RemoveItem deletes key.
	RemoveItem(ctx context.Context, key string) error
}

// Flusher waits until every write issued so far has settled.
type Flusher interface {
	Flush(ctx context.Context) error
}
