package middleware

import (
	"context"
	"errors"
	"fmt"

	"github.com/aretw0/liftlog/pkg/ports"
)

// Middleware allows wrapping a KVStore to add behavior.
type Middleware func(ports.KVStore) ports.KVStore

// Chain wraps store with mws. The first middleware is the outermost.
func Chain(store ports.KVStore, mws ...Middleware) ports.KVStore {
	for i := len(mws) - 1; i >= 0; i-- {
		store = mws[i](store)
	}
	return store
}

func listKeys(ctx context.Context, next ports.KVStore) ([]string, error) {
	lister, ok := next.(ports.KeyLister)
	if !ok {
		return nil, fmt.Errorf("store %T cannot list keys: %w", next, errors.ErrUnsupported)
	}
	return lister.Keys(ctx)
}
