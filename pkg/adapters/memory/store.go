package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/aretw0/liftlog/pkg/domain"
	"github.com/aretw0/liftlog/pkg/ports"
)

// Store implements ports.KVStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]string
	mu   sync.RWMutex
}

var _ ports.KVStore = (*Store)(nil)
var _ ports.KeyLister = (*Store)(nil)

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]string),
	}
}

// Get retrieves the value from memory.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", domain.ErrEmptyKey
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.data[key]
	if !ok {
		return "", domain.ErrKeyNotFound
	}
	return value, nil
}

// Set persists the value in memory.
func (s *Store) Set(ctx context.Context, key, value string) error {
	if key == "" {
		return domain.ErrEmptyKey
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}

// Remove deletes the key.
func (s *Store) Remove(ctx context.Context, key string) error {
	if key == "" {
		return domain.ErrEmptyKey
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

// Keys returns the stored keys in lexical order.
func (s *Store) Keys(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// Len returns the number of stored keys.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
