package ports_test

import (
	"context"
	"sync"
	"testing"

	"github.com/aretw0/liftlog/pkg/domain"
	"github.com/aretw0/liftlog/pkg/ports"
)

// mapStore is the smallest KVStore that satisfies the contract.
type mapStore struct {
	mu   sync.Mutex
	data map[string]string
}

func (m *mapStore) Get(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", domain.ErrEmptyKey
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return "", domain.ErrKeyNotFound
	}
	return v, nil
}

func (m *mapStore) Set(ctx context.Context, key, value string) error {
	if key == "" {
		return domain.ErrEmptyKey
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *mapStore) Remove(ctx context.Context, key string) error {
	if key == "" {
		return domain.ErrEmptyKey
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func TestKVStore_Contract(t *testing.T) {
	// The contract must hold for a store that does not implement KeyLister.
	ports.RunKVStoreContract(t, &mapStore{data: make(map[string]string)})
}
