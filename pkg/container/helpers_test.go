package container_test

import (
	"context"
	"errors"

	"github.com/aretw0/liftlog/pkg/adapters/memory"
	"github.com/aretw0/liftlog/pkg/domain"
	"github.com/aretw0/liftlog/pkg/ports"
)

// blockingReads delays GetItem until release is closed.
type blockingReads struct {
	ports.Storage
	release chan struct{}
}

func (b *blockingReads) GetItem(ctx context.Context, key string) (string, bool, error) {
	<-b.release
	return b.Storage.GetItem(ctx, key)
}

// plainStorage is a ports.Storage without async methods.
type plainStorage struct {
	store *memory.Store
}

func (p *plainStorage) GetItem(ctx context.Context, key string) (string, bool, error) {
	v, err := p.store.Get(ctx, key)
	if errors.Is(err, domain.ErrKeyNotFound) {
		return "", false, nil
	}
	return v, err == nil, err
}

func (p *plainStorage) SetItem(ctx context.Context, key, value string) error {
	return p.store.Set(ctx, key, value)
}

func (p *plainStorage) RemoveItem(ctx context.Context, key string) error {
	return p.store.Remove(ctx, key)
}
