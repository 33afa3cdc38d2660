package ports

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/aretw0/liftlog/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunKVStoreContract runs a suite of tests to verify that a KVStore implementation
// adheres to the defined interface contract.
func RunKVStoreContract(t *testing.T, store KVStore) {
	ctx := context.Background()
	prefix := "contract-" + time.Now().Format("20060102150405")

	t.Run("Set and Get", func(t *testing.T) {
		key := prefix + "-set"
		err := store.Set(ctx, key, `{"state":{"plans":[]},"version":0}`)
		require.NoError(t, err, "Set should not return error")

		got, err := store.Get(ctx, key)
		require.NoError(t, err, "Get should not return error")
		assert.Equal(t, `{"state":{"plans":[]},"version":0}`, got)
	})

	t.Run("Overwrite", func(t *testing.T) {
		key := prefix + "-overwrite"
		require.NoError(t, store.Set(ctx, key, "first"))
		require.NoError(t, store.Set(ctx, key, "second"))

		got, err := store.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, "second", got)
	})

	t.Run("Get Non-Existent", func(t *testing.T) {
		_, err := store.Get(ctx, "non-existent-"+prefix)
		assert.ErrorIs(t, err, domain.ErrKeyNotFound)
	})

	t.Run("Remove", func(t *testing.T) {
		key := prefix + "-remove"
		require.NoError(t, store.Set(ctx, key, "value"))

		err := store.Remove(ctx, key)
		require.NoError(t, err, "Remove should not return error")

		_, err = store.Get(ctx, key)
		assert.ErrorIs(t, err, domain.ErrKeyNotFound, "Get after Remove should return ErrKeyNotFound")
	})

	t.Run("Remove Non-Existent", func(t *testing.T) {
		assert.NoError(t, store.Remove(ctx, "never-written-"+prefix))
	})

	t.Run("Empty Key", func(t *testing.T) {
		assert.ErrorIs(t, store.Set(ctx, "", "value"), domain.ErrEmptyKey)
		_, err := store.Get(ctx, "")
		assert.ErrorIs(t, err, domain.ErrEmptyKey)
	})

	t.Run("Keys", func(t *testing.T) {
		lister, ok := store.(KeyLister)
		if !ok {
			t.Skip("store does not implement KeyLister")
		}

		k1 := fmt.Sprintf("%s-list-%d", prefix, 1)
		k2 := fmt.Sprintf("%s-list-%d", prefix, 2)
		require.NoError(t, store.Set(ctx, k1, "a"))
		require.NoError(t, store.Set(ctx, k2, "b"))
		defer func() {
			_ = store.Remove(ctx, k1)
			_ = store.Remove(ctx, k2)
		}()

		keys, err := lister.Keys(ctx)
		require.NoError(t, err)
		assert.Contains(t, keys, k1)
		assert.Contains(t, keys, k2)
	})
}
