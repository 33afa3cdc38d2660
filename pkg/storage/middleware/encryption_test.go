package middleware_test

import (
	"context"
	"crypto/rand"
	"io"
	"strings"
	"testing"

	"github.com/aretw0/liftlog/pkg/adapters/memory"
	"github.com/aretw0/liftlog/pkg/ports"
	"github.com/aretw0/liftlog/pkg/storage/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func generateKey(t *testing.T) []byte {
	t.Helper()
	k := make([]byte, 32)
	_, err := io.ReadFull(rand.Reader, k)
	require.NoError(t, err)
	return k
}

func TestEncryptionMiddleware_Contract(t *testing.T) {
	mw := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	ports.RunKVStoreContract(t, mw(memory.NewStore()))
}

func TestEncryptionMiddleware_Roundtrip(t *testing.T) {
	underlying := memory.NewStore()
	secure := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})(underlying)
	ctx := context.Background()

	plain := `{"state":{"enabled":true,"reminderTime":"06:00"},"version":0}`
	require.NoError(t, secure.Set(ctx, "notification-prefs", plain))

	stored, err := underlying.Get(ctx, "notification-prefs")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stored, middleware.EncryptedPrefix))
	assert.NotContains(t, stored, "reminderTime")

	got, err := secure.Get(ctx, "notification-prefs")
	require.NoError(t, err)
	assert.Equal(t, plain, got)
}

func TestEncryptionMiddleware_KeyRotation(t *testing.T) {
	underlying := memory.NewStore()
	oldKey, newKey := generateKey(t), generateKey(t)
	ctx := context.Background()

	oldStore := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: oldKey})(underlying)
	require.NoError(t, oldStore.Set(ctx, "k", "written-with-old-key"))

	newStore := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
		ActiveKey:    newKey,
		FallbackKeys: [][]byte{oldKey},
	})(underlying)

	got, err := newStore.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "written-with-old-key", got)

	require.NoError(t, newStore.Set(ctx, "k", "written-with-new-key"))
	_, err = oldStore.Get(ctx, "k")
	assert.Error(t, err, "old key alone cannot read values re-encrypted with the new key")
}

func TestEncryptionMiddleware_Plaintext(t *testing.T) {
	underlying := memory.NewStore()
	ctx := context.Background()
	require.NoError(t, underlying.Set(ctx, "legacy", "plain"))

	strict := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})(underlying)
	_, err := strict.Get(ctx, "legacy")
	assert.ErrorIs(t, err, middleware.ErrNotEncrypted)

	lenient := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
		ActiveKey:      generateKey(t),
		AllowPlaintext: true,
	})(underlying)
	got, err := lenient.Get(ctx, "legacy")
	require.NoError(t, err)
	assert.Equal(t, "plain", got)
}

func TestEncryptionMiddleware_InvalidKey(t *testing.T) {
	assert.Panics(t, func() {
		middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: []byte("short-key")})
	})
}
