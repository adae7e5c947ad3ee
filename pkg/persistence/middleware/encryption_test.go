package middleware_test

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"io"
	"testing"

	"github.com/aretw0/lattice/pkg/adapters/memory"
	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/persistence/middleware"
	"github.com/aretw0/lattice/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func generateKey(t *testing.T) []byte {
	t.Helper()
	k := make([]byte, middleware.KeySize)
	_, err := io.ReadFull(rand.Reader, k)
	require.NoError(t, err)
	return k
}

func encrypted(t *testing.T, cfg middleware.EncryptionConfig, next ports.RunStore) ports.RunStore {
	t.Helper()
	mw, err := middleware.NewEncryptionMiddleware(cfg)
	require.NoError(t, err)
	return mw(next)
}

func TestEncryptionMiddleware_Roundtrip(t *testing.T) {
	underlying := memory.NewStore()
	store := encrypted(t, middleware.EncryptionConfig{ActiveKey: generateKey(t)}, underlying)
	ctx := context.Background()

	output := json.RawMessage(`{"messages":[{"type":"message","role":"user","content":"my-secret-sauce"}]}`)
	require.NoError(t, store.Save(ctx, domain.RunSummary{ID: "run-1", Status: domain.RunCompleted, Steps: 4, Output: output}))

	raw, err := underlying.Load(ctx, "run-1")
	require.NoError(t, err)
	assert.NotContains(t, string(raw.Output), "my-secret-sauce")
	assert.Contains(t, string(raw.Output), "__encrypted__")
	assert.Equal(t, domain.RunCompleted, raw.Status, "metadata stays readable")
	assert.Equal(t, 4, raw.Steps)

	loaded, err := store.Load(ctx, "run-1")
	require.NoError(t, err)
	assert.JSONEq(t, string(output), string(loaded.Output))

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"run-1"}, ids)

	require.NoError(t, store.Delete(ctx, "run-1"))
	_, err = store.Load(ctx, "run-1")
	assert.ErrorIs(t, err, domain.ErrRunNotFound)
}

func TestEncryptionMiddleware_Contract(t *testing.T) {
	ports.RunStoreContract(t, encrypted(t, middleware.EncryptionConfig{ActiveKey: generateKey(t)}, memory.NewStore()))
}

func TestEncryptionMiddleware_KeyRotation(t *testing.T) {
	underlying := memory.NewStore()
	oldKey, newKey := generateKey(t), generateKey(t)
	ctx := context.Background()

	require.NoError(t, encrypted(t, middleware.EncryptionConfig{ActiveKey: oldKey}, underlying).
		Save(ctx, domain.RunSummary{ID: "old", Output: json.RawMessage(`{"n":1}`)}))

	rotated := encrypted(t, middleware.EncryptionConfig{ActiveKey: newKey, FallbackKeys: [][]byte{oldKey}}, underlying)
	loaded, err := rotated.Load(ctx, "old")
	require.NoError(t, err)
	assert.JSONEq(t, `{"n":1}`, string(loaded.Output))

	_, err = encrypted(t, middleware.EncryptionConfig{ActiveKey: newKey}, underlying).Load(ctx, "old")
	assert.ErrorContains(t, err, "failed to decrypt")
}

func TestEncryptionMiddleware_FailsSecure(t *testing.T) {
	underlying := memory.NewStore()
	ctx := context.Background()
	require.NoError(t, underlying.Save(ctx, domain.RunSummary{ID: "plain", Output: json.RawMessage(`{"n":1}`)}))

	_, err := encrypted(t, middleware.EncryptionConfig{ActiveKey: generateKey(t)}, underlying).Load(ctx, "plain")
	assert.ErrorContains(t, err, "missing encrypted data envelope")
}

func TestNewEncryptionMiddleware_KeySize(t *testing.T) {
	_, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: []byte("short")})
	assert.Error(t, err)
}
