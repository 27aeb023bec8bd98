package store

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseStore(t *testing.T, s IntentStore) {
	ctx := context.Background()

	id, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, id)

	require.NoError(t, s.Save(ctx, "abc"))
	id, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "abc", id)

	require.NoError(t, s.Save(ctx, "def"))
	id, _ = s.Load(ctx)
	assert.Equal(t, "def", id)

	require.NoError(t, s.Clear(ctx))
	id, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, id)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	s, err := NewRedisStore(context.Background(), RedisConfig{Address: addr, Key: "swapper:test:intent_id"})
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.Clear(context.Background()))

	exerciseStore(t, s)
}

func TestNewRedisStoreRequiresAddress(t *testing.T) {
	_, err := NewRedisStore(context.Background(), RedisConfig{})
	assert.Error(t, err)
}
