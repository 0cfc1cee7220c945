package alert

import (
	"context"
	"testing"

	"crypto-telegram-bot/internal/types"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisPersister(t *testing.T) (*RedisPersister, *miniredis.Miniredis) {
	t.Helper()
	server := miniredis.RunT(t)
	p := NewRedisPersister(redis.NewClient(&redis.Options{Addr: server.Addr()}), "test:")
	t.Cleanup(func() { p.Close() })
	require.NoError(t, p.Ping(context.Background()))
	return p, server
}

func TestRedisPersister(t *testing.T) {
	p, server := newTestRedisPersister(t)

	store := loadedStore(t, p)
	assert.True(t, server.Exists("test:min_alerts"))
	assert.True(t, server.Exists("test:max_alerts"))

	require.NoError(t, store.AddMin("42", "ethereum", 2000))
	raw, err := server.Get("test:min_alerts")
	require.NoError(t, err)
	assert.JSONEq(t, `{"42":{"ethereum":2000}}`, raw)

	restarted := loadedStore(t, p)
	assert.Equal(t, 2000.0, restarted.List("42").Min["ethereum"])
	assert.Empty(t, restarted.List("42").Max)
}

func TestRedisPersister_CorruptDocument(t *testing.T) {
	p, server := newTestRedisPersister(t)
	require.NoError(t, server.Set("test:max_alerts", "not json"))

	var storageErr *StorageError
	require.ErrorAs(t, NewStore(p).Load(), &storageErr)
	assert.Equal(t, types.MaxNamespace, storageErr.Namespace)
	assert.Equal(t, "load", storageErr.Op)
}

func TestRedisPersister_ServerGone(t *testing.T) {
	p, server := newTestRedisPersister(t)
	store := loadedStore(t, p)
	server.Close()

	var storageErr *StorageError
	require.ErrorAs(t, store.AddMax("42", "monero", 300), &storageErr)
	assert.True(t, store.List("42").Empty())
}
