package cache

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisStoreWithClient(client, RedisConfig{}), mr
}

func TestRedisStore_Contract(t *testing.T) {
	runStoreContract(t, func(t *testing.T) Store {
		s, _ := setupRedisStore(t)
		return s
	})
}

func TestRedisStore_NoExpiry(t *testing.T) {
	s, mr := setupRedisStore(t)
	ctx := context.Background()

	require.NoError(t, s.SetForever(ctx, "en_blog", []byte("page")))

	assert.True(t, mr.Exists("flatten:en_blog"))
	assert.Zero(t, mr.TTL("flatten:en_blog"), "pages must be stored without TTL")
}

func TestRedisStore_IgnoresForeignKeys(t *testing.T) {
	s, mr := setupRedisStore(t)
	ctx := context.Background()

	require.NoError(t, mr.Set("session:blog_post-1", "other app"))
	require.NoError(t, s.SetForever(ctx, "blog_post-1", []byte("page")))

	n, err := s.DeleteMatching(ctx, "", "blog_post-1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.True(t, mr.Exists("session:blog_post-1"), "keys outside the prefix must not be touched")

	require.NoError(t, s.Clear(ctx, ""))
	assert.True(t, mr.Exists("session:blog_post-1"))
}

func TestRedisStore_GetFailureIsMiss(t *testing.T) {
	s, mr := setupRedisStore(t)
	ctx := context.Background()

	require.NoError(t, s.SetForever(ctx, "k", []byte("v")))
	mr.Close()

	val, ok := s.Get(ctx, "k")
	assert.False(t, ok)
	assert.Nil(t, val)
	assert.Error(t, s.Ping(ctx))
}

func TestRedisStore_LookupSeparatesMissFromFailure(t *testing.T) {
	s, mr := setupRedisStore(t)
	ctx := context.Background()

	val, ok, err := s.lookup(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, val)

	mr.Close()
	_, ok, err = s.lookup(ctx, "missing")
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestNewRedisStore_RequiresAddr(t *testing.T) {
	_, err := NewRedisStore(context.Background(), RedisConfig{})
	assert.Error(t, err)
}

func TestEscapeGlob(t *testing.T) {
	assert.Equal(t, `a\*b\?c\[d\]e\\f`, escapeGlob(`a*b?c[d]e\f`))
	assert.Equal(t, "plain_key", escapeGlob("plain_key"))
}
