package kvstore

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedis(client), mr
}

func TestRedisSetGetDelete(t *testing.T) {
	st, _ := newTestRedis(t)
	ctx := context.Background()

	require.NoError(t, st.Set(ctx, "k1", []byte("v1"), time.Hour))

	got, err := st.Get(ctx, "k1")
	require.NoError(t, err)
	require.Equal(t, []byte("v1"), got)

	require.NoError(t, st.Delete(ctx, "k1"))
	_, err = st.Get(ctx, "k1")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRedisMissingKey(t *testing.T) {
	st, _ := newTestRedis(t)
	_, err := st.Get(context.Background(), "absent")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRedisTTLExpiry(t *testing.T) {
	st, mr := newTestRedis(t)
	ctx := context.Background()

	require.NoError(t, st.Set(ctx, "ephemeral", []byte("x"), time.Minute))
	mr.FastForward(2 * time.Minute)

	_, err := st.Get(ctx, "ephemeral")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRedisKeepTTLDoesNotExtend(t *testing.T) {
	st, mr := newTestRedis(t)
	ctx := context.Background()

	require.NoError(t, st.Set(ctx, "sess", []byte("a"), time.Minute))
	mr.FastForward(30 * time.Second)

	// Rewrite the value without touching the expiry.
	require.NoError(t, st.Set(ctx, "sess", []byte("b"), KeepTTL))

	got, err := st.Get(ctx, "sess")
	require.NoError(t, err)
	require.Equal(t, []byte("b"), got)

	mr.FastForward(31 * time.Second)
	_, err = st.Get(ctx, "sess")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRedisKeyPrefix(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	st := NewRedis(client, WithKeyPrefix("custom:"))
	require.NoError(t, st.Set(context.Background(), "k", []byte("v"), 0))
	require.True(t, mr.Exists("custom:k"))
}
