package kvstore

import (
	"context"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Redis is a redis-backed Store. Safe for multi-instance deployments; TTL
// enforcement is delegated to redis itself.
type Redis struct {
	client    goredis.Cmdable
	keyPrefix string
}

var _ Store = (*Redis)(nil)

type RedisOption func(*Redis)

// WithKeyPrefix sets the redis key prefix (default "adsgw:").
func WithKeyPrefix(prefix string) RedisOption {
	return func(r *Redis) { r.keyPrefix = prefix }
}

// NewRedis wraps a connected *goredis.Client or *goredis.ClusterClient.
func NewRedis(client goredis.Cmdable, opts ...RedisOption) *Redis {
	r := &Redis{client: client, keyPrefix: "adsgw:"}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := r.client.Get(ctx, r.keyPrefix+key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl == KeepTTL {
		return r.client.SetArgs(ctx, r.keyPrefix+key, value, goredis.SetArgs{KeepTTL: true}).Err()
	}
	return r.client.Set(ctx, r.keyPrefix+key, value, ttl).Err()
}

func (r *Redis) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.keyPrefix+key).Err()
}
