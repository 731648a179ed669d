// Package kvstore is the durable TTL'd key-value map backing sessions and
// provider tokens. It is deliberately tiny: get/set/delete by string key with
// per-key TTL, used as an opaque map, never as a relational store.
package kvstore

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("key not found")

// KeepTTL leaves an existing key's expiry untouched on Set. Used to refresh
// session metadata without extending the hard TTL ceiling.
const KeepTTL time.Duration = -1

type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
