// Package redisstore provides a storage.KV backend on Redis. Keys are
// namespaced with a prefix and both workspace keys are written in one
// MULTI/EXEC transaction.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/goliatone/go-formbuilder/pkg/storage"
)

const defaultPrefix = "formbuilder:"

// Option configures the backend.
type Option func(*KV)

// WithPrefix overrides the key namespace.
func WithPrefix(prefix string) Option {
	return func(kv *KV) {
		kv.prefix = prefix
	}
}

// KV stores entries as plain Redis strings.
type KV struct {
	client redis.UniversalClient
	prefix string
	owned  bool
}

// Connect parses a redis:// URL, creates a client and pings it.
func Connect(ctx context.Context, url string, opts ...Option) (*KV, error) {
	parsed, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redisstore: invalid url: %w", err)
	}
	client := redis.NewClient(parsed)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redisstore: ping: %w", err)
	}

	kv := New(client, opts...)
	kv.owned = true
	return kv, nil
}

// New wraps an existing client. The caller keeps ownership of client.
func New(client redis.UniversalClient, opts ...Option) *KV {
	kv := &KV{client: client, prefix: defaultPrefix}
	for _, opt := range opts {
		if opt != nil {
			opt(kv)
		}
	}
	return kv
}

// Key returns the namespaced Redis key for a logical key.
func (kv *KV) Key(key string) string {
	return kv.prefix + key
}

// Get implements storage.KV.
func (kv *KV) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := kv.client.Get(ctx, kv.Key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redisstore: get %s: %w", key, err)
	}
	return value, nil
}

// Put implements storage.KV.
func (kv *KV) Put(ctx context.Context, entries map[string][]byte) error {
	_, err := kv.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for key, value := range entries {
			if value == nil {
				pipe.Del(ctx, kv.Key(key))
				continue
			}
			pipe.Set(ctx, kv.Key(key), value, 0)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redisstore: put: %w", err)
	}
	return nil
}

// Close releases the client when Connect created it.
func (kv *KV) Close() error {
	if kv == nil || !kv.owned {
		return nil
	}
	return kv.client.Close()
}
