package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Rrens/ddoksori/internal/storage"
	"github.com/redis/go-redis/v9"
)

// KV implements storage.Backend on Redis strings.
// A non-zero ttl is applied on every write, so idle keys disappear.
type KV struct {
	client *Client
	prefix string
	ttl    time.Duration
}

// NewKV creates a Redis backend whose keys live under prefix
func NewKV(client *Client, prefix string, ttl time.Duration) *KV {
	return &KV{client: client, prefix: prefix, ttl: ttl}
}

func (k *KV) Name() string {
	return "redis"
}

func (k *KV) key(key string) string {
	return fmt.Sprintf("%s%s", k.prefix, key)
}

func (k *KV) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := k.client.rdb.Get(ctx, k.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get key: %w", err)
	}
	return data, nil
}

func (k *KV) Set(ctx context.Context, key string, value []byte) error {
	if err := k.client.rdb.Set(ctx, k.key(key), value, k.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set key: %w", err)
	}
	return nil
}

func (k *KV) Delete(ctx context.Context, key string) error {
	if err := k.client.rdb.Del(ctx, k.key(key)).Err(); err != nil {
		return fmt.Errorf("failed to delete key: %w", err)
	}
	return nil
}

// DeletePrefix scans and removes all keys under prefix
func (k *KV) DeletePrefix(ctx context.Context, prefix string) error {
	pattern := escapeGlob(k.key(prefix)) + "*"
	var cursor uint64

	for {
		keys, nextCursor, err := k.client.rdb.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return fmt.Errorf("failed to scan keys: %w", err)
		}

		if len(keys) > 0 {
			if err := k.client.rdb.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("failed to delete keys: %w", err)
			}
		}

		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}

	return nil
}

// escapeGlob quotes the characters SCAN MATCH treats as wildcards
func escapeGlob(s string) string {
	return globReplacer.Replace(s)
}

var globReplacer = strings.NewReplacer(`\`, `\\`, "*", `\*`, "?", `\?`, "[", `\[`, "]", `\]`)
