// Package archive stores assembled planner payloads in blob storage
// for audit.
package archive

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisArchive writes payload snapshots to Redis under a key namespace.
type RedisArchive struct {
	client    *redis.Client
	namespace string
	ttl       time.Duration
}

// NewRedisArchive creates an archive. A zero ttl keeps snapshots until
// evicted externally.
func NewRedisArchive(client *redis.Client, namespace string, ttl time.Duration) *RedisArchive {
	if namespace == "" {
		namespace = "planner:archive"
	}
	return &RedisArchive{client: client, namespace: namespace, ttl: ttl}
}

// Put stores one snapshot under namespace:key.
func (a *RedisArchive) Put(ctx context.Context, key string, data []byte) error {
	full := fmt.Sprintf("%s:%s", a.namespace, key)
	if err := a.client.Set(ctx, full, data, a.ttl).Err(); err != nil {
		return fmt.Errorf("archive put %s: %w", full, err)
	}
	return nil
}
