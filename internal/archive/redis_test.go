package archive

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisArchivePut(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	ctx := context.Background()

	t.Run("stores under namespaced key", func(t *testing.T) {
		a := NewRedisArchive(client, "planner:archive", 0)
		require.NoError(t, a.Put(ctx, "host-1/s-1.json", []byte(`{"ok":true}`)))

		got, err := mr.Get("planner:archive:host-1/s-1.json")
		require.NoError(t, err)
		assert.Equal(t, `{"ok":true}`, got)
	})

	t.Run("applies ttl", func(t *testing.T) {
		a := NewRedisArchive(client, "planner:archive", time.Hour)
		require.NoError(t, a.Put(ctx, "host-1/s-2.json", []byte("x")))
		assert.Equal(t, time.Hour, mr.TTL("planner:archive:host-1/s-2.json"))
	})

	t.Run("default namespace", func(t *testing.T) {
		a := NewRedisArchive(client, "", 0)
		require.NoError(t, a.Put(ctx, "k", []byte("v")))
		assert.True(t, mr.Exists("planner:archive:k"))
	})
}
