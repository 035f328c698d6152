package index

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedisIndex(t *testing.T, ttl time.Duration) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s := NewRedis(RedisConfig{Client: rdb, TTL: ttl, CloseClient: true})
	t.Cleanup(func() { _ = s.Close(context.Background()) })
	return s, mr
}

func TestRedisAddRemoveMembers(t *testing.T) {
	ctx := context.Background()
	s, _ := setupRedisIndex(t, 0)

	require.NoError(t, s.Add(ctx, "idx:stats:p1", "2"))
	require.NoError(t, s.Add(ctx, "idx:stats:p1", "1"))
	require.NoError(t, s.Add(ctx, "idx:stats:p1", "1"))

	got, err := s.Members(ctx, "idx:stats:p1")
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, got)

	require.NoError(t, s.Remove(ctx, "idx:stats:p1", "1"))
	got, err = s.Members(ctx, "idx:stats:p1")
	require.NoError(t, err)
	assert.Equal(t, []string{"2"}, got)

	got, err = s.Members(ctx, "idx:stats:missing")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRedisAddRefreshesTTL(t *testing.T) {
	ctx := context.Background()
	s, mr := setupRedisIndex(t, time.Minute)

	require.NoError(t, s.Add(ctx, "idx:stats:p1", "1"))
	assert.Equal(t, time.Minute, mr.TTL("idx:stats:p1"))

	mr.FastForward(2 * time.Minute)
	got, err := s.Members(ctx, "idx:stats:p1")
	require.NoError(t, err)
	assert.Empty(t, got, "expired index set should read as empty")
}
