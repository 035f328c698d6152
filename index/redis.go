package index

import (
	"context"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis keeps index sets in Redis so several processes share one index.
// Optionally, a TTL is refreshed on every Add to bound growth of abandoned sets.
type Redis struct {
	rdb         redis.UniversalClient
	ttl         time.Duration // 0 disables expiry
	closeClient bool
}

var _ Store = (*Redis)(nil)

type RedisConfig struct {
	Client      redis.UniversalClient
	TTL         time.Duration
	CloseClient bool // set true only if the index exclusively owns the client
}

func NewRedis(cfg RedisConfig) *Redis {
	return &Redis{rdb: cfg.Client, ttl: cfg.TTL, closeClient: cfg.CloseClient}
}

// Add issues SADD and, when a TTL is configured, EXPIRE in one round-trip.
func (s *Redis) Add(ctx context.Context, key, member string) error {
	if s.ttl <= 0 {
		return s.rdb.SAdd(ctx, key, member).Err()
	}
	_, err := s.rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
		p.SAdd(ctx, key, member)
		p.Expire(ctx, key, s.ttl)
		return nil
	})
	return err
}

// Remove issues SREM; Redis deletes the set when its last member goes.
func (s *Redis) Remove(ctx context.Context, key, member string) error {
	return s.rdb.SRem(ctx, key, member).Err()
}

func (s *Redis) Members(ctx context.Context, key string) ([]string, error) {
	out, err := s.rdb.SMembers(ctx, key).Result()
	if err != nil {
		return nil, err
	}
	sort.Strings(out)
	return out, nil
}

func (s *Redis) Close(context.Context) error {
	if s.closeClient {
		return s.rdb.Close()
	}
	return nil
}
