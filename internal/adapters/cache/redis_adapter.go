package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ritchermap/search-service/internal/domain/providers"
	redisclient "github.com/ritchermap/search-service/internal/infrastructure/clients/redis"
)

// RedisAdapter implements the CacheProvider interface using Redis
type RedisAdapter struct {
	client *redisclient.Client
}

var _ providers.CacheProvider = (*RedisAdapter)(nil)

// NewRedisAdapter creates a new Redis cache adapter
func NewRedisAdapter(client *redisclient.Client) *RedisAdapter {
	return &RedisAdapter{
		client: client,
	}
}

// Get retrieves a value from cache
func (a *RedisAdapter) Get(ctx context.Context, key string) ([]byte, error) {
	result, err := a.client.Client().Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, providers.ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get from cache: %w", err)
	}
	return result, nil
}

// Set stores a value in cache with expiration
func (a *RedisAdapter) Set(ctx context.Context, key string, value []byte, expirationSeconds int) error {
	expiration := time.Duration(expirationSeconds) * time.Second
	if err := a.client.Client().Set(ctx, key, value, expiration).Err(); err != nil {
		return fmt.Errorf("failed to set in cache: %w", err)
	}
	return nil
}

// Delete removes a value from cache
func (a *RedisAdapter) Delete(ctx context.Context, key string) error {
	if err := a.client.Client().Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to delete from cache: %w", err)
	}
	return nil
}

// Exists checks if a key exists in cache
func (a *RedisAdapter) Exists(ctx context.Context, key string) (bool, error) {
	result, err := a.client.Client().Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check existence in cache: %w", err)
	}
	return result > 0, nil
}

// GetMulti retrieves many keys in one round trip. Absent keys are left out
// of the result map.
func (a *RedisAdapter) GetMulti(ctx context.Context, keys []string) (map[string][]byte, error) {
	if len(keys) == 0 {
		return map[string][]byte{}, nil
	}

	values, err := a.client.Client().MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to mget from cache: %w", err)
	}

	result := make(map[string][]byte, len(keys))
	for i, v := range values {
		if v == nil {
			continue
		}
		if s, ok := v.(string); ok {
			result[keys[i]] = []byte(s)
		}
	}
	return result, nil
}

// SetMulti stores many entries with one TTL via a pipeline
func (a *RedisAdapter) SetMulti(ctx context.Context, items map[string][]byte, expirationSeconds int) error {
	if len(items) == 0 {
		return nil
	}

	expiration := time.Duration(expirationSeconds) * time.Second
	pipe := a.client.Client().Pipeline()
	for key, value := range items {
		pipe.Set(ctx, key, value, expiration)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to mset in cache: %w", err)
	}
	return nil
}

// DeleteMulti removes many keys and returns the number deleted
func (a *RedisAdapter) DeleteMulti(ctx context.Context, keys []string) (int, error) {
	if len(keys) == 0 {
		return 0, nil
	}

	deleted, err := a.client.Client().Del(ctx, keys...).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to delete from cache: %w", err)
	}
	return int(deleted), nil
}

// DeletePattern removes all keys matching a glob pattern using SCAN, never
// KEYS, so large keyspaces do not block the server.
func (a *RedisAdapter) DeletePattern(ctx context.Context, pattern string) (int, error) {
	var (
		cursor  uint64
		deleted int
	)

	for {
		keys, next, err := a.client.Client().Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return deleted, fmt.Errorf("failed to scan cache keys: %w", err)
		}

		if len(keys) > 0 {
			n, err := a.client.Client().Del(ctx, keys...).Result()
			if err != nil {
				return deleted, fmt.Errorf("failed to delete scanned keys: %w", err)
			}
			deleted += int(n)
		}

		cursor = next
		if cursor == 0 {
			return deleted, nil
		}
	}
}

// Increment adds amount to an integer key
func (a *RedisAdapter) Increment(ctx context.Context, key string, amount int64) (int64, error) {
	result, err := a.client.Client().IncrBy(ctx, key, amount).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to increment counter: %w", err)
	}
	return result, nil
}

// Expire sets a key's TTL
func (a *RedisAdapter) Expire(ctx context.Context, key string, ttl time.Duration) error {
	if err := a.client.Client().Expire(ctx, key, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set expiration: %w", err)
	}
	return nil
}

// TTL returns a key's remaining lifetime
func (a *RedisAdapter) TTL(ctx context.Context, key string) (time.Duration, error) {
	ttl, err := a.client.Client().TTL(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read ttl: %w", err)
	}
	return ttl, nil
}

// ZIncrBy increments a member's score in a sorted set
func (a *RedisAdapter) ZIncrBy(ctx context.Context, key, member string, delta float64) error {
	if err := a.client.Client().ZIncrBy(ctx, key, delta, member).Err(); err != nil {
		return fmt.Errorf("failed to increment sorted set member: %w", err)
	}
	return nil
}

// ZRevRangeWithScores returns the top members of a sorted set by descending score
func (a *RedisAdapter) ZRevRangeWithScores(ctx context.Context, key string, count int) ([]providers.ZMember, error) {
	if count <= 0 {
		return nil, nil
	}

	entries, err := a.client.Client().ZRevRangeWithScores(ctx, key, 0, int64(count-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read sorted set: %w", err)
	}

	members := make([]providers.ZMember, 0, len(entries))
	for _, e := range entries {
		member, ok := e.Member.(string)
		if !ok {
			continue
		}
		members = append(members, providers.ZMember{Member: member, Score: e.Score})
	}
	return members, nil
}

// SAdd adds members to a set
func (a *RedisAdapter) SAdd(ctx context.Context, key string, members ...string) error {
	if len(members) == 0 {
		return nil
	}
	args := make([]interface{}, len(members))
	for i, m := range members {
		args[i] = m
	}
	if err := a.client.Client().SAdd(ctx, key, args...).Err(); err != nil {
		return fmt.Errorf("failed to add set members: %w", err)
	}
	return nil
}

// SMembers returns all members of a set
func (a *RedisAdapter) SMembers(ctx context.Context, key string) ([]string, error) {
	members, err := a.client.Client().SMembers(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read set members: %w", err)
	}
	return members, nil
}
