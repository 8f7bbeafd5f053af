package cache

import (
	"context"
	"time"

	"github.com/ritchermap/search-service/internal/domain/providers"
)

// NoopAdapter is the cache used when Redis is unreachable at startup. Every
// read is a miss and every write is accepted and discarded, so the service
// degrades to uncached operation instead of failing.
type NoopAdapter struct{}

// NewNoopAdapter creates a cache adapter that never stores anything
func NewNoopAdapter() *NoopAdapter {
	return &NoopAdapter{}
}

func (a *NoopAdapter) Get(ctx context.Context, key string) ([]byte, error) {
	return nil, providers.ErrCacheMiss
}

func (a *NoopAdapter) Set(ctx context.Context, key string, value []byte, expirationSeconds int) error {
	return nil
}

func (a *NoopAdapter) Delete(ctx context.Context, key string) error {
	return nil
}

func (a *NoopAdapter) Exists(ctx context.Context, key string) (bool, error) {
	return false, nil
}

func (a *NoopAdapter) GetMulti(ctx context.Context, keys []string) (map[string][]byte, error) {
	return map[string][]byte{}, nil
}

func (a *NoopAdapter) SetMulti(ctx context.Context, items map[string][]byte, expirationSeconds int) error {
	return nil
}

func (a *NoopAdapter) DeleteMulti(ctx context.Context, keys []string) (int, error) {
	return 0, nil
}

func (a *NoopAdapter) DeletePattern(ctx context.Context, pattern string) (int, error) {
	return 0, nil
}

func (a *NoopAdapter) Increment(ctx context.Context, key string, amount int64) (int64, error) {
	return 0, nil
}

func (a *NoopAdapter) Expire(ctx context.Context, key string, ttl time.Duration) error {
	return nil
}

func (a *NoopAdapter) TTL(ctx context.Context, key string) (time.Duration, error) {
	return 0, nil
}

func (a *NoopAdapter) ZIncrBy(ctx context.Context, key, member string, delta float64) error {
	return nil
}

func (a *NoopAdapter) ZRevRangeWithScores(ctx context.Context, key string, count int) ([]providers.ZMember, error) {
	return nil, nil
}

func (a *NoopAdapter) SAdd(ctx context.Context, key string, members ...string) error {
	return nil
}

func (a *NoopAdapter) SMembers(ctx context.Context, key string) ([]string, error) {
	return nil, nil
}
