package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ritchermap/search-service/internal/domain/providers"
	"github.com/ritchermap/search-service/pkg/cachekeys"
)

// Cache classes. Every cached value belongs to a class, and the class
// decides its TTL.
const (
	CacheClassSearch          = "search"
	CacheClassAutocomplete    = "autocomplete"
	CacheClassTrending        = "trending"
	CacheClassRecommendations = "recommendations"
	CacheClassAnalytics       = "analytics"
	CacheClassPopular         = "popular"
	CacheClassUserSession     = "user_session"
	CacheClassAPIResponse     = "api_response"
	CacheClassCounters        = "counters"
)

// ttlSeconds is the per-class TTL policy
var ttlSeconds = map[string]int{
	CacheClassSearch:          300,
	CacheClassAutocomplete:    600,
	CacheClassTrending:        300,
	CacheClassRecommendations: 1800,
	CacheClassAnalytics:       600,
	CacheClassPopular:         900,
	CacheClassUserSession:     3600,
	CacheClassAPIResponse:     300,
	CacheClassCounters:        86400,
}

// CacheService wraps the cache provider with the TTL policy, JSON codec and
// tag-indexed invalidation. A cache outage is an always-miss cache: reads
// report a miss and writes report false, neither surfaces an error to the
// caller.
type CacheService struct {
	provider   providers.CacheProvider
	keys       *cachekeys.Builder
	defaultTTL int
}

// NewCacheService creates a new cache service
func NewCacheService(provider providers.CacheProvider, keys *cachekeys.Builder, defaultTTL int) *CacheService {
	if defaultTTL <= 0 {
		defaultTTL = 3600
	}
	return &CacheService{
		provider:   provider,
		keys:       keys,
		defaultTTL: defaultTTL,
	}
}

// Keys returns the key builder shared by all cache users
func (s *CacheService) Keys() *cachekeys.Builder {
	return s.keys
}

// TTLFor returns the TTL in seconds for a cache class
func (s *CacheService) TTLFor(class string) int {
	if ttl, ok := ttlSeconds[class]; ok {
		return ttl
	}
	return s.defaultTTL
}

// Get retrieves raw bytes; false on miss or provider failure
func (s *CacheService) Get(ctx context.Context, key string) ([]byte, bool) {
	value, err := s.provider.Get(ctx, key)
	if err != nil {
		if err != providers.ErrCacheMiss {
			log.Warn().Err(err).Str("key", key).Msg("cache read failed, treating as miss")
		}
		return nil, false
	}
	return value, true
}

// GetJSON retrieves and decodes a cached value into out
func (s *CacheService) GetJSON(ctx context.Context, key string, out any) bool {
	value, ok := s.Get(ctx, key)
	if !ok {
		return false
	}
	if err := json.Unmarshal(value, out); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache entry corrupt, treating as miss")
		return false
	}
	return true
}

// GetMany retrieves raw bytes for several keys at once. Missing keys are
// simply absent from the result; a provider failure returns an empty map.
func (s *CacheService) GetMany(ctx context.Context, keys []string) map[string][]byte {
	if len(keys) == 0 {
		return map[string][]byte{}
	}
	values, err := s.provider.GetMulti(ctx, keys)
	if err != nil {
		log.Warn().Err(err).Int("keys", len(keys)).Msg("cache multi-read failed, treating as miss")
		return map[string][]byte{}
	}
	return values
}

// SetMany stores raw bytes for several keys in one round trip, all under
// the same class TTL
func (s *CacheService) SetMany(ctx context.Context, items map[string][]byte, class string) bool {
	if len(items) == 0 {
		return true
	}
	if err := s.provider.SetMulti(ctx, items, s.TTLFor(class)); err != nil {
		log.Warn().Err(err).Int("keys", len(items)).Msg("cache multi-write failed")
		return false
	}
	return true
}

// Set stores raw bytes under a class TTL
func (s *CacheService) Set(ctx context.Context, key string, value []byte, class string) bool {
	if err := s.provider.Set(ctx, key, value, s.TTLFor(class)); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache write failed")
		return false
	}
	return true
}

// SetJSON encodes and stores a value under a class TTL
func (s *CacheService) SetJSON(ctx context.Context, key string, value any, class string) bool {
	data, err := json.Marshal(value)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("failed to encode cache value")
		return false
	}
	return s.Set(ctx, key, data, class)
}

// SetJSONWithTags stores a value and registers it under each dependency
// tag, so a later InvalidateTag removes it before its TTL runs out
func (s *CacheService) SetJSONWithTags(ctx context.Context, key string, value any, class string, tags []string) bool {
	if !s.SetJSON(ctx, key, value, class) {
		return false
	}

	for _, tag := range tags {
		tagKey := s.tagKey(tag)
		if err := s.provider.SAdd(ctx, tagKey, key); err != nil {
			log.Warn().Err(err).Str("tag", tag).Msg("failed to register cache tag")
			continue
		}
		// The tag set outlives every entry it indexes; stale members are
		// harmless deletes.
		if err := s.provider.Expire(ctx, tagKey, 24*time.Hour); err != nil {
			log.Warn().Err(err).Str("tag", tag).Msg("failed to expire cache tag")
		}
	}
	return true
}

// InvalidateTag deletes every cached entry registered under a tag and the
// tag set itself, returning the number of entries removed
func (s *CacheService) InvalidateTag(ctx context.Context, tag string) int {
	tagKey := s.tagKey(tag)

	members, err := s.provider.SMembers(ctx, tagKey)
	if err != nil {
		log.Warn().Err(err).Str("tag", tag).Msg("failed to read cache tag")
		return 0
	}
	if len(members) == 0 {
		return 0
	}

	deleted, err := s.provider.DeleteMulti(ctx, members)
	if err != nil {
		log.Warn().Err(err).Str("tag", tag).Msg("failed to invalidate tagged entries")
	}
	if err := s.provider.Delete(ctx, tagKey); err != nil {
		log.Warn().Err(err).Str("tag", tag).Msg("failed to drop cache tag")
	}
	return deleted
}

func (s *CacheService) tagKey(tag string) string {
	return s.keys.Key("tag", tag)
}

// Delete removes one entry
func (s *CacheService) Delete(ctx context.Context, key string) bool {
	if err := s.provider.Delete(ctx, key); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache delete failed")
		return false
	}
	return true
}

// DeletePattern removes all entries matching a glob pattern and returns the
// number removed
func (s *CacheService) DeletePattern(ctx context.Context, pattern string) int {
	deleted, err := s.provider.DeletePattern(ctx, pattern)
	if err != nil {
		log.Warn().Err(err).Str("pattern", pattern).Msg("cache pattern delete failed")
	}
	return deleted
}

// Increment bumps a counter, creating it with the counters TTL
func (s *CacheService) Increment(ctx context.Context, key string, amount int64) {
	value, err := s.provider.Increment(ctx, key, amount)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("counter increment failed")
		return
	}
	if value == amount {
		// First write of this counter, attach its lifetime
		if err := s.provider.Expire(ctx, key, time.Duration(s.TTLFor(CacheClassCounters))*time.Second); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("counter expire failed")
		}
	}
}

// ZIncrBy bumps a member of a sorted set, attaching ttl on first touch
func (s *CacheService) ZIncrBy(ctx context.Context, key, member string, delta float64, ttl time.Duration) {
	if err := s.provider.ZIncrBy(ctx, key, member, delta); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("sorted set increment failed")
		return
	}
	if ttl > 0 {
		if err := s.provider.Expire(ctx, key, ttl); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("sorted set expire failed")
		}
	}
}

// ZTop returns the top members of a sorted set by descending score
func (s *CacheService) ZTop(ctx context.Context, key string, count int) []providers.ZMember {
	members, err := s.provider.ZRevRangeWithScores(ctx, key, count)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("sorted set read failed")
		return nil
	}
	return members
}
