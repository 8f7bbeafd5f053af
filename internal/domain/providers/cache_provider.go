package providers

import (
	"context"
	"time"
)

// ErrCacheMiss is returned by Get when a key is absent. Adapters must map
// their store's not-found signal to this error so callers can tell a miss
// from an outage.
type cacheMissError struct{}

func (cacheMissError) Error() string { return "cache: key not found" }

// ErrCacheMiss marks an absent key
var ErrCacheMiss error = cacheMissError{}

// ZMember is one member/score pair of a sorted set
type ZMember struct {
	Member string
	Score  float64
}

// CacheProvider is the key-value store boundary. It carries no domain
// semantics, only bytes with TTLs plus the counter and sorted-set
// primitives the analytics layer needs.
type CacheProvider interface {
	// Get retrieves a value; ErrCacheMiss when absent
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value with an expiration in seconds
	Set(ctx context.Context, key string, value []byte, expirationSeconds int) error

	// Delete removes a key
	Delete(ctx context.Context, key string) error

	// Exists checks whether a key is present
	Exists(ctx context.Context, key string) (bool, error)

	// GetMulti retrieves many keys; absent keys are simply missing from
	// the result map
	GetMulti(ctx context.Context, keys []string) (map[string][]byte, error)

	// SetMulti stores many entries under one TTL; entries are independent
	SetMulti(ctx context.Context, items map[string][]byte, expirationSeconds int) error

	// DeleteMulti removes many keys; returns the number deleted
	DeleteMulti(ctx context.Context, keys []string) (int, error)

	// DeletePattern removes all keys matching a glob pattern and returns
	// the number deleted
	DeletePattern(ctx context.Context, pattern string) (int, error)

	// Increment adds amount to an integer key, creating it at zero
	Increment(ctx context.Context, key string, amount int64) (int64, error)

	// Expire sets a key's TTL
	Expire(ctx context.Context, key string, ttl time.Duration) error

	// TTL returns a key's remaining lifetime
	TTL(ctx context.Context, key string) (time.Duration, error)

	// ZIncrBy increments a member's score in a sorted set
	ZIncrBy(ctx context.Context, key, member string, delta float64) error

	// ZRevRangeWithScores returns the top members of a sorted set by
	// descending score
	ZRevRangeWithScores(ctx context.Context, key string, count int) ([]ZMember, error)

	// SAdd adds members to a set (used for dependency-tag indexes)
	SAdd(ctx context.Context, key string, members ...string) error

	// SMembers returns all members of a set
	SMembers(ctx context.Context, key string) ([]string, error)
}
