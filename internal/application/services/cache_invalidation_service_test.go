package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ritchermap/search-service/internal/domain/entities"
	"github.com/ritchermap/search-service/internal/domain/providers"
	"github.com/ritchermap/search-service/pkg/cachekeys"
)

func newInvalidationFixture() (*CacheInvalidationService, *CacheService, *fakeCacheProvider, *fakeEventBus) {
	provider := newFakeCacheProvider()
	cache := NewCacheService(provider, cachekeys.NewBuilder("test"), 300)
	bus := newFakeEventBus()
	return NewCacheInvalidationService(cache, bus), cache, provider, bus
}

func TestIndexedEventInvalidatesTaggedEntries(t *testing.T) {
	svc, cache, provider, bus := newInvalidationFixture()
	ctx := context.Background()

	require.True(t, cache.SetJSONWithTags(ctx, "test:search:a", "v", CacheClassSearch, []string{"collection:markers", "game:g1"}))
	require.True(t, cache.SetJSONWithTags(ctx, "test:search:b", "v", CacheClassSearch, []string{"collection:games"}))

	require.NoError(t, svc.Start())
	defer svc.Stop()

	require.NoError(t, bus.Publish(ctx, providers.EventChannelCatalogUpdates, &entities.CatalogEvent{
		ID:         "e1",
		EventType:  entities.CatalogEventIndexed,
		Collection: "markers",
		ItemID:     "m1",
		GameID:     "g1",
	}))

	assert.Eventually(t, func() bool {
		provider.mu.Lock()
		defer provider.mu.Unlock()
		_, ok := provider.data["test:search:a"]
		return !ok
	}, time.Second, 5*time.Millisecond, "marker-tagged entry dropped")

	var out string
	assert.True(t, cache.GetJSON(ctx, "test:search:b", &out), "games-tagged entry untouched")
}

func TestReindexedEventDropsDerivedGroups(t *testing.T) {
	svc, cache, provider, bus := newInvalidationFixture()
	ctx := context.Background()

	require.True(t, cache.SetJSON(ctx, cache.Keys().Key("search", "q"), "v", CacheClassSearch))
	require.True(t, cache.SetJSON(ctx, cache.Keys().Key("trending", "queries"), "v", CacheClassTrending))
	require.True(t, cache.SetJSON(ctx, cache.Keys().Key("recommendations", "u1"), "v", CacheClassRecommendations))
	require.True(t, cache.SetJSON(ctx, cache.Keys().Key("counter", "search_count"), "v", CacheClassCounters))

	require.NoError(t, svc.Start())
	defer svc.Stop()

	require.NoError(t, bus.Publish(ctx, providers.EventChannelCatalogUpdates, &entities.CatalogEvent{
		ID:        "e2",
		EventType: entities.CatalogEventReindexed,
	}))

	assert.Eventually(t, func() bool {
		provider.mu.Lock()
		defer provider.mu.Unlock()
		_, search := provider.data["test:search:q"]
		_, trending := provider.data["test:trending:queries"]
		_, recs := provider.data["test:recommendations:u1"]
		return !search && !trending && !recs
	}, time.Second, 5*time.Millisecond)

	var out string
	assert.True(t, cache.GetJSON(ctx, cache.Keys().Key("counter", "search_count"), &out), "counters survive a reindex")
}

func TestInvalidateAll(t *testing.T) {
	svc, cache, _, _ := newInvalidationFixture()
	ctx := context.Background()

	require.True(t, cache.SetJSON(ctx, cache.Keys().Key("search", "q"), "v", CacheClassSearch))
	require.True(t, cache.SetJSON(ctx, cache.Keys().Key("popular", "marker"), "v", CacheClassPopular))

	removed := svc.InvalidateAll(ctx)
	assert.Equal(t, 2, removed)
}
