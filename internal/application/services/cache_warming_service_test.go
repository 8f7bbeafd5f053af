package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ritchermap/search-service/internal/domain/entities"
	"github.com/ritchermap/search-service/internal/domain/repositories"
	"github.com/ritchermap/search-service/internal/query"
	"github.com/ritchermap/search-service/pkg/cachekeys"
	"github.com/ritchermap/search-service/pkg/textutil"
)

type warmingFixture struct {
	svc       *CacheWarmingService
	search    *SearchService
	index     *fakeIndexRepo
	analytics *fakeAnalyticsRepo
	cache     *fakeCacheProvider
}

func newWarmingFixture() *warmingFixture {
	cacheProvider := newFakeCacheProvider()
	cache := NewCacheService(cacheProvider, cachekeys.NewBuilder("test"), 300)
	text := textutil.NewProcessor()

	analyticsRepo := &fakeAnalyticsRepo{
		trending: []*entities.TrendingQuery{
			{Query: "korok forest", SearchCount: 12},
			{Query: "shrine", SearchCount: 7},
		},
	}
	analytics := NewAnalyticsService(analyticsRepo, cache, text)

	index := newFakeIndexRepo()
	index.result = &repositories.RawSearchResult{
		Hits:      []repositories.RawHit{{Collection: "markers", ID: "m1", Score: 5, Document: map[string]any{"title": "Korok Seed"}}},
		TotalHits: 1,
	}

	builder := query.NewBuilder(text)
	mapper := NewResultMapper(text, index)
	search := NewSearchService(builder, index, mapper, cache, analytics, text)

	return &warmingFixture{
		svc:       NewCacheWarmingService(search, analytics),
		search:    search,
		index:     index,
		analytics: analyticsRepo,
		cache:     cacheProvider,
	}
}

func TestWarmCachePopulatesSearchEntries(t *testing.T) {
	fx := newWarmingFixture()

	fx.svc.WarmCache(context.Background())

	// One index round trip per trending query; a real user issuing the
	// same search afterwards is served from cache.
	executed := fx.index.executeCount()
	require.GreaterOrEqual(t, executed, 2)

	_, err := fx.search.Search(context.Background(), &entities.SearchRequest{
		Query:    "korok forest",
		Page:     1,
		PageSize: 20,
	}, RequestAttribution{})
	require.NoError(t, err)
	assert.Equal(t, executed, fx.index.executeCount(), "warmed query must be a cache hit")
}

func TestWarmCacheRecordsNoSearchEvents(t *testing.T) {
	fx := newWarmingFixture()

	fx.svc.WarmCache(context.Background())

	// Tracking is asynchronous when it happens at all, so give any stray
	// goroutine a chance to land before asserting silence.
	assert.Never(t, func() bool {
		return fx.analytics.searchCount() > 0
	}, 100*time.Millisecond, 10*time.Millisecond, "warming must not write search events")
}

func TestWarmCacheSurvivesTrendingFailure(t *testing.T) {
	fx := newWarmingFixture()
	fx.analytics.err = errFakeOutage

	fx.svc.WarmCache(context.Background())

	assert.Zero(t, fx.index.executeCount(), "no queries to warm when trending is unavailable")
}
