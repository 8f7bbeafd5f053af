package services

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ritchermap/search-service/internal/domain/entities"
)

const (
	warmTrendingLimit = 10
	warmPopularLimit  = 10
)

// CacheWarmingService periodically pre-executes the searches and lookups
// most likely to be requested, so their cache entries stay hot. Warming
// failures are logged and skipped.
type CacheWarmingService struct {
	search    *SearchService
	analytics *AnalyticsService
}

// NewCacheWarmingService creates a new cache warming service
func NewCacheWarmingService(search *SearchService, analytics *AnalyticsService) *CacheWarmingService {
	return &CacheWarmingService{
		search:    search,
		analytics: analytics,
	}
}

// WarmCache refreshes trending queries, popular items and the search
// results of the current top queries
func (s *CacheWarmingService) WarmCache(ctx context.Context) {
	log.Debug().Msg("starting cache warming")

	trending, err := s.analytics.Trending(ctx, "24h", warmTrendingLimit)
	if err != nil {
		log.Warn().Err(err).Msg("failed to warm trending queries")
		trending = nil
	}

	warmed := 0
	for _, tq := range trending {
		if tq.Query == "" {
			continue
		}
		req := &entities.SearchRequest{
			Query:      tq.Query,
			SearchType: entities.SearchTypeAll,
			Sort:       entities.SortRelevance,
			Page:       1,
			PageSize:   20,
		}
		if err := s.search.Prefetch(ctx, req); err != nil {
			log.Warn().Err(err).Str("query", tq.Query).Msg("failed to warm search results")
			continue
		}
		warmed++
	}

	for _, itemType := range []string{"marker", "game"} {
		if _, err := s.analytics.PopularItems(ctx, itemType, "24h", warmPopularLimit); err != nil {
			log.Warn().Err(err).Str("item_type", itemType).Msg("failed to warm popular items")
		}
	}

	log.Info().Int("queries_warmed", warmed).Msg("cache warming completed")
}

// StartPeriodicWarming warms once and then on every tick until ctx is done
func (s *CacheWarmingService) StartPeriodicWarming(ctx context.Context, interval time.Duration) {
	s.WarmCache(ctx)

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("stopping cache warming service")
				return
			case <-ticker.C:
				s.WarmCache(ctx)
			}
		}
	}()
	log.Info().Dur("interval", interval).Msg("started periodic cache warming")
}
