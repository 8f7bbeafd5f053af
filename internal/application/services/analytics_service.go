package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ritchermap/search-service/internal/domain/entities"
	"github.com/ritchermap/search-service/internal/domain/repositories"
	apperrors "github.com/ritchermap/search-service/pkg/errors"
	"github.com/ritchermap/search-service/pkg/textutil"
)

const (
	// trackingTimeout bounds the detached tracking work; the request
	// context may already be cancelled when it runs
	trackingTimeout = 5 * time.Second

	// trendingZSetTTL keeps an hourly trending bucket alive one hour past
	// its 24h horizon
	trendingZSetTTL = 25 * time.Hour

	dayFormat  = "2006-01-02"
	hourFormat = "2006-01-02-15"
)

// analyticsWindows maps the accepted window names to durations
var analyticsWindows = map[string]time.Duration{
	"1h":  time.Hour,
	"24h": 24 * time.Hour,
	"7d":  7 * 24 * time.Hour,
	"30d": 30 * 24 * time.Hour,
}

// AnalyticsService appends search and click events and serves windowed
// aggregates. Event writes happen off the request path; counter updates
// are best effort.
type AnalyticsService struct {
	repo  repositories.AnalyticsRepository
	cache *CacheService
	text  *textutil.Processor
}

// NewAnalyticsService creates a new analytics service
func NewAnalyticsService(repo repositories.AnalyticsRepository, cache *CacheService, text *textutil.Processor) *AnalyticsService {
	return &AnalyticsService{repo: repo, cache: cache, text: text}
}

// TrackSearch records a search event in the background so the search
// response never waits on analytics
func (s *AnalyticsService) TrackSearch(event *entities.SearchEvent) {
	if event.NormalizedQuery == "" {
		event.NormalizedQuery = s.text.NormalizeQuery(event.Query)
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	go func() {
		// Fresh context: the request context may already be cancelled
		ctx, cancel := context.WithTimeout(context.Background(), trackingTimeout)
		defer cancel()

		if err := s.repo.LogSearch(ctx, event); err != nil {
			log.Warn().Err(err).Str("query", event.Query).Msg("failed to log search event")
		}
		s.updateSearchCounters(ctx, event)
	}()
}

// TrackClick records a click event in the background
func (s *AnalyticsService) TrackClick(event *entities.ClickEvent) {
	if event.NormalizedQuery == "" {
		event.NormalizedQuery = s.text.NormalizeQuery(event.Query)
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), trackingTimeout)
		defer cancel()

		if err := s.repo.LogClick(ctx, event); err != nil {
			log.Warn().Err(err).Str("result_id", event.ResultID).Msg("failed to log click event")
		}
		s.updateClickCounters(ctx, event)
	}()
}

func (s *AnalyticsService) updateSearchCounters(ctx context.Context, event *entities.SearchEvent) {
	keys := s.cache.Keys()
	day := event.CreatedAt.Format(dayFormat)

	s.cache.Increment(ctx, keys.Counter("search_count", day), 1)
	if event.ResultCount == 0 {
		s.cache.Increment(ctx, keys.Counter("search_zero_results", day), 1)
	}
	if event.NormalizedQuery != "" {
		s.cache.Increment(ctx, keys.Key("counter", "search_query", event.NormalizedQuery), 1)

		hourBucket := keys.Key("trending", "queries", event.CreatedAt.Format(hourFormat))
		s.cache.ZIncrBy(ctx, hourBucket, event.NormalizedQuery, 1, trendingZSetTTL)
	}
}

func (s *AnalyticsService) updateClickCounters(ctx context.Context, event *entities.ClickEvent) {
	keys := s.cache.Keys()
	day := event.CreatedAt.Format(dayFormat)

	s.cache.Increment(ctx, keys.Counter("clicks_count", day), 1)
	s.cache.Increment(ctx, keys.Key("counter", "clicks_result", event.ResultID), 1)
	s.cache.Increment(ctx, keys.Key("counter", "clicks_position", fmt.Sprintf("%d", event.ClickPosition), day), 1)
}

// Metrics returns windowed search metrics, cached per window
func (s *AnalyticsService) Metrics(ctx context.Context, window string, topN int) (*entities.SearchMetrics, error) {
	duration, err := windowDuration(window)
	if err != nil {
		return nil, err
	}

	key := s.cache.Keys().Analytics("metrics", window, nil)
	cached := &entities.SearchMetrics{}
	if s.cache.GetJSON(ctx, key, cached) {
		return cached, nil
	}

	end := time.Now().UTC()
	metrics, err := s.repo.SearchMetrics(ctx, end.Add(-duration), end, topN)
	if err != nil {
		return nil, err
	}
	metrics.TimePeriod = window

	s.cache.SetJSON(ctx, key, metrics, CacheClassAnalytics)
	return metrics, nil
}

// QueryPerformance returns windowed aggregates for one query
func (s *AnalyticsService) QueryPerformance(ctx context.Context, query, window string) (*entities.QueryPerformance, error) {
	normalized := s.text.NormalizeQuery(query)
	if normalized == "" {
		return nil, apperrors.NewValidationError("query is required")
	}

	duration, err := windowDuration(window)
	if err != nil {
		return nil, err
	}

	key := s.cache.Keys().Analytics("query_performance", window, map[string]string{"q": normalized})
	cached := &entities.QueryPerformance{}
	if s.cache.GetJSON(ctx, key, cached) {
		return cached, nil
	}

	end := time.Now().UTC()
	perf, err := s.repo.QueryPerformance(ctx, normalized, end.Add(-duration), end)
	if err != nil {
		return nil, err
	}

	s.cache.SetJSON(ctx, key, perf, CacheClassAnalytics)
	return perf, nil
}

// Trending returns the most-searched queries. The 1h window reads the
// real-time hourly buckets; larger windows scan the event store.
func (s *AnalyticsService) Trending(ctx context.Context, window string, limit int) ([]*entities.TrendingQuery, error) {
	duration, err := windowDuration(window)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 10
	}

	key := s.cache.Keys().Trending("queries", window, "all")
	cached := []*entities.TrendingQuery{}
	if s.cache.GetJSON(ctx, key, &cached) {
		return cached, nil
	}

	var trending []*entities.TrendingQuery
	if duration <= time.Hour {
		trending = s.realtimeTrending(ctx, limit)
	} else {
		end := time.Now().UTC()
		trending, err = s.repo.TrendingQueries(ctx, end.Add(-duration), end, limit)
		if err != nil {
			return nil, err
		}
	}

	s.cache.SetJSON(ctx, key, trending, CacheClassTrending)
	return trending, nil
}

// realtimeTrending merges the current and previous hourly buckets so the
// top of the hour does not reset the board
func (s *AnalyticsService) realtimeTrending(ctx context.Context, limit int) []*entities.TrendingQuery {
	keys := s.cache.Keys()
	now := time.Now().UTC()

	counts := map[string]float64{}
	for _, bucket := range []time.Time{now, now.Add(-time.Hour)} {
		zsetKey := keys.Key("trending", "queries", bucket.Format(hourFormat))
		for _, member := range s.cache.ZTop(ctx, zsetKey, limit*2) {
			counts[member.Member] += member.Score
		}
	}

	trending := make([]*entities.TrendingQuery, 0, len(counts))
	for query, count := range counts {
		trending = append(trending, &entities.TrendingQuery{
			Query:       query,
			SearchCount: int(count),
		})
	}
	sortTrending(trending)
	if len(trending) > limit {
		trending = trending[:limit]
	}
	return trending
}

// PopularItems returns the most-clicked items of one type in a window
func (s *AnalyticsService) PopularItems(ctx context.Context, itemType, window string, limit int) ([]*entities.PopularItem, error) {
	duration, err := windowDuration(window)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 10
	}

	key := s.cache.Keys().PopularItems(itemType, window, limit)
	cached := []*entities.PopularItem{}
	if s.cache.GetJSON(ctx, key, &cached) {
		return cached, nil
	}

	end := time.Now().UTC()
	items, err := s.repo.PopularItems(ctx, itemType, end.Add(-duration), end, limit)
	if err != nil {
		return nil, err
	}

	s.cache.SetJSON(ctx, key, items, CacheClassPopular)
	return items, nil
}

// UserClickWeights returns one user's position-decayed click weights over
// the collaborative horizon
func (s *AnalyticsService) UserClickWeights(ctx context.Context, userID string, horizon time.Duration) (*entities.UserClickProfile, error) {
	end := time.Now().UTC()
	return s.repo.UserClickProfile(ctx, userID, end.Add(-horizon), end)
}

// AllClickProfiles returns every user's click weights over the horizon
func (s *AnalyticsService) AllClickProfiles(ctx context.Context, horizon time.Duration) ([]*entities.UserClickProfile, error) {
	end := time.Now().UTC()
	return s.repo.AllClickProfiles(ctx, end.Add(-horizon), end)
}

// ZeroResultQueries returns the most recent searches that found nothing
func (s *AnalyticsService) ZeroResultQueries(ctx context.Context, limit int) ([]*entities.SearchEvent, error) {
	return s.repo.ZeroResultQueries(ctx, limit)
}

func windowDuration(window string) (time.Duration, error) {
	if window == "" {
		return analyticsWindows["24h"], nil
	}
	if d, ok := analyticsWindows[window]; ok {
		return d, nil
	}
	return 0, apperrors.NewValidationError("unknown time window: " + window)
}

func sortTrending(trending []*entities.TrendingQuery) {
	sort.SliceStable(trending, func(i, j int) bool {
		return trending[i].SearchCount > trending[j].SearchCount
	})
}
