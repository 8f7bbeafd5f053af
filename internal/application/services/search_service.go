package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ritchermap/search-service/internal/domain/entities"
	"github.com/ritchermap/search-service/internal/domain/repositories"
	"github.com/ritchermap/search-service/internal/query"
	apperrors "github.com/ritchermap/search-service/pkg/errors"
	"github.com/ritchermap/search-service/pkg/textutil"
)

// RequestAttribution carries optional caller identity for analytics
type RequestAttribution struct {
	UserID    string
	SessionID string
	IPAddress string
}

// SearchService orchestrates a search: cache lookup, query build, index
// execution, result mapping, caching and asynchronous tracking
type SearchService struct {
	builder   *query.Builder
	index     repositories.SearchIndexRepository
	mapper    *ResultMapper
	cache     *CacheService
	analytics *AnalyticsService
	text      *textutil.Processor
}

// NewSearchService creates a new search service
func NewSearchService(
	builder *query.Builder,
	index repositories.SearchIndexRepository,
	mapper *ResultMapper,
	cache *CacheService,
	analytics *AnalyticsService,
	text *textutil.Processor,
) *SearchService {
	return &SearchService{
		builder:   builder,
		index:     index,
		mapper:    mapper,
		cache:     cache,
		analytics: analytics,
		text:      text,
	}
}

// Search executes a validated search request. Identical requests inside the
// search TTL are served from cache with a fresh TookMs.
func (s *SearchService) Search(ctx context.Context, req *entities.SearchRequest, attr RequestAttribution) (*entities.SearchResponse, error) {
	return s.search(ctx, req, attr, true)
}

// Prefetch runs a search purely to populate its cache entry. Nothing is
// written to analytics, so warming runs do not inflate trending queries,
// search counts or CTR.
func (s *SearchService) Prefetch(ctx context.Context, req *entities.SearchRequest) error {
	_, err := s.search(ctx, req, RequestAttribution{}, false)
	return err
}

func (s *SearchService) search(ctx context.Context, req *entities.SearchRequest, attr RequestAttribution, track bool) (*entities.SearchResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	started := time.Now()
	key := s.cacheKey(req)

	cached := &entities.SearchResponse{}
	if s.cache.GetJSON(ctx, key, cached) {
		cached.TookMs = time.Since(started).Milliseconds()
		if track {
			s.track(req, cached.TotalHits, attr)
		}
		return cached, nil
	}

	q := s.builder.BuildSearch(req)
	raw, err := s.index.Execute(ctx, q)
	if err != nil {
		return nil, apperrors.NewUnavailableError("search index unavailable", err)
	}

	response := s.mapper.Map(raw, req.Page, req.PageSize)
	if req.IncludeSuggestions {
		response.Suggestions = s.mapper.Suggestions(ctx, req.Query, response.TotalHits)
	}

	s.cache.SetJSONWithTags(ctx, key, response, CacheClassSearch, s.dependencyTags(q))
	if track {
		s.track(req, response.TotalHits, attr)
	}

	response.TookMs = time.Since(started).Milliseconds()
	return response, nil
}

// Autocomplete returns ranked prefix completions with their own cache class
func (s *SearchService) Autocomplete(ctx context.Context, prefix string, searchType entities.SearchType, limit int) ([]entities.Suggestion, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return nil, apperrors.NewValidationError("query prefix is required")
	}
	if searchType == "" {
		searchType = entities.SearchTypeAll
	}
	if !searchType.Valid() {
		return nil, apperrors.NewValidationError("unknown search_type: " + string(searchType))
	}
	if limit <= 0 || limit > 20 {
		limit = 10
	}

	key := s.cache.Keys().Autocomplete(prefix, string(searchType))
	cached := []entities.Suggestion{}
	if s.cache.GetJSON(ctx, key, &cached) {
		return cached, nil
	}

	req := &entities.SearchRequest{
		Query:      prefix,
		SearchType: searchType,
		Sort:       entities.SortRelevance,
		Page:       1,
		PageSize:   limit,
	}
	raw, err := s.index.Execute(ctx, s.builder.BuildSearch(req))
	if err != nil {
		return nil, apperrors.NewUnavailableError("search index unavailable", err)
	}

	seen := map[string]struct{}{}
	suggestions := make([]entities.Suggestion, 0, len(raw.Hits))
	for _, hit := range raw.Hits {
		title := stringField(hit.Document, "title")
		if title == "" {
			continue
		}
		lowered := strings.ToLower(title)
		if _, dup := seen[lowered]; dup {
			continue
		}
		seen[lowered] = struct{}{}
		suggestions = append(suggestions, entities.Suggestion{
			Text:       title,
			SourceType: sourceTypeFor(hit.Collection),
			Score:      hit.Score,
		})
		if len(suggestions) == limit {
			break
		}
	}

	s.cache.SetJSON(ctx, key, suggestions, CacheClassAutocomplete)
	return suggestions, nil
}

// TrackClick validates and records a result click
func (s *SearchService) TrackClick(query, resultID, resultType string, position int, attr RequestAttribution) error {
	if strings.TrimSpace(query) == "" {
		return apperrors.NewValidationError("query is required")
	}
	if strings.TrimSpace(resultID) == "" {
		return apperrors.NewValidationError("result_id is required")
	}
	if position < 0 {
		return apperrors.NewValidationError("click_position must be >= 0")
	}
	if resultType == "" {
		resultType = "marker"
	}

	s.analytics.TrackClick(&entities.ClickEvent{
		Query:         query,
		ResultID:      resultID,
		ResultType:    resultType,
		ClickPosition: position,
		UserID:        attr.UserID,
		SessionID:     attr.SessionID,
	})
	return nil
}

func (s *SearchService) cacheKey(req *entities.SearchRequest) string {
	return s.cache.Keys().SearchResults(
		s.text.NormalizeQuery(req.Query),
		filterMap(req.Filters),
		string(req.SearchType),
		string(req.Sort),
		req.Page,
		req.PageSize,
	)
}

// dependencyTags names what a cached response depends on, so index writes
// can invalidate it ahead of its TTL
func (s *SearchService) dependencyTags(q *query.Query) []string {
	tags := make([]string, 0, len(q.Collections)+2)
	for _, c := range q.Collections {
		tags = append(tags, "collection:"+string(c))
	}
	for _, tf := range q.Terms {
		if tf.Field == "game_id" {
			for _, gameID := range tf.Values {
				tags = append(tags, "game:"+gameID)
			}
		}
	}
	return tags
}

func (s *SearchService) track(req *entities.SearchRequest, totalHits int, attr RequestAttribution) {
	event := &entities.SearchEvent{
		Query:       req.Query,
		SearchType:  string(req.SearchType),
		ResultCount: totalHits,
		UserID:      attr.UserID,
		SessionID:   attr.SessionID,
		IPAddress:   attr.IPAddress,
	}
	if req.Filters != nil && !req.Filters.IsZero() {
		if data, err := json.Marshal(req.Filters); err == nil {
			event.FiltersApplied = string(data)
		}
	}
	s.analytics.TrackSearch(event)
}

// filterMap flattens a filter into the canonical map hashed into cache keys
func filterMap(f *entities.SearchFilter) map[string]string {
	if f.IsZero() {
		return nil
	}

	m := map[string]string{}
	if len(f.GameIDs) > 0 {
		m["game_ids"] = strings.Join(f.GameIDs, ",")
	}
	if len(f.CategoryIDs) > 0 {
		m["category_ids"] = strings.Join(f.CategoryIDs, ",")
	}
	if len(f.Tags) > 0 {
		m["tags"] = strings.Join(f.Tags, ",")
	}
	if len(f.Difficulty) > 0 {
		m["difficulty"] = strings.Join(f.Difficulty, ",")
	}
	if len(f.CompletionType) > 0 {
		m["completion_type"] = strings.Join(f.CompletionType, ",")
	}
	if f.DateRange != nil {
		if f.DateRange.Start != nil {
			m["date_start"] = f.DateRange.Start.UTC().Format(time.RFC3339)
		}
		if f.DateRange.End != nil {
			m["date_end"] = f.DateRange.End.UTC().Format(time.RFC3339)
		}
	}
	if f.Bounds != nil {
		m["bounds"] = fmt.Sprintf("%.6f,%.6f,%.6f,%.6f", f.Bounds.North, f.Bounds.South, f.Bounds.East, f.Bounds.West)
	}
	return m
}
