package services

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/ritchermap/search-service/internal/domain/entities"
	"github.com/ritchermap/search-service/internal/domain/repositories"
	"github.com/ritchermap/search-service/pkg/textutil"
)

// Suggestions are offered when a search finds fewer hits than this
const suggestionTriggerHits = 5

const maxSuggestions = 5

// ResultMapper normalizes raw index output into the API response shape
type ResultMapper struct {
	text  *textutil.Processor
	index repositories.SearchIndexRepository
}

// NewResultMapper creates a new result mapper
func NewResultMapper(text *textutil.Processor, index repositories.SearchIndexRepository) *ResultMapper {
	return &ResultMapper{text: text, index: index}
}

// Map converts a raw search result into a SearchResponse with full
// pagination metadata
func (m *ResultMapper) Map(raw *repositories.RawSearchResult, page, pageSize int) *entities.SearchResponse {
	response := &entities.SearchResponse{
		Hits:      make([]entities.SearchHit, 0, len(raw.Hits)),
		TotalHits: raw.TotalHits,
		Page:      page,
		PageSize:  pageSize,
		TookMs:    raw.TookMs,
	}

	for _, hit := range raw.Hits {
		response.Hits = append(response.Hits, m.mapHit(hit))
	}

	if len(raw.Facets) > 0 {
		response.Facets = raw.Facets
	}

	if pageSize > 0 {
		response.TotalPages = (raw.TotalHits + pageSize - 1) / pageSize
	}
	return response
}

func (m *ResultMapper) mapHit(raw repositories.RawHit) entities.SearchHit {
	hit := entities.SearchHit{
		ID:         raw.ID,
		SourceType: sourceTypeFor(raw.Collection),
		Score:      raw.Score,
		Highlights: raw.Highlights,
	}

	doc := raw.Document
	hit.Title = stringField(doc, "title")
	hit.Description = stringField(doc, "description")
	hit.GameID = stringField(doc, "game_id")
	hit.GameName = stringField(doc, "game_name")
	hit.CategoryID = stringField(doc, "category_id")
	hit.CategoryName = stringField(doc, "category_name")
	hit.Tags = stringSliceField(doc, "tags")

	if coords, ok := doc["coordinates"].([]any); ok && len(coords) == 2 {
		lat, latOK := coords[0].(float64)
		lon, lonOK := coords[1].(float64)
		if latOK && lonOK {
			hit.Coordinates = &entities.Coordinates{Lat: lat, Lon: lon}
		}
	}

	return hit
}

// Suggestions produces "did you mean" candidates when a search came back
// nearly empty. Lookup failures degrade to no suggestions, never an error.
func (m *ResultMapper) Suggestions(ctx context.Context, query string, totalHits int) []string {
	if query == "" || totalHits >= suggestionTriggerHits {
		return nil
	}

	candidates, err := m.index.SuggestTerms(ctx, query, maxSuggestions*4)
	if err != nil {
		log.Warn().Err(err).Str("query", query).Msg("suggestion lookup failed")
		return nil
	}

	return m.text.QuerySuggestions(query, candidates, maxSuggestions)
}

func sourceTypeFor(collection string) string {
	switch collection {
	case "games":
		return "game"
	case "categories":
		return "category"
	default:
		return "marker"
	}
}

func stringField(doc map[string]any, field string) string {
	if doc == nil {
		return ""
	}
	if v, ok := doc[field].(string); ok {
		return v
	}
	return ""
}

func stringSliceField(doc map[string]any, field string) []string {
	if doc == nil {
		return nil
	}
	raw, ok := doc[field].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
