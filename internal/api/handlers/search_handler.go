package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ritchermap/search-service/internal/application/services"
	"github.com/ritchermap/search-service/internal/domain/entities"
)

// SearchHandler handles search-related HTTP requests
type SearchHandler struct {
	search *services.SearchService
}

// NewSearchHandler creates a new search handler
func NewSearchHandler(search *services.SearchService) *SearchHandler {
	return &SearchHandler{search: search}
}

// Search handles GET /api/v1/search
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	req, err := parseSearchQuery(r)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	response, err := h.search.Search(r.Context(), req, attributionFrom(r))
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, response)
}

// AdvancedSearch handles POST /api/v1/search/advanced with the full request
// body, including structured filters
func (h *SearchHandler) AdvancedSearch(w http.ResponseWriter, r *http.Request) {
	req := &entities.SearchRequest{}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Page == 0 {
		req.Page = 1
	}
	if req.PageSize == 0 {
		req.PageSize = 20
	}

	response, err := h.search.Search(r.Context(), req, attributionFrom(r))
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, response)
}

// Suggest handles GET /api/v1/search/suggest
func (h *SearchHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	limit := 10
	if raw := query.Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}

	suggestions, err := h.search.Autocomplete(r.Context(), query.Get("q"), entities.SearchType(query.Get("type")), limit)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"suggestions": suggestions,
		"count":       len(suggestions),
	})
}

// clickRequest is the POST /api/v1/search/click body
type clickRequest struct {
	Query      string `json:"query"`
	ResultID   string `json:"result_id"`
	ResultType string `json:"result_type"`
	Position   int    `json:"click_position"`
}

// TrackClick handles POST /api/v1/search/click
func (h *SearchHandler) TrackClick(w http.ResponseWriter, r *http.Request) {
	req := clickRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.search.TrackClick(req.Query, req.ResultID, req.ResultType, req.Position, attributionFrom(r)); err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusAccepted, map[string]string{"status": "recorded"})
}

// parseSearchQuery builds a SearchRequest from GET query parameters
func parseSearchQuery(r *http.Request) (*entities.SearchRequest, error) {
	query := r.URL.Query()

	req := &entities.SearchRequest{
		Query:              query.Get("q"),
		SearchType:         entities.SearchType(query.Get("type")),
		Sort:               entities.SortOrder(query.Get("sort")),
		Page:               1,
		PageSize:           20,
		IncludeSuggestions: query.Get("include_suggestions") == "true",
		Highlight:          query.Get("highlight") == "true",
	}

	if raw := query.Get("page"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			req.Page = parsed
		}
	}
	if raw := query.Get("page_size"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			req.PageSize = parsed
		}
	}

	req.Filters = parseFilters(query)
	return req, nil
}

func parseFilters(query map[string][]string) *entities.SearchFilter {
	get := func(key string) string {
		if vals, ok := query[key]; ok && len(vals) > 0 {
			return vals[0]
		}
		return ""
	}

	filter := &entities.SearchFilter{
		GameIDs:        splitParam(get("game_ids")),
		CategoryIDs:    splitParam(get("category_ids")),
		Tags:           splitParam(get("tags")),
		Difficulty:     splitParam(get("difficulty")),
		CompletionType: splitParam(get("completion_type")),
	}

	start, startOK := parseTime(get("date_start"))
	end, endOK := parseTime(get("date_end"))
	if startOK || endOK {
		filter.DateRange = &entities.DateRange{}
		if startOK {
			filter.DateRange.Start = &start
		}
		if endOK {
			filter.DateRange.End = &end
		}
	}

	// A bounding box only filters when all four bounds parse; a partial box
	// is dropped entirely rather than guessed at.
	north, northOK := parseFloat(get("north"))
	south, southOK := parseFloat(get("south"))
	east, eastOK := parseFloat(get("east"))
	west, westOK := parseFloat(get("west"))
	if northOK && southOK && eastOK && westOK {
		filter.Bounds = &entities.GeoBounds{North: north, South: south, East: east, West: west}
	}

	if filter.IsZero() {
		return nil
	}
	return filter
}

func splitParam(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func parseTime(raw string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, false
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, false
	}
	return parsed, true
}

func parseFloat(raw string) (float64, bool) {
	if raw == "" {
		return 0, false
	}
	parsed, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return parsed, true
}
