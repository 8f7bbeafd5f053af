package handlers

import (
	"net/http"
	"strconv"

	"github.com/ritchermap/search-service/internal/application/services"
)

// AnalyticsHandler handles analytics HTTP requests
type AnalyticsHandler struct {
	analytics *services.AnalyticsService
}

// NewAnalyticsHandler creates a new analytics handler
func NewAnalyticsHandler(analytics *services.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics}
}

// Metrics handles GET /api/v1/analytics/metrics
func (h *AnalyticsHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	window := r.URL.Query().Get("window")

	metrics, err := h.analytics.Metrics(r.Context(), window, limitParam(r, 10))
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, metrics)
}

// Trending handles GET /api/v1/analytics/trending
func (h *AnalyticsHandler) Trending(w http.ResponseWriter, r *http.Request) {
	window := r.URL.Query().Get("window")
	if window == "" {
		window = "1h"
	}

	trending, err := h.analytics.Trending(r.Context(), window, limitParam(r, 10))
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"trending": trending,
		"window":   window,
	})
}

// Popular handles GET /api/v1/analytics/popular
func (h *AnalyticsHandler) Popular(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	itemType := query.Get("item_type")
	window := query.Get("window")

	items, err := h.analytics.PopularItems(r.Context(), itemType, window, limitParam(r, 10))
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"items": items,
		"count": len(items),
	})
}

// QueryPerformance handles GET /api/v1/analytics/query-performance
func (h *AnalyticsHandler) QueryPerformance(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	perf, err := h.analytics.QueryPerformance(r.Context(), query.Get("q"), query.Get("window"))
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, perf)
}

// ZeroResults handles GET /api/v1/analytics/zero-result-queries
func (h *AnalyticsHandler) ZeroResults(w http.ResponseWriter, r *http.Request) {
	queries, err := h.analytics.ZeroResultQueries(r.Context(), limitParam(r, 20))
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"queries": queries,
		"count":   len(queries),
	})
}

func limitParam(r *http.Request, fallback int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}
