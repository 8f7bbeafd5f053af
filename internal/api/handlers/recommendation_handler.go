package handlers

import (
	"net/http"
	"strconv"

	"github.com/ritchermap/search-service/internal/application/services"
	"github.com/ritchermap/search-service/internal/domain/entities"
)

// RecommendationHandler handles recommendation HTTP requests
type RecommendationHandler struct {
	recommendations *services.RecommendationService
}

// NewRecommendationHandler creates a new recommendation handler
func NewRecommendationHandler(recommendations *services.RecommendationService) *RecommendationHandler {
	return &RecommendationHandler{recommendations: recommendations}
}

// Recommend handles GET /api/v1/recommendations
func (h *RecommendationHandler) Recommend(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	limit := 10
	if raw := query.Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}

	req := &entities.RecommendationRequest{
		Strategy: entities.Strategy(query.Get("strategy")),
		UserID:   query.Get("user_id"),
		ItemID:   query.Get("item_id"),
		ItemType: query.Get("item_type"),
		GameID:   query.Get("game_id"),
		Limit:    limit,
	}
	if req.UserID == "" {
		req.UserID = r.Header.Get("X-User-ID")
	}

	results, err := h.recommendations.Recommend(r.Context(), req)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"recommendations": results,
		"count":           len(results),
		"strategy":        req.Strategy,
	})
}

// Retrain handles POST /api/v1/recommendations/retrain
func (h *RecommendationHandler) Retrain(w http.ResponseWriter, r *http.Request) {
	if err := h.recommendations.TrainModel(r.Context()); err != nil {
		respondWithAppError(w, err)
		return
	}
	respondWithJSON(w, http.StatusAccepted, map[string]string{"status": "trained"})
}
