package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ritchermap/search-service/internal/application/services"
	"github.com/ritchermap/search-service/internal/domain/repositories"
	"github.com/ritchermap/search-service/internal/query"
	"github.com/ritchermap/search-service/pkg/cachekeys"
	"github.com/ritchermap/search-service/pkg/config"
	"github.com/ritchermap/search-service/pkg/textutil"
)

func newRecommendationHandlerFixture(t *testing.T) (*RecommendationHandler, *stubIndex) {
	t.Helper()

	index := &stubIndex{
		result: &repositories.RawSearchResult{
			Hits: []repositories.RawHit{
				{Collection: "markers", ID: "m1", Score: 10, Document: map[string]any{
					"id": "m1", "title": "Korok Seed", "item_type": "marker", "game_id": "g1",
				}},
			},
			TotalHits: 1,
		},
	}

	text := textutil.NewProcessor()
	cache := services.NewCacheService(missCache{}, cachekeys.NewBuilder("test"), 300)
	analytics := services.NewAnalyticsService(stubAnalyticsRepo{}, cache, text)
	recommendations := services.NewRecommendationService(index, query.NewBuilder(text), analytics, cache, config.MLConfig{
		ModelPath:           filepath.Join(t.TempDir(), "model"),
		SimilarityThreshold: 0.7,
		MaxRecommendations:  50,
	})
	return NewRecommendationHandler(recommendations), index
}

func TestRecommendationHandler_Recommend_Popularity(t *testing.T) {
	handler, _ := newRecommendationHandlerFixture(t)

	req := httptest.NewRequest("GET", "/api/v1/recommendations?strategy=popularity&limit=5", nil)
	w := httptest.NewRecorder()
	handler.Recommend(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Count    int    `json:"count"`
		Strategy string `json:"strategy"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, 1, response.Count)
	assert.Equal(t, "popularity", response.Strategy)
}

func TestRecommendationHandler_Recommend_UserFromHeader(t *testing.T) {
	handler, _ := newRecommendationHandlerFixture(t)

	req := httptest.NewRequest("GET", "/api/v1/recommendations?strategy=collaborative", nil)
	req.Header.Set("X-User-ID", "u1")
	w := httptest.NewRecorder()
	handler.Recommend(w, req)

	// Empty click profile falls back to popularity rather than erroring.
	require.Equal(t, http.StatusOK, w.Code)
}

func TestRecommendationHandler_Recommend_InvalidStrategy(t *testing.T) {
	handler, _ := newRecommendationHandlerFixture(t)

	req := httptest.NewRequest("GET", "/api/v1/recommendations?strategy=astrology", nil)
	w := httptest.NewRecorder()
	handler.Recommend(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRecommendationHandler_Retrain(t *testing.T) {
	handler, index := newRecommendationHandlerFixture(t)
	index.result = nil

	req := httptest.NewRequest("POST", "/api/v1/recommendations/retrain", nil)
	w := httptest.NewRecorder()
	handler.Retrain(w, req)

	assert.Equal(t, http.StatusAccepted, w.Code)
}
