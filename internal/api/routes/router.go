package routes

import (
	"net/http"

	"github.com/ritchermap/search-service/internal/api/handlers"
	"github.com/ritchermap/search-service/internal/api/middleware"
	"github.com/ritchermap/search-service/internal/infrastructure/observability"
)

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	searchHandler         *handlers.SearchHandler
	recommendationHandler *handlers.RecommendationHandler
	analyticsHandler      *handlers.AnalyticsHandler
	indexingHandler       *handlers.IndexingHandler

	cacheMiddleware *middleware.CacheMiddleware
	metrics         *observability.Metrics
}

// NewRouter creates a new router
func NewRouter(
	searchHandler *handlers.SearchHandler,
	recommendationHandler *handlers.RecommendationHandler,
	analyticsHandler *handlers.AnalyticsHandler,
	indexingHandler *handlers.IndexingHandler,
	cacheMiddleware *middleware.CacheMiddleware,
	metrics *observability.Metrics,
) *Router {
	return &Router{
		mux:                   http.NewServeMux(),
		searchHandler:         searchHandler,
		recommendationHandler: recommendationHandler,
		analyticsHandler:      analyticsHandler,
		indexingHandler:       indexingHandler,
		cacheMiddleware:       cacheMiddleware,
		metrics:               metrics,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	// Health check endpoint
	r.mux.HandleFunc("GET /health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			return
		}
	})

	// Search endpoints
	r.mux.HandleFunc("GET /api/v1/search", r.searchHandler.Search)
	r.mux.HandleFunc("POST /api/v1/search/advanced", r.searchHandler.AdvancedSearch)
	r.mux.HandleFunc("GET /api/v1/search/suggest", r.searchHandler.Suggest)
	r.mux.HandleFunc("POST /api/v1/search/click", r.searchHandler.TrackClick)

	// Recommendation endpoints
	r.mux.HandleFunc("GET /api/v1/recommendations", r.recommendationHandler.Recommend)
	r.mux.HandleFunc("POST /api/v1/recommendations/retrain", r.recommendationHandler.Retrain)

	// Analytics endpoints
	r.mux.HandleFunc("GET /api/v1/analytics/metrics", r.analyticsHandler.Metrics)
	r.mux.HandleFunc("GET /api/v1/analytics/trending", r.analyticsHandler.Trending)
	r.mux.HandleFunc("GET /api/v1/analytics/popular", r.analyticsHandler.Popular)
	r.mux.HandleFunc("GET /api/v1/analytics/query-performance", r.analyticsHandler.QueryPerformance)
	r.mux.HandleFunc("GET /api/v1/analytics/zero-result-queries", r.analyticsHandler.ZeroResults)

	// Index write endpoints
	r.mux.HandleFunc("POST /api/v1/index/reindex", r.indexingHandler.Reindex)
	r.mux.HandleFunc("POST /api/v1/index/{collection}", r.indexingHandler.IndexDocument)
	r.mux.HandleFunc("DELETE /api/v1/index/{collection}/{id}", r.indexingHandler.DeleteDocument)

	// Apply middleware in reverse order (last middleware wraps first).
	// CORS is outermost so even cached responses carry its headers.
	var handler http.Handler = r.mux
	handler = middleware.LoggingMiddleware(handler)

	if r.cacheMiddleware != nil {
		handler = r.cacheMiddleware.Middleware(handler)
	}

	handler = middleware.ObservabilityMiddleware(r.metrics)(handler)
	handler = middleware.ResponseOptimization(handler)
	handler = middleware.CORSMiddleware(handler)

	return handler
}
