package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ritchermap/search-service/internal/adapters/cache"
	"github.com/ritchermap/search-service/internal/adapters/catalog"
	"github.com/ritchermap/search-service/internal/adapters/database"
	"github.com/ritchermap/search-service/internal/adapters/events"
	"github.com/ritchermap/search-service/internal/adapters/search"
	"github.com/ritchermap/search-service/internal/api/handlers"
	"github.com/ritchermap/search-service/internal/api/middleware"
	"github.com/ritchermap/search-service/internal/api/routes"
	"github.com/ritchermap/search-service/internal/application/services"
	"github.com/ritchermap/search-service/internal/domain/providers"
	"github.com/ritchermap/search-service/internal/infrastructure/clients/postgres"
	"github.com/ritchermap/search-service/internal/infrastructure/clients/redis"
	"github.com/ritchermap/search-service/internal/infrastructure/clients/typesense"
	"github.com/ritchermap/search-service/internal/infrastructure/observability"
	"github.com/ritchermap/search-service/internal/query"
	"github.com/ritchermap/search-service/pkg/cachekeys"
	"github.com/ritchermap/search-service/pkg/config"
	"github.com/ritchermap/search-service/pkg/textutil"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	observability.InitLogger(cfg.OTEL.ServiceName, cfg.Env)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize OpenTelemetry if enabled
	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(
			ctx,
			cfg.OTEL.ServiceName,
			cfg.OTEL.ServiceVersion,
			cfg.OTEL.Endpoint,
		)
		if err != nil {
			log.Warn().Err(err).Msg("failed to set up OpenTelemetry, continuing without tracing")
		} else {
			defer func() {
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer shutdownCancel()
				if err := shutdown(shutdownCtx); err != nil {
					log.Warn().Err(err).Msg("OpenTelemetry shutdown failed")
				}
			}()
		}
	}

	metrics, err := observability.InitMetrics()
	if err != nil {
		log.Warn().Err(err).Msg("failed to initialize metrics")
	}

	// Postgres holds the analytics event log and is required.
	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	defer pgClient.Close()

	// The search index is the core dependency; without it nothing works.
	tsClient, err := typesense.NewClient(&cfg.Typesense)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to typesense")
	}

	// Redis powers caching, counters and the invalidation bus. A missing
	// Redis degrades the service to uncached operation instead of killing it.
	var cacheProvider providers.CacheProvider
	var eventBus providers.EventBus
	redisClient, err := redis.NewClient(&cfg.Redis)
	if err != nil {
		log.Warn().Err(err).Msg("redis unavailable, running without cache")
		cacheProvider = cache.NewNoopAdapter()
	} else {
		defer redisClient.Close()
		cacheProvider = cache.NewRedisAdapter(redisClient)
		eventBus = events.NewRedisEventBus(redisClient)
	}

	searchAdapter := search.NewTypesenseAdapter(tsClient)
	if err := searchAdapter.EnsureCollections(ctx); err != nil {
		log.Warn().Err(err).Msg("failed to ensure typesense collections")
	}

	analyticsAdapter := database.NewAnalyticsAdapter(pgClient)
	if err := analyticsAdapter.InitSchema(ctx); err != nil {
		log.Warn().Err(err).Msg("failed to initialize analytics schema")
	}

	catalogProvider := catalog.NewHTTPProvider(&cfg.Catalog)

	keys := cachekeys.NewBuilder(cfg.Cache.KeyPrefix)
	text := textutil.NewProcessor()
	builder := query.NewBuilder(text)

	cacheService := services.NewCacheService(cacheProvider, keys, cfg.Cache.DefaultTTL)
	analyticsService := services.NewAnalyticsService(analyticsAdapter, cacheService, text)
	mapper := services.NewResultMapper(text, searchAdapter)
	searchService := services.NewSearchService(builder, searchAdapter, mapper, cacheService, analyticsService, text)
	recommendationService := services.NewRecommendationService(searchAdapter, builder, analyticsService, cacheService, cfg.ML)
	indexingService := services.NewIndexingService(searchAdapter, catalogProvider, eventBus, cfg.Catalog.PageDelay)

	if err := recommendationService.LoadModel(); err != nil {
		log.Warn().Err(err).Msg("no persisted recommendation model, will train from the index")
	}
	go recommendationService.StartRetrainLoop(ctx, time.Hour)

	if eventBus != nil {
		invalidation := services.NewCacheInvalidationService(cacheService, eventBus)
		if err := invalidation.Start(); err != nil {
			log.Warn().Err(err).Msg("failed to start cache invalidation listener")
		} else {
			defer invalidation.Stop()
		}
	}

	warming := services.NewCacheWarmingService(searchService, analyticsService)
	go warming.StartPeriodicWarming(ctx, 15*time.Minute)

	searchHandler := handlers.NewSearchHandler(searchService)
	recommendationHandler := handlers.NewRecommendationHandler(recommendationService)
	analyticsHandler := handlers.NewAnalyticsHandler(analyticsService)
	indexingHandler := handlers.NewIndexingHandler(indexingService)

	cacheMiddleware := middleware.NewCacheMiddleware(cacheService)

	router := routes.NewRouter(
		searchHandler,
		recommendationHandler,
		analyticsHandler,
		indexingHandler,
		cacheMiddleware,
		metrics,
	)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.SetupRoutes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("search service listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
