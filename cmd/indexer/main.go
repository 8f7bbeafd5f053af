package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ritchermap/search-service/internal/adapters/catalog"
	"github.com/ritchermap/search-service/internal/adapters/events"
	"github.com/ritchermap/search-service/internal/adapters/search"
	"github.com/ritchermap/search-service/internal/application/services"
	"github.com/ritchermap/search-service/internal/domain/providers"
	"github.com/ritchermap/search-service/internal/infrastructure/clients/redis"
	"github.com/ritchermap/search-service/internal/infrastructure/clients/typesense"
	"github.com/ritchermap/search-service/internal/infrastructure/observability"
	"github.com/ritchermap/search-service/pkg/config"
)

// The indexer walks every catalog collection into the search index once and
// exits. It is meant for initial seeding and scheduled full rebuilds; the API
// exposes the same operation at POST /api/v1/index/reindex.
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	observability.InitLogger(cfg.OTEL.ServiceName+"-indexer", cfg.Env)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	tsClient, err := typesense.NewClient(&cfg.Typesense)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to typesense")
	}

	searchAdapter := search.NewTypesenseAdapter(tsClient)
	if err := searchAdapter.EnsureCollections(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to ensure typesense collections")
	}

	// The event bus is optional here: without it caches invalidate by TTL.
	var eventBus providers.EventBus
	if redisClient, err := redis.NewClient(&cfg.Redis); err != nil {
		log.Warn().Err(err).Msg("redis unavailable, reindex events will not be published")
	} else {
		defer redisClient.Close()
		eventBus = events.NewRedisEventBus(redisClient)
	}

	catalogProvider := catalog.NewHTTPProvider(&cfg.Catalog)
	indexing := services.NewIndexingService(searchAdapter, catalogProvider, eventBus, cfg.Catalog.PageDelay)

	started := time.Now()
	report, err := indexing.ReindexAll(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("reindex failed")
	}

	log.Info().
		Int("markers", report.Markers.Indexed).
		Int("games", report.Games.Indexed).
		Int("categories", report.Categories.Indexed).
		Dur("took", time.Since(started)).
		Msg("reindex complete")
}
