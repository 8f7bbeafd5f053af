package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/ritchermap/search-service/internal/domain/entities"
	"github.com/ritchermap/search-service/internal/domain/providers"
	"github.com/ritchermap/search-service/internal/domain/repositories"
	"github.com/ritchermap/search-service/internal/infrastructure/clients/typesense"
	apperrors "github.com/ritchermap/search-service/pkg/errors"
)

const reindexPageSize = 100

// ReindexReport summarizes a full catalog reindex
type ReindexReport struct {
	Markers    repositories.BulkResult `json:"markers"`
	Games      repositories.BulkResult `json:"games"`
	Categories repositories.BulkResult `json:"categories"`
	TookMs     int64                   `json:"took_ms"`
}

// IndexingService writes catalog items into the search index and announces
// every successful write on the event bus. Publication is fire-and-forget:
// the write has already happened, a lost event only delays invalidation
// until TTLs expire.
type IndexingService struct {
	index     repositories.SearchIndexRepository
	catalog   providers.CatalogProvider
	bus       providers.EventBus
	pageDelay time.Duration
}

// NewIndexingService creates a new indexing service
func NewIndexingService(
	index repositories.SearchIndexRepository,
	catalog providers.CatalogProvider,
	bus providers.EventBus,
	pageDelay time.Duration,
) *IndexingService {
	return &IndexingService{
		index:     index,
		catalog:   catalog,
		bus:       bus,
		pageDelay: pageDelay,
	}
}

// IndexMarker upserts one marker document
func (s *IndexingService) IndexMarker(ctx context.Context, marker *entities.CatalogMarker) error {
	if marker == nil || marker.ID == "" {
		return apperrors.NewValidationError("marker id is required")
	}
	if err := s.index.IndexDocument(ctx, typesense.MarkersCollection, MarkerDocument(marker)); err != nil {
		return apperrors.NewUnavailableError("failed to index marker", err)
	}
	s.publish(entities.CatalogEventIndexed, typesense.MarkersCollection, marker.ID, marker.GameID)
	return nil
}

// IndexGame upserts one game document
func (s *IndexingService) IndexGame(ctx context.Context, game *entities.CatalogGame) error {
	if game == nil || game.ID == "" {
		return apperrors.NewValidationError("game id is required")
	}
	if err := s.index.IndexDocument(ctx, typesense.GamesCollection, GameDocument(game)); err != nil {
		return apperrors.NewUnavailableError("failed to index game", err)
	}
	s.publish(entities.CatalogEventIndexed, typesense.GamesCollection, game.ID, game.ID)
	return nil
}

// IndexCategory upserts one category document
func (s *IndexingService) IndexCategory(ctx context.Context, category *entities.CatalogCategory) error {
	if category == nil || category.ID == "" {
		return apperrors.NewValidationError("category id is required")
	}
	if err := s.index.IndexDocument(ctx, typesense.CategoriesCollection, CategoryDocument(category)); err != nil {
		return apperrors.NewUnavailableError("failed to index category", err)
	}
	s.publish(entities.CatalogEventIndexed, typesense.CategoriesCollection, category.ID, category.GameID)
	return nil
}

// Delete removes one document from a collection
func (s *IndexingService) Delete(ctx context.Context, collection, id string) error {
	if id == "" {
		return apperrors.NewValidationError("document id is required")
	}
	if !validCollection(collection) {
		return apperrors.NewValidationError("unknown collection: " + collection)
	}
	if err := s.index.DeleteDocument(ctx, collection, id); err != nil {
		return apperrors.NewUnavailableError("failed to delete document", err)
	}
	s.publish(entities.CatalogEventDeleted, collection, id, "")
	return nil
}

// ReindexAll pages through the whole catalog and bulk-indexes every
// collection, pacing between pages so the catalog services are not
// hammered. Per-item failures are counted, never retried.
func (s *IndexingService) ReindexAll(ctx context.Context) (*ReindexReport, error) {
	started := time.Now()
	report := &ReindexReport{}

	markers, err := s.reindexMarkers(ctx)
	if err != nil {
		return nil, err
	}
	report.Markers = markers

	games, gameIDs, err := s.reindexGames(ctx)
	if err != nil {
		return nil, err
	}
	report.Games = games

	categories, err := s.reindexCategories(ctx, gameIDs)
	if err != nil {
		return nil, err
	}
	report.Categories = categories

	report.TookMs = time.Since(started).Milliseconds()
	s.publish(entities.CatalogEventReindexed, "all", "", "")

	log.Info().
		Int("markers", report.Markers.Indexed).
		Int("games", report.Games.Indexed).
		Int("categories", report.Categories.Indexed).
		Int64("took_ms", report.TookMs).
		Msg("full reindex complete")
	return report, nil
}

func (s *IndexingService) reindexMarkers(ctx context.Context) (repositories.BulkResult, error) {
	total := repositories.BulkResult{}
	for page := 1; ; page++ {
		markers, err := s.catalog.ListMarkers(ctx, page, reindexPageSize)
		if err != nil {
			return total, apperrors.NewExternalError("failed to page markers", err)
		}
		if len(markers) == 0 {
			return total, nil
		}

		docs := make([]map[string]any, 0, len(markers))
		for _, m := range markers {
			docs = append(docs, MarkerDocument(m))
		}
		result, err := s.index.BulkIndex(ctx, typesense.MarkersCollection, docs)
		if err != nil {
			return total, apperrors.NewUnavailableError("failed to bulk index markers", err)
		}
		total.Indexed += result.Indexed
		total.Failed += result.Failed

		if len(markers) < reindexPageSize {
			return total, nil
		}
		if err := s.pause(ctx); err != nil {
			return total, err
		}
	}
}

func (s *IndexingService) reindexGames(ctx context.Context) (repositories.BulkResult, []string, error) {
	total := repositories.BulkResult{}
	gameIDs := []string{}
	for page := 1; ; page++ {
		games, err := s.catalog.ListGames(ctx, page, reindexPageSize)
		if err != nil {
			return total, gameIDs, apperrors.NewExternalError("failed to page games", err)
		}
		if len(games) == 0 {
			return total, gameIDs, nil
		}

		docs := make([]map[string]any, 0, len(games))
		for _, g := range games {
			docs = append(docs, GameDocument(g))
			gameIDs = append(gameIDs, g.ID)
		}
		result, err := s.index.BulkIndex(ctx, typesense.GamesCollection, docs)
		if err != nil {
			return total, gameIDs, apperrors.NewUnavailableError("failed to bulk index games", err)
		}
		total.Indexed += result.Indexed
		total.Failed += result.Failed

		if len(games) < reindexPageSize {
			return total, gameIDs, nil
		}
		if err := s.pause(ctx); err != nil {
			return total, gameIDs, err
		}
	}
}

func (s *IndexingService) reindexCategories(ctx context.Context, gameIDs []string) (repositories.BulkResult, error) {
	total := repositories.BulkResult{}
	for _, gameID := range gameIDs {
		categories, err := s.catalog.ListCategories(ctx, gameID)
		if err != nil {
			// One game's categories failing should not abort the rest
			log.Warn().Err(err).Str("game_id", gameID).Msg("failed to list categories")
			continue
		}
		if len(categories) == 0 {
			continue
		}

		docs := make([]map[string]any, 0, len(categories))
		for _, c := range categories {
			docs = append(docs, CategoryDocument(c))
		}
		result, err := s.index.BulkIndex(ctx, typesense.CategoriesCollection, docs)
		if err != nil {
			return total, apperrors.NewUnavailableError("failed to bulk index categories", err)
		}
		total.Indexed += result.Indexed
		total.Failed += result.Failed

		if err := s.pause(ctx); err != nil {
			return total, err
		}
	}
	return total, nil
}

func (s *IndexingService) pause(ctx context.Context) error {
	if s.pageDelay <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(s.pageDelay):
		return nil
	}
}

func (s *IndexingService) publish(eventType entities.CatalogEventType, collection, itemID, gameID string) {
	if s.bus == nil {
		return
	}

	event := &entities.CatalogEvent{
		ID:         uuid.New().String(),
		EventType:  eventType,
		Collection: collection,
		ItemID:     itemID,
		GameID:     gameID,
		OccurredAt: time.Now().UTC(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.bus.Publish(ctx, providers.EventChannelCatalogUpdates, event); err != nil {
		log.Warn().Err(err).Str("collection", collection).Msg("failed to publish catalog event")
	}
}

func validCollection(collection string) bool {
	switch collection {
	case typesense.MarkersCollection, typesense.GamesCollection, typesense.CategoriesCollection:
		return true
	}
	return false
}

// MarkerDocument flattens a catalog marker into its index document. The
// search_text field concatenates every searchable field so one boost-1
// clause can match anything.
func MarkerDocument(m *entities.CatalogMarker) map[string]any {
	doc := map[string]any{
		"id":               m.ID,
		"title":            m.Title,
		"title_prefix":     m.Title,
		"title_sort":       strings.ToLower(m.Title),
		"description":      m.Description,
		"search_text":      searchText(m.Title, m.Description, m.GameName, m.CategoryName, strings.Join(m.Tags, " ")),
		"game_id":          m.GameID,
		"game_name":        m.GameName,
		"category_id":      m.CategoryID,
		"category_name":    m.CategoryName,
		"tags":             m.Tags,
		"difficulty":       m.Difficulty,
		"completion_type":  m.CompletionType,
		"popularity_score": m.PopularityScore,
		"created_at":       m.CreatedAt.Unix(),
		"updated_at":       m.UpdatedAt.Unix(),
		"is_active":        true,
	}
	if m.Coordinates != nil {
		doc["coordinates"] = []float64{m.Coordinates.Lat, m.Coordinates.Lon}
	}
	return doc
}

// GameDocument flattens a catalog game into its index document
func GameDocument(g *entities.CatalogGame) map[string]any {
	tags := append([]string{}, g.Genres...)
	tags = append(tags, g.Platforms...)
	return map[string]any{
		"id":               g.ID,
		"title":            g.Title,
		"title_prefix":     g.Title,
		"title_sort":       strings.ToLower(g.Title),
		"description":      g.Description,
		"search_text":      searchText(g.Title, g.Description, g.Developer, g.Publisher, strings.Join(tags, " ")),
		"game_name":        g.Title,
		"tags":             tags,
		"popularity_score": g.PopularityScore,
		"created_at":       g.CreatedAt.Unix(),
	}
}

// CategoryDocument flattens a catalog category into its index document
func CategoryDocument(c *entities.CatalogCategory) map[string]any {
	return map[string]any{
		"id":            c.ID,
		"title":         c.Name,
		"title_prefix":  c.Name,
		"title_sort":    strings.ToLower(c.Name),
		"search_text":   searchText(c.Name),
		"game_id":       c.GameID,
		"category_name": c.Name,
		"created_at":    time.Now().Unix(),
	}
}

func searchText(parts ...string) string {
	nonEmpty := make([]string, 0, len(parts))
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.ToLower(strings.Join(nonEmpty, " "))
}
