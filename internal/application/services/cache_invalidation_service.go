package services

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ritchermap/search-service/internal/domain/entities"
	"github.com/ritchermap/search-service/internal/domain/providers"
)

// invalidationTimeout bounds the cache work done per catalog event
const invalidationTimeout = 5 * time.Second

// CacheInvalidationService subscribes to catalog events and drops cached
// search, trending and recommendation entries that depend on the touched
// data. The index write has already happened when an event arrives, so the
// worst case of a lost event is staleness until the shortest relevant TTL.
type CacheInvalidationService struct {
	cache    *CacheService
	eventBus providers.EventBus
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewCacheInvalidationService creates a new cache invalidation service
func NewCacheInvalidationService(cache *CacheService, eventBus providers.EventBus) *CacheInvalidationService {
	ctx, cancel := context.WithCancel(context.Background())
	return &CacheInvalidationService{
		cache:    cache,
		eventBus: eventBus,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start begins listening for catalog events
func (s *CacheInvalidationService) Start() error {
	eventChan, err := s.eventBus.Subscribe(s.ctx, providers.EventChannelCatalogUpdates)
	if err != nil {
		return fmt.Errorf("failed to subscribe to catalog updates: %w", err)
	}

	go s.processEvents(eventChan)
	log.Info().Msg("cache invalidation service started")
	return nil
}

// Stop stops the cache invalidation service
func (s *CacheInvalidationService) Stop() {
	s.cancel()
	log.Info().Msg("cache invalidation service stopped")
}

func (s *CacheInvalidationService) processEvents(eventChan <-chan *entities.CatalogEvent) {
	for {
		select {
		case <-s.ctx.Done():
			return
		case event := <-eventChan:
			if event == nil {
				continue
			}
			s.handleEvent(event)
		}
	}
}

// handleEvent invalidates the tag-indexed entries touched by one event.
// A full reindex additionally drops whole cache groups.
func (s *CacheInvalidationService) handleEvent(event *entities.CatalogEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), invalidationTimeout)
	defer cancel()

	removed := 0
	if event.EventType == entities.CatalogEventReindexed {
		removed += s.invalidateGroups(ctx)
	} else {
		removed += s.cache.InvalidateTag(ctx, "collection:"+event.Collection)
		if event.GameID != "" {
			removed += s.cache.InvalidateTag(ctx, "game:"+event.GameID)
		}
		if event.ItemID != "" {
			removed += s.cache.InvalidateTag(ctx, "item:"+event.ItemID)
		}
	}

	log.Debug().
		Str("event_id", event.ID).
		Str("collection", event.Collection).
		Str("event_type", string(event.EventType)).
		Int("entries_removed", removed).
		Msg("processed cache invalidation")
}

// invalidateGroups drops every cached search, trending, recommendation and
// popular-items entry. Used after bulk updates only.
func (s *CacheInvalidationService) invalidateGroups(ctx context.Context) int {
	removed := 0
	for _, namespace := range []string{"search", "trending", "recommendations", "popular", "autocomplete"} {
		pattern := s.cache.Keys().Key(namespace) + ":*"
		removed += s.cache.DeletePattern(ctx, pattern)
	}
	return removed
}

// InvalidateAll drops all derived cache groups immediately
func (s *CacheInvalidationService) InvalidateAll(ctx context.Context) int {
	return s.invalidateGroups(ctx)
}
