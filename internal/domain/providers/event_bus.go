package providers

import (
	"context"

	"github.com/ritchermap/search-service/internal/domain/entities"
)

// Event channels
const (
	// EventChannelCatalogUpdates carries index-write notifications used
	// for cache invalidation
	EventChannelCatalogUpdates = "catalog:updates"
)

// EventBus is the publish/subscribe boundary for catalog change events.
// Publishing is fire-and-forget relative to the index write that caused it.
type EventBus interface {
	// Publish delivers an event to all subscribers of a channel
	Publish(ctx context.Context, channel string, event *entities.CatalogEvent) error

	// Subscribe returns a channel of events; it is closed when ctx is done
	Subscribe(ctx context.Context, channel string) (<-chan *entities.CatalogEvent, error)

	// Close tears down all subscriptions
	Close() error
}
