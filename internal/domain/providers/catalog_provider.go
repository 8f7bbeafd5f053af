package providers

import (
	"context"

	"github.com/ritchermap/search-service/internal/domain/entities"
)

// CatalogProvider pages through the upstream catalog services. Implementations
// must respect the page/pageSize contract: a short page signals the end.
type CatalogProvider interface {
	// ListMarkers returns one page of markers
	ListMarkers(ctx context.Context, page, pageSize int) ([]*entities.CatalogMarker, error)

	// ListGames returns one page of games
	ListGames(ctx context.Context, page, pageSize int) ([]*entities.CatalogGame, error)

	// ListCategories returns the categories of one game
	ListCategories(ctx context.Context, gameID string) ([]*entities.CatalogCategory, error)
}
