package repositories

import (
	"context"
	"time"

	"github.com/ritchermap/search-service/internal/domain/entities"
)

// AnalyticsRepository is the append-and-aggregate boundary over the event
// store. Events are append-only; aggregates scan the log within the given
// window with no pre-rolled summaries.
type AnalyticsRepository interface {
	// LogSearch appends a search event
	LogSearch(ctx context.Context, event *entities.SearchEvent) error

	// LogClick appends a click event
	LogClick(ctx context.Context, event *entities.ClickEvent) error

	// SearchMetrics aggregates searches and clicks between start and end
	SearchMetrics(ctx context.Context, start, end time.Time, topN int) (*entities.SearchMetrics, error)

	// QueryPerformance aggregates one normalized query between start and end
	QueryPerformance(ctx context.Context, normalizedQuery string, start, end time.Time) (*entities.QueryPerformance, error)

	// TrendingQueries returns the most-searched queries in the window
	TrendingQueries(ctx context.Context, start, end time.Time, limit int) ([]*entities.TrendingQuery, error)

	// PopularItems returns the most-clicked items in the window
	PopularItems(ctx context.Context, itemType string, start, end time.Time, limit int) ([]*entities.PopularItem, error)

	// UserClickProfile returns one user's position-decayed click weights
	UserClickProfile(ctx context.Context, userID string, start, end time.Time) (*entities.UserClickProfile, error)

	// AllClickProfiles returns the click weights of every user seen in
	// the window, for neighbor discovery
	AllClickProfiles(ctx context.Context, start, end time.Time) ([]*entities.UserClickProfile, error)

	// ZeroResultQueries returns the most recent searches that found nothing
	ZeroResultQueries(ctx context.Context, limit int) ([]*entities.SearchEvent, error)
}
