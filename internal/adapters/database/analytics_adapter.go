package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/google/uuid"

	"github.com/ritchermap/search-service/internal/domain/entities"
	"github.com/ritchermap/search-service/internal/domain/repositories"
	"github.com/ritchermap/search-service/internal/infrastructure/clients/postgres"
	apperrors "github.com/ritchermap/search-service/pkg/errors"
)

var dialect = goqu.Dialect("postgres")

const (
	searchEventsTable = "search_events"
	clickEventsTable  = "click_events"
)

// AnalyticsAdapter implements AnalyticsRepository over the PostgreSQL event
// log. Events are append-only; every aggregate scans the log inside its
// window.
type AnalyticsAdapter struct {
	client *postgres.Client
}

var _ repositories.AnalyticsRepository = (*AnalyticsAdapter)(nil)

// NewAnalyticsAdapter creates a new analytics adapter
func NewAnalyticsAdapter(client *postgres.Client) *AnalyticsAdapter {
	return &AnalyticsAdapter{client: client}
}

// InitSchema creates the event tables if missing
func (a *AnalyticsAdapter) InitSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS search_events (
			id UUID PRIMARY KEY,
			query TEXT NOT NULL,
			normalized_query TEXT NOT NULL,
			search_type TEXT NOT NULL DEFAULT 'all',
			result_count INT NOT NULL DEFAULT 0,
			filters_applied TEXT,
			user_id TEXT,
			session_id TEXT,
			ip_address TEXT,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_search_events_created_at ON search_events (created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_search_events_normalized ON search_events (normalized_query, created_at)`,
		`CREATE TABLE IF NOT EXISTS click_events (
			id UUID PRIMARY KEY,
			query TEXT NOT NULL,
			normalized_query TEXT NOT NULL,
			result_id TEXT NOT NULL,
			result_type TEXT NOT NULL,
			click_position INT NOT NULL,
			user_id TEXT,
			session_id TEXT,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_click_events_created_at ON click_events (created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_click_events_user ON click_events (user_id, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_click_events_result ON click_events (result_id, created_at)`,
	}

	for _, stmt := range statements {
		if _, err := a.client.DB().ExecContext(ctx, stmt); err != nil {
			return apperrors.NewInternalError("failed to initialize analytics schema", err)
		}
	}
	return nil
}

// LogSearch appends a search event
func (a *AnalyticsAdapter) LogSearch(ctx context.Context, event *entities.SearchEvent) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	sqlStr, args, err := dialect.Insert(searchEventsTable).Prepared(true).Rows(goqu.Record{
		"id":               event.ID,
		"query":            event.Query,
		"normalized_query": event.NormalizedQuery,
		"search_type":      event.SearchType,
		"result_count":     event.ResultCount,
		"filters_applied":  event.FiltersApplied,
		"user_id":          event.UserID,
		"session_id":       event.SessionID,
		"ip_address":       event.IPAddress,
		"created_at":       event.CreatedAt,
	}).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build search event insert", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, sqlStr, args...); err != nil {
		return apperrors.NewInternalError("failed to log search event", err)
	}
	return nil
}

// LogClick appends a click event
func (a *AnalyticsAdapter) LogClick(ctx context.Context, event *entities.ClickEvent) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	sqlStr, args, err := dialect.Insert(clickEventsTable).Prepared(true).Rows(goqu.Record{
		"id":               event.ID,
		"query":            event.Query,
		"normalized_query": event.NormalizedQuery,
		"result_id":        event.ResultID,
		"result_type":      event.ResultType,
		"click_position":   event.ClickPosition,
		"user_id":          event.UserID,
		"session_id":       event.SessionID,
		"created_at":       event.CreatedAt,
	}).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build click event insert", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, sqlStr, args...); err != nil {
		return apperrors.NewInternalError("failed to log click event", err)
	}
	return nil
}

// SearchMetrics aggregates searches and clicks between start and end
func (a *AnalyticsAdapter) SearchMetrics(ctx context.Context, start, end time.Time, topN int) (*entities.SearchMetrics, error) {
	if topN <= 0 {
		topN = 10
	}

	metrics := &entities.SearchMetrics{
		TimePeriod: fmt.Sprintf("%s/%s", start.UTC().Format(time.RFC3339), end.UTC().Format(time.RFC3339)),
	}

	sqlStr, args, err := dialect.From(searchEventsTable).Prepared(true).
		Select(
			goqu.COUNT("*"),
			goqu.COUNT(goqu.DISTINCT("normalized_query")),
			goqu.AVG("result_count"),
		).
		Where(goqu.C("created_at").Between(goqu.Range(start, end))).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build search metrics query", err)
	}

	var avgResults sql.NullFloat64
	row := a.client.DB().QueryRowContext(ctx, sqlStr, args...)
	if err := row.Scan(&metrics.TotalSearches, &metrics.UniqueQueries, &avgResults); err != nil {
		return nil, apperrors.NewInternalError("failed to aggregate search events", err)
	}
	metrics.AvgResultsPerQry = avgResults.Float64

	topQueries, err := a.queryCounts(ctx, start, end, topN, false)
	if err != nil {
		return nil, err
	}
	metrics.TopQueries = topQueries

	zeroQueries, err := a.queryCounts(ctx, start, end, topN, true)
	if err != nil {
		return nil, err
	}
	metrics.ZeroResultQueries = zeroQueries

	sqlStr, args, err = dialect.From(clickEventsTable).Prepared(true).
		Select(goqu.COUNT("*"), goqu.AVG("click_position")).
		Where(goqu.C("created_at").Between(goqu.Range(start, end))).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build click metrics query", err)
	}

	var clickCount int
	var avgPosition sql.NullFloat64
	row = a.client.DB().QueryRowContext(ctx, sqlStr, args...)
	if err := row.Scan(&clickCount, &avgPosition); err != nil {
		return nil, apperrors.NewInternalError("failed to aggregate click events", err)
	}
	metrics.AvgClickPosition = avgPosition.Float64
	if metrics.TotalSearches > 0 {
		metrics.ClickThroughRate = float64(clickCount) / float64(metrics.TotalSearches)
	}

	return metrics, nil
}

func (a *AnalyticsAdapter) queryCounts(ctx context.Context, start, end time.Time, limit int, zeroOnly bool) ([]entities.QueryCount, error) {
	ds := dialect.From(searchEventsTable).Prepared(true).
		Select(goqu.C("normalized_query"), goqu.COUNT("*").As("search_count")).
		Where(goqu.C("created_at").Between(goqu.Range(start, end))).
		GroupBy(goqu.C("normalized_query")).
		Order(goqu.I("search_count").Desc()).
		Limit(uint(limit))
	if zeroOnly {
		ds = ds.Where(goqu.C("result_count").Eq(0))
	}

	sqlStr, args, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query count aggregate", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to aggregate query counts", err)
	}
	defer rows.Close()

	counts := []entities.QueryCount{}
	for rows.Next() {
		var qc entities.QueryCount
		if err := rows.Scan(&qc.Query, &qc.Count); err != nil {
			return nil, apperrors.NewInternalError("failed to scan query count", err)
		}
		counts = append(counts, qc)
	}
	return counts, rows.Err()
}

// QueryPerformance aggregates one normalized query between start and end
func (a *AnalyticsAdapter) QueryPerformance(ctx context.Context, normalizedQuery string, start, end time.Time) (*entities.QueryPerformance, error) {
	perf := &entities.QueryPerformance{Query: normalizedQuery}

	sqlStr, args, err := dialect.From(searchEventsTable).Prepared(true).
		Select(
			goqu.COUNT("*"),
			goqu.SUM(goqu.Case().When(goqu.C("result_count").Eq(0), 1).Else(0)),
			goqu.MIN("created_at"),
			goqu.MAX("created_at"),
		).
		Where(
			goqu.C("normalized_query").Eq(normalizedQuery),
			goqu.C("created_at").Between(goqu.Range(start, end)),
		).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query performance aggregate", err)
	}

	var zeroCount sql.NullInt64
	var firstSeen, lastSeen sql.NullTime
	row := a.client.DB().QueryRowContext(ctx, sqlStr, args...)
	if err := row.Scan(&perf.SearchCount, &zeroCount, &firstSeen, &lastSeen); err != nil {
		return nil, apperrors.NewInternalError("failed to aggregate query performance", err)
	}
	perf.ZeroResultsCount = int(zeroCount.Int64)
	perf.FirstSeen = firstSeen.Time
	perf.LastSeen = lastSeen.Time

	sqlStr, args, err = dialect.From(clickEventsTable).Prepared(true).
		Select(goqu.COUNT("*"), goqu.AVG("click_position")).
		Where(
			goqu.C("normalized_query").Eq(normalizedQuery),
			goqu.C("created_at").Between(goqu.Range(start, end)),
		).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query click aggregate", err)
	}

	var avgPosition sql.NullFloat64
	row = a.client.DB().QueryRowContext(ctx, sqlStr, args...)
	if err := row.Scan(&perf.ClickCount, &avgPosition); err != nil {
		return nil, apperrors.NewInternalError("failed to aggregate query clicks", err)
	}
	perf.AvgClickPosition = avgPosition.Float64
	if perf.SearchCount > 0 {
		perf.ClickThroughRate = float64(perf.ClickCount) / float64(perf.SearchCount)
	}

	return perf, nil
}

// TrendingQueries returns the most-searched queries in the window
func (a *AnalyticsAdapter) TrendingQueries(ctx context.Context, start, end time.Time, limit int) ([]*entities.TrendingQuery, error) {
	if limit <= 0 {
		limit = 10
	}

	sqlStr, args, err := dialect.From(searchEventsTable).Prepared(true).
		Select(goqu.C("normalized_query"), goqu.COUNT("*").As("search_count"), goqu.AVG("result_count")).
		Where(goqu.C("created_at").Between(goqu.Range(start, end))).
		GroupBy(goqu.C("normalized_query")).
		Order(goqu.I("search_count").Desc()).
		Limit(uint(limit)).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build trending query aggregate", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to aggregate trending queries", err)
	}
	defer rows.Close()

	trending := []*entities.TrendingQuery{}
	index := map[string]*entities.TrendingQuery{}
	for rows.Next() {
		tq := &entities.TrendingQuery{}
		var avgResults sql.NullFloat64
		if err := rows.Scan(&tq.Query, &tq.SearchCount, &avgResults); err != nil {
			return nil, apperrors.NewInternalError("failed to scan trending query", err)
		}
		tq.AvgResults = avgResults.Float64
		trending = append(trending, tq)
		index[tq.Query] = tq
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to read trending queries", err)
	}
	if len(trending) == 0 {
		return trending, nil
	}

	queries := make([]string, 0, len(index))
	for q := range index {
		queries = append(queries, q)
	}

	sqlStr, args, err = dialect.From(clickEventsTable).Prepared(true).
		Select(goqu.C("normalized_query"), goqu.COUNT("*")).
		Where(
			goqu.C("normalized_query").In(queries),
			goqu.C("created_at").Between(goqu.Range(start, end)),
		).
		GroupBy(goqu.C("normalized_query")).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build trending click aggregate", err)
	}

	clickRows, err := a.client.DB().QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to aggregate trending clicks", err)
	}
	defer clickRows.Close()

	for clickRows.Next() {
		var q string
		var count int
		if err := clickRows.Scan(&q, &count); err != nil {
			return nil, apperrors.NewInternalError("failed to scan trending clicks", err)
		}
		if tq, ok := index[q]; ok {
			tq.ClickCount = count
			if tq.SearchCount > 0 {
				tq.ClickThroughRate = float64(count) / float64(tq.SearchCount)
			}
		}
	}
	return trending, clickRows.Err()
}

// PopularItems returns the most-clicked items of one type in the window
func (a *AnalyticsAdapter) PopularItems(ctx context.Context, itemType string, start, end time.Time, limit int) ([]*entities.PopularItem, error) {
	if limit <= 0 {
		limit = 10
	}

	ds := dialect.From(clickEventsTable).Prepared(true).
		Select(
			goqu.C("result_id"),
			goqu.COUNT("*").As("click_count"),
			goqu.AVG("click_position"),
			goqu.COUNT(goqu.DISTINCT("normalized_query")),
		).
		Where(goqu.C("created_at").Between(goqu.Range(start, end))).
		GroupBy(goqu.C("result_id")).
		Order(goqu.I("click_count").Desc()).
		Limit(uint(limit))
	if itemType != "" {
		ds = ds.Where(goqu.C("result_type").Eq(itemType))
	}

	sqlStr, args, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build popular items aggregate", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to aggregate popular items", err)
	}
	defer rows.Close()

	items := []*entities.PopularItem{}
	for rows.Next() {
		item := &entities.PopularItem{}
		var avgPosition sql.NullFloat64
		if err := rows.Scan(&item.ItemID, &item.ClickCount, &avgPosition, &item.UniqueQueries); err != nil {
			return nil, apperrors.NewInternalError("failed to scan popular item", err)
		}
		item.AvgClickPosition = avgPosition.Float64
		items = append(items, item)
	}
	return items, rows.Err()
}

// UserClickProfile returns one user's position-decayed click weights. Each
// click contributes 1/(position+1) using its actual recorded position.
func (a *AnalyticsAdapter) UserClickProfile(ctx context.Context, userID string, start, end time.Time) (*entities.UserClickProfile, error) {
	sqlStr, args, err := dialect.From(clickEventsTable).Prepared(true).
		Select(goqu.C("result_id"), goqu.C("click_position")).
		Where(
			goqu.C("user_id").Eq(userID),
			goqu.C("created_at").Between(goqu.Range(start, end)),
		).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build click profile query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to load click profile", err)
	}
	defer rows.Close()

	profile := &entities.UserClickProfile{
		UserID:  userID,
		Weights: map[string]float64{},
	}
	for rows.Next() {
		var resultID string
		var position int
		if err := rows.Scan(&resultID, &position); err != nil {
			return nil, apperrors.NewInternalError("failed to scan click profile", err)
		}
		profile.Weights[resultID] += positionDecay(position)
	}
	return profile, rows.Err()
}

// AllClickProfiles returns the click weights of every user seen in the window
func (a *AnalyticsAdapter) AllClickProfiles(ctx context.Context, start, end time.Time) ([]*entities.UserClickProfile, error) {
	sqlStr, args, err := dialect.From(clickEventsTable).Prepared(true).
		Select(goqu.C("user_id"), goqu.C("result_id"), goqu.C("click_position")).
		Where(
			goqu.C("user_id").Neq(""),
			goqu.C("created_at").Between(goqu.Range(start, end)),
		).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build click profiles query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to load click profiles", err)
	}
	defer rows.Close()

	byUser := map[string]*entities.UserClickProfile{}
	order := []string{}
	for rows.Next() {
		var userID, resultID string
		var position int
		if err := rows.Scan(&userID, &resultID, &position); err != nil {
			return nil, apperrors.NewInternalError("failed to scan click profiles", err)
		}
		profile, ok := byUser[userID]
		if !ok {
			profile = &entities.UserClickProfile{UserID: userID, Weights: map[string]float64{}}
			byUser[userID] = profile
			order = append(order, userID)
		}
		profile.Weights[resultID] += positionDecay(position)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to read click profiles", err)
	}

	profiles := make([]*entities.UserClickProfile, 0, len(order))
	for _, userID := range order {
		profiles = append(profiles, byUser[userID])
	}
	return profiles, nil
}

// ZeroResultQueries returns the most recent searches that found nothing
func (a *AnalyticsAdapter) ZeroResultQueries(ctx context.Context, limit int) ([]*entities.SearchEvent, error) {
	if limit <= 0 {
		limit = 100
	}

	sqlStr, args, err := dialect.From(searchEventsTable).Prepared(true).
		Select(
			goqu.C("id"), goqu.C("query"), goqu.C("normalized_query"),
			goqu.C("search_type"), goqu.C("result_count"), goqu.C("filters_applied"),
			goqu.C("user_id"), goqu.C("session_id"), goqu.C("ip_address"),
			goqu.C("created_at"),
		).
		Where(goqu.C("result_count").Eq(0)).
		Order(goqu.C("created_at").Desc()).
		Limit(uint(limit)).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build zero result query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get zero result queries", err)
	}
	defer rows.Close()

	events := []*entities.SearchEvent{}
	for rows.Next() {
		e := &entities.SearchEvent{}
		var filters, userID, sessionID, ipAddress sql.NullString
		if err := rows.Scan(
			&e.ID, &e.Query, &e.NormalizedQuery,
			&e.SearchType, &e.ResultCount, &filters,
			&userID, &sessionID, &ipAddress,
			&e.CreatedAt,
		); err != nil {
			return nil, apperrors.NewInternalError("failed to scan search event", err)
		}
		e.FiltersApplied = filters.String
		e.UserID = userID.String
		e.SessionID = sessionID.String
		e.IPAddress = ipAddress.String
		events = append(events, e)
	}
	return events, rows.Err()
}

// positionDecay is the interaction weight of a click at a given result
// position. Position 0 is the top result.
func positionDecay(position int) float64 {
	if position < 0 {
		position = 0
	}
	return 1.0 / float64(position+1)
}
