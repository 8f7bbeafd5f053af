package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/ritchermap/search-service/internal/domain/entities"
	"github.com/ritchermap/search-service/internal/domain/providers"
	"github.com/ritchermap/search-service/internal/domain/repositories"
	"github.com/ritchermap/search-service/internal/query"
)

// fakeCacheProvider is an in-memory CacheProvider. Setting failing makes
// every operation error, simulating a cache outage.
type fakeCacheProvider struct {
	mu      sync.Mutex
	data    map[string][]byte
	sets    map[string]map[string]struct{}
	counts  map[string]int64
	zsets   map[string]map[string]float64
	failing bool
}

func newFakeCacheProvider() *fakeCacheProvider {
	return &fakeCacheProvider{
		data:   map[string][]byte{},
		sets:   map[string]map[string]struct{}{},
		counts: map[string]int64{},
		zsets:  map[string]map[string]float64{},
	}
}

var errFakeOutage = errors.New("cache outage")

func (f *fakeCacheProvider) Get(ctx context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return nil, errFakeOutage
	}
	v, ok := f.data[key]
	if !ok {
		return nil, providers.ErrCacheMiss
	}
	return v, nil
}

func (f *fakeCacheProvider) Set(ctx context.Context, key string, value []byte, expirationSeconds int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return errFakeOutage
	}
	f.data[key] = value
	return nil
}

func (f *fakeCacheProvider) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return errFakeOutage
	}
	delete(f.data, key)
	delete(f.sets, key)
	return nil
}

func (f *fakeCacheProvider) Exists(ctx context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return false, errFakeOutage
	}
	_, ok := f.data[key]
	return ok, nil
}

func (f *fakeCacheProvider) GetMulti(ctx context.Context, keys []string) (map[string][]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return nil, errFakeOutage
	}
	out := map[string][]byte{}
	for _, k := range keys {
		if v, ok := f.data[k]; ok {
			out[k] = v
		}
	}
	return out, nil
}

func (f *fakeCacheProvider) SetMulti(ctx context.Context, items map[string][]byte, expirationSeconds int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return errFakeOutage
	}
	for k, v := range items {
		f.data[k] = v
	}
	return nil
}

func (f *fakeCacheProvider) DeleteMulti(ctx context.Context, keys []string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return 0, errFakeOutage
	}
	deleted := 0
	for _, k := range keys {
		if _, ok := f.data[k]; ok {
			delete(f.data, k)
			deleted++
		}
	}
	return deleted, nil
}

func (f *fakeCacheProvider) DeletePattern(ctx context.Context, pattern string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return 0, errFakeOutage
	}
	prefix := strings.TrimSuffix(pattern, "*")
	deleted := 0
	for k := range f.data {
		if strings.HasPrefix(k, prefix) {
			delete(f.data, k)
			deleted++
		}
	}
	return deleted, nil
}

func (f *fakeCacheProvider) Increment(ctx context.Context, key string, amount int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return 0, errFakeOutage
	}
	f.counts[key] += amount
	return f.counts[key], nil
}

func (f *fakeCacheProvider) Expire(ctx context.Context, key string, ttl time.Duration) error {
	if f.failing {
		return errFakeOutage
	}
	return nil
}

func (f *fakeCacheProvider) TTL(ctx context.Context, key string) (time.Duration, error) {
	return time.Minute, nil
}

func (f *fakeCacheProvider) ZIncrBy(ctx context.Context, key, member string, delta float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return errFakeOutage
	}
	if f.zsets[key] == nil {
		f.zsets[key] = map[string]float64{}
	}
	f.zsets[key][member] += delta
	return nil
}

func (f *fakeCacheProvider) ZRevRangeWithScores(ctx context.Context, key string, count int) ([]providers.ZMember, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return nil, errFakeOutage
	}
	members := []providers.ZMember{}
	for m, score := range f.zsets[key] {
		members = append(members, providers.ZMember{Member: m, Score: score})
	}
	for i := 1; i < len(members); i++ {
		for j := i; j > 0 && members[j].Score > members[j-1].Score; j-- {
			members[j], members[j-1] = members[j-1], members[j]
		}
	}
	if len(members) > count {
		members = members[:count]
	}
	return members, nil
}

func (f *fakeCacheProvider) SAdd(ctx context.Context, key string, members ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return errFakeOutage
	}
	if f.sets[key] == nil {
		f.sets[key] = map[string]struct{}{}
	}
	for _, m := range members {
		f.sets[key][m] = struct{}{}
	}
	return nil
}

func (f *fakeCacheProvider) SMembers(ctx context.Context, key string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return nil, errFakeOutage
	}
	out := []string{}
	for m := range f.sets[key] {
		out = append(out, m)
	}
	return out, nil
}

func (f *fakeCacheProvider) counter(key string) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counts[key]
}

// fakeIndexRepo is a scripted SearchIndexRepository
type fakeIndexRepo struct {
	mu          sync.Mutex
	result      *repositories.RawSearchResult
	suggestions []string
	exported    []map[string]any
	err         error

	executed []*query.Query
	indexed  map[string][]map[string]any
	deleted  []string
}

func newFakeIndexRepo() *fakeIndexRepo {
	return &fakeIndexRepo{
		result:  &repositories.RawSearchResult{},
		indexed: map[string][]map[string]any{},
	}
}

func (f *fakeIndexRepo) EnsureCollections(ctx context.Context) error { return f.err }

func (f *fakeIndexRepo) Execute(ctx context.Context, q *query.Query) (*repositories.RawSearchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.executed = append(f.executed, q)
	return f.result, nil
}

func (f *fakeIndexRepo) SuggestTerms(ctx context.Context, q string, limit int) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.suggestions, nil
}

func (f *fakeIndexRepo) IndexDocument(ctx context.Context, collection string, doc map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.indexed[collection] = append(f.indexed[collection], doc)
	return nil
}

func (f *fakeIndexRepo) DeleteDocument(ctx context.Context, collection, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, collection+"/"+id)
	return nil
}

func (f *fakeIndexRepo) BulkIndex(ctx context.Context, collection string, docs []map[string]any) (*repositories.BulkResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.indexed[collection] = append(f.indexed[collection], docs...)
	return &repositories.BulkResult{Indexed: len(docs)}, nil
}

func (f *fakeIndexRepo) ExportAll(ctx context.Context, collection string) ([]map[string]any, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.exported, nil
}

func (f *fakeIndexRepo) executeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.executed)
}

// fakeAnalyticsRepo records events and serves scripted aggregates
type fakeAnalyticsRepo struct {
	mu       sync.Mutex
	searches []*entities.SearchEvent
	clicks   []*entities.ClickEvent

	metrics  *entities.SearchMetrics
	trending []*entities.TrendingQuery
	popular  []*entities.PopularItem
	profile  *entities.UserClickProfile
	profiles []*entities.UserClickProfile
	err      error
}

func (f *fakeAnalyticsRepo) LogSearch(ctx context.Context, event *entities.SearchEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.searches = append(f.searches, event)
	return nil
}

func (f *fakeAnalyticsRepo) LogClick(ctx context.Context, event *entities.ClickEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.clicks = append(f.clicks, event)
	return nil
}

func (f *fakeAnalyticsRepo) SearchMetrics(ctx context.Context, start, end time.Time, topN int) (*entities.SearchMetrics, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.metrics == nil {
		return &entities.SearchMetrics{}, nil
	}
	return f.metrics, nil
}

func (f *fakeAnalyticsRepo) QueryPerformance(ctx context.Context, normalizedQuery string, start, end time.Time) (*entities.QueryPerformance, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &entities.QueryPerformance{Query: normalizedQuery}, nil
}

func (f *fakeAnalyticsRepo) TrendingQueries(ctx context.Context, start, end time.Time, limit int) ([]*entities.TrendingQuery, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.trending, nil
}

func (f *fakeAnalyticsRepo) PopularItems(ctx context.Context, itemType string, start, end time.Time, limit int) ([]*entities.PopularItem, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.popular, nil
}

func (f *fakeAnalyticsRepo) UserClickProfile(ctx context.Context, userID string, start, end time.Time) (*entities.UserClickProfile, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.profile == nil {
		return &entities.UserClickProfile{UserID: userID, Weights: map[string]float64{}}, nil
	}
	return f.profile, nil
}

func (f *fakeAnalyticsRepo) AllClickProfiles(ctx context.Context, start, end time.Time) ([]*entities.UserClickProfile, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.profiles, nil
}

func (f *fakeAnalyticsRepo) ZeroResultQueries(ctx context.Context, limit int) ([]*entities.SearchEvent, error) {
	return nil, f.err
}

func (f *fakeAnalyticsRepo) searchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.searches)
}

func (f *fakeAnalyticsRepo) clickCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.clicks)
}

// fakeCatalog serves scripted catalog pages
type fakeCatalog struct {
	markers    []*entities.CatalogMarker
	games      []*entities.CatalogGame
	categories map[string][]*entities.CatalogCategory
	err        error
}

func (f *fakeCatalog) ListMarkers(ctx context.Context, page, pageSize int) ([]*entities.CatalogMarker, error) {
	if f.err != nil {
		return nil, f.err
	}
	return pageOf(f.markers, page, pageSize), nil
}

func (f *fakeCatalog) ListGames(ctx context.Context, page, pageSize int) ([]*entities.CatalogGame, error) {
	if f.err != nil {
		return nil, f.err
	}
	return pageOf(f.games, page, pageSize), nil
}

func (f *fakeCatalog) ListCategories(ctx context.Context, gameID string) ([]*entities.CatalogCategory, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.categories[gameID], nil
}

func pageOf[T any](items []T, page, pageSize int) []T {
	start := (page - 1) * pageSize
	if start >= len(items) {
		return nil
	}
	end := start + pageSize
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

// fakeEventBus records published events
type fakeEventBus struct {
	mu     sync.Mutex
	events []*entities.CatalogEvent
	ch     chan *entities.CatalogEvent
}

func newFakeEventBus() *fakeEventBus {
	return &fakeEventBus{ch: make(chan *entities.CatalogEvent, 100)}
}

func (f *fakeEventBus) Publish(ctx context.Context, channel string, event *entities.CatalogEvent) error {
	f.mu.Lock()
	f.events = append(f.events, event)
	f.mu.Unlock()
	select {
	case f.ch <- event:
	default:
	}
	return nil
}

func (f *fakeEventBus) Subscribe(ctx context.Context, channel string) (<-chan *entities.CatalogEvent, error) {
	return f.ch, nil
}

func (f *fakeEventBus) Close() error { return nil }

func (f *fakeEventBus) published() []*entities.CatalogEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*entities.CatalogEvent, len(f.events))
	copy(out, f.events)
	return out
}
