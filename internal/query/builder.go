package query

import (
	"github.com/ritchermap/search-service/internal/domain/entities"
	"github.com/ritchermap/search-service/pkg/textutil"
)

// Fixed field boosts of the text match clause
var searchFieldBoosts = []FieldBoost{
	{Field: "title", Boost: 3},
	{Field: "title_prefix", Boost: 2},
	{Field: "description", Boost: 1},
	{Field: "search_text", Boost: 1},
	{Field: "category_name", Boost: 2},
	{Field: "game_name", Boost: 1},
	{Field: "tags", Boost: 2},
}

// Facet bucket budgets per aggregated field
const (
	facetGamesSize      = 10
	facetCategoriesSize = 20
	facetTagsSize       = 50
)

// Builder turns validated search requests into typed queries
type Builder struct {
	text *textutil.Processor
}

// NewBuilder creates a query builder
func NewBuilder(text *textutil.Processor) *Builder {
	return &Builder{text: text}
}

// BuildSearch constructs the query for a search request. The request must
// already be validated.
func (b *Builder) BuildSearch(req *entities.SearchRequest) *Query {
	q := &Query{
		Collections: collectionsFor(req.SearchType),
		Page:        req.Page,
		PageSize:    req.PageSize,
		Sort:        sortFor(req.Sort),
	}

	if processed := b.text.ProcessSearchQuery(req.Query); processed != "" {
		q.Text = &TextClause{
			Text:      processed,
			Fields:    searchFieldBoosts,
			FuzzyAuto: true,
		}
	}

	b.addFilters(q, req.Filters)

	if req.Highlight {
		q.Highlight = &HighlightSpec{
			Fields:       []string{"title", "description", "search_text"},
			FragmentSize: 100,
			MaxFragments: 2,
		}
	}

	q.Facets = []FacetSpec{
		{Name: "games", Field: "game_name", MaxSize: facetGamesSize},
		{Name: "categories", Field: "category_name", MaxSize: facetCategoriesSize},
		{Name: "tags", Field: "tags", MaxSize: facetTagsSize},
	}

	return q
}

// BuildPopularity constructs the query behind popularity recommendations:
// items of one collection ranked purely by precomputed popularity.
func (b *Builder) BuildPopularity(itemType, gameID string, limit int) *Query {
	q := &Query{
		Collections: []Collection{collectionForItemType(itemType)},
		Page:        1,
		PageSize:    limit,
		Sort:        sortFor(entities.SortPopularity),
	}
	if gameID != "" {
		q.Terms = append(q.Terms, TermsFilter{Field: "game_id", Values: []string{gameID}})
	}
	return q
}

func (b *Builder) addFilters(q *Query, f *entities.SearchFilter) {
	if f.IsZero() {
		return
	}

	if len(f.GameIDs) > 0 {
		q.Terms = append(q.Terms, TermsFilter{Field: "game_id", Values: f.GameIDs})
	}
	if len(f.CategoryIDs) > 0 {
		q.Terms = append(q.Terms, TermsFilter{Field: "category_id", Values: f.CategoryIDs})
	}
	if len(f.Tags) > 0 {
		q.Terms = append(q.Terms, TermsFilter{Field: "tags", Values: f.Tags})
	}
	if len(f.Difficulty) > 0 {
		q.Terms = append(q.Terms, TermsFilter{Field: "difficulty", Values: f.Difficulty})
	}
	if len(f.CompletionType) > 0 {
		q.Terms = append(q.Terms, TermsFilter{Field: "completion_type", Values: f.CompletionType})
	}
	if f.DateRange != nil && (f.DateRange.Start != nil || f.DateRange.End != nil) {
		q.DateRange = &DateRangeFilter{
			Field: "created_at",
			Start: f.DateRange.Start,
			End:   f.DateRange.End,
		}
	}
	// A bounding box is only applied complete; request parsing drops
	// partial bounds before they get here.
	if f.Bounds != nil {
		q.GeoBox = &GeoBoxFilter{
			Field: "coordinates",
			North: f.Bounds.North,
			South: f.Bounds.South,
			East:  f.Bounds.East,
			West:  f.Bounds.West,
		}
	}
}

func collectionsFor(t entities.SearchType) []Collection {
	switch t {
	case entities.SearchTypeMarkers:
		return []Collection{CollectionMarkers}
	case entities.SearchTypeGames:
		return []Collection{CollectionGames}
	case entities.SearchTypeCategories:
		return []Collection{CollectionCategories}
	default:
		return AllCollections
	}
}

func collectionForItemType(itemType string) Collection {
	switch itemType {
	case "game":
		return CollectionGames
	case "category":
		return CollectionCategories
	default:
		return CollectionMarkers
	}
}

func sortFor(s entities.SortOrder) []SortField {
	relevance := SortField{Field: "_score", Desc: true}
	switch s {
	case entities.SortPopularity:
		return []SortField{{Field: "popularity_score", Desc: true}, relevance}
	case entities.SortCreatedDate:
		return []SortField{{Field: "created_at", Desc: true}, relevance}
	case entities.SortUpdatedDate:
		return []SortField{{Field: "updated_at", Desc: true}, relevance}
	case entities.SortAlphabetical:
		return []SortField{{Field: "title_sort", Desc: false}, relevance}
	default:
		return []SortField{relevance}
	}
}
