// Package query holds the typed intermediate representation of an index
// query. Ranking logic builds and inspects these values; serialization to
// the index's wire protocol happens in the search adapter only.
package query

import "time"

// Collection names the logical collections behind a search
type Collection string

const (
	CollectionMarkers    Collection = "markers"
	CollectionGames      Collection = "games"
	CollectionCategories Collection = "categories"
)

// AllCollections is the fan-out set for search_type=all
var AllCollections = []Collection{CollectionMarkers, CollectionGames, CollectionCategories}

// FieldBoost weights one field of the text match clause
type FieldBoost struct {
	Field string
	Boost int
}

// TextClause is the weighted multi-field match of a query. A nil TextClause
// means filter-only search.
type TextClause struct {
	Text   string
	Fields []FieldBoost

	// FuzzyAuto scales typo tolerance with token length at the boundary
	FuzzyAuto bool
}

// TermsFilter tests membership of a field against a value set
type TermsFilter struct {
	Field  string
	Values []string
}

// DateRangeFilter bounds a date field; either side may be open
type DateRangeFilter struct {
	Field string
	Start *time.Time
	End   *time.Time
}

// GeoBoxFilter constrains a geopoint field to a bounding box. Builders
// only emit this with all four bounds present.
type GeoBoxFilter struct {
	Field string
	North float64
	South float64
	East  float64
	West  float64
}

// SortField is one element of a composite sort
type SortField struct {
	Field string // "_score" for relevance
	Desc  bool
}

// HighlightSpec bounds fragment extraction
type HighlightSpec struct {
	Fields       []string
	FragmentSize int
	MaxFragments int
}

// FacetSpec is one term aggregation
type FacetSpec struct {
	Name    string
	Field   string
	MaxSize int
}

// Query is a complete, typed search specification. Filters compose
// conjunctively.
type Query struct {
	Collections []Collection
	Text        *TextClause
	Terms       []TermsFilter
	DateRange   *DateRangeFilter
	GeoBox      *GeoBoxFilter
	Sort        []SortField
	Page        int
	PageSize    int
	Highlight   *HighlightSpec
	Facets      []FacetSpec
}
