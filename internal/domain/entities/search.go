package entities

import (
	"time"

	apperrors "github.com/ritchermap/search-service/pkg/errors"
)

// SearchType selects which catalog collections a search runs against
type SearchType string

const (
	SearchTypeMarkers    SearchType = "markers"
	SearchTypeGames      SearchType = "games"
	SearchTypeCategories SearchType = "categories"
	SearchTypeAll        SearchType = "all"
)

// Valid reports whether t is a known search type
func (t SearchType) Valid() bool {
	switch t {
	case SearchTypeMarkers, SearchTypeGames, SearchTypeCategories, SearchTypeAll:
		return true
	}
	return false
}

// SortOrder is one of the five supported total orders
type SortOrder string

const (
	SortRelevance    SortOrder = "relevance"
	SortPopularity   SortOrder = "popularity"
	SortCreatedDate  SortOrder = "created_date"
	SortUpdatedDate  SortOrder = "updated_date"
	SortAlphabetical SortOrder = "alphabetical"
)

// Valid reports whether s is a known sort order
func (s SortOrder) Valid() bool {
	switch s {
	case SortRelevance, SortPopularity, SortCreatedDate, SortUpdatedDate, SortAlphabetical:
		return true
	}
	return false
}

// DateRange bounds a created-at filter; either side may be open
type DateRange struct {
	Start *time.Time `json:"start,omitempty"`
	End   *time.Time `json:"end,omitempty"`
}

// GeoBounds is a geographic bounding box. A box is only meaningful with all
// four bounds present; callers must never construct a partial one.
type GeoBounds struct {
	North float64 `json:"north"`
	South float64 `json:"south"`
	East  float64 `json:"east"`
	West  float64 `json:"west"`
}

// SearchFilter narrows a search. Only present fields contribute clauses.
type SearchFilter struct {
	GameIDs        []string   `json:"game_ids,omitempty"`
	CategoryIDs    []string   `json:"category_ids,omitempty"`
	Tags           []string   `json:"tags,omitempty"`
	Difficulty     []string   `json:"difficulty,omitempty"`
	CompletionType []string   `json:"completion_type,omitempty"`
	DateRange      *DateRange `json:"date_range,omitempty"`
	Bounds         *GeoBounds `json:"coordinates_bounds,omitempty"`
}

// IsZero reports whether no filter field is set
func (f *SearchFilter) IsZero() bool {
	if f == nil {
		return true
	}
	return len(f.GameIDs) == 0 && len(f.CategoryIDs) == 0 && len(f.Tags) == 0 &&
		len(f.Difficulty) == 0 && len(f.CompletionType) == 0 &&
		f.DateRange == nil && f.Bounds == nil
}

// SearchRequest is an immutable, validated search invocation
type SearchRequest struct {
	Query              string        `json:"query"`
	SearchType         SearchType    `json:"search_type"`
	Filters            *SearchFilter `json:"filters,omitempty"`
	Sort               SortOrder     `json:"sort"`
	Page               int           `json:"page"`
	PageSize           int           `json:"page_size"`
	IncludeSuggestions bool          `json:"include_suggestions"`
	Highlight          bool          `json:"highlight"`
}

// Validate checks request bounds and fills enum defaults
func (r *SearchRequest) Validate() error {
	if len(r.Query) < 1 || len(r.Query) > 1000 {
		return apperrors.NewValidationError("query must be between 1 and 1000 characters")
	}
	if r.SearchType == "" {
		r.SearchType = SearchTypeAll
	}
	if !r.SearchType.Valid() {
		return apperrors.NewValidationError("unknown search_type: " + string(r.SearchType))
	}
	if r.Sort == "" {
		r.Sort = SortRelevance
	}
	if !r.Sort.Valid() {
		return apperrors.NewValidationError("unknown sort order: " + string(r.Sort))
	}
	if r.Page < 1 {
		return apperrors.NewValidationError("page must be >= 1")
	}
	if r.PageSize < 1 || r.PageSize > 100 {
		return apperrors.NewValidationError("page_size must be between 1 and 100")
	}
	return nil
}

// Coordinates is a lat/lon point
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// SearchHit is one ranked document normalized across collections
type SearchHit struct {
	ID           string              `json:"id"`
	SourceType   string              `json:"source_type"` // marker, game, category
	Title        string              `json:"title"`
	Description  string              `json:"description,omitempty"`
	GameID       string              `json:"game_id,omitempty"`
	GameName     string              `json:"game_name,omitempty"`
	CategoryID   string              `json:"category_id,omitempty"`
	CategoryName string              `json:"category_name,omitempty"`
	Coordinates  *Coordinates        `json:"coordinates,omitempty"`
	Tags         []string            `json:"tags,omitempty"`
	Score        float64             `json:"score"`
	Highlights   map[string][]string `json:"highlights,omitempty"`
	Metadata     map[string]any      `json:"metadata,omitempty"`
}

// FacetBucket is one value/count pair of a facet breakdown
type FacetBucket struct {
	Value string `json:"key"`
	Count int    `json:"count"`
}

// SearchResponse is the fully paginated result of a search
type SearchResponse struct {
	Hits        []SearchHit              `json:"hits"`
	TotalHits   int                      `json:"total_hits"`
	Page        int                      `json:"page"`
	PageSize    int                      `json:"page_size"`
	TotalPages  int                      `json:"total_pages"`
	TookMs      int64                    `json:"took_ms"`
	Suggestions []string                 `json:"suggestions,omitempty"`
	Facets      map[string][]FacetBucket `json:"facets,omitempty"`
}

// Suggestion is one autocomplete candidate
type Suggestion struct {
	Text       string  `json:"text"`
	SourceType string  `json:"source_type"`
	Score      float64 `json:"score"`
}
