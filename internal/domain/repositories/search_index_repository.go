package repositories

import (
	"context"

	"github.com/ritchermap/search-service/internal/domain/entities"
	"github.com/ritchermap/search-service/internal/query"
)

// RawHit is one index document as returned by the search engine, before
// normalization into a SearchHit
type RawHit struct {
	Collection string
	ID         string
	Score      float64
	Document   map[string]any
	Highlights map[string][]string
}

// RawSearchResult is the merged, score-ordered output of a query execution
// across one or more collections
type RawSearchResult struct {
	Hits      []RawHit
	TotalHits int
	Facets    map[string][]entities.FacetBucket
	TookMs    int64
}

// BulkResult counts the independent outcomes of a bulk index operation.
// Partial failures are surfaced here, never retried by the repository.
type BulkResult struct {
	Indexed int
	Failed  int
}

// SearchIndexRepository is the full-text index boundary. Implementations
// translate the typed query representation to their wire protocol in one
// place; ranking logic never sees the wire format.
type SearchIndexRepository interface {
	// EnsureCollections creates the backing collections if missing
	EnsureCollections(ctx context.Context) error

	// Execute runs a typed query; with multiple collections the results
	// are merged into one score-ordered list
	Execute(ctx context.Context, q *query.Query) (*RawSearchResult, error)

	// SuggestTerms returns candidate titles matching q, for
	// "did you mean" ranking
	SuggestTerms(ctx context.Context, q string, limit int) ([]string, error)

	// IndexDocument upserts one document into a collection
	IndexDocument(ctx context.Context, collection string, doc map[string]any) error

	// DeleteDocument removes one document from a collection
	DeleteDocument(ctx context.Context, collection, id string) error

	// BulkIndex upserts many documents; each is independent
	BulkIndex(ctx context.Context, collection string, docs []map[string]any) (*BulkResult, error)

	// ExportAll streams every document of a collection, for model
	// training snapshots
	ExportAll(ctx context.Context, collection string) ([]map[string]any, error)
}
