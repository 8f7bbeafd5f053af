package search

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/typesense/typesense-go/v2/typesense/api"
	"github.com/typesense/typesense-go/v2/typesense/api/pointer"

	"github.com/ritchermap/search-service/internal/domain/entities"
	"github.com/ritchermap/search-service/internal/domain/repositories"
	"github.com/ritchermap/search-service/internal/infrastructure/clients/typesense"
	"github.com/ritchermap/search-service/internal/query"
)

const exportPageSize = 250

// filterableFields lists, per logical collection, the fields a filter may
// reference. Filters on fields a collection does not carry are dropped for
// that collection instead of failing the whole fan-out.
var filterableFields = map[query.Collection]map[string]bool{
	query.CollectionMarkers: {
		"game_id": true, "category_id": true, "tags": true,
		"difficulty": true, "completion_type": true,
	},
	query.CollectionGames: {
		"tags": true,
	},
	query.CollectionCategories: {
		"game_id": true,
	},
}

// TypesenseAdapter implements SearchIndexRepository using Typesense. All
// serialization of typed queries to the Typesense wire format lives here.
type TypesenseAdapter struct {
	client *typesense.Client
}

var _ repositories.SearchIndexRepository = (*TypesenseAdapter)(nil)

// NewTypesenseAdapter creates a new Typesense adapter
func NewTypesenseAdapter(client *typesense.Client) *TypesenseAdapter {
	return &TypesenseAdapter{client: client}
}

// EnsureCollections creates the backing collections if missing
func (a *TypesenseAdapter) EnsureCollections(ctx context.Context) error {
	return a.client.InitSchema(ctx)
}

// Execute runs a typed query against each target collection and merges the
// hits into one score-ordered list
func (a *TypesenseAdapter) Execute(ctx context.Context, q *query.Query) (*repositories.RawSearchResult, error) {
	started := time.Now()

	merged := &repositories.RawSearchResult{
		Facets: make(map[string][]entities.FacetBucket),
	}

	for _, collection := range q.Collections {
		params := a.serialize(q, collection)
		physical := a.client.CollectionName(string(collection))

		result, err := a.client.Client().Collection(physical).Documents().Search(ctx, params)
		if err != nil {
			return nil, fmt.Errorf("failed to search collection %s: %w", physical, err)
		}

		a.collect(merged, string(collection), result, q)
	}

	// Cross-collection merge is by engine score; pagination was already
	// applied per collection.
	sort.SliceStable(merged.Hits, func(i, j int) bool {
		return merged.Hits[i].Score > merged.Hits[j].Score
	})

	merged.TookMs = time.Since(started).Milliseconds()
	return merged, nil
}

// serialize converts the typed query to Typesense search parameters for one
// collection. This is the only place the wire format appears.
func (a *TypesenseAdapter) serialize(q *query.Query, collection query.Collection) *api.SearchCollectionParams {
	params := &api.SearchCollectionParams{
		Page:    pointer.Int(q.Page),
		PerPage: pointer.Int(q.PageSize),
	}

	if q.Text != nil {
		fields := make([]string, 0, len(q.Text.Fields))
		weights := make([]string, 0, len(q.Text.Fields))
		for _, fb := range q.Text.Fields {
			fields = append(fields, fb.Field)
			weights = append(weights, strconv.Itoa(fb.Boost))
		}
		params.Q = pointer.String(q.Text.Text)
		params.QueryBy = pointer.String(strings.Join(fields, ","))
		params.QueryByWeights = pointer.String(strings.Join(weights, ","))
		if !q.Text.FuzzyAuto {
			params.NumTypos = pointer.String("0")
		}
	} else {
		// Filter-only search
		params.Q = pointer.String("*")
		params.QueryBy = pointer.String("title")
	}

	if filter := a.filterBy(q, collection); filter != "" {
		params.FilterBy = pointer.String(filter)
	}

	if sortBy := a.sortBy(q.Sort); sortBy != "" {
		params.SortBy = pointer.String(sortBy)
	}

	if q.Highlight != nil {
		params.HighlightFields = pointer.String(strings.Join(q.Highlight.Fields, ","))
		params.SnippetThreshold = pointer.Int(q.Highlight.FragmentSize)
	}

	if len(q.Facets) > 0 {
		names := make([]string, 0, len(q.Facets))
		maxValues := 0
		for _, f := range q.Facets {
			names = append(names, f.Field)
			if f.MaxSize > maxValues {
				maxValues = f.MaxSize
			}
		}
		params.FacetBy = pointer.String(strings.Join(names, ","))
		params.MaxFacetValues = pointer.Int(maxValues)
	}

	return params
}

func (a *TypesenseAdapter) filterBy(q *query.Query, collection query.Collection) string {
	allowed := filterableFields[collection]
	clauses := []string{}

	for _, tf := range q.Terms {
		if !allowed[tf.Field] || len(tf.Values) == 0 {
			continue
		}
		clauses = append(clauses, fmt.Sprintf("%s:=[%s]", tf.Field, strings.Join(tf.Values, ",")))
	}

	if q.DateRange != nil {
		if q.DateRange.Start != nil {
			clauses = append(clauses, fmt.Sprintf("%s:>=%d", q.DateRange.Field, q.DateRange.Start.Unix()))
		}
		if q.DateRange.End != nil {
			clauses = append(clauses, fmt.Sprintf("%s:<=%d", q.DateRange.Field, q.DateRange.End.Unix()))
		}
	}

	// Geo filtering only applies to markers; the box arrives complete.
	if q.GeoBox != nil && collection == query.CollectionMarkers {
		b := q.GeoBox
		clauses = append(clauses, fmt.Sprintf(
			"%s:(%f, %f, %f, %f, %f, %f, %f, %f)",
			b.Field,
			b.North, b.West,
			b.North, b.East,
			b.South, b.East,
			b.South, b.West,
		))
	}

	return strings.Join(clauses, " && ")
}

func (a *TypesenseAdapter) sortBy(fields []query.SortField) string {
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		name := f.Field
		if name == "_score" {
			name = "_text_match"
		}
		dir := "asc"
		if f.Desc {
			dir = "desc"
		}
		parts = append(parts, name+":"+dir)

		// Typesense caps composite sorts at three fields
		if len(parts) == 3 {
			break
		}
	}
	return strings.Join(parts, ",")
}

// collect folds one collection's search result into the merged output
func (a *TypesenseAdapter) collect(merged *repositories.RawSearchResult, collection string, result *api.SearchResult, q *query.Query) {
	if result.Found != nil {
		merged.TotalHits += *result.Found
	}

	if result.Hits != nil {
		for _, hit := range *result.Hits {
			if hit.Document == nil {
				continue
			}
			doc := *hit.Document

			raw := repositories.RawHit{
				Collection: collection,
				Document:   doc,
			}
			if id, ok := doc["id"].(string); ok {
				raw.ID = id
			}
			if hit.TextMatch != nil {
				raw.Score = float64(*hit.TextMatch)
			}
			if hit.Highlights != nil {
				raw.Highlights = extractHighlights(*hit.Highlights, q.Highlight)
			}

			merged.Hits = append(merged.Hits, raw)
		}
	}

	if result.FacetCounts != nil {
		for _, fc := range *result.FacetCounts {
			if fc.FieldName == nil || fc.Counts == nil {
				continue
			}
			spec := facetSpecFor(q.Facets, *fc.FieldName)
			if spec == nil {
				continue
			}

			buckets := merged.Facets[spec.Name]
			for _, c := range *fc.Counts {
				if c.Value == nil || c.Count == nil {
					continue
				}
				buckets = appendFacetBucket(buckets, *c.Value, *c.Count)
			}

			sort.SliceStable(buckets, func(i, j int) bool {
				return buckets[i].Count > buckets[j].Count
			})
			if len(buckets) > spec.MaxSize {
				buckets = buckets[:spec.MaxSize]
			}
			merged.Facets[spec.Name] = buckets
		}
	}
}

// extractHighlights keeps at most MaxFragments snippets per field
func extractHighlights(highlights []api.SearchHighlight, spec *query.HighlightSpec) map[string][]string {
	if len(highlights) == 0 {
		return nil
	}

	maxFragments := 0
	if spec != nil {
		maxFragments = spec.MaxFragments
	}

	out := make(map[string][]string, len(highlights))
	for _, h := range highlights {
		if h.Field == nil {
			continue
		}
		var snippets []string
		if h.Snippets != nil {
			snippets = append(snippets, *h.Snippets...)
		} else if h.Snippet != nil {
			snippets = append(snippets, *h.Snippet)
		}
		if len(snippets) == 0 {
			continue
		}
		if maxFragments > 0 && len(snippets) > maxFragments {
			snippets = snippets[:maxFragments]
		}
		out[*h.Field] = snippets
	}

	if len(out) == 0 {
		return nil
	}
	return out
}

func facetSpecFor(specs []query.FacetSpec, field string) *query.FacetSpec {
	for i := range specs {
		if specs[i].Field == field {
			return &specs[i]
		}
	}
	return nil
}

// appendFacetBucket merges a count into an existing bucket when fan-out
// produced the same facet value from several collections
func appendFacetBucket(buckets []entities.FacetBucket, value string, count int) []entities.FacetBucket {
	for i := range buckets {
		if buckets[i].Value == value {
			buckets[i].Count += count
			return buckets
		}
	}
	return append(buckets, entities.FacetBucket{Value: value, Count: count})
}

// SuggestTerms returns candidate titles for "did you mean" ranking. The
// markers and games collections are both consulted.
func (a *TypesenseAdapter) SuggestTerms(ctx context.Context, q string, limit int) ([]string, error) {
	if q == "" || limit <= 0 {
		return nil, nil
	}

	titles := []string{}
	for _, logical := range []string{typesense.MarkersCollection, typesense.GamesCollection} {
		physical := a.client.CollectionName(logical)

		params := &api.SearchCollectionParams{
			Q:       pointer.String(q),
			QueryBy: pointer.String("title"),
			PerPage: pointer.Int(limit),
			Page:    pointer.Int(1),
		}

		result, err := a.client.Client().Collection(physical).Documents().Search(ctx, params)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch suggestions from %s: %w", physical, err)
		}

		if result.Hits == nil {
			continue
		}
		for _, hit := range *result.Hits {
			if hit.Document == nil {
				continue
			}
			if title, ok := (*hit.Document)["title"].(string); ok && title != "" {
				titles = append(titles, title)
			}
		}
	}

	return titles, nil
}

// IndexDocument upserts one document into a collection
func (a *TypesenseAdapter) IndexDocument(ctx context.Context, collection string, doc map[string]any) error {
	physical := a.client.CollectionName(collection)
	if _, err := a.client.Client().Collection(physical).Documents().Upsert(ctx, doc); err != nil {
		return fmt.Errorf("failed to index document in %s: %w", physical, err)
	}
	return nil
}

// DeleteDocument removes one document from a collection
func (a *TypesenseAdapter) DeleteDocument(ctx context.Context, collection, id string) error {
	physical := a.client.CollectionName(collection)
	if _, err := a.client.Client().Collection(physical).Document(id).Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete document %s from %s: %w", id, physical, err)
	}
	return nil
}

// BulkIndex upserts many documents. Each upsert is independent; failures
// are counted, not retried.
func (a *TypesenseAdapter) BulkIndex(ctx context.Context, collection string, docs []map[string]any) (*repositories.BulkResult, error) {
	result := &repositories.BulkResult{}
	physical := a.client.CollectionName(collection)

	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if _, err := a.client.Client().Collection(physical).Documents().Upsert(ctx, doc); err != nil {
			result.Failed++
			continue
		}
		result.Indexed++
	}
	return result, nil
}

// ExportAll pages through every document of a collection
func (a *TypesenseAdapter) ExportAll(ctx context.Context, collection string) ([]map[string]any, error) {
	physical := a.client.CollectionName(collection)

	var docs []map[string]any
	for page := 1; ; page++ {
		params := &api.SearchCollectionParams{
			Q:       pointer.String("*"),
			QueryBy: pointer.String("title"),
			Page:    pointer.Int(page),
			PerPage: pointer.Int(exportPageSize),
		}

		result, err := a.client.Client().Collection(physical).Documents().Search(ctx, params)
		if err != nil {
			return nil, fmt.Errorf("failed to export collection %s: %w", physical, err)
		}

		count := 0
		if result.Hits != nil {
			for _, hit := range *result.Hits {
				if hit.Document == nil {
					continue
				}
				docs = append(docs, *hit.Document)
				count++
			}
		}

		if count < exportPageSize {
			return docs, nil
		}
	}
}
