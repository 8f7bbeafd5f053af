package query

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ritchermap/search-service/internal/domain/entities"
	"github.com/ritchermap/search-service/pkg/textutil"
)

func newBuilder() *Builder {
	return NewBuilder(textutil.NewProcessor())
}

func baseRequest() *entities.SearchRequest {
	return &entities.SearchRequest{
		Query:      "treasure",
		SearchType: entities.SearchTypeAll,
		Sort:       entities.SortRelevance,
		Page:       1,
		PageSize:   20,
	}
}

func TestBuildSearch_FieldBoosts(t *testing.T) {
	q := newBuilder().BuildSearch(baseRequest())

	require.NotNil(t, q.Text)
	boosts := map[string]int{}
	for _, fb := range q.Text.Fields {
		boosts[fb.Field] = fb.Boost
	}

	assert.Equal(t, 3, boosts["title"])
	assert.Equal(t, 2, boosts["title_prefix"])
	assert.Equal(t, 1, boosts["description"])
	assert.Equal(t, 1, boosts["search_text"])
	assert.Equal(t, 2, boosts["category_name"])
	assert.Equal(t, 1, boosts["game_name"])
	assert.Equal(t, 2, boosts["tags"])
	assert.True(t, q.Text.FuzzyAuto)
}

func TestBuildSearch_SynonymExpansion(t *testing.T) {
	req := baseRequest()
	req.Query = "treasure chest"

	q := newBuilder().BuildSearch(req)

	require.NotNil(t, q.Text)
	assert.Contains(t, q.Text.Text, "loot")
	assert.Contains(t, q.Text.Text, "chest")
}

func TestBuildSearch_EmptyTextIsFilterOnly(t *testing.T) {
	req := baseRequest()
	req.Query = "!!!" // cleans to nothing
	req.Filters = &entities.SearchFilter{Tags: []string{"boss"}}

	q := newBuilder().BuildSearch(req)

	assert.Nil(t, q.Text)
	require.Len(t, q.Terms, 1)
	assert.Equal(t, "tags", q.Terms[0].Field)
}

func TestBuildSearch_FanOutCollections(t *testing.T) {
	q := newBuilder().BuildSearch(baseRequest())
	assert.Equal(t, AllCollections, q.Collections)

	req := baseRequest()
	req.SearchType = entities.SearchTypeGames
	q = newBuilder().BuildSearch(req)
	assert.Equal(t, []Collection{CollectionGames}, q.Collections)
}

func TestBuildSearch_FiltersConjunctive(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	req := baseRequest()
	req.Filters = &entities.SearchFilter{
		GameIDs:        []string{"g1", "g2"},
		Difficulty:     []string{"hard"},
		CompletionType: []string{"collectible"},
		DateRange:      &entities.DateRange{Start: &start},
	}

	q := newBuilder().BuildSearch(req)

	fields := []string{}
	for _, tf := range q.Terms {
		fields = append(fields, tf.Field)
	}
	assert.ElementsMatch(t, []string{"game_id", "difficulty", "completion_type"}, fields)
	require.NotNil(t, q.DateRange)
	assert.Equal(t, &start, q.DateRange.Start)
	assert.Nil(t, q.DateRange.End)
}

func TestBuildSearch_GeoBoxOnlyWhenComplete(t *testing.T) {
	req := baseRequest()
	req.Filters = &entities.SearchFilter{
		Bounds: &entities.GeoBounds{North: 10, South: 5, East: 20, West: 15},
	}

	q := newBuilder().BuildSearch(req)

	require.NotNil(t, q.GeoBox)
	assert.Equal(t, 10.0, q.GeoBox.North)
	assert.Equal(t, 15.0, q.GeoBox.West)

	// no bounds, no geo clause
	req.Filters = &entities.SearchFilter{Tags: []string{"x"}}
	assert.Nil(t, newBuilder().BuildSearch(req).GeoBox)
}

func TestBuildSearch_SortOrders(t *testing.T) {
	tests := []struct {
		sort  entities.SortOrder
		first SortField
		n     int
	}{
		{entities.SortRelevance, SortField{Field: "_score", Desc: true}, 1},
		{entities.SortPopularity, SortField{Field: "popularity_score", Desc: true}, 2},
		{entities.SortCreatedDate, SortField{Field: "created_at", Desc: true}, 2},
		{entities.SortUpdatedDate, SortField{Field: "updated_at", Desc: true}, 2},
		{entities.SortAlphabetical, SortField{Field: "title_sort", Desc: false}, 2},
	}

	for _, tt := range tests {
		t.Run(string(tt.sort), func(t *testing.T) {
			req := baseRequest()
			req.Sort = tt.sort
			q := newBuilder().BuildSearch(req)

			require.Len(t, q.Sort, tt.n)
			assert.Equal(t, tt.first, q.Sort[0])
			if tt.n == 2 {
				// every non-relevance order tie-breaks on relevance
				assert.Equal(t, SortField{Field: "_score", Desc: true}, q.Sort[1])
			}
		})
	}
}

func TestBuildSearch_HighlightAndFacets(t *testing.T) {
	req := baseRequest()
	req.Highlight = true

	q := newBuilder().BuildSearch(req)

	require.NotNil(t, q.Highlight)
	assert.Equal(t, 100, q.Highlight.FragmentSize)
	assert.Equal(t, 2, q.Highlight.MaxFragments)

	sizes := map[string]int{}
	for _, f := range q.Facets {
		sizes[f.Name] = f.MaxSize
	}
	assert.Equal(t, 10, sizes["games"])
	assert.Equal(t, 20, sizes["categories"])
	assert.Equal(t, 50, sizes["tags"])
}

func TestBuildPopularity(t *testing.T) {
	q := newBuilder().BuildPopularity("marker", "G1", 5)

	assert.Equal(t, []Collection{CollectionMarkers}, q.Collections)
	assert.Equal(t, 5, q.PageSize)
	require.Len(t, q.Terms, 1)
	assert.Equal(t, "game_id", q.Terms[0].Field)
	assert.Equal(t, []string{"G1"}, q.Terms[0].Values)
	require.Len(t, q.Sort, 2)
	assert.Equal(t, "popularity_score", q.Sort[0].Field)
	assert.True(t, q.Sort[0].Desc)
}
