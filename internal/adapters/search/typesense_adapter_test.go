package search

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/typesense/typesense-go/v2/typesense/api/pointer"

	"github.com/ritchermap/search-service/internal/query"
)

func TestSerializeTextClause(t *testing.T) {
	a := &TypesenseAdapter{}
	q := &query.Query{
		Collections: []query.Collection{query.CollectionMarkers},
		Text: &query.TextClause{
			Text: "treasure loot",
			Fields: []query.FieldBoost{
				{Field: "title", Boost: 3},
				{Field: "description", Boost: 1},
			},
			FuzzyAuto: true,
		},
		Page:     2,
		PageSize: 20,
	}

	params := a.serialize(q, query.CollectionMarkers)

	assert.Equal(t, pointer.String("treasure loot"), params.Q)
	assert.Equal(t, pointer.String("title,description"), params.QueryBy)
	assert.Equal(t, pointer.String("3,1"), params.QueryByWeights)
	assert.Nil(t, params.NumTypos)
	assert.Equal(t, pointer.Int(2), params.Page)
	assert.Equal(t, pointer.Int(20), params.PerPage)
}

func TestSerializeFilterOnly(t *testing.T) {
	a := &TypesenseAdapter{}
	q := &query.Query{
		Collections: []query.Collection{query.CollectionMarkers},
		Terms:       []query.TermsFilter{{Field: "tags", Values: []string{"boss", "loot"}}},
		Page:        1,
		PageSize:    10,
	}

	params := a.serialize(q, query.CollectionMarkers)

	assert.Equal(t, pointer.String("*"), params.Q)
	require.NotNil(t, params.FilterBy)
	assert.Equal(t, "tags:=[boss,loot]", *params.FilterBy)
}

func TestFilterByDropsUnknownFields(t *testing.T) {
	a := &TypesenseAdapter{}
	q := &query.Query{
		Terms: []query.TermsFilter{
			{Field: "game_id", Values: []string{"g1"}},
			{Field: "difficulty", Values: []string{"hard"}},
		},
	}

	// games carry no game_id or difficulty field
	assert.Empty(t, a.filterBy(q, query.CollectionGames))
	assert.Equal(t, "game_id:=[g1] && difficulty:=[hard]", a.filterBy(q, query.CollectionMarkers))
}

func TestFilterByDateRange(t *testing.T) {
	a := &TypesenseAdapter{}
	start := time.Unix(1700000000, 0).UTC()
	end := time.Unix(1800000000, 0).UTC()
	q := &query.Query{
		DateRange: &query.DateRangeFilter{Field: "created_at", Start: &start, End: &end},
	}

	assert.Equal(t, "created_at:>=1700000000 && created_at:<=1800000000", a.filterBy(q, query.CollectionMarkers))

	q.DateRange.End = nil
	assert.Equal(t, "created_at:>=1700000000", a.filterBy(q, query.CollectionMarkers))
}

func TestFilterByGeoBoxOnlyForMarkers(t *testing.T) {
	a := &TypesenseAdapter{}
	q := &query.Query{
		GeoBox: &query.GeoBoxFilter{Field: "coordinates", North: 10, South: 5, East: 20, West: 15},
	}

	markers := a.filterBy(q, query.CollectionMarkers)
	assert.Contains(t, markers, "coordinates:(")

	assert.Empty(t, a.filterBy(q, query.CollectionGames))
}

func TestSortBySerialization(t *testing.T) {
	a := &TypesenseAdapter{}

	got := a.sortBy([]query.SortField{
		{Field: "popularity_score", Desc: true},
		{Field: "_score", Desc: true},
	})
	assert.Equal(t, "popularity_score:desc,_text_match:desc", got)

	got = a.sortBy([]query.SortField{{Field: "title_sort", Desc: false}})
	assert.Equal(t, "title_sort:asc", got)

	// composite sorts cap at three fields
	got = a.sortBy([]query.SortField{
		{Field: "a", Desc: true}, {Field: "b", Desc: true},
		{Field: "c", Desc: true}, {Field: "d", Desc: true},
	})
	assert.Equal(t, "a:desc,b:desc,c:desc", got)
}

func TestAppendFacetBucketMergesAcrossCollections(t *testing.T) {
	buckets := appendFacetBucket(nil, "elden ring", 3)
	buckets = appendFacetBucket(buckets, "hollow knight", 2)
	buckets = appendFacetBucket(buckets, "elden ring", 4)

	require.Len(t, buckets, 2)
	assert.Equal(t, 7, buckets[0].Count)
	assert.Equal(t, "elden ring", buckets[0].Value)
}
