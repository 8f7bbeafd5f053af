package cachekeys

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHashMap_OrderIndependent(t *testing.T) {
	a := map[string]string{"game_ids": "g1,g2", "tags": "boss,loot", "difficulty": "hard"}
	b := map[string]string{"difficulty": "hard", "tags": "boss,loot", "game_ids": "g1,g2"}

	assert.Equal(t, HashMap(a), HashMap(b))
}

func TestHashMap_NilVsEmpty(t *testing.T) {
	assert.Equal(t, "none", HashMap(nil))
	assert.NotEqual(t, "none", HashMap(map[string]string{}))
}

func TestKey_Deterministic(t *testing.T) {
	b := NewBuilder("")

	k1 := b.SearchResults("treasure chest", map[string]string{"game_ids": "g1"}, "all", "relevance", 1, 20)
	k2 := b.SearchResults("treasure chest", map[string]string{"game_ids": "g1"}, "all", "relevance", 1, 20)

	assert.Equal(t, k1, k2)
	assert.True(t, strings.HasPrefix(k1, "ritchermap:search:"))
}

func TestKey_DifferentInputsDiffer(t *testing.T) {
	b := NewBuilder("ritchermap")

	base := b.SearchResults("treasure", nil, "all", "relevance", 1, 20)

	assert.NotEqual(t, base, b.SearchResults("treasure", nil, "all", "relevance", 2, 20))
	assert.NotEqual(t, base, b.SearchResults("treasure", nil, "markers", "relevance", 1, 20))
	assert.NotEqual(t, base, b.SearchResults("treasure", map[string]string{}, "all", "relevance", 1, 20))
}

func TestCleanComponent_LongStringDigested(t *testing.T) {
	long := strings.Repeat("treasure ", 20)

	got := cleanComponent(long)
	assert.Len(t, got, digestLen)
	assert.Equal(t, got, cleanComponent(long))
}

func TestCleanComponent_Normalizes(t *testing.T) {
	assert.Equal(t, cleanComponent("Treasure Chest!"), cleanComponent("treasure  chest"))
	assert.Equal(t, "none", cleanComponent(""))
	assert.Equal(t, "none", cleanComponent("!!!"))
}

func TestKey_NeverEmpty(t *testing.T) {
	b := NewBuilder("x")
	assert.NotEmpty(t, b.Key("search"))
	assert.NotEmpty(t, b.Key("search", "", "", ""))
}

func TestTypedHelpers(t *testing.T) {
	b := NewBuilder("ritchermap")

	assert.Equal(t, "ritchermap:session:u1", b.UserSession("u1"))
	assert.Equal(t, "ritchermap:counter:search_count:2026-08-29", b.Counter("search_count", "2026-08-29"))
	assert.Equal(t, "ritchermap:popular:marker:24h:10", b.PopularItems("marker", "24h", 10))
	assert.Equal(t, "ritchermap:trending:queries:1h:all", b.Trending("queries", "1h", ""))

	// anonymous recommendation requests collapse the user component
	rec := b.Recommendations("", "m1", "marker", "", "hybrid", 10)
	assert.Contains(t, rec, ":anon:")
	assert.Contains(t, rec, ":all:")
}
