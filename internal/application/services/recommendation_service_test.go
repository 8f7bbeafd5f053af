package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ritchermap/search-service/internal/domain/entities"
	"github.com/ritchermap/search-service/internal/domain/repositories"
	"github.com/ritchermap/search-service/internal/query"
	"github.com/ritchermap/search-service/pkg/cachekeys"
	"github.com/ritchermap/search-service/pkg/config"
	"github.com/ritchermap/search-service/pkg/textutil"
)

type recommendationFixture struct {
	svc       *RecommendationService
	index     *fakeIndexRepo
	analytics *fakeAnalyticsRepo
	cache     *fakeCacheProvider
}

func newRecommendationFixture(t *testing.T) *recommendationFixture {
	t.Helper()

	cacheProvider := newFakeCacheProvider()
	cache := NewCacheService(cacheProvider, cachekeys.NewBuilder("test"), 300)
	text := textutil.NewProcessor()
	analyticsRepo := &fakeAnalyticsRepo{}
	analytics := NewAnalyticsService(analyticsRepo, cache, text)

	index := newFakeIndexRepo()
	index.result = &repositories.RawSearchResult{
		Hits: []repositories.RawHit{
			{Collection: "markers", ID: "pop1", Document: map[string]any{"title": "Great Fairy Fountain", "popularity_score": 10.0, "game_id": "g1"}},
			{Collection: "markers", ID: "pop2", Document: map[string]any{"title": "Shrine of Trials", "popularity_score": 5.0, "game_id": "g1"}},
		},
		TotalHits: 2,
	}

	svc := NewRecommendationService(index, query.NewBuilder(text), analytics, cache, config.MLConfig{
		ModelPath:           t.TempDir(),
		SimilarityThreshold: 0.7,
		MaxRecommendations:  20,
		RetrainAfter:        time.Hour,
	})

	return &recommendationFixture{svc: svc, index: index, analytics: analyticsRepo, cache: cacheProvider}
}

func TestRecommendRejectsInvalidRequest(t *testing.T) {
	fx := newRecommendationFixture(t)

	_, err := fx.svc.Recommend(context.Background(), &entities.RecommendationRequest{Strategy: "psychic", Limit: 5})
	assert.Error(t, err)

	_, err = fx.svc.Recommend(context.Background(), &entities.RecommendationRequest{Strategy: entities.StrategyPopularity, Limit: 0})
	assert.Error(t, err)
}

func TestRecommendPopularityNormalizesScores(t *testing.T) {
	fx := newRecommendationFixture(t)

	results, err := fx.svc.Recommend(context.Background(), &entities.RecommendationRequest{
		Strategy: entities.StrategyPopularity,
		Limit:    10,
	})
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "pop1", results[0].ItemID)
	assert.Equal(t, 1.0, results[0].Score)
	assert.InDelta(t, 0.5, results[1].Score, 1e-9)
	assert.Contains(t, results[0].Reasons, "popular right now")
}

func TestRecommendPopularityIndexOutageReturnsEmpty(t *testing.T) {
	fx := newRecommendationFixture(t)
	fx.index.err = errFakeOutage

	results, err := fx.svc.Recommend(context.Background(), &entities.RecommendationRequest{
		Strategy: entities.StrategyPopularity,
		Limit:    10,
	})
	require.NoError(t, err, "strategy failure must not surface an internal error")
	assert.Empty(t, results)
}

func TestRecommendContentUsesSimilarityModel(t *testing.T) {
	fx := newRecommendationFixture(t)
	fx.svc.model.Store(trainContentModel(trainingItems(), time.Now().UTC()))

	results, err := fx.svc.Recommend(context.Background(), &entities.RecommendationRequest{
		Strategy: entities.StrategyContent,
		ItemID:   "m1",
		ItemType: "marker",
		Limit:    10,
	})
	require.NoError(t, err)
	require.NotEmpty(t, results)

	assert.Equal(t, "m2", results[0].ItemID, "most similar item ranks first")
	assert.Equal(t, results[0].Score, results[0].ContentScore)
	assert.Greater(t, results[0].Score, 0.0)
	for _, r := range results {
		assert.NotEqual(t, "m1", r.ItemID, "seed never recommended back")
	}
}

func TestRecommendContentUnknownSeedFallsBackToPopularity(t *testing.T) {
	fx := newRecommendationFixture(t)
	fx.svc.model.Store(trainContentModel(trainingItems(), time.Now().UTC()))

	results, err := fx.svc.Recommend(context.Background(), &entities.RecommendationRequest{
		Strategy: entities.StrategyContent,
		ItemID:   "never-indexed",
		Limit:    10,
	})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "pop1", results[0].ItemID)
}

func TestRecommendCollaborativeThresholdGating(t *testing.T) {
	fx := newRecommendationFixture(t)
	fx.analytics.profile = &entities.UserClickProfile{
		UserID:  "u1",
		Weights: map[string]float64{"m1": 1, "m2": 0.5, "m3": 0.2},
	}
	fx.analytics.profiles = []*entities.UserClickProfile{
		fx.analytics.profile,
		// Jaccard 3/4 = 0.75, above the 0.7 threshold
		{UserID: "u2", Weights: map[string]float64{"m1": 1, "m2": 1, "m3": 1, "m4": 0.6}},
		// Jaccard 1/4 = 0.25, excluded
		{UserID: "u3", Weights: map[string]float64{"m1": 1, "m9": 1}},
	}

	results, err := fx.svc.Recommend(context.Background(), &entities.RecommendationRequest{
		Strategy: entities.StrategyCollaborative,
		UserID:   "u1",
		Limit:    10,
	})
	require.NoError(t, err)
	require.Len(t, results, 1, "only the close neighbor's unseen item survives")

	assert.Equal(t, "m4", results[0].ItemID)
	assert.InDelta(t, 0.75*0.6, results[0].Score, 1e-9)
	assert.Equal(t, results[0].Score, results[0].CollaborativeScore)
}

func TestRecommendCollaborativeWithoutUserFallsBackToPopularity(t *testing.T) {
	fx := newRecommendationFixture(t)

	results, err := fx.svc.Recommend(context.Background(), &entities.RecommendationRequest{
		Strategy: entities.StrategyCollaborative,
		Limit:    10,
	})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "pop1", results[0].ItemID)
}

func TestRecommendHybridFoldsWeights(t *testing.T) {
	fx := newRecommendationFixture(t)

	// No seed and no user: content and collaborative sit the round out
	// entirely, so each item scores only 0.2 x its normalized popularity.
	results, err := fx.svc.Recommend(context.Background(), &entities.RecommendationRequest{
		Strategy: entities.StrategyHybrid,
		Limit:    10,
	})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.InDelta(t, hybridPopularityWeight*1.0, results[0].Score, 1e-9)
	assert.InDelta(t, hybridPopularityWeight*0.5, results[1].Score, 1e-9)
}

func TestRecommendHybridContentOnlyItemWeighted(t *testing.T) {
	fx := newRecommendationFixture(t)
	model := trainContentModel(trainingItems(), time.Now().UTC())
	fx.svc.model.Store(model)

	results, err := fx.svc.Recommend(context.Background(), &entities.RecommendationRequest{
		Strategy: entities.StrategyHybrid,
		ItemID:   "m1",
		ItemType: "marker",
		Limit:    10,
	})
	require.NoError(t, err)

	byID := map[string]*entities.RecommendationResult{}
	for _, r := range results {
		byID[r.ItemID] = r
	}

	// m2 appears only in the content strategy, so its hybrid score is
	// exactly the content weight times its similarity.
	sim := model.Matrix[model.index["m1"]][model.index["m2"]]
	require.Contains(t, byID, "m2")
	assert.InDelta(t, hybridContentWeight*sim, byID["m2"].Score, 1e-9)

	// Without a user the collaborative weight vanishes; pop1 keeps only
	// its popularity term.
	require.Contains(t, byID, "pop1")
	assert.InDelta(t, hybridPopularityWeight*1.0, byID["pop1"].Score, 1e-9)
}

func TestRecommendHybridUnknownSeedDropsContentTerm(t *testing.T) {
	fx := newRecommendationFixture(t)
	model := trainContentModel(trainingItems(), time.Now().UTC())
	fx.svc.model.Store(model)

	results, err := fx.svc.Recommend(context.Background(), &entities.RecommendationRequest{
		Strategy: entities.StrategyHybrid,
		ItemID:   "never-indexed",
		ItemType: "marker",
		Limit:    10,
	})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.InDelta(t, hybridPopularityWeight*1.0, results[0].Score, 1e-9)
}

func TestRecommendServesFromCache(t *testing.T) {
	fx := newRecommendationFixture(t)
	req := &entities.RecommendationRequest{Strategy: entities.StrategyPopularity, Limit: 10}

	_, err := fx.svc.Recommend(context.Background(), req)
	require.NoError(t, err)
	executed := fx.index.executeCount()

	again, err := fx.svc.Recommend(context.Background(), req)
	require.NoError(t, err)
	assert.Len(t, again, 2)
	assert.Equal(t, executed, fx.index.executeCount(), "cached response must not hit the index")
}

func TestTrainModelSnapshotsIndexAndPersists(t *testing.T) {
	fx := newRecommendationFixture(t)
	fx.index.exported = []map[string]any{
		{"id": "m1", "title": "Korok Seed", "game_id": "g1", "description": "hidden forest puzzle"},
		{"id": "m2", "title": "Korok Puzzle", "game_id": "g1", "description": "forest rock"},
		{"title": "no id, skipped"},
	}

	require.NoError(t, fx.svc.TrainModel(context.Background()))

	model := fx.svc.model.Load()
	require.NotNil(t, model)
	assert.Len(t, model.Items, 2)
	assert.True(t, model.Has("m1"))
	assert.False(t, fx.svc.ModelStale())

	_, err := os.Stat(filepath.Join(fx.svc.cfg.ModelPath, modelFileName))
	assert.NoError(t, err, "model bundle persisted to disk")
}

func TestModelStale(t *testing.T) {
	fx := newRecommendationFixture(t)
	assert.True(t, fx.svc.ModelStale(), "missing model is stale")

	fx.svc.model.Store(trainContentModel(nil, time.Now().Add(-2*time.Hour)))
	assert.True(t, fx.svc.ModelStale(), "model older than retrain interval is stale")

	fx.svc.model.Store(trainContentModel(nil, time.Now()))
	assert.False(t, fx.svc.ModelStale())
}
