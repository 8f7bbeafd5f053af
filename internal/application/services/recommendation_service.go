package services

import (
	"context"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ritchermap/search-service/internal/domain/entities"
	"github.com/ritchermap/search-service/internal/domain/repositories"
	"github.com/ritchermap/search-service/internal/infrastructure/clients/typesense"
	"github.com/ritchermap/search-service/internal/query"
	"github.com/ritchermap/search-service/pkg/config"
)

// Hybrid strategy weights. A strategy that produced nothing contributes
// zero, the weights are not renormalized.
const (
	hybridContentWeight       = 0.4
	hybridCollaborativeWeight = 0.4
	hybridPopularityWeight    = 0.2
)

// collaborativeHorizon bounds how far back click profiles reach
const collaborativeHorizon = 30 * 24 * time.Hour

const modelFileName = "content_model.json"

// RecommendationService ranks items by content similarity, collaborative
// click overlap, popularity, or a weighted hybrid of the three. Strategy
// failures degrade to the popularity fallback or an empty list; the
// service never surfaces an internal error for a valid request.
type RecommendationService struct {
	index     repositories.SearchIndexRepository
	builder   *query.Builder
	analytics *AnalyticsService
	cache     *CacheService
	cfg       config.MLConfig

	model      atomic.Pointer[contentModel]
	retraining atomic.Bool
}

// NewRecommendationService creates a new recommendation service
func NewRecommendationService(
	index repositories.SearchIndexRepository,
	builder *query.Builder,
	analytics *AnalyticsService,
	cache *CacheService,
	cfg config.MLConfig,
) *RecommendationService {
	return &RecommendationService{
		index:     index,
		builder:   builder,
		analytics: analytics,
		cache:     cache,
		cfg:       cfg,
	}
}

// Recommend returns ranked recommendations for a validated request
func (s *RecommendationService) Recommend(ctx context.Context, req *entities.RecommendationRequest) ([]*entities.RecommendationResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	key := s.cache.Keys().Recommendations(req.UserID, req.ItemID, req.ItemType, req.GameID, string(req.Strategy), req.Limit)
	cached := []*entities.RecommendationResult{}
	if s.cache.GetJSON(ctx, key, &cached) {
		return cached, nil
	}

	var results []*entities.RecommendationResult
	switch req.Strategy {
	case entities.StrategyContent:
		results = s.contentBased(ctx, req)
	case entities.StrategyCollaborative:
		results = s.collaborative(ctx, req)
	case entities.StrategyPopularity:
		results = s.popularity(ctx, req)
	default:
		results = s.hybrid(ctx, req)
	}

	if results == nil {
		results = []*entities.RecommendationResult{}
	}
	s.cache.SetJSON(ctx, key, results, CacheClassRecommendations)
	return results, nil
}

// contentBased ranks by cosine similarity to the seed item. Without a seed,
// or when the model has never seen it, popularity takes over.
func (s *RecommendationService) contentBased(ctx context.Context, req *entities.RecommendationRequest) []*entities.RecommendationResult {
	results := s.contentSimilar(req)
	if results == nil {
		return s.popularity(ctx, req)
	}
	return results
}

// contentSimilar is the raw content strategy: nil when there is no seed or
// the model has never seen it, never a popularity fallback.
func (s *RecommendationService) contentSimilar(req *entities.RecommendationRequest) []*entities.RecommendationResult {
	model := s.model.Load()
	if req.ItemID == "" || model == nil || !model.Has(req.ItemID) {
		return nil
	}

	similar := model.SimilarTo(req.ItemID, req.ItemType, req.GameID, req.Limit)
	results := make([]*entities.RecommendationResult, 0, len(similar))
	for _, cand := range similar {
		results = append(results, &entities.RecommendationResult{
			ItemID:       cand.Item.ID,
			Title:        cand.Item.Title,
			ItemType:     cand.Item.ItemType,
			GameID:       cand.Item.GameID,
			GameName:     cand.Item.GameName,
			Score:        cand.Score,
			ContentScore: cand.Score,
			Reasons:      []string{"similar to items you viewed"},
		})
	}
	return results
}

// collaborative ranks by the click overlap of similar users. Each neighbor
// contributes neighborSimilarity x neighborItemWeight; the caller's own
// clicked items are excluded.
func (s *RecommendationService) collaborative(ctx context.Context, req *entities.RecommendationRequest) []*entities.RecommendationResult {
	results := s.collaborativeByOverlap(ctx, req)
	if results == nil {
		return s.popularity(ctx, req)
	}
	return results
}

// collaborativeByOverlap is the raw collaborative strategy: nil when there is
// no user, no click history or no qualifying neighbor, never a popularity
// fallback.
func (s *RecommendationService) collaborativeByOverlap(ctx context.Context, req *entities.RecommendationRequest) []*entities.RecommendationResult {
	if req.UserID == "" {
		return nil
	}

	profile, err := s.analytics.UserClickWeights(ctx, req.UserID, collaborativeHorizon)
	if err != nil || len(profile.Weights) == 0 {
		if err != nil {
			log.Warn().Err(err).Str("user_id", req.UserID).Msg("click profile unavailable")
		}
		return nil
	}

	neighbors, err := s.analytics.AllClickProfiles(ctx, collaborativeHorizon)
	if err != nil {
		log.Warn().Err(err).Msg("neighbor profiles unavailable")
		return nil
	}

	scores := map[string]float64{}
	for _, neighbor := range neighbors {
		if neighbor.UserID == req.UserID {
			continue
		}
		sim := jaccardWeights(profile.Weights, neighbor.Weights)
		if sim < s.cfg.SimilarityThreshold {
			continue
		}
		for itemID, weight := range neighbor.Weights {
			if _, clicked := profile.Weights[itemID]; clicked {
				continue
			}
			scores[itemID] += sim * weight
		}
	}
	if len(scores) == 0 {
		return nil
	}

	results := make([]*entities.RecommendationResult, 0, len(scores))
	for itemID, score := range scores {
		results = append(results, &entities.RecommendationResult{
			ItemID:             itemID,
			ItemType:           req.ItemType,
			Score:              score,
			CollaborativeScore: score,
			Reasons:            []string{"players like you also clicked this"},
		})
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > req.Limit {
		results = results[:req.Limit]
	}
	s.hydrateTitles(results)
	return results
}

// popularity ranks by the precomputed popularity field in the index. This
// strategy is the fallback of last resort and itself never falls back.
func (s *RecommendationService) popularity(ctx context.Context, req *entities.RecommendationRequest) []*entities.RecommendationResult {
	q := s.builder.BuildPopularity(req.ItemType, req.GameID, req.Limit)
	raw, err := s.index.Execute(ctx, q)
	if err != nil {
		log.Warn().Err(err).Msg("popularity query failed")
		return nil
	}

	var maxScore float64
	for _, hit := range raw.Hits {
		if v, ok := hit.Document["popularity_score"].(float64); ok && v > maxScore {
			maxScore = v
		}
	}

	results := make([]*entities.RecommendationResult, 0, len(raw.Hits))
	for _, hit := range raw.Hits {
		score := 0.0
		if v, ok := hit.Document["popularity_score"].(float64); ok && maxScore > 0 {
			score = v / maxScore
		}
		results = append(results, &entities.RecommendationResult{
			ItemID:          hit.ID,
			Title:           stringField(hit.Document, "title"),
			ItemType:        req.ItemType,
			GameID:          stringField(hit.Document, "game_id"),
			GameName:        stringField(hit.Document, "game_name"),
			Score:           score,
			PopularityScore: score,
			Reasons:         []string{"popular right now"},
		})
		if len(results) == req.Limit {
			break
		}
	}
	return results
}

// hybrid blends the strategies with fixed weights. Content participates only
// when a seed id is given and collaborative only when a user id is given; a
// strategy whose precondition fails contributes nothing, it does not collapse
// into extra popularity weight.
func (s *RecommendationService) hybrid(ctx context.Context, req *entities.RecommendationRequest) []*entities.RecommendationResult {
	merged := map[string]*entities.RecommendationResult{}
	order := []string{}

	fold := func(results []*entities.RecommendationResult, weight float64, read func(*entities.RecommendationResult) float64) {
		for _, r := range results {
			target, ok := merged[r.ItemID]
			if !ok {
				target = &entities.RecommendationResult{
					ItemID:   r.ItemID,
					Title:    r.Title,
					ItemType: r.ItemType,
					GameID:   r.GameID,
					GameName: r.GameName,
				}
				merged[r.ItemID] = target
				order = append(order, r.ItemID)
			}
			if target.Title == "" {
				target.Title = r.Title
			}
			contribution := read(r)
			target.Score += weight * contribution
			target.ContentScore += r.ContentScore
			target.CollaborativeScore += r.CollaborativeScore
			target.PopularityScore += r.PopularityScore
			target.Reasons = mergeReasons(target.Reasons, r.Reasons)
		}
	}

	if req.ItemID != "" {
		fold(s.contentSimilar(req), hybridContentWeight, func(r *entities.RecommendationResult) float64 { return r.Score })
	}
	if req.UserID != "" {
		fold(s.collaborativeByOverlap(ctx, req), hybridCollaborativeWeight, func(r *entities.RecommendationResult) float64 { return r.Score })
	}
	fold(s.popularity(ctx, req), hybridPopularityWeight, func(r *entities.RecommendationResult) float64 { return r.Score })

	results := make([]*entities.RecommendationResult, 0, len(order))
	for _, id := range order {
		results = append(results, merged[id])
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > req.Limit {
		results = results[:req.Limit]
	}
	return results
}

// hydrateTitles fills titles for results produced from the event log alone
func (s *RecommendationService) hydrateTitles(results []*entities.RecommendationResult) {
	model := s.model.Load()
	if model == nil {
		return
	}
	for _, r := range results {
		if r.Title != "" {
			continue
		}
		if idx, ok := model.index[r.ItemID]; ok {
			item := model.Items[idx]
			r.Title = item.Title
			r.GameID = item.GameID
			r.GameName = item.GameName
		}
	}
}

// LoadModel restores a persisted model bundle from disk
func (s *RecommendationService) LoadModel() error {
	model, err := loadContentModel(s.modelPath())
	if err != nil {
		return err
	}
	s.model.Store(model)
	log.Info().Time("trained_at", model.TrainedAt).Int("items", len(model.Items)).Msg("loaded content model")
	return nil
}

// ModelStale reports whether the model is missing or older than the
// configured retrain interval
func (s *RecommendationService) ModelStale() bool {
	model := s.model.Load()
	return model == nil || model.Age() > s.cfg.RetrainAfter
}

// TrainModel snapshots the marker catalog from the index and trains a new
// similarity model. At most one training runs at a time; while training,
// the previous model keeps serving.
func (s *RecommendationService) TrainModel(ctx context.Context) error {
	if !s.retraining.CompareAndSwap(false, true) {
		log.Debug().Msg("model training already in flight")
		return nil
	}
	defer s.retraining.Store(false)

	docs, err := s.index.ExportAll(ctx, typesense.MarkersCollection)
	if err != nil {
		return err
	}

	items := make([]ItemFeature, 0, len(docs))
	for _, doc := range docs {
		id := stringField(doc, "id")
		if id == "" {
			continue
		}
		items = append(items, ItemFeature{
			ID:          id,
			Title:       stringField(doc, "title"),
			ItemType:    "marker",
			GameID:      stringField(doc, "game_id"),
			GameName:    stringField(doc, "game_name"),
			FeatureText: featureText(doc),
		})
	}

	model := trainContentModel(items, time.Now().UTC())
	s.model.Store(model)
	log.Info().Int("items", len(items)).Msg("trained content model")

	if err := model.Save(s.modelPath()); err != nil {
		log.Warn().Err(err).Msg("failed to persist content model")
	}
	return nil
}

// StartRetrainLoop trains at startup when needed and then retrains whenever
// the model outlives the configured interval. Blocks until ctx is done.
func (s *RecommendationService) StartRetrainLoop(ctx context.Context, checkEvery time.Duration) {
	if s.ModelStale() {
		if err := s.TrainModel(ctx); err != nil {
			log.Warn().Err(err).Msg("initial model training failed")
		}
	}

	ticker := time.NewTicker(checkEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !s.ModelStale() {
				continue
			}
			if err := s.TrainModel(ctx); err != nil {
				log.Warn().Err(err).Msg("model retraining failed")
			}
		}
	}
}

func (s *RecommendationService) modelPath() string {
	return filepath.Join(s.cfg.ModelPath, modelFileName)
}

// featureText concatenates the searchable text fields of an index document
func featureText(doc map[string]any) string {
	parts := []string{
		stringField(doc, "title"),
		stringField(doc, "description"),
		stringField(doc, "category_name"),
		stringField(doc, "game_name"),
	}
	parts = append(parts, stringSliceField(doc, "tags")...)

	nonEmpty := parts[:0]
	for _, p := range parts {
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.ToLower(strings.Join(nonEmpty, " "))
}

// jaccardWeights computes Jaccard similarity over the keysets of two weight
// maps. Identical sets give 1, disjoint sets 0.
func jaccardWeights(a, b map[string]float64) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	intersection := 0
	for k := range a {
		if _, ok := b[k]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func mergeReasons(existing, incoming []string) []string {
	for _, reason := range incoming {
		dup := false
		for _, have := range existing {
			if have == reason {
				dup = true
				break
			}
		}
		if !dup {
			existing = append(existing, reason)
		}
	}
	return existing
}
