package entities

import apperrors "github.com/ritchermap/search-service/pkg/errors"

// Strategy selects how recommendations are computed
type Strategy string

const (
	StrategyContent       Strategy = "content"
	StrategyCollaborative Strategy = "collaborative"
	StrategyPopularity    Strategy = "popularity"
	StrategyHybrid        Strategy = "hybrid"
)

// Valid reports whether s is a known strategy
func (s Strategy) Valid() bool {
	switch s {
	case StrategyContent, StrategyCollaborative, StrategyPopularity, StrategyHybrid:
		return true
	}
	return false
}

// RecommendationRequest asks for ranked item suggestions
type RecommendationRequest struct {
	Strategy Strategy `json:"strategy"`
	UserID   string   `json:"user_id,omitempty"`
	ItemID   string   `json:"item_id,omitempty"`
	ItemType string   `json:"item_type"`
	GameID   string   `json:"game_id,omitempty"`
	Limit    int      `json:"limit"`
}

// Validate checks bounds and fills defaults
func (r *RecommendationRequest) Validate() error {
	if r.Strategy == "" {
		r.Strategy = StrategyHybrid
	}
	if !r.Strategy.Valid() {
		return apperrors.NewValidationError("unknown strategy: " + string(r.Strategy))
	}
	if r.ItemType == "" {
		r.ItemType = "marker"
	}
	if r.Limit < 1 || r.Limit > 50 {
		return apperrors.NewValidationError("limit must be between 1 and 50")
	}
	return nil
}

// RecommendationResult is one recommended item with its score provenance.
// Results are ephemeral; they are recomputed per request and only persist
// in the cache.
type RecommendationResult struct {
	ItemID   string   `json:"id"`
	Title    string   `json:"title"`
	ItemType string   `json:"type"`
	GameID   string   `json:"game_id,omitempty"`
	GameName string   `json:"game_name,omitempty"`
	Score    float64  `json:"score"`
	Reasons  []string `json:"reasons"`

	// Per-strategy contributions before hybrid weighting
	ContentScore       float64 `json:"content_score,omitempty"`
	CollaborativeScore float64 `json:"collaborative_score,omitempty"`
	PopularityScore    float64 `json:"popularity_score,omitempty"`
}
