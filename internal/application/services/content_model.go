package services

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// ItemFeature is one catalog item as seen by the content model
type ItemFeature struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	ItemType    string `json:"type"`
	GameID      string `json:"game_id,omitempty"`
	GameName    string `json:"game_name,omitempty"`
	FeatureText string `json:"feature_text"`
}

// scoredItem pairs an item with a similarity score
type scoredItem struct {
	Item  ItemFeature
	Score float64
}

// contentModel holds the trained item-to-item similarity matrix. A model is
// immutable once trained; consumers swap whole models atomically.
type contentModel struct {
	TrainedAt time.Time     `json:"trained_at"`
	Items     []ItemFeature `json:"items"`
	Matrix    [][]float64   `json:"matrix"`

	index map[string]int
}

// trainContentModel builds term-frequency vectors from each item's feature
// text and derives the full cosine similarity matrix. The matrix is
// symmetric with a unit diagonal and every value in [0,1].
func trainContentModel(items []ItemFeature, trainedAt time.Time) *contentModel {
	model := &contentModel{
		TrainedAt: trainedAt,
		Items:     items,
		Matrix:    make([][]float64, len(items)),
	}

	vectors := make([]map[string]float64, len(items))
	for i, item := range items {
		vectors[i] = termFrequencies(item.FeatureText)
	}

	for i := range items {
		model.Matrix[i] = make([]float64, len(items))
		model.Matrix[i][i] = 1
	}
	for i := 0; i < len(items); i++ {
		for j := i + 1; j < len(items); j++ {
			sim := cosine(vectors[i], vectors[j])
			model.Matrix[i][j] = sim
			model.Matrix[j][i] = sim
		}
	}

	model.buildIndex()
	return model
}

func (m *contentModel) buildIndex() {
	m.index = make(map[string]int, len(m.Items))
	for i, item := range m.Items {
		m.index[item.ID] = i
	}
}

// Age returns how long ago the model was trained
func (m *contentModel) Age() time.Duration {
	return time.Since(m.TrainedAt)
}

// Has reports whether an item was part of the training snapshot
func (m *contentModel) Has(itemID string) bool {
	_, ok := m.index[itemID]
	return ok
}

// SimilarTo returns up to limit items most similar to the seed, scoped to
// itemType and optionally gameID, with the seed itself excluded
func (m *contentModel) SimilarTo(itemID, itemType, gameID string, limit int) []scoredItem {
	seed, ok := m.index[itemID]
	if !ok || limit <= 0 {
		return nil
	}

	candidates := make([]scoredItem, 0, limit)
	for i, item := range m.Items {
		if i == seed {
			continue
		}
		if itemType != "" && item.ItemType != itemType {
			continue
		}
		if gameID != "" && item.GameID != gameID {
			continue
		}
		score := m.Matrix[seed][i]
		if score <= 0 {
			continue
		}
		candidates = append(candidates, scoredItem{Item: item, Score: score})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates
}

// Save writes the model bundle as JSON. The artifact format is internal;
// only this package reads it back.
func (m *contentModel) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create model directory: %w", err)
	}

	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to encode model: %w", err)
	}

	// Write-then-rename keeps a loadable artifact on disk at all times
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write model: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace model: %w", err)
	}
	return nil
}

// loadContentModel reads a previously saved model bundle
func loadContentModel(path string) (*contentModel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	model := &contentModel{}
	if err := json.Unmarshal(data, model); err != nil {
		return nil, fmt.Errorf("failed to decode model: %w", err)
	}
	if len(model.Matrix) != len(model.Items) {
		return nil, fmt.Errorf("model matrix does not match item count")
	}
	model.buildIndex()
	return model, nil
}

// termFrequencies tokenizes text into a normalized term-frequency vector
func termFrequencies(text string) map[string]float64 {
	tokens := strings.Fields(strings.ToLower(text))
	if len(tokens) == 0 {
		return nil
	}

	freq := make(map[string]float64, len(tokens))
	for _, tok := range tokens {
		freq[tok]++
	}
	total := float64(len(tokens))
	for tok := range freq {
		freq[tok] /= total
	}
	return freq
}

// cosine computes cosine similarity between two sparse vectors, clamped to
// [0,1]
func cosine(a, b map[string]float64) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for tok, va := range a {
		normA += va * va
		if vb, ok := b[tok]; ok {
			dot += va * vb
		}
	}
	for _, vb := range b {
		normB += vb * vb
	}
	if dot == 0 || normA == 0 || normB == 0 {
		return 0
	}

	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if sim > 1 {
		sim = 1
	}
	if sim < 0 {
		sim = 0
	}
	return sim
}
