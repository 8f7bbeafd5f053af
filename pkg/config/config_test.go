package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_TypesenseConfig(t *testing.T) {
	os.Setenv("TYPESENSE_URL", "http://test-typesense:8108")
	os.Setenv("TYPESENSE_API_KEY", "test-key")
	os.Setenv("TYPESENSE_COLLECTION_PREFIX", "staging")
	defer func() {
		os.Unsetenv("TYPESENSE_URL")
		os.Unsetenv("TYPESENSE_API_KEY")
		os.Unsetenv("TYPESENSE_COLLECTION_PREFIX")
	}()

	cfg, err := Load()
	assert.NoError(t, err)

	assert.Equal(t, "http://test-typesense:8108", cfg.Typesense.URL)
	assert.Equal(t, "test-key", cfg.Typesense.APIKey)
	assert.Equal(t, "staging", cfg.Typesense.CollectionPrefix)
}

func TestLoad_Defaults(t *testing.T) {
	os.Unsetenv("TYPESENSE_URL")
	os.Unsetenv("TYPESENSE_API_KEY")

	cfg, err := Load()
	assert.NoError(t, err)

	assert.Equal(t, "http://localhost:8108", cfg.Typesense.URL)
	assert.Equal(t, "xyz", cfg.Typesense.APIKey)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "ritchermap", cfg.Cache.KeyPrefix)
	assert.Equal(t, 3600, cfg.Cache.DefaultTTL)
	assert.Equal(t, 100*time.Millisecond, cfg.Catalog.PageDelay)
	assert.Equal(t, 24*time.Hour, cfg.ML.RetrainAfter)
	assert.False(t, cfg.OTEL.Enabled)
}

func TestLoad_MLConfig(t *testing.T) {
	os.Setenv("MODEL_RETRAIN_AFTER", "6h")
	os.Setenv("SIMILARITY_THRESHOLD", "0.85")
	defer func() {
		os.Unsetenv("MODEL_RETRAIN_AFTER")
		os.Unsetenv("SIMILARITY_THRESHOLD")
	}()

	cfg, err := Load()
	assert.NoError(t, err)

	assert.Equal(t, 6*time.Hour, cfg.ML.RetrainAfter)
	assert.InDelta(t, 0.85, cfg.ML.SimilarityThreshold, 1e-9)
}
