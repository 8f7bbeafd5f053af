package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Redis     RedisConfig
	Typesense TypesenseConfig
	Database  DatabaseConfig
	Catalog   CatalogConfig
	ML        MLConfig
	Cache     CacheConfig
	OTEL      OTELConfig
	Env       string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string
	Port int
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// TypesenseConfig holds search index configuration
type TypesenseConfig struct {
	URL              string
	APIKey           string
	CollectionPrefix string
}

// DatabaseConfig holds the analytics event store configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// CatalogConfig holds the upstream catalog service endpoints
type CatalogConfig struct {
	MarkerServiceURL string
	GameServiceURL   string
	PageDelay        time.Duration
}

// MLConfig holds recommendation model configuration
type MLConfig struct {
	ModelPath           string
	SimilarityThreshold float64
	MaxRecommendations  int
	RetrainAfter        time.Duration
}

// CacheConfig holds cache behavior configuration
type CacheConfig struct {
	KeyPrefix  string
	DefaultTTL int
}

// OTELConfig holds OpenTelemetry configuration
type OTELConfig struct {
	ServiceName    string
	ServiceVersion string
	Endpoint       string
	Enabled        bool
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	return &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnvAsInt("SERVER_PORT", 8080),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvAsInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Typesense: TypesenseConfig{
			URL:              getEnv("TYPESENSE_URL", "http://localhost:8108"),
			APIKey:           getEnv("TYPESENSE_API_KEY", "xyz"),
			CollectionPrefix: getEnv("TYPESENSE_COLLECTION_PREFIX", "ritchermap"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "ritchermap_search"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Catalog: CatalogConfig{
			MarkerServiceURL: getEnv("MARKER_SERVICE_URL", "http://marker-service:8080"),
			GameServiceURL:   getEnv("GAME_SERVICE_URL", "http://content-management-service:3000"),
			PageDelay:        getEnvAsDuration("CATALOG_PAGE_DELAY", 100*time.Millisecond),
		},
		ML: MLConfig{
			ModelPath:           getEnv("ML_MODEL_PATH", "./models"),
			SimilarityThreshold: getEnvAsFloat("SIMILARITY_THRESHOLD", 0.7),
			MaxRecommendations:  getEnvAsInt("MAX_RECOMMENDATIONS", 10),
			RetrainAfter:        getEnvAsDuration("MODEL_RETRAIN_AFTER", 24*time.Hour),
		},
		Cache: CacheConfig{
			KeyPrefix:  getEnv("CACHE_KEY_PREFIX", "ritchermap"),
			DefaultTTL: getEnvAsInt("CACHE_DEFAULT_TTL", 3600),
		},
		OTEL: OTELConfig{
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "ritchermap-search"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "1.0.0"),
			Endpoint:       getEnv("OTEL_ENDPOINT", ""),
			Enabled:        getEnvAsBool("OTEL_ENABLED", false),
		},
		Env: getEnv("APP_ENV", "development"),
	}, nil
}

// DatabaseDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
