package typesense

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/typesense/typesense-go/v2/typesense"
	"github.com/typesense/typesense-go/v2/typesense/api"
	"github.com/typesense/typesense-go/v2/typesense/api/pointer"

	"github.com/ritchermap/search-service/pkg/config"
	"github.com/ritchermap/search-service/pkg/retry"
)

const (
	MarkersCollection    = "markers"
	GamesCollection      = "games"
	CategoriesCollection = "categories"
)

// Client represents a Typesense client
type Client struct {
	client *typesense.Client
	prefix string
}

// NewClient creates a new Typesense client with exponential backoff retry
func NewClient(cfg *config.TypesenseConfig) (*Client, error) {
	client := typesense.NewClient(
		typesense.WithServer(cfg.URL),
		typesense.WithAPIKey(cfg.APIKey),
		typesense.WithConnectionTimeout(5*time.Second),
	)

	// Test connection with retry
	retryConfig := retry.DefaultConfig()
	err := retry.DoWithLog(
		context.Background(),
		retryConfig,
		"Typesense",
		func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_, err := client.Health(ctx, 2*time.Second)
			return err
		},
		func(attempt int, err error, nextDelay time.Duration) {
			log.Printf("Typesense connection attempt %d failed: %v. Retrying in %v...", attempt, err, nextDelay)
		},
	)

	if err != nil {
		return nil, fmt.Errorf("failed to connect to Typesense after retries: %w", err)
	}

	log.Println("Successfully connected to Typesense")
	return &Client{client: client, prefix: cfg.CollectionPrefix}, nil
}

// Client returns the underlying Typesense client
func (c *Client) Client() *typesense.Client {
	return c.client
}

// CollectionName maps a logical collection to its physical, prefixed name
func (c *Client) CollectionName(logical string) string {
	if c.prefix == "" {
		return logical
	}
	return c.prefix + "_" + logical
}

// InitSchema ensures the markers, games and categories collections exist
func (c *Client) InitSchema(ctx context.Context) error {
	existing, err := c.client.Collections().Retrieve(ctx)
	if err != nil {
		return fmt.Errorf("failed to retrieve collections: %w", err)
	}

	present := make(map[string]bool, len(existing))
	for _, col := range existing {
		present[col.Name] = true
	}

	for logical, schema := range map[string]*api.CollectionSchema{
		MarkersCollection:    markersSchema(),
		GamesCollection:      gamesSchema(),
		CategoriesCollection: categoriesSchema(),
	} {
		name := c.CollectionName(logical)
		if present[name] {
			log.Printf("Typesense collection '%s' already exists", name)
			continue
		}
		schema.Name = name
		if _, err := c.client.Collections().Create(ctx, schema); err != nil {
			return fmt.Errorf("failed to create collection %s: %w", name, err)
		}
		log.Printf("Created Typesense collection '%s'", name)
	}
	return nil
}

func markersSchema() *api.CollectionSchema {
	return &api.CollectionSchema{
		Fields: []api.Field{
			{Name: "id", Type: "string"},
			{Name: "title", Type: "string"},
			{Name: "title_prefix", Type: "string", Optional: pointer.True()},
			{Name: "title_sort", Type: "string", Sort: pointer.True(), Optional: pointer.True()},
			{Name: "description", Type: "string", Optional: pointer.True()},
			{Name: "search_text", Type: "string", Optional: pointer.True()},
			{Name: "game_id", Type: "string", Facet: pointer.True()},
			{Name: "game_name", Type: "string", Facet: pointer.True(), Optional: pointer.True()},
			{Name: "category_id", Type: "string", Facet: pointer.True(), Optional: pointer.True()},
			{Name: "category_name", Type: "string", Facet: pointer.True(), Optional: pointer.True()},
			{Name: "tags", Type: "string[]", Facet: pointer.True(), Optional: pointer.True()},
			{Name: "difficulty", Type: "string", Facet: pointer.True(), Optional: pointer.True()},
			{Name: "completion_type", Type: "string", Facet: pointer.True(), Optional: pointer.True()},
			{Name: "coordinates", Type: "geopoint", Optional: pointer.True()},
			{Name: "popularity_score", Type: "float", Optional: pointer.True()},
			{Name: "created_at", Type: "int64"},
			{Name: "updated_at", Type: "int64", Optional: pointer.True()},
			{Name: "is_active", Type: "bool", Optional: pointer.True()},
		},
		DefaultSortingField: pointer.String("created_at"),
	}
}

func gamesSchema() *api.CollectionSchema {
	return &api.CollectionSchema{
		Fields: []api.Field{
			{Name: "id", Type: "string"},
			{Name: "title", Type: "string"},
			{Name: "title_prefix", Type: "string", Optional: pointer.True()},
			{Name: "title_sort", Type: "string", Sort: pointer.True(), Optional: pointer.True()},
			{Name: "description", Type: "string", Optional: pointer.True()},
			{Name: "search_text", Type: "string", Optional: pointer.True()},
			{Name: "game_name", Type: "string", Optional: pointer.True()},
			{Name: "tags", Type: "string[]", Facet: pointer.True(), Optional: pointer.True()},
			{Name: "popularity_score", Type: "float", Optional: pointer.True()},
			{Name: "created_at", Type: "int64"},
			{Name: "updated_at", Type: "int64", Optional: pointer.True()},
		},
		DefaultSortingField: pointer.String("created_at"),
	}
}

func categoriesSchema() *api.CollectionSchema {
	return &api.CollectionSchema{
		Fields: []api.Field{
			{Name: "id", Type: "string"},
			{Name: "title", Type: "string"},
			{Name: "title_prefix", Type: "string", Optional: pointer.True()},
			{Name: "title_sort", Type: "string", Sort: pointer.True(), Optional: pointer.True()},
			{Name: "description", Type: "string", Optional: pointer.True()},
			{Name: "search_text", Type: "string", Optional: pointer.True()},
			{Name: "game_id", Type: "string", Facet: pointer.True(), Optional: pointer.True()},
			{Name: "game_name", Type: "string", Facet: pointer.True(), Optional: pointer.True()},
			{Name: "category_name", Type: "string", Optional: pointer.True()},
			{Name: "popularity_score", Type: "float", Optional: pointer.True()},
			{Name: "created_at", Type: "int64"},
			{Name: "updated_at", Type: "int64", Optional: pointer.True()},
		},
		DefaultSortingField: pointer.String("created_at"),
	}
}
