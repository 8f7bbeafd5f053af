package entities

import "time"

// CatalogMarker is a marker as served by the marker service
type CatalogMarker struct {
	ID              string         `json:"id"`
	Title           string         `json:"title"`
	Description     string         `json:"description"`
	GameID          string         `json:"game_id"`
	GameName        string         `json:"game_name"`
	CategoryID      string         `json:"category_id"`
	CategoryName    string         `json:"category_name"`
	MapID           string         `json:"map_id"`
	MapName         string         `json:"map_name"`
	Tags            []string       `json:"tags"`
	Difficulty      string         `json:"difficulty"`
	CompletionType  string         `json:"completion_type"`
	Coordinates     *Coordinates   `json:"coordinates,omitempty"`
	PopularityScore float64        `json:"popularity_score"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	Metadata        map[string]any `json:"metadata,omitempty"`
}

// CatalogGame is a game as served by the content management service
type CatalogGame struct {
	ID              string         `json:"id"`
	Title           string         `json:"title"`
	Description     string         `json:"description"`
	Developer       string         `json:"developer"`
	Publisher       string         `json:"publisher"`
	Genres          []string       `json:"genres"`
	Platforms       []string       `json:"platforms"`
	ReleaseDate     string         `json:"release_date"`
	PopularityScore float64        `json:"popularity_score"`
	MarkerCount     int            `json:"marker_count"`
	CreatedAt       time.Time      `json:"created_at"`
	Metadata        map[string]any `json:"metadata,omitempty"`
}

// CatalogCategory is a marker category as served by the content
// management service
type CatalogCategory struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	GameID      string         `json:"game_id"`
	ParentID    string         `json:"parent_id,omitempty"`
	Icon        string         `json:"icon,omitempty"`
	Color       string         `json:"color,omitempty"`
	MarkerCount int            `json:"marker_count"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// CatalogEventType classifies catalog change events
type CatalogEventType string

const (
	CatalogEventIndexed   CatalogEventType = "indexed"
	CatalogEventDeleted   CatalogEventType = "deleted"
	CatalogEventReindexed CatalogEventType = "reindexed"
)

// CatalogEvent announces an index write so dependent caches can be
// invalidated; the write itself has already completed when the event
// is published.
type CatalogEvent struct {
	ID         string           `json:"id"`
	EventType  CatalogEventType `json:"event_type"`
	Collection string           `json:"collection"`
	ItemID     string           `json:"item_id,omitempty"`
	GameID     string           `json:"game_id,omitempty"`
	OccurredAt time.Time        `json:"occurred_at"`
}
