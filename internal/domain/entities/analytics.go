package entities

import "time"

// SearchEvent is an append-only record of one search. Events are never
// mutated after creation.
type SearchEvent struct {
	ID              string    `json:"id" db:"id"`
	Query           string    `json:"query" db:"query"`
	NormalizedQuery string    `json:"normalized_query" db:"normalized_query"`
	SearchType      string    `json:"search_type" db:"search_type"`
	ResultCount     int       `json:"result_count" db:"result_count"`
	FiltersApplied  string    `json:"filters_applied,omitempty" db:"filters_applied"`
	UserID          string    `json:"user_id,omitempty" db:"user_id"`
	SessionID       string    `json:"session_id,omitempty" db:"session_id"`
	IPAddress       string    `json:"ip_address,omitempty" db:"ip_address"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}

// ClickEvent is an append-only record of one result click
type ClickEvent struct {
	ID              string    `json:"id" db:"id"`
	Query           string    `json:"query" db:"query"`
	NormalizedQuery string    `json:"normalized_query" db:"normalized_query"`
	ResultID        string    `json:"result_id" db:"result_id"`
	ResultType      string    `json:"result_type" db:"result_type"`
	ClickPosition   int       `json:"click_position" db:"click_position"`
	UserID          string    `json:"user_id,omitempty" db:"user_id"`
	SessionID       string    `json:"session_id,omitempty" db:"session_id"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}

// QueryCount is a normalized query with its occurrence count
type QueryCount struct {
	Query string `json:"query"`
	Count int    `json:"count"`
}

// SearchMetrics are windowed aggregates over the event log
type SearchMetrics struct {
	TotalSearches     int          `json:"total_searches"`
	UniqueQueries     int          `json:"unique_queries"`
	AvgResultsPerQry  float64      `json:"avg_results_per_query"`
	TopQueries        []QueryCount `json:"top_queries"`
	ZeroResultQueries []QueryCount `json:"zero_result_queries"`
	ClickThroughRate  float64      `json:"click_through_rate"`
	AvgClickPosition  float64      `json:"avg_click_position"`
	TimePeriod        string       `json:"time_period"`
}

// QueryPerformance are windowed aggregates for one normalized query
type QueryPerformance struct {
	Query            string    `json:"query"`
	SearchCount      int       `json:"search_count"`
	ClickCount       int       `json:"click_count"`
	ClickThroughRate float64   `json:"click_through_rate"`
	AvgClickPosition float64   `json:"avg_click_position"`
	ZeroResultsCount int       `json:"zero_results_count"`
	FirstSeen        time.Time `json:"first_seen"`
	LastSeen         time.Time `json:"last_seen"`
}

// TrendingQuery is a query trending within a window, with engagement stats
type TrendingQuery struct {
	Query            string  `json:"query"`
	SearchCount      int     `json:"search_count"`
	AvgResults       float64 `json:"avg_results"`
	ClickCount       int     `json:"click_count"`
	ClickThroughRate float64 `json:"click_through_rate"`
}

// PopularItem is an item ranked by click volume within a window
type PopularItem struct {
	ItemID           string  `json:"item_id"`
	ClickCount       int     `json:"click_count"`
	AvgClickPosition float64 `json:"avg_click_position"`
	UniqueQueries    int     `json:"unique_queries"`
}

// UserClickProfile maps a user's clicked items to position-decayed
// interaction weights. The weight of each click is 1/(position+1) using the
// click's actual recorded position.
type UserClickProfile struct {
	UserID  string             `json:"user_id"`
	Weights map[string]float64 `json:"weights"`
}
