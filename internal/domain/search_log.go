package domain

import "time"

// Rescue strategies recorded on a search log entry. Empty means the primary
// ranking pass produced the results.
const (
	RescueEmbedding = "embedding"
	RescueCategory  = "category"
)

// SearchLog is one executed search, persisted for relevance tuning. Entries
// are advisory: a failed write never fails the search that produced it.
type SearchLog struct {
	ID               string
	Query            string
	Filters          SearchFilters
	ResultCount      int
	DurationMs       int64
	EmbeddingSkipped bool
	Rescue           string
	CreatedAt        time.Time
}
