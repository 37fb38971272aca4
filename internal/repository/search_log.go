package repository

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hamrosewa/hamrosewa/internal/domain"
)

// SearchLogRepository stores executed searches for relevance tuning.
type SearchLogRepository struct {
	pool *pgxpool.Pool
}

func NewSearchLogRepository(pool *pgxpool.Pool) *SearchLogRepository {
	return &SearchLogRepository{pool: pool}
}

func (r *SearchLogRepository) Insert(ctx context.Context, entry domain.SearchLog) error {
	filters := map[string]any{}
	if entry.Filters.Category != "" {
		filters["category"] = string(entry.Filters.Category)
	}
	if entry.Filters.Location != "" {
		filters["location"] = entry.Filters.Location
	}
	if entry.Filters.MinCapacity > 0 {
		filters["min_capacity"] = entry.Filters.MinCapacity
	}
	if entry.Filters.MaxPrice > 0 {
		filters["max_price"] = entry.Filters.MaxPrice
	}
	if entry.Filters.MinRating > 0 {
		filters["min_rating"] = entry.Filters.MinRating
	}
	if len(entry.Filters.Tags) > 0 {
		filters["tags"] = entry.Filters.Tags
	}

	filtersJSON, _ := json.Marshal(filters)

	_, err := r.pool.Exec(ctx,
		`INSERT INTO search_logs (query, filters, result_count, duration_ms, embedding_skipped, rescue)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		entry.Query,
		filtersJSON,
		entry.ResultCount,
		entry.DurationMs,
		entry.EmbeddingSkipped,
		nullableString(entry.Rescue),
	)
	return err
}
