// Package cache provides the TTL result cache fronting the ranking call.
package cache

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/hamrosewa/hamrosewa/internal/domain"
)

// ResultCache stores ranked result sets keyed by normalized query and
// filter set. Implementations must be safe for concurrent use;
// last-write-wins on key collision is acceptable since entries are derived
// values, not sources of truth.
type ResultCache interface {
	Get(ctx context.Context, key string) ([]domain.ScoredResult, bool, error)
	Set(ctx context.Context, key string, results []domain.ScoredResult) error
}

// Key builds the canonical cache key for a query and filter set. The same
// derivation serves both get and set, and filter pairs are sorted so the
// key is independent of field enumeration order.
func Key(query string, f domain.SearchFilters) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(query)), " ")

	pairs := make([]string, 0, 6)
	if f.Category != "" {
		pairs = append(pairs, "category="+string(f.Category))
	}
	if f.Location != "" {
		pairs = append(pairs, "location="+strings.ToLower(strings.TrimSpace(f.Location)))
	}
	if f.MinCapacity > 0 {
		pairs = append(pairs, fmt.Sprintf("min_capacity=%d", f.MinCapacity))
	}
	if f.MaxPrice > 0 {
		pairs = append(pairs, fmt.Sprintf("max_price=%g", f.MaxPrice))
	}
	if f.MinRating > 0 {
		pairs = append(pairs, fmt.Sprintf("min_rating=%g", f.MinRating))
	}
	if len(f.Tags) > 0 {
		tags := make([]string, 0, len(f.Tags))
		for _, tag := range f.Tags {
			tags = append(tags, strings.ToLower(strings.TrimSpace(tag)))
		}
		sort.Strings(tags)
		pairs = append(pairs, "tags="+strings.Join(tags, ","))
	}
	sort.Strings(pairs)

	return normalized + "|" + strings.Join(pairs, "&")
}
