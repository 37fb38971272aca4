package service

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/hamrosewa/hamrosewa/internal/cache"
	"github.com/hamrosewa/hamrosewa/internal/domain"
	"github.com/hamrosewa/hamrosewa/internal/telemetry"
)

const (
	// DefaultSearchLimit is the result count when the caller does not ask
	// for one.
	DefaultSearchLimit = 20
	// MaxSearchLimit caps caller-supplied limits.
	MaxSearchLimit = 100
)

// RankingRepository is the storage-side ranking surface the search pipeline
// depends on. A nil or all-zero embedding means "no vector signal".
type RankingRepository interface {
	RankCandidates(ctx context.Context, searchQuery string, embedding []float32, filters domain.SearchFilters, limit int) ([]domain.ScoredResult, error)
	ListByCategory(ctx context.Context, category domain.Category, limit int) ([]domain.ScoredResult, error)
}

// IntentService extracts structured intent from a raw query.
type IntentService interface {
	ExtractIntent(ctx context.Context, query string) domain.SearchIntent
}

// QueryEmbedder converts query text into a vector, degrading to the zero
// vector rather than failing.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) []float32
}

// SearchLogRepository persists executed searches for offline tuning.
type SearchLogRepository interface {
	Insert(ctx context.Context, entry domain.SearchLog) error
}

// SearchInput is a search request. Caller filters overlay anything intent
// extraction finds; Limit of zero means DefaultSearchLimit.
type SearchInput struct {
	Query   string
	Filters domain.SearchFilters
	Limit   int
}

// SearchMetadata describes how a result set was produced. Query is the
// cleaned query the ranking ran against, or "category:<name>" when the
// category rescue produced the results.
type SearchMetadata struct {
	TotalResults    int                  `json:"total_results"`
	ExecutionTimeMs int64                `json:"execution_time_ms"`
	Query           string               `json:"query"`
	Filters         domain.SearchFilters `json:"filters"`
	Cached          bool                 `json:"cached"`
}

// SearchOutput is a ranked result set plus its metadata.
type SearchOutput struct {
	Results  []domain.ScoredResult `json:"results"`
	Metadata SearchMetadata        `json:"metadata"`
}

// SearchService runs the full retrieval pipeline: intent extraction, cache
// lookup, optional query embedding, blended ranking, and the fallback
// cascade. The only hard failure it surfaces is the ranking call itself.
type SearchService struct {
	intent   IntentService
	embedder QueryEmbedder
	repo     RankingRepository
	cache    cache.ResultCache
	logs     SearchLogRepository
}

// NewSearchService creates a new SearchService instance. cache and logs may
// be nil; both are best-effort concerns.
func NewSearchService(intent IntentService, embedder QueryEmbedder, repo RankingRepository, resultCache cache.ResultCache, logs SearchLogRepository) *SearchService {
	return &SearchService{
		intent:   intent,
		embedder: embedder,
		repo:     repo,
		cache:    resultCache,
		logs:     logs,
	}
}

// Search executes a query end to end and returns ranked, scored results.
// Empty result sets are a valid outcome, not an error.
func (s *SearchService) Search(ctx context.Context, input SearchInput) (*SearchOutput, error) {
	start := time.Now()

	rawQuery := strings.TrimSpace(input.Query)
	if rawQuery == "" {
		return nil, domain.ErrEmptyQuery
	}
	limit := normalizeLimit(input.Limit)

	ctx, span := telemetry.StartSpan(ctx, "SearchService.Search", telemetry.SpanAttributes{
		Operation: "search",
		Query:     rawQuery,
	})
	defer span.End()

	intent := s.intent.ExtractIntent(ctx, rawQuery)
	filters := intent.Filters.Merge(input.Filters)

	key := cache.Key(intent.SearchQuery, filters)
	if s.cache != nil {
		results, ok, err := s.cache.Get(ctx, key)
		if err != nil {
			log.Printf("result cache read failed, treating as miss: %v", err)
		} else if ok {
			return &SearchOutput{
				Results: results,
				Metadata: SearchMetadata{
					TotalResults:    len(results),
					ExecutionTimeMs: time.Since(start).Milliseconds(),
					Query:           intent.SearchQuery,
					Filters:         filters,
					Cached:          true,
				},
			}, nil
		}
	}

	skipped := ShouldSkipEmbedding(intent.SearchQuery, filters)
	var embedding []float32
	if !skipped {
		embedding = s.embedder.EmbedQuery(ctx, intent.SearchQuery)
	}

	results, err := s.repo.RankCandidates(ctx, intent.SearchQuery, embedding, filters, limit)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeUnavailable, "search is temporarily unavailable", err)
	}

	rescue := ""
	metaQuery := intent.SearchQuery

	// Having skipped the embedding and come up empty, retry once with the
	// vector signal before conceding.
	if len(results) == 0 && skipped {
		embedding = s.embedder.EmbedQuery(ctx, intent.SearchQuery)
		results, err = s.repo.RankCandidates(ctx, intent.SearchQuery, embedding, filters, limit)
		if err != nil {
			return nil, domain.NewDomainErrorWithCause(domain.ErrCodeUnavailable, "search is temporarily unavailable", err)
		}
		rescue = domain.RescueEmbedding
	}

	// Still empty with a known category: fall back to a plain
	// category listing ordered by rating.
	if len(results) == 0 && filters.Category != "" {
		results, err = s.repo.ListByCategory(ctx, filters.Category, limit)
		if err != nil {
			return nil, domain.NewDomainErrorWithCause(domain.ErrCodeUnavailable, "search is temporarily unavailable", err)
		}
		rescue = domain.RescueCategory
		metaQuery = "category:" + string(filters.Category)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, results); err != nil {
			log.Printf("result cache write failed: %v", err)
		}
	}

	s.recordSearch(rawQuery, filters, len(results), time.Since(start), skipped, rescue)

	return &SearchOutput{
		Results: results,
		Metadata: SearchMetadata{
			TotalResults:    len(results),
			ExecutionTimeMs: time.Since(start).Milliseconds(),
			Query:           metaQuery,
			Filters:         filters,
		},
	}, nil
}

// recordSearch persists the search log entry without blocking the response.
func (s *SearchService) recordSearch(query string, filters domain.SearchFilters, resultCount int, elapsed time.Duration, skipped bool, rescue string) {
	if s.logs == nil {
		return
	}

	entry := domain.SearchLog{
		Query:            query,
		Filters:          filters,
		ResultCount:      resultCount,
		DurationMs:       elapsed.Milliseconds(),
		EmbeddingSkipped: skipped,
		Rescue:           rescue,
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.logs.Insert(ctx, entry); err != nil {
			log.Printf("failed to record search log: %v", err)
		}
	}()
}

func normalizeLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultSearchLimit
	case limit > MaxSearchLimit:
		return MaxSearchLimit
	default:
		return limit
	}
}
