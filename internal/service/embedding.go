package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/hamrosewa/hamrosewa/internal/domain"
	"github.com/hamrosewa/hamrosewa/internal/telemetry"
)

const (
	defaultEmbeddingDimensions = 768
	defaultEmbeddingTimeout    = 5 * time.Second

	// skipWordBound is the word-count bound of the embedding skip
	// heuristic: queries of at most this many words that already carry a
	// category or location filter are served lexically.
	skipWordBound = 2
)

// EmbeddingClient defines the interface for generating embeddings
type EmbeddingClient interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// ServiceEmbeddingRepository is the catalog persistence needed for
// embedding backfill.
type ServiceEmbeddingRepository interface {
	GetByServiceID(ctx context.Context, serviceID string) (*domain.ServiceRecord, error)
	UpdateEmbedding(ctx context.Context, id string, embedding []float32) error
}

// EmbeddingService generates query and catalog embeddings. Query embedding
// never fails: any upstream error degrades to a zero vector, which the
// ranking layer treats as "no vector signal".
type EmbeddingService struct {
	client     EmbeddingClient
	repo       ServiceEmbeddingRepository
	dimensions int
	timeout    time.Duration
}

// NewEmbeddingService creates a new EmbeddingService instance. A nil client
// means every query embeds to the zero vector.
func NewEmbeddingService(client EmbeddingClient, repo ServiceEmbeddingRepository, dimensions int, timeout time.Duration) *EmbeddingService {
	if dimensions <= 0 {
		dimensions = defaultEmbeddingDimensions
	}
	if timeout <= 0 {
		timeout = defaultEmbeddingTimeout
	}
	return &EmbeddingService{
		client:     client,
		repo:       repo,
		dimensions: dimensions,
		timeout:    timeout,
	}
}

// Dimensions returns the fixed embedding dimensionality.
func (s *EmbeddingService) Dimensions() int {
	return s.dimensions
}

// EmbedQuery converts query text into a fixed-length vector. On any failure
// it returns the zero vector of the same dimension so vector similarity
// contributes nothing instead of sinking the whole search.
func (s *EmbeddingService) EmbedQuery(ctx context.Context, text string) []float32 {
	ctx, span := telemetry.StartSpan(ctx, "EmbeddingService.EmbedQuery", telemetry.SpanAttributes{
		Operation: "embed_query",
	})
	defer span.End()

	if s.client == nil || strings.TrimSpace(text) == "" {
		return make([]float32, s.dimensions)
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	vec, err := s.client.GenerateEmbedding(callCtx, text)
	if err != nil {
		log.Printf("query embedding failed, degrading to zero vector: %v", err)
		return make([]float32, s.dimensions)
	}
	if len(vec) != s.dimensions {
		log.Printf("query embedding has %d dimensions, expected %d, degrading to zero vector", len(vec), s.dimensions)
		return make([]float32, s.dimensions)
	}
	return vec
}

// EmbedService generates and stores the embedding for a catalog record.
// Called by the background worker and the reindex command; unlike query
// embedding, failures here are real errors so jobs can be retried.
func (s *EmbeddingService) EmbedService(ctx context.Context, serviceID string) error {
	if s.client == nil {
		return fmt.Errorf("embedding client not configured")
	}
	if s.repo == nil {
		return fmt.Errorf("catalog repository not configured")
	}

	record, err := s.repo.GetByServiceID(ctx, serviceID)
	if err != nil {
		return err
	}

	text := BuildServiceEmbeddingText(record.Title, record.Description, record.Tags)

	embedding, err := s.client.GenerateEmbedding(ctx, text)
	if err != nil {
		return fmt.Errorf("failed to generate embedding: %w", err)
	}

	if err := s.repo.UpdateEmbedding(ctx, record.ID, embedding); err != nil {
		return fmt.Errorf("failed to update embedding: %w", err)
	}

	return nil
}

// BuildServiceEmbeddingText builds the text embedded for a catalog record.
// The title appears twice to weight it above description and tags.
func BuildServiceEmbeddingText(title, description string, tags []string) string {
	var parts []string

	if title != "" {
		parts = append(parts, title, title)
	}
	if description != "" {
		parts = append(parts, description)
	}
	if len(tags) > 0 {
		parts = append(parts, strings.Join(tags, " "))
	}

	return strings.Join(parts, "\n\n")
}

// ShouldSkipEmbedding decides whether a query can be served without a
// vector. Short queries that already carry a category or location filter
// are well covered by lexical and business scoring, and the embedding round
// trip dominates pipeline latency.
func ShouldSkipEmbedding(cleanedQuery string, filters domain.SearchFilters) bool {
	words := len(strings.Fields(cleanedQuery))
	return words <= skipWordBound && filters.HasCategoryOrLocation()
}
