package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hamrosewa/hamrosewa/internal/domain"
)

// MockRankingRepository mocks the storage-side ranking surface
type MockRankingRepository struct {
	mock.Mock
}

func (m *MockRankingRepository) RankCandidates(ctx context.Context, searchQuery string, embedding []float32, filters domain.SearchFilters, limit int) ([]domain.ScoredResult, error) {
	args := m.Called(ctx, searchQuery, embedding, filters, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ScoredResult), args.Error(1)
}

func (m *MockRankingRepository) ListByCategory(ctx context.Context, category domain.Category, limit int) ([]domain.ScoredResult, error) {
	args := m.Called(ctx, category, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ScoredResult), args.Error(1)
}

// MockIntentService mocks intent extraction
type MockIntentService struct {
	mock.Mock
}

func (m *MockIntentService) ExtractIntent(ctx context.Context, query string) domain.SearchIntent {
	args := m.Called(ctx, query)
	return args.Get(0).(domain.SearchIntent)
}

// MockQueryEmbedder mocks query embedding
type MockQueryEmbedder struct {
	mock.Mock
}

func (m *MockQueryEmbedder) EmbedQuery(ctx context.Context, text string) []float32 {
	args := m.Called(ctx, text)
	return args.Get(0).([]float32)
}

// MockResultCache mocks the result cache
type MockResultCache struct {
	mock.Mock
}

func (m *MockResultCache) Get(ctx context.Context, key string) ([]domain.ScoredResult, bool, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).([]domain.ScoredResult), args.Bool(1), args.Error(2)
}

func (m *MockResultCache) Set(ctx context.Context, key string, results []domain.ScoredResult) error {
	args := m.Called(ctx, key, results)
	return args.Error(0)
}

// recordingLogRepository captures inserted search logs for assertion.
type recordingLogRepository struct {
	mu      sync.Mutex
	entries []domain.SearchLog
	done    chan struct{}
}

func newRecordingLogRepository() *recordingLogRepository {
	return &recordingLogRepository{done: make(chan struct{}, 8)}
}

func (r *recordingLogRepository) Insert(ctx context.Context, entry domain.SearchLog) error {
	r.mu.Lock()
	r.entries = append(r.entries, entry)
	r.mu.Unlock()
	r.done <- struct{}{}
	return nil
}

func (r *recordingLogRepository) wait(t *testing.T) domain.SearchLog {
	t.Helper()
	select {
	case <-r.done:
	case <-time.After(2 * time.Second):
		t.Fatal("search log was never recorded")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.entries[len(r.entries)-1]
}

func scoredResults(ids ...string) []domain.ScoredResult {
	out := make([]domain.ScoredResult, 0, len(ids))
	for _, id := range ids {
		out = append(out, domain.ScoredResult{
			Service: domain.ServiceRecord{ID: id, ServiceID: id, Category: domain.CategoryVenue, Title: id},
			Scores:  domain.Scores{Final: 0.5},
		})
	}
	return out
}

func longQueryIntent(query string, filters domain.SearchFilters) domain.SearchIntent {
	return domain.SearchIntent{SearchQuery: query, Filters: filters, Confidence: 0.9}
}

func TestSearch_EmptyQuery(t *testing.T) {
	svc := NewSearchService(new(MockIntentService), new(MockQueryEmbedder), new(MockRankingRepository), nil, nil)

	_, err := svc.Search(context.Background(), SearchInput{Query: "   "})

	assert.ErrorIs(t, err, domain.ErrEmptyQuery)
}

func TestSearch_HappyPath(t *testing.T) {
	query := "cheap banquet hall near thamel"
	filters := domain.SearchFilters{Category: domain.CategoryVenue, Location: "thamel", MaxPrice: 20000}

	intent := new(MockIntentService)
	intent.On("ExtractIntent", mock.Anything, query).Return(longQueryIntent(query, filters))

	embedder := new(MockQueryEmbedder)
	embedder.On("EmbedQuery", mock.Anything, query).Return(testVector(8))

	repo := new(MockRankingRepository)
	repo.On("RankCandidates", mock.Anything, query, testVector(8), filters, DefaultSearchLimit).
		Return(scoredResults("venue-001", "venue-002"), nil)

	logs := newRecordingLogRepository()
	svc := NewSearchService(intent, embedder, repo, nil, logs)

	out, err := svc.Search(context.Background(), SearchInput{Query: query})

	require.NoError(t, err)
	assert.Len(t, out.Results, 2)
	assert.Equal(t, 2, out.Metadata.TotalResults)
	assert.Equal(t, query, out.Metadata.Query)
	assert.Equal(t, filters, out.Metadata.Filters)
	assert.False(t, out.Metadata.Cached)

	entry := logs.wait(t)
	assert.Equal(t, query, entry.Query)
	assert.Equal(t, 2, entry.ResultCount)
	assert.False(t, entry.EmbeddingSkipped)
	assert.Empty(t, entry.Rescue)

	intent.AssertExpectations(t)
	embedder.AssertExpectations(t)
	repo.AssertExpectations(t)
}

func TestSearch_CallerFiltersWin(t *testing.T) {
	query := "cheap banquet hall near thamel"
	extracted := domain.SearchFilters{Category: domain.CategoryVenue, Location: "thamel", MaxPrice: 20000}
	caller := domain.SearchFilters{Location: "patan", MinCapacity: 100}
	merged := domain.SearchFilters{Category: domain.CategoryVenue, Location: "patan", MaxPrice: 20000, MinCapacity: 100}

	intent := new(MockIntentService)
	intent.On("ExtractIntent", mock.Anything, query).Return(longQueryIntent(query, extracted))

	embedder := new(MockQueryEmbedder)
	embedder.On("EmbedQuery", mock.Anything, query).Return(testVector(8))

	repo := new(MockRankingRepository)
	repo.On("RankCandidates", mock.Anything, query, testVector(8), merged, 5).
		Return(scoredResults("venue-001"), nil)

	svc := NewSearchService(intent, embedder, repo, nil, nil)

	out, err := svc.Search(context.Background(), SearchInput{Query: query, Filters: caller, Limit: 5})

	require.NoError(t, err)
	assert.Equal(t, merged, out.Metadata.Filters)
	repo.AssertExpectations(t)
}

func TestSearch_CacheHitShortCircuits(t *testing.T) {
	query := "banquet hall in thamel"
	filters := domain.SearchFilters{Category: domain.CategoryVenue, Location: "thamel"}
	cached := scoredResults("venue-001")

	intent := new(MockIntentService)
	intent.On("ExtractIntent", mock.Anything, query).Return(longQueryIntent(query, filters))

	resultCache := new(MockResultCache)
	resultCache.On("Get", mock.Anything, mock.Anything).Return(cached, true, nil)

	embedder := new(MockQueryEmbedder)
	repo := new(MockRankingRepository)
	svc := NewSearchService(intent, embedder, repo, resultCache, nil)

	out, err := svc.Search(context.Background(), SearchInput{Query: query})

	require.NoError(t, err)
	assert.True(t, out.Metadata.Cached)
	assert.Equal(t, cached, out.Results)
	embedder.AssertNotCalled(t, "EmbedQuery")
	repo.AssertNotCalled(t, "RankCandidates")
	resultCache.AssertNotCalled(t, "Set")
}

func TestSearch_CacheReadErrorIsAMiss(t *testing.T) {
	query := "banquet hall somewhere odd entirely"
	filters := domain.SearchFilters{}

	intent := new(MockIntentService)
	intent.On("ExtractIntent", mock.Anything, query).Return(longQueryIntent(query, filters))

	resultCache := new(MockResultCache)
	resultCache.On("Get", mock.Anything, mock.Anything).Return(nil, false, errors.New("redis down"))
	resultCache.On("Set", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("redis down"))

	embedder := new(MockQueryEmbedder)
	embedder.On("EmbedQuery", mock.Anything, query).Return(testVector(8))

	repo := new(MockRankingRepository)
	repo.On("RankCandidates", mock.Anything, query, testVector(8), filters, DefaultSearchLimit).
		Return(scoredResults("venue-001"), nil)

	svc := NewSearchService(intent, embedder, repo, resultCache, nil)

	out, err := svc.Search(context.Background(), SearchInput{Query: query})

	require.NoError(t, err)
	assert.Len(t, out.Results, 1)
	resultCache.AssertExpectations(t)
}

func TestSearch_ResultsAreCached(t *testing.T) {
	query := "banquet hall somewhere odd entirely"
	filters := domain.SearchFilters{}
	results := scoredResults("venue-001")

	intent := new(MockIntentService)
	intent.On("ExtractIntent", mock.Anything, query).Return(longQueryIntent(query, filters))

	resultCache := new(MockResultCache)
	resultCache.On("Get", mock.Anything, mock.Anything).Return(nil, false, nil)
	resultCache.On("Set", mock.Anything, mock.Anything, results).Return(nil)

	embedder := new(MockQueryEmbedder)
	embedder.On("EmbedQuery", mock.Anything, query).Return(testVector(8))

	repo := new(MockRankingRepository)
	repo.On("RankCandidates", mock.Anything, query, testVector(8), filters, DefaultSearchLimit).
		Return(results, nil)

	svc := NewSearchService(intent, embedder, repo, resultCache, nil)

	_, err := svc.Search(context.Background(), SearchInput{Query: query})

	require.NoError(t, err)
	resultCache.AssertExpectations(t)
}

func TestSearch_EmptyResultSetIsCached(t *testing.T) {
	query := "banquet hall somewhere odd entirely"
	filters := domain.SearchFilters{}
	empty := []domain.ScoredResult{}

	intent := new(MockIntentService)
	intent.On("ExtractIntent", mock.Anything, query).Return(longQueryIntent(query, filters))

	resultCache := new(MockResultCache)
	resultCache.On("Get", mock.Anything, mock.Anything).Return(nil, false, nil)
	resultCache.On("Set", mock.Anything, mock.Anything, empty).Return(nil)

	embedder := new(MockQueryEmbedder)
	embedder.On("EmbedQuery", mock.Anything, query).Return(testVector(8))

	repo := new(MockRankingRepository)
	repo.On("RankCandidates", mock.Anything, query, testVector(8), filters, DefaultSearchLimit).
		Return(empty, nil)

	svc := NewSearchService(intent, embedder, repo, resultCache, nil)

	out, err := svc.Search(context.Background(), SearchInput{Query: query})

	require.NoError(t, err)
	assert.Empty(t, out.Results)
	resultCache.AssertExpectations(t)
}

func TestSearch_SkipsEmbeddingForShortFilteredQueries(t *testing.T) {
	query := "banquet hall"
	filters := domain.SearchFilters{Category: domain.CategoryVenue}

	intent := new(MockIntentService)
	intent.On("ExtractIntent", mock.Anything, query).Return(longQueryIntent(query, filters))

	embedder := new(MockQueryEmbedder)

	repo := new(MockRankingRepository)
	repo.On("RankCandidates", mock.Anything, query, []float32(nil), filters, DefaultSearchLimit).
		Return(scoredResults("venue-001"), nil)

	logs := newRecordingLogRepository()
	svc := NewSearchService(intent, embedder, repo, nil, logs)

	out, err := svc.Search(context.Background(), SearchInput{Query: query})

	require.NoError(t, err)
	assert.Len(t, out.Results, 1)
	embedder.AssertNotCalled(t, "EmbedQuery")

	entry := logs.wait(t)
	assert.True(t, entry.EmbeddingSkipped)
	assert.Empty(t, entry.Rescue)
}

func TestSearch_EmbeddingRescueRunsOnce(t *testing.T) {
	query := "banquet hall"
	filters := domain.SearchFilters{Category: domain.CategoryVenue}
	empty := []domain.ScoredResult{}

	intent := new(MockIntentService)
	intent.On("ExtractIntent", mock.Anything, query).Return(longQueryIntent(query, filters))

	embedder := new(MockQueryEmbedder)
	embedder.On("EmbedQuery", mock.Anything, query).Return(testVector(8)).Once()

	repo := new(MockRankingRepository)
	repo.On("RankCandidates", mock.Anything, query, []float32(nil), filters, DefaultSearchLimit).
		Return(empty, nil).Once()
	repo.On("RankCandidates", mock.Anything, query, testVector(8), filters, DefaultSearchLimit).
		Return(scoredResults("venue-001"), nil).Once()

	logs := newRecordingLogRepository()
	svc := NewSearchService(intent, embedder, repo, nil, logs)

	out, err := svc.Search(context.Background(), SearchInput{Query: query})

	require.NoError(t, err)
	assert.Len(t, out.Results, 1)
	assert.Equal(t, query, out.Metadata.Query)

	entry := logs.wait(t)
	assert.Equal(t, domain.RescueEmbedding, entry.Rescue)

	embedder.AssertExpectations(t)
	repo.AssertExpectations(t)
}

func TestSearch_CategoryRescue(t *testing.T) {
	query := "banquet hall"
	filters := domain.SearchFilters{Category: domain.CategoryVenue}
	empty := []domain.ScoredResult{}

	intent := new(MockIntentService)
	intent.On("ExtractIntent", mock.Anything, query).Return(longQueryIntent(query, filters))

	embedder := new(MockQueryEmbedder)
	embedder.On("EmbedQuery", mock.Anything, query).Return(testVector(8)).Once()

	repo := new(MockRankingRepository)
	repo.On("RankCandidates", mock.Anything, query, mock.Anything, filters, DefaultSearchLimit).
		Return(empty, nil).Twice()
	repo.On("ListByCategory", mock.Anything, domain.CategoryVenue, DefaultSearchLimit).
		Return(scoredResults("venue-009"), nil).Once()

	logs := newRecordingLogRepository()
	svc := NewSearchService(intent, embedder, repo, nil, logs)

	out, err := svc.Search(context.Background(), SearchInput{Query: query})

	require.NoError(t, err)
	assert.Len(t, out.Results, 1)
	assert.Equal(t, "category:venue", out.Metadata.Query)

	entry := logs.wait(t)
	assert.Equal(t, domain.RescueCategory, entry.Rescue)

	repo.AssertExpectations(t)
}

func TestSearch_NoRescueWithoutCategory(t *testing.T) {
	query := "an unusual thing nobody offers around here"
	filters := domain.SearchFilters{}
	empty := []domain.ScoredResult{}

	intent := new(MockIntentService)
	intent.On("ExtractIntent", mock.Anything, query).Return(longQueryIntent(query, filters))

	embedder := new(MockQueryEmbedder)
	embedder.On("EmbedQuery", mock.Anything, query).Return(testVector(8))

	repo := new(MockRankingRepository)
	repo.On("RankCandidates", mock.Anything, query, testVector(8), filters, DefaultSearchLimit).
		Return(empty, nil).Once()

	svc := NewSearchService(intent, embedder, repo, nil, nil)

	out, err := svc.Search(context.Background(), SearchInput{Query: query})

	require.NoError(t, err)
	assert.Empty(t, out.Results)
	repo.AssertNotCalled(t, "ListByCategory")
}

func TestSearch_RankingFailureIsUnavailable(t *testing.T) {
	query := "banquet hall somewhere odd entirely"
	filters := domain.SearchFilters{}

	intent := new(MockIntentService)
	intent.On("ExtractIntent", mock.Anything, query).Return(longQueryIntent(query, filters))

	embedder := new(MockQueryEmbedder)
	embedder.On("EmbedQuery", mock.Anything, query).Return(testVector(8))

	cause := errors.New("connection reset")
	repo := new(MockRankingRepository)
	repo.On("RankCandidates", mock.Anything, query, testVector(8), filters, DefaultSearchLimit).
		Return(nil, cause)

	svc := NewSearchService(intent, embedder, repo, nil, nil)

	_, err := svc.Search(context.Background(), SearchInput{Query: query})

	require.Error(t, err)
	var domainErr *domain.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domain.ErrCodeUnavailable, domainErr.Code)
	assert.ErrorIs(t, err, cause)
}

func TestSearch_LimitNormalization(t *testing.T) {
	assert.Equal(t, DefaultSearchLimit, normalizeLimit(0))
	assert.Equal(t, DefaultSearchLimit, normalizeLimit(-3))
	assert.Equal(t, 7, normalizeLimit(7))
	assert.Equal(t, MaxSearchLimit, normalizeLimit(500))
}
