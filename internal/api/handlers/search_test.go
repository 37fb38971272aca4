package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hamrosewa/hamrosewa/internal/api"
	"github.com/hamrosewa/hamrosewa/internal/domain"
	"github.com/hamrosewa/hamrosewa/internal/service"
)

// MockSearcher mocks the retrieval pipeline
type MockSearcher struct {
	mock.Mock
}

func (m *MockSearcher) Search(ctx context.Context, input service.SearchInput) (*service.SearchOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.SearchOutput), args.Error(1)
}

func searchOutput(count int) *service.SearchOutput {
	results := make([]domain.ScoredResult, 0, count)
	for i := 0; i < count; i++ {
		results = append(results, domain.ScoredResult{
			Service: domain.ServiceRecord{ID: "id", ServiceID: "venue-001", Category: domain.CategoryVenue, Title: "Everest Banquet"},
			Scores:  domain.Scores{Text: 0.4, Vector: 0.3, Business: 0.5, Final: 0.37},
		})
	}
	return &service.SearchOutput{
		Results: results,
		Metadata: service.SearchMetadata{
			TotalResults: count,
			Query:        "banquet hall thamel",
		},
	}
}

func TestSearchHandler_Post(t *testing.T) {
	t.Run("valid request", func(t *testing.T) {
		svc := new(MockSearcher)
		svc.On("Search", mock.Anything, service.SearchInput{
			Query: "cheap banquet hall near thamel",
			Filters: domain.SearchFilters{
				Category:    domain.CategoryVenue,
				MinCapacity: 200,
			},
			Limit: 10,
		}).Return(searchOutput(1), nil)
		h := NewSearchHandler(svc)

		body := `{"query": "cheap banquet hall near thamel", "filters": {"category": "venue", "min_capacity": 200}, "limit": 10}`
		req := httptest.NewRequest(http.MethodPost, "/v1/search", bytes.NewBufferString(body))
		rec := httptest.NewRecorder()

		h.Search(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			Data service.SearchOutput `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, 1, resp.Data.Metadata.TotalResults)
		assert.Len(t, resp.Data.Results, 1)
		svc.AssertExpectations(t)
	})

	t.Run("category is case insensitive", func(t *testing.T) {
		svc := new(MockSearcher)
		svc.On("Search", mock.Anything, mock.MatchedBy(func(in service.SearchInput) bool {
			return in.Filters.Category == domain.CategoryHotel
		})).Return(searchOutput(0), nil)
		h := NewSearchHandler(svc)

		body := `{"query": "hotel", "filters": {"category": "Hotel"}}`
		req := httptest.NewRequest(http.MethodPost, "/v1/search", bytes.NewBufferString(body))
		rec := httptest.NewRecorder()

		h.Search(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		svc.AssertExpectations(t)
	})

	t.Run("malformed body", func(t *testing.T) {
		h := NewSearchHandler(new(MockSearcher))
		req := httptest.NewRequest(http.MethodPost, "/v1/search", bytes.NewBufferString("{not json"))
		rec := httptest.NewRecorder()

		h.Search(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing query", func(t *testing.T) {
		h := NewSearchHandler(new(MockSearcher))
		req := httptest.NewRequest(http.MethodPost, "/v1/search", bytes.NewBufferString(`{"query": "  "}`))
		rec := httptest.NewRecorder()

		h.Search(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown category", func(t *testing.T) {
		h := NewSearchHandler(new(MockSearcher))
		body := `{"query": "helicopter tour", "filters": {"category": "helicopter"}}`
		req := httptest.NewRequest(http.MethodPost, "/v1/search", bytes.NewBufferString(body))
		rec := httptest.NewRecorder()

		h.Search(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)

		var resp api.ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "invalid service category", resp.Error)
	})

	t.Run("pipeline unavailable", func(t *testing.T) {
		svc := new(MockSearcher)
		svc.On("Search", mock.Anything, mock.Anything).
			Return(nil, domain.NewDomainErrorWithCause(domain.ErrCodeUnavailable, "down", errors.New("dial tcp: connection refused")))
		h := NewSearchHandler(svc)

		req := httptest.NewRequest(http.MethodPost, "/v1/search", bytes.NewBufferString(`{"query": "venue"}`))
		rec := httptest.NewRecorder()

		h.Search(rec, req)

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.NotContains(t, rec.Body.String(), "dial tcp")
	})

	t.Run("empty result set is 200", func(t *testing.T) {
		svc := new(MockSearcher)
		svc.On("Search", mock.Anything, mock.Anything).Return(searchOutput(0), nil)
		h := NewSearchHandler(svc)

		req := httptest.NewRequest(http.MethodPost, "/v1/search", bytes.NewBufferString(`{"query": "venue"}`))
		rec := httptest.NewRecorder()

		h.Search(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestSearchHandler_Get(t *testing.T) {
	t.Run("query params map to filters", func(t *testing.T) {
		svc := new(MockSearcher)
		svc.On("Search", mock.Anything, service.SearchInput{
			Query: "banquet hall",
			Filters: domain.SearchFilters{
				Category:    domain.CategoryVenue,
				Location:    "thamel",
				MinCapacity: 200,
				MaxPrice:    20000,
				MinRating:   4,
				Tags:        []string{"wedding", "parking"},
			},
			Limit: 5,
		}).Return(searchOutput(2), nil)
		h := NewSearchHandler(svc)

		req := httptest.NewRequest(http.MethodGet,
			"/v1/search?q=banquet+hall&category=venue&location=thamel&min_capacity=200&max_price=20000&min_rating=4&tags=wedding,parking&limit=5", nil)
		rec := httptest.NewRecorder()

		h.SearchGet(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		svc.AssertExpectations(t)
	})

	t.Run("missing q", func(t *testing.T) {
		h := NewSearchHandler(new(MockSearcher))
		req := httptest.NewRequest(http.MethodGet, "/v1/search", nil)
		rec := httptest.NewRecorder()

		h.SearchGet(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("malformed numeric params", func(t *testing.T) {
		urls := []string{
			"/v1/search?q=venue&min_capacity=abc",
			"/v1/search?q=venue&max_price=cheap",
			"/v1/search?q=venue&min_rating=high",
			"/v1/search?q=venue&limit=all",
		}
		for _, url := range urls {
			svc := new(MockSearcher)
			h := NewSearchHandler(svc)
			req := httptest.NewRequest(http.MethodGet, url, nil)
			rec := httptest.NewRecorder()

			h.SearchGet(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code, url)
			svc.AssertNotCalled(t, "Search")
		}
	})
}
