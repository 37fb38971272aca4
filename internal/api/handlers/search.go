package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/hamrosewa/hamrosewa/internal/api"
	"github.com/hamrosewa/hamrosewa/internal/domain"
	"github.com/hamrosewa/hamrosewa/internal/service"
)

// Searcher runs the retrieval pipeline.
type Searcher interface {
	Search(ctx context.Context, input service.SearchInput) (*service.SearchOutput, error)
}

type SearchHandler struct {
	svc Searcher
}

func NewSearchHandler(svc Searcher) *SearchHandler {
	return &SearchHandler{svc: svc}
}

type SearchFiltersRequest struct {
	Category    string   `json:"category,omitempty"`
	Location    string   `json:"location,omitempty"`
	MinCapacity int      `json:"min_capacity,omitempty"`
	MaxPrice    float64  `json:"max_price,omitempty"`
	MinRating   float64  `json:"min_rating,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

type SearchRequest struct {
	Query   string               `json:"query"`
	Filters SearchFiltersRequest `json:"filters"`
	Limit   int                  `json:"limit,omitempty"`
}

// Search handles POST /v1/search with a JSON body.
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if strings.TrimSpace(req.Query) == "" {
		api.Error(w, http.StatusBadRequest, "query is required")
		return
	}

	filters, err := requestFilters(req.Filters)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	h.run(w, r, service.SearchInput{
		Query:   req.Query,
		Filters: filters,
		Limit:   req.Limit,
	})
}

// SearchGet handles GET /v1/search?q=...&category=...&limit=... for quick
// lookups and curl-friendly debugging.
func (h *SearchHandler) SearchGet(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	query := strings.TrimSpace(q.Get("q"))
	if query == "" {
		api.Error(w, http.StatusBadRequest, "q is required")
		return
	}

	raw := SearchFiltersRequest{
		Category: q.Get("category"),
		Location: q.Get("location"),
	}
	if v := q.Get("min_capacity"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			api.Error(w, http.StatusBadRequest, "min_capacity must be an integer")
			return
		}
		raw.MinCapacity = n
	}
	if v := q.Get("max_price"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			api.Error(w, http.StatusBadRequest, "max_price must be a number")
			return
		}
		raw.MaxPrice = f
	}
	if v := q.Get("min_rating"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			api.Error(w, http.StatusBadRequest, "min_rating must be a number")
			return
		}
		raw.MinRating = f
	}
	if v := q.Get("tags"); v != "" {
		raw.Tags = strings.Split(v, ",")
	}

	filters, err := requestFilters(raw)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	limit := 0
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			api.Error(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		limit = n
	}

	h.run(w, r, service.SearchInput{
		Query:   query,
		Filters: filters,
		Limit:   limit,
	})
}

func (h *SearchHandler) run(w http.ResponseWriter, r *http.Request, input service.SearchInput) {
	output, err := h.svc.Search(r.Context(), input)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, output)
}

func requestFilters(req SearchFiltersRequest) (domain.SearchFilters, error) {
	var filters domain.SearchFilters

	if req.Category != "" {
		category, ok := domain.ParseCategory(strings.TrimSpace(strings.ToLower(req.Category)))
		if !ok {
			return domain.SearchFilters{}, domain.ErrInvalidCategory
		}
		filters.Category = category
	}

	filters.Location = strings.TrimSpace(req.Location)
	if req.MinCapacity > 0 {
		filters.MinCapacity = req.MinCapacity
	}
	if req.MaxPrice > 0 {
		filters.MaxPrice = req.MaxPrice
	}
	if req.MinRating > 0 {
		filters.MinRating = req.MinRating
	}
	for _, tag := range req.Tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			filters.Tags = append(filters.Tags, tag)
		}
	}

	return filters, nil
}
