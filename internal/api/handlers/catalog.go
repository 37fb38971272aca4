package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hamrosewa/hamrosewa/internal/api"
	"github.com/hamrosewa/hamrosewa/internal/domain"
	"github.com/hamrosewa/hamrosewa/internal/service"
)

type CatalogService interface {
	CreateService(ctx context.Context, input service.CreateServiceInput) (*domain.ServiceRecord, error)
	UpdateService(ctx context.Context, serviceID string, input service.CreateServiceInput) (*domain.ServiceRecord, error)
	DeleteService(ctx context.Context, serviceID string) error
	GetService(ctx context.Context, serviceID string) (*domain.ServiceRecord, error)
	ImageUploadURL(ctx context.Context, serviceID, filename string) (string, error)
	ImageDownloadURL(ctx context.Context, serviceID, filename string) (string, error)
}

type CatalogHandler struct {
	svc CatalogService
}

func NewCatalogHandler(svc CatalogService) *CatalogHandler {
	return &CatalogHandler{svc: svc}
}

func (h *CatalogHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req service.CreateServiceInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	record, err := h.svc.CreateService(r.Context(), req)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, record)
}

func (h *CatalogHandler) Get(w http.ResponseWriter, r *http.Request) {
	serviceID := chi.URLParam(r, "serviceID")

	record, err := h.svc.GetService(r.Context(), serviceID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, record)
}

func (h *CatalogHandler) Update(w http.ResponseWriter, r *http.Request) {
	serviceID := chi.URLParam(r, "serviceID")

	var req service.CreateServiceInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	record, err := h.svc.UpdateService(r.Context(), serviceID, req)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, record)
}

func (h *CatalogHandler) Delete(w http.ResponseWriter, r *http.Request) {
	serviceID := chi.URLParam(r, "serviceID")

	if err := h.svc.DeleteService(r.Context(), serviceID); err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, map[string]any{"status": "deleted"})
}

type ImageURLRequest struct {
	Filename string `json:"filename"`
}

type ImageURLResponse struct {
	URL string `json:"url"`
}

func (h *CatalogHandler) ImageUploadURL(w http.ResponseWriter, r *http.Request) {
	h.imageURL(w, r, h.svc.ImageUploadURL)
}

func (h *CatalogHandler) ImageDownloadURL(w http.ResponseWriter, r *http.Request) {
	h.imageURL(w, r, h.svc.ImageDownloadURL)
}

func (h *CatalogHandler) imageURL(w http.ResponseWriter, r *http.Request, presign func(ctx context.Context, serviceID, filename string) (string, error)) {
	serviceID := chi.URLParam(r, "serviceID")

	var req ImageURLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Filename == "" {
		api.Error(w, http.StatusBadRequest, "filename is required")
		return
	}

	url, err := presign(r.Context(), serviceID, req.Filename)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, ImageURLResponse{URL: url})
}
