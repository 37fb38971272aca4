package service

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"

	"github.com/hamrosewa/hamrosewa/internal/domain"
)

// CatalogRepository is the persistence surface for catalog management.
type CatalogRepository interface {
	Create(ctx context.Context, record *domain.ServiceRecord) error
	Update(ctx context.Context, record *domain.ServiceRecord) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.ServiceRecord, error)
	GetByServiceID(ctx context.Context, serviceID string) (*domain.ServiceRecord, error)
}

// EmbeddingJobQueue enqueues catalog records for background embedding.
type EmbeddingJobQueue interface {
	Enqueue(ctx context.Context, serviceID string) error
}

// ImageStore issues presigned URLs for service images.
type ImageStore interface {
	PresignUpload(ctx context.Context, key string) (string, error)
	PresignDownload(ctx context.Context, key string) (string, error)
}

// CreateServiceInput carries the caller-supplied fields for a new catalog
// record. ServiceID is the provider's stable external identifier.
type CreateServiceInput struct {
	ServiceID   string   `json:"service_id"`
	Category    string   `json:"category"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Location    string   `json:"location"`
	Capacity    *int     `json:"capacity"`
	Price       *float64 `json:"price"`
	RatingAvg   *float64 `json:"rating_avg"`
	Images      []string `json:"images"`
	Tags        []string `json:"tags"`
}

// CatalogService manages the lifecycle of catalog records. Writes enqueue
// an embedding job so the vector index catches up asynchronously.
type CatalogService struct {
	repo   CatalogRepository
	jobs   EmbeddingJobQueue
	images ImageStore
}

// NewCatalogService creates a new CatalogService instance. jobs and images
// may be nil when background embedding or image storage is not configured.
func NewCatalogService(repo CatalogRepository, jobs EmbeddingJobQueue, images ImageStore) *CatalogService {
	return &CatalogService{repo: repo, jobs: jobs, images: images}
}

// CreateService validates and persists a new catalog record, then enqueues
// it for embedding.
func (s *CatalogService) CreateService(ctx context.Context, input CreateServiceInput) (*domain.ServiceRecord, error) {
	category, ok := domain.ParseCategory(strings.TrimSpace(input.Category))
	if !ok {
		return nil, domain.ErrInvalidCategory
	}

	record := &domain.ServiceRecord{
		ID:          uuid.New().String(),
		ServiceID:   strings.TrimSpace(input.ServiceID),
		Category:    category,
		Title:       strings.TrimSpace(input.Title),
		Description: strings.TrimSpace(input.Description),
		Location:    strings.TrimSpace(input.Location),
		Capacity:    input.Capacity,
		Price:       input.Price,
		RatingAvg:   input.RatingAvg,
		Images:      input.Images,
		Tags:        normalizeTags(input.Tags),
	}

	if err := domain.ValidateService(record); err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, err.Error(), err)
	}

	if existing, err := s.repo.GetByServiceID(ctx, record.ServiceID); err == nil && existing != nil {
		return nil, domain.ErrServiceAlreadyExists
	}

	if err := s.repo.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to create service: %w", err)
	}

	s.enqueueEmbedding(ctx, record.ServiceID)

	return record, nil
}

// UpdateService applies caller-supplied fields to an existing record and
// re-enqueues it for embedding since the indexed text may have changed.
func (s *CatalogService) UpdateService(ctx context.Context, serviceID string, input CreateServiceInput) (*domain.ServiceRecord, error) {
	record, err := s.repo.GetByServiceID(ctx, serviceID)
	if err != nil {
		return nil, err
	}

	if input.Category != "" {
		category, ok := domain.ParseCategory(strings.TrimSpace(input.Category))
		if !ok {
			return nil, domain.ErrInvalidCategory
		}
		record.Category = category
	}
	if input.Title != "" {
		record.Title = strings.TrimSpace(input.Title)
	}
	if input.Description != "" {
		record.Description = strings.TrimSpace(input.Description)
	}
	if input.Location != "" {
		record.Location = strings.TrimSpace(input.Location)
	}
	if input.Capacity != nil {
		record.Capacity = input.Capacity
	}
	if input.Price != nil {
		record.Price = input.Price
	}
	if input.RatingAvg != nil {
		record.RatingAvg = input.RatingAvg
	}
	if input.Images != nil {
		record.Images = input.Images
	}
	if input.Tags != nil {
		record.Tags = normalizeTags(input.Tags)
	}

	if err := domain.ValidateService(record); err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, err.Error(), err)
	}

	if err := s.repo.Update(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to update service: %w", err)
	}

	s.enqueueEmbedding(ctx, record.ServiceID)

	return record, nil
}

// DeleteService removes a catalog record.
func (s *CatalogService) DeleteService(ctx context.Context, serviceID string) error {
	record, err := s.repo.GetByServiceID(ctx, serviceID)
	if err != nil {
		return err
	}
	return s.repo.Delete(ctx, record.ID)
}

// GetService fetches a catalog record by its external identifier.
func (s *CatalogService) GetService(ctx context.Context, serviceID string) (*domain.ServiceRecord, error) {
	return s.repo.GetByServiceID(ctx, serviceID)
}

// ImageUploadURL returns a presigned upload URL for a service image.
func (s *CatalogService) ImageUploadURL(ctx context.Context, serviceID, filename string) (string, error) {
	if s.images == nil {
		return "", domain.ErrStorageNotReady
	}
	return s.images.PresignUpload(ctx, imageKey(serviceID, filename))
}

// ImageDownloadURL returns a presigned download URL for a service image.
func (s *CatalogService) ImageDownloadURL(ctx context.Context, serviceID, filename string) (string, error) {
	if s.images == nil {
		return "", domain.ErrStorageNotReady
	}
	return s.images.PresignDownload(ctx, imageKey(serviceID, filename))
}

// enqueueEmbedding is best-effort: a record without a vector still ranks on
// its lexical and business signals.
func (s *CatalogService) enqueueEmbedding(ctx context.Context, serviceID string) {
	if s.jobs == nil {
		return
	}
	if err := s.jobs.Enqueue(ctx, serviceID); err != nil {
		log.Printf("failed to enqueue embedding job for %s: %v", serviceID, err)
	}
}

func imageKey(serviceID, filename string) string {
	return "services/" + serviceID + "/" + filename
}

func normalizeTags(tags []string) []string {
	if tags == nil {
		return nil
	}
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag != "" {
			out = append(out, tag)
		}
	}
	return out
}
