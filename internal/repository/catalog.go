package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/hamrosewa/hamrosewa/internal/domain"
)

// Weights are the blend coefficients applied by the ranking query.
type Weights struct {
	Text     float64
	Vector   float64
	Business float64
}

// DefaultWeights returns the tuned production blend.
func DefaultWeights() Weights {
	return Weights{Text: 0.4, Vector: 0.35, Business: 0.25}
}

const serviceColumns = `id, service_id, category, title, description, location, capacity, price, rating_avg, images, tags, created_at, updated_at`

// CatalogRepository handles persistence and ranked retrieval of catalog
// records.
type CatalogRepository struct {
	db      dbtx
	weights Weights
}

func NewCatalogRepository(pool *pgxpool.Pool, weights Weights) *CatalogRepository {
	if weights == (Weights{}) {
		weights = DefaultWeights()
	}
	return &CatalogRepository{db: pool, weights: weights}
}

func NewCatalogRepositoryWithTx(tx pgx.Tx, weights Weights) *CatalogRepository {
	if weights == (Weights{}) {
		weights = DefaultWeights()
	}
	return &CatalogRepository{db: tx, weights: weights}
}

func (r *CatalogRepository) Create(ctx context.Context, s *domain.ServiceRecord) error {
	now := time.Now().UTC()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	if s.UpdatedAt.IsZero() {
		s.UpdatedAt = now
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO services (id, service_id, category, title, description, location, capacity, price, rating_avg, images, tags, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		s.ID, s.ServiceID, s.Category, s.Title, s.Description, nullableString(s.Location),
		s.Capacity, s.Price, s.RatingAvg, s.Images, s.Tags, s.CreatedAt, s.UpdatedAt,
	)
	return err
}

func (r *CatalogRepository) Update(ctx context.Context, s *domain.ServiceRecord) error {
	s.UpdatedAt = time.Now().UTC()
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE services
		 SET category = $1, title = $2, description = $3, location = $4, capacity = $5,
		     price = $6, rating_avg = $7, images = $8, tags = $9, updated_at = $10
		 WHERE id = $11`,
		s.Category, s.Title, s.Description, nullableString(s.Location), s.Capacity,
		s.Price, s.RatingAvg, s.Images, s.Tags, s.UpdatedAt, s.ID,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrServiceNotFound
	}
	return nil
}

func (r *CatalogRepository) Delete(ctx context.Context, id string) error {
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM services WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrServiceNotFound
	}
	return nil
}

func (r *CatalogRepository) GetByID(ctx context.Context, id string) (*domain.ServiceRecord, error) {
	return r.getOne(ctx, `SELECT `+serviceColumns+` FROM services WHERE id = $1`, id)
}

func (r *CatalogRepository) GetByServiceID(ctx context.Context, serviceID string) (*domain.ServiceRecord, error) {
	return r.getOne(ctx, `SELECT `+serviceColumns+` FROM services WHERE service_id = $1`, serviceID)
}

func (r *CatalogRepository) getOne(ctx context.Context, query string, arg any) (*domain.ServiceRecord, error) {
	var s domain.ServiceRecord
	var location *string
	err := r.db.QueryRow(ctx, query, arg).Scan(
		&s.ID, &s.ServiceID, &s.Category, &s.Title, &s.Description, &location,
		&s.Capacity, &s.Price, &s.RatingAvg, &s.Images, &s.Tags, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrServiceNotFound
		}
		return nil, err
	}
	if location != nil {
		s.Location = *location
	}
	return &s, nil
}

func (r *CatalogRepository) UpdateEmbedding(ctx context.Context, id string, embedding []float32) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE services SET embedding = $1, updated_at = $2 WHERE id = $3`,
		pgvector.NewVector(embedding), time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrServiceNotFound
	}
	return nil
}

// ListMissingEmbeddings returns service IDs of records that have no vector
// yet, oldest first. Used by the reindex command.
func (r *CatalogRepository) ListMissingEmbeddings(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.Query(ctx,
		`SELECT service_id FROM services WHERE embedding IS NULL ORDER BY created_at ASC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// RankCandidates runs the blended retrieval query. The three component
// scores are computed per row and combined with the configured weights;
// every filter is optional and an absent filter never narrows the
// candidate set. A nil or all-zero embedding disables the vector signal
// for the whole query rather than skewing it.
func (r *CatalogRepository) RankCandidates(ctx context.Context, searchQuery string, embedding []float32, filters domain.SearchFilters, limit int) ([]domain.ScoredResult, error) {
	if limit <= 0 {
		limit = 20
	}

	var vec any
	if len(embedding) > 0 && !isZeroVector(embedding) {
		vec = pgvector.NewVector(embedding)
	}

	var category, location *string
	if filters.Category != "" {
		c := string(filters.Category)
		category = &c
	}
	if filters.Location != "" {
		location = &filters.Location
	}
	var minCapacity *int
	if filters.MinCapacity > 0 {
		minCapacity = &filters.MinCapacity
	}
	var maxPrice, minRating *float64
	if filters.MaxPrice > 0 {
		maxPrice = &filters.MaxPrice
	}
	if filters.MinRating > 0 {
		minRating = &filters.MinRating
	}
	var tags []string
	if len(filters.Tags) > 0 {
		tags = filters.Tags
	}

	rows, err := r.db.Query(ctx,
		`WITH scored AS (
			SELECT `+serviceColumns+`,
			       CASE WHEN $1 = '' THEN 0.0
			            ELSE COALESCE(ts_rank_cd(search_tsv, websearch_to_tsquery('english', $1), 32), 0.0)
			       END AS text_score,
			       CASE WHEN $2::vector IS NULL OR embedding IS NULL THEN 0.0
			            ELSE GREATEST(0.0, 1.0 - (embedding <=> $2::vector))
			       END AS vector_score,
			       COALESCE(rating_avg, 2.5) / 5.0 AS business_score
			FROM services
			WHERE ($3::text IS NULL OR category = $3)
			  AND ($4::text IS NULL OR location ILIKE '%' || $4 || '%')
			  AND ($5::int IS NULL OR capacity >= $5)
			  AND ($6::numeric IS NULL OR price <= $6)
			  AND ($7::real IS NULL OR rating_avg >= $7)
			  AND ($8::text[] IS NULL OR tags && $8)
		)
		SELECT `+serviceColumns+`, text_score, vector_score, business_score,
		       $9 * text_score + $10 * vector_score + $11 * business_score AS final_score
		FROM scored
		ORDER BY final_score DESC, rating_avg DESC NULLS LAST, id ASC
		LIMIT $12`,
		searchQuery, vec, category, location, minCapacity, maxPrice, minRating, tags,
		r.weights.Text, r.weights.Vector, r.weights.Business, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanScoredRows(rows)
}

// ListByCategory lists every record in a category ordered by rating. It
// backs the category rescue: with no query text the business signal is the
// only score, so Final mirrors Business.
func (r *CatalogRepository) ListByCategory(ctx context.Context, category domain.Category, limit int) ([]domain.ScoredResult, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := r.db.Query(ctx,
		`SELECT `+serviceColumns+`,
		        0.0 AS text_score,
		        0.0 AS vector_score,
		        COALESCE(rating_avg, 2.5) / 5.0 AS business_score,
		        COALESCE(rating_avg, 2.5) / 5.0 AS final_score
		 FROM services
		 WHERE category = $1
		 ORDER BY COALESCE(rating_avg, 2.5) DESC, id ASC
		 LIMIT $2`,
		category, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanScoredRows(rows)
}

func scanScoredRows(rows pgx.Rows) ([]domain.ScoredResult, error) {
	results := make([]domain.ScoredResult, 0)
	for rows.Next() {
		var s domain.ServiceRecord
		var location *string
		var scores domain.Scores
		if err := rows.Scan(
			&s.ID, &s.ServiceID, &s.Category, &s.Title, &s.Description, &location,
			&s.Capacity, &s.Price, &s.RatingAvg, &s.Images, &s.Tags, &s.CreatedAt, &s.UpdatedAt,
			&scores.Text, &scores.Vector, &scores.Business, &scores.Final,
		); err != nil {
			return nil, err
		}
		if location != nil {
			s.Location = *location
		}
		results = append(results, domain.ScoredResult{Service: s, Scores: scores})
	}
	return results, rows.Err()
}

func isZeroVector(v []float32) bool {
	for _, f := range v {
		if f != 0 {
			return false
		}
	}
	return true
}
