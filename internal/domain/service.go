package domain

import (
	"fmt"
	"time"
)

// Category represents a catalog category for bookable services
type Category string

const (
	CategoryVenue       Category = "venue"
	CategoryCatering    Category = "catering"
	CategoryPhotography Category = "photography"
	CategoryBus         Category = "bus"
	CategoryFlight      Category = "flight"
	CategoryHotel       Category = "hotel"
	CategoryMovie       Category = "movie"
	CategoryDoctor      Category = "doctor"
	CategorySalon       Category = "salon"
	CategoryGym         Category = "gym"
)

// Categories lists the closed catalog taxonomy in stable order.
var Categories = []Category{
	CategoryVenue,
	CategoryCatering,
	CategoryPhotography,
	CategoryBus,
	CategoryFlight,
	CategoryHotel,
	CategoryMovie,
	CategoryDoctor,
	CategorySalon,
	CategoryGym,
}

// DefaultRating is the midpoint rating assumed for unrated services.
const DefaultRating = 2.5

// MaxRating is the upper bound of the rating scale.
const MaxRating = 5.0

// ParseCategory validates a raw category value against the closed taxonomy.
// Unrecognized values are reported as invalid, never passed through.
func ParseCategory(raw string) (Category, bool) {
	c := Category(raw)
	for _, known := range Categories {
		if c == known {
			return c, true
		}
	}
	return "", false
}

// ServiceRecord represents a bookable catalog entry
type ServiceRecord struct {
	ID          string    `json:"id"`
	ServiceID   string    `json:"service_id"`
	Category    Category  `json:"category"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Location    string    `json:"location,omitempty"`
	Capacity    *int      `json:"capacity,omitempty"`
	Price       *float64  `json:"price,omitempty"`
	RatingAvg   *float64  `json:"rating_avg,omitempty"`
	Images      []string  `json:"images,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
	Embedding   []float32 `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Rating returns the average rating, falling back to the scale midpoint
// for services that have never been rated.
func (s *ServiceRecord) Rating() float64 {
	if s.RatingAvg == nil {
		return DefaultRating
	}
	return *s.RatingAvg
}

// Scores holds the three component scores plus the blended final score.
// All components are normalized to [0, 1] by the storage layer; Final is
// the only value used for ordering.
type Scores struct {
	Text     float64 `json:"text"`
	Vector   float64 `json:"vector"`
	Business float64 `json:"business"`
	Final    float64 `json:"final"`
}

// ScoredResult is a ServiceRecord paired with its retrieval scores.
type ScoredResult struct {
	Service ServiceRecord `json:"service"`
	Scores  Scores        `json:"scores"`
}

// ValidateService validates a ServiceRecord instance
func ValidateService(s *ServiceRecord) error {
	if s == nil {
		return fmt.Errorf("service cannot be nil")
	}

	if s.ID == "" {
		return fmt.Errorf("service ID is required")
	}

	if s.ServiceID == "" {
		return fmt.Errorf("service ServiceID is required")
	}

	if s.Title == "" {
		return fmt.Errorf("service Title is required")
	}

	if _, ok := ParseCategory(string(s.Category)); !ok {
		return fmt.Errorf("service Category is invalid: %s", s.Category)
	}

	if s.Capacity != nil && *s.Capacity < 0 {
		return fmt.Errorf("service Capacity must not be negative")
	}

	if s.Price != nil && *s.Price < 0 {
		return fmt.Errorf("service Price must not be negative")
	}

	if s.RatingAvg != nil && (*s.RatingAvg < 0 || *s.RatingAvg > MaxRating) {
		return fmt.Errorf("service RatingAvg must be between 0 and %.1f", MaxRating)
	}

	return nil
}
