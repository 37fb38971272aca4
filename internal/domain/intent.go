package domain

// SearchFilters holds the optional structured constraints extracted from a
// query or supplied by the caller. Zero values mean "unconstrained": an
// absent filter must never narrow a search.
type SearchFilters struct {
	Category    Category `json:"category,omitempty"`
	Location    string   `json:"location,omitempty"`
	MinCapacity int      `json:"min_capacity,omitempty"`
	MaxPrice    float64  `json:"max_price,omitempty"`
	MinRating   float64  `json:"min_rating,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// IsZero reports whether no constraint is set.
func (f SearchFilters) IsZero() bool {
	return f.Category == "" &&
		f.Location == "" &&
		f.MinCapacity == 0 &&
		f.MaxPrice == 0 &&
		f.MinRating == 0 &&
		len(f.Tags) == 0
}

// HasCategoryOrLocation reports whether a structured category or location
// constraint is present. Used by the embedding skip heuristic.
func (f SearchFilters) HasCategoryOrLocation() bool {
	return f.Category != "" || f.Location != ""
}

// Merge overlays the receiver with the caller-supplied filters. Caller
// fields win per field; unset caller fields keep the extracted value.
func (f SearchFilters) Merge(caller SearchFilters) SearchFilters {
	out := f
	if caller.Category != "" {
		out.Category = caller.Category
	}
	if caller.Location != "" {
		out.Location = caller.Location
	}
	if caller.MinCapacity > 0 {
		out.MinCapacity = caller.MinCapacity
	}
	if caller.MaxPrice > 0 {
		out.MaxPrice = caller.MaxPrice
	}
	if caller.MinRating > 0 {
		out.MinRating = caller.MinRating
	}
	if len(caller.Tags) > 0 {
		out.Tags = caller.Tags
	}
	return out
}

// SearchIntent is the structured output of intent extraction.
// SearchQuery is never empty: extraction falls back to the raw query.
// Confidence is informational and does not gate behavior.
type SearchIntent struct {
	SearchQuery string
	Filters     SearchFilters
	Confidence  float64
}
