package service

import (
	"encoding/json"
	"strings"

	"github.com/hamrosewa/hamrosewa/internal/domain"
)

// IntentParse is the tagged outcome of decoding a model response: either a
// validated intent or a parse failure carrying the raw text. A failure has
// exactly one transition, the rule-based fallback. The model is never
// retried on bad output.
type IntentParse struct {
	Intent domain.SearchIntent
	OK     bool
	Raw    string
}

// intentPayload mirrors the JSON object the model is instructed to return.
type intentPayload struct {
	SearchQuery string  `json:"search_query"`
	Filters     payload `json:"filters"`
	Confidence  float64 `json:"confidence"`
}

type payload struct {
	Category    string   `json:"category"`
	Location    string   `json:"location"`
	MinCapacity int      `json:"min_capacity"`
	MaxPrice    float64  `json:"max_price"`
	MinRating   float64  `json:"min_rating"`
	Tags        []string `json:"tags"`
}

// parseIntentResponse decodes a model response defensively: direct parse
// first, then code-fence extraction, then a bare substring match between the
// outermost braces.
func parseIntentResponse(raw string) IntentParse {
	candidates := []string{strings.TrimSpace(raw)}

	if fenced := extractCodeFence(raw); fenced != "" {
		candidates = append(candidates, fenced)
	}
	if sub := extractBraceSubstring(raw); sub != "" {
		candidates = append(candidates, sub)
	}

	for _, candidate := range candidates {
		if candidate == "" {
			continue
		}
		var p intentPayload
		if err := json.Unmarshal([]byte(candidate), &p); err != nil {
			continue
		}
		return IntentParse{Intent: payloadToIntent(p), OK: true, Raw: raw}
	}

	return IntentParse{Raw: raw}
}

// payloadToIntent validates the loosely-typed payload into a SearchIntent.
// Category values outside the taxonomy are discarded, not propagated.
func payloadToIntent(p intentPayload) domain.SearchIntent {
	var filters domain.SearchFilters

	if category, ok := domain.ParseCategory(strings.ToLower(strings.TrimSpace(p.Filters.Category))); ok {
		filters.Category = category
	}
	filters.Location = strings.TrimSpace(p.Filters.Location)
	if p.Filters.MinCapacity > 0 {
		filters.MinCapacity = p.Filters.MinCapacity
	}
	if p.Filters.MaxPrice > 0 {
		filters.MaxPrice = p.Filters.MaxPrice
	}
	if p.Filters.MinRating > 0 && p.Filters.MinRating <= domain.MaxRating {
		filters.MinRating = p.Filters.MinRating
	}
	for _, tag := range p.Filters.Tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag != "" {
			filters.Tags = append(filters.Tags, tag)
		}
	}

	confidence := p.Confidence
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	return domain.SearchIntent{
		SearchQuery: strings.TrimSpace(p.SearchQuery),
		Filters:     filters,
		Confidence:  confidence,
	}
}

// extractCodeFence pulls the body of the first ``` fence, tolerating a
// language tag after the opening backticks.
func extractCodeFence(raw string) string {
	start := strings.Index(raw, "```")
	if start == -1 {
		return ""
	}
	body := raw[start+3:]
	if newline := strings.Index(body, "\n"); newline != -1 {
		firstLine := strings.TrimSpace(body[:newline])
		if firstLine == "json" || firstLine == "JSON" || firstLine == "" {
			body = body[newline+1:]
		}
	}
	end := strings.Index(body, "```")
	if end == -1 {
		return ""
	}
	return strings.TrimSpace(body[:end])
}

// extractBraceSubstring returns the text between the first '{' and the last
// '}' inclusive.
func extractBraceSubstring(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end == -1 || end <= start {
		return ""
	}
	return raw[start : end+1]
}
