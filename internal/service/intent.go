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
	exactMatchConfidence   = 1.0
	patternMatchConfidence = 0.95

	defaultIntentTimeout = 5 * time.Second
)

// IntentModel is the slow-path language-model dependency. It performs one
// system+user exchange and returns the raw response text.
type IntentModel interface {
	CompleteIntent(ctx context.Context, system, query string) (string, error)
}

// IntentExtractorConfig controls slow-path behavior.
type IntentExtractorConfig struct {
	Timeout          time.Duration
	BreakerThreshold int
	BreakerCooldown  time.Duration
}

// DefaultIntentExtractorConfig returns the default extractor configuration.
func DefaultIntentExtractorConfig() IntentExtractorConfig {
	return IntentExtractorConfig{
		Timeout:          defaultIntentTimeout,
		BreakerThreshold: 3,
		BreakerCooldown:  30 * time.Second,
	}
}

// IntentExtractor turns a raw query into a SearchIntent. The fast path is
// deterministic and covers the bulk of short booking queries without a
// network call; the slow path asks a language model and falls back to local
// rules on any failure. Extraction never returns an error.
type IntentExtractor struct {
	model   IntentModel
	breaker *Breaker
	timeout time.Duration
}

// NewIntentExtractor creates an IntentExtractor. A nil model disables the
// slow path entirely; unresolved queries then go straight to the rule
// fallback.
func NewIntentExtractor(model IntentModel) *IntentExtractor {
	return NewIntentExtractorWithConfig(model, DefaultIntentExtractorConfig())
}

// NewIntentExtractorWithConfig creates an IntentExtractor with explicit configuration.
func NewIntentExtractorWithConfig(model IntentModel, cfg IntentExtractorConfig) *IntentExtractor {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultIntentTimeout
	}
	return &IntentExtractor{
		model:   model,
		breaker: NewBreaker(cfg.BreakerThreshold, cfg.BreakerCooldown),
		timeout: timeout,
	}
}

// ExtractIntent parses a raw query into a SearchIntent. Worst case it
// echoes the raw query with empty filters.
func (e *IntentExtractor) ExtractIntent(ctx context.Context, query string) domain.SearchIntent {
	ctx, span := telemetry.StartSpan(ctx, "IntentExtractor.ExtractIntent", telemetry.SpanAttributes{
		Operation: "extract_intent",
	})
	defer span.End()

	cleaned := normalizeQuery(query)
	if cleaned == "" {
		return domain.SearchIntent{SearchQuery: strings.TrimSpace(query)}
	}

	if intent, ok := fastTrackIntent(cleaned); ok {
		return intent
	}

	return e.slowPathIntent(ctx, query, cleaned)
}

// fastTrackIntent resolves the cleaned query without any network call:
// exact keyword-table match first, then the
// <category-noun> [in|at|near|to|from] <location> pattern. The noun side
// must resolve in the keyword table as a whole phrase and the location side
// must look like a place name. Queries carrying price or capacity qualifiers
// fail both checks and take the slow path, which extracts those filters.
func fastTrackIntent(cleaned string) (domain.SearchIntent, bool) {
	if category, ok := lookupCategory(cleaned); ok {
		return domain.SearchIntent{
			SearchQuery: cleaned,
			Filters:     domain.SearchFilters{Category: category},
			Confidence:  exactMatchConfidence,
		}, true
	}

	words := strings.Fields(cleaned)
	for i, word := range words {
		if _, ok := locationPrepositions[word]; !ok {
			continue
		}
		if i == 0 || i == len(words)-1 {
			continue
		}

		noun := strings.Join(words[:i], " ")
		location := strings.Join(words[i+1:], " ")

		category, ok := lookupCategory(noun)
		if !ok || !plausibleLocation(location) {
			continue
		}

		return domain.SearchIntent{
			SearchQuery: cleaned,
			Filters: domain.SearchFilters{
				Category: category,
				Location: location,
			},
			Confidence: patternMatchConfidence,
		}, true
	}

	return domain.SearchIntent{}, false
}

// slowPathIntent asks the language model and falls back to local rules on
// breaker rejection, call failure, or unparseable output.
func (e *IntentExtractor) slowPathIntent(ctx context.Context, rawQuery, cleaned string) domain.SearchIntent {
	if e.model == nil || !e.breaker.Allow() {
		return ruleBasedIntent(rawQuery)
	}

	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	raw, err := e.model.CompleteIntent(callCtx, intentSystemPrompt(), rawQuery)
	if err != nil {
		e.breaker.Failure()
		log.Printf("intent model call failed, using rule fallback: %v", err)
		return ruleBasedIntent(rawQuery)
	}

	parsed := parseIntentResponse(raw)
	if !parsed.OK {
		e.breaker.Failure()
		log.Printf("intent model returned unparseable response, using rule fallback")
		return ruleBasedIntent(rawQuery)
	}
	e.breaker.Success()

	intent := parsed.Intent
	if intent.SearchQuery == "" {
		intent.SearchQuery = cleaned
	}
	return intent
}

// intentSystemPrompt is the fixed instruction prompt for the slow path. It
// enumerates the exact taxonomy and locations so the model cannot invent
// categories, and spells out the price/rating keyword heuristics.
func intentSystemPrompt() string {
	var categories []string
	for _, c := range domain.Categories {
		categories = append(categories, string(c))
	}

	return fmt.Sprintf(`You extract search intent for a Nepali services booking assistant.
Given a user message, respond with a single JSON object:
{"search_query": string, "filters": {"category": string, "location": string, "min_capacity": int, "max_price": number, "min_rating": number}, "confidence": number}

Rules:
- "category" must be one of: %s. Omit it if none applies.
- "location" must be a city or area name mentioned by the user, e.g.: %s.
- "cheap", "budget" or "affordable" means max_price %d (NPR).
- "premium", "luxury" or "best" means min_rating %.1f.
- "for N people" means min_capacity N.
- "search_query" is the user's request reduced to the words useful for text search.
- "confidence" is your confidence in the extraction between 0 and 1.
- Respond with JSON only, no prose.`,
		strings.Join(categories, ", "),
		strings.Join(knownLocations, ", "),
		budgetPriceCeiling,
		premiumRatingFloor,
	)
}
