package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hamrosewa/hamrosewa/internal/domain"
)

func TestParseIntentResponse(t *testing.T) {
	t.Run("plain JSON object", func(t *testing.T) {
		parsed := parseIntentResponse(`{"search_query": "venue thamel", "filters": {"category": "venue", "location": "thamel"}, "confidence": 0.85}`)

		require.True(t, parsed.OK)
		assert.Equal(t, "venue thamel", parsed.Intent.SearchQuery)
		assert.Equal(t, domain.CategoryVenue, parsed.Intent.Filters.Category)
		assert.Equal(t, "thamel", parsed.Intent.Filters.Location)
		assert.Equal(t, 0.85, parsed.Intent.Confidence)
	})

	t.Run("JSON inside a code fence", func(t *testing.T) {
		raw := "```json\n{\"search_query\": \"gym\", \"filters\": {\"category\": \"gym\"}, \"confidence\": 1}\n```"
		parsed := parseIntentResponse(raw)

		require.True(t, parsed.OK)
		assert.Equal(t, domain.CategoryGym, parsed.Intent.Filters.Category)
	})

	t.Run("JSON surrounded by prose", func(t *testing.T) {
		raw := `Sure, here is the extraction: {"search_query": "hotel pokhara", "filters": {"category": "hotel"}, "confidence": 0.7} Let me know if you need more.`
		parsed := parseIntentResponse(raw)

		require.True(t, parsed.OK)
		assert.Equal(t, "hotel pokhara", parsed.Intent.SearchQuery)
		assert.Equal(t, domain.CategoryHotel, parsed.Intent.Filters.Category)
	})

	t.Run("prose with no JSON fails", func(t *testing.T) {
		parsed := parseIntentResponse("I could not work out what the user wants.")

		assert.False(t, parsed.OK)
		assert.Equal(t, "I could not work out what the user wants.", parsed.Raw)
	})

	t.Run("empty response fails", func(t *testing.T) {
		parsed := parseIntentResponse("")
		assert.False(t, parsed.OK)
	})

	t.Run("unknown category is discarded", func(t *testing.T) {
		parsed := parseIntentResponse(`{"search_query": "helicopter tour", "filters": {"category": "helicopter"}, "confidence": 0.9}`)

		require.True(t, parsed.OK)
		assert.Equal(t, domain.Category(""), parsed.Intent.Filters.Category)
		assert.Equal(t, "helicopter tour", parsed.Intent.SearchQuery)
	})

	t.Run("negative numbers are dropped", func(t *testing.T) {
		parsed := parseIntentResponse(`{"search_query": "venue", "filters": {"category": "venue", "min_capacity": -5, "max_price": -100, "min_rating": -1}, "confidence": 0.9}`)

		require.True(t, parsed.OK)
		assert.Zero(t, parsed.Intent.Filters.MinCapacity)
		assert.Zero(t, parsed.Intent.Filters.MaxPrice)
		assert.Zero(t, parsed.Intent.Filters.MinRating)
	})

	t.Run("rating above scale is dropped", func(t *testing.T) {
		parsed := parseIntentResponse(`{"search_query": "venue", "filters": {"min_rating": 9.5}, "confidence": 0.9}`)

		require.True(t, parsed.OK)
		assert.Zero(t, parsed.Intent.Filters.MinRating)
	})

	t.Run("confidence is clamped", func(t *testing.T) {
		parsed := parseIntentResponse(`{"search_query": "venue", "filters": {}, "confidence": 3.2}`)

		require.True(t, parsed.OK)
		assert.Equal(t, 1.0, parsed.Intent.Confidence)
	})

	t.Run("tags are lowercased and trimmed", func(t *testing.T) {
		parsed := parseIntentResponse(`{"search_query": "venue", "filters": {"tags": [" Wedding ", "PARKING", ""]}, "confidence": 0.8}`)

		require.True(t, parsed.OK)
		assert.Equal(t, []string{"wedding", "parking"}, parsed.Intent.Filters.Tags)
	})
}
