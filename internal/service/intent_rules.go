package service

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/hamrosewa/hamrosewa/internal/domain"
)

// Price and rating heuristics shared by the rule extractor and the model
// prompt. Prices are in Nepali rupees.
const (
	budgetPriceCeiling = 20000
	premiumRatingFloor = 4.0
	ruleConfidence     = 0.6
)

// fastStoplist holds filler words stripped before fast-path matching.
var fastStoplist = map[string]struct{}{
	"please": {}, "find": {}, "show": {}, "me": {}, "thanks": {},
	"a": {}, "an": {}, "the": {}, "some": {}, "any": {},
}

// framingPhrases are request framings stripped by the rule-based fallback
// before keyword containment checks.
var framingPhrases = []string{
	"i want to book",
	"i would like to book",
	"can you find",
	"can you show",
	"i am looking for",
	"i'm looking for",
	"looking for",
	"i want",
	"i need",
	"book me",
	"find me",
	"show me",
	"search for",
	"book a",
	"book",
	"please",
	"thanks",
	"asap",
}

// categoryKeywords maps exact terms and short phrases to categories. Phrases
// are matched before single terms.
var categoryKeywords = map[string]domain.Category{
	"venue":        domain.CategoryVenue,
	"venues":       domain.CategoryVenue,
	"banquet":      domain.CategoryVenue,
	"banquet hall": domain.CategoryVenue,
	"party palace": domain.CategoryVenue,
	"hall":         domain.CategoryVenue,

	"catering": domain.CategoryCatering,
	"caterer":  domain.CategoryCatering,
	"caterers": domain.CategoryCatering,
	"buffet":   domain.CategoryCatering,

	"photographer": domain.CategoryPhotography,
	"photography":  domain.CategoryPhotography,
	"photo studio": domain.CategoryPhotography,

	"bus":    domain.CategoryBus,
	"buses":  domain.CategoryBus,
	"ticket": domain.CategoryBus,

	"flight":     domain.CategoryFlight,
	"flights":    domain.CategoryFlight,
	"air ticket": domain.CategoryFlight,
	"plane":      domain.CategoryFlight,
	"airline":    domain.CategoryFlight,

	"hotel":  domain.CategoryHotel,
	"hotels": domain.CategoryHotel,
	"lodge":  domain.CategoryHotel,
	"resort": domain.CategoryHotel,

	"movie":  domain.CategoryMovie,
	"movies": domain.CategoryMovie,
	"cinema": domain.CategoryMovie,
	"film":   domain.CategoryMovie,

	"doctor":       domain.CategoryDoctor,
	"doctors":      domain.CategoryDoctor,
	"physician":    domain.CategoryDoctor,
	"therapist":    domain.CategoryDoctor,
	"psychologist": domain.CategoryDoctor,
	"dentist":      domain.CategoryDoctor,
	"clinic":       domain.CategoryDoctor,
	"checkup":      domain.CategoryDoctor,
	"insomnia":     domain.CategoryDoctor,
	"fever":        domain.CategoryDoctor,
	"pain":         domain.CategoryDoctor,
	"headache":     domain.CategoryDoctor,
	"anxiety":      domain.CategoryDoctor,

	"salon":   domain.CategorySalon,
	"haircut": domain.CategorySalon,
	"barber":  domain.CategorySalon,
	"spa":     domain.CategorySalon,
	"parlour": domain.CategorySalon,

	"gym":     domain.CategoryGym,
	"fitness": domain.CategoryGym,
	"yoga":    domain.CategoryGym,
}

// knownLocations are the city and area names the extractor recognizes.
var knownLocations = []string{
	"kathmandu",
	"thamel",
	"patan",
	"lalitpur",
	"bhaktapur",
	"baneshwor",
	"durbarmarg",
	"new road",
	"pokhara",
	"lakeside",
	"chitwan",
	"butwal",
	"biratnagar",
	"dharan",
	"itahari",
	"nepalgunj",
}

var (
	capacityPattern = regexp.MustCompile(`(?:for\s+)?(\d+)\s*(?:people|persons|guests|pax|seats)`)
	pricePattern    = regexp.MustCompile(`(?:under|below|within|max)\s*(?:rs\.?|npr)?\s*(\d+)`)

	// framingPattern matches framing phrases on word boundaries so words
	// merely containing a phrase ("facebook", "booked") survive stripping.
	// Alternatives keep framingPhrases order, longest overlapping first.
	framingPattern = compileFramingPattern()
)

func compileFramingPattern() *regexp.Regexp {
	quoted := make([]string, len(framingPhrases))
	for i, phrase := range framingPhrases {
		quoted[i] = regexp.QuoteMeta(phrase)
	}
	return regexp.MustCompile(`\b(?:` + strings.Join(quoted, "|") + `)\b`)
}

// locationPrepositions separate a category noun from a location in the
// fast-path pattern <category-noun> [in|at|near|to|from] <location>.
var locationPrepositions = map[string]struct{}{
	"in": {}, "at": {}, "near": {}, "to": {}, "from": {},
}

// normalizeQuery lowercases, trims, collapses whitespace, and strips filler
// words from a raw query.
func normalizeQuery(query string) string {
	fields := strings.Fields(strings.ToLower(strings.TrimSpace(query)))
	kept := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, ".,!?")
		if f == "" {
			continue
		}
		if _, ok := fastStoplist[f]; ok {
			continue
		}
		kept = append(kept, f)
	}
	return strings.Join(kept, " ")
}

// lookupCategory resolves a term or short phrase against the keyword table.
func lookupCategory(term string) (domain.Category, bool) {
	c, ok := categoryKeywords[term]
	return c, ok
}

// plausibleLocation reports whether the phrase right of a preposition looks
// like a place name rather than trailing qualifiers such as "for 200 people".
func plausibleLocation(phrase string) bool {
	for _, loc := range knownLocations {
		if phrase == loc {
			return true
		}
	}
	return len(strings.Fields(phrase)) <= 2
}

// matchLocation finds the first known location contained in the text.
func matchLocation(text string) string {
	for _, loc := range knownLocations {
		if strings.Contains(text, loc) {
			return loc
		}
	}
	return ""
}

// ruleBasedIntent repeats the keyword, location, and price heuristics using
// substring containment. It is the last line of defense when the language
// model is unreachable or returns garbage, so it must always produce a
// usable intent.
func ruleBasedIntent(rawQuery string) domain.SearchIntent {
	text := strings.ToLower(strings.TrimSpace(rawQuery))
	text = framingPattern.ReplaceAllString(text, " ")
	text = strings.Join(strings.Fields(text), " ")

	var filters domain.SearchFilters

	// Phrases first so "banquet hall" beats "hall".
	for term, category := range categoryKeywords {
		if !strings.Contains(term, " ") {
			continue
		}
		if strings.Contains(text, term) {
			filters.Category = category
			break
		}
	}
	if filters.Category == "" {
		for _, word := range strings.Fields(text) {
			if category, ok := lookupCategory(word); ok {
				filters.Category = category
				break
			}
		}
	}

	filters.Location = matchLocation(text)

	if strings.Contains(text, "cheap") || strings.Contains(text, "budget") || strings.Contains(text, "affordable") {
		filters.MaxPrice = budgetPriceCeiling
	}
	if m := pricePattern.FindStringSubmatch(text); m != nil {
		if price, err := strconv.ParseFloat(m[1], 64); err == nil && price > 0 {
			filters.MaxPrice = price
		}
	}

	if strings.Contains(text, "premium") || strings.Contains(text, "luxury") || strings.Contains(text, "best") {
		filters.MinRating = premiumRatingFloor
	}

	if m := capacityPattern.FindStringSubmatch(text); m != nil {
		if capacity, err := strconv.Atoi(m[1]); err == nil && capacity > 0 {
			filters.MinCapacity = capacity
		}
	}

	searchQuery := text
	if searchQuery == "" {
		searchQuery = strings.TrimSpace(rawQuery)
	}

	return domain.SearchIntent{
		SearchQuery: searchQuery,
		Filters:     filters,
		Confidence:  ruleConfidence,
	}
}
