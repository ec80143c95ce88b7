package recommendation

import (
	"sort"
	"strings"
)

// categoryRule maps keywords found in a product's name or category path
// to a routine-step category; rules apply in order, first match wins
type categoryRule struct {
	category string
	keywords []string
}

var categoryRules = []categoryRule{
	{"cleanser", []string{"cleanser", "cleansing", "face wash", "facial wash"}},
	{"serum", []string{"serum", "essence", "ampoule"}},
	{"moisturizer", []string{"moisturizer", "moisturiser", "cream", "lotion", "emulsion"}},
	{"sunscreen", []string{"sunscreen", "sun screen", "spf", "uv "}},
	{"toner", []string{"toner", "tonic", "mist"}},
	{"exfoliant", []string{"exfoliant", "exfoliating", "scrub", "peeling"}},
	{"mask", []string{"mask", "masque"}},
	{"oil", []string{"face oil", "facial oil", "oil"}},
	{"eye care", []string{"eye cream", "eye gel", "eye care", "eye"}},
	{"lip care", []string{"lip balm", "lip care", "lip"}},
}

// defaultCategory catches actives that fit no routine-step keyword
const defaultCategory = "treatment"

// essentialCategories must not end up empty when any plausible
// candidate exists anywhere in the scored set
var essentialCategories = []string{"cleanser", "serum", "moisturizer"}

// CategorizeProduct infers the routine-step category from the product
// name and category path
func CategorizeProduct(product CatalogProduct) string {
	haystack := strings.ToLower(product.Name + " " + product.CategoryPath)
	for _, rule := range categoryRules {
		for _, keyword := range rule.keywords {
			if strings.Contains(haystack, keyword) {
				return rule.category
			}
		}
	}
	return defaultCategory
}

// GroupByCategory buckets positively-scored candidates into routine
// categories, keeping the maxPerCategory highest scorers per bucket.
// After grouping, empty essential categories get one best-effort
// backfill from the full scored set by relaxed substring match.
// The function is idempotent for a fixed input and cap.
func GroupByCategory(scored []ScoredProduct, maxPerCategory int) CategorizedCandidates {
	grouped := make(CategorizedCandidates)
	for _, candidate := range scored {
		if candidate.Score <= 0 {
			continue
		}
		category := CategorizeProduct(candidate.Product)
		grouped[category] = append(grouped[category], candidate)
	}

	for category, candidates := range grouped {
		sort.SliceStable(candidates, func(i, j int) bool {
			return candidates[i].Score > candidates[j].Score
		})
		if len(candidates) > maxPerCategory {
			candidates = candidates[:maxPerCategory]
		}
		grouped[category] = candidates
	}

	// essential backfill: a routine without a cleanser or moisturizer
	// is unusable, so search the full scored set, low scores included
	for _, essential := range essentialCategories {
		if len(grouped[essential]) > 0 {
			continue
		}
		if candidate, ok := backfillCandidate(scored, essential); ok {
			grouped[essential] = []ScoredProduct{candidate}
		}
	}

	return grouped
}

// backfillCandidate finds the best-scoring product whose name or
// category path loosely mentions the wanted category
func backfillCandidate(scored []ScoredProduct, category string) (ScoredProduct, bool) {
	stem := category
	// "cleanser" should also match "cleansing"
	if len(stem) > 5 {
		stem = stem[:5]
	}
	for _, candidate := range scored {
		if isDisqualified(candidate) {
			continue
		}
		haystack := strings.ToLower(candidate.Product.Name + " " + candidate.Product.CategoryPath)
		if strings.Contains(haystack, stem) {
			return candidate, true
		}
	}
	return ScoredProduct{}, false
}

// isDisqualified reports whether strict avoidance zeroed this candidate;
// disqualified products never re-enter through backfill
func isDisqualified(candidate ScoredProduct) bool {
	if candidate.Score > 0 {
		return false
	}
	for _, reason := range candidate.MatchReasons {
		if strings.HasSuffix(reason, "disqualified") {
			return true
		}
	}
	return false
}
