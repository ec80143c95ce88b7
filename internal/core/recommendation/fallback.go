package recommendation

import (
	"fmt"
	"strings"
)

// usage copy per category for fallback routines; generic but never empty
var fallbackUsage = map[string]string{
	"cleanser":    "Massage onto damp skin, then rinse thoroughly with lukewarm water.",
	"serum":       "Apply 2-3 drops to clean skin before moisturizing.",
	"moisturizer": "Apply a pea-sized amount to face and neck after serums.",
	"sunscreen":   "Apply generously as the last morning step; reapply every 2 hours outdoors.",
}

const defaultUsage = "Apply as directed on the packaging."

// ComposeFallback builds a deterministic routine purely from already
// scored catalog entries. It is the terminal recovery path: whenever
// filtering finds nothing usable, the model call fails, or validation
// empties a routine, this keeps the run ending in a usable
// recommendation. Given identical candidates it returns identical
// output.
func ComposeFallback(candidates CategorizedCandidates, profile *UserProfile, criteria FilterCriteria) *Recommendation {
	rec := &Recommendation{
		Philosophy: fmt.Sprintf(
			"A simple, consistent routine for %s skin built around cleansing, targeted treatment and hydration.",
			displaySkinType(profile)),
		ExpectedTimeline: "Visible improvement typically takes 4-6 weeks of consistent use.",
		Tips: []string{
			"Introduce one new product at a time and patch test first.",
			"Consistency matters more than product count.",
		},
	}

	morningCategories := []string{"cleanser", "serum", "moisturizer", "sunscreen"}
	eveningCategories := []string{"cleanser", "serum", "moisturizer"}

	used := make(map[string]struct{})
	for _, category := range morningCategories {
		if item, ok := pickForCategory(candidates, category, criteria, nil); ok {
			item.ApplicationOrder = len(rec.MorningRoutine) + 1
			rec.MorningRoutine = append(rec.MorningRoutine, item)
			used[item.ProductID] = struct{}{}
		}
	}

	// evening prefers next-best distinct picks, repeating the morning
	// choice rather than leaving a slot empty
	for _, category := range eveningCategories {
		item, ok := pickForCategory(candidates, category, criteria, used)
		if !ok {
			item, ok = pickForCategory(candidates, category, criteria, nil)
		}
		if ok {
			item.ApplicationOrder = len(rec.EveningRoutine) + 1
			rec.EveningRoutine = append(rec.EveningRoutine, item)
			used[item.ProductID] = struct{}{}
		}
	}

	return rec
}

// pickForCategory takes the top candidate in a category, skipping ids
// in exclude when set. Ties already broke by score order during
// grouping; for serums the user's first must-have active additionally
// promotes a match over a plain higher-ranked entry with the same score.
func pickForCategory(candidates CategorizedCandidates, category string, criteria FilterCriteria, exclude map[string]struct{}) (RoutineItem, bool) {
	list := candidates[category]
	if len(list) == 0 {
		return RoutineItem{}, false
	}

	pickIdx := -1
	for i, candidate := range list {
		if exclude != nil {
			if _, taken := exclude[candidate.Product.ProductID]; taken {
				continue
			}
		}
		if pickIdx == -1 {
			pickIdx = i
			continue
		}
		if category == "serum" && candidate.Score == list[pickIdx].Score &&
			mentionsPriorityActive(candidate, criteria) && !mentionsPriorityActive(list[pickIdx], criteria) {
			pickIdx = i
		}
	}
	if pickIdx == -1 {
		return RoutineItem{}, false
	}

	candidate := list[pickIdx]
	product := candidate.Product
	ingredients := NormalizeField(product.RawIngredients)
	if len(ingredients) > 5 {
		ingredients = ingredients[:5]
	}

	rationale := strings.Join(candidate.MatchReasons, "; ")
	if rationale == "" {
		rationale = fmt.Sprintf("Best available %s match in the catalog for this profile.", category)
	}

	usage := fallbackUsage[category]
	if usage == "" {
		usage = defaultUsage
	}

	return RoutineItem{
		ProductID:         product.ProductID,
		ProductName:       product.Name,
		Brand:             product.Brand,
		Category:          category,
		Price:             product.PriceAmount,
		KeyIngredients:    ingredients,
		Rationale:         rationale,
		UsageInstructions: usage,
		ExpectedResult:    "Supports the core routine step for " + category + ".",
	}, true
}

func mentionsPriorityActive(candidate ScoredProduct, criteria FilterCriteria) bool {
	if len(criteria.MustHaveIngredients) == 0 {
		return false
	}
	active := criteria.MustHaveIngredients[0]
	for _, ingredient := range NormalizeField(candidate.Product.RawIngredients) {
		if strings.Contains(ingredient, active) {
			return true
		}
	}
	return false
}

func displaySkinType(profile *UserProfile) string {
	if profile == nil || strings.TrimSpace(profile.SkinType) == "" {
		return "your"
	}
	return strings.ToLower(profile.SkinType)
}
