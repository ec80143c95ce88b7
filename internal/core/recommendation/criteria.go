package recommendation

import (
	"sort"
	"strings"

	"skincare-advisor/internal/pkg/common"
)

// budgetRange is a currency bound pair for one budget tier
type budgetRange struct {
	min float64
	max float64
}

// budgetTiers is the fixed tier lookup; unknown labels fall through to
// the widest range rather than failing the run
var budgetTiers = map[string]budgetRange{
	"budget":    {0, 50},
	"mid_range": {20, 150},
	"luxury":    {50, 500},
}

var widestBudget = budgetRange{0, 500}

// ExtractCriteria derives the run's filter criteria from the upstream
// analysis and the user profile. The criteria value is immutable for
// the rest of the run.
func ExtractCriteria(analysis *Analysis, profile *UserProfile) FilterCriteria {
	criteria := FilterCriteria{
		SkinType: common.NormalizeTerm(profile.SkinType),
	}

	if analysis != nil {
		criteria.MustHaveIngredients = dedupeTerms(analysis.IngredientRecommendations.MustHave)
		criteria.BeneficialIngredients = dedupeTerms(analysis.IngredientRecommendations.Beneficial)
	}

	// avoid list is the union of model advice and declared allergies,
	// case-insensitive
	var avoid []string
	if analysis != nil {
		avoid = append(avoid, analysis.IngredientRecommendations.Avoid...)
	}
	avoid = append(avoid, profile.Allergies...)
	criteria.AvoidIngredients = dedupeTerms(avoid)

	// concerns keep their stated order
	seen := make(map[string]struct{})
	for _, concern := range profile.PrimaryConcerns {
		term := common.NormalizeTerm(concern)
		if term == "" {
			continue
		}
		if _, ok := seen[term]; ok {
			continue
		}
		seen[term] = struct{}{}
		criteria.PrimaryConcerns = append(criteria.PrimaryConcerns, term)
	}

	tier, ok := budgetTiers[common.NormalizeTerm(profile.Budget)]
	if !ok {
		tier = widestBudget
	}
	criteria.BudgetMin = tier.min
	criteria.BudgetMax = tier.max

	if analysis != nil {
		criteria.RequiredProductTypes = requiredTypes(&analysis.RoutineStructure)
	}

	return criteria
}

// requiredTypes unions every step type named across both routines
func requiredTypes(rs *RoutineStructure) []string {
	set := make(map[string]struct{})
	for _, step := range rs.Morning.Steps {
		if t := common.NormalizeTerm(step.ProductType); t != "" {
			set[t] = struct{}{}
		}
	}
	for _, step := range rs.Evening.Steps {
		if t := common.NormalizeTerm(step.ProductType); t != "" {
			set[t] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// dedupeTerms lower-cases, trims and dedupes, keeping sorted order so
// criteria comparison stays deterministic
func dedupeTerms(terms []string) []string {
	set := make(map[string]struct{}, len(terms))
	for _, term := range terms {
		if t := strings.ToLower(strings.TrimSpace(term)); t != "" {
			set[t] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
