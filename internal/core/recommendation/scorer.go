package recommendation

import (
	"fmt"
	"sort"
	"strings"

	"skincare-advisor/internal/infrastructure/config"
	"skincare-advisor/internal/pkg/common"

	"go.uber.org/zap"
)

// skinTypeKeywords maps a skin type to the label keywords products use
// for it in names and benefit copy
var skinTypeKeywords = map[string][]string{
	"oily":        {"oily", "oil control", "oil-control", "mattifying", "sebum"},
	"dry":         {"dry", "hydrating", "moisturizing", "nourishing"},
	"combination": {"combination", "balancing", "all skin types"},
	"sensitive":   {"sensitive", "gentle", "soothing", "calming", "fragrance-free"},
	"normal":      {"normal", "all skin types"},
}

// Scorer assigns match scores to catalog products against one run's criteria
type Scorer struct {
	cfg config.RecommendationConfig
}

// NewScorer creates a scorer with the configured weight schedule
func NewScorer(cfg config.RecommendationConfig) *Scorer {
	return &Scorer{cfg: cfg}
}

// ScoreProduct scores a single product. Under strictAvoid a matched
// avoid-ingredient disqualifies outright (score 0); under lenient
// avoidance it only penalizes. A panic while reading a malformed
// product must not abort the batch, the product gets the floor score
// with its reason flagging the anomaly.
func (s *Scorer) ScoreProduct(product CatalogProduct, criteria FilterCriteria, strictAvoid bool) (scored ScoredProduct) {
	scored = ScoredProduct{Product: product}

	defer func() {
		if r := recover(); r != nil {
			common.LogWarn("scoring recovered from malformed product",
				zap.String("product_id", product.ProductID),
				zap.Any("error", r),
			)
			scored.Score = s.cfg.BaseFloorScore
			scored.MatchReasons = []string{"product data could not be fully evaluated"}
		}
	}()

	ingredients := NormalizeField(product.RawIngredients)
	benefits := NormalizeField(product.RawBenefits)
	nameLower := strings.ToLower(product.Name)
	categoryLower := strings.ToLower(product.CategoryPath)

	score := 0
	var reasons []string

	// 1. avoidance check
	for _, avoid := range criteria.AvoidIngredients {
		if matchesIngredient(avoid, ingredients, "") {
			if strictAvoid {
				scored.Score = 0
				scored.MatchReasons = []string{fmt.Sprintf("contains %s, disqualified", avoid)}
				return scored
			}
			score -= s.cfg.AvoidPenalty
			reasons = append(reasons, fmt.Sprintf("contains %s (penalized)", avoid))
			break
		}
	}

	// 2. must-have matches
	for _, want := range criteria.MustHaveIngredients {
		if matchesIngredient(want, ingredients, nameLower) {
			score += s.cfg.MustHaveWeight
			reasons = append(reasons, fmt.Sprintf("contains recommended %s", want))
		}
	}

	// 3. beneficial matches
	for _, want := range criteria.BeneficialIngredients {
		if matchesIngredient(want, ingredients, nameLower) {
			score += s.cfg.BeneficialWeight
			reasons = append(reasons, fmt.Sprintf("contains beneficial %s", want))
		}
	}

	// 4. concern-to-benefit matches
	for _, concern := range criteria.PrimaryConcerns {
		if matchesIngredient(concern, benefits, nameLower+" "+categoryLower) {
			score += s.cfg.ConcernWeight
			reasons = append(reasons, fmt.Sprintf("targets %s", concern))
		}
	}

	// 5. skin type keyword match
	if keywords, ok := skinTypeKeywords[criteria.SkinType]; ok {
		haystack := nameLower + " " + strings.Join(benefits, " ")
		for _, keyword := range keywords {
			if strings.Contains(haystack, keyword) {
				score += s.cfg.SkinTypeWeight
				reasons = append(reasons, fmt.Sprintf("suited for %s skin", criteria.SkinType))
				break
			}
		}
	}

	// 6. budget fit against the widened range
	widen := s.cfg.BudgetWidenPct
	lo := criteria.BudgetMin * (1 - widen)
	hi := criteria.BudgetMax * (1 + widen)
	if product.PriceAmount >= lo && product.PriceAmount <= hi {
		score += s.cfg.BudgetBonus
		reasons = append(reasons, "within budget")
	}

	// 7. quality bonus
	if product.HasRating && product.RatingAverage >= s.cfg.MinRatingBonus {
		score += s.cfg.QualityBonus
		reasons = append(reasons, fmt.Sprintf("highly rated (%.1f)", product.RatingAverage))
	}

	// 8. base floor: a product whose attributes we failed to match but
	// that has at least one recognized ingredient still participates
	if score == 0 && len(reasons) == 0 && len(ingredients) > 0 {
		score = s.cfg.BaseFloorScore
		reasons = append(reasons, "valid product")
	}

	scored.Score = score
	scored.MatchReasons = reasons
	return scored
}

// ScoreAll scores a batch and ranks it, score descending with original
// catalog order as the stable tiebreak
func (s *Scorer) ScoreAll(products []CatalogProduct, criteria FilterCriteria, strictAvoid bool) []ScoredProduct {
	scored := make([]ScoredProduct, 0, len(products))
	for _, product := range products {
		scored = append(scored, s.ScoreProduct(product, criteria, strictAvoid))
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	return scored
}

// matchesIngredient reports whether term substring-matches any of the
// normalized entries or the extra haystack (product name, category)
func matchesIngredient(term string, entries []string, extra string) bool {
	if term == "" {
		return false
	}
	for _, entry := range entries {
		if strings.Contains(entry, term) {
			return true
		}
	}
	return extra != "" && strings.Contains(extra, term)
}
