package recommendation

import (
	"fmt"
	"strings"

	"skincare-advisor/internal/pkg/common"

	"go.uber.org/zap"
)

// ---------------- loose intermediate structs: tolerate model noise ----------------

type looseSelection struct {
	MorningRoutine   []looseItem `json:"morning_routine"`
	EveningRoutine   []looseItem `json:"evening_routine"`
	Philosophy       string      `json:"philosophy"`
	ExpectedTimeline string      `json:"expected_timeline"`
	Tips             []string    `json:"tips"`
}

type looseItem struct {
	ProductID         string `json:"product_id"`
	ApplicationOrder  int    `json:"application_order"`
	Rationale         string `json:"rationale"`
	UsageInstructions string `json:"usage_instructions"`
	ExpectedResult    string `json:"expected_result"`
	ExpectedTimeline  string `json:"expected_timeline"`
}

// ---------------------------------------------------------------

// ValidationResult reports what allow-list filtering removed
type ValidationResult struct {
	Recommendation *Recommendation
	RejectedIDs    []string
}

// ValidateSelection parses the raw model output and enforces the id
// allow-list. The model is untrusted: every product field except the
// free-text rationale/usage copy is rebuilt from the candidate the id
// points at, and an unknown id drops the item (never a substitution).
// Total parse failure returns ErrValidationFailure so the orchestrator
// can fall back deterministically.
func ValidateSelection(rawOutput string, payload PromptPayload) (*ValidationResult, error) {
	if strings.TrimSpace(rawOutput) == "" {
		return nil, fmt.Errorf("%w: empty model output", common.ErrValidationFailure)
	}

	var loose looseSelection
	if err := common.ParseJSONStrict(rawOutput, &loose); err != nil {
		// legacy free-text recovery: fence strip plus first '{' to last
		// '}', best-effort only, kept as the last parsing resort
		extracted, ok := common.ExtractJSONObject(rawOutput)
		if !ok {
			return nil, fmt.Errorf("%w: no JSON object in output: %v", common.ErrValidationFailure, err)
		}
		extracted = common.QuoteJSONKeys(extracted)
		if err := common.ParseJSON(extracted, &loose); err != nil {
			return nil, fmt.Errorf("%w: failed to parse model output: %v", common.ErrValidationFailure, err)
		}
	}

	result := &ValidationResult{Recommendation: &Recommendation{
		Philosophy:       loose.Philosophy,
		ExpectedTimeline: loose.ExpectedTimeline,
		Tips:             loose.Tips,
	}}

	result.Recommendation.MorningRoutine = filterRoutine(loose.MorningRoutine, payload, &result.RejectedIDs)
	result.Recommendation.EveningRoutine = filterRoutine(loose.EveningRoutine, payload, &result.RejectedIDs)

	if len(result.RejectedIDs) > 0 {
		common.LogWarn("model selected ids outside the allowed candidate set",
			zap.Int("rejected_count", len(result.RejectedIDs)),
			zap.Strings("rejected_ids", result.RejectedIDs),
		)
	}

	if len(result.Recommendation.MorningRoutine) == 0 && len(result.Recommendation.EveningRoutine) == 0 {
		return nil, fmt.Errorf("%w: every selected item was rejected", common.ErrValidationFailure)
	}

	return result, nil
}

// filterRoutine keeps allow-listed items, rebuilding catalog-backed
// fields from the candidate set and renumbering application order
func filterRoutine(items []looseItem, payload PromptPayload, rejected *[]string) []RoutineItem {
	routine := make([]RoutineItem, 0, len(items))
	for _, item := range items {
		id := strings.TrimSpace(item.ProductID)
		candidate, ok := payload.Candidates[id]
		if !ok {
			if id != "" {
				*rejected = append(*rejected, id)
			}
			continue
		}

		product := candidate.Product
		ingredients := NormalizeField(product.RawIngredients)
		if len(ingredients) > 5 {
			ingredients = ingredients[:5]
		}

		routine = append(routine, RoutineItem{
			ProductID:            product.ProductID,
			ProductName:          product.Name,
			Brand:                product.Brand,
			Category:             CategorizeProduct(product),
			Price:                product.PriceAmount,
			ApplicationOrder:     len(routine) + 1,
			KeyIngredients:       ingredients,
			Rationale:            defaultIfEmpty(item.Rationale, strings.Join(candidate.MatchReasons, "; ")),
			UsageInstructions:    defaultIfEmpty(item.UsageInstructions, "Apply as directed on the packaging."),
			ExpectedResult:       item.ExpectedResult,
			ExpectedTimelineText: item.ExpectedTimeline,
		})
	}
	return routine
}

func defaultIfEmpty(value, fallback string) string {
	if strings.TrimSpace(value) == "" || value == "null" {
		return fallback
	}
	return value
}
