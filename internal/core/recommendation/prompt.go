package recommendation

import (
	"fmt"
	"sort"
	"strings"
)

// PromptPayload is what the generative step receives: a bounded prompt
// plus the id allow-list the validator will enforce afterwards.
// Candidates indexes the same products by id so validated selections
// can be rebuilt from catalog truth instead of model echo.
type PromptPayload struct {
	Prompt     string
	AllowedIDs map[string]struct{}
	Candidates map[string]ScoredProduct
}

// routineItemSchema documents the selection shape the model must return
const routineItemSchema = `{
    "morning_routine": [
        {
            "product_id": "id from the list above",
            "application_order": 1,
            "rationale": "why this product for this user",
            "usage_instructions": "how to apply",
            "expected_result": "what improvement to expect"
        }
    ],
    "evening_routine": [ same item shape ],
    "philosophy": "one-paragraph routine philosophy",
    "expected_timeline": "when results should appear",
    "tips": ["short practical tip"]
}`

// BuildSelectionPrompt serializes the candidate set into the prompt for
// the generative selection call. Only the fields the model needs to
// reason over are emitted, never full catalog records, and the emitted
// id set is the exact allow-list validation will check against.
func BuildSelectionPrompt(candidates CategorizedCandidates, profile *UserProfile, criteria FilterCriteria) PromptPayload {
	payload := PromptPayload{
		AllowedIDs: make(map[string]struct{}),
		Candidates: make(map[string]ScoredProduct),
	}

	var catalog strings.Builder
	categories := make([]string, 0, len(candidates))
	for category := range candidates {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	for _, category := range categories {
		fmt.Fprintf(&catalog, "\n%s:\n", category)
		for _, candidate := range candidates[category] {
			p := candidate.Product
			payload.AllowedIDs[p.ProductID] = struct{}{}
			payload.Candidates[p.ProductID] = candidate
			ingredients := NormalizeField(p.RawIngredients)
			if len(ingredients) > 6 {
				ingredients = ingredients[:6]
			}
			fmt.Fprintf(&catalog, "- id=%s | %s by %s | $%.2f | ingredients: %s\n",
				p.ProductID, p.Name, p.Brand, p.PriceAmount, strings.Join(ingredients, ", "))
		}
	}

	payload.Prompt = fmt.Sprintf(`You are a skincare expert assembling a personalized routine.

User profile:
- skin type: %s
- primary concerns: %s
- budget range: $%.0f - $%.0f
- ingredients to avoid: %s

Candidate products (the ONLY products you may select):
%s
Requirements:
1. Select products ONLY from the candidate list above, using their exact id values
2. Never invent, alter or guess a product_id; any id not listed will be discarded
3. Build a morning routine and an evening routine of 3 to 5 products each
4. Order items by application_order starting at 1 (cleanser first, sunscreen last in the morning)
5. Include sunscreen in the morning routine only
6. Give a concrete rationale per product tied to this user's skin type and concerns
7. All fields must use double quotes and every field must be present
8. Return exactly one JSON object, no markdown fences, no commentary

Return JSON in this shape:
%s`,
		profile.SkinType,
		strings.Join(criteria.PrimaryConcerns, ", "),
		criteria.BudgetMin, criteria.BudgetMax,
		strings.Join(criteria.AvoidIngredients, ", "),
		catalog.String(),
		routineItemSchema,
	)

	return payload
}
