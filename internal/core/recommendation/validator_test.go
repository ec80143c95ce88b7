package recommendation

import (
	"errors"
	"testing"

	"skincare-advisor/internal/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func promptPayloadFixture() PromptPayload {
	payload := PromptPayload{
		AllowedIDs: make(map[string]struct{}),
		Candidates: make(map[string]ScoredProduct),
	}
	for _, candidate := range []ScoredProduct{
		{Product: CatalogProduct{ProductID: "c1", Name: "Foam Cleanser", Brand: "Labo", PriceAmount: 18, RawIngredients: []any{"salicylic acid"}}, Score: 120, MatchReasons: []string{"contains recommended salicylic acid"}},
		{Product: CatalogProduct{ProductID: "s1", Name: "B5 Serum", Brand: "Derma", PriceAmount: 32}, Score: 90},
		{Product: CatalogProduct{ProductID: "m1", Name: "Barrier Cream", Brand: "Derma", PriceAmount: 26}, Score: 70},
	} {
		payload.AllowedIDs[candidate.Product.ProductID] = struct{}{}
		payload.Candidates[candidate.Product.ProductID] = candidate
	}
	return payload
}

func TestValidateSelectionWellFormed(t *testing.T) {
	raw := `{
		"morning_routine": [
			{"product_id": "c1", "application_order": 1, "rationale": "clears pores", "usage_instructions": "use daily", "expected_result": "fewer breakouts"},
			{"product_id": "m1", "application_order": 2, "rationale": "locks in moisture", "usage_instructions": "use after serum", "expected_result": "soft skin"}
		],
		"evening_routine": [
			{"product_id": "s1", "application_order": 1, "rationale": "repairs barrier", "usage_instructions": "2-3 drops", "expected_result": "calmer skin"}
		],
		"philosophy": "keep it simple",
		"expected_timeline": "4 weeks",
		"tips": ["patch test"]
	}`

	result, err := ValidateSelection(raw, promptPayloadFixture())

	require.NoError(t, err)
	require.Len(t, result.Recommendation.MorningRoutine, 2)
	assert.Empty(t, result.RejectedIDs)

	item := result.Recommendation.MorningRoutine[0]
	// catalog-backed fields come from the candidate, not the model
	assert.Equal(t, "c1", item.ProductID)
	assert.Equal(t, "Foam Cleanser", item.ProductName)
	assert.Equal(t, "Labo", item.Brand)
	assert.Equal(t, 18.0, item.Price)
	assert.Equal(t, "cleanser", item.Category)
	assert.Equal(t, 1, item.ApplicationOrder)
	assert.Equal(t, "clears pores", item.Rationale)

	assert.Equal(t, "keep it simple", result.Recommendation.Philosophy)
}

func TestValidateSelectionFencedOutput(t *testing.T) {
	raw := "Here is your routine:\n```json\n" +
		`{"morning_routine":[{"product_id":"c1","application_order":1,"rationale":"r","usage_instructions":"u"}],"evening_routine":[{"product_id":"s1","application_order":1,"rationale":"r","usage_instructions":"u"}],"philosophy":"p","expected_timeline":"t"}` +
		"\n```\nEnjoy!"

	result, err := ValidateSelection(raw, promptPayloadFixture())

	require.NoError(t, err)
	require.Len(t, result.Recommendation.MorningRoutine, 1)
	assert.Equal(t, "c1", result.Recommendation.MorningRoutine[0].ProductID)
}

func TestValidateSelectionRejectsUnknownIDs(t *testing.T) {
	raw := `{
		"morning_routine": [
			{"product_id": "c1", "application_order": 1, "rationale": "r", "usage_instructions": "u"},
			{"product_id": "invented-999", "application_order": 2, "rationale": "r", "usage_instructions": "u"}
		],
		"evening_routine": [
			{"product_id": "also-fake", "application_order": 1, "rationale": "r", "usage_instructions": "u"}
		],
		"philosophy": "p",
		"expected_timeline": "t"
	}`

	result, err := ValidateSelection(raw, promptPayloadFixture())

	require.NoError(t, err)
	// dropped, never substituted
	require.Len(t, result.Recommendation.MorningRoutine, 1)
	assert.Empty(t, result.Recommendation.EveningRoutine)
	assert.ElementsMatch(t, []string{"invented-999", "also-fake"}, result.RejectedIDs)
}

func TestValidateSelectionRenumbersApplicationOrder(t *testing.T) {
	raw := `{
		"morning_routine": [
			{"product_id": "nope", "application_order": 1, "rationale": "r", "usage_instructions": "u"},
			{"product_id": "c1", "application_order": 7, "rationale": "r", "usage_instructions": "u"},
			{"product_id": "m1", "application_order": 9, "rationale": "r", "usage_instructions": "u"}
		],
		"evening_routine": [],
		"philosophy": "p",
		"expected_timeline": "t"
	}`

	result, err := ValidateSelection(raw, promptPayloadFixture())

	require.NoError(t, err)
	require.Len(t, result.Recommendation.MorningRoutine, 2)
	assert.Equal(t, 1, result.Recommendation.MorningRoutine[0].ApplicationOrder)
	assert.Equal(t, 2, result.Recommendation.MorningRoutine[1].ApplicationOrder)
}

func TestValidateSelectionParseFailure(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty output", "   "},
		{"no json at all", "I'm sorry, I cannot help with that."},
		{"broken json", `{"morning_routine": [`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ValidateSelection(tt.raw, promptPayloadFixture())
			require.Error(t, err)
			assert.True(t, errors.Is(err, common.ErrValidationFailure))
		})
	}
}

func TestValidateSelectionAllRejected(t *testing.T) {
	raw := `{
		"morning_routine": [{"product_id": "ghost", "application_order": 1, "rationale": "r", "usage_instructions": "u"}],
		"evening_routine": [],
		"philosophy": "p",
		"expected_timeline": "t"
	}`

	_, err := ValidateSelection(raw, promptPayloadFixture())

	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrValidationFailure))
}

func TestValidateSelectionFillsEmptyUsage(t *testing.T) {
	raw := `{
		"morning_routine": [{"product_id": "c1", "application_order": 1, "rationale": "", "usage_instructions": "null"}],
		"evening_routine": [{"product_id": "s1", "application_order": 1, "rationale": "r", "usage_instructions": "u"}],
		"philosophy": "p",
		"expected_timeline": "t"
	}`

	result, err := ValidateSelection(raw, promptPayloadFixture())

	require.NoError(t, err)
	item := result.Recommendation.MorningRoutine[0]
	assert.Equal(t, "contains recommended salicylic acid", item.Rationale)
	assert.NotEmpty(t, item.UsageInstructions)
	assert.NotEqual(t, "null", item.UsageInstructions)
}
