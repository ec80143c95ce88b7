package recommendation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fallbackCandidates() CategorizedCandidates {
	return CategorizedCandidates{
		"cleanser": {
			{Product: CatalogProduct{ProductID: "c1", Name: "Gel Cleanser", Brand: "Labo", PriceAmount: 14}, Score: 110, MatchReasons: []string{"suits oily skin"}},
			{Product: CatalogProduct{ProductID: "c2", Name: "Milk Cleanser", Brand: "Labo", PriceAmount: 12}, Score: 80},
		},
		"serum": {
			{Product: CatalogProduct{ProductID: "s1", Name: "Acid Serum", Brand: "Derma", PriceAmount: 30, RawIngredients: []any{"niacinamide"}}, Score: 95},
			{Product: CatalogProduct{ProductID: "s2", Name: "Sal Serum", Brand: "Derma", PriceAmount: 28, RawIngredients: []any{"salicylic acid"}}, Score: 95},
		},
		"moisturizer": {
			{Product: CatalogProduct{ProductID: "m1", Name: "Barrier Cream", Brand: "Derma", PriceAmount: 22}, Score: 75},
		},
		"sunscreen": {
			{Product: CatalogProduct{ProductID: "sp1", Name: "SPF 50 Fluid", Brand: "Sol", PriceAmount: 19}, Score: 60},
		},
	}
}

func TestComposeFallbackCoversEssentialCategories(t *testing.T) {
	profile := &UserProfile{SkinType: "Oily"}
	rec := ComposeFallback(fallbackCandidates(), profile, FilterCriteria{})

	require.Len(t, rec.MorningRoutine, 4)
	require.Len(t, rec.EveningRoutine, 3)

	morningCats := make([]string, 0, 4)
	for _, item := range rec.MorningRoutine {
		morningCats = append(morningCats, item.Category)
	}
	assert.Equal(t, []string{"cleanser", "serum", "moisturizer", "sunscreen"}, morningCats)

	for _, item := range rec.EveningRoutine {
		assert.NotEqual(t, "sunscreen", item.Category)
	}
}

func TestComposeFallbackDeterministic(t *testing.T) {
	profile := &UserProfile{SkinType: "dry"}
	criteria := FilterCriteria{MustHaveIngredients: []string{"salicylic acid"}}

	first := ComposeFallback(fallbackCandidates(), profile, criteria)
	second := ComposeFallback(fallbackCandidates(), profile, criteria)

	assert.Equal(t, first, second)
}

func TestComposeFallbackPriorityActiveBreaksSerumTie(t *testing.T) {
	criteria := FilterCriteria{MustHaveIngredients: []string{"salicylic acid"}}
	rec := ComposeFallback(fallbackCandidates(), nil, criteria)

	require.Len(t, rec.MorningRoutine, 4)
	assert.Equal(t, "s2", rec.MorningRoutine[1].ProductID)
}

func TestComposeFallbackEveningPrefersDistinctPicks(t *testing.T) {
	rec := ComposeFallback(fallbackCandidates(), nil, FilterCriteria{})

	// two cleansers exist, so evening takes the runner-up
	assert.Equal(t, "c1", rec.MorningRoutine[0].ProductID)
	assert.Equal(t, "c2", rec.EveningRoutine[0].ProductID)

	// single moisturizer repeats rather than leaving the slot empty
	assert.Equal(t, "m1", rec.MorningRoutine[2].ProductID)
	assert.Equal(t, "m1", rec.EveningRoutine[2].ProductID)
}

func TestComposeFallbackSkipsEmptyCategories(t *testing.T) {
	candidates := CategorizedCandidates{
		"cleanser": {
			{Product: CatalogProduct{ProductID: "c1", Name: "Gel Cleanser"}, Score: 50},
		},
	}

	rec := ComposeFallback(candidates, nil, FilterCriteria{})

	require.Len(t, rec.MorningRoutine, 1)
	assert.Equal(t, "cleanser", rec.MorningRoutine[0].Category)
	assert.Equal(t, 1, rec.MorningRoutine[0].ApplicationOrder)
}

func TestComposeFallbackNeverEmptyCopy(t *testing.T) {
	rec := ComposeFallback(fallbackCandidates(), &UserProfile{SkinType: "combination"}, FilterCriteria{})

	assert.NotEmpty(t, rec.Philosophy)
	assert.Contains(t, rec.Philosophy, "combination")
	assert.NotEmpty(t, rec.ExpectedTimeline)

	for _, item := range append(rec.MorningRoutine, rec.EveningRoutine...) {
		assert.NotEmpty(t, item.Rationale, item.ProductID)
		assert.NotEmpty(t, item.UsageInstructions, item.ProductID)
	}
}
