package recommendation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scoredFixture() []ScoredProduct {
	return []ScoredProduct{
		{Product: CatalogProduct{ProductID: "c1", Name: "Foaming Cleanser"}, Score: 120},
		{Product: CatalogProduct{ProductID: "c2", Name: "Gel Cleanser"}, Score: 80},
		{Product: CatalogProduct{ProductID: "s1", Name: "Vitamin C Serum"}, Score: 150},
		{Product: CatalogProduct{ProductID: "m1", Name: "Daily Moisturizer"}, Score: 90},
		{Product: CatalogProduct{ProductID: "sun1", Name: "SPF 50 Fluid"}, Score: 70},
		{Product: CatalogProduct{ProductID: "x1", Name: "Spot Treatment Gel", CategoryPath: "skincare/treatments"}, Score: 40},
		{Product: CatalogProduct{ProductID: "z1", Name: "Zero Score Toner"}, Score: 0},
	}
}

func TestGroupByCategory(t *testing.T) {
	grouped := GroupByCategory(scoredFixture(), 8)

	require.Len(t, grouped["cleanser"], 2)
	assert.Equal(t, "c1", grouped["cleanser"][0].Product.ProductID)
	assert.Equal(t, "s1", grouped["serum"][0].Product.ProductID)
	assert.Equal(t, "m1", grouped["moisturizer"][0].Product.ProductID)
	assert.Equal(t, "sun1", grouped["sunscreen"][0].Product.ProductID)
	assert.Equal(t, "x1", grouped["treatment"][0].Product.ProductID)

	// zero-score products never participate
	for _, candidates := range grouped {
		for _, candidate := range candidates {
			assert.NotEqual(t, "z1", candidate.Product.ProductID)
		}
	}
}

func TestGroupByCategoryCap(t *testing.T) {
	scored := []ScoredProduct{
		{Product: CatalogProduct{ProductID: "c1", Name: "Cleanser One"}, Score: 50},
		{Product: CatalogProduct{ProductID: "c2", Name: "Cleanser Two"}, Score: 90},
		{Product: CatalogProduct{ProductID: "c3", Name: "Cleanser Three"}, Score: 70},
	}

	grouped := GroupByCategory(scored, 2)

	require.Len(t, grouped["cleanser"], 2)
	// cap keeps the highest scorers
	assert.Equal(t, "c2", grouped["cleanser"][0].Product.ProductID)
	assert.Equal(t, "c3", grouped["cleanser"][1].Product.ProductID)
}

func TestGroupByCategoryIdempotent(t *testing.T) {
	first := GroupByCategory(scoredFixture(), 3)
	second := GroupByCategory(scoredFixture(), 3)

	assert.Equal(t, first, second)
}

func TestGroupByCategoryEssentialBackfill(t *testing.T) {
	// the only moisturizer-ish product scored at zero, so grouping
	// skips it; backfill must still populate the essential category
	scored := []ScoredProduct{
		{Product: CatalogProduct{ProductID: "c1", Name: "Foaming Cleanser"}, Score: 60},
		{Product: CatalogProduct{ProductID: "s1", Name: "Niacinamide Serum"}, Score: 50},
		{Product: CatalogProduct{ProductID: "m1", Name: "Rich Moisturizing Cream"}, Score: 0, MatchReasons: []string{"valid product"}},
	}

	grouped := GroupByCategory(scored, 8)

	require.Len(t, grouped["moisturizer"], 1)
	assert.Equal(t, "m1", grouped["moisturizer"][0].Product.ProductID)
}

func TestGroupByCategoryBackfillSkipsDisqualified(t *testing.T) {
	scored := []ScoredProduct{
		{Product: CatalogProduct{ProductID: "c1", Name: "Foaming Cleanser"}, Score: 60},
		{
			Product:      CatalogProduct{ProductID: "m1", Name: "Fragrant Moisturizer"},
			Score:        0,
			MatchReasons: []string{"contains fragrance, disqualified"},
		},
	}

	grouped := GroupByCategory(scored, 8)

	assert.Empty(t, grouped["moisturizer"])
}

func TestCategorizeProduct(t *testing.T) {
	tests := []struct {
		name     string
		product  CatalogProduct
		category string
	}{
		{"by name", CatalogProduct{Name: "Hydrating Toner"}, "toner"},
		{"by category path", CatalogProduct{Name: "Daily Defense", CategoryPath: "skincare/sunscreen"}, "sunscreen"},
		{"cleanser beats oil keyword order", CatalogProduct{Name: "Cleansing Oil"}, "cleanser"},
		{"eye care", CatalogProduct{Name: "Caffeine Eye Gel"}, "eye care"},
		{"default", CatalogProduct{Name: "Mystery Active"}, "treatment"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.category, CategorizeProduct(tt.product))
		})
	}
}
