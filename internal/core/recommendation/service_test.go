package recommendation

import (
	"context"
	"errors"
	"testing"

	"skincare-advisor/internal/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCatalog struct {
	products   []CatalogProduct
	failFirst  bool
	failAlways bool
	queries    []CatalogQuery
}

func (f *fakeCatalog) QueryProducts(_ context.Context, query CatalogQuery) ([]CatalogProduct, error) {
	f.queries = append(f.queries, query)
	if f.failAlways || (f.failFirst && len(f.queries) == 1) {
		return nil, errors.New("connection refused")
	}
	return f.products, nil
}

type fakeGenerator struct {
	output string
	err    error
	called bool
	prompt string
}

func (f *fakeGenerator) ProcessRequest(_ context.Context, prompt string) (string, error) {
	f.called = true
	f.prompt = prompt
	return f.output, f.err
}

type fakeSink struct {
	err     error
	userID  string
	rec     *Recommendation
	summary *Summary
}

func (f *fakeSink) SaveRecommendation(_ context.Context, userID string, rec *Recommendation, summary *Summary) error {
	f.userID = userID
	f.rec = rec
	f.summary = summary
	return f.err
}

type fakeReporter struct {
	stages []string
}

func (f *fakeReporter) SetStage(_ context.Context, _, stage string) error {
	f.stages = append(f.stages, stage)
	return nil
}

func pipelineProducts() []CatalogProduct {
	return []CatalogProduct{
		{ProductID: "c1", Name: "Clarifying Cleanser", Brand: "Labo", PriceAmount: 24, RawIngredients: []any{"salicylic acid", "glycerin"}},
		{ProductID: "s1", Name: "Clear Skin Serum", Brand: "Derma", PriceAmount: 38, RawIngredients: []any{"salicylic acid", "niacinamide"}},
		{ProductID: "m1", Name: "Light Moisturizer", Brand: "Derma", PriceAmount: 30, RawIngredients: []any{"ceramides", "glycerin"}},
		{ProductID: "sp1", Name: "Daily Sunscreen SPF 50", Brand: "Sol", PriceAmount: 28, RawIngredients: []any{"zinc oxide"}},
	}
}

func pipelineProfile() *UserProfile {
	return &UserProfile{
		UserID:          "user-42",
		SkinType:        "oily",
		PrimaryConcerns: []string{"acne"},
		Budget:          "mid_range",
	}
}

func pipelineAnalysis() *Analysis {
	return &Analysis{
		IngredientRecommendations: IngredientRecommendations{
			MustHave: []string{"salicylic acid"},
			Avoid:    []string{"fragrance"},
		},
	}
}

// expectedFallback reproduces the deterministic recovery output for the
// given inputs so tests can assert byte-for-byte substitution
func expectedFallback(products []CatalogProduct, profile *UserProfile, analysis *Analysis, strict bool) *Recommendation {
	cfg := testRecConfig()
	criteria := ExtractCriteria(analysis, profile)
	scored := NewScorer(cfg).ScoreAll(products, criteria, strict)
	grouped := GroupByCategory(scored, cfg.MaxPerCategory)
	return ComposeFallback(grouped, profile, criteria)
}

func TestRecommendHappyPath(t *testing.T) {
	catalog := &fakeCatalog{products: pipelineProducts()}
	gen := &fakeGenerator{output: `{
		"morning_routine": [
			{"product_id": "c1", "application_order": 1, "rationale": "clears pores", "usage_instructions": "morning wash"},
			{"product_id": "sp1", "application_order": 2, "rationale": "daily protection", "usage_instructions": "last step"}
		],
		"evening_routine": [
			{"product_id": "c1", "application_order": 1, "rationale": "clears pores", "usage_instructions": "evening wash"},
			{"product_id": "s1", "application_order": 2, "rationale": "targets breakouts", "usage_instructions": "after cleansing"}
		],
		"philosophy": "treat and protect",
		"expected_timeline": "6 weeks"
	}`}
	sink := &fakeSink{}
	reporter := &fakeReporter{}

	svc := NewService(testRecConfig(), catalog, gen, sink, reporter)
	rec, err := svc.Recommend(context.Background(), "run-1", pipelineProfile(), pipelineAnalysis())

	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.True(t, gen.called)

	// every selected id must exist in the catalog, with catalog-backed fields
	known := map[string]CatalogProduct{}
	for _, p := range pipelineProducts() {
		known[p.ProductID] = p
	}
	for _, item := range append(append([]RoutineItem{}, rec.MorningRoutine...), rec.EveningRoutine...) {
		product, ok := known[item.ProductID]
		require.True(t, ok, "unknown product id %s", item.ProductID)
		assert.Equal(t, product.Name, item.ProductName)
		assert.Equal(t, product.Brand, item.Brand)
		assert.Equal(t, product.PriceAmount, item.Price)
	}

	assert.Equal(t, "treat and protect", rec.Philosophy)

	// sink observed the finished run
	assert.Equal(t, "user-42", sink.userID)
	require.NotNil(t, sink.summary)
	assert.Contains(t, sink.summary.ProductTypesUsed, "cleanser")
	assert.Equal(t, []string{"fragrance"}, sink.summary.AvoidedIngredients)

	// stage progression ends in done
	require.NotEmpty(t, reporter.stages)
	assert.Equal(t, StageExtractingCriteria, reporter.stages[0])
	assert.Contains(t, reporter.stages, StageAwaitingModel)
	assert.Contains(t, reporter.stages, StageValidating)
	assert.Equal(t, StageDone, reporter.stages[len(reporter.stages)-1])
	assert.NotContains(t, reporter.stages, StageFallback)

	// the bounded query widened the budget tier by the configured margin
	require.Len(t, catalog.queries, 1)
	assert.InDelta(t, 16.0, catalog.queries[0].MinPrice, 0.001)
	assert.InDelta(t, 180.0, catalog.queries[0].MaxPrice, 0.001)
}

func TestRecommendGenerativeFailureFallsBack(t *testing.T) {
	catalog := &fakeCatalog{products: pipelineProducts()}
	gen := &fakeGenerator{err: context.DeadlineExceeded}
	reporter := &fakeReporter{}

	svc := NewService(testRecConfig(), catalog, gen, &fakeSink{}, reporter)
	rec, err := svc.Recommend(context.Background(), "run-2", pipelineProfile(), pipelineAnalysis())

	require.NoError(t, err)
	assert.Equal(t, expectedFallback(pipelineProducts(), pipelineProfile(), pipelineAnalysis(), true), rec)
	assert.Contains(t, reporter.stages, StageFallback)
	assert.Equal(t, StageDone, reporter.stages[len(reporter.stages)-1])
}

func TestRecommendUnparseableOutputFallsBack(t *testing.T) {
	catalog := &fakeCatalog{products: pipelineProducts()}
	gen := &fakeGenerator{output: "I recommend drinking more water."}

	svc := NewService(testRecConfig(), catalog, gen, &fakeSink{}, nil)
	rec, err := svc.Recommend(context.Background(), "run-3", pipelineProfile(), pipelineAnalysis())

	require.NoError(t, err)
	assert.Equal(t, expectedFallback(pipelineProducts(), pipelineProfile(), pipelineAnalysis(), true), rec)
}

func TestRecommendUnderfilledRoutineSubstitutedPerRoutine(t *testing.T) {
	catalog := &fakeCatalog{products: pipelineProducts()}
	// morning holds a single item, below the minimum of two; evening is fine
	gen := &fakeGenerator{output: `{
		"morning_routine": [
			{"product_id": "c1", "application_order": 1, "rationale": "clears pores", "usage_instructions": "wash"}
		],
		"evening_routine": [
			{"product_id": "c1", "application_order": 1, "rationale": "clears pores", "usage_instructions": "wash"},
			{"product_id": "s1", "application_order": 2, "rationale": "targets breakouts", "usage_instructions": "apply"}
		],
		"philosophy": "model philosophy",
		"expected_timeline": "6 weeks"
	}`}

	svc := NewService(testRecConfig(), catalog, gen, &fakeSink{}, nil)
	rec, err := svc.Recommend(context.Background(), "run-4", pipelineProfile(), pipelineAnalysis())

	require.NoError(t, err)
	fallback := expectedFallback(pipelineProducts(), pipelineProfile(), pipelineAnalysis(), true)
	assert.Equal(t, fallback.MorningRoutine, rec.MorningRoutine)

	// evening stays as the model chose it
	require.Len(t, rec.EveningRoutine, 2)
	assert.Equal(t, "c1", rec.EveningRoutine[0].ProductID)
	assert.Equal(t, "s1", rec.EveningRoutine[1].ProductID)
	assert.Equal(t, "model philosophy", rec.Philosophy)
}

func TestRecommendRelaxesStrictAvoidanceOnce(t *testing.T) {
	// every product carries the avoided ingredient, so the strict pass
	// disqualifies the whole catalog
	products := []CatalogProduct{
		{ProductID: "c1", Name: "Scented Cleanser", Brand: "Labo", PriceAmount: 24, RawIngredients: []any{"salicylic acid", "fragrance"}},
		{ProductID: "s1", Name: "Scented Serum", Brand: "Derma", PriceAmount: 38, RawIngredients: []any{"salicylic acid", "fragrance"}},
		{ProductID: "m1", Name: "Scented Moisturizer", Brand: "Derma", PriceAmount: 30, RawIngredients: []any{"glycerin", "salicylic acid", "fragrance"}},
	}
	catalog := &fakeCatalog{products: products}
	gen := &fakeGenerator{err: errors.New("unreachable model")}

	svc := NewService(testRecConfig(), catalog, gen, &fakeSink{}, nil)
	rec, err := svc.Recommend(context.Background(), "run-5", pipelineProfile(), pipelineAnalysis())

	require.NoError(t, err)
	// lenient rescoring keeps the catalog usable, so the fallback routine
	// is built from real candidates instead of coming back empty
	assert.True(t, gen.called)
	assert.NotEmpty(t, rec.MorningRoutine)
	assert.Equal(t, expectedFallback(products, pipelineProfile(), pipelineAnalysis(), false), rec)
}

func TestRecommendPersistenceErrorPropagates(t *testing.T) {
	catalog := &fakeCatalog{products: pipelineProducts()}
	gen := &fakeGenerator{err: errors.New("model down")}
	sink := &fakeSink{err: errors.New("insert rejected")}

	svc := NewService(testRecConfig(), catalog, gen, sink, nil)
	rec, err := svc.Recommend(context.Background(), "run-6", pipelineProfile(), pipelineAnalysis())

	require.Error(t, err)
	assert.Nil(t, rec)
	assert.ErrorIs(t, err, common.ErrPersistence)
}

func TestRecommendCatalogRetryThenSuccess(t *testing.T) {
	catalog := &fakeCatalog{products: pipelineProducts(), failFirst: true}
	gen := &fakeGenerator{err: errors.New("model down")}

	svc := NewService(testRecConfig(), catalog, gen, &fakeSink{}, nil)
	rec, err := svc.Recommend(context.Background(), "run-7", pipelineProfile(), pipelineAnalysis())

	require.NoError(t, err)
	require.Len(t, catalog.queries, 2)
	// retry drops the price bounds
	assert.Zero(t, catalog.queries[1].MinPrice)
	assert.Zero(t, catalog.queries[1].MaxPrice)
	assert.NotEmpty(t, rec.MorningRoutine)
}

func TestRecommendEmptyCatalog(t *testing.T) {
	catalog := &fakeCatalog{}

	svc := NewService(testRecConfig(), catalog, &fakeGenerator{}, &fakeSink{}, nil)
	rec, err := svc.Recommend(context.Background(), "run-9", pipelineProfile(), pipelineAnalysis())

	require.Error(t, err)
	assert.Nil(t, rec)
	assert.ErrorIs(t, err, common.ErrCatalogEmpty)
}

func TestRecommendCatalogUnavailable(t *testing.T) {
	catalog := &fakeCatalog{failAlways: true}

	svc := NewService(testRecConfig(), catalog, &fakeGenerator{}, &fakeSink{}, nil)
	rec, err := svc.Recommend(context.Background(), "run-8", pipelineProfile(), pipelineAnalysis())

	require.Error(t, err)
	assert.Nil(t, rec)
	assert.Len(t, catalog.queries, 2)
}

func TestBuildSummaryDerivedFields(t *testing.T) {
	rec := &Recommendation{
		MorningRoutine: []RoutineItem{
			{Category: "cleanser", KeyIngredients: []string{"salicylic acid"}},
			{Category: "sunscreen", KeyIngredients: []string{"zinc oxide"}},
		},
		EveningRoutine: []RoutineItem{
			{Category: "cleanser", KeyIngredients: []string{"salicylic acid", "glycerin"}},
		},
	}
	criteria := FilterCriteria{
		AvoidIngredients: []string{"fragrance"},
		PrimaryConcerns:  []string{"acne"},
	}

	summary := BuildSummary(rec, criteria)

	assert.Equal(t, []string{"glycerin", "salicylic acid", "zinc oxide"}, summary.RecommendedIngredients)
	assert.Equal(t, []string{"cleanser", "sunscreen"}, summary.ProductTypesUsed)
	assert.Equal(t, []string{"fragrance"}, summary.AvoidedIngredients)
	assert.Equal(t, []string{"acne"}, summary.ConcernsAddressed)
}
