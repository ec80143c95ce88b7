package recommendation

import (
	"context"
)

// UserProfile is the stated profile driving one recommendation run
type UserProfile struct {
	UserID          string   `json:"user_id"`
	SkinType        string   `json:"skin_type"`
	PrimaryConcerns []string `json:"primary_concerns"`
	Allergies       []string `json:"allergies,omitempty"`
	Budget          string   `json:"budget,omitempty"` // budget tier label, e.g. "budget", "mid_range", "luxury"
}

// RoutineStep is one step of the upstream analysis routine structure
type RoutineStep struct {
	ProductType string `json:"product_type"`
	Purpose     string `json:"purpose,omitempty"`
}

// RoutineStructure holds the morning/evening step plans from the
// upstream needs analysis
type RoutineStructure struct {
	Morning struct {
		Steps []RoutineStep `json:"steps"`
	} `json:"morning"`
	Evening struct {
		Steps []RoutineStep `json:"steps"`
	} `json:"evening"`
}

// IngredientRecommendations is the upstream analysis ingredient advice
type IngredientRecommendations struct {
	MustHave   []string `json:"must_have"`
	Beneficial []string `json:"beneficial"`
	Avoid      []string `json:"avoid"`
}

// Analysis is the upstream needs-analysis input. Missing or malformed
// fields degrade to empty lists, they never abort a run.
type Analysis struct {
	IngredientRecommendations IngredientRecommendations `json:"ingredient_recommendations"`
	RoutineStructure          RoutineStructure          `json:"routine_structure"`
}

// FilterCriteria is the structured filter for one run; immutable once built
type FilterCriteria struct {
	MustHaveIngredients   []string
	BeneficialIngredients []string
	AvoidIngredients      []string
	PrimaryConcerns       []string
	SkinType              string
	BudgetMin             float64
	BudgetMax             float64
	RequiredProductTypes  []string
}

// CatalogProduct is a read-only catalog record. ProductID is the
// authoritative identity and is never regenerated by this pipeline.
// RawIngredients/RawBenefits keep whatever shape the catalog stored;
// NormalizeField is the single boundary that flattens them.
type CatalogProduct struct {
	ProductID      string  `json:"product_id"`
	Name           string  `json:"name"`
	Brand          string  `json:"brand"`
	PriceAmount    float64 `json:"price_amount"`
	CategoryPath   string  `json:"category_path"`
	RawIngredients any     `json:"ingredients"`
	RawBenefits    any     `json:"benefits"`
	RatingAverage  float64 `json:"rating_average"`
	HasRating      bool    `json:"-"`
}

// ScoredProduct is a catalog product plus its per-run match score.
// Created fresh each scoring run, never persisted.
type ScoredProduct struct {
	Product      CatalogProduct
	Score        int
	MatchReasons []string
}

// CategorizedCandidates maps routine-step category to its scored
// candidates, highest score first, capped per category
type CategorizedCandidates map[string][]ScoredProduct

// RoutineItem is one product slot in a finished routine
type RoutineItem struct {
	ProductID            string   `json:"product_id"`
	ProductName          string   `json:"product_name"`
	Brand                string   `json:"brand"`
	Category             string   `json:"category"`
	Price                float64  `json:"price"`
	ApplicationOrder     int      `json:"application_order"`
	KeyIngredients       []string `json:"key_ingredients,omitempty"`
	Rationale            string   `json:"rationale"`
	UsageInstructions    string   `json:"usage_instructions"`
	ExpectedResult       string   `json:"expected_result,omitempty"`
	ExpectedTimelineText string   `json:"expected_timeline,omitempty"`
}

// Recommendation is the final output of one run. Every RoutineItem's
// ProductID is guaranteed to exist in the candidate set the selection
// step was shown.
type Recommendation struct {
	MorningRoutine   []RoutineItem `json:"morning_routine"`
	EveningRoutine   []RoutineItem `json:"evening_routine"`
	Philosophy       string        `json:"philosophy"`
	ExpectedTimeline string        `json:"expected_timeline"`
	Tips             []string      `json:"tips,omitempty"`
}

// Summary carries the derived fields handed to the persistence sink
type Summary struct {
	RecommendedIngredients []string `json:"recommended_ingredients"`
	AvoidedIngredients     []string `json:"avoided_ingredients"`
	ConcernsAddressed      []string `json:"concerns_addressed"`
	ProductTypesUsed       []string `json:"product_types_used"`
}

// CatalogQuery bounds one catalog snapshot fetch
type CatalogQuery struct {
	Category string
	MinPrice float64
	MaxPrice float64
	Limit    int
}

// CatalogStore is the external read-only product store
type CatalogStore interface {
	QueryProducts(ctx context.Context, query CatalogQuery) ([]CatalogProduct, error)
}

// Generator is the external generative selection service
type Generator interface {
	ProcessRequest(ctx context.Context, prompt string) (string, error)
}

// Sink is the external persistence collaborator. A rejected write is
// the only failure class the pipeline propagates to its caller.
type Sink interface {
	SaveRecommendation(ctx context.Context, userID string, rec *Recommendation, summary *Summary) error
}

// StatusReporter receives run stage transitions; implementations are
// owned by the caller, the pipeline only reports
type StatusReporter interface {
	SetStage(ctx context.Context, runID, stage string) error
}
