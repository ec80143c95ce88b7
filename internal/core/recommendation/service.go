package recommendation

import (
	"context"
	"fmt"
	"sort"
	"time"

	"skincare-advisor/internal/infrastructure/config"
	"skincare-advisor/internal/pkg/common"

	"go.uber.org/zap"
)

// run stages reported to the status store
const (
	StageExtractingCriteria = "extracting_criteria"
	StageScoring            = "scoring"
	StageGrouping           = "grouping"
	StageBuildingPrompt     = "building_prompt"
	StageAwaitingModel      = "awaiting_model"
	StageValidating         = "validating"
	StageFallback           = "fallback"
	StageDone               = "done"
)

// Service sequences the hybrid recommendation pipeline. Every path
// terminates with a usable Recommendation; failures along the way feed
// logging and the fallback composer, never the caller. Only a rejected
// persistence write propagates.
type Service struct {
	cfg     config.RecommendationConfig
	catalog CatalogStore
	gen     Generator
	sink    Sink
	status  StatusReporter
	scorer  *Scorer
}

// NewService creates the pipeline orchestrator. status may be nil when
// the caller does not track run progress.
func NewService(cfg config.RecommendationConfig, catalog CatalogStore, gen Generator, sink Sink, status StatusReporter) *Service {
	return &Service{
		cfg:     cfg,
		catalog: catalog,
		gen:     gen,
		sink:    sink,
		status:  status,
		scorer:  NewScorer(cfg),
	}
}

// Recommend executes one full recommendation run for a user
func (s *Service) Recommend(ctx context.Context, runID string, profile *UserProfile, analysis *Analysis) (*Recommendation, error) {
	started := time.Now()

	s.reportStage(ctx, runID, StageExtractingCriteria)
	criteria := ExtractCriteria(analysis, profile)

	products, err := s.catalog.QueryProducts(ctx, CatalogQuery{
		MinPrice: criteria.BudgetMin * (1 - s.cfg.BudgetWidenPct),
		MaxPrice: criteria.BudgetMax * (1 + s.cfg.BudgetWidenPct),
		Limit:    s.cfg.CatalogPageSize,
	})
	if err != nil {
		// an unreadable catalog leaves nothing to recommend from; widen
		// to an unbounded page before giving the store up entirely
		common.LogWarn("bounded catalog query failed, retrying unbounded",
			zap.String("run_id", runID), zap.Error(err))
		products, err = s.catalog.QueryProducts(ctx, CatalogQuery{Limit: s.cfg.CatalogPageSize})
		if err != nil {
			return nil, fmt.Errorf("catalog unavailable: %w", err)
		}
	}
	if len(products) == 0 {
		// nothing to score and nothing for the fallback composer either
		return nil, fmt.Errorf("%w: catalog returned no products", common.ErrCatalogEmpty)
	}

	s.reportStage(ctx, runID, StageScoring)
	scored := s.scorer.ScoreAll(products, criteria, s.cfg.StrictAvoid)

	s.reportStage(ctx, runID, StageGrouping)
	grouped := GroupByCategory(scored, s.cfg.MaxPerCategory)

	// relax once: if strict avoidance emptied every essential category,
	// rescore leniently before resorting to fallback
	if s.cfg.StrictAvoid && !hasEssential(grouped) {
		common.LogWarn("strict filtering left no essential candidates, relaxing to lenient avoidance",
			zap.String("run_id", runID))
		scored = s.scorer.ScoreAll(products, criteria, false)
		grouped = GroupByCategory(scored, s.cfg.MaxPerCategory)
	}

	var rec *Recommendation
	if !hasEssential(grouped) {
		s.reportStage(ctx, runID, StageFallback)
		common.LogWarn("no essential category populated, composing fallback routine",
			zap.String("run_id", runID))
		rec = ComposeFallback(grouped, profile, criteria)
	} else {
		rec = s.selectWithModel(ctx, runID, grouped, profile, criteria)
	}

	s.reportStage(ctx, runID, StageDone)

	if s.sink != nil {
		summary := BuildSummary(rec, criteria)
		if err := s.sink.SaveRecommendation(ctx, profile.UserID, rec, summary); err != nil {
			// the one hard failure class: a computed-but-unsaved
			// recommendation must not be silently swallowed
			return nil, fmt.Errorf("%w: %v", common.ErrPersistence, err)
		}
	}

	common.LogInfo("recommendation run completed",
		zap.String("run_id", runID),
		zap.Int("morning_items", len(rec.MorningRoutine)),
		zap.Int("evening_items", len(rec.EveningRoutine)),
		zap.Duration("elapsed", time.Since(started)),
	)
	return rec, nil
}

// selectWithModel runs the generative selection leg, falling back per
// routine when validation leaves a routine under the minimum usable size
func (s *Service) selectWithModel(ctx context.Context, runID string, grouped CategorizedCandidates, profile *UserProfile, criteria FilterCriteria) *Recommendation {
	s.reportStage(ctx, runID, StageBuildingPrompt)
	payload := BuildSelectionPrompt(grouped, profile, criteria)

	s.reportStage(ctx, runID, StageAwaitingModel)
	modelCtx, cancel := context.WithTimeout(ctx, s.cfg.ModelTimeout)
	defer cancel()

	started := time.Now()
	rawOutput, err := s.gen.ProcessRequest(modelCtx, payload.Prompt)
	common.LogAICall(payload.Prompt, time.Since(started), err, runID)
	if err != nil {
		// timeout and transport failures share the validation-failure
		// recovery path
		s.reportStage(ctx, runID, StageFallback)
		common.LogWarn("generative call failed, composing fallback routine",
			zap.String("run_id", runID), zap.Error(err))
		return ComposeFallback(grouped, profile, criteria)
	}

	s.reportStage(ctx, runID, StageValidating)
	result, err := ValidateSelection(rawOutput, payload)
	if err != nil {
		s.reportStage(ctx, runID, StageFallback)
		common.LogWarn("model output failed validation, composing fallback routine",
			zap.String("run_id", runID), zap.Error(err))
		return ComposeFallback(grouped, profile, criteria)
	}

	rec := result.Recommendation

	// per-routine degradation: substitute only the underfilled routine
	fallback := ComposeFallback(grouped, profile, criteria)
	if len(rec.MorningRoutine) < s.cfg.MinRoutineSize {
		common.LogWarn("morning routine under minimum size after validation, substituting fallback",
			zap.String("run_id", runID),
			zap.Int("size", len(rec.MorningRoutine)),
		)
		rec.MorningRoutine = fallback.MorningRoutine
	}
	if len(rec.EveningRoutine) < s.cfg.MinRoutineSize {
		common.LogWarn("evening routine under minimum size after validation, substituting fallback",
			zap.String("run_id", runID),
			zap.Int("size", len(rec.EveningRoutine)),
		)
		rec.EveningRoutine = fallback.EveningRoutine
	}
	if rec.Philosophy == "" {
		rec.Philosophy = fallback.Philosophy
	}
	if rec.ExpectedTimeline == "" {
		rec.ExpectedTimeline = fallback.ExpectedTimeline
	}

	return rec
}

// BuildSummary derives the sink's summary fields from a finished
// recommendation
func BuildSummary(rec *Recommendation, criteria FilterCriteria) *Summary {
	ingredientSet := make(map[string]struct{})
	typeSet := make(map[string]struct{})
	for _, item := range append(append([]RoutineItem{}, rec.MorningRoutine...), rec.EveningRoutine...) {
		for _, ingredient := range item.KeyIngredients {
			ingredientSet[ingredient] = struct{}{}
		}
		typeSet[item.Category] = struct{}{}
	}

	summary := &Summary{
		AvoidedIngredients: criteria.AvoidIngredients,
		ConcernsAddressed:  criteria.PrimaryConcerns,
	}
	for ingredient := range ingredientSet {
		summary.RecommendedIngredients = append(summary.RecommendedIngredients, ingredient)
	}
	for category := range typeSet {
		summary.ProductTypesUsed = append(summary.ProductTypesUsed, category)
	}
	sort.Strings(summary.RecommendedIngredients)
	sort.Strings(summary.ProductTypesUsed)
	return summary
}

func hasEssential(grouped CategorizedCandidates) bool {
	for _, category := range essentialCategories {
		if len(grouped[category]) > 0 {
			return true
		}
	}
	return false
}

func (s *Service) reportStage(ctx context.Context, runID, stage string) {
	if s.status == nil || runID == "" {
		return
	}
	if err := s.status.SetStage(ctx, runID, stage); err != nil {
		common.LogDebug("failed to report run stage",
			zap.String("run_id", runID),
			zap.String("stage", stage),
			zap.Error(err),
		)
	}
}
