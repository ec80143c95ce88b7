package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"skincare-advisor/internal/core/recommendation"
)

// RecommendationStore persists finished recommendations. The write is
// the only pipeline stage allowed to fail hard: a computed-but-unsaved
// recommendation is not useful state.
type RecommendationStore struct {
	db *sql.DB
}

var _ recommendation.Sink = (*RecommendationStore)(nil)

// NewRecommendationStore creates the persistence sink
func NewRecommendationStore(db *sql.DB) *RecommendationStore {
	return &RecommendationStore{db: db}
}

// SaveRecommendation stores the finished recommendation plus derived
// summary fields
func (s *RecommendationStore) SaveRecommendation(ctx context.Context, userID string, rec *recommendation.Recommendation, summary *recommendation.Summary) error {
	recJSON, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal recommendation: %w", err)
	}
	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}

	const q = `
		INSERT INTO recommendations (user_id, routine, summary, created_at)
		VALUES ($1, $2, $3, NOW())`

	if _, err := s.db.ExecContext(ctx, q, userID, recJSON, summaryJSON); err != nil {
		return fmt.Errorf("failed to insert recommendation: %w", err)
	}
	return nil
}
