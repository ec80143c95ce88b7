package run

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"skincare-advisor/internal/infrastructure/config"

	"github.com/go-redis/redis/v8"
)

// Status is the externally visible progress of one recommendation run
type Status struct {
	RunID     string    `json:"run_id"`
	Stage     string    `json:"stage"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store tracks run progress in an external keyed store so the pipeline
// itself owns no global state. Falls back to an in-process map when
// redis is disabled, which keeps single-node deployments working.
type Store struct {
	client *redis.Client
	ttl    time.Duration

	mu    sync.RWMutex
	local map[string]Status
}

// NewStore creates the status store; connects to redis when enabled
func NewStore(cfg *config.RedisConfig) (*Store, error) {
	s := &Store{
		ttl:   cfg.StatusTTL,
		local: make(map[string]Status),
	}

	if !cfg.Enabled {
		return s, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	s.client = client
	return s, nil
}

// SetStage records the current stage of a run
func (s *Store) SetStage(ctx context.Context, runID, stage string) error {
	status := Status{
		RunID:     runID,
		Stage:     stage,
		UpdatedAt: time.Now(),
	}

	if s.client == nil {
		s.mu.Lock()
		s.local[runID] = status
		s.mu.Unlock()
		return nil
	}

	data, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("failed to marshal run status: %w", err)
	}
	return s.client.Set(ctx, s.key(runID), data, s.ttl).Err()
}

// GetStatus returns the recorded status for a run
func (s *Store) GetStatus(ctx context.Context, runID string) (*Status, error) {
	if s.client == nil {
		s.mu.RLock()
		status, ok := s.local[runID]
		s.mu.RUnlock()
		if !ok {
			return nil, fmt.Errorf("run %s not found", runID)
		}
		return &status, nil
	}

	data, err := s.client.Get(ctx, s.key(runID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("run %s not found", runID)
		}
		return nil, fmt.Errorf("failed to read run status: %w", err)
	}

	var status Status
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, fmt.Errorf("failed to unmarshal run status: %w", err)
	}
	return &status, nil
}

// Close releases the redis connection
func (s *Store) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

func (s *Store) key(runID string) string {
	return "run:status:" + runID
}
