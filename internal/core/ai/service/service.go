package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"skincare-advisor/internal/core/ai/cache"
	openrouter "skincare-advisor/internal/core/service"
	"skincare-advisor/internal/infrastructure/config"
	"skincare-advisor/internal/pkg/common"
)

// Service fronts the generative-model provider with caching and a
// coarse request-rate guard. It is the single external I/O dependency
// of the recommendation pipeline.
type Service struct {
	config       *config.Config
	openRouter   *openrouter.OpenRouterService
	cacheManager *cache.CacheManager
	mu           sync.Mutex
	lastRequest  time.Time
}

// NewService creates the AI service
func NewService(cfg *config.Config, cacheManager *cache.CacheManager) (*Service, error) {
	return &Service{
		config:       cfg,
		openRouter:   openrouter.NewOpenRouterService(cfg),
		cacheManager: cacheManager,
	}, nil
}

// ProcessRequest sends a prompt through cache then provider
func (s *Service) ProcessRequest(ctx context.Context, prompt string) (string, error) {
	if err := s.checkRequestRate(); err != nil {
		return "", err
	}

	// normalize whitespace so equal prompts share a cache key
	prompt = strings.TrimSpace(prompt)
	prompt = strings.Join(strings.Fields(prompt), " ")

	if s.config.Cache.Enabled && s.cacheManager != nil {
		if val, err := s.cacheManager.Get(ctx, prompt); err == nil && val != "" {
			return val, nil
		}
	}

	content, err := s.openRouter.GenerateResponse(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrGenerativeCall, err)
	}

	if s.config.Cache.Enabled && s.cacheManager != nil {
		_ = s.cacheManager.Set(ctx, prompt, content)
	}

	return content, nil
}

func (s *Service) checkRequestRate() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if s.config.RateLimit.Enabled && now.Sub(s.lastRequest) < s.config.RateLimit.Window {
		return errors.New("request rate limit exceeded")
	}

	s.lastRequest = now
	return nil
}
