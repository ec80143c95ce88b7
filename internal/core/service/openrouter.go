package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"skincare-advisor/internal/infrastructure/config"

	"github.com/go-resty/resty/v2"
)

// OpenRouterService calls the OpenRouter chat-completions API
type OpenRouterService struct {
	config *config.Config
	client *resty.Client
}

// NewOpenRouterService creates the OpenRouter client
func NewOpenRouterService(cfg *config.Config) *OpenRouterService {
	client := resty.New().
		SetBaseURL("https://openrouter.ai/api/v1").
		SetTimeout(cfg.OpenRouter.Timeout).
		SetHeader("Authorization", fmt.Sprintf("Bearer %s", cfg.OpenRouter.APIKey)).
		SetHeader("HTTP-Referer", "https://skincare-advisor.app").
		SetHeader("X-Title", "Skincare Advisor")

	return &OpenRouterService{
		config: cfg,
		client: client,
	}
}

// GenerateResponse sends one prompt and returns the model's text reply.
// The response is requested as a JSON object so downstream validation
// gets structured output where the provider supports it.
func (s *OpenRouterService) GenerateResponse(ctx context.Context, prompt string) (string, error) {
	// collapse whitespace so identical requests hash to the same cache key
	simplePrompt := strings.TrimSpace(prompt)
	simplePrompt = strings.Join(strings.Fields(simplePrompt), " ")

	req := map[string]interface{}{
		"model": s.config.OpenRouter.Model,
		"messages": []map[string]interface{}{
			{
				"role":    "user",
				"content": simplePrompt,
			},
		},
		"max_tokens": s.config.OpenRouter.MaxTokens,
		"response_format": map[string]string{
			"type": "json_object",
		},
	}

	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(req).
		Post("/chat/completions")

	if err != nil {
		return "", fmt.Errorf("failed to send request to OpenRouter: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		return "", fmt.Errorf("OpenRouter API returned error: %s", resp.String())
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}

	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return "", fmt.Errorf("failed to parse OpenRouter response: %w", err)
	}

	if len(result.Choices) == 0 {
		return "", fmt.Errorf("no choices in OpenRouter response")
	}

	return result.Choices[0].Message.Content, nil
}
