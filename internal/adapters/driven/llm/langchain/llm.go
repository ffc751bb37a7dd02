// Package langchain provides an LLM service adapter for any
// OpenAI-compatible chat endpoint through langchaingo.
package langchain

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"

	"github.com/custodia-labs/intel-ingest/internal/core/domain"
	"github.com/custodia-labs/intel-ingest/internal/core/ports/driven"
)

// Ensure LLMService implements the interface.
var _ driven.LLMService = (*LLMService)(nil)

// Default configuration values.
const (
	DefaultBaseURL    = "https://api.openai.com/v1"
	DefaultLLMModel   = "gpt-4o-mini"
	DefaultLLMTimeout = 60 * time.Second
)

const systemPrompt = "You are a precise information extraction system. Reply with a single JSON object and nothing else."

// LLMConfig holds configuration for the OpenAI-compatible service.
type LLMConfig struct {
	// APIKey is the bearer token (required).
	APIKey string

	// BaseURL is the API base URL.
	BaseURL string

	// Model is the chat model name.
	Model string

	// Timeout bounds each request.
	Timeout time.Duration
}

// LLMService sends extraction prompts through langchaingo.
type LLMService struct {
	client  llms.Model
	model   string
	timeout time.Duration
}

// NewLLMService creates a new OpenAI-compatible LLM service.
func NewLLMService(cfg LLMConfig) (*LLMService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultLLMModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultLLMTimeout
	}

	client, err := openai.New(
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithToken(cfg.APIKey),
		openai.WithModel(cfg.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("openai: create client: %w", err)
	}

	return &LLMService{client: client, model: cfg.Model, timeout: cfg.Timeout}, nil
}

// ModelName returns the configured model.
func (s *LLMService) ModelName() string {
	return s.model
}

// GenerateJSON sends prompt in JSON mode and returns the first choice.
func (s *LLMService) GenerateJSON(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	content := []llms.MessageContent{
		{
			Role:  schema.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(systemPrompt)},
		},
		{
			Role:  schema.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart(prompt)},
		},
	}

	response, err := s.client.GenerateContent(ctx, content, llms.WithTemperature(0.0), llms.WithJSONMode())
	if err != nil {
		return "", fmt.Errorf("openai: generate: %w", err)
	}
	if len(response.Choices) == 0 {
		return "", &domain.ExtractionError{Origin: s.model, Reason: "no choices returned"}
	}

	text := strings.TrimSpace(response.Choices[0].Content)
	if text == "" {
		return "", &domain.ExtractionError{Origin: s.model, Reason: "empty response"}
	}
	return text, nil
}
