package driven

import "context"

// LLMService performs structured extraction requests against a language model.
// This is an optional service - when nil, AI extraction sources are skipped.
//
// Implementations include:
//   - Gemini generateContent (JSON response mode)
//   - Any OpenAI-compatible endpoint via langchaingo
type LLMService interface {
	// GenerateJSON sends a single prompt requesting JSON-only output and
	// returns the model's text. A response without the expected text field
	// returns a *domain.ExtractionError.
	GenerateJSON(ctx context.Context, prompt string) (string, error)

	// ModelName returns the name of the model being used.
	ModelName() string
}
