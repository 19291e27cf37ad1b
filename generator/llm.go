package generator

import "context"

// Prompt is one message pair sent to the LLM.
type Prompt struct {
	System string
	User   string
}

// LLMClient abstracts the generative-text service so implementations can be
// swapped or mocked. Implementations classify provider failures into
// *UpstreamError; they do not retry.
type LLMClient interface {
	Complete(ctx context.Context, prompt Prompt, maxTokens int64) (string, error)
}

// LLMSettings holds the provider configuration for concrete implementations.
type LLMSettings struct {
	Provider string
	Model    string
	APIKey   string
	BaseURL  string
}
