// Package llm wraps the external generation capability: free-text generation
// and JSON-constrained generation for structured outputs.
package llm

import (
	"context"
	"time"
)

// Service defines the interface for generation operations
type Service interface {
	// Generate produces free text for the prompt
	Generate(ctx context.Context, prompt string) (string, error)

	// GenerateJSON constrains the model to JSON output and decodes it into
	// out. A malformed response is an error; callers decide whether that is
	// retryable (for schema-constrained profile extraction it is not).
	GenerateJSON(ctx context.Context, prompt string, out interface{}) error
}

// Config represents generation service configuration
type Config struct {
	Provider string        `json:"provider"` // openai, azure, anthropic, ollama
	Model    string        `json:"model"`
	APIKey   string        `json:"api_key,omitempty"`
	BaseURL  string        `json:"base_url,omitempty"`
	Timeout  time.Duration `json:"timeout,omitempty"`
}
