// Package embedding wraps the external embedding capability behind a small
// Provider interface. All vectors in one index must come from the same
// provider and model; the vector store records ModelID for that reason.
package embedding

import (
	"context"
	"time"

	"github.com/queryscout/queryscout/internal/errors"
	"github.com/queryscout/queryscout/internal/provider"
)

// Provider generates embedding vectors for text
type Provider interface {
	// Embed generates an embedding for the given text
	Embed(ctx context.Context, text string) ([]float32, error)

	// ModelID identifies the provider and model that produced the vectors,
	// e.g. "openai/text-embedding-3-small"
	ModelID() string
}

// Config represents embedding provider configuration
type Config struct {
	Provider string        `json:"provider"`
	Model    string        `json:"model"`
	APIKey   string        `json:"api_key,omitempty"`
	BaseURL  string        `json:"base_url,omitempty"`
	Timeout  time.Duration `json:"timeout,omitempty"`
}

// NewProvider resolves the configured provider through the shared registry
// and constructs the matching implementation
func NewProvider(cfg Config) (Provider, error) {
	endpoint, err := provider.Resolve(cfg.Provider, cfg.Model, cfg.BaseURL, cfg.APIKey)
	if err != nil {
		return nil, err
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	switch endpoint.Provider {
	case provider.OpenAI, provider.Azure:
		return newOpenAIProvider(endpoint, timeout), nil
	case provider.Ollama:
		return newOllamaProvider(endpoint, timeout), nil
	default:
		return nil, errors.Newf(errors.ErrTypeConfig,
			"provider %s does not support embeddings", endpoint.Provider)
	}
}
