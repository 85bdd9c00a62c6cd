// Package provider is the single configuration-to-capability resolution point
// shared by embedding and generation construction. Provider name string
// branching lives here and nowhere else.
package provider

import (
	"github.com/queryscout/queryscout/internal/errors"
)

// Provider name constants
const (
	OpenAI    = "openai"
	Azure     = "azure"
	Anthropic = "anthropic"
	Ollama    = "ollama"
)

// Endpoint is a resolved capability endpoint: where to call and how to
// authenticate
type Endpoint struct {
	Provider string
	Model    string
	BaseURL  string
	APIKey   string
}

type registration struct {
	defaultBaseURL string
	requiresAPIKey bool
}

var registry = map[string]registration{
	OpenAI:    {defaultBaseURL: "https://api.openai.com/v1", requiresAPIKey: true},
	Azure:     {defaultBaseURL: "", requiresAPIKey: true},
	Anthropic: {defaultBaseURL: "https://api.anthropic.com/v1", requiresAPIKey: true},
	Ollama:    {defaultBaseURL: "http://localhost:11434", requiresAPIKey: false},
}

// Names returns the registered provider names
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}

	return names
}

// Resolve validates a provider selection and fills in endpoint defaults.
// Missing provider selection or missing credentials fail here, at
// construction time, never silently defaulted.
func Resolve(name, model, baseURL, apiKey string) (Endpoint, error) {
	if name == "" {
		return Endpoint{}, errors.NewConfigError("provider is required", "provider")
	}

	reg, ok := registry[name]
	if !ok {
		return Endpoint{}, errors.Newf(errors.ErrTypeConfig, "unsupported provider: %s", name)
	}

	if model == "" {
		return Endpoint{}, errors.NewConfigError("model is required", "model")
	}

	if baseURL == "" {
		baseURL = reg.defaultBaseURL
	}

	if baseURL == "" {
		return Endpoint{}, errors.Newf(errors.ErrTypeConfig,
			"base URL is required for provider %s", name)
	}

	if reg.requiresAPIKey && apiKey == "" {
		return Endpoint{}, errors.Newf(errors.ErrTypeConfig,
			"API key is required for provider %s", name)
	}

	return Endpoint{
		Provider: name,
		Model:    model,
		BaseURL:  baseURL,
		APIKey:   apiKey,
	}, nil
}
