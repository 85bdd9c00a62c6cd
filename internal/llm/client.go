package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/queryscout/queryscout/internal/errors"
	"github.com/queryscout/queryscout/internal/provider"
)

const defaultMaxTokens = 4000

// Client implements the Service interface with multiple provider support
type Client struct {
	endpoint   provider.Endpoint
	httpClient *http.Client
}

// NewClient resolves the configured provider through the shared registry and
// creates a generation client
func NewClient(cfg Config) (*Client, error) {
	endpoint, err := provider.Resolve(cfg.Provider, cfg.Model, cfg.BaseURL, cfg.APIKey)
	if err != nil {
		return nil, err
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}

	return &Client{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// Generate produces free text for the prompt using the configured provider
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	switch c.endpoint.Provider {
	case provider.OpenAI, provider.Azure:
		return c.generateOpenAI(ctx, prompt, false)
	case provider.Anthropic:
		return c.generateAnthropic(ctx, prompt)
	case provider.Ollama:
		return c.generateOllama(ctx, prompt, false)
	default:
		return "", errors.Newf(errors.ErrTypeConfig, "unsupported provider: %s", c.endpoint.Provider)
	}
}

// GenerateJSON constrains the model to a JSON object response and decodes it
// into out. Providers without native JSON modes get the constraint in-prompt.
func (c *Client) GenerateJSON(ctx context.Context, prompt string, out interface{}) error {
	var (
		text string
		err  error
	)

	switch c.endpoint.Provider {
	case provider.OpenAI, provider.Azure:
		text, err = c.generateOpenAI(ctx, prompt, true)
	case provider.Anthropic:
		text, err = c.generateAnthropic(ctx,
			prompt+"\n\nRespond with a single JSON object and nothing else.")
	case provider.Ollama:
		text, err = c.generateOllama(ctx, prompt, true)
	default:
		return errors.Newf(errors.ErrTypeConfig, "unsupported provider: %s", c.endpoint.Provider)
	}

	if err != nil {
		return err
	}

	if err := json.Unmarshal([]byte(text), out); err != nil {
		return errors.Wrapf(err, errors.ErrTypeGeneration,
			"model returned malformed JSON: %.200s", text)
	}

	return nil
}

// OpenAI API structures
type openAIRequest struct {
	Model          string                `json:"model"`
	Messages       []openAIMessage       `json:"messages"`
	Temperature    float64               `json:"temperature"`
	MaxTokens      int                   `json:"max_tokens,omitempty"`
	ResponseFormat *openAIResponseFormat `json:"response_format,omitempty"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIResponseFormat struct {
	Type string `json:"type"`
}

type openAIResponse struct {
	Choices []struct {
		Message openAIMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (c *Client) generateOpenAI(ctx context.Context, prompt string, jsonMode bool) (string, error) {
	reqBody := openAIRequest{
		Model: c.endpoint.Model,
		Messages: []openAIMessage{
			{Role: "user", Content: prompt},
		},
		Temperature: 0.1,
		MaxTokens:   defaultMaxTokens,
	}
	if jsonMode {
		reqBody.ResponseFormat = &openAIResponseFormat{Type: "json_object"}
	}

	headers := map[string]string{
		"Authorization": "Bearer " + c.endpoint.APIKey,
	}

	respBody, err := c.post(ctx, "/chat/completions", headers, reqBody)
	if err != nil {
		return "", err
	}

	var response openAIResponse
	if err := json.Unmarshal(respBody, &response); err != nil {
		return "", errors.Wrap(err, errors.ErrTypeGeneration, "failed to parse OpenAI response")
	}

	if response.Error != nil {
		return "", errors.Newf(errors.ErrTypeGeneration, "OpenAI API error: %s", response.Error.Message)
	}

	if len(response.Choices) == 0 {
		return "", errors.New(errors.ErrTypeGeneration, "no response from OpenAI")
	}

	return response.Choices[0].Message.Content, nil
}

// Anthropic API structures
type anthropicRequest struct {
	Model     string             `json:"model"`
	Messages  []anthropicMessage `json:"messages"`
	MaxTokens int                `json:"max_tokens"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (c *Client) generateAnthropic(ctx context.Context, prompt string) (string, error) {
	reqBody := anthropicRequest{
		Model:     c.endpoint.Model,
		MaxTokens: defaultMaxTokens,
		Messages: []anthropicMessage{
			{Role: "user", Content: prompt},
		},
	}

	headers := map[string]string{
		"x-api-key":         c.endpoint.APIKey,
		"anthropic-version": "2023-06-01",
	}

	respBody, err := c.post(ctx, "/messages", headers, reqBody)
	if err != nil {
		return "", err
	}

	var response anthropicResponse
	if err := json.Unmarshal(respBody, &response); err != nil {
		return "", errors.Wrap(err, errors.ErrTypeGeneration, "failed to parse Anthropic response")
	}

	if response.Error != nil {
		return "", errors.Newf(errors.ErrTypeGeneration, "Anthropic API error: %s", response.Error.Message)
	}

	if len(response.Content) == 0 {
		return "", errors.New(errors.ErrTypeGeneration, "no response from Anthropic")
	}

	return response.Content[0].Text, nil
}

// Ollama API structures
type ollamaRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
	Format string `json:"format,omitempty"`
}

type ollamaResponse struct {
	Response string `json:"response"`
	Error    string `json:"error,omitempty"`
}

func (c *Client) generateOllama(ctx context.Context, prompt string, jsonMode bool) (string, error) {
	reqBody := ollamaRequest{
		Model:  c.endpoint.Model,
		Prompt: prompt,
		Stream: false,
	}
	if jsonMode {
		reqBody.Format = "json"
	}

	respBody, err := c.post(ctx, "/api/generate", nil, reqBody)
	if err != nil {
		return "", err
	}

	var response ollamaResponse
	if err := json.Unmarshal(respBody, &response); err != nil {
		return "", errors.Wrap(err, errors.ErrTypeGeneration, "failed to parse Ollama response")
	}

	if response.Error != "" {
		return "", errors.Newf(errors.ErrTypeGeneration, "Ollama API error: %s", response.Error)
	}

	return response.Response, nil
}

// post makes an HTTP POST to the provider endpoint
func (c *Client) post(ctx context.Context, path string, headers map[string]string, reqBody interface{}) ([]byte, error) {
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeGeneration, "failed to marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.endpoint.BaseURL+path, bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeGeneration, "failed to create request")
	}

	req.Header.Set("Content-Type", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeGeneration, "generation request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeGeneration, "failed to read response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Newf(errors.ErrTypeGeneration,
			"generation request failed with status %d: %s", resp.StatusCode, string(body))
	}

	return body, nil
}
