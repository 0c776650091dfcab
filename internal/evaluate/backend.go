// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package evaluate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pdiddy/paper-scout/pkg/types"
)

// ErrMissingAPIKey is returned when an enabled evaluator has no credential.
var ErrMissingAPIKey = errors.New("evaluator API key is not set")

const defaultTimeout = 60 * time.Second

// Endpoint defaults. Package-level vars for test substitution.
var (
	anthropicAPIURL = "https://api.anthropic.com/v1/messages"
	openAIBaseURL   = "https://api.openai.com/v1"
)

const (
	defaultAnthropicModel = "claude-3-sonnet-20240229"
	defaultOpenAIModel    = "gpt-4o-mini"
)

// DefaultModel returns the model used for p when none is configured.
func DefaultModel(p types.EvaluatorProvider) string {
	if p == types.ProviderOpenAI {
		return defaultOpenAIModel
	}
	return defaultAnthropicModel
}

// NewBackend builds the completion backend selected by cfg.Provider. A nil
// client gets one with cfg.Timeout (default 60s).
func NewBackend(cfg types.EvaluatorConfig, client *http.Client) (Backend, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		client = &http.Client{Timeout: timeout}
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel(cfg.Provider)
	}

	switch cfg.Provider {
	case types.ProviderAnthropic, "":
		endpoint := anthropicAPIURL
		if cfg.BaseURL != "" {
			endpoint = strings.TrimSuffix(cfg.BaseURL, "/") + "/v1/messages"
		}
		return &ClaudeBackend{APIKey: cfg.APIKey, Model: model, Endpoint: endpoint, Client: client}, nil
	case types.ProviderOpenAI:
		base := openAIBaseURL
		if cfg.BaseURL != "" {
			base = strings.TrimSuffix(cfg.BaseURL, "/")
		}
		return &OpenAIBackend{APIKey: cfg.APIKey, Model: model, Endpoint: base + "/chat/completions", Client: client}, nil
	default:
		return nil, fmt.Errorf("unknown evaluator provider %q", cfg.Provider)
	}
}

// ClaudeBackend calls the Anthropic Messages API.
type ClaudeBackend struct {
	APIKey   string
	Model    string
	Endpoint string
	Client   *http.Client
}

type claudeRequest struct {
	Model     string        `json:"model"`
	MaxTokens int           `json:"max_tokens"`
	Messages  []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type claudeResponse struct {
	Content []claudeContent `json:"content"`
}

type claudeContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Complete sends prompt as a single user message and returns the first text block.
func (c *ClaudeBackend) Complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	body := claudeRequest{
		Model:     c.Model,
		MaxTokens: maxTokens,
		Messages:  []chatMessage{{Role: "user", Content: prompt}},
	}
	headers := map[string]string{
		"x-api-key":         c.APIKey,
		"anthropic-version": "2023-06-01",
	}

	var cResp claudeResponse
	if err := postJSON(ctx, c.Client, c.Endpoint, headers, body, &cResp); err != nil {
		return "", fmt.Errorf("calling Claude API: %w", err)
	}

	for _, block := range cResp.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("no text content in Claude API response")
}

// OpenAIBackend calls an OpenAI-compatible chat completions API.
type OpenAIBackend struct {
	APIKey   string
	Model    string
	Endpoint string
	Client   *http.Client
}

type openAIRequest struct {
	Model     string        `json:"model"`
	MaxTokens int           `json:"max_tokens"`
	Messages  []chatMessage `json:"messages"`
}

type openAIResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Complete sends prompt as a single user message and returns the first choice.
func (o *OpenAIBackend) Complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	body := openAIRequest{
		Model:     o.Model,
		MaxTokens: maxTokens,
		Messages:  []chatMessage{{Role: "user", Content: prompt}},
	}
	headers := map[string]string{"Authorization": "Bearer " + o.APIKey}

	var oResp openAIResponse
	if err := postJSON(ctx, o.Client, o.Endpoint, headers, body, &oResp); err != nil {
		return "", fmt.Errorf("calling OpenAI API: %w", err)
	}
	if len(oResp.Choices) == 0 {
		return "", fmt.Errorf("OpenAI API returned no choices")
	}
	return oResp.Choices[0].Message.Content, nil
}

// postJSON marshals body, POSTs it, and decodes a 200 response into out.
func postJSON(ctx context.Context, client *http.Client, url string, headers map[string]string, body, out any) error {
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}

	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
