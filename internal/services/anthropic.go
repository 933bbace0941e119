package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/querysprout/fanout-analyzer/internal/models"
)

const (
	defaultAnthropicBaseURL = "https://api.anthropic.com/v1"
	anthropicVersion        = "2023-06-01"
)

// AnthropicClient calls the Anthropic messages API.
type AnthropicClient struct {
	opts   LLMOptions
	client *http.Client
}

// NewAnthropicClient constructor creates an Anthropic adapter from options.
func NewAnthropicClient(opts LLMOptions) *AnthropicClient {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultAnthropicBaseURL
	}
	if opts.FastModel == "" {
		opts.FastModel = "claude-3-haiku-20240307"
	}
	if opts.CapableModel == "" {
		opts.CapableModel = "claude-3-5-sonnet-20241022"
	}
	return &AnthropicClient{
		opts:   opts,
		client: opts.httpClient(),
	}
}

func (ac *AnthropicClient) Provider() string { return "anthropic" }

func (ac *AnthropicClient) ModelFor(tier models.ModelTier) string {
	return ac.opts.modelFor(tier)
}

// Request to the messages endpoint
type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system,omitempty"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Response from the messages endpoint
type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

// Complete sends the prompt and returns the model's raw text.
func (ac *AnthropicClient) Complete(ctx context.Context, prompt string, tier models.ModelTier) (string, error) {
	if ac.opts.APIKey == "" {
		return "", fmt.Errorf("%w: anthropic API key not configured", models.ErrAuthentication)
	}
	if err := ac.opts.wait(ctx); err != nil {
		return "", err
	}

	reqBody := anthropicRequest{
		Model:     ac.ModelFor(tier),
		MaxTokens: maxCompletionTokens,
		System:    systemPrompt,
		Messages: []anthropicMessage{
			{Role: "user", Content: prompt},
		},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ac.opts.BaseURL+"/messages", bytes.NewBuffer(jsonBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("x-api-key", ac.opts.APIKey)
	req.Header.Set("anthropic-version", anthropicVersion)
	req.Header.Set("Content-Type", "application/json")

	resp, err := ac.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", classifyStatus(resp.StatusCode, string(body))
	}

	var anthropicResp anthropicResponse
	if err := json.NewDecoder(resp.Body).Decode(&anthropicResp); err != nil {
		return "", fmt.Errorf("%w: failed to decode response: %v", models.ErrUpstream, err)
	}

	var sb strings.Builder
	for _, block := range anthropicResp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", fmt.Errorf("%w: empty completion", models.ErrUpstream)
	}
	return text, nil
}
