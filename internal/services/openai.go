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

const defaultOpenAIBaseURL = "https://api.openai.com/v1"

// OpenAIClient calls the OpenAI chat completions API.
type OpenAIClient struct {
	opts   LLMOptions
	client *http.Client
}

// NewOpenAIClient constructor creates an OpenAI adapter from options.
func NewOpenAIClient(opts LLMOptions) *OpenAIClient {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultOpenAIBaseURL
	}
	if opts.FastModel == "" {
		opts.FastModel = "gpt-4o-mini"
	}
	if opts.CapableModel == "" {
		opts.CapableModel = "gpt-4o"
	}
	return &OpenAIClient{
		opts:   opts,
		client: opts.httpClient(),
	}
}

func (oc *OpenAIClient) Provider() string { return "openai" }

func (oc *OpenAIClient) ModelFor(tier models.ModelTier) string {
	return oc.opts.modelFor(tier)
}

// Request to chat completions
type openAIRequest struct {
	Model     string          `json:"model"`
	Messages  []openAIMessage `json:"messages"`
	MaxTokens int             `json:"max_tokens"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Response from chat completions
type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// Complete sends the prompt and returns the model's raw text.
func (oc *OpenAIClient) Complete(ctx context.Context, prompt string, tier models.ModelTier) (string, error) {
	if oc.opts.APIKey == "" {
		return "", fmt.Errorf("%w: openai API key not configured", models.ErrAuthentication)
	}
	if err := oc.opts.wait(ctx); err != nil {
		return "", err
	}

	reqBody := openAIRequest{
		Model: oc.ModelFor(tier),
		Messages: []openAIMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		MaxTokens: maxCompletionTokens,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, oc.opts.BaseURL+"/chat/completions", bytes.NewBuffer(jsonBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+oc.opts.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := oc.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", classifyStatus(resp.StatusCode, string(body))
	}

	var openAIResp openAIResponse
	if err := json.NewDecoder(resp.Body).Decode(&openAIResp); err != nil {
		return "", fmt.Errorf("%w: failed to decode response: %v", models.ErrUpstream, err)
	}

	if len(openAIResp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices in response", models.ErrUpstream)
	}
	text := strings.TrimSpace(openAIResp.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("%w: empty completion", models.ErrUpstream)
	}
	return text, nil
}
