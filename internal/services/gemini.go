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

const defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// GeminiClient calls the Google Generative Language API.
type GeminiClient struct {
	opts   LLMOptions
	client *http.Client
}

// NewGeminiClient constructor creates a Gemini adapter from options.
func NewGeminiClient(opts LLMOptions) *GeminiClient {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultGeminiBaseURL
	}
	if opts.FastModel == "" {
		opts.FastModel = "gemini-2.5-flash"
	}
	if opts.CapableModel == "" {
		opts.CapableModel = "gemini-2.5-pro"
	}
	return &GeminiClient{
		opts:   opts,
		client: opts.httpClient(),
	}
}

func (gc *GeminiClient) Provider() string { return "gemini" }

func (gc *GeminiClient) ModelFor(tier models.ModelTier) string {
	return gc.opts.modelFor(tier)
}

// Request to the generateContent endpoint
type geminiRequest struct {
	SystemInstruction *geminiContent  `json:"system_instruction,omitempty"`
	Contents          []geminiContent `json:"contents"`
	GenerationConfig  struct {
		MaxOutputTokens int `json:"maxOutputTokens"`
	} `json:"generationConfig"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

// Response from the generateContent endpoint
type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
}

// Complete sends the prompt and returns the model's raw text.
func (gc *GeminiClient) Complete(ctx context.Context, prompt string, tier models.ModelTier) (string, error) {
	if gc.opts.APIKey == "" {
		return "", fmt.Errorf("%w: gemini API key not configured", models.ErrAuthentication)
	}
	if err := gc.opts.wait(ctx); err != nil {
		return "", err
	}

	reqBody := geminiRequest{
		SystemInstruction: &geminiContent{Parts: []geminiPart{{Text: systemPrompt}}},
		Contents:          []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
	}
	reqBody.GenerationConfig.MaxOutputTokens = maxCompletionTokens

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", gc.opts.BaseURL, gc.ModelFor(tier))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", gc.opts.APIKey)

	resp, err := gc.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		// Gemini reports a bad key as 400 API_KEY_INVALID rather than 401.
		if resp.StatusCode == http.StatusBadRequest && strings.Contains(string(body), "API_KEY_INVALID") {
			return "", fmt.Errorf("%w: %s", models.ErrAuthentication, string(body[:min(len(body), 200)]))
		}
		return "", classifyStatus(resp.StatusCode, string(body))
	}

	var geminiResp geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&geminiResp); err != nil {
		return "", fmt.Errorf("%w: failed to decode response: %v", models.ErrUpstream, err)
	}

	if len(geminiResp.Candidates) == 0 || len(geminiResp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("%w: no candidates in response", models.ErrUpstream)
	}

	var sb strings.Builder
	for _, part := range geminiResp.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", fmt.Errorf("%w: empty completion", models.ErrUpstream)
	}
	return text, nil
}
