package services

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/querysprout/fanout-analyzer/internal/models"
)

// systemPrompt is sent as the system message on every completion call.
const systemPrompt = "You are an expert in Google's Query Fan-Out system and SEO optimization. Provide detailed, actionable output."

// maxCompletionTokens bounds every completion response.
const maxCompletionTokens = 4000

// LLMClient is the adapter every provider implements: one prompt in, raw
// text out. Failures map onto the model error kinds; there is no retry,
// the caller surfaces the failure directly.
type LLMClient interface {
	Complete(ctx context.Context, prompt string, tier models.ModelTier) (string, error)
	Provider() string
	ModelFor(tier models.ModelTier) string
}

// LLMOptions carries the settings shared by every provider client.
type LLMOptions struct {
	APIKey       string
	BaseURL      string // override for tests and proxies; empty uses the provider default
	FastModel    string
	CapableModel string
	Timeout      time.Duration
	Limiter      *rate.Limiter // shared across providers, may be nil
}

// httpClient builds the bounded-timeout client used by all providers.
func (o LLMOptions) httpClient() *http.Client {
	timeout := o.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

// wait blocks on the shared rate limiter, if one is configured.
func (o LLMOptions) wait(ctx context.Context) error {
	if o.Limiter == nil {
		return nil
	}
	if err := o.Limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %v", models.ErrNetwork, err)
	}
	return nil
}

// modelFor resolves a tier against the configured model ids.
func (o LLMOptions) modelFor(tier models.ModelTier) string {
	if tier == models.TierCapable {
		return o.CapableModel
	}
	return o.FastModel
}

// classifyStatus maps a non-200 provider status code to an error kind.
func classifyStatus(status int, body string) error {
	if len(body) > 200 {
		body = body[:200]
	}
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%w (status %d): %s", models.ErrAuthentication, status, body)
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%w (status %d): %s", models.ErrQuotaExceeded, status, body)
	default:
		return fmt.Errorf("%w (status %d): %s", models.ErrUpstream, status, body)
	}
}
