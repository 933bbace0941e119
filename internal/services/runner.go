package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/querysprout/fanout-analyzer/internal/models"
	"github.com/querysprout/fanout-analyzer/internal/prompts"
)

// defaultWorkers bounds how many variant-category calls run at once.
const defaultWorkers = 4

// Fetcher retrieves and extracts text content from a URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*models.PageContent, error)
}

// AnalysisRunner drives one linear analysis run: validate, fetch (in
// optimize mode), fan out one model call per selected variant category,
// then a recommendations call, then assemble the report.
type AnalysisRunner struct {
	llm     LLMClient
	fetcher Fetcher
	log     *logrus.Logger
	Workers int
}

// NewAnalysisRunner constructor wires the runner's collaborators.
func NewAnalysisRunner(llm LLMClient, fetcher Fetcher, log *logrus.Logger) *AnalysisRunner {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &AnalysisRunner{
		llm:     llm,
		fetcher: fetcher,
		log:     log,
		Workers: defaultWorkers,
	}
}

// Run executes the pipeline. On failure it returns both the error and a
// report holding whatever variant categories completed first, so partial
// results stay visible and exportable.
func (ar *AnalysisRunner) Run(ctx context.Context, req models.AnalysisRequest) (*models.Report, error) {
	report := &models.Report{
		ID:          uuid.NewString(),
		Request:     req,
		Variants:    make(models.VariantSet, len(req.VariantTypes)),
		Provider:    ar.llm.Provider(),
		Model:       ar.llm.ModelFor(req.Tier),
		GeneratedAt: time.Now(),
	}

	if err := req.Validate(); err != nil {
		return report, err
	}

	// Fetch first in optimize mode. A fetch failure halts everything
	// that depends on the page content before any model call is made,
	// but keyword-derived variant categories still run.
	var fetchErr error
	if req.Mode == models.ModeOptimizeExisting {
		page, err := ar.fetcher.Fetch(ctx, req.ContentURL)
		if err != nil {
			ar.log.WithField("url", req.ContentURL).Warnf("content fetch failed: %v", err)
			fetchErr = &models.StepError{Step: "fetch", Err: err}
		} else {
			report.Page = page
			ar.log.WithFields(logrus.Fields{
				"url":   page.URL,
				"words": page.WordCount,
			}).Info("fetched content")
		}
	}

	if err := ar.generateVariants(ctx, req, report); err != nil {
		return report, err
	}
	if fetchErr != nil {
		return report, fetchErr
	}

	rec, err := ar.generateRecommendations(ctx, req, report)
	if err != nil {
		return report, &models.StepError{Step: "recommendations", Err: err}
	}
	report.Recommendation = rec

	return report, nil
}

// generateVariants fans out one model call per requested category using
// a bounded worker pool and joins before returning. No ordering between
// categories is guaranteed or needed; results are keyed by category.
func (ar *AnalysisRunner) generateVariants(ctx context.Context, req models.AnalysisRequest, report *models.Report) error {
	g, gctx := errgroup.WithContext(ctx)
	workers := ar.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}
	g.SetLimit(workers)

	var mu sync.Mutex
	for _, vt := range req.VariantTypes {
		vt := vt
		g.Go(func() error {
			prompt, err := prompts.Variant(&req, vt)
			if err != nil {
				return &models.StepError{Step: string(vt), Err: err}
			}

			raw, err := ar.llm.Complete(gctx, prompt, req.Tier)
			if err != nil {
				return &models.StepError{Step: string(vt), Err: err}
			}

			variants := parseVariantLines(raw)
			if len(variants) == 0 {
				return &models.StepError{
					Step: string(vt),
					Err:  fmt.Errorf("%w: no variants in completion", models.ErrUpstream),
				}
			}

			mu.Lock()
			report.Variants[vt] = variants
			mu.Unlock()

			ar.log.WithFields(logrus.Fields{
				"category": vt,
				"variants": len(variants),
			}).Info("generated variants")
			return nil
		})
	}
	return g.Wait()
}

// generateRecommendations runs the single recommendations call and
// parses its JSON body.
func (ar *AnalysisRunner) generateRecommendations(ctx context.Context, req models.AnalysisRequest, report *models.Report) (*models.Recommendation, error) {
	prompt, err := prompts.Recommendations(&req, report.Page, report.Variants)
	if err != nil {
		return nil, err
	}

	raw, err := ar.llm.Complete(ctx, prompt, req.Tier)
	if err != nil {
		return nil, err
	}
	return parseRecommendation(raw)
}

// parseVariantLines splits a completion into one variant per line,
// stripping any numbering or bullets the model added anyway.
func parseVariantLines(raw string) []string {
	var variants []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "-*•0123456789.) ")
		line = strings.TrimSpace(line)
		if line == "" || strings.HasSuffix(line, ":") {
			continue
		}
		variants = append(variants, line)
	}
	return variants
}

// parseRecommendation decodes the recommendations JSON, tolerating the
// code fences models like to wrap around it.
func parseRecommendation(raw string) (*models.Recommendation, error) {
	clean := strings.TrimSpace(raw)
	clean = strings.TrimPrefix(clean, "```json")
	clean = strings.TrimPrefix(clean, "```")
	clean = strings.TrimSuffix(clean, "```")
	clean = strings.TrimSpace(clean)

	var rec models.Recommendation
	if err := json.Unmarshal([]byte(clean), &rec); err != nil {
		return nil, fmt.Errorf("%w: decoding recommendations: %v", models.ErrUpstream, err)
	}
	return &rec, nil
}
