package controllers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/csrf"
	"github.com/sirupsen/logrus"

	"github.com/querysprout/fanout-analyzer/internal/config"
	"github.com/querysprout/fanout-analyzer/internal/middleware"
	"github.com/querysprout/fanout-analyzer/internal/models"
	"github.com/querysprout/fanout-analyzer/internal/services"
	"github.com/querysprout/fanout-analyzer/internal/views"
)

// Runner is the slice of AnalysisRunner the controller needs. Kept as an
// interface so handler tests can stub the pipeline.
type Runner interface {
	Run(ctx context.Context, req models.AnalysisRequest) (*models.Report, error)
}

// AnalyzeController handles the analysis form, results and exports.
type AnalyzeController struct {
	runner         Runner
	assembler      *services.ReportAssembler
	sessionService *models.SessionService
	defaults       config.DefaultsConfig
	maxQueries     int
	log            *logrus.Logger
	templates      AnalyzeTemplates
}

// AnalyzeTemplates holds the templates for analysis pages.
type AnalyzeTemplates struct {
	Form   *views.Template
	Result *views.Template
}

// NewAnalyzeController creates a new AnalyzeController.
func NewAnalyzeController(
	runner Runner,
	assembler *services.ReportAssembler,
	sessionService *models.SessionService,
	defaults config.DefaultsConfig,
	maxQueries int,
	log *logrus.Logger,
	templates AnalyzeTemplates,
) *AnalyzeController {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &AnalyzeController{
		runner:         runner,
		assembler:      assembler,
		sessionService: sessionService,
		defaults:       defaults,
		maxQueries:     maxQueries,
		log:            log,
		templates:      templates,
	}
}

// FormValues carries the raw form fields so the template can re-render
// them after a validation error.
type FormValues struct {
	Mode               string
	Queries            string
	ContentURL         string
	PrimaryKeyword     string
	AdditionalKeywords string
	CompetitorURLs     string
	Tier               string
	Depth              string
	Target             string
	TargetAudience     string
	ContentType        string
}

// AnalyzeFormData holds data for the analyze form template.
type AnalyzeFormData struct {
	Form       FormValues
	Categories []models.VariantType
	Selected   map[models.VariantType]bool
	Depths     []models.Depth
	Targets    []models.OptimizationTarget
	Tiers      []models.ModelTier
}

func (c *AnalyzeController) formData(form FormValues, selected map[models.VariantType]bool) AnalyzeFormData {
	return AnalyzeFormData{
		Form:       form,
		Categories: models.AllVariantTypes,
		Selected:   selected,
		Depths:     []models.Depth{models.DepthBasic, models.DepthStandard, models.DepthComprehensive},
		Targets:    []models.OptimizationTarget{models.TargetAIOverviews, models.TargetAIMode, models.TargetBoth},
		Tiers:      []models.ModelTier{models.TierFast, models.TierCapable},
	}
}

// GetAnalyzeForm renders the analysis form pre-filled with the
// configured defaults.
func (c *AnalyzeController) GetAnalyzeForm(w http.ResponseWriter, r *http.Request) {
	form := FormValues{
		Mode:   string(models.ModeNewContent),
		Depth:  c.defaults.Depth,
		Target: c.defaults.Target,
		Tier:   c.defaults.Tier,
	}
	selected := make(map[models.VariantType]bool, len(c.defaults.VariantTypes))
	for _, vt := range c.defaults.VariantTypes {
		selected[models.VariantType(vt)] = true
	}

	data := &views.TemplateData{
		Title:     "New Analysis",
		CSRFToken: csrf.Token(r),
		Data:      c.formData(form, selected),
	}
	c.templates.Form.ExecuteHTTP(w, r, data)
}

// PostAnalyze handles the analysis form submission. Invalid input
// re-renders the form; everything else lands on the result page, even
// partial failures, so whatever completed stays visible.
func (c *AnalyzeController) PostAnalyze(w http.ResponseWriter, r *http.Request) {
	session := middleware.CurrentSession(r)
	if session == nil {
		http.Error(w, "Session unavailable", http.StatusInternalServerError)
		return
	}

	if err := r.ParseForm(); err != nil {
		c.renderFormError(w, r, FormValues{}, nil, "Invalid form data")
		return
	}

	form := FormValues{
		Mode:               r.FormValue("mode"),
		Queries:            r.FormValue("queries"),
		ContentURL:         strings.TrimSpace(r.FormValue("content_url")),
		PrimaryKeyword:     strings.TrimSpace(r.FormValue("primary_keyword")),
		AdditionalKeywords: r.FormValue("additional_keywords"),
		CompetitorURLs:     r.FormValue("competitor_urls"),
		Tier:               r.FormValue("tier"),
		Depth:              r.FormValue("depth"),
		Target:             r.FormValue("target"),
		TargetAudience:     strings.TrimSpace(r.FormValue("target_audience")),
		ContentType:        strings.TrimSpace(r.FormValue("content_type")),
	}

	selected := make(map[models.VariantType]bool)
	var variantTypes []models.VariantType
	for _, raw := range r.Form["variant_types"] {
		vt := models.VariantType(raw)
		selected[vt] = true
		variantTypes = append(variantTypes, vt)
	}

	queries := splitLines(form.Queries)
	if c.maxQueries > 0 && len(queries) > c.maxQueries {
		c.renderFormError(w, r, form, selected, fmt.Sprintf("Too many queries: at most %d per run", c.maxQueries))
		return
	}

	req := models.AnalysisRequest{
		Mode:               models.Mode(form.Mode),
		Queries:            queries,
		ContentURL:         form.ContentURL,
		PrimaryKeyword:     form.PrimaryKeyword,
		AdditionalKeywords: splitComma(form.AdditionalKeywords),
		CompetitorURLs:     splitLines(form.CompetitorURLs),
		VariantTypes:       variantTypes,
		Tier:               models.ModelTier(form.Tier),
		Depth:              models.Depth(form.Depth),
		Target:             models.OptimizationTarget(form.Target),
		TargetAudience:     form.TargetAudience,
		ContentType:        form.ContentType,
	}

	report, err := c.runner.Run(r.Context(), req)
	if errors.Is(err, models.ErrInvalidRequest) {
		c.renderFormError(w, r, form, selected, capitalizeError(err))
		return
	}

	entry := &models.HistoryEntry{
		Report:    report,
		CreatedAt: report.GeneratedAt,
	}
	if err != nil {
		c.log.WithField("report_id", report.ID).Warnf("analysis ended with error: %v", err)
		entry.Err = err.Error()
	}
	c.sessionService.Add(session.ID, entry)

	http.Redirect(w, r, fmt.Sprintf("/analysis/%s", report.ID), http.StatusSeeOther)
}

// renderFormError renders the form with an error message.
func (c *AnalyzeController) renderFormError(w http.ResponseWriter, r *http.Request, form FormValues, selected map[models.VariantType]bool, errMsg string) {
	if selected == nil {
		selected = map[models.VariantType]bool{}
	}
	data := &views.TemplateData{
		Title:     "New Analysis",
		CSRFToken: csrf.Token(r),
		Error:     errMsg,
		Data:      c.formData(form, selected),
	}
	c.templates.Form.ExecuteHTTPWithStatus(w, r, http.StatusUnprocessableEntity, data)
}

// ResultData holds data for the result template.
type ResultData struct {
	Report  *models.Report
	History []HistoryView
}

// HistoryView is one row of the session history list.
type HistoryView struct {
	ID        string
	Title     string
	Failed    bool
	CreatedAt time.Time
}

// GetResult renders the report page for one run.
func (c *AnalyzeController) GetResult(w http.ResponseWriter, r *http.Request) {
	session := middleware.CurrentSession(r)
	if session == nil {
		http.Error(w, "Session unavailable", http.StatusInternalServerError)
		return
	}

	id := chi.URLParam(r, "id")
	entry, err := c.sessionService.Entry(session.ID, id)
	if err != nil {
		http.Error(w, "Report not found", http.StatusNotFound)
		return
	}

	data := &views.TemplateData{
		Title:     "Analysis Report",
		CSRFToken: csrf.Token(r),
		Data: ResultData{
			Report:  entry.Report,
			History: c.historyViews(session.ID),
		},
	}
	if entry.Failed() {
		data.Warning = fmt.Sprintf("This run did not finish cleanly: %s. Showing everything that completed.", entry.Err)
	}

	c.templates.Result.ExecuteHTTP(w, r, data)
}

// GetExport streams one report in the requested format as a download.
func (c *AnalyzeController) GetExport(w http.ResponseWriter, r *http.Request) {
	session := middleware.CurrentSession(r)
	if session == nil {
		http.Error(w, "Session unavailable", http.StatusInternalServerError)
		return
	}

	id := chi.URLParam(r, "id")
	entry, err := c.sessionService.Entry(session.ID, id)
	if err != nil {
		http.Error(w, "Report not found", http.StatusNotFound)
		return
	}

	short := id
	if len(short) > 8 {
		short = short[:8]
	}

	switch chi.URLParam(r, "format") {
	case "markdown":
		c.sendDownload(w, "text/markdown", fmt.Sprintf("fanout-report-%s.md", short), []byte(c.assembler.Markdown(entry.Report)))
	case "json":
		out, err := c.assembler.JSON(entry.Report)
		if err != nil {
			http.Error(w, "Failed to build export", http.StatusInternalServerError)
			return
		}
		c.sendDownload(w, "application/json", fmt.Sprintf("fanout-report-%s.json", short), out)
	case "full":
		out, err := c.assembler.FullReport(entry.Report)
		if err != nil {
			http.Error(w, "Failed to build export", http.StatusInternalServerError)
			return
		}
		c.sendDownload(w, "text/markdown", fmt.Sprintf("fanout-report-full-%s.md", short), []byte(out))
	default:
		http.Error(w, "Unknown export format", http.StatusNotFound)
	}
}

func (c *AnalyzeController) sendDownload(w http.ResponseWriter, contentType, filename string, body []byte) {
	w.Header().Set("Content-Type", contentType+"; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

func (c *AnalyzeController) historyViews(sessionID string) []HistoryView {
	entries := c.sessionService.History(sessionID)
	out := make([]HistoryView, 0, len(entries))
	for _, e := range entries {
		if e.Report == nil {
			continue
		}
		out = append(out, HistoryView{
			ID:        e.Report.ID,
			Title:     historyTitle(e.Report),
			Failed:    e.Failed(),
			CreatedAt: e.CreatedAt,
		})
	}
	return out
}

// historyTitle picks a human label for a run: the URL in optimize mode,
// the first seed query otherwise.
func historyTitle(r *models.Report) string {
	if r.Request.Mode == models.ModeOptimizeExisting && r.Request.ContentURL != "" {
		return r.Request.ContentURL
	}
	if len(r.Request.Queries) > 0 {
		return r.Request.Queries[0]
	}
	return r.ID
}

// splitLines splits textarea input into trimmed, non-empty lines.
func splitLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// splitComma splits comma-separated input into trimmed, non-empty parts.
func splitComma(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// capitalizeError turns a wrapped validation error into a user-facing
// message.
func capitalizeError(err error) string {
	msg := err.Error()
	msg = strings.TrimPrefix(msg, models.ErrInvalidRequest.Error()+": ")
	if msg == "" {
		return "Invalid request"
	}
	return strings.ToUpper(msg[:1]) + msg[1:]
}
