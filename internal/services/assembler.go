package services

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/querysprout/fanout-analyzer/internal/models"
)

// ReportAssembler renders a finished report in the three export formats.
// Rendering is deterministic: identical report data always produces
// byte-identical output for a given format.
type ReportAssembler struct{}

// NewReportAssembler constructor creates a new report assembler.
func NewReportAssembler() *ReportAssembler {
	return &ReportAssembler{}
}

// Markdown renders the report as a human-readable document, organized by
// category headers with bullet lists.
func (ra *ReportAssembler) Markdown(r *models.Report) string {
	var output strings.Builder

	output.WriteString("# Query Fan-Out Analysis Report\n\n")
	fmt.Fprintf(&output, "Generated: %s\n", r.GeneratedAt.UTC().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&output, "Provider: %s\n", r.Provider)
	fmt.Fprintf(&output, "Model: %s\n", r.Model)
	fmt.Fprintf(&output, "Mode: %s\n\n", r.Request.Mode)

	switch r.Request.Mode {
	case models.ModeNewContent:
		output.WriteString("## Target Queries\n\n")
		for _, q := range r.Request.Queries {
			fmt.Fprintf(&output, "- %s\n", q)
		}
		output.WriteString("\n")
	case models.ModeOptimizeExisting:
		output.WriteString("## Content Details\n\n")
		fmt.Fprintf(&output, "- URL: %s\n", r.Request.ContentURL)
		fmt.Fprintf(&output, "- Primary Keyword: %s\n", r.Request.PrimaryKeyword)
		if len(r.Request.AdditionalKeywords) > 0 {
			fmt.Fprintf(&output, "- Additional Keywords: %s\n", strings.Join(r.Request.AdditionalKeywords, ", "))
		}
		if r.Page != nil {
			fmt.Fprintf(&output, "- Page Title: %s\n", r.Page.Title)
			fmt.Fprintf(&output, "- Word Count: %d\n", r.Page.WordCount)
		}
		output.WriteString("\n")
	}

	output.WriteString("## Analysis Settings\n\n")
	fmt.Fprintf(&output, "- Optimization Target: %s\n", r.Request.Target.Label())
	fmt.Fprintf(&output, "- Depth: %s\n", r.Request.Depth)
	var names []string
	for _, vt := range r.Request.VariantTypes {
		names = append(names, string(vt))
	}
	fmt.Fprintf(&output, "- Variant Types: %s\n\n", strings.Join(names, ", "))

	output.WriteString("## Query Variants\n\n")
	for _, vt := range r.Variants.Categories() {
		fmt.Fprintf(&output, "### %s Queries\n\n", vt.Label())
		fmt.Fprintf(&output, "%s.\n\n", vt.Description())
		for _, q := range r.Variants[vt] {
			fmt.Fprintf(&output, "- %s\n", q)
		}
		output.WriteString("\n")
	}

	if rec := r.Recommendation; rec != nil {
		output.WriteString("## Recommendations\n\n")
		writeRecSection(&output, "Immediate Actions", rec.Immediate)
		writeRecSection(&output, "Short-Term Actions", rec.ShortTerm)
		writeRecSection(&output, "Long-Term Actions", rec.LongTerm)
		writeRecSection(&output, "Schema Markup", rec.Schema)
		writeRecSection(&output, "Success Metrics", rec.Metrics)
	}

	output.WriteString("---\n*Generated by QuerySprout Fan-Out Analyzer*\n")
	return output.String()
}

func writeRecSection(output *strings.Builder, heading, body string) {
	if strings.TrimSpace(body) == "" {
		return
	}
	fmt.Fprintf(output, "### %s\n\n%s\n\n", heading, strings.TrimSpace(body))
}

// JSON renders the report as a mapping from category name to its ordered
// variant list, plus a `recommendations` object when one was generated.
// Key names are stable; map marshalling sorts keys, so output is
// byte-identical for identical input.
func (ra *ReportAssembler) JSON(r *models.Report) ([]byte, error) {
	doc := make(map[string]any, len(r.Variants)+1)
	for vt, variants := range r.Variants {
		if len(variants) > 0 {
			doc[string(vt)] = variants
		}
	}
	if r.Recommendation != nil {
		doc["recommendations"] = r.Recommendation
	}

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal report: %w", err)
	}
	return append(out, '\n'), nil
}

// FullReport concatenates the Markdown document and the JSON export into
// one downloadable string.
func (ra *ReportAssembler) FullReport(r *models.Report) (string, error) {
	jsonOut, err := ra.JSON(r)
	if err != nil {
		return "", err
	}

	var output strings.Builder
	output.WriteString(ra.Markdown(r))
	output.WriteString("\n## JSON Export\n\n```json\n")
	output.Write(jsonOut)
	output.WriteString("```\n")
	return output.String(), nil
}
