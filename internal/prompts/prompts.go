// Package prompts builds the natural-language prompts for each query
// fan-out variant category and for the optimization recommendations pass.
// Builders are pure functions of the request: no side effects, no calls.
package prompts

import (
	"fmt"
	"strings"

	"github.com/querysprout/fanout-analyzer/internal/models"
)

// maxExcerptWords bounds how much fetched page text is embedded in the
// recommendations prompt.
const maxExcerptWords = 1000

// maxHeadings bounds how many page headings are embedded.
const maxHeadings = 20

// variantInstruction maps each category to its generation instruction.
// Phrasing is content, not contract: tune freely.
func variantInstruction(vt models.VariantType, n int) string {
	switch vt {
	case models.VariantEquivalent:
		return fmt.Sprintf("List %d alternative phrasings users might type for each input query. Keep the meaning identical.", n)
	case models.VariantFollowUp:
		return fmt.Sprintf("List %d logical next questions a user would ask after the input query is answered.", n)
	case models.VariantGeneralization:
		return fmt.Sprintf("List %d broader topic queries that contain each input query as a special case.", n)
	case models.VariantCanonicalization:
		return fmt.Sprintf("List %d standardized, normalized forms of each input query as a search engine would canonicalize it.", n)
	case models.VariantEntailment:
		return fmt.Sprintf("List %d queries that are logically implied by each input query.", n)
	case models.VariantSpecification:
		return fmt.Sprintf("List %d more specific, detailed versions of each input query.", n)
	case models.VariantClarification:
		return fmt.Sprintf("List %d questions that clarify the searcher's intent behind each input query.", n)
	default:
		return ""
	}
}

// Variant builds the prompt for one fan-out category. It fails with
// ErrInvalidRequest when the request is missing fields its mode needs.
func Variant(req *models.AnalysisRequest, vt models.VariantType) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}
	if !vt.Valid() {
		return "", fmt.Errorf("%w: unknown variant category %q", models.ErrInvalidRequest, vt)
	}

	var b strings.Builder
	b.WriteString("You are an expert in Google's Query Fan-Out system and AI-powered search optimization.\n\n")

	writeContext(&b, req)

	fmt.Fprintf(&b, "VARIANT CATEGORY: %s (%s)\n", vt.Label(), vt.Description())
	b.WriteString(variantInstruction(vt, req.Depth.VariantCount()))
	b.WriteString("\n\n")

	writeInputs(&b, req)

	b.WriteString("\nReturn only the generated variant queries, one per line, without numbering, bullets or commentary.\n")
	return b.String(), nil
}

// Recommendations builds the prompt for the optimization recommendations
// pass. It embeds the already-generated variants and, for optimize mode,
// the fetched page content.
func Recommendations(req *models.AnalysisRequest, page *models.PageContent, variants models.VariantSet) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("You are an expert content optimizer specializing in Google's Query Fan-Out system. ")
	b.WriteString("Provide specific, actionable recommendations, not generic advice.\n\n")

	writeContext(&b, req)
	writeInputs(&b, req)

	if cats := variants.Categories(); len(cats) > 0 {
		b.WriteString("\nGENERATED QUERY VARIANTS:\n")
		for _, vt := range cats {
			fmt.Fprintf(&b, "%s:\n", vt.Label())
			for _, q := range variants[vt] {
				fmt.Fprintf(&b, "- %s\n", q)
			}
		}
	}

	if page != nil {
		b.WriteString("\nCURRENT CONTENT:\n")
		fmt.Fprintf(&b, "URL: %s\nTitle: %s\nMeta Description: %s\nWord Count: %d\n",
			page.URL, page.Title, page.MetaDescription, page.WordCount)
		if len(page.Headings) > 0 {
			b.WriteString("Heading Structure:\n")
			for i, h := range page.Headings {
				if i >= maxHeadings {
					break
				}
				fmt.Fprintf(&b, "%s: %s\n", strings.ToUpper(h.Level), h.Text)
			}
		}
		fmt.Fprintf(&b, "Content Sample:\n%s\n", firstWords(page.Text, maxExcerptWords))
	}

	b.WriteString("\nFOCUS:\n")
	switch req.Target {
	case models.TargetAIOverviews:
		b.WriteString("- Direct 40-60 word answers, featured snippet structure, FAQ coverage.\n")
	case models.TargetAIMode:
		b.WriteString("- Passage-level coverage, semantic completeness, entity relationships.\n")
	default:
		b.WriteString("- Direct answers and snippet structure for AI Overviews.\n")
		b.WriteString("- Passage-level coverage and entity relationships for AI Mode.\n")
	}

	b.WriteString(`
Respond with a single JSON object and nothing else, using exactly these keys:
{
  "immediate": "actions to take today (Markdown)",
  "short_term": "actions for this week (Markdown)",
  "long_term": "actions for this month and beyond (Markdown)",
  "schema": "schema.org markup recommendations (Markdown)",
  "metrics": "success metrics to track (Markdown)"
}
`)
	return b.String(), nil
}

// writeContext emits the shared CONTEXT block.
func writeContext(b *strings.Builder, req *models.AnalysisRequest) {
	audience := req.TargetAudience
	if audience == "" {
		audience = "General audience"
	}
	contentType := req.ContentType
	if contentType == "" {
		contentType = "Blog Post"
	}
	b.WriteString("CONTEXT:\n")
	fmt.Fprintf(b, "- Target Audience: %s\n", audience)
	fmt.Fprintf(b, "- Content Type: %s\n", contentType)
	fmt.Fprintf(b, "- Optimization Target: %s\n", req.Target.Label())
	fmt.Fprintf(b, "- Analysis Depth: %s\n\n", req.Depth)
}

// writeInputs emits the mode-specific input block. Every user-supplied
// query, keyword and URL ends up in the prompt verbatim.
func writeInputs(b *strings.Builder, req *models.AnalysisRequest) {
	switch req.Mode {
	case models.ModeNewContent:
		b.WriteString("TARGET QUERIES FOR NEW CONTENT:\n")
		for i, q := range req.Queries {
			fmt.Fprintf(b, "%d. %s\n", i+1, q)
		}
	case models.ModeOptimizeExisting:
		fmt.Fprintf(b, "CONTENT URL: %s\n", req.ContentURL)
		fmt.Fprintf(b, "PRIMARY KEYWORD: %s\n", req.PrimaryKeyword)
		if len(req.AdditionalKeywords) > 0 {
			fmt.Fprintf(b, "ADDITIONAL KEYWORDS: %s\n", strings.Join(req.AdditionalKeywords, ", "))
		}
		if len(req.CompetitorURLs) > 0 {
			fmt.Fprintf(b, "COMPETITOR URLS: %s\n", strings.Join(req.CompetitorURLs, ", "))
		}
	}
}

// firstWords returns the first n whitespace-separated words of s.
func firstWords(s string, n int) string {
	fields := strings.Fields(s)
	if len(fields) <= n {
		return strings.Join(fields, " ")
	}
	return strings.Join(fields[:n], " ")
}
