package models

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Mode selects which analysis pipeline runs.
type Mode string

const (
	ModeNewContent       Mode = "new_content"
	ModeOptimizeExisting Mode = "optimize_existing"
)

// Valid reports whether m is one of the two supported modes.
func (m Mode) Valid() bool {
	return m == ModeNewContent || m == ModeOptimizeExisting
}

// VariantType is one of the seven fixed query fan-out transformations.
// The set is closed: variant prompts are selected per constant, never
// dispatched over free-form strings.
type VariantType string

const (
	VariantEquivalent       VariantType = "equivalent"
	VariantFollowUp         VariantType = "follow_up"
	VariantGeneralization   VariantType = "generalization"
	VariantCanonicalization VariantType = "canonicalization"
	VariantEntailment       VariantType = "entailment"
	VariantSpecification    VariantType = "specification"
	VariantClarification    VariantType = "clarification"
)

// AllVariantTypes lists every category in canonical report order.
var AllVariantTypes = []VariantType{
	VariantEquivalent,
	VariantFollowUp,
	VariantGeneralization,
	VariantCanonicalization,
	VariantEntailment,
	VariantSpecification,
	VariantClarification,
}

// Valid reports whether v names one of the seven categories.
func (v VariantType) Valid() bool {
	for _, vt := range AllVariantTypes {
		if v == vt {
			return true
		}
	}
	return false
}

// Description returns the short explanation shown next to each category
// in the form and embedded in variant prompts.
func (v VariantType) Description() string {
	switch v {
	case VariantEquivalent:
		return "Alternative ways to ask the same question"
	case VariantFollowUp:
		return "Logical next questions that build on the original"
	case VariantGeneralization:
		return "Broader versions of the specific question"
	case VariantCanonicalization:
		return "Standardized or normalized versions"
	case VariantEntailment:
		return "Queries that logically follow from the original"
	case VariantSpecification:
		return "More detailed or specific versions"
	case VariantClarification:
		return "Questions to clarify user intent"
	default:
		return ""
	}
}

// Label returns the human-readable name used in headings.
func (v VariantType) Label() string {
	words := strings.Split(string(v), "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, "-")
}

// ModelTier selects between the cheap/fast model and the capable one.
type ModelTier string

const (
	TierFast    ModelTier = "fast"
	TierCapable ModelTier = "capable"
)

// Valid reports whether t is a known tier.
func (t ModelTier) Valid() bool {
	return t == TierFast || t == TierCapable
}

// Depth controls how many variants each category prompt asks for.
type Depth string

const (
	DepthBasic         Depth = "Basic"
	DepthStandard      Depth = "Standard"
	DepthComprehensive Depth = "Comprehensive"
)

// VariantCount returns how many variants a category prompt requests at
// this depth.
func (d Depth) VariantCount() int {
	switch d {
	case DepthBasic:
		return 2
	case DepthComprehensive:
		return 6
	default:
		return 4
	}
}

// Valid reports whether d is a known depth setting.
func (d Depth) Valid() bool {
	return d == DepthBasic || d == DepthStandard || d == DepthComprehensive
}

// OptimizationTarget names which AI search surface the run optimizes for.
type OptimizationTarget string

const (
	TargetAIOverviews OptimizationTarget = "ai_overviews"
	TargetAIMode      OptimizationTarget = "ai_mode"
	TargetBoth        OptimizationTarget = "both"
)

// Valid reports whether t is a known optimization target.
func (t OptimizationTarget) Valid() bool {
	return t == TargetAIOverviews || t == TargetAIMode || t == TargetBoth
}

// Label returns the display name for the target.
func (t OptimizationTarget) Label() string {
	switch t {
	case TargetAIOverviews:
		return "AI Overviews"
	case TargetAIMode:
		return "AI Mode"
	case TargetBoth:
		return "AI Overviews + AI Mode"
	default:
		return string(t)
	}
}

// AnalysisRequest carries one form submission. It is built once per run
// and never mutated afterwards.
type AnalysisRequest struct {
	Mode Mode

	// New-content mode inputs.
	Queries []string

	// Optimize-existing mode inputs.
	ContentURL         string
	PrimaryKeyword     string
	AdditionalKeywords []string
	CompetitorURLs     []string

	// Shared settings.
	VariantTypes   []VariantType
	Tier           ModelTier
	Depth          Depth
	Target         OptimizationTarget
	TargetAudience string
	ContentType    string
}

// Validate checks that the request has every field its mode requires.
// All violations are reported as ErrInvalidRequest.
func (r *AnalysisRequest) Validate() error {
	if !r.Mode.Valid() {
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidRequest, r.Mode)
	}
	if len(r.VariantTypes) == 0 {
		return fmt.Errorf("%w: select at least one variant category", ErrInvalidRequest)
	}
	for _, vt := range r.VariantTypes {
		if !vt.Valid() {
			return fmt.Errorf("%w: unknown variant category %q", ErrInvalidRequest, vt)
		}
	}
	if !r.Tier.Valid() {
		return fmt.Errorf("%w: unknown model tier %q", ErrInvalidRequest, r.Tier)
	}
	if !r.Depth.Valid() {
		return fmt.Errorf("%w: unknown analysis depth %q", ErrInvalidRequest, r.Depth)
	}
	if !r.Target.Valid() {
		return fmt.Errorf("%w: unknown optimization target %q", ErrInvalidRequest, r.Target)
	}

	switch r.Mode {
	case ModeNewContent:
		if len(r.Queries) == 0 {
			return fmt.Errorf("%w: new content mode requires at least one target query", ErrInvalidRequest)
		}
	case ModeOptimizeExisting:
		if r.ContentURL == "" {
			return fmt.Errorf("%w: optimize mode requires a content URL", ErrInvalidRequest)
		}
		if _, err := url.ParseRequestURI(r.ContentURL); err != nil {
			return fmt.Errorf("%w: invalid content URL %q", ErrInvalidRequest, r.ContentURL)
		}
		if r.PrimaryKeyword == "" {
			return fmt.Errorf("%w: optimize mode requires a primary keyword", ErrInvalidRequest)
		}
	}
	return nil
}

// HasVariant reports whether the request asked for the given category.
func (r *AnalysisRequest) HasVariant(vt VariantType) bool {
	for _, v := range r.VariantTypes {
		if v == vt {
			return true
		}
	}
	return false
}

// VariantSet maps each generated category to its ordered variant queries.
// Populated incrementally during a run, never mutated after assembly.
type VariantSet map[VariantType][]string

// Categories returns the populated categories in canonical order.
func (vs VariantSet) Categories() []VariantType {
	var out []VariantType
	for _, vt := range AllVariantTypes {
		if len(vs[vt]) > 0 {
			out = append(out, vt)
		}
	}
	return out
}

// Recommendation holds the free-text sections produced by the
// recommendations prompt. JSON keys are part of the export contract.
type Recommendation struct {
	Immediate string `json:"immediate"`
	ShortTerm string `json:"short_term"`
	LongTerm  string `json:"long_term"`
	Schema    string `json:"schema"`
	Metrics   string `json:"metrics"`
}

// Heading is one document heading extracted from a fetched page.
type Heading struct {
	Level string `json:"level"` // h1..h6
	Text  string `json:"text"`
}

// PageContent is the extracted text of a fetched URL.
type PageContent struct {
	URL             string    `json:"url"`
	Title           string    `json:"title"`
	MetaDescription string    `json:"meta_description"`
	Headings        []Heading `json:"headings"`
	Text            string    `json:"text"`
	WordCount       int       `json:"word_count"`
	FetchedAt       time.Time `json:"fetched_at"`
}

// Report aggregates one completed (or partially completed) analysis run.
type Report struct {
	ID             string
	Request        AnalysisRequest
	Page           *PageContent // optimize mode only, nil if the fetch failed
	Variants       VariantSet
	Recommendation *Recommendation
	Provider       string
	Model          string
	GeneratedAt    time.Time
}

// Complete reports whether every requested category was populated and the
// recommendations pass returned.
func (r *Report) Complete() bool {
	for _, vt := range r.Request.VariantTypes {
		if len(r.Variants[vt]) == 0 {
			return false
		}
	}
	return r.Recommendation != nil
}
