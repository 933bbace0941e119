package models

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validNewContentRequest() AnalysisRequest {
	return AnalysisRequest{
		Mode:         ModeNewContent,
		Queries:      []string{"how to brew pour over coffee"},
		VariantTypes: []VariantType{VariantEquivalent, VariantFollowUp},
		Tier:         TierFast,
		Depth:        DepthStandard,
		Target:       TargetBoth,
	}
}

func validOptimizeRequest() AnalysisRequest {
	return AnalysisRequest{
		Mode:           ModeOptimizeExisting,
		ContentURL:     "https://example.com/guide",
		PrimaryKeyword: "pour over coffee",
		VariantTypes:   []VariantType{VariantSpecification},
		Tier:           TierCapable,
		Depth:          DepthBasic,
		Target:         TargetAIOverviews,
	}
}

func TestAnalysisRequestValidate(t *testing.T) {
	t.Run("valid new content", func(t *testing.T) {
		req := validNewContentRequest()
		require.NoError(t, req.Validate())
	})

	t.Run("valid optimize", func(t *testing.T) {
		req := validOptimizeRequest()
		require.NoError(t, req.Validate())
	})

	t.Run("unknown mode", func(t *testing.T) {
		req := validNewContentRequest()
		req.Mode = "bulk_import"
		err := req.Validate()
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidRequest)
	})

	t.Run("no variant categories", func(t *testing.T) {
		req := validNewContentRequest()
		req.VariantTypes = nil
		assert.ErrorIs(t, req.Validate(), ErrInvalidRequest)
	})

	t.Run("unknown variant category", func(t *testing.T) {
		req := validNewContentRequest()
		req.VariantTypes = []VariantType{"paraphrase"}
		assert.ErrorIs(t, req.Validate(), ErrInvalidRequest)
	})

	t.Run("new content requires queries", func(t *testing.T) {
		req := validNewContentRequest()
		req.Queries = nil
		assert.ErrorIs(t, req.Validate(), ErrInvalidRequest)
	})

	t.Run("optimize requires URL", func(t *testing.T) {
		req := validOptimizeRequest()
		req.ContentURL = ""
		assert.ErrorIs(t, req.Validate(), ErrInvalidRequest)
	})

	t.Run("optimize rejects malformed URL", func(t *testing.T) {
		req := validOptimizeRequest()
		req.ContentURL = "not a url"
		assert.ErrorIs(t, req.Validate(), ErrInvalidRequest)
	})

	t.Run("optimize requires primary keyword", func(t *testing.T) {
		req := validOptimizeRequest()
		req.PrimaryKeyword = ""
		assert.ErrorIs(t, req.Validate(), ErrInvalidRequest)
	})

	t.Run("unknown depth", func(t *testing.T) {
		req := validNewContentRequest()
		req.Depth = "Exhaustive"
		assert.ErrorIs(t, req.Validate(), ErrInvalidRequest)
	})
}

func TestDepthVariantCount(t *testing.T) {
	assert.Equal(t, 2, DepthBasic.VariantCount())
	assert.Equal(t, 4, DepthStandard.VariantCount())
	assert.Equal(t, 6, DepthComprehensive.VariantCount())
}

func TestVariantTypeLabels(t *testing.T) {
	for _, vt := range AllVariantTypes {
		assert.NotEmpty(t, vt.Label(), "label for %s", vt)
		assert.NotEmpty(t, vt.Description(), "description for %s", vt)
		assert.True(t, vt.Valid())
	}
	assert.False(t, VariantType("paraphrase").Valid())
}

func TestVariantSetCategories(t *testing.T) {
	vs := VariantSet{
		VariantSpecification: {"best v60 recipe for light roasts"},
		VariantEquivalent:    {"pour over brewing guide"},
	}

	// Canonical order, not insertion or map order.
	assert.Equal(t, []VariantType{VariantEquivalent, VariantSpecification}, vs.Categories())

	// Empty categories are not reported.
	vs[VariantFollowUp] = nil
	assert.Len(t, vs.Categories(), 2)
}

func TestReportComplete(t *testing.T) {
	r := &Report{
		Request:  validNewContentRequest(),
		Variants: VariantSet{},
	}
	assert.False(t, r.Complete())

	r.Variants[VariantEquivalent] = []string{"a"}
	r.Variants[VariantFollowUp] = []string{"b"}
	assert.False(t, r.Complete(), "recommendations still missing")

	r.Recommendation = &Recommendation{Immediate: "add an FAQ section"}
	assert.True(t, r.Complete())
}

func TestStepErrorUnwrap(t *testing.T) {
	inner := ErrQuotaExceeded
	err := &StepError{Step: "follow_up", Err: inner}

	assert.Contains(t, err.Error(), "follow_up")
	assert.True(t, errors.Is(err, ErrQuotaExceeded))
}
