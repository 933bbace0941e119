package models

import (
	"errors"
	"fmt"
)

// Request related errors
var (
	ErrInvalidRequest = errors.New("invalid analysis request")
)

// LLM related errors
var (
	ErrAuthentication = errors.New("authentication failed: check the configured API key")
	ErrQuotaExceeded  = errors.New("model API quota exceeded")
	ErrNetwork        = errors.New("network failure while calling the model API")
	ErrUpstream       = errors.New("unexpected or empty model response")
)

// Fetch related errors
var (
	ErrFetch = errors.New("could not fetch content from URL")
)

// Session related errors
var (
	ErrReportNotFound = errors.New("report not found")
)

// StepError wraps a pipeline failure with the step that produced it, so
// the UI can tell the user which variant category or fetch failed.
type StepError struct {
	Step string // variant category name, "fetch" or "recommendations"
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}
