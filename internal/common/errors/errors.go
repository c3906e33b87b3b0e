// Package errors provides the standardized failure taxonomy for the answer pipeline.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// ==========================
// 1. Failure Kinds
// ==========================

// FailureKind represents the closed set of pipeline failure categories.
// Every failure the orchestrator can observe maps to exactly one of these.
type FailureKind string

const (
	KindNone                    FailureKind = ""
	KindValidationError         FailureKind = "VALIDATION_ERROR"
	KindCategoryNotResolved     FailureKind = "CATEGORY_NOT_RESOLVED"
	KindGroundingContentMissing FailureKind = "GROUNDING_CONTENT_MISSING"
	KindTransportFailure        FailureKind = "TRANSPORT_FAILURE"
	KindInternalError           FailureKind = "INTERNAL_ERROR"
)

// PipelineError represents a structured application error.
type PipelineError struct {
	Kind      FailureKind `json:"kind"`
	Message   string      `json:"message"`
	Details   string      `json:"details,omitempty"`
	Retryable bool        `json:"retryable"`
	Timestamp time.Time   `json:"timestamp"`
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("PipelineError[%s]: %s", e.Kind, e.Message)
}

// ==========================
// 2. Error Constructors
// ==========================

// NewValidationError creates a non-retryable request validation error.
func NewValidationError(details string) *PipelineError {
	return &PipelineError{
		Kind:      KindValidationError,
		Message:   "Request validation failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewCategoryNotResolvedError signals that the model declined to pick a category.
func NewCategoryNotResolvedError(question string) *PipelineError {
	return &PipelineError{
		Kind:      KindCategoryNotResolved,
		Message:   "No knowledge category matched the question",
		Details:   fmt.Sprintf("question length: %d", len(question)),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewGroundingContentMissingError signals a category with no usable grounding text.
// This is a configuration-level failure, not a user error.
func NewGroundingContentMissingError(category string) *PipelineError {
	return &PipelineError{
		Kind:      KindGroundingContentMissing,
		Message:   "Knowledge category has no grounding content",
		Details:   fmt.Sprintf("category: %s", category),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewTransportFailureError wraps a provider call failure, error, or timeout.
func NewTransportFailureError(err error) *PipelineError {
	return &PipelineError{
		Kind:      KindTransportFailure,
		Message:   "LLM provider call failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewInternalError wraps anything unanticipated. The details stay server-side;
// callers only ever see the fallback resolver's generic message.
func NewInternalError(err error) *PipelineError {
	return &PipelineError{
		Kind:      KindInternalError,
		Message:   "Unexpected internal error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 3. Utility Functions
// ==========================

// KindOf extracts the failure kind from an error chain. Unrecognized errors
// are classified as internal failures.
func KindOf(err error) FailureKind {
	if err == nil {
		return KindNone
	}
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindInternalError
}

// IsKind reports whether err carries the given failure kind.
func IsKind(err error, kind FailureKind) bool {
	return KindOf(err) == kind
}

// AllKinds lists every failure kind the fallback resolver must map.
func AllKinds() []FailureKind {
	return []FailureKind{
		KindValidationError,
		KindCategoryNotResolved,
		KindGroundingContentMissing,
		KindTransportFailure,
		KindInternalError,
	}
}
