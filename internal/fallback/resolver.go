// internal/fallback/resolver.go
package fallback

import (
	apperrors "faq-chatbot/internal/common/errors"
)

// Category is the reserved marker tagging fallback payloads. It is distinct
// from every real knowledge-category name so callers can tell a real answer
// from a fallback programmatically.
const Category = "out_of_scope"

// User-safe message templates. Raw provider error text is never echoed.
const (
	msgNotResolved = "Sorry, this question is outside our knowledge base. Please contact our support staff for assistance."
	msgNoContent   = "Sorry, we can't answer questions in this area right now. Please try again later or contact our support staff."
	msgTransport   = "Sorry, we're having trouble reaching our answer service. Please try again in a moment."
	msgInternal    = "Sorry, something went wrong while processing your question. Please try again later."
)

// Resolver maps the closed set of failure kinds to safe user-facing messages.
type Resolver struct {
	messages map[apperrors.FailureKind]string
}

func NewResolver() *Resolver {
	return &Resolver{
		messages: map[apperrors.FailureKind]string{
			apperrors.KindCategoryNotResolved:     msgNotResolved,
			apperrors.KindGroundingContentMissing: msgNoContent,
			apperrors.KindTransportFailure:        msgTransport,
			apperrors.KindInternalError:           msgInternal,
		},
	}
}

// Resolve returns the safe message for a failure kind. Unmapped kinds get the
// generic internal message so no path can leak.
func (r *Resolver) Resolve(kind apperrors.FailureKind) string {
	if msg, ok := r.messages[kind]; ok {
		return msg
	}
	return msgInternal
}
