// internal/models/chat.go
package models

import (
	"fmt"
	"strings"
)

// MaxQuestionLength bounds the accepted question size in characters.
const MaxQuestionLength = 1000

// ChatRequest is the caller-supplied question plus an optional opaque
// conversation identifier.
type ChatRequest struct {
	Question       string `json:"question"`
	ConversationID string `json:"conversation_id,omitempty"`
}

// Validate rejects malformed requests before they enter the pipeline.
func (r ChatRequest) Validate() error {
	q := strings.TrimSpace(r.Question)
	if q == "" {
		return fmt.Errorf("question must not be empty")
	}
	if len([]rune(q)) > MaxQuestionLength {
		return fmt.Errorf("question exceeds %d characters", MaxQuestionLength)
	}
	return nil
}

// ChatResponse is produced exactly once per request. Category is either a
// known knowledge-category name or the reserved fallback marker.
type ChatResponse struct {
	Answer         string  `json:"answer"`
	Category       string  `json:"category"`
	ConversationID string  `json:"conversation_id"`
	ProcessingTime float64 `json:"processing_time"`
}

// ErrorResponse is the body of a well-formed HTTP error.
type ErrorResponse struct {
	Error     string `json:"error"`
	Detail    string `json:"detail,omitempty"`
	ErrorCode string `json:"error_code"`
}

// HealthResponse is returned by the health endpoint.
type HealthResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	Timestamp string `json:"timestamp"`
}
