// internal/server/handlers.go
package server

import (
	"net/http"
	"time"

	apperrors "faq-chatbot/internal/common/errors"
	"faq-chatbot/internal/models"

	"github.com/gin-gonic/gin"
)

// handleChat decodes the request, runs the pipeline once and maps the result
// onto HTTP. Fallback payloads keep the normal response shape; only the
// status code distinguishes the outcome classes.
func (s *Server) handleChat(c *gin.Context) {
	var req models.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, models.ErrorResponse{
			Error:     "invalid request body",
			Detail:    err.Error(),
			ErrorCode: string(apperrors.KindValidationError),
		})
		return
	}

	if err := req.Validate(); err != nil {
		c.JSON(http.StatusUnprocessableEntity, models.ErrorResponse{
			Error:     "invalid request",
			Detail:    err.Error(),
			ErrorCode: string(apperrors.KindValidationError),
		})
		return
	}

	result := s.pipeline.Process(c.Request.Context(), req)
	c.JSON(statusFor(result.Failure), result.Response)
}

// statusFor maps failure kinds to HTTP status codes. Unresolved questions are
// a 404 so API clients can distinguish "not in scope" from a degraded answer;
// provider and content failures still serve their fallback with a 200.
func statusFor(kind apperrors.FailureKind) int {
	switch kind {
	case apperrors.KindNone, apperrors.KindTransportFailure, apperrors.KindGroundingContentMissing:
		return http.StatusOK
	case apperrors.KindCategoryNotResolved:
		return http.StatusNotFound
	case apperrors.KindValidationError:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, models.HealthResponse{
		Status:    "healthy",
		Version:   s.config.App.Version,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// handleCallback receives messaging-platform webhook events. Signature
// verification happens before the body is interpreted; a bad signature is
// rejected without processing any event.
func (s *Server) handleCallback(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:     "unable to read request body",
			ErrorCode: string(apperrors.KindValidationError),
		})
		return
	}

	signature := c.GetHeader("X-Line-Signature")
	if !s.gateway.Verify(signature, body) {
		s.logger.Warn("webhook signature rejected", map[string]interface{}{
			"remoteAddr": c.ClientIP(),
		})
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:     "invalid signature",
			ErrorCode: string(apperrors.KindValidationError),
		})
		return
	}

	if err := s.gateway.HandleWebhook(c.Request.Context(), body); err != nil {
		// The platform retries on non-200; event-level failures are already
		// answered with fallback replies, so only decode errors land here.
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:     "malformed webhook payload",
			ErrorCode: string(apperrors.KindValidationError),
		})
		return
	}

	c.Status(http.StatusOK)
}
