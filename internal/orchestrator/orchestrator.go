// internal/orchestrator/orchestrator.go
package orchestrator

import (
	"context"
	"errors"
	"strings"
	"time"

	"faq-chatbot/internal/classifier"
	apperrors "faq-chatbot/internal/common/errors"
	"faq-chatbot/internal/common/logger"
	"faq-chatbot/internal/common/metrics"
	"faq-chatbot/internal/content"
	"faq-chatbot/internal/fallback"
	"faq-chatbot/internal/llm"
	"faq-chatbot/internal/models"
	"faq-chatbot/internal/respcache"

	"github.com/google/uuid"
)

// Classifier resolves a question to a knowledge category.
type Classifier interface {
	Classify(ctx context.Context, question string) (classifier.Resolution, error)
}

// Synthesizer produces an answer grounded in one category's content.
type Synthesizer interface {
	Synthesize(ctx context.Context, question string, category content.Category) (string, error)
}

// Result pairs the response with the failure kind that produced it. Failure
// is KindNone on success (including cache hits); a non-empty Failure means
// Response carries the fallback payload for that kind.
type Result struct {
	Response models.ChatResponse
	Failure  apperrors.FailureKind
}

// Orchestrator is the single entry point both front-ends call. It sequences
// the cache, classifier and synthesizer, owns conversation-identifier
// handling, and converts every failure into a safe payload.
type Orchestrator struct {
	classifier  Classifier
	synthesizer Synthesizer
	cache       respcache.Store
	resolver    *fallback.Resolver
	store       *content.Store
	logger      logger.Logger
	now         func() time.Time
}

func New(cls Classifier, syn Synthesizer, cache respcache.Store, resolver *fallback.Resolver, store *content.Store, log logger.Logger) *Orchestrator {
	return &Orchestrator{
		classifier:  cls,
		synthesizer: syn,
		cache:       cache,
		resolver:    resolver,
		store:       store,
		logger: log.With(map[string]interface{}{
			"component": "orchestrator",
		}),
		now: time.Now,
	}
}

// Process runs one request through the pipeline. The request must already be
// validated; Process still guards and maps a malformed request to a
// validation failure rather than panicking.
func (o *Orchestrator) Process(ctx context.Context, req models.ChatRequest) Result {
	start := o.now()

	conversationID := req.ConversationID
	if conversationID == "" {
		conversationID = uuid.New().String()
	}

	if err := req.Validate(); err != nil {
		return o.failed(apperrors.KindValidationError, conversationID, start)
	}

	question := strings.TrimSpace(req.Question)
	log := o.logger.With(map[string]interface{}{
		"conversationId": conversationID,
	})

	// Cache hit short-circuits straight to Completed. The cached answer and
	// category are reused; the conversation identifier is always the current
	// request's and the processing time is stamped fresh.
	if entry, ok := o.cache.Get(ctx, question); ok {
		metrics.CacheHitsTotal.Inc()
		log.Info("served from cache", map[string]interface{}{
			"category": entry.Category,
		})
		return o.completed(entry.Answer, entry.Category, conversationID, start)
	}
	metrics.CacheMissesTotal.Inc()

	resolution, err := o.classifier.Classify(ctx, question)
	if err != nil {
		log.Error("classification failed", map[string]interface{}{
			"error": err.Error(),
		})
		return o.failed(failureKindFor(err), conversationID, start)
	}
	if !resolution.Resolved {
		log.Info("question out of scope", map[string]interface{}{
			"questionLength": len(question),
		})
		return o.failed(apperrors.KindCategoryNotResolved, conversationID, start)
	}

	category, ok := o.store.Get(resolution.Category)
	if !ok {
		// The classifier validates against the known set; reaching this is a bug.
		log.Error("resolved category missing from store", map[string]interface{}{
			"category": resolution.Category,
		})
		return o.failed(apperrors.KindInternalError, conversationID, start)
	}

	answer, err := o.synthesizer.Synthesize(ctx, question, category)
	if err != nil {
		log.Error("synthesis failed", map[string]interface{}{
			"category": category.Name,
			"error":    err.Error(),
		})
		return o.failed(failureKindFor(err), conversationID, start)
	}

	o.cache.Put(ctx, question, respcache.Entry{
		Answer:   answer,
		Category: category.Name,
	})

	log.Info("question answered", map[string]interface{}{
		"category": category.Name,
	})
	return o.completed(answer, category.Name, conversationID, start)
}

func (o *Orchestrator) completed(answer, category, conversationID string, start time.Time) Result {
	elapsed := o.now().Sub(start).Seconds()
	metrics.ChatRequestDuration.Observe(elapsed)
	metrics.ChatRequestsTotal.WithLabelValues(category, "success").Inc()

	return Result{
		Response: models.ChatResponse{
			Answer:         answer,
			Category:       category,
			ConversationID: conversationID,
			ProcessingTime: round3(elapsed),
		},
	}
}

func (o *Orchestrator) failed(kind apperrors.FailureKind, conversationID string, start time.Time) Result {
	elapsed := o.now().Sub(start).Seconds()
	metrics.ChatRequestDuration.Observe(elapsed)
	metrics.ChatRequestsTotal.WithLabelValues(fallback.Category, string(kind)).Inc()

	return Result{
		Response: models.ChatResponse{
			Answer:         o.resolver.Resolve(kind),
			Category:       fallback.Category,
			ConversationID: conversationID,
			ProcessingTime: round3(elapsed),
		},
		Failure: kind,
	}
}

// failureKindFor maps component errors onto the closed failure taxonomy.
func failureKindFor(err error) apperrors.FailureKind {
	switch {
	case errors.Is(err, llm.ErrProviderTimeout), errors.Is(err, llm.ErrProviderFailed):
		return apperrors.KindTransportFailure
	case errors.Is(err, context.DeadlineExceeded):
		return apperrors.KindTransportFailure
	default:
		if kind := apperrors.KindOf(err); kind != apperrors.KindNone {
			return kind
		}
		return apperrors.KindInternalError
	}
}

func round3(seconds float64) float64 {
	return float64(int(seconds*1000+0.5)) / 1000
}
