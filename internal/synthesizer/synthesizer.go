// internal/synthesizer/synthesizer.go
package synthesizer

import (
	"context"
	"fmt"
	"strings"

	apperrors "faq-chatbot/internal/common/errors"
	"faq-chatbot/internal/common/logger"
	"faq-chatbot/internal/content"
	"faq-chatbot/internal/llm"
)

// NotCoveredReply is the fixed sentence the model must emit when the
// grounding text does not contain the answer. Callers may match it verbatim
// to detect "no answer" outcomes.
const NotCoveredReply = "I'm sorry, this question is not covered by our knowledge base. Please contact our support staff."

const systemPromptTemplate = `You are a helpful assistant answering company FAQ questions.

Guidelines:
- Answer ONLY from the FAQ content below. Do not answer based on your own knowledge.
- If the FAQ content does not contain the answer, reply with exactly this sentence: %q
- Be concise but informative.
- Use a friendly, professional tone.

FAQ content for category %q:
%s`

// CompletionClient is the provider surface the synthesizer depends on.
type CompletionClient interface {
	CreateChatCompletion(ctx context.Context, operation string, req llm.CompletionRequest) (*llm.Completion, error)
}

// Synthesizer produces an answer constrained to one category's grounding text.
type Synthesizer struct {
	client CompletionClient
	logger logger.Logger
}

func New(client CompletionClient, log logger.Logger) *Synthesizer {
	return &Synthesizer{
		client: client,
		logger: log.With(map[string]interface{}{
			"component": "synthesizer",
		}),
	}
}

// Synthesize returns the trimmed model output verbatim. An empty grounding
// text fails before any provider call is issued.
func (s *Synthesizer) Synthesize(ctx context.Context, question string, category content.Category) (string, error) {
	if strings.TrimSpace(category.GroundingText) == "" {
		return "", apperrors.NewGroundingContentMissingError(category.Name)
	}

	completion, err := s.client.CreateChatCompletion(ctx, "synthesize", llm.CompletionRequest{
		Messages: []llm.Message{
			{Role: "system", Content: fmt.Sprintf(systemPromptTemplate, NotCoveredReply, category.Name, category.GroundingText)},
			{Role: "user", Content: question},
		},
	})
	if err != nil {
		return "", err
	}

	answer := strings.TrimSpace(completion.Content)
	if answer == "" {
		return "", fmt.Errorf("%w: empty completion", llm.ErrProviderFailed)
	}

	s.logger.Info("answer synthesized", map[string]interface{}{
		"category":     category.Name,
		"answerLength": len(answer),
	})
	return answer, nil
}
