// internal/synthesizer/synthesizer_test.go
package synthesizer

import (
	"context"
	"errors"
	"testing"

	apperrors "faq-chatbot/internal/common/errors"
	"faq-chatbot/internal/common/logger"
	"faq-chatbot/internal/content"
	"faq-chatbot/internal/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

type stubClient struct {
	completion *llm.Completion
	err        error
	lastReq    llm.CompletionRequest
	calls      int
}

func (s *stubClient) CreateChatCompletion(_ context.Context, _ string, req llm.CompletionRequest) (*llm.Completion, error) {
	s.calls++
	s.lastReq = req
	if s.err != nil {
		return nil, s.err
	}
	return s.completion, nil
}

var salesCategory = content.Category{
	Name:          "sales",
	Description:   "Pricing plans and purchasing.",
	GroundingText: "Q: What plans?\nA: Starter, Professional and Enterprise.",
}

// ==========================
// Synthesis Tests
// ==========================

func TestSynthesize_Success(t *testing.T) {
	client := &stubClient{completion: &llm.Completion{
		Content: "  We offer Starter, Professional and Enterprise plans.  ",
	}}
	syn := New(client, logger.NewTestLogger(t))

	answer, err := syn.Synthesize(context.Background(), "What plans do you offer?", salesCategory)
	require.NoError(t, err)
	assert.Equal(t, "We offer Starter, Professional and Enterprise plans.", answer)
	assert.Equal(t, 1, client.calls)
}

func TestSynthesize_PromptCarriesGroundingAndGuardrail(t *testing.T) {
	client := &stubClient{completion: &llm.Completion{Content: "ok"}}
	syn := New(client, logger.NewNoOpLogger())

	_, err := syn.Synthesize(context.Background(), "What plans?", salesCategory)
	require.NoError(t, err)

	require.Len(t, client.lastReq.Messages, 2)
	system := client.lastReq.Messages[0]
	assert.Equal(t, "system", system.Role)
	assert.Contains(t, system.Content, salesCategory.GroundingText)
	assert.Contains(t, system.Content, NotCoveredReply)
	assert.Contains(t, system.Content, `"sales"`)

	user := client.lastReq.Messages[1]
	assert.Equal(t, "user", user.Role)
	assert.Equal(t, "What plans?", user.Content)
}

func TestSynthesize_EmptyGroundingFailsBeforeProviderCall(t *testing.T) {
	client := &stubClient{completion: &llm.Completion{Content: "should not be reached"}}
	syn := New(client, logger.NewNoOpLogger())

	tests := []string{"", "   ", "\n\t"}
	for _, grounding := range tests {
		_, err := syn.Synthesize(context.Background(), "anything", content.Category{
			Name:          "labs",
			GroundingText: grounding,
		})
		require.Error(t, err)
		assert.True(t, apperrors.IsKind(err, apperrors.KindGroundingContentMissing))
	}
	assert.Equal(t, 0, client.calls, "provider must not be called without grounding content")
}

func TestSynthesize_ProviderErrorPropagates(t *testing.T) {
	providerErr := errors.New("boom")
	client := &stubClient{err: providerErr}
	syn := New(client, logger.NewNoOpLogger())

	_, err := syn.Synthesize(context.Background(), "pricing?", salesCategory)
	require.Error(t, err)
	assert.ErrorIs(t, err, providerErr)
}

func TestSynthesize_EmptyCompletionIsProviderFailure(t *testing.T) {
	client := &stubClient{completion: &llm.Completion{Content: "   "}}
	syn := New(client, logger.NewNoOpLogger())

	_, err := syn.Synthesize(context.Background(), "pricing?", salesCategory)
	require.Error(t, err)
	assert.ErrorIs(t, err, llm.ErrProviderFailed)
}
