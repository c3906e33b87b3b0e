// internal/classifier/classifier.go
package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"faq-chatbot/internal/common/logger"
	"faq-chatbot/internal/content"
	"faq-chatbot/internal/llm"
)

const (
	// FunctionPrefix namespaces category functions in the descriptor set.
	// The category name is recovered by stripping this prefix from the
	// selected function's identifier.
	FunctionPrefix = "faq_"

	systemPrompt = `You are an intelligent assistant that routes questions to company FAQ knowledge categories.
IMPORTANT RULES:
- Select the single function that best matches the question.
- Do not call any functions if the question is completely unrelated to the functions.`
)

// Resolution is the tagged result of a classification attempt. When Resolved
// is false no category matched and the caller must take the fallback path.
type Resolution struct {
	Category string
	Resolved bool
}

// CompletionClient is the provider surface the classifier depends on.
type CompletionClient interface {
	CreateChatCompletion(ctx context.Context, operation string, req llm.CompletionRequest) (*llm.Completion, error)
}

// Classifier asks the model to pick exactly one knowledge category for a
// question via function calling.
type Classifier struct {
	client CompletionClient
	known  map[string]bool
	tools  []llm.Tool
	logger logger.Logger
}

// New builds the per-category function descriptors once; the category set is
// fixed for the process lifetime.
func New(client CompletionClient, categories []content.Category, log logger.Logger) *Classifier {
	known := make(map[string]bool, len(categories))
	tools := make([]llm.Tool, 0, len(categories))
	for _, cat := range categories {
		known[cat.Name] = true
		tools = append(tools, buildTool(cat))
	}

	return &Classifier{
		client: client,
		known:  known,
		tools:  tools,
		logger: log.With(map[string]interface{}{
			"component": "classifier",
		}),
	}
}

// Classify sends the question with the full descriptor set and recovers the
// picked category. Only the first selection is honored; additional proposals
// are discarded. Transient provider failures propagate to the caller.
func (c *Classifier) Classify(ctx context.Context, question string) (Resolution, error) {
	completion, err := c.client.CreateChatCompletion(ctx, "classify", llm.CompletionRequest{
		Messages: []llm.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: question},
		},
		Tools: c.tools,
	})
	if err != nil {
		return Resolution{}, err
	}

	if len(completion.ToolCalls) == 0 {
		c.logger.Info("no category matched", map[string]interface{}{
			"questionLength": len(question),
		})
		return Resolution{}, nil
	}

	if len(completion.ToolCalls) > 1 {
		c.logger.Warn("model proposed multiple categories, honoring the first", map[string]interface{}{
			"proposals": len(completion.ToolCalls),
		})
	}

	name := completion.ToolCalls[0].Function.Name
	category, ok := strings.CutPrefix(name, FunctionPrefix)
	if !ok || !c.known[category] {
		c.logger.Warn("model selected an unknown function", map[string]interface{}{
			"function": name,
		})
		return Resolution{}, nil
	}

	return Resolution{Category: category, Resolved: true}, nil
}

// Tools exposes the built descriptor set (used by tests).
func (c *Classifier) Tools() []llm.Tool {
	return c.tools
}

func buildTool(cat content.Category) llm.Tool {
	params := map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"question": map[string]interface{}{
				"type":        "string",
				"description": "The user's exact question",
			},
		},
		"required":             []string{"question"},
		"additionalProperties": false,
	}
	raw, _ := json.Marshal(params)

	return llm.Tool{
		Type: "function",
		Function: llm.ToolFunction{
			Name:        FunctionPrefix + cat.Name,
			Description: purposeHint(cat),
			Parameters:  raw,
		},
	}
}

// purposeHint derives a human-readable description for a category function,
// preferring the manifest description when present.
func purposeHint(cat content.Category) string {
	if cat.Description != "" {
		return cat.Description
	}
	return fmt.Sprintf("Answer questions about %s using the %s FAQ knowledge base.",
		strings.ReplaceAll(cat.Name, "_", " "), cat.Name)
}
